package chessdto

import "time"

type GameResult struct {
	SessionUUID  string    `json:"sessionUuid"`
	GameID       int64     `json:"gameId"`
	PlayerColor  string    `json:"playerColor"`
	Result       string    `json:"result"`
	ResultMethod string    `json:"resultMethod,omitempty"`
	Moves        []string  `json:"moves"`
	PointsDelta  int       `json:"pointsDelta"`
	EndedAt      time.Time `json:"endedAt"`
	DurationMS   int64     `json:"durationMs"`
}

type ResultsResponse struct {
	Player  string       `json:"player"`
	Results []GameResult `json:"results"`
}

type LeaderboardEntry struct {
	Email  string `json:"email"`
	Points int    `json:"points"`
	Games  int    `json:"activeGames"`
}
