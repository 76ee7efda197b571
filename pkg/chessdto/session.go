package chessdto

type PieceToken struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	Position string `json:"position"`
}

type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

type Points struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// GameState is a game as the API reports it.
type GameState struct {
	ID       int64          `json:"id"`
	White    string         `json:"white"`
	Black    string         `json:"black"`
	Turn     string         `json:"turn"`
	Status   string         `json:"status"`
	Winner   string         `json:"winner,omitempty"`
	Method   string         `json:"method,omitempty"`
	Board    []PieceToken   `json:"board"`
	Moves    []string       `json:"moves"`
	Captured CapturedPieces `json:"captured"`
	Points   Points         `json:"points"`
	InCheck  bool           `json:"inCheck"`
	Text     string         `json:"text"`
}
