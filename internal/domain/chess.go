package domain

import "time"

// Account is a registered player. Games lists the ids of unfinished games.
type Account struct {
	Email        string
	PasswordHash string
	Points       int
	Games        []int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasGame reports whether id is among the account's active games.
func (a *Account) HasGame(id int64) bool {
	for _, g := range a.Games {
		if g == id {
			return true
		}
	}
	return false
}

// Result values of a finished game, seen from the player.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

// GameResult is the archived summary of one finished game.
type GameResult struct {
	ID           int64
	SessionUUID  string
	GameID       int64
	PlayerEmail  string
	PlayerColor  string
	Result       string
	ResultMethod string
	Moves        []string
	PointsDelta  int
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
