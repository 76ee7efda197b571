package results

import (
	"time"

	"github.com/google/uuid"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/domain"
)

// Summarize builds the archive row for a finished game seen from the human
// side. Each call gets a fresh session UUID.
func Summarize(g *chess.Game, email string, human chess.Color, delta int, startedAt, endedAt time.Time) *domain.GameResult {
	out := g.Outcome()
	result := domain.ResultLoss
	switch {
	case out.Status == chess.StatusDraw:
		result = domain.ResultDraw
	case out.Winner == human:
		result = domain.ResultWin
	}

	history := g.History()
	moves := make([]string, 0, len(history))
	for _, m := range history {
		moves = append(moves, m.String())
	}

	var duration time.Duration
	if endedAt.After(startedAt) {
		duration = endedAt.Sub(startedAt)
	}
	return &domain.GameResult{
		SessionUUID:  uuid.NewString(),
		GameID:       g.ID,
		PlayerEmail:  email,
		PlayerColor:  human.String(),
		Result:       result,
		ResultMethod: string(out.Method),
		Moves:        moves,
		PointsDelta:  delta,
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		Duration:     duration,
	}
}
