package chesspresenter

import (
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/domain"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

// ToDTOState converts a live game into its API shape.
func ToDTOState(g *chess.Game) *chessdto.GameState {
	if g == nil {
		return nil
	}
	out := g.Outcome()
	b := g.Board()

	board := make([]chessdto.PieceToken, 0, b.Len())
	for _, p := range b.Pieces() {
		board = append(board, chessdto.PieceToken{
			Type:     p.Piece.Kind.String(),
			Color:    p.Piece.Color.String(),
			Position: p.Square.String(),
		})
	}
	history := g.History()
	moves := make([]string, 0, len(history))
	for _, m := range history {
		moves = append(moves, m.String())
	}

	state := &chessdto.GameState{
		ID:     g.ID,
		White:  g.White().Name,
		Black:  g.Black().Name,
		Turn:   g.Turn().String(),
		Status: out.Status.String(),
		Method: string(out.Method),
		Board:  board,
		Moves:  moves,
		Captured: chessdto.CapturedPieces{
			White: toPieceTokenList(g.White().Captured()),
			Black: toPieceTokenList(g.Black().Captured()),
		},
		Points:  chessdto.Points{White: g.White().Points(), Black: g.Black().Points()},
		InCheck: !out.Terminal() && b.IsInCheck(g.Turn()),
		Text:    b.Render(),
	}
	if w, ok := g.Winner(); ok {
		state.Winner = w.String()
	}
	return state
}

func toPieceTokenList(list []chess.Piece) []string {
	tokens := make([]string, 0, len(list))
	for _, p := range list {
		if token := pieceTypeToToken(p.Kind); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func pieceTypeToToken(k chess.Kind) string {
	switch k {
	case chess.Queen:
		return "queen"
	case chess.Rook:
		return "rook"
	case chess.Bishop:
		return "bishop"
	case chess.Knight:
		return "knight"
	case chess.Pawn:
		return "pawn"
	case chess.King:
		return "king"
	default:
		return ""
	}
}

func ToDTOResults(list []*domain.GameResult) []chessdto.GameResult {
	out := make([]chessdto.GameResult, 0, len(list))
	for _, r := range list {
		if r == nil {
			continue
		}
		out = append(out, chessdto.GameResult{
			SessionUUID:  r.SessionUUID,
			GameID:       r.GameID,
			PlayerColor:  r.PlayerColor,
			Result:       r.Result,
			ResultMethod: r.ResultMethod,
			Moves:        append([]string(nil), r.Moves...),
			PointsDelta:  r.PointsDelta,
			EndedAt:      r.EndedAt,
			DurationMS:   r.Duration.Milliseconds(),
		})
	}
	return out
}
