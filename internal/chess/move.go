package chess

import "fmt"

// Move is one applied half-move. Values are never changed after the game
// records them.
type Move struct {
	Color     Color
	From      Square
	To        Square
	Captured  Piece // zero when nothing was taken
	Promotion Kind  // NoKind unless a pawn promoted
}

// Capture returns the captured piece, if any.
func (m Move) Capture() (Piece, bool) {
	return m.Captured, !m.Captured.IsZero()
}

func (m Move) String() string {
	s := fmt.Sprintf("%s: %s->%s", m.Color, m.From, m.To)
	if m.Promotion != NoKind {
		s += "=" + m.Promotion.String()
	}
	return s
}
