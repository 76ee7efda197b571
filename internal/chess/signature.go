package chess

// Signature identifies a position for repetition counting: the side to move
// plus the contents of all 64 squares. It is comparable and used directly as
// a map key.
type Signature struct {
	Turn  Color
	Cells [64]Piece
}

// SignatureOf captures the position of b with turn to move.
func SignatureOf(b *Board, turn Color) Signature {
	sig := Signature{Turn: turn}
	for sq, p := range b.squares {
		sig.Cells[sq.index()] = p
	}
	return sig
}
