package chess

import "math/rand/v2"

// Player is one side of a game with the pieces it has taken.
type Player struct {
	Name  string
	Color Color

	captured []Piece
	points   int
}

func NewPlayer(name string, color Color) *Player {
	return &Player{Name: name, Color: color}
}

// AddCapture records a taken piece and credits its value.
func (p *Player) AddCapture(piece Piece) {
	if piece.IsZero() {
		return
	}
	p.captured = append(p.captured, piece)
	p.points += piece.Kind.Points()
}

// Captured returns the taken pieces in capture order.
func (p *Player) Captured() []Piece {
	return append([]Piece(nil), p.captured...)
}

func (p *Player) Points() int { return p.points }

// RandomMove picks one of the player's legal moves uniformly at random.
// ok is false when the player cannot move.
func (p *Player) RandomMove(b *Board, rng *rand.Rand) (from, to Square, ok bool) {
	moves := b.LegalMoves(p.Color)
	if len(moves) == 0 {
		return Square{}, Square{}, false
	}
	var i int
	if rng != nil {
		i = rng.IntN(len(moves))
	} else {
		i = rand.IntN(len(moves))
	}
	return moves[i].From, moves[i].To, true
}
