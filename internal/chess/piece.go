package chess

import (
	"fmt"
	"strings"
)

// Kind is the closed set of piece types.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindLetters = [...]byte{NoKind: '.', Pawn: 'P', Knight: 'N', Bishop: 'B', Rook: 'R', Queen: 'Q', King: 'K'}

// Letter is the one-character tag used for rendering and serialization.
func (k Kind) Letter() byte {
	if int(k) >= len(kindLetters) {
		return '?'
	}
	return kindLetters[k]
}

func (k Kind) String() string { return string(k.Letter()) }

// Points is the capture value credited to the capturing player.
func (k Kind) Points() int {
	switch k {
	case Queen:
		return 90
	case Rook:
		return 50
	case Bishop, Knight:
		return 30
	case Pawn:
		return 10
	default:
		return 0
	}
}

// ParseKind accepts P/N/B/R/Q/K in any case.
func ParseKind(s string) (Kind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 {
		return NoKind, fmt.Errorf("unknown piece type %q", s)
	}
	for k, l := range kindLetters {
		if k != int(NoKind) && l == s[0] {
			return Kind(k), nil
		}
	}
	return NoKind, fmt.Errorf("unknown piece type %q", s)
}

// PromotionKind maps a requested promotion letter to a piece kind.
// Anything other than Q/R/B/N falls back to Queen.
func PromotionKind(k Kind) Kind {
	switch k {
	case Queen, Rook, Bishop, Knight:
		return k
	default:
		return Queen
	}
}

// Piece is a coloured piece. Its square is the key it is stored under on a Board.
type Piece struct {
	Kind  Kind
	Color Color
}

// IsZero reports whether p is the empty piece.
func (p Piece) IsZero() bool { return p.Kind == NoKind }

// Symbol renders white pieces upper case and black pieces lower case.
func (p Piece) Symbol() byte {
	l := p.Kind.Letter()
	if p.Color == Black && l >= 'A' && l <= 'Z' {
		l += 'a' - 'A'
	}
	return l
}

func (p Piece) String() string {
	if p.IsZero() {
		return "-"
	}
	return p.Color.String() + " " + p.Kind.String()
}

var (
	knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	diagonalRays  = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	straightRays  = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// PseudoLegalMoves returns the squares p standing on from could move to on b,
// ignoring whether the move exposes its own king. It never mutates b.
func (p Piece) PseudoLegalMoves(from Square, b *Board) []Square {
	if b == nil || !from.InBounds() {
		return nil
	}
	from = from.normalize()
	switch p.Kind {
	case Pawn:
		return p.pawnMoves(from, b)
	case Knight:
		return p.stepMoves(from, b, knightOffsets[:])
	case Bishop:
		return p.rayMoves(from, b, diagonalRays[:])
	case Rook:
		return p.rayMoves(from, b, straightRays[:])
	case Queen:
		return append(p.rayMoves(from, b, diagonalRays[:]), p.rayMoves(from, b, straightRays[:])...)
	case King:
		return p.stepMoves(from, b, kingOffsets[:])
	default:
		return nil
	}
}

func (p Piece) pawnMoves(from Square, b *Board) []Square {
	dir := p.Color.forward()
	startRank := 2
	if p.Color == Black {
		startRank = 7
	}

	var moves []Square
	one := from.Offset(0, dir)
	if one.InBounds() && b.empty(one) {
		moves = append(moves, one)
		two := from.Offset(0, 2*dir)
		if from.Rank == startRank && two.InBounds() && b.empty(two) {
			moves = append(moves, two)
		}
	}
	for _, df := range [2]int{-1, 1} {
		diag := from.Offset(df, dir)
		if !diag.InBounds() {
			continue
		}
		if on, ok := b.PieceAt(diag); ok && on.Color != p.Color {
			moves = append(moves, diag)
		}
	}
	return moves
}

func (p Piece) stepMoves(from Square, b *Board, offsets [][2]int) []Square {
	moves := make([]Square, 0, len(offsets))
	for _, o := range offsets {
		to := from.Offset(o[0], o[1])
		if !to.InBounds() {
			continue
		}
		if on, ok := b.PieceAt(to); ok && on.Color == p.Color {
			continue
		}
		moves = append(moves, to)
	}
	return moves
}

func (p Piece) rayMoves(from Square, b *Board, rays [][2]int) []Square {
	var moves []Square
	for _, r := range rays {
		to := from.Offset(r[0], r[1])
		for to.InBounds() {
			on, ok := b.PieceAt(to)
			if !ok {
				moves = append(moves, to)
				to = to.Offset(r[0], r[1])
				continue
			}
			if on.Color != p.Color {
				moves = append(moves, to)
			}
			break
		}
	}
	return moves
}

// attacks reports whether p on from attacks target. Pawns attack diagonally
// forward only, kings the adjacent squares; everything else attacks what it
// could move to.
func (p Piece) attacks(from, target Square, b *Board) bool {
	from, target = from.normalize(), target.normalize()
	switch p.Kind {
	case Pawn:
		dir := p.Color.forward()
		return target == from.Offset(-1, dir) || target == from.Offset(1, dir)
	case King:
		df := int(target.File) - int(from.File)
		dr := target.Rank - from.Rank
		return from != target && df >= -1 && df <= 1 && dr >= -1 && dr <= 1
	default:
		for _, sq := range p.PseudoLegalMoves(from, b) {
			if sq == target {
				return true
			}
		}
		return false
	}
}
