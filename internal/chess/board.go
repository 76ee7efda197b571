package chess

import (
	"fmt"
	"sort"
	"strings"
)

// Placement binds a piece to a square. It is the unit Board enumeration and
// persistence work in.
type Placement struct {
	Square Square
	Piece  Piece
}

// Candidate is a legal (from, to) pair.
type Candidate struct {
	From Square
	To   Square
}

// Board holds square occupancy. At most one piece per square; only in-bounds
// squares are ever stored. A Board is not safe for concurrent use.
type Board struct {
	squares map[Square]Piece
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{squares: make(map[Square]Piece, 32)}
}

// NewStandardBoard returns a board set up for a new game.
func NewStandardBoard() *Board {
	b := NewBoard()
	b.Reset()
	return b
}

// NewBoardFrom builds a board from placements, rejecting out-of-bounds
// squares, empty pieces and duplicates.
func NewBoardFrom(placements []Placement) (*Board, error) {
	b := NewBoard()
	for _, pl := range placements {
		if !pl.Square.InBounds() {
			return nil, fmt.Errorf("placement %v: square off the board", pl.Square)
		}
		if pl.Piece.IsZero() || !pl.Piece.Color.Valid() {
			return nil, fmt.Errorf("placement %v: invalid piece %v", pl.Square, pl.Piece)
		}
		if _, taken := b.PieceAt(pl.Square); taken {
			return nil, fmt.Errorf("placement %v: square already occupied", pl.Square)
		}
		b.squares[pl.Square.normalize()] = pl.Piece
	}
	return b, nil
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Reset clears the board and sets up the standard initial layout.
func (b *Board) Reset() {
	b.Clear()
	for i, k := range backRank {
		file := byte('A' + i)
		b.squares[Square{file, 1}] = Piece{Kind: k, Color: White}
		b.squares[Square{file, 2}] = Piece{Kind: Pawn, Color: White}
		b.squares[Square{file, 7}] = Piece{Kind: Pawn, Color: Black}
		b.squares[Square{file, 8}] = Piece{Kind: k, Color: Black}
	}
}

// Clear removes every piece.
func (b *Board) Clear() {
	b.squares = make(map[Square]Piece, 32)
}

// Place puts p on sq, replacing whatever stood there.
func (b *Board) Place(sq Square, p Piece) error {
	if !sq.InBounds() {
		return moveErr(ReasonOutOfBounds, sq, sq)
	}
	if p.IsZero() {
		return fmt.Errorf("place %v: empty piece", sq)
	}
	b.squares[sq.normalize()] = p
	return nil
}

// Remove takes the piece off sq and returns it.
func (b *Board) Remove(sq Square) (Piece, bool) {
	sq = sq.normalize()
	p, ok := b.squares[sq]
	if ok {
		delete(b.squares, sq)
	}
	return p, ok
}

// PieceAt returns the piece on sq. The file letter may be either case.
func (b *Board) PieceAt(sq Square) (Piece, bool) {
	if b == nil || !sq.InBounds() {
		return Piece{}, false
	}
	p, ok := b.squares[sq.normalize()]
	return p, ok
}

func (b *Board) empty(sq Square) bool {
	_, ok := b.PieceAt(sq)
	return !ok
}

// InBounds reports whether sq is on the board.
func (b *Board) InBounds(sq Square) bool { return sq.InBounds() }

// Len is the number of pieces on the board.
func (b *Board) Len() int { return len(b.squares) }

// Pieces enumerates the board ordered by (rank, file).
func (b *Board) Pieces() []Placement {
	out := make([]Placement, 0, len(b.squares))
	for sq, p := range b.squares {
		out = append(out, Placement{Square: sq, Piece: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Square.Less(out[j].Square) })
	return out
}

// Clone returns an independent copy of the occupancy.
func (b *Board) Clone() *Board {
	c := &Board{squares: make(map[Square]Piece, len(b.squares))}
	for sq, p := range b.squares {
		c.squares[sq] = p
	}
	return c
}

// Equal reports whether both boards hold the same pieces on the same squares.
func (b *Board) Equal(o *Board) bool {
	if len(b.squares) != len(o.squares) {
		return false
	}
	for sq, p := range b.squares {
		if q, ok := o.squares[sq]; !ok || q != p {
			return false
		}
	}
	return true
}

// KingSquare finds the king of color c.
func (b *Board) KingSquare(c Color) (Square, bool) {
	for sq, p := range b.squares {
		if p.Kind == King && p.Color == c {
			return sq, true
		}
	}
	return Square{}, false
}

// IsSquareAttacked reports whether any piece of attacker attacks target.
func (b *Board) IsSquareAttacked(target Square, attacker Color) bool {
	for sq, p := range b.squares {
		if p.Color != attacker {
			continue
		}
		if p.attacks(sq, target, b) {
			return true
		}
	}
	return false
}

// IsInCheck reports whether the king of c is attacked. A side without a king
// is never in check.
func (b *Board) IsInCheck(c Color) bool {
	k, ok := b.KingSquare(c)
	if !ok {
		return false
	}
	return b.IsSquareAttacked(k, c.Opponent())
}

// ValidateMove returns nil if color may move the piece on from to to, or a
// *MoveError naming the first rule the move breaks.
func (b *Board) ValidateMove(from, to Square, color Color) error {
	if !from.InBounds() || !to.InBounds() {
		return moveErr(ReasonOutOfBounds, from, to)
	}
	piece, ok := b.PieceAt(from)
	if !ok {
		return moveErr(ReasonNoPiece, from, to)
	}
	if piece.Color != color {
		return moveErr(ReasonWrongColor, from, to)
	}
	if dst, ok := b.PieceAt(to); ok && dst.Color == color {
		return moveErr(ReasonOwnPieceAtDestination, from, to)
	}
	if !containsSquare(piece.PseudoLegalMoves(from, b), to) {
		e := moveErr(ReasonNotInMoveSet, from, to)
		e.Kind = piece.Kind
		return e
	}
	if b.leavesKingInCheck(from, to, color) {
		return moveErr(ReasonLeavesKingInCheck, from, to)
	}
	return nil
}

// IsValidMove is ValidateMove as a predicate.
func (b *Board) IsValidMove(from, to Square, color Color) bool {
	return b.ValidateMove(from, to, color) == nil
}

// leavesKingInCheck plays the move on a scratch copy and tests for check.
func (b *Board) leavesKingInCheck(from, to Square, color Color) bool {
	scratch := b.Clone()
	p, _ := scratch.Remove(from)
	scratch.squares[to.normalize()] = p
	return scratch.IsInCheck(color)
}

// RequiresPromotion reports whether the piece on from is a pawn arriving on
// its far rank at to.
func (b *Board) RequiresPromotion(from, to Square) bool {
	p, ok := b.PieceAt(from)
	if !ok || p.Kind != Pawn {
		return false
	}
	return (p.Color == White && to.Rank == 8) || (p.Color == Black && to.Rank == 1)
}

// MovePiece validates and applies a move. The captured piece, if any, is
// returned. A pawn reaching its far rank becomes promotion (Queen when
// promotion is not one of Q/R/B/N).
func (b *Board) MovePiece(from, to Square, color Color, promotion Kind) (Piece, bool, error) {
	if err := b.ValidateMove(from, to, color); err != nil {
		return Piece{}, false, err
	}
	promote := b.RequiresPromotion(from, to)
	piece, _ := b.Remove(from)
	captured, hit := b.Remove(to)
	if promote {
		piece = Piece{Kind: PromotionKind(promotion), Color: piece.Color}
	}
	b.squares[to.normalize()] = piece
	return captured, hit, nil
}

// LegalMoves lists every legal move of color in (rank, file) order of the
// origin square.
func (b *Board) LegalMoves(color Color) []Candidate {
	var out []Candidate
	for _, pl := range b.Pieces() {
		if pl.Piece.Color != color {
			continue
		}
		for _, to := range pl.Piece.PseudoLegalMoves(pl.Square, b) {
			if b.IsValidMove(pl.Square, to, color) {
				out = append(out, Candidate{From: pl.Square, To: to})
			}
		}
	}
	return out
}

// HasLegalMove reports whether color has at least one legal move.
func (b *Board) HasLegalMove(color Color) bool {
	for sq, p := range b.squares {
		if p.Color != color {
			continue
		}
		for _, to := range p.PseudoLegalMoves(sq, b) {
			if b.IsValidMove(sq, to, color) {
				return true
			}
		}
	}
	return false
}

// Render draws the board as text, rank 8 on top.
func (b *Board) Render() string {
	var sb strings.Builder
	sb.WriteString("    A B C D E F G H\n")
	sb.WriteString("   -----------------\n")
	for rank := 8; rank >= 1; rank-- {
		fmt.Fprintf(&sb, "%d | ", rank)
		for file := byte('A'); file <= 'H'; file++ {
			if p, ok := b.squares[Square{file, rank}]; ok {
				sb.WriteByte(p.Symbol())
			} else {
				sb.WriteByte('.')
			}
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "| %d\n", rank)
	}
	sb.WriteString("   -----------------\n")
	sb.WriteString("    A B C D E F G H\n")
	return sb.String()
}

func containsSquare(list []Square, sq Square) bool {
	sq = sq.normalize()
	for _, s := range list {
		if s == sq {
			return true
		}
	}
	return false
}
