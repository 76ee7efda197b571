package chess

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustBoard(t *testing.T, placements ...Placement) *Board {
	t.Helper()
	b, err := NewBoardFrom(placements)
	if err != nil {
		t.Fatalf("NewBoardFrom: %v", err)
	}
	return b
}

func at(sq string, k Kind, c Color) Placement {
	return Placement{Square: MustSquare(sq), Piece: Piece{Kind: k, Color: c}}
}

func sq(s string) Square { return MustSquare(s) }

func TestStandardBoardLayout(t *testing.T) {
	b := NewStandardBoard()
	if b.Len() != 32 {
		t.Fatalf("standard board has %d pieces, want 32", b.Len())
	}
	checks := map[string]Piece{
		"E1": {King, White}, "D1": {Queen, White}, "A1": {Rook, White}, "G1": {Knight, White},
		"E8": {King, Black}, "D8": {Queen, Black}, "H8": {Rook, Black}, "C8": {Bishop, Black},
		"A2": {Pawn, White}, "H7": {Pawn, Black},
	}
	for s, want := range checks {
		got, ok := b.PieceAt(sq(s))
		if !ok || got != want {
			t.Errorf("PieceAt(%s) = %v, %v; want %v", s, got, ok, want)
		}
	}
	if _, ok := b.PieceAt(sq("E4")); ok {
		t.Errorf("E4 should be empty")
	}
}

func TestPieceAtAcceptsLowerCaseFile(t *testing.T) {
	b := NewStandardBoard()
	p, ok := b.PieceAt(Square{File: 'e', Rank: 2})
	if !ok || p != (Piece{Pawn, White}) {
		t.Fatalf("PieceAt(e2) = %v, %v", p, ok)
	}
}

func TestNewBoardFromRejectsBadPlacements(t *testing.T) {
	tests := []struct {
		name string
		in   []Placement
	}{
		{"off board", []Placement{{Square: Square{'I', 1}, Piece: Piece{King, White}}}},
		{"empty piece", []Placement{{Square: sq("A1")}}},
		{"duplicate", []Placement{at("A1", King, White), at("A1", Rook, Black)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBoardFrom(tt.in); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestKnightMovesFromCorner(t *testing.T) {
	b := mustBoard(t, at("A1", Knight, White))
	got := b.pieceMoves(t, "A1")
	want := []Square{sq("B3"), sq("C2")}
	if diff := cmp.Diff(sortSquares(want), sortSquares(got)); diff != "" {
		t.Fatalf("knight moves mismatch (-want +got):\n%s", diff)
	}
}

func TestPawnMoves(t *testing.T) {
	tests := []struct {
		name  string
		board []Placement
		from  string
		want  []string
	}{
		{
			name:  "white double step from start",
			board: []Placement{at("E2", Pawn, White)},
			from:  "E2",
			want:  []string{"E3", "E4"},
		},
		{
			name:  "black double step from start",
			board: []Placement{at("D7", Pawn, Black)},
			from:  "D7",
			want:  []string{"D6", "D5"},
		},
		{
			name:  "blocked pawn cannot jump",
			board: []Placement{at("E2", Pawn, White), at("E3", Knight, Black)},
			from:  "E2",
			want:  nil,
		},
		{
			name:  "double step blocked on second square",
			board: []Placement{at("E2", Pawn, White), at("E4", Knight, Black)},
			from:  "E2",
			want:  []string{"E3"},
		},
		{
			name:  "diagonal captures only enemies",
			board: []Placement{at("E4", Pawn, White), at("D5", Pawn, Black), at("F5", Pawn, White)},
			from:  "E4",
			want:  []string{"E5", "D5"},
		},
		{
			name:  "no double step off start rank",
			board: []Placement{at("E3", Pawn, White)},
			from:  "E3",
			want:  []string{"E4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.board...)
			got := b.pieceMoves(t, tt.from)
			var want []Square
			for _, s := range tt.want {
				want = append(want, sq(s))
			}
			if diff := cmp.Diff(sortSquares(want), sortSquares(got)); diff != "" {
				t.Fatalf("pawn moves mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSlidersStopAtBlockers(t *testing.T) {
	b := mustBoard(t,
		at("D4", Rook, White),
		at("D6", Pawn, Black),
		at("F4", Pawn, White),
	)
	got := b.pieceMoves(t, "D4")
	want := []Square{
		sq("D5"), sq("D6"),
		sq("D3"), sq("D2"), sq("D1"),
		sq("E4"),
		sq("C4"), sq("B4"), sq("A4"),
	}
	if diff := cmp.Diff(sortSquares(want), sortSquares(got)); diff != "" {
		t.Fatalf("rook moves mismatch (-want +got):\n%s", diff)
	}
}

func TestPseudoLegalMovesStayOnBoardAndOffOwnPieces(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for game := 0; game < 20; game++ {
		b := NewStandardBoard()
		turn := White
		for ply := 0; ply < 60; ply++ {
			for _, pl := range b.Pieces() {
				for _, to := range pl.Piece.PseudoLegalMoves(pl.Square, b) {
					if !to.InBounds() {
						t.Fatalf("%v on %v generated off-board %v", pl.Piece, pl.Square, to)
					}
					if dst, ok := b.PieceAt(to); ok && dst.Color == pl.Piece.Color {
						t.Fatalf("%v on %v generated own-occupied %v", pl.Piece, pl.Square, to)
					}
				}
			}
			moves := b.LegalMoves(turn)
			if len(moves) == 0 {
				break
			}
			m := moves[rng.IntN(len(moves))]
			if _, _, err := b.MovePiece(m.From, m.To, turn, Queen); err != nil {
				t.Fatalf("legal move %v rejected: %v", m, err)
			}
			turn = turn.Opponent()
		}
	}
}

func TestLegalMovesNeverLeaveKingInCheck(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	b := NewStandardBoard()
	turn := White
	for ply := 0; ply < 120; ply++ {
		moves := b.LegalMoves(turn)
		for _, m := range moves {
			probe := b.Clone()
			if _, _, err := probe.MovePiece(m.From, m.To, turn, Queen); err != nil {
				t.Fatalf("MovePiece(%v): %v", m, err)
			}
			if probe.IsInCheck(turn) {
				t.Fatalf("legal move %v leaves %v in check", m, turn)
			}
		}
		if len(moves) == 0 {
			return
		}
		m := moves[rng.IntN(len(moves))]
		if _, _, err := b.MovePiece(m.From, m.To, turn, Queen); err != nil {
			t.Fatalf("MovePiece: %v", err)
		}
		turn = turn.Opponent()
	}
}

func TestMoveAndInverseRestoreBoard(t *testing.T) {
	b := mustBoard(t,
		at("E1", King, White),
		at("E8", King, Black),
		at("C4", Bishop, White),
		at("F7", Pawn, Black),
	)
	before := b.Clone()
	captured, hit, err := b.MovePiece(sq("C4"), sq("F7"), White, NoKind)
	if err != nil {
		t.Fatalf("MovePiece: %v", err)
	}
	if !hit || captured != (Piece{Pawn, Black}) {
		t.Fatalf("captured = %v, %v; want black pawn", captured, hit)
	}

	moved, _ := b.Remove(sq("F7"))
	if err := b.Place(sq("C4"), moved); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if err := b.Place(sq("F7"), captured); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if !b.Equal(before) {
		t.Fatalf("board not restored:\n%s\nwant:\n%s", b.Render(), before.Render())
	}
}

func TestPinnedRookCannotLeaveFile(t *testing.T) {
	b := mustBoard(t,
		at("E1", King, White),
		at("E5", Rook, White),
		at("E8", Rook, Black),
		at("A8", King, Black),
	)
	err := b.ValidateMove(sq("E5"), sq("D5"), White)
	if ReasonOf(err) != ReasonLeavesKingInCheck {
		t.Fatalf("E5-D5 err = %v, want %s", err, ReasonLeavesKingInCheck)
	}
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("error should match ErrInvalidMove")
	}
	if err := b.ValidateMove(sq("E5"), sq("E6"), White); err != nil {
		t.Fatalf("E5-E6 along the pin should be legal: %v", err)
	}
	if err := b.ValidateMove(sq("E5"), sq("E8"), White); err != nil {
		t.Fatalf("capturing the pinning rook should be legal: %v", err)
	}
}

func TestValidateMoveReasons(t *testing.T) {
	b := NewStandardBoard()
	tests := []struct {
		name     string
		from, to Square
		color    Color
		want     Reason
	}{
		{"off board", sq("E2"), Square{'E', 9}, White, ReasonOutOfBounds},
		{"empty origin", sq("E4"), sq("E5"), White, ReasonNoPiece},
		{"opponent piece", sq("E7"), sq("E5"), White, ReasonWrongColor},
		{"own piece at destination", sq("A1"), sq("A2"), White, ReasonOwnPieceAtDestination},
		{"not in move set", sq("E2"), sq("E5"), White, ReasonNotInMoveSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.ValidateMove(tt.from, tt.to, tt.color)
			if got := ReasonOf(err); got != tt.want {
				t.Fatalf("reason = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}
	if b.Len() != 32 {
		t.Fatalf("validation mutated the board")
	}
}

func TestKingSafetyAdjacentToPawn(t *testing.T) {
	b := mustBoard(t,
		at("E4", King, White),
		at("E6", Pawn, Black),
		at("A8", King, Black),
	)
	if err := b.ValidateMove(sq("E4"), sq("D5"), White); ReasonOf(err) != ReasonLeavesKingInCheck {
		t.Fatalf("D5 is attacked by the E6 pawn, got %v", err)
	}
	if err := b.ValidateMove(sq("E4"), sq("E5"), White); err != nil {
		t.Fatalf("pawns do not attack straight ahead: %v", err)
	}
}

func TestMovePiecePromotion(t *testing.T) {
	tests := []struct {
		name string
		req  Kind
		want Kind
	}{
		{"knight", Knight, Knight},
		{"rook", Rook, Rook},
		{"default queen", NoKind, Queen},
		{"king is refused", King, Queen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, at("A7", Pawn, White), at("E1", King, White), at("E8", King, Black))
			if !b.RequiresPromotion(sq("A7"), sq("A8")) {
				t.Fatalf("A7-A8 should require promotion")
			}
			if _, _, err := b.MovePiece(sq("A7"), sq("A8"), White, tt.req); err != nil {
				t.Fatalf("MovePiece: %v", err)
			}
			got, _ := b.PieceAt(sq("A8"))
			if got != (Piece{tt.want, White}) {
				t.Fatalf("A8 = %v, want white %v", got, tt.want)
			}
		})
	}
}

func TestRenderMarksPieces(t *testing.T) {
	out := NewStandardBoard().Render()
	want := "8 | r n b q k b n r | 8\n"
	if !strings.Contains(out, want) {
		t.Fatalf("render missing %q:\n%s", want, out)
	}
}

func (b *Board) pieceMoves(t *testing.T, from string) []Square {
	t.Helper()
	p, ok := b.PieceAt(sq(from))
	if !ok {
		t.Fatalf("no piece at %s", from)
	}
	return p.PseudoLegalMoves(sq(from), b)
}

func sortSquares(in []Square) []Square {
	out := append([]Square(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Less(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
