package chess

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"
)

// fen renders b for the reference engine. Castling and en passant are not
// part of this rule set, so both fields are always empty.
func fen(b *Board, turn Color) string {
	var sb strings.Builder
	for rank := 8; rank >= 1; rank-- {
		gap := 0
		for file := byte('A'); file <= 'H'; file++ {
			p, ok := b.PieceAt(Square{file, rank})
			if !ok {
				gap++
				continue
			}
			if gap > 0 {
				sb.WriteString(strconv.Itoa(gap))
				gap = 0
			}
			sb.WriteByte(p.Symbol())
		}
		if gap > 0 {
			sb.WriteString(strconv.Itoa(gap))
		}
		if rank > 1 {
			sb.WriteByte('/')
		}
	}
	side := " w"
	if turn == Black {
		side = " b"
	}
	sb.WriteString(side + " - - 0 1")
	return sb.String()
}

func referenceMoves(t *testing.T, b *Board, turn Color) []string {
	t.Helper()
	opt, err := nchess.FEN(fen(b, turn))
	if err != nil {
		t.Fatalf("FEN %q: %v", fen(b, turn), err)
	}
	game := nchess.NewGame(opt)
	seen := map[string]bool{}
	var out []string
	for _, m := range game.Position().ValidMoves() {
		key := strings.ToUpper(m.S1().String() + m.S2().String())
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func ourMoves(b *Board, turn Color) []string {
	var out []string
	for _, c := range b.LegalMoves(turn) {
		out = append(out, c.From.String()+c.To.String())
	}
	sort.Strings(out)
	return out
}

func TestLegalMovesMatchReferenceEngine(t *testing.T) {
	for seed := uint64(1); seed <= 12; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		b := NewStandardBoard()
		turn := White
		for ply := 0; ply < 80; ply++ {
			want := referenceMoves(t, b, turn)
			got := ourMoves(b, turn)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("seed %d ply %d %s: legal moves mismatch (-reference +ours):\n%s\n%s",
					seed, ply, fen(b, turn), diff, b.Render())
			}
			if len(got) == 0 {
				break
			}
			pick := b.LegalMoves(turn)[rng.IntN(len(got))]
			if _, _, err := b.MovePiece(pick.From, pick.To, turn, Queen); err != nil {
				t.Fatalf("MovePiece: %v", err)
			}
			turn = turn.Opponent()
		}
	}
}
