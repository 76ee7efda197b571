package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/cheese-chess/internal/chess"
)

func TestParseMove(t *testing.T) {
	tests := []struct {
		in      string
		from    string
		to      string
		wantErr bool
	}{
		{in: "E2-E4", from: "E2", to: "E4"},
		{in: "e2-e4", from: "E2", to: "E4"},
		{in: " a7 - a8 ", from: "A7", to: "A8"},
		{in: "E2E4", wantErr: true},
		{in: "E2-E4-E5", wantErr: true},
		{in: "E-E4", wantErr: true},
		{in: "Ex-E4", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			from, to, err := ParseMove(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCommand) {
					t.Fatalf("err = %v, want ErrInvalidCommand", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMove: %v", err)
			}
			if from.String() != tt.from || to.String() != tt.to {
				t.Fatalf("got %v-%v, want %s-%s", from, to, tt.from, tt.to)
			}
		})
	}
}

func TestParseMoveKeepsOffBoardSquares(t *testing.T) {
	from, to, err := ParseMove("E2-E9")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if !from.InBounds() || to.InBounds() {
		t.Fatalf("from=%v to=%v", from, to)
	}
}

func TestParsePromotion(t *testing.T) {
	tests := map[string]chess.Kind{
		"":     chess.Queen,
		"n":    chess.Knight,
		"R":    chess.Rook,
		"bish": chess.Bishop,
		"K":    chess.Queen,
		"P":    chess.Queen,
		"x":    chess.Queen,
		" q ":  chess.Queen,
	}
	for in, want := range tests {
		if got := ParsePromotion(in); got != want {
			t.Errorf("ParsePromotion(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSettlement(t *testing.T) {
	tests := []struct {
		name   string
		ending Ending
		won    bool
		points int
		policy DrawPolicy
		want   int
	}{
		{"resign", EndingResigned, false, 40, DrawAsComputerResign, -110},
		{"draw as computer resign", EndingDraw, false, 40, DrawAsComputerResign, 190},
		{"neutral draw", EndingDraw, false, 40, DrawNeutral, 40},
		{"mate won", EndingCheckmate, true, 90, DrawAsComputerResign, 390},
		{"mate lost", EndingCheckmate, false, 10, DrawAsComputerResign, -290},
		{"left", EndingLeft, false, 70, DrawAsComputerResign, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Settlement(tt.ending, tt.won, tt.points, tt.policy); got != tt.want {
				t.Fatalf("Settlement = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEndingFor(t *testing.T) {
	cases := map[chess.Status]Ending{
		chess.StatusInProgress: EndingLeft,
		chess.StatusResigned:   EndingResigned,
		chess.StatusDraw:       EndingDraw,
		chess.StatusCheckmate:  EndingCheckmate,
	}
	for status, want := range cases {
		if got := EndingFor(chess.Outcome{Status: status}); got != want {
			t.Errorf("EndingFor(%v) = %v, want %v", status, got, want)
		}
	}
}

func place(sq string, k chess.Kind, c chess.Color) chess.Placement {
	return chess.Placement{Square: chess.MustSquare(sq), Piece: chess.Piece{Kind: k, Color: c}}
}

func startedGame(t *testing.T) *chess.Game {
	t.Helper()
	g, err := chess.NewGame(1, chess.NewPlayer("ann", chess.White), chess.NewPlayer("computer", chess.Black))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	g.Start()
	return g
}

func restored(t *testing.T, turn chess.Color, placements ...chess.Placement) *chess.Game {
	t.Helper()
	g, err := chess.Restore(chess.Snapshot{ID: 5, WhiteName: "ann", BlackName: "computer", Turn: turn, Board: placements})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	return g
}

func runSession(t *testing.T, g *chess.Game, input string, opts Options) (Result, string) {
	t.Helper()
	var out bytes.Buffer
	opts.In = strings.NewReader(input)
	opts.Out = &out
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 1))
	}
	s, err := New(g, chess.White, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	return res, out.String()
}

func TestPlayResign(t *testing.T) {
	res, out := runSession(t, startedGame(t), "resign\n", Options{})
	if res.Ending != EndingResigned || res.Delta != -ResignPenalty {
		t.Fatalf("result = %+v", res)
	}
	if res.Outcome.Status != chess.StatusResigned || res.Outcome.Winner != chess.Black {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
	if !strings.Contains(out, "You resigned.") {
		t.Fatalf("output missing resign notice:\n%s", out)
	}
}

func TestPlayLeaveAndEOF(t *testing.T) {
	for _, input := range []string{"LEAVE\n", ""} {
		g := startedGame(t)
		res, _ := runSession(t, g, input, Options{})
		if res.Ending != EndingLeft || res.Ending.Finished() {
			t.Fatalf("input %q: result = %+v", input, res)
		}
		if g.IsOver() {
			t.Fatalf("leaving must not end the game")
		}
	}
}

func TestPlayReportsBadInput(t *testing.T) {
	g := startedGame(t)
	_, out := runSession(t, g, "hello\nE2-E5\nE7-E5\nleave\n", Options{})
	for _, want := range []string{
		"Invalid command",
		"Invalid move: That piece cannot move from E2 to E5.",
		"Invalid move: The piece on E7 is not yours.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(g.History()) != 0 {
		t.Fatalf("rejected input changed history")
	}
}

func TestPlayHumanMatesComputer(t *testing.T) {
	g := restored(t, chess.White,
		place("G1", chess.King, chess.White),
		place("A1", chess.Rook, chess.White),
		place("H8", chess.King, chess.Black),
		place("G7", chess.Pawn, chess.Black),
		place("H7", chess.Pawn, chess.Black),
	)
	res, out := runSession(t, g, "a1-a8\n", Options{})
	if res.Ending != EndingCheckmate || !res.HumanWon || res.Delta != MateBonus {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(out, "Checkmate. Game ended.") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestPlayStalemateScoredByDrawPolicy(t *testing.T) {
	setup := func() *chess.Game {
		return restored(t, chess.White,
			place("C7", chess.King, chess.White),
			place("B5", chess.Queen, chess.White),
			place("A8", chess.King, chess.Black),
		)
	}
	res, out := runSession(t, setup(), "B5-B6\n", Options{})
	if res.Ending != EndingDraw || res.Delta != DrawBonus {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(out, "Draw (computer resign).") {
		t.Fatalf("output:\n%s", out)
	}

	res, _ = runSession(t, setup(), "B5-B6\n", Options{Draw: DrawNeutral})
	if res.Delta != 0 {
		t.Fatalf("neutral draw delta = %d", res.Delta)
	}
}

func TestPlayPromotionPrompt(t *testing.T) {
	g := restored(t, chess.White,
		place("E1", chess.King, chess.White),
		place("A7", chess.Pawn, chess.White),
		place("H5", chess.King, chess.Black),
	)
	_, out := runSession(t, g, "A7-A8\nn\nleave\n", Options{})
	if !strings.Contains(out, "Promote pawn to (Q/R/B/N): ") {
		t.Fatalf("no promotion prompt:\n%s", out)
	}
	h := g.History()
	if len(h) < 1 || h[0].Promotion != chess.Knight {
		t.Fatalf("history = %v", h)
	}
	if len(h) != 2 || h[1].Color != chess.Black {
		t.Fatalf("computer should have replied once: %v", h)
	}
}

type stubImager struct{ calls int }

func (s *stubImager) WritePNG(w io.Writer, _ *chess.Board, _ *chess.Move) error {
	s.calls++
	_, err := w.Write([]byte("png"))
	return err
}

func TestPlayWritesBoardImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.png")
	img := &stubImager{}
	_, out := runSession(t, startedGame(t), "png "+path+"\nleave\n", Options{Images: img})
	if img.calls != 1 {
		t.Fatalf("imager calls = %d", img.calls)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png" {
		t.Fatalf("file = %q, %v", data, err)
	}
	if !strings.Contains(out, "Board written to") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestPlayStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := New(startedGame(t), chess.White, Options{In: strings.NewReader(""), Out: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Play(ctx)
	if !errors.Is(err, context.Canceled) || res.Ending != EndingLeft {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
