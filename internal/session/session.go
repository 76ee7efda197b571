package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/msgcat"
)

// BoardImager writes a picture of the board. The last move may be nil.
type BoardImager interface {
	WritePNG(w io.Writer, b *chess.Board, last *chess.Move) error
}

// Options configures a console session. Nil fields get usable defaults.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Catalog *msgcat.Catalog
	Logger  *zap.Logger
	Rand    *rand.Rand
	Draw    DrawPolicy
	Images  BoardImager
}

// Result is what Play reports once the session stops.
type Result struct {
	Ending   Ending
	Outcome  chess.Outcome
	HumanWon bool
	Delta    int
}

// Session runs one human-versus-computer game on a text console.
type Session struct {
	game     *chess.Game
	human    *chess.Player
	computer *chess.Player

	in     *bufio.Scanner
	out    io.Writer
	cat    *msgcat.Catalog
	logger *zap.Logger
	rng    *rand.Rand
	draw   DrawPolicy
	images BoardImager
}

// New attaches a session to g with the human playing humanColor. g must be
// started or resumed.
func New(g *chess.Game, humanColor chess.Color, opts Options) (*Session, error) {
	if g == nil {
		return nil, errors.New("session: nil game")
	}
	if !humanColor.Valid() {
		return nil, fmt.Errorf("session: invalid human color %v", humanColor)
	}
	s := &Session{
		game:     g,
		human:    g.PlayerFor(humanColor),
		computer: g.PlayerFor(humanColor.Opponent()),
		in:       bufio.NewScanner(opts.In),
		out:      opts.Out,
		cat:      opts.Catalog,
		logger:   opts.Logger,
		rng:      opts.Rand,
		draw:     opts.Draw,
		images:   opts.Images,
	}
	if opts.In == nil {
		s.in = bufio.NewScanner(os.Stdin)
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.cat == nil {
		cat, err := msgcat.New("")
		if err != nil {
			return nil, err
		}
		s.cat = cat
	}
	return s, nil
}

// Human is the player the console user controls.
func (s *Session) Human() *chess.Player { return s.human }

func (s *Session) say(key string, data any) {
	fmt.Fprintln(s.out, s.cat.Text(key, data))
}

func (s *Session) prompt(key string) (string, bool) {
	fmt.Fprint(s.out, s.cat.Text(key, nil))
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

// Play runs the loop until the game ends, the human leaves, input runs out
// or ctx is cancelled. A cancelled context is reported as leaving.
func (s *Session) Play(ctx context.Context) (Result, error) {
	g := s.game
	log := s.logger.With(zap.Int64("game_id", g.ID), zap.String("human", s.human.Name))
	s.say("session.banner", nil)

	for {
		if err := ctx.Err(); err != nil {
			return Result{Ending: EndingLeft, Outcome: g.Outcome()}, err
		}
		fmt.Fprint(s.out, g.Board().Render())
		s.say("session.board_turn", map[string]string{"Turn": g.Turn().String()})

		switch out := g.Evaluate(); out.Status {
		case chess.StatusDraw:
			if s.draw == DrawNeutral {
				s.say("session.draw_neutral", nil)
			} else {
				s.say("session.draw", nil)
			}
			return s.finish(log, EndingDraw), nil
		case chess.StatusCheckmate:
			s.say("session.checkmate", nil)
			return s.finish(log, EndingCheckmate), nil
		case chess.StatusResigned:
			return s.finish(log, EndingResigned), nil
		}

		if g.Turn() != s.human.Color {
			mv, err := g.MakeRandomMoveFor(s.computer, s.rng)
			if chess.ReasonOf(err) == chess.ReasonNoLegalMove {
				s.say("session.computer_stuck", nil)
				g.ApplyOutcome(chess.Outcome{Status: chess.StatusDraw, Method: chess.MethodStalemate})
				return s.finish(log, EndingDraw), nil
			}
			if err != nil {
				return Result{Ending: EndingLeft, Outcome: g.Outcome()}, fmt.Errorf("computer move: %w", err)
			}
			log.Debug("game_move", zap.String("move", mv.String()))
			s.say("session.computer_move", map[string]string{"From": mv.From.String(), "To": mv.To.String()})
			continue
		}

		line, ok := s.prompt("session.prompt")
		if !ok {
			return s.leave(log), nil
		}
		if done, res := s.handle(log, strings.TrimSpace(line)); done {
			return res, nil
		}
	}
}

// handle processes one line of human input; done is set when the session ends.
func (s *Session) handle(log *zap.Logger, cmd string) (bool, Result) {
	g := s.game
	lower := strings.ToLower(cmd)
	switch {
	case lower == "leave":
		return true, s.leave(log)
	case lower == "resign":
		if err := g.Resign(s.human.Color); err != nil {
			s.say("session.invalid_move", map[string]string{"Text": DescribeMoveError(s.cat, err)})
			return false, Result{}
		}
		s.say("session.resigned", nil)
		return true, s.finish(log, EndingResigned)
	case lower == "moves":
		s.say("session.moves_header", nil)
		for _, m := range g.History() {
			s.say("session.move_line", map[string]string{"Move": m.String()})
		}
		return false, Result{}
	case strings.HasPrefix(lower, "png "):
		s.writeImage(strings.TrimSpace(cmd[4:]))
		return false, Result{}
	}

	from, to, err := ParseMove(cmd)
	if err != nil {
		s.say("session.invalid_command", nil)
		return false, Result{}
	}
	promo := chess.Queen
	if g.Board().RequiresPromotion(from, to) {
		answer, _ := s.prompt("session.promotion_prompt")
		promo = ParsePromotion(answer)
	}
	mv, err := g.TryMove(s.human, from, to, promo)
	if err != nil {
		if errors.Is(err, chess.ErrInvalidMove) {
			s.say("session.invalid_move", map[string]string{"Text": DescribeMoveError(s.cat, err)})
		} else {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		return false, Result{}
	}
	log.Debug("game_move", zap.String("move", mv.String()))
	return false, Result{}
}

func (s *Session) writeImage(path string) {
	if s.images == nil {
		s.say("session.no_renderer", nil)
		return
	}
	var last *chess.Move
	if h := s.game.History(); len(h) > 0 {
		last = &h[len(h)-1]
	}
	err := writeFile(path, func(w io.Writer) error {
		return s.images.WritePNG(w, s.game.Board(), last)
	})
	if err != nil {
		s.say("session.png_failed", map[string]string{"Error": err.Error()})
		return
	}
	s.say("session.png_saved", map[string]string{"Path": path})
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Session) leave(log *zap.Logger) Result {
	log.Info("game_left", zap.Int("plies", len(s.game.History())))
	s.say("session.left", map[string]any{"ID": s.game.ID})
	return Result{Ending: EndingLeft, Outcome: s.game.Outcome()}
}

func (s *Session) finish(log *zap.Logger, e Ending) Result {
	out := s.game.Outcome()
	won := out.Winner == s.human.Color
	res := Result{
		Ending:   e,
		Outcome:  out,
		HumanWon: won,
		Delta:    Settlement(e, won, s.human.Points(), s.draw),
	}
	log.Info("game_finished",
		zap.String("ending", e.String()),
		zap.String("method", string(out.Method)),
		zap.Bool("human_won", won),
		zap.Int("delta", res.Delta),
	)
	return res
}
