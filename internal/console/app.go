// Package console is the menu-driven front end of the console program:
// accounts, the active game list and the hand-off to a play session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/account"
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/domain"
	"github.com/park285/cheese-chess/internal/gamestore"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/internal/session"
)

type Options struct {
	In       io.Reader
	Out      io.Writer
	Accounts *account.Service
	Games    *gamestore.FileStore
	Results  results.Repository // optional
	Catalog  *msgcat.Catalog
	Logger   *zap.Logger
	Rand     *rand.Rand
	Draw     session.DrawPolicy
	Images   session.BoardImager
	Now      func() time.Time
}

// App runs the auth and main menus until the user exits or input ends.
type App struct {
	in       *bufio.Reader
	out      io.Writer
	accounts *account.Service
	games    *gamestore.FileStore
	results  results.Repository
	cat      *msgcat.Catalog
	logger   *zap.Logger
	rng      *rand.Rand
	draw     session.DrawPolicy
	images   session.BoardImager
	now      func() time.Time

	user *domain.Account
}

func New(opts Options) (*App, error) {
	if opts.Accounts == nil || opts.Games == nil {
		return nil, errors.New("console: accounts and game store are required")
	}
	a := &App{
		in:       bufio.NewReader(opts.In),
		out:      opts.Out,
		accounts: opts.Accounts,
		games:    opts.Games,
		results:  opts.Results,
		cat:      opts.Catalog,
		logger:   opts.Logger,
		rng:      opts.Rand,
		draw:     opts.Draw,
		images:   opts.Images,
		now:      opts.Now,
	}
	if opts.In == nil {
		a.in = bufio.NewReader(os.Stdin)
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.cat == nil {
		cat, err := msgcat.New("")
		if err != nil {
			return nil, err
		}
		a.cat = cat
	}
	return a, nil
}

func (a *App) say(key string, data any) {
	fmt.Fprintln(a.out, a.cat.Text(key, data))
}

// readLine prints the prompt text for key and reads one line. ok is false
// once input is exhausted.
func (a *App) readLine(key string) (string, bool) {
	fmt.Fprint(a.out, a.cat.Text(key, nil))
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// readMenu reads a menu choice. The words login, new and exit stand for
// 1, 2 and 3; anything unparsable is -1.
func (a *App) readMenu() (int, bool) {
	line, ok := a.readLine("session.prompt")
	if !ok {
		return 0, false
	}
	s := strings.ToLower(strings.TrimSpace(line))
	switch s {
	case "login":
		return 1, true
	case "new":
		return 2, true
	case "exit":
		return 3, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, true
	}
	return n, true
}

// Run loops over the menus until the user exits, input runs out or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.user == nil {
			if !a.authLoop(ctx) {
				return nil
			}
			continue
		}
		fmt.Fprint(a.out, a.cat.Text("menu.main", nil))
		opt, ok := a.readMenu()
		if !ok {
			return nil
		}
		var err error
		switch opt {
		case 1:
			err = a.newGame(ctx)
		case 2:
			err = a.activeGames(ctx)
		case 3:
			a.logger.Info("account_logout", zap.String("email", a.user.Email))
			a.user = nil
		default:
			a.say("menu.invalid_option", nil)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("menu_action_error", zap.Error(err))
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
}

// authLoop runs until a user is logged in. It reports false when the user
// chose to exit or input ended.
func (a *App) authLoop(ctx context.Context) bool {
	for a.user == nil {
		fmt.Fprint(a.out, a.cat.Text("menu.auth", nil))
		c, ok := a.readMenu()
		if !ok || c == 3 {
			return false
		}
		email, ok := a.readLine("menu.email")
		if !ok {
			return false
		}
		password, ok := a.readLine("menu.password")
		if !ok {
			return false
		}
		switch c {
		case 1:
			acc, err := a.accounts.Login(ctx, email, password)
			if err != nil {
				a.logger.Debug("account_login_failed", zap.Error(err))
				a.say("menu.bad_credentials", nil)
				continue
			}
			a.user = acc
		case 2:
			acc, err := a.accounts.Register(ctx, email, password)
			if err != nil {
				a.logger.Debug("account_register_failed", zap.Error(err))
				a.say("menu.create_failed", nil)
				continue
			}
			a.user = acc
		default:
			a.say("menu.invalid_option", nil)
		}
	}
	return true
}

func (a *App) refreshUser(ctx context.Context) error {
	acc, err := a.accounts.Get(ctx, a.user.Email)
	if err != nil {
		return err
	}
	a.user = acc
	return nil
}

func (a *App) newGame(ctx context.Context) error {
	alias, ok := a.readLine("menu.alias")
	if !ok {
		return nil
	}
	alias = strings.TrimSpace(alias)
	if alias == "" || strings.EqualFold(alias, gamestore.ComputerName) {
		alias = a.user.Email
	}
	a.say("menu.choose_color", nil)
	choice, ok := a.readMenu()
	if !ok {
		return nil
	}
	human := chess.White
	if choice == 2 {
		human = chess.Black
	}

	id, err := a.games.NextID(ctx)
	if err != nil {
		return err
	}
	whiteName, blackName := alias, gamestore.ComputerName
	if human == chess.Black {
		whiteName, blackName = gamestore.ComputerName, alias
	}
	g, err := chess.NewGame(id, chess.NewPlayer(whiteName, chess.White), chess.NewPlayer(blackName, chess.Black))
	if err != nil {
		return err
	}
	g.Start()

	rec := gamestore.Encode(g)
	rec.StartedAt = a.now()
	if err := a.games.SaveOrUpdate(ctx, rec); err != nil {
		return err
	}
	if a.user, err = a.accounts.AddGame(ctx, a.user.Email, id); err != nil {
		return err
	}
	a.logger.Info("game_started", zap.Int64("game_id", id), zap.String("email", a.user.Email), zap.Stringer("color", human))
	return a.play(ctx, &rec, g, human)
}

// play hands the game to a console session and stores what it left behind:
// an unfinished game is saved, a finished one is scored, archived and
// dropped from the account and the store.
func (a *App) play(ctx context.Context, rec *gamestore.Record, g *chess.Game, human chess.Color) error {
	s, err := session.New(g, human, session.Options{
		In:      lineReader{a.in},
		Out:     a.out,
		Catalog: a.cat,
		Logger:  a.logger,
		Rand:    a.rng,
		Draw:    a.draw,
		Images:  a.images,
	})
	if err != nil {
		return err
	}
	res, playErr := s.Play(ctx)
	rec.Apply(g)

	// Saving uses a fresh context so a cancelled session still persists.
	saveCtx := context.WithoutCancel(ctx)
	if !res.Ending.Finished() {
		if err := a.games.SaveOrUpdate(saveCtx, *rec); err != nil {
			return errors.Join(playErr, err)
		}
		return playErr
	}

	before := a.user.Points
	if a.results != nil {
		sum := results.Summarize(g, a.user.Email, human, res.Delta, rec.StartedAt, a.now())
		if _, err := a.results.InsertResult(saveCtx, sum); err != nil {
			a.logger.Warn("result_archive_error", zap.Int64("game_id", g.ID), zap.Error(err))
		}
	}
	if _, err := a.accounts.ApplyPoints(saveCtx, a.user.Email, res.Delta); err != nil {
		return err
	}
	if a.user, err = a.accounts.RemoveGame(saveCtx, a.user.Email, g.ID); err != nil {
		return err
	}
	if err := a.games.Delete(saveCtx, g.ID); err != nil {
		return err
	}
	a.say("session.points", map[string]int{"Before": before, "After": a.user.Points})
	return playErr
}

func (a *App) activeGames(ctx context.Context) error {
	if err := a.refreshUser(ctx); err != nil {
		return err
	}
	var list []gamestore.Record
	for _, id := range a.user.Games {
		rec, err := a.games.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec != nil {
			list = append(list, *rec)
		}
	}
	if len(list) == 0 {
		a.say("menu.no_games", nil)
		return nil
	}

	a.say("menu.games_header", nil)
	for _, rec := range list {
		a.say("menu.game_line", map[string]any{"ID": rec.ID, "Turn": rec.CurrentPlayerColor.String()})
	}
	fmt.Fprint(a.out, a.cat.Text("menu.games", nil))
	opt, ok := a.readMenu()
	if !ok {
		return nil
	}
	line, ok := a.readLine("menu.game_id")
	if !ok {
		return nil
	}
	id, _ := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	var rec *gamestore.Record
	for i := range list {
		if list[i].ID == id {
			rec = &list[i]
			break
		}
	}
	if rec == nil {
		a.say("menu.no_such_game", nil)
		return nil
	}

	switch opt {
	case 1:
		g, err := gamestore.Decode(*rec)
		if err != nil {
			return err
		}
		fmt.Fprint(a.out, g.Board().Render())
		a.say("session.moves_header", nil)
		for _, m := range g.History() {
			a.say("session.move_line", map[string]string{"Move": m.String()})
		}
	case 2:
		g, err := gamestore.Decode(*rec)
		if err != nil {
			return err
		}
		human, ok := rec.HumanColor()
		if !ok {
			return fmt.Errorf("game %d has no single human player", rec.ID)
		}
		a.logger.Info("game_resumed", zap.Int64("game_id", rec.ID))
		return a.play(ctx, rec, g, human)
	case 3:
		var err error
		if a.user, err = a.accounts.RemoveGame(ctx, a.user.Email, rec.ID); err != nil {
			return err
		}
		if err := a.games.Delete(ctx, rec.ID); err != nil {
			return err
		}
		a.say("menu.deleted", nil)
	default:
		a.say("menu.invalid_option", nil)
	}
	return nil
}

// lineReader hands out at most one line per Read so a scanner built on it
// never buffers input meant for the menus.
type lineReader struct{ r *bufio.Reader }

func (l lineReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := l.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
		n++
		if b == '\n' {
			break
		}
	}
	return n, nil
}
