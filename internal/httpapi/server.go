package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/account"
	"github.com/park285/cheese-chess/internal/gamestore"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/render"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

// GameStore is the live game storage. Update must apply fn atomically.
type GameStore interface {
	NextID(ctx context.Context) (int64, error)
	Save(ctx context.Context, r gamestore.Record) error
	Get(ctx context.Context, id int64) (*gamestore.Record, error)
	Update(ctx context.Context, id int64, fn func(*gamestore.Record) error) (*gamestore.Record, error)
	ListByUser(ctx context.Context, user string) ([]gamestore.Record, error)
}

type Options struct {
	Store    GameStore
	Catalog  *msgcat.Catalog
	Renderer *render.Renderer
	Accounts *account.Service  // optional; finished games credit known accounts
	Results  results.Repository // optional; finished games are archived
	Rand     *rand.Rand
	Draw     session.DrawPolicy
	Logger   *zap.Logger
	Now      func() time.Time
	History  int
}

// Server serves the game API over fasthttp.
type Server struct {
	store    GameStore
	cat      *msgcat.Catalog
	renderer *render.Renderer
	accounts *account.Service
	results  results.Repository
	draw     session.DrawPolicy
	logger   *zap.Logger
	now      func() time.Time
	history  int

	rngMu sync.Mutex
	rng   *rand.Rand

	srv *fasthttp.Server
}

func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("game store is required")
	}
	s := &Server{
		store:    opts.Store,
		cat:      opts.Catalog,
		renderer: opts.Renderer,
		accounts: opts.Accounts,
		results:  opts.Results,
		draw:     opts.Draw,
		logger:   opts.Logger,
		now:      opts.Now,
		history:  opts.History,
		rng:      opts.Rand,
	}
	if s.cat == nil {
		cat, err := msgcat.New("")
		if err != nil {
			return nil, err
		}
		s.cat = cat
	}
	if s.renderer == nil {
		s.renderer = render.NewRenderer(render.DefaultSquareSize)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.history <= 0 {
		s.history = 10
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "cheese-chess",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s, nil
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// ListenAndServe serves addr until ctx is done, then shuts down gracefully
// within grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe(addr) }()
	s.logger.Info("http_listen", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.srv.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) Shutdown() error { return s.srv.Shutdown() }

// Handler routes one request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	defer func() {
		s.logger.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")
	method := string(ctx.Method())

	switch {
	case len(parts) == 1 && parts[0] == "healthz" && method == fasthttp.MethodGet:
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case len(parts) == 1 && parts[0] == "games" && method == fasthttp.MethodPost:
		s.handleStart(ctx)
	case len(parts) == 1 && parts[0] == "leaderboard" && method == fasthttp.MethodGet:
		s.handleLeaderboard(ctx)
	case len(parts) >= 2 && parts[0] == "games":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", s.cat.Text("api.bad_request", map[string]any{"Error": "bad game id"}), false)
			return
		}
		switch {
		case len(parts) == 2 && method == fasthttp.MethodGet:
			s.handleGet(ctx, id)
		case len(parts) == 3 && parts[2] == "moves" && method == fasthttp.MethodPost:
			s.handleMove(ctx, id)
		case len(parts) == 3 && parts[2] == "resign" && method == fasthttp.MethodPost:
			s.handleResign(ctx, id)
		case len(parts) == 3 && parts[2] == "board.png" && method == fasthttp.MethodGet:
			s.handleBoard(ctx, id)
		default:
			s.notRouted(ctx)
		}
	case len(parts) == 3 && parts[0] == "players" && method == fasthttp.MethodGet:
		switch parts[2] {
		case "games":
			s.handlePlayerGames(ctx, parts[1])
		case "results":
			s.handlePlayerResults(ctx, parts[1])
		default:
			s.notRouted(ctx)
		}
	default:
		s.notRouted(ctx)
	}
}

func (s *Server) notRouted(ctx *fasthttp.RequestCtx) {
	s.writeError(ctx, fasthttp.StatusNotFound, "no_route", "no route for "+string(ctx.Method())+" "+string(ctx.Path()), false)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("http_encode_error", zap.Error(err))
		ctx.Error(s.cat.Text("api.internal", nil), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, code, message string, retryable bool) {
	s.writeJSON(ctx, status, chessdto.DomainError{Code: code, Message: message, Retryable: retryable})
}

// withRand runs fn holding the shared generator.
func (s *Server) withRand(fn func(r *rand.Rand) error) error {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return fn(s.rng)
}

var errNoHuman = errors.New("game has no human player")
