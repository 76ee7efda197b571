package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"math/rand/v2"
	"net"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-chess/internal/account"
	"github.com/park285/cheese-chess/internal/gamestore"
	"github.com/park285/cheese-chess/internal/render"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/pkg/chessclient"
)

type fixture struct {
	srv      *Server
	client   *chessclient.Client
	accounts *account.Service
	results  results.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := gamestore.OpenRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	accounts, err := account.NewService(account.NewMemoryRepository(), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	res := results.NewMemoryRepository()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv, err := New(Options{
		Store:    gamestore.NewRedisStore(rdb, time.Hour, nil),
		Renderer: render.NewRenderer(24),
		Accounts: accounts,
		Results:  res,
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Now:      func() time.Time { now = now.Add(time.Minute); return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	client := chessclient.NewClient("http://chess.test",
		chessclient.WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		chessclient.WithRetry(1),
	)
	return &fixture{srv: srv, client: client, accounts: accounts, results: res}
}

func apiStatus(t *testing.T, err error) *chessclient.APIError {
	t.Helper()
	var apiErr *chessclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	return apiErr
}

func TestStartAndMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.client.StartGame(ctx, " Ann@Example.com ", "")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if st.White != "ann@example.com" || st.Black != gamestore.ComputerName {
		t.Fatalf("players = %q / %q", st.White, st.Black)
	}
	if st.Turn != "WHITE" || st.Status != "IN_PROGRESS" || len(st.Board) != 32 {
		t.Fatalf("state = %+v", st)
	}

	sum, err := f.client.Move(ctx, st.ID, "e2", "e4", "")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if sum.Player != "WHITE: E2->E4" || !strings.HasPrefix(sum.Computer, "BLACK: ") {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Finished || len(sum.State.Moves) != 2 || sum.State.Turn != "WHITE" {
		t.Fatalf("state after move = %+v", sum.State)
	}

	again, err := f.client.Game(ctx, st.ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if len(again.Moves) != 2 || again.Moves[0] != "WHITE: E2->E4" {
		t.Fatalf("stored moves = %v", again.Moves)
	}
}

func TestStartAsBlackComputerOpens(t *testing.T) {
	f := newFixture(t)
	st, err := f.client.StartGame(context.Background(), "bob", "black")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if st.Black != "bob" || st.Turn != "BLACK" || len(st.Moves) != 1 {
		t.Fatalf("state = %+v", st)
	}
	if !strings.HasPrefix(st.Moves[0], "WHITE: ") {
		t.Fatalf("opening move = %q", st.Moves[0])
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.StartGame(ctx, "ann", "green")
	if e := apiStatus(t, err); e.Status != fasthttp.StatusBadRequest || e.Code != "bad_color" {
		t.Fatalf("bad color err = %+v", e)
	}
	_, err = f.client.StartGame(ctx, "  ", "white")
	if e := apiStatus(t, err); e.Code != "player_required" {
		t.Fatalf("empty player err = %+v", e)
	}
	_, err = f.client.StartGame(ctx, "computer", "white")
	if e := apiStatus(t, err); e.Code != "player_required" {
		t.Fatalf("computer player err = %+v", e)
	}
}

func TestMoveErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, err := f.client.StartGame(ctx, "ann", "white")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	cases := []struct {
		from, to string
		status   int
		code     string
	}{
		{"E2", "E5", fasthttp.StatusUnprocessableEntity, "not_in_move_set"},
		{"E7", "E5", fasthttp.StatusUnprocessableEntity, "wrong_color"},
		{"E4", "E5", fasthttp.StatusUnprocessableEntity, "no_piece"},
		{"Z9", "E5", fasthttp.StatusUnprocessableEntity, "out_of_bounds"},
		{"E", "E5", fasthttp.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		t.Run(tc.from+"-"+tc.to, func(t *testing.T) {
			_, err := f.client.Move(ctx, st.ID, tc.from, tc.to, "")
			e := apiStatus(t, err)
			if e.Status != tc.status || e.Code != tc.code || e.Message == "" {
				t.Fatalf("err = %+v, want %d %s", e, tc.status, tc.code)
			}
		})
	}

	_, err = f.client.Move(ctx, 999, "E2", "E4", "")
	if e := apiStatus(t, err); e.Status != fasthttp.StatusNotFound || e.Code != "not_found" {
		t.Fatalf("missing game err = %+v", e)
	}
	after, err := f.client.Game(ctx, st.ID)
	if err != nil || len(after.Moves) != 0 {
		t.Fatalf("rejected moves changed the game: %+v, %v", after, err)
	}
}

func TestResignSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.accounts.Register(ctx, "ann@example.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	st, err := f.client.StartGame(ctx, "ann@example.com", "white")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	acc, _ := f.accounts.Get(ctx, "ann@example.com")
	if !acc.HasGame(st.ID) {
		t.Fatalf("account games = %v", acc.Games)
	}
	active, err := f.client.Games(ctx, "ann@example.com")
	if err != nil || len(active) != 1 {
		t.Fatalf("Games = %v, %v", active, err)
	}

	done, err := f.client.Resign(ctx, st.ID)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if done.Status != "RESIGNED" || done.Winner != "BLACK" || done.Method != "resignation" {
		t.Fatalf("state = %+v", done)
	}

	acc, _ = f.accounts.Get(ctx, "ann@example.com")
	if acc.Points != -150 || acc.HasGame(st.ID) {
		t.Fatalf("account = %+v", acc)
	}
	res, err := f.client.Results(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("results = %+v", res)
	}
	if r := res.Results[0]; r.Result != "loss" || r.ResultMethod != "resignation" || r.PointsDelta != -150 || r.DurationMS <= 0 {
		t.Fatalf("result = %+v", r)
	}
	active, err = f.client.Games(ctx, "ann@example.com")
	if err != nil || len(active) != 0 {
		t.Fatalf("finished game still listed: %v, %v", active, err)
	}

	board, err := f.client.Leaderboard(ctx)
	if err != nil || len(board) != 1 || board[0].Email != "ann@example.com" || board[0].Points != -150 {
		t.Fatalf("Leaderboard = %+v, %v", board, err)
	}

	_, err = f.client.Resign(ctx, st.ID)
	if e := apiStatus(t, err); e.Status != fasthttp.StatusConflict || e.Code != "game_over" {
		t.Fatalf("second resign err = %+v", e)
	}
	_, err = f.client.Move(ctx, st.ID, "E2", "E4", "")
	if e := apiStatus(t, err); e.Code != "game_over" {
		t.Fatalf("move after resign err = %+v", e)
	}
}

func TestResignWithoutAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, err := f.client.StartGame(ctx, "guest", "black")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if _, err := f.client.Resign(ctx, st.ID); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	list, err := f.results.RecentResults(ctx, "guest", 5)
	if err != nil || len(list) != 1 || list[0].PlayerColor != "BLACK" {
		t.Fatalf("results = %+v, %v", list, err)
	}
}

func TestBoardPNG(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, err := f.client.StartGame(ctx, "ann", "black")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	raw, err := f.client.BoardPNG(ctx, st.ID)
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() < 8*24 {
		t.Fatalf("image too small: %v", img.Bounds())
	}
	if _, err := f.client.BoardPNG(ctx, 4242); apiStatus(t, err).Status != fasthttp.StatusNotFound {
		t.Fatalf("missing board err = %v", err)
	}
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		method, path string
		status       int
	}{
		{fasthttp.MethodGet, "/healthz", fasthttp.StatusOK},
		{fasthttp.MethodGet, "/nowhere", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/games/abc", fasthttp.StatusBadRequest},
		{fasthttp.MethodDelete, "/games/1", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/players/ann/results", fasthttp.StatusOK},
		{fasthttp.MethodGet, "/players/ann/stats", fasthttp.StatusNotFound},
	}
	for _, tc := range cases {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod(tc.method)
		ctx.Request.SetRequestURI(tc.path)
		f.srv.Handler(&ctx)
		if got := ctx.Response.StatusCode(); got != tc.status {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, got, tc.status)
		}
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without store")
	}
}
