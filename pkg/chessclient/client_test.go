package chessclient

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, h fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	opts = append([]Option{WithDial(func(string) (net.Conn, error) { return ln.Dial() })}, opts...)
	return NewClient("http://chess.test/", opts...)
}

func TestHeaderProviderSetsHeaders(t *testing.T) {
	var got atomic.Value
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		got.Store(string(ctx.Request.Header.Peek("X-Player")))
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`[]`)
	}, WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Player": "ann", " ": "skipped"}
	}))

	if _, err := c.Leaderboard(context.Background()); err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if got.Load() != "ann" {
		t.Fatalf("X-Player = %v", got.Load())
	}
}

func TestTimeoutBoundsRequest(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		time.Sleep(500 * time.Millisecond)
		ctx.SetBodyString(`{}`)
	}, WithTimeout(50*time.Millisecond), WithRetry(1))

	start := time.Now()
	_, err := c.Game(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("request took %v", elapsed)
	}
}

func TestRetriesServerErrorsOnReads(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetBodyString(`{"id":7,"turn":"WHITE"}`)
	}, WithRetry(2))

	st, err := c.Game(context.Background(), 7)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if st.ID != 7 || calls.Load() != 2 {
		t.Fatalf("id=%d calls=%d", st.ID, calls.Load())
	}
}

func TestMovesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString(`{"code":"busy","message":"try later"}`)
	}, WithRetry(3))

	_, err := c.Move(context.Background(), 1, "E2", "E4", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "busy" || apiErr.Status != fasthttp.StatusServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}
