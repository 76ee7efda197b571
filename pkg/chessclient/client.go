package chessclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-chess/pkg/chessdto"
)

// HeaderProvider allows injecting per-request headers.
type HeaderProvider func() map[string]string

// APIError is a non-2xx answer from the chess server.
type APIError struct {
	Status int
	chessdto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chess api: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func gamePath(id int64, suffix string) string {
	return "/games/" + strconv.FormatInt(id, 10) + suffix
}

func (c *Client) StartGame(ctx context.Context, player, color string) (*chessdto.GameState, error) {
	var out chessdto.GameState
	req := chessdto.StartGameRequest{Player: player, Color: color}
	if _, err := c.do(ctx, fasthttp.MethodPost, "/games", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Game(ctx context.Context, id int64) (*chessdto.GameState, error) {
	var out chessdto.GameState
	if _, err := c.do(ctx, fasthttp.MethodGet, gamePath(id, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Move(ctx context.Context, id int64, from, to, promotion string) (*chessdto.MoveSummary, error) {
	var out chessdto.MoveSummary
	req := chessdto.MoveRequest{From: from, To: to, Promotion: promotion}
	if _, err := c.do(ctx, fasthttp.MethodPost, gamePath(id, "/moves"), req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Resign(ctx context.Context, id int64) (*chessdto.GameState, error) {
	var out chessdto.GameState
	if _, err := c.do(ctx, fasthttp.MethodPost, gamePath(id, "/resign"), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// BoardPNG fetches the rendered board image.
func (c *Client) BoardPNG(ctx context.Context, id int64) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, gamePath(id, "/board.png"), nil, nil, true)
}

func (c *Client) Games(ctx context.Context, player string) ([]chessdto.GameState, error) {
	var out []chessdto.GameState
	if _, err := c.do(ctx, fasthttp.MethodGet, "/players/"+player+"/games", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Results(ctx context.Context, player string) (*chessdto.ResultsResponse, error) {
	var out chessdto.ResultsResponse
	if _, err := c.do(ctx, fasthttp.MethodGet, "/players/"+player+"/results", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Leaderboard(ctx context.Context) ([]chessdto.LeaderboardEntry, error) {
	var out []chessdto.LeaderboardEntry
	if _, err := c.do(ctx, fasthttp.MethodGet, "/leaderboard", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// do sends one request and decodes a JSON answer into out when out is set.
// It returns the raw body so binary endpoints can use it.
func (c *Client) do(ctx context.Context, method, path string, in any, out any, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = max(c.retryMax, 1)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			if json.Unmarshal(resp.Body(), &apiErr.DomainError) != nil {
				apiErr.Message = truncate(string(resp.Body()), 512)
			}
			if !shouldRetryStatus(status) && !apiErr.Retryable {
				return nil, apiErr
			}
			lastErr = apiErr
		} else {
			body := append([]byte(nil), resp.Body()...)
			if out != nil {
				if err := json.Unmarshal(body, out); err != nil {
					return nil, fmt.Errorf("decode response: %w", err)
				}
			}
			return body, nil
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
