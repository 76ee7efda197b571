package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/account"
	"github.com/park285/cheese-chess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/gamestore"
	"github.com/park285/cheese-chess/internal/render"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

func normalizePlayer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx) {
	var req chessdto.StartGameRequest
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", s.cat.Text("api.bad_request", map[string]any{"Error": err.Error()}), false)
			return
		}
	}
	name := normalizePlayer(req.Player)
	if name == "" || name == gamestore.ComputerName {
		s.writeError(ctx, fasthttp.StatusBadRequest, "player_required", s.cat.Text("api.player_required", nil), false)
		return
	}
	human := chess.White
	if strings.TrimSpace(req.Color) != "" {
		c, err := chess.ParseColor(req.Color)
		if err != nil {
			s.writeError(ctx, fasthttp.StatusBadRequest, "bad_color", s.cat.Text("api.bad_color", map[string]any{"Color": req.Color}), false)
			return
		}
		human = c
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		s.internalError(ctx, "game_id_error", err)
		return
	}
	whiteName, blackName := name, gamestore.ComputerName
	if human == chess.Black {
		whiteName, blackName = gamestore.ComputerName, name
	}
	g, err := chess.NewGame(id, chess.NewPlayer(whiteName, chess.White), chess.NewPlayer(blackName, chess.Black))
	if err != nil {
		s.internalError(ctx, "game_create_error", err)
		return
	}
	g.Start()
	if human == chess.Black {
		err := s.withRand(func(r *rand.Rand) error {
			_, err := g.MakeRandomMoveFor(g.White(), r)
			return err
		})
		if err != nil {
			s.internalError(ctx, "computer_move_error", err)
			return
		}
	}

	rec := gamestore.Encode(g)
	rec.StartedAt = s.now()
	if err := s.store.Save(ctx, rec); err != nil {
		s.internalError(ctx, "game_save_error", err)
		return
	}
	if s.accounts != nil {
		if _, err := s.accounts.AddGame(ctx, name, id); err != nil && !errors.Is(err, account.ErrAccountNotFound) {
			s.logger.Warn("account_add_game_error", zap.Int64("game_id", id), zap.Error(err))
		}
	}
	s.logger.Info("game_started", zap.Int64("game_id", id), zap.String("player", name), zap.Stringer("color", human))
	s.writeJSON(ctx, fasthttp.StatusCreated, chesspresenter.ToDTOState(g))
}

// loadGame fetches and decodes game id, writing the error response itself
// when it fails.
func (s *Server) loadGame(ctx *fasthttp.RequestCtx, id int64) (*gamestore.Record, *chess.Game, bool) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		s.internalError(ctx, "game_load_error", err)
		return nil, nil, false
	}
	if rec == nil {
		s.writeGameError(ctx, id, gamestore.ErrNotFound)
		return nil, nil, false
	}
	g, err := gamestore.Decode(*rec)
	if err != nil {
		s.internalError(ctx, "game_decode_error", err)
		return nil, nil, false
	}
	return rec, g, true
}

func (s *Server) handleGet(ctx *fasthttp.RequestCtx, id int64) {
	if _, g, ok := s.loadGame(ctx, id); ok {
		s.writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToDTOState(g))
	}
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, id int64) {
	_, g, ok := s.loadGame(ctx, id)
	if !ok {
		return
	}
	opts := render.Options{
		Header: "Game #" + strconv.FormatInt(id, 10),
		Turn:   g.Turn().String(),
	}
	if h := g.History(); len(h) > 0 {
		opts.Last = &h[len(h)-1]
	}
	png, err := s.renderer.RenderPNG(ctx, g.Board(), opts)
	if err != nil {
		s.internalError(ctx, "board_render_error", err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(png)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, id int64) {
	var req chessdto.MoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", s.cat.Text("api.bad_request", map[string]any{"Error": err.Error()}), false)
		return
	}
	from, to, err := session.ParseMove(req.From + "-" + req.To)
	if err != nil {
		s.writeGameError(ctx, id, err)
		return
	}
	promo := session.ParsePromotion(req.Promotion)

	var (
		g        *chess.Game
		human    chess.Color
		summary  chessdto.MoveSummary
		finished bool
	)
	rec, err := s.store.Update(ctx, id, func(r *gamestore.Record) error {
		summary = chessdto.MoveSummary{}
		var err error
		if g, err = gamestore.Decode(*r); err != nil {
			return err
		}
		var ok bool
		if human, ok = r.HumanColor(); !ok {
			return errNoHuman
		}
		mv, err := g.TryMove(g.PlayerFor(human), from, to, promo)
		if err != nil {
			return err
		}
		summary.Player = mv.String()
		if !g.Evaluate().Terminal() {
			reply, err := s.computerReply(g, human.Opponent())
			if err != nil {
				return err
			}
			if reply != nil {
				summary.Computer = reply.String()
			}
		}
		finished = g.IsOver()
		r.Apply(g)
		return nil
	})
	if err != nil {
		s.writeGameError(ctx, id, err)
		return
	}
	s.logger.Info("game_move",
		zap.Int64("game_id", id),
		zap.String("player", summary.Player),
		zap.String("computer", summary.Computer),
	)
	if finished {
		s.settle(ctx, rec, g, human)
	}
	summary.State = chesspresenter.ToDTOState(g)
	summary.Finished = finished
	s.writeJSON(ctx, fasthttp.StatusOK, summary)
}

// computerReply plays a random move for c. A side without legal moves ends
// the game as a stalemate and yields no move.
func (s *Server) computerReply(g *chess.Game, c chess.Color) (*chess.Move, error) {
	var mv chess.Move
	err := s.withRand(func(r *rand.Rand) error {
		var err error
		mv, err = g.MakeRandomMoveFor(g.PlayerFor(c), r)
		return err
	})
	if chess.ReasonOf(err) == chess.ReasonNoLegalMove {
		g.ApplyOutcome(chess.Outcome{Status: chess.StatusDraw, Method: chess.MethodStalemate})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.Evaluate()
	return &mv, nil
}

func (s *Server) handleResign(ctx *fasthttp.RequestCtx, id int64) {
	var (
		g     *chess.Game
		human chess.Color
	)
	rec, err := s.store.Update(ctx, id, func(r *gamestore.Record) error {
		var err error
		if g, err = gamestore.Decode(*r); err != nil {
			return err
		}
		var ok bool
		if human, ok = r.HumanColor(); !ok {
			return errNoHuman
		}
		if err := g.Resign(human); err != nil {
			return err
		}
		r.Apply(g)
		return nil
	})
	if err != nil {
		s.writeGameError(ctx, id, err)
		return
	}
	s.logger.Info("game_resigned", zap.Int64("game_id", id), zap.Stringer("color", human))
	s.settle(ctx, rec, g, human)
	s.writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToDTOState(g))
}

// settle scores a game that has just ended: the result is archived and the
// human's account, if any, is credited and loses the game from its list.
func (s *Server) settle(ctx context.Context, rec *gamestore.Record, g *chess.Game, human chess.Color) {
	email := rec.Player(human)
	winner, won := g.Winner()
	won = won && winner == human
	delta := session.Settlement(session.EndingFor(g.Outcome()), won, g.PlayerFor(human).Points(), s.draw)
	log := s.logger.With(zap.Int64("game_id", g.ID), zap.String("player", email))

	if s.results != nil {
		res := results.Summarize(g, email, human, delta, rec.StartedAt, s.now())
		if _, err := s.results.InsertResult(ctx, res); err != nil && !errors.Is(err, results.ErrDuplicateResult) {
			log.Warn("result_archive_error", zap.Error(err))
		}
	}
	if s.accounts != nil {
		if _, err := s.accounts.ApplyPoints(ctx, email, delta); err != nil {
			if !errors.Is(err, account.ErrAccountNotFound) {
				log.Warn("account_points_error", zap.Error(err))
			}
		} else if _, err := s.accounts.RemoveGame(ctx, email, g.ID); err != nil {
			log.Warn("account_remove_game_error", zap.Error(err))
		}
	}
	log.Info("game_finished",
		zap.String("status", g.Status().String()),
		zap.String("method", string(g.Outcome().Method)),
		zap.Int("delta", delta),
	)
}

func (s *Server) handlePlayerGames(ctx *fasthttp.RequestCtx, player string) {
	list, err := s.store.ListByUser(ctx, normalizePlayer(player))
	if err != nil {
		s.internalError(ctx, "game_list_error", err)
		return
	}
	out := make([]*chessdto.GameState, 0, len(list))
	for _, rec := range list {
		if rec.Finished() {
			continue
		}
		g, err := gamestore.Decode(rec)
		if err != nil {
			s.logger.Warn("game_decode_error", zap.Int64("game_id", rec.ID), zap.Error(err))
			continue
		}
		out = append(out, chesspresenter.ToDTOState(g))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handlePlayerResults(ctx *fasthttp.RequestCtx, player string) {
	player = normalizePlayer(player)
	resp := chessdto.ResultsResponse{Player: player, Results: []chessdto.GameResult{}}
	if s.results != nil {
		list, err := s.results.RecentResults(ctx, player, s.history)
		if err != nil {
			s.internalError(ctx, "result_list_error", err)
			return
		}
		resp.Results = chesspresenter.ToDTOResults(list)
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleLeaderboard(ctx *fasthttp.RequestCtx) {
	out := []chessdto.LeaderboardEntry{}
	if s.accounts != nil {
		list, err := s.accounts.Leaderboard(ctx, s.history)
		if err != nil {
			s.internalError(ctx, "leaderboard_error", err)
			return
		}
		for _, acc := range list {
			out = append(out, chessdto.LeaderboardEntry{Email: acc.Email, Points: acc.Points, Games: len(acc.Games)})
		}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) internalError(ctx *fasthttp.RequestCtx, event string, err error) {
	s.logger.Error(event, zap.ByteString("path", ctx.Path()), zap.Error(err))
	s.writeError(ctx, fasthttp.StatusInternalServerError, "internal", s.cat.Text("api.internal", nil), true)
}

// writeGameError maps store and rule errors to HTTP answers.
func (s *Server) writeGameError(ctx *fasthttp.RequestCtx, id int64, err error) {
	data := map[string]any{"ID": id, "Error": err.Error()}
	var me *chess.MoveError
	switch {
	case errors.Is(err, gamestore.ErrNotFound):
		s.writeError(ctx, fasthttp.StatusNotFound, "not_found", s.cat.Text("api.not_found", data), false)
	case errors.Is(err, gamestore.ErrConflict):
		s.writeError(ctx, fasthttp.StatusConflict, "conflict", s.cat.Text("api.conflict", data), true)
	case errors.Is(err, errNoHuman):
		s.writeError(ctx, fasthttp.StatusConflict, "no_human", s.cat.Text("api.no_human", data), false)
	case errors.Is(err, session.ErrInvalidCommand):
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", s.cat.Text("api.bad_request", data), false)
	case errors.Is(err, chess.ErrGameNotStarted):
		s.writeError(ctx, fasthttp.StatusConflict, "not_started", err.Error(), false)
	case errors.As(err, &me):
		status := fasthttp.StatusUnprocessableEntity
		if me.Reason == chess.ReasonNotYourTurn || me.Reason == chess.ReasonGameOver {
			status = fasthttp.StatusConflict
		}
		s.writeError(ctx, status, string(me.Reason), session.DescribeMoveError(s.cat, err), false)
	default:
		s.internalError(ctx, "game_update_error", err)
	}
}
