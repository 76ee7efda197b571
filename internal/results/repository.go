package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-chess/internal/domain"
)

var ErrDuplicateResult = errors.New("game result already recorded")

const defaultRecentLimit = 10

type Repository interface {
	InsertResult(ctx context.Context, res *domain.GameResult) (int64, error)
	RecentResults(ctx context.Context, email string, limit int) ([]*domain.GameResult, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertResult(ctx context.Context, res *domain.GameResult) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("nil game result payload")
	}

	moves, err := json.Marshal(res.Moves)
	if err != nil {
		return 0, fmt.Errorf("marshal moves: %w", err)
	}

	const query = `
		INSERT INTO game_results (
			session_uuid,
			game_id,
			player_email,
			player_color,
			result,
			result_method,
			moves,
			points_delta,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		res.SessionUUID,
		res.GameID,
		res.PlayerEmail,
		res.PlayerColor,
		res.Result,
		res.ResultMethod,
		moves,
		res.PointsDelta,
		res.StartedAt,
		res.EndedAt,
		res.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateResult
	}
	if err != nil {
		return 0, fmt.Errorf("insert game result: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) RecentResults(ctx context.Context, email string, limit int) ([]*domain.GameResult, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	const query = `
		SELECT
			id,
			session_uuid,
			game_id,
			player_email,
			player_color,
			result,
			result_method,
			moves,
			points_delta,
			started_at,
			ended_at,
			duration_ms
		FROM game_results
		WHERE player_email = $1
		ORDER BY ended_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, email, limit)
	if err != nil {
		return nil, fmt.Errorf("select game results: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.GameResult, 0, limit)
	for rows.Next() {
		var (
			res        domain.GameResult
			movesJSON  []byte
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&res.ID,
			&res.SessionUUID,
			&res.GameID,
			&res.PlayerEmail,
			&res.PlayerColor,
			&res.Result,
			&res.ResultMethod,
			&movesJSON,
			&res.PointsDelta,
			&res.StartedAt,
			&res.EndedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan game result: %w", err)
		}
		if durationMS.Valid {
			res.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		if err := json.Unmarshal(movesJSON, &res.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game results: %w", err)
	}
	return out, nil
}
