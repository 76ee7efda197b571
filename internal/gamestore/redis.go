package gamestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by Update for unknown or expired games.
	ErrNotFound = errors.New("game not found")
	// ErrConflict is returned when Update keeps losing the race for a game.
	ErrConflict = errors.New("game modified concurrently")
)

const (
	DefaultTTL       = 24 * time.Hour
	maxUpdateRetries = 3
)

// RedisStore keeps active games in Redis as JSON records, with a per-user
// index set so a player's games can be listed.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore wraps rdb. A non-positive ttl selects DefaultTTL.
func NewRedisStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, ttl: ttl, logger: logger}
}

// OpenRedis connects to a redis:// or rediss:// URL and pings the server.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("REDIS_URL required for game store")
	}
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

func gameKey(id int64) string       { return "chess:game:" + strconv.FormatInt(id, 10) }
func idxUserKey(user string) string { return "chess:index:user:" + strings.TrimSpace(user) }
func seqKey() string                { return "chess:game:seq" }

func humanNames(r *Record) []string {
	var out []string
	for _, p := range r.Players {
		if name := strings.TrimSpace(p.Email); name != "" && name != ComputerName {
			out = append(out, name)
		}
	}
	return out
}

// NextID allocates a new game id.
func (s *RedisStore) NextID(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, seqKey()).Result()
}

// Save writes r unconditionally and indexes its human players.
func (s *RedisStore) Save(ctx context.Context, r Record) error {
	raw, err := json.Marshal(&r)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(r.ID), raw, s.ttl)
		for _, name := range humanNames(&r) {
			pipe.SAdd(ctx, idxUserKey(name), r.ID)
			pipe.Expire(ctx, idxUserKey(name), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save game %d: %w", r.ID, err)
	}
	return nil
}

// Get returns the game with id, or nil when it does not exist.
func (s *RedisStore) Get(ctx context.Context, id int64) (*Record, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode game %d: %w", id, err)
	}
	return &r, nil
}

// Update loads the game, applies fn and writes the result, all under WATCH
// on the game key. fn may run more than once when another writer wins the
// race; an error from fn aborts without writing.
func (s *RedisStore) Update(ctx context.Context, id int64, fn func(*Record) error) (*Record, error) {
	key := gameKey(id)
	var out *Record
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur Record
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("decode game %d: %w", id, err)
		}
		if err := fn(&cur); err != nil {
			return err
		}
		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newRaw, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &cur
		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		s.logger.Debug("game_update_retry", zap.Int64("game_id", id), zap.Int("attempt", attempt+1))
	}
	return nil, ErrConflict
}

// Delete removes the game and its index entries.
func (s *RedisStore) Delete(ctx context.Context, id int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, gameKey(id))
		if r != nil {
			for _, name := range humanNames(r) {
				pipe.SRem(ctx, idxUserKey(name), id)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete game %d: %w", id, err)
	}
	return nil
}

// ListByUser returns the user's stored games ordered by id. Ids whose game
// has expired are dropped from the index.
func (s *RedisStore) ListByUser(ctx context.Context, user string) ([]Record, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, nil
	}
	members, err := s.rdb.SMembers(ctx, idxUserKey(user)).Result()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		r, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if r == nil {
			_ = s.rdb.SRem(ctx, idxUserKey(user), m).Err()
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
