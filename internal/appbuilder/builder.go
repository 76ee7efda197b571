package appbuilder

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/account"
	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/gamestore"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/render"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/internal/session"
)

//go:embed schema.sql
var schema string

// Deps is everything the binaries need, wired from one AppConfig.
type Deps struct {
	Config   *config.AppConfig
	Catalog  *msgcat.Catalog
	Renderer *render.Renderer
	Accounts *account.Service
	Results  results.Repository
	Games    *gamestore.FileStore
	Live     *gamestore.RedisStore // nil without REDIS_URL

	db  *sql.DB
	rdb *redis.Client
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d := &Deps{
		Config:   cfg,
		Catalog:  cat,
		Renderer: render.NewRenderer(cfg.BoardSquarePx),
		Games:    gamestore.NewFileStore(cfg.GamesFile, logger),
	}

	var accRepo account.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.db = db
		accRepo = account.NewRepository(db)
		d.Results = results.NewRepository(db)
	} else {
		logger.Info("storage_fallback", zap.String("accounts_file", cfg.AccountsFile))
		accRepo = account.NewFileRepository(cfg.AccountsFile)
		d.Results = results.NewMemoryRepository()
	}
	if d.Accounts, err = account.NewService(accRepo, logger); err != nil {
		d.Close()
		return nil, err
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := gamestore.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.rdb = rdb
		d.Live = gamestore.NewRedisStore(rdb, cfg.GameTTL, logger)
	}
	return d, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Rand returns the move generator: seeded when CHESS_RANDOM_SEED is set.
func (d *Deps) Rand() *rand.Rand {
	if d.Config.HasRandomSeed {
		return rand.New(rand.NewPCG(d.Config.RandomSeed, d.Config.RandomSeed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (d *Deps) DrawPolicy() session.DrawPolicy {
	if d.Config.NeutralDraws {
		return session.DrawNeutral
	}
	return session.DrawAsComputerResign
}

// Close releases the database and Redis connections.
func (d *Deps) Close() error {
	var errs []error
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	if d.rdb != nil {
		errs = append(errs, d.rdb.Close())
	}
	return errors.Join(errs...)
}
