package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	DataDir      string
	GamesFile    string
	AccountsFile string
	MessagesDir  string

	RedisURL    string
	DatabaseURL string
	HTTPAddr    string

	GameTTL         time.Duration
	HistoryLimit    int
	RandomSeed      uint64
	HasRandomSeed   bool
	BoardSquarePx   int
	NeutralDraws    bool
	ShutdownTimeout time.Duration
}

// Load reads the console configuration from the environment.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		DataDir:         "input",
		GameTTL:         24 * time.Hour,
		HistoryLimit:    10,
		BoardSquarePx:   72,
		ShutdownTimeout: 10 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	cfg.GamesFile = strings.TrimSpace(os.Getenv("CHESS_GAMES_FILE"))
	if cfg.GamesFile == "" {
		cfg.GamesFile = filepath.Join(cfg.DataDir, "games.json")
	}
	cfg.AccountsFile = strings.TrimSpace(os.Getenv("CHESS_ACCOUNTS_FILE"))
	if cfg.AccountsFile == "" {
		cfg.AccountsFile = filepath.Join(cfg.DataDir, "accounts.json")
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	if v := strings.TrimSpace(os.Getenv("CHESS_GAME_TTL")); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHESS_GAME_TTL: %w", err)
		}
		cfg.GameTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_RANDOM_SEED")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("CHESS_RANDOM_SEED: %w", err)
		}
		cfg.RandomSeed = n
		cfg.HasRandomSeed = true
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_BOARD_SQUARE_PX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 16 {
			cfg.BoardSquarePx = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DRAW_POLICY")); v != "" {
		switch strings.ToLower(v) {
		case "neutral":
			cfg.NeutralDraws = true
		case "resign", "computer_resign":
		default:
			return nil, fmt.Errorf("CHESS_DRAW_POLICY: unknown policy %q", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); v != "" {
		if d, err := parseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}

	return cfg, nil
}

// LoadServer is Load plus the settings the HTTP server cannot run without.
func LoadServer() (*AppConfig, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	return cfg, nil
}

// parseDuration accepts Go durations ("90m") or whole seconds ("3600").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration %q must be positive", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", v)
	}
	return d, nil
}
