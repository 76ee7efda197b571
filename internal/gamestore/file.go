package gamestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// FileStore keeps all games in one JSON array on disk. Writes replace the
// file atomically; one FileStore must own the file.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

// Load returns every stored game by id. A missing file is an empty store.
func (s *FileStore) Load(ctx context.Context) (map[int64]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Record, len(list))
	for _, r := range list {
		out[r.ID] = r
	}
	return out, nil
}

// List returns the stored games ordered by id.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Get returns the game with id, or nil when there is none.
func (s *FileStore) Get(ctx context.Context, id int64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, nil
}

// SaveOrUpdate replaces the game with the same id or appends r.
func (s *FileStore) SaveOrUpdate(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == r.ID {
			list[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, r)
	}
	if err := s.write(list); err != nil {
		return err
	}
	s.logger.Debug("game_persist", zap.Int64("game_id", r.ID), zap.Bool("replaced", replaced))
	return nil
}

// Delete removes the game with id. Deleting an unknown id is not an error.
func (s *FileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, r := range list {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return s.write(kept)
}

// NextID is one more than the largest stored id.
func (s *FileStore) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, r := range list {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1, nil
}

func (s *FileStore) read(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read games file: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var list []Record
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse games file %s: %w", s.path, err)
	}
	return list, nil
}

func (s *FileStore) write(list []Record) error {
	if list == nil {
		list = []Record{}
	}
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode games: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create games dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".games-*.json")
	if err != nil {
		return fmt.Errorf("create temp games file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp games file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp games file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace games file: %w", err)
	}
	return nil
}
