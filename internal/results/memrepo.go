package results

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/park285/cheese-chess/internal/domain"
)

// memrepo is the in-memory Repository used when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID    int64
	bySession map[string]*domain.GameResult
	byPlayer  map[string][]*domain.GameResult
}

func NewMemoryRepository() Repository {
	return &memrepo{
		bySession: make(map[string]*domain.GameResult),
		byPlayer:  make(map[string][]*domain.GameResult),
	}
}

func (m *memrepo) InsertResult(ctx context.Context, res *domain.GameResult) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("nil game result payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bySession[res.SessionUUID]; exists {
		return 0, ErrDuplicateResult
	}
	m.nextID++
	stored := *res
	stored.ID = m.nextID
	stored.Moves = append([]string(nil), res.Moves...)

	m.bySession[res.SessionUUID] = &stored
	m.byPlayer[res.PlayerEmail] = append(m.byPlayer[res.PlayerEmail], &stored)
	return stored.ID, nil
}

func (m *memrepo) RecentResults(ctx context.Context, email string, limit int) ([]*domain.GameResult, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.GameResult, 0, len(m.byPlayer[email]))
	for _, r := range m.byPlayer[email] {
		c := *r
		c.Moves = append([]string(nil), r.Moves...)
		items = append(items, &c)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
