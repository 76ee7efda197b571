package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/park285/cheese-chess/internal/domain"
)

// memrepo keeps accounts in memory; used in tests and when no database is configured.
type memrepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func NewMemoryRepository() Repository {
	return &memrepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Games = append([]int64(nil), a.Games...)
	return &c
}

func (m *memrepo) Get(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[email]
	if !ok {
		return nil, nil
	}
	return cloneAccount(acc), nil
}

func (m *memrepo) Create(ctx context.Context, acc *domain.Account) error {
	if acc == nil {
		return fmt.Errorf("nil account payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[acc.Email]; exists {
		return ErrDuplicateAccount
	}
	now := time.Now()
	acc.CreatedAt, acc.UpdatedAt = now, now
	m.accounts[acc.Email] = cloneAccount(acc)
	return nil
}

func (m *memrepo) Update(ctx context.Context, acc *domain.Account) error {
	if acc == nil {
		return fmt.Errorf("nil account payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[acc.Email]; !exists {
		return fmt.Errorf("update account %s: not found", acc.Email)
	}
	acc.UpdatedAt = time.Now()
	m.accounts[acc.Email] = cloneAccount(acc)
	return nil
}

func (m *memrepo) List(ctx context.Context) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, cloneAccount(acc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
