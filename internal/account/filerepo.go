package account

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
	"time"

	"github.com/park285/cheese-chess/internal/domain"
)

// fileAccount is one entry of accounts.json.
type fileAccount struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Points   int     `json:"points"`
	Games    []int64 `json:"games"`
}

type filerepo struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository stores accounts as a JSON array at path. A missing file
// is an empty repository.
func NewFileRepository(path string) Repository {
	return &filerepo{path: path}
}

func (r *filerepo) Get(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		if a.Email == email {
			return toAccount(a), nil
		}
	}
	return nil, nil
}

func (r *filerepo) Create(ctx context.Context, acc *domain.Account) error {
	if acc == nil {
		return fmt.Errorf("nil account payload")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.read(ctx)
	if err != nil {
		return err
	}
	for _, a := range list {
		if a.Email == acc.Email {
			return ErrDuplicateAccount
		}
	}
	now := time.Now()
	acc.CreatedAt, acc.UpdatedAt = now, now
	return r.write(append(list, fromAccount(acc)))
}

func (r *filerepo) Update(ctx context.Context, acc *domain.Account) error {
	if acc == nil {
		return fmt.Errorf("nil account payload")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.read(ctx)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].Email == acc.Email {
			list[i] = fromAccount(acc)
			acc.UpdatedAt = time.Now()
			return r.write(list)
		}
	}
	return fmt.Errorf("update account %s: not found", acc.Email)
}

func (r *filerepo) List(ctx context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Account, 0, len(list))
	for _, a := range list {
		out = append(out, toAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func toAccount(a fileAccount) *domain.Account {
	return &domain.Account{
		Email:        a.Email,
		PasswordHash: a.Password,
		Points:       a.Points,
		Games:        append([]int64(nil), a.Games...),
	}
}

func fromAccount(a *domain.Account) fileAccount {
	games := append([]int64{}, a.Games...)
	return fileAccount{Email: a.Email, Password: a.PasswordHash, Points: a.Points, Games: games}
}

func (r *filerepo) read(ctx context.Context) ([]fileAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var list []fileAccount
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", r.path, err)
	}
	return list, nil
}

func (r *filerepo) write(list []fileAccount) error {
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create accounts dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".accounts-*.json")
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp accounts file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp accounts file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}
	return nil
}
