package account

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/domain"
)

var (
	ErrBadCredentials  = errors.New("invalid email or password")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidEmail    = errors.New("email is required")
)

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}, nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with zero points.
func (s *Service) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	acc := &domain.Account{Email: email, PasswordHash: hashPassword(password)}
	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.Info("account_registered", zap.String("email", email))
	return acc, nil
}

// Login returns the account when the password matches.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Account, error) {
	acc, err := s.repo.Get(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrBadCredentials
	}
	if subtle.ConstantTimeCompare([]byte(acc.PasswordHash), []byte(hashPassword(password))) != 1 {
		s.logger.Debug("account_login_rejected", zap.String("email", acc.Email))
		return nil, ErrBadCredentials
	}
	return acc, nil
}

func (s *Service) Get(ctx context.Context, email string) (*domain.Account, error) {
	acc, err := s.repo.Get(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

func (s *Service) mutate(ctx context.Context, email string, fn func(*domain.Account)) (*domain.Account, error) {
	acc, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	fn(acc)
	if err := s.repo.Update(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// AddGame records id as an active game. Adding a known id is a no-op.
func (s *Service) AddGame(ctx context.Context, email string, id int64) (*domain.Account, error) {
	return s.mutate(ctx, email, func(a *domain.Account) {
		if !a.HasGame(id) {
			a.Games = append(a.Games, id)
		}
	})
}

func (s *Service) RemoveGame(ctx context.Context, email string, id int64) (*domain.Account, error) {
	return s.mutate(ctx, email, func(a *domain.Account) {
		kept := a.Games[:0]
		for _, g := range a.Games {
			if g != id {
				kept = append(kept, g)
			}
		}
		a.Games = kept
	})
}

// ApplyPoints adds delta to the account total. Totals may go negative.
func (s *Service) ApplyPoints(ctx context.Context, email string, delta int) (*domain.Account, error) {
	acc, err := s.mutate(ctx, email, func(a *domain.Account) { a.Points += delta })
	if err != nil {
		return nil, err
	}
	s.logger.Info("account_points",
		zap.String("email", acc.Email),
		zap.Int("delta", delta),
		zap.Int("total", acc.Points),
	)
	return acc, nil
}

// Leaderboard returns up to limit accounts ordered by points, highest first.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*domain.Account, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Points > all[j].Points })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
