package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/park285/cheese-chess/internal/domain"
)

var ErrDuplicateAccount = errors.New("account already exists")

// Repository stores accounts by email. Get returns (nil, nil) for unknown
// emails.
type Repository interface {
	Get(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, acc *domain.Account) error
	Update(ctx context.Context, acc *domain.Account) error
	List(ctx context.Context) ([]*domain.Account, error)
}

type repository struct {
	db *sql.DB
}

// NewRepository returns a Postgres-backed repository over the accounts table.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const accountColumns = `email, password_hash, points, games, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	var (
		acc   domain.Account
		games pq.Int64Array
	)
	if err := row.Scan(&acc.Email, &acc.PasswordHash, &acc.Points, &games, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	acc.Games = []int64(games)
	return &acc, nil
}

func (r *repository) Get(ctx context.Context, email string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	return acc, nil
}

func (r *repository) Create(ctx context.Context, acc *domain.Account) error {
	if acc == nil {
		return fmt.Errorf("nil account payload")
	}
	const query = `
		INSERT INTO accounts (email, password_hash, points, games, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		acc.Email,
		acc.PasswordHash,
		acc.Points,
		pq.Array(acc.Games),
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, acc *domain.Account) error {
	if acc == nil {
		return fmt.Errorf("nil account payload")
	}
	const query = `
		UPDATE accounts
		SET password_hash = $2, points = $3, games = $4, updated_at = NOW()
		WHERE email = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		acc.Email,
		acc.PasswordHash,
		acc.Points,
		pq.Array(acc.Games),
	).Scan(&acc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update account %s: not found", acc.Email)
	}
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context) ([]*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY email`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}
