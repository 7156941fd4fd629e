package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"balance-ledger/internal/model"
)

// UserRepository handles player lookups needed by the ledger.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create creates a new player row.
func (r *UserRepository) Create(ctx context.Context, username string) (*model.User, error) {
	const query = `
		INSERT INTO users (username, created_at)
		VALUES ($1, NOW())
		RETURNING id, username, created_at
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves a player by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT id, username, created_at FROM users WHERE id = $1`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Exists checks if a player with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// ListPlayerIDs returns the IDs of players matching the filter, ordered by ID.
//
// A currency filter keeps players holding any non-rejected transaction or any
// bet result in that currency. A status filter keeps players with at least one
// transaction in that status (within the currency when both are set).
func (r *UserRepository) ListPlayerIDs(ctx context.Context, filter model.BalanceFilter) ([]int64, error) {
	const query = `
		SELECT u.id
		FROM users u
		WHERE ($1::bigint IS NULL OR u.id = $1)
		  AND ($2::bigint IS NULL
		       OR EXISTS (SELECT 1 FROM transactions t
		                  WHERE t.user_id = u.id AND t.currency_id = $2 AND t.status <> 'rejected')
		       OR EXISTS (SELECT 1 FROM bet_results b
		                  WHERE b.user_id = u.id AND b.currency_id = $2))
		  AND ($3::text IS NULL
		       OR EXISTS (SELECT 1 FROM transactions t
		                  WHERE t.user_id = u.id AND t.status = $3
		                    AND ($2::bigint IS NULL OR t.currency_id = $2)))
		ORDER BY u.id
		LIMIT $4 OFFSET $5
	`

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := r.pool.Query(ctx, query, filter.UserID, filter.CurrencyID, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return ids, nil
}
