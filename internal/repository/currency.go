package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"balance-ledger/internal/model"
)

// CurrencyRepository handles currency lookups.
type CurrencyRepository struct {
	pool *pgxpool.Pool
}

// NewCurrencyRepository creates a new CurrencyRepository instance.
func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

// Create inserts a currency.
func (r *CurrencyRepository) Create(ctx context.Context, code, name string, decimalPlaces int32) (*model.Currency, error) {
	const query = `
		INSERT INTO currencies (code, name, decimal_places)
		VALUES ($1, $2, $3)
		RETURNING id, code, name, decimal_places
	`

	var c model.Currency
	err := r.pool.QueryRow(ctx, query, code, name, decimalPlaces).Scan(&c.ID, &c.Code, &c.Name, &c.DecimalPlaces)
	if err != nil {
		return nil, fmt.Errorf("failed to create currency: %w", err)
	}

	return &c, nil
}

// GetByID retrieves a currency by ID.
// Returns ErrCurrencyNotFound if the currency does not exist.
func (r *CurrencyRepository) GetByID(ctx context.Context, id int64) (*model.Currency, error) {
	const query = `SELECT id, code, name, decimal_places FROM currencies WHERE id = $1`

	var c model.Currency
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Code, &c.Name, &c.DecimalPlaces)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCurrencyNotFound
		}
		return nil, fmt.Errorf("failed to get currency: %w", err)
	}

	return &c, nil
}
