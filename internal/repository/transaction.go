package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"balance-ledger/internal/model"
)

// TransactionRepository handles player transaction persistence and aggregation.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, user_id, type, amount::text, status, currency_id, note, created_at, updated_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		tx             model.Transaction
		txType, status string
		amount         *string
	)
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&txType,
		&amount,
		&status,
		&tx.CurrencyID,
		&tx.Note,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Type = model.TransactionType(txType)
	tx.Status = model.TransactionStatus(status)
	if tx.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}

	return &tx, nil
}

// Create inserts a transaction record.
func (r *TransactionRepository) Create(
	ctx context.Context,
	userID int64,
	txType model.TransactionType,
	amount decimal.Decimal,
	status model.TransactionStatus,
	currencyID int64,
	note *string,
) (*model.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, type, amount, status, currency_id, note, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, NOW(), NOW())
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query,
		userID, string(txType), amount.String(), string(status), currencyID, note))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return tx, nil
}

// GetByID retrieves a transaction by ID.
// Returns ErrTransactionNotFound if it does not exist.
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// GetByUserID retrieves a user's transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// TransitionStatus moves a transaction to a new status inside a database
// transaction. The row is locked with SELECT ... FOR UPDATE so two admins
// cannot approve and reject the same record concurrently.
// Returns ErrInvalidTransition when the current status does not allow the move.
func (r *TransactionRepository) TransitionStatus(ctx context.Context, id int64, next model.TransactionStatus) (*model.Transaction, error) {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	var current string
	err = dbTx.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}

	if !model.TransactionStatus(current).CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	query := `
		UPDATE transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(dbTx.QueryRow(ctx, query, id, string(next)))
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status transition: %w", err)
	}

	return tx, nil
}

// SumByUsers sums non-rejected transaction amounts for the given users,
// grouped by user, currency, type and status. A nil currencyID spans all
// currencies.
func (r *TransactionRepository) SumByUsers(ctx context.Context, userIDs []int64, currencyID *int64) ([]model.TransactionTotal, error) {
	const query = `
		SELECT user_id, currency_id, type, status, SUM(amount)::text
		FROM transactions
		WHERE user_id = ANY($1)
		  AND status <> 'rejected'
		  AND ($2::bigint IS NULL OR currency_id = $2)
		GROUP BY user_id, currency_id, type, status
		ORDER BY user_id, currency_id, type, status
	`

	rows, err := r.pool.Query(ctx, query, userIDs, currencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}
	defer rows.Close()

	var totals []model.TransactionTotal
	for rows.Next() {
		var (
			t              model.TransactionTotal
			txType, status string
			sum            *string
		)
		if err := rows.Scan(&t.UserID, &t.CurrencyID, &txType, &status, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan transaction total: %w", err)
		}
		t.Type = model.TransactionType(txType)
		t.Status = model.TransactionStatus(status)
		if t.Amount, err = parseAmount(sum); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction totals: %w", err)
	}

	return totals, nil
}
