package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"balance-ledger/internal/model"
)

// HouseRepository handles the house-level ledger (admin_main_balance).
type HouseRepository struct {
	pool *pgxpool.Pool
}

// NewHouseRepository creates a new HouseRepository instance.
func NewHouseRepository(pool *pgxpool.Pool) *HouseRepository {
	return &HouseRepository{pool: pool}
}

// Create appends a house ledger record.
func (r *HouseRepository) Create(
	ctx context.Context,
	recType model.HouseRecordType,
	amount decimal.Decimal,
	status model.TransactionStatus,
	currencyID int64,
	note *string,
) (*model.HouseRecord, error) {
	const query = `
		INSERT INTO admin_main_balance (type, amount, status, currency_id, note, created_at)
		VALUES ($1, $2::numeric, $3, $4, $5, NOW())
		RETURNING id, type, amount::text, status, currency_id, note, created_at
	`

	var (
		rec     model.HouseRecord
		typ, st string
		amt     *string
	)
	err := r.pool.QueryRow(ctx, query, string(recType), amount.String(), string(status), currencyID, note).Scan(
		&rec.ID, &typ, &amt, &st, &rec.CurrencyID, &rec.Note, &rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create house record: %w", err)
	}

	rec.Type = model.HouseRecordType(typ)
	rec.Status = model.TransactionStatus(st)
	if rec.Amount, err = parseAmount(amt); err != nil {
		return nil, err
	}

	return &rec, nil
}

// SumByCurrency sums non-rejected house records grouped by currency, type
// and status. A nil currencyID spans all currencies.
func (r *HouseRepository) SumByCurrency(ctx context.Context, currencyID *int64) ([]model.HouseTotal, error) {
	const query = `
		SELECT currency_id, type, status, SUM(amount)::text
		FROM admin_main_balance
		WHERE status <> 'rejected'
		  AND ($1::bigint IS NULL OR currency_id = $1)
		GROUP BY currency_id, type, status
		ORDER BY currency_id, type, status
	`

	rows, err := r.pool.Query(ctx, query, currencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum house records: %w", err)
	}
	defer rows.Close()

	var totals []model.HouseTotal
	for rows.Next() {
		var (
			t       model.HouseTotal
			typ, st string
			sum     *string
		)
		if err := rows.Scan(&t.CurrencyID, &typ, &st, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan house total: %w", err)
		}
		t.Type = model.HouseRecordType(typ)
		t.Status = model.TransactionStatus(st)
		if t.Amount, err = parseAmount(sum); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating house totals: %w", err)
	}

	return totals, nil
}
