package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"balance-ledger/internal/model"
)

// BetResultRepository handles bet result persistence, aggregation and daily stats.
type BetResultRepository struct {
	pool *pgxpool.Pool
}

// NewBetResultRepository creates a new BetResultRepository instance.
func NewBetResultRepository(pool *pgxpool.Pool) *BetResultRepository {
	return &BetResultRepository{pool: pool}
}

const betResultColumns = `id, user_id, game_id, currency_id, bet_amount::text, bet_status, win_amount::text, loss_amount::text, created_at`

func scanBetResult(row pgx.Row) (*model.BetResult, error) {
	var (
		b              model.BetResult
		status         string
		bet, win, loss *string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.GameID, &b.CurrencyID, &bet, &status, &win, &loss, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	b.BetStatus = model.BetStatus(status)
	if b.BetAmount, err = parseAmount(bet); err != nil {
		return nil, err
	}
	if b.WinAmount, err = parseAmount(win); err != nil {
		return nil, err
	}
	if b.LossAmount, err = parseAmount(loss); err != nil {
		return nil, err
	}

	return &b, nil
}

// Create inserts a bet result.
func (r *BetResultRepository) Create(ctx context.Context, b *model.BetResult) (*model.BetResult, error) {
	return r.CreateWithTime(ctx, b, time.Now())
}

// CreateWithTime inserts a bet result with a specific timestamp.
// Useful for testing and data migration.
func (r *BetResultRepository) CreateWithTime(ctx context.Context, b *model.BetResult, createdAt time.Time) (*model.BetResult, error) {
	query := `
		INSERT INTO bet_results (user_id, game_id, currency_id, bet_amount, bet_status, win_amount, loss_amount, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7::numeric, $8)
		RETURNING ` + betResultColumns

	created, err := scanBetResult(r.pool.QueryRow(ctx, query,
		b.UserID, b.GameID, b.CurrencyID, b.BetAmount.String(), string(b.BetStatus),
		b.WinAmount.String(), b.LossAmount.String(), createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create bet result: %w", err)
	}

	return created, nil
}

// GetByID retrieves a bet result by ID.
// Returns ErrBetResultNotFound if it does not exist.
func (r *BetResultRepository) GetByID(ctx context.Context, id int64) (*model.BetResult, error) {
	query := `SELECT ` + betResultColumns + ` FROM bet_results WHERE id = $1`

	b, err := scanBetResult(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBetResultNotFound
		}
		return nil, fmt.Errorf("failed to get bet result: %w", err)
	}

	return b, nil
}

// Settle finalizes a pending bet. Settled bets are immutable and
// return ErrInvalidTransition.
func (r *BetResultRepository) Settle(ctx context.Context, id int64, status model.BetStatus, winAmount, lossAmount decimal.Decimal) (*model.BetResult, error) {
	query := `
		UPDATE bet_results
		SET bet_status = $2, win_amount = $3::numeric, loss_amount = $4::numeric
		WHERE id = $1 AND bet_status = 'pending'
		RETURNING ` + betResultColumns

	b, err := scanBetResult(r.pool.QueryRow(ctx, query, id, string(status), winAmount.String(), lossAmount.String()))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to settle bet result: %w", err)
	}

	// No pending row matched: tell missing apart from already settled
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: bet %d already settled", ErrInvalidTransition, id)
}

// SumByUsers sums bet result amounts for the given users, grouped by user,
// currency and bet status. A nil currencyID spans all currencies.
func (r *BetResultRepository) SumByUsers(ctx context.Context, userIDs []int64, currencyID *int64) ([]model.BetTotal, error) {
	const query = `
		SELECT user_id, currency_id, bet_status, SUM(win_amount)::text, SUM(loss_amount)::text
		FROM bet_results
		WHERE user_id = ANY($1)
		  AND ($2::bigint IS NULL OR currency_id = $2)
		GROUP BY user_id, currency_id, bet_status
		ORDER BY user_id, currency_id, bet_status
	`

	rows, err := r.pool.Query(ctx, query, userIDs, currencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum bet results: %w", err)
	}
	defer rows.Close()

	var totals []model.BetTotal
	for rows.Next() {
		var (
			t         model.BetTotal
			status    string
			win, loss *string
		)
		if err := rows.Scan(&t.UserID, &t.CurrencyID, &status, &win, &loss); err != nil {
			return nil, fmt.Errorf("failed to scan bet total: %w", err)
		}
		t.BetStatus = model.BetStatus(status)
		if t.WinAmount, err = parseAmount(win); err != nil {
			return nil, err
		}
		if t.LossAmount, err = parseAmount(loss); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bet totals: %w", err)
	}

	return totals, nil
}

// dailyNetQuery sums settled results per player over one day.
// Wins add win_amount, losses subtract loss_amount; pending and cancelled bets are ignored.
const dailyNetQuery = `
	SELECT b.user_id, u.username,
	       SUM(CASE WHEN b.bet_status = 'win' THEN b.win_amount ELSE -b.loss_amount END)::text AS net_profit
	FROM bet_results b
	JOIN users u ON b.user_id = u.id
	WHERE b.bet_status IN ('win', 'loss')
	  AND b.created_at >= $1
	  AND b.created_at < $2
	GROUP BY b.user_id, u.username
`

// GetDailyWinners retrieves the players with the highest positive net result for a date.
func (r *BetResultRepository) GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	query := dailyNetQuery + `
		HAVING SUM(CASE WHEN b.bet_status = 'win' THEN b.win_amount ELSE -b.loss_amount END) > 0
		ORDER BY SUM(CASE WHEN b.bet_status = 'win' THEN b.win_amount ELSE -b.loss_amount END) DESC, b.user_id
		LIMIT $3
	`
	return r.queryDailyRanks(ctx, query, date, limit)
}

// GetDailyLosers retrieves the players with the largest net loss for a date, most loss first.
func (r *BetResultRepository) GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	query := dailyNetQuery + `
		HAVING SUM(CASE WHEN b.bet_status = 'win' THEN b.win_amount ELSE -b.loss_amount END) < 0
		ORDER BY SUM(CASE WHEN b.bet_status = 'win' THEN b.win_amount ELSE -b.loss_amount END) ASC, b.user_id
		LIMIT $3
	`
	return r.queryDailyRanks(ctx, query, date, limit)
}

func (r *BetResultRepository) queryDailyRanks(ctx context.Context, query string, date time.Time, limit int) ([]*model.DailyRank, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	rows, err := r.pool.Query(ctx, query, startOfDay, endOfDay, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily ranks: %w", err)
	}
	defer rows.Close()

	var ranks []*model.DailyRank
	for rows.Next() {
		var (
			rank model.DailyRank
			net  *string
		)
		if err := rows.Scan(&rank.UserID, &rank.Username, &net); err != nil {
			return nil, fmt.Errorf("failed to scan daily rank: %w", err)
		}
		if rank.NetProfit, err = parseAmount(net); err != nil {
			return nil, err
		}
		ranks = append(ranks, &rank)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily ranks: %w", err)
	}

	return ranks, nil
}
