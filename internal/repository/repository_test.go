// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"balance-ledger/internal/model"
	"balance-ledger/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container, applies the schema and returns a
// connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

type fixture struct {
	users        *UserRepository
	currencies   *CurrencyRepository
	transactions *TransactionRepository
	bets         *BetResultRepository
	house        *HouseRepository
}

func newFixture(pool *pgxpool.Pool) *fixture {
	return &fixture{
		users:        NewUserRepository(pool),
		currencies:   NewCurrencyRepository(pool),
		transactions: NewTransactionRepository(pool),
		bets:         NewBetResultRepository(pool),
		house:        NewHouseRepository(pool),
	}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) tx(t *testing.T, userID int64, typ model.TransactionType, amt string, status model.TransactionStatus, currencyID int64) *model.Transaction {
	t.Helper()
	tx, err := f.transactions.Create(context.Background(), userID, typ, amount(amt), status, currencyID, nil)
	require.NoError(t, err)
	return tx
}

func (f *fixture) bet(t *testing.T, userID int64, status model.BetStatus, win, loss string, currencyID int64, at time.Time) *model.BetResult {
	t.Helper()
	b, err := f.bets.CreateWithTime(context.Background(), &model.BetResult{
		UserID:     userID,
		GameID:     "dice",
		CurrencyID: currencyID,
		BetAmount:  amount("10.00"),
		BetStatus:  status,
		WinAmount:  amount(win),
		LossAmount: amount(loss),
	}, at)
	require.NoError(t, err)
	return b
}

// ============================================================================
// UserRepository / CurrencyRepository Tests
// ============================================================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	user, err := f.users.Create(ctx, "alice")
	require.NoError(t, err)
	assert.Positive(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	exists, err := f.users.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.users.Exists(ctx, user.ID+100)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.users.GetByID(ctx, user.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCurrencyRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)

	got, err := f.currencies.GetByID(ctx, usd.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Code)
	assert.Equal(t, int32(2), got.DecimalPlaces)

	_, err = f.currencies.GetByID(ctx, usd.ID+1)
	assert.ErrorIs(t, err, ErrCurrencyNotFound)
}

func TestUserRepository_ListPlayerIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	eur, err := f.currencies.Create(ctx, "EUR", "Euro", 2)
	require.NoError(t, err)

	var ids []int64
	for _, name := range []string{"a", "b", "c", "d"} {
		u, err := f.users.Create(ctx, name)
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	f.tx(t, ids[0], model.TxTypeDeposit, "10.00", model.StatusApproved, usd.ID)
	f.tx(t, ids[1], model.TxTypeDeposit, "10.00", model.StatusPending, eur.ID)
	f.tx(t, ids[2], model.TxTypeDeposit, "10.00", model.StatusRejected, eur.ID)
	f.bet(t, ids[3], model.BetLoss, "0", "1.00", eur.ID, time.Now())

	all, err := f.users.ListPlayerIDs(ctx, model.BalanceFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, ids, all)

	inEUR, err := f.users.ListPlayerIDs(ctx, model.BalanceFilter{CurrencyID: &eur.ID, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1], ids[3]}, inEUR, "rejected-only players hold no currency")

	pending := model.StatusPending
	withPending, err := f.users.ListPlayerIDs(ctx, model.BalanceFilter{Status: &pending, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1]}, withPending)

	one, err := f.users.ListPlayerIDs(ctx, model.BalanceFilter{UserID: &ids[2], Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[2]}, one)

	page, err := f.users.ListPlayerIDs(ctx, model.BalanceFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, ids[1:3], page)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_CreateKeepsExactAmount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	user, err := f.users.Create(ctx, "alice")
	require.NoError(t, err)

	note := "welcome"
	tx, err := f.transactions.Create(ctx, user.ID, model.TxTypeDeposit, amount("1234567.89"), model.StatusPending, usd.ID, &note)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(amount("1234567.89")))
	assert.Equal(t, model.StatusPending, tx.Status)
	require.NotNil(t, tx.Note)
	assert.Equal(t, "welcome", *tx.Note)

	got, err := f.transactions.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	list, err := f.transactions.GetByUserID(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.transactions.GetByID(ctx, tx.ID+1)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionRepository_TransitionStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	user, err := f.users.Create(ctx, "alice")
	require.NoError(t, err)

	tx := f.tx(t, user.ID, model.TxTypeWithdraw, "30.00", model.StatusPending, usd.ID)

	approved, err := f.transactions.TransitionStatus(ctx, tx.ID, model.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.False(t, approved.UpdatedAt.Before(tx.UpdatedAt))

	_, err = f.transactions.TransitionStatus(ctx, tx.ID, model.StatusRejected)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.transactions.TransitionStatus(ctx, tx.ID+10, model.StatusApproved)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionRepository_SumByUsers(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	eur, err := f.currencies.Create(ctx, "EUR", "Euro", 2)
	require.NoError(t, err)
	alice, err := f.users.Create(ctx, "alice")
	require.NoError(t, err)
	bob, err := f.users.Create(ctx, "bob")
	require.NoError(t, err)

	f.tx(t, alice.ID, model.TxTypeDeposit, "0.10", model.StatusApproved, usd.ID)
	f.tx(t, alice.ID, model.TxTypeDeposit, "0.20", model.StatusApproved, usd.ID)
	f.tx(t, alice.ID, model.TxTypeDeposit, "5.00", model.StatusRejected, usd.ID)
	f.tx(t, alice.ID, model.TxTypeDeposit, "7.00", model.StatusApproved, eur.ID)
	f.tx(t, bob.ID, model.TxTypeWithdraw, "3.00", model.StatusPending, usd.ID)

	totals, err := f.transactions.SumByUsers(ctx, []int64{alice.ID, bob.ID}, &usd.ID)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, alice.ID, totals[0].UserID)
	assert.Equal(t, model.StatusApproved, totals[0].Status)
	assert.True(t, totals[0].Amount.Equal(amount("0.30")), "exact decimal sum, got %s", totals[0].Amount)

	assert.Equal(t, bob.ID, totals[1].UserID)
	assert.Equal(t, model.TxTypeWithdraw, totals[1].Type)
	assert.Equal(t, model.StatusPending, totals[1].Status)

	unscoped, err := f.transactions.SumByUsers(ctx, []int64{alice.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, unscoped, 2, "one row per currency")

	none, err := f.transactions.SumByUsers(ctx, []int64{}, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// ============================================================================
// BetResultRepository Tests
// ============================================================================

func TestBetResultRepository_SumByUsers(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	user, err := f.users.Create(ctx, "alice")
	require.NoError(t, err)

	now := time.Now()
	f.bet(t, user.ID, model.BetWin, "20.00", "0", usd.ID, now)
	f.bet(t, user.ID, model.BetWin, "5.55", "0", usd.ID, now)
	f.bet(t, user.ID, model.BetLoss, "0", "4.00", usd.ID, now)
	f.bet(t, user.ID, model.BetPending, "0", "0", usd.ID, now)

	totals, err := f.bets.SumByUsers(ctx, []int64{user.ID}, nil)
	require.NoError(t, err)
	require.Len(t, totals, 3)

	byStatus := make(map[model.BetStatus]model.BetTotal)
	for _, tot := range totals {
		byStatus[tot.BetStatus] = tot
	}
	assert.True(t, byStatus[model.BetWin].WinAmount.Equal(amount("25.55")))
	assert.True(t, byStatus[model.BetLoss].LossAmount.Equal(amount("4.00")))
	assert.True(t, byStatus[model.BetPending].WinAmount.IsZero())
}

func TestBetResultRepository_Settle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	user, err := f.users.Create(ctx, "alice")
	require.NoError(t, err)

	b := f.bet(t, user.ID, model.BetPending, "0", "0", usd.ID, time.Now())

	settled, err := f.bets.Settle(ctx, b.ID, model.BetWin, amount("18.00"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, model.BetWin, settled.BetStatus)
	assert.True(t, settled.WinAmount.Equal(amount("18.00")))

	_, err = f.bets.Settle(ctx, b.ID, model.BetLoss, decimal.Zero, amount("10.00"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.bets.Settle(ctx, b.ID+1, model.BetLoss, decimal.Zero, amount("10.00"))
	assert.ErrorIs(t, err, ErrBetResultNotFound)
}

func TestBetResultRepository_DailyRanks(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	alice, err := f.users.Create(ctx, "alice")
	require.NoError(t, err)
	bob, err := f.users.Create(ctx, "bob")
	require.NoError(t, err)
	carol, err := f.users.Create(ctx, "carol")
	require.NoError(t, err)

	day := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	f.bet(t, alice.ID, model.BetWin, "50.00", "0", usd.ID, day)
	f.bet(t, alice.ID, model.BetLoss, "0", "10.00", usd.ID, day)
	f.bet(t, bob.ID, model.BetLoss, "0", "25.00", usd.ID, day)
	f.bet(t, carol.ID, model.BetWin, "5.00", "0", usd.ID, day)
	f.bet(t, carol.ID, model.BetCancelled, "0", "0", usd.ID, day)
	// Outside the day
	f.bet(t, bob.ID, model.BetWin, "500.00", "0", usd.ID, day.AddDate(0, 0, 1))

	winners, err := f.bets.GetDailyWinners(ctx, day, 10)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, "alice", winners[0].Username)
	assert.True(t, winners[0].NetProfit.Equal(amount("40.00")))
	assert.Equal(t, "carol", winners[1].Username)

	losers, err := f.bets.GetDailyLosers(ctx, day, 10)
	require.NoError(t, err)
	require.Len(t, losers, 1)
	assert.Equal(t, bob.ID, losers[0].UserID)
	assert.True(t, losers[0].NetProfit.Equal(amount("-25.00")))

	top, err := f.bets.GetDailyWinners(ctx, day, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

// ============================================================================
// HouseRepository Tests
// ============================================================================

func TestHouseRepository_SumByCurrency(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	usd, err := f.currencies.Create(ctx, "USD", "US Dollar", 2)
	require.NoError(t, err)
	eur, err := f.currencies.Create(ctx, "EUR", "Euro", 2)
	require.NoError(t, err)

	note := "seed float"
	rec, err := f.house.Create(ctx, model.HouseAdminDeposit, amount("1000.00"), model.StatusApproved, usd.ID, &note)
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(amount("1000.00")))

	_, err = f.house.Create(ctx, model.HouseAdminDeposit, amount("400.00"), model.StatusApproved, usd.ID, nil)
	require.NoError(t, err)
	_, err = f.house.Create(ctx, model.HousePromotion, amount("12.00"), model.StatusRejected, usd.ID, nil)
	require.NoError(t, err)
	_, err = f.house.Create(ctx, model.HousePlayerWithdraw, amount("9.00"), model.StatusPending, eur.ID, nil)
	require.NoError(t, err)

	usdTotals, err := f.house.SumByCurrency(ctx, &usd.ID)
	require.NoError(t, err)
	require.Len(t, usdTotals, 1)
	assert.True(t, usdTotals[0].Amount.Equal(amount("1400.00")))

	all, err := f.house.SumByCurrency(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
