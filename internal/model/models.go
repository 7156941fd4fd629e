// Package model defines the data models for the balance ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a player account. Only the identity columns the ledger
// needs are mapped here; registration and profile data live elsewhere.
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
}

// Currency is a ledger currency scope.
type Currency struct {
	ID            int64  `db:"id"`
	Code          string `db:"code"`
	Name          string `db:"name"`
	DecimalPlaces int32  `db:"decimal_places"`
}

// Transaction represents a player deposit, withdrawal or bonus record.
// Status is the only column that changes after insertion.
type Transaction struct {
	ID         int64             `db:"id"`
	UserID     int64             `db:"user_id"`
	Type       TransactionType   `db:"type"`
	Amount     decimal.Decimal   `db:"amount"`
	Status     TransactionStatus `db:"status"`
	CurrencyID int64             `db:"currency_id"`
	Note       *string           `db:"note"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
}

// BetResult is a game settlement record written by the game-session flow.
type BetResult struct {
	ID         int64           `db:"id"`
	UserID     int64           `db:"user_id"`
	GameID     string          `db:"game_id"`
	CurrencyID int64           `db:"currency_id"`
	BetAmount  decimal.Decimal `db:"bet_amount"`
	BetStatus  BetStatus       `db:"bet_status"`
	WinAmount  decimal.Decimal `db:"win_amount"`
	LossAmount decimal.Decimal `db:"loss_amount"`
	CreatedAt  time.Time       `db:"created_at"`
}

// HouseRecord is an entry in the house-level ledger (admin_main_balance).
type HouseRecord struct {
	ID         int64             `db:"id"`
	Type       HouseRecordType   `db:"type"`
	Amount     decimal.Decimal   `db:"amount"`
	Status     TransactionStatus `db:"status"`
	CurrencyID int64             `db:"currency_id"`
	Note       *string           `db:"note"`
	CreatedAt  time.Time         `db:"created_at"`
}

// TransactionTotal is one row of transactions summed by user, currency, type and status.
type TransactionTotal struct {
	UserID     int64
	CurrencyID int64
	Type       TransactionType
	Status     TransactionStatus
	Amount     decimal.Decimal
}

// BetTotal is one row of bet results summed by user, currency and bet status.
type BetTotal struct {
	UserID     int64
	CurrencyID int64
	BetStatus  BetStatus
	WinAmount  decimal.Decimal
	LossAmount decimal.Decimal
}

// HouseTotal is one row of house records summed by currency, type and status.
type HouseTotal struct {
	CurrencyID int64
	Type       HouseRecordType
	Status     TransactionStatus
	Amount     decimal.Decimal
}

// BalanceSummary is the derived balance of one player. It is computed on
// demand and never persisted.
//
// CurrentBalance always equals TotalDeposits + TotalWins - TotalWithdrawals - TotalLosses.
// TotalBonuses is informational and is not part of CurrentBalance.
type BalanceSummary struct {
	UserID              int64
	CurrencyCode        string
	CurrentBalance      decimal.Decimal
	TotalDeposits       decimal.Decimal
	TotalWithdrawals    decimal.Decimal
	TotalWins           decimal.Decimal
	TotalLosses         decimal.Decimal
	PendingDeposits     decimal.Decimal
	PendingWithdrawals  decimal.Decimal
	ApprovedDeposits    decimal.Decimal
	ApprovedWithdrawals decimal.Decimal
	TotalBonuses        decimal.Decimal
}

// HouseSummary is the derived house balance for one currency scope.
type HouseSummary struct {
	CurrencyCode    string
	CurrentBalance  decimal.Decimal
	AdminDeposits   decimal.Decimal
	PlayerDeposits  decimal.Decimal
	Promotions      decimal.Decimal
	PlayerWithdraws decimal.Decimal
	AdminWithdraws  decimal.Decimal
	PendingIn       decimal.Decimal
	PendingOut      decimal.Decimal
}

// DailyRank is a player's net bet result for one day.
type DailyRank struct {
	UserID    int64           `db:"user_id"`
	Username  string          `db:"username"`
	NetProfit decimal.Decimal `db:"net_profit"`
}

// BalanceFilter narrows the batch balance listing. Nil fields are not applied.
type BalanceFilter struct {
	UserID     *int64
	CurrencyID *int64
	Status     *TransactionStatus
	Limit      int
	Offset     int
}
