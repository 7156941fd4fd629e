package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"balance-ledger/internal/model"
	"balance-ledger/internal/pkg/lock"
	"balance-ledger/internal/repository"
)

// TransactionStore persists player transactions.
type TransactionStore interface {
	Create(ctx context.Context, userID int64, txType model.TransactionType, amount decimal.Decimal,
		status model.TransactionStatus, currencyID int64, note *string) (*model.Transaction, error)
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	TransitionStatus(ctx context.Context, id int64, next model.TransactionStatus) (*model.Transaction, error)
}

// BetResultStore persists bet results.
type BetResultStore interface {
	Create(ctx context.Context, b *model.BetResult) (*model.BetResult, error)
	Settle(ctx context.Context, id int64, status model.BetStatus, winAmount, lossAmount decimal.Decimal) (*model.BetResult, error)
}

// HouseStore persists house ledger records.
type HouseStore interface {
	Create(ctx context.Context, recType model.HouseRecordType, amount decimal.Decimal,
		status model.TransactionStatus, currencyID int64, note *string) (*model.HouseRecord, error)
}

// UserChecker reports whether a player exists.
type UserChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// amountPlaces is the scale of every ledger amount column.
const amountPlaces = 2

// NewTransaction describes a player transaction to record.
type NewTransaction struct {
	UserID     int64
	Type       model.TransactionType
	Amount     decimal.Decimal
	Status     model.TransactionStatus // defaults to pending
	CurrencyID int64
	Note       *string
}

// NewBetResult describes a bet result to record.
type NewBetResult struct {
	UserID     int64
	GameID     string
	CurrencyID int64
	BetAmount  decimal.Decimal
	BetStatus  model.BetStatus
	WinAmount  decimal.Decimal
	LossAmount decimal.Decimal
}

// NewHouseRecord describes a house ledger entry to record.
type NewHouseRecord struct {
	Type       model.HouseRecordType
	Amount     decimal.Decimal
	Status     model.TransactionStatus // defaults to approved
	CurrencyID int64
	Note       *string
}

// LedgerService writes the records the balance projections read.
// Status transitions of one player's transactions are serialized in-process
// with a per-user lock and in the database with a row lock.
type LedgerService struct {
	transactions TransactionStore
	bets         BetResultStore
	house        HouseStore
	users        UserChecker
	currencies   CurrencyFinder
	locks        *lock.UserLock
	lockTimeout  time.Duration
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	transactions TransactionStore,
	bets BetResultStore,
	house HouseStore,
	users UserChecker,
	currencies CurrencyFinder,
	locks *lock.UserLock,
	lockTimeout time.Duration,
) *LedgerService {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &LedgerService{
		transactions: transactions,
		bets:         bets,
		house:        house,
		users:        users,
		currencies:   currencies,
		locks:        locks,
		lockTimeout:  lockTimeout,
	}
}

// RecordTransaction validates and stores a player transaction.
func (s *LedgerService) RecordTransaction(ctx context.Context, in NewTransaction) (*model.Transaction, error) {
	if in.UserID <= 0 {
		return nil, invalidArgument("userId must be a positive integer")
	}
	if !in.Type.Valid() {
		return nil, invalidArgument("unknown transaction type %q", in.Type)
	}
	if in.Status == "" {
		in.Status = model.StatusPending
	}
	if !in.Status.Valid() {
		return nil, invalidArgument("unknown status %q", in.Status)
	}
	if err := validateAmount("amount", in.Amount, false); err != nil {
		return nil, err
	}
	if err := s.checkCurrency(ctx, in.CurrencyID); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	tx, err := s.transactions.Create(ctx, in.UserID, in.Type, in.Amount, in.Status, in.CurrencyID, trimNote(in.Note))
	if err != nil {
		return nil, storageError("create transaction", err)
	}
	return tx, nil
}

// TransitionTransaction approves or rejects a pending transaction.
// Returns ErrConflict when the transaction is no longer pending.
func (s *LedgerService) TransitionTransaction(ctx context.Context, id int64, next model.TransactionStatus) (*model.Transaction, error) {
	if id <= 0 {
		return nil, invalidArgument("transaction id must be a positive integer")
	}
	if next != model.StatusApproved && next != model.StatusRejected {
		return nil, invalidArgument("status must be approved or rejected")
	}

	current, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("get transaction", err)
	}

	var updated *model.Transaction
	err = s.locks.WithLockContext(ctx, current.UserID, s.lockTimeout, func() error {
		var err error
		updated, err = s.transactions.TransitionStatus(ctx, id, next)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		default:
			return nil, storageError("transition transaction", err)
		}
	}

	return updated, nil
}

// RecordBetResult validates and stores a bet result.
func (s *LedgerService) RecordBetResult(ctx context.Context, in NewBetResult) (*model.BetResult, error) {
	if in.UserID <= 0 {
		return nil, invalidArgument("userId must be a positive integer")
	}
	in.GameID = strings.TrimSpace(in.GameID)
	if in.GameID == "" {
		return nil, invalidArgument("gameId is required")
	}
	if !in.BetStatus.Valid() {
		return nil, invalidArgument("unknown bet status %q", in.BetStatus)
	}
	if err := validateAmount("betAmount", in.BetAmount, true); err != nil {
		return nil, err
	}
	if err := validateOutcome(in.BetStatus, in.WinAmount, in.LossAmount); err != nil {
		return nil, err
	}
	if err := s.checkCurrency(ctx, in.CurrencyID); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	b, err := s.bets.Create(ctx, &model.BetResult{
		UserID:     in.UserID,
		GameID:     in.GameID,
		CurrencyID: in.CurrencyID,
		BetAmount:  in.BetAmount,
		BetStatus:  in.BetStatus,
		WinAmount:  in.WinAmount,
		LossAmount: in.LossAmount,
	})
	if err != nil {
		return nil, storageError("create bet result", err)
	}
	return b, nil
}

// SettleBetResult finalizes a pending bet. Settled bets are immutable and
// return ErrConflict.
func (s *LedgerService) SettleBetResult(ctx context.Context, id int64, status model.BetStatus, winAmount, lossAmount decimal.Decimal) (*model.BetResult, error) {
	if id <= 0 {
		return nil, invalidArgument("bet result id must be a positive integer")
	}
	if !status.Settled() {
		return nil, invalidArgument("status must be win, loss or cancelled")
	}
	if err := validateOutcome(status, winAmount, lossAmount); err != nil {
		return nil, err
	}

	b, err := s.bets.Settle(ctx, id, status, winAmount, lossAmount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBetResultNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		default:
			return nil, storageError("settle bet result", err)
		}
	}
	return b, nil
}

// RecordHouseEntry validates and appends a house ledger record.
func (s *LedgerService) RecordHouseEntry(ctx context.Context, in NewHouseRecord) (*model.HouseRecord, error) {
	if !in.Type.Valid() {
		return nil, invalidArgument("unknown house record type %q", in.Type)
	}
	if in.Status == "" {
		in.Status = model.StatusApproved
	}
	if !in.Status.Valid() {
		return nil, invalidArgument("unknown status %q", in.Status)
	}
	if err := validateAmount("amount", in.Amount, false); err != nil {
		return nil, err
	}
	if err := s.checkCurrency(ctx, in.CurrencyID); err != nil {
		return nil, err
	}

	rec, err := s.house.Create(ctx, in.Type, in.Amount, in.Status, in.CurrencyID, trimNote(in.Note))
	if err != nil {
		return nil, storageError("create house record", err)
	}
	return rec, nil
}

func (s *LedgerService) checkCurrency(ctx context.Context, currencyID int64) error {
	if currencyID <= 0 {
		return invalidArgument("currencyId must be a positive integer")
	}
	if _, err := s.currencies.GetByID(ctx, currencyID); err != nil {
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return invalidArgument("unknown currency %d", currencyID)
		}
		return storageError("get currency", err)
	}
	return nil
}

func (s *LedgerService) checkUser(ctx context.Context, userID int64) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return storageError("check user", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// validateAmount rejects negative amounts and amounts finer than the column
// scale. Zero is accepted only when allowZero is set.
func validateAmount(field string, amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() {
		return invalidArgument("%s must not be negative", field)
	}
	if amount.IsZero() && !allowZero {
		return invalidArgument("%s must be positive", field)
	}
	if !amount.Equal(amount.Truncate(amountPlaces)) {
		return invalidArgument("%s has more than %d decimal places", field, amountPlaces)
	}
	return nil
}

// validateOutcome checks that win and loss amounts match the bet status:
// a win carries no loss, a loss carries no win, and open or cancelled bets
// carry neither.
func validateOutcome(status model.BetStatus, win, loss decimal.Decimal) error {
	if err := validateAmount("winAmount", win, true); err != nil {
		return err
	}
	if err := validateAmount("lossAmount", loss, true); err != nil {
		return err
	}

	switch status {
	case model.BetWin:
		if !loss.IsZero() {
			return invalidArgument("a winning bet has no lossAmount")
		}
	case model.BetLoss:
		if !win.IsZero() {
			return invalidArgument("a losing bet has no winAmount")
		}
	default:
		if !win.IsZero() || !loss.IsZero() {
			return invalidArgument("a %s bet has no winAmount or lossAmount", status)
		}
	}
	return nil
}

func trimNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
