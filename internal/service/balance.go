package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"balance-ledger/internal/model"
	"balance-ledger/internal/repository"
)

// TransactionAggregator sums player transactions per user, currency, type and status.
type TransactionAggregator interface {
	SumByUsers(ctx context.Context, userIDs []int64, currencyID *int64) ([]model.TransactionTotal, error)
}

// BetAggregator sums bet results per user, currency and bet status.
type BetAggregator interface {
	SumByUsers(ctx context.Context, userIDs []int64, currencyID *int64) ([]model.BetTotal, error)
}

// PlayerLister selects the players a batch listing covers.
type PlayerLister interface {
	ListPlayerIDs(ctx context.Context, filter model.BalanceFilter) ([]int64, error)
}

// CurrencyFinder resolves currency scopes.
type CurrencyFinder interface {
	GetByID(ctx context.Context, id int64) (*model.Currency, error)
}

// BalanceOptions tunes batch aggregation.
type BalanceOptions struct {
	// BatchSize is the number of players summed per query pair.
	BatchSize int
	// BatchConcurrency caps concurrent query pairs against the store.
	BatchConcurrency int
	// MaxPageSize caps the number of players one listing returns.
	MaxPageSize int
}

func (o BalanceOptions) withDefaults() BalanceOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 200
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = 4
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 500
	}
	return o
}

// BalanceService computes player balances from transactions and bet results.
// It is a read-side projection: it never writes, holds no mutable state and
// recomputes every summary from the store on each call.
type BalanceService struct {
	transactions TransactionAggregator
	bets         BetAggregator
	players      PlayerLister
	currencies   CurrencyFinder
	opts         BalanceOptions
}

// NewBalanceService creates a new BalanceService instance.
func NewBalanceService(
	transactions TransactionAggregator,
	bets BetAggregator,
	players PlayerLister,
	currencies CurrencyFinder,
	opts BalanceOptions,
) *BalanceService {
	return &BalanceService{
		transactions: transactions,
		bets:         bets,
		players:      players,
		currencies:   currencies,
		opts:         opts.withDefaults(),
	}
}

// CalculatePlayerBalance computes a player's balance, optionally scoped to one
// currency. A player without records gets an all-zero summary.
func (s *BalanceService) CalculatePlayerBalance(ctx context.Context, userID int64, currencyID *int64) (*model.BalanceSummary, error) {
	if userID <= 0 {
		return nil, invalidArgument("userId must be a positive integer")
	}
	if currencyID != nil && *currencyID <= 0 {
		return nil, invalidArgument("currencyId must be a positive integer")
	}

	var code string
	if currencyID != nil {
		currency, err := s.currencies.GetByID(ctx, *currencyID)
		if err != nil {
			if errors.Is(err, repository.ErrCurrencyNotFound) {
				return nil, invalidArgument("unknown currency %d", *currencyID)
			}
			return nil, storageError("get currency", err)
		}
		code = currency.Code
	}

	txs, bets, err := s.load(ctx, []int64{userID}, currencyID)
	if err != nil {
		return nil, err
	}

	summary := foldBalance(userID, txs, bets)
	if currencyID == nil {
		if code, err = s.singleCurrencyCode(ctx, currencyIDs(txs, bets)); err != nil {
			return nil, err
		}
	}
	summary.CurrencyCode = code

	return summary, nil
}

// GetBalanceSummary computes a player's balance across all currencies.
func (s *BalanceService) GetBalanceSummary(ctx context.Context, userID int64) (*model.BalanceSummary, error) {
	return s.CalculatePlayerBalance(ctx, userID, nil)
}

// GetCurrencyBalance computes a player's balance in one currency. It returns
// ErrNotFound when the currency does not exist or the player has no
// transactions or bet results in it, which is distinct from a zero balance.
func (s *BalanceService) GetCurrencyBalance(ctx context.Context, userID, currencyID int64) (*model.BalanceSummary, error) {
	if userID <= 0 {
		return nil, invalidArgument("userId must be a positive integer")
	}
	if currencyID <= 0 {
		return nil, invalidArgument("currencyId must be a positive integer")
	}

	currency, err := s.currencies.GetByID(ctx, currencyID)
	if err != nil {
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("get currency", err)
	}

	txs, bets, err := s.load(ctx, []int64{userID}, &currencyID)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 && len(bets) == 0 {
		return nil, ErrNotFound
	}

	summary := foldBalance(userID, txs, bets)
	summary.CurrencyCode = currency.Code

	return summary, nil
}

// CalculateAllPlayerBalances computes balances for every player matching the
// filter, ordered by user ID. Players are summed in chunks of BatchSize with
// at most BatchConcurrency chunks in flight. Any failure fails the whole call.
func (s *BalanceService) CalculateAllPlayerBalances(ctx context.Context, filter model.BalanceFilter) ([]*model.BalanceSummary, error) {
	filter, err := s.normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	var scopedCode string
	if filter.CurrencyID != nil {
		currency, err := s.currencies.GetByID(ctx, *filter.CurrencyID)
		if err != nil {
			if errors.Is(err, repository.ErrCurrencyNotFound) {
				return nil, invalidArgument("unknown currency %d", *filter.CurrencyID)
			}
			return nil, storageError("get currency", err)
		}
		scopedCode = currency.Code
	}

	ids, err := s.players.ListPlayerIDs(ctx, filter)
	if err != nil {
		return nil, storageError("list players", err)
	}

	results := make([]*model.BalanceSummary, len(ids))
	scopes := make([][]int64, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)

	for start := 0; start < len(ids); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(ids))
		chunk := ids[start:end]
		offset := start

		g.Go(func() error {
			txs, bets, err := s.load(gctx, chunk, filter.CurrencyID)
			if err != nil {
				return err
			}
			txByUser := groupTransactions(txs)
			betsByUser := groupBets(bets)
			for i, id := range chunk {
				results[offset+i] = foldBalance(id, txByUser[id], betsByUser[id])
				scopes[offset+i] = currencyIDs(txByUser[id], betsByUser[id])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	codes := make(map[int64]string)
	for i, summary := range results {
		if filter.CurrencyID != nil {
			summary.CurrencyCode = scopedCode
			continue
		}
		if len(scopes[i]) != 1 {
			continue
		}
		id := scopes[i][0]
		code, ok := codes[id]
		if !ok {
			if code, err = s.singleCurrencyCode(ctx, scopes[i]); err != nil {
				return nil, err
			}
			codes[id] = code
		}
		summary.CurrencyCode = code
	}

	return results, nil
}

func (s *BalanceService) normalizeFilter(filter model.BalanceFilter) (model.BalanceFilter, error) {
	if filter.UserID != nil && *filter.UserID <= 0 {
		return filter, invalidArgument("userId must be a positive integer")
	}
	if filter.CurrencyID != nil && *filter.CurrencyID <= 0 {
		return filter, invalidArgument("currencyId must be a positive integer")
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return filter, invalidArgument("unknown status %q", *filter.Status)
	}
	if filter.Offset < 0 {
		return filter, invalidArgument("offset must not be negative")
	}
	if filter.Limit <= 0 || filter.Limit > s.opts.MaxPageSize {
		filter.Limit = s.opts.MaxPageSize
	}
	return filter, nil
}

// load fetches transaction and bet totals for a set of players.
func (s *BalanceService) load(ctx context.Context, userIDs []int64, currencyID *int64) ([]model.TransactionTotal, []model.BetTotal, error) {
	txs, err := s.transactions.SumByUsers(ctx, userIDs, currencyID)
	if err != nil {
		return nil, nil, storageError("sum transactions", err)
	}

	bets, err := s.bets.SumByUsers(ctx, userIDs, currencyID)
	if err != nil {
		return nil, nil, storageError("sum bet results", err)
	}

	return txs, bets, nil
}

// singleCurrencyCode returns the currency code when a player's records sit in
// exactly one currency, and "" when they span several or none.
func (s *BalanceService) singleCurrencyCode(ctx context.Context, ids []int64) (string, error) {
	if len(ids) != 1 {
		return "", nil
	}

	currency, err := s.currencies.GetByID(ctx, ids[0])
	if err != nil {
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return "", nil
		}
		return "", storageError("get currency", err)
	}

	return currency.Code, nil
}
