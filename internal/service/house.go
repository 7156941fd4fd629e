package service

import (
	"context"
	"errors"
	"sort"

	"balance-ledger/internal/model"
	"balance-ledger/internal/repository"
)

// HouseAggregator sums house ledger records per currency, type and status.
type HouseAggregator interface {
	SumByCurrency(ctx context.Context, currencyID *int64) ([]model.HouseTotal, error)
}

// HouseService computes the operator-side balance from the house ledger.
type HouseService struct {
	house      HouseAggregator
	currencies CurrencyFinder
}

// NewHouseService creates a new HouseService instance.
func NewHouseService(house HouseAggregator, currencies CurrencyFinder) *HouseService {
	return &HouseService{house: house, currencies: currencies}
}

// CalculateHouseBalance folds approved house records into a summary. Pending
// records are reported separately and rejected ones are ignored.
func (s *HouseService) CalculateHouseBalance(ctx context.Context, currencyID *int64) (*model.HouseSummary, error) {
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

	totals, err := s.house.SumByCurrency(ctx, currencyID)
	if err != nil {
		return nil, storageError("sum house records", err)
	}

	summary := foldHouse(totals)
	if currencyID == nil {
		if ids := houseCurrencyIDs(totals); len(ids) == 1 {
			currency, err := s.currencies.GetByID(ctx, ids[0])
			switch {
			case err == nil:
				code = currency.Code
			case !errors.Is(err, repository.ErrCurrencyNotFound):
				return nil, storageError("get currency", err)
			}
		}
	}
	summary.CurrencyCode = code

	return summary, nil
}

func houseCurrencyIDs(totals []model.HouseTotal) []int64 {
	seen := make(map[int64]struct{})
	for _, t := range totals {
		seen[t.CurrencyID] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
