package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"balance-ledger/internal/model"
	"balance-ledger/internal/repository"
)

// memStore is an in-memory ledger that answers the same grouped queries the
// postgres repositories do.
type memStore struct {
	mu         sync.Mutex
	users      map[int64]bool
	currencies map[int64]*model.Currency
	txs        []*model.Transaction
	bets       []*model.BetResult
	house      []*model.HouseRecord

	failSumTx    error
	failSumBets  error
	failList     error
	failCurrency error

	sumCalls atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[int64]bool),
		currencies: map[int64]*model.Currency{1: {ID: 1, Code: "USD", Name: "US Dollar", DecimalPlaces: 2}},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (m *memStore) addCurrency(id int64, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currencies[id] = &model.Currency{ID: id, Code: code, Name: code, DecimalPlaces: 2}
}

func (m *memStore) addTx(userID int64, typ model.TransactionType, amount string, status model.TransactionStatus, currencyID int64) *model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = true
	tx := &model.Transaction{
		ID:         int64(len(m.txs) + 1),
		UserID:     userID,
		Type:       typ,
		Amount:     dec(amount),
		Status:     status,
		CurrencyID: currencyID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.txs = append(m.txs, tx)
	return tx
}

func (m *memStore) addBet(userID int64, status model.BetStatus, win, loss string, currencyID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = true
	m.bets = append(m.bets, &model.BetResult{
		ID:         int64(len(m.bets) + 1),
		UserID:     userID,
		GameID:     "slot",
		CurrencyID: currencyID,
		BetAmount:  dec("10"),
		BetStatus:  status,
		WinAmount:  dec(win),
		LossAmount: dec(loss),
		CreatedAt:  time.Now(),
	})
}

func (m *memStore) addHouse(typ model.HouseRecordType, amount string, status model.TransactionStatus, currencyID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.house = append(m.house, &model.HouseRecord{
		ID:         int64(len(m.house) + 1),
		Type:       typ,
		Amount:     dec(amount),
		Status:     status,
		CurrencyID: currencyID,
	})
}

func (m *memStore) track() func() {
	n := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return func() { m.inFlight.Add(-1) }
}

// txAggregator and betAggregator adapt memStore to the two SumByUsers shapes.
type txAggregator struct{ *memStore }

type betAggregator struct{ *memStore }

func (a txAggregator) SumByUsers(ctx context.Context, userIDs []int64, currencyID *int64) ([]model.TransactionTotal, error) {
	defer a.track()()
	a.sumCalls.Add(1)
	if a.failSumTx != nil {
		return nil, a.failSumTx
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	want := idSet(userIDs)
	type key struct {
		user, currency int64
		typ            model.TransactionType
		status         model.TransactionStatus
	}
	sums := make(map[key]decimal.Decimal)
	for _, tx := range a.txs {
		if !want[tx.UserID] || tx.Status == model.StatusRejected {
			continue
		}
		if currencyID != nil && tx.CurrencyID != *currencyID {
			continue
		}
		k := key{tx.UserID, tx.CurrencyID, tx.Type, tx.Status}
		sums[k] = sums[k].Add(tx.Amount)
	}

	totals := make([]model.TransactionTotal, 0, len(sums))
	for k, v := range sums {
		totals = append(totals, model.TransactionTotal{UserID: k.user, CurrencyID: k.currency, Type: k.typ, Status: k.status, Amount: v})
	}
	return totals, nil
}

func (a betAggregator) SumByUsers(ctx context.Context, userIDs []int64, currencyID *int64) ([]model.BetTotal, error) {
	a.sumCalls.Add(1)
	if a.failSumBets != nil {
		return nil, a.failSumBets
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	want := idSet(userIDs)
	type key struct {
		user, currency int64
		status         model.BetStatus
	}
	wins := make(map[key]decimal.Decimal)
	losses := make(map[key]decimal.Decimal)
	for _, b := range a.bets {
		if !want[b.UserID] {
			continue
		}
		if currencyID != nil && b.CurrencyID != *currencyID {
			continue
		}
		k := key{b.UserID, b.CurrencyID, b.BetStatus}
		wins[k] = wins[k].Add(b.WinAmount)
		losses[k] = losses[k].Add(b.LossAmount)
	}

	totals := make([]model.BetTotal, 0, len(wins))
	for k := range wins {
		totals = append(totals, model.BetTotal{UserID: k.user, CurrencyID: k.currency, BetStatus: k.status, WinAmount: wins[k], LossAmount: losses[k]})
	}
	return totals, nil
}

func (m *memStore) ListPlayerIDs(ctx context.Context, filter model.BalanceFilter) ([]int64, error) {
	if m.failList != nil {
		return nil, m.failList
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id := range m.users {
		if filter.UserID != nil && id != *filter.UserID {
			continue
		}
		if filter.CurrencyID != nil && !m.holdsCurrency(id, *filter.CurrencyID) {
			continue
		}
		if filter.Status != nil && !m.hasStatus(id, *filter.Status, filter.CurrencyID) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if filter.Offset >= len(ids) {
		return nil, nil
	}
	ids = ids[filter.Offset:]
	if filter.Limit < len(ids) {
		ids = ids[:filter.Limit]
	}
	return ids, nil
}

func (m *memStore) holdsCurrency(userID, currencyID int64) bool {
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.CurrencyID == currencyID && tx.Status != model.StatusRejected {
			return true
		}
	}
	for _, b := range m.bets {
		if b.UserID == userID && b.CurrencyID == currencyID {
			return true
		}
	}
	return false
}

func (m *memStore) hasStatus(userID int64, status model.TransactionStatus, currencyID *int64) bool {
	for _, tx := range m.txs {
		if tx.UserID != userID || tx.Status != status {
			continue
		}
		if currencyID == nil || tx.CurrencyID == *currencyID {
			return true
		}
	}
	return false
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*model.Currency, error) {
	if m.failCurrency != nil {
		return nil, m.failCurrency
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.currencies[id]
	if !ok {
		return nil, repository.ErrCurrencyNotFound
	}
	return c, nil
}

func (m *memStore) SumByCurrency(ctx context.Context, currencyID *int64) ([]model.HouseTotal, error) {
	if m.failSumTx != nil {
		return nil, m.failSumTx
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct {
		currency int64
		typ      model.HouseRecordType
		status   model.TransactionStatus
	}
	sums := make(map[key]decimal.Decimal)
	for _, r := range m.house {
		if r.Status == model.StatusRejected {
			continue
		}
		if currencyID != nil && r.CurrencyID != *currencyID {
			continue
		}
		k := key{r.CurrencyID, r.Type, r.Status}
		sums[k] = sums[k].Add(r.Amount)
	}

	totals := make([]model.HouseTotal, 0, len(sums))
	for k, v := range sums {
		totals = append(totals, model.HouseTotal{CurrencyID: k.currency, Type: k.typ, Status: k.status, Amount: v})
	}
	return totals, nil
}

func (m *memStore) balanceService(opts BalanceOptions) *BalanceService {
	return NewBalanceService(txAggregator{m}, betAggregator{m}, m, m, opts)
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func int64Ptr(v int64) *int64 {
	return &v
}
