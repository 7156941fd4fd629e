package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"balance-ledger/internal/model"
)

func zeroSummary(userID int64) *model.BalanceSummary {
	return &model.BalanceSummary{
		UserID:              userID,
		CurrentBalance:      decimal.Zero,
		TotalDeposits:       decimal.Zero,
		TotalWithdrawals:    decimal.Zero,
		TotalWins:           decimal.Zero,
		TotalLosses:         decimal.Zero,
		PendingDeposits:     decimal.Zero,
		PendingWithdrawals:  decimal.Zero,
		ApprovedDeposits:    decimal.Zero,
		ApprovedWithdrawals: decimal.Zero,
		TotalBonuses:        decimal.Zero,
	}
}

// foldBalance folds grouped transaction and bet totals into one player's
// summary. Rows belonging to other users are skipped. Sums stay exact;
// rounding is left to presentation.
//
// Rejected transactions contribute nothing. Pending deposits and withdrawals
// only feed the pending fields. Bet totals count for win and loss; pending
// and cancelled bets contribute nothing.
func foldBalance(userID int64, txs []model.TransactionTotal, bets []model.BetTotal) *model.BalanceSummary {
	s := zeroSummary(userID)

	for _, t := range txs {
		if t.UserID != userID {
			continue
		}
		switch t.Status {
		case model.StatusApproved:
			switch {
			case t.Type == model.TxTypeDeposit:
				s.ApprovedDeposits = s.ApprovedDeposits.Add(t.Amount)
			case t.Type == model.TxTypeWithdraw:
				s.ApprovedWithdrawals = s.ApprovedWithdrawals.Add(t.Amount)
			case t.Type.IsBonus():
				s.TotalBonuses = s.TotalBonuses.Add(t.Amount)
			}
		case model.StatusPending:
			switch t.Type {
			case model.TxTypeDeposit:
				s.PendingDeposits = s.PendingDeposits.Add(t.Amount)
			case model.TxTypeWithdraw:
				s.PendingWithdrawals = s.PendingWithdrawals.Add(t.Amount)
			}
		}
	}

	for _, b := range bets {
		if b.UserID != userID {
			continue
		}
		switch b.BetStatus {
		case model.BetWin:
			s.TotalWins = s.TotalWins.Add(b.WinAmount)
		case model.BetLoss:
			s.TotalLosses = s.TotalLosses.Add(b.LossAmount)
		}
	}

	s.TotalDeposits = s.ApprovedDeposits
	s.TotalWithdrawals = s.ApprovedWithdrawals
	s.CurrentBalance = s.TotalDeposits.
		Add(s.TotalWins).
		Sub(s.TotalWithdrawals).
		Sub(s.TotalLosses)

	return s
}

// foldHouse folds grouped house totals into a house summary.
func foldHouse(totals []model.HouseTotal) *model.HouseSummary {
	h := &model.HouseSummary{
		CurrentBalance:  decimal.Zero,
		AdminDeposits:   decimal.Zero,
		PlayerDeposits:  decimal.Zero,
		Promotions:      decimal.Zero,
		PlayerWithdraws: decimal.Zero,
		AdminWithdraws:  decimal.Zero,
		PendingIn:       decimal.Zero,
		PendingOut:      decimal.Zero,
	}

	for _, t := range totals {
		switch t.Status {
		case model.StatusApproved:
			switch t.Type {
			case model.HouseAdminDeposit:
				h.AdminDeposits = h.AdminDeposits.Add(t.Amount)
			case model.HousePlayerDeposit:
				h.PlayerDeposits = h.PlayerDeposits.Add(t.Amount)
			case model.HousePromotion:
				h.Promotions = h.Promotions.Add(t.Amount)
			case model.HousePlayerWithdraw:
				h.PlayerWithdraws = h.PlayerWithdraws.Add(t.Amount)
			case model.HouseAdminWithdraw:
				h.AdminWithdraws = h.AdminWithdraws.Add(t.Amount)
			}
		case model.StatusPending:
			if !t.Type.Valid() {
				continue
			}
			if t.Type.Inflow() {
				h.PendingIn = h.PendingIn.Add(t.Amount)
			} else {
				h.PendingOut = h.PendingOut.Add(t.Amount)
			}
		}
	}

	h.CurrentBalance = h.AdminDeposits.
		Add(h.PlayerDeposits).
		Sub(h.Promotions).
		Sub(h.PlayerWithdraws).
		Sub(h.AdminWithdraws)

	return h
}

// currencyIDs returns the distinct currencies present in a player's totals, sorted.
func currencyIDs(txs []model.TransactionTotal, bets []model.BetTotal) []int64 {
	seen := make(map[int64]struct{})
	for _, t := range txs {
		seen[t.CurrencyID] = struct{}{}
	}
	for _, b := range bets {
		seen[b.CurrencyID] = struct{}{}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func groupTransactions(txs []model.TransactionTotal) map[int64][]model.TransactionTotal {
	out := make(map[int64][]model.TransactionTotal)
	for _, t := range txs {
		out[t.UserID] = append(out[t.UserID], t)
	}
	return out
}

func groupBets(bets []model.BetTotal) map[int64][]model.BetTotal {
	out := make(map[int64][]model.BetTotal)
	for _, b := range bets {
		out[b.UserID] = append(out[b.UserID], b)
	}
	return out
}
