package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"balance-ledger/internal/model"
	"balance-ledger/internal/service"
)

// Amounts leave the API as strings rounded half up to the
// display precision; internal sums stay exact.

// BalanceView is the JSON form of a BalanceSummary.
type BalanceView struct {
	UserID              int64  `json:"userId"`
	CurrencyCode        string `json:"currencyCode"`
	CurrentBalance      string `json:"currentBalance"`
	TotalDeposits       string `json:"totalDeposits"`
	TotalWithdrawals    string `json:"totalWithdrawals"`
	TotalWins           string `json:"totalWins"`
	TotalLosses         string `json:"totalLosses"`
	PendingDeposits     string `json:"pendingDeposits"`
	PendingWithdrawals  string `json:"pendingWithdrawals"`
	ApprovedDeposits    string `json:"approvedDeposits"`
	ApprovedWithdrawals string `json:"approvedWithdrawals"`
	TotalBonuses        string `json:"totalBonuses"`
}

// HouseView is the JSON form of a HouseSummary.
type HouseView struct {
	CurrencyCode    string `json:"currencyCode"`
	CurrentBalance  string `json:"currentBalance"`
	AdminDeposits   string `json:"adminDeposits"`
	PlayerDeposits  string `json:"playerDeposits"`
	Promotions      string `json:"promotions"`
	PlayerWithdraws string `json:"playerWithdraws"`
	AdminWithdraws  string `json:"adminWithdraws"`
	PendingIn       string `json:"pendingIn"`
	PendingOut      string `json:"pendingOut"`
}

// RankView is one leaderboard entry.
type RankView struct {
	Rank      int    `json:"rank"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	NetProfit string `json:"netProfit"`
}

// LeaderboardView is the JSON form of a Leaderboard.
type LeaderboardView struct {
	Date    string     `json:"date"`
	Winners []RankView `json:"winners"`
	Losers  []RankView `json:"losers"`
}

// TransactionView is the JSON form of a Transaction.
type TransactionView struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Type       string    `json:"type"`
	Amount     string    `json:"amount"`
	Status     string    `json:"status"`
	CurrencyID int64     `json:"currencyId"`
	Note       *string   `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BetResultView is the JSON form of a BetResult.
type BetResultView struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	GameID     string    `json:"gameId"`
	CurrencyID int64     `json:"currencyId"`
	BetAmount  string    `json:"betAmount"`
	BetStatus  string    `json:"betStatus"`
	WinAmount  string    `json:"winAmount"`
	LossAmount string    `json:"lossAmount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HouseRecordView is the JSON form of a HouseRecord.
type HouseRecordView struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Amount     string    `json:"amount"`
	Status     string    `json:"status"`
	CurrencyID int64     `json:"currencyId"`
	Note       *string   `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// formatter renders decimals at a fixed precision.
type formatter struct {
	places int32
}

func (f formatter) amount(d decimal.Decimal) string {
	return model.FormatAmount(d, f.places)
}

func (f formatter) balance(s *model.BalanceSummary) BalanceView {
	return BalanceView{
		UserID:              s.UserID,
		CurrencyCode:        s.CurrencyCode,
		CurrentBalance:      f.amount(s.CurrentBalance),
		TotalDeposits:       f.amount(s.TotalDeposits),
		TotalWithdrawals:    f.amount(s.TotalWithdrawals),
		TotalWins:           f.amount(s.TotalWins),
		TotalLosses:         f.amount(s.TotalLosses),
		PendingDeposits:     f.amount(s.PendingDeposits),
		PendingWithdrawals:  f.amount(s.PendingWithdrawals),
		ApprovedDeposits:    f.amount(s.ApprovedDeposits),
		ApprovedWithdrawals: f.amount(s.ApprovedWithdrawals),
		TotalBonuses:        f.amount(s.TotalBonuses),
	}
}

func (f formatter) house(h *model.HouseSummary) HouseView {
	return HouseView{
		CurrencyCode:    h.CurrencyCode,
		CurrentBalance:  f.amount(h.CurrentBalance),
		AdminDeposits:   f.amount(h.AdminDeposits),
		PlayerDeposits:  f.amount(h.PlayerDeposits),
		Promotions:      f.amount(h.Promotions),
		PlayerWithdraws: f.amount(h.PlayerWithdraws),
		AdminWithdraws:  f.amount(h.AdminWithdraws),
		PendingIn:       f.amount(h.PendingIn),
		PendingOut:      f.amount(h.PendingOut),
	}
}

func (f formatter) ranks(ranks []*model.DailyRank) []RankView {
	views := make([]RankView, len(ranks))
	for i, r := range ranks {
		views[i] = RankView{Rank: i + 1, UserID: r.UserID, Username: r.Username, NetProfit: f.amount(r.NetProfit)}
	}
	return views
}

func (f formatter) leaderboard(b *service.Leaderboard) LeaderboardView {
	return LeaderboardView{
		Date:    b.Date.Format(time.DateOnly),
		Winners: f.ranks(b.Winners),
		Losers:  f.ranks(b.Losers),
	}
}

func (f formatter) transaction(tx *model.Transaction) TransactionView {
	return TransactionView{
		ID:         tx.ID,
		UserID:     tx.UserID,
		Type:       string(tx.Type),
		Amount:     f.amount(tx.Amount),
		Status:     string(tx.Status),
		CurrencyID: tx.CurrencyID,
		Note:       tx.Note,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
	}
}

func (f formatter) betResult(b *model.BetResult) BetResultView {
	return BetResultView{
		ID:         b.ID,
		UserID:     b.UserID,
		GameID:     b.GameID,
		CurrencyID: b.CurrencyID,
		BetAmount:  f.amount(b.BetAmount),
		BetStatus:  string(b.BetStatus),
		WinAmount:  f.amount(b.WinAmount),
		LossAmount: f.amount(b.LossAmount),
		CreatedAt:  b.CreatedAt,
	}
}

func (f formatter) houseRecord(r *model.HouseRecord) HouseRecordView {
	return HouseRecordView{
		ID:         r.ID,
		Type:       string(r.Type),
		Amount:     f.amount(r.Amount),
		Status:     string(r.Status),
		CurrencyID: r.CurrencyID,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt,
	}
}
