package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"balance-ledger/internal/middleware"
	"balance-ledger/internal/model"
	"balance-ledger/internal/service"
)

// BalanceReader derives player balances.
type BalanceReader interface {
	CalculatePlayerBalance(ctx context.Context, userID int64, currencyID *int64) (*model.BalanceSummary, error)
	GetBalanceSummary(ctx context.Context, userID int64) (*model.BalanceSummary, error)
	GetCurrencyBalance(ctx context.Context, userID, currencyID int64) (*model.BalanceSummary, error)
	CalculateAllPlayerBalances(ctx context.Context, filter model.BalanceFilter) ([]*model.BalanceSummary, error)
}

// HouseReader derives the house balance.
type HouseReader interface {
	CalculateHouseBalance(ctx context.Context, currencyID *int64) (*model.HouseSummary, error)
}

// LeaderboardReader builds daily leaderboards.
type LeaderboardReader interface {
	GetLeaderboard(ctx context.Context, date *time.Time, limit int) (*service.Leaderboard, error)
	Location() *time.Location
}

// BalanceHandler serves the read side of the balance API.
type BalanceHandler struct {
	balances BalanceReader
	house    HouseReader
	ranking  LeaderboardReader
	format   formatter
}

// NewBalanceHandler creates a BalanceHandler rendering amounts with
// displayPrecision decimal places.
func NewBalanceHandler(balances BalanceReader, house HouseReader, ranking LeaderboardReader, displayPrecision int32) *BalanceHandler {
	return &BalanceHandler{
		balances: balances,
		house:    house,
		ranking:  ranking,
		format:   formatter{places: displayPrecision},
	}
}

// MyBalance handles GET /balance/my-balance for the authenticated player.
func (h *BalanceHandler) MyBalance(c *gin.Context) {
	currencyID, ok := optionalID(c, "currencyId")
	if !ok {
		return
	}

	summary, err := h.balances.CalculatePlayerBalance(c.Request.Context(), middleware.UserID(c), currencyID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.format.balance(summary), "balance retrieved")
}

// PlayerBalance handles GET /balance/player/:userId.
func (h *BalanceHandler) PlayerBalance(c *gin.Context) {
	userID, ok := positiveID(c, "userId")
	if !ok {
		return
	}
	currencyID, ok := optionalID(c, "currencyId")
	if !ok {
		return
	}

	summary, err := h.balances.CalculatePlayerBalance(c.Request.Context(), userID, currencyID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.format.balance(summary), "balance retrieved")
}

// PlayerSummary handles GET /balance/player/:userId/summary.
func (h *BalanceHandler) PlayerSummary(c *gin.Context) {
	userID, ok := positiveID(c, "userId")
	if !ok {
		return
	}

	summary, err := h.balances.GetBalanceSummary(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.format.balance(summary), "summary retrieved")
}

// CurrencyBalance handles GET /balance/player/:userId/currency/:currencyId.
func (h *BalanceHandler) CurrencyBalance(c *gin.Context) {
	userID, ok := positiveID(c, "userId")
	if !ok {
		return
	}
	currencyID, ok := positiveID(c, "currencyId")
	if !ok {
		return
	}

	summary, err := h.balances.GetCurrencyBalance(c.Request.Context(), userID, currencyID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.format.balance(summary), "balance retrieved")
}

// AllBalances handles GET /balance/all.
func (h *BalanceHandler) AllBalances(c *gin.Context) {
	var filter model.BalanceFilter
	var ok bool

	if filter.UserID, ok = optionalID(c, "userId"); !ok {
		return
	}
	if filter.CurrencyID, ok = optionalID(c, "currencyId"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := model.TransactionStatus(raw)
		if !status.Valid() {
			badRequest(c, "status must be one of pending, approved, rejected")
			return
		}
		filter.Status = &status
	}
	if filter.Limit, ok = optionalInt(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = optionalInt(c, "offset"); !ok {
		return
	}

	summaries, err := h.balances.CalculateAllPlayerBalances(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}

	views := make([]BalanceView, len(summaries))
	for i, s := range summaries {
		views[i] = h.format.balance(s)
	}
	respond(c, http.StatusOK, views, "balances retrieved")
}

// HouseBalance handles GET /balance/house.
func (h *BalanceHandler) HouseBalance(c *gin.Context) {
	currencyID, ok := optionalID(c, "currencyId")
	if !ok {
		return
	}

	summary, err := h.house.CalculateHouseBalance(c.Request.Context(), currencyID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.format.house(summary), "house balance retrieved")
}

// Leaderboard handles GET /balance/leaderboard. The date is a calendar day
// in the ranking timezone and defaults to today.
func (h *BalanceHandler) Leaderboard(c *gin.Context) {
	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, h.ranking.Location())
		if err != nil {
			badRequest(c, "date must be formatted as YYYY-MM-DD")
			return
		}
		date = &d
	}
	limit, ok := optionalInt(c, "limit")
	if !ok {
		return
	}

	board, err := h.ranking.GetLeaderboard(c.Request.Context(), date, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.format.leaderboard(board), "leaderboard retrieved")
}
