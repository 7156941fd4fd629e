package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"balance-ledger/internal/middleware"
	"balance-ledger/internal/model"
	"balance-ledger/internal/service"
)

// LedgerWriter records and transitions ledger rows.
type LedgerWriter interface {
	RecordTransaction(ctx context.Context, in service.NewTransaction) (*model.Transaction, error)
	TransitionTransaction(ctx context.Context, id int64, next model.TransactionStatus) (*model.Transaction, error)
	RecordBetResult(ctx context.Context, in service.NewBetResult) (*model.BetResult, error)
	SettleBetResult(ctx context.Context, id int64, status model.BetStatus, winAmount, lossAmount decimal.Decimal) (*model.BetResult, error)
	RecordHouseEntry(ctx context.Context, in service.NewHouseRecord) (*model.HouseRecord, error)
}

// Amounts are validated by the ledger service, so they are not marked
// required here: a missing amount decodes as zero and is rejected there.

// CreateTransactionRequest is the body of POST /transactions.
type CreateTransactionRequest struct {
	UserID     int64                   `json:"userId" binding:"required"`
	Type       model.TransactionType   `json:"type" binding:"required"`
	Amount     decimal.Decimal         `json:"amount"`
	Status     model.TransactionStatus `json:"status"`
	CurrencyID int64                   `json:"currencyId" binding:"required"`
	Note       *string                 `json:"note"`
}

// UpdateStatusRequest is the body of PATCH /transactions/:id/status.
type UpdateStatusRequest struct {
	Status model.TransactionStatus `json:"status" binding:"required"`
}

// CreateBetResultRequest is the body of POST /bet-results.
type CreateBetResultRequest struct {
	UserID     int64           `json:"userId" binding:"required"`
	GameID     string          `json:"gameId" binding:"required"`
	CurrencyID int64           `json:"currencyId" binding:"required"`
	BetAmount  decimal.Decimal `json:"betAmount"`
	BetStatus  model.BetStatus `json:"betStatus" binding:"required"`
	WinAmount  decimal.Decimal `json:"winAmount"`
	LossAmount decimal.Decimal `json:"lossAmount"`
}

// SettleBetRequest is the body of PATCH /bet-results/:id/settle.
type SettleBetRequest struct {
	Status     model.BetStatus `json:"status" binding:"required"`
	WinAmount  decimal.Decimal `json:"winAmount"`
	LossAmount decimal.Decimal `json:"lossAmount"`
}

// CreateHouseRecordRequest is the body of POST /house/records.
type CreateHouseRecordRequest struct {
	Type       model.HouseRecordType   `json:"type" binding:"required"`
	Amount     decimal.Decimal         `json:"amount"`
	Status     model.TransactionStatus `json:"status"`
	CurrencyID int64                   `json:"currencyId" binding:"required"`
	Note       *string                 `json:"note"`
}

// LedgerHandler serves the admin write endpoints.
type LedgerHandler struct {
	ledger LedgerWriter
	format formatter
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(ledger LedgerWriter, displayPrecision int32) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, format: formatter{places: displayPrecision}}
}

// CreateTransaction handles POST /transactions.
func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	tx, err := h.ledger.RecordTransaction(c.Request.Context(), service.NewTransaction{
		UserID:     req.UserID,
		Type:       req.Type,
		Amount:     req.Amount,
		Status:     req.Status,
		CurrencyID: req.CurrencyID,
		Note:       req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}

	log.Info().
		Int64("admin_id", middleware.UserID(c)).
		Int64("transaction_id", tx.ID).
		Int64("user_id", tx.UserID).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Msg("Transaction recorded")

	respond(c, http.StatusCreated, h.format.transaction(tx), "transaction created")
}

// UpdateTransactionStatus handles PATCH /transactions/:id/status.
func (h *LedgerHandler) UpdateTransactionStatus(c *gin.Context) {
	id, ok := positiveID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	tx, err := h.ledger.TransitionTransaction(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}

	log.Info().
		Int64("admin_id", middleware.UserID(c)).
		Int64("transaction_id", tx.ID).
		Str("status", string(tx.Status)).
		Msg("Transaction status updated")

	respond(c, http.StatusOK, h.format.transaction(tx), "transaction updated")
}

// CreateBetResult handles POST /bet-results.
func (h *LedgerHandler) CreateBetResult(c *gin.Context) {
	var req CreateBetResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	b, err := h.ledger.RecordBetResult(c.Request.Context(), service.NewBetResult{
		UserID:     req.UserID,
		GameID:     req.GameID,
		CurrencyID: req.CurrencyID,
		BetAmount:  req.BetAmount,
		BetStatus:  req.BetStatus,
		WinAmount:  req.WinAmount,
		LossAmount: req.LossAmount,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, h.format.betResult(b), "bet result created")
}

// SettleBetResult handles PATCH /bet-results/:id/settle.
func (h *LedgerHandler) SettleBetResult(c *gin.Context) {
	id, ok := positiveID(c, "id")
	if !ok {
		return
	}
	var req SettleBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	b, err := h.ledger.SettleBetResult(c.Request.Context(), id, req.Status, req.WinAmount, req.LossAmount)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.format.betResult(b), "bet result settled")
}

// CreateHouseRecord handles POST /house/records.
func (h *LedgerHandler) CreateHouseRecord(c *gin.Context) {
	var req CreateHouseRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	rec, err := h.ledger.RecordHouseEntry(c.Request.Context(), service.NewHouseRecord{
		Type:       req.Type,
		Amount:     req.Amount,
		Status:     req.Status,
		CurrencyID: req.CurrencyID,
		Note:       req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}

	log.Info().
		Int64("admin_id", middleware.UserID(c)).
		Int64("record_id", rec.ID).
		Str("type", string(rec.Type)).
		Str("amount", rec.Amount.String()).
		Msg("House record appended")

	respond(c, http.StatusCreated, h.format.houseRecord(rec), "house record created")
}
