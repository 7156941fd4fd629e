// Package server wires the HTTP routes of the balance API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"balance-ledger/internal/config"
	"balance-ledger/internal/handler"
	"balance-ledger/internal/middleware"
	"balance-ledger/internal/pkg/auth"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the router needs.
type Dependencies struct {
	Config  *config.Config
	DB      Pinger
	Tokens  middleware.TokenValidator
	Limiter middleware.Allower // nil disables rate limiting
	Balance *handler.BalanceHandler
	Ledger  *handler.LedgerHandler
}

// Server is the HTTP front end of the ledger.
type Server struct {
	http *http.Server
	deps Dependencies
}

// New creates a Server with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{deps: deps}
	s.http = &http.Server{
		Addr:         deps.Config.Server.Addr(),
		Handler:      s.routes(),
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())

	// Every request is counted, including ones Auth later rejects. Identify
	// runs first so valid tokens are limited per user instead of per IP.
	r.Use(middleware.Identify(s.deps.Tokens))
	if s.deps.Limiter != nil {
		r.Use(middleware.RateLimit(s.deps.Limiter))
	}

	r.GET("/healthz", s.health)

	authed := middleware.Auth(s.deps.Tokens)
	adminOnly := middleware.RequireRole(auth.RoleAdmin)

	b := s.deps.Balance
	balance := r.Group("/balance", authed)
	{
		balance.GET("/my-balance", b.MyBalance)

		admins := balance.Group("", adminOnly)
		admins.GET("/player/:userId", b.PlayerBalance)
		admins.GET("/player/:userId/summary", b.PlayerSummary)
		admins.GET("/player/:userId/currency/:currencyId", b.CurrencyBalance)
		admins.GET("/all", b.AllBalances)
		admins.GET("/house", b.HouseBalance)
		admins.GET("/leaderboard", b.Leaderboard)
	}

	l := s.deps.Ledger
	writes := r.Group("", authed)
	writes.Use(adminOnly)
	{
		writes.POST("/transactions", l.CreateTransaction)
		writes.PATCH("/transactions/:id/status", l.UpdateTransactionStatus)
		writes.POST("/bet-results", l.CreateBetResult)
		writes.PATCH("/bet-results/:id/settle", l.SettleBetResult)
		writes.POST("/house/records", l.CreateHouseRecord)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.Response{Status: false, Message: "route not found"})
	})

	return r
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.DB.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, handler.Response{Status: false, Message: "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, handler.Response{Status: true, Message: "ok"})
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("HTTP server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.deps.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info().Msg("HTTP server stopping")
	return s.http.Shutdown(ctx)
}
