// Package main is the entry point for the balance ledger service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"balance-ledger/internal/bot"
	"balance-ledger/internal/config"
	"balance-ledger/internal/handler"
	"balance-ledger/internal/middleware"
	"balance-ledger/internal/pkg/auth"
	"balance-ledger/internal/pkg/db"
	"balance-ledger/internal/pkg/lock"
	"balance-ledger/internal/pkg/ratelimit"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/server"
	"balance-ledger/internal/service"
)

func main() {
	configPath := flag.String("config", "config", "directory containing config.yaml")
	tokenFor := flag.Int64("token", 0, "print a signed token for this user id and exit")
	role := flag.String("role", auth.RolePlayer, "role embedded in the token printed by -token")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg)

	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token manager")
	}

	if *tokenFor > 0 {
		token, err := tokens.Generate(*tokenFor, *role)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to sign token")
		}
		fmt.Println(token)
		return
	}

	log.Info().Str("env", cfg.App.Env).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, dbPool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	currencyRepo := repository.NewCurrencyRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	betRepo := repository.NewBetResultRepository(dbPool.Pool)
	houseRepo := repository.NewHouseRepository(dbPool.Pool)

	// Services
	balanceService := service.NewBalanceService(txRepo, betRepo, userRepo, currencyRepo, service.BalanceOptions{
		BatchSize:        cfg.Balance.BatchSize,
		BatchConcurrency: cfg.Balance.BatchConcurrency,
		MaxPageSize:      cfg.Balance.MaxPageSize,
	})
	houseService := service.NewHouseService(houseRepo, currencyRepo)
	rankingService := service.NewRankingService(betRepo, cfg.App.Location())
	ledgerService := service.NewLedgerService(
		txRepo, betRepo, houseRepo, userRepo, currencyRepo,
		lock.NewUserLock(), 5*time.Second,
	)

	var limiter middleware.Allower
	if cfg.Redis.Addr != "" {
		redisClient, err := ratelimit.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		limiter = ratelimit.NewLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	} else {
		log.Warn().Msg("redis.addr not set, rate limiting disabled")
	}

	precision := cfg.Balance.DisplayPrecision
	srv := server.New(server.Dependencies{
		Config:  cfg,
		DB:      dbPool,
		Tokens:  tokens,
		Limiter: limiter,
		Balance: handler.NewBalanceHandler(balanceService, houseService, rankingService, precision),
		Ledger:  handler.NewLedgerHandler(ledgerService, precision),
	})

	var adminBot *bot.Bot
	if cfg.Bot.Enabled {
		adminBot, err = bot.New(&bot.Dependencies{
			Config:   cfg,
			Balances: balanceService,
			House:    houseService,
			Reviewer: ledgerService,
			Ranking:  rankingService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		go adminBot.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	if adminBot != nil {
		adminBot.Stop()
	}
	if err := srv.Stop(context.Background()); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown incomplete")
	}
	log.Info().Msg("Service stopped gracefully")
}

// setupLogger applies the configured level and switches to JSON output in
// production.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.App.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
