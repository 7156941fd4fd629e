// Package db provides PostgreSQL connection management and schema migrations.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"balance-ledger/internal/config"
)

// Pool wraps pgxpool.Pool with lifecycle logging.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new PostgreSQL connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.PoolSize)
	poolConfig.MinConns = int32(cfg.PoolSize / 4)
	if poolConfig.MinConns < 1 {
		poolConfig.MinConns = 1
	}

	poolConfig.ConnConfig.ConnectTimeout = orDefault(cfg.ConnectTimeout, 10*time.Second)
	poolConfig.MaxConnLifetime = orDefault(cfg.MaxConnLifetime, time.Hour)
	poolConfig.MaxConnIdleTime = orDefault(cfg.MaxConnIdleTime, 30*time.Minute)
	poolConfig.HealthCheckPeriod = 30 * time.Second
	if cfg.SlowQueryThreshold > 0 {
		poolConfig.ConnConfig.Tracer = &slowQueryTracer{threshold: cfg.SlowQueryThreshold}
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("pool_size", cfg.PoolSize).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")

	return &Pool{Pool: pool}, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// Close closes the connection pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("PostgreSQL connection pool closed")
	}
}

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// slowQueryTracer logs queries that run longer than threshold.
type slowQueryTracer struct {
	threshold time.Duration
}

func (t *slowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL})
}

func (t *slowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(start.at)
	if elapsed < t.threshold {
		return
	}

	log.Warn().
		Dur("elapsed", elapsed).
		Str("command", data.CommandTag.String()).
		Err(data.Err).
		Str("sql", compactSQL(start.sql)).
		Msg("Slow query")
}

// compactSQL collapses whitespace so multi-line queries log on one line.
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
