package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

// Amount columns use NUMERIC(20,2) so sums stay exact; the aggregator
// reads them back as text and parses into decimal.Decimal.
var migrations = []migration{
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				username VARCHAR(255) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "currencies table",
		sql: `
			CREATE TABLE IF NOT EXISTS currencies (
				id BIGSERIAL PRIMARY KEY,
				code VARCHAR(10) NOT NULL UNIQUE,
				name VARCHAR(100) NOT NULL DEFAULT '',
				decimal_places INT NOT NULL DEFAULT 2
			);
		`,
	},
	{
		name: "transactions table",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				type VARCHAR(32) NOT NULL,
				amount NUMERIC(20,2) NOT NULL CHECK (amount >= 0),
				status VARCHAR(16) NOT NULL DEFAULT 'pending',
				currency_id BIGINT NOT NULL REFERENCES currencies(id),
				note TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_user_currency ON transactions(user_id, currency_id);
			CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
		`,
	},
	{
		name: "bet_results table",
		sql: `
			CREATE TABLE IF NOT EXISTS bet_results (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				game_id VARCHAR(64) NOT NULL,
				currency_id BIGINT NOT NULL REFERENCES currencies(id),
				bet_amount NUMERIC(20,2) NOT NULL DEFAULT 0,
				bet_status VARCHAR(16) NOT NULL DEFAULT 'pending',
				win_amount NUMERIC(20,2) NOT NULL DEFAULT 0,
				loss_amount NUMERIC(20,2) NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_bet_results_user_currency ON bet_results(user_id, currency_id);
			CREATE INDEX IF NOT EXISTS idx_bet_results_time ON bet_results(created_at);
		`,
	},
	{
		name: "admin_main_balance table",
		sql: `
			CREATE TABLE IF NOT EXISTS admin_main_balance (
				id BIGSERIAL PRIMARY KEY,
				type VARCHAR(32) NOT NULL,
				amount NUMERIC(20,2) NOT NULL CHECK (amount >= 0),
				status VARCHAR(16) NOT NULL DEFAULT 'approved',
				currency_id BIGINT NOT NULL REFERENCES currencies(id),
				note TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_admin_main_balance_currency ON admin_main_balance(currency_id);
		`,
	},
}

// Migrate creates the ledger schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
