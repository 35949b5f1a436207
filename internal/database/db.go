// Package database persists emitted signals to PostgreSQL so the feed
// survives restarts. The engine itself has no durability requirement;
// this is the delivery-side store behind the signal feed API.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"smc-signal-engine/internal/logging"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
	log  *logging.Logger
}

// NewDB creates a connection pool from a postgres URL and verifies it.
func NewDB(url string, log *logging.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log = log.WithComponent("database")
	log.Info("connected to PostgreSQL")

	return &DB{Pool: pool, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info("database connection closed")
	}
}

// RunMigrations creates the signals schema when missing.
func (db *DB) RunMigrations(ctx context.Context) error {
	db.log.Info("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id UUID PRIMARY KEY,
			instrument VARCHAR(20) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			direction VARCHAR(4) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) NOT NULL,
			take_profit_1 DECIMAL(20, 8) NOT NULL,
			take_profit_2 DECIMAL(20, 8) NOT NULL,
			take_profit_3 DECIMAL(20, 8) NOT NULL,
			risk_reward_ratio DECIMAL(10, 4) NOT NULL,
			confidence INT NOT NULL,
			confirmations JSONB NOT NULL DEFAULT '[]',
			analysis_text TEXT,
			session_quality VARCHAR(64),
			generated_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_instrument ON signals(instrument)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_generated_at ON signals(generated_at DESC)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.log.Info("database migrations complete")
	return nil
}
