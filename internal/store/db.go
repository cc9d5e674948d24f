// Package store is the Postgres-backed persistence layer: candles,
// symbols, and signals, plus an optional Redis layer for the symbol
// cache's enabled flags that falls back to memory when Redis is
// unavailable. Cooldown and metrics state are not stored here.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"signalforge/internal/logging"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DB wraps the connection pool shared by every repository method in
// this package.
type DB struct {
	Pool *pgxpool.Pool
	log  *logging.Logger
}

// Connect opens a pool, tunes it, and verifies connectivity.
func Connect(ctx context.Context, cfg Config, log *logging.Logger) (*DB, error) {
	if log == nil {
		log = logging.Default()
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.WithComponent("store").Info("connected to postgres", "database", cfg.Database)
	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.WithComponent("store").Info("connection pool closed")
	}
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// RunMigrations creates the schema this engine actually needs:
// symbols, candles, and signals — not the teacher's trading-platform
// schema (trades/orders/positions/strategy_configs/...).
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS symbols (
			id SERIAL PRIMARY KEY,
			name VARCHAR(20) NOT NULL UNIQUE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS candles (
			symbol VARCHAR(20) NOT NULL,
			interval VARCHAR(10) NOT NULL,
			open_time BIGINT NOT NULL,
			close_time BIGINT NOT NULL,
			open DECIMAL(20, 8) NOT NULL,
			high DECIMAL(20, 8) NOT NULL,
			low DECIMAL(20, 8) NOT NULL,
			close DECIMAL(20, 8) NOT NULL,
			volume DECIMAL(30, 8) NOT NULL,
			quote_volume DECIMAL(30, 8) NOT NULL,
			trade_count INT NOT NULL DEFAULT 0,
			taker_buy_base DECIMAL(30, 8) NOT NULL DEFAULT 0,
			taker_buy_quote DECIMAL(30, 8) NOT NULL DEFAULT 0,
			is_closed BOOLEAN NOT NULL DEFAULT TRUE,
			PRIMARY KEY (symbol, interval, open_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candles_close_time ON candles(symbol, interval, close_time)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id BIGSERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			interval VARCHAR(10) NOT NULL,
			direction VARCHAR(5) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) NOT NULL,
			take_profit DECIMAL(20, 8) NOT NULL,
			take_profit_2 DECIMAL(20, 8),
			take_profit_3 DECIMAL(20, 8),
			confidence DECIMAL(5, 4) NOT NULL,
			wyckoff_phase VARCHAR(20),
			elliott_waves INT,
			indicators JSONB,
			rationale TEXT[],
			atr_snapshot DECIMAL(20, 8),
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			notifier_msg_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_interval ON signals(symbol, interval)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	db.log.WithComponent("store").Info("migrations complete", "count", len(migrations))
	return nil
}
