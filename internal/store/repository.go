package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"signalforge/internal/logging"
	"signalforge/internal/market"
)

// Repository provides every data-access operation the engine needs.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// isDuplicateKey reports whether err is a Postgres unique-violation
// (23505), which InsertCandle treats as benign — the candle is already
// on disk from an earlier, possibly-retried write.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// InsertCandle upserts one closed candle. Implements aggregator.Store.
func (r *Repository) InsertCandle(ctx context.Context, c market.Candle) error {
	const query = `
		INSERT INTO candles (symbol, interval, open_time, close_time, open, high, low, close,
			volume, quote_volume, trade_count, taker_buy_base, taker_buy_quote, is_closed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (symbol, interval, open_time) DO UPDATE SET
			close_time = EXCLUDED.close_time,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			quote_volume = EXCLUDED.quote_volume,
			trade_count = EXCLUDED.trade_count,
			taker_buy_base = EXCLUDED.taker_buy_base,
			taker_buy_quote = EXCLUDED.taker_buy_quote,
			is_closed = EXCLUDED.is_closed
	`
	_, err := r.db.Pool.Exec(ctx, query,
		c.Symbol, c.Interval, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close,
		c.Volume, c.QuoteVolume, c.TradeCount, c.TakerBuyBase, c.TakerBuyQuote, c.IsClosed,
	)
	if err != nil && isDuplicateKey(err) {
		return nil
	}
	return err
}

// InsertCandlesBulk writes a historical backfill in one batch.
// Implements aggregator.Store.
func (r *Repository) InsertCandlesBulk(ctx context.Context, candles []market.Candle) error {
	batch := &pgx.Batch{}
	const query = `
		INSERT INTO candles (symbol, interval, open_time, close_time, open, high, low, close,
			volume, quote_volume, trade_count, taker_buy_base, taker_buy_quote, is_closed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (symbol, interval, open_time) DO NOTHING
	`
	for _, c := range candles {
		batch.Queue(query,
			c.Symbol, c.Interval, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close,
			c.Volume, c.QuoteVolume, c.TradeCount, c.TakerBuyBase, c.TakerBuyQuote, c.IsClosed,
		)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range candles {
		if _, err := br.Exec(); err != nil && !isDuplicateKey(err) {
			return fmt.Errorf("bulk insert candle: %w", err)
		}
	}
	return nil
}

// GetCandles returns the most recent `limit` closed candles for a key,
// oldest first.
func (r *Repository) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	const query = `
		SELECT symbol, interval, open_time, close_time, open, high, low, close,
			volume, quote_volume, trade_count, taker_buy_base, taker_buy_quote, is_closed
		FROM candles
		WHERE symbol = $1 AND interval = $2
		ORDER BY open_time DESC
		LIMIT $3
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.Symbol, &c.Interval, &c.OpenTime, &c.CloseTime, &c.Open, &c.High,
			&c.Low, &c.Close, &c.Volume, &c.QuoteVolume, &c.TradeCount, &c.TakerBuyBase,
			&c.TakerBuyQuote, &c.IsClosed); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// InsertSignal persists a signal and returns its generated id.
// Implements fuser.SignalStore.
func (r *Repository) InsertSignal(ctx context.Context, s *market.Signal) (int64, error) {
	indicatorsJSON, err := json.Marshal(s.Indicators)
	if err != nil {
		return 0, fmt.Errorf("marshal indicators: %w", err)
	}
	const query = `
		INSERT INTO signals (symbol, interval, direction, entry_price, stop_loss, take_profit,
			take_profit_2, take_profit_3, confidence, wyckoff_phase, elliott_waves, indicators,
			rationale, atr_snapshot, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id
	`
	var id int64
	err = r.db.Pool.QueryRow(ctx, query,
		s.Symbol, s.Interval, string(s.Direction), s.EntryPrice, s.StopLoss, s.TakeProfit,
		s.TakeProfit2, s.TakeProfit3, s.Confidence, s.WyckoffPhase, s.ElliottWaves, indicatorsJSON,
		s.Rationale, s.ATRSnapshot, string(s.Status), s.CreatedAt,
	).Scan(&id)
	return id, err
}

// GetRecentSignals returns the most recent signals across all symbols,
// newest first.
func (r *Repository) GetRecentSignals(ctx context.Context, limit int) ([]market.Signal, error) {
	const query = `
		SELECT id, symbol, interval, direction, entry_price, stop_loss, take_profit,
			take_profit_2, take_profit_3, confidence, wyckoff_phase, elliott_waves,
			rationale, atr_snapshot, status, created_at
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Signal
	for rows.Next() {
		var s market.Signal
		var direction, status string
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Interval, &direction, &s.EntryPrice, &s.StopLoss,
			&s.TakeProfit, &s.TakeProfit2, &s.TakeProfit3, &s.Confidence, &s.WyckoffPhase,
			&s.ElliottWaves, &s.Rationale, &s.ATRSnapshot, &status, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Direction = market.Direction(direction)
		s.Status = market.SignalStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CandleCount returns the total number of stored candles, for the
// clean/reset CLI's --stats report.
func (r *Repository) CandleCount(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM candles`
	var count int64
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}

// SignalCount returns the total number of stored signals.
func (r *Repository) SignalCount(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM signals`
	var count int64
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}

// DeleteCandlesOlderThan removes candles whose close_time predates
// now - days, returning the number of rows removed.
func (r *Repository) DeleteCandlesOlderThan(ctx context.Context, days int) (int64, error) {
	const query = `DELETE FROM candles WHERE close_time < $1`
	cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()
	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteSignalsOlderThan removes signals created before now - days.
func (r *Repository) DeleteSignalsOlderThan(ctx context.Context, days int) (int64, error) {
	const query = `DELETE FROM signals WHERE created_at < $1`
	cutoff := time.Now().AddDate(0, 0, -days)
	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAllCandles truncates the candle table, used by the reset CLI.
func (r *Repository) DeleteAllCandles(ctx context.Context) (int64, error) {
	n, err := r.CandleCount(ctx)
	if err != nil {
		return 0, err
	}
	logging.StoreContext("delete_all", "candles").Warn("truncating table", "rows", n)
	_, err = r.db.Pool.Exec(ctx, `DELETE FROM candles`)
	return n, err
}

// DeleteAllSignals truncates the signal table, used by the reset CLI.
func (r *Repository) DeleteAllSignals(ctx context.Context) (int64, error) {
	n, err := r.SignalCount(ctx)
	if err != nil {
		return 0, err
	}
	logging.StoreContext("delete_all", "signals").Warn("truncating table", "rows", n)
	_, err = r.db.Pool.Exec(ctx, `DELETE FROM signals`)
	return n, err
}

// UpdateSignalStatus transitions a persisted signal's lifecycle status
// (pending -> hit/stopped/expired).
func (r *Repository) UpdateSignalStatus(ctx context.Context, id int64, status market.SignalStatus) error {
	const query = `UPDATE signals SET status = $2 WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("signal %d not found", id)
	}
	return nil
}
