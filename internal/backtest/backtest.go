// Package backtest replays a historical bar series through the
// signal fuser (suppression disabled, so it behaves as a pure
// function of bar history) and simulates a single open position per
// symbol/interval, exiting on genuine SL/TP-vs-bar-extreme touches
// instead of a flat percentage rule. Grounded on the reference
// stack's internal/backtest/backtest.go (Position/Config shapes,
// commission-on-notional, sequential-replay drawdown tracking), with
// checkExitConditions's flat 3%/-2% rule replaced per spec §4.6/§9.
package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signalforge/internal/fuser"
	"signalforge/internal/logging"
	"signalforge/internal/market"
)

// Config tunes one backtest run, matching the CLI surface's named
// flags (symbol, interval, days, min_confidence, initial_balance,
// position_size, allow_single, single_confidence).
type Config struct {
	Symbol         string
	Interval       string
	Days           int
	MinConfidence  float64
	InitialBalance float64
	PositionSize   float64 // fraction of current equity allocated as position notional per trade, e.g. 0.95
	CommissionRate float64 // per-side commission on notional, e.g. 0.001

	// AllowSingleAnalyzer permits tier-4 (single-pattern-analyzer)
	// signals into the backtest; when false, tier-4 signals are
	// skipped so the backtest only trades confluence-backed signals.
	AllowSingleAnalyzer bool
	SingleConfidence    float64
}

func DefaultConfig(symbol, interval string) Config {
	return Config{
		Symbol:              symbol,
		Interval:            interval,
		Days:                90,
		MinConfidence:       0.65,
		InitialBalance:      10000,
		PositionSize:        0.95,
		CommissionRate:      0.001,
		AllowSingleAnalyzer: false,
		SingleConfidence:    0.85,
	}
}

// position is the single open trade the runner tracks at a time.
type position struct {
	EntryTime  time.Time
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Direction  market.Direction
	Quantity   float64
	Rationale  []string
}

// Trade is one closed position's record.
type Trade struct {
	EntryTime       time.Time
	EntryPrice      float64
	ExitTime        time.Time
	ExitPrice       float64
	ExitReason      string
	Direction       market.Direction
	Quantity        float64
	PnL             float64
	PnLPercent      float64
	Fees            float64
	DurationMinutes int
}

// Result aggregates a backtest run's trade log and summary stats.
type Result struct {
	Symbol         string
	Interval       string
	InitialBalance float64
	FinalEquity    float64
	Trades         []Trade

	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	TotalPnL           float64
	TotalPnLPercent    float64
	TotalFees          float64
	AverageWin         float64
	AverageLoss        float64
	LargestWin         float64
	LargestLoss        float64
	ProfitFactor       float64
	MaxDrawdown        float64
	MaxDrawdownPercent float64
}

// noopStore/noopNotifier/noopMetrics let the backtest runner reuse
// the real fuser without writing live signals or dispatching
// notifications — the runner only needs the fuser's fusion/targets
// math, not its side effects.
type noopStore struct{}

func (noopStore) InsertSignal(ctx context.Context, s *market.Signal) (int64, error) { return 0, nil }

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, s market.Signal) error { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordSignal(symbol, interval string, direction market.Direction) {}
func (noopMetrics) RecordRejection(symbol, interval, reason string)                  {}
func (noopMetrics) RecordAnalyzerError(name string)                                  {}

// Runner replays bar history through a suppression-disabled Fuser.
type Runner struct {
	cfg   Config
	fuser *fuser.Fuser
	log   *logging.Logger
}

// NewRunner builds a Runner with its own Fuser instance configured
// per cfg, suppression disabled so entries are a pure function of the
// bar history passed to each step.
func NewRunner(cfg Config, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Default()
	}
	fc := fuser.DefaultConfig()
	fc.MinConfidence = cfg.MinConfidence
	fc.SuppressionDisabled = true

	return &Runner{
		cfg:   cfg,
		fuser: fuser.New(fc, noopStore{}, noopNotifier{}, noopMetrics{}, log),
		log:   log,
	}
}

const warmup = 500 // matches fuser.Config.MinCandles default

// Run replays candles (oldest-first, already the backtest window)
// bar by bar, opening at most one position at a time.
func (r *Runner) Run(ctx context.Context, candles []market.Candle) (*Result, error) {
	if len(candles) < warmup+1 {
		return nil, fmt.Errorf("backtest: need at least %d candles, got %d", warmup+1, len(candles))
	}

	start := time.UnixMilli(candles[warmup].OpenTime)
	end := time.UnixMilli(candles[len(candles)-1].CloseTime)
	logging.BacktestContext(r.cfg.Symbol, start, end).Info("replay starting", "bars", len(candles)-warmup)

	equity := r.cfg.InitialBalance
	result := &Result{Symbol: r.cfg.Symbol, Interval: r.cfg.Interval, InitialBalance: r.cfg.InitialBalance}

	var open *position
	var equityCurve []float64

	for i := warmup; i < len(candles); i++ {
		bar := candles[i]

		if open != nil {
			if exited, exitPrice, reason := checkExit(open, bar); exited {
				trade := closeTrade(open, bar, exitPrice, reason, r.cfg.CommissionRate)
				result.Trades = append(result.Trades, trade)
				equity += trade.PnL - trade.Fees
				open = nil
			}
		}

		if open == nil {
			window := candles[:i+1]
			sig, err := r.fuser.GenerateSignal(ctx, r.cfg.Symbol, r.cfg.Interval, window)
			if err != nil {
				return nil, fmt.Errorf("backtest: generate signal at bar %d: %w", i, err)
			}
			if sig == nil {
				continue
			}
			if !r.cfg.AllowSingleAnalyzer && isSingleAnalyzerTier(sig) {
				continue
			}
			if r.cfg.AllowSingleAnalyzer && isSingleAnalyzerTier(sig) && sig.Confidence < r.cfg.SingleConfidence {
				continue
			}

			quantity := (equity * r.cfg.PositionSize) / sig.EntryPrice
			open = &position{
				EntryTime:  time.UnixMilli(bar.CloseTime),
				EntryPrice: sig.EntryPrice,
				StopLoss:   sig.StopLoss,
				TakeProfit: sig.TakeProfit,
				Direction:  sig.Direction,
				Quantity:   quantity,
				Rationale:  sig.Rationale,
			}
		}

		equityCurve = append(equityCurve, equity)
	}

	if open != nil {
		last := candles[len(candles)-1]
		trade := closeTrade(open, last, last.Close, "end of backtest", r.cfg.CommissionRate)
		result.Trades = append(result.Trades, trade)
		equity += trade.PnL - trade.Fees
		equityCurve = append(equityCurve, equity)
	}

	result.FinalEquity = equity
	summarize(result, equityCurve)
	return result, nil
}

func isSingleAnalyzerTier(sig *market.Signal) bool {
	return len(sig.Rationale) > 0 && strings.HasPrefix(sig.Rationale[0], "tier4:")
}

// checkExit applies the documented same-bar check order: a LONG
// position checks its stop (bar low) before its target (bar high); a
// SHORT position checks its stop (bar high) before its target (bar
// low). When both touch in the same bar, the first check wins — a
// known bias, not corrected (spec §9).
func checkExit(p *position, bar market.Candle) (bool, float64, string) {
	switch p.Direction {
	case market.Long:
		if bar.Low <= p.StopLoss {
			return true, p.StopLoss, "stop loss"
		}
		if bar.High >= p.TakeProfit {
			return true, p.TakeProfit, "take profit"
		}
	case market.Short:
		if bar.High >= p.StopLoss {
			return true, p.StopLoss, "stop loss"
		}
		if bar.Low <= p.TakeProfit {
			return true, p.TakeProfit, "take profit"
		}
	}
	return false, 0, ""
}

func closeTrade(p *position, exitBar market.Candle, exitPrice float64, reason string, commissionRate float64) Trade {
	exitTime := time.UnixMilli(exitBar.CloseTime)

	var pnl float64
	if p.Direction == market.Long {
		pnl = (exitPrice - p.EntryPrice) * p.Quantity
	} else {
		pnl = (p.EntryPrice - exitPrice) * p.Quantity
	}
	pnlPercent := pnl / (p.EntryPrice * p.Quantity) * 100

	fees := (p.EntryPrice*p.Quantity + exitPrice*p.Quantity) * commissionRate

	return Trade{
		EntryTime:       p.EntryTime,
		EntryPrice:      p.EntryPrice,
		ExitTime:        exitTime,
		ExitPrice:       exitPrice,
		ExitReason:      reason,
		Direction:       p.Direction,
		Quantity:        p.Quantity,
		PnL:             pnl,
		PnLPercent:      pnlPercent,
		Fees:            fees,
		DurationMinutes: int(exitTime.Sub(p.EntryTime).Minutes()),
	}
}

func summarize(r *Result, equityCurve []float64) {
	if len(r.Trades) == 0 {
		r.FinalEquity = r.InitialBalance
		return
	}

	r.TotalTrades = len(r.Trades)
	var totalWin, totalLoss float64

	for _, t := range r.Trades {
		net := t.PnL - t.Fees
		r.TotalPnL += net
		r.TotalFees += t.Fees

		if net > 0 {
			r.WinningTrades++
			totalWin += net
			if net > r.LargestWin {
				r.LargestWin = net
			}
		} else {
			r.LosingTrades++
			totalLoss += net
			if net < r.LargestLoss {
				r.LargestLoss = net
			}
		}
	}

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	r.TotalPnLPercent = r.TotalPnL / r.InitialBalance * 100

	if r.WinningTrades > 0 {
		r.AverageWin = totalWin / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = totalLoss / float64(r.LosingTrades)
	}
	if totalLoss != 0 {
		r.ProfitFactor = totalWin / (-totalLoss)
	}

	r.MaxDrawdown, r.MaxDrawdownPercent = maxDrawdown(equityCurve, r.InitialBalance)
}

// maxDrawdown walks the equity curve once, tracking the largest
// peak-to-trough decline seen so far.
func maxDrawdown(curve []float64, initial float64) (float64, float64) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := initial
	var maxDD float64
	for _, equity := range curve {
		if equity > peak {
			peak = equity
		}
		dd := peak - equity
		if dd > maxDD {
			maxDD = dd
		}
	}
	pct := 0.0
	if peak > 0 {
		pct = maxDD / peak * 100
	}
	return maxDD, pct
}
