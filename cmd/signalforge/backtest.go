package main

import (
	"context"
	"flag"
	"fmt"

	"signalforge/internal/backtest"
	"signalforge/internal/config"
	"signalforge/internal/ingress"
	"signalforge/internal/logging"
)

// backtestCommand replays historical candles for one symbol/interval
// through the signal fuser via backtest.Runner and prints the result
// summary. Flags mirror SPEC_FULL.md §4.12's named backtest surface.
func backtestCommand(ctx context.Context, args []string, cfg *config.Config, log *logging.Logger) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	symbol := fs.String("symbol", firstOr(cfg.Symbols, "BTCUSDT"), "trading symbol")
	interval := fs.String("interval", firstOr(cfg.Timeframes, "1h"), "candle interval")
	days := fs.Int("days", 90, "days of history to replay")
	minConfidence := fs.Float64("min_confidence", cfg.Fuser.MinConfidence, "minimum fusion confidence to act on")
	initialBalance := fs.Float64("initial_balance", 10000, "starting account balance")
	positionSize := fs.Float64("position_size", 0.95, "fraction of equity allocated as position notional per trade")
	allowSingle := fs.Bool("allow_single", false, "allow tier-4 single-analyzer signals")
	singleConfidence := fs.Float64("single_confidence", 0.85, "minimum confidence required for tier-4 signals")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := ingress.NewRESTClient(cfg.Rest.BaseURL, cfg.Rest.RateLimitPerMinute, log)
	candles, err := rest.GetHistoricalKlines(ctx, *symbol, *interval, *days*candlesPerDay(*interval))
	if err != nil {
		return fmt.Errorf("fetch historical candles: %w", err)
	}

	runCfg := backtest.Config{
		Symbol:              *symbol,
		Interval:            *interval,
		Days:                *days,
		MinConfidence:       *minConfidence,
		InitialBalance:      *initialBalance,
		PositionSize:        *positionSize,
		CommissionRate:      0.001,
		AllowSingleAnalyzer: *allowSingle,
		SingleConfidence:    *singleConfidence,
	}
	runner := backtest.NewRunner(runCfg, log)
	result, err := runner.Run(ctx, candles)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	printBacktestResult(result)
	return nil
}

func candlesPerDay(interval string) int {
	switch interval {
	case "1m":
		return 1440
	case "5m":
		return 288
	case "15m":
		return 96
	case "1h":
		return 24
	case "4h":
		return 6
	case "1d":
		return 1
	default:
		return 24
	}
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}

func printBacktestResult(r *backtest.Result) {
	fmt.Printf("backtest: %s %s\n", r.Symbol, r.Interval)
	fmt.Printf("  trades:        %d (%d wins, %d losses)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Printf("  win rate:      %.2f%%\n", r.WinRate)
	fmt.Printf("  total pnl:     %.2f (%.2f%%)\n", r.TotalPnL, r.TotalPnLPercent)
	fmt.Printf("  profit factor: %.2f\n", r.ProfitFactor)
	fmt.Printf("  max drawdown:  %.2f (%.2f%%)\n", r.MaxDrawdown, r.MaxDrawdownPercent)
	fmt.Printf("  final equity:  %.2f (from %.2f)\n", r.FinalEquity, r.InitialBalance)
}
