package main

import (
	"context"
	"flag"
	"fmt"

	"signalforge/internal/config"
	"signalforge/internal/logging"
)

// cleanCommand prunes candles/signals older than --days, or just
// reports current row counts with --stats. Flags per SPEC_FULL.md
// §4.12's CLI surface.
func cleanCommand(ctx context.Context, args []string, cfg *config.Config, log *logging.Logger) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report what would be deleted without deleting")
	cleanCandles := fs.Bool("candles", false, "prune candles")
	cleanSignals := fs.Bool("signals", false, "prune signals")
	all := fs.Bool("all", false, "prune both candles and signals")
	days := fs.Int("days", 90, "retain rows newer than this many days")
	stats := fs.Bool("stats", false, "print row counts and exit without deleting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, repo, err := connectStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if *stats {
		candleCount, err := repo.CandleCount(ctx)
		if err != nil {
			return fmt.Errorf("count candles: %w", err)
		}
		signalCount, err := repo.SignalCount(ctx)
		if err != nil {
			return fmt.Errorf("count signals: %w", err)
		}
		fmt.Printf("candles: %d\nsignals: %d\n", candleCount, signalCount)
		return nil
	}

	doCandles := *all || *cleanCandles
	doSignals := *all || *cleanSignals
	if !doCandles && !doSignals {
		return fmt.Errorf("clean: specify --candles, --signals, or --all")
	}

	if doCandles {
		if *dryRun {
			fmt.Printf("would delete candles older than %d days\n", *days)
		} else {
			n, err := repo.DeleteCandlesOlderThan(ctx, *days)
			if err != nil {
				return fmt.Errorf("delete old candles: %w", err)
			}
			fmt.Printf("deleted %d candles older than %d days\n", n, *days)
		}
	}

	if doSignals {
		if *dryRun {
			fmt.Printf("would delete signals older than %d days\n", *days)
		} else {
			n, err := repo.DeleteSignalsOlderThan(ctx, *days)
			if err != nil {
				return fmt.Errorf("delete old signals: %w", err)
			}
			fmt.Printf("deleted %d signals older than %d days\n", n, *days)
		}
	}
	return nil
}
