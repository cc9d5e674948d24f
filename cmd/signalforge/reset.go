package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"signalforge/internal/config"
	"signalforge/internal/logging"
)

// resetCommand wipes all persisted candles and signals. Destructive,
// so it refuses to run without --confirm or an interactive "yes" —
// --dry-run reports what would be removed instead.
func resetCommand(ctx context.Context, args []string, cfg *config.Config, log *logging.Logger) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report what would be deleted without deleting")
	confirm := fs.Bool("confirm", false, "skip the interactive confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, repo, err := connectStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	candleCount, err := repo.CandleCount(ctx)
	if err != nil {
		return fmt.Errorf("count candles: %w", err)
	}
	signalCount, err := repo.SignalCount(ctx)
	if err != nil {
		return fmt.Errorf("count signals: %w", err)
	}

	if *dryRun {
		fmt.Printf("would delete %d candles and %d signals\n", candleCount, signalCount)
		return nil
	}

	if !*confirm && !promptYes(candleCount, signalCount) {
		fmt.Println("reset aborted")
		return nil
	}

	if _, err := repo.DeleteAllCandles(ctx); err != nil {
		return fmt.Errorf("delete all candles: %w", err)
	}
	if _, err := repo.DeleteAllSignals(ctx); err != nil {
		return fmt.Errorf("delete all signals: %w", err)
	}
	fmt.Printf("deleted %d candles and %d signals\n", candleCount, signalCount)
	return nil
}

func promptYes(candleCount, signalCount int64) bool {
	fmt.Printf("this will permanently delete %d candles and %d signals. type \"yes\" to continue: ", candleCount, signalCount)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
