// Command signalforge is the engine's operator CLI: run starts live
// surveillance, backtest replays history through the same fusion
// logic, and clean/reset/diagnose/health-check cover the remaining
// operational surface. Subcommand dispatch and the shared bootstrap
// (config load, structured logger, signal handling) follow the
// reference stack's main.go pattern, generalized from one monolithic
// trading-bot entry point into a small subcommand CLI since this
// domain's operational surface is narrower.
package main

import (
	"context"
	"fmt"
	"os"

	"signalforge/internal/config"
	"signalforge/internal/logging"
	"signalforge/internal/store"
	"signalforge/internal/vault"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Output:     "stdout",
		JSONFormat: cfg.Logging.Format == "json",
		Component:  "signalforge",
	})
	logging.SetDefault(logger)

	ctx := context.Background()
	var exitErr error

	switch os.Args[1] {
	case "run":
		exitErr = runCommand(ctx, cfg, logger)
	case "backtest":
		exitErr = backtestCommand(ctx, os.Args[2:], cfg, logger)
	case "clean":
		exitErr = cleanCommand(ctx, os.Args[2:], cfg, logger)
	case "reset":
		exitErr = resetCommand(ctx, os.Args[2:], cfg, logger)
	case "diagnose":
		exitErr = diagnoseCommand(ctx, cfg, logger)
	case "health-check":
		exitErr = healthCheckCommand(ctx, cfg, logger)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if exitErr != nil {
		logger.WithError(exitErr).Error("command failed", "command", os.Args[1])
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: signalforge <command> [flags]

commands:
  run            start live ingress + aggregation + fusion + notification
  backtest       replay historical candles through the signal fuser
  clean          prune old candles/signals
  reset          wipe all persisted candles/signals
  diagnose       dump per-symbol candle coverage and analyzer verdicts
  health-check   verify environment, store, and ingress connectivity`)
}

// connectStore opens the Postgres pool and runs migrations, the
// bootstrap step shared by every subcommand that touches persistence.
func connectStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (*store.DB, *store.Repository, error) {
	db, err := store.Connect(ctx, store.Config(cfg.Store), log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect store: %w", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, store.NewRepository(db), nil
}

// newVaultClient builds the vault client and seeds it with the
// configured notifier tokens so resolution works identically whether
// Vault is enabled or not.
func newVaultClient(cfg *config.Config) (*vault.Client, error) {
	vc, err := vault.NewClient(vault.Config(cfg.Vault))
	if err != nil {
		return nil, fmt.Errorf("init vault client: %w", err)
	}
	vc.Seed("telegram_bot_token", cfg.Notifier.TelegramBotToken)
	vc.Seed("telegram_chat_id", cfg.Notifier.TelegramChatID)
	vc.Seed("discord_webhook_url", cfg.Notifier.DiscordWebhookURL)
	return vc, nil
}
