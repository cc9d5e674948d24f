package main

import (
	"context"
	"fmt"
	"time"

	"signalforge/internal/config"
	"signalforge/internal/ingress"
	"signalforge/internal/logging"
)

// healthCheckCommand verifies the operating environment is usable:
// required configuration is present, the store is reachable, the
// ingress REST endpoint responds, and the analyzer set is wired up.
// Prints a line per check and returns an error if any failed, which
// main maps to exit code 1 per SPEC_FULL.md §4.12.
func healthCheckCommand(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	var failed bool

	check := func(name string, err error) {
		if err != nil {
			fmt.Printf("[FAIL] %-12s %v\n", name, err)
			failed = true
			return
		}
		fmt.Printf("[ OK ] %s\n", name)
	}

	check("environment", validateEnvironment(cfg))

	db, _, storeErr := connectStore(ctx, cfg, log)
	check("store", storeErr)
	if storeErr == nil {
		db.Close()
	}

	check("ingress", checkIngress(ctx, cfg, log))

	check("analyzers", validateAnalyzers(cfg))

	if failed {
		return fmt.Errorf("health check failed")
	}
	return nil
}

func validateEnvironment(cfg *config.Config) error {
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS must name at least one symbol")
	}
	if len(cfg.Timeframes) == 0 {
		return fmt.Errorf("TIMEFRAMES must name at least one interval")
	}
	if cfg.Fuser.MinConfidence < 0 || cfg.Fuser.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be within [0,1], got %v", cfg.Fuser.MinConfidence)
	}
	return nil
}

func checkIngress(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	rest := ingress.NewRESTClient(cfg.Rest.BaseURL, cfg.Rest.RateLimitPerMinute, log)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := rest.GetKlines(ctx, firstOr(cfg.Symbols, "BTCUSDT"), firstOr(cfg.Timeframes, "1h"), 1, 0)
	return err
}

func validateAnalyzers(cfg *config.Config) error {
	if !cfg.Fuser.EnableWyckoff && !cfg.Fuser.EnableElliott {
		return fmt.Errorf("at least one of ENABLE_WYCKOFF/ENABLE_ELLIOTT should be enabled for fusion tiers above 3 to ever fire")
	}
	return nil
}
