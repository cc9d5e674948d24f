package main

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"signalforge/internal/aggregator"
	"signalforge/internal/config"
	"signalforge/internal/fuser"
	"signalforge/internal/ingress"
	"signalforge/internal/logging"
	"signalforge/internal/market"
)

// diagnoseCommand dumps, per configured (symbol, interval), the
// available candle count and each analyzer's current verdict —
// fetched concurrently across keys via aggregator.Dispatch, the same
// worker-pool primitive used for cross-symbol fan-out elsewhere.
func diagnoseCommand(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	rest := ingress.NewRESTClient(cfg.Rest.BaseURL, cfg.Rest.RateLimitPerMinute, log)
	sigFuser := fuser.New(cfg.Fuser, nil, nil, nil, log)

	keys := cfg.StreamKeys()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Interval < keys[j].Interval
	})

	results := make(map[market.Key]diagnosticLine, len(keys))
	var mu sync.Mutex
	aggregator.Dispatch(ctx, keys, 8, func(ctx context.Context, key market.Key) {
		candles, err := rest.GetHistoricalKlines(ctx, key.Symbol, key.Interval, cfg.Fuser.MinCandles)
		line := diagnosticLine{err: err}
		if err == nil {
			line = diagnosticLine{candles: len(candles), verdicts: sigFuser.Diagnose(candles, key.Symbol, key.Interval)}
		}
		mu.Lock()
		results[key] = line
		mu.Unlock()
	})

	for _, key := range keys {
		line := results[key]
		if line.err != nil {
			fmt.Printf("%-10s %-5s  error: %v\n", key.Symbol, key.Interval, line.err)
			continue
		}
		fmt.Printf("%-10s %-5s  candles=%-5d wyckoff=%-14s elliott=%-14s rsi=%-14s macd=%s\n",
			key.Symbol, key.Interval, line.candles,
			line.verdicts["wyckoff"], line.verdicts["elliott"], line.verdicts["rsi"], line.verdicts["macd"])
	}
	return nil
}

type diagnosticLine struct {
	candles  int
	verdicts map[string]string
	err      error
}
