package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"signalforge/internal/aggregator"
	"signalforge/internal/config"
	"signalforge/internal/fuser"
	"signalforge/internal/httpapi"
	"signalforge/internal/ingress"
	"signalforge/internal/logging"
	"signalforge/internal/market"
	"signalforge/internal/metrics"
	"signalforge/internal/notifier"
	"signalforge/internal/store"
)

// runCommand starts live ingress, aggregation, fusion, and
// notification for the configured symbol/interval universe, and blocks
// until SIGINT/SIGTERM, then shuts everything down in reverse order.
func runCommand(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	db, repo, err := connectStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	vc, err := newVaultClient(cfg)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}
	symbolCache := store.NewSymbolCache(redisClient, repo, log)
	for _, sym := range cfg.Symbols {
		if err := symbolCache.Set(ctx, sym, true); err != nil {
			log.WithError(err).Warn("failed to seed symbol cache", "symbol", sym)
		}
	}

	registry := prometheus.NewRegistry()
	metricsSink := metrics.New(registry)

	notifyManager := buildNotifier(ctx, cfg, vc, log)

	agg := aggregator.New(0, repo, log)
	sigFuser := fuser.New(cfg.Fuser, repo, notifyManager, metricsSink, log)

	agg.OnCandleClose(func(ctx context.Context, closed market.Candle) {
		metricsSink.RecordCandle()
		window := agg.GetCandles(closed.Symbol, closed.Interval, 0)
		if _, err := sigFuser.GenerateSignal(ctx, closed.Symbol, closed.Interval, window); err != nil {
			log.WithComponent("fuser").WithError(err).Error("generate signal failed",
				"symbol", closed.Symbol, "interval", closed.Interval)
		}
	})

	rest := ingress.NewRESTClient(cfg.Rest.BaseURL, cfg.Rest.RateLimitPerMinute, log)
	warmUpHistory(ctx, cfg, rest, agg, log)

	streamCfg := ingress.StreamConfig{
		BaseURL:        cfg.Stream.BaseURL,
		InitialBackoff: cfg.Stream.ReconnectDelay,
		MaxBackoff:     60 * time.Second,
		MaxRetries:     cfg.Stream.MaxRetries,
	}
	stream := ingress.NewStreamClient(streamCfg, cfg.StreamKeys(), log)

	streamCtx, cancelStream := context.WithCancel(ctx)
	streamErrCh := make(chan error, 1)
	go func() {
		streamErrCh <- stream.Run(streamCtx, func(c market.Candle) {
			agg.ProcessCandle(streamCtx, c)
		})
	}()

	var httpServer *httpapi.Server
	if cfg.Metrics.Port > 0 {
		httpServer = httpapi.NewServer(
			httpapi.Config{Port: cfg.Metrics.Port, Host: "0.0.0.0"},
			func(ctx context.Context) error { return db.HealthCheck(ctx) },
			func(ctx context.Context) error { return vc.Health(ctx) },
			metricsSink, registry,
			&diagnoser{cfg: cfg, agg: agg, fuser: sigFuser},
			log,
		)
		go func() {
			if err := httpServer.Start(); err != nil {
				log.WithError(err).Error("introspection server stopped")
			}
		}()
	}

	log.Info("signalforge running", "symbols", cfg.Symbols, "timeframes", cfg.Timeframes)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received")
	case err := <-streamErrCh:
		if err != nil {
			log.WithError(err).Error("stream client exited")
		}
	}

	cancelStream()
	stream.Stop()

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("introspection server shutdown error")
		}
	}

	log.Info("shutdown complete")
	return nil
}

// warmUpHistory backfills each configured (symbol, interval) key with
// enough history to satisfy fuser.Config.MinCandles before the live
// stream starts feeding the aggregator, dispatched concurrently across
// keys via the same worker-pool primitive the diagnose command and the
// /diagnose endpoint use for multi-symbol fan-out.
func warmUpHistory(ctx context.Context, cfg *config.Config, rest *ingress.RESTClient, agg *aggregator.Aggregator, log *logging.Logger) {
	keys := cfg.StreamKeys()
	aggregator.Dispatch(ctx, keys, 8, func(ctx context.Context, key market.Key) {
		candles, err := rest.GetHistoricalKlines(ctx, key.Symbol, key.Interval, cfg.Fuser.MinCandles)
		if err != nil {
			log.WithComponent("ingress").WithError(err).Warn("historical warm-up failed",
				"symbol", key.Symbol, "interval", key.Interval)
			return
		}
		if err := agg.ProcessHistoricalCandles(ctx, key.Symbol, key.Interval, candles); err != nil {
			log.WithComponent("ingress").WithError(err).Warn("historical warm-up persistence failed",
				"symbol", key.Symbol, "interval", key.Interval)
		}
	})
}

func buildNotifier(ctx context.Context, cfg *config.Config, vc interface {
	ResolveNotifierToken(ctx context.Context, name string) (string, error)
}, log *logging.Logger) *notifier.Manager {
	var providers []notifier.Notifier

	botToken, _ := vc.ResolveNotifierToken(ctx, "telegram_bot_token")
	chatID, _ := vc.ResolveNotifierToken(ctx, "telegram_chat_id")
	providers = append(providers, notifier.NewTelegramNotifier(notifier.TelegramConfig{
		BotToken: botToken,
		ChatID:   chatID,
		Enabled:  botToken != "" && chatID != "",
	}))

	webhookURL, _ := vc.ResolveNotifierToken(ctx, "discord_webhook_url")
	providers = append(providers, notifier.NewDiscordNotifier(notifier.DiscordConfig{
		WebhookURL: webhookURL,
		Enabled:    webhookURL != "",
	}))

	return notifier.NewManager(providers...)
}

// diagnoser implements httpapi.Diagnoser over the live aggregator and
// fuser, giving the /diagnose HTTP route the same data the diagnose
// CLI subcommand prints.
type diagnoser struct {
	cfg   *config.Config
	agg   *aggregator.Aggregator
	fuser *fuser.Fuser
}

func (d *diagnoser) Diagnose(ctx context.Context) ([]httpapi.SymbolDiagnostic, error) {
	keys := d.cfg.StreamKeys()
	out := make([]httpapi.SymbolDiagnostic, len(keys))
	aggregator.Dispatch(ctx, keys, 8, func(ctx context.Context, key market.Key) {
		idx := indexOf(keys, key)
		candles := d.agg.GetCandles(key.Symbol, key.Interval, 0)
		out[idx] = httpapi.SymbolDiagnostic{
			Symbol:           key.Symbol,
			Interval:         key.Interval,
			CandlesAvailable: len(candles),
			AnalyzerVerdicts: d.fuser.Diagnose(candles, key.Symbol, key.Interval),
		}
	})
	return out, nil
}

func indexOf(keys []market.Key, key market.Key) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
