// Package aggregator maintains the rolling per-(symbol, interval)
// candle window, detects bar-close transitions, persists closed bars,
// and fans out bar-close events to registered listeners.
//
// Concurrency shape: within one (symbol, interval) key, updates are
// processed strictly in arrival order under that key's own mutex; a
// closed bar's listeners are launched as goroutines and the call
// returns immediately, so a burst of closes across many keys (the
// "K bars close at the same instant" fairness case) dispatches all of
// them without any one key's processing waiting on another's, or on
// its own listeners' completion. Adapted from the reference stack's
// internal/events bus goroutine-per-listener fan-out and its scanner's
// worker-pool-per-symbol concurrency shape.
package aggregator

import (
	"context"
	"sync"

	"signalforge/internal/events"
	"signalforge/internal/logging"
	"signalforge/internal/market"
)

// Store is the subset of the persistence layer the aggregator needs.
// Persistence is best-effort: a failure is logged and does not affect
// in-memory state, which remains authoritative until the next
// successful write.
type Store interface {
	InsertCandle(ctx context.Context, c market.Candle) error
	InsertCandlesBulk(ctx context.Context, candles []market.Candle) error
}

// Listener is invoked once per closed bar with that bar's final value.
type Listener func(ctx context.Context, closed market.Candle)

const defaultWindow = 1000

type keyState struct {
	mu           sync.Mutex
	candles      []market.Candle
	lastOpenTime int64
	hasLast      bool
}

// Aggregator implements the candle aggregator contract of the
// specification: process_candle, process_historical_candles,
// on_candle_close, get_candles.
type Aggregator struct {
	window int
	store  Store
	bus    *events.Bus
	log    *logging.Logger

	mu    sync.RWMutex
	keys  map[market.Key]*keyState
}

// New builds an Aggregator with the given rolling-window size (0 uses
// the default of 1000 bars) and an optional Store for async
// persistence of closed bars.
func New(window int, store Store, log *logging.Logger) *Aggregator {
	if window <= 0 {
		window = defaultWindow
	}
	if log == nil {
		log = logging.Default()
	}
	bus := events.New(func(t events.Type, r interface{}) {
		log.WithComponent("aggregator").Error("listener panic", "event", string(t), "recover", r)
	})
	return &Aggregator{
		window: window,
		store:  store,
		bus:    bus,
		log:    log,
		keys:   make(map[market.Key]*keyState),
	}
}

// OnCandleClose registers a listener invoked (concurrently with any
// other listener) every time a bar closes for any (symbol, interval).
func (a *Aggregator) OnCandleClose(listener Listener) {
	a.bus.Subscribe(events.CandleClosed, func(e events.Event) {
		closed, _ := e.Data["candle"].(market.Candle)
		listener(context.Background(), closed)
	})
}

func (a *Aggregator) stateFor(key market.Key) *keyState {
	a.mu.RLock()
	ks, ok := a.keys[key]
	a.mu.RUnlock()
	if ok {
		return ks
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if ks, ok = a.keys[key]; ok {
		return ks
	}
	ks = &keyState{}
	a.keys[key] = ks
	return ks
}

// ProcessCandle accepts one update tagged (symbol, interval, open_time,
// is_closed). If open_time matches the stored last open_time, it
// replaces the in-memory last entry. If open_time is strictly greater,
// the previously stored last entry is treated as closed — regardless
// of its own is_closed flag, since the transition itself is the
// definition of closure — bar-close listeners fire for it, then the
// new candle is appended and the window trimmed to W.
func (a *Aggregator) ProcessCandle(ctx context.Context, c market.Candle) {
	key := market.Key{Symbol: c.Symbol, Interval: c.Interval}
	ks := a.stateFor(key)

	ks.mu.Lock()
	var justClosed *market.Candle
	switch {
	case !ks.hasLast:
		ks.candles = append(ks.candles, c)
		ks.lastOpenTime = c.OpenTime
		ks.hasLast = true
	case c.OpenTime == ks.lastOpenTime:
		ks.candles[len(ks.candles)-1] = c
	case c.OpenTime > ks.lastOpenTime:
		prev := ks.candles[len(ks.candles)-1]
		prev.IsClosed = true
		ks.candles[len(ks.candles)-1] = prev
		justClosed = &prev
		ks.candles = append(ks.candles, c)
		ks.lastOpenTime = c.OpenTime
		if len(ks.candles) > a.window {
			ks.candles = ks.candles[len(ks.candles)-a.window:]
		}
	default:
		// Strictly older open_time than what is stored: out-of-order,
		// late-arriving update. Dropped rather than rewriting history.
		ks.mu.Unlock()
		return
	}
	ks.mu.Unlock()

	if justClosed != nil {
		if a.store != nil {
			go func(closed market.Candle) {
				if err := a.store.InsertCandle(context.Background(), closed); err != nil {
					a.log.WithComponent("aggregator").WithError(err).
						Warn("candle persistence failed, in-memory state remains authoritative",
							"symbol", closed.Symbol, "interval", closed.Interval)
				}
			}(*justClosed)
		}
		a.bus.Publish(events.Event{
			Type: events.CandleClosed,
			Data: map[string]interface{}{"candle": *justClosed},
		})
	}
}

// ProcessHistoricalCandles seeds memory and (if configured) the store
// in bulk without firing close listeners — used by the live run's
// startup warm-up backfill.
func (a *Aggregator) ProcessHistoricalCandles(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	key := market.Key{Symbol: symbol, Interval: interval}
	ks := a.stateFor(key)

	ks.mu.Lock()
	ks.candles = append(ks.candles, candles...)
	if len(ks.candles) > a.window {
		ks.candles = ks.candles[len(ks.candles)-a.window:]
	}
	last := candles[len(candles)-1]
	ks.lastOpenTime = last.OpenTime
	ks.hasLast = true
	ks.mu.Unlock()

	if a.store != nil {
		return a.store.InsertCandlesBulk(ctx, candles)
	}
	return nil
}

// GetCandles returns a snapshot of the rolling window, optionally
// limited to the most recent `limit` bars (0 = all).
func (a *Aggregator) GetCandles(symbol, interval string, limit int) []market.Candle {
	key := market.Key{Symbol: symbol, Interval: interval}
	ks := a.stateFor(key)

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if limit <= 0 || limit >= len(ks.candles) {
		out := make([]market.Candle, len(ks.candles))
		copy(out, ks.candles)
		return out
	}
	out := make([]market.Candle, limit)
	copy(out, ks.candles[len(ks.candles)-limit:])
	return out
}

// Dispatch runs `fn` for every key in `keys` concurrently and waits
// for all to finish — the explicit cross-symbol fan-out primitive used
// when many (symbol, interval) bars close at the same logical instant
// and must be analyzed in parallel rather than serialized. Adapted
// from the reference stack's scanner worker-pool-over-channels shape.
func Dispatch(ctx context.Context, keys []market.Key, workers int, fn func(ctx context.Context, key market.Key)) {
	if workers <= 0 {
		workers = len(keys)
	}
	if workers <= 0 {
		return
	}
	keyChan := make(chan market.Key, len(keys))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range keyChan {
				select {
				case <-ctx.Done():
					return
				default:
					fn(ctx, k)
				}
			}
		}()
	}
	for _, k := range keys {
		keyChan <- k
	}
	close(keyChan)
	wg.Wait()
}
