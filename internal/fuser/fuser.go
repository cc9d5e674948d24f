// Package fuser implements the per-bar-close orchestrator: runs the
// enabled analyzers, applies the tiered fusion rules, enforces
// cooldown/conflict/anti-spam suppression, computes stop-loss and
// take-profit, persists the signal, and dispatches it to the notifier.
package fuser

import (
	"context"
	"fmt"
	"math"
	"time"

	"signalforge/internal/analyzer"
	"signalforge/internal/elliott"
	"signalforge/internal/indicators"
	"signalforge/internal/logging"
	"signalforge/internal/market"
	"signalforge/internal/momentum"
	"signalforge/internal/wyckoff"
)

// SignalStore is the narrow persistence capability the fuser needs.
type SignalStore interface {
	InsertSignal(ctx context.Context, s *market.Signal) (int64, error)
}

// Notifier is the narrow dispatch capability the fuser needs.
type Notifier interface {
	Notify(ctx context.Context, s market.Signal) error
}

// MetricsSink receives operational counters; a nil sink is safe to use.
type MetricsSink interface {
	RecordSignal(symbol, interval string, direction market.Direction)
	RecordRejection(symbol, interval, reason string)
	RecordAnalyzerError(name string)
}

// Fuser is the signal-generation orchestrator for one engine instance,
// shared across every (symbol, interval) key it is asked to evaluate.
type Fuser struct {
	cfg        Config
	store      SignalStore
	notifier   Notifier
	metrics    MetricsSink
	log        *logging.Logger
	suppressor *suppressor

	wyckoff  analyzer.Analyzer
	elliott  analyzer.Analyzer
	rsi      *momentum.RSIAnalyzer
	macd     *momentum.MACDAnalyzer
}

// New builds a Fuser. store, notifier and metrics may be nil (the
// diagnose path and tests pass nil); persistence, notification and
// metrics recording are then skipped.
func New(cfg Config, store SignalStore, notifier Notifier, metrics MetricsSink, log *logging.Logger) *Fuser {
	if log == nil {
		log = logging.Default()
	}
	return &Fuser{
		cfg:        cfg,
		store:      store,
		notifier:   notifier,
		metrics:    metrics,
		log:        log,
		suppressor: newSuppressor(cfg),
		wyckoff:    wyckoff.Analyzer{},
		elliott:    elliott.Analyzer{},
		rsi:        momentum.NewRSIAnalyzer(),
		macd:       momentum.NewMACDAnalyzer(),
	}
}

// GenerateSignal runs the full per-bar-close pipeline for one
// (symbol, interval) against its current analysis window. Returns nil,
// nil when no signal is warranted (insufficient history, no fusion
// tier matched, confidence below floor, or suppressed) — none of those
// are errors. Returns a non-nil error only for persistence failure,
// which leaves cooldown state unchanged so the next bar can retry.
func (f *Fuser) GenerateSignal(ctx context.Context, symbol, interval string, candles []market.Candle) (*market.Signal, error) {
	if len(candles) < f.cfg.MinCandles {
		return nil, nil
	}
	key := market.Key{Symbol: symbol, Interval: interval}
	now := time.Now()

	if !f.cfg.SuppressionDisabled {
		if ok, reason := f.suppressor.checkCooldowns(now, key); !ok {
			f.reject(symbol, interval, reason)
			return nil, nil
		}
	}

	wy := f.runAnalyzer(f.wyckoff, candles, symbol, interval, f.cfg.EnableWyckoff)
	el := f.runAnalyzer(f.elliott, candles, symbol, interval, f.cfg.EnableElliott)
	rsiResult := f.runAnalyzer(f.rsi, candles, symbol, interval, true)
	macdResult := f.runAnalyzer(f.macd, candles, symbol, interval, true)

	direction, confidence, rationale := fuseTiers(wy, el, rsiResult, macdResult)
	if direction == market.None {
		f.reject(symbol, interval, "no fusion tier matched")
		return nil, nil
	}

	confidence = applyConfirmationBonus(confidence, direction, candles, rsiResult, macdResult)
	if confidence < f.cfg.MinConfidence {
		f.reject(symbol, interval, "confidence below floor")
		return nil, nil
	}

	entry := candles[len(candles)-1].Close

	if !f.cfg.SuppressionDisabled {
		if ok, reason := f.suppressor.checkDirectional(now, symbol, direction, entry); !ok {
			f.reject(symbol, interval, reason)
			return nil, nil
		}
	}

	tg := computeTargets(candles, direction, entry, el, f.cfg.EnableElliott, f.cfg.ElliottTPRatio, f.cfg.RRFloor)

	elliottWaves := 0
	if w, ok := el.Detail["wave_1"]; ok && w != nil {
		elliottWaves = 5
	}

	sig := &market.Signal{
		Symbol:       symbol,
		Interval:     interval,
		Direction:    direction,
		EntryPrice:   entry,
		StopLoss:     tg.StopLoss,
		TakeProfit:   tg.TakeProfit,
		TakeProfit2:  tg.TakeProfit2,
		TakeProfit3:  tg.TakeProfit3,
		Confidence:   confidence,
		WyckoffPhase: phaseOf(wy),
		ElliottWaves: elliottWaves,
		Indicators: map[string]interface{}{
			"atr":  tg.ATR,
			"mode": tg.Mode,
			"rsi":  rsiResult.Detail["rsi"],
			"macd": macdResult.Detail["macd"],
		},
		Rationale: rationale,
		ATRSnapshot: tg.ATR,
		CreatedAt:   now,
		Status:      market.StatusPending,
	}

	if f.store != nil {
		id, err := f.store.InsertSignal(ctx, sig)
		if err != nil {
			return nil, fmt.Errorf("persist signal: %w", err)
		}
		sig.ID = id
	}

	if !f.cfg.SuppressionDisabled {
		f.suppressor.record(now, key, direction, entry)
	}

	if f.metrics != nil {
		f.metrics.RecordSignal(symbol, interval, direction)
	}
	if f.notifier != nil {
		if err := f.notifier.Notify(ctx, *sig); err != nil {
			logging.SignalContext(symbol, interval, string(direction), confidence).WithError(err).Warn("notifier dispatch failed")
		}
	}

	return sig, nil
}

// Diagnose runs every analyzer against the given window and reports
// each one's verdict without fusing, suppressing, or persisting a
// signal — used by the diagnose CLI/HTTP surface.
func (f *Fuser) Diagnose(candles []market.Candle, symbol, interval string) map[string]string {
	wy := f.runAnalyzer(f.wyckoff, candles, symbol, interval, f.cfg.EnableWyckoff)
	el := f.runAnalyzer(f.elliott, candles, symbol, interval, f.cfg.EnableElliott)
	rsiResult := f.runAnalyzer(f.rsi, candles, symbol, interval, true)
	macdResult := f.runAnalyzer(f.macd, candles, symbol, interval, true)
	return map[string]string{
		"wyckoff": verdictString(wy),
		"elliott": verdictString(el),
		"rsi":     verdictString(rsiResult),
		"macd":    verdictString(macdResult),
	}
}

func verdictString(r analyzer.Result) string {
	if r.Empty() {
		return "no_signal"
	}
	return fmt.Sprintf("%s (%.2f)", r.Direction, r.Confidence)
}

func (f *Fuser) runAnalyzer(a analyzer.Analyzer, candles []market.Candle, symbol, interval string, enabled bool) analyzer.Result {
	if !enabled {
		return analyzer.Result{Analyzer: a.Name()}
	}
	return safeAnalyze(a, candles, symbol, interval, f.metrics, f.log)
}

// safeAnalyze isolates an analyzer panic/error so it never aborts the
// fuser or peer analyzers — "no advice" is substituted instead.
func safeAnalyze(a analyzer.Analyzer, candles []market.Candle, symbol, interval string, metrics MetricsSink, log *logging.Logger) (result analyzer.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.WithComponent("fuser").Error("analyzer panic", "analyzer", a.Name(), "recover", fmt.Sprint(r))
			if metrics != nil {
				metrics.RecordAnalyzerError(a.Name())
			}
			result = analyzer.Result{Analyzer: a.Name()}
		}
	}()
	return a.Analyze(candles, symbol, interval)
}

func phaseOf(wy analyzer.Result) string {
	if p, ok := wy.Detail["phase"].(string); ok {
		return p
	}
	return string(wyckoff.Unknown)
}

func (f *Fuser) reject(symbol, interval, reason string) {
	if f.metrics != nil {
		f.metrics.RecordRejection(symbol, interval, reason)
	}
	f.log.WithComponent("fuser").Debug("signal suppressed", "symbol", symbol, "interval", interval, "reason", reason)
}

// fuseTiers implements the §4.5 tiered fusion table, trying each tier
// top-down and returning the first match.
func fuseTiers(wy, el, rsi, macd analyzer.Result) (market.Direction, float64, []string) {
	// Tier 1: Wyckoff & Elliott both emit, same direction.
	if wy.Direction != market.None && el.Direction != market.None && wy.Direction == el.Direction {
		direction := wy.Direction
		conf := (wy.Confidence + el.Confidence) / 2
		if rsi.Direction == direction {
			conf += 0.05
		}
		if macd.Direction == direction {
			conf += 0.05
		}
		conf = math.Min(conf, 0.95)
		return direction, conf, append(append([]string{"tier1: wyckoff+elliott agree"}, wy.Rationale...), el.Rationale...)
	}

	// Tier 2: Wyckoff XOR Elliott emits, AND RSI+MACD both agree with it.
	if (wy.Direction != market.None) != (el.Direction != market.None) {
		pattern := wy
		if el.Direction != market.None {
			pattern = el
		}
		if rsi.Direction == pattern.Direction && macd.Direction == pattern.Direction {
			conf := (pattern.Confidence + rsi.Confidence + macd.Confidence) / 3
			return pattern.Direction, conf, append([]string{"tier2: pattern + RSI + MACD agree"}, pattern.Rationale...)
		}
	}

	// Tier 3: RSI & MACD emit same direction, no pattern contribution.
	if wy.Direction == market.None && el.Direction == market.None &&
		rsi.Direction != market.None && rsi.Direction == macd.Direction {
		conf := (rsi.Confidence + macd.Confidence) / 2
		return rsi.Direction, conf, []string{"tier3: RSI + MACD agree"}
	}

	// Tier 3½: RSI alone with confidence >= 0.90, or MACD alone >= 0.75.
	if rsi.Direction != market.None && rsi.Confidence >= 0.90 {
		return rsi.Direction, rsi.Confidence * 0.85, []string{"tier3.5: RSI alone, high confidence"}
	}
	if macd.Direction != market.None && macd.Confidence >= 0.75 {
		return macd.Direction, macd.Confidence * 0.85, []string{"tier3.5: MACD alone, high confidence"}
	}

	// Tier 4: Wyckoff alone >= 0.75, or Elliott alone >= 0.75. "Alone"
	// means the other pattern analyzer is genuinely silent, not merely
	// weaker — if both emit and disagree, neither branch fires.
	if wy.Direction != market.None && wy.Confidence >= 0.75 && el.Direction == market.None {
		return wy.Direction, wy.Confidence * 0.9, append([]string{"tier4: Wyckoff alone, high confidence"}, wy.Rationale...)
	}
	if el.Direction != market.None && el.Confidence >= 0.75 && wy.Direction == market.None {
		return el.Direction, el.Confidence * 0.9, append([]string{"tier4: Elliott alone, high confidence"}, el.Rationale...)
	}

	return market.None, 0, nil
}

// applyConfirmationBonus adds min(0.15, 0.03 * confirmations) drawn
// from RSI-extreme, EMA-9/21 crossover, VWAP relation, volume surge,
// and MACD-sign checks, each independent of which tier fired.
func applyConfirmationBonus(confidence float64, direction market.Direction, candles []market.Candle, rsi, macd analyzer.Result) float64 {
	count := 0

	if rsiValue, ok := rsi.Detail["rsi"].(float64); ok {
		if (direction == market.Long && rsiValue < 30) || (direction == market.Short && rsiValue > 70) {
			count++
		}
	}

	ema9 := indicators.EMA(candles, 9)
	ema21 := indicators.EMA(candles, 21)
	if ema9 != 0 && ema21 != 0 {
		if (direction == market.Long && ema9 > ema21) || (direction == market.Short && ema9 < ema21) {
			count++
		}
	}

	vwap := indicators.VWAP(candles)
	close := candles[len(candles)-1].Close
	if vwap != 0 {
		if (direction == market.Long && close > vwap) || (direction == market.Short && close < vwap) {
			count++
		}
	}

	if indicators.IsVolumeSurge(candles, 20, 1.5) {
		count++
	}

	if macdLine, ok := macd.Detail["macd"].(float64); ok {
		if (direction == market.Long && macdLine > 0) || (direction == market.Short && macdLine < 0) {
			count++
		}
	}

	bonus := math.Min(0.15, 0.03*float64(count))
	return math.Min(1.0, confidence+bonus)
}
