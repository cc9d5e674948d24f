// Package momentum implements the RSI and MACD analyzers. Both are
// pure functions of the candle window: MACD recomputes its line and
// signal series from the window on every call to detect a signal-line
// crossover, and keeps no per-(symbol,interval) state.
package momentum

import (
	"fmt"
	"math"

	"signalforge/internal/analyzer"
	"signalforge/internal/market"
)

// RSIAnalyzer emits LONG when RSI drops below the oversold threshold
// and SHORT when it rises above the overbought threshold, with
// confidence scaled by distance from the breached threshold.
type RSIAnalyzer struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSIAnalyzer builds an RSIAnalyzer with the spec defaults (period
// 14, thresholds 30/70).
func NewRSIAnalyzer() *RSIAnalyzer {
	return &RSIAnalyzer{Period: 14, Oversold: 30, Overbought: 70}
}

func (a *RSIAnalyzer) Name() string { return "rsi" }

func (a *RSIAnalyzer) Analyze(candles []market.Candle, symbol, interval string) analyzer.Result {
	value := Calculate(candles, a.Period)
	switch {
	case value < a.Oversold:
		dist := (a.Oversold - value) / a.Oversold
		conf := clamp(0.5+dist, 0, 1)
		return analyzer.Result{
			Analyzer:   a.Name(),
			Direction:  market.Long,
			Confidence: conf,
			Rationale:  []string{fmt.Sprintf("RSI %.2f below oversold threshold %.0f", value, a.Oversold)},
			Detail:     map[string]interface{}{"rsi": value},
		}
	case value > a.Overbought:
		dist := (value - a.Overbought) / (100 - a.Overbought)
		conf := clamp(0.5+dist, 0, 1)
		return analyzer.Result{
			Analyzer:   a.Name(),
			Direction:  market.Short,
			Confidence: conf,
			Rationale:  []string{fmt.Sprintf("RSI %.2f above overbought threshold %.0f", value, a.Overbought)},
			Detail:     map[string]interface{}{"rsi": value},
		}
	default:
		return analyzer.Result{Analyzer: a.Name(), Detail: map[string]interface{}{"rsi": value}}
	}
}

// Calculate computes RSI with standard Wilder smoothing: the average
// gain/loss is seeded from the first `period` bars of the entire
// history, then carried forward bar by bar to the end of candles, so
// later values genuinely reflect the accumulated smoothing rather than
// a fresh simple average over just the trailing window. Returns 50
// (neutral) when there isn't enough history or when the series has
// neither gains nor losses.
func Calculate(candles []market.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 50.0
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := candles[i].Close - candles[i-1].Close
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	// Wilder smoothing across every remaining bar in the full history.
	for i := period + 1; i < len(candles); i++ {
		delta := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
