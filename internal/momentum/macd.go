package momentum

import (
	"fmt"
	"math"

	"signalforge/internal/analyzer"
	"signalforge/internal/indicators"
	"signalforge/internal/market"
)

// MACDAnalyzer detects a histogram sign-flip between the last two bars
// (a genuine signal-line crossover), unlike a single-call MACD/signal
// snapshot. Because the signal line is itself an EMA of the MACD line,
// the analyzer reconstructs the whole MACD-line series from the
// supplied candle window on every call; it keeps no state of its own,
// so it remains a pure function of its input (no hidden clock).
type MACDAnalyzer struct {
	Fast, Slow, Signal int
}

// NewMACDAnalyzer builds a MACDAnalyzer with the standard (12, 26, 9) periods.
func NewMACDAnalyzer() *MACDAnalyzer {
	return &MACDAnalyzer{Fast: 12, Slow: 26, Signal: 9}
}

func (a *MACDAnalyzer) Name() string { return "macd" }

// Series computes the MACD line, signal line, and histogram across the
// whole candle window.
func (a *MACDAnalyzer) Series(candles []market.Candle) (macdLine, signalLine, histogram []float64) {
	n := len(candles)
	closes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
	}
	fastEMA := indicators.EMASeries(closes, a.Fast)
	slowEMA := indicators.EMASeries(closes, a.Slow)

	macdLine = make([]float64, n)
	for i := 0; i < n; i++ {
		if i >= a.Slow-1 {
			macdLine[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// The signal line is only defined once `Slow-1+Signal` bars of MACD
	// history exist; EMASeries over the whole macdLine slice would treat
	// the leading zeros as real data, so it is seeded from the first
	// valid MACD index instead.
	validStart := a.Slow - 1
	signalLine = make([]float64, n)
	histogram = make([]float64, n)
	if n-validStart < a.Signal {
		return macdLine, signalLine, histogram
	}
	sig := indicators.EMASeries(macdLine[validStart:], a.Signal)
	for i, v := range sig {
		signalLine[validStart+i] = v
	}
	for i := validStart + a.Signal - 1; i < n; i++ {
		histogram[i] = macdLine[i] - signalLine[i]
	}
	return macdLine, signalLine, histogram
}

func (a *MACDAnalyzer) Analyze(candles []market.Candle, symbol, interval string) analyzer.Result {
	minBars := a.Slow + a.Signal
	if len(candles) < minBars+1 {
		return analyzer.Result{Analyzer: a.Name()}
	}

	macdLine, _, histogram := a.Series(candles)
	n := len(candles)
	last := histogram[n-1]
	prev := histogram[n-2]
	if last == 0 || prev == 0 {
		return analyzer.Result{Analyzer: a.Name()}
	}

	var direction market.Direction
	switch {
	case prev < 0 && last > 0:
		direction = market.Long
	case prev > 0 && last < 0:
		direction = market.Short
	default:
		return analyzer.Result{Analyzer: a.Name(), Detail: map[string]interface{}{"histogram": last}}
	}

	confidence := 0.5 + math.Min(0.4, 100*math.Abs(last))
	macdSign := macdLine[n-1]
	sameSign := (direction == market.Long && macdSign > 0) || (direction == market.Short && macdSign < 0)
	if sameSign {
		confidence += 0.1
	}
	confidence = clamp(confidence, 0, 1)

	return analyzer.Result{
		Analyzer:   a.Name(),
		Direction:  direction,
		Confidence: confidence,
		Rationale: []string{fmt.Sprintf("MACD histogram crossed %s (%.4f -> %.4f)",
			map[bool]string{true: "up", false: "down"}[direction == market.Long], prev, last)},
		Detail: map[string]interface{}{
			"macd":      macdLine[n-1],
			"histogram": last,
		},
	}
}
