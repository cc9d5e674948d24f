package wyckoff

import (
	"testing"

	"signalforge/internal/market"
)

func flat(n int, low, high, close, volume float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{Low: low, High: high, Close: close, Volume: volume}
	}
	return out
}

func TestClassifyPhaseInsufficientHistory(t *testing.T) {
	candles := flat(10, 90, 110, 100, 10)
	if got := ClassifyPhase(candles); got != Unknown {
		t.Errorf("ClassifyPhase with insufficient history = %v, want Unknown", got)
	}
}

func TestClassifyPhaseMarkupOnTrendingRange(t *testing.T) {
	candles := make([]market.Candle, 30)
	for i := range candles {
		price := 100 + float64(i)*2
		candles[i] = market.Candle{Low: price - 5, High: price + 5, Close: price, Volume: 10}
	}
	if got := ClassifyPhase(candles); got != Markup {
		t.Errorf("ClassifyPhase on a wide rising range = %v, want Markup", got)
	}
}

func TestDetectSpringFindsBreakAndRecovery(t *testing.T) {
	candles := flat(39, 90, 110, 100, 10)
	spring := market.Candle{Low: 85, High: 96, Close: 95, Volume: 50}
	candles = append(candles, spring)

	result := DetectSpring(candles)
	if !result.Found {
		t.Fatalf("expected spring to be found, got %+v", result)
	}
	if result.Level != 90 {
		t.Errorf("Level = %v, want 90 (the support broken)", result.Level)
	}
	if result.BarsAgo != 0 {
		t.Errorf("BarsAgo = %v, want 0 (most recent bar)", result.BarsAgo)
	}
}

func TestDetectSpringNoneOnFlatMarket(t *testing.T) {
	candles := flat(40, 90, 110, 100, 10)
	if result := DetectSpring(candles); result.Found {
		t.Errorf("expected no spring on a flat market, got %+v", result)
	}
}

func TestDetectUpthrustFindsBreakAndRejection(t *testing.T) {
	candles := flat(39, 90, 110, 100, 10)
	upthrust := market.Candle{Low: 104, High: 115, Close: 105, Volume: 50}
	candles = append(candles, upthrust)

	result := DetectUpthrust(candles)
	if !result.Found {
		t.Fatalf("expected upthrust to be found, got %+v", result)
	}
	if result.Level != 110 {
		t.Errorf("Level = %v, want 110 (the resistance broken)", result.Level)
	}
}

func TestAnalyzerEmptyOnFlatMarket(t *testing.T) {
	candles := flat(40, 90, 110, 100, 10)
	result := Analyzer{}.Analyze(candles, "BTCUSDT", "1h")
	if !result.Empty() {
		t.Errorf("expected empty result on a flat market, got %+v", result)
	}
}
