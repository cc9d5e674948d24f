package momentum

import (
	"testing"

	"signalforge/internal/market"
)

func closesToCandles(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestCalculateInsufficientHistoryReturnsNeutral(t *testing.T) {
	candles := closesToCandles([]float64{1, 2, 3})
	if got := Calculate(candles, 14); got != 50.0 {
		t.Errorf("Calculate = %v, want 50 (neutral) on insufficient history", got)
	}
}

func TestCalculateAllGainsReturns100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	if got := Calculate(closesToCandles(closes), 14); got != 100.0 {
		t.Errorf("Calculate (all gains) = %v, want 100", got)
	}
}

func TestCalculateAllLossesReturnsZero(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(20 - i)
	}
	got := Calculate(closesToCandles(closes), 14)
	if got > 1 {
		t.Errorf("Calculate (all losses) = %v, want near 0", got)
	}
}

func TestRSIAnalyzerEmitsLongWhenOversold(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(20 - i)
	}
	a := NewRSIAnalyzer()
	result := a.Analyze(closesToCandles(closes), "BTCUSDT", "1h")
	if result.Direction != market.Long {
		t.Fatalf("Direction = %v, want LONG on a falling series", result.Direction)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("Confidence = %v, want within (0,1]", result.Confidence)
	}
}

func TestRSIAnalyzerEmitsShortWhenOverbought(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	a := NewRSIAnalyzer()
	result := a.Analyze(closesToCandles(closes), "BTCUSDT", "1h")
	if result.Direction != market.Short {
		t.Fatalf("Direction = %v, want SHORT on a rising series", result.Direction)
	}
}

func TestRSIAnalyzerEmptyWhenNeutral(t *testing.T) {
	candles := make([]market.Candle, 20)
	for i := range candles {
		candles[i] = market.Candle{Open: 100, High: 100, Low: 100, Close: 100}
	}
	a := NewRSIAnalyzer()
	result := a.Analyze(candles, "BTCUSDT", "1h")
	if !result.Empty() {
		t.Errorf("expected empty result on flat series, got %+v", result)
	}
}
