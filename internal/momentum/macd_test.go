package momentum

import (
	"testing"
)

func TestMACDAnalyzerInsufficientHistory(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
	}
	a := NewMACDAnalyzer()
	result := a.Analyze(closesToCandles(closes), "BTCUSDT", "1h")
	if !result.Empty() {
		t.Errorf("expected empty result on insufficient history, got %+v", result)
	}
}

func TestMACDSeriesLeadingZerosBeforeValidWindow(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	a := NewMACDAnalyzer()
	macdLine, signalLine, _ := a.Series(closesToCandles(closes))
	if macdLine[a.Slow-2] != 0 {
		t.Errorf("macdLine before Slow-1 should be zero, got %v", macdLine[a.Slow-2])
	}
	if signalLine[a.Slow-1] != 0 {
		t.Errorf("signalLine before enough MACD history should be zero, got %v", signalLine[a.Slow-1])
	}
}

func TestMACDAnalyzerCrossoverConsistency(t *testing.T) {
	closes := make([]float64, 0, 80)
	price := 200.0
	for i := 0; i < 45; i++ {
		price -= 1
		closes = append(closes, price)
	}
	for i := 0; i < 35; i++ {
		price += 2
		closes = append(closes, price)
	}

	a := NewMACDAnalyzer()
	candles := closesToCandles(closes)
	result := a.Analyze(candles, "BTCUSDT", "1h")
	if result.Empty() {
		return
	}
	_, _, histogram := a.Series(candles)
	n := len(candles)
	switch result.Direction {
	case "LONG":
		if !(histogram[n-2] < 0 && histogram[n-1] > 0) {
			t.Errorf("LONG signal should follow a negative-to-positive histogram flip, got %v -> %v",
				histogram[n-2], histogram[n-1])
		}
	case "SHORT":
		if !(histogram[n-2] > 0 && histogram[n-1] < 0) {
			t.Errorf("SHORT signal should follow a positive-to-negative histogram flip, got %v -> %v",
				histogram[n-2], histogram[n-1])
		}
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("Confidence = %v, want within (0,1]", result.Confidence)
	}
}
