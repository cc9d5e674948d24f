package elliott

import (
	"testing"

	"signalforge/internal/market"
)

func TestExtractPivotsFindsSingleSwingHigh(t *testing.T) {
	candles := make([]market.Candle, 15)
	for i := range candles {
		candles[i] = market.Candle{High: 100, Low: 90}
	}
	candles[7].High = 150
	candles[7].Low = 140

	pivots := ExtractPivots(candles)
	if len(pivots) != 1 {
		t.Fatalf("expected exactly one pivot, got %d: %+v", len(pivots), pivots)
	}
	if pivots[0].Index != 7 || pivots[0].Kind != SwingHigh || pivots[0].Price != 150 {
		t.Errorf("pivot = %+v, want index 7 swing-high at 150", pivots[0])
	}
}

func TestExtractPivotsCapsAtMaxPivots(t *testing.T) {
	n := 200
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{High: 100, Low: 90}
	}
	for i := pivotWindow + 1; i < n-pivotWindow; i += 2 * pivotWindow {
		candles[i].High = 200
	}
	pivots := ExtractPivots(candles)
	if len(pivots) > maxPivots {
		t.Errorf("len(pivots) = %d, want at most %d", len(pivots), maxPivots)
	}
}

func impulsePivots(up bool) []Pivot {
	if up {
		return []Pivot{
			{Index: 0, Price: 100, Kind: SwingLow},
			{Index: 1, Price: 110, Kind: SwingHigh},
			{Index: 2, Price: 105, Kind: SwingLow},
			{Index: 3, Price: 130, Kind: SwingHigh},
			{Index: 4, Price: 120, Kind: SwingLow},
			{Index: 5, Price: 140, Kind: SwingHigh},
		}
	}
	return []Pivot{
		{Index: 0, Price: 140, Kind: SwingHigh},
		{Index: 1, Price: 130, Kind: SwingLow},
		{Index: 2, Price: 135, Kind: SwingHigh},
		{Index: 3, Price: 110, Kind: SwingLow},
		{Index: 4, Price: 120, Kind: SwingHigh},
		{Index: 5, Price: 100, Kind: SwingLow},
	}
}

func TestDetectImpulseValidUpImpulse(t *testing.T) {
	result := DetectImpulse(impulsePivots(true))
	if !result.Found || !result.Up {
		t.Fatalf("expected a valid up impulse, got %+v", result)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("Confidence = %v, want within (0,1]", result.Confidence)
	}
}

func TestDetectImpulseValidDownImpulse(t *testing.T) {
	result := DetectImpulse(impulsePivots(false))
	if !result.Found || result.Up {
		t.Fatalf("expected a valid down impulse, got %+v", result)
	}
}

func TestDetectImpulseRejectsWave2OverRetrace(t *testing.T) {
	pivots := impulsePivots(true)
	pivots[2].Price = 95 // wave2 = 15 > wave1 = 10, invalidates rule (a)
	result := DetectImpulse(pivots)
	if result.Found {
		t.Errorf("expected rule (a) violation to reject the impulse, got %+v", result)
	}
}

func TestDetectImpulseInsufficientPivots(t *testing.T) {
	if result := DetectImpulse(impulsePivots(true)[:4]); result.Found {
		t.Errorf("expected no impulse with fewer than 6 pivots, got %+v", result)
	}
}

func abcPivots(afterUptrend bool) []Pivot {
	if afterUptrend {
		return []Pivot{
			{Index: 0, Price: 130, Kind: SwingHigh},
			{Index: 1, Price: 100, Kind: SwingLow},
			{Index: 2, Price: 130, Kind: SwingHigh},
			{Index: 3, Price: 100, Kind: SwingLow},
		}
	}
	return []Pivot{
		{Index: 0, Price: 100, Kind: SwingLow},
		{Index: 1, Price: 130, Kind: SwingHigh},
		{Index: 2, Price: 100, Kind: SwingLow},
		{Index: 3, Price: 130, Kind: SwingHigh},
	}
}

func TestDetectABCValidCorrectionAfterUptrend(t *testing.T) {
	result := DetectABC(abcPivots(true))
	if !result.Found || !result.PriorUptrend {
		t.Fatalf("expected a valid ABC correction after an uptrend, got %+v", result)
	}
	if result.Confidence < 0.5 {
		t.Errorf("Confidence = %v, want at least 0.5", result.Confidence)
	}
}

func TestDetectABCRejectsOutOfRangeRatio(t *testing.T) {
	pivots := abcPivots(true)
	pivots[3].Price = 129 // waveC/waveA ~= 0.03, far outside [0.8, 1.618]
	result := DetectABC(pivots)
	if result.Found {
		t.Errorf("expected out-of-range wave_c/wave_a ratio to reject the correction, got %+v", result)
	}
}

func TestAnalyzerEmptyOnFlatMarket(t *testing.T) {
	candles := make([]market.Candle, 50)
	for i := range candles {
		candles[i] = market.Candle{High: 100, Low: 90, Close: 95}
	}
	result := Analyzer{}.Analyze(candles, "BTCUSDT", "1h")
	if !result.Empty() {
		t.Errorf("expected empty result on a flat market, got %+v", result)
	}
}
