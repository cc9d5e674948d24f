// Package elliott implements a pivot-based Elliott Wave pattern
// analyzer: swing-pivot extraction, a 5-wave impulse detector, and a
// 3-wave ABC correction detector.
package elliott

import (
	"fmt"

	"signalforge/internal/analyzer"
	"signalforge/internal/market"
)

// PivotKind distinguishes a swing high from a swing low.
type PivotKind int

const (
	SwingLow PivotKind = iota
	SwingHigh
)

// Pivot is a local extremum over a bi-directional window.
type Pivot struct {
	Index int
	Price float64
	Kind  PivotKind
}

const pivotWindow = 5
const maxPivots = 10

// ExtractPivots marks a swing-high at index i when candles[i].High
// strictly dominates the pivotWindow bars on each side, and a
// swing-low symmetrically on Low. Returns at most the most recent
// maxPivots pivots found, oldest first.
func ExtractPivots(candles []market.Candle) []Pivot {
	var pivots []Pivot
	for i := pivotWindow; i < len(candles)-pivotWindow; i++ {
		isHigh := true
		isLow := true
		for j := i - pivotWindow; j <= i+pivotWindow; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			pivots = append(pivots, Pivot{Index: i, Price: candles[i].High, Kind: SwingHigh})
		} else if isLow {
			pivots = append(pivots, Pivot{Index: i, Price: candles[i].Low, Kind: SwingLow})
		}
	}
	if len(pivots) > maxPivots {
		pivots = pivots[len(pivots)-maxPivots:]
	}
	return pivots
}

// ImpulseResult describes a completed 5-wave impulse over pivots p0..p5.
type ImpulseResult struct {
	Found      bool
	Up         bool
	Confidence float64
	Wave1      float64
	Wave3      float64
	Wave4Level float64 // p4 price, used by SL/TP invalidation levels
	Wave5      float64
}

func wavelen(a, b Pivot) float64 {
	d := b.Price - a.Price
	if d < 0 {
		return -d
	}
	return d
}

// DetectImpulse scans the most recent 6 pivots for an alternating
// low-high-low-high-low-high (impulse up) or its mirror (impulse
// down) sequence and validates the standard Elliott rules.
func DetectImpulse(pivots []Pivot) ImpulseResult {
	if len(pivots) < 6 {
		return ImpulseResult{}
	}
	p := pivots[len(pivots)-6:]

	up := p[0].Kind == SwingLow && p[1].Kind == SwingHigh && p[2].Kind == SwingLow &&
		p[3].Kind == SwingHigh && p[4].Kind == SwingLow && p[5].Kind == SwingHigh
	down := p[0].Kind == SwingHigh && p[1].Kind == SwingLow && p[2].Kind == SwingHigh &&
		p[3].Kind == SwingLow && p[4].Kind == SwingHigh && p[5].Kind == SwingLow
	if !up && !down {
		return ImpulseResult{}
	}

	wave1 := wavelen(p[0], p[1])
	wave2 := wavelen(p[1], p[2])
	wave3 := wavelen(p[2], p[3])
	wave4 := wavelen(p[3], p[4])
	wave5 := wavelen(p[4], p[5])

	if wave1 == 0 {
		return ImpulseResult{}
	}
	// (a) wave-2 retrace < 100% of wave-1
	if wave2 >= wave1 {
		return ImpulseResult{}
	}
	// (b) wave-3 not the shortest of {wave1, wave3, wave5}
	if wave3 < wave1 && wave3 < wave5 {
		return ImpulseResult{}
	}
	// (c) wave-4 does not overlap wave-1 (p4 beyond p1 in trend direction)
	if up {
		if p[4].Price <= p[1].Price {
			return ImpulseResult{}
		}
	} else {
		if p[4].Price >= p[1].Price {
			return ImpulseResult{}
		}
	}
	_ = wave4

	confidence := 0.5
	if wave3 > wave1 && wave3 > wave5 {
		confidence += 0.2
	}
	if wave3 > 1.618*wave1 {
		confidence += 0.15
	}
	if wave5 < wave3 {
		confidence += 0.15
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return ImpulseResult{
		Found:      true,
		Up:         up,
		Confidence: confidence,
		Wave1:      wave1,
		Wave3:      wave3,
		Wave4Level: p[4].Price,
		Wave5:      wave5,
	}
}

// ABCResult describes a completed 3-wave corrective sequence.
type ABCResult struct {
	Found       bool
	PriorUptrend bool
	Confidence  float64
	WaveA       float64
	WaveC       float64
}

// DetectABC scans the most recent 4 pivots for high-low-high-low (a
// correction after an uptrend) or its mirror, and validates
// wave-C/wave-A ∈ [0.8, 1.618].
func DetectABC(pivots []Pivot) ABCResult {
	if len(pivots) < 4 {
		return ABCResult{}
	}
	p := pivots[len(pivots)-4:]

	afterUptrend := p[0].Kind == SwingHigh && p[1].Kind == SwingLow && p[2].Kind == SwingHigh && p[3].Kind == SwingLow
	afterDowntrend := p[0].Kind == SwingLow && p[1].Kind == SwingHigh && p[2].Kind == SwingLow && p[3].Kind == SwingHigh
	if !afterUptrend && !afterDowntrend {
		return ABCResult{}
	}

	waveA := wavelen(p[0], p[1])
	waveC := wavelen(p[2], p[3])
	if waveA == 0 {
		return ABCResult{}
	}
	ratio := waveC / waveA
	if ratio < 0.8 || ratio > 1.618 {
		return ABCResult{}
	}

	confidence := 0.5
	if ratio >= 0.95 && ratio <= 1.05 {
		confidence += 0.3
	}

	return ABCResult{
		Found:        true,
		PriorUptrend: afterUptrend,
		Confidence:   confidence,
		WaveA:        waveA,
		WaveC:        waveC,
	}
}

// Analyzer implements analyzer.Analyzer. A completed impulse signals
// the expected reversal/correction (up-impulse -> SHORT, down-impulse
// -> LONG); a completed ABC signals resumption of the prior trend.
type Analyzer struct{}

func (Analyzer) Name() string { return "elliott" }

func (Analyzer) Analyze(candles []market.Candle, symbol, interval string) analyzer.Result {
	pivots := ExtractPivots(candles)

	if impulse := DetectImpulse(pivots); impulse.Found {
		direction := market.Short
		if !impulse.Up {
			direction = market.Long
		}
		return analyzer.Result{
			Analyzer:   "elliott",
			Direction:  direction,
			Confidence: impulse.Confidence,
			Rationale:  []string{fmt.Sprintf("completed %s impulse, wave3=%.4f wave1=%.4f", upDown(impulse.Up), impulse.Wave3, impulse.Wave1)},
			Detail: map[string]interface{}{
				"wave_1": impulse.Wave1,
				"wave_3": impulse.Wave3,
				"wave_4": impulse.Wave4Level,
				"wave_5": impulse.Wave5,
			},
		}
	}

	if abc := DetectABC(pivots); abc.Found {
		direction := market.Long
		if abc.PriorUptrend {
			direction = market.Long // correction after uptrend resumes the uptrend
		} else {
			direction = market.Short
		}
		return analyzer.Result{
			Analyzer:   "elliott",
			Direction:  direction,
			Confidence: abc.Confidence,
			Rationale:  []string{fmt.Sprintf("completed ABC correction, wave_c/wave_a=%.2f", abc.WaveC/abc.WaveA)},
			Detail:     map[string]interface{}{"wave_a": abc.WaveA, "wave_c": abc.WaveC},
		}
	}

	return analyzer.Result{Analyzer: "elliott"}
}

func upDown(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
