// Package indicators provides stateless numeric routines over a
// candle series: moving averages, oscillators, volatility and volume
// measures, and price-level helpers (pivots, Fibonacci).
package indicators

import (
	"math"

	"signalforge/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average over the last `period` closes.
func SMA(candles []market.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average, seeded from an SMA of
// the first `period` closes and rolled forward across the entire
// series so the average reflects the whole history available, not just
// the trailing window.
func EMA(candles []market.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	ema := sum / float64(period)
	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(candles); i++ {
		ema = (candles[i].Close-ema)*multiplier + ema
	}
	return ema
}

// EMASeries returns the EMA value at every index once `period` closes are
// available (zero before that), used by callers that need the running
// series rather than a single terminal value (e.g. MACD history).
func EMASeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema
	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		ema = (closes[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// ============================================================================
// VOLATILITY
// ============================================================================

// ATR computes the Average True Range over the last `period` bars.
func ATR(candles []market.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}
	start := len(candles) - period
	sum := 0.0
	for i := start; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1])
	}
	return sum / float64(period)
}

func trueRange(cur, prev market.Candle) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// BollingerBands holds the three classic bands computed over a period.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes Bollinger Bands with the given period and std-dev multiplier.
func Bollinger(candles []market.Candle, period int, stdDevs float64) BollingerBands {
	if len(candles) < period || period <= 0 {
		return BollingerBands{}
	}
	middle := SMA(candles, period)
	start := len(candles) - period
	variance := 0.0
	for i := start; i < len(candles); i++ {
		d := candles[i].Close - middle
		variance += d * d
	}
	variance /= float64(period)
	sd := math.Sqrt(variance)
	return BollingerBands{
		Upper:  middle + stdDevs*sd,
		Middle: middle,
		Lower:  middle - stdDevs*sd,
	}
}

// Stochastic holds the %K / %D oscillator pair.
type Stochastic struct {
	K float64
	D float64
}

// StochasticOscillator computes %K over `kPeriod` bars and %D as the
// `dPeriod`-bar SMA of the trailing %K values.
func StochasticOscillator(candles []market.Candle, kPeriod, dPeriod int) Stochastic {
	if len(candles) < kPeriod+dPeriod || kPeriod <= 0 {
		return Stochastic{}
	}
	ks := make([]float64, dPeriod)
	for j := 0; j < dPeriod; j++ {
		end := len(candles) - (dPeriod - 1 - j)
		window := candles[end-kPeriod : end]
		hi, lo := window[0].High, window[0].Low
		for _, c := range window {
			if c.High > hi {
				hi = c.High
			}
			if c.Low < lo {
				lo = c.Low
			}
		}
		cur := window[len(window)-1].Close
		if hi == lo {
			ks[j] = 50
		} else {
			ks[j] = (cur - lo) / (hi - lo) * 100
		}
	}
	sum := 0.0
	for _, v := range ks {
		sum += v
	}
	return Stochastic{K: ks[len(ks)-1], D: sum / float64(len(ks))}
}

// ADX approximates the Average Directional Index over `period` bars from
// directional movement relative to true range, each taken as a simple
// mean of the trailing `period` values. It returns that window's single
// DX reading; DX is not further averaged.
func ADX(candles []market.Candle, period int) float64 {
	if len(candles) < period*2+1 || period <= 0 {
		return 0
	}
	var plusDM, minusDM, tr []float64
	for i := 1; i < len(candles); i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		pd, md := 0.0, 0.0
		if up > down && up > 0 {
			pd = up
		}
		if down > up && down > 0 {
			md = down
		}
		plusDM = append(plusDM, pd)
		minusDM = append(minusDM, md)
		tr = append(tr, trueRange(candles[i], candles[i-1]))
	}
	smoothedTR := wilderSmooth(tr, period)
	smoothedPlusDM := wilderSmooth(plusDM, period)
	smoothedMinusDM := wilderSmooth(minusDM, period)
	if smoothedTR == 0 {
		return 0
	}
	plusDI := 100 * smoothedPlusDM / smoothedTR
	minusDI := 100 * smoothedMinusDM / smoothedTR
	sumDI := plusDI + minusDI
	if sumDI == 0 {
		return 0
	}
	dx := 100 * math.Abs(plusDI-minusDI) / sumDI
	return dx
}

func wilderSmooth(values []float64, period int) float64 {
	if len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// ============================================================================
// VOLUME
// ============================================================================

// AverageVolume returns the mean volume of the trailing `period` bars.
func AverageVolume(candles []market.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}

// IsVolumeSurge reports whether the latest bar's volume exceeds the
// trailing `lookback`-bar average by at least `multiplier`.
func IsVolumeSurge(candles []market.Candle, lookback int, multiplier float64) bool {
	if len(candles) < lookback+1 {
		return false
	}
	avg := AverageVolume(candles[:len(candles)-1], lookback)
	if avg == 0 {
		return false
	}
	return candles[len(candles)-1].Volume >= avg*multiplier
}

// VWAP computes the volume-weighted average price over the full window
// given (the caller selects the session/window to pass in).
func VWAP(candles []market.Candle) float64 {
	var pvSum, vSum float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		pvSum += typical * c.Volume
		vSum += c.Volume
	}
	if vSum == 0 {
		return 0
	}
	return pvSum / vSum
}

// VolumeProfile buckets the window's volume by price level and reports
// the point of control (the bucket with the greatest traded volume).
type VolumeProfile struct {
	PointOfControl float64
	Buckets        map[float64]float64
}

// BuildVolumeProfile buckets `candles` into `bucketSize`-wide price bins.
func BuildVolumeProfile(candles []market.Candle, bucketSize float64) VolumeProfile {
	buckets := make(map[float64]float64)
	if bucketSize <= 0 {
		return VolumeProfile{Buckets: buckets}
	}
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		bucket := math.Floor(typical/bucketSize) * bucketSize
		buckets[bucket] += c.Volume
	}
	var poc float64
	var best float64 = -1
	for price, vol := range buckets {
		if vol > best {
			best = vol
			poc = price
		}
	}
	return VolumeProfile{PointOfControl: poc, Buckets: buckets}
}

// ============================================================================
// PRICE LEVELS
// ============================================================================

// FibonacciLevels holds the standard retracement ratios between a swing
// high and low.
type FibonacciLevels struct {
	Level0   float64
	Level236 float64
	Level382 float64
	Level50  float64
	Level618 float64
	Level786 float64
	Level100 float64
}

// Fibonacci computes retracement levels between a swing high and low.
func Fibonacci(high, low float64) FibonacciLevels {
	diff := high - low
	return FibonacciLevels{
		Level0:   high,
		Level236: high - diff*0.236,
		Level382: high - diff*0.382,
		Level50:  high - diff*0.5,
		Level618: high - diff*0.618,
		Level786: high - diff*0.786,
		Level100: low,
	}
}

// PivotPoints holds a standard pivot level ladder.
type PivotPoints struct {
	Pivot float64
	R1, R2, R3 float64
	S1, S2, S3 float64
}

// StandardPivots computes classic floor-trader pivot points from the
// prior bar's high/low/close.
func StandardPivots(prior market.Candle) PivotPoints {
	p := (prior.High + prior.Low + prior.Close) / 3
	return PivotPoints{
		Pivot: p,
		R1:    2*p - prior.Low,
		S1:    2*p - prior.High,
		R2:    p + (prior.High - prior.Low),
		S2:    p - (prior.High - prior.Low),
		R3:    prior.High + 2*(p-prior.Low),
		S3:    prior.Low - 2*(prior.High-p),
	}
}

// FibonacciPivots computes Fibonacci-ratio pivot points from the prior
// bar's high/low/close.
func FibonacciPivots(prior market.Candle) PivotPoints {
	p := (prior.High + prior.Low + prior.Close) / 3
	rng := prior.High - prior.Low
	return PivotPoints{
		Pivot: p,
		R1:    p + 0.382*rng,
		R2:    p + 0.618*rng,
		R3:    p + 1.0*rng,
		S1:    p - 0.382*rng,
		S2:    p - 0.618*rng,
		S3:    p - 1.0*rng,
	}
}

// SupportResistance returns the min low and max high over the window,
// the simplest support/resistance estimate used by the pattern analyzers.
func SupportResistance(candles []market.Candle) (support, resistance float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	support, resistance = candles[0].Low, candles[0].High
	for _, c := range candles {
		if c.Low < support {
			support = c.Low
		}
		if c.High > resistance {
			resistance = c.High
		}
	}
	return support, resistance
}
