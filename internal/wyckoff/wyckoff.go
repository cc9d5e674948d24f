// Package wyckoff implements a Wyckoff-style phase classifier and
// spring/upthrust reversal detectors, in the boolean-predicate-plus-
// aggregator style the pattern analyzers of the reference stack use
// for candlestick formations.
package wyckoff

import (
	"fmt"

	"signalforge/internal/analyzer"
	"signalforge/internal/indicators"
	"signalforge/internal/market"
)

// Phase is a coarse Wyckoff regime label.
type Phase string

const (
	Accumulation Phase = "ACCUMULATION"
	Markup       Phase = "MARKUP"
	Distribution Phase = "DISTRIBUTION"
	Markdown     Phase = "MARKDOWN"
	Unknown      Phase = "UNKNOWN"
)

const phaseWindow = 30

// ClassifyPhase labels the regime over the trailing phaseWindow bars
// using price-range percentage, the first-half-vs-second-half mean
// close trend, and a recent-volume ratio. Preserved as specified: a
// sideways regime with a microscopic trend is classified arbitrarily
// by the sign of the half-to-half mean close comparison — a known
// imprecision, not corrected.
func ClassifyPhase(candles []market.Candle) Phase {
	if len(candles) < phaseWindow {
		return Unknown
	}
	window := candles[len(candles)-phaseWindow:]

	support, resistance := indicators.SupportResistance(window)
	if resistance == 0 {
		return Unknown
	}
	rangePct := (resistance - support) / resistance

	half := phaseWindow / 2
	firstHalf := window[:half]
	secondHalf := window[half:]
	firstMean := meanClose(firstHalf)
	secondMean := meanClose(secondHalf)
	trendingUp := secondMean > firstMean

	recentVol := indicators.AverageVolume(window, 5)
	priorVol := indicators.AverageVolume(window[:len(window)-5], phaseWindow-5)
	volumeRatio := 1.0
	if priorVol > 0 {
		volumeRatio = recentVol / priorVol
	}

	isRange := rangePct < 0.05
	highVolume := volumeRatio > 1.2

	switch {
	case isRange && highVolume && trendingUp:
		return Accumulation
	case isRange && highVolume && !trendingUp:
		return Distribution
	case !isRange && trendingUp:
		return Markup
	case !isRange && !trendingUp:
		return Markdown
	default:
		return Unknown
	}
}

func meanClose(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.Close
	}
	return sum / float64(len(candles))
}

// SpringResult carries the spring/upthrust diagnostic detail.
type SpringResult struct {
	Found            bool
	Confidence       float64
	Level            float64
	RecoveryStrength float64
	VolumeRatio      float64
	BarsAgo          int
}

// DetectSpring looks over the trailing 20 bars (excluding the last 5)
// for support = min(low); within the last 5 bars, finds a bar whose low
// breaks support yet closes back above it. Confidence is
// recovery*0.4 + min(volume_ratio/2, 0.4) + (0.2 if the break is the
// most recent bar, else 0.1), capped at 1.0 — matching the original
// implementation's weighting.
func DetectSpring(candles []market.Candle) SpringResult {
	const lookback = 20
	const recentN = 5
	if len(candles) < lookback {
		return SpringResult{}
	}
	window := candles[len(candles)-lookback:]
	supportWindow := window[:lookback-recentN]
	_, support := 0.0, supportWindow[0].Low
	for _, c := range supportWindow {
		if c.Low < support {
			support = c.Low
		}
	}

	recent := window[lookback-recentN:]
	best := SpringResult{}
	for i, c := range recent {
		if c.Low >= support || c.Close <= support {
			continue
		}
		recovery := 0.0
		if c.High != c.Low {
			recovery = (c.Close - c.Low) / (c.High - c.Low)
		}
		priorVol := indicators.AverageVolume(candles[:len(candles)-recentN+i], 15)
		volumeRatio := 1.0
		if priorVol > 0 {
			volumeRatio = c.Volume / priorVol
		}
		barsAgo := recentN - 1 - i
		recencyBonus := 0.1
		if barsAgo == 0 {
			recencyBonus = 0.2
		}
		confidence := minF(1.0, 0.4*recovery+minF(volumeRatio/2.0, 0.4)+recencyBonus)
		if confidence > best.Confidence {
			best = SpringResult{
				Found:            confidence >= 0.5,
				Confidence:       confidence,
				Level:            support,
				RecoveryStrength: recovery,
				VolumeRatio:      volumeRatio,
				BarsAgo:          barsAgo,
			}
		}
	}
	return best
}

// UpthrustResult is the bearish dual of SpringResult.
type UpthrustResult struct {
	Found             bool
	Confidence        float64
	Level             float64
	RejectionStrength float64
	VolumeRatio       float64
	BarsAgo           int
}

// DetectUpthrust is the dual of DetectSpring around resistance = max(high).
func DetectUpthrust(candles []market.Candle) UpthrustResult {
	const lookback = 20
	const recentN = 5
	if len(candles) < lookback {
		return UpthrustResult{}
	}
	window := candles[len(candles)-lookback:]
	resWindow := window[:lookback-recentN]
	resistance := resWindow[0].High
	for _, c := range resWindow {
		if c.High > resistance {
			resistance = c.High
		}
	}

	recent := window[lookback-recentN:]
	best := UpthrustResult{}
	for i, c := range recent {
		if c.High <= resistance || c.Close >= resistance {
			continue
		}
		rejection := 0.0
		if c.High != c.Low {
			rejection = (c.High - c.Close) / (c.High - c.Low)
		}
		priorVol := indicators.AverageVolume(candles[:len(candles)-recentN+i], 15)
		volumeRatio := 1.0
		if priorVol > 0 {
			volumeRatio = c.Volume / priorVol
		}
		barsAgo := recentN - 1 - i
		recencyBonus := 0.1
		if barsAgo == 0 {
			recencyBonus = 0.2
		}
		confidence := minF(1.0, 0.4*rejection+minF(volumeRatio/2.0, 0.4)+recencyBonus)
		if confidence > best.Confidence {
			best = UpthrustResult{
				Found:             confidence >= 0.5,
				Confidence:        confidence,
				Level:             resistance,
				RejectionStrength: rejection,
				VolumeRatio:       volumeRatio,
				BarsAgo:           barsAgo,
			}
		}
	}
	return best
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Analyzer implements analyzer.Analyzer: LONG only on spring +
// ACCUMULATION, SHORT only on upthrust + DISTRIBUTION.
type Analyzer struct{}

func (Analyzer) Name() string { return "wyckoff" }

func (Analyzer) Analyze(candles []market.Candle, symbol, interval string) analyzer.Result {
	phase := ClassifyPhase(candles)
	spring := DetectSpring(candles)
	upthrust := DetectUpthrust(candles)

	if spring.Found && phase == Accumulation {
		return analyzer.Result{
			Analyzer:   "wyckoff",
			Direction:  market.Long,
			Confidence: spring.Confidence,
			Rationale: []string{fmt.Sprintf("spring at %.4f in accumulation, recovery=%.2f volume_ratio=%.2f",
				spring.Level, spring.RecoveryStrength, spring.VolumeRatio)},
			Detail: map[string]interface{}{"phase": string(phase), "spring": spring},
		}
	}
	if upthrust.Found && phase == Distribution {
		return analyzer.Result{
			Analyzer:   "wyckoff",
			Direction:  market.Short,
			Confidence: upthrust.Confidence,
			Rationale: []string{fmt.Sprintf("upthrust at %.4f in distribution, rejection=%.2f volume_ratio=%.2f",
				upthrust.Level, upthrust.RejectionStrength, upthrust.VolumeRatio)},
			Detail: map[string]interface{}{"phase": string(phase), "upthrust": upthrust},
		}
	}
	return analyzer.Result{Analyzer: "wyckoff", Detail: map[string]interface{}{"phase": string(phase)}}
}
