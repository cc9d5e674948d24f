package fuser

import (
	"signalforge/internal/analyzer"
	"signalforge/internal/indicators"
	"signalforge/internal/market"
)

// targets holds the computed risk levels for an about-to-emit signal.
type targets struct {
	StopLoss    float64
	TakeProfit  float64
	TakeProfit2 float64
	TakeProfit3 float64
	ATR         float64
	Mode        string // "atr" or "elliott"
}

// computeTargets implements §4.5's SL/TP computation: ATR mode by
// default, Elliott-wave mode when Elliott contributed and wave fields
// are available, with fallback to ATR when they are not. The reward/
// risk floor is enforced by widening the take-profit distance.
func computeTargets(
	candles []market.Candle,
	direction market.Direction,
	entry float64,
	elliottResult analyzer.Result,
	elliottEnabled bool,
	elliottRatio float64,
	rrFloor float64,
) targets {
	atr := atrOver(candles)

	useElliott := elliottEnabled && elliottResult.Direction == direction
	var wave1, wave4 float64
	if useElliott {
		w1, ok1 := elliottResult.Detail["wave_1"].(float64)
		w4, ok4 := elliottResult.Detail["wave_4"].(float64)
		if ok1 && ok4 && w1 > 0 {
			wave1, wave4 = w1, w4
		} else {
			useElliott = false
		}
	}

	if useElliott {
		return computeElliottTargets(direction, entry, wave1, wave4, elliottRatio, rrFloor, atr)
	}
	return computeATRTargets(direction, entry, atr, rrFloor)
}

func atrOver(candles []market.Candle) float64 {
	const window = 30
	const period = 14
	if len(candles) < window {
		return indicators.ATR(candles, period)
	}
	return indicators.ATR(candles[len(candles)-window:], period)
}

func computeATRTargets(direction market.Direction, entry, atr, rrFloor float64) targets {
	var sl, tp float64
	if atr <= 0 {
		// Fallback fixed percents when ATR is unavailable.
		const slPct, tpPct = 0.02, 0.03
		if direction == market.Long {
			sl = entry * (1 - slPct)
			tp = entry * (1 + tpPct)
		} else {
			sl = entry * (1 + slPct)
			tp = entry * (1 - tpPct)
		}
	} else {
		if direction == market.Long {
			sl = entry - 2*atr
			tp = entry + 3*atr
		} else {
			sl = entry + 2*atr
			tp = entry - 3*atr
		}
	}
	tp = widenForFloor(direction, entry, sl, tp, rrFloor)
	return finalize(direction, entry, sl, tp, atr, "atr")
}

func computeElliottTargets(direction market.Direction, entry, wave1, wave4Level, ratio, rrFloor, atr float64) targets {
	var sl, tp float64
	const invalidationBuffer = 0.001 // 0.1%
	if direction == market.Long {
		sl = wave4Level * (1 - invalidationBuffer)
		tp = entry + wave1*ratio
	} else {
		sl = wave4Level * (1 + invalidationBuffer)
		tp = entry - wave1*ratio
	}
	tp = widenForFloor(direction, entry, sl, tp, rrFloor)
	return finalize(direction, entry, sl, tp, atr, "elliott")
}

// widenForFloor widens the TP distance from entry, if needed, so the
// reward/risk ratio meets rrFloor exactly.
func widenForFloor(direction market.Direction, entry, sl, tp, rrFloor float64) float64 {
	risk := entry - sl
	if direction == market.Short {
		risk = sl - entry
	}
	if risk <= 0 {
		return tp
	}
	reward := tp - entry
	if direction == market.Short {
		reward = entry - tp
	}
	if reward/risk >= rrFloor {
		return tp
	}
	minReward := risk * rrFloor
	if direction == market.Long {
		return entry + minReward
	}
	return entry - minReward
}

// finalize derives the two extended take-profits at 1.5x and 2.0x the
// primary TP distance from entry.
func finalize(direction market.Direction, entry, sl, tp, atr float64, mode string) targets {
	dist := tp - entry
	if direction == market.Short {
		dist = entry - tp
	}
	var tp2, tp3 float64
	if direction == market.Long {
		tp2 = entry + dist*1.5
		tp3 = entry + dist*2.0
	} else {
		tp2 = entry - dist*1.5
		tp3 = entry - dist*2.0
	}
	return targets{StopLoss: sl, TakeProfit: tp, TakeProfit2: tp2, TakeProfit3: tp3, ATR: atr, Mode: mode}
}
