// Package analyzer defines the common advisory record and capability
// interface shared by every pattern and momentum analyzer (Wyckoff,
// Elliott, RSI, MACD). This replaces the dynamic, loosely-typed advice
// dictionaries of the original implementation with one explicit record.
package analyzer

import "signalforge/internal/market"

// Result is the advisory a single analyzer produces for one bar close.
// An analyzer with nothing to say returns a zero-value Result with
// Direction == market.None.
type Result struct {
	Analyzer   string
	Direction  market.Direction
	Confidence float64 // [0,1]
	Rationale  []string
	Detail     map[string]interface{}
}

// Empty reports whether the result carries no advice.
func (r Result) Empty() bool {
	return r.Direction == market.None
}

// Analyzer is the single capability every pattern/momentum analyzer
// implements: produce an advisory from a closed-bar history.
type Analyzer interface {
	Name() string
	Analyze(candles []market.Candle, symbol, interval string) Result
}
