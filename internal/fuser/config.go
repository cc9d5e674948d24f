package fuser

import "time"

// Config holds every tunable the fuser's fusion and suppression logic
// reads, matching the named environment effects of the specification.
type Config struct {
	MinCandles       int
	MinConfidence    float64
	SignalCooldown   time.Duration
	SymbolCooldown   time.Duration
	ConflictWindow   time.Duration
	AntiSpamWindow   time.Duration
	AntiSpamDeltaPct float64
	RRFloor          float64

	EnableWyckoff bool
	EnableElliott bool
	ElliottTPRatio float64

	// SuppressionDisabled turns off cooldown/conflict/anti-spam gating
	// entirely — used by the backtest driver, which replays the fuser
	// as a pure function of bar history.
	SuppressionDisabled bool
}

// DefaultConfig returns the specification's stated defaults.
func DefaultConfig() Config {
	return Config{
		MinCandles:       500,
		MinConfidence:    0.65,
		SignalCooldown:   300 * time.Second,
		SymbolCooldown:   3600 * time.Second,
		ConflictWindow:   3600 * time.Second,
		AntiSpamWindow:   3600 * time.Second,
		AntiSpamDeltaPct: 0.015,
		RRFloor:          1.2,
		EnableWyckoff:    true,
		EnableElliott:    true,
		ElliottTPRatio:   1.0,
	}
}
