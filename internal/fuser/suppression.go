package fuser

import (
	"sync"
	"time"

	"signalforge/internal/market"
)

// symbolState tracks the per-symbol suppression bookkeeping (global
// cooldown, conflict window, anti-spam window) shared across all
// intervals for that symbol. Shape grounded on the reference stack's
// circuit breaker's mutex-protected reset-window counters.
type symbolState struct {
	lastEmit       time.Time
	lastDirection  market.Direction
	lastEntryPrice float64
}

// keyState tracks the per-(symbol, interval) cooldown only.
type keyState struct {
	lastEmit time.Time
}

// suppressor holds all cooldown/conflict/anti-spam state. Zero value
// is usable (all gates open).
type suppressor struct {
	mu      sync.Mutex
	byKey   map[market.Key]*keyState
	bySym   map[string]*symbolState

	keyCooldown      time.Duration
	symbolCooldown   time.Duration
	conflictWindow   time.Duration
	antiSpamWindow   time.Duration
	antiSpamDeltaPct float64
}

func newSuppressor(cfg Config) *suppressor {
	return &suppressor{
		byKey:            make(map[market.Key]*keyState),
		bySym:            make(map[string]*symbolState),
		keyCooldown:      cfg.SignalCooldown,
		symbolCooldown:   cfg.SymbolCooldown,
		conflictWindow:   cfg.ConflictWindow,
		antiSpamWindow:   cfg.AntiSpamWindow,
		antiSpamDeltaPct: cfg.AntiSpamDeltaPct,
	}
}

// checkCooldowns runs suppression rules 1 and 2 — the two checks that
// need no candidate direction and so can short-circuit before any
// analyzer runs.
func (s *suppressor) checkCooldowns(now time.Time, key market.Key) (ok bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ks, found := s.byKey[key]; found && !ks.lastEmit.IsZero() {
		if now.Sub(ks.lastEmit) < s.keyCooldown {
			return false, "per-interval cooldown active"
		}
	}
	if sym, found := s.bySym[key.Symbol]; found && !sym.lastEmit.IsZero() {
		if now.Sub(sym.lastEmit) < s.symbolCooldown {
			return false, "per-symbol global cooldown active"
		}
	}
	return true, ""
}

// checkDirectional runs suppression rules 3 and 4, which need the
// candidate direction and entry price produced by fusion.
func (s *suppressor) checkDirectional(now time.Time, symbol string, direction market.Direction, entryPrice float64) (ok bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, found := s.bySym[symbol]
	if !found || sym.lastEmit.IsZero() {
		return true, ""
	}

	if now.Sub(sym.lastEmit) < s.conflictWindow && sym.lastDirection != market.None && sym.lastDirection != direction {
		return false, "conflicting direction"
	}

	if now.Sub(sym.lastEmit) < s.antiSpamWindow && sym.lastDirection == direction && sym.lastEntryPrice > 0 {
		delta := (entryPrice - sym.lastEntryPrice) / sym.lastEntryPrice
		if delta < 0 {
			delta = -delta
		}
		if delta < s.antiSpamDeltaPct {
			return false, "anti-spam: insufficient price movement for re-emission"
		}
	}
	return true, ""
}

// record updates cooldown state after a successful emission. Must only
// be called after the signal has been durably persisted.
func (s *suppressor) record(now time.Time, key market.Key, direction market.Direction, entryPrice float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks, found := s.byKey[key]
	if !found {
		ks = &keyState{}
		s.byKey[key] = ks
	}
	ks.lastEmit = now

	sym, found := s.bySym[key.Symbol]
	if !found {
		sym = &symbolState{}
		s.bySym[key.Symbol] = sym
	}
	sym.lastEmit = now
	sym.lastDirection = direction
	sym.lastEntryPrice = entryPrice
}
