package market

import "time"

// SignalStatus tracks a persisted signal's lifecycle after emission.
type SignalStatus string

const (
	StatusPending SignalStatus = "pending"
	StatusHit     SignalStatus = "hit"
	StatusStopped SignalStatus = "stopped"
	StatusExpired SignalStatus = "expired"
)

// Signal is the record the fuser emits on a successful fusion +
// suppression pass. It is immutable except for Status once persisted.
type Signal struct {
	ID             int64
	Symbol         string
	Interval       string
	Direction      Direction
	EntryPrice     float64
	StopLoss       float64
	TakeProfit     float64
	TakeProfit2    float64
	TakeProfit3    float64
	Confidence     float64
	WyckoffPhase   string
	ElliottWaves   int
	Indicators     map[string]interface{}
	Rationale      []string
	ATRSnapshot    float64
	CreatedAt      time.Time
	Status         SignalStatus
	NotifierMsgID  string
}
