// Package metrics tracks in-process operational counters for the
// engine (signals emitted, candles processed, analyzer errors,
// uptime) and exposes them both as an in-process Snapshot and as
// Prometheus collectors for the /metrics endpoint.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"signalforge/internal/market"
)

// windowCounter tracks a count alongside a rolling reset boundary,
// the same reset-on-elapsed shape as the reference circuit breaker's
// hourly/daily counters.
type windowCounter struct {
	count     int
	resetAt   time.Time
	window    time.Duration
}

func newWindowCounter(window time.Duration) windowCounter {
	return windowCounter{resetAt: time.Now().Add(window), window: window}
}

func (w *windowCounter) bump(now time.Time) {
	w.rolloverIfNeeded(now)
	w.count++
}

func (w *windowCounter) rolloverIfNeeded(now time.Time) {
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(w.window)
	}
}

// Sink is the Fuser/Aggregator-facing recording surface.
type Sink struct {
	mu        sync.Mutex
	startedAt time.Time

	signalsTotal     int64
	signalsLastHour  windowCounter
	signalsToday     windowCounter
	rejectionsByReason map[string]int64
	analyzerErrors   map[string]int64
	candlesProcessed int64

	promSignals         *prometheus.CounterVec
	promCandles         prometheus.Counter
	promAnalyzerErrors  *prometheus.CounterVec
	promUptime          prometheus.CounterFunc
}

// New builds a Sink and registers its collectors against reg. Pass
// prometheus.NewRegistry() (not the global DefaultRegisterer) so tests
// can construct independent Sinks without collector-already-registered
// panics.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		startedAt:          time.Now(),
		rejectionsByReason: make(map[string]int64),
		analyzerErrors:     make(map[string]int64),
		signalsLastHour:    newWindowCounter(time.Hour),
		signalsToday:       newWindowCounter(24 * time.Hour),
		promSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surveillance_signals_total",
			Help: "Signals emitted, partitioned by symbol/interval/direction.",
		}, []string{"symbol", "interval", "direction"}),
		promCandles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surveillance_candles_processed_total",
			Help: "Closed candles processed by the aggregator.",
		}),
		promAnalyzerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surveillance_analyzer_errors_total",
			Help: "Analyzer panics/failures recovered by the fuser, by analyzer name.",
		}, []string{"analyzer"}),
	}
	s.promUptime = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "surveillance_uptime_seconds",
		Help: "Seconds since process start.",
	}, func() float64 { return time.Since(s.startedAt).Seconds() })

	if reg != nil {
		reg.MustRegister(s.promSignals, s.promCandles, s.promAnalyzerErrors, s.promUptime)
	}
	return s
}

// RecordSignal implements fuser.MetricsSink.
func (s *Sink) RecordSignal(symbol, interval string, direction market.Direction) {
	now := time.Now()
	s.mu.Lock()
	s.signalsTotal++
	s.signalsLastHour.bump(now)
	s.signalsToday.bump(now)
	s.mu.Unlock()
	s.promSignals.WithLabelValues(symbol, interval, string(direction)).Inc()
}

// RecordRejection implements fuser.MetricsSink.
func (s *Sink) RecordRejection(symbol, interval, reason string) {
	s.mu.Lock()
	s.rejectionsByReason[reason]++
	s.mu.Unlock()
}

// RecordAnalyzerError implements fuser.MetricsSink.
func (s *Sink) RecordAnalyzerError(name string) {
	s.mu.Lock()
	s.analyzerErrors[name]++
	s.mu.Unlock()
	s.promAnalyzerErrors.WithLabelValues(name).Inc()
}

// RecordCandle counts one closed candle processed by the aggregator.
func (s *Sink) RecordCandle() {
	s.mu.Lock()
	s.candlesProcessed++
	s.mu.Unlock()
	s.promCandles.Inc()
}

// Snapshot is a point-in-time view of the in-process counters.
type Snapshot struct {
	UptimeSeconds      float64
	SignalsTotal       int64
	SignalsLastHour    int
	SignalsToday       int
	CandlesProcessed   int64
	RejectionsByReason map[string]int64
	AnalyzerErrors     map[string]int64
}

func (s *Sink) Snapshot() Snapshot {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signalsLastHour.rolloverIfNeeded(now)
	s.signalsToday.rolloverIfNeeded(now)

	rejections := make(map[string]int64, len(s.rejectionsByReason))
	for k, v := range s.rejectionsByReason {
		rejections[k] = v
	}
	errs := make(map[string]int64, len(s.analyzerErrors))
	for k, v := range s.analyzerErrors {
		errs[k] = v
	}

	return Snapshot{
		UptimeSeconds:      time.Since(s.startedAt).Seconds(),
		SignalsTotal:       s.signalsTotal,
		SignalsLastHour:    s.signalsLastHour.count,
		SignalsToday:       s.signalsToday.count,
		CandlesProcessed:   s.candlesProcessed,
		RejectionsByReason: rejections,
		AnalyzerErrors:     errs,
	}
}
