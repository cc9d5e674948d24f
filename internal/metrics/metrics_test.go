package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"signalforge/internal/market"
)

func TestSinkRecordSignalUpdatesSnapshot(t *testing.T) {
	s := New(prometheus.NewRegistry())
	s.RecordSignal("BTCUSDT", "1h", market.Long)
	s.RecordSignal("ETHUSDT", "4h", market.Short)

	snap := s.Snapshot()
	if snap.SignalsTotal != 2 {
		t.Errorf("SignalsTotal = %d, want 2", snap.SignalsTotal)
	}
	if snap.SignalsLastHour != 2 || snap.SignalsToday != 2 {
		t.Errorf("rolling windows = %+v, want both 2", snap)
	}
}

func TestSinkRecordRejectionAndAnalyzerError(t *testing.T) {
	s := New(prometheus.NewRegistry())
	s.RecordRejection("BTCUSDT", "1h", "confidence below floor")
	s.RecordRejection("BTCUSDT", "1h", "confidence below floor")
	s.RecordAnalyzerError("wyckoff")

	snap := s.Snapshot()
	if snap.RejectionsByReason["confidence below floor"] != 2 {
		t.Errorf("rejection count = %d, want 2", snap.RejectionsByReason["confidence below floor"])
	}
	if snap.AnalyzerErrors["wyckoff"] != 1 {
		t.Errorf("analyzer error count = %d, want 1", snap.AnalyzerErrors["wyckoff"])
	}
}

func TestSinkRecordCandle(t *testing.T) {
	s := New(prometheus.NewRegistry())
	s.RecordCandle()
	s.RecordCandle()
	if snap := s.Snapshot(); snap.CandlesProcessed != 2 {
		t.Errorf("CandlesProcessed = %d, want 2", snap.CandlesProcessed)
	}
}

func TestWindowCounterRollsOverAfterWindowElapses(t *testing.T) {
	w := newWindowCounter(time.Millisecond)
	now := time.Now()
	w.bump(now)
	w.bump(now)
	if w.count != 2 {
		t.Fatalf("count = %d, want 2", w.count)
	}
	later := now.Add(10 * time.Millisecond)
	w.bump(later)
	if w.count != 1 {
		t.Errorf("count after rollover = %d, want 1 (reset then incremented once)", w.count)
	}
}

func TestSnapshotIsAnIndependentCopy(t *testing.T) {
	s := New(prometheus.NewRegistry())
	s.RecordRejection("BTCUSDT", "1h", "cooldown")
	snap := s.Snapshot()
	snap.RejectionsByReason["cooldown"] = 999

	fresh := s.Snapshot()
	if fresh.RejectionsByReason["cooldown"] != 1 {
		t.Errorf("mutating a returned snapshot must not affect the sink's internal state")
	}
}
