package events

import (
	"sync"
	"testing"
	"time"
)

func TestPublishDispatchesToMatchingTypeOnly(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	var candleFired, signalFired bool

	bus.Subscribe(CandleClosed, func(e Event) {
		mu.Lock()
		candleFired = true
		mu.Unlock()
	})
	bus.Subscribe(SignalEmitted, func(e Event) {
		mu.Lock()
		signalFired = true
		mu.Unlock()
	})

	bus.Publish(Event{Type: CandleClosed})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		got := candleFired
		mu.Unlock()
		if got {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the matching subscriber to fire")
		case <-time.After(time.Millisecond):
		}
	}

	time.Sleep(5 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if signalFired {
		t.Errorf("subscriber for a different event type must not fire")
	}
}

func TestSubscribeAllReceivesEveryEventType(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	seen := make(map[Type]bool)

	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		seen[e.Type] = true
		mu.Unlock()
	})

	bus.Publish(Event{Type: CandleClosed})
	bus.Publish(Event{Type: AnalyzerError})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the all-events subscriber to see both publishes")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPublishRecoversSubscriberPanicAndReportsIt(t *testing.T) {
	var mu sync.Mutex
	var gotType Type
	var gotPanic interface{}

	bus := New(func(t Type, r interface{}) {
		mu.Lock()
		gotType = t
		gotPanic = r
		mu.Unlock()
	})
	bus.Subscribe(IngressError, func(e Event) {
		panic("connection lost")
	})

	bus.Publish(Event{Type: IngressError})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		p := gotPanic
		mu.Unlock()
		if p != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for onPanic to be invoked")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if gotType != IngressError {
		t.Errorf("reported event type = %v, want %v", gotType, IngressError)
	}
	if gotPanic != "connection lost" {
		t.Errorf("reported panic value = %v, want %q", gotPanic, "connection lost")
	}
}

func TestPublishStampsTimestampWhenZero(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	var gotTime time.Time
	done := make(chan struct{})

	bus.Subscribe(CandleClosed, func(e Event) {
		mu.Lock()
		gotTime = e.Timestamp
		mu.Unlock()
		close(done)
	})

	before := time.Now()
	bus.Publish(Event{Type: CandleClosed})
	<-done

	mu.Lock()
	defer mu.Unlock()
	if gotTime.Before(before) {
		t.Errorf("stamped timestamp %v is before publish time %v", gotTime, before)
	}
}
