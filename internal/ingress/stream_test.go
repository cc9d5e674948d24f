package ingress

import (
	"testing"
	"time"

	"signalforge/internal/market"
)

func TestStreamURLBuildsCombinedStreamPath(t *testing.T) {
	keys := []market.Key{{Symbol: "BTCUSDT", Interval: "1h"}, {Symbol: "ETHUSDT", Interval: "4h"}}
	s := NewStreamClient(DefaultStreamConfig("wss://example.com"), keys, nil)
	want := "wss://example.com/stream?streams=btcusdt@kline_1h/ethusdt@kline_4h"
	if got := s.streamURL(); got != want {
		t.Errorf("streamURL() = %q, want %q", got, want)
	}
}

func TestNextBackoffDoublesUntilCap(t *testing.T) {
	max := 60 * time.Second
	cases := []struct {
		in, want time.Duration
	}{
		{5 * time.Second, 10 * time.Second},
		{40 * time.Second, 60 * time.Second},
		{60 * time.Second, 60 * time.Second},
	}
	for _, c := range cases {
		if got := nextBackoff(c.in, max); got != c.want {
			t.Errorf("nextBackoff(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseFrameExtractsSymbolAndInterval(t *testing.T) {
	msg := []byte(`{"stream":"btcusdt@kline_1h","data":{"k":{"t":1000,"T":3599999,"o":"100","h":"105","l":"99","c":"103","v":"10","q":"1030","n":5,"x":true}}}`)
	candle, ok := parseFrame(msg)
	if !ok {
		t.Fatal("expected parseFrame to succeed")
	}
	if candle.Symbol != "BTCUSDT" || candle.Interval != "1h" {
		t.Errorf("symbol/interval = %s/%s, want BTCUSDT/1h", candle.Symbol, candle.Interval)
	}
	if candle.Close != 103 || !candle.IsClosed {
		t.Errorf("candle not parsed correctly: %+v", candle)
	}
}

func TestParseFrameRejectsMalformedPayload(t *testing.T) {
	if _, ok := parseFrame([]byte(`not json`)); ok {
		t.Error("expected parseFrame to reject invalid JSON")
	}
	if _, ok := parseFrame([]byte(`{"stream":"no-separator","data":{}}`)); ok {
		t.Error("expected parseFrame to reject a stream name without @kline_")
	}
}

func TestStopBeforeRunIsSafe(t *testing.T) {
	s := NewStreamClient(DefaultStreamConfig("wss://example.com"), nil, nil)
	s.Stop() // must not panic when no connection was ever established
	if !s.closed {
		t.Error("expected closed to be true after Stop")
	}
}
