package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	l := New(&Config{Level: "DEBUG", Output: "stdout", Component: "test", JSONFormat: true})
	l.output = buf
	return l
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DEBUG, "INFO": INFO, "warn": WARN, "WARNING": WARN,
		"error": ERROR, "fatal": FATAL, "bogus": INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogBelowLevelIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.level = WARN
	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected no output below the configured level, got %q", buf.String())
	}
}

func TestLogJSONIncludesFieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf).WithField("symbol", "BTCUSDT")
	l.Info("signal generated")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line as JSON: %v (line: %s)", err, buf.String())
	}
	if entry.Component != "test" || entry.Message != "signal generated" {
		t.Errorf("entry = %+v, missing component/message", entry)
	}
	if entry.Fields["symbol"] != "BTCUSDT" {
		t.Errorf("entry.Fields = %+v, want symbol=BTCUSDT", entry.Fields)
	}
}

func TestLogKeyValueArgsPopulateFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.Warn("rejected", "reason", "cooldown", "attempt", 3)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if entry.Fields["reason"] != "cooldown" {
		t.Errorf("Fields[reason] = %v, want cooldown", entry.Fields["reason"])
	}
}

func TestLogPrintfStyleWhenArgsAreNotKeyValue(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.Info("processed %d candles", 42)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if entry.Message != "processed 42 candles" {
		t.Errorf("Message = %q, want printf-formatted", entry.Message)
	}
}

func TestWithErrorNilIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	same := l.WithError(nil)
	if same != l {
		t.Errorf("WithError(nil) should return the same logger instance")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf)
	child := base.WithField("a", 1)
	child.fields["b"] = 2
	if _, ok := base.fields["b"]; ok {
		t.Error("mutating a cloned logger's fields must not affect the parent")
	}
}

func TestTextFormatIncludesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "INFO", Output: "stdout", Component: "store", JSONFormat: false})
	l.output = &buf
	l.WithField("rows", 5).Info("truncating table")

	line := buf.String()
	if !strings.Contains(line, "[store]") || !strings.Contains(line, "rows=5") {
		t.Errorf("text line = %q, missing component or field", line)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if got := FromContext(context.Background()); got != Default() {
		t.Error("FromContext with no logger in context should return the default logger")
	}
}

func TestNewContextRoundTrip(t *testing.T) {
	l := New(&Config{Level: "INFO", Output: "stdout"}).WithComponent("custom")
	ctx := NewContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Error("FromContext should return the exact logger stored via NewContext")
	}
}

func TestWithTraceContextStampsTraceID(t *testing.T) {
	ctx, l := WithTraceContext(context.Background())
	if l.traceID == "" {
		t.Error("expected a non-empty trace ID on the returned logger")
	}
	if ctx.Value(traceIDKey) != l.traceID {
		t.Error("trace ID stored in context should match the logger's trace ID")
	}
}

func TestBacktestContextFormatsDates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := BacktestContext("BTCUSDT", start, end)
	if l.component != "backtest" {
		t.Errorf("component = %q, want backtest", l.component)
	}
	if l.fields["start_date"] != "2026-01-01" {
		t.Errorf("start_date = %v, want 2026-01-01", l.fields["start_date"])
	}
}

func TestSignalContextPopulatesDirectionAndConfidence(t *testing.T) {
	l := SignalContext("ETHUSDT", "1h", "LONG", 0.82)
	if l.fields["direction"] != "LONG" || l.fields["confidence"] != 0.82 {
		t.Errorf("fields = %+v, missing direction/confidence", l.fields)
	}
}
