package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// SignalContext creates a logger context for signal generation/dispatch.
func SignalContext(symbol, interval string, direction string, confidence float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":     symbol,
		"interval":   interval,
		"direction":  direction,
		"confidence": confidence,
	}).WithComponent("signal")
}

// BacktestContext creates a logger context for a backtest replay run.
func BacktestContext(symbol string, startDate, endDate time.Time) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":     symbol,
		"start_date": startDate.Format("2006-01-02"),
		"end_date":   endDate.Format("2006-01-02"),
	}).WithComponent("backtest")
}

// IngressContext creates a logger context for upstream exchange calls,
// scrubbing nothing sensitive since ingress requests carry no credentials.
func IngressContext(endpoint, symbol, interval string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"symbol":   symbol,
		"interval": interval,
	}).WithComponent("ingress")
}

// WebSocketContext creates a logger context for stream connection events.
func WebSocketContext(keyCount int) *Logger {
	return Default().WithField("stream_keys", keyCount).WithComponent("websocket")
}

// StoreContext creates a logger context for a persistence operation.
func StoreContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("store")
}

// APIContext creates a logger context for an introspection HTTP request.
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("httpapi")
}
