package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"signalforge/internal/metrics"
)

type fakeDiagnoser struct {
	results []SymbolDiagnostic
	err     error
}

func (f *fakeDiagnoser) Diagnose(ctx context.Context) ([]SymbolDiagnostic, error) {
	return f.results, f.err
}

func newTestServer(checkStore, checkVault HealthCheckFunc, diag Diagnoser) *Server {
	reg := prometheus.NewRegistry()
	sink := metrics.New(reg)
	return NewServer(Config{Port: 0, Host: "127.0.0.1"}, checkStore, checkVault, sink, reg, diag, nil)
}

func TestHealthzHealthy(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealthzUnhealthyWhenStoreFails(t *testing.T) {
	s := newTestServer(func(ctx context.Context) error { return errors.New("down") }, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestDiagnoseNotConfigured(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/diagnose", nil)
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestDiagnoseReturnsResults(t *testing.T) {
	diag := &fakeDiagnoser{results: []SymbolDiagnostic{
		{Symbol: "BTCUSDT", Interval: "1h", CandlesAvailable: 500, AnalyzerVerdicts: map[string]string{"wyckoff": "no_signal"}},
	}}
	s := newTestServer(nil, nil, diag)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/diagnose", nil)
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
