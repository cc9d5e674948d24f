// Package httpapi exposes the engine's operational introspection
// surface: liveness/readiness, Prometheus exposition, and an
// on-demand per-symbol diagnostic dump. Grounded on the reference
// stack's gin + gin-contrib/cors server shape (internal/api/server.go),
// trimmed from its ~400-route multi-tenant trading surface down to the
// three introspection endpoints this engine needs; dependencies are
// injected as narrow interfaces the same way the reference stack
// injects its BotAPI interface into Server.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signalforge/internal/logging"
	"signalforge/internal/metrics"
)

// HealthCheckFunc probes one dependency's reachability for /healthz.
// The store's HealthCheck and the vault client's Health have different
// method names, so callers adapt each as a closure rather than this
// package assuming a shared interface.
type HealthCheckFunc func(ctx context.Context) error

// SymbolDiagnostic reports one (symbol, interval)'s candle coverage
// and current analyzer verdicts, for the /diagnose endpoint.
type SymbolDiagnostic struct {
	Symbol          string            `json:"symbol"`
	Interval        string            `json:"interval"`
	CandlesAvailable int              `json:"candles_available"`
	AnalyzerVerdicts map[string]string `json:"analyzer_verdicts"`
	Error           string            `json:"error,omitempty"`
}

// Diagnoser produces the per-symbol diagnostic dump. Implemented by
// the cmd layer, which has access to the store, config, and analyzers
// this package deliberately does not import directly.
type Diagnoser interface {
	Diagnose(ctx context.Context) ([]SymbolDiagnostic, error)
}

// Config holds the HTTP listener settings (spec's METRICS_PORT names
// the port; 0 disables the listener entirely, checked by the caller
// before constructing a Server).
type Config struct {
	Port            int
	Host            string
	AllowedOrigins  []string
	ProductionMode  bool
}

// Server is the gin-backed introspection HTTP server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        Config
	log        *logging.Logger

	checkStore HealthCheckFunc
	checkVault HealthCheckFunc
	metrics    *metrics.Sink
	registry   *prometheus.Registry
	diagnoser  Diagnoser
}

// NewServer wires the gin engine and its three routes. checkStore/
// checkVault may be nil (a nil check is treated as healthy, so vault
// being disabled doesn't fail /healthz).
func NewServer(cfg Config, checkStore, checkVault HealthCheckFunc, metricsSink *metrics.Sink, registry *prometheus.Registry, diagnoser Diagnoser, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		router:     router,
		cfg:        cfg,
		log:        log,
		checkStore: checkStore,
		checkVault: checkVault,
		metrics:    metricsSink,
		registry:   registry,
		diagnoser:  diagnoser,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/diagnose", s.handleDiagnose)

	if s.registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if s.checkStore != nil {
		if err := s.checkStore(ctx); err != nil {
			checks["store"] = err.Error()
			healthy = false
		} else {
			checks["store"] = "ok"
		}
	}
	if s.checkVault != nil {
		if err := s.checkVault(ctx); err != nil {
			checks["vault"] = err.Error()
			healthy = false
		} else {
			checks["vault"] = "ok"
		}
	}

	status := http.StatusOK
	statusText := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "unhealthy"
	}
	logging.APIContext(c.Request.Method, c.FullPath(), status).Debug(statusText)
	c.JSON(status, gin.H{"status": statusText, "checks": checks})
}

func (s *Server) handleDiagnose(c *gin.Context) {
	if s.diagnoser == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "diagnose not configured"})
		return
	}
	results, err := s.diagnoser.Diagnose(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": results})
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.WithComponent("httpapi").Info("starting introspection server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
