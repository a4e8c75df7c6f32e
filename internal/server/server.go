// Package server serves the exposition endpoint and the health routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/collector"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/config"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/health"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/metrics"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/security"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/store"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

const (
	shutdownTimeout = 10 * time.Second
	requestTimeout  = 25 * time.Second
	maxRequestBody  = 4 << 10
)

// probePaths are never rate limited.
var probePaths = []string{"/livez", "/readyz", "/startupz", "/healthz"}

// Server exposes the snapshot store over HTTP and optionally runs the
// collector in the background.
type Server struct {
	cfg     config.Config
	store   *store.Store
	health  *health.HealthChecker
	limiter *security.RateLimiter

	collector *collector.Collector
	devices   func() []device.Device
}

// New creates a server reading snapshots from s.
func New(cfg config.Config, s *store.Store) *Server {
	hc := health.NewHealthChecker()
	hc.RegisterComponent(health.NewSnapshotStoreChecker(s))

	srv := &Server{cfg: cfg, store: s, health: hc}
	if cfg.ScrapeRateLimit > 0 {
		srv.limiter = security.NewRateLimiter(cfg.ScrapeRateLimit, int(math.Ceil(cfg.ScrapeRateLimit)))
	}
	return srv
}

// EnableCollection makes Run collect the devices returned by devices every
// COLLECT_INTERVAL. Without a positive interval it does nothing.
func (srv *Server) EnableCollection(c *collector.Collector, devices func() []device.Device) {
	if srv.cfg.CollectInterval <= 0 {
		return
	}
	srv.collector = c
	srv.devices = devices
	srv.health.RegisterComponent(health.NewCollectionChecker(c.LastRun, 3*srv.cfg.CollectInterval))
}

// createHTTPServer creates a configured HTTP server with standard timeouts.
func createHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// newMetricsHandler renders the store on every request. Self-metrics and
// runtime metrics come from the default registry.
func newMetricsHandler(src metrics.SnapshotSource) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewSnapshotCollector(src))

	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.Gatherers{reg, prometheus.DefaultGatherer}, promhttp.HandlerOpts{
			ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
			ErrorHandling: promhttp.ContinueOnError,
		}))
}

// SetupRoutes configures the exposition, health and version routes.
func (srv *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", newMetricsHandler(srv.store))
	mux.HandleFunc("GET /version", VersionHandler)

	// Kubernetes health endpoints
	mux.HandleFunc("GET /livez", srv.LivenessHandler)
	mux.HandleFunc("GET /readyz", srv.ReadinessHandler)
	mux.HandleFunc("GET /startupz", srv.StartupHandler)
	mux.HandleFunc("GET /healthz", srv.DetailedHealthHandler)

	return mux
}

// Handler returns the routes wrapped in the middleware chain.
func (srv *Server) Handler() http.Handler {
	var h http.Handler = srv.SetupRoutes()
	if srv.limiter != nil {
		h = security.RateLimitMiddleware(srv.limiter, probePaths...)(h)
	}
	h = security.TimeoutMiddleware(requestTimeout)(h)
	h = security.RequestSizeLimitMiddleware(maxRequestBody)(h)
	return security.SecurityHeadersMiddleware(h)
}

func getLocalBindHost() string {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "production" || env == "prod" {
		return "0.0.0.0"
	}
	return "127.0.0.1"
}

// Run serves until ctx is done, on the tailnet as well when USE_TSNET is set.
func (srv *Server) Run(ctx context.Context) error {
	if srv.cfg.UseTsnet {
		return srv.RunWithTsnet(ctx)
	}

	addr := net.JoinHostPort(getLocalBindHost(), srv.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return srv.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or the listener fails.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	return srv.serve(ctx, NewShutdownManager(shutdownTimeout), namedListener{"local", ln})
}

type namedListener struct {
	name string
	net.Listener
}

func (srv *Server) serve(ctx context.Context, sm *ShutdownManager, listeners ...namedListener) error {
	srv.startBackground(ctx, sm)

	handler := srv.Handler()
	errCh := make(chan error, len(listeners))

	for _, l := range listeners {
		httpSrv := createHTTPServer(l.Addr().String(), handler)
		sm.AddHTTPServer(httpSrv)

		go func() {
			slog.Info("server ready", "listener", l.name, "bind", l.Addr().String())
			if err := httpSrv.Serve(l); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("%s http serve failed: %w", l.name, err)
				return
			}
			errCh <- nil
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	sm.Shutdown()
	return err
}

func (srv *Server) startBackground(ctx context.Context, sm *ShutdownManager) {
	if srv.limiter != nil {
		srv.limiter.StartCleanup(sm.Context(), time.Minute)
	}

	if srv.collector == nil {
		return
	}
	slog.Info("in-process collection enabled", "interval", srv.cfg.CollectInterval)
	sm.Go("collection", func(workerCtx context.Context) {
		// Stop on either the caller's context or shutdown.
		loopCtx, cancel := context.WithCancel(workerCtx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		srv.collector.Loop(loopCtx, srv.devices, srv.cfg.CollectInterval)
	})
}
