package server

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fortigate_exporter_shutdown_duration_seconds",
		Help:    "Time taken to gracefully shutdown the exporter",
		Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fortigate_exporter_shutdown_errors_total",
		Help: "Number of errors during shutdown",
	}, []string{"component"})
)

// ShutdownManager stops HTTP servers, background workers and hooks in that
// order, all within one overall timeout.
type ShutdownManager struct {
	timeout     time.Duration
	hooks       []ShutdownHook
	httpServers []*http.Server
	mutex       sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	once        sync.Once
}

type ShutdownHook struct {
	Name     string
	Priority int
	Timeout  time.Duration
	Handler  func(ctx context.Context) error
}

func NewShutdownManager(timeout time.Duration) *ShutdownManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &ShutdownManager{
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (sm *ShutdownManager) AddHTTPServer(server *http.Server) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.httpServers = append(sm.httpServers, server)
}

// RegisterHook adds a hook. Lower priorities run first.
func (sm *ShutdownManager) RegisterHook(hook ShutdownHook) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if hook.Timeout == 0 {
		hook.Timeout = sm.timeout
	}

	sm.hooks = append(sm.hooks, hook)
	sort.SliceStable(sm.hooks, func(i, j int) bool {
		return sm.hooks[i].Priority < sm.hooks[j].Priority
	})
}

// Context is cancelled when shutdown starts.
func (sm *ShutdownManager) Context() context.Context {
	return sm.ctx
}

// Go runs fn in the background. Shutdown cancels its context and waits for
// it to return.
func (sm *ShutdownManager) Go(name string, fn func(ctx context.Context)) {
	sm.wg.Add(1)
	go func() {
		defer sm.wg.Done()
		slog.Debug("starting background worker", "name", name)
		fn(sm.ctx)
		slog.Debug("background worker stopped", "name", name)
	}()
}

// Shutdown is safe to call more than once; only the first call has effect.
func (sm *ShutdownManager) Shutdown() {
	sm.once.Do(sm.shutdown)
}

func (sm *ShutdownManager) shutdown() {
	start := time.Now()
	defer func() {
		shutdownDuration.Observe(time.Since(start).Seconds())
	}()

	slog.Info("starting graceful shutdown", "timeout", sm.timeout)

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	sm.cancel()

	sm.shutdownHTTPServers(ctx)
	sm.waitForWorkers(ctx)
	sm.executeShutdownHooks(ctx)

	slog.Info("graceful shutdown completed", "duration", time.Since(start))
}

func (sm *ShutdownManager) shutdownHTTPServers(ctx context.Context) {
	sm.mutex.RLock()
	servers := make([]*http.Server, len(sm.httpServers))
	copy(servers, sm.httpServers)
	sm.mutex.RUnlock()

	if len(servers) == 0 {
		return
	}

	slog.Debug("shutting down HTTP servers", "count", len(servers))

	var wg sync.WaitGroup
	for _, server := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()

			if err := srv.Shutdown(ctx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
				shutdownErrors.WithLabelValues("http_server").Inc()
				if closeErr := srv.Close(); closeErr != nil {
					slog.Error("HTTP server close error", "error", closeErr)
				}
			}
		}(server)
	}

	wg.Wait()
}

func (sm *ShutdownManager) waitForWorkers(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		sm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("shutdown timeout reached, background workers still running")
		shutdownErrors.WithLabelValues("workers").Inc()
	}
}

func (sm *ShutdownManager) executeShutdownHooks(ctx context.Context) {
	sm.mutex.RLock()
	hooks := make([]ShutdownHook, len(sm.hooks))
	copy(hooks, sm.hooks)
	sm.mutex.RUnlock()

	for _, hook := range hooks {
		if ctx.Err() != nil {
			slog.Warn("shutdown timeout reached, skipping remaining hooks")
			return
		}

		sm.executeHook(ctx, hook)
	}
}

func (sm *ShutdownManager) executeHook(ctx context.Context, hook ShutdownHook) {
	hookStart := time.Now()

	hookCtx, cancel := context.WithTimeout(ctx, hook.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- hook.Handler(hookCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("shutdown hook failed", "name", hook.Name, "error", err)
			shutdownErrors.WithLabelValues(hook.Name).Inc()
		} else {
			slog.Debug("shutdown hook completed", "name", hook.Name, "duration", time.Since(hookStart))
		}
	case <-hookCtx.Done():
		slog.Warn("shutdown hook timeout", "name", hook.Name, "timeout", hook.Timeout)
		shutdownErrors.WithLabelValues(hook.Name).Inc()
	}
}
