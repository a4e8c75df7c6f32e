// Package health provides health checking functionality for exporter components.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/store"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a health check for a specific component.
type CheckResult struct {
	Component   string        `json:"component"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	Timestamp   time.Time     `json:"timestamp"`
	LastSuccess *time.Time    `json:"last_success,omitempty"`
}

// HealthStatus represents the overall health status and individual component checks.
type HealthStatus struct {
	Overall Status                 `json:"overall"`
	Checks  map[string]CheckResult `json:"checks"`
}

// Checker defines the interface for health checking functionality.
type Checker interface {
	LivenessCheck(ctx context.Context) error
	ReadinessCheck(ctx context.Context) error
	StartupCheck(ctx context.Context) error
	GetHealthStatus(ctx context.Context) HealthStatus
}

// ComponentChecker defines the interface for individual component health checks.
type ComponentChecker interface {
	CheckHealth(ctx context.Context) error
	ComponentName() string
}

// HealthChecker manages health checks for multiple components.
type HealthChecker struct {
	components  map[string]ComponentChecker
	mu          sync.RWMutex
	lastChecks  map[string]CheckResult
	startupTime time.Time

	// slowThreshold marks healthy but slow components as degraded.
	slowThreshold time.Duration
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		components:    make(map[string]ComponentChecker),
		lastChecks:    make(map[string]CheckResult),
		startupTime:   time.Now(),
		slowThreshold: 5 * time.Second,
	}
}

func (hc *HealthChecker) RegisterComponent(checker ComponentChecker) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.components[checker.ComponentName()] = checker
}

func (hc *HealthChecker) LivenessCheck(ctx context.Context) error {
	// Basic liveness - just check if the process is responsive
	// No external dependencies
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (hc *HealthChecker) ReadinessCheck(ctx context.Context) error {
	// Readiness checks all critical components
	hc.mu.RLock()
	components := make(map[string]ComponentChecker, len(hc.components))
	for name, comp := range hc.components {
		components[name] = comp
	}
	hc.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for name, component := range components {
		if err := component.CheckHealth(ctx); err != nil {
			return fmt.Errorf("component %s not ready: %w", name, err)
		}
	}

	return nil
}

func (hc *HealthChecker) StartupCheck(ctx context.Context) error {
	// Startup probe - allows more time for initialization
	if time.Since(hc.startupTime) < 30*time.Second {
		// Still in startup grace period
		return hc.LivenessCheck(ctx)
	}

	// After grace period, use readiness check
	return hc.ReadinessCheck(ctx)
}

func (hc *HealthChecker) GetHealthStatus(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	components := make(map[string]ComponentChecker, len(hc.components))
	for name, comp := range hc.components {
		components[name] = comp
	}
	hc.mu.RUnlock()

	results := make(map[string]CheckResult)
	overallHealthy := true
	degraded := false

	for name, component := range components {
		start := time.Now()
		err := component.CheckHealth(ctx)
		duration := time.Since(start)

		var status Status
		var message string
		var lastSuccess *time.Time

		if err != nil {
			status = StatusUnhealthy
			message = err.Error()
			overallHealthy = false

			// Check if we have a previous successful check
			hc.mu.RLock()
			if prev, exists := hc.lastChecks[name]; exists && prev.Status == StatusHealthy {
				lastSuccess = &prev.Timestamp
			}
			hc.mu.RUnlock()
		} else {
			status = StatusHealthy
			now := time.Now()
			lastSuccess = &now
		}

		if duration > hc.slowThreshold {
			degraded = true
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}

		result := CheckResult{
			Component:   name,
			Status:      status,
			Message:     message,
			Duration:    duration,
			Timestamp:   time.Now(),
			LastSuccess: lastSuccess,
		}

		results[name] = result
	}

	// Store current results
	hc.mu.Lock()
	hc.lastChecks = results
	hc.mu.Unlock()

	var overall Status
	if !overallHealthy {
		overall = StatusUnhealthy
	} else if degraded {
		overall = StatusDegraded
	} else {
		overall = StatusHealthy
	}

	return HealthStatus{
		Overall: overall,
		Checks:  results,
	}
}

// SnapshotStoreChecker checks that the snapshot directories can be listed.
type SnapshotStoreChecker struct {
	store *store.Store
}

// NewSnapshotStoreChecker creates a checker for s.
func NewSnapshotStoreChecker(s *store.Store) *SnapshotStoreChecker {
	return &SnapshotStoreChecker{store: s}
}

func (sc *SnapshotStoreChecker) ComponentName() string {
	return "snapshot_store"
}

func (sc *SnapshotStoreChecker) CheckHealth(ctx context.Context) error {
	if sc.store == nil {
		return fmt.Errorf("snapshot store not initialized")
	}

	info, err := os.Stat(sc.store.Base())
	if err != nil {
		return fmt.Errorf("snapshot directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot path %s is not a directory", sc.store.Base())
	}

	for _, category := range types.Categories() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := sc.store.List(category); err != nil {
			return fmt.Errorf("category %s: %w", category, err)
		}
	}
	return nil
}

// CollectionChecker reports unhealthy when the in-process collection loop
// has not finished a cycle within maxAge.
type CollectionChecker struct {
	lastCollection func() time.Time
	maxAge         time.Duration
	startedAt      time.Time
}

// NewCollectionChecker creates a checker. lastCollection returns the end of
// the latest cycle, or the zero time before the first one.
func NewCollectionChecker(lastCollection func() time.Time, maxAge time.Duration) *CollectionChecker {
	return &CollectionChecker{lastCollection: lastCollection, maxAge: maxAge, startedAt: time.Now()}
}

func (cc *CollectionChecker) ComponentName() string {
	return "collection"
}

func (cc *CollectionChecker) CheckHealth(ctx context.Context) error {
	last := cc.lastCollection()
	if last.IsZero() {
		if time.Since(cc.startedAt) > cc.maxAge {
			return fmt.Errorf("no collection cycle finished since start")
		}
		return nil
	}
	if age := time.Since(last); age > cc.maxAge {
		return fmt.Errorf("last collection cycle finished %s ago", age.Round(time.Second))
	}
	return nil
}

// WriteHealthResponse writes status as JSON with the given HTTP status code.
func WriteHealthResponse(w http.ResponseWriter, status HealthStatus, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	body := struct {
		Status    Status                 `json:"status"`
		Timestamp string                 `json:"timestamp"`
		Checks    map[string]CheckResult `json:"checks"`
	}{
		Status:    status.Overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    status.Checks,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write health response", "error", err)
	}
}

func DetermineHTTPStatus(status Status) int {
	switch status {
	case StatusHealthy:
		return http.StatusOK
	case StatusDegraded:
		return http.StatusOK // Still considered healthy for K8s
	case StatusUnhealthy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
