package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/health"
)

var (
	version   = "dev"
	buildTime = "unknown"
	startTime = time.Now()
)

// SetVersion sets the global version and build time for handlers.
func SetVersion(v string, bt string) {
	version = v
	buildTime = bt
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type probeResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// VersionHandler reports build information.
func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        version,
		"build_time":     buildTime,
		"go_version":     runtime.Version(),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	})
}

// Kubernetes Health Endpoints
// LivenessHandler provides liveness probe endpoint for Kubernetes.
func (srv *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := srv.health.LivenessCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, probeResponse{Status: "unhealthy", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, probeResponse{Status: "ok"})
}

func (srv *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := srv.health.ReadinessCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, probeResponse{Status: "not ready", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, probeResponse{Status: "ready"})
}

func (srv *Server) StartupHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := srv.health.StartupCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, probeResponse{Status: "not started", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, probeResponse{Status: "started"})
}

func (srv *Server) DetailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	status := srv.health.GetHealthStatus(ctx)
	health.WriteHealthResponse(w, status, health.DetermineHTTPStatus(status.Overall))
}
