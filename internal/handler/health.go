package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"cookieboy-api/pkg/response"
)

// HealthChecker probes a dependency.
type HealthChecker func(ctx context.Context) error

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	version   string
	startTime time.Time
	checks    map[string]HealthChecker
}

// New creates a new handler. checks are run by Ready, keyed by name.
func New(version string, checks map[string]HealthChecker) *Handler {
	return &Handler{
		version:   version,
		startTime: time.Now(),
		checks:    checks,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := []Check{{Name: "api", Status: "ok"}}
	allReady := true
	for name, check := range h.checks {
		c := Check{Name: name, Status: "ok"}
		if err := check(ctx); err != nil {
			c.Status = "error"
			c.Error = err.Error()
			allReady = false
		}
		checks = append(checks, c)
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// StatusResponse is a compact liveness payload for uptime monitors.
type StatusResponse struct {
	Service       string  `json:"service"`
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	MemoryMB      float64 `json:"memory_mb"`
	Goroutines    int     `json:"goroutines"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, StatusResponse{
		Service:       "cookieboy-api",
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		MemoryMB:      float64(int(memoryMB*100)) / 100,
		Goroutines:    runtime.NumGoroutine(),
	})
}
