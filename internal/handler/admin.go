package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"cookieboy-api/internal/model"
	"cookieboy-api/pkg/apierror"
	"cookieboy-api/pkg/response"
)

// StatsSource reports aggregate economy figures.
type StatsSource interface {
	Stats(ctx context.Context) (model.EconomyStats, error)
}

// TickRunner triggers a passive income tick on demand.
type TickRunner interface {
	RunNow(ctx context.Context) (model.TickReport, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	stats     StatsSource
	ticker    TickRunner
	dbType    string // sqlite, postgres, mysql, bolt or memory
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. ticker may be nil.
func NewAdminHandler(stats StatsSource, ticker TickRunner, dbType, cacheType string) *AdminHandler {
	return &AdminHandler{
		stats:     stats,
		ticker:    ticker,
		dbType:    dbType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// StatsResponse is the admin dashboard payload.
type StatsResponse struct {
	UptimeSeconds int64              `json:"uptime_seconds"`
	UptimeHuman   string             `json:"uptime_human"`
	ServerTime    string             `json:"server_time"`
	DBType        string             `json:"db_type"`
	CacheType     string             `json:"cache_type"`
	Economy       model.EconomyStats `json:"economy"`
	Memory        map[string]any     `json:"memory"`
	Runtime       map[string]any     `json:"runtime"`
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	economy, err := h.stats.Stats(r.Context())
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptime := time.Since(h.startTime)
	response.OK(w, StatsResponse{
		UptimeSeconds: int64(uptime.Seconds()),
		UptimeHuman:   uptime.Round(time.Second).String(),
		ServerTime:    time.Now().Format(time.RFC3339),
		DBType:        h.dbType,
		CacheType:     h.cacheType,
		Economy:       economy,
		Memory: map[string]any{
			"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
			"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
			"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
			"num_gc":        memStats.NumGC,
			"goroutines":    runtime.NumGoroutine(),
		},
		Runtime: map[string]any{
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
			"cpus":       runtime.NumCPU(),
		},
	})
}

// RunPassiveTick handles POST /api/v1/admin/passive/tick
func (h *AdminHandler) RunPassiveTick(w http.ResponseWriter, r *http.Request) {
	if h.ticker == nil {
		response.Error(w, apierror.ServiceUnavailable("passive income is disabled"))
		return
	}

	report, err := h.ticker.RunNow(r.Context())
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.OK(w, report)
}
