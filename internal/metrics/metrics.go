package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cookieboy-api/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cookieboy"

// Metrics owns a private registry with economy, command and HTTP collectors.
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	credited     *prometheus.CounterVec
	tickDuration prometheus.Histogram
	tickUsers    prometheus.Gauge
	tickFailures prometheus.Counter
	commands     *prometheus.CounterVec
	throttled    prometheus.Counter
	wsClients    prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "economy",
			Name:      "operations_total",
			Help:      "Economy operations segmented by operation and outcome.",
		}, []string{"op", "outcome"}),
		credited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "economy",
			Name:      "cookies_credited_total",
			Help:      "Cookies minted, segmented by source.",
		}, []string{"source"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "passive",
			Name:      "tick_duration_seconds",
			Help:      "Duration of passive income ticks.",
			Buckets:   prometheus.DefBuckets,
		}),
		tickUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "passive",
			Name:      "tick_users",
			Help:      "Users credited by the most recent passive tick.",
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "passive",
			Name:      "credit_failures_total",
			Help:      "Per-user passive credits that failed.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "commands_total",
			Help:      "Chat commands handled, segmented by command name.",
		}, []string{"command"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "throttled_total",
			Help:      "Chat commands rejected by the per-user rate limiter.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "websocket_clients",
			Help:      "Open chat gateway websocket connections.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests segmented by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		m.operations, m.credited,
		m.tickDuration, m.tickUsers, m.tickFailures,
		m.commands, m.throttled, m.wsClients,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Operation records an economy operation outcome: ok, rejected or error.
func (m *Metrics) Operation(op string, err error) {
	m.operations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case model.IsUserError(err):
		return "rejected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Credited records minted cookies.
func (m *Metrics) Credited(kind model.EntryKind, amount int64) {
	if amount <= 0 {
		return
	}
	m.credited.WithLabelValues(string(kind)).Add(float64(amount))
}

// PassiveTick records one passive tick.
func (m *Metrics) PassiveTick(report model.TickReport) {
	m.tickDuration.Observe(report.Duration.Seconds())
	m.tickUsers.Set(float64(report.Users))
	m.tickFailures.Add(float64(report.Failed))
}

// Command counts a handled chat command.
func (m *Metrics) Command(name string) {
	m.commands.WithLabelValues(name).Inc()
}

// Throttled counts a rate limited chat command.
func (m *Metrics) Throttled() {
	m.throttled.Inc()
}

// ClientConnected and ClientDisconnected track open websocket clients.
func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

// Middleware records HTTP request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
