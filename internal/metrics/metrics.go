// Package metrics provides Prometheus instrumentation for the dashboard.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts loop ticks, partitioned by loop and outcome.
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betdash_ticks_total",
		Help: "Total number of betting loop ticks",
	}, []string{"loop", "outcome"})

	// LoopRunning is 1 while a loop is running.
	LoopRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "betdash_loop_running",
		Help: "Whether a betting loop is running (1) or idle (0)",
	}, []string{"loop"})

	// WinsBTC mirrors wins.btc.
	WinsBTC = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betdash_wins_btc",
		Help: "Cumulative simulated auto-roll winnings",
	})

	// MultiplyBalance mirrors multiply.balance.
	MultiplyBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betdash_multiply_balance",
		Help: "Running balance of the multiply loop",
	})

	// PersistFailures counts state snapshots that failed to save.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betdash_persist_failures_total",
		Help: "State snapshot writes that failed",
	})

	// WatcherSignals counts external result change signals.
	WatcherSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betdash_watcher_signals_total",
		Help: "External result change signals received",
	}, []string{"source"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betdash_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betdash_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betdash_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack passes through to the underlying writer; the WebSocket upgrade
// needs it.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
