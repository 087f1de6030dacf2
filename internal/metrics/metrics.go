package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gakyra/w-chat/internal/routing"
	"github.com/prometheus/client_golang/prometheus"
)

// LiveReloadRoutePrefix is reported as its own route label.
const LiveReloadRoutePrefix = "/__livereload"

// Metrics bundles prometheus collectors used by the server.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	ResponseBytes      *prometheus.CounterVec
	RateLimitDropped   prometheus.Counter
	AssetChanges       prometheus.Counter
	ProbeRefreshes     prometheus.Counter
	ProbeErrors        prometheus.Counter
	LiveReloadClients  prometheus.Gauge
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wchat_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wchat_request_duration_seconds",
			Help:    "Request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		ResponseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wchat_response_bytes_total",
			Help: "Total number of response body bytes written.",
		}, []string{"route"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wchat_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		AssetChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wchat_asset_changes_total",
			Help: "Total number of file changes seen under the site root.",
		}),
		ProbeRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wchat_probe_refresh_total",
			Help: "Total number of readiness probe runs.",
		}),
		ProbeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wchat_probe_errors_total",
			Help: "Total number of failed readiness probe runs.",
		}),
		LiveReloadClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wchat_livereload_clients",
			Help: "Number of connected live reload clients.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.ResponseBytes,
		m.RateLimitDropped,
		m.AssetChanges,
		m.ProbeRefreshes,
		m.ProbeErrors,
		m.LiveReloadClients,
	)

	return m
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
		m.ResponseBytes.WithLabelValues(route).Add(float64(wrapped.bytes))
	})
}

// normalizeRoute keeps label cardinality bounded: static paths collapse to one label.
func normalizeRoute(path string) string {
	if path == LiveReloadRoutePrefix || strings.HasPrefix(path, LiveReloadRoutePrefix+".") {
		return LiveReloadRoutePrefix
	}

	switch routing.Match(path) {
	case routing.TargetIndexPage:
		return routing.IndexRoute
	case routing.TargetEditVideoPage:
		return routing.EditVideoRoute
	default:
		return "static"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	bytes       int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
