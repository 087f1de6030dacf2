// Package web assembles the public and ops HTTP handlers.
package web

import (
	"log/slog"
	"net/http"

	"github.com/Gakyra/w-chat/internal/httpx"
	"github.com/Gakyra/w-chat/internal/livereload"
	"github.com/Gakyra/w-chat/internal/metrics"
	"github.com/Gakyra/w-chat/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Readiness reports whether the site can currently serve its pages.
type Readiness interface {
	Ready() bool
	LastError() error
}

// Router wires the site handler with the optional live reload routes and
// the middleware chain.
type Router struct {
	mux        *http.ServeMux
	site       http.Handler
	liveReload *livereload.Handler
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewRouter creates a router. liveReload and limiter may be nil.
func NewRouter(
	site http.Handler,
	liveReload *livereload.Handler,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		mux:        http.NewServeMux(),
		site:       site,
		liveReload: liveReload,
		limiter:    limiter,
		metrics:    m,
		logger:     logger,
	}
}

// Setup registers routes and returns the public handler.
func (rt *Router) Setup() http.Handler {
	if rt.liveReload != nil {
		rt.liveReload.Register(rt.mux)
	}
	rt.mux.Handle("/", rt.site)

	var handler http.Handler = rt.mux
	if rt.limiter != nil {
		handler = rt.limiter.Middleware(rt.metrics, handler)
	}
	handler = rt.metrics.Middleware(handler)
	handler = httpx.WithRequestID(handler)
	handler = httpx.WithLogging(rt.logger, handler)
	handler = httpx.WithRecovery(rt.logger, handler)

	return handler
}

// NewOpsHandler serves health, readiness and prometheus metrics.
func NewOpsHandler(registry *prometheus.Registry, readiness Readiness) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !readiness.Ready() {
			reason := "not ready"
			if err := readiness.LastError(); err != nil {
				reason += ": " + err.Error()
			}
			http.Error(w, reason, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}
