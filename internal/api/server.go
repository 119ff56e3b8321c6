// Package api provides the HTTP control surface of the sync service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/tvmaze-sync/internal/api/control"
	"github.com/stacklok/tvmaze-sync/internal/api/health"
	"github.com/stacklok/tvmaze-sync/internal/catalog"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
)

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves handler on GET /metrics
func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = handler
	}
}

// Dependencies are the components the routes read from and act on
type Dependencies struct {
	Shows     catalog.Reader
	Manager   pkgsync.Manager
	Scheduler control.Scheduler
	Sonarr    health.Probe
}

// NewServer creates and configures the HTTP router
func NewServer(deps Dependencies, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	health.Register(r, deps.Shows, deps.Sonarr, deps.Manager)
	control.Register(r, deps.Shows, deps.Manager, deps.Scheduler)

	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
