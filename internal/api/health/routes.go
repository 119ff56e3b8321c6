// Package health provides the liveness, readiness and version endpoints.
package health

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/tvmaze-sync/internal/api/common"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
	"github.com/stacklok/tvmaze-sync/internal/versions"
)

// Pinger checks that the show cache is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe checks that a downstream service answers
//
//go:generate mockgen -destination=mocks/mock_probe.go -package=mocks -source=routes.go Probe
type Probe interface {
	Healthy(ctx context.Context) bool
}

// Response is the body of the liveness check
type Response struct {
	Status string `json:"status"`
}

// ReadinessResponse is the body of the readiness check
type ReadinessResponse struct {
	Status string          `json:"status"`
	Checks map[string]bool `json:"checks"`
}

// Routes serves the health endpoints
type Routes struct {
	db      Pinger
	sonarr  Probe
	manager pkgsync.Manager
}

// Register adds the health check endpoints to r
func Register(r chi.Router, db Pinger, sonarr Probe, manager pkgsync.Manager) {
	routes := &Routes{
		db:      db,
		sonarr:  sonarr,
		manager: manager,
	}

	r.Get("/health", healthHandler)
	r.Get("/ready", routes.readinessHandler)
	r.Get("/version", versionHandler)
}

// healthHandler reports that the process is alive
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, Response{Status: "ok"}, http.StatusOK)
}

// readinessHandler reports ready once the cache answers, Sonarr answers and
// the sync engine has made progress
func (rr *Routes) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]bool{
		"database": rr.db.Ping(ctx) == nil,
		"sonarr":   rr.sonarr.Healthy(ctx),
		"sync":     rr.manager.Status().Ready,
	}

	for _, ok := range checks {
		if !ok {
			common.WriteJSONResponse(w, ReadinessResponse{Status: "not_ready", Checks: checks}, http.StatusServiceUnavailable)
			return
		}
	}
	common.WriteJSONResponse(w, ReadinessResponse{Status: "ready", Checks: checks}, http.StatusOK)
}

// versionHandler reports the build information
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
