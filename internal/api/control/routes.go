// Package control provides the endpoints that inspect and steer the sync engine.
package control

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/tvmaze-sync/internal/api/common"
	"github.com/stacklok/tvmaze-sync/internal/catalog"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
	"github.com/stacklok/tvmaze-sync/internal/sync/coordinator"
)

const (
	// DefaultLimit is the page size of GET /shows when none is given
	DefaultLimit = 100
	// MaxLimit caps the page size of GET /shows
	MaxLimit = 1000
)

// Scheduler starts cycles and reports when the next one is due
//
//go:generate mockgen -destination=mocks/mock_scheduler.go -package=mocks -source=routes.go Scheduler
type Scheduler interface {
	Trigger() error
	NextRun() *time.Time
}

// Routes handles the control endpoints
type Routes struct {
	shows     catalog.Reader
	manager   pkgsync.Manager
	scheduler Scheduler
}

// NewRoutes creates a new Routes instance
func NewRoutes(shows catalog.Reader, manager pkgsync.Manager, scheduler Scheduler) *Routes {
	return &Routes{
		shows:     shows,
		manager:   manager,
		scheduler: scheduler,
	}
}

// Register adds the control endpoints to r
func Register(r chi.Router, shows catalog.Reader, manager pkgsync.Manager, scheduler Scheduler) {
	routes := NewRoutes(shows, manager, scheduler)

	r.Post("/trigger", routes.trigger)
	r.Get("/state", routes.state)
	r.Get("/shows", routes.listShows)
	r.Post("/refilter", routes.refilter)
}

// trigger handles POST /trigger
func (routes *Routes) trigger(w http.ResponseWriter, _ *http.Request) {
	if routes.manager.Status().Running {
		writeAlreadyRunning(w)
		return
	}

	err := routes.scheduler.Trigger()
	switch {
	case err == nil:
		common.WriteJSONResponse(w, TriggerResponse{Status: "triggered"}, http.StatusAccepted)
	case errors.Is(err, pkgsync.ErrAlreadyRunning):
		writeAlreadyRunning(w)
	case errors.Is(err, coordinator.ErrStopping), errors.Is(err, coordinator.ErrNotStarted):
		common.WriteErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.Error("Failed to trigger sync cycle", "error", err)
		common.WriteErrorResponse(w, "Failed to trigger sync cycle", http.StatusInternalServerError)
	}
}

func writeAlreadyRunning(w http.ResponseWriter) {
	common.WriteJSONResponse(w, TriggerResponse{
		Status:  "already_running",
		Message: "Sync cycle already in progress",
	}, http.StatusConflict)
}

// state handles GET /state
func (routes *Routes) state(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := routes.shows.StateCounts(ctx)
	if err != nil {
		slog.Error("Failed to count shows by state", "error", err)
		common.WriteErrorResponse(w, "Failed to read show counts", http.StatusInternalServerError)
		return
	}
	total, err := routes.shows.TotalCount(ctx)
	if err != nil {
		slog.Error("Failed to count shows", "error", err)
		common.WriteErrorResponse(w, "Failed to read show counts", http.StatusInternalServerError)
		return
	}

	st := routes.manager.Status()
	resp := StateResponse{
		NextScheduledRun: routes.scheduler.NextRun(),
		SyncRunning:      st.Running,
		Healthy:          st.Healthy,
		DryRun:           st.DryRun,
		StatusCounts:     counts,
		TotalShows:       total,
		LastResult:       st.LastResult,
	}
	if p := st.Progress; p != nil {
		resp.LastFullSync = p.LastFullSync
		resp.LastIncrementalSync = p.LastIncrementalSync
		resp.LastUpdatesCheck = p.LastUpdatesCheck
		resp.HighestTVMazeID = p.HighestTVMazeID
		resp.PageCursor = p.PageCursor
		resp.Phase = string(p.Phase)
		resp.Message = p.Message
		resp.LastSuccess = p.LastSuccess
		resp.ConsecutiveFailures = p.ConsecutiveFailures
	}

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// listShows handles GET /shows?status=&limit=&offset=
func (routes *Routes) listShows(w http.ResponseWriter, r *http.Request) {
	limit, err := common.IntQueryParam(r, "limit", DefaultLimit)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit = min(limit, MaxLimit)

	offset, err := common.IntQueryParam(r, "offset", 0)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := ShowsResponse{
		Shows:  []*catalog.Record{},
		Limit:  limit,
		Offset: offset,
	}

	raw := r.URL.Query().Get("status")
	if raw == "" {
		// Listing is always scoped to one state
		common.WriteJSONResponse(w, resp, http.StatusOK)
		return
	}
	state, ok := catalog.ParseState(raw)
	if !ok {
		common.WriteErrorResponse(w, "Invalid status parameter: "+raw, http.StatusBadRequest)
		return
	}

	shows, err := routes.shows.ListByState(r.Context(), state, limit, offset)
	if err != nil {
		slog.Error("Failed to list shows", "status", state, "error", err)
		common.WriteErrorResponse(w, "Failed to list shows", http.StatusInternalServerError)
		return
	}
	if shows != nil {
		resp.Shows = shows
	}
	resp.Count = len(resp.Shows)

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// refilter handles POST /refilter
func (routes *Routes) refilter(w http.ResponseWriter, r *http.Request) {
	result, err := routes.manager.ForceReEvaluate(r.Context())
	if errors.Is(err, pkgsync.ErrAlreadyRunning) {
		writeAlreadyRunning(w)
		return
	}
	if err != nil {
		slog.Error("Refilter failed", "error", err)
		common.WriteJSONResponse(w, RefilterResponse{Status: "error", Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, RefilterResponse{
		Status:          "complete",
		ShowsEvaluated:  result.Scanned,
		ShowsReadmitted: result.Admitted,
		ReasonsUpdated:  result.Updated,
	}, http.StatusOK)
}
