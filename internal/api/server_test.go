package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/tvmaze-sync/internal/api"
	"github.com/stacklok/tvmaze-sync/internal/api/control"
	controlmocks "github.com/stacklok/tvmaze-sync/internal/api/control/mocks"
	"github.com/stacklok/tvmaze-sync/internal/api/health"
	healthmocks "github.com/stacklok/tvmaze-sync/internal/api/health/mocks"
	"github.com/stacklok/tvmaze-sync/internal/catalog"
	catalogmocks "github.com/stacklok/tvmaze-sync/internal/catalog/mocks"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/status"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
	"github.com/stacklok/tvmaze-sync/internal/sync/coordinator"
	syncmocks "github.com/stacklok/tvmaze-sync/internal/sync/mocks"
)

type mocks struct {
	shows     *catalogmocks.MockReader
	manager   *syncmocks.MockManager
	scheduler *controlmocks.MockScheduler
	sonarr    *healthmocks.MockProbe
}

func newServer(t *testing.T, opts ...api.ServerOption) (http.Handler, *mocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &mocks{
		shows:     catalogmocks.NewMockReader(ctrl),
		manager:   syncmocks.NewMockManager(ctrl),
		scheduler: controlmocks.NewMockScheduler(ctrl),
		sonarr:    healthmocks.NewMockProbe(ctrl),
	}
	server := api.NewServer(api.Dependencies{
		Shows:     m.shows,
		Manager:   m.manager,
		Scheduler: m.scheduler,
		Sonarr:    m.sonarr,
	}, opts...)
	return server, m
}

func serve(t *testing.T, server http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	server, _ := newServer(t)

	rr := serve(t, server, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[health.Response](t, rr).Status)
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		pingErr        error
		sonarrHealthy  bool
		syncReady      bool
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "all checks pass",
			sonarrHealthy:  true,
			syncReady:      true,
			expectedStatus: http.StatusOK,
			expectedBody:   "ready",
		},
		{
			name:           "database unreachable",
			pingErr:        errors.New("database is locked"),
			sonarrHealthy:  true,
			syncReady:      true,
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "not_ready",
		},
		{
			name:           "sonarr unreachable",
			syncReady:      true,
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "not_ready",
		},
		{
			name:           "no sync progress yet",
			sonarrHealthy:  true,
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, m := newServer(t)
			m.shows.EXPECT().Ping(gomock.Any()).Return(tt.pingErr)
			m.sonarr.EXPECT().Healthy(gomock.Any()).Return(tt.sonarrHealthy)
			m.manager.EXPECT().Status().Return(pkgsync.Status{Ready: tt.syncReady})

			rr := serve(t, server, http.MethodGet, "/ready")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			resp := decode[health.ReadinessResponse](t, rr)
			assert.Equal(t, tt.expectedBody, resp.Status)
			assert.Equal(t, tt.pingErr == nil, resp.Checks["database"])
			assert.Equal(t, tt.sonarrHealthy, resp.Checks["sonarr"])
			assert.Equal(t, tt.syncReady, resp.Checks["sync"])
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	server, _ := newServer(t)

	rr := serve(t, server, http.MethodGet, "/version")

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]string](t, rr)
	assert.NotEmpty(t, resp["version"])
	assert.NotEmpty(t, resp["go_version"])
}

func TestTriggerEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		running        bool
		triggerErr     error
		expectTrigger  bool
		expectedStatus int
	}{
		{
			name:           "triggered",
			expectTrigger:  true,
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "manager busy",
			running:        true,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "loop busy",
			triggerErr:     pkgsync.ErrAlreadyRunning,
			expectTrigger:  true,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "shutting down",
			triggerErr:     coordinator.ErrStopping,
			expectTrigger:  true,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "unexpected error",
			triggerErr:     errors.New("boom"),
			expectTrigger:  true,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, m := newServer(t)
			m.manager.EXPECT().Status().Return(pkgsync.Status{Running: tt.running})
			if tt.expectTrigger {
				m.scheduler.EXPECT().Trigger().Return(tt.triggerErr)
			}

			rr := serve(t, server, http.MethodPost, "/trigger")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusConflict {
				assert.Equal(t, "already_running", decode[control.TriggerResponse](t, rr).Status)
			}
		})
	}
}

func TestTriggerEndpoint_GetNotAllowed(t *testing.T) {
	t.Parallel()
	server, _ := newServer(t)

	rr := serve(t, server, http.MethodGet, "/trigger")

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStateEndpoint(t *testing.T) {
	t.Parallel()
	server, m := newServer(t)

	fullSync := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	nextRun := fullSync.Add(6 * time.Hour)
	m.shows.EXPECT().StateCounts(gomock.Any()).Return(map[catalog.State]int{
		catalog.StateAdded:    3,
		catalog.StateFiltered: 40,
	}, nil)
	m.shows.EXPECT().TotalCount(gomock.Any()).Return(43, nil)
	m.manager.EXPECT().Status().Return(pkgsync.Status{
		Running: true,
		Healthy: true,
		DryRun:  true,
		Progress: &status.SyncProgress{
			LastFullSync:    &fullSync,
			HighestTVMazeID: 81234,
			PageCursor:      325,
			Phase:           status.SyncPhaseSyncing,
		},
	})
	m.scheduler.EXPECT().NextRun().Return(&nextRun)

	rr := serve(t, server, http.MethodGet, "/state")

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[control.StateResponse](t, rr)
	require.NotNil(t, resp.LastFullSync)
	assert.True(t, fullSync.Equal(*resp.LastFullSync))
	assert.Nil(t, resp.LastIncrementalSync)
	require.NotNil(t, resp.NextScheduledRun)
	assert.True(t, nextRun.Equal(*resp.NextScheduledRun))
	assert.Equal(t, int64(81234), resp.HighestTVMazeID)
	assert.Equal(t, 325, resp.PageCursor)
	assert.True(t, resp.SyncRunning)
	assert.True(t, resp.DryRun)
	assert.Equal(t, "Syncing", resp.Phase)
	assert.Equal(t, 43, resp.TotalShows)
	assert.Equal(t, 40, resp.StatusCounts[catalog.StateFiltered])
}

func TestStateEndpoint_CountFailure(t *testing.T) {
	t.Parallel()
	server, m := newServer(t)
	m.shows.EXPECT().StateCounts(gomock.Any()).Return(nil, errors.New("disk I/O error"))

	rr := serve(t, server, http.MethodGet, "/state")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestShowsEndpoint(t *testing.T) {
	t.Parallel()

	tvdb := int64(81189)
	record := &catalog.Record{
		Show:  catalog.Show{ID: 169, TVDBID: &tvdb, Title: "Breaking Bad", Genres: []string{"Drama"}},
		State: catalog.StateAdded,
	}

	tests := []struct {
		name           string
		query          string
		setup          func(*mocks)
		expectedStatus int
		expectedCount  int
		expectedLimit  int
		expectedOffset int
	}{
		{
			name:  "defaults",
			query: "?status=added",
			setup: func(m *mocks) {
				m.shows.EXPECT().ListByState(gomock.Any(), catalog.StateAdded, 100, 0).
					Return([]*catalog.Record{record}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
			expectedLimit:  100,
		},
		{
			name:  "limit and offset",
			query: "?status=added&limit=2&offset=1",
			setup: func(m *mocks) {
				m.shows.EXPECT().ListByState(gomock.Any(), catalog.StateAdded, 2, 1).
					Return([]*catalog.Record{record}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
			expectedLimit:  2,
			expectedOffset: 1,
		},
		{
			name:  "limit is capped",
			query: "?status=pending_tvdb&limit=5000",
			setup: func(m *mocks) {
				m.shows.EXPECT().ListByState(gomock.Any(), catalog.StatePendingTVDB, 1000, 0).
					Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedLimit:  1000,
		},
		{
			name:           "no status returns an empty page",
			query:          "",
			expectedStatus: http.StatusOK,
			expectedLimit:  100,
		},
		{
			name:           "unknown status",
			query:          "?status=archived",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid limit",
			query:          "?status=added&limit=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative offset",
			query:          "?status=added&offset=-5",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "store failure",
			query: "?status=failed",
			setup: func(m *mocks) {
				m.shows.EXPECT().ListByState(gomock.Any(), catalog.StateFailed, 100, 0).
					Return(nil, errors.New("disk I/O error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, m := newServer(t)
			if tt.setup != nil {
				tt.setup(m)
			}

			rr := serve(t, server, http.MethodGet, "/shows"+tt.query)

			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus != http.StatusOK {
				assert.NotEmpty(t, decode[map[string]string](t, rr)["error"])
				return
			}
			resp := decode[control.ShowsResponse](t, rr)
			assert.Equal(t, tt.expectedCount, resp.Count)
			assert.Len(t, resp.Shows, tt.expectedCount)
			assert.Equal(t, tt.expectedLimit, resp.Limit)
			assert.Equal(t, tt.expectedOffset, resp.Offset)
		})
	}
}

func TestShowsEndpoint_RecordShape(t *testing.T) {
	t.Parallel()
	server, m := newServer(t)

	tvdb := int64(81189)
	m.shows.EXPECT().ListByState(gomock.Any(), catalog.StateFiltered, 100, 0).Return([]*catalog.Record{{
		Show:         catalog.Show{ID: 169, TVDBID: &tvdb, Title: "Breaking Bad", Genres: []string{"Drama"}},
		State:        catalog.StateFiltered,
		FilterReason: "genre:excluded Drama",
	}}, nil)

	rr := serve(t, server, http.MethodGet, "/shows?status=filtered")

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Shows []map[string]any `json:"shows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Shows, 1)
	assert.Equal(t, float64(169), body.Shows[0]["tvmaze_id"])
	assert.Equal(t, float64(81189), body.Shows[0]["tvdb_id"])
	assert.Equal(t, "filtered", body.Shows[0]["processing_status"])
	assert.Equal(t, "genre:excluded Drama", body.Shows[0]["filter_reason"])
}

func TestRefilterEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("complete", func(t *testing.T) {
		t.Parallel()
		server, m := newServer(t)
		m.manager.EXPECT().ForceReEvaluate(gomock.Any()).
			Return(filtering.ReEvaluationResult{Scanned: 12, Admitted: 2, Updated: 1}, nil)

		rr := serve(t, server, http.MethodPost, "/refilter")

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[control.RefilterResponse](t, rr)
		assert.Equal(t, "complete", resp.Status)
		assert.Equal(t, 12, resp.ShowsEvaluated)
		assert.Equal(t, 2, resp.ShowsReadmitted)
		assert.Equal(t, 1, resp.ReasonsUpdated)
	})

	t.Run("busy", func(t *testing.T) {
		t.Parallel()
		server, m := newServer(t)
		m.manager.EXPECT().ForceReEvaluate(gomock.Any()).
			Return(filtering.ReEvaluationResult{}, pkgsync.ErrAlreadyRunning)

		rr := serve(t, server, http.MethodPost, "/refilter")

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		server, m := newServer(t)
		m.manager.EXPECT().ForceReEvaluate(gomock.Any()).
			Return(filtering.ReEvaluationResult{}, errors.New("disk I/O error"))

		rr := serve(t, server, http.MethodPost, "/refilter")

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := decode[control.RefilterResponse](t, rr)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "disk I/O error", resp.Error)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte("tvmaze_sync_shows_total 1\n"))
	})
	server, _ := newServer(t, api.WithMetricsHandler(metrics))

	rr := serve(t, server, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tvmaze_sync_shows_total")
}

func TestMiddlewaresApplied(t *testing.T) {
	t.Parallel()

	var seen []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
	server, _ := newServer(t, api.WithMiddlewares(mw, api.LoggingMiddleware))

	rr := serve(t, server, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"/health"}, seen)
}
