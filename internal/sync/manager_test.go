package sync_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/stacklok/tvmaze-sync/database"
	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/db"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/sources/sonarr"
	"github.com/stacklok/tvmaze-sync/internal/sources/tvmaze"
	"github.com/stacklok/tvmaze-sync/internal/status"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
	"github.com/stacklok/tvmaze-sync/internal/sync/mocks"
	"github.com/stacklok/tvmaze-sync/internal/sync/state"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	manager    pkgsync.Manager
	store      catalog.Store
	progress   state.ProgressService
	upstream   *mocks.MockUpstreamClient
	downstream *mocks.MockDownstreamClient
	evaluator  filtering.Evaluator
	clock      *testingclock.FakeClock
	statePath  string
	cfg        *config.Config
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, config.DatabaseFileName)
	require.NoError(t, database.MigrateUp(dbPath))
	conn, err := db.Open(dbPath)
	require.NoError(t, err)

	fakeClock := testingclock.NewFakeClock(testNow)
	store := catalog.NewSQLiteStore(conn, catalog.WithClock(fakeClock))
	t.Cleanup(func() {
		_ = store.Close()
	})

	statePath := filepath.Join(dir, config.StateFileName)
	progress := state.NewProgressService(status.NewFileProgressStore(statePath))
	_, err = progress.Initialize(ctx)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.DryRun = false
	cfg.Sync.ProbeMisses = 2
	cfg.Selections = []config.SelectionConfig{{Name: "english", Languages: []string{"English"}}}
	if mutate != nil {
		mutate(cfg)
	}

	evaluator := filtering.NewEvaluator(cfg.Filters(), filtering.ForwardParams{
		RootFolder:       "/tv",
		QualityProfileID: 1,
		Monitor:          "all",
	})

	ctrl := gomock.NewController(t)
	h := &harness{
		store:      store,
		progress:   progress,
		upstream:   mocks.NewMockUpstreamClient(ctrl),
		downstream: mocks.NewMockDownstreamClient(ctrl),
		evaluator:  evaluator,
		clock:      fakeClock,
		statePath:  statePath,
		cfg:        cfg,
	}
	h.useStore(store)
	return h
}

// useStore rebuilds the manager on top of store
func (h *harness) useStore(store catalog.Store, opts ...pkgsync.Option) {
	opts = append([]pkgsync.Option{pkgsync.WithClock(h.clock)}, opts...)
	h.manager = pkgsync.NewManager(store, h.progress, h.upstream, h.downstream, h.evaluator, h.cfg, opts...)
}

// corruptStore fails every Sonarr-driven transition the way the SQLite store
// reports a damaged database file
type corruptStore struct {
	catalog.Store
}

func (corruptStore) MarkAdded(context.Context, int64, int64) error {
	return fmt.Errorf("mark added: %w: database disk image is malformed", catalog.ErrCorrupt)
}

// completeInitialScan makes the next cycle incremental
func (h *harness) completeInitialScan(t *testing.T, highest int64) {
	t.Helper()
	full := testNow.Add(-24 * time.Hour)
	_, err := h.progress.Update(context.Background(), func(p *status.SyncProgress) bool {
		p.LastFullSync = &full
		p.HighestTVMazeID = highest
		p.LastFilterHash = h.evaluator.Fingerprint()
		return true
	})
	require.NoError(t, err)
}

func (h *harness) record(t *testing.T, id int64) *catalog.Record {
	t.Helper()
	rec, ok, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok, "show %d is not cached", id)
	return rec
}

func (h *harness) seed(t *testing.T, show *catalog.Show) {
	t.Helper()
	require.NoError(t, h.store.Upsert(context.Background(), show))
}

// rawShow builds a TVMaze show document. A zero tvdb id leaves the
// cross-reference out.
func rawShow(id, tvdb int64, language string, updated int64) catalog.RawShow {
	externals := "null"
	if tvdb > 0 {
		externals = fmt.Sprintf("%d", tvdb)
	}
	return catalog.RawShow(fmt.Sprintf(`{
		"id": %d,
		"name": "Show %d",
		"language": %q,
		"type": "Scripted",
		"status": "Running",
		"genres": ["Drama"],
		"updated": %d,
		"externals": {"thetvdb": %s, "imdb": null}
	}`, id, id, language, updated, externals))
}

func cachedShow(id, tvdb int64, language string, updated int64) *catalog.Show {
	show := &catalog.Show{
		ID:        id,
		Title:     fmt.Sprintf("Show %d", id),
		Language:  language,
		Genres:    []string{"Drama"},
		UpdatedAt: updated,
	}
	if tvdb > 0 {
		show.TVDBID = &tvdb
	}
	return show
}

func candidate(tvdb int64) *sonarr.Candidate {
	return &sonarr.Candidate{TVDBID: tvdb, Title: fmt.Sprintf("Series %d", tvdb)}
}

func ptr[T any](v T) *T { return &v }

func TestRunCycle_InitialScan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	gomock.InOrder(
		h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return([]catalog.RawShow{
			rawShow(1, 100, "English", 10),
			rawShow(2, 200, "French", 10),
			rawShow(3, 0, "English", 10),
		}, nil),
		h.upstream.EXPECT().FetchPage(gomock.Any(), 1).Return([]catalog.RawShow{
			rawShow(4, 400, "English", 10),
			catalog.RawShow(`{"name": "no id"}`),
		}, nil),
		h.upstream.EXPECT().FetchPage(gomock.Any(), 2).Return(nil, nil),
	)

	h.downstream.EXPECT().Lookup(gomock.Any(), int64(100)).Return(candidate(100), true, nil)
	h.downstream.EXPECT().
		Add(gomock.Any(), candidate(100), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sonarr.Candidate, params filtering.ForwardParams) (sonarr.AddResult, error) {
			assert.Equal(t, int64(100), params.TVDBID)
			assert.Equal(t, "Show 1", params.Title)
			assert.Equal(t, "/tv", params.RootFolder)
			return sonarr.Created{ID: 7}, nil
		})
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(400)).Return(nil, false, nil)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
	require.NoError(t, err)

	assert.Equal(t, pkgsync.ModeInitial, result.Mode)
	assert.Equal(t, pkgsync.TriggerStartup, result.Trigger)
	assert.NotEmpty(t, result.CycleID)
	assert.Equal(t, map[pkgsync.Outcome]int{
		pkgsync.OutcomeAdded:       1,
		pkgsync.OutcomeFiltered:    1,
		pkgsync.OutcomePendingTVDB: 2,
	}, result.Outcomes)

	added := h.record(t, 1)
	assert.Equal(t, catalog.StateAdded, added.State)
	require.NotNil(t, added.SonarrID)
	assert.Equal(t, int64(7), *added.SonarrID)

	filtered := h.record(t, 2)
	assert.Equal(t, catalog.StateFiltered, filtered.State)
	assert.Equal(t, "no-selection-match: No selection matched", filtered.FilterReason)

	for _, id := range []int64{3, 4} {
		rec := h.record(t, id)
		assert.Equal(t, catalog.StatePendingTVDB, rec.State)
		require.NotNil(t, rec.RetryAfter)
		assert.True(t, testNow.Add(7*24*time.Hour).Equal(*rec.RetryAfter))
	}

	progress := h.progress.Get()
	assert.Equal(t, 2, progress.PageCursor)
	assert.Equal(t, int64(4), progress.HighestTVMazeID)
	require.NotNil(t, progress.LastFullSync)
	assert.Equal(t, status.SyncPhaseComplete, progress.Phase)
	assert.Equal(t, result.CycleID, progress.CycleID)
	assert.Equal(t, h.evaluator.Fingerprint(), progress.LastFilterHash)
	require.NotNil(t, progress.LastSuccess)
	assert.Zero(t, progress.ConsecutiveFailures)

	_, err = os.Stat(h.statePath + status.BackupSuffix)
	assert.NoError(t, err, "a successful cycle refreshes the backup")

	st := h.manager.Status()
	assert.True(t, st.Healthy)
	assert.True(t, st.Ready)
	assert.False(t, st.Running)
	assert.Equal(t, result, st.LastResult)
}

func TestRunCycle_InitialScanResumesAtCursor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.PageCursor = 5
		p.HighestTVMazeID = 1250
		return true
	})
	require.NoError(t, err)

	h.upstream.EXPECT().FetchPage(gomock.Any(), 5).Return([]catalog.RawShow{}, nil)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, pkgsync.ModeInitial, result.Mode)

	progress := h.progress.Get()
	assert.Equal(t, 5, progress.PageCursor)
	assert.Equal(t, int64(1250), progress.HighestTVMazeID)
	assert.NotNil(t, progress.LastFullSync)
}

func TestRunCycle_DryRunWritesNoTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, func(cfg *config.Config) {
		cfg.DryRun = true
	})

	gomock.InOrder(
		h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return([]catalog.RawShow{
			rawShow(1, 100, "English", 10),
			rawShow(2, 200, "French", 10),
			rawShow(3, 0, "English", 10),
			rawShow(4, 400, "English", 10),
		}, nil),
		h.upstream.EXPECT().FetchPage(gomock.Any(), 1).Return(nil, nil),
	)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(100)).Return(candidate(100), true, nil)
	existing := candidate(400)
	existing.LibraryID = 31
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(400)).Return(existing, true, nil)
	h.downstream.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
	require.NoError(t, err)
	assert.Equal(t, map[pkgsync.Outcome]int{
		pkgsync.OutcomeDryRun:      1,
		pkgsync.OutcomeFiltered:    1,
		pkgsync.OutcomePendingTVDB: 1,
		pkgsync.OutcomeExists:      1,
	}, result.Outcomes)

	for id := int64(1); id <= 4; id++ {
		assert.Equal(t, catalog.StatePending, h.record(t, id).State, "show %d", id)
	}
	assert.True(t, h.manager.Status().DryRun)
	assert.NotNil(t, h.progress.Get().LastFullSync)
}

func TestRunCycle_ForwardOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		add          sonarr.AddResult
		addErr       error
		lookupErr    error
		wantState    catalog.State
		wantOutcome  pkgsync.Outcome
		wantSonarrID *int64
		wantMessage  string
	}{
		{
			name:         "created",
			add:          sonarr.Created{ID: 42},
			wantState:    catalog.StateAdded,
			wantOutcome:  pkgsync.OutcomeAdded,
			wantSonarrID: ptr(int64(42)),
		},
		{
			name:         "already exists with id",
			add:          sonarr.AlreadyExists{ID: ptr(int64(13))},
			wantState:    catalog.StateExists,
			wantOutcome:  pkgsync.OutcomeExists,
			wantSonarrID: ptr(int64(13)),
		},
		{
			name:        "already exists without id",
			add:         sonarr.AlreadyExists{},
			wantState:   catalog.StateExists,
			wantOutcome: pkgsync.OutcomeExists,
		},
		{
			name:        "rejected",
			add:         sonarr.Rejected{Message: "Root folder is not writable"},
			wantState:   catalog.StateFailed,
			wantOutcome: pkgsync.OutcomeFailed,
			wantMessage: "Root folder is not writable",
		},
		{
			name:        "add transport error leaves the show pending",
			addErr:      errors.New("connection reset"),
			wantState:   catalog.StatePending,
			wantOutcome: pkgsync.OutcomeError,
		},
		{
			name:        "lookup error leaves the show pending",
			lookupErr:   errors.New("connection refused"),
			wantState:   catalog.StatePending,
			wantOutcome: pkgsync.OutcomeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			h := newHarness(t, nil)

			gomock.InOrder(
				h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return([]catalog.RawShow{rawShow(1, 100, "English", 10)}, nil),
				h.upstream.EXPECT().FetchPage(gomock.Any(), 1).Return(nil, nil),
			)

			// A show left pending is picked up again by the backlog pass
			calls := 1
			if tt.wantState == catalog.StatePending {
				calls = 2
			}
			if tt.lookupErr != nil {
				h.downstream.EXPECT().Lookup(gomock.Any(), int64(100)).Return(nil, false, tt.lookupErr).Times(calls)
			} else {
				h.downstream.EXPECT().Lookup(gomock.Any(), int64(100)).Return(candidate(100), true, nil).Times(calls)
				h.downstream.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.add, tt.addErr).Times(calls)
			}

			result, err := h.manager.RunCycle(ctx, pkgsync.TriggerManual)
			require.NoError(t, err, "show-level failures do not fail the cycle")
			assert.Equal(t, calls, result.Outcomes[tt.wantOutcome])

			rec := h.record(t, 1)
			assert.Equal(t, tt.wantState, rec.State)
			assert.Equal(t, tt.wantSonarrID, rec.SonarrID)
			assert.Equal(t, tt.wantMessage, rec.ErrorMessage)
		})
	}
}

func TestRunCycle_Incremental(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)
	h.completeInitialScan(t, 12)

	// 10 was added before and has been revised since
	h.seed(t, cachedShow(10, 1000, "English", 100))
	require.NoError(t, h.store.MarkAdded(ctx, 10, 5))
	// 11 is unchanged
	h.seed(t, cachedShow(11, 1100, "French", 100))
	require.NoError(t, h.store.MarkFiltered(ctx, 11, "No selection matched", filtering.CategoryNoSelection))

	h.upstream.EXPECT().FetchUpdates(gomock.Any(), config.UpdateWindowWeek).
		Return(map[int64]int64{12: 300, 11: 100, 10: 200}, nil)
	gomock.InOrder(
		h.upstream.EXPECT().FetchShow(gomock.Any(), int64(10)).Return(rawShow(10, 1000, "English", 200), nil),
		h.upstream.EXPECT().FetchShow(gomock.Any(), int64(12)).Return(rawShow(12, 1200, "French", 300), nil),
		// probe above the highest known id
		h.upstream.EXPECT().FetchShow(gomock.Any(), int64(13)).Return(rawShow(13, 1300, "English", 400), nil),
		h.upstream.EXPECT().FetchShow(gomock.Any(), int64(14)).Return(nil, tvmaze.ErrNotFound),
		h.upstream.EXPECT().FetchShow(gomock.Any(), int64(15)).Return(nil, errors.New("timeout")),
	)

	inLibrary := candidate(1300)
	inLibrary.LibraryID = 55
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(1300)).Return(inLibrary, true, nil)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, pkgsync.ModeIncremental, result.Mode)
	assert.Equal(t, map[pkgsync.Outcome]int{
		pkgsync.OutcomeSkipped:  1,
		pkgsync.OutcomeFiltered: 1,
		pkgsync.OutcomeExists:   1,
	}, result.Outcomes)

	refreshed := h.record(t, 10)
	assert.Equal(t, catalog.StateAdded, refreshed.State, "terminal state survives a refresh")
	assert.Equal(t, int64(200), refreshed.UpdatedAt)

	assert.Equal(t, catalog.StateFiltered, h.record(t, 12).State)

	probed := h.record(t, 13)
	assert.Equal(t, catalog.StateExists, probed.State)
	require.NotNil(t, probed.SonarrID)
	assert.Equal(t, int64(55), *probed.SonarrID)

	progress := h.progress.Get()
	assert.Equal(t, int64(13), progress.HighestTVMazeID)
	require.NotNil(t, progress.LastUpdatesCheck)
	require.NotNil(t, progress.LastIncrementalSync)
	assert.True(t, testNow.Equal(*progress.LastIncrementalSync))
}

func TestRunCycle_UpdatedShowRemovedUpstream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Sync.ProbeMisses = 0
	})
	h.completeInitialScan(t, 100)

	h.upstream.EXPECT().FetchUpdates(gomock.Any(), gomock.Any()).Return(map[int64]int64{7: 1}, nil)
	h.upstream.EXPECT().FetchShow(gomock.Any(), int64(7)).Return(nil, tvmaze.ErrNotFound)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerScheduled)
	require.NoError(t, err)
	assert.Zero(t, result.Processed())

	_, ok, err := h.store.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunCycle_Retries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Sync.ProbeMisses = 0
	})
	h.completeInitialScan(t, 100)

	due := testNow.Add(-time.Hour)
	// 20 gets its TVDB id on retry
	h.seed(t, cachedShow(20, 0, "English", 1))
	require.NoError(t, h.store.MarkPendingTVDB(ctx, 20, due, testNow.Add(-48*time.Hour)))
	// 21 has waited more than a year
	h.seed(t, cachedShow(21, 0, "English", 1))
	require.NoError(t, h.store.MarkPendingTVDB(ctx, 21, due, testNow.Add(-400*24*time.Hour)))
	// 22 was deleted upstream
	h.seed(t, cachedShow(22, 0, "English", 1))
	require.NoError(t, h.store.MarkPendingTVDB(ctx, 22, due, testNow.Add(-48*time.Hour)))
	// 23 still has no TVDB id
	h.seed(t, cachedShow(23, 0, "English", 1))
	require.NoError(t, h.store.MarkPendingTVDB(ctx, 23, due, testNow.Add(-48*time.Hour)))
	// 24 is not due yet
	h.seed(t, cachedShow(24, 0, "English", 1))
	require.NoError(t, h.store.MarkPendingTVDB(ctx, 24, testNow.Add(time.Hour), testNow.Add(-48*time.Hour)))

	h.upstream.EXPECT().FetchUpdates(gomock.Any(), gomock.Any()).Return(map[int64]int64{}, nil)
	h.upstream.EXPECT().FetchShow(gomock.Any(), int64(20)).Return(rawShow(20, 2000, "English", 2), nil)
	h.upstream.EXPECT().FetchShow(gomock.Any(), int64(22)).Return(nil, tvmaze.ErrNotFound)
	h.upstream.EXPECT().FetchShow(gomock.Any(), int64(23)).Return(rawShow(23, 0, "English", 2), nil)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(2000)).Return(candidate(2000), true, nil)
	h.downstream.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Return(sonarr.Created{ID: 9}, nil)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Abandoned)
	assert.Equal(t, 3, result.Retried)

	resolved := h.record(t, 20)
	assert.Equal(t, catalog.StateAdded, resolved.State)
	assert.Zero(t, resolved.RetryCount, "leaving pending_tvdb clears the retry bookkeeping")
	assert.Nil(t, resolved.PendingSince)

	abandoned := h.record(t, 21)
	assert.Equal(t, catalog.StateFailed, abandoned.State)
	assert.Equal(t, "cross-ref abandoned: no TVDB id after 1y", abandoned.ErrorMessage)

	removed := h.record(t, 22)
	assert.Equal(t, catalog.StateFailed, removed.State)
	assert.Equal(t, "removed from TVMaze", removed.ErrorMessage)

	still := h.record(t, 23)
	assert.Equal(t, catalog.StatePendingTVDB, still.State)
	assert.Equal(t, 1, still.RetryCount)
	require.NotNil(t, still.RetryAfter)
	assert.True(t, testNow.Add(7*24*time.Hour).Equal(*still.RetryAfter))
	require.NotNil(t, still.PendingSince)
	assert.True(t, testNow.Add(-48*time.Hour).Equal(*still.PendingSince), "first deferral time is kept")

	waiting := h.record(t, 24)
	assert.Equal(t, catalog.StatePendingTVDB, waiting.State)
	assert.Zero(t, waiting.RetryCount)
}

func TestRunCycle_FilterChangeReadmitsShows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Sync.ProbeMisses = 0
	})
	h.completeInitialScan(t, 100)
	_, err := h.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.LastFilterHash = "0000000000000000"
		return true
	})
	require.NoError(t, err)

	h.seed(t, cachedShow(30, 3000, "English", 1))
	require.NoError(t, h.store.MarkFiltered(ctx, 30, "No selection matched", filtering.CategoryNoSelection))

	h.upstream.EXPECT().FetchUpdates(gomock.Any(), gomock.Any()).Return(map[int64]int64{}, nil)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(3000)).Return(candidate(3000), true, nil)
	h.downstream.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Return(sonarr.Created{ID: 3}, nil)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerScheduled)
	require.NoError(t, err)
	require.NotNil(t, result.Refilter)
	assert.Equal(t, 1, result.Refilter.Admitted)
	assert.Equal(t, 1, result.Outcomes[pkgsync.OutcomeAdded])

	assert.Equal(t, catalog.StateAdded, h.record(t, 30).State)
	assert.Equal(t, h.evaluator.Fingerprint(), h.progress.Get().LastFilterHash)
}

func TestRunCycle_RateLimitedWaitsAndRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	gomock.InOrder(
		h.upstream.EXPECT().FetchPage(gomock.Any(), 0).
			Return(nil, &tvmaze.RateLimitedError{Endpoint: "/shows", RetryAfter: 3 * time.Second}),
		h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return(nil, nil),
	)

	type outcome struct {
		result *pkgsync.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
		done <- outcome{result, err}
	}()

	require.Eventually(t, h.clock.HasWaiters, 5*time.Second, 10*time.Millisecond)
	h.clock.Step(3 * time.Second)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.NotNil(t, h.progress.Get().LastFullSync)
	case <-time.After(5 * time.Second):
		t.Fatal("cycle did not resume after the rate limit delay")
	}
}

func TestRunCycle_RateLimitWaitHonoursCancellation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	h.upstream.EXPECT().FetchPage(gomock.Any(), 0).
		DoAndReturn(func(context.Context, int) ([]catalog.RawShow, error) {
			cancel()
			return nil, &tvmaze.RateLimitedError{Endpoint: "/shows"}
		})

	_, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var syncErr *pkgsync.Error
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, pkgsync.ReasonCancelled, syncErr.Reason)

	progress := h.progress.Get()
	assert.Equal(t, status.SyncPhaseFailed, progress.Phase, "a cancelled cycle is not left syncing")
}

func TestRunCycle_StorageCorruptionAbortsCycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)
	h.useStore(corruptStore{Store: h.store})

	h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return([]catalog.RawShow{
		rawShow(1, 100, "English", 10),
		rawShow(2, 200, "English", 10),
	}, nil)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(100)).Return(candidate(100), true, nil)
	h.downstream.EXPECT().Add(gomock.Any(), candidate(100), gomock.Any()).Return(sonarr.Created{ID: 7}, nil)

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.ErrorIs(t, err, catalog.ErrCorrupt)

	var syncErr *pkgsync.Error
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, pkgsync.ReasonCacheCorrupt, syncErr.Reason)

	progress := h.progress.Get()
	assert.Equal(t, status.SyncPhaseFailed, progress.Phase)
	assert.Equal(t, 1, progress.ConsecutiveFailures)
	assert.Zero(t, progress.PageCursor, "the page is not committed")
	assert.False(t, h.manager.Status().Healthy)
	assert.False(t, h.manager.Status().Ready)
}

func TestRunCycle_InitialScanResumesMidPage(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page1 := []catalog.RawShow{
		rawShow(3, 300, "English", 10),
		rawShow(4, 400, "English", 10),
	}
	gomock.InOrder(
		h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return([]catalog.RawShow{
			rawShow(1, 100, "French", 10),
			rawShow(2, 200, "French", 10),
		}, nil),
		h.upstream.EXPECT().FetchPage(gomock.Any(), 1).Return(page1, nil),
	)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(300)).Return(candidate(300), true, nil)
	h.downstream.EXPECT().Add(gomock.Any(), candidate(300), gomock.Any()).Return(sonarr.Created{ID: 30}, nil)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(400)).
		DoAndReturn(func(ctx context.Context, _ int64) (*sonarr.Candidate, bool, error) {
			cancel()
			return nil, false, ctx.Err()
		})

	_, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	progress := h.progress.Get()
	assert.Equal(t, 1, progress.PageCursor, "only page 0 is committed")
	assert.Equal(t, status.SyncPhaseFailed, progress.Phase)
	assert.Equal(t, catalog.StateAdded, h.record(t, 3).State)
	assert.Equal(t, catalog.StatePending, h.record(t, 4).State)

	// The rerun refetches page 1 only. Show 3 is terminal and is not sent again.
	gomock.InOrder(
		h.upstream.EXPECT().FetchPage(gomock.Any(), 1).Return(page1, nil),
		h.upstream.EXPECT().FetchPage(gomock.Any(), 2).Return(nil, nil),
	)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(300)).Times(0)
	h.downstream.EXPECT().Add(gomock.Any(), candidate(300), gomock.Any()).Times(0)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(400)).Return(candidate(400), true, nil)
	h.downstream.EXPECT().Add(gomock.Any(), candidate(400), gomock.Any()).Return(sonarr.Created{ID: 40}, nil)

	result, err := h.manager.RunCycle(context.Background(), pkgsync.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, pkgsync.ModeInitial, result.Mode)
	assert.Equal(t, map[pkgsync.Outcome]int{
		pkgsync.OutcomeAdded:   1,
		pkgsync.OutcomeSkipped: 1,
	}, result.Outcomes)

	progress = h.progress.Get()
	assert.Equal(t, 2, progress.PageCursor)
	assert.Equal(t, int64(4), progress.HighestTVMazeID)
	assert.NotNil(t, progress.LastFullSync)

	added := h.record(t, 3)
	require.NotNil(t, added.SonarrID)
	assert.Equal(t, int64(30), *added.SonarrID)
	assert.Equal(t, catalog.StateAdded, h.record(t, 4).State)
}

func TestRunCycle_TracesDecisions(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	h.useStore(h.store, pkgsync.WithTracer(tp.Tracer("test")))

	gomock.InOrder(
		h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return([]catalog.RawShow{
			rawShow(1, 100, "English", 10),
			rawShow(2, 200, "French", 10),
			rawShow(3, 0, "English", 10),
		}, nil),
		h.upstream.EXPECT().FetchPage(gomock.Any(), 1).Return(nil, nil),
	)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(100)).
		Return(&sonarr.Candidate{TVDBID: 100, Title: "Series 100", LibraryID: 9}, true, nil)

	_, err := h.manager.RunCycle(context.Background(), pkgsync.TriggerStartup)
	require.NoError(t, err)

	decisions := map[int64]string{}
	for _, span := range exporter.GetSpans() {
		if span.Name != "sync.evaluate" {
			continue
		}
		var id int64
		var decision string
		for _, kv := range span.Attributes {
			switch kv.Key {
			case otel.AttrShowID:
				id = kv.Value.AsInt64()
			case otel.AttrDecision:
				decision = kv.Value.AsString()
			}
		}
		decisions[id] = decision
	}
	assert.Equal(t, map[int64]string{1: "admit", 2: "reject", 3: "defer"}, decisions)
}

func TestRunCycle_FetchFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return(nil, errors.New("503 Service Unavailable"))

	result, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
	require.Error(t, err)
	require.NotNil(t, result)

	var syncErr *pkgsync.Error
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, pkgsync.ReasonFetchFailed, syncErr.Reason)
	assert.Contains(t, syncErr.Error(), "failed to fetch page 0")

	progress := h.progress.Get()
	assert.Equal(t, status.SyncPhaseFailed, progress.Phase)
	assert.Equal(t, 1, progress.ConsecutiveFailures)
	assert.Contains(t, progress.Message, "503")
	assert.Nil(t, progress.LastSuccess)
	assert.False(t, h.manager.Status().Healthy)
	assert.False(t, h.manager.Status().Ready)

	// The next cycle starts over from the same page and recovers
	h.upstream.EXPECT().FetchPage(gomock.Any(), 0).Return(nil, nil)
	_, err = h.manager.RunCycle(ctx, pkgsync.TriggerScheduled)
	require.NoError(t, err)

	progress = h.progress.Get()
	assert.Equal(t, status.SyncPhaseComplete, progress.Phase)
	assert.Zero(t, progress.ConsecutiveFailures)
	assert.True(t, h.manager.Status().Healthy)
}

func TestManager_SingleCycleToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	h.upstream.EXPECT().FetchPage(gomock.Any(), 0).
		DoAndReturn(func(context.Context, int) ([]catalog.RawShow, error) {
			close(started)
			<-release
			return nil, nil
		})

	done := make(chan error, 1)
	go func() {
		_, err := h.manager.RunCycle(ctx, pkgsync.TriggerStartup)
		done <- err
	}()
	<-started

	assert.True(t, h.manager.Status().Running)

	_, err := h.manager.RunCycle(ctx, pkgsync.TriggerManual)
	assert.ErrorIs(t, err, pkgsync.ErrAlreadyRunning)
	_, err = h.manager.ForceReEvaluate(ctx)
	assert.ErrorIs(t, err, pkgsync.ErrAlreadyRunning)
	_, err = h.manager.ReconcileSelections(ctx)
	assert.ErrorIs(t, err, pkgsync.ErrAlreadyRunning)
	_, err = h.manager.CheckFilterChange(ctx)
	assert.ErrorIs(t, err, pkgsync.ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, h.manager.Status().Running)
}

func TestCheckFilterChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	// The first run only records the fingerprint
	result, err := h.manager.CheckFilterChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, h.evaluator.Fingerprint(), h.progress.Get().LastFilterHash)

	// Unchanged filters do nothing
	result, err = h.manager.CheckFilterChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)

	h.seed(t, cachedShow(1, 100, "English", 1))
	require.NoError(t, h.store.MarkFiltered(ctx, 1, "No selection matched", filtering.CategoryNoSelection))
	h.seed(t, cachedShow(2, 200, "French", 1))
	require.NoError(t, h.store.MarkFiltered(ctx, 2, "No selection matched", filtering.CategoryNoSelection))

	_, err = h.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.LastFilterHash = "ffffffffffffffff"
		return true
	})
	require.NoError(t, err)

	result, err = h.manager.CheckFilterChange(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Admitted)
	assert.Equal(t, catalog.StatePending, h.record(t, 1).State)
	assert.Equal(t, catalog.StateFiltered, h.record(t, 2).State)
	assert.Equal(t, h.evaluator.Fingerprint(), h.progress.Get().LastFilterHash)
}

func TestForceReEvaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	h.seed(t, cachedShow(1, 100, "English", 1))
	require.NoError(t, h.store.MarkFiltered(ctx, 1, "Excluded genre: Drama", filtering.CategoryGenre))

	result, err := h.manager.ForceReEvaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, filtering.ReEvaluationResult{Scanned: 1, Admitted: 1}, result)
	assert.Equal(t, catalog.StatePending, h.record(t, 1).State)
	assert.Equal(t, h.evaluator.Fingerprint(), h.progress.Get().LastFilterHash)
}

func TestReconcileSelections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	// already in Sonarr
	h.seed(t, cachedShow(40, 4000, "English", 1))
	// admitted and missing from Sonarr
	h.seed(t, cachedShow(41, 4100, "English", 1))
	// rejected by the filters
	h.seed(t, cachedShow(42, 4200, "French", 1))
	// added by an earlier cycle, then removed from Sonarr by hand
	h.seed(t, cachedShow(43, 4300, "English", 1))
	require.NoError(t, h.store.MarkAdded(ctx, 43, 12))
	// no TVDB id
	h.seed(t, cachedShow(44, 0, "English", 1))

	h.downstream.EXPECT().ExistingTVDBIDs(gomock.Any()).Return(map[int64]int64{4000: 77, 9999: 1}, nil)
	h.downstream.EXPECT().Lookup(gomock.Any(), int64(4100)).Return(candidate(4100), true, nil)
	h.downstream.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Return(sonarr.Created{ID: 88}, nil)

	counts, err := h.manager.ReconcileSelections(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[pkgsync.Outcome]int{
		pkgsync.OutcomeExists: 1,
		pkgsync.OutcomeAdded:  1,
	}, counts)

	exists := h.record(t, 40)
	assert.Equal(t, catalog.StateExists, exists.State)
	require.NotNil(t, exists.SonarrID)
	assert.Equal(t, int64(77), *exists.SonarrID)

	assert.Equal(t, catalog.StateAdded, h.record(t, 41).State)
	assert.Equal(t, catalog.StatePending, h.record(t, 42).State)
	assert.Equal(t, catalog.StateAdded, h.record(t, 43).State)
	assert.Equal(t, catalog.StatePending, h.record(t, 44).State)
}

func TestReconcileSelections_SonarrUnavailable(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.downstream.EXPECT().ExistingTVDBIDs(gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := h.manager.ReconcileSelections(context.Background())
	assert.ErrorContains(t, err, "failed to list Sonarr series")
}

func TestReady(t *testing.T) {
	t.Parallel()

	now := testNow
	tests := []struct {
		name     string
		progress *status.SyncProgress
		want     bool
	}{
		{name: "no record", progress: nil},
		{name: "fresh record", progress: &status.SyncProgress{}},
		{name: "initial scan in progress", progress: &status.SyncProgress{PageCursor: 3}, want: true},
		{name: "initial scan complete", progress: &status.SyncProgress{LastFullSync: &now}, want: true},
		{name: "cycle succeeded", progress: &status.SyncProgress{LastSuccess: &now}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pkgsync.Ready(tt.progress))
		})
	}
}

func TestError(t *testing.T) {
	t.Parallel()

	inner := errors.New("disk I/O error")
	err := &pkgsync.Error{Err: inner, Message: "failed to store page 3: disk I/O error", Reason: pkgsync.ReasonStorageFailed}
	assert.Equal(t, "failed to store page 3: disk I/O error", err.Error())
	assert.ErrorIs(t, err, inner)
}
