package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"k8s.io/utils/clock"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/status"
	"github.com/stacklok/tvmaze-sync/internal/sync/state"
	"github.com/stacklok/tvmaze-sync/internal/telemetry"
)

// Trigger says what started a cycle
type Trigger string

const (
	TriggerStartup   Trigger = "startup"
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Mode is the scan a cycle performs
type Mode string

const (
	// ModeInitial pages through the whole TVMaze index
	ModeInitial Mode = "initial"
	// ModeIncremental follows the updates endpoint and probes for new ids
	ModeIncremental Mode = "incremental"
)

// Outcome is what happened to a single show
type Outcome string

const (
	OutcomeAdded       Outcome = "added"
	OutcomeExists      Outcome = "exists"
	OutcomeFiltered    Outcome = "filtered"
	OutcomePendingTVDB Outcome = "pending_tvdb"
	OutcomeFailed      Outcome = "failed"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeDryRun      Outcome = "dry_run"
	OutcomeError       Outcome = "error"
)

// Result summarises one cycle. A failed cycle still returns the work done
// before the failure.
type Result struct {
	CycleID   string                        `json:"cycle_id"`
	Trigger   Trigger                       `json:"trigger"`
	Mode      Mode                          `json:"mode"`
	StartedAt time.Time                     `json:"started_at"`
	Duration  time.Duration                 `json:"duration"`
	Outcomes  map[Outcome]int               `json:"outcomes"`
	Abandoned int                           `json:"abandoned"`
	Retried   int                           `json:"retried"`
	Refilter  *filtering.ReEvaluationResult `json:"refilter,omitempty"`
}

// Processed is the number of shows the cycle acted on
func (r *Result) Processed() int {
	total := 0
	for _, n := range r.Outcomes {
		total += n
	}
	return total
}

// Status is a point-in-time view of the orchestrator
type Status struct {
	Running    bool                 `json:"sync_running"`
	Healthy    bool                 `json:"healthy"`
	Ready      bool                 `json:"ready"`
	DryRun     bool                 `json:"dry_run"`
	Progress   *status.SyncProgress `json:"progress"`
	LastResult *Result              `json:"last_result,omitempty"`
}

// Manager runs sync cycles and the cache-wide operations that must not
// overlap with them. At most one of them runs at a time; the others fail
// fast with ErrAlreadyRunning.
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/tvmaze-sync/internal/sync Manager
type Manager interface {
	// RunCycle runs one full cycle: filter-change check, initial or
	// incremental scan, pending backlog and TVDB retries
	RunCycle(ctx context.Context, trigger Trigger) (*Result, error)

	// CheckFilterChange re-evaluates filtered shows when the filter
	// fingerprint differs from the stored one. The result is nil when nothing ran.
	CheckFilterChange(ctx context.Context) (*filtering.ReEvaluationResult, error)

	// ForceReEvaluate re-evaluates every filtered show regardless of the fingerprint
	ForceReEvaluate(ctx context.Context) (filtering.ReEvaluationResult, error)

	// ReconcileSelections forwards cached admitted shows that Sonarr does not have
	ReconcileSelections(ctx context.Context) (map[Outcome]int, error)

	// Status returns the current state of the orchestrator
	Status() Status
}

// defaultManager is the default implementation of Manager
type defaultManager struct {
	store      catalog.Store
	progress   state.ProgressService
	upstream   UpstreamClient
	downstream DownstreamClient
	evaluator  filtering.Evaluator

	dryRun           bool
	updateWindow     string
	retryDelay       time.Duration
	abandonAfter     config.Duration
	rateLimitedDelay time.Duration
	probeMisses      int

	clock   clock.Clock
	metrics *telemetry.SyncMetrics
	tracer  trace.Tracer

	token      *semaphore.Weighted
	running    atomic.Bool
	healthy    atomic.Bool
	lastResult atomic.Pointer[Result]
}

// Option configures the manager
type Option func(*defaultManager)

// WithClock sets the clock used for retry times and back-off sleeps
func WithClock(c clock.Clock) Option {
	return func(m *defaultManager) {
		m.clock = c
	}
}

// WithSyncMetrics sets the metrics recorded per processed show
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(m *defaultManager) {
		m.metrics = metrics
	}
}

// WithTracer sets the tracer used for cycle spans
func WithTracer(tracer trace.Tracer) Option {
	return func(m *defaultManager) {
		m.tracer = tracer
	}
}

// NewManager creates a Manager. The evaluator must already be bound to the
// resolved Sonarr parameters.
func NewManager(
	store catalog.Store,
	progress state.ProgressService,
	upstream UpstreamClient,
	downstream DownstreamClient,
	evaluator filtering.Evaluator,
	cfg *config.Config,
	opts ...Option,
) Manager {
	m := &defaultManager{
		store:            store,
		progress:         progress,
		upstream:         upstream,
		downstream:       downstream,
		evaluator:        evaluator,
		dryRun:           cfg.DryRun,
		updateWindow:     cfg.TVMaze.UpdateWindow,
		retryDelay:       cfg.Sync.RetryDelay.Std(),
		abandonAfter:     cfg.Sync.AbandonAfter,
		rateLimitedDelay: cfg.TVMaze.RateLimitedDelay.Std(),
		probeMisses:      cfg.Sync.ProbeMisses,
		clock:            clock.RealClock{},
		token:            semaphore.NewWeighted(1),
	}
	m.healthy.Store(true)

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// acquire takes the cycle token without waiting
func (m *defaultManager) acquire() (func(), error) {
	if !m.token.TryAcquire(1) {
		return nil, ErrAlreadyRunning
	}
	m.running.Store(true)
	return func() {
		m.running.Store(false)
		m.token.Release(1)
	}, nil
}

// RunCycle implements Manager
func (m *defaultManager) RunCycle(ctx context.Context, trigger Trigger) (*Result, error) {
	release, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := m.clock.Now().UTC()
	mode := ModeIncremental
	if !m.progress.Get().InitialScanComplete() {
		mode = ModeInitial
	}

	cycleID := uuid.NewString()
	c := &cycle{
		manager: m,
		logger:  slog.With("cycle_id", cycleID),
		result: &Result{
			CycleID:   cycleID,
			Trigger:   trigger,
			Mode:      mode,
			StartedAt: start,
			Outcomes:  make(map[Outcome]int),
		},
	}

	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.cycle",
		trace.WithAttributes(
			otel.AttrCycleID.String(cycleID),
			otel.AttrSyncMode.String(string(mode)),
			otel.AttrDryRun.Bool(m.dryRun),
		))
	defer span.End()

	c.logger.Info("Starting sync cycle", "trigger", trigger, "mode", mode, "dry_run", m.dryRun)

	_, err = m.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.Phase = status.SyncPhaseSyncing
		p.CycleID = cycleID
		p.Message = "Sync in progress"
		p.LastAttempt = &start
		return true
	})
	if err != nil {
		err = newError(ReasonStateSaveFailed, "failed to save progress", err)
	} else {
		err = c.run(ctx)
	}

	c.result.Duration = m.clock.Since(start)
	m.lastResult.Store(c.result)
	if err != nil {
		otel.RecordError(span, err)
		m.fail(ctx, c, err)
		return c.result, err
	}

	if err := m.complete(ctx, c); err != nil {
		otel.RecordError(span, err)
		m.fail(ctx, c, err)
		return c.result, err
	}
	return c.result, nil
}

// complete records a successful cycle and refreshes the backup
func (m *defaultManager) complete(ctx context.Context, c *cycle) error {
	now := m.clock.Now().UTC()
	message := fmt.Sprintf("Sync completed: %d shows processed", c.result.Processed())
	_, err := m.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.Phase = status.SyncPhaseComplete
		p.Message = message
		p.LastSuccess = &now
		p.ConsecutiveFailures = 0
		return true
	})
	if err != nil {
		return newError(ReasonStateSaveFailed, "failed to save progress", err)
	}

	if err := m.progress.Backup(ctx); err != nil {
		c.logger.Warn("Failed to refresh progress backup", "error", err)
	}

	m.healthy.Store(true)
	c.logger.Info("Sync cycle completed",
		"mode", c.result.Mode,
		"duration", c.result.Duration,
		"added", c.result.Outcomes[OutcomeAdded],
		"exists", c.result.Outcomes[OutcomeExists],
		"filtered", c.result.Outcomes[OutcomeFiltered],
		"pending_tvdb", c.result.Outcomes[OutcomePendingTVDB],
		"failed", c.result.Outcomes[OutcomeFailed],
		"dry_run", c.result.Outcomes[OutcomeDryRun],
		"errors", c.result.Outcomes[OutcomeError])
	return nil
}

// fail records a failed cycle. The progress save runs even when ctx was
// cancelled so a stopped cycle is not left in the Syncing phase.
func (m *defaultManager) fail(ctx context.Context, c *cycle, err error) {
	m.healthy.Store(false)

	reason := ReasonStorageFailed
	var syncErr *Error
	if errors.As(err, &syncErr) {
		reason = syncErr.Reason
	}
	c.logger.Error("Sync cycle failed", "reason", reason, "error", err)

	_, saveErr := m.progress.Update(context.WithoutCancel(ctx), func(p *status.SyncProgress) bool {
		p.Phase = status.SyncPhaseFailed
		p.Message = err.Error()
		p.ConsecutiveFailures++
		return true
	})
	if saveErr != nil {
		c.logger.Error("Failed to save failed cycle state", "error", saveErr)
	}
}

// Status implements Manager
func (m *defaultManager) Status() Status {
	progress := m.progress.Get()
	return Status{
		Running:    m.running.Load(),
		Healthy:    m.healthy.Load(),
		Ready:      Ready(progress),
		DryRun:     m.dryRun,
		Progress:   progress,
		LastResult: m.lastResult.Load(),
	}
}

// Ready reports whether the cache is useful: a cycle has completed, or the
// initial scan has committed at least one page
func Ready(p *status.SyncProgress) bool {
	if p == nil {
		return false
	}
	return p.LastSuccess != nil || p.InitialScanComplete() || p.PageCursor > 0
}

// recordOutcome counts a show outcome on the result and in the metrics
func (m *defaultManager) recordOutcome(ctx context.Context, counts map[Outcome]int, outcome Outcome) {
	counts[outcome]++
	m.metrics.RecordShow(ctx, string(outcome))
}
