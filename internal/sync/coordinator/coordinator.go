package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
	"github.com/stacklok/tvmaze-sync/internal/sync/state"
	"github.com/stacklok/tvmaze-sync/internal/telemetry"
)

var (
	// ErrStopping is returned by Trigger once Stop has been called
	ErrStopping = errors.New("coordinator is stopping")
	// ErrNotStarted is returned by Trigger before Start has been called
	ErrNotStarted = errors.New("coordinator has not been started")
)

// Coordinator schedules sync cycles. Cycles run one at a time on a single
// background loop; the poll timer and manual triggers feed the same loop.
type Coordinator interface {
	// Start runs the first cycle immediately and then one per poll interval.
	// It blocks until Stop is called or ctx is cancelled.
	Start(ctx context.Context) error

	// Trigger asks the loop to run a cycle now. It fails with
	// pkgsync.ErrAlreadyRunning when a cycle is in progress.
	Trigger() error

	// Stop stops accepting triggers and waits up to timeout for the running
	// cycle before cancelling it. The progress record is flushed last.
	Stop(timeout time.Duration) error

	// NextRun returns when the next scheduled cycle is due, or nil when
	// nothing is scheduled
	NextRun() *time.Time
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager  pkgsync.Manager
	progress state.ProgressService

	interval time.Duration
	jitter   time.Duration
	clock    clock.Clock
	metrics  *telemetry.SyncMetrics

	trigger  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool
	stopping atomic.Bool

	// cycleCtx outlives the Start context so a shutdown can let the running
	// cycle finish within the stop timeout
	cycleCtx    context.Context
	cancelCycle context.CancelFunc

	mu      sync.Mutex
	nextRun *time.Time
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the metrics recorded per cycle
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.metrics = metrics
	}
}

// WithClock sets the clock that drives the poll timer
func WithClock(clk clock.Clock) Option {
	return func(c *defaultCoordinator) {
		c.clock = clk
	}
}

// WithJitter overrides the random offset applied to the poll interval
func WithJitter(jitter time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.jitter = jitter
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	progress state.ProgressService,
	interval time.Duration,
	opts ...Option,
) Coordinator {
	cycleCtx, cancel := context.WithCancel(context.Background())
	c := &defaultCoordinator{
		manager:     manager,
		progress:    progress,
		interval:    interval,
		jitter:      defaultJitter(interval),
		clock:       clock.RealClock{},
		trigger:     make(chan struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		cycleCtx:    cycleCtx,
		cancelCycle: cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background sync coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("coordinator already started")
	}
	defer func() {
		close(c.done)
		slog.Info("Background sync coordinator shut down")
	}()

	select {
	case <-c.stop:
		return nil
	default:
	}

	slog.Info("Starting background sync coordinator",
		"poll_interval", c.interval,
		"jitter", c.jitter)

	trigger := pkgsync.TriggerStartup
	for {
		c.runCycle(c.cycleCtx, trigger)

		wait := nextInterval(c.interval, c.jitter)
		c.setNextRun(c.clock.Now().Add(wait))
		slog.Debug("Next sync cycle scheduled", "in", wait)
		timer := c.clock.NewTimer(wait)

		select {
		case <-timer.C():
			trigger = pkgsync.TriggerScheduled
		case <-c.trigger:
			timer.Stop()
			trigger = pkgsync.TriggerManual
		case <-c.stop:
			timer.Stop()
			c.setNextRun(time.Time{})
			return nil
		case <-ctx.Done():
			timer.Stop()
			c.setNextRun(time.Time{})
			slog.Info("Sync coordinator context cancelled")
			return nil
		}
		c.setNextRun(time.Time{})
	}
}

// Trigger implements Coordinator
func (c *defaultCoordinator) Trigger() error {
	if c.stopping.Load() {
		return ErrStopping
	}
	if !c.started.Load() {
		return ErrNotStarted
	}
	select {
	case c.trigger <- struct{}{}:
		slog.Info("Manual sync cycle triggered")
		return nil
	default:
		return pkgsync.ErrAlreadyRunning
	}
}

// Stop implements Coordinator
func (c *defaultCoordinator) Stop(timeout time.Duration) error {
	c.stopOnce.Do(func() {
		slog.Info("Stopping sync coordinator")
		c.stopping.Store(true)
		close(c.stop)
	})

	if c.started.Load() {
		select {
		case <-c.done:
		case <-c.clock.After(timeout):
			slog.Warn("Sync cycle still running after stop timeout, cancelling it", "timeout", timeout)
			c.cancelCycle()
			<-c.done
		}
	}
	c.cancelCycle()

	if err := c.progress.Flush(context.Background()); err != nil {
		return fmt.Errorf("failed to flush sync progress: %w", err)
	}
	return nil
}

// NextRun implements Coordinator
func (c *defaultCoordinator) NextRun() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextRun == nil {
		return nil
	}
	next := *c.nextRun
	return &next
}

func (c *defaultCoordinator) setNextRun(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.IsZero() {
		c.nextRun = nil
		return
	}
	t = t.UTC()
	c.nextRun = &t
}
