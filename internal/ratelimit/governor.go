// Package ratelimit paces outgoing requests to the upstream catalog.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// TVMaze allows 20 calls every 10 seconds per IP
const (
	DefaultLimit  = 20
	DefaultWindow = 10 * time.Second
)

// Governor grants at most limit permits in any trailing window. It keeps the
// grant times of the last limit permits in a ring; when the ring is full the
// next permit is available once the oldest grant leaves the window.
type Governor struct {
	mu     sync.Mutex
	clock  clock.Clock
	limit  int
	window time.Duration
	grants []time.Time
	// oldest is the ring index of the oldest grant once the ring is full
	oldest int

	onWait func(time.Duration)
}

// Option configures a Governor
type Option func(*Governor)

// WithClock sets the clock used to timestamp grants
func WithClock(c clock.Clock) Option {
	return func(g *Governor) {
		g.clock = c
	}
}

// WithWaitObserver registers fn to receive the time each Acquire spent waiting
func WithWaitObserver(fn func(time.Duration)) Option {
	return func(g *Governor) {
		g.onWait = fn
	}
}

// New creates a Governor allowing limit permits per window
func New(limit int, window time.Duration, opts ...Option) (*Governor, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}

	g := &Governor{
		clock:  clock.RealClock{},
		limit:  limit,
		window: window,
		grants: make([]time.Time, 0, limit),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Acquire blocks until a permit is available or ctx is done
func (g *Governor) Acquire(ctx context.Context) error {
	start := g.clock.Now()
	for {
		g.mu.Lock()
		now := g.clock.Now()
		wait := g.waitLocked(now)
		if wait <= 0 {
			g.grantLocked(now)
			g.mu.Unlock()
			if g.onWait != nil {
				g.onWait(now.Sub(start))
			}
			return nil
		}
		g.mu.Unlock()

		// Another caller may take the slot first, so the loop re-checks.
		timer := g.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
	}
}

// WaitTime estimates how long the next Acquire would block, without taking a permit
func (g *Governor) WaitTime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	wait := g.waitLocked(g.clock.Now())
	if wait < 0 {
		return 0
	}
	return wait
}

// Limit returns the permits allowed per window
func (g *Governor) Limit() int {
	return g.limit
}

// Window returns the length of the sliding window
func (g *Governor) Window() time.Duration {
	return g.window
}

func (g *Governor) waitLocked(now time.Time) time.Duration {
	if len(g.grants) < g.limit {
		return 0
	}
	return g.grants[g.oldest].Add(g.window).Sub(now)
}

func (g *Governor) grantLocked(now time.Time) {
	if len(g.grants) < g.limit {
		g.grants = append(g.grants, now)
		return
	}
	g.grants[g.oldest] = now
	g.oldest = (g.oldest + 1) % g.limit
}
