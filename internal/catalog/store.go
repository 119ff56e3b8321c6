package catalog

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// ErrCorrupt is returned when the storage engine reports corruption.
// Callers must stop using the cache once they see it.
var ErrCorrupt = errors.New("show cache is corrupt")

// DefaultStreamBatchSize is the number of rows fetched per page while streaming
const DefaultStreamBatchSize = 500

// Reader is the read side of the show cache. Every method is safe to call
// while a sync cycle is writing.
type Reader interface {
	// Get returns the show with the given TVMaze id. The boolean is false when
	// the show is not cached; that is not an error.
	Get(ctx context.Context, id int64) (*Record, bool, error)

	// GetByTVDB returns the show with the given TVDB id
	GetByTVDB(ctx context.Context, tvdbID int64) (*Record, bool, error)

	// ListByState returns one page of shows in the given state ordered by id
	ListByState(ctx context.Context, state State, limit, offset int) ([]*Record, error)

	// StreamByState calls fn for every show in the given state, in id order,
	// fetching DefaultStreamBatchSize rows at a time. Rows written behind the
	// cursor during the stream are not revisited. Returning an error from fn
	// stops the stream and returns that error.
	StreamByState(ctx context.Context, state State, fn func(*Record) error) error

	// StreamWithTVDB calls fn for every show that has a TVDB id
	StreamWithTVDB(ctx context.Context, fn func(*Record) error) error

	// StateCounts returns the number of shows in each processing state
	StateCounts(ctx context.Context) (map[State]int, error)

	// FilterReasonCounts returns the number of filtered shows per reason category
	FilterReasonCounts(ctx context.Context) (map[string]int, error)

	// RetryCounts returns the number of pending_tvdb shows per retry count
	RetryCounts(ctx context.Context) (map[int]int, error)

	// RetryDueCount returns how many pending_tvdb shows are due for a retry at now
	RetryDueCount(ctx context.Context, now time.Time) (int, error)

	// HighestID returns the highest cached TVMaze id, or 0 for an empty cache
	HighestID(ctx context.Context) (int64, error)

	// TotalCount returns the number of cached shows
	TotalCount(ctx context.Context) (int, error)

	// ShowsForRetry returns pending_tvdb shows whose retry time has passed
	// and that have not yet reached the abandon threshold
	ShowsForRetry(ctx context.Context, now time.Time, abandonAfter time.Duration) ([]*Record, error)

	// ShowsToAbandon returns due pending_tvdb shows first deferred at least
	// abandonAfter before now
	ShowsToAbandon(ctx context.Context, now time.Time, abandonAfter time.Duration) ([]*Record, error)

	// Ping checks the database is reachable
	Ping(ctx context.Context) error
}

// Store is the durable show cache. Writes are only performed by the sync
// orchestrator; each transition is a single durable write.
type Store interface {
	Reader

	// Upsert inserts the show or refreshes its metadata. The processing state
	// of an existing show is preserved.
	Upsert(ctx context.Context, show *Show) error

	// BulkUpsert upserts all shows in one transaction and returns the number written
	BulkUpsert(ctx context.Context, shows []*Show) (int, error)

	// MarkAdded records a successful add and the Sonarr series id
	MarkAdded(ctx context.Context, id int64, sonarrID int64) error

	// MarkExists records that Sonarr already had the show. sonarrID may be nil.
	MarkExists(ctx context.Context, id int64, sonarrID *int64) error

	// MarkFiltered records a rejection, storing "category: reason"
	MarkFiltered(ctx context.Context, id int64, reason, category string) error

	// MarkPendingTVDB defers the show until retryAfter. The first deferral
	// time is kept across repeated calls.
	MarkPendingTVDB(ctx context.Context, id int64, retryAfter, now time.Time) error

	// MarkFailed records a permanent forwarding failure
	MarkFailed(ctx context.Context, id int64, message string) error

	// MarkPending queues the show for evaluation and forwarding
	MarkPending(ctx context.Context, id int64) error

	// MarkSkipped excludes the show manually
	MarkSkipped(ctx context.Context, id int64) error

	// IncrementRetry bumps the retry counter and returns the new value
	IncrementRetry(ctx context.Context, id int64) (int, error)

	// Close releases the underlying database
	Close() error
}
