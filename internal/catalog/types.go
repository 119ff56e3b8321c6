// Package catalog contains the show model and the durable show cache.
package catalog

import (
	"time"
)

// State is the processing state attached to every cached show
type State string

const (
	// StatePending means the show has not been evaluated yet, or was
	// re-admitted by a filter change and waits to be forwarded.
	StatePending State = "pending"

	// StateFiltered means the show was rejected by the filters
	StateFiltered State = "filtered"

	// StatePendingTVDB means the show cannot be forwarded until it has a TVDB id
	StatePendingTVDB State = "pending_tvdb"

	// StateAdded means the show was added to Sonarr by this service
	StateAdded State = "added"

	// StateExists means the show was already present in Sonarr
	StateExists State = "exists"

	// StateFailed means Sonarr rejected the show or the TVDB id never appeared
	StateFailed State = "failed"

	// StateSkipped means the show was excluded manually
	StateSkipped State = "skipped"
)

// AllStates lists every processing state in a stable order
func AllStates() []State {
	return []State{
		StatePending,
		StateFiltered,
		StatePendingTVDB,
		StateAdded,
		StateExists,
		StateFailed,
		StateSkipped,
	}
}

// Valid reports whether s is a known processing state
func (s State) Valid() bool {
	for _, known := range AllStates() {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether a show in this state must never be forwarded again
func (s State) Terminal() bool {
	return s == StateAdded || s == StateExists || s == StateSkipped
}

// ParseState converts a user supplied string into a State
func ParseState(s string) (State, bool) {
	state := State(s)
	return state, state.Valid()
}

// Show is the catalog metadata of a single TVMaze show.
// Empty strings and nil pointers mean the attribute is unknown.
type Show struct {
	ID         int64      `json:"tvmaze_id"`
	TVDBID     *int64     `json:"tvdb_id,omitempty"`
	IMDBID     string     `json:"imdb_id,omitempty"`
	Title      string     `json:"title"`
	Language   string     `json:"language,omitempty"`
	Country    string     `json:"country,omitempty"`
	Type       string     `json:"type,omitempty"`
	Status     string     `json:"status,omitempty"`
	Premiered  *time.Time `json:"premiered,omitempty"`
	Ended      *time.Time `json:"ended,omitempty"`
	Network    string     `json:"network,omitempty"`
	WebChannel string     `json:"web_channel,omitempty"`
	Genres     []string   `json:"genres"`
	Rating     *float64   `json:"rating,omitempty"`
	Runtime    *int       `json:"runtime,omitempty"`

	// UpdatedAt is the upstream revision marker (unix seconds)
	UpdatedAt int64 `json:"tvmaze_updated_at"`
}

// HasTVDB reports whether the show carries a TVDB id
func (s *Show) HasTVDB() bool {
	return s != nil && s.TVDBID != nil && *s.TVDBID > 0
}

// Record is a cached show together with its processing state
type Record struct {
	Show

	State        State      `json:"processing_status"`
	FilterReason string     `json:"filter_reason,omitempty"`
	SonarrID     *int64     `json:"sonarr_series_id,omitempty"`
	AddedAt      *time.Time `json:"added_to_sonarr_at,omitempty"`
	LastChecked  time.Time  `json:"last_checked"`
	RetryAfter   *time.Time `json:"retry_after,omitempty"`
	RetryCount   int        `json:"retry_count"`
	PendingSince *time.Time `json:"pending_since,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ModifiedAt   time.Time  `json:"updated_at"`
}

// FilterCategory returns the category prefix of a stored filter reason
func (r *Record) FilterCategory() string {
	return CategoryOf(r.FilterReason)
}

// Reason returns the rejection reason of a filtered show or the error of a
// failed one, and an empty string for every other state
func (r *Record) Reason() string {
	switch r.State {
	case StateFiltered:
		return r.FilterReason
	case StateFailed:
		return r.ErrorMessage
	default:
		return ""
	}
}
