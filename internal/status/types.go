package status

import "time"

// SyncPhase represents the phase of the most recent sync cycle
type SyncPhase string

const (
	// SyncPhaseSyncing means a cycle is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last cycle completed successfully
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last cycle failed or was interrupted
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncProgress is the operational state of the sync engine. It is kept
// outside the show cache so that progress survives a cache rebuild, and
// is only written by the orchestrator.
type SyncProgress struct {
	// LastFullSync is when the initial full scan completed; nil until it has
	LastFullSync *time.Time `json:"last_full_sync"`

	// LastIncrementalSync is when the last incremental scan completed
	LastIncrementalSync *time.Time `json:"last_incremental_sync"`

	// PageCursor is the next TVMaze index page the full scan will fetch
	PageCursor int `json:"last_tvmaze_page"`

	// HighestTVMazeID is the highest show id seen so far
	HighestTVMazeID int64 `json:"highest_tvmaze_id"`

	// LastFilterHash is the fingerprint of the filters applied to the cache
	LastFilterHash string `json:"last_filter_hash"`

	// LastUpdatesCheck is when the updates endpoint was last queried
	LastUpdatesCheck *time.Time `json:"last_updates_check"`

	// Phase is the phase of the most recent cycle
	Phase SyncPhase `json:"phase,omitempty"`

	// CycleID identifies the most recent cycle in logs
	CycleID string `json:"cycle_id,omitempty"`

	// Message provides additional information about the most recent cycle
	Message string `json:"message,omitempty"`

	// LastAttempt is when the most recent cycle started
	LastAttempt *time.Time `json:"last_attempt,omitempty"`

	// LastSuccess is when a cycle last completed successfully
	LastSuccess *time.Time `json:"last_success,omitempty"`

	// ConsecutiveFailures counts failed cycles since the last success
	ConsecutiveFailures int `json:"consecutive_failures,omitempty"`
}

// InitialScanComplete reports whether the full scan has finished
func (p *SyncProgress) InitialScanComplete() bool {
	return p.LastFullSync != nil
}

// Clone returns a deep copy of the record
func (p *SyncProgress) Clone() *SyncProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.LastFullSync = cloneTime(p.LastFullSync)
	c.LastIncrementalSync = cloneTime(p.LastIncrementalSync)
	c.LastUpdatesCheck = cloneTime(p.LastUpdatesCheck)
	c.LastAttempt = cloneTime(p.LastAttempt)
	c.LastSuccess = cloneTime(p.LastSuccess)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
