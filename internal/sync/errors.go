package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
)

// ErrAlreadyRunning is returned when a cycle or a cache-wide operation is
// requested while another one holds the cycle token
var ErrAlreadyRunning = errors.New("a sync cycle is already running")

// Cycle failure reasons
const (
	ReasonFetchFailed       = "fetch-failed"
	ReasonStorageFailed     = "storage-failed"
	ReasonCacheCorrupt      = "cache-corrupt"
	ReasonStateSaveFailed   = "state-save-failed"
	ReasonFilterCheckFailed = "filter-check-failed"
	ReasonCancelled         = "cycle-cancelled"
)

// Error is a cycle-fatal failure. Reason is one of the Reason constants and
// is what the progress record and the logs carry.
type Error struct {
	Err     error
	Message string
	Reason  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError classifies err. Cancellation and corruption take precedence over
// the reason supplied by the caller.
func newError(reason, message string, err error) *Error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = ReasonCancelled
	case errors.Is(err, catalog.ErrCorrupt):
		reason = ReasonCacheCorrupt
	}
	return &Error{
		Err:     err,
		Message: fmt.Sprintf("%s: %v", message, err),
		Reason:  reason,
	}
}

// fatal reports whether a show-level error must abort the cycle
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, catalog.ErrCorrupt)
}
