package tvmaze

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when TVMaze answers 404 for a single show
var ErrNotFound = errors.New("show not found on TVMaze")

// RateLimitedError is returned when TVMaze answers 429. The caller is
// expected to wait RetryAfter (zero when the response did not say) and
// repeat the same request.
type RateLimitedError struct {
	Endpoint   string
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by TVMaze on %s, retry after %s", e.Endpoint, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited by TVMaze on %s", e.Endpoint)
}

// IsRateLimited returns the RateLimitedError in err's chain, if any
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
