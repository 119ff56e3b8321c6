package coordinator

import (
	"math/rand/v2"
	"time"
)

const (
	// jitterDivisor sets the jitter to a twentieth of the poll interval
	jitterDivisor = 20
	// maxJitter caps the jitter for long poll intervals
	maxJitter = 10 * time.Minute
)

// defaultJitter returns the jitter applied around a poll interval
func defaultJitter(interval time.Duration) time.Duration {
	return min(interval/jitterDivisor, maxJitter)
}

// nextInterval returns base with a random offset in [-jitter, +jitter)
func nextInterval(base, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return base
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	offset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return base + offset
}
