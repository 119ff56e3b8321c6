// Package coordinator schedules sync cycles in the background.
//
// A single loop goroutine runs every cycle. The first one starts as soon as
// Start is called; after that the loop waits one poll interval, offset by a
// random jitter, between the end of a cycle and the start of the next one.
// A manual Trigger wakes the loop early. Because the loop is busy while a
// cycle runs, a trigger during a cycle is refused with ErrAlreadyRunning
// rather than queued.
//
// Cycles run on a context that is independent of the one passed to Start.
// Stop gives the running cycle up to its timeout to finish, cancels it after
// that and finally flushes the progress record.
package coordinator
