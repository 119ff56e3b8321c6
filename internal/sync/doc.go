// Package sync runs the TVMaze to Sonarr sync cycle.
//
// The Manager owns a single cycle token. A cycle, a forced re-evaluation
// and a selections reconcile all need it, so at most one of them touches
// the show cache at a time; a second request fails with ErrAlreadyRunning
// instead of waiting.
//
// # Cycle
//
// Every cycle runs these steps in order:
//
//   - Filter-change check: when the filter fingerprint differs from the one
//     stored in the progress record, filtered shows are re-evaluated.
//   - Scan: the initial scan pages through the TVMaze index, checkpointing
//     the page cursor after every page. Once it has finished, cycles run the
//     incremental scan instead, which follows the updates endpoint and then
//     probes for ids above the highest one seen.
//   - Pending backlog: shows still pending are evaluated and forwarded.
//   - Retries: shows waiting for a TVDB id are abandoned once they have
//     waited longer than abandon_after; due ones are re-fetched and
//     evaluated again.
//
// # Errors
//
// Show-level failures are logged and the cycle carries on. Cancellation,
// cache corruption and progress save failures end the cycle with an *Error
// whose Reason is recorded in the progress record.
//
// The coordinator subpackage schedules cycles; the state subpackage holds
// the progress record.
package sync
