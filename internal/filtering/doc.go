// Package filtering decides what happens to each catalog show.
//
// A show is evaluated in a fixed order and the first applicable outcome wins:
//
//  1. A show without a TVDB id is deferred (category "tvdb")
//  2. Global excludes are checked in the order genre, type, language,
//     country, network. A match rejects the show with that category.
//  3. Selections are tried in configured order. The first selection whose
//     every constrained dimension is satisfied admits the show.
//  4. Otherwise the show is rejected with category "no-selection-match"
//
// Inside a selection, list constraints are exact membership (genres match on
// any overlap), date and numeric ranges are inclusive, and a show with no
// value for a constrained dimension does not match it.
//
// # Decisions
//
// Evaluate returns one of Admit, Reject or Defer. Decision is a closed set;
// consumers switch over the concrete type:
//
//	switch d := filtering.Evaluate(show, cfg).(type) {
//	case filtering.Admit:
//		forward(d.Params)
//	case filtering.Reject:
//		store.MarkFiltered(ctx, show.ID, d.Reason, d.Category)
//	case filtering.Defer:
//		store.MarkPendingTVDB(ctx, show.ID, retryAt, now)
//	}
//
// # Configuration changes
//
// Fingerprint hashes a canonical form of the configuration. When the stored
// fingerprint differs from the current one, ReEvaluate walks every filtered
// show in the cache and re-queues the ones the new configuration admits.
// Re-evaluation only reads the local cache.
package filtering
