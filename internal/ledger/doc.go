// Package ledger implements the delta ledger: an append-only log of
// "item N changed" records served to a single sequential poller.
//
// The ledger:
//   - Appends one record per item mutation (ids strictly increasing, never reused)
//   - Prunes records at or below the caller's watermark
//   - Deduplicates records per item up to the window's max id
//   - Serves ordered, item-distinct slices of a (sinceId, maxId] window
//
// Prune and dedup run together in Stabilize, atomically with respect to any
// subsequent read. The design assumes one active poller per watermark: prune
// is destructive, so overlapping polls may observe each other's deletions.
//
// In PostgreSQL, appends hold the stabilize advisory lock in shared mode while
// drawing ids, so a window never closes over an id whose insert is still in
// flight. Writers on several instances are safe.
package ledger
