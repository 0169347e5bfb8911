// Package poller implements the feed consumer.
//
// The Poller:
//   - Reads every page of one ledger window with a fixed max_id
//   - Hands each page's items to a handler in id order
//   - Persists max_id as the next watermark only after the whole window succeeded
//   - Runs on an interval, one poll at a time
package poller
