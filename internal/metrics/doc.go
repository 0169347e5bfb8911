// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Feed polls by outcome and items served
//   - Ledger records pruned and deduplicated per stabilize
//   - Recovered pricing failures (date parse, currency conversion)
//   - Intake buffer depth, overflow and batch writes
//   - Change stream connection state and messages
package metrics
