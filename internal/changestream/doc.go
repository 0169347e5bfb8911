// Package changestream subscribes to catalog mutation events over WebSocket
// and forwards the changed item ids to intake.
//
// Messages carry either {"item_id": N} or {"item_ids": [...]}. Anything else,
// such as subscription acknowledgements, is ignored. The subscriber reconnects
// with exponential backoff until stopped.
package changestream
