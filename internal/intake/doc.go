// Package intake records item changes without blocking the caller.
//
// Changes are queued in a growable in-memory buffer and appended to the
// ledger in batches by a background writer. A failed batch is queued again,
// so a change is lost only if the process exits while the database is down.
package intake
