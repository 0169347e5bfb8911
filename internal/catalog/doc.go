// Package catalog reads the item data assembled into feed records.
//
// Each concern sits behind a small interface so the feed can be served from
// PostgreSQL or, in tests and demos, from an in-memory catalog. Missing data
// is never an error here: lookups return empty maps and callers apply their
// own defaults.
package catalog
