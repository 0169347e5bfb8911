// Package model defines shared data types used across the catalog feed.
//
// Conventions:
//   - Item and store ids: int64, store id 0 is the default (admin) store
//   - Delta ids: int64, strictly increasing, never reused
//   - Prices: decimal.Decimal inside the pricing pipeline, float64 on the wire
//   - Timestamps: time.Time in UTC
package model
