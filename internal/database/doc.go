// Package database provides PostgreSQL connection pool management and the
// feed schema.
//
// One database holds everything the feed server reads and writes:
//   - product_delta: the change ledger
//   - catalog tables: items, attributes, stock, categories, relations, override prices
//   - store, currency_rate, core_config: channels, rates and merchant settings
package database
