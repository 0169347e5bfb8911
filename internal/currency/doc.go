// Package currency converts amounts between currency codes.
//
// Rates come from the currency_rate table and are cached in redis. A
// missing rate is tried in the inverse direction before the conversion
// fails with a *ConversionError.
package currency
