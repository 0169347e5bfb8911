package pricing

import "github.com/shopspring/decimal"

// Clamp reconciles a catalog price with a channel override price.
//
// A zero or absent override leaves both at price. Otherwise both sides take
// the lower of the two values, so the returned price can drop below its input.
func Clamp(price decimal.Decimal, override *decimal.Decimal) (clampedPrice, webshop decimal.Decimal) {
	if override == nil || override.IsZero() {
		return price, price
	}
	o := *override
	switch {
	case o.GreaterThan(price):
		return price, price
	case price.GreaterThan(o):
		return o, o
	default:
		return price, o
	}
}
