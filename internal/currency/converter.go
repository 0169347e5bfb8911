package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound is returned by a RateSource with no rate for a pair.
var ErrRateNotFound = errors.New("currency: rate not found")

// ConversionError reports a failed conversion between two currencies.
type ConversionError struct {
	From string
	To   string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s to %s: %v", e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// RateSource returns the rate that converts one unit of from into to.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Converter converts amounts using a RateSource.
type Converter struct {
	rates RateSource
}

// NewConverter creates a converter backed by rates.
func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// Convert converts amount from one currency to another. Equal codes return
// the amount unchanged.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return amount, &ConversionError{From: from, To: to, Err: errors.New("empty currency code")}
	}
	if from == to {
		return amount, nil
	}

	rate, err := c.rates.Rate(ctx, from, to)
	if err == nil {
		return amount.Mul(rate), nil
	}
	if !errors.Is(err, ErrRateNotFound) {
		return amount, &ConversionError{From: from, To: to, Err: err}
	}

	inverse, err := c.rates.Rate(ctx, to, from)
	if err != nil {
		return amount, &ConversionError{From: from, To: to, Err: err}
	}
	if inverse.IsZero() {
		return amount, &ConversionError{From: from, To: to, Err: errors.New("zero inverse rate")}
	}
	return amount.Div(inverse), nil
}

// StaticRates is a fixed in-memory RateSource keyed by "FROM:TO".
type StaticRates map[string]decimal.Decimal

// Rate implements RateSource.
func (s StaticRates) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	r, ok := s[pairKey(from, to)]
	if !ok {
		return decimal.Zero, ErrRateNotFound
	}
	return r, nil
}

// Set stores the rate for a pair.
func (s StaticRates) Set(from, to string, rate decimal.Decimal) {
	s[pairKey(from, to)] = rate
}

func pairKey(from, to string) string {
	return from + ":" + to
}
