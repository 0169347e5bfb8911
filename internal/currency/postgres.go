package currency

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRates reads rates from the currency_rate table.
type PostgresRates struct {
	db *pgxpool.Pool
}

// NewPostgresRates creates a rate source over db.
func NewPostgresRates(db *pgxpool.Pool) *PostgresRates {
	return &PostgresRates{db: db}
}

// Rate implements RateSource.
func (p *PostgresRates) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var raw string
	err := p.db.QueryRow(ctx, `
		SELECT rate::text FROM currency_rate
		WHERE currency_from = $1 AND currency_to = $2
	`, from, to).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrRateNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("query rate %s/%s: %w", from, to, err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %s/%s %q: %w", from, to, raw, err)
	}
	return rate, nil
}
