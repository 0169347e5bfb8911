package channel

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/catalog-feed/internal/model"
)

// PostgresSource reads stores from the store table.
type PostgresSource struct {
	db *pgxpool.Pool
}

// NewPostgresSource creates a source over db.
func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db}
}

// ListStores implements Source.
func (p *PostgresSource) ListStores(ctx context.Context) ([]model.Store, error) {
	rows, err := p.db.Query(ctx, `
		SELECT store_id, code, website_id, base_url, media_base_url,
		       base_currency, COALESCE(current_currency, '')
		FROM store
		ORDER BY store_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}

	stores, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Store, error) {
		var s model.Store
		err := row.Scan(&s.ID, &s.Code, &s.WebsiteID, &s.BaseURL, &s.MediaBaseURL,
			&s.BaseCurrency, &s.CurrentCurrency)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan stores: %w", err)
	}
	return stores, nil
}
