package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Settings paths in core_config.
const (
	URLSuffixPath   = "catalog/seo/product_url_suffix"
	ExtraFieldsPath = "feed/product_attributes"
)

const defaultScopeID int64 = 0

// Postgres is a Catalog backed by the catalog tables.
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a catalog on an existing pool.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// GetItems implements ItemStore.
func (p *Postgres) GetItems(ctx context.Context, itemIDs []int64) (map[int64]Item, error) {
	rows, err := p.db.Query(ctx, `
		SELECT item_id, type, sku FROM catalog_item WHERE item_id = ANY($1)
	`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]Item, len(itemIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Type, &it.SKU); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

// GetAttributes implements AttributeStore.
func (p *Postgres) GetAttributes(ctx context.Context, itemIDs, storeIDs []int64, codes []string) (Attributes, error) {
	rows, err := p.db.Query(ctx, `
		SELECT item_id, store_id, code, value
		FROM catalog_item_attribute
		WHERE item_id = ANY($1) AND store_id = ANY($2) AND code = ANY($3)
	`, itemIDs, storeIDs, codes)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	out := make(Attributes)
	for rows.Next() {
		var (
			item, store int64
			code        string
			value       *string
		)
		if err := rows.Scan(&item, &store, &code, &value); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		// NULL values are absent so the default store fallback applies.
		if value == nil {
			continue
		}
		out.Set(item, store, code, *value)
	}
	return out, rows.Err()
}

// GetStock implements StockStore.
func (p *Postgres) GetStock(ctx context.Context, itemIDs []int64) (map[int64]StockLevel, error) {
	rows, err := p.db.Query(ctx, `
		SELECT item_id, qty::float8, is_in_stock FROM stock_item WHERE item_id = ANY($1)
	`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]StockLevel, len(itemIDs))
	for rows.Next() {
		var (
			id int64
			s  StockLevel
		)
		if err := rows.Scan(&id, &s.Qty, &s.InStock); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out[id] = s
	}
	return out, rows.Err()
}

// GetCategoryAssociations implements CategoryStore.
func (p *Postgres) GetCategoryAssociations(ctx context.Context, minItemID, maxItemID int64) ([]CategoryAssociation, error) {
	rows, err := p.db.Query(ctx, `
		SELECT item_id, category_id FROM category_item
		WHERE item_id >= $1 AND item_id <= $2
		ORDER BY item_id, position, category_id
	`, minItemID, maxItemID)
	if err != nil {
		return nil, fmt.Errorf("query category links: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[CategoryAssociation])
}

// ResolvePath implements CategoryStore.
func (p *Postgres) ResolvePath(ctx context.Context, categoryID int64) (string, error) {
	var path string
	err := p.db.QueryRow(ctx, `SELECT path FROM category WHERE category_id = $1`, categoryID).Scan(&path)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query category %d: %w", categoryID, err)
	}
	return path, nil
}

// GetOverridePrices implements PriceBook.
func (p *Postgres) GetOverridePrices(ctx context.Context, itemIDs, storeIDs, groupIDs []int64) (OverridePrices, error) {
	rows, err := p.db.Query(ctx, `
		SELECT item_id, store_id, customer_group_id, final_price::text, price::text
		FROM price_override
		WHERE item_id = ANY($1) AND store_id = ANY($2) AND customer_group_id = ANY($3)
	`, itemIDs, storeIDs, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("query override prices: %w", err)
	}
	defer rows.Close()

	out := make(OverridePrices)
	for rows.Next() {
		var (
			item, store, group int64
			final, price       *string
		)
		if err := rows.Scan(&item, &store, &group, &final, &price); err != nil {
			return nil, fmt.Errorf("scan override price: %w", err)
		}
		entry := OverridePrice{
			FinalPrice: p.parseAmount(final, item, store),
			Price:      p.parseAmount(price, item, store),
		}
		out.Set(item, store, group, entry)
	}
	return out, rows.Err()
}

func (p *Postgres) parseAmount(raw *string, itemID, storeID int64) *decimal.Decimal {
	if raw == nil {
		return nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		p.logger.Warn("skipping malformed override price",
			"item_id", itemID,
			"store_id", storeID,
			"value", *raw,
			"error", err,
		)
		return nil
	}
	return &d
}

// GetChildren implements RelationStore.
func (p *Postgres) GetChildren(ctx context.Context, parentIDs []int64) (map[int64][]int64, error) {
	rows, err := p.db.Query(ctx, `
		SELECT parent_id, child_id FROM item_relation
		WHERE parent_id = ANY($1)
		ORDER BY parent_id, child_id
	`, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var parent, child int64
		if err := rows.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out[parent] = append(out[parent], child)
	}
	return out, rows.Err()
}

// URLSuffix implements Settings. A store without its own value inherits the
// default scope.
func (p *Postgres) URLSuffix(ctx context.Context, storeID int64) (string, error) {
	return p.configValue(ctx, storeID, URLSuffixPath)
}

// ExtraFieldCodes implements Settings.
func (p *Postgres) ExtraFieldCodes(ctx context.Context) ([]string, error) {
	v, err := p.configValue(ctx, defaultScopeID, ExtraFieldsPath)
	if err != nil {
		return nil, err
	}
	return ParseCodeList(v), nil
}

func (p *Postgres) configValue(ctx context.Context, scopeID int64, path string) (string, error) {
	var value string
	err := p.db.QueryRow(ctx, `
		SELECT COALESCE(value, '') FROM core_config
		WHERE path = $1 AND scope_id IN ($2, 0)
		ORDER BY scope_id DESC
		LIMIT 1
	`, path, scopeID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query config %s: %w", path, err)
	}
	return value, nil
}
