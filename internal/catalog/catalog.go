package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rickgao/catalog-feed/internal/model"
)

// ErrNotFound is returned by single-record lookups with no match.
var ErrNotFound = errors.New("catalog: not found")

// Attributes maps item id -> store id -> attribute code -> value.
type Attributes map[int64]map[int64]map[string]string

// Set stores one attribute value.
func (a Attributes) Set(itemID, storeID int64, code, value string) {
	stores, ok := a[itemID]
	if !ok {
		stores = make(map[int64]map[string]string)
		a[itemID] = stores
	}
	fields, ok := stores[storeID]
	if !ok {
		fields = make(map[string]string)
		stores[storeID] = fields
	}
	fields[code] = value
}

// Get returns the value stored for exactly this store.
func (a Attributes) Get(itemID, storeID int64, code string) (string, bool) {
	v, ok := a[itemID][storeID][code]
	return v, ok
}

// Resolve returns the store's value, falling back once to the default store.
func (a Attributes) Resolve(itemID, storeID int64, code string) (string, bool) {
	if v, ok := a.Get(itemID, storeID, code); ok {
		return v, true
	}
	if storeID == model.DefaultStoreID {
		return "", false
	}
	return a.Get(itemID, model.DefaultStoreID, code)
}

// Item holds the store-independent columns of an item.
type Item struct {
	ID   int64
	Type string
	SKU  string
}

// StockLevel is the stock state of one item.
type StockLevel struct {
	Qty     float64
	InStock bool
}

// CategoryAssociation links an item to a category.
type CategoryAssociation struct {
	ItemID     int64
	CategoryID int64
}

// OverridePrice is one price book entry. Nil means absent.
type OverridePrice struct {
	FinalPrice *decimal.Decimal
	Price      *decimal.Decimal
}

// OverridePrices maps item id -> store id -> customer group id -> entry.
type OverridePrices map[int64]map[int64]map[int64]OverridePrice

// Set stores one price book entry.
func (o OverridePrices) Set(itemID, storeID, groupID int64, p OverridePrice) {
	stores, ok := o[itemID]
	if !ok {
		stores = make(map[int64]map[int64]OverridePrice)
		o[itemID] = stores
	}
	groups, ok := stores[storeID]
	if !ok {
		groups = make(map[int64]OverridePrice)
		stores[storeID] = groups
	}
	groups[groupID] = p
}

// Lookup returns the entry for item, store and customer group.
func (o OverridePrices) Lookup(itemID, storeID, groupID int64) OverridePrice {
	return o[itemID][storeID][groupID]
}

// ItemStore reads item rows.
type ItemStore interface {
	GetItems(ctx context.Context, itemIDs []int64) (map[int64]Item, error)
}

// AttributeStore reads per-store attribute values.
type AttributeStore interface {
	GetAttributes(ctx context.Context, itemIDs, storeIDs []int64, codes []string) (Attributes, error)
}

// StockStore reads stock levels.
type StockStore interface {
	GetStock(ctx context.Context, itemIDs []int64) (map[int64]StockLevel, error)
}

// CategoryStore reads category links and materialized paths.
type CategoryStore interface {
	// GetCategoryAssociations returns links for items with
	// minItemID <= item id <= maxItemID.
	GetCategoryAssociations(ctx context.Context, minItemID, maxItemID int64) ([]CategoryAssociation, error)

	// ResolvePath returns ErrNotFound for an unknown category.
	ResolvePath(ctx context.Context, categoryID int64) (string, error)
}

// PriceBook reads channel override prices.
type PriceBook interface {
	GetOverridePrices(ctx context.Context, itemIDs, storeIDs, groupIDs []int64) (OverridePrices, error)
}

// RelationStore reads parent to child item links.
type RelationStore interface {
	GetChildren(ctx context.Context, parentIDs []int64) (map[int64][]int64, error)
}

// Settings reads merchant configuration.
type Settings interface {
	// URLSuffix returns the item URL suffix of a store, such as ".html".
	URLSuffix(ctx context.Context, storeID int64) (string, error)

	// ExtraFieldCodes returns the attribute codes the merchant configured
	// for export.
	ExtraFieldCodes(ctx context.Context) ([]string, error)
}

// Catalog bundles every lookup the feed needs.
type Catalog interface {
	ItemStore
	AttributeStore
	StockStore
	CategoryStore
	PriceBook
	RelationStore
	Settings
}
