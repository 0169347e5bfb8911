package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStoreID is the admin/default store used for attribute fallback.
const DefaultStoreID int64 = 0

// -----------------------------------------------------------------------------
// Ledger Types
// -----------------------------------------------------------------------------

// DeltaRecord marks that an item changed. Records are appended, pruned and
// deduplicated but never updated in place.
type DeltaRecord struct {
	ID        int64     // Strictly increasing delta id
	ItemID    int64     // Changed item
	CreatedAt time.Time // Append time
}

// Window is the pagination intent of one feed request.
type Window struct {
	SinceID  int64 // Watermark of the last delivered record
	MaxID    int64 // Upper bound captured once per poll
	Page     int   // 1-based page number
	PageSize int   // Items per page
}

// Offset returns the zero-based record offset of the window's page. It
// saturates at math.MaxInt for pages too far out to address.
func (w Window) Offset() int {
	if w.Page <= 1 || w.PageSize <= 0 {
		return 0
	}
	if w.Page-1 > math.MaxInt/w.PageSize {
		return math.MaxInt
	}
	return (w.Page - 1) * w.PageSize
}

// -----------------------------------------------------------------------------
// Channel Types
// -----------------------------------------------------------------------------

// Store is a sales channel: a store view with its own currency and URLs.
type Store struct {
	ID              int64  `json:"store_id"`
	Code            string `json:"code"`
	WebsiteID       int64  `json:"website_id"`
	BaseURL         string `json:"base_url"`
	MediaBaseURL    string `json:"media_base_url"`
	BaseCurrency    string `json:"base_currency"`    // Website base currency
	CurrentCurrency string `json:"current_currency"` // Selling currency shown to shoppers
}

// IsDefault reports whether s is the admin/default store.
func (s Store) IsDefault() bool {
	return s.ID == DefaultStoreID
}

// CurrencyCode returns the code prices are reported in for this store.
func (s Store) CurrencyCode() string {
	if s.IsDefault() || s.CurrentCurrency == "" {
		return s.BaseCurrency
	}
	return s.CurrentCurrency
}

// -----------------------------------------------------------------------------
// Price Types
// -----------------------------------------------------------------------------

// ChannelPriceInputs holds the raw pricing facts of one item on one store.
// Nil pointers mean the value is absent.
type ChannelPriceInputs struct {
	ItemID             int64
	StoreID            int64
	ListPrice          *decimal.Decimal
	SpecialPrice       *decimal.Decimal
	SpecialFrom        string // Calendar timestamp, empty means unbounded
	SpecialTo          string // Calendar timestamp, empty means unbounded
	OverrideFinalPrice *decimal.Decimal
	OverrideBasePrice  *decimal.Decimal
}

// PriceQuote is the resolved price tuple of one item on one store.
// All amounts are non-negative.
type PriceQuote struct {
	Price                       float64 `json:"price"`
	DisplayPrice                float64 `json:"display_price"`
	OriginalPrice               float64 `json:"original_price"`
	OriginalDisplayPrice        float64 `json:"original_display_price"`
	WebshopPrice                float64 `json:"webshop_price"`
	DisplayWebshopPrice         float64 `json:"display_webshop_price"`
	OriginalWebshopPrice        float64 `json:"original_webshop_price"`
	OriginalDisplayWebshopPrice float64 `json:"original_display_webshop_price"`
	CurrencyCode                string  `json:"currency"`
}

// -----------------------------------------------------------------------------
// Feed Types
// -----------------------------------------------------------------------------

// Images holds absolute image URLs, empty when the item has no image.
type Images struct {
	Image      string `json:"image"`
	SmallImage string `json:"small_image"`
	Thumbnail  string `json:"thumbnail"`
}

// ExtraField is a merchant-configured attribute outside the base field set.
type ExtraField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StoreData is the per-store part of a feed item.
type StoreData struct {
	StoreID     int64  `json:"store_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Status      int    `json:"status"`
	PriceQuote
	ExtraFields []ExtraField `json:"extra_fields,omitempty"`
}

// FeedItem is one assembled item of a feed page.
type FeedItem struct {
	ItemID        int64       `json:"entity_id"`
	Type          string      `json:"type"`
	SKU           string      `json:"sku"`
	ChildItemIDs  []int64     `json:"children_entity_ids"`
	CategoryPaths []string    `json:"categories"`
	InStock       bool        `json:"is_in_stock"`
	Qty           float64     `json:"qty"`
	Images        Images      `json:"images"`
	PerStore      []StoreData `json:"store_data"`
}

// FeedPage is the response of one feed request.
type FeedPage struct {
	CurrentPage int        `json:"current_page"`
	LastPage    int        `json:"last_page"`
	PageSize    int        `json:"page_size"`
	TotalCount  int64      `json:"total_count"`
	MaxID       int64      `json:"max_id"`
	Items       []FeedItem `json:"products"`
}
