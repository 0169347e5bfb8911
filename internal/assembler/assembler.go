// Package assembler builds feed items from prefetched catalog data.
//
// All lookups happen before Assemble is called. Assembly only reads the
// Inputs maps, so items are built in parallel.
package assembler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/catalog-feed/internal/catalog"
	"github.com/rickgao/catalog-feed/internal/model"
)

// DefaultConcurrency bounds parallel item assembly when none is configured.
const DefaultConcurrency = 8

// imagePath is appended to the media base URL for item images.
const imagePath = "catalog/product"

// PriceResolver computes the price tuple of one item on one store.
type PriceResolver interface {
	Resolve(ctx context.Context, in model.ChannelPriceInputs, store model.Store) model.PriceQuote
}

// Inputs is the prefetched data of one page. It must not be modified while
// Assemble runs.
type Inputs struct {
	Items       map[int64]catalog.Item
	Attributes  catalog.Attributes
	Stock       map[int64]catalog.StockLevel
	Categories  map[int64][]string
	Children    map[int64][]int64
	Prices      catalog.OverridePrices
	URLSuffixes map[int64]string

	// Stores lists the stores to report, default store first.
	Stores          []model.Store
	ExtraFields     []string
	CustomerGroupID int64
}

// Assembler builds FeedItems.
type Assembler struct {
	prices      PriceResolver
	concurrency int
	logger      *slog.Logger
}

// New creates an assembler. concurrency <= 0 uses DefaultConcurrency.
func New(prices PriceResolver, concurrency int, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Assembler{
		prices:      prices,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Assemble builds one FeedItem per id in itemIDs, keeping their order. Ids
// with no item row (deleted items) are skipped.
func (a *Assembler) Assemble(ctx context.Context, itemIDs []int64, in *Inputs) ([]model.FeedItem, error) {
	built := make([]*model.FeedItem, len(itemIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, id := range itemIDs {
		item, ok := in.Items[id]
		if !ok {
			a.logger.Debug("skipping item without catalog row", "item_id", id)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fi := a.assembleItem(gctx, item, in)
			built[i] = &fi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.FeedItem, 0, len(itemIDs))
	for _, fi := range built {
		if fi != nil {
			out = append(out, *fi)
		}
	}
	return out, nil
}

func (a *Assembler) assembleItem(ctx context.Context, item catalog.Item, in *Inputs) model.FeedItem {
	stock := in.Stock[item.ID]

	fi := model.FeedItem{
		ItemID:        item.ID,
		Type:          item.Type,
		SKU:           item.SKU,
		ChildItemIDs:  orEmpty(in.Children[item.ID]),
		CategoryPaths: orEmpty(in.Categories[item.ID]),
		InStock:       stock.InStock,
		Qty:           stock.Qty,
		Images:        a.images(item.ID, in),
		PerStore:      make([]model.StoreData, 0, len(in.Stores)),
	}

	for _, store := range in.Stores {
		fi.PerStore = append(fi.PerStore, a.storeData(ctx, item.ID, store, in))
	}
	return fi
}

func (a *Assembler) storeData(ctx context.Context, itemID int64, store model.Store, in *Inputs) model.StoreData {
	attr := func(code string) string {
		v, _ := in.Attributes.Resolve(itemID, store.ID, code)
		return v
	}

	override := in.Prices.Lookup(itemID, store.ID, in.CustomerGroupID)
	quote := a.prices.Resolve(ctx, model.ChannelPriceInputs{
		ItemID:             itemID,
		StoreID:            store.ID,
		ListPrice:          a.parseAmount(itemID, store.ID, catalog.AttrPrice, attr(catalog.AttrPrice)),
		SpecialPrice:       a.parseAmount(itemID, store.ID, catalog.AttrSpecialPrice, attr(catalog.AttrSpecialPrice)),
		SpecialFrom:        attr(catalog.AttrSpecialFromDate),
		SpecialTo:          attr(catalog.AttrSpecialToDate),
		OverrideFinalPrice: override.FinalPrice,
		OverrideBasePrice:  override.Price,
	}, store)

	sd := model.StoreData{
		StoreID:     store.ID,
		Name:        attr(catalog.AttrName),
		Description: attr(catalog.AttrDescription),
		Link:        link(store, attr(catalog.AttrURLKey), in.URLSuffixes[store.ID]),
		Status:      atoi(attr(catalog.AttrStatus)),
		PriceQuote:  quote,
	}

	if len(in.ExtraFields) > 0 {
		sd.ExtraFields = make([]model.ExtraField, 0, len(in.ExtraFields))
		for _, code := range in.ExtraFields {
			sd.ExtraFields = append(sd.ExtraFields, model.ExtraField{Key: code, Value: attr(code)})
		}
	}
	return sd
}

// images resolves image URLs from the default store.
func (a *Assembler) images(itemID int64, in *Inputs) model.Images {
	var prefix string
	if len(in.Stores) > 0 {
		prefix = in.Stores[0].MediaBaseURL + imagePath
	}
	img := func(code string) string {
		v, _ := in.Attributes.Get(itemID, model.DefaultStoreID, code)
		if v == "" {
			return ""
		}
		return prefix + v
	}
	return model.Images{
		Image:      img(catalog.AttrImage),
		SmallImage: img(catalog.AttrSmallImage),
		Thumbnail:  img(catalog.AttrThumbnail),
	}
}

// parseAmount parses an attribute amount. Blank is absent; malformed values are
// logged and treated as absent.
func (a *Assembler) parseAmount(itemID, storeID int64, code, raw string) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		a.logger.Warn("ignoring malformed amount",
			"item_id", itemID,
			"store_id", storeID,
			"attribute", code,
			"value", raw,
		)
		return nil
	}
	return &d
}

// link builds the item page URL, empty when the item has no url_key.
func link(store model.Store, urlKey, suffix string) string {
	if urlKey == "" {
		return ""
	}
	return store.BaseURL + urlKey + suffix
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
