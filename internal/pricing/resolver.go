package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/catalog-feed/internal/metrics"
	"github.com/rickgao/catalog-feed/internal/model"
)

// Transient error kinds reported to metrics.
const (
	KindDateParse  = "date_parse"
	KindConversion = "conversion"
)

// Converter converts an amount between currency codes.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Resolver computes PriceQuotes.
type Resolver struct {
	conv    Converter
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewResolver creates a resolver. m may be nil.
func NewResolver(conv Converter, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		conv:    conv,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for special price windows.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve computes the price tuple of in on store. The list price and
// special fields of in are expected to be store-resolved already.
func (r *Resolver) Resolve(ctx context.Context, in model.ChannelPriceInputs, store model.Store) model.PriceQuote {
	list := decimal.Zero
	if in.ListPrice != nil {
		list = *in.ListPrice
	}

	price := r.effectivePrice(in, list)
	price, webshop := Clamp(price, in.OverrideFinalPrice)
	original, originalWebshop := Clamp(list, in.OverrideBasePrice)

	return model.PriceQuote{
		Price:                       amount(price),
		DisplayPrice:                amount(r.display(ctx, price, store, in.ItemID)),
		OriginalPrice:               amount(original),
		OriginalDisplayPrice:        amount(r.display(ctx, original, store, in.ItemID)),
		WebshopPrice:                amount(webshop),
		DisplayWebshopPrice:         amount(r.display(ctx, webshop, store, in.ItemID)),
		OriginalWebshopPrice:        amount(originalWebshop),
		OriginalDisplayWebshopPrice: amount(r.display(ctx, originalWebshop, store, in.ItemID)),
		CurrencyCode:                store.CurrencyCode(),
	}
}

func (r *Resolver) effectivePrice(in model.ChannelPriceInputs, list decimal.Decimal) decimal.Decimal {
	if in.SpecialPrice == nil {
		return list
	}
	active, err := specialActive(in.SpecialFrom, in.SpecialTo, r.now())
	if err != nil {
		r.logger.Warn("ignoring special price",
			"item_id", in.ItemID,
			"store_id", in.StoreID,
			"error", err,
		)
		r.metrics.TransientError(KindDateParse)
		return list
	}
	if active {
		return *in.SpecialPrice
	}
	return list
}

// display converts a base currency amount into the store's selling currency.
func (r *Resolver) display(ctx context.Context, v decimal.Decimal, store model.Store, itemID int64) decimal.Decimal {
	to := store.CurrencyCode()
	if to == store.BaseCurrency || r.conv == nil {
		return v
	}
	converted, err := r.conv.Convert(ctx, v, store.BaseCurrency, to)
	if err != nil {
		r.logger.Warn("currency conversion failed, using base amount",
			"item_id", itemID,
			"store_id", store.ID,
			"from", store.BaseCurrency,
			"to", to,
			"error", err,
		)
		r.metrics.TransientError(KindConversion)
		return v
	}
	return converted
}

// amount returns v as a non-negative float.
func amount(v decimal.Decimal) float64 {
	if v.IsNegative() {
		return 0
	}
	f, _ := v.Float64()
	return f
}
