package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/catalog-feed/internal/assembler"
	"github.com/rickgao/catalog-feed/internal/catalog"
	"github.com/rickgao/catalog-feed/internal/category"
	"github.com/rickgao/catalog-feed/internal/cursor"
	"github.com/rickgao/catalog-feed/internal/ledger"
	"github.com/rickgao/catalog-feed/internal/metrics"
	"github.com/rickgao/catalog-feed/internal/model"
)

// Config holds Coordinator configuration.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	CustomerGroupID int64

	// ExtraFields overrides the extra field codes from catalog settings.
	ExtraFields []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 100,
		MaxPageSize:     1000,
	}
}

// StoreLookup resolves requested store ids.
type StoreLookup interface {
	GetStores(ids []int64) ([]model.Store, error)
}

// Request is one feed page request. A zero PageSize uses the configured
// default. A nil MaxID snapshots the ledger's current tail.
type Request struct {
	Page     int
	PageSize int
	StoreIDs []int64
	SinceID  int64
	MaxID    *int64
}

// Coordinator serves feed pages.
type Coordinator struct {
	cfg       Config
	ledger    ledger.Ledger
	cursor    *cursor.Resolver
	stores    StoreLookup
	catalog   catalog.Catalog
	assembler *assembler.Assembler
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewCoordinator wires a coordinator. m may be nil.
func NewCoordinator(
	cfg Config,
	l ledger.Ledger,
	stores StoreLookup,
	cat catalog.Catalog,
	asm *assembler.Assembler,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:       cfg,
		ledger:    l,
		cursor:    cursor.NewResolver(l),
		stores:    stores,
		catalog:   cat,
		assembler: asm,
		metrics:   m,
		logger:    logger,
	}
}

// Get serves one page.
func (c *Coordinator) Get(ctx context.Context, req Request) (*model.FeedPage, error) {
	start := time.Now()
	page, err := c.get(ctx, req)

	outcome := metrics.OutcomeOK
	switch KindOf(err) {
	case KindValidation:
		outcome = metrics.OutcomeInvalid
	case KindCursorAhead:
		outcome = metrics.OutcomeCursorAhead
	default:
		if err != nil {
			outcome = metrics.OutcomeError
		}
	}
	var items int
	if page != nil {
		items = len(page.Items)
	}
	c.metrics.ObservePoll(outcome, time.Since(start).Seconds(), items)

	return page, err
}

func (c *Coordinator) get(ctx context.Context, req Request) (*model.FeedPage, error) {
	if req.PageSize == 0 {
		req.PageSize = c.cfg.DefaultPageSize
	}
	if c.cfg.MaxPageSize > 0 && req.PageSize > c.cfg.MaxPageSize {
		return nil, &model.ValidationError{
			Field:   "page_size",
			Message: fmt.Sprintf("must be <= %d, got %d", c.cfg.MaxPageSize, req.PageSize),
		}
	}

	stores, err := c.stores.GetStores(req.StoreIDs)
	if err != nil {
		return nil, err
	}

	window, err := c.window(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := c.ledger.Stabilize(ctx, window.SinceID, window.MaxID)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveStabilize(res.Pruned, res.Deduped)

	p, err := c.cursor.Resolve(ctx, window)
	if err != nil {
		return nil, err
	}

	items := []model.FeedItem{}
	if len(p.ItemIDs) > 0 {
		items, err = c.assemble(ctx, p.ItemIDs, stores)
		if err != nil {
			return nil, err
		}
	}

	c.logger.Debug("served feed page",
		"since_id", window.SinceID,
		"max_id", window.MaxID,
		"page", window.Page,
		"total_count", p.TotalCount,
		"items", len(items),
		"pruned", res.Pruned,
		"deduped", res.Deduped,
	)

	return &model.FeedPage{
		CurrentPage: window.Page,
		LastPage:    p.LastPage,
		PageSize:    window.PageSize,
		TotalCount:  p.TotalCount,
		MaxID:       window.MaxID,
		Items:       items,
	}, nil
}

// window validates the cursor against the ledger and fixes max_id. Nothing
// here mutates the ledger.
func (c *Coordinator) window(ctx context.Context, req Request) (model.Window, error) {
	w := model.Window{
		SinceID:  req.SinceID,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.MaxID != nil {
		w.MaxID = *req.MaxID
	}

	// Shape checks first, with max_id not yet known.
	shape := w
	shape.MaxID = max(w.MaxID, w.SinceID)
	if err := cursor.Validate(shape); err != nil {
		return w, err
	}

	issued, err := c.ledger.LastIssuedID(ctx)
	if err != nil {
		return w, fmt.Errorf("read last issued id: %w", err)
	}
	if w.SinceID > issued {
		return w, fmt.Errorf("%w: since_id %d, last issued %d", ErrCursorAhead, w.SinceID, issued)
	}
	// An unissued max_id would be echoed as the next watermark and let a
	// later prune drop records nobody received.
	if req.MaxID != nil && *req.MaxID > issued {
		return w, &model.ValidationError{
			Field:   "max_id",
			Message: fmt.Sprintf("%d is greater than last issued id %d", *req.MaxID, issued),
		}
	}

	if req.MaxID == nil {
		cur, err := c.ledger.CurrentMaxID(ctx)
		if err != nil {
			return w, fmt.Errorf("read current max id: %w", err)
		}
		// After a full prune the tail can sit below the watermark.
		w.MaxID = max(cur, w.SinceID)
	}

	if err := cursor.Validate(w); err != nil {
		return w, err
	}
	return w, nil
}

// assemble fetches catalog data for itemIDs and builds the page items.
// Lookups run one after another and finish before assembly starts.
func (c *Coordinator) assemble(ctx context.Context, itemIDs []int64, stores []model.Store) ([]model.FeedItem, error) {
	storeIDs := make([]int64, len(stores))
	for i, s := range stores {
		storeIDs[i] = s.ID
	}

	extra, err := c.extraFields(ctx)
	if err != nil {
		return nil, err
	}
	codes := append(append([]string(nil), catalog.BaseAttributes...), extra...)

	in := &assembler.Inputs{
		Stores:          stores,
		ExtraFields:     extra,
		CustomerGroupID: c.cfg.CustomerGroupID,
		URLSuffixes:     make(map[int64]string, len(stores)),
	}

	if in.Items, err = c.catalog.GetItems(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	if in.Attributes, err = c.catalog.GetAttributes(ctx, itemIDs, storeIDs, codes); err != nil {
		return nil, fmt.Errorf("get attributes: %w", err)
	}
	if in.Stock, err = c.catalog.GetStock(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if in.Categories, err = category.NewIndex(c.catalog, c.logger).Resolve(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	if in.Children, err = c.catalog.GetChildren(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("get children: %w", err)
	}
	groups := []int64{c.cfg.CustomerGroupID}
	if in.Prices, err = c.catalog.GetOverridePrices(ctx, itemIDs, storeIDs, groups); err != nil {
		return nil, fmt.Errorf("get override prices: %w", err)
	}
	for _, id := range storeIDs {
		suffix, err := c.catalog.URLSuffix(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get url suffix for store %d: %w", id, err)
		}
		in.URLSuffixes[id] = suffix
	}

	return c.assembler.Assemble(ctx, itemIDs, in)
}

func (c *Coordinator) extraFields(ctx context.Context) ([]string, error) {
	configured := c.cfg.ExtraFields
	if len(configured) == 0 {
		var err error
		configured, err = c.catalog.ExtraFieldCodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("get extra field codes: %w", err)
		}
	}
	return catalog.ExtraFields(configured), nil
}
