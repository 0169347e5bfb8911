package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/catalog-feed/internal/feedclient"
	"github.com/rickgao/catalog-feed/internal/model"
)

// FeedClient fetches feed pages.
type FeedClient interface {
	GetProductDeltas(ctx context.Context, q feedclient.DeltaQuery) (*model.FeedPage, error)
}

// ItemHandler receives the items of each fetched page.
type ItemHandler interface {
	HandleItems(ctx context.Context, items []model.FeedItem) error
}

// ItemHandlerFunc is a function adapter for ItemHandler.
type ItemHandlerFunc func(context.Context, []model.FeedItem) error

func (f ItemHandlerFunc) HandleItems(ctx context.Context, items []model.FeedItem) error {
	return f(ctx, items)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 1m)
	PageSize int           // Items per page (default: 100)
	StoreIDs []int64       // Channels to request
	Timeout  time.Duration // Per-page timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		PageSize: 100,
		Timeout:  30 * time.Second,
	}
}

// Result summarizes one poll.
type Result struct {
	SinceID int64
	MaxID   int64
	Pages   int
	Items   int
}

// Poller drains the feed from a persisted watermark.
type Poller struct {
	cfg       Config
	client    FeedClient
	watermark Watermark
	handler   ItemHandler
	logger    *slog.Logger

	// One poll at a time: prune on the server is destructive.
	pollMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, client FeedClient, wm Watermark, handler ItemHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:       cfg,
		client:    client,
		watermark: wm,
		handler:   handler,
		logger:    logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("feed poller started",
		"interval", p.cfg.Interval,
		"page_size", p.cfg.PageSize,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("feed poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAndLog()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAndLog()
		}
	}
}

func (p *Poller) pollAndLog() {
	start := time.Now()
	res, err := p.PollOnce(p.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		var apiErr *feedclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsCursorAhead() {
			p.logger.Error("watermark is ahead of the feed, manual reset required",
				"since_id", res.SinceID,
				"error", err,
			)
			return
		}
		p.logger.Warn("poll failed, watermark unchanged",
			"since_id", res.SinceID,
			"pages", res.Pages,
			"error", err,
		)
		return
	}

	p.logger.Info("poll cycle complete",
		"since_id", res.SinceID,
		"max_id", res.MaxID,
		"pages", res.Pages,
		"items", res.Items,
		"duration", time.Since(start),
	)
}

// PollOnce reads one full window and advances the watermark to its max_id.
// On any error the watermark is left untouched, so the next poll repeats
// from the same since_id.
func (p *Poller) PollOnce(ctx context.Context) (Result, error) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	var res Result
	since, err := p.watermark.Load()
	if err != nil {
		return res, fmt.Errorf("load watermark: %w", err)
	}
	res.SinceID = since

	q := feedclient.DeltaQuery{
		Page:     1,
		PageSize: p.cfg.PageSize,
		StoreIDs: p.cfg.StoreIDs,
		SinceID:  since,
	}

	for {
		page, err := p.fetch(ctx, q)
		if err != nil {
			return res, fmt.Errorf("fetch page %d: %w", q.Page, err)
		}
		if q.MaxID == nil {
			maxID := page.MaxID
			q.MaxID = &maxID
			res.MaxID = maxID
		}
		res.Pages++

		if len(page.Items) > 0 && p.handler != nil {
			if err := p.handler.HandleItems(ctx, page.Items); err != nil {
				return res, fmt.Errorf("handle page %d: %w", q.Page, err)
			}
		}
		res.Items += len(page.Items)

		if q.Page >= page.LastPage {
			break
		}
		q.Page++
	}

	if res.MaxID != since {
		if err := p.watermark.Save(res.MaxID); err != nil {
			return res, fmt.Errorf("save watermark: %w", err)
		}
	}
	return res, nil
}

func (p *Poller) fetch(ctx context.Context, q feedclient.DeltaQuery) (*model.FeedPage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return p.client.GetProductDeltas(ctx, q)
}
