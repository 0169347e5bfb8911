package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/catalog-feed/internal/model"
)

// Config holds Channel Registry configuration.
type Config struct {
	ReconcileInterval time.Duration

	// MediaBaseURL is used for stores without their own media URL.
	MediaBaseURL string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: 5 * time.Minute,
	}
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	cfg    Config
	source Source
	logger *slog.Logger

	state *registryState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a new Channel Registry.
func NewRegistry(cfg Config, source Source, logger *slog.Logger) Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &registryImpl{
		cfg:    cfg,
		source: source,
		logger: logger,
		state:  newState(),
	}
}

// Start loads stores and begins background reconciliation.
func (r *registryImpl) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	// Initial sync (blocking).
	if err := r.initialSync(r.ctx); err != nil {
		r.cancel()
		return err
	}

	if r.cfg.ReconcileInterval > 0 {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.reconciliationLoop(r.ctx)
		}()
	}

	r.logger.Info("channel registry started", "stores", len(r.state.all()))
	return nil
}

// Stop gracefully shuts down.
func (r *registryImpl) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("channel registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStores returns the default store plus the requested ones.
func (r *registryImpl) GetStores(ids []int64) ([]model.Store, error) {
	def, ok := r.state.getStore(model.DefaultStoreID)
	if !ok {
		return nil, fmt.Errorf("default store %d not loaded", model.DefaultStoreID)
	}

	out := []model.Store{def}
	seen := map[int64]struct{}{model.DefaultStoreID: {}}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		st, ok := r.state.getStore(id)
		if !ok {
			return nil, &model.ValidationError{
				Field:   "store_id",
				Message: fmt.Sprintf("unknown store %d", id),
			}
		}
		seen[id] = struct{}{}
		out = append(out, st)
	}
	return out, nil
}

// GetStore returns a store by id.
func (r *registryImpl) GetStore(id int64) (model.Store, bool) {
	return r.state.getStore(id)
}

// AllStores returns every known store.
func (r *registryImpl) AllStores() []model.Store {
	return r.state.all()
}
