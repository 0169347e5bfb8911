package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/catalog-feed/internal/model"
)

// initialSync loads every store on startup. The default store must exist.
func (r *registryImpl) initialSync(ctx context.Context) error {
	start := time.Now()

	stores, err := r.load(ctx)
	if err != nil {
		return err
	}

	if !hasDefaultStore(stores) {
		return fmt.Errorf("default store %d missing from store list", model.DefaultStoreID)
	}

	r.state.mu.Lock()
	r.state.replaceLocked(stores)
	r.state.mu.Unlock()

	r.logger.Info("initial store sync complete",
		"stores", len(stores),
		"duration", time.Since(start),
	)
	return nil
}

// reconciliationLoop periodically reloads stores.
func (r *registryImpl) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile reloads stores and logs what changed. A failed load, or one that
// lost the default store, keeps the previous set.
func (r *registryImpl) reconcile(ctx context.Context) {
	start := time.Now()

	stores, err := r.load(ctx)
	if err != nil {
		r.logger.Error("store reconciliation failed", "error", err)
		return
	}

	if !hasDefaultStore(stores) {
		r.logger.Error("store reconciliation returned no default store, keeping previous set")
		return
	}

	r.state.mu.Lock()
	added, changed, removed := r.state.replaceLocked(stores)
	r.state.mu.Unlock()

	if added > 0 || changed > 0 || removed > 0 {
		r.logger.Info("store reconciliation found changes",
			"added", added,
			"changed", changed,
			"removed", removed,
			"duration", time.Since(start),
		)
	} else {
		r.logger.Debug("store reconciliation complete",
			"stores", len(stores),
			"duration", time.Since(start),
		)
	}
}

// load reads stores from the source and fills configured defaults.
func (r *registryImpl) load(ctx context.Context) ([]model.Store, error) {
	stores, err := r.source.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	for i := range stores {
		if stores[i].MediaBaseURL == "" {
			stores[i].MediaBaseURL = r.cfg.MediaBaseURL
		}
	}
	return stores, nil
}

func hasDefaultStore(stores []model.Store) bool {
	for _, st := range stores {
		if st.IsDefault() {
			return true
		}
	}
	return false
}
