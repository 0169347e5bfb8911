// Package channel keeps the set of sales channels (stores) the feed serves.
//
// Stores are loaded once at startup and reconciled periodically, so a feed
// request never queries store configuration directly.
package channel

import (
	"context"

	"github.com/rickgao/catalog-feed/internal/model"
)

// Registry serves store configuration from memory.
type Registry interface {
	// Start loads all stores, then reconciles in the background.
	Start(ctx context.Context) error

	// Stop gracefully shuts down.
	Stop(ctx context.Context) error

	// GetStores returns the default store followed by the requested stores,
	// deduplicated in request order. Unknown ids are a *model.ValidationError.
	GetStores(ids []int64) ([]model.Store, error)

	// GetStore returns a store by id.
	GetStore(id int64) (model.Store, bool)

	// AllStores returns every known store ordered by id.
	AllStores() []model.Store
}

// Source lists store configuration.
type Source interface {
	ListStores(ctx context.Context) ([]model.Store, error)
}

// StaticSource is a fixed Source.
type StaticSource []model.Store

// ListStores implements Source.
func (s StaticSource) ListStores(context.Context) ([]model.Store, error) {
	return append([]model.Store(nil), s...), nil
}
