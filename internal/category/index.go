// Package category maps items to their materialized category paths.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rickgao/catalog-feed/internal/catalog"
)

// Index resolves category paths for items. Each category is loaded at most
// once per Index, so an Index should live for one request.
type Index struct {
	store  catalog.CategoryStore
	logger *slog.Logger
	paths  map[int64]string
}

// NewIndex creates an empty index over store.
func NewIndex(store catalog.CategoryStore, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		store:  store,
		logger: logger,
		paths:  make(map[int64]string),
	}
}

// Resolve returns item id -> category paths for itemIDs, in association order.
// Items without categories are absent from the result. An unknown category
// contributes an empty path.
func (x *Index) Resolve(ctx context.Context, itemIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string)
	if len(itemIDs) == 0 {
		return out, nil
	}

	wanted := make(map[int64]struct{}, len(itemIDs))
	lo, hi := itemIDs[0], itemIDs[0]
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
		lo = min(lo, id)
		hi = max(hi, id)
	}

	links, err := x.store.GetCategoryAssociations(ctx, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("get category associations [%d, %d]: %w", lo, hi, err)
	}

	for _, l := range links {
		if _, ok := wanted[l.ItemID]; !ok {
			continue
		}
		path, err := x.path(ctx, l.CategoryID)
		if err != nil {
			return nil, err
		}
		out[l.ItemID] = append(out[l.ItemID], path)
	}
	return out, nil
}

func (x *Index) path(ctx context.Context, categoryID int64) (string, error) {
	if p, ok := x.paths[categoryID]; ok {
		return p, nil
	}
	p, err := x.store.ResolvePath(ctx, categoryID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		x.logger.Debug("category not found", "category_id", categoryID)
		p = ""
	case err != nil:
		return "", fmt.Errorf("resolve category %d: %w", categoryID, err)
	}
	x.paths[categoryID] = p
	return p, nil
}

// Len returns the number of categories loaded so far.
func (x *Index) Len() int {
	return len(x.paths)
}
