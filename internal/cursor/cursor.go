// Package cursor turns a feed request window into the concrete page of item
// ids to assemble.
package cursor

import (
	"context"
	"fmt"

	"github.com/rickgao/catalog-feed/internal/ledger"
	"github.com/rickgao/catalog-feed/internal/model"
)

// RangeReader is the read side of the delta ledger.
type RangeReader interface {
	RecordsInRange(ctx context.Context, sinceID, maxID int64, offset, limit int) (ledger.Range, error)
}

// Page is a resolved page of a ledger window.
type Page struct {
	ItemIDs    []int64
	TotalCount int64
	LastPage   int
}

// Resolver resolves windows against a ledger.
type Resolver struct {
	reader RangeReader
}

// NewResolver creates a resolver reading from r.
func NewResolver(r RangeReader) *Resolver {
	return &Resolver{reader: r}
}

// Validate checks a window without touching the ledger.
func Validate(w model.Window) error {
	if w.Page < 1 {
		return &model.ValidationError{Field: "page", Message: fmt.Sprintf("must be >= 1, got %d", w.Page)}
	}
	if w.PageSize < 1 {
		return &model.ValidationError{Field: "page_size", Message: fmt.Sprintf("must be >= 1, got %d", w.PageSize)}
	}
	if w.SinceID < 0 {
		return &model.ValidationError{Field: "since_id", Message: fmt.Sprintf("must be >= 0, got %d", w.SinceID)}
	}
	if w.SinceID > w.MaxID {
		return &model.ValidationError{
			Field:   "since_id",
			Message: fmt.Sprintf("%d is greater than max_id %d", w.SinceID, w.MaxID),
		}
	}
	return nil
}

// LastPage returns ceil(total / pageSize), 0 for an empty window.
func LastPage(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int((total-1)/int64(pageSize) + 1)
}

// Resolve validates w and reads its page. A page past the last one is empty
// but still reports the window's total and last page.
func (r *Resolver) Resolve(ctx context.Context, w model.Window) (Page, error) {
	if err := Validate(w); err != nil {
		return Page{}, err
	}

	rng, err := r.reader.RecordsInRange(ctx, w.SinceID, w.MaxID, w.Offset(), w.PageSize)
	if err != nil {
		return Page{}, fmt.Errorf("read window (%d, %d]: %w", w.SinceID, w.MaxID, err)
	}

	return Page{
		ItemIDs:    rng.ItemIDs(),
		TotalCount: rng.Total,
		LastPage:   LastPage(rng.Total, w.PageSize),
	}, nil
}
