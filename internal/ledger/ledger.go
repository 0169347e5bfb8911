package ledger

import (
	"context"
	"errors"

	"github.com/rickgao/catalog-feed/internal/model"
)

// ErrStabilize wraps any failure of the prune+dedup transaction. A poll that
// hits it must fail as a whole and be retried.
var ErrStabilize = errors.New("ledger: stabilize failed")

// Ledger is the delta ledger.
type Ledger interface {
	// Append records that an item changed and returns the new delta id.
	Append(ctx context.Context, itemID int64) (int64, error)

	// AppendBatch records several changes in one round trip.
	AppendBatch(ctx context.Context, itemIDs []int64) error

	// CurrentMaxID returns the highest existing delta id, 0 when empty.
	CurrentMaxID(ctx context.Context) (int64, error)

	// LastIssuedID returns the highest delta id ever issued, including ids
	// whose records were since pruned. 0 when no id was ever issued.
	LastIssuedID(ctx context.Context) (int64, error)

	// PruneBelow deletes all records with id <= sinceID.
	PruneBelow(ctx context.Context, sinceID int64) (int64, error)

	// DedupUpTo keeps one record per item among records with id <= maxID.
	DedupUpTo(ctx context.Context, maxID int64) (int64, error)

	// Stabilize runs PruneBelow and DedupUpTo as one atomic write.
	Stabilize(ctx context.Context, sinceID, maxID int64) (StabilizeResult, error)

	// RecordsInRange returns records with sinceID < id <= maxID ordered by id,
	// one per item, plus the number of distinct items in the window.
	RecordsInRange(ctx context.Context, sinceID, maxID int64, offset, limit int) (Range, error)
}

// StabilizeResult reports what a Stabilize call removed.
type StabilizeResult struct {
	Pruned  int64
	Deduped int64
}

// Range is one page of a ledger window.
type Range struct {
	Records []model.DeltaRecord
	Total   int64
}

// ItemIDs returns the item ids of the range in delivery order.
func (r Range) ItemIDs() []int64 {
	ids := make([]int64, len(r.Records))
	for i, rec := range r.Records {
		ids[i] = rec.ItemID
	}
	return ids
}
