package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/catalog-feed/internal/model"
)

// Memory is an in-process Ledger. Records are kept sorted by id.
type Memory struct {
	mu      sync.RWMutex
	records []model.DeltaRecord
	lastID  int64
	now     func() time.Time
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Append records that an item changed.
func (m *Memory) Append(_ context.Context, itemID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(itemID), nil
}

// AppendBatch records several changes under one lock.
func (m *Memory) AppendBatch(_ context.Context, itemIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range itemIDs {
		m.appendLocked(id)
	}
	return nil
}

func (m *Memory) appendLocked(itemID int64) int64 {
	m.lastID++
	m.records = append(m.records, model.DeltaRecord{
		ID:        m.lastID,
		ItemID:    itemID,
		CreatedAt: m.now().UTC(),
	})
	return m.lastID
}

// CurrentMaxID returns the highest existing delta id.
func (m *Memory) CurrentMaxID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return 0, nil
	}
	return m.records[len(m.records)-1].ID, nil
}

// LastIssuedID returns the highest id ever issued.
func (m *Memory) LastIssuedID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastID, nil
}

// PruneBelow deletes all records with id <= sinceID.
func (m *Memory) PruneBelow(_ context.Context, sinceID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked(sinceID), nil
}

// DedupUpTo keeps the newest record per item among records with id <= maxID.
func (m *Memory) DedupUpTo(_ context.Context, maxID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dedupLocked(maxID), nil
}

// Stabilize prunes and deduplicates under a single write lock.
func (m *Memory) Stabilize(_ context.Context, sinceID, maxID int64) (StabilizeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StabilizeResult{
		Pruned:  m.pruneLocked(sinceID),
		Deduped: m.dedupLocked(maxID),
	}, nil
}

func (m *Memory) pruneLocked(sinceID int64) int64 {
	// Records are sorted, so everything at or below sinceID is a prefix.
	n := sort.Search(len(m.records), func(i int) bool {
		return m.records[i].ID > sinceID
	})
	if n == 0 {
		return 0
	}
	m.records = append(m.records[:0:0], m.records[n:]...)
	return int64(n)
}

func (m *Memory) dedupLocked(maxID int64) int64 {
	newest := make(map[int64]int64)
	for _, r := range m.records {
		if r.ID > maxID {
			break
		}
		newest[r.ItemID] = r.ID
	}

	kept := m.records[:0:0]
	var removed int64
	for _, r := range m.records {
		if r.ID <= maxID && newest[r.ItemID] != r.ID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed
}

// RecordsInRange returns one page of the (sinceID, maxID] window.
func (m *Memory) RecordsInRange(_ context.Context, sinceID, maxID int64, offset, limit int) (Range, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// First record per item in id order.
	seen := make(map[int64]struct{})
	var window []model.DeltaRecord
	for _, r := range m.records {
		if r.ID <= sinceID {
			continue
		}
		if r.ID > maxID {
			break
		}
		if _, dup := seen[r.ItemID]; dup {
			continue
		}
		seen[r.ItemID] = struct{}{}
		window = append(window, r)
	}

	out := Range{Total: int64(len(window))}
	if offset < 0 || offset >= len(window) || limit <= 0 {
		return out, nil
	}
	end := len(window)
	if limit < end-offset {
		end = offset + limit
	}
	out.Records = append([]model.DeltaRecord(nil), window[offset:end]...)
	return out, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
