package channel

import (
	"sort"
	"sync"
	"time"

	"github.com/rickgao/catalog-feed/internal/model"
)

// registryState holds the thread-safe store cache.
type registryState struct {
	mu sync.RWMutex

	// All known stores indexed by id.
	stores map[int64]model.Store

	// Last successful sync timestamp.
	lastSyncAt time.Time
}

func newState() *registryState {
	return &registryState{
		stores: make(map[int64]model.Store),
	}
}

// getStore returns a store by id (read-locked).
func (s *registryState) getStore(id int64) (model.Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	return st, ok
}

// all returns every store ordered by id (read-locked).
func (s *registryState) all() []model.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Store, 0, len(s.stores))
	for _, st := range s.stores {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// replaceLocked swaps in a fresh store set and reports what changed
// (caller must hold write lock).
func (s *registryState) replaceLocked(stores []model.Store) (added, changed, removed int) {
	next := make(map[int64]model.Store, len(stores))
	for _, st := range stores {
		next[st.ID] = st
		old, ok := s.stores[st.ID]
		switch {
		case !ok:
			added++
		case old != st:
			changed++
		}
	}
	for id := range s.stores {
		if _, ok := next[id]; !ok {
			removed++
		}
	}
	s.stores = next
	s.lastSyncAt = time.Now()
	return added, changed, removed
}
