package catalog

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is an in-process Catalog.
type Memory struct {
	mu          sync.RWMutex
	items       map[int64]Item
	attrs       Attributes
	stock       map[int64]StockLevel
	links       []CategoryAssociation
	paths       map[int64]string
	prices      OverridePrices
	children    map[int64][]int64
	suffixes    map[int64]string
	extraFields []string
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		items:    make(map[int64]Item),
		attrs:    make(Attributes),
		stock:    make(map[int64]StockLevel),
		paths:    make(map[int64]string),
		prices:   make(OverridePrices),
		children: make(map[int64][]int64),
		suffixes: make(map[int64]string),
	}
}

// PutItem adds or replaces an item row.
func (m *Memory) PutItem(it Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
}

// SetAttribute stores an attribute value for one store.
func (m *Memory) SetAttribute(itemID, storeID int64, code, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs.Set(itemID, storeID, code, value)
}

// SetStock stores the stock level of an item.
func (m *Memory) SetStock(itemID int64, s StockLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[itemID] = s
}

// AddCategory links an item to a category.
func (m *Memory) AddCategory(itemID, categoryID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, CategoryAssociation{ItemID: itemID, CategoryID: categoryID})
}

// SetCategoryPath stores the materialized path of a category.
func (m *Memory) SetCategoryPath(categoryID int64, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[categoryID] = path
}

// SetOverride stores a price book entry.
func (m *Memory) SetOverride(itemID, storeID, groupID int64, finalPrice, price *decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices.Set(itemID, storeID, groupID, OverridePrice{FinalPrice: finalPrice, Price: price})
}

// AddChild links a child item to its parent.
func (m *Memory) AddChild(parentID, childID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[parentID] = append(m.children[parentID], childID)
}

// SetURLSuffix stores the URL suffix of a store.
func (m *Memory) SetURLSuffix(storeID int64, suffix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suffixes[storeID] = suffix
}

// SetExtraFieldCodes stores the configured extra field codes.
func (m *Memory) SetExtraFieldCodes(codes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extraFields = append([]string(nil), codes...)
}

// GetItems implements ItemStore.
func (m *Memory) GetItems(_ context.Context, itemIDs []int64) (map[int64]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]Item, len(itemIDs))
	for _, id := range itemIDs {
		if it, ok := m.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

// GetAttributes implements AttributeStore.
func (m *Memory) GetAttributes(_ context.Context, itemIDs, storeIDs []int64, codes []string) (Attributes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(Attributes)
	for _, item := range itemIDs {
		for _, store := range storeIDs {
			for _, code := range codes {
				if v, ok := m.attrs.Get(item, store, code); ok {
					out.Set(item, store, code, v)
				}
			}
		}
	}
	return out, nil
}

// GetStock implements StockStore.
func (m *Memory) GetStock(_ context.Context, itemIDs []int64) (map[int64]StockLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]StockLevel, len(itemIDs))
	for _, id := range itemIDs {
		if s, ok := m.stock[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// GetCategoryAssociations implements CategoryStore.
func (m *Memory) GetCategoryAssociations(_ context.Context, minItemID, maxItemID int64) ([]CategoryAssociation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CategoryAssociation
	for _, l := range m.links {
		if l.ItemID >= minItemID && l.ItemID <= maxItemID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ResolvePath implements CategoryStore.
func (m *Memory) ResolvePath(_ context.Context, categoryID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.paths[categoryID]
	if !ok {
		return "", ErrNotFound
	}
	return p, nil
}

// GetOverridePrices implements PriceBook.
func (m *Memory) GetOverridePrices(_ context.Context, itemIDs, storeIDs, groupIDs []int64) (OverridePrices, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(OverridePrices)
	for _, item := range itemIDs {
		for _, store := range storeIDs {
			for _, group := range groupIDs {
				if p, ok := m.prices[item][store][group]; ok {
					out.Set(item, store, group, p)
				}
			}
		}
	}
	return out, nil
}

// GetChildren implements RelationStore.
func (m *Memory) GetChildren(_ context.Context, parentIDs []int64) (map[int64][]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64][]int64)
	for _, id := range parentIDs {
		if c, ok := m.children[id]; ok {
			out[id] = append([]int64(nil), c...)
		}
	}
	return out, nil
}

// URLSuffix implements Settings.
func (m *Memory) URLSuffix(_ context.Context, storeID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.suffixes[storeID]; ok {
		return s, nil
	}
	return m.suffixes[0], nil
}

// ExtraFieldCodes implements Settings.
func (m *Memory) ExtraFieldCodes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.extraFields...), nil
}
