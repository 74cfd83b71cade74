package store

import (
	"context"
	"encoding/json"
	"sync"

	"nexussync/internal/models"
)

type memoryKey struct {
	pk, sk string
}

// MemoryTable keeps records in process. Used for local runs and tests.
type MemoryTable struct {
	mu    sync.RWMutex
	items map[memoryKey]models.RecordItem
}

// NewMemoryTable creates an empty table
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{items: make(map[memoryKey]models.RecordItem)}
}

func (t *MemoryTable) Get(ctx context.Context, partitionKey, sortKey string) (models.RecordItem, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[memoryKey{partitionKey, sortKey}]
	if !ok {
		return models.RecordItem{}, ErrNotFound
	}
	return cloneItem(item), nil
}

func (t *MemoryTable) Upsert(ctx context.Context, item models.RecordItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := memoryKey{item.PartitionKey, item.SortKey}
	next := cloneItem(item)
	if existing, ok := t.items[key]; ok {
		next.CreatedAt = existing.CreatedAt
		next.Archived = existing.Archived
	}
	t.items[key] = next
	return nil
}

func (t *MemoryTable) Put(ctx context.Context, item models.RecordItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[memoryKey{item.PartitionKey, item.SortKey}] = cloneItem(item)
	return nil
}

func (t *MemoryTable) Delete(ctx context.Context, partitionKey, sortKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, memoryKey{partitionKey, sortKey})
	return nil
}

// Len returns the number of rows
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *MemoryTable) Ping(ctx context.Context) error { return ctx.Err() }

func (t *MemoryTable) Close(ctx context.Context) error { return nil }

// cloneItem deep-copies the content map so callers cannot mutate stored rows.
func cloneItem(item models.RecordItem) models.RecordItem {
	if item.Content == nil {
		return item
	}
	raw, err := json.Marshal(item.Content)
	if err != nil {
		return item
	}
	var content map[string]interface{}
	if err := json.Unmarshal(raw, &content); err != nil {
		return item
	}
	item.Content = content
	return item
}
