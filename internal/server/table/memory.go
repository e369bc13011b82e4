package table

import (
	"context"
	"fmt"
	"sync"
)

// MemoryTable is an in-process Table used by tests and the "memory" backend.
// Items are copied on the way in and out so callers can mutate what they
// hold without touching stored state.
type MemoryTable struct {
	mu       sync.RWMutex
	settings Settings
	items    map[string]Item
}

func NewMemoryTable(settings Settings) *MemoryTable {
	return &MemoryTable{settings: settings, items: make(map[string]Item)}
}

func (t *MemoryTable) Query(ctx context.Context, keyConditionExpression string, values map[string]any) ([]Item, error) {
	field, placeholder, err := parseKeyCondition(keyConditionExpression)
	if err != nil {
		return nil, err
	}
	value, ok := values[placeholder]
	if !ok {
		return nil, fmt.Errorf("no value bound for %s", placeholder)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make([]Item, 0, 1)
	if field == t.settings.PartitionKey() {
		if item, ok := t.items[fmt.Sprint(value)]; ok {
			items = append(items, CloneItem(item))
		}
		return items, nil
	}

	for _, item := range t.items {
		if fmt.Sprint(item[field]) == fmt.Sprint(value) {
			items = append(items, CloneItem(item))
		}
	}
	return items, nil
}

func (t *MemoryTable) Put(ctx context.Context, item Item) (Item, error) {
	stored := t.settings.applyWriteDefaults(item)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[fmt.Sprint(stored[t.settings.PartitionKey()])] = CloneItem(stored)
	return stored, nil
}

func (t *MemoryTable) Delete(ctx context.Context, key Item) error {
	keyValue := fmt.Sprint(key[t.settings.PartitionKey()])

	t.mu.Lock()
	defer t.mu.Unlock()

	stored, ok := t.items[keyValue]
	if !ok {
		return nil
	}
	// Composite addressing: a stale createTime does not match the record.
	if want, ok := ItemInt64(key, FieldCreateTime); ok {
		if have, ok := ItemInt64(stored, FieldCreateTime); ok && have != want {
			return nil
		}
	}
	delete(t.items, keyValue)
	return nil
}

// Len reports the number of stored items.
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}
