package store

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs local runs and
// tests where no Redis is available.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]OrderRecord
	inventory map[string]InventoryRecord
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:    make(map[string]OrderRecord),
		inventory: make(map[string]InventoryRecord),
	}
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return OrderRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[id]
	if !ok {
		return OrderRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) PutOrder(ctx context.Context, id string, rec OrderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[id] = rec
	return nil
}

func (s *MemoryStore) GetInventory(ctx context.Context, item string) (InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return InventoryRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.inventory[item]
	if !ok {
		return InventoryRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) PutInventory(ctx context.Context, item string, rec InventoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inventory[item] = rec
	return nil
}

func (s *MemoryStore) ListInventory(ctx context.Context) (map[string]InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]InventoryRecord, len(s.inventory))
	for item, rec := range s.inventory {
		out[item] = rec
	}
	return out, nil
}
