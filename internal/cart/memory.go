package cart

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is the in-process cart store used by the memory driver
// and tests. It enforces the same owner uniqueness and version precondition
// as the postgres table.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[uint]*Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[uint]*Cart)}
}

func (m *MemoryRepository) GetByUserID(_ context.Context, userID uint) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c.clone(), nil
}

func (m *MemoryRepository) Create(_ context.Context, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[c.UserID]; ok {
		return ErrCartConflict
	}
	c.Version = 1
	m.carts[c.UserID] = c.clone()
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, c *Cart, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.carts[c.UserID]
	if !ok || cur.Version != expectedVersion {
		return 0, nil
	}

	next := c.clone()
	next.ID = cur.ID
	next.Version = expectedVersion + 1
	m.carts[c.UserID] = next
	c.Version = next.Version
	return 1, nil
}

func (m *MemoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for userID, c := range m.carts {
		if c.ExpiresAt.Before(before) {
			delete(m.carts, userID)
			n++
		}
	}
	return n, nil
}
