package address

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps addresses in process. It mirrors the postgres
// adapter, including the one-default-per-owner unique index, and is used by
// the memory store driver and by tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	txMu *sync.Mutex
	rows map[uuid.UUID]*Address

	staged bool
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		txMu: &sync.Mutex{},
		rows: make(map[uuid.UUID]*Address),
		now:  time.Now,
	}
}

func (m *MemoryRepository) WithinTx(ctx context.Context, fn func(Repository) error) error {
	if m.staged {
		return fn(m)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	stage := &MemoryRepository{
		txMu:   m.txMu,
		rows:   cloneRows(m.rows),
		staged: true,
		now:    m.now,
	}
	m.mu.RUnlock()

	if err := fn(stage); err != nil {
		return err
	}

	m.mu.Lock()
	m.rows = stage.rows
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, userID uint, id uuid.UUID) (*Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.rows[id]
	if !ok || a.UserID != userID {
		return nil, ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID uint, active bool) ([]*Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]*Address, 0)
	for _, a := range m.rows {
		if a.UserID == userID && a.IsActive == active {
			cp := *a
			res = append(res, &cp)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].IsDefault != res[j].IsDefault {
			return res[i].IsDefault
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryRepository) CountActive(_ context.Context, userID uint) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, a := range m.rows {
		if a.UserID == userID && a.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) HasDefault(_ context.Context, userID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.rows {
		if a.UserID == userID && a.IsActive && a.IsDefault {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) Create(ctx context.Context, addr *Address) error {
	return m.write(func() error {
		if addr.IsActive && addr.IsDefault && m.defaultHeldByOther(addr.UserID, addr.ID) {
			return ErrDefaultConflict
		}
		cp := *addr
		m.rows[addr.ID] = &cp
		return nil
	})
}

func (m *MemoryRepository) Update(_ context.Context, addr *Address) (int64, error) {
	var n int64
	err := m.write(func() error {
		cur, ok := m.rows[addr.ID]
		if !ok || cur.UserID != addr.UserID || !cur.IsActive {
			return nil
		}
		cur.House = addr.House
		cur.Street = addr.Street
		cur.FullAddress = addr.FullAddress
		cur.Landmark = addr.Landmark
		cur.Pincode = addr.Pincode
		cur.City = addr.City
		cur.State = addr.State
		cur.Country = addr.Country
		cur.Phone = addr.Phone
		cur.AddressType = addr.AddressType
		cur.UpdatedAt = addr.UpdatedAt
		n = 1
		return nil
	})
	return n, err
}

func (m *MemoryRepository) ClearDefault(_ context.Context, userID uint, exceptID uuid.UUID) (int64, error) {
	var n int64
	err := m.write(func() error {
		for id, a := range m.rows {
			if a.UserID == userID && a.IsDefault && id != exceptID {
				a.IsDefault = false
				a.UpdatedAt = m.now()
				n++
			}
		}
		return nil
	})
	return n, err
}

func (m *MemoryRepository) SetDefault(_ context.Context, userID uint, id uuid.UUID) (int64, error) {
	return m.patchOne(userID, id, true, func(a *Address) error {
		if m.defaultHeldByOther(userID, id) {
			return ErrDefaultConflict
		}
		a.IsDefault = true
		return nil
	})
}

func (m *MemoryRepository) UnsetDefault(_ context.Context, userID uint, id uuid.UUID) (int64, error) {
	return m.patchOne(userID, id, true, func(a *Address) error {
		a.IsDefault = false
		return nil
	})
}

func (m *MemoryRepository) Deactivate(_ context.Context, userID uint, id uuid.UUID) (int64, error) {
	return m.patchOne(userID, id, true, func(a *Address) error {
		a.IsActive = false
		a.IsDefault = false
		return nil
	})
}

func (m *MemoryRepository) Restore(_ context.Context, userID uint, id uuid.UUID) (int64, error) {
	return m.patchOne(userID, id, false, func(a *Address) error {
		a.IsActive = true
		a.IsDefault = false
		return nil
	})
}

func (m *MemoryRepository) Delete(_ context.Context, userID uint, id uuid.UUID) (int64, error) {
	var n int64
	err := m.write(func() error {
		a, ok := m.rows[id]
		if ok && a.UserID == userID && !a.IsActive {
			delete(m.rows, id)
			n = 1
		}
		return nil
	})
	return n, err
}

// patchOne applies fn to the owner's address when its active flag matches
// wantActive, and reports whether a row matched.
func (m *MemoryRepository) patchOne(
	userID uint,
	id uuid.UUID,
	wantActive bool,
	fn func(*Address) error,
) (int64, error) {

	var n int64
	err := m.write(func() error {
		a, ok := m.rows[id]
		if !ok || a.UserID != userID || a.IsActive != wantActive {
			return nil
		}
		if err := fn(a); err != nil {
			return err
		}
		a.UpdatedAt = m.now()
		n = 1
		return nil
	})
	return n, err
}

// write runs fn with exclusive access. Outside a transaction it also takes
// the transaction mutex so a bare write never interleaves with a commit.
func (m *MemoryRepository) write(fn func() error) error {
	if !m.staged {
		m.txMu.Lock()
		defer m.txMu.Unlock()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

// defaultHeldByOther must be called with mu held.
func (m *MemoryRepository) defaultHeldByOther(userID uint, id uuid.UUID) bool {
	for otherID, a := range m.rows {
		if otherID != id && a.UserID == userID && a.IsActive && a.IsDefault {
			return true
		}
	}
	return false
}

func cloneRows(src map[uuid.UUID]*Address) map[uuid.UUID]*Address {
	dst := make(map[uuid.UUID]*Address, len(src))
	for id, a := range src {
		cp := *a
		dst[id] = &cp
	}
	return dst
}
