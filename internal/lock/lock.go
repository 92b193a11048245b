package lock

import (
	"context"
	"fmt"
	"sync"
)

// Unlock releases a lock. Calling it more than once is a no-op.
type Unlock func()

// Locker grants mutual exclusion per key. Lock blocks until the key is free
// or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// OwnerKey scopes a lock to one owner's records of a given kind.
func OwnerKey(scope string, ownerID uint) string {
	return fmt.Sprintf("%s:owner:%d", scope, ownerID)
}

// Local is an in-process keyed mutex. Entries are dropped once nobody holds
// or waits on them, so the map only grows with concurrent owners.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
