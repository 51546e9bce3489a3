package lock

import (
	"context"
	"sort"
	"sync"
)

// KeyedLocker is an in-process lock pool keyed by arbitrary strings. Stock
// commands use it to serialize writers on one inventory item while leaving
// unrelated items fully concurrent. Multi-key acquisition (warehouse
// transfers) always locks in lexicographic key order, so two transfers over
// the same pair of items can never deadlock.
//
// Entries are reference counted and removed from the pool as soon as the
// last holder or waiter releases, so the pool stays proportional to the
// number of keys currently contended, not the number of keys ever seen.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedLocker creates an empty lock pool.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until every given key is held, or until ctx is done. Keys
// are deduplicated and locked in sorted order. On success it returns a
// release function that is safe to call more than once; on failure nothing
// stays held.
func (l *KeyedLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	sorted := dedupeSorted(keys)
	if len(sorted) == 0 {
		return func() {}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	held := make([]string, 0, len(sorted))
	for _, key := range sorted {
		entry := l.retain(key)
		select {
		case entry.sem <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.release(key)
			l.unlockAll(held)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.unlockAll(held) })
	}, nil
}

// retain returns the entry for key, creating it if absent, with its
// reference count bumped.
func (l *KeyedLocker) retain(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

// release drops one reference and evicts the entry when nobody holds or
// waits on it anymore.
func (l *KeyedLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, key)
	}
}

// unlockAll releases held keys in reverse acquisition order.
func (l *KeyedLocker) unlockAll(held []string) {
	for i := len(held) - 1; i >= 0; i-- {
		key := held[i]
		l.mu.Lock()
		entry, ok := l.entries[key]
		l.mu.Unlock()
		if ok {
			<-entry.sem
		}
		l.release(key)
	}
}

// Len reports how many keys currently have holders or waiters.
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func dedupeSorted(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)
	out := sorted[:1]
	for _, k := range sorted[1:] {
		if k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
