package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ims/engine/internal/domain/shared"
)

type resultEntry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryCommandResultStore implements CommandResultStore using an
// in-memory map. Suitable for single-instance deployments and testing.
type InMemoryCommandResultStore struct {
	mu        sync.RWMutex
	entries   map[string]resultEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCommandResultStore creates a new in-memory command result store
// with a background cleanup goroutine.
func NewInMemoryCommandResultStore() *InMemoryCommandResultStore {
	store := &InMemoryCommandResultStore{
		entries:  make(map[string]resultEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

func resultKey(tenantID shared.TenantID, correlationID string) string {
	return tenantID.String() + ":" + correlationID
}

// Get returns the stored result payload for the key, if present.
func (s *InMemoryCommandResultStore) Get(ctx context.Context, tenantID shared.TenantID, correlationID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[resultKey(tenantID, correlationID)]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Save stores the result payload with a TTL. Overwrites any prior value.
func (s *InMemoryCommandResultStore) Save(ctx context.Context, tenantID shared.TenantID, correlationID string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[resultKey(tenantID, correlationID)] = resultEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryCommandResultStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryCommandResultStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryCommandResultStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Ensure InMemoryCommandResultStore implements CommandResultStore
var _ shared.CommandResultStore = (*InMemoryCommandResultStore)(nil)
