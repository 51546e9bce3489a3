package cache

import (
	"context"
	"sync"
	"time"

	appinventory "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

type metricsEntry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryMetricsCache implements the hot metrics cache with an in-process
// map. Suitable for single-instance deployments and testing.
type InMemoryMetricsCache struct {
	mu      sync.RWMutex
	entries map[string]metricsEntry
	index   map[string]map[string]struct{}
}

// NewInMemoryMetricsCache creates a new InMemoryMetricsCache.
func NewInMemoryMetricsCache() *InMemoryMetricsCache {
	return &InMemoryMetricsCache{
		entries: make(map[string]metricsEntry),
		index:   make(map[string]map[string]struct{}),
	}
}

func scopeIndexKey(tenantID shared.TenantID, scope inventory.MetricsScope) string {
	return tenantID.String() + ":" + scope.String()
}

// Get returns the cached payload for the key, if present and unexpired.
func (c *InMemoryMetricsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Set stores the payload and records the key in the scope's index.
func (c *InMemoryMetricsCache) Set(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = metricsEntry{payload: payload, expiresAt: time.Now().Add(ttl)}

	indexKey := scopeIndexKey(tenantID, scope)
	keys, ok := c.index[indexKey]
	if !ok {
		keys = make(map[string]struct{})
		c.index[indexKey] = keys
	}
	keys[key] = struct{}{}
	return nil
}

// Evict drops every cached payload of the given scopes.
func (c *InMemoryMetricsCache) Evict(ctx context.Context, tenantID shared.TenantID, scopes []inventory.MetricsScope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, scope := range scopes {
		indexKey := scopeIndexKey(tenantID, scope)
		for key := range c.index[indexKey] {
			delete(c.entries, key)
		}
		delete(c.index, indexKey)
	}
	return nil
}

// Size returns the number of cached payloads (for testing/monitoring).
func (c *InMemoryMetricsCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryMetricsCache implements MetricsCache
var _ appinventory.MetricsCache = (*InMemoryMetricsCache)(nil)
