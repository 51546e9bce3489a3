package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appinventory "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

// RedisMetricsCache is the hot layer in front of the persisted metrics
// table. Alongside each payload it maintains a per-(tenant, scope) index set
// so Evict can drop every period key an invalidation touches without a
// keyspace scan.
type RedisMetricsCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisMetricsCache creates a new RedisMetricsCache with a shared client.
func NewRedisMetricsCache(client *redis.Client) *RedisMetricsCache {
	return &RedisMetricsCache{client: client, keyPrefix: "metrics:hot:"}
}

func (c *RedisMetricsCache) payloadKey(key string) string {
	return c.keyPrefix + key
}

func (c *RedisMetricsCache) indexKey(tenantID shared.TenantID, scope inventory.MetricsScope) string {
	return c.keyPrefix + "index:" + tenantID.String() + ":" + scope.String()
}

// Get returns the cached payload for the key, if present.
func (c *RedisMetricsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.payloadKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read metrics cache: %w", err)
	}
	return payload, true, nil
}

// Set stores the payload and records the key in the scope's index. The index
// outlives the payload slightly so eviction still finds keys whose TTL is
// about to lapse.
func (c *RedisMetricsCache) Set(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, key string, payload []byte, ttl time.Duration) error {
	index := c.indexKey(tenantID, scope)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.payloadKey(key), payload, ttl)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, 2*ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write metrics cache: %w", err)
	}
	return nil
}

// Evict drops every cached payload of the given scopes plus their indexes.
func (c *RedisMetricsCache) Evict(ctx context.Context, tenantID shared.TenantID, scopes []inventory.MetricsScope) error {
	for _, scope := range scopes {
		index := c.indexKey(tenantID, scope)
		keys, err := c.client.SMembers(ctx, index).Result()
		if err != nil {
			return fmt.Errorf("failed to list metrics cache index: %w", err)
		}

		toDelete := make([]string, 0, len(keys)+1)
		for _, key := range keys {
			toDelete = append(toDelete, c.payloadKey(key))
		}
		toDelete = append(toDelete, index)
		if err := c.client.Del(ctx, toDelete...).Err(); err != nil {
			return fmt.Errorf("failed to evict metrics cache: %w", err)
		}
	}
	return nil
}

// Ensure RedisMetricsCache implements MetricsCache
var _ appinventory.MetricsCache = (*RedisMetricsCache)(nil)
