package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ims/engine/internal/domain/shared"
)

// RedisCommandResultStore persists serialized command results keyed by
// (tenant, correlation ID) so a retried command replays its stored outcome
// instead of re-executing. Suitable for distributed deployments.
type RedisCommandResultStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCommandResultStore creates a new Redis-based command result store
func NewRedisCommandResultStore(cfg RedisConfig) (*RedisCommandResultStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisCommandResultStoreWithClient(client, ""), nil
}

// NewRedisCommandResultStoreWithClient creates a store with an existing
// Redis client. Useful for testing or sharing a client across components.
func NewRedisCommandResultStoreWithClient(client *redis.Client, keyPrefix string) *RedisCommandResultStore {
	if keyPrefix == "" {
		keyPrefix = "command:result:"
	}
	return &RedisCommandResultStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisCommandResultStore) key(tenantID shared.TenantID, correlationID string) string {
	return s.keyPrefix + tenantID.String() + ":" + correlationID
}

// Get returns the stored result payload for the key, if present.
func (s *RedisCommandResultStore) Get(ctx context.Context, tenantID shared.TenantID, correlationID string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, s.key(tenantID, correlationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read command result: %w", err)
	}
	return payload, true, nil
}

// Save stores the result payload with a TTL. Overwrites any prior value.
func (s *RedisCommandResultStore) Save(ctx context.Context, tenantID shared.TenantID, correlationID string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(tenantID, correlationID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store command result: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisCommandResultStore) Close() error {
	return s.client.Close()
}

// Ensure RedisCommandResultStore implements CommandResultStore
var _ shared.CommandResultStore = (*RedisCommandResultStore)(nil)
