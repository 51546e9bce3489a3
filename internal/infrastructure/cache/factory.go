package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/infrastructure/config"
)

// IdempotencyStoreFactory creates idempotency and command-result stores
// based on configuration.
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *IdempotencyStoreFactory) redisCacheConfig() RedisConfig {
	return RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}
}

// CreateIdempotencyStore creates a Redis-backed idempotency store, falling
// back to in-memory when allowed. In-memory state is not shared across
// process instances.
func (f *IdempotencyStoreFactory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(f.redisCacheConfig())
	if err == nil {
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}

// CreateCommandResultStore creates a Redis-backed command result store,
// falling back to in-memory when allowed.
func (f *IdempotencyStoreFactory) CreateCommandResultStore() (shared.CommandResultStore, error) {
	store, err := NewRedisCommandResultStore(f.redisCacheConfig())
	if err == nil {
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("failed to create Redis command result store: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory command result store", zap.Error(err))
	return NewInMemoryCommandResultStore(), nil
}
