package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed event IDs to prevent duplicate processing
// by event handlers.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// CommandResultStore persists the serialized result of a completed command
// keyed by (tenant, correlation ID). A repeated command with the same
// correlation ID returns the stored result without re-executing.
type CommandResultStore interface {
	// Get returns the stored result payload for the key, if present.
	Get(ctx context.Context, tenantID TenantID, correlationID string) ([]byte, bool, error)

	// Save stores the result payload with a TTL. Overwrites any prior value.
	Save(ctx context.Context, tenantID TenantID, correlationID string, payload []byte, ttl time.Duration) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long processed event IDs and command results are retained.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
