package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Default retry configuration for outbox delivery.
const (
	DefaultOutboxMaxRetries  = 5
	DefaultOutboxBaseBackoff = time.Second
)

// OutboxEntry is a domain event captured in the same transaction as the
// state change that produced it, awaiting relay to external consumers.
type OutboxEntry struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID    `gorm:"type:uuid;not null;index:idx_outbox_tenant"`
	EventID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_outbox_event_id"`
	EventType     string       `gorm:"type:varchar(100);not null"`
	AggregateID   uuid.UUID    `gorm:"type:uuid;not null"`
	AggregateType string       `gorm:"type:varchar(100);not null"`
	Payload       []byte       `gorm:"type:jsonb;not null"`
	Status        OutboxStatus `gorm:"type:varchar(20);not null;index:idx_outbox_status_created,priority:1"`
	RetryCount    int          `gorm:"not null;default:0"`
	MaxRetries    int          `gorm:"not null;default:5"`
	LastError     string       `gorm:"type:text"`
	NextRetryAt   *time.Time   `gorm:"index:idx_outbox_next_retry"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OutboxEntry) TableName() string {
	return "outbox_entries"
}

// NewOutboxEntry wraps a serialized domain event for reliable delivery.
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultOutboxMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkProcessing transitions the entry to PROCESSING. Only pending or failed
// entries may be picked up.
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("outbox entry is not pending or failed")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSent records successful delivery.
func (e *OutboxEntry) MarkSent() {
	now := time.Now().UTC()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a delivery failure and schedules the next retry with
// exponential backoff. Entries that exhaust their retries go DEAD.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now().UTC()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		return
	}
	e.Status = OutboxStatusFailed
	backoff := DefaultOutboxBaseBackoff * time.Duration(1<<uint(e.RetryCount-1))
	next := time.Now().UTC().Add(backoff)
	e.NextRetryAt = &next
}

// IsDead reports whether delivery has been given up on.
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// ResetForRetry returns a dead entry to the retry pool with a fresh retry
// budget. Only dead entries may be reset; an operator action, not part of
// the normal delivery flow.
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return errors.New("only dead entries can be reset for retry")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.NextRetryAt = nil
	e.LastError = ""
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// OutboxRepository persists outbox entries.
type OutboxRepository interface {
	// Save persists one or more outbox entries, usually inside the
	// transaction carried by ctx or the supplied tx handle.
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindDispatchable returns pending entries plus failed entries whose
	// retry time has passed, oldest first, up to limit.
	FindDispatchable(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing atomically claims the given entries and returns the
	// claimed set; entries already claimed elsewhere are skipped.
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// Update persists the mutated delivery state of an entry.
	Update(ctx context.Context, entry *OutboxEntry) error
	// FindByID returns a single entry, or nil when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// FindDead returns dead-letter entries with pagination, newest first.
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// DeleteOlderThan removes sent entries older than the given time.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns entry counts grouped by status.
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
