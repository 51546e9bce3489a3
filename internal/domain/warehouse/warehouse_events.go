package warehouse

import (
	"github.com/ims/engine/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeWarehouse = "Warehouse"

// Event type constants
const (
	EventTypeWarehouseCreated       = "WarehouseCreated"
	EventTypeWarehouseUpdated       = "WarehouseUpdated"
	EventTypeWarehouseStatusChanged = "WarehouseStatusChanged"
	EventTypeWarehouseDeleted       = "WarehouseDeleted"
)

// WarehouseCreatedEvent is published when a new warehouse is created
type WarehouseCreatedEvent struct {
	shared.BaseDomainEvent
	WarehouseID shared.WarehouseID `json:"warehouse_id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
}

// NewWarehouseCreatedEvent creates a new WarehouseCreatedEvent
func NewWarehouseCreatedEvent(w *Warehouse) *WarehouseCreatedEvent {
	return &WarehouseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseCreated, AggregateTypeWarehouse, w.ID.UUID, w.TenantID.UUID),
		WarehouseID:     w.ID,
		Code:            w.Code,
		Name:            w.Name,
	}
}

// EventType returns the event type name
func (e *WarehouseCreatedEvent) EventType() string {
	return EventTypeWarehouseCreated
}

// WarehouseUpdatedEvent is published when a warehouse's details change
type WarehouseUpdatedEvent struct {
	shared.BaseDomainEvent
	WarehouseID shared.WarehouseID `json:"warehouse_id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
}

// NewWarehouseUpdatedEvent creates a new WarehouseUpdatedEvent
func NewWarehouseUpdatedEvent(w *Warehouse) *WarehouseUpdatedEvent {
	return &WarehouseUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseUpdated, AggregateTypeWarehouse, w.ID.UUID, w.TenantID.UUID),
		WarehouseID:     w.ID,
		Code:            w.Code,
		Name:            w.Name,
	}
}

// EventType returns the event type name
func (e *WarehouseUpdatedEvent) EventType() string {
	return EventTypeWarehouseUpdated
}

// WarehouseStatusChangedEvent is published when a warehouse's status changes
type WarehouseStatusChangedEvent struct {
	shared.BaseDomainEvent
	WarehouseID shared.WarehouseID `json:"warehouse_id"`
	Code        string             `json:"code"`
	OldStatus   WarehouseStatus    `json:"old_status"`
	NewStatus   WarehouseStatus    `json:"new_status"`
}

// NewWarehouseStatusChangedEvent creates a new WarehouseStatusChangedEvent
func NewWarehouseStatusChangedEvent(w *Warehouse, oldStatus, newStatus WarehouseStatus) *WarehouseStatusChangedEvent {
	return &WarehouseStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseStatusChanged, AggregateTypeWarehouse, w.ID.UUID, w.TenantID.UUID),
		WarehouseID:     w.ID,
		Code:            w.Code,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// EventType returns the event type name
func (e *WarehouseStatusChangedEvent) EventType() string {
	return EventTypeWarehouseStatusChanged
}

// WarehouseDeletedEvent is published when a warehouse is soft-deleted
type WarehouseDeletedEvent struct {
	shared.BaseDomainEvent
	WarehouseID shared.WarehouseID `json:"warehouse_id"`
	Code        string             `json:"code"`
}

// NewWarehouseDeletedEvent creates a new WarehouseDeletedEvent
func NewWarehouseDeletedEvent(w *Warehouse) *WarehouseDeletedEvent {
	return &WarehouseDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseDeleted, AggregateTypeWarehouse, w.ID.UUID, w.TenantID.UUID),
		WarehouseID:     w.ID,
		Code:            w.Code,
	}
}

// EventType returns the event type name
func (e *WarehouseDeletedEvent) EventType() string {
	return EventTypeWarehouseDeleted
}
