package inventory

import (
	"time"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// Aggregate type constants
const (
	AggregateTypeInventoryItem    = "InventoryItem"
	AggregateTypeReservation      = "Reservation"
	AggregateTypeAlert            = "Alert"
	AggregateTypeDashboardMetrics = "DashboardMetrics"
)

// Event type constants
const (
	EventTypeStockLevelChanged       = "StockLevelChanged"
	EventTypeReservationCreated      = "ReservationCreated"
	EventTypeReservationModified     = "ReservationModified"
	EventTypeReservationFulfilled    = "ReservationFulfilled"
	EventTypeReservationCancelled    = "ReservationCancelled"
	EventTypeReservationExpired      = "ReservationExpired"
	EventTypeAlertRaised             = "AlertRaised"
	EventTypeDashboardMetricsUpdated = "DashboardMetricsUpdated"
)

// MovementSummary is the ledger-entry excerpt embedded in StockLevelChanged.
type MovementSummary struct {
	Kind            MovementKind         `json:"kind"`
	Quantity        valueobject.Quantity `json:"quantity"`
	RunningBalance  valueobject.Quantity `json:"running_balance"`
	Timestamp       time.Time            `json:"timestamp"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
}

// SummarizeMovement builds the event excerpt of a ledger entry.
func SummarizeMovement(m *StockMovement) *MovementSummary {
	if m == nil {
		return nil
	}
	return &MovementSummary{
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		RunningBalance:  m.RunningBalance,
		Timestamp:       m.TimestampUTC,
		ReferenceNumber: m.ReferenceNumber,
	}
}

// StockLevelChangedEvent is the single primary event emitted after every
// successful stock or reservation operation. LastMovement is set when the
// operation appended to the ledger; reservation operations leave it nil
// because they only move the reserved counter.
type StockLevelChangedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID shared.InventoryItemID `json:"inventory_item_id"`
	VariantID       shared.VariantID       `json:"variant_id"`
	WarehouseID     shared.WarehouseID     `json:"warehouse_id"`
	TotalStock      valueobject.Quantity   `json:"total_stock"`
	ReservedStock   valueobject.Quantity   `json:"reserved_stock"`
	AvailableStock  valueobject.Quantity   `json:"available_stock"`
	LastMovement    *MovementSummary       `json:"last_movement,omitempty"`
}

// NewStockLevelChangedEvent creates a StockLevelChangedEvent from the item's
// post-operation state.
func NewStockLevelChangedEvent(item *InventoryItem, lastMovement *StockMovement) *StockLevelChangedEvent {
	return &StockLevelChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLevelChanged, AggregateTypeInventoryItem, item.ID.UUID, item.TenantID.UUID),
		InventoryItemID: item.ID,
		VariantID:       item.VariantID,
		WarehouseID:     item.WarehouseID,
		TotalStock:      item.TotalStock,
		ReservedStock:   item.ReservedStock,
		AvailableStock:  item.Available(),
		LastMovement:    SummarizeMovement(lastMovement),
	}
}

// EventType returns the event type name
func (e *StockLevelChangedEvent) EventType() string {
	return EventTypeStockLevelChanged
}

// ReservationCreatedEvent is raised when a reservation claims stock.
type ReservationCreatedEvent struct {
	shared.BaseDomainEvent
	ReservationID     shared.ReservationID `json:"reservation_id"`
	VariantID         shared.VariantID     `json:"variant_id"`
	WarehouseID       shared.WarehouseID   `json:"warehouse_id"`
	CurrentQuantity   valueobject.Quantity `json:"current_quantity"`
	FulfilledQuantity valueobject.Quantity `json:"fulfilled_quantity"`
	Status            ReservationStatus    `json:"status"`
}

// NewReservationCreatedEvent creates a new ReservationCreatedEvent
func NewReservationCreatedEvent(r *Reservation) *ReservationCreatedEvent {
	return &ReservationCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeReservationCreated, AggregateTypeReservation, r.ID.UUID, r.TenantID.UUID),
		ReservationID:     r.ID,
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		CurrentQuantity:   r.CurrentQuantity,
		FulfilledQuantity: r.FulfilledQuantity,
		Status:            r.Status,
	}
}

// EventType returns the event type name
func (e *ReservationCreatedEvent) EventType() string {
	return EventTypeReservationCreated
}

// ReservationModifiedEvent is raised when quantity or expiry changes.
type ReservationModifiedEvent struct {
	shared.BaseDomainEvent
	ReservationID     shared.ReservationID `json:"reservation_id"`
	VariantID         shared.VariantID     `json:"variant_id"`
	WarehouseID       shared.WarehouseID   `json:"warehouse_id"`
	CurrentQuantity   valueobject.Quantity `json:"current_quantity"`
	FulfilledQuantity valueobject.Quantity `json:"fulfilled_quantity"`
	Status            ReservationStatus    `json:"status"`
}

// NewReservationModifiedEvent creates a new ReservationModifiedEvent
func NewReservationModifiedEvent(r *Reservation) *ReservationModifiedEvent {
	return &ReservationModifiedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeReservationModified, AggregateTypeReservation, r.ID.UUID, r.TenantID.UUID),
		ReservationID:     r.ID,
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		CurrentQuantity:   r.CurrentQuantity,
		FulfilledQuantity: r.FulfilledQuantity,
		Status:            r.Status,
	}
}

// EventType returns the event type name
func (e *ReservationModifiedEvent) EventType() string {
	return EventTypeReservationModified
}

// ReservationFulfilledEvent is raised when part or all of a reservation is
// consumed.
type ReservationFulfilledEvent struct {
	shared.BaseDomainEvent
	ReservationID     shared.ReservationID `json:"reservation_id"`
	VariantID         shared.VariantID     `json:"variant_id"`
	WarehouseID       shared.WarehouseID   `json:"warehouse_id"`
	CurrentQuantity   valueobject.Quantity `json:"current_quantity"`
	FulfilledQuantity valueobject.Quantity `json:"fulfilled_quantity"`
	Status            ReservationStatus    `json:"status"`
}

// NewReservationFulfilledEvent creates a new ReservationFulfilledEvent
func NewReservationFulfilledEvent(r *Reservation) *ReservationFulfilledEvent {
	return &ReservationFulfilledEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeReservationFulfilled, AggregateTypeReservation, r.ID.UUID, r.TenantID.UUID),
		ReservationID:     r.ID,
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		CurrentQuantity:   r.CurrentQuantity,
		FulfilledQuantity: r.FulfilledQuantity,
		Status:            r.Status,
	}
}

// EventType returns the event type name
func (e *ReservationFulfilledEvent) EventType() string {
	return EventTypeReservationFulfilled
}

// ReservationCancelledEvent is raised when a reservation is cancelled and
// its remainder released.
type ReservationCancelledEvent struct {
	shared.BaseDomainEvent
	ReservationID     shared.ReservationID `json:"reservation_id"`
	VariantID         shared.VariantID     `json:"variant_id"`
	WarehouseID       shared.WarehouseID   `json:"warehouse_id"`
	CurrentQuantity   valueobject.Quantity `json:"current_quantity"`
	FulfilledQuantity valueobject.Quantity `json:"fulfilled_quantity"`
	Status            ReservationStatus    `json:"status"`
}

// NewReservationCancelledEvent creates a new ReservationCancelledEvent
func NewReservationCancelledEvent(r *Reservation) *ReservationCancelledEvent {
	return &ReservationCancelledEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeReservationCancelled, AggregateTypeReservation, r.ID.UUID, r.TenantID.UUID),
		ReservationID:     r.ID,
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		CurrentQuantity:   r.CurrentQuantity,
		FulfilledQuantity: r.FulfilledQuantity,
		Status:            r.Status,
	}
}

// EventType returns the event type name
func (e *ReservationCancelledEvent) EventType() string {
	return EventTypeReservationCancelled
}

// ReservationExpiredEvent is raised exactly once when the sweeper (or a
// direct Expire command) transitions an overdue reservation.
type ReservationExpiredEvent struct {
	shared.BaseDomainEvent
	ReservationID     shared.ReservationID `json:"reservation_id"`
	VariantID         shared.VariantID     `json:"variant_id"`
	WarehouseID       shared.WarehouseID   `json:"warehouse_id"`
	CurrentQuantity   valueobject.Quantity `json:"current_quantity"`
	FulfilledQuantity valueobject.Quantity `json:"fulfilled_quantity"`
	Status            ReservationStatus    `json:"status"`
}

// NewReservationExpiredEvent creates a new ReservationExpiredEvent
func NewReservationExpiredEvent(r *Reservation) *ReservationExpiredEvent {
	return &ReservationExpiredEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeReservationExpired, AggregateTypeReservation, r.ID.UUID, r.TenantID.UUID),
		ReservationID:     r.ID,
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		CurrentQuantity:   r.CurrentQuantity,
		FulfilledQuantity: r.FulfilledQuantity,
		Status:            r.Status,
	}
}

// EventType returns the event type name
func (e *ReservationExpiredEvent) EventType() string {
	return EventTypeReservationExpired
}

// AlertRaisedEvent is raised when a post-state crosses an alert boundary.
type AlertRaisedEvent struct {
	shared.BaseDomainEvent
	AlertID     shared.AlertID      `json:"alert_id"`
	Kind        AlertKind           `json:"kind"`
	Severity    AlertSeverity       `json:"severity"`
	VariantID   *shared.VariantID   `json:"variant_id,omitempty"`
	WarehouseID *shared.WarehouseID `json:"warehouse_id,omitempty"`
	Data        shared.Metadata     `json:"data,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NewAlertRaisedEvent creates a new AlertRaisedEvent
func NewAlertRaisedEvent(a *Alert) *AlertRaisedEvent {
	return &AlertRaisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAlertRaised, AggregateTypeAlert, a.ID.UUID, a.TenantID.UUID),
		AlertID:         a.ID,
		Kind:            a.Kind,
		Severity:        a.Severity,
		VariantID:       a.VariantID,
		WarehouseID:     a.WarehouseID,
		Data:            a.Data,
		CreatedAt:       a.CreatedAt,
	}
}

// EventType returns the event type name
func (e *AlertRaisedEvent) EventType() string {
	return EventTypeAlertRaised
}

// DashboardMetricsUpdatedEvent carries a freshly computed metrics summary to
// dashboard subscribers. Emissions are coalesced per (tenant, scope).
type DashboardMetricsUpdatedEvent struct {
	shared.BaseDomainEvent
	Scope       MetricsScope      `json:"scope"`
	PeriodType  MetricsPeriodType `json:"period_type"`
	Summary     *DashboardMetrics `json:"summary"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// NewDashboardMetricsUpdatedEvent creates a new DashboardMetricsUpdatedEvent
func NewDashboardMetricsUpdatedEvent(tenantID shared.TenantID, scope MetricsScope, periodType MetricsPeriodType, summary *DashboardMetrics) *DashboardMetricsUpdatedEvent {
	return &DashboardMetricsUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDashboardMetricsUpdated, AggregateTypeDashboardMetrics, tenantID.UUID, tenantID.UUID),
		Scope:           scope,
		PeriodType:      periodType,
		Summary:         summary,
		GeneratedAt:     time.Now().UTC(),
	}
}

// EventType returns the event type name
func (e *DashboardMetricsUpdatedEvent) EventType() string {
	return EventTypeDashboardMetricsUpdated
}
