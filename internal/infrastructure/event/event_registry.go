package event

import (
	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/warehouse"
)

// RegisterAllEvents registers all domain event types with the serializer.
// This is required for the OutboxProcessor to deserialize events from the
// outbox table.
func RegisterAllEvents(serializer *EventSerializer) {
	// Inventory domain - stock and reservation events
	serializer.Register(inventory.EventTypeStockLevelChanged, &inventory.StockLevelChangedEvent{})
	serializer.Register(inventory.EventTypeReservationCreated, &inventory.ReservationCreatedEvent{})
	serializer.Register(inventory.EventTypeReservationModified, &inventory.ReservationModifiedEvent{})
	serializer.Register(inventory.EventTypeReservationFulfilled, &inventory.ReservationFulfilledEvent{})
	serializer.Register(inventory.EventTypeReservationCancelled, &inventory.ReservationCancelledEvent{})
	serializer.Register(inventory.EventTypeReservationExpired, &inventory.ReservationExpiredEvent{})
	serializer.Register(inventory.EventTypeAlertRaised, &inventory.AlertRaisedEvent{})
	serializer.Register(inventory.EventTypeDashboardMetricsUpdated, &inventory.DashboardMetricsUpdatedEvent{})

	// Catalog domain - product and variant events
	serializer.Register(catalog.EventTypeProductCreated, &catalog.ProductCreatedEvent{})
	serializer.Register(catalog.EventTypeProductUpdated, &catalog.ProductUpdatedEvent{})
	serializer.Register(catalog.EventTypeProductStatusChanged, &catalog.ProductStatusChangedEvent{})
	serializer.Register(catalog.EventTypeProductDeleted, &catalog.ProductDeletedEvent{})
	serializer.Register(catalog.EventTypeVariantCreated, &catalog.VariantCreatedEvent{})
	serializer.Register(catalog.EventTypeVariantUpdated, &catalog.VariantUpdatedEvent{})
	serializer.Register(catalog.EventTypeVariantDeleted, &catalog.VariantDeletedEvent{})

	// Warehouse domain
	serializer.Register(warehouse.EventTypeWarehouseCreated, &warehouse.WarehouseCreatedEvent{})
	serializer.Register(warehouse.EventTypeWarehouseUpdated, &warehouse.WarehouseUpdatedEvent{})
	serializer.Register(warehouse.EventTypeWarehouseStatusChanged, &warehouse.WarehouseStatusChangedEvent{})
	serializer.Register(warehouse.EventTypeWarehouseDeleted, &warehouse.WarehouseDeletedEvent{})
}

// NewRegisteredSerializer returns a serializer with every domain event type
// already registered.
func NewRegisteredSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterAllEvents(s)
	return s
}
