package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/infrastructure/telemetry"
)

// BusinessMetricsHandler subscribes to the in-process bus and turns domain
// events into business metric counters. Keeping the recording here means the
// application services stay free of telemetry concerns.
type BusinessMetricsHandler struct {
	metrics *telemetry.BusinessMetrics
}

// NewBusinessMetricsHandler creates a handler recording into the given metrics.
func NewBusinessMetricsHandler(metrics *telemetry.BusinessMetrics) *BusinessMetricsHandler {
	return &BusinessMetricsHandler{metrics: metrics}
}

// EventTypes returns the event types this handler counts.
func (h *BusinessMetricsHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeStockLevelChanged,
		inventory.EventTypeReservationCreated,
		inventory.EventTypeReservationModified,
		inventory.EventTypeReservationFulfilled,
		inventory.EventTypeReservationCancelled,
		inventory.EventTypeReservationExpired,
		inventory.EventTypeAlertRaised,
	}
}

// Handle increments the counter matching the event. It never fails; a metric
// that cannot be recorded is not worth failing bus delivery over.
func (h *BusinessMetricsHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	tenantID := e.TenantID()
	switch evt := e.(type) {
	case *inventory.StockLevelChangedEvent:
		h.recordMovement(ctx, tenantID, evt)
	case *inventory.ReservationCreatedEvent:
		h.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationActionCreated)
	case *inventory.ReservationModifiedEvent:
		h.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationActionModified)
	case *inventory.ReservationFulfilledEvent:
		h.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationActionFulfilled)
	case *inventory.ReservationCancelledEvent:
		h.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationActionCancelled)
	case *inventory.ReservationExpiredEvent:
		h.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationActionExpired)
	case *inventory.AlertRaisedEvent:
		h.metrics.RecordAlert(ctx, tenantID, string(evt.Kind), string(evt.Severity))
	}
	return nil
}

func (h *BusinessMetricsHandler) recordMovement(ctx context.Context, tenantID uuid.UUID, evt *inventory.StockLevelChangedEvent) {
	// Reservation-driven availability changes carry no ledger entry and are
	// counted through the reservation counter instead.
	if evt.LastMovement == nil {
		return
	}
	h.metrics.RecordStockMovement(ctx, tenantID, string(evt.LastMovement.Kind))
}
