package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultItemExpiryWarnWindow is how far ahead of an item's expiry date the
// Expiring alert fires.
const DefaultItemExpiryWarnWindow = 7 * 24 * time.Hour

// DefaultUnusualAdjustmentRatio flags adjustments of at least half the prior
// balance.
var DefaultUnusualAdjustmentRatio = decimal.NewFromFloat(0.5)

// AlertService inspects committed post-states and raises persisted alerts:
// low or out-of-stock availability, approaching or passed item expiry,
// reservations near their deadline and unusually large adjustments. Open
// alerts of the same kind on the same (variant, warehouse) pair are not
// duplicated. Detection failures are logged and never reach the command
// path that triggered them.
type AlertService struct {
	alerts    inventory.AlertRepository
	variants  catalog.VariantRepository
	logger    *zap.Logger
	publisher shared.EventPublisher
	outbox    shared.OutboxEventSaver

	adjustmentRatio  decimal.Decimal
	expiryWarnWindow time.Duration
}

// NewAlertService creates a new AlertService. variants supplies per-variant
// low-stock thresholds and may be nil, leaving only the out-of-stock rule.
func NewAlertService(alerts inventory.AlertRepository, variants catalog.VariantRepository, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		alerts:           alerts,
		variants:         variants,
		logger:           logger,
		adjustmentRatio:  DefaultUnusualAdjustmentRatio,
		expiryWarnWindow: DefaultItemExpiryWarnWindow,
	}
}

// SetEventPublisher sets the publisher delivering AlertRaised events
// in-process.
func (s *AlertService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOutboxSaver sets the outbox saver recording AlertRaised events for
// external delivery.
func (s *AlertService) SetOutboxSaver(outbox shared.OutboxEventSaver) {
	s.outbox = outbox
}

// SetUnusualAdjustmentRatio overrides the |quantity| / prior-balance ratio
// at which an adjustment counts as unusual. Non-positive values are ignored.
func (s *AlertService) SetUnusualAdjustmentRatio(ratio decimal.Decimal) {
	if ratio.IsPositive() {
		s.adjustmentRatio = ratio
	}
}

// SetItemExpiryWarnWindow overrides the Expiring alert lead time.
func (s *AlertService) SetItemExpiryWarnWindow(window time.Duration) {
	if window >= 0 {
		s.expiryWarnWindow = window
	}
}

// EvaluateStockChange checks the committed post-state of a stock or
// reservation operation. movement is nil when only the reserved counter
// changed.
func (s *AlertService) EvaluateStockChange(ctx context.Context, item *inventory.InventoryItem, movement *inventory.StockMovement) {
	now := time.Now().UTC()
	available := item.Available()
	variantID := item.VariantID
	warehouseID := item.WarehouseID

	threshold := s.lowStockThreshold(ctx, item)
	switch {
	case !available.IsPositive():
		s.raise(ctx, item.TenantID, inventory.AlertKindOutOfStock, inventory.AlertSeverityCritical, &variantID, &warehouseID, shared.Metadata{
			"available_stock": available.String(),
			"total_stock":     item.TotalStock.String(),
			"reserved_stock":  item.ReservedStock.String(),
		})
	case threshold.IsPositive() && !available.GreaterThan(threshold):
		s.raise(ctx, item.TenantID, inventory.AlertKindLowStock, inventory.AlertSeverityWarning, &variantID, &warehouseID, shared.Metadata{
			"available_stock": available.String(),
			"threshold":       threshold.String(),
		})
	}

	if movement != nil && movement.Kind == inventory.MovementKindAdjustment {
		prior := item.TotalStock.Sub(movement.Quantity)
		if prior.IsPositive() && !movement.Quantity.Abs().LessThan(prior.MulFactor(s.adjustmentRatio)) {
			s.raise(ctx, item.TenantID, inventory.AlertKindUnusualAdjustment, inventory.AlertSeverityWarning, &variantID, &warehouseID, shared.Metadata{
				"quantity":         movement.Quantity.String(),
				"prior_total":      prior.String(),
				"ratio":            s.adjustmentRatio.String(),
				"reference_number": movement.ReferenceNumber,
			})
		}
	}

	switch {
	case item.IsExpired(now):
		s.raise(ctx, item.TenantID, inventory.AlertKindExpired, inventory.AlertSeverityCritical, &variantID, &warehouseID, shared.Metadata{
			"expiry_date": item.ExpiryDate.Format(time.RFC3339),
		})
	case item.IsExpiringWithin(now, s.expiryWarnWindow):
		s.raise(ctx, item.TenantID, inventory.AlertKindExpiring, inventory.AlertSeverityWarning, &variantID, &warehouseID, shared.Metadata{
			"expiry_date": item.ExpiryDate.Format(time.RFC3339),
		})
	}
}

// EvaluateReservationExpiry raises a near-expiry alert for an open
// reservation approaching its deadline.
func (s *AlertService) EvaluateReservationExpiry(ctx context.Context, res *inventory.Reservation) {
	if res.IsTerminal() {
		return
	}
	variantID := res.VariantID
	warehouseID := res.WarehouseID
	s.raise(ctx, res.TenantID, inventory.AlertKindReservationExpiring, inventory.AlertSeverityWarning, &variantID, &warehouseID, shared.Metadata{
		"reservation_id":   res.ID.String(),
		"reference_number": res.ReferenceNumber,
		"expires_at_utc":   res.ExpiresAtUTC.Format(time.RFC3339),
		"remaining":        res.Remaining().String(),
	})
}

// Acknowledge marks an alert as handled by the acting user.
func (s *AlertService) Acknowledge(ctx context.Context, tctx shared.TenantContext, id shared.AlertID) (*AlertResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	alert, err := s.alerts.FindByID(ctx, tctx.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := alert.Acknowledge(tctx.ActorID); err != nil {
		return nil, err
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	response := ToAlertResponse(alert)
	return &response, nil
}

// ListOpen returns unacknowledged alerts, optionally filtered by kind.
func (s *AlertService) ListOpen(ctx context.Context, tctx shared.TenantContext, kind *inventory.AlertKind, filter shared.Filter) (*shared.Paginated[AlertResponse], error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if kind != nil && !kind.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown alert kind")
	}
	page, err := s.alerts.FindUnacknowledged(ctx, tctx.TenantID, kind, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]AlertResponse, 0, len(page.Items))
	for _, alert := range page.Items {
		responses = append(responses, ToAlertResponse(alert))
	}
	return shared.NewPaginated(responses, page.Total, page.Page, page.PageSize), nil
}

func (s *AlertService) lowStockThreshold(ctx context.Context, item *inventory.InventoryItem) valueobject.Quantity {
	if s.variants == nil {
		return valueobject.ZeroQuantity()
	}
	variant, err := s.variants.FindByID(ctx, item.TenantID, item.VariantID)
	if err != nil {
		if !errors.Is(err, shared.ErrVariantNotFound) {
			s.logger.Warn("Failed to load variant for threshold lookup",
				zap.String("variant_id", item.VariantID.String()),
				zap.Error(err),
			)
		}
		return valueobject.ZeroQuantity()
	}
	return variant.EffectiveLowStockThreshold()
}

// raise persists and publishes one alert unless an open alert of the kind
// already covers the (variant, warehouse) pair.
func (s *AlertService) raise(ctx context.Context, tenantID shared.TenantID, kind inventory.AlertKind, severity inventory.AlertSeverity, variantID *shared.VariantID, warehouseID *shared.WarehouseID, data shared.Metadata) {
	open, err := s.alerts.HasOpenAlert(ctx, tenantID, kind, variantID, warehouseID)
	if err != nil {
		s.logger.Warn("Failed to check for open alerts",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return
	}
	if open {
		return
	}

	alert, err := inventory.NewAlert(tenantID, kind, severity, variantID, warehouseID, data)
	if err != nil {
		s.logger.Error("Failed to build alert",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.alerts.Save(ctx, alert); err != nil {
		s.logger.Error("Failed to save alert",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return
	}

	event := inventory.NewAlertRaisedEvent(alert)
	if s.outbox != nil {
		if err := s.outbox.SaveEvents(ctx, nil, event); err != nil {
			s.logger.Warn("Failed to record alert event in outbox",
				zap.String("alert_id", alert.ID.String()),
				zap.Error(err),
			)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish alert event",
				zap.String("alert_id", alert.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Alert raised",
		zap.String("alert_id", alert.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", kind.String()),
		zap.String("severity", string(severity)),
	)
}

var (
	_ AlertEvaluator            = (*AlertService)(nil)
	_ ReservationAlertEvaluator = (*AlertService)(nil)
)
