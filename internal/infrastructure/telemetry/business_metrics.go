// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the inventory engine.
// It tracks ledger activity, reservation lifecycle, and stock health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	stockMovementTotal *Counter
	reservationTotal   *Counter
	alertTotal         *Counter

	// Gauge metrics (point-in-time values)
	inventoryReservedQuantity *Gauge
	inventoryLowStockCount    *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	inventoryProvider InventoryMetricsProvider
}

// InventoryMetricsProvider provides inventory data for periodic metrics collection.
// This interface allows the telemetry layer to query inventory state without
// depending on the inventory domain directly.
type InventoryMetricsProvider interface {
	// GetReservedQuantityByWarehouse returns total reserved quantity per warehouse for a tenant
	GetReservedQuantityByWarehouse(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error)

	// GetLowStockCount returns count of items at or below their variant threshold for a tenant
	GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	CollectInterval   time.Duration // Default: 5 minutes
	InventoryProvider InventoryMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		inventoryProvider: cfg.InventoryProvider,
	}

	// Initialize counter metrics
	var err error

	// Ledger metrics
	bm.stockMovementTotal, err = NewCounter(
		cfg.Meter,
		"ims_stock_movement_total",
		"Total number of stock movements recorded",
		"{movements}",
	)
	if err != nil {
		return nil, err
	}

	// Reservation metrics
	bm.reservationTotal, err = NewCounter(
		cfg.Meter,
		"ims_reservation_total",
		"Total number of reservation lifecycle transitions",
		"{reservations}",
	)
	if err != nil {
		return nil, err
	}

	// Alert metrics
	bm.alertTotal, err = NewCounter(
		cfg.Meter,
		"ims_alert_total",
		"Total number of stock alerts raised",
		"{alerts}",
	)
	if err != nil {
		return nil, err
	}

	// Inventory gauge metrics
	bm.inventoryReservedQuantity, err = NewGauge(
		cfg.Meter,
		"ims_inventory_reserved_quantity",
		"Current reserved inventory quantity",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	bm.inventoryLowStockCount, err = NewGauge(
		cfg.Meter,
		"ims_inventory_low_stock_count",
		"Number of items at or below their low stock threshold",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Ledger Metrics
// =============================================================================

// RecordStockMovement records a stock movement appended to the ledger.
// This should be called from the application layer when a movement commits.
func (bm *BusinessMetrics) RecordStockMovement(ctx context.Context, tenantID uuid.UUID, movementType string) {
	bm.stockMovementTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrMovementType.String(movementType),
	)
}

// =============================================================================
// Reservation Metrics
// =============================================================================

// ReservationAction labels the lifecycle transition being counted.
type ReservationAction string

const (
	ReservationActionCreated   ReservationAction = "created"
	ReservationActionModified  ReservationAction = "modified"
	ReservationActionFulfilled ReservationAction = "fulfilled"
	ReservationActionCancelled ReservationAction = "cancelled"
	ReservationActionExpired   ReservationAction = "expired"
)

// RecordReservation records a reservation lifecycle transition.
func (bm *BusinessMetrics) RecordReservation(ctx context.Context, tenantID uuid.UUID, action ReservationAction) {
	bm.reservationTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrReservationAction.String(string(action)),
	)
}

// =============================================================================
// Alert Metrics
// =============================================================================

// RecordAlert records a raised stock alert.
func (bm *BusinessMetrics) RecordAlert(ctx context.Context, tenantID uuid.UUID, kind, severity string) {
	bm.alertTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrAlertKind.String(kind),
		AttrAlertSeverity.String(severity),
	)
}

// =============================================================================
// Inventory Metrics
// =============================================================================

// RecordReservedQuantity records the current reserved quantity for a warehouse.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordReservedQuantity(ctx context.Context, tenantID, warehouseID uuid.UUID, quantity int64) {
	bm.inventoryReservedQuantity.Record(ctx, quantity,
		AttrTenantID.String(tenantID.String()),
		AttrWarehouseID.String(warehouseID.String()),
	)
}

// RecordLowStockCount records the number of items at or below their threshold.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordLowStockCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.inventoryLowStockCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects inventory metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectInventoryMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectInventoryMetrics(ctx, tenantProvider)
		}
	}
}

// collectInventoryMetrics collects inventory gauge metrics for all tenants.
func (bm *BusinessMetrics) collectInventoryMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.inventoryProvider == nil {
		bm.logger.Debug("No inventory provider configured, skipping inventory metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantInventoryMetrics(ctx, tenantID)
	}
}

// collectTenantInventoryMetrics collects inventory metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantInventoryMetrics(ctx context.Context, tenantID uuid.UUID) {
	// Collect reserved quantity by warehouse
	reservedByWarehouse, err := bm.inventoryProvider.GetReservedQuantityByWarehouse(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get reserved quantity for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		for warehouseID, quantity := range reservedByWarehouse {
			bm.RecordReservedQuantity(ctx, tenantID, warehouseID, quantity)
		}
	}

	// Collect low stock count
	lowStockCount, err := bm.inventoryProvider.GetLowStockCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get low stock count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordLowStockCount(ctx, tenantID, lowStockCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrAlertKind     = attribute.Key("alert_kind")
	AttrAlertSeverity = attribute.Key("alert_severity")
)
