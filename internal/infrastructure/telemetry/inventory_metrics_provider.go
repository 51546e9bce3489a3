// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryMetricsProvider implements InventoryMetricsProvider using GORM.
// It queries the inventory_items table directly for aggregated metrics.
type GormInventoryMetricsProvider struct {
	db *gorm.DB
}

// NewGormInventoryMetricsProvider creates a new GormInventoryMetricsProvider.
func NewGormInventoryMetricsProvider(db *gorm.DB) *GormInventoryMetricsProvider {
	return &GormInventoryMetricsProvider{db: db}
}

// GetReservedQuantityByWarehouse returns total reserved quantity per warehouse for a tenant.
func (p *GormInventoryMetricsProvider) GetReservedQuantityByWarehouse(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error) {
	type result struct {
		WarehouseID      uuid.UUID `gorm:"column:warehouse_id"`
		ReservedQuantity int64     `gorm:"column:reserved_quantity"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("inventory_items").
		Select("warehouse_id, COALESCE(SUM(reserved_stock), 0) as reserved_quantity").
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Group("warehouse_id").
		Having("SUM(reserved_stock) > 0").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		m[r.WarehouseID] = r.ReservedQuantity
	}

	return m, nil
}

// GetLowStockCount returns count of items at or below their variant threshold
// for a tenant. Items whose variant has no threshold count only when
// availability is zero or negative.
func (p *GormInventoryMetricsProvider) GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("inventory_items").
		Joins("JOIN variants ON variants.id = inventory_items.variant_id AND variants.tenant_id = inventory_items.tenant_id AND variants.deleted_at IS NULL").
		Where("inventory_items.tenant_id = ? AND inventory_items.deleted_at IS NULL", tenantID).
		Where("(variants.low_stock_threshold IS NOT NULL AND inventory_items.total_stock - inventory_items.reserved_stock <= variants.low_stock_threshold)" +
			" OR (variants.low_stock_threshold IS NULL AND inventory_items.total_stock - inventory_items.reserved_stock <= 0)").
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
// There is no tenant registry table; the set of active tenants is the set of
// tenants that own inventory rows.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all tenant IDs with live inventory rows.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("inventory_items").
		Distinct("tenant_id").
		Where("deleted_at IS NULL").
		Find(&ids).Error

	return ids, err
}
