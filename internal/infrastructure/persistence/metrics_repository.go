package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// GormMetricsReader implements the aggregate queries behind dashboard
// metrics. Classification follows the alerting rules: out of stock means
// availability at or below zero, low stock means at or below the variant
// threshold while still above zero, and items without a threshold only ever
// count as out of stock.
type GormMetricsReader struct {
	db *gorm.DB
}

// NewGormMetricsReader creates a new GormMetricsReader
func NewGormMetricsReader(db *gorm.DB) *GormMetricsReader {
	return &GormMetricsReader{db: db}
}

var _ inventory.MetricsReader = (*GormMetricsReader)(nil)

type stockStatsRow struct {
	TotalStock      decimal.Decimal
	AvailableStock  decimal.Decimal
	ReservedStock   decimal.Decimal
	LowStockCount   int
	OutOfStockCount int
	ExpiredCount    int
	ExpiringCount   int
}

const stockStatsSelect = `
COALESCE(SUM(i.total_stock), 0) AS total_stock,
COALESCE(SUM(i.total_stock - i.reserved_stock), 0) AS available_stock,
COALESCE(SUM(i.reserved_stock), 0) AS reserved_stock,
COALESCE(SUM(CASE WHEN v.low_stock_threshold IS NOT NULL
	AND i.total_stock - i.reserved_stock > 0
	AND i.total_stock - i.reserved_stock <= v.low_stock_threshold THEN 1 ELSE 0 END), 0) AS low_stock_count,
COALESCE(SUM(CASE WHEN i.total_stock - i.reserved_stock <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock_count,
COALESCE(SUM(CASE WHEN i.expiry_date IS NOT NULL AND i.expiry_date <= @now THEN 1 ELSE 0 END), 0) AS expired_count,
COALESCE(SUM(CASE WHEN i.expiry_date IS NOT NULL AND i.expiry_date > @now AND i.expiry_date < @horizon THEN 1 ELSE 0 END), 0) AS expiring_count`

// StockLevelStats returns the aggregate snapshot for a tenant, optionally
// narrowed to one warehouse.
func (r *GormMetricsReader) StockLevelStats(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, now time.Time, expiringWindow time.Duration) (inventory.StockLevelStats, error) {
	query := r.db.WithContext(ctx).
		Table("inventory_items i").
		Joins("JOIN variants v ON v.id = i.variant_id AND v.tenant_id = i.tenant_id AND v.deleted_at IS NULL").
		Where("i.tenant_id = ? AND i.deleted_at IS NULL", tenantID)
	if warehouseID != nil {
		query = query.Where("i.warehouse_id = ?", *warehouseID)
	}

	var row stockStatsRow
	if err := query.
		Select(stockStatsSelect,
			map[string]interface{}{"now": now.UTC(), "horizon": now.UTC().Add(expiringWindow)}).
		Scan(&row).Error; err != nil {
		return inventory.StockLevelStats{}, err
	}
	return statsFromRow(row)
}

// StockLevelStatsByWarehouse returns the per-warehouse breakdown of a
// tenant's stock.
func (r *GormMetricsReader) StockLevelStatsByWarehouse(ctx context.Context, tenantID shared.TenantID, now time.Time, expiringWindow time.Duration) ([]inventory.WarehouseMetrics, error) {
	type warehouseRow struct {
		WarehouseID     string
		TotalStock      decimal.Decimal
		AvailableStock  decimal.Decimal
		ReservedStock   decimal.Decimal
		LowStockCount   int
		OutOfStockCount int
		ExpiredCount    int
		ExpiringCount   int
	}

	var rows []warehouseRow
	if err := r.db.WithContext(ctx).
		Table("inventory_items i").
		Joins("JOIN variants v ON v.id = i.variant_id AND v.tenant_id = i.tenant_id AND v.deleted_at IS NULL").
		Where("i.tenant_id = ? AND i.deleted_at IS NULL", tenantID).
		Select("i.warehouse_id AS warehouse_id, "+stockStatsSelect,
			map[string]interface{}{"now": now.UTC(), "horizon": now.UTC().Add(expiringWindow)}).
		Group("i.warehouse_id").
		Order("i.warehouse_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]inventory.WarehouseMetrics, 0, len(rows))
	for _, row := range rows {
		id, err := shared.ParseWarehouseID(row.WarehouseID)
		if err != nil {
			return nil, err
		}
		stats, err := statsFromRow(stockStatsRow{
			TotalStock:      row.TotalStock,
			AvailableStock:  row.AvailableStock,
			ReservedStock:   row.ReservedStock,
			LowStockCount:   row.LowStockCount,
			OutOfStockCount: row.OutOfStockCount,
			ExpiredCount:    row.ExpiredCount,
			ExpiringCount:   row.ExpiringCount,
		})
		if err != nil {
			return nil, err
		}
		result = append(result, inventory.WarehouseMetrics{
			WarehouseID:        id,
			TotalStock:         stats.TotalStock,
			AvailableStock:     stats.TotalAvailableStock,
			ReservedStock:      stats.TotalReservedStock,
			LowStockVariants:   stats.LowStockVariantCount,
			OutOfStockVariants: stats.OutOfStockVariantCount,
		})
	}
	return result, nil
}

// SumMovementFlows totals inbound and outbound ledger quantities over
// [from, to) for the scope.
func (r *GormMetricsReader) SumMovementFlows(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, from, to time.Time) (inventory.MovementRate, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("tenant_id = ? AND timestamp_utc >= ? AND timestamp_utc < ?", tenantID, from.UTC(), to.UTC())
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var row struct {
		Inbound  decimal.Decimal
		Outbound decimal.Decimal
	}
	if err := query.Select(
		"COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) AS inbound, " +
			"COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) AS outbound").
		Scan(&row).Error; err != nil {
		return inventory.MovementRate{}, err
	}

	inbound, err := valueobject.NewQuantity(row.Inbound)
	if err != nil {
		return inventory.MovementRate{}, err
	}
	outbound, err := valueobject.NewQuantity(row.Outbound)
	if err != nil {
		return inventory.MovementRate{}, err
	}
	return inventory.MovementRate{Inbound: inbound, Outbound: outbound}, nil
}

func statsFromRow(row stockStatsRow) (inventory.StockLevelStats, error) {
	total, err := valueobject.NewQuantity(row.TotalStock)
	if err != nil {
		return inventory.StockLevelStats{}, err
	}
	available, err := valueobject.NewQuantity(row.AvailableStock)
	if err != nil {
		return inventory.StockLevelStats{}, err
	}
	reserved, err := valueobject.NewQuantity(row.ReservedStock)
	if err != nil {
		return inventory.StockLevelStats{}, err
	}
	return inventory.StockLevelStats{
		TotalStock:             total,
		TotalAvailableStock:    available,
		TotalReservedStock:     reserved,
		LowStockVariantCount:   row.LowStockCount,
		OutOfStockVariantCount: row.OutOfStockCount,
		ExpiredVariantCount:    row.ExpiredCount,
		ExpiringVariantCount:   row.ExpiringCount,
	}, nil
}

// GormDashboardMetricsCacheRepository persists computed metrics entries.
type GormDashboardMetricsCacheRepository struct {
	db *gorm.DB
}

// NewGormDashboardMetricsCacheRepository creates a new GormDashboardMetricsCacheRepository
func NewGormDashboardMetricsCacheRepository(db *gorm.DB) *GormDashboardMetricsCacheRepository {
	return &GormDashboardMetricsCacheRepository{db: db}
}

var _ inventory.DashboardMetricsCacheRepository = (*GormDashboardMetricsCacheRepository)(nil)

// Get returns the entry for the key, or ErrNotFound.
func (r *GormDashboardMetricsCacheRepository) Get(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, period inventory.MetricsPeriod) (*inventory.DashboardMetricsCacheEntry, error) {
	var entry inventory.DashboardMetricsCacheEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND scope = ? AND period_start = ? AND period_end = ? AND period_type = ?",
			tenantID, scope, period.Start.UTC(), period.End.UTC(), period.Type).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Upsert inserts or replaces the entry for its unique key.
func (r *GormDashboardMetricsCacheRepository) Upsert(ctx context.Context, entry *inventory.DashboardMetricsCacheEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "scope"},
				{Name: "period_start"}, {Name: "period_end"}, {Name: "period_type"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"payload", "is_stale", "expires_at_utc", "computed_at",
			}),
		}).
		Create(entry).Error
}

// MarkStale flags every entry of the given scopes so the next read
// recomputes.
func (r *GormDashboardMetricsCacheRepository) MarkStale(ctx context.Context, tenantID shared.TenantID, scopes []inventory.MetricsScope) (int64, error) {
	if len(scopes) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&inventory.DashboardMetricsCacheEntry{}).
		Where("tenant_id = ? AND scope IN ? AND is_stale = ?", tenantID, scopes, false).
		Update("is_stale", true)
	return result.RowsAffected, result.Error
}

// DeleteExpired removes entries whose TTL passed before the given time.
func (r *GormDashboardMetricsCacheRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at_utc < ?", before.UTC()).
		Delete(&inventory.DashboardMetricsCacheEntry{})
	return result.RowsAffected, result.Error
}
