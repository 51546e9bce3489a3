package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// MetricsScope selects which slice of a tenant's inventory a dashboard
// computation covers: everything, or a single warehouse. The canonical
// string form ("global" or "warehouse:{id}") is the cache key component and
// the persisted column value.
type MetricsScope string

// MetricsScopeGlobal covers all warehouses of a tenant.
const MetricsScopeGlobal MetricsScope = "global"

const metricsScopeWarehousePrefix = "warehouse:"

// WarehouseMetricsScope builds the scope for a single warehouse.
func WarehouseMetricsScope(warehouseID shared.WarehouseID) MetricsScope {
	return MetricsScope(metricsScopeWarehousePrefix + warehouseID.String())
}

// ParseMetricsScope validates a scope string.
func ParseMetricsScope(s string) (MetricsScope, error) {
	if s == string(MetricsScopeGlobal) {
		return MetricsScopeGlobal, nil
	}
	if strings.HasPrefix(s, metricsScopeWarehousePrefix) {
		if _, err := shared.ParseWarehouseID(strings.TrimPrefix(s, metricsScopeWarehousePrefix)); err != nil {
			return "", shared.NewDomainError(shared.ErrInvalidInput.Code, "Invalid warehouse scope")
		}
		return MetricsScope(s), nil
	}
	return "", shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Unknown metrics scope %q", s))
}

// WarehouseID extracts the warehouse of a warehouse scope.
func (s MetricsScope) WarehouseID() (shared.WarehouseID, bool) {
	if !strings.HasPrefix(string(s), metricsScopeWarehousePrefix) {
		return shared.WarehouseID{}, false
	}
	id, err := shared.ParseWarehouseID(strings.TrimPrefix(string(s), metricsScopeWarehousePrefix))
	if err != nil {
		return shared.WarehouseID{}, false
	}
	return id, true
}

// IsGlobal reports whether the scope covers the whole tenant.
func (s MetricsScope) IsGlobal() bool {
	return s == MetricsScopeGlobal
}

// String returns the canonical scope text.
func (s MetricsScope) String() string {
	return string(s)
}

// MetricsPeriodType names the reporting window shape.
type MetricsPeriodType string

const (
	MetricsPeriodHour   MetricsPeriodType = "hour"
	MetricsPeriodDay    MetricsPeriodType = "day"
	MetricsPeriodWeek   MetricsPeriodType = "week"
	MetricsPeriodMonth  MetricsPeriodType = "month"
	MetricsPeriodCustom MetricsPeriodType = "custom"
)

// IsValid reports whether the period type is known.
func (t MetricsPeriodType) IsValid() bool {
	switch t {
	case MetricsPeriodHour, MetricsPeriodDay, MetricsPeriodWeek, MetricsPeriodMonth, MetricsPeriodCustom:
		return true
	}
	return false
}

// MetricsPeriod is a concrete reporting window.
type MetricsPeriod struct {
	Type  MetricsPeriodType `json:"type"`
	Start time.Time         `json:"start"`
	End   time.Time         `json:"end"`
}

// PeriodEndingAt derives the window of the given type that ends at the given
// instant. Custom windows must be built with NewCustomPeriod.
func PeriodEndingAt(t MetricsPeriodType, end time.Time) (MetricsPeriod, error) {
	end = end.UTC()
	var start time.Time
	switch t {
	case MetricsPeriodHour:
		start = end.Add(-time.Hour)
	case MetricsPeriodDay:
		start = end.AddDate(0, 0, -1)
	case MetricsPeriodWeek:
		start = end.AddDate(0, 0, -7)
	case MetricsPeriodMonth:
		start = end.AddDate(0, -1, 0)
	default:
		return MetricsPeriod{}, shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Unknown period type %q", t))
	}
	return MetricsPeriod{Type: t, Start: start, End: end}, nil
}

// NewCustomPeriod builds an explicit window.
func NewCustomPeriod(start, end time.Time) (MetricsPeriod, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return MetricsPeriod{}, shared.NewDomainError(shared.ErrInvalidInput.Code, "Period end must be after period start")
	}
	return MetricsPeriod{Type: MetricsPeriodCustom, Start: start, End: end}, nil
}

// MovementRate sums ledger flow over one window.
type MovementRate struct {
	Inbound  valueobject.Quantity `json:"inbound"`
	Outbound valueobject.Quantity `json:"outbound"`
}

// StockMovementRates carries the standard rate windows of a metrics payload.
type StockMovementRates struct {
	Daily   MovementRate `json:"daily"`
	Weekly  MovementRate `json:"weekly"`
	Monthly MovementRate `json:"monthly"`
}

// WarehouseMetrics is the per-warehouse slice of the dashboard breakdown.
type WarehouseMetrics struct {
	WarehouseID        shared.WarehouseID   `json:"warehouse_id"`
	TotalStock         valueobject.Quantity `json:"total_stock"`
	AvailableStock     valueobject.Quantity `json:"available_stock"`
	ReservedStock      valueobject.Quantity `json:"reserved_stock"`
	LowStockVariants   int                  `json:"low_stock_variants"`
	OutOfStockVariants int                  `json:"out_of_stock_variants"`
}

// DashboardMetrics is the computed read-model payload for one (tenant,
// scope, period) combination. TotalStockValue is present only when a price
// provider is wired into the metrics service.
type DashboardMetrics struct {
	Scope  MetricsScope  `json:"scope"`
	Period MetricsPeriod `json:"period"`

	TotalStockValue     *valueobject.Money   `json:"total_stock_value,omitempty"`
	TotalAvailableStock valueobject.Quantity `json:"total_available_stock"`
	TotalReservedStock  valueobject.Quantity `json:"total_reserved_stock"`

	LowStockVariantCount   int `json:"low_stock_variant_count"`
	OutOfStockVariantCount int `json:"out_of_stock_variant_count"`
	ExpiredVariantCount    int `json:"expired_variant_count"`
	ExpiringVariantCount   int `json:"expiring_variant_count"`

	Warehouses    []WarehouseMetrics `json:"warehouses"`
	MovementRates StockMovementRates `json:"movement_rates"`

	GeneratedAt time.Time `json:"generated_at"`
}

// DashboardMetricsCacheEntry is the persisted cache row backing the Redis
// layer. Rows are unique per (tenant, scope, period bounds, period type);
// IsStale marks entries invalidated by a stock or reservation operation so
// the next read recomputes instead of serving them.
type DashboardMetricsCacheEntry struct {
	ID          uint              `gorm:"primaryKey;autoIncrement"`
	TenantID    shared.TenantID   `gorm:"type:uuid;not null;uniqueIndex:idx_metrics_cache_key,priority:1"`
	Scope       MetricsScope      `gorm:"type:varchar(64);not null;uniqueIndex:idx_metrics_cache_key,priority:2"`
	PeriodStart time.Time         `gorm:"not null;uniqueIndex:idx_metrics_cache_key,priority:3"`
	PeriodEnd   time.Time         `gorm:"not null;uniqueIndex:idx_metrics_cache_key,priority:4"`
	PeriodType  MetricsPeriodType `gorm:"type:varchar(16);not null;uniqueIndex:idx_metrics_cache_key,priority:5"`

	Payload      []byte    `gorm:"type:jsonb;not null"`
	IsStale      bool      `gorm:"not null;default:false;index:idx_metrics_cache_stale"`
	ExpiresAtUTC time.Time `gorm:"not null"`
	ComputedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DashboardMetricsCacheEntry) TableName() string {
	return "dashboard_metrics_cache"
}

// IsUsable reports whether the entry may be served: fresh and within TTL.
func (e *DashboardMetricsCacheEntry) IsUsable(now time.Time) bool {
	return !e.IsStale && now.Before(e.ExpiresAtUTC)
}

// MetricsCacheKey renders the canonical cache key for a (tenant, scope,
// period) tuple, shared by the Redis layer and the singleflight group.
func MetricsCacheKey(tenantID shared.TenantID, scope MetricsScope, period MetricsPeriod) string {
	return fmt.Sprintf("metrics:%s:%s:%s:%d:%d",
		tenantID.String(), scope.String(), period.Type,
		period.Start.Unix(), period.End.Unix())
}
