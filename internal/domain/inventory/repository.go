package inventory

import (
	"context"
	"time"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// InventoryItemRepository persists the stock projection. Every query is
// tenant-scoped; implementations never issue an unscoped read.
type InventoryItemRepository interface {
	// Save inserts a new projection row.
	Save(ctx context.Context, item *InventoryItem) error

	// SaveWithLock updates the row guarded by the optimistic-lock version.
	// Returns ErrConcurrencyConflict when the stored version moved.
	SaveWithLock(ctx context.Context, item *InventoryItem) error

	FindByID(ctx context.Context, tenantID shared.TenantID, id shared.InventoryItemID) (*InventoryItem, error)

	// FindByVariantAndWarehouse resolves the unique projection row of a
	// (variant, warehouse) combination. Returns ErrInventoryNotFound when
	// absent or soft-deleted.
	FindByVariantAndWarehouse(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) (*InventoryItem, error)

	FindByVariant(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID) ([]*InventoryItem, error)
	FindByWarehouse(ctx context.Context, tenantID shared.TenantID, warehouseID shared.WarehouseID, filter shared.Filter) (*shared.Paginated[*InventoryItem], error)

	// FindExpiring returns items whose ExpiryDate falls inside
	// [now, now+window), for the alert detector.
	FindExpiring(ctx context.Context, tenantID shared.TenantID, now time.Time, window time.Duration, limit int) ([]*InventoryItem, error)

	// FindLowStock returns items whose available stock sits at or below
	// the variant threshold, joined against the catalog. Items without a
	// threshold match only when available stock is zero or negative.
	FindLowStock(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, limit int) ([]*InventoryItem, error)
}

// MovementFilter narrows ledger history queries.
type MovementFilter struct {
	Kind            *MovementKind
	ActorID         *shared.UserID
	ReferenceNumber string
	From            *time.Time
	To              *time.Time
	Page            int
	PageSize        int
}

// StockMovementRepository is the append-only ledger store. There is no
// update or delete: movements are immutable once written.
type StockMovementRepository interface {
	// Append writes one or more ledger entries inside the enclosing
	// transaction.
	Append(ctx context.Context, movements ...*StockMovement) error

	FindByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID, filter MovementFilter) (*shared.Paginated[*StockMovement], error)
	FindByReference(ctx context.Context, tenantID shared.TenantID, referenceNumber string) ([]*StockMovement, error)

	// CountByItem reports how many movements the item's ledger holds; the
	// opening-balance guard requires zero.
	CountByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (int64, error)

	// SumByItem totals the signed quantities for an item, used to verify
	// the projection against the ledger.
	SumByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (valueobject.Quantity, error)

	// SumByKindAndReference totals the signed quantities of one kind
	// recorded under a reference number; the refund guard compares the
	// refunded sum against the original sale.
	SumByKindAndReference(ctx context.Context, tenantID shared.TenantID, kind MovementKind, referenceNumber string) (valueobject.Quantity, error)

	// FindLastByItem returns the most recent ledger entry of an item in
	// (TimestampUTC, Sequence) order, or nil for an empty ledger.
	FindLastByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (*StockMovement, error)
}

// ReservationRepository persists reservations.
type ReservationRepository interface {
	// Save inserts a new reservation. The caller supplies the ID;
	// duplicates return ErrAlreadyExists.
	Save(ctx context.Context, reservation *Reservation) error

	// SaveWithLock updates the row guarded by the optimistic-lock version.
	SaveWithLock(ctx context.Context, reservation *Reservation) error

	FindByID(ctx context.Context, tenantID shared.TenantID, id shared.ReservationID) (*Reservation, error)
	FindOpenByItem(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) ([]*Reservation, error)
	FindByReference(ctx context.Context, tenantID shared.TenantID, referenceNumber string) ([]*Reservation, error)

	// SumOpenByItem totals CurrentQuantity − FulfilledQuantity over the
	// item's non-terminal reservations; it must equal the projection's
	// ReservedStock.
	SumOpenByItem(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) (valueobject.Quantity, error)

	// FindDue returns non-terminal reservations with ExpiresAtUTC <= now
	// across all tenants, oldest first, bounded for one sweeper tick.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Reservation, error)

	// FindExpiringSoon returns non-terminal reservations expiring inside
	// [now, now+window) for a tenant, for the alert detector.
	FindExpiringSoon(ctx context.Context, tenantID shared.TenantID, now time.Time, window time.Duration, limit int) ([]*Reservation, error)
}

// AlertRepository persists derived alerts.
type AlertRepository interface {
	Save(ctx context.Context, alert *Alert) error
	Update(ctx context.Context, alert *Alert) error
	FindByID(ctx context.Context, tenantID shared.TenantID, id shared.AlertID) (*Alert, error)
	FindUnacknowledged(ctx context.Context, tenantID shared.TenantID, kind *AlertKind, filter shared.Filter) (*shared.Paginated[*Alert], error)

	// HasOpenAlert reports whether an unacknowledged alert of the kind
	// already exists for the (variant, warehouse) pair, so detectors do
	// not raise duplicates.
	HasOpenAlert(ctx context.Context, tenantID shared.TenantID, kind AlertKind, variantID *shared.VariantID, warehouseID *shared.WarehouseID) (bool, error)
}

// StockLevelStats is the aggregate snapshot a metrics computation starts
// from.
type StockLevelStats struct {
	TotalStock             valueobject.Quantity
	TotalAvailableStock    valueobject.Quantity
	TotalReservedStock     valueobject.Quantity
	LowStockVariantCount   int
	OutOfStockVariantCount int
	ExpiredVariantCount    int
	ExpiringVariantCount   int
}

// MetricsReader exposes the aggregate queries behind dashboard metrics. The
// low-stock classification joins each item against its variant threshold;
// items without a threshold count only when fully out of stock.
type MetricsReader interface {
	StockLevelStats(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, now time.Time, expiringWindow time.Duration) (StockLevelStats, error)
	StockLevelStatsByWarehouse(ctx context.Context, tenantID shared.TenantID, now time.Time, expiringWindow time.Duration) ([]WarehouseMetrics, error)

	// SumMovementFlows totals inbound and outbound ledger quantities over
	// [from, to) for the scope.
	SumMovementFlows(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, from, to time.Time) (MovementRate, error)
}

// DashboardMetricsCacheRepository persists computed metrics entries.
type DashboardMetricsCacheRepository interface {
	Get(ctx context.Context, tenantID shared.TenantID, scope MetricsScope, period MetricsPeriod) (*DashboardMetricsCacheEntry, error)

	// Upsert inserts or replaces the entry for its unique key.
	Upsert(ctx context.Context, entry *DashboardMetricsCacheEntry) error

	// MarkStale flags every entry of the given scopes; the next read
	// recomputes them.
	MarkStale(ctx context.Context, tenantID shared.TenantID, scopes []MetricsScope) (int64, error)

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
