package warehouse

import (
	"context"

	"github.com/ims/engine/internal/domain/shared"
)

// Repository persists warehouses. Save enforces per-tenant code uniqueness
// against live rows; lookups exclude soft-deleted rows and report
// WAREHOUSE_NOT_FOUND on a miss.
type Repository interface {
	// Save creates or updates a warehouse.
	Save(ctx context.Context, w *Warehouse) error

	// FindByID finds a live warehouse within a tenant.
	FindByID(ctx context.Context, tenantID shared.TenantID, id shared.WarehouseID) (*Warehouse, error)

	// FindByIDIncludingDeleted finds a warehouse regardless of its deletion
	// marker. Restore flows use it to load the row FindByID hides.
	FindByIDIncludingDeleted(ctx context.Context, tenantID shared.TenantID, id shared.WarehouseID) (*Warehouse, error)

	// FindByCode finds a live warehouse by its code within a tenant.
	FindByCode(ctx context.Context, tenantID shared.TenantID, code string) (*Warehouse, error)

	// FindAll lists a tenant's live warehouses.
	FindAll(ctx context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*Warehouse], error)
}
