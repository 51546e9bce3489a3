package catalog

import (
	"context"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// ProductRepository persists products. Lookups exclude soft-deleted rows
// unless stated otherwise and report PRODUCT_NOT_FOUND on a miss.
type ProductRepository interface {
	// Save creates or updates a product.
	Save(ctx context.Context, product *Product) error

	// FindByID finds a live product within a tenant.
	FindByID(ctx context.Context, tenantID shared.TenantID, id shared.ProductID) (*Product, error)

	// FindByIDIncludingDeleted finds a product regardless of its deletion
	// marker. Restore flows use it to load the row FindByID hides.
	FindByIDIncludingDeleted(ctx context.Context, tenantID shared.TenantID, id shared.ProductID) (*Product, error)

	// FindAll lists a tenant's live products.
	FindAll(ctx context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*Product], error)
}

// VariantRepository persists variants. Save enforces per-tenant SKU
// uniqueness against live rows and reports DUPLICATE_SKU on conflict;
// lookups report VARIANT_NOT_FOUND on a miss.
type VariantRepository interface {
	// Save creates or updates a variant.
	Save(ctx context.Context, variant *Variant) error

	// SaveAll persists several variants in the caller's transaction.
	SaveAll(ctx context.Context, variants []*Variant) error

	// FindByID finds a live variant within a tenant.
	FindByID(ctx context.Context, tenantID shared.TenantID, id shared.VariantID) (*Variant, error)

	// FindByIDIncludingDeleted finds a variant regardless of its deletion
	// marker.
	FindByIDIncludingDeleted(ctx context.Context, tenantID shared.TenantID, id shared.VariantID) (*Variant, error)

	// FindBySKU finds a live variant by its SKU within a tenant.
	FindBySKU(ctx context.Context, tenantID shared.TenantID, sku valueobject.SKU) (*Variant, error)

	// FindByProduct lists a product's live variants.
	FindByProduct(ctx context.Context, tenantID shared.TenantID, productID shared.ProductID) ([]*Variant, error)

	// FindAll lists a tenant's live variants.
	FindAll(ctx context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*Variant], error)
}
