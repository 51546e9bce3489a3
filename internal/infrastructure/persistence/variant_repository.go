package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// GormVariantRepository implements VariantRepository using GORM. SKU
// uniqueness is checked against live rows before the write; the partial
// unique index backs it up under concurrency.
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

var _ catalog.VariantRepository = (*GormVariantRepository)(nil)

// Save creates or updates a variant, reporting DUPLICATE_SKU when another
// live variant of the tenant already carries the SKU.
func (r *GormVariantRepository) Save(ctx context.Context, variant *catalog.Variant) error {
	taken, err := r.skuTakenByOther(ctx, variant)
	if err != nil {
		return err
	}
	if taken {
		return shared.ErrDuplicateSKU
	}
	if err := r.db.WithContext(ctx).Save(variant).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrDuplicateSKU
		}
		return err
	}
	return nil
}

// SaveAll persists several variants in the caller's transaction.
func (r *GormVariantRepository) SaveAll(ctx context.Context, variants []*catalog.Variant) error {
	for _, variant := range variants {
		if err := r.Save(ctx, variant); err != nil {
			return err
		}
	}
	return nil
}

// FindByID finds a live variant within a tenant.
func (r *GormVariantRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id shared.VariantID) (*catalog.Variant, error) {
	var variant catalog.Variant
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND deleted_at IS NULL", tenantID, id).
		First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// FindByIDIncludingDeleted finds a variant regardless of its deletion marker.
func (r *GormVariantRepository) FindByIDIncludingDeleted(ctx context.Context, tenantID shared.TenantID, id shared.VariantID) (*catalog.Variant, error) {
	var variant catalog.Variant
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// FindBySKU finds a live variant by its SKU within a tenant.
func (r *GormVariantRepository) FindBySKU(ctx context.Context, tenantID shared.TenantID, sku valueobject.SKU) (*catalog.Variant, error) {
	var variant catalog.Variant
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku = ? AND deleted_at IS NULL", tenantID, sku).
		First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// FindByProduct lists a product's live variants.
func (r *GormVariantRepository) FindByProduct(ctx context.Context, tenantID shared.TenantID, productID shared.ProductID) ([]*catalog.Variant, error) {
	var variants []*catalog.Variant
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND deleted_at IS NULL", tenantID, productID).
		Order("sku").
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

// FindAll lists a tenant's live variants.
func (r *GormVariantRepository) FindAll(ctx context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*catalog.Variant], error) {
	query := r.db.WithContext(ctx).
		Model(&catalog.Variant{}).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID)
	if filter.Search != "" {
		query = query.Where("sku ILIKE ? OR name ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, VariantSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var variants []*catalog.Variant
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(variants, total, filter.Page, filter.PageSize), nil
}

func (r *GormVariantRepository) skuTakenByOther(ctx context.Context, variant *catalog.Variant) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Variant{}).
		Where("tenant_id = ? AND sku = ? AND id <> ? AND deleted_at IS NULL",
			variant.TenantID, variant.SKU, variant.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
