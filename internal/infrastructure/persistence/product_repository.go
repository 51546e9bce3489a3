package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/shared"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// Save creates or updates a product.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// FindByID finds a live product within a tenant.
func (r *GormProductRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id shared.ProductID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND deleted_at IS NULL", tenantID, id).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDIncludingDeleted finds a product regardless of its deletion marker.
func (r *GormProductRepository) FindByIDIncludingDeleted(ctx context.Context, tenantID shared.TenantID, id shared.ProductID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindAll lists a tenant's live products.
func (r *GormProductRepository) FindAll(ctx context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*catalog.Product], error) {
	query := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID)
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ProductSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var products []*catalog.Product
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(products, total, filter.Page, filter.PageSize), nil
}
