package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/warehouse"
)

// GormWarehouseRepository implements the warehouse Repository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

var _ warehouse.Repository = (*GormWarehouseRepository)(nil)

// Save creates or updates a warehouse, reporting ALREADY_EXISTS when another
// live warehouse of the tenant carries the code.
func (r *GormWarehouseRepository) Save(ctx context.Context, w *warehouse.Warehouse) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&warehouse.Warehouse{}).
		Where("tenant_id = ? AND code = ? AND id <> ? AND deleted_at IS NULL",
			w.TenantID, w.Code, w.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrAlreadyExists
	}
	if err := r.db.WithContext(ctx).Save(w).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a live warehouse within a tenant.
func (r *GormWarehouseRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id shared.WarehouseID) (*warehouse.Warehouse, error) {
	var w warehouse.Warehouse
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND deleted_at IS NULL", tenantID, id).
		First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrWarehouseNotFound
		}
		return nil, err
	}
	return &w, nil
}

// FindByIDIncludingDeleted finds a warehouse regardless of its deletion
// marker.
func (r *GormWarehouseRepository) FindByIDIncludingDeleted(ctx context.Context, tenantID shared.TenantID, id shared.WarehouseID) (*warehouse.Warehouse, error) {
	var w warehouse.Warehouse
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrWarehouseNotFound
		}
		return nil, err
	}
	return &w, nil
}

// FindByCode finds a live warehouse by its code within a tenant.
func (r *GormWarehouseRepository) FindByCode(ctx context.Context, tenantID shared.TenantID, code string) (*warehouse.Warehouse, error) {
	var w warehouse.Warehouse
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ? AND deleted_at IS NULL", tenantID, code).
		First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrWarehouseNotFound
		}
		return nil, err
	}
	return &w, nil
}

// FindAll lists a tenant's live warehouses.
func (r *GormWarehouseRepository) FindAll(ctx context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*warehouse.Warehouse], error) {
	query := r.db.WithContext(ctx).
		Model(&warehouse.Warehouse{}).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID)
	if filter.Search != "" {
		query = query.Where("code ILIKE ? OR name ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, WarehouseSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var warehouses []*warehouse.Warehouse
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(warehouses, total, filter.Page, filter.PageSize), nil
}
