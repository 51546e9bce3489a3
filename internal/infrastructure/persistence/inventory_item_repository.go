package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

// GormInventoryItemRepository implements InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)

// Save inserts a new projection row.
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock updates the row guarded by the optimistic-lock version. The
// domain mutator has already bumped Version, so the predicate matches the
// version the aggregate was loaded at.
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	result := r.db.WithContext(ctx).
		Model(item).
		Where("id = ? AND tenant_id = ? AND version = ?", item.ID, item.TenantID, item.Version-1).
		Updates(map[string]interface{}{
			"total_stock":          item.TotalStock,
			"reserved_stock":       item.ReservedStock,
			"allow_negative_stock": item.AllowNegativeStock,
			"expiry_date":          item.ExpiryDate,
			"deleted_at":           item.DeletedAt,
			"deleted_by":           item.DeletedBy,
			"version":              item.Version,
			"updated_at":           item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a live inventory item by its ID within a tenant.
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id shared.InventoryItemID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND deleted_at IS NULL", tenantID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrInventoryNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByVariantAndWarehouse resolves the unique projection row of a
// (variant, warehouse) combination.
func (r *GormInventoryItemRepository) FindByVariantAndWarehouse(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND variant_id = ? AND warehouse_id = ? AND deleted_at IS NULL",
			tenantID, variantID, warehouseID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrInventoryNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByVariant lists a variant's live projection rows across warehouses.
func (r *GormInventoryItemRepository) FindByVariant(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID) ([]*inventory.InventoryItem, error) {
	var items []*inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND variant_id = ? AND deleted_at IS NULL", tenantID, variantID).
		Order("warehouse_id").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByWarehouse lists a warehouse's live projection rows with pagination.
func (r *GormInventoryItemRepository) FindByWarehouse(ctx context.Context, tenantID shared.TenantID, warehouseID shared.WarehouseID, filter shared.Filter) (*shared.Paginated[*inventory.InventoryItem], error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Where("tenant_id = ? AND warehouse_id = ? AND deleted_at IS NULL", tenantID, warehouseID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, InventoryItemSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var items []*inventory.InventoryItem
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// FindExpiring returns items whose expiry date falls inside [now, now+window).
func (r *GormInventoryItemRepository) FindExpiring(ctx context.Context, tenantID shared.TenantID, now time.Time, window time.Duration, limit int) ([]*inventory.InventoryItem, error) {
	var items []*inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND deleted_at IS NULL AND expiry_date IS NOT NULL AND expiry_date >= ? AND expiry_date < ?",
			tenantID, now.UTC(), now.UTC().Add(window)).
		Order("expiry_date").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindLowStock returns items at or below their variant threshold. Items whose
// variant has no threshold match only when availability is zero or negative.
func (r *GormInventoryItemRepository) FindLowStock(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, limit int) ([]*inventory.InventoryItem, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Joins("JOIN variants ON variants.id = inventory_items.variant_id AND variants.tenant_id = inventory_items.tenant_id AND variants.deleted_at IS NULL").
		Where("inventory_items.tenant_id = ? AND inventory_items.deleted_at IS NULL", tenantID).
		Where("(variants.low_stock_threshold IS NOT NULL AND inventory_items.total_stock - inventory_items.reserved_stock <= variants.low_stock_threshold)" +
			" OR (variants.low_stock_threshold IS NULL AND inventory_items.total_stock - inventory_items.reserved_stock <= 0)")
	if warehouseID != nil {
		query = query.Where("inventory_items.warehouse_id = ?", *warehouseID)
	}

	var items []*inventory.InventoryItem
	if err := query.
		Order("inventory_items.total_stock - inventory_items.reserved_stock").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
