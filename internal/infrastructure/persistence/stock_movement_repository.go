package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// GormStockMovementRepository implements the append-only ledger store using
// GORM. There is no update or delete path: movements are immutable rows.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)

// Append writes one or more ledger entries inside the enclosing transaction.
func (r *GormStockMovementRepository) Append(ctx context.Context, movements ...*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(movements).Error
}

// FindByItem returns an item's ledger page in (TimestampUTC, Sequence)
// descending order, newest first.
func (r *GormStockMovementRepository) FindByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID, filter inventory.MovementFilter) (*shared.Paginated[*inventory.StockMovement], error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("tenant_id = ? AND inventory_item_id = ?", tenantID, itemID)

	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.ReferenceNumber != "" {
		query = query.Where("reference_number = ?", filter.ReferenceNumber)
	}
	if filter.From != nil {
		query = query.Where("timestamp_utc >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("timestamp_utc < ?", filter.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var movements []*inventory.StockMovement
	if err := query.
		Order("timestamp_utc DESC, sequence DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(movements, total, page, pageSize), nil
}

// FindByReference returns every movement recorded under a reference number,
// oldest first.
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, tenantID shared.TenantID, referenceNumber string) ([]*inventory.StockMovement, error) {
	var movements []*inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_number = ?", tenantID, referenceNumber).
		Order("timestamp_utc, sequence").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// CountByItem reports how many movements the item's ledger holds.
func (r *GormStockMovementRepository) CountByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("tenant_id = ? AND inventory_item_id = ?", tenantID, itemID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumByItem totals the signed quantities of an item's ledger.
func (r *GormStockMovementRepository) SumByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (valueobject.Quantity, error) {
	return r.sumQuantity(ctx, r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("tenant_id = ? AND inventory_item_id = ?", tenantID, itemID))
}

// SumByKindAndReference totals the signed quantities of one kind recorded
// under a reference number.
func (r *GormStockMovementRepository) SumByKindAndReference(ctx context.Context, tenantID shared.TenantID, kind inventory.MovementKind, referenceNumber string) (valueobject.Quantity, error) {
	return r.sumQuantity(ctx, r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("tenant_id = ? AND kind = ? AND reference_number = ?", tenantID, kind, referenceNumber))
}

// FindLastByItem returns the most recent ledger entry of an item, or nil for
// an empty ledger.
func (r *GormStockMovementRepository) FindLastByItem(ctx context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (*inventory.StockMovement, error) {
	var movement inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND inventory_item_id = ?", tenantID, itemID).
		Order("timestamp_utc DESC, sequence DESC").
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movement, nil
}

func (r *GormStockMovementRepository) sumQuantity(_ context.Context, query *gorm.DB) (valueobject.Quantity, error) {
	var sum valueobject.Quantity
	row := query.Select("COALESCE(SUM(quantity), 0)").Row()
	if err := row.Scan(&sum); err != nil {
		return valueobject.ZeroQuantity(), err
	}
	return sum, nil
}
