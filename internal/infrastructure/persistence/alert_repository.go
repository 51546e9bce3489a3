package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

// GormAlertRepository implements AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

var _ inventory.AlertRepository = (*GormAlertRepository)(nil)

// Save inserts a new alert.
func (r *GormAlertRepository) Save(ctx context.Context, alert *inventory.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// Update persists acknowledgement state.
func (r *GormAlertRepository) Update(ctx context.Context, alert *inventory.Alert) error {
	result := r.db.WithContext(ctx).
		Model(alert).
		Where("id = ? AND tenant_id = ?", alert.ID, alert.TenantID).
		Updates(map[string]interface{}{
			"acknowledged":    alert.Acknowledged,
			"acknowledged_at": alert.AcknowledgedAt,
			"acknowledged_by": alert.AcknowledgedBy,
			"updated_at":      alert.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an alert within a tenant.
func (r *GormAlertRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id shared.AlertID) (*inventory.Alert, error) {
	var alert inventory.Alert
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// FindUnacknowledged pages through a tenant's open alerts, optionally
// narrowed to one kind.
func (r *GormAlertRepository) FindUnacknowledged(ctx context.Context, tenantID shared.TenantID, kind *inventory.AlertKind, filter shared.Filter) (*shared.Paginated[*inventory.Alert], error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.Alert{}).
		Where("tenant_id = ? AND acknowledged = ?", tenantID, false)
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, AlertSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var alerts []*inventory.Alert
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(alerts, total, filter.Page, filter.PageSize), nil
}

// HasOpenAlert reports whether an unacknowledged alert of the kind already
// exists for the (variant, warehouse) pair.
func (r *GormAlertRepository) HasOpenAlert(ctx context.Context, tenantID shared.TenantID, kind inventory.AlertKind, variantID *shared.VariantID, warehouseID *shared.WarehouseID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.Alert{}).
		Where("tenant_id = ? AND kind = ? AND acknowledged = ?", tenantID, kind, false)
	if variantID != nil {
		query = query.Where("variant_id = ?", *variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	} else {
		query = query.Where("warehouse_id IS NULL")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
