package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// openReservationStatuses are the non-terminal lifecycle states still holding
// stock.
var openReservationStatuses = []inventory.ReservationStatus{
	inventory.ReservationStatusActive,
	inventory.ReservationStatusPartiallyFulfilled,
}

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)

// Save inserts a new reservation. The ID is caller-supplied, so a duplicate
// insert reports ALREADY_EXISTS instead of silently upserting.
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.Reservation) error {
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock updates the row guarded by the optimistic-lock version.
func (r *GormReservationRepository) SaveWithLock(ctx context.Context, reservation *inventory.Reservation) error {
	result := r.db.WithContext(ctx).
		Model(reservation).
		Where("id = ? AND tenant_id = ? AND version = ?", reservation.ID, reservation.TenantID, reservation.Version-1).
		Updates(map[string]interface{}{
			"current_quantity":    reservation.CurrentQuantity,
			"fulfilled_quantity":  reservation.FulfilledQuantity,
			"expires_at_utc":      reservation.ExpiresAtUTC,
			"status":              reservation.Status,
			"cancellation_reason": reservation.CancellationReason,
			"fulfilled_at":        reservation.FulfilledAt,
			"cancelled_at":        reservation.CancelledAt,
			"expired_at":          reservation.ExpiredAt,
			"version":             reservation.Version,
			"updated_at":          reservation.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a reservation within a tenant.
func (r *GormReservationRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id shared.ReservationID) (*inventory.Reservation, error) {
	var reservation inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// FindOpenByItem lists the non-terminal reservations of a (variant,
// warehouse) combination, earliest expiry first.
func (r *GormReservationRepository) FindOpenByItem(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) ([]*inventory.Reservation, error) {
	var reservations []*inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND variant_id = ? AND warehouse_id = ? AND status IN ?",
			tenantID, variantID, warehouseID, openReservationStatuses).
		Order("expires_at_utc").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindByReference lists every reservation recorded under a reference number.
func (r *GormReservationRepository) FindByReference(ctx context.Context, tenantID shared.TenantID, referenceNumber string) ([]*inventory.Reservation, error) {
	var reservations []*inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_number = ?", tenantID, referenceNumber).
		Order("created_at").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// SumOpenByItem totals the unfulfilled remainder held by the item's
// non-terminal reservations.
func (r *GormReservationRepository) SumOpenByItem(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) (valueobject.Quantity, error) {
	var sum valueobject.Quantity
	row := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("tenant_id = ? AND variant_id = ? AND warehouse_id = ? AND status IN ?",
			tenantID, variantID, warehouseID, openReservationStatuses).
		Select("COALESCE(SUM(current_quantity - fulfilled_quantity), 0)").
		Row()
	if err := row.Scan(&sum); err != nil {
		return valueobject.ZeroQuantity(), err
	}
	return sum, nil
}

// FindDue returns overdue non-terminal reservations across all tenants,
// oldest expiry first. The sweeper is the only cross-tenant reader.
func (r *GormReservationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*inventory.Reservation, error) {
	var reservations []*inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at_utc <= ?", openReservationStatuses, now.UTC()).
		Order("expires_at_utc").
		Limit(limit).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindExpiringSoon returns a tenant's non-terminal reservations expiring
// inside [now, now+window).
func (r *GormReservationRepository) FindExpiringSoon(ctx context.Context, tenantID shared.TenantID, now time.Time, window time.Duration, limit int) ([]*inventory.Reservation, error) {
	var reservations []*inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND expires_at_utc >= ? AND expires_at_utc < ?",
			tenantID, openReservationStatuses, now.UTC(), now.UTC().Add(window)).
		Order("expires_at_utc").
		Limit(limit).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
