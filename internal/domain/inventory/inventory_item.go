package inventory

import (
	"time"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// InventoryItem is the stock projection for one (tenant, variant, warehouse)
// combination and the aggregate root for stock and reservation operations.
// The movement ledger is the source of truth; TotalStock is the maintained
// prefix sum and ReservedStock the sum of open reservation remainders, kept
// so reads are O(1).
type InventoryItem struct {
	ID          shared.InventoryItemID `gorm:"type:uuid;primaryKey"`
	TenantID    shared.TenantID        `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_items_tenant_variant_warehouse,priority:1"`
	VariantID   shared.VariantID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_items_tenant_variant_warehouse,priority:2"`
	WarehouseID shared.WarehouseID     `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_items_tenant_variant_warehouse,priority:3"`

	TotalStock    valueobject.Quantity `gorm:"type:decimal(18,6);not null;default:0"`
	ReservedStock valueobject.Quantity `gorm:"type:decimal(18,6);not null;default:0"`

	// AllowNegativeStock permits stock-reducing operations to drive the
	// balance below zero (backorder-style tenants). When false, every
	// reducing operation must leave TotalStock >= 0 and Available >= 0.
	AllowNegativeStock bool `gorm:"not null;default:false"`

	// ExpiryDate marks when the stock held by this item expires. Optional;
	// when set it must not precede the item's creation instant.
	ExpiryDate *time.Time

	shared.AggregateBase
	shared.SoftDelete
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates the projection row for a (tenant, variant,
// warehouse) combination with zero stock.
func NewInventoryItem(tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) (*InventoryItem, error) {
	if tenantID.IsZero() {
		return nil, shared.ErrUnauthorized
	}
	if variantID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Variant ID cannot be empty")
	}
	if warehouseID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse ID cannot be empty")
	}

	return &InventoryItem{
		ID:            shared.NewInventoryItemID(),
		TenantID:      tenantID,
		VariantID:     variantID,
		WarehouseID:   warehouseID,
		TotalStock:    valueobject.ZeroQuantity(),
		ReservedStock: valueobject.ZeroQuantity(),
		AggregateBase: shared.NewAggregateBase(),
	}, nil
}

// Available returns TotalStock − ReservedStock, the quantity a sale or a new
// reservation may claim.
func (i *InventoryItem) Available() valueobject.Quantity {
	return i.TotalStock.Sub(i.ReservedStock)
}

// CanFulfill reports whether available stock covers the requested quantity.
// Always true when negative stock is allowed.
func (i *InventoryItem) CanFulfill(quantity valueobject.Quantity) bool {
	if i.AllowNegativeStock {
		return true
	}
	return !i.Available().LessThan(quantity)
}

// ApplyDelta mutates TotalStock by the signed movement quantity, enforcing
// the negative-stock policy: a reducing delta must leave both TotalStock and
// Available non-negative unless AllowNegativeStock is set.
func (i *InventoryItem) ApplyDelta(delta valueobject.Quantity) error {
	newTotal := i.TotalStock.Add(delta)
	if delta.IsNegative() && !i.AllowNegativeStock {
		if newTotal.IsNegative() {
			return shared.ErrNegativeStockNotAllowed
		}
		if newTotal.Sub(i.ReservedStock).IsNegative() {
			return shared.ErrNegativeStockNotAllowed
		}
	}

	i.TotalStock = newTotal
	i.Touch()
	i.IncrementVersion()
	return nil
}

// Reserve claims quantity from available stock for a reservation.
func (i *InventoryItem) Reserve(quantity valueobject.Quantity) error {
	if !quantity.IsPositive() {
		return shared.ErrInvalidQuantity
	}
	if i.Available().LessThan(quantity) {
		return shared.ErrInsufficientStock
	}

	i.ReservedStock = i.ReservedStock.Add(quantity)
	i.Touch()
	i.IncrementVersion()
	return nil
}

// ReleaseReserved returns quantity from the reserved counter to available
// stock. Releasing more than is reserved means the projection and the
// reservation set disagree, which is an internal inconsistency.
func (i *InventoryItem) ReleaseReserved(quantity valueobject.Quantity) error {
	if !quantity.IsPositive() {
		return shared.ErrInvalidQuantity
	}
	remaining := i.ReservedStock.Sub(quantity)
	if remaining.IsNegative() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Reserved stock would become negative")
	}

	i.ReservedStock = remaining
	i.Touch()
	i.IncrementVersion()
	return nil
}

// SetNegativeStockPolicy toggles whether this item may carry negative stock.
// Disabling the policy while the balance is already negative is rejected.
func (i *InventoryItem) SetNegativeStockPolicy(allow bool) error {
	if !allow && (i.TotalStock.IsNegative() || i.Available().IsNegative()) {
		return shared.ErrNegativeStockNotAllowed
	}

	i.AllowNegativeStock = allow
	i.Touch()
	i.IncrementVersion()
	return nil
}

// SetExpiryDate sets or clears the stock expiry date. The date must not
// precede the item's creation instant.
func (i *InventoryItem) SetExpiryDate(expiry *time.Time) error {
	if expiry != nil && expiry.Before(i.CreatedAt) {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Expiry date cannot precede item creation")
	}

	i.ExpiryDate = expiry
	i.Touch()
	i.IncrementVersion()
	return nil
}

// IsExpired reports whether the item's stock expiry has passed at the given
// instant.
func (i *InventoryItem) IsExpired(now time.Time) bool {
	return i.ExpiryDate != nil && !now.Before(*i.ExpiryDate)
}

// IsExpiringWithin reports whether the expiry date falls inside the window
// starting at now.
func (i *InventoryItem) IsExpiringWithin(now time.Time, window time.Duration) bool {
	if i.ExpiryDate == nil || i.IsExpired(now) {
		return false
	}
	return i.ExpiryDate.Sub(now) <= window
}

// Delete soft-deletes the projection. The movement ledger beneath it is
// never deleted.
func (i *InventoryItem) Delete(by shared.UserID) error {
	if err := i.MarkDeleted(by); err != nil {
		return err
	}
	i.Touch()
	i.IncrementVersion()
	return nil
}

// LockKey returns the canonical per-key lock identity for this item. Lock
// ordering for multi-item operations is the lexicographic order of these
// keys.
func (i *InventoryItem) LockKey() string {
	return LockKey(i.TenantID, i.VariantID, i.WarehouseID)
}

// LockKey builds the canonical serialization key for a (tenant, variant,
// warehouse) combination without loading the item.
func LockKey(tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) string {
	return tenantID.String() + ":" + variantID.String() + ":" + warehouseID.String()
}
