package warehouse

import (
	"strings"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// WarehouseStatus represents the operational status of a warehouse
type WarehouseStatus string

const (
	WarehouseStatusActive   WarehouseStatus = "active"
	WarehouseStatusInactive WarehouseStatus = "inactive"
	WarehouseStatusClosed   WarehouseStatus = "closed"
)

// IsValid reports whether the status is known.
func (s WarehouseStatus) IsValid() bool {
	switch s {
	case WarehouseStatusActive, WarehouseStatusInactive, WarehouseStatusClosed:
		return true
	}
	return false
}

// Warehouse is a stock location registry entry. Inventory items and
// movements reference warehouses by ID; the engine only needs code, name,
// status and an optional postal address.
type Warehouse struct {
	ID       shared.WarehouseID `gorm:"type:uuid;primaryKey"`
	TenantID shared.TenantID    `gorm:"type:uuid;not null;uniqueIndex:idx_warehouses_tenant_code,priority:1"`

	Code   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_warehouses_tenant_code,priority:2"`
	Name   string          `gorm:"type:varchar(200);not null"`
	Status WarehouseStatus `gorm:"type:varchar(20);not null;default:'active'"`

	Address valueobject.Address `gorm:"type:jsonb"`

	shared.AggregateBase
	shared.SoftDelete
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// Warehouse field length bounds.
const (
	MaxWarehouseCodeLength = 50
	MaxWarehouseNameLength = 200
)

// NewWarehouse creates an active warehouse. The code is normalized to
// uppercase and must be unique per tenant, enforced by the repository.
func NewWarehouse(tenantID shared.TenantID, code, name string) (*Warehouse, error) {
	if tenantID.IsZero() {
		return nil, shared.ErrUnauthorized
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validateWarehouseCode(code); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateWarehouseName(name); err != nil {
		return nil, err
	}

	w := &Warehouse{
		ID:            shared.NewWarehouseID(),
		TenantID:      tenantID,
		Code:          code,
		Name:          name,
		Status:        WarehouseStatusActive,
		AggregateBase: shared.NewAggregateBase(),
	}
	w.AddDomainEvent(NewWarehouseCreatedEvent(w))
	return w, nil
}

// Rename changes the display name.
func (w *Warehouse) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateWarehouseName(name); err != nil {
		return err
	}

	w.Name = name
	w.Touch()
	w.IncrementVersion()
	w.AddDomainEvent(NewWarehouseUpdatedEvent(w))
	return nil
}

// SetAddress updates the postal address.
func (w *Warehouse) SetAddress(address valueobject.Address) {
	w.Address = address
	w.Touch()
	w.IncrementVersion()
	w.AddDomainEvent(NewWarehouseUpdatedEvent(w))
}

// SetStatus transitions the warehouse between statuses. A closed warehouse
// cannot be reopened.
func (w *Warehouse) SetStatus(status WarehouseStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown warehouse status")
	}
	if w.Status == status {
		return nil
	}
	if w.Status == WarehouseStatusClosed {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Closed warehouses cannot change status")
	}

	old := w.Status
	w.Status = status
	w.Touch()
	w.IncrementVersion()
	w.AddDomainEvent(NewWarehouseStatusChangedEvent(w, old, status))
	return nil
}

// IsActive reports whether stock commands may reference this warehouse.
func (w *Warehouse) IsActive() bool {
	return w.Status == WarehouseStatusActive && !w.IsDeleted()
}

// Delete soft-deletes the warehouse.
func (w *Warehouse) Delete(by shared.UserID) error {
	if err := w.MarkDeleted(by); err != nil {
		return err
	}
	w.Touch()
	w.IncrementVersion()
	w.AddDomainEvent(NewWarehouseDeletedEvent(w))
	return nil
}

// Restore clears the soft-delete marker. The repository re-checks code
// uniqueness on save.
func (w *Warehouse) Restore() error {
	if !w.IsDeleted() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Warehouse is not deleted")
	}
	w.ClearDeleted()
	w.Touch()
	w.IncrementVersion()
	return nil
}

func validateWarehouseCode(code string) error {
	if code == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse code cannot be empty")
	}
	if len(code) > MaxWarehouseCodeLength {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse code cannot exceed 50 characters")
	}
	return nil
}

func validateWarehouseName(name string) error {
	if name == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse name cannot be empty")
	}
	if len(name) > MaxWarehouseNameLength {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse name cannot exceed 200 characters")
	}
	return nil
}
