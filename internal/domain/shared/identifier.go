package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// Identifiers are value-typed: each entity kind gets its own wrapper struct
// so IDs of different kinds can never be compared or assigned to each other,
// even when the underlying bytes match. The embedded uuid.UUID provides
// String, text marshaling and sql driver support.

// TenantID identifies a tenant, the top-level data partition.
type TenantID struct{ uuid.UUID }

// UserID identifies an actor (human or system) performing a command.
type UserID struct{ uuid.UUID }

// ProductID identifies a product.
type ProductID struct{ uuid.UUID }

// VariantID identifies a sellable variant of a product.
type VariantID struct{ uuid.UUID }

// WarehouseID identifies a warehouse.
type WarehouseID struct{ uuid.UUID }

// InventoryItemID identifies an inventory item, the per-(tenant, variant,
// warehouse) stock aggregate.
type InventoryItemID struct{ uuid.UUID }

// MovementID identifies a stock movement in the ledger.
type MovementID struct{ uuid.UUID }

// ReservationID identifies a stock reservation.
type ReservationID struct{ uuid.UUID }

// AlertID identifies a derived inventory alert.
type AlertID struct{ uuid.UUID }

// NewTenantID generates a new random TenantID.
func NewTenantID() TenantID { return TenantID{uuid.New()} }

// NewUserID generates a new random UserID.
func NewUserID() UserID { return UserID{uuid.New()} }

// NewProductID generates a new random ProductID.
func NewProductID() ProductID { return ProductID{uuid.New()} }

// NewVariantID generates a new random VariantID.
func NewVariantID() VariantID { return VariantID{uuid.New()} }

// NewWarehouseID generates a new random WarehouseID.
func NewWarehouseID() WarehouseID { return WarehouseID{uuid.New()} }

// NewInventoryItemID generates a new random InventoryItemID.
func NewInventoryItemID() InventoryItemID { return InventoryItemID{uuid.New()} }

// NewMovementID generates a new random MovementID.
func NewMovementID() MovementID { return MovementID{uuid.New()} }

// NewReservationID generates a new random ReservationID.
func NewReservationID() ReservationID { return ReservationID{uuid.New()} }

// NewAlertID generates a new random AlertID.
func NewAlertID() AlertID { return AlertID{uuid.New()} }

// IsZero reports whether the ID holds the nil UUID.
func (id TenantID) IsZero() bool        { return id.UUID == uuid.Nil }
func (id UserID) IsZero() bool          { return id.UUID == uuid.Nil }
func (id ProductID) IsZero() bool       { return id.UUID == uuid.Nil }
func (id VariantID) IsZero() bool       { return id.UUID == uuid.Nil }
func (id WarehouseID) IsZero() bool     { return id.UUID == uuid.Nil }
func (id InventoryItemID) IsZero() bool { return id.UUID == uuid.Nil }
func (id MovementID) IsZero() bool      { return id.UUID == uuid.Nil }
func (id ReservationID) IsZero() bool   { return id.UUID == uuid.Nil }
func (id AlertID) IsZero() bool         { return id.UUID == uuid.Nil }

func parseID(kind, s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", kind, s, err)
	}
	if u == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s must not be the nil UUID", kind)
	}
	return u, nil
}

// ParseTenantID parses a TenantID from its string form, rejecting nil UUIDs.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseID("tenant id", s)
	return TenantID{u}, err
}

// ParseUserID parses a UserID from its string form, rejecting nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseID("user id", s)
	return UserID{u}, err
}

// ParseProductID parses a ProductID from its string form, rejecting nil UUIDs.
func ParseProductID(s string) (ProductID, error) {
	u, err := parseID("product id", s)
	return ProductID{u}, err
}

// ParseVariantID parses a VariantID from its string form, rejecting nil UUIDs.
func ParseVariantID(s string) (VariantID, error) {
	u, err := parseID("variant id", s)
	return VariantID{u}, err
}

// ParseWarehouseID parses a WarehouseID from its string form, rejecting nil UUIDs.
func ParseWarehouseID(s string) (WarehouseID, error) {
	u, err := parseID("warehouse id", s)
	return WarehouseID{u}, err
}

// ParseInventoryItemID parses an InventoryItemID from its string form, rejecting nil UUIDs.
func ParseInventoryItemID(s string) (InventoryItemID, error) {
	u, err := parseID("inventory item id", s)
	return InventoryItemID{u}, err
}

// ParseMovementID parses a MovementID from its string form, rejecting nil UUIDs.
func ParseMovementID(s string) (MovementID, error) {
	u, err := parseID("movement id", s)
	return MovementID{u}, err
}

// ParseReservationID parses a ReservationID from its string form, rejecting nil UUIDs.
func ParseReservationID(s string) (ReservationID, error) {
	u, err := parseID("reservation id", s)
	return ReservationID{u}, err
}

// ParseAlertID parses an AlertID from its string form, rejecting nil UUIDs.
func ParseAlertID(s string) (AlertID, error) {
	u, err := parseID("alert id", s)
	return AlertID{u}, err
}
