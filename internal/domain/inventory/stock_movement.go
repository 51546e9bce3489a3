package inventory

import (
	"time"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// MovementKind classifies a ledger entry. Inbound kinds carry positive
// quantities, outbound kinds negative ones; Adjustment is the only kind
// signed either way.
type MovementKind string

const (
	MovementKindOpeningBalance MovementKind = "OPENING_BALANCE"
	MovementKindPurchase       MovementKind = "PURCHASE"
	MovementKindSale           MovementKind = "SALE"
	MovementKindRefund         MovementKind = "REFUND"
	MovementKindAdjustment     MovementKind = "ADJUSTMENT"
	MovementKindWriteOff       MovementKind = "WRITE_OFF"
	MovementKindTransferOut    MovementKind = "TRANSFER_OUT"
	MovementKindTransferIn     MovementKind = "TRANSFER_IN"
)

// IsValid reports whether the kind is one of the eight ledger kinds.
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindOpeningBalance, MovementKindPurchase, MovementKindSale,
		MovementKindRefund, MovementKindAdjustment, MovementKindWriteOff,
		MovementKindTransferOut, MovementKindTransferIn:
		return true
	}
	return false
}

// IsInbound reports whether the kind always increases stock.
func (k MovementKind) IsInbound() bool {
	switch k {
	case MovementKindOpeningBalance, MovementKindPurchase, MovementKindRefund, MovementKindTransferIn:
		return true
	}
	return false
}

// IsOutbound reports whether the kind always decreases stock.
func (k MovementKind) IsOutbound() bool {
	switch k {
	case MovementKindSale, MovementKindWriteOff, MovementKindTransferOut:
		return true
	}
	return false
}

// String returns the kind's wire name.
func (k MovementKind) String() string {
	return string(k)
}

// StockMovement is one immutable entry in an inventory item's ledger. Rows
// are append-only: no operation updates or deletes a movement. Within an
// item, entries are totally ordered by (TimestampUTC, Sequence); Sequence
// breaks ties between movements recorded in the same transaction.
type StockMovement struct {
	ID              shared.MovementID      `gorm:"type:uuid;primaryKey"`
	TenantID        shared.TenantID        `gorm:"type:uuid;not null;index:idx_stock_movements_tenant_reference,priority:1"`
	InventoryItemID shared.InventoryItemID `gorm:"type:uuid;not null;index:idx_stock_movements_item_time,priority:1"`
	VariantID       shared.VariantID       `gorm:"type:uuid;not null"`
	WarehouseID     shared.WarehouseID     `gorm:"type:uuid;not null"`

	Kind MovementKind `gorm:"type:varchar(32);not null;index:idx_stock_movements_kind"`

	// Quantity is signed: positive for inbound, negative for outbound.
	Quantity valueobject.Quantity `gorm:"type:decimal(18,6);not null"`

	// RunningBalance equals the projection's TotalStock immediately after
	// this movement, i.e. the prefix sum of quantities through this entry.
	RunningBalance valueobject.Quantity `gorm:"type:decimal(18,6);not null"`

	ActorID         shared.UserID `gorm:"type:uuid;not null;index:idx_stock_movements_actor"`
	TimestampUTC    time.Time     `gorm:"not null;index:idx_stock_movements_item_time,priority:2"`
	Sequence        int           `gorm:"not null;default:0"`
	Reason          string        `gorm:"type:varchar(500);not null"`
	ReferenceNumber string        `gorm:"type:varchar(100);index:idx_stock_movements_tenant_reference,priority:2"`

	Metadata shared.Metadata `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// MaxReferenceNumberLength bounds the caller-supplied reference string.
const MaxReferenceNumberLength = 100

// NewStockMovement appends-constructs a ledger entry for an item. The signed
// quantity must match the kind's direction and the running balance must be
// the item's TotalStock after the mutation was applied.
func NewStockMovement(
	item *InventoryItem,
	kind MovementKind,
	quantity valueobject.Quantity,
	runningBalance valueobject.Quantity,
	actorID shared.UserID,
	reason string,
	referenceNumber string,
	metadata shared.Metadata,
	sequence int,
) (*StockMovement, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown movement kind")
	}
	if actorID.IsZero() {
		return nil, shared.ErrUnauthorized
	}
	if kind.IsInbound() && quantity.IsNegative() {
		return nil, shared.ErrInvalidQuantity
	}
	if kind.IsOutbound() && !quantity.IsNegative() {
		return nil, shared.ErrInvalidQuantity
	}
	if kind == MovementKindAdjustment && quantity.IsZero() {
		return nil, shared.ErrInvalidQuantity
	}
	if len(referenceNumber) > MaxReferenceNumberLength {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Reference number exceeds 100 characters")
	}
	if metadata != nil {
		if err := metadata.Validate(); err != nil {
			return nil, err
		}
	}

	return &StockMovement{
		ID:              shared.NewMovementID(),
		TenantID:        item.TenantID,
		InventoryItemID: item.ID,
		VariantID:       item.VariantID,
		WarehouseID:     item.WarehouseID,
		Kind:            kind,
		Quantity:        quantity,
		RunningBalance:  runningBalance,
		ActorID:         actorID,
		TimestampUTC:    time.Now().UTC(),
		Sequence:        sequence,
		Reason:          reason,
		ReferenceNumber: referenceNumber,
		Metadata:        metadata,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// IsInbound reports whether this movement increased stock.
func (m *StockMovement) IsInbound() bool {
	return m.Quantity.IsPositive()
}

// TransferCounterpart extracts the other warehouse of a transfer movement
// from its metadata, when present.
func (m *StockMovement) TransferCounterpart() (shared.WarehouseID, bool) {
	if m.Metadata == nil {
		return shared.WarehouseID{}, false
	}
	var key string
	switch m.Kind {
	case MovementKindTransferOut:
		key = shared.MetaDestinationWarehouseID
	case MovementKindTransferIn:
		key = shared.MetaSourceWarehouseID
	default:
		return shared.WarehouseID{}, false
	}
	raw, ok := m.Metadata.GetString(key)
	if !ok {
		return shared.WarehouseID{}, false
	}
	id, err := shared.ParseWarehouseID(raw)
	if err != nil {
		return shared.WarehouseID{}, false
	}
	return id, true
}
