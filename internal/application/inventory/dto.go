package inventory

import (
	"time"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// StockOperationRequest carries the common inputs of a single-item ledger
// operation. Quantity is always supplied positive; the service applies the
// sign the movement kind dictates.
type StockOperationRequest struct {
	VariantID       shared.VariantID
	WarehouseID     shared.WarehouseID
	Quantity        valueobject.Quantity
	Reason          string
	ReferenceNumber string
	Metadata        shared.Metadata
}

// AdjustmentRequest carries a signed correction quantity.
type AdjustmentRequest struct {
	VariantID       shared.VariantID
	WarehouseID     shared.WarehouseID
	Quantity        valueobject.Quantity
	Reason          string
	ReferenceNumber string
	Metadata        shared.Metadata
}

// RefundRequest returns previously sold stock. OriginalSaleReference must
// match the reference number the sale movements were recorded under; the
// refunded total across all refunds for that reference may never exceed the
// quantity sold under it.
type RefundRequest struct {
	VariantID             shared.VariantID
	WarehouseID           shared.WarehouseID
	Quantity              valueobject.Quantity
	Reason                string
	OriginalSaleReference string
	Metadata              shared.Metadata
}

// TransferRequest moves stock between two warehouses of the same tenant.
type TransferRequest struct {
	VariantID              shared.VariantID
	SourceWarehouseID      shared.WarehouseID
	DestinationWarehouseID shared.WarehouseID
	Quantity               valueobject.Quantity
	Reason                 string
	ReferenceNumber        string
}

// InventoryItemResponse represents the stock projection in responses.
type InventoryItemResponse struct {
	ID                 shared.InventoryItemID `json:"id"`
	TenantID           shared.TenantID        `json:"tenant_id"`
	VariantID          shared.VariantID       `json:"variant_id"`
	WarehouseID        shared.WarehouseID     `json:"warehouse_id"`
	TotalStock         valueobject.Quantity   `json:"total_stock"`
	ReservedStock      valueobject.Quantity   `json:"reserved_stock"`
	AvailableStock     valueobject.Quantity   `json:"available_stock"`
	AllowNegativeStock bool                   `json:"allow_negative_stock"`
	ExpiryDate         *time.Time             `json:"expiry_date,omitempty"`
	Version            int                    `json:"version"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// ToInventoryItemResponse converts a domain item to its response shape.
func ToInventoryItemResponse(item *inventory.InventoryItem) InventoryItemResponse {
	return InventoryItemResponse{
		ID:                 item.ID,
		TenantID:           item.TenantID,
		VariantID:          item.VariantID,
		WarehouseID:        item.WarehouseID,
		TotalStock:         item.TotalStock,
		ReservedStock:      item.ReservedStock,
		AvailableStock:     item.Available(),
		AllowNegativeStock: item.AllowNegativeStock,
		ExpiryDate:         item.ExpiryDate,
		Version:            item.Version,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
}

// StockMovementResponse represents one ledger entry in responses.
type StockMovementResponse struct {
	ID              shared.MovementID      `json:"id"`
	InventoryItemID shared.InventoryItemID `json:"inventory_item_id"`
	VariantID       shared.VariantID       `json:"variant_id"`
	WarehouseID     shared.WarehouseID     `json:"warehouse_id"`
	Kind            inventory.MovementKind `json:"kind"`
	Quantity        valueobject.Quantity   `json:"quantity"`
	RunningBalance  valueobject.Quantity   `json:"running_balance"`
	ActorID         shared.UserID          `json:"actor_id"`
	TimestampUTC    time.Time              `json:"timestamp_utc"`
	Reason          string                 `json:"reason"`
	ReferenceNumber string                 `json:"reference_number,omitempty"`
	Metadata        shared.Metadata        `json:"metadata,omitempty"`
}

// ToStockMovementResponse converts a domain movement to its response shape.
func ToStockMovementResponse(m *inventory.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		ID:              m.ID,
		InventoryItemID: m.InventoryItemID,
		VariantID:       m.VariantID,
		WarehouseID:     m.WarehouseID,
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		RunningBalance:  m.RunningBalance,
		ActorID:         m.ActorID,
		TimestampUTC:    m.TimestampUTC,
		Reason:          m.Reason,
		ReferenceNumber: m.ReferenceNumber,
		Metadata:        m.Metadata,
	}
}

// ToStockMovementResponses converts a slice of movements.
func ToStockMovementResponses(movements []*inventory.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, ToStockMovementResponse(m))
	}
	return out
}

// StockOperationResult is the outcome of a single-item ledger operation.
type StockOperationResult struct {
	Item     InventoryItemResponse `json:"item"`
	Movement StockMovementResponse `json:"movement"`
}

// TransferResult is the outcome of a warehouse transfer: both post-states and
// both ledger legs, sharing one reference number.
type TransferResult struct {
	Source              InventoryItemResponse `json:"source"`
	Destination         InventoryItemResponse `json:"destination"`
	OutboundMovement    StockMovementResponse `json:"outbound_movement"`
	InboundMovement     StockMovementResponse `json:"inbound_movement"`
	DestinationCreated  bool                  `json:"destination_created"`
}

// AvailabilityResponse answers a CheckAvailability read.
type AvailabilityResponse struct {
	VariantID      shared.VariantID     `json:"variant_id"`
	WarehouseID    shared.WarehouseID   `json:"warehouse_id"`
	TotalStock     valueobject.Quantity `json:"total_stock"`
	ReservedStock  valueobject.Quantity `json:"reserved_stock"`
	AvailableStock valueobject.Quantity `json:"available_stock"`
	Requested      valueobject.Quantity `json:"requested"`
	CanFulfill     bool                 `json:"can_fulfill"`
}

// CreateReservationRequest claims stock for later fulfillment. ReservationID
// is caller-supplied so external order systems can correlate their own
// identifiers through the audit trail.
type CreateReservationRequest struct {
	ReservationID   shared.ReservationID
	VariantID       shared.VariantID
	WarehouseID     shared.WarehouseID
	Quantity        valueobject.Quantity
	ExpiresAtUTC    time.Time
	ReferenceNumber string
	Notes           string
}

// ReservationResponse represents a reservation in responses.
type ReservationResponse struct {
	ID                shared.ReservationID        `json:"id"`
	TenantID          shared.TenantID             `json:"tenant_id"`
	VariantID         shared.VariantID            `json:"variant_id"`
	WarehouseID       shared.WarehouseID          `json:"warehouse_id"`
	OriginalQuantity  valueobject.Quantity        `json:"original_quantity"`
	CurrentQuantity   valueobject.Quantity        `json:"current_quantity"`
	FulfilledQuantity valueobject.Quantity        `json:"fulfilled_quantity"`
	RemainingQuantity valueobject.Quantity        `json:"remaining_quantity"`
	Status            inventory.ReservationStatus `json:"status"`
	ExpiresAtUTC      time.Time                   `json:"expires_at_utc"`
	ReferenceNumber   string                      `json:"reference_number"`
	Notes             string                      `json:"notes,omitempty"`
	CreatedBy         shared.UserID               `json:"created_by"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// ToReservationResponse converts a domain reservation to its response shape.
func ToReservationResponse(r *inventory.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                r.ID,
		TenantID:          r.TenantID,
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		OriginalQuantity:  r.OriginalQuantity,
		CurrentQuantity:   r.CurrentQuantity,
		FulfilledQuantity: r.FulfilledQuantity,
		RemainingQuantity: r.Remaining(),
		Status:            r.Status,
		ExpiresAtUTC:      r.ExpiresAtUTC,
		ReferenceNumber:   r.ReferenceNumber,
		Notes:             r.Notes,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToReservationResponses converts a slice of reservations.
func ToReservationResponses(reservations []*inventory.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, ToReservationResponse(r))
	}
	return out
}

// AlertResponse represents a derived alert in responses.
type AlertResponse struct {
	ID             shared.AlertID          `json:"id"`
	TenantID       shared.TenantID         `json:"tenant_id"`
	Kind           inventory.AlertKind     `json:"kind"`
	Severity       inventory.AlertSeverity `json:"severity"`
	VariantID      *shared.VariantID       `json:"variant_id,omitempty"`
	WarehouseID    *shared.WarehouseID     `json:"warehouse_id,omitempty"`
	Data           shared.Metadata         `json:"data,omitempty"`
	Acknowledged   bool                    `json:"acknowledged"`
	AcknowledgedAt *time.Time              `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *shared.UserID          `json:"acknowledged_by,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// ToAlertResponse converts a domain alert to its response shape.
func ToAlertResponse(a *inventory.Alert) AlertResponse {
	return AlertResponse{
		ID:             a.ID,
		TenantID:       a.TenantID,
		Kind:           a.Kind,
		Severity:       a.Severity,
		VariantID:      a.VariantID,
		WarehouseID:    a.WarehouseID,
		Data:           a.Data,
		Acknowledged:   a.Acknowledged,
		AcknowledgedAt: a.AcknowledgedAt,
		AcknowledgedBy: a.AcknowledgedBy,
		CreatedAt:      a.CreatedAt,
	}
}

// MovementHistoryFilter narrows a movement history query at the service
// boundary.
type MovementHistoryFilter struct {
	Kind            *inventory.MovementKind
	ActorID         *shared.UserID
	ReferenceNumber string
	From            *time.Time
	To              *time.Time
	Page            int
	PageSize        int
}

func (f MovementHistoryFilter) toDomain() inventory.MovementFilter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 || size > 200 {
		size = 50
	}
	return inventory.MovementFilter{
		Kind:            f.Kind,
		ActorID:         f.ActorID,
		ReferenceNumber: f.ReferenceNumber,
		From:            f.From,
		To:              f.To,
		Page:            page,
		PageSize:        size,
	}
}

// LowStockItem pairs a projection row with the variant threshold that
// classified it.
type LowStockItem struct {
	Item      InventoryItemResponse `json:"item"`
	Threshold valueobject.Quantity  `json:"threshold"`
}

// LedgerVerification compares the projection against a full ledger replay.
type LedgerVerification struct {
	VariantID     shared.VariantID     `json:"variant_id"`
	WarehouseID   shared.WarehouseID   `json:"warehouse_id"`
	TotalStock    valueobject.Quantity `json:"total_stock"`
	LedgerSum     valueobject.Quantity `json:"ledger_sum"`
	MovementCount int64                `json:"movement_count"`
	Consistent    bool                 `json:"consistent"`
}
