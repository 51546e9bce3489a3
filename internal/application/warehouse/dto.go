package warehouse

import (
	"time"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/warehouse"
)

// CreateWarehouseRequest carries the inputs for registering a warehouse.
type CreateWarehouseRequest struct {
	Code    string
	Name    string
	Address *AddressInput
}

// AddressInput is the optional postal address of a physical warehouse.
type AddressInput struct {
	Country    string
	Region     string
	City       string
	Street     string
	PostalCode string
}

// WarehouseResponse is the API view of a warehouse.
type WarehouseResponse struct {
	ID        shared.WarehouseID `json:"id"`
	TenantID  shared.TenantID    `json:"tenant_id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Status    string             `json:"status"`
	Country   string             `json:"country,omitempty"`
	Region    string             `json:"region,omitempty"`
	City      string             `json:"city,omitempty"`
	Street    string             `json:"street,omitempty"`
	PostalCode string            `json:"postal_code,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ToWarehouseResponse converts a domain warehouse to its API view.
func ToWarehouseResponse(w *warehouse.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:         w.ID,
		TenantID:   w.TenantID,
		Code:       w.Code,
		Name:       w.Name,
		Status:     string(w.Status),
		Country:    w.Address.Country(),
		Region:     w.Address.Region(),
		City:       w.Address.City(),
		Street:     w.Address.Street(),
		PostalCode: w.Address.PostalCode(),
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

// ToWarehouseResponses converts a slice of warehouses.
func ToWarehouseResponses(warehouses []*warehouse.Warehouse) []WarehouseResponse {
	responses := make([]WarehouseResponse, len(warehouses))
	for i, w := range warehouses {
		responses[i] = ToWarehouseResponse(w)
	}
	return responses
}
