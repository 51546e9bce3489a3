package catalog

import (
	"time"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// CreateProductRequest carries the inputs for creating a product. The
// product starts active.
type CreateProductRequest struct {
	Name        string
	Description string
}

// UpdateProductRequest replaces a product's basic information.
type UpdateProductRequest struct {
	Name        string
	Description string
}

// CreateVariantRequest carries the inputs for creating a variant. SKU and
// base unit are immutable after creation; conversions and the low-stock
// threshold may be changed later.
type CreateVariantRequest struct {
	ProductID         shared.ProductID
	SKU               valueobject.SKU
	Name              string
	BaseUnit          valueobject.Unit
	Conversions       []valueobject.UnitConversion
	LowStockThreshold *valueobject.Quantity
}

// ProductResponse represents a product in responses.
type ProductResponse struct {
	ID          shared.ProductID      `json:"id"`
	TenantID    shared.TenantID       `json:"tenant_id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Status      catalog.ProductStatus `json:"status"`
	Version     int                   `json:"version"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ToProductResponse converts a domain product to its response shape.
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		TenantID:    p.TenantID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of domain products.
func ToProductResponses(products []*catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		responses = append(responses, ToProductResponse(p))
	}
	return responses
}

// VariantResponse represents a variant in responses.
type VariantResponse struct {
	ID                shared.VariantID            `json:"id"`
	TenantID          shared.TenantID             `json:"tenant_id"`
	ProductID         shared.ProductID            `json:"product_id"`
	SKU               string                      `json:"sku"`
	Name              string                      `json:"name"`
	BaseUnit          valueobject.Unit            `json:"base_unit"`
	Conversions       valueobject.ConversionTable `json:"conversions,omitempty"`
	LowStockThreshold *valueobject.Quantity       `json:"low_stock_threshold,omitempty"`
	Version           int                         `json:"version"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// ToVariantResponse converts a domain variant to its response shape.
func ToVariantResponse(v *catalog.Variant) VariantResponse {
	return VariantResponse{
		ID:                v.ID,
		TenantID:          v.TenantID,
		ProductID:         v.ProductID,
		SKU:               v.SKU.String(),
		Name:              v.Name,
		BaseUnit:          v.BaseUnit,
		Conversions:       v.Conversions,
		LowStockThreshold: v.LowStockThreshold,
		Version:           v.Version,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}

// ToVariantResponses converts a slice of domain variants.
func ToVariantResponses(variants []*catalog.Variant) []VariantResponse {
	responses := make([]VariantResponse, 0, len(variants))
	for _, v := range variants {
		responses = append(responses, ToVariantResponse(v))
	}
	return responses
}

// QuantityConversionResponse reports a quantity expressed in another of the
// variant's registered units.
type QuantityConversionResponse struct {
	VariantID      shared.VariantID     `json:"variant_id"`
	SKU            string               `json:"sku"`
	SourceQuantity valueobject.Quantity `json:"source_quantity"`
	SourceUnit     string               `json:"source_unit"`
	ResultQuantity valueobject.Quantity `json:"result_quantity"`
	ResultUnit     string               `json:"result_unit"`
}
