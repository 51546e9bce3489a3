package catalog

import (
	"strings"

	"github.com/ims/engine/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// IsValid reports whether the status is known.
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusDiscontinued:
		return true
	}
	return false
}

// Product is the registry entry variants hang off. The engine validates
// stock commands against it; richer catalog administration lives outside
// this module.
type Product struct {
	ID       shared.ProductID `gorm:"type:uuid;primaryKey"`
	TenantID shared.TenantID  `gorm:"type:uuid;not null;index:idx_products_tenant"`

	Name        string        `gorm:"type:varchar(200);not null"`
	Description string        `gorm:"type:text"`
	Status      ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`

	shared.AggregateBase
	shared.SoftDelete
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// MaxProductNameLength bounds the product name.
const MaxProductNameLength = 200

// NewProduct creates an active product.
func NewProduct(tenantID shared.TenantID, name string) (*Product, error) {
	if tenantID.IsZero() {
		return nil, shared.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}

	product := &Product{
		ID:            shared.NewProductID(),
		TenantID:      tenantID,
		Name:          name,
		Status:        ProductStatusActive,
		AggregateBase: shared.NewAggregateBase(),
	}
	product.AddDomainEvent(NewProductCreatedEvent(product))
	return product, nil
}

// Update changes the product's basic information.
func (p *Product) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.Description = description
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// SetStatus transitions the product between statuses.
func (p *Product) SetStatus(status ProductStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown product status")
	}
	if p.Status == status {
		return nil
	}

	old := p.Status
	p.Status = status
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStatusChangedEvent(p, old, status))
	return nil
}

// IsActive reports whether stock commands may reference this product.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive && !p.IsDeleted()
}

// Delete soft-deletes the product. The catalog service cascades the marker
// to the product's variants in the same transaction.
func (p *Product) Delete(by shared.UserID) error {
	if err := p.MarkDeleted(by); err != nil {
		return err
	}
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductDeletedEvent(p))
	return nil
}

// Restore clears the soft-delete marker.
func (p *Product) Restore() error {
	if !p.IsDeleted() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Product is not deleted")
	}
	p.ClearDeleted()
	p.Touch()
	p.IncrementVersion()
	return nil
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Product name cannot be empty")
	}
	if len(name) > MaxProductNameLength {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Product name cannot exceed 200 characters")
	}
	return nil
}
