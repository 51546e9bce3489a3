package catalog

import (
	"github.com/ims/engine/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeProduct = "Product"
	AggregateTypeVariant = "Variant"
)

// Event type constants
const (
	EventTypeProductCreated       = "ProductCreated"
	EventTypeProductUpdated       = "ProductUpdated"
	EventTypeProductStatusChanged = "ProductStatusChanged"
	EventTypeProductDeleted       = "ProductDeleted"
	EventTypeVariantCreated       = "VariantCreated"
	EventTypeVariantUpdated       = "VariantUpdated"
	EventTypeVariantDeleted       = "VariantDeleted"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID shared.ProductID `json:"product_id"`
	Name      string           `json:"name"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID.UUID, product.TenantID.UUID),
		ProductID:       product.ID,
		Name:            product.Name,
	}
}

// EventType returns the event type name
func (e *ProductCreatedEvent) EventType() string {
	return EventTypeProductCreated
}

// ProductUpdatedEvent is published when a product's details change
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID   shared.ProductID `json:"product_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(product *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, product.ID.UUID, product.TenantID.UUID),
		ProductID:       product.ID,
		Name:            product.Name,
		Description:     product.Description,
	}
}

// EventType returns the event type name
func (e *ProductUpdatedEvent) EventType() string {
	return EventTypeProductUpdated
}

// ProductStatusChangedEvent is published when a product's status changes
type ProductStatusChangedEvent struct {
	shared.BaseDomainEvent
	ProductID shared.ProductID `json:"product_id"`
	OldStatus ProductStatus    `json:"old_status"`
	NewStatus ProductStatus    `json:"new_status"`
}

// NewProductStatusChangedEvent creates a new ProductStatusChangedEvent
func NewProductStatusChangedEvent(product *Product, oldStatus, newStatus ProductStatus) *ProductStatusChangedEvent {
	return &ProductStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductStatusChanged, AggregateTypeProduct, product.ID.UUID, product.TenantID.UUID),
		ProductID:       product.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// EventType returns the event type name
func (e *ProductStatusChangedEvent) EventType() string {
	return EventTypeProductStatusChanged
}

// ProductDeletedEvent is published when a product is soft-deleted
type ProductDeletedEvent struct {
	shared.BaseDomainEvent
	ProductID shared.ProductID `json:"product_id"`
	Name      string           `json:"name"`
}

// NewProductDeletedEvent creates a new ProductDeletedEvent
func NewProductDeletedEvent(product *Product) *ProductDeletedEvent {
	return &ProductDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductDeleted, AggregateTypeProduct, product.ID.UUID, product.TenantID.UUID),
		ProductID:       product.ID,
		Name:            product.Name,
	}
}

// EventType returns the event type name
func (e *ProductDeletedEvent) EventType() string {
	return EventTypeProductDeleted
}

// VariantCreatedEvent is published when a new variant is created
type VariantCreatedEvent struct {
	shared.BaseDomainEvent
	VariantID shared.VariantID `json:"variant_id"`
	ProductID shared.ProductID `json:"product_id"`
	SKU       string           `json:"sku"`
	Name      string           `json:"name"`
	BaseUnit  string           `json:"base_unit"`
}

// NewVariantCreatedEvent creates a new VariantCreatedEvent
func NewVariantCreatedEvent(variant *Variant) *VariantCreatedEvent {
	return &VariantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVariantCreated, AggregateTypeVariant, variant.ID.UUID, variant.TenantID.UUID),
		VariantID:       variant.ID,
		ProductID:       variant.ProductID,
		SKU:             variant.SKU.String(),
		Name:            variant.Name,
		BaseUnit:        variant.BaseUnit.Code(),
	}
}

// EventType returns the event type name
func (e *VariantCreatedEvent) EventType() string {
	return EventTypeVariantCreated
}

// VariantUpdatedEvent is published when a variant's mutable details change
type VariantUpdatedEvent struct {
	shared.BaseDomainEvent
	VariantID shared.VariantID `json:"variant_id"`
	ProductID shared.ProductID `json:"product_id"`
	SKU       string           `json:"sku"`
	Name      string           `json:"name"`
}

// NewVariantUpdatedEvent creates a new VariantUpdatedEvent
func NewVariantUpdatedEvent(variant *Variant) *VariantUpdatedEvent {
	return &VariantUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVariantUpdated, AggregateTypeVariant, variant.ID.UUID, variant.TenantID.UUID),
		VariantID:       variant.ID,
		ProductID:       variant.ProductID,
		SKU:             variant.SKU.String(),
		Name:            variant.Name,
	}
}

// EventType returns the event type name
func (e *VariantUpdatedEvent) EventType() string {
	return EventTypeVariantUpdated
}

// VariantDeletedEvent is published when a variant is soft-deleted
type VariantDeletedEvent struct {
	shared.BaseDomainEvent
	VariantID shared.VariantID `json:"variant_id"`
	ProductID shared.ProductID `json:"product_id"`
	SKU       string           `json:"sku"`
}

// NewVariantDeletedEvent creates a new VariantDeletedEvent
func NewVariantDeletedEvent(variant *Variant) *VariantDeletedEvent {
	return &VariantDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVariantDeleted, AggregateTypeVariant, variant.ID.UUID, variant.TenantID.UUID),
		VariantID:       variant.ID,
		ProductID:       variant.ProductID,
		SKU:             variant.SKU.String(),
	}
}

// EventType returns the event type name
func (e *VariantDeletedEvent) EventType() string {
	return EventTypeVariantDeleted
}
