package catalog

import (
	"strings"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// Variant is the sellable unit stock is tracked against. The SKU and the
// base unit are fixed at creation: every ledger quantity for this variant
// is expressed in the base unit, so changing either would silently reprice
// history. Unit conversions are descriptive metadata for callers that
// display or capture quantities in other units.
type Variant struct {
	ID        shared.VariantID `gorm:"type:uuid;primaryKey"`
	TenantID  shared.TenantID  `gorm:"type:uuid;not null;uniqueIndex:idx_variants_tenant_sku,priority:1"`
	ProductID shared.ProductID `gorm:"type:uuid;not null;index:idx_variants_product"`

	SKU  valueobject.SKU `gorm:"type:varchar(50);not null;uniqueIndex:idx_variants_tenant_sku,priority:2"`
	Name string          `gorm:"type:varchar(200);not null"`

	BaseUnit    valueobject.Unit            `gorm:"type:jsonb;not null"`
	Conversions valueobject.ConversionTable `gorm:"type:jsonb"`

	// LowStockThreshold feeds the low-stock alert boundary; absent means 0.
	LowStockThreshold *valueobject.Quantity `gorm:"type:decimal(18,6)"`

	shared.AggregateBase
	shared.SoftDelete
}

// TableName returns the table name for GORM
func (Variant) TableName() string {
	return "variants"
}

// NewVariant creates a variant under a product. SKU uniqueness per tenant
// is enforced by the repository on save and surfaces as DUPLICATE_SKU.
func NewVariant(
	tenantID shared.TenantID,
	productID shared.ProductID,
	sku valueobject.SKU,
	name string,
	baseUnit valueobject.Unit,
) (*Variant, error) {
	if tenantID.IsZero() {
		return nil, shared.ErrUnauthorized
	}
	if productID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Product ID cannot be empty")
	}
	if sku.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "SKU cannot be empty")
	}
	name = strings.TrimSpace(name)
	if err := validateVariantName(name); err != nil {
		return nil, err
	}
	if baseUnit.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidUnit.Code, "Base unit is required")
	}

	variant := &Variant{
		ID:            shared.NewVariantID(),
		TenantID:      tenantID,
		ProductID:     productID,
		SKU:           sku,
		Name:          name,
		BaseUnit:      baseUnit,
		AggregateBase: shared.NewAggregateBase(),
	}
	variant.AddDomainEvent(NewVariantCreatedEvent(variant))
	return variant, nil
}

// Rename changes the display name.
func (v *Variant) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateVariantName(name); err != nil {
		return err
	}

	v.Name = name
	v.Touch()
	v.IncrementVersion()
	v.AddDomainEvent(NewVariantUpdatedEvent(v))
	return nil
}

// AddUnitConversion registers a conversion entry. The entry must stay in
// the base unit's category and must not duplicate a registered pair in
// either direction.
func (v *Variant) AddUnitConversion(conversion valueobject.UnitConversion) error {
	if conversion.From.Category() != v.BaseUnit.Category() {
		return shared.NewDomainError(shared.ErrInvalidUnit.Code, "Conversion category does not match the base unit")
	}
	if _, exists := v.Conversions.Find(conversion.From.Code(), conversion.To.Code()); exists {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Conversion between these units is already registered")
	}

	v.Conversions = append(v.Conversions, conversion)
	v.Touch()
	v.IncrementVersion()
	v.AddDomainEvent(NewVariantUpdatedEvent(v))
	return nil
}

// RemoveUnitConversion drops the entry registered for the pair, matching
// either direction.
func (v *Variant) RemoveUnitConversion(fromCode, toCode string) error {
	fromCode = strings.ToUpper(strings.TrimSpace(fromCode))
	toCode = strings.ToUpper(strings.TrimSpace(toCode))

	for i, c := range v.Conversions {
		direct := c.From.Code() == fromCode && c.To.Code() == toCode
		inverse := c.From.Code() == toCode && c.To.Code() == fromCode
		if direct || inverse {
			v.Conversions = append(v.Conversions[:i], v.Conversions[i+1:]...)
			v.Touch()
			v.IncrementVersion()
			v.AddDomainEvent(NewVariantUpdatedEvent(v))
			return nil
		}
	}
	return shared.ErrUnitConversionNotFound
}

// ConvertToBase expresses a quantity captured in the named unit in the
// variant's base unit. The base unit itself is the identity.
func (v *Variant) ConvertToBase(quantity valueobject.Quantity, unitCode string) (valueobject.Quantity, error) {
	unitCode = strings.ToUpper(strings.TrimSpace(unitCode))
	if unitCode == "" {
		return valueobject.Quantity{}, shared.NewDomainError(shared.ErrInvalidUnit.Code, "Unit code cannot be empty")
	}
	if unitCode == v.BaseUnit.Code() {
		return quantity, nil
	}

	conversion, ok := v.Conversions.Find(unitCode, v.BaseUnit.Code())
	if !ok {
		return valueobject.Quantity{}, shared.ErrUnitConversionNotFound
	}
	return conversion.Apply(quantity), nil
}

// ConvertFromBase expresses a base-unit quantity in the named unit.
func (v *Variant) ConvertFromBase(quantity valueobject.Quantity, unitCode string) (valueobject.Quantity, error) {
	unitCode = strings.ToUpper(strings.TrimSpace(unitCode))
	if unitCode == "" {
		return valueobject.Quantity{}, shared.NewDomainError(shared.ErrInvalidUnit.Code, "Unit code cannot be empty")
	}
	if unitCode == v.BaseUnit.Code() {
		return quantity, nil
	}

	conversion, ok := v.Conversions.Find(v.BaseUnit.Code(), unitCode)
	if !ok {
		return valueobject.Quantity{}, shared.ErrUnitConversionNotFound
	}
	return conversion.Apply(quantity), nil
}

// SetLowStockThreshold updates the alert boundary. Nil clears it back to
// the default of zero.
func (v *Variant) SetLowStockThreshold(threshold *valueobject.Quantity) error {
	if threshold != nil && threshold.IsNegative() {
		return shared.NewDomainError(shared.ErrInvalidQuantity.Code, "Low stock threshold cannot be negative")
	}

	v.LowStockThreshold = threshold
	v.Touch()
	v.IncrementVersion()
	v.AddDomainEvent(NewVariantUpdatedEvent(v))
	return nil
}

// EffectiveLowStockThreshold returns the configured threshold, or zero when
// absent.
func (v *Variant) EffectiveLowStockThreshold() valueobject.Quantity {
	if v.LowStockThreshold == nil {
		return valueobject.ZeroQuantity()
	}
	return *v.LowStockThreshold
}

// Delete soft-deletes the variant.
func (v *Variant) Delete(by shared.UserID) error {
	if err := v.MarkDeleted(by); err != nil {
		return err
	}
	v.Touch()
	v.IncrementVersion()
	v.AddDomainEvent(NewVariantDeletedEvent(v))
	return nil
}

// Restore clears the soft-delete marker. The repository re-checks SKU
// uniqueness on save; a conflicting live variant surfaces as DUPLICATE_SKU.
func (v *Variant) Restore() error {
	if !v.IsDeleted() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Variant is not deleted")
	}
	v.ClearDeleted()
	v.Touch()
	v.IncrementVersion()
	return nil
}

func validateVariantName(name string) error {
	if name == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Variant name cannot be empty")
	}
	if len(name) > MaxProductNameLength {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Variant name cannot exceed 200 characters")
	}
	return nil
}
