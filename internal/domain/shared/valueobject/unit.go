package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnitCategory groups units that measure the same dimension. Conversions
// are only defined between units of the same category.
type UnitCategory string

const (
	UnitCategoryCount  UnitCategory = "count"
	UnitCategoryWeight UnitCategory = "weight"
	UnitCategoryVolume UnitCategory = "volume"
	UnitCategoryLength UnitCategory = "length"
)

// IsValid reports whether the category is known.
func (c UnitCategory) IsValid() bool {
	switch c {
	case UnitCategoryCount, UnitCategoryWeight, UnitCategoryVolume, UnitCategoryLength:
		return true
	}
	return false
}

// Unit is an immutable unit of measure: a normalized code, a display name
// and a category. Units are presentation and validation metadata only; all
// ledger arithmetic happens in a variant's base unit.
type Unit struct {
	code     string
	name     string
	category UnitCategory
}

// Unit field length bounds.
const (
	UnitCodeMaxLength = 20
	UnitNameMaxLength = 50
)

// NewUnit validates and normalizes a unit. The code is trimmed and
// uppercased.
func NewUnit(code, name string, category UnitCategory) (Unit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)

	if code == "" {
		return Unit{}, errors.New("unit code cannot be empty")
	}
	if len(code) > UnitCodeMaxLength {
		return Unit{}, fmt.Errorf("unit code cannot exceed %d characters", UnitCodeMaxLength)
	}
	if name == "" {
		return Unit{}, errors.New("unit name cannot be empty")
	}
	if len(name) > UnitNameMaxLength {
		return Unit{}, fmt.Errorf("unit name cannot exceed %d characters", UnitNameMaxLength)
	}
	if !category.IsValid() {
		return Unit{}, fmt.Errorf("unknown unit category %q", category)
	}

	return Unit{code: code, name: name, category: category}, nil
}

// MustUnit builds a Unit and panics on invalid input. For tests and
// fixtures.
func MustUnit(code, name string, category UnitCategory) Unit {
	u, err := NewUnit(code, name, category)
	if err != nil {
		panic(err)
	}
	return u
}

// Code returns the normalized unit code.
func (u Unit) Code() string {
	return u.code
}

// Name returns the display name.
func (u Unit) Name() string {
	return u.name
}

// Category returns the unit's dimension.
func (u Unit) Category() UnitCategory {
	return u.category
}

// IsZero reports whether the unit is unset.
func (u Unit) IsZero() bool {
	return u.code == ""
}

// Equals compares units by code.
func (u Unit) Equals(other Unit) bool {
	return u.code == other.code
}

// String returns "CODE (Name)".
func (u Unit) String() string {
	return fmt.Sprintf("%s (%s)", u.code, u.name)
}

type unitJSON struct {
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	Category UnitCategory `json:"category"`
}

// MarshalJSON implements json.Marshaler.
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(unitJSON{Code: u.code, Name: u.name, Category: u.category})
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var v unitJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewUnit(v.Code, v.Name, v.Category)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Value implements driver.Valuer, storing the unit as JSON.
func (u Unit) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return json.Marshal(u)
}

// Scan implements sql.Scanner.
func (u *Unit) Scan(value any) error {
	if value == nil {
		*u = Unit{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Unit", value)
	}
	return u.UnmarshalJSON(data)
}

// UnitConversion is one directed conversion entry between two units of the
// same category: quantity in From times Factor equals quantity in To. The
// entries are descriptive metadata; they never change what the ledger
// stores.
type UnitConversion struct {
	From   Unit            `json:"from"`
	To     Unit            `json:"to"`
	Factor decimal.Decimal `json:"factor"`
}

// NewUnitConversion validates a conversion entry. The factor must be
// strictly positive and both units must share a category.
func NewUnitConversion(from, to Unit, factor decimal.Decimal) (UnitConversion, error) {
	if from.IsZero() || to.IsZero() {
		return UnitConversion{}, errors.New("conversion units cannot be empty")
	}
	if from.Equals(to) {
		return UnitConversion{}, errors.New("conversion units must differ")
	}
	if from.category != to.category {
		return UnitConversion{}, fmt.Errorf("cannot convert between categories %q and %q", from.category, to.category)
	}
	if !factor.IsPositive() {
		return UnitConversion{}, errors.New("conversion factor must be positive")
	}
	return UnitConversion{From: from, To: to, Factor: factor}, nil
}

// Apply converts a quantity expressed in From into To.
func (c UnitConversion) Apply(q Quantity) Quantity {
	return q.MulFactor(c.Factor)
}

// Inverse returns the reverse conversion.
func (c UnitConversion) Inverse() UnitConversion {
	return UnitConversion{
		From:   c.To,
		To:     c.From,
		Factor: decimal.NewFromInt(1).Div(c.Factor),
	}
}

// ConversionTable is the set of conversion entries attached to a variant.
// Lookups resolve direct entries first, then the inverse of a registered
// entry; converting a unit to itself is always the identity.
type ConversionTable []UnitConversion

// Find resolves the conversion from one unit code to another.
func (t ConversionTable) Find(fromCode, toCode string) (UnitConversion, bool) {
	fromCode = strings.ToUpper(strings.TrimSpace(fromCode))
	toCode = strings.ToUpper(strings.TrimSpace(toCode))
	for _, c := range t {
		if c.From.code == fromCode && c.To.code == toCode {
			return c, true
		}
	}
	for _, c := range t {
		if c.From.code == toCode && c.To.code == fromCode {
			return c.Inverse(), true
		}
	}
	return UnitConversion{}, false
}

// Contains reports whether any entry references the unit code, in either
// direction.
func (t ConversionTable) Contains(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range t {
		if c.From.code == code || c.To.code == code {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer, storing the table as JSON.
func (t ConversionTable) Value() (driver.Value, error) {
	if len(t) == 0 {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *ConversionTable) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ConversionTable", value)
	}
	return json.Unmarshal(data, t)
}

// Common units

// PieceUnit returns the count base unit used when a variant does not name
// its own.
func PieceUnit() Unit {
	return MustUnit("PCS", "Pieces", UnitCategoryCount)
}

// BoxUnit returns a count unit for packaged goods.
func BoxUnit() Unit {
	return MustUnit("BOX", "Box", UnitCategoryCount)
}

// KilogramUnit returns the weight base unit.
func KilogramUnit() Unit {
	return MustUnit("KG", "Kilogram", UnitCategoryWeight)
}

// GramUnit returns the gram weight unit.
func GramUnit() Unit {
	return MustUnit("G", "Gram", UnitCategoryWeight)
}

// LiterUnit returns the volume base unit.
func LiterUnit() Unit {
	return MustUnit("L", "Liter", UnitCategoryVolume)
}

// MilliliterUnit returns the milliliter volume unit.
func MilliliterUnit() Unit {
	return MustUnit("ML", "Milliliter", UnitCategoryVolume)
}
