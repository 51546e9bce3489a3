package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is an immutable fixed-point stock quantity with precision 18 and
// scale 6. All ledger arithmetic is exact; floating point never enters the
// type. A Quantity is always expressed in the owning variant's base unit —
// unit conversions are catalog metadata and never touch ledger math.
type Quantity struct {
	value decimal.Decimal
}

// QuantityScale is the number of fractional digits carried by a Quantity.
const QuantityScale = 6

// QuantityPrecision is the maximum number of significant digits.
const QuantityPrecision = 18

// ErrQuantityPrecision is returned when a value does not fit the fixed-point
// representation.
var ErrQuantityPrecision = fmt.Errorf("quantity exceeds precision %d scale %d", QuantityPrecision, QuantityScale)

// NewQuantity validates d against the fixed-point bounds and wraps it.
func NewQuantity(d decimal.Decimal) (Quantity, error) {
	if d.Exponent() < -QuantityScale {
		// More fractional digits than the scale allows would make later
		// arithmetic lossy, so reject instead of rounding.
		if !d.Equal(d.Truncate(QuantityScale)) {
			return Quantity{}, ErrQuantityPrecision
		}
		d = d.Truncate(QuantityScale)
	}
	if countDigits(d) > QuantityPrecision {
		return Quantity{}, ErrQuantityPrecision
	}
	return Quantity{value: d}, nil
}

// NewQuantityFromString parses a decimal string into a Quantity.
func NewQuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return NewQuantity(d)
}

// NewQuantityFromInt builds a Quantity from an integer count.
func NewQuantityFromInt(n int64) Quantity {
	return Quantity{value: decimal.NewFromInt(n)}
}

// MustQuantity parses a decimal string and panics on error. For constants
// and tests only.
func MustQuantity(s string) Quantity {
	q, err := NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return q
}

// ZeroQuantity returns the zero value.
func ZeroQuantity() Quantity {
	return Quantity{value: decimal.Zero}
}

// Decimal returns the underlying decimal value.
func (q Quantity) Decimal() decimal.Decimal {
	return q.value
}

// Add returns q + other.
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value.Add(other.value)}
}

// Sub returns q − other.
func (q Quantity) Sub(other Quantity) Quantity {
	return Quantity{value: q.value.Sub(other.value)}
}

// Neg returns −q.
func (q Quantity) Neg() Quantity {
	return Quantity{value: q.value.Neg()}
}

// Abs returns |q|.
func (q Quantity) Abs() Quantity {
	return Quantity{value: q.value.Abs()}
}

// MulFactor multiplies by a conversion factor, truncating to the scale.
// Used only for unit-conversion display math, never for the ledger.
func (q Quantity) MulFactor(factor decimal.Decimal) Quantity {
	return Quantity{value: q.value.Mul(factor).Truncate(QuantityScale)}
}

// Cmp compares q with other: −1 when less, 0 when equal, +1 when greater.
func (q Quantity) Cmp(other Quantity) int {
	return q.value.Cmp(other.value)
}

// Equal reports q == other.
func (q Quantity) Equal(other Quantity) bool {
	return q.value.Equal(other.value)
}

// LessThan reports q < other.
func (q Quantity) LessThan(other Quantity) bool {
	return q.value.LessThan(other.value)
}

// GreaterThan reports q > other.
func (q Quantity) GreaterThan(other Quantity) bool {
	return q.value.GreaterThan(other.value)
}

// IsZero reports q == 0.
func (q Quantity) IsZero() bool {
	return q.value.IsZero()
}

// IsNegative reports q < 0.
func (q Quantity) IsNegative() bool {
	return q.value.IsNegative()
}

// IsPositive reports q > 0.
func (q Quantity) IsPositive() bool {
	return q.value.IsPositive()
}

// String renders the exact decimal value.
func (q Quantity) String() string {
	return q.value.String()
}

// MarshalJSON renders the quantity as a JSON string to preserve exactness.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.value.String())
}

// UnmarshalJSON accepts both string and bare-number encodings.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare number
		s = string(data)
	}
	parsed, err := NewQuantityFromString(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// Value implements driver.Valuer for numeric columns.
func (q Quantity) Value() (driver.Value, error) {
	return q.value.String(), nil
}

// Scan implements sql.Scanner.
func (q *Quantity) Scan(value any) error {
	if value == nil {
		*q = ZeroQuantity()
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	parsed, err := NewQuantity(d)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func countDigits(d decimal.Decimal) int {
	coeff := d.Coefficient()
	if coeff.Sign() == 0 {
		return 1
	}
	digits := len(coeff.String())
	if coeff.Sign() < 0 {
		digits--
	}
	return digits
}
