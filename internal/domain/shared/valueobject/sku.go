package valueobject

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// SKU is a variant's immutable public identifier: 3–50 characters, uppercase
// alphanumeric plus '-' and '_'. Input is normalized (trimmed, uppercased)
// on construction; uniqueness per tenant is enforced by the catalog.
type SKU struct {
	value string
}

// SKU length bounds.
const (
	SKUMinLength = 3
	SKUMaxLength = 50
)

// NewSKU normalizes and validates raw into a SKU.
func NewSKU(raw string) (SKU, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if len(normalized) < SKUMinLength || len(normalized) > SKUMaxLength {
		return SKU{}, fmt.Errorf("sku must be %d–%d characters, got %d", SKUMinLength, SKUMaxLength, len(normalized))
	}
	for _, r := range normalized {
		if !isSKURune(r) {
			return SKU{}, fmt.Errorf("sku contains invalid character %q", r)
		}
	}
	return SKU{value: normalized}, nil
}

// MustSKU builds a SKU and panics on invalid input. For tests and fixtures.
func MustSKU(raw string) SKU {
	s, err := NewSKU(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func isSKURune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// String returns the normalized SKU text.
func (s SKU) String() string {
	return s.value
}

// IsZero reports whether the SKU is unset.
func (s SKU) IsZero() bool {
	return s.value == ""
}

// Equals compares two SKUs by normalized text.
func (s SKU) Equals(other SKU) bool {
	return s.value == other.value
}

// MarshalText implements encoding.TextMarshaler.
func (s SKU) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SKU) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return errors.New("sku must not be empty")
	}
	parsed, err := NewSKU(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer, storing the normalized text.
func (s SKU) Value() (driver.Value, error) {
	return s.value, nil
}

// Scan implements sql.Scanner.
func (s *SKU) Scan(value any) error {
	if value == nil {
		*s = SKU{}
		return nil
	}
	switch v := value.(type) {
	case string:
		s.value = v
	case []byte:
		s.value = string(v)
	default:
		return fmt.Errorf("cannot scan %T into SKU", value)
	}
	return nil
}
