package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Address is an immutable postal address for a physical warehouse.
type Address struct {
	country    string
	region     string
	city       string
	street     string
	postalCode string
}

// Address field length bounds.
const (
	addressFieldMaxLength = 100
	postalCodeMaxLength   = 20
)

// NewAddress validates and builds an address. Country and city are
// required; region, street and postal code may be empty.
func NewAddress(country, region, city, street, postalCode string) (Address, error) {
	country = strings.TrimSpace(country)
	region = strings.TrimSpace(region)
	city = strings.TrimSpace(city)
	street = strings.TrimSpace(street)
	postalCode = strings.TrimSpace(postalCode)

	if country == "" {
		return Address{}, errors.New("address country cannot be empty")
	}
	if city == "" {
		return Address{}, errors.New("address city cannot be empty")
	}
	for name, value := range map[string]string{
		"country": country, "region": region, "city": city, "street": street,
	} {
		if len(value) > addressFieldMaxLength {
			return Address{}, fmt.Errorf("address %s cannot exceed %d characters", name, addressFieldMaxLength)
		}
	}
	if len(postalCode) > postalCodeMaxLength {
		return Address{}, fmt.Errorf("postal code cannot exceed %d characters", postalCodeMaxLength)
	}

	return Address{
		country:    country,
		region:     region,
		city:       city,
		street:     street,
		postalCode: postalCode,
	}, nil
}

// MustAddress builds an address and panics on invalid input. For tests and
// fixtures.
func MustAddress(country, region, city, street, postalCode string) Address {
	a, err := NewAddress(country, region, city, street, postalCode)
	if err != nil {
		panic(err)
	}
	return a
}

// EmptyAddress returns the zero address.
func EmptyAddress() Address {
	return Address{}
}

// Country returns the country.
func (a Address) Country() string { return a.country }

// Region returns the region, state or province.
func (a Address) Region() string { return a.region }

// City returns the city.
func (a Address) City() string { return a.city }

// Street returns the street line.
func (a Address) Street() string { return a.street }

// PostalCode returns the postal code.
func (a Address) PostalCode() string { return a.postalCode }

// IsEmpty reports whether the address is unset.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// String renders the address on one line, most specific part first.
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.street, a.city, a.region, a.postalCode, a.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Equals compares two addresses field by field.
func (a Address) Equals(other Address) bool {
	return a == other
}

type addressJSON struct {
	Country    string `json:"country"`
	Region     string `json:"region,omitempty"`
	City       string `json:"city"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		Country:    a.country,
		Region:     a.region,
		City:       a.city,
		Street:     a.street,
		PostalCode: a.postalCode,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	var v addressJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewAddress(v.Country, v.Region, v.City, v.Street, v.PostalCode)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer, storing the address as JSON.
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
	if len(data) == 0 {
		*a = Address{}
		return nil
	}
	return a.UnmarshalJSON(data)
}
