package shared

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is the JSON-serializable payload attached to stock movements.
// Leaves are restricted to strings, booleans, numbers and nil; values may be
// arrays or nested maps of the same. Anything else is rejected at
// construction so the ledger never stores opaque references.
type Metadata map[string]any

// Well-known metadata keys written by the typed constructors.
const (
	MetaSourceWarehouseID      = "source_warehouse_id"
	MetaDestinationWarehouseID = "destination_warehouse_id"
	MetaTransferReference      = "transfer_reference"
	MetaOriginalSaleReference  = "original_sale_reference"
	MetaSaleOrderReference     = "sale_order_reference"
)

// NewMetadata validates and copies the given map.
func NewMetadata(values map[string]any) (Metadata, error) {
	m := Metadata{}
	for k, v := range values {
		if k == "" {
			return nil, NewDomainError(ErrInvalidInput.Code, "metadata keys must not be empty")
		}
		if err := validateMetadataValue(v); err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// TransferMetadata builds the movement metadata shape shared by both legs of
// a warehouse transfer.
func TransferMetadata(source, destination WarehouseID, reference string) Metadata {
	return Metadata{
		MetaSourceWarehouseID:      source.String(),
		MetaDestinationWarehouseID: destination.String(),
		MetaTransferReference:      reference,
	}
}

// RefundMetadata builds the movement metadata shape for a refund, pointing
// back at the sale being refunded.
func RefundMetadata(originalSaleReference string) Metadata {
	return Metadata{MetaOriginalSaleReference: originalSaleReference}
}

// SaleMetadata builds the movement metadata shape for a sale.
func SaleMetadata(orderReference string) Metadata {
	return Metadata{MetaSaleOrderReference: orderReference}
}

func validateMetadataValue(v any) error {
	switch val := v.(type) {
	case nil, string, bool,
		int, int32, int64, uint, uint32, uint64,
		float32, float64, json.Number:
		return nil
	case []any:
		for _, item := range val {
			if err := validateMetadataValue(item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for k, item := range val {
			if k == "" {
				return NewDomainError(ErrInvalidInput.Code, "metadata keys must not be empty")
			}
			if err := validateMetadataValue(item); err != nil {
				return err
			}
		}
		return nil
	case Metadata:
		return validateMetadataValue(map[string]any(val))
	default:
		return NewDomainError(ErrInvalidInput.Code, fmt.Sprintf("metadata value of type %T is not serializable", v))
	}
}

// Validate re-checks every leaf; used when metadata arrives from the boundary
// already shaped as a map.
func (m Metadata) Validate() error {
	return validateMetadataValue(map[string]any(m))
}

// Merge returns a copy of m with the entries of other applied on top.
func (m Metadata) Merge(other Metadata) Metadata {
	out := Metadata{}
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// GetString returns the string value stored under key, if any.
func (m Metadata) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Value implements driver.Valuer, storing the map as JSON.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}
