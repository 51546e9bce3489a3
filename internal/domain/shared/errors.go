package shared

import "errors"

// DomainError represents an expected domain-level failure. Commands return
// these as values; panics are reserved for programmer errors.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches two domain errors by code, so errors.Is works against the
// sentinel values below regardless of the message text.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// AsDomainError unwraps err into a *DomainError when possible.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

// ErrorCode returns the domain error code of err, or empty when err is not a
// domain error.
func ErrorCode(err error) string {
	if de, ok := AsDomainError(err); ok {
		return de.Code
	}
	return ""
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Invariant violations raised by stock and reservation commands
var (
	ErrOpeningBalanceExists     = NewDomainError("OPENING_BALANCE_EXISTS", "Opening balance has already been recorded for this item")
	ErrInsufficientStock        = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrInsufficientBalance      = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	ErrNegativeStockNotAllowed  = NewDomainError("NEGATIVE_STOCK_NOT_ALLOWED", "Operation would drive stock negative")
	ErrInvalidQuantity          = NewDomainError("INVALID_QUANTITY", "Quantity is invalid for this operation")
	ErrRefundExceedsSale        = NewDomainError("REFUND_EXCEEDS_SALE", "Refunded quantity exceeds the original sale")
	ErrDuplicateSKU             = NewDomainError("DUPLICATE_SKU", "SKU already exists for this tenant")
	ErrInvalidUnit              = NewDomainError("INVALID_UNIT", "Unit of measure is invalid")
	ErrUnitConversionNotFound   = NewDomainError("UNIT_CONVERSION_NOT_FOUND", "No conversion registered between the requested units")
	ErrReservationExpired       = NewDomainError("RESERVATION_EXPIRED", "Reservation has expired")
	ErrReservationAlreadyUsed   = NewDomainError("RESERVATION_ALREADY_USED", "Reservation is in a terminal state")
	ErrInvalidWarehouseTransfer = NewDomainError("INVALID_WAREHOUSE_TRANSFER", "Transfer source and destination are invalid")
)

// Not-found failures
var (
	ErrInventoryNotFound   = NewDomainError("INVENTORY_NOT_FOUND", "Inventory item not found")
	ErrReservationNotFound = NewDomainError("RESERVATION_NOT_FOUND", "Reservation not found")
	ErrVariantNotFound     = NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
	ErrWarehouseNotFound   = NewDomainError("WAREHOUSE_NOT_FOUND", "Warehouse not found")
	ErrProductNotFound     = NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
)

// ErrInfrastructureFailure is surfaced after internal retries for transient
// storage failures are exhausted.
var ErrInfrastructureFailure = NewDomainError("INFRASTRUCTURE_FAILURE", "A dependency failed while executing the command")

// WrapInfrastructure attaches the INFRASTRUCTURE_FAILURE code to an
// underlying transport or storage error while keeping the cause visible.
func WrapInfrastructure(err error) error {
	if err == nil {
		return nil
	}
	return &infrastructureError{cause: err}
}

type infrastructureError struct {
	cause error
}

func (e *infrastructureError) Error() string {
	return ErrInfrastructureFailure.Message + ": " + e.cause.Error()
}

func (e *infrastructureError) Unwrap() error {
	return e.cause
}

func (e *infrastructureError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == ErrInfrastructureFailure.Code
	}
	return false
}

func (e *infrastructureError) As(target any) bool {
	if de, ok := target.(**DomainError); ok {
		*de = ErrInfrastructureFailure
		return true
	}
	return false
}
