package inventory

import (
	"time"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// ReservationStatus is the reservation lifecycle state.
type ReservationStatus string

const (
	ReservationStatusActive             ReservationStatus = "ACTIVE"
	ReservationStatusPartiallyFulfilled ReservationStatus = "PARTIALLY_FULFILLED"
	ReservationStatusFulfilled          ReservationStatus = "FULFILLED"
	ReservationStatusCancelled          ReservationStatus = "CANCELLED"
	ReservationStatusExpired            ReservationStatus = "EXPIRED"
)

// IsValid reports whether the status is a known lifecycle state.
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusPartiallyFulfilled,
		ReservationStatusFulfilled, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusFulfilled, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	}
	return false
}

// String returns the status wire name.
func (s ReservationStatus) String() string {
	return string(s)
}

// Reservation is a claim against available stock of one (tenant, variant,
// warehouse) combination. It reduces availability through the item's
// reserved counter without ever touching the movement ledger. The ID is
// caller-supplied so external order systems can correlate their own
// identifiers through the audit trail.
type Reservation struct {
	ID          shared.ReservationID `gorm:"type:uuid;primaryKey"`
	TenantID    shared.TenantID      `gorm:"type:uuid;not null;index:idx_reservations_tenant_status,priority:1"`
	VariantID   shared.VariantID     `gorm:"type:uuid;not null;index:idx_reservations_variant_warehouse,priority:1"`
	WarehouseID shared.WarehouseID   `gorm:"type:uuid;not null;index:idx_reservations_variant_warehouse,priority:2"`

	OriginalQuantity  valueobject.Quantity `gorm:"type:decimal(18,6);not null"`
	CurrentQuantity   valueobject.Quantity `gorm:"type:decimal(18,6);not null"`
	FulfilledQuantity valueobject.Quantity `gorm:"type:decimal(18,6);not null;default:0"`

	ExpiresAtUTC time.Time         `gorm:"not null;index:idx_reservations_expires_at"`
	Status       ReservationStatus `gorm:"type:varchar(32);not null;index:idx_reservations_tenant_status,priority:2"`

	ReferenceNumber string        `gorm:"type:varchar(100);not null;index:idx_reservations_reference"`
	Notes           string        `gorm:"type:varchar(500)"`
	CreatedBy       shared.UserID `gorm:"type:uuid;not null"`

	CancellationReason string     `gorm:"type:varchar(500)"`
	FulfilledAt        *time.Time
	CancelledAt        *time.Time
	ExpiredAt          *time.Time

	shared.AggregateBase
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "reservations"
}

// NewReservation creates an Active reservation. Availability is the
// caller's concern: the stock service checks it against the item under the
// item's lock before persisting.
func NewReservation(
	id shared.ReservationID,
	tenantID shared.TenantID,
	variantID shared.VariantID,
	warehouseID shared.WarehouseID,
	quantity valueobject.Quantity,
	expiresAt time.Time,
	referenceNumber string,
	notes string,
	createdBy shared.UserID,
) (*Reservation, error) {
	if id.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Reservation ID is required")
	}
	if tenantID.IsZero() || createdBy.IsZero() {
		return nil, shared.ErrUnauthorized
	}
	if variantID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Variant ID cannot be empty")
	}
	if warehouseID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	if !expiresAt.After(time.Now().UTC()) {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Expiry must be in the future")
	}
	if referenceNumber == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Reference number is required")
	}
	if len(referenceNumber) > MaxReferenceNumberLength {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Reference number exceeds 100 characters")
	}

	r := &Reservation{
		ID:                id,
		TenantID:          tenantID,
		VariantID:         variantID,
		WarehouseID:       warehouseID,
		OriginalQuantity:  quantity,
		CurrentQuantity:   quantity,
		FulfilledQuantity: valueobject.ZeroQuantity(),
		ExpiresAtUTC:      expiresAt.UTC(),
		Status:            ReservationStatusActive,
		ReferenceNumber:   referenceNumber,
		Notes:             notes,
		CreatedBy:         createdBy,
		AggregateBase:     shared.NewAggregateBase(),
	}
	r.AddDomainEvent(NewReservationCreatedEvent(r))
	return r, nil
}

// Remaining returns the unfulfilled slice still held against available
// stock: CurrentQuantity − FulfilledQuantity.
func (r *Reservation) Remaining() valueobject.Quantity {
	return r.CurrentQuantity.Sub(r.FulfilledQuantity)
}

// IsTerminal reports whether the reservation reached a final state.
func (r *Reservation) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// IsOverdue reports whether the expiry instant has passed.
func (r *Reservation) IsOverdue(now time.Time) bool {
	return !now.Before(r.ExpiresAtUTC)
}

// guard rejects mutations on terminal or overdue reservations. Expire is
// the one transition allowed past the expiry instant.
func (r *Reservation) guard(now time.Time) error {
	if r.IsTerminal() {
		return shared.ErrReservationAlreadyUsed
	}
	if r.IsOverdue(now) {
		return shared.ErrReservationExpired
	}
	return nil
}

// ModifyQuantity changes the reserved quantity and returns the signed delta
// the caller must apply to the item's reserved counter. A positive delta
// requires an availability re-check by the caller before commit.
func (r *Reservation) ModifyQuantity(newQuantity valueobject.Quantity) (valueobject.Quantity, error) {
	now := time.Now().UTC()
	if err := r.guard(now); err != nil {
		return valueobject.ZeroQuantity(), err
	}
	if !newQuantity.IsPositive() {
		return valueobject.ZeroQuantity(), shared.ErrInvalidQuantity
	}
	if newQuantity.LessThan(r.FulfilledQuantity) {
		return valueobject.ZeroQuantity(), shared.ErrInvalidQuantity
	}

	delta := newQuantity.Sub(r.CurrentQuantity)
	r.CurrentQuantity = newQuantity
	if r.FulfilledQuantity.Equal(r.CurrentQuantity) {
		r.Status = ReservationStatusFulfilled
		r.FulfilledAt = &now
	}
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationModifiedEvent(r))
	return delta, nil
}

// ExtendExpiry pushes the expiry further into the future. Shortening or
// extending an already overdue reservation is rejected.
func (r *Reservation) ExtendExpiry(newExpiry time.Time) error {
	now := time.Now().UTC()
	if err := r.guard(now); err != nil {
		return err
	}
	newExpiry = newExpiry.UTC()
	if !newExpiry.After(now) || !newExpiry.After(r.ExpiresAtUTC) {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "New expiry must be later than now and the current expiry")
	}

	r.ExpiresAtUTC = newExpiry
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationModifiedEvent(r))
	return nil
}

// Fulfill records that quantity of the claim was consumed and returns that
// slice so the caller can release it from the item's reserved counter.
// Fulfillment never moves stock; the matching sale is a separate ledger
// operation issued by the caller.
func (r *Reservation) Fulfill(quantity valueobject.Quantity) (valueobject.Quantity, error) {
	now := time.Now().UTC()
	if err := r.guard(now); err != nil {
		return valueobject.ZeroQuantity(), err
	}
	if !quantity.IsPositive() || quantity.GreaterThan(r.Remaining()) {
		return valueobject.ZeroQuantity(), shared.ErrInvalidQuantity
	}

	r.FulfilledQuantity = r.FulfilledQuantity.Add(quantity)
	if r.FulfilledQuantity.Equal(r.CurrentQuantity) {
		r.Status = ReservationStatusFulfilled
		r.FulfilledAt = &now
	} else {
		r.Status = ReservationStatusPartiallyFulfilled
	}
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationFulfilledEvent(r))
	return quantity, nil
}

// Cancel terminates the reservation and returns the remainder to release
// from the item's reserved counter.
func (r *Reservation) Cancel(reason string) (valueobject.Quantity, error) {
	now := time.Now().UTC()
	if err := r.guard(now); err != nil {
		return valueobject.ZeroQuantity(), err
	}

	released := r.Remaining()
	r.Status = ReservationStatusCancelled
	r.CancellationReason = reason
	r.CancelledAt = &now
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationCancelledEvent(r))
	return released, nil
}

// Expire transitions an overdue reservation to Expired and returns the
// remainder to release. Calling it before the expiry instant is rejected;
// calling it on a terminal reservation reports RESERVATION_ALREADY_USED so
// racing sweepers converge on a single transition.
func (r *Reservation) Expire(now time.Time) (valueobject.Quantity, error) {
	if r.IsTerminal() {
		return valueobject.ZeroQuantity(), shared.ErrReservationAlreadyUsed
	}
	if !r.IsOverdue(now) {
		return valueobject.ZeroQuantity(), shared.NewDomainError(shared.ErrInvalidState.Code, "Reservation has not reached its expiry")
	}

	nowUTC := now.UTC()
	released := r.Remaining()
	r.Status = ReservationStatusExpired
	r.ExpiredAt = &nowUTC
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationExpiredEvent(r))
	return released, nil
}
