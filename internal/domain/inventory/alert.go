package inventory

import (
	"time"

	"github.com/ims/engine/internal/domain/shared"
)

// AlertKind classifies a derived inventory alert.
type AlertKind string

const (
	AlertKindLowStock            AlertKind = "LOW_STOCK"
	AlertKindOutOfStock          AlertKind = "OUT_OF_STOCK"
	AlertKindExpiring            AlertKind = "EXPIRING"
	AlertKindExpired             AlertKind = "EXPIRED"
	AlertKindReservationExpiring AlertKind = "RESERVATION_EXPIRING"
	AlertKindUnusualAdjustment   AlertKind = "UNUSUAL_ADJUSTMENT"
)

// IsValid reports whether the kind is a known alert kind.
func (k AlertKind) IsValid() bool {
	switch k {
	case AlertKindLowStock, AlertKindOutOfStock, AlertKindExpiring,
		AlertKindExpired, AlertKindReservationExpiring, AlertKindUnusualAdjustment:
		return true
	}
	return false
}

// String returns the kind's wire name.
func (k AlertKind) String() string {
	return string(k)
}

// AlertSeverity ranks how urgently an alert needs attention.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "INFO"
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// IsValid reports whether the severity is known.
func (s AlertSeverity) IsValid() bool {
	switch s {
	case AlertSeverityInfo, AlertSeverityWarning, AlertSeverityCritical:
		return true
	}
	return false
}

// Alert is a derived record raised when a stock or reservation post-state
// crosses a boundary: low/out of stock, approaching or passed expiry, or an
// unusually large adjustment. Alerts persist with acknowledgement state so
// operators can work through them.
type Alert struct {
	ID       shared.AlertID  `gorm:"type:uuid;primaryKey"`
	TenantID shared.TenantID `gorm:"type:uuid;not null;index:idx_alerts_tenant_kind,priority:1"`

	Kind     AlertKind     `gorm:"type:varchar(32);not null;index:idx_alerts_tenant_kind,priority:2"`
	Severity AlertSeverity `gorm:"type:varchar(16);not null"`

	VariantID   *shared.VariantID   `gorm:"type:uuid;index:idx_alerts_variant"`
	WarehouseID *shared.WarehouseID `gorm:"type:uuid;index:idx_alerts_warehouse"`

	// Data carries the kind-specific payload: quantities, thresholds,
	// reservation identifiers.
	Data shared.Metadata `gorm:"type:jsonb"`

	Acknowledged   bool           `gorm:"not null;default:false;index:idx_alerts_acknowledged"`
	AcknowledgedAt *time.Time
	AcknowledgedBy *shared.UserID `gorm:"type:uuid"`

	shared.Timestamps
}

// TableName returns the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}

// NewAlert creates an unacknowledged alert.
func NewAlert(
	tenantID shared.TenantID,
	kind AlertKind,
	severity AlertSeverity,
	variantID *shared.VariantID,
	warehouseID *shared.WarehouseID,
	data shared.Metadata,
) (*Alert, error) {
	if tenantID.IsZero() {
		return nil, shared.ErrUnauthorized
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown alert kind")
	}
	if !severity.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown alert severity")
	}
	if data != nil {
		if err := data.Validate(); err != nil {
			return nil, err
		}
	}

	return &Alert{
		ID:          shared.NewAlertID(),
		TenantID:    tenantID,
		Kind:        kind,
		Severity:    severity,
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Data:        data,
		Timestamps:  shared.NewTimestamps(),
	}, nil
}

// Acknowledge marks the alert as handled by the given actor. Acknowledging
// twice is rejected.
func (a *Alert) Acknowledge(by shared.UserID) error {
	if by.IsZero() {
		return shared.ErrUnauthorized
	}
	if a.Acknowledged {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Alert is already acknowledged")
	}

	now := time.Now().UTC()
	a.Acknowledged = true
	a.AcknowledgedAt = &now
	a.AcknowledgedBy = &by
	a.Touch()
	return nil
}
