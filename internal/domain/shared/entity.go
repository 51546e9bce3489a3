package shared

import (
	"time"
)

// Timestamps carries the creation and modification instants shared by all
// entities. All instants are stored in UTC.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTimestamps initializes both instants to the current UTC time.
func NewTimestamps() Timestamps {
	now := time.Now().UTC()
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}

// Touch updates the modification instant.
func (t *Timestamps) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// SoftDelete is an embeddable deletion marker. Aggregates that support soft
// deletion embed it and expose their own Delete/Restore operations; rows are
// never removed physically.
type SoftDelete struct {
	DeletedAt *time.Time
	DeletedBy *UserID
}

// IsDeleted reports whether the marker is set.
func (s *SoftDelete) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted sets the marker. Returns ErrInvalidState when already deleted.
func (s *SoftDelete) MarkDeleted(by UserID) error {
	if s.IsDeleted() {
		return ErrInvalidState
	}
	now := time.Now().UTC()
	s.DeletedAt = &now
	s.DeletedBy = &by
	return nil
}

// ClearDeleted removes the marker, restoring the entity.
func (s *SoftDelete) ClearDeleted() {
	s.DeletedAt = nil
	s.DeletedBy = nil
}
