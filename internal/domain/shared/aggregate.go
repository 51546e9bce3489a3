package shared

// AggregateBase provides the version counter and pending-event list shared by
// all aggregate roots. Aggregates embed it together with their own typed ID
// and tenant fields; there is no inheritance of identity.
type AggregateBase struct {
	Timestamps
	Version      int
	domainEvents []DomainEvent
}

// NewAggregateBase creates an aggregate base at version 1.
func NewAggregateBase() AggregateBase {
	return AggregateBase{
		Timestamps: NewTimestamps(),
		Version:    1,
	}
}

// RestoreAggregateBase rebuilds an aggregate base from persisted state.
func RestoreAggregateBase(version int, ts Timestamps) AggregateBase {
	return AggregateBase{Timestamps: ts, Version: version}
}

// GetVersion returns the aggregate version used for optimistic locking.
func (a *AggregateBase) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the optimistic-lock version.
func (a *AggregateBase) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues a domain event for publication after commit.
func (a *AggregateBase) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the pending domain events.
func (a *AggregateBase) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the pending domain events.
func (a *AggregateBase) ClearDomainEvents() {
	a.domainEvents = nil
}
