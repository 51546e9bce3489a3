package shared

import "context"

// EventHandler handles domain events delivered by the bus.
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in.
	// An empty slice subscribes the handler to all events.
	EventTypes() []string
}

// EventPublisher publishes domain events after their producing transaction
// has committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes handlers to domain events.
type EventSubscriber interface {
	// Subscribe registers a handler, optionally restricted to event types.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from the subscription list.
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber with lifecycle management.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver records domain events in the outbox table inside the same
// transaction as the state change that produced them, so delivery survives a
// crash between commit and publish. txProvider is the active *gorm.DB
// transaction handle.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
