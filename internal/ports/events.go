package ports

import "context"

// DomainEvent is a single occurrence published to internal subscribers
// (used for observability wiring, distinct from the user-facing Notifier).
type DomainEvent interface {
	EventType() string
	Payload() map[string]interface{}
}

// EventHandler reacts to a published DomainEvent.
type EventHandler func(ctx context.Context, event DomainEvent) error

// Subscription is returned by Subscribe and cancels the subscription when
// Unsubscribe is called.
type Subscription interface {
	Unsubscribe()
}

// EventPublisher is the internal pub/sub bus the application layer uses to
// observe pipeline lifecycle transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) Subscription
}
