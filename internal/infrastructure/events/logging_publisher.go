// Package events implements the EventPublisher port: an in-process pub/sub
// bus used by the application layer to observe pipeline lifecycle
// transitions, distinct from the user-facing Notifier.
package events

import (
	"context"
	"sort"
	"sync"

	"github.com/flowctl/flowctl/internal/ports"
)

// LoggingPublisher emits every published event as a structured log line
// and fans it out to subscribed handlers.
type LoggingPublisher struct {
	logger ports.Logger

	mu     sync.RWMutex
	subs   map[string][]subscriptionEntry
	nextID int
}

// NewLoggingPublisher builds a publisher writing through logger.
func NewLoggingPublisher(logger ports.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger, subs: make(map[string][]subscriptionEntry)}
}

// Publish logs event and invokes every handler subscribed to its type.
func (p *LoggingPublisher) Publish(ctx context.Context, event ports.DomainEvent) error {
	if p == nil || event == nil {
		return nil
	}

	p.mu.RLock()
	handlers := append([]subscriptionEntry(nil), p.subs[event.EventType()]...)
	p.mu.RUnlock()

	if p.logger != nil {
		fields := []interface{}{"event_type", event.EventType()}
		payload := event.Payload()
		keys := make([]string, 0, len(payload))
		for key := range payload {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fields = append(fields, key, payload[key])
		}
		p.logger.Info(ctx, "domain event", fields...)
	}

	for _, entry := range handlers {
		if entry.handler == nil {
			continue
		}
		if err := entry.handler(ctx, event); err != nil && p.logger != nil {
			p.logger.Warn(ctx, "event handler failed", "event_type", event.EventType(), "error", err.Error())
		}
	}
	return nil
}

// Subscribe registers handler for eventType and returns a Subscription
// that removes it on Unsubscribe.
func (p *LoggingPublisher) Subscribe(eventType string, handler ports.EventHandler) ports.Subscription {
	if handler == nil {
		return noopSubscription{}
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[eventType] = append(p.subs[eventType], subscriptionEntry{id: id, handler: handler})
	p.mu.Unlock()

	return subscription{cancel: func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		entries := p.subs[eventType]
		for i, entry := range entries {
			if entry.id == id {
				p.subs[eventType] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}}
}

type subscriptionEntry struct {
	id      int
	handler ports.EventHandler
}

type subscription struct{ cancel func() }

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

var _ ports.EventPublisher = (*LoggingPublisher)(nil)
