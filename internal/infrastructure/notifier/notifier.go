// Package notifier implements the Notifier port: a named collection of
// side-effect-only sinks dispatched by event type.
package notifier

import (
	"context"
	"sync"

	"github.com/flowctl/flowctl/internal/ports"
)

// Notifier routes a NotifyContext to whichever registered sink a
// SinkConfig names. Events outside a sink's "on" list are skipped
// silently; an unknown sink type is logged as a warning. Neither is
// treated as an error.
type Notifier struct {
	logger ports.Logger

	mu    sync.RWMutex
	sinks map[string]ports.NotifierSink
}

// New constructs an empty Notifier. Sinks must be registered before use.
func New(logger ports.Logger) *Notifier {
	return &Notifier{logger: logger, sinks: make(map[string]ports.NotifierSink)}
}

// Register adds sink under its own Name, overwriting any prior sink
// registered under the same name.
func (n *Notifier) Register(sink ports.NotifierSink) {
	if sink == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks[sink.Name()] = sink
}

// Send dispatches notifyCtx to the sink named config.Type. It returns an
// empty slice, never an error, when the sink is unknown or notifyCtx's
// event is not among config.On.
func (n *Notifier) Send(ctx context.Context, config ports.SinkConfig, notifyCtx ports.NotifyContext) []ports.NotifyResult {
	n.mu.RLock()
	sink, ok := n.sinks[config.Type]
	n.mu.RUnlock()

	if !ok {
		if n.logger != nil {
			n.logger.Warn(ctx, "notifier: unknown sink type", "type", config.Type)
		}
		return nil
	}

	if !eventMatches(config.On, notifyCtx.Event) {
		return nil
	}

	return []ports.NotifyResult{sink.Send(ctx, config, notifyCtx)}
}

func eventMatches(on []ports.NotifyEvent, event ports.NotifyEvent) bool {
	for _, e := range on {
		if e == event {
			return true
		}
	}
	return false
}

var _ ports.Notifier = (*Notifier)(nil)
