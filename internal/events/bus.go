package events

import (
	"context"
	"errors"
	"fmt"

	"auction-platform/utils"
)

//go:generate mockgen -destination=mock_publisher.go -package=events auction-platform/internal/events Publisher

// Handler processes one delivered envelope. A non-nil error leaves the
// envelope unacknowledged so the transport redelivers it.
type Handler func(ctx context.Context, env Envelope) error

// Publisher puts an envelope on the channel
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Subscriber delivers every envelope to handler for the given consumer group.
// Subscribe returns once the subscription is established; delivery continues
// in the background until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, group string, handler Handler) error
}

// Bus is both ends of the channel
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// ErrUnknownKind is returned by Dispatcher.Strict for unrouted kinds
var ErrUnknownKind = errors.New("unknown event kind")

// Dispatcher routes envelopes to the handler registered for their kind
type Dispatcher struct {
	name     string
	handlers map[Kind]Handler
}

// NewDispatcher creates an empty dispatcher; name is used in logs.
func NewDispatcher(name string) *Dispatcher {
	return &Dispatcher{name: name, handlers: make(map[Kind]Handler)}
}

// On registers h for kind, replacing any previous handler.
func (d *Dispatcher) On(kind Kind, h Handler) *Dispatcher {
	d.handlers[kind] = h
	return d
}

// Handle dispatches env. Kinds without a handler are acknowledged so that
// consumers ignore events they do not care about.
func (d *Dispatcher) Handle(ctx context.Context, env Envelope) error {
	h, ok := d.handlers[env.Kind]
	if !ok {
		utils.Debug("dispatcher: ignoring event", map[string]any{
			"consumer": d.name,
			"kind":     env.Kind,
			"event_id": env.ID,
		})
		return nil
	}
	if err := h(ctx, env); err != nil {
		return fmt.Errorf("%s: handle %s %s: %w", d.name, env.Kind, env.ID, err)
	}
	return nil
}

// PublishEvent builds and publishes an envelope in one step.
func PublishEvent(ctx context.Context, pub Publisher, kind Kind, key, source string, payload any) (Envelope, error) {
	env, err := New(kind, key, source, payload)
	if err != nil {
		return Envelope{}, err
	}
	if err := pub.Publish(ctx, env); err != nil {
		return env, fmt.Errorf("events: publish %s for %s: %w", kind, key, err)
	}
	return env, nil
}
