package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"auction-platform/utils"
)

// ErrBusClosed is returned by Publish after Close
var ErrBusClosed = errors.New("event bus closed")

// MemoryOption configures a MemoryBus
type MemoryOption func(*MemoryBus)

// WithRedeliveryDelay sets the pause before a failed envelope is retried.
func WithRedeliveryDelay(d time.Duration) MemoryOption {
	return func(b *MemoryBus) { b.redelivery = d }
}

// WithDuplicates delivers every envelope twice, to exercise consumer idempotency.
func WithDuplicates() MemoryOption {
	return func(b *MemoryBus) { b.duplicate = true }
}

// MemoryBus is an in-process at-least-once channel. Each consumer group has
// its own queue; a handler error puts the envelope back after a delay.
type MemoryBus struct {
	mu         sync.RWMutex
	groups     map[string]*memoryGroup
	closed     bool
	redelivery time.Duration
	duplicate  bool
	wg         sync.WaitGroup
}

type memoryGroup struct {
	name  string
	queue chan Envelope
}

// NewMemoryBus creates an in-memory bus
func NewMemoryBus(opts ...MemoryOption) *MemoryBus {
	b := &MemoryBus{
		groups:     make(map[string]*memoryGroup),
		redelivery: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish enqueues env for every subscribed group. Groups that subscribe
// later do not see earlier envelopes.
func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	copies := 1
	if b.duplicate {
		copies = 2
	}
	for _, g := range b.groups {
		for i := 0; i < copies; i++ {
			select {
			case g.queue <- env:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Subscribe adds handler to group. Several handlers in one group compete
// for envelopes, each envelope goes to one of them.
func (b *MemoryBus) Subscribe(ctx context.Context, group string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}

	g, ok := b.groups[group]
	if !ok {
		g = &memoryGroup{name: group, queue: make(chan Envelope, 1024)}
		b.groups[group] = g
	}
	b.wg.Add(1)
	go b.consume(ctx, g, handler)
	return nil
}

func (b *MemoryBus) consume(ctx context.Context, g *memoryGroup, handler Handler) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-g.queue:
			if !ok {
				return
			}
			if err := handler(ctx, env); err != nil {
				utils.Warn("memory bus: handler failed, redelivering", map[string]any{
					"group":    g.name,
					"kind":     env.Kind,
					"event_id": env.ID,
					"error":    err.Error(),
				})
				b.redeliver(ctx, g, env)
			}
		}
	}
}

func (b *MemoryBus) redeliver(ctx context.Context, g *memoryGroup, env Envelope) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.redelivery):
		}

		b.mu.RLock()
		defer b.mu.RUnlock()
		if b.closed {
			return
		}
		select {
		case g.queue <- env:
		case <-ctx.Done():
		}
	}()
}

// Close stops accepting envelopes and waits for in-flight deliveries whose
// contexts have ended.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, g := range b.groups {
		close(g.queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
