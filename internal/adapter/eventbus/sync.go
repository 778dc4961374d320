// Package eventbus provides the synchronous event bus shared by effects, capture and the shell.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// ErrBusClosed is returned when closing a bus twice.
var ErrBusClosed = errors.New("event bus already closed")

// SyncEventBus delivers events synchronously, in subscription order.
// Type-specific handlers run before wildcard handlers.
//
// Thread-safety: publishing and (un)subscribing may happen from any goroutine.
// Handlers run on the publisher's goroutine, so per-frame publishers (the level loop)
// must only be paired with quick handlers.
type SyncEventBus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	typed    map[domain.EventType][]subscription
	wildcard []subscription
	nextID   uint64
	closed   bool
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus. A nil logger disables
// logging of handler panics.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	return &SyncEventBus{
		logger: logger,
		typed:  make(map[domain.EventType][]subscription),
	}
}

// Publish delivers event to every matching subscriber.
// Publishing nil or on a closed bus does nothing. A panicking handler is logged
// and does not prevent the remaining handlers from running.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	// Copy so handlers may (un)subscribe without deadlocking.
	targets := make([]subscription, 0, len(bus.typed[event.Type()])+len(bus.wildcard))
	targets = append(targets, bus.typed[event.Type()]...)
	targets = append(targets, bus.wildcard...)
	bus.mu.RUnlock()

	for _, sub := range targets {
		bus.deliver(sub, event)
	}
}

func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && bus.logger != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("subscription", string(sub.id)),
				slog.String("event_type", string(event.Type())))
		}
	}()
	sub.handler(event)
}

// Subscribe registers handler for one event type.
// It panics on a nil handler or a closed bus.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	bus.nextID++
	sub := subscription{
		id:      domain.SubscriptionID(fmt.Sprintf("sub-%d", bus.nextID)),
		handler: handler,
	}
	bus.typed[eventType] = append(bus.typed[eventType], sub)
	return sub.id
}

// SubscribeAll registers handler for every event type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	bus.nextID++
	sub := subscription{
		id:      domain.SubscriptionID(fmt.Sprintf("sub-all-%d", bus.nextID)),
		handler: handler,
	}
	bus.wildcard = append(bus.wildcard, sub)
	return sub.id
}

// Unsubscribe removes a subscription, keeping the order of the others.
// Unknown IDs are ignored.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	match := func(s subscription) bool { return s.id == id }

	for eventType, subs := range bus.typed {
		if i := slices.IndexFunc(subs, match); i >= 0 {
			bus.typed[eventType] = slices.Delete(subs, i, i+1)
			return
		}
	}
	if i := slices.IndexFunc(bus.wildcard, match); i >= 0 {
		bus.wildcard = slices.Delete(bus.wildcard, i, i+1)
	}
}

// HasSubscribers reports whether publishing eventType would reach anyone.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.typed[eventType]) > 0 || len(bus.wildcard) > 0
}

// SubscriberCount returns the number of live subscriptions of any kind.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	n := len(bus.wildcard)
	for _, subs := range bus.typed {
		n += len(subs)
	}
	return n
}

// Close drops every subscription. Later publishes are ignored.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrBusClosed
	}
	bus.closed = true
	bus.typed = make(map[domain.EventType][]subscription)
	bus.wildcard = nil
	return nil
}

// Verify that SyncEventBus implements the EventBus interface
var _ ports.EventBus = (*SyncEventBus)(nil)
