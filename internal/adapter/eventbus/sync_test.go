package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
)

func newTestBus(t *testing.T) *SyncEventBus {
	t.Helper()
	bus := NewSyncEventBus(logger.NewTestLogger())
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

// TestPublishSubscribe tests basic publish/subscribe functionality.
func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus(t)

	var received []domain.Event
	subID := bus.Subscribe(domain.EventCaptureOpened, func(e domain.Event) {
		received = append(received, e)
	})
	require.NotEmpty(t, subID)

	bus.Publish(domain.NewCaptureOpenedEvent(domain.IntentPreview))
	bus.Publish(domain.NewCaptureClosedEvent(domain.IntentPreview))

	require.Len(t, received, 1)
	opened, ok := received[0].(domain.CaptureOpenedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.IntentPreview, opened.Intent)
	assert.False(t, opened.Timestamp().IsZero())
}

// TestDeliveryOrder tests that typed handlers run in subscription order before wildcard handlers.
func TestDeliveryOrder(t *testing.T) {
	bus := newTestBus(t)

	var order []string
	bus.SubscribeAll(func(domain.Event) { order = append(order, "all") })
	bus.Subscribe(domain.EventAudioLevel, func(domain.Event) { order = append(order, "first") })
	bus.Subscribe(domain.EventAudioLevel, func(domain.Event) { order = append(order, "second") })

	bus.Publish(domain.NewAudioLevelEvent(domain.IntentRecord, 0.5, 0.6))

	assert.Equal(t, []string{"first", "second", "all"}, order)
}

// TestUnsubscribeKeepsOrder tests that removing a subscription leaves the others in order.
func TestUnsubscribeKeepsOrder(t *testing.T) {
	bus := newTestBus(t)

	var order []int
	bus.Subscribe(domain.EventAmbientStarted, func(domain.Event) { order = append(order, 1) })
	middle := bus.Subscribe(domain.EventAmbientStarted, func(domain.Event) { order = append(order, 2) })
	bus.Subscribe(domain.EventAmbientStarted, func(domain.Event) { order = append(order, 3) })

	bus.Unsubscribe(middle)
	bus.Unsubscribe(middle)
	bus.Unsubscribe("sub-unknown")

	bus.Publish(domain.NewAmbientStartedEvent(60, 320, 240))
	assert.Equal(t, []int{1, 3}, order)
	assert.Equal(t, 2, bus.SubscriberCount())
}

// TestUnsubscribeWildcard tests removing a wildcard subscription.
func TestUnsubscribeWildcard(t *testing.T) {
	bus := newTestBus(t)

	var calls int
	id := bus.SubscribeAll(func(domain.Event) { calls++ })
	assert.True(t, bus.HasSubscribers(domain.EventEffectError))

	bus.Unsubscribe(id)
	bus.Publish(domain.NewEffectErrorEvent("ambient", errors.New("boom")))

	assert.Zero(t, calls)
	assert.False(t, bus.HasSubscribers(domain.EventEffectError))
}

// TestHandlerPanic tests that a panicking handler does not stop delivery.
func TestHandlerPanic(t *testing.T) {
	bus := newTestBus(t)

	var reached bool
	bus.Subscribe(domain.EventAmbientStopped, func(domain.Event) { panic("handler failure") })
	bus.Subscribe(domain.EventAmbientStopped, func(domain.Event) { reached = true })

	require.NotPanics(t, func() {
		bus.Publish(domain.NewAmbientStoppedEvent())
	})
	assert.True(t, reached)
}

// TestHandlerMaySubscribe tests that a handler can subscribe during delivery without deadlocking.
func TestHandlerMaySubscribe(t *testing.T) {
	bus := newTestBus(t)

	bus.Subscribe(domain.EventCaptureOpened, func(domain.Event) {
		bus.Subscribe(domain.EventCaptureClosed, func(domain.Event) {})
	})
	bus.Publish(domain.NewCaptureOpenedEvent(domain.IntentRecord))

	assert.True(t, bus.HasSubscribers(domain.EventCaptureClosed))
}

// TestClose tests closing behavior.
func TestClose(t *testing.T) {
	bus := NewSyncEventBus(nil)

	var calls int
	bus.SubscribeAll(func(domain.Event) { calls++ })

	require.NoError(t, bus.Close())
	require.ErrorIs(t, bus.Close(), ErrBusClosed)

	bus.Publish(domain.NewAmbientStoppedEvent())
	assert.Zero(t, calls)
	assert.Zero(t, bus.SubscriberCount())
	assert.Panics(t, func() {
		bus.Subscribe(domain.EventAmbientStopped, func(domain.Event) {})
	})
}

// TestNilInputs tests nil event and nil handler handling.
func TestNilInputs(t *testing.T) {
	bus := newTestBus(t)

	assert.NotPanics(t, func() { bus.Publish(nil) })
	assert.Panics(t, func() { bus.Subscribe(domain.EventAudioLevel, nil) })
	assert.Panics(t, func() { bus.SubscribeAll(nil) })
}

// TestConcurrentPublishAndSubscribe tests thread safety.
func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := newTestBus(t)

	var received atomic.Int64
	bus.Subscribe(domain.EventAudioLevel, func(domain.Event) { received.Add(1) })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				bus.Publish(domain.NewAudioLevelEvent(domain.IntentPreview, 0.1, 0.1))
			}
		}()
		go func() {
			defer wg.Done()
			id := bus.Subscribe(domain.EventCaptureClosed, func(domain.Event) {})
			bus.Unsubscribe(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400), received.Load())
	assert.Equal(t, 1, bus.SubscriberCount())
}
