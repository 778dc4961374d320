package service

import (
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/vaporfx/internal/domain"
)

// eventLog records every event published on a bus.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func newEventLog(bus *eventbus.SyncEventBus) *eventLog {
	l := &eventLog{}
	bus.SubscribeAll(func(e domain.Event) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, e)
	})
	return l
}

// types returns the types of recorded events, skipping per-frame level events.
func (l *eventLog) types() []domain.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.EventType
	for _, e := range l.events {
		if e.Type() != domain.EventAudioLevel {
			out = append(out, e.Type())
		}
	}
	return out
}

// of returns the recorded events of type t.
func (l *eventLog) of(t domain.EventType) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Event
	for _, e := range l.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}
