// Package events carries typed lifecycle notifications between the driver
// supervisor and its observers.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Each subscriber receives events of
// one concrete type in publish order; there is no replay for late
// subscribers.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
// Usage: bus.Publish(DriverReadyEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case DriverReadyEvent:
		event.Publish(b.dispatcher, e)
	case DriverErrorEvent:
		event.Publish(b.dispatcher, e)
	case DriverStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; its parameter type selects the events it
// receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e DriverReadyEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	if b == nil {
		return func() {}
	}
	switch h := handler.(type) {
	case func(DriverReadyEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DriverErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DriverStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
