package registry

import (
	"sync"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/schema"
)

// Continuation receives the fetched result of a call, or the error that ended it.
type Continuation func(steamdispatch.CallResult, error)

// Handler receives every decoded record of the callback id it is registered for.
type Handler func(schema.Record)

// EventType identifies a registry lifecycle event.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventResolved
	EventAbandoned
	EventHandlerSet
	EventHandlerRemoved
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventResolved:
		return "resolved"
	case EventAbandoned:
		return "abandoned"
	case EventHandlerSet:
		return "handler-set"
	case EventHandlerRemoved:
		return "handler-removed"
	}
	return "unknown"
}

// Event describes one change to a registry.
type Event struct {
	Handle   steamdispatch.CallHandle
	Callback steamdispatch.CallbackID
	Type     EventType
}

// Observer receives registry lifecycle events.
type Observer interface {
	OnRegistryEvent(Event)
}

// observers is the subscriber list shared by both tables.
type observers struct {
	list []Observer
	mu   sync.RWMutex
}

// Subscribe adds an observer for lifecycle events.
func (o *observers) Subscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

// Unsubscribe removes an observer.
func (o *observers) Unsubscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, cur := range o.list {
		if cur == obs {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return
		}
	}
}

func (o *observers) notify(e Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, obs := range o.list {
		obs.OnRegistryEvent(e)
	}
}
