package dispatch

import (
	steamdispatch "github.com/wippyai/steam-dispatch"
)

// State is the state of a Loop.
type State int32

const (
	StateIdle            State = iota // not ticked yet
	StateDraining                     // pulling messages
	StateWaitingNextTick              // queue empty, waiting for the timer
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateWaitingNextTick:
		return "waiting"
	}
	return "unknown"
}

// EventType identifies a step of the drain.
type EventType uint8

const (
	EventTickStarted EventType = iota
	EventPulled
	EventDecoded
	EventDecodeFailed
	EventFetchDropped
	EventOrphaned
	EventReleased
	EventDelivered
	EventHandlerPanicked
	EventTickFinished
)

var eventNames = [...]string{
	EventTickStarted:     "tick-started",
	EventPulled:          "pulled",
	EventDecoded:         "decoded",
	EventDecodeFailed:    "decode-failed",
	EventFetchDropped:    "fetch-dropped",
	EventOrphaned:        "orphaned",
	EventReleased:        "released",
	EventDelivered:       "delivered",
	EventHandlerPanicked: "handler-panicked",
	EventTickFinished:    "tick-finished",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event is one step of a drain. Seq numbers the messages of a tick from 1;
// tick-level events have Seq 0.
type Event struct {
	Err      error
	Stats    TickStats
	Handle   steamdispatch.CallHandle
	Tick     uint64
	Seq      int
	Callback steamdispatch.CallbackID
	Type     EventType
}

// Observer receives drain events. Most events are delivered with the native
// lock held, so observers must not call into the SDK or the bridge.
type Observer interface {
	OnDispatchEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnDispatchEvent(e Event) { f(e) }

// TickStats counts what happened during a tick.
type TickStats struct {
	Drained   int // messages pulled
	Delivered int // continuations and handlers run to completion
	Orphaned  int // completions without a pending continuation
	Dropped   int // fetch failures and unknown callback ids
	Failed    int // malformed payloads and classification failures
	Panicked  int // continuations and handlers that panicked
}

func (s *TickStats) add(o TickStats) {
	s.Drained += o.Drained
	s.Delivered += o.Delivered
	s.Orphaned += o.Orphaned
	s.Dropped += o.Dropped
	s.Failed += o.Failed
	s.Panicked += o.Panicked
}
