package registry

import (
	"sync"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
)

// Pending maps call handles to continuations awaiting their completion.
type Pending struct {
	entries map[steamdispatch.CallHandle]Continuation
	observers
	mu     sync.Mutex
	closed bool
}

// NewPending creates an empty registry.
func NewPending() *Pending {
	return &Pending{
		entries: make(map[steamdispatch.CallHandle]Continuation),
	}
}

// Register stores cont under handle. It fails if the handle is invalid, already
// has a continuation, or the registry is closed.
func (p *Pending) Register(handle steamdispatch.CallHandle, cont Continuation) error {
	if handle == steamdispatch.InvalidCallHandle {
		return errors.InvalidInput(errors.PhaseRegister, "invalid call handle")
	}
	if cont == nil {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Handle(uint64(handle)).
			Detail("nil continuation").
			Build()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.Closed("register")
	}
	if _, exists := p.entries[handle]; exists {
		p.mu.Unlock()
		return errors.DuplicateHandle(uint64(handle))
	}
	p.entries[handle] = cont
	p.mu.Unlock()

	p.notify(Event{Type: EventRegistered, Handle: handle})
	return nil
}

// Take removes and returns the continuation for handle.
// A handle is handed out at most once.
func (p *Pending) Take(handle steamdispatch.CallHandle) (Continuation, bool) {
	p.mu.Lock()
	cont, ok := p.entries[handle]
	if ok {
		delete(p.entries, handle)
	}
	p.mu.Unlock()

	if ok {
		p.notify(Event{Type: EventResolved, Handle: handle})
	}
	return cont, ok
}

// Has reports whether handle is pending.
func (p *Pending) Has(handle steamdispatch.CallHandle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[handle]
	return ok
}

// Len returns the number of pending calls.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Abandon drops every entry without invoking it and returns how many were dropped.
func (p *Pending) Abandon() int {
	p.mu.Lock()
	handles := make([]steamdispatch.CallHandle, 0, len(p.entries))
	for h := range p.entries {
		handles = append(handles, h)
	}
	p.entries = make(map[steamdispatch.CallHandle]Continuation)
	p.mu.Unlock()

	for _, h := range handles {
		p.notify(Event{Type: EventAbandoned, Handle: h})
	}
	return len(handles)
}

// Close abandons every entry and rejects further registrations.
func (p *Pending) Close() int {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.Abandon()
}
