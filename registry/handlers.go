package registry

import (
	"sort"
	"sync"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/schema"
)

type handlerEntry struct {
	fn Handler
}

// Handlers maps callback ids to at most one persistent handler each.
type Handlers struct {
	entries map[steamdispatch.CallbackID]*handlerEntry
	observers
	mu sync.Mutex
}

// NewHandlers creates an empty handler table.
func NewHandlers() *Handlers {
	return &Handlers{
		entries: make(map[steamdispatch.CallbackID]*handlerEntry),
	}
}

// Set registers h for id, replacing any existing handler.
func (t *Handlers) Set(id steamdispatch.CallbackID, h Handler) {
	t.mu.Lock()
	t.entries[id] = &handlerEntry{fn: h}
	t.mu.Unlock()

	t.notify(Event{Type: EventHandlerSet, Callback: id})
}

// Get returns the handler registered for id.
func (t *Handlers) Get(id steamdispatch.CallbackID) (Handler, bool) {
	t.mu.Lock()
	e, ok := t.entries[id]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// Remove deregisters the handler for id.
func (t *Handlers) Remove(id steamdispatch.CallbackID) bool {
	t.mu.Lock()
	_, ok := t.entries[id]
	delete(t.entries, id)
	t.mu.Unlock()

	if ok {
		t.notify(Event{Type: EventHandlerRemoved, Callback: id})
	}
	return ok
}

// Claim registers h for id only if no handler is registered for it.
// The returned release func removes this handler and no other.
func (t *Handlers) Claim(id steamdispatch.CallbackID, h Handler) (release func(), err error) {
	e := &handlerEntry{fn: h}
	if err := t.claim(id, e); err != nil {
		return nil, err
	}
	return func() { t.removeEntry(id, e) }, nil
}

// Once claims id with a handler that deregisters itself before calling fn
// with the first record delivered.
func (t *Handlers) Once(id steamdispatch.CallbackID, fn Handler) (release func(), err error) {
	e := &handlerEntry{}
	e.fn = func(rec schema.Record) {
		if t.removeEntry(id, e) {
			fn(rec)
		}
	}
	if err := t.claim(id, e); err != nil {
		return nil, err
	}
	return func() { t.removeEntry(id, e) }, nil
}

// Len returns the number of registered handlers.
func (t *Handlers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// IDs returns the callback ids with a handler, in ascending order.
func (t *Handlers) IDs() []steamdispatch.CallbackID {
	t.mu.Lock()
	ids := make([]steamdispatch.CallbackID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clear removes every handler.
func (t *Handlers) Clear() {
	for _, id := range t.IDs() {
		t.Remove(id)
	}
}

func (t *Handlers) claim(id steamdispatch.CallbackID, e *handlerEntry) error {
	t.mu.Lock()
	if _, busy := t.entries[id]; busy {
		t.mu.Unlock()
		return errors.AlreadyInFlight(int32(id))
	}
	t.entries[id] = e
	t.mu.Unlock()

	t.notify(Event{Type: EventHandlerSet, Callback: id})
	return nil
}

func (t *Handlers) removeEntry(id steamdispatch.CallbackID, e *handlerEntry) bool {
	t.mu.Lock()
	cur, ok := t.entries[id]
	mine := ok && cur == e
	if mine {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if mine {
		t.notify(Event{Type: EventHandlerRemoved, Callback: id})
	}
	return mine
}
