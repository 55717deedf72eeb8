// Package registry holds the two correlation tables of the dispatch engine.
//
// Pending maps call handles to one-shot continuations. An entry is inserted
// when a call-handle style operation is issued and removed exactly once, by
// Take, when its SteamAPICallCompleted_t arrives:
//
//	if err := pending.Register(handle, cont); err != nil {
//	    // duplicate handle, invalid handle or closed registry
//	}
//	...
//	if cont, ok := pending.Take(handle); ok {
//	    cont(result, nil)
//	}
//
// Handlers maps callback ids to at most one persistent handler. Set silently
// replaces an existing handler. Claim and Once implement the single-flight
// rule used to emulate a request on top of a persistent callback: a claim
// fails with already_in_flight while any handler is registered for the id.
//
// # Observers
//
// Both tables report lifecycle events to subscribed observers:
//
//	pending.Subscribe(obs) // obs.OnRegistryEvent(registry.Event)
//
// Observers are called synchronously and must not call back into the table
// that notified them.
package registry
