// Package bridge is the facade application code uses to talk to Steam.
//
// A Bridge owns the native lock, the pending-call registry, the persistent
// handler table, the coalescing groups and the dispatch loop:
//
//	b := bridge.New(native, &bridge.Config{AppID: 480})
//	if err := b.Initialize(ctx); err != nil {
//	    return err // startup_failure: Steam is not running
//	}
//	defer b.Shutdown(ctx)
//
// # Call-handle operations
//
// Call runs a native invocation that returns a call handle and hands back a
// future settled when the matching completion is drained:
//
//	f, err := b.Call(func(c steamdispatch.Client) steamdispatch.CallHandle {
//	    return c.FileReadAsync("save.dat", 0, size)
//	})
//	res, err := bridge.Await(ctx, b, f)
//
// # Request over a persistent callback
//
// RequestOnce emulates a one-shot request for operations that answer with an
// ordinary callback. Only one such request per callback id may be in flight;
// a second one fails with already_in_flight.
//
// # Coalescing
//
// ReadCoalesced and WriteCoalesced share one execution among concurrent
// requests for the same key. Reads and writes use separate groups.
//
// # Lost completions
//
// A completion whose result fetch fails is dropped and the caller's future
// never settles. Await with Config.CallTimeout bounds the wait without
// touching the registry.
package bridge
