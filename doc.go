// Package steamdispatch drives the Steamworks manual-dispatch interface from
// goroutine-based Go code.
//
// The Steamworks SDK exposes a synchronous, poll-based event queue: the host
// advances it with RunFrame, pulls messages one at a time, and must release each
// message before pulling the next. It offers no callbacks, futures or
// cancellation. This library turns that queue into futures and handlers.
//
// # Architecture Overview
//
//	steamdispatch/        Root package with the native surface (Pipe, Client, Native)
//	├── schema/           Callback record layouts and the binary record decoder
//	├── registry/         Pending-call registry and persistent handler table
//	├── coalesce/         Request coalescing groups
//	├── future/           One-shot futures handed back to callers
//	├── dispatch/         The drain loop state machine
//	├── bridge/           Facade composing all of the above
//	├── native/steamworks libsteam_api bound with purego
//	├── native/wasmsdk    SDK shim hosted in wazero
//	├── native/fake       Scriptable in-memory SDK
//	├── config/           YAML configuration
//	└── errors/           Structured error types
//
// # Quick Start
//
//	b := bridge.New(steamworks.Open(""), nil)
//	if err := b.Initialize(ctx); err != nil {
//	    log.Fatal(err) // Steam is not running
//	}
//	defer b.Shutdown(ctx)
//
//	ticket, err := b.AuthSessionTicket(ctx)
//
// # Completion Styles
//
// Two completion styles coexist. Call-handle operations return a CallHandle
// and later produce a SteamAPICallCompleted_t message (callback 703) whose
// result bytes are fetched with Pipe.CallResult. Handle-less operations answer
// through an ordinary callback; the bridge emulates a one-shot request on top
// of the persistent handler table, allowing at most one such request per
// callback id at a time.
//
// # Thread Safety
//
// The Steamworks SDK is not safe for concurrent use. Every native call made by
// the bridge and its dispatch loop goes through a single mutex. Continuations
// and handlers run with that mutex released, so they may call back into the
// bridge.
package steamdispatch
