// Package dispatch drains the native callback queue and routes each message.
//
// A Loop is a small state machine:
//
//	Idle -> Draining -> WaitingNextTick -> Draining -> ...
//
// Each tick advances the native queue with RunFrame and then pulls messages
// until the queue is empty. For every message, under the native lock, the
// loop decodes the payload, classifies it and releases it:
//
//   - SteamAPICallCompleted_t (703): the result is fetched with
//     Pipe.CallResult and the pending continuation for the call handle is
//     taken. A fetch that returns false drops the message and leaves the
//     continuation pending. A completion nobody registered is an orphan and
//     is logged.
//   - anything else: the persistent handler for the callback id is looked
//     up. Messages without a handler are ignored.
//
// The continuation or handler runs after the release, with the native lock
// dropped and before the next pull. A panic in user code is recovered and
// logged; it never stops the drain.
//
// Observers receive an Event for every step, which makes the ordering
// (decode before release, release before the next pull) checkable:
//
//	loop.Subscribe(obs) // obs.OnDispatchEvent(dispatch.Event)
package dispatch
