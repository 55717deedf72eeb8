// Package wasmsdk runs a Steamworks shim compiled to WebAssembly under wazero
// and exposes it as a steamdispatch.Native.
//
// The guest is a reactor: the host calls its exports and never runs _start.
// Payload pointers returned by steam_next_callback are offsets into guest
// linear memory; the returned Envelope payload is a view of that memory and is
// only valid until FreeLastCallback.
//
// Guest exports (all integers are i32 unless noted):
//
//	steam_init() -> ok
//	steam_shutdown()
//	steam_manual_dispatch_init()
//	steam_run_frame()
//	steam_next_callback(out) -> ok          writes user, id, ptr, len at out
//	steam_free_last_callback()
//	steam_get_call_result(call i64, buf, size, expected, failed_out) -> ok
//	steam_alloc(size) -> ptr
//
// steam_free, steam_restart_app_if_necessary and the client exports
// (steam_app_id, steam_file_read, ...) are optional. A missing client export
// answers with the zero value.
//
// Guests may import steam_host.log(level, ptr, len) to write to the host logger.
package wasmsdk
