// Package schema decodes native callback payloads into typed records.
//
// Every callback struct the library understands is declared once as a WIT
// record type and laid out with C struct rules under the SDK's packing
// (#pragma pack). The resulting Table is static configuration: the decoder
// looks up the callback id, checks the payload size against the computed
// layout, and reads each field.
//
// # Layout Rules
//
//   - Field alignment is min(natural alignment, pack)
//   - Struct size is rounded up to the largest field alignment
//   - An empty struct has size 1, like an empty C++ struct
//
// The SDK packs callbacks with 8 on Windows and 4 on Linux and macOS, see
// DefaultPack.
//
// # Records
//
// Decode returns a Record, a closed set of variants:
//
//	rec, err := schema.NewDecoder(table).Decode(env.Callback, env.Payload)
//	switch r := rec.(type) {
//	case schema.CallCompleted:
//	    // fetch the result of r.Call
//	case schema.DlcInstalled:
//	    // r.AppID
//	case schema.Generic:
//	    // custom entry registered at runtime
//	case schema.Unknown:
//	    // no schema for r.Callback
//	}
//
// Records never alias the payload they were decoded from, so they stay valid
// after the native message is released.
package schema
