package schema

import (
	steamdispatch "github.com/wippyai/steam-dispatch"
)

// Callback ids of the built-in records.
const (
	IDSteamServersConnected               steamdispatch.CallbackID = 101
	IDSteamServersDisconnected            steamdispatch.CallbackID = 103
	IDMicroTxnAuthorizationResponse       steamdispatch.CallbackID = 152
	IDGetAuthSessionTicketResponse        steamdispatch.CallbackID = 163
	IDGameOverlayActivated                steamdispatch.CallbackID = 331
	IDCallCompleted                       steamdispatch.CallbackID = 703
	IDSteamShutdown                       steamdispatch.CallbackID = 704
	IDDlcInstalled                        steamdispatch.CallbackID = 1005
	IDRemoteStorageFileWriteAsyncComplete steamdispatch.CallbackID = 1331
	IDRemoteStorageFileReadAsyncComplete  steamdispatch.CallbackID = 1332
)

// Record is a decoded callback payload.
type Record interface {
	// CallbackID returns the discriminator the record was decoded from.
	CallbackID() steamdispatch.CallbackID

	// values returns the fields in declaration order, typed as the decoder reads them.
	values() []any
}

type SteamServersConnected struct{}

func (SteamServersConnected) CallbackID() steamdispatch.CallbackID { return IDSteamServersConnected }
func (SteamServersConnected) values() []any                        { return nil }

type SteamServersDisconnected struct {
	Result EResult
}

func (SteamServersDisconnected) CallbackID() steamdispatch.CallbackID {
	return IDSteamServersDisconnected
}
func (r SteamServersDisconnected) values() []any { return []any{int32(r.Result)} }

type MicroTxnAuthorizationResponse struct {
	OrderID    uint64
	AppID      uint32
	Authorized bool
}

func (MicroTxnAuthorizationResponse) CallbackID() steamdispatch.CallbackID {
	return IDMicroTxnAuthorizationResponse
}
func (r MicroTxnAuthorizationResponse) values() []any {
	return []any{r.AppID, r.OrderID, u8(r.Authorized)}
}

// GetAuthSessionTicketResponse answers ISteamUser::GetAuthSessionTicket.
type GetAuthSessionTicketResponse struct {
	AuthTicket uint32
	Result     EResult
}

func (GetAuthSessionTicketResponse) CallbackID() steamdispatch.CallbackID {
	return IDGetAuthSessionTicketResponse
}
func (r GetAuthSessionTicketResponse) values() []any {
	return []any{r.AuthTicket, int32(r.Result)}
}

type GameOverlayActivated struct {
	AppID         uint32
	OverlayPID    uint32
	Active        bool
	UserInitiated bool
}

func (GameOverlayActivated) CallbackID() steamdispatch.CallbackID { return IDGameOverlayActivated }
func (r GameOverlayActivated) values() []any {
	return []any{u8(r.Active), r.UserInitiated, r.AppID, r.OverlayPID}
}

// CallCompleted announces that an asynchronous call finished (SteamAPICallCompleted_t).
// It carries no result; the result is fetched with Pipe.CallResult.
type CallCompleted struct {
	Call     steamdispatch.CallHandle
	Callback steamdispatch.CallbackID
	Size     uint32
}

func (CallCompleted) CallbackID() steamdispatch.CallbackID { return IDCallCompleted }
func (r CallCompleted) values() []any {
	return []any{uint64(r.Call), int32(r.Callback), r.Size}
}

type SteamShutdown struct{}

func (SteamShutdown) CallbackID() steamdispatch.CallbackID { return IDSteamShutdown }
func (SteamShutdown) values() []any                        { return nil }

type DlcInstalled struct {
	AppID uint32
}

func (DlcInstalled) CallbackID() steamdispatch.CallbackID { return IDDlcInstalled }
func (r DlcInstalled) values() []any                      { return []any{r.AppID} }

type RemoteStorageFileWriteAsyncComplete struct {
	Result EResult
}

func (RemoteStorageFileWriteAsyncComplete) CallbackID() steamdispatch.CallbackID {
	return IDRemoteStorageFileWriteAsyncComplete
}
func (r RemoteStorageFileWriteAsyncComplete) values() []any { return []any{int32(r.Result)} }

// RemoteStorageFileReadAsyncComplete is the call result of ISteamRemoteStorage::FileReadAsync.
type RemoteStorageFileReadAsyncComplete struct {
	Call   steamdispatch.CallHandle
	Result EResult
	Offset uint32
	Read   uint32
}

func (RemoteStorageFileReadAsyncComplete) CallbackID() steamdispatch.CallbackID {
	return IDRemoteStorageFileReadAsyncComplete
}
func (r RemoteStorageFileReadAsyncComplete) values() []any {
	return []any{uint64(r.Call), int32(r.Result), r.Offset, r.Read}
}

// Field is one named value of a Generic record.
type Field struct {
	Value any
	Name  string
}

// Generic is a record decoded from a table entry without a dedicated Go type.
// Values use the Go type matching the WIT field type (u8 -> uint8, bool -> bool, ...).
type Generic struct {
	Name     string
	Fields   []Field
	Callback steamdispatch.CallbackID
}

func (r Generic) CallbackID() steamdispatch.CallbackID { return r.Callback }

func (r Generic) values() []any {
	vals := make([]any, len(r.Fields))
	for i, f := range r.Fields {
		vals[i] = f.Value
	}
	return vals
}

// Get returns the value of the named field.
func (r Generic) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Unknown holds a payload whose callback id has no schema.
type Unknown struct {
	Payload  []byte
	Callback steamdispatch.CallbackID
}

func (r Unknown) CallbackID() steamdispatch.CallbackID { return r.Callback }
func (r Unknown) values() []any                        { return nil }

func u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
