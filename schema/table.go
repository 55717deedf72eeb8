package schema

import (
	"sort"
	"sync"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"go.bytecodealliance.org/wit"
)

// Entry declares the layout of one callback struct.
type Entry struct {
	Type  *wit.TypeDef
	build func(vals []any) Record
	Name  string
	ID    steamdispatch.CallbackID
}

// Builtin lists the callback structs decoded into dedicated record types.
var Builtin = []Entry{
	{
		ID:    IDSteamServersConnected,
		Name:  "SteamServersConnected_t",
		Type:  record("SteamServersConnected_t"),
		build: func([]any) Record { return SteamServersConnected{} },
	},
	{
		ID:   IDSteamServersDisconnected,
		Name: "SteamServersDisconnected_t",
		Type: record("SteamServersDisconnected_t", field("m_eResult", wit.S32{})),
		build: func(v []any) Record {
			return SteamServersDisconnected{Result: EResult(v[0].(int32))}
		},
	},
	{
		ID:   IDMicroTxnAuthorizationResponse,
		Name: "MicroTxnAuthorizationResponse_t",
		Type: record("MicroTxnAuthorizationResponse_t",
			field("m_unAppID", wit.U32{}),
			field("m_ulOrderID", wit.U64{}),
			field("m_bAuthorized", wit.U8{}),
		),
		build: func(v []any) Record {
			return MicroTxnAuthorizationResponse{
				AppID:      v[0].(uint32),
				OrderID:    v[1].(uint64),
				Authorized: v[2].(uint8) != 0,
			}
		},
	},
	{
		ID:   IDGetAuthSessionTicketResponse,
		Name: "GetAuthSessionTicketResponse_t",
		Type: record("GetAuthSessionTicketResponse_t",
			field("m_hAuthTicket", wit.U32{}),
			field("m_eResult", wit.S32{}),
		),
		build: func(v []any) Record {
			return GetAuthSessionTicketResponse{
				AuthTicket: v[0].(uint32),
				Result:     EResult(v[1].(int32)),
			}
		},
	},
	{
		ID:   IDGameOverlayActivated,
		Name: "GameOverlayActivated_t",
		Type: record("GameOverlayActivated_t",
			field("m_bActive", wit.U8{}),
			field("m_bUserInitiated", wit.Bool{}),
			field("m_nAppID", wit.U32{}),
			field("m_dwOverlayPID", wit.U32{}),
		),
		build: func(v []any) Record {
			return GameOverlayActivated{
				Active:        v[0].(uint8) != 0,
				UserInitiated: v[1].(bool),
				AppID:         v[2].(uint32),
				OverlayPID:    v[3].(uint32),
			}
		},
	},
	{
		ID:   IDCallCompleted,
		Name: "SteamAPICallCompleted_t",
		Type: record("SteamAPICallCompleted_t",
			field("m_hAsyncCall", wit.U64{}),
			field("m_iCallback", wit.S32{}),
			field("m_cubParam", wit.U32{}),
		),
		build: func(v []any) Record {
			return CallCompleted{
				Call:     steamdispatch.CallHandle(v[0].(uint64)),
				Callback: steamdispatch.CallbackID(v[1].(int32)),
				Size:     v[2].(uint32),
			}
		},
	},
	{
		ID:    IDSteamShutdown,
		Name:  "SteamShutdown_t",
		Type:  record("SteamShutdown_t"),
		build: func([]any) Record { return SteamShutdown{} },
	},
	{
		ID:   IDDlcInstalled,
		Name: "DlcInstalled_t",
		Type: record("DlcInstalled_t", field("m_nAppID", wit.U32{})),
		build: func(v []any) Record {
			return DlcInstalled{AppID: v[0].(uint32)}
		},
	},
	{
		ID:   IDRemoteStorageFileWriteAsyncComplete,
		Name: "RemoteStorageFileWriteAsyncComplete_t",
		Type: record("RemoteStorageFileWriteAsyncComplete_t", field("m_eResult", wit.S32{})),
		build: func(v []any) Record {
			return RemoteStorageFileWriteAsyncComplete{Result: EResult(v[0].(int32))}
		},
	},
	{
		ID:   IDRemoteStorageFileReadAsyncComplete,
		Name: "RemoteStorageFileReadAsyncComplete_t",
		Type: record("RemoteStorageFileReadAsyncComplete_t",
			field("m_hFileReadAsync", wit.U64{}),
			field("m_eResult", wit.S32{}),
			field("m_nOffset", wit.U32{}),
			field("m_cubRead", wit.U32{}),
		),
		build: func(v []any) Record {
			return RemoteStorageFileReadAsyncComplete{
				Call:   steamdispatch.CallHandle(v[0].(uint64)),
				Result: EResult(v[1].(int32)),
				Offset: v[2].(uint32),
				Read:   v[3].(uint32),
			}
		},
	},
}

// NewRecordType builds a WIT record type for a custom table entry.
func NewRecordType(name string, fields ...wit.Field) *wit.TypeDef {
	return record(name, fields...)
}

// NewField builds one field of a custom record type.
func NewField(name string, t wit.Type) wit.Field {
	return field(name, t)
}

func record(name string, fields ...wit.Field) *wit.TypeDef {
	if fields == nil {
		fields = []wit.Field{}
	}
	return &wit.TypeDef{
		Name: &name,
		Kind: &wit.Record{Fields: fields},
	}
}

func field(name string, t wit.Type) wit.Field {
	return wit.Field{Name: name, Type: t}
}

type compiled struct {
	entry  Entry
	fields []wit.Field
	info   Info
}

// Table maps callback ids to record layouts. Lookups are safe for concurrent use.
type Table struct {
	calc    *Calculator
	entries map[steamdispatch.CallbackID]*compiled
	mu      sync.RWMutex
}

// NewTable creates a table holding the Builtin entries laid out with pack.
// A zero pack selects DefaultPack.
func NewTable(pack uint32) *Table {
	t := &Table{
		calc:    NewCalculator(pack),
		entries: make(map[steamdispatch.CallbackID]*compiled, len(Builtin)),
	}
	for _, e := range Builtin {
		if err := t.Register(e); err != nil {
			panic(err)
		}
	}
	return t
}

// Register adds or replaces an entry. The type must be a record of scalar fields.
func (t *Table) Register(e Entry) error {
	if e.Type == nil {
		return errors.InvalidInput(errors.PhaseRegister, "schema entry has no type")
	}
	rec, ok := e.Type.Kind.(*wit.Record)
	if !ok {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Path(e.Name).
			Callback(int32(e.ID)).
			Detail("schema type must be a record").
			Build()
	}
	for _, f := range rec.Fields {
		if !primitive(f.Type) {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(e.Name, f.Name).
				Callback(int32(e.ID)).
				Detail("unsupported field type %T", f.Type).
				Build()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[e.ID] = &compiled{
		entry:  e,
		fields: rec.Fields,
		info:   t.calc.Calculate(e.Type),
	}
	return nil
}

// Lookup returns the entry and layout for id.
func (t *Table) Lookup(id steamdispatch.CallbackID) (Entry, Info, bool) {
	c, ok := t.lookup(id)
	if !ok {
		return Entry{}, Info{}, false
	}
	return c.entry, c.info, true
}

// Size returns the native size of the record for id.
func (t *Table) Size(id steamdispatch.CallbackID) (uint32, bool) {
	c, ok := t.lookup(id)
	if !ok {
		return 0, false
	}
	return c.info.Size, true
}

// IDs returns the registered callback ids in ascending order.
func (t *Table) IDs() []steamdispatch.CallbackID {
	t.mu.RLock()
	ids := make([]steamdispatch.CallbackID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Pack returns the packing the table lays records out with.
func (t *Table) Pack() uint32 {
	return t.calc.Pack()
}

func (t *Table) lookup(id steamdispatch.CallbackID) (*compiled, bool) {
	t.mu.RLock()
	c, ok := t.entries[id]
	t.mu.RUnlock()
	return c, ok
}
