package schema

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"testing"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"go.bytecodealliance.org/wit"
)

func TestDecodeCallCompleted(t *testing.T) {
	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload[0:], 0xDEADBEEF00000001)
	binary.LittleEndian.PutUint32(payload[8:], 1332)
	binary.LittleEndian.PutUint32(payload[12:], 20)

	rec, err := NewDecoder(NewTable(PackSmall)).Decode(IDCallCompleted, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cc, ok := rec.(CallCompleted)
	if !ok {
		t.Fatalf("got %T, want CallCompleted", rec)
	}
	if cc.Call != 0xDEADBEEF00000001 {
		t.Errorf("Call = %#x", cc.Call)
	}
	if cc.Callback != IDRemoteStorageFileReadAsyncComplete {
		t.Errorf("Callback = %d", cc.Callback)
	}
	if cc.Size != 20 {
		t.Errorf("Size = %d", cc.Size)
	}
}

func TestDecodeUnknownDiscriminator(t *testing.T) {
	payload := []byte{1, 2, 3}
	rec, err := NewDecoder(nil).Decode(9999, payload)
	if !stderrors.Is(err, errors.ErrUnknownDiscriminator) {
		t.Fatalf("err = %v, want unknown_discriminator", err)
	}
	u, ok := rec.(Unknown)
	if !ok {
		t.Fatalf("got %T, want Unknown", rec)
	}
	if u.Callback != 9999 || !bytes.Equal(u.Payload, payload) {
		t.Errorf("Unknown = %+v", u)
	}

	payload[0] = 0xFF
	if u.Payload[0] != 1 {
		t.Error("Unknown payload aliases the input")
	}
}

func TestDecodeMalformedRecord(t *testing.T) {
	d := NewDecoder(NewTable(PackSmall))

	tests := []struct {
		name string
		id   steamdispatch.CallbackID
		size int
	}{
		{"short completion", IDCallCompleted, 12},
		{"long completion", IDCallCompleted, 24},
		{"pack 8 read result under pack 4", IDRemoteStorageFileReadAsyncComplete, 24},
		{"empty payload for dlc", IDDlcInstalled, 0},
		{"oversized empty struct", IDSteamShutdown, 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := d.Decode(tc.id, make([]byte, tc.size))
			if !stderrors.Is(err, errors.ErrMalformedRecord) {
				t.Fatalf("err = %v, want malformed_record", err)
			}
			if rec != nil {
				t.Errorf("record = %v, want nil", rec)
			}
		})
	}
}

func TestDecodeEmptyStruct(t *testing.T) {
	d := NewDecoder(NewTable(PackSmall))
	for _, payload := range [][]byte{nil, {0}} {
		rec, err := d.Decode(IDSteamShutdown, payload)
		if err != nil {
			t.Fatalf("Decode(%v): %v", payload, err)
		}
		if _, ok := rec.(SteamShutdown); !ok {
			t.Errorf("got %T, want SteamShutdown", rec)
		}
	}
}

func TestDecodeCustomEntry(t *testing.T) {
	table := NewTable(PackSmall)
	err := table.Register(Entry{
		ID:   42,
		Name: "Custom_t",
		Type: NewRecordType("Custom_t",
			NewField("m_flag", wit.Bool{}),
			NewField("m_value", wit.S64{}),
		),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	size, _ := table.Size(42)
	if size != 12 {
		t.Fatalf("size = %d, want 12", size)
	}

	payload := make([]byte, 12)
	payload[0] = 1
	binary.LittleEndian.PutUint64(payload[4:], uint64(0xFFFFFFFFFFFFFFFE))

	rec, err := NewDecoder(table).Decode(42, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g, ok := rec.(Generic)
	if !ok {
		t.Fatalf("got %T, want Generic", rec)
	}
	if g.CallbackID() != 42 || g.Name != "Custom_t" {
		t.Errorf("Generic = %+v", g)
	}
	if v, _ := g.Get("m_flag"); v != true {
		t.Errorf("m_flag = %v", v)
	}
	if v, _ := g.Get("m_value"); v != int64(-2) {
		t.Errorf("m_value = %v", v)
	}
	if _, ok := g.Get("missing"); ok {
		t.Error("Get should report missing fields")
	}
}

func TestRegisterRejectsNonScalarFields(t *testing.T) {
	table := NewTable(PackSmall)

	err := table.Register(Entry{ID: 7, Name: "Bad_t", Type: NewRecordType("Bad_t", NewField("s", wit.String{}))})
	if err == nil {
		t.Fatal("expected error for string field")
	}
	if _, _, ok := table.Lookup(7); ok {
		t.Error("rejected entry should not be registered")
	}

	err = table.Register(Entry{ID: 8, Name: "Nil_t"})
	if err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestEncodeDecodeBuiltins(t *testing.T) {
	records := []Record{
		SteamServersConnected{},
		SteamServersDisconnected{Result: ResultNoConnection},
		MicroTxnAuthorizationResponse{AppID: 480, OrderID: 1 << 40, Authorized: true},
		GetAuthSessionTicketResponse{AuthTicket: 5, Result: ResultOK},
		GameOverlayActivated{Active: true, UserInitiated: true, AppID: 480, OverlayPID: 77},
		CallCompleted{Call: 9, Callback: IDRemoteStorageFileReadAsyncComplete, Size: 20},
		SteamShutdown{},
		DlcInstalled{AppID: 1234},
		RemoteStorageFileWriteAsyncComplete{Result: ResultFail},
		RemoteStorageFileReadAsyncComplete{Call: 9, Result: ResultOK, Offset: 0, Read: 11},
	}

	for _, pack := range []uint32{PackSmall, PackLarge} {
		table := NewTable(pack)
		d := NewDecoder(table)
		for _, want := range records {
			data, err := table.Encode(want)
			if err != nil {
				t.Fatalf("pack %d: Encode(%T): %v", pack, want, err)
			}
			size, _ := table.Size(want.CallbackID())
			if uint32(len(data)) != size {
				t.Errorf("pack %d: %T encoded to %d bytes, want %d", pack, want, len(data), size)
			}
			got, err := d.Decode(want.CallbackID(), data)
			if err != nil {
				t.Fatalf("pack %d: Decode(%T): %v", pack, want, err)
			}
			if got != want {
				t.Errorf("pack %d: got %+v, want %+v", pack, got, want)
			}
		}
	}
}

func TestEncodeRejectsMismatchedGeneric(t *testing.T) {
	table := NewTable(PackSmall)
	if err := table.Register(Entry{ID: 42, Name: "Custom_t", Type: NewRecordType("Custom_t", NewField("m_n", wit.U32{}))}); err != nil {
		t.Fatal(err)
	}

	_, err := table.Encode(Generic{Callback: 42, Fields: []Field{{Name: "m_n", Value: "nope"}}})
	if err == nil {
		t.Error("expected type mismatch error")
	}

	_, err = table.Encode(Generic{Callback: 42})
	if err == nil {
		t.Error("expected field count error")
	}

	_, err = table.Encode(Generic{Callback: 43})
	if !stderrors.Is(err, errors.ErrUnknownDiscriminator) {
		t.Errorf("err = %v, want unknown_discriminator", err)
	}
}

func TestEResultString(t *testing.T) {
	if ResultOK.String() != "OK" || !ResultOK.OK() {
		t.Errorf("ResultOK = %s", ResultOK)
	}
	if ResultFail.OK() {
		t.Error("ResultFail should not be OK")
	}
	if got := EResult(12345).String(); got != "EResult(12345)" {
		t.Errorf("unknown result = %s", got)
	}
}

func TestTableIDsSorted(t *testing.T) {
	ids := NewTable(0).IDs()
	if len(ids) != len(Builtin) {
		t.Fatalf("got %d ids, want %d", len(ids), len(Builtin))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("ids not sorted: %v", ids)
		}
	}
}
