package schema

import (
	"encoding/binary"
	"math"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"go.bytecodealliance.org/wit"
)

// Decoder turns payloads into records using a Table. It has no state of its own
// and is safe for concurrent use.
type Decoder struct {
	table *Table
}

// NewDecoder creates a decoder. A nil table selects NewTable(0).
func NewDecoder(t *Table) *Decoder {
	if t == nil {
		t = NewTable(0)
	}
	return &Decoder{table: t}
}

// Table returns the table the decoder reads layouts from.
func (d *Decoder) Table() *Table {
	return d.table
}

// Decode interprets payload as the record registered for id.
//
// An unregistered id yields an Unknown record together with an
// unknown_discriminator error. A payload whose length differs from the
// record size yields a malformed_record error.
func (d *Decoder) Decode(id steamdispatch.CallbackID, payload []byte) (Record, error) {
	c, ok := d.table.lookup(id)
	if !ok {
		return Unknown{Callback: id, Payload: clone(payload)}, errors.UnknownDiscriminator(int32(id))
	}

	// Empty structs are reported with size 1 by the SDK, but some shims send nothing.
	if len(c.fields) == 0 && len(payload) <= int(c.info.Size) {
		return c.make(nil), nil
	}
	if uint32(len(payload)) != c.info.Size {
		return nil, errors.MalformedRecord(int32(id), c.entry.Name, int(c.info.Size), len(payload))
	}

	vals := make([]any, len(c.fields))
	for i, f := range c.fields {
		vals[i] = readField(f.Type, payload[c.info.FieldOffs[i]:])
	}
	return c.make(vals), nil
}

func (c *compiled) make(vals []any) Record {
	if c.entry.build != nil {
		return c.entry.build(vals)
	}
	fields := make([]Field, len(c.fields))
	for i, f := range c.fields {
		fields[i] = Field{Name: f.Name, Value: vals[i]}
	}
	return Generic{Callback: c.entry.ID, Name: c.entry.Name, Fields: fields}
}

func readField(t wit.Type, b []byte) any {
	switch t.(type) {
	case wit.U8:
		return b[0]
	case wit.S8:
		return int8(b[0])
	case wit.Bool:
		return b[0] != 0
	case wit.U16:
		return binary.LittleEndian.Uint16(b)
	case wit.S16:
		return int16(binary.LittleEndian.Uint16(b))
	case wit.U32:
		return binary.LittleEndian.Uint32(b)
	case wit.S32:
		return int32(binary.LittleEndian.Uint32(b))
	case wit.F32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case wit.U64:
		return binary.LittleEndian.Uint64(b)
	case wit.S64:
		return int64(binary.LittleEndian.Uint64(b))
	case wit.F64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
