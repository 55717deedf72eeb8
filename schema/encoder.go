package schema

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/steam-dispatch/errors"
	"go.bytecodealliance.org/wit"
)

// Encode produces the native byte image of a built-in record under pack.
func Encode(rec Record, pack uint32) ([]byte, error) {
	return NewTable(pack).Encode(rec)
}

// Encode produces the native byte image of rec using the table's layouts.
// Padding bytes are zero. Unknown records encode to their raw payload.
func (t *Table) Encode(rec Record) ([]byte, error) {
	if u, ok := rec.(Unknown); ok {
		return clone(u.Payload), nil
	}

	c, ok := t.lookup(rec.CallbackID())
	if !ok {
		return nil, errors.UnknownDiscriminator(int32(rec.CallbackID()))
	}

	vals := rec.values()
	if len(vals) != len(c.fields) {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Path(c.entry.Name).
			Callback(int32(c.entry.ID)).
			Detail("record has %d values, layout has %d fields", len(vals), len(c.fields)).
			Build()
	}

	buf := make([]byte, c.info.Size)
	for i, f := range c.fields {
		if !writeField(f.Type, buf[c.info.FieldOffs[i]:], vals[i]) {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
				Path(c.entry.Name, f.Name).
				Callback(int32(c.entry.ID)).
				Value(vals[i]).
				Detail("value of type %T does not match field", vals[i]).
				Build()
		}
	}
	return buf, nil
}

func writeField(t wit.Type, b []byte, v any) bool {
	switch t.(type) {
	case wit.U8:
		x, ok := v.(uint8)
		if ok {
			b[0] = x
		}
		return ok
	case wit.S8:
		x, ok := v.(int8)
		if ok {
			b[0] = uint8(x)
		}
		return ok
	case wit.Bool:
		x, ok := v.(bool)
		if ok {
			b[0] = u8(x)
		}
		return ok
	case wit.U16:
		x, ok := v.(uint16)
		if ok {
			binary.LittleEndian.PutUint16(b, x)
		}
		return ok
	case wit.S16:
		x, ok := v.(int16)
		if ok {
			binary.LittleEndian.PutUint16(b, uint16(x))
		}
		return ok
	case wit.U32:
		x, ok := v.(uint32)
		if ok {
			binary.LittleEndian.PutUint32(b, x)
		}
		return ok
	case wit.S32:
		x, ok := v.(int32)
		if ok {
			binary.LittleEndian.PutUint32(b, uint32(x))
		}
		return ok
	case wit.F32:
		x, ok := v.(float32)
		if ok {
			binary.LittleEndian.PutUint32(b, math.Float32bits(x))
		}
		return ok
	case wit.U64:
		x, ok := v.(uint64)
		if ok {
			binary.LittleEndian.PutUint64(b, x)
		}
		return ok
	case wit.S64:
		x, ok := v.(int64)
		if ok {
			binary.LittleEndian.PutUint64(b, uint64(x))
		}
		return ok
	case wit.F64:
		x, ok := v.(float64)
		if ok {
			binary.LittleEndian.PutUint64(b, math.Float64bits(x))
		}
		return ok
	}
	return false
}
