package schema

import (
	"runtime"

	"go.bytecodealliance.org/wit"
)

// Pack values used by the Steamworks headers.
const (
	PackSmall uint32 = 4 // VALVE_CALLBACK_PACK_SMALL (Linux, macOS)
	PackLarge uint32 = 8 // VALVE_CALLBACK_PACK_LARGE (Windows)
)

// DefaultPack returns the callback packing of the current platform.
func DefaultPack() uint32 {
	if runtime.GOOS == "windows" {
		return PackLarge
	}
	return PackSmall
}

// Info describes the native layout of a type.
type Info struct {
	FieldOffs []uint32
	Size      uint32
	Align     uint32
}

// Calculator computes C struct layouts for WIT record types under a fixed pack.
// It is not safe for concurrent use.
type Calculator struct {
	cache map[*wit.TypeDef]Info
	pack  uint32
}

// NewCalculator creates a calculator. A zero pack selects DefaultPack.
func NewCalculator(pack uint32) *Calculator {
	if pack == 0 {
		pack = DefaultPack()
	}
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
		pack:  pack,
	}
}

// Pack returns the packing in effect.
func (c *Calculator) Pack() uint32 {
	return c.pack
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return c.packed(1)
	case wit.U16, wit.S16:
		return c.packed(2)
	case wit.U32, wit.S32, wit.F32:
		return c.packed(4)
	case wit.U64, wit.S64, wit.F64:
		return c.packed(8)
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) packed(natural uint32) Info {
	align := natural
	if align > c.pack {
		align = c.pack
	}
	return Info{Size: natural, Align: align}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info
	switch kind := t.Kind.(type) {
	case *wit.Record:
		info = c.calculateRecord(kind)
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

func (c *Calculator) calculateRecord(r *wit.Record) Info {
	if len(r.Fields) == 0 {
		return Info{Size: 1, Align: 1}
	}

	fieldOffs := make([]uint32, len(r.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, field := range r.Fields {
		fieldLayout := c.Calculate(field.Type)

		offset = alignTo(offset, fieldLayout.Align)
		fieldOffs[i] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	return Info{
		Size:      alignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

func alignTo(offset, align uint32) uint32 {
	return (offset + align - 1) &^ (align - 1)
}

// primitive reports whether t is a scalar type a callback struct may contain.
func primitive(t wit.Type) bool {
	switch t.(type) {
	case wit.U8, wit.S8, wit.Bool, wit.U16, wit.S16, wit.U32, wit.S32, wit.F32, wit.U64, wit.S64, wit.F64:
		return true
	}
	return false
}
