// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import "context"

// FieldType describes the shape of one field in a [StructLayout]. It is
// the consumer-facing contract a DWARF/JSON symbol loader would
// populate; this package never builds a FieldType from debug info
// itself.
type FieldType struct {
	// Kind selects which of the fields below applies.
	Kind FieldKind

	// Size is the field's width in bytes, for Kind == FieldBase.
	Size uint

	// StructName names the nested layout, for Kind == FieldStruct.
	// Resolution of the name to a [StructLayout] is the caller's job.
	StructName string

	// ElemSize and Count describe an array, for Kind == FieldArray.
	ElemSize uint
	Count    uint

	// BaseSize, BitPos, and BitLen describe a bitfield, for
	// Kind == FieldBitfield.
	BaseSize uint
	BitPos   uint
	BitLen   uint
}

// FieldKind selects the variant of a [FieldType].
type FieldKind int

const (
	FieldUnknown FieldKind = iota
	FieldBase
	FieldStruct
	FieldArray
	FieldBitfield
)

// StructLayout maps field names to their [FieldType] and byte offset
// within the struct.
type StructLayout struct {
	Fields  map[string]FieldType
	Offsets map[string]uint64
}

// NewStructLayout builds a [StructLayout] from parallel field-type and
// offset maps.
func NewStructLayout(fields map[string]FieldType, offsets map[string]uint64) *StructLayout {
	return &StructLayout{Fields: fields, Offsets: offsets}
}

// Struct is a typed view over a region of target memory at BaseAddr,
// shaped by Layout.
type Struct struct {
	BaseAddr uint64
	Layout   *StructLayout
}

// ReadField reads the field named name through backend, honoring its
// declared size. Only [FieldBase] and [FieldBitfield] fields can be
// reduced to a single integer value; [FieldStruct] and [FieldArray]
// fields return [ErrRegisterUnknown]-shaped lookup failure since they
// have no single scalar value.
func (s *Struct) ReadField(ctx context.Context, backend Backend, name string) (uint64, error) {
	ft, offset, err := s.lookup(name)
	if err != nil {
		return 0, err
	}

	addr := s.BaseAddr + offset
	switch ft.Kind {
	case FieldBase, FieldBitfield:
		size := ft.Size
		if ft.Kind == FieldBitfield {
			size = ft.BaseSize
		}
		val, err := readSized(ctx, backend, addr, size)
		if err != nil {
			return 0, err
		}
		if ft.Kind == FieldBitfield {
			mask := uint64(1)<<ft.BitLen - 1
			val = (val >> ft.BitPos) & mask
		}
		return val, nil
	default:
		return 0, &ErrRegisterUnknown{Name: name}
	}
}

// WriteField writes val to the field named name through backend.
// Bitfield writes read-modify-write the containing word so neighboring
// bits are preserved.
func (s *Struct) WriteField(ctx context.Context, backend Backend, name string, val uint64) error {
	ft, offset, err := s.lookup(name)
	if err != nil {
		return err
	}

	addr := s.BaseAddr + offset
	switch ft.Kind {
	case FieldBase:
		return writeSized(ctx, backend, addr, ft.Size, val)
	case FieldBitfield:
		current, err := readSized(ctx, backend, addr, ft.BaseSize)
		if err != nil {
			return err
		}
		mask := uint64(1)<<ft.BitLen - 1
		merged := (current &^ (mask << ft.BitPos)) | ((val & mask) << ft.BitPos)
		return writeSized(ctx, backend, addr, ft.BaseSize, merged)
	default:
		return &ErrRegisterUnknown{Name: name}
	}
}

func (s *Struct) lookup(name string) (FieldType, uint64, error) {
	ft, ok := s.Layout.Fields[name]
	if !ok {
		return FieldType{}, 0, &ErrRegisterUnknown{Name: name}
	}
	return ft, s.Layout.Offsets[name], nil
}

func readSized(ctx context.Context, backend Backend, addr uint64, size uint) (uint64, error) {
	switch size {
	case 1:
		v, err := backend.ReadUint8(ctx, addr)
		return uint64(v), err
	case 2:
		v, err := backend.ReadUint16(ctx, addr)
		return uint64(v), err
	case 4:
		v, err := backend.ReadUint32(ctx, addr)
		return uint64(v), err
	default:
		return backend.ReadUint64(ctx, addr)
	}
}

func writeSized(ctx context.Context, backend Backend, addr uint64, size uint, val uint64) error {
	switch size {
	case 1:
		return backend.WriteUint8(ctx, addr, uint8(val))
	case 2:
		return backend.WriteUint16(ctx, addr, uint16(val))
	case 4:
		return backend.WriteUint32(ctx, addr, uint32(val))
	default:
		return backend.WriteUint64(ctx, addr, val)
	}
}
