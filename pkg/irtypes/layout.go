package irtypes

import (
	"strconv"

	"github.com/gocc-ir/ssair/pkg/archdesc"
)

// primBits gives the bit width of every fixed-width scalar kind except
// Ptr, whose width comes from the architecture descriptor instead.
var primBits = map[Kind]uint64{
	KindVoid: 0,
	KindBool: 1,
	KindI8:   8,
	KindI16:  16,
	KindI32:  32,
	KindI64:  64,
	KindU8:   8,
	KindU16:  16,
	KindU32:  32,
	KindU64:  64,
	KindF32:  32,
	KindF64:  64,
}

// CPrimitive enumerates the C surface-syntax primitive types that a
// front end maps onto an IR Type before any instruction can be built
// against them.
type CPrimitive int

const (
	CVoid CPrimitive = iota
	CBool
	CChar
	CSignedChar
	CUnsignedChar
	CShort
	CUnsignedShort
	CInt
	CUnsignedInt
	CLong
	CUnsignedLong
	CLongLong
	CUnsignedLongLong
	CFloat
	CDouble
)

// PrimType maps c to the IR Type that represents it on arch. CLong and
// CUnsignedLong take the pointer-width integer type, the "long"
// convention shared by every supported architecture; every other
// primitive has a fixed width regardless of architecture.
//
// This is a free function taking arch as a parameter, rather than a
// method on archdesc.Desc, for the same reason Alignment below is:
// irtypes already imports archdesc for SizeBits and friends, so
// archdesc cannot import irtypes back without a cycle.
func PrimType(arch *archdesc.Desc, c CPrimitive) Type {
	switch c {
	case CVoid:
		return Void
	case CBool:
		return Bool
	case CChar, CSignedChar:
		return I8
	case CUnsignedChar:
		return U8
	case CShort:
		return I16
	case CUnsignedShort:
		return U16
	case CInt:
		return I32
	case CUnsignedInt:
		return U32
	case CLong:
		return ptrIntType(arch, true)
	case CUnsignedLong:
		return ptrIntType(arch, false)
	case CLongLong:
		return I64
	case CUnsignedLongLong:
		return U64
	case CFloat:
		return F32
	case CDouble:
		return F64
	default:
		return Void
	}
}

func ptrIntType(arch *archdesc.Desc, signed bool) Type {
	if arch.PtrIntBits() == 32 {
		if signed {
			return I32
		}
		return U32
	}
	if signed {
		return I64
	}
	return U64
}

// SizeBits returns the size of t, in bits, on the given architecture.
// Function types have no size, and SizeBits returns 0.
func SizeBits(arch *archdesc.Desc, t Type) uint64 {
	switch tt := t.(type) {
	case Ptr:
		return arch.PtrIntBits()
	case Array:
		return tt.Len * SizeBits(arch, tt.Elem)
	case *StructOrUnion:
		if tt.IsUnion {
			return unionSizeBits(arch, tt)
		}
		return structSizeBits(arch, tt)
	case Function:
		return 0
	default:
		if bits, ok := primBits[t.Kind()]; ok {
			return bits
		}
		return 0
	}
}

// SizeBytes rounds SizeBits up to a whole number of bytes.
func SizeBytes(arch *archdesc.Desc, t Type) uint64 {
	bits := SizeBits(arch, t)
	byteBits := arch.ByteBits()
	return (bits + byteBits - 1) / byteBits
}

func structSizeBits(arch *archdesc.Desc, s *StructOrUnion) uint64 {
	var total uint64
	for _, f := range s.Fields {
		total += SizeBits(arch, f.Type)
	}
	return total
}

func unionSizeBits(arch *archdesc.Desc, u *StructOrUnion) uint64 {
	var max uint64
	for _, f := range u.Fields {
		if bits := SizeBits(arch, f.Type); bits > max {
			max = bits
		}
	}
	return max
}

// Alignment returns the required alignment of t, in bytes, on the given
// architecture. A struct's alignment is its first field's alignment (1
// for an empty struct); a union's alignment follows the same rule, since
// every other sizing rule is already shared between the two. Function
// types have alignment 1 (unused).
func Alignment(arch *archdesc.Desc, t Type) uint64 {
	switch tt := t.(type) {
	case Ptr:
		return arch.PtrIntBits() / arch.ByteBits()
	case Array:
		return Alignment(arch, tt.Elem)
	case *StructOrUnion:
		if len(tt.Fields) == 0 {
			return 1
		}
		return Alignment(arch, tt.Fields[0].Type)
	case Function:
		return 1
	default:
		bits, ok := primBits[t.Kind()]
		if !ok || bits == 0 {
			return 1
		}
		return bits / arch.ByteBits()
	}
}

// PadStruct returns a new struct with synthetic padding fields inserted
// so that every field lands at an address satisfying its own alignment:
// walk the fields in order, and before each field whose offset is not
// already aligned, insert a byte-array field named "__padding_<n>" of
// exactly the size needed to close the gap.
//
// Unions must not be passed to PadStruct (padding a union's overlapping
// fields is meaningless); callers are responsible for that precondition.
func PadStruct(arch *archdesc.Desc, src *StructOrUnion) *StructOrUnion {
	var out []Field
	var offset uint64
	padCount := 0
	for _, f := range src.Fields {
		align := Alignment(arch, f.Type)
		if align > 0 {
			if rem := offset % align; rem != 0 {
				pad := align - rem
				padField := Field{
					Index: len(out),
					Name:  paddingName(padCount),
					Type:  Array{Elem: U8, Len: pad},
				}
				out = append(out, padField)
				offset += pad
				padCount++
			}
		}
		out = append(out, Field{Index: len(out), Name: f.Name, Type: f.Type})
		offset += SizeBytes(arch, f.Type)
	}
	return NewStructOrUnion(src.ID, src.IsUnion, out)
}

func paddingName(n int) string {
	return "__padding_" + strconv.Itoa(n)
}
