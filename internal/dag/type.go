package dag

import "fmt"

// Type is the type of a Value. The lower 8 bits hold the element kind and the upper bits
// hold the lane count, which is zero for scalars.
type Type uint32

const (
	typeInvalid Type = iota

	// TypeI1 is a 1-bit boolean.
	TypeI1
	// TypeI8 is an 8-bit integer.
	TypeI8
	// TypeI16 is a 16-bit integer.
	TypeI16
	// TypeI32 is a 32-bit integer.
	TypeI32
	// TypeI64 is a 64-bit integer. Pointers are TypeI64.
	TypeI64
	// TypeF32 is a 32-bit floating point number.
	TypeF32
	// TypeF64 is a 64-bit floating point number.
	TypeF64
	// TypeF128 is a 128-bit floating point number, held in a register pair.
	TypeF128

	typeEnd
)

// Frequently used vector types.
var (
	TypeV256I1  = VectorOf(TypeI1, 256)
	TypeV512I1  = VectorOf(TypeI1, 512)
	TypeV256I32 = VectorOf(TypeI32, 256)
	TypeV256I64 = VectorOf(TypeI64, 256)
	TypeV256F32 = VectorOf(TypeF32, 256)
	TypeV256F64 = VectorOf(TypeF64, 256)
	TypeV512I32 = VectorOf(TypeI32, 512)
	TypeV512F32 = VectorOf(TypeF32, 512)
)

// VectorOf returns the vector type with the given scalar element type and lane count.
func VectorOf(elem Type, lanes int) Type {
	if elem.IsVector() || elem == typeInvalid || elem >= typeEnd {
		panic(fmt.Sprintf("BUG: invalid vector element type %s", elem))
	}
	if lanes <= 0 || lanes > 0xffff {
		panic(fmt.Sprintf("BUG: invalid lane count %d", lanes))
	}
	return elem | Type(lanes)<<8
}

// Elem returns the element type of a vector, or t itself for scalars.
func (t Type) Elem() Type {
	return t & 0xff
}

// Lanes returns the lane count, which is zero for scalars.
func (t Type) Lanes() int {
	return int(t >> 8)
}

// IsVector returns true if the type is a vector.
func (t Type) IsVector() bool {
	return t.Lanes() != 0
}

// IsMask returns true if the type is a vector of booleans.
func (t Type) IsMask() bool {
	return t.IsVector() && t.Elem() == TypeI1
}

// IsInt returns true if the (element) type is an integer.
func (t Type) IsInt() bool {
	e := t.Elem()
	return e >= TypeI1 && e <= TypeI64
}

// IsFloat returns true if the (element) type is a floating point number.
func (t Type) IsFloat() bool {
	e := t.Elem()
	return e >= TypeF32 && e <= TypeF128
}

// ElemBits returns the bit width of the (element) type.
func (t Type) ElemBits() int {
	switch t.Elem() {
	case TypeI1:
		return 1
	case TypeI8:
		return 8
	case TypeI16:
		return 16
	case TypeI32, TypeF32:
		return 32
	case TypeI64, TypeF64:
		return 64
	case TypeF128:
		return 128
	default:
		panic("BUG: invalid type")
	}
}

// Bits returns the total bit width of the type.
func (t Type) Bits() int {
	if t.IsVector() {
		return t.ElemBits() * t.Lanes()
	}
	return t.ElemBits()
}

// Size returns the in-memory size in bytes. Booleans occupy one byte.
func (t Type) Size() int64 {
	if !t.IsVector() {
		if t == TypeI1 {
			return 1
		}
		return int64(t.ElemBits() / 8)
	}
	return int64((t.Bits() + 7) / 8)
}

// Valid returns true if the type is valid.
func (t Type) Valid() bool {
	e := t.Elem()
	return e != typeInvalid && e < typeEnd
}

// String implements fmt.Stringer.
func (t Type) String() string {
	var elem string
	switch t.Elem() {
	case TypeI1:
		elem = "i1"
	case TypeI8:
		elem = "i8"
	case TypeI16:
		elem = "i16"
	case TypeI32:
		elem = "i32"
	case TypeI64:
		elem = "i64"
	case TypeF32:
		elem = "f32"
	case TypeF64:
		elem = "f64"
	case TypeF128:
		elem = "f128"
	default:
		return "invalid"
	}
	if t.IsVector() {
		return fmt.Sprintf("v%d%s", t.Lanes(), elem)
	}
	return elem
}
