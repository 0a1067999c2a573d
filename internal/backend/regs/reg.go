// Package regs holds the register identifiers shared by the operation graph and the lowering.
package regs

import (
	"fmt"
)

// VReg names a register that a CopyToReg/CopyFromReg node reads or writes.
// It is either a virtual register created by the frame layout for a live-in, or
// pinned to a physical register, in which case RealReg is valid.
type VReg uint64

// VRegID is the lower 32bit of VReg, which is the pure identifier of VReg without RealReg info.
type VRegID uint32

const (
	vRegIDInvalid VRegID = 1 << 31
	// VRegInvalid is the zero-like invalid VReg.
	VRegInvalid = VReg(vRegIDInvalid)
)

// vRegIDReservedForRealNum is the number of ids reserved for pinned physical registers.
const vRegIDReservedForRealNum = 256

// FromRealReg returns a VReg pinned to the given physical register.
func FromRealReg(r RealReg, typ RegType) VReg {
	if r == RealRegInvalid {
		panic("BUG: FromRealReg with invalid register")
	}
	return VReg(r).SetRealReg(r).SetRegType(typ)
}

// NewVirtual returns a virtual register with the given id, which must not collide with pinned ids.
func NewVirtual(id VRegID, typ RegType) VReg {
	if id < vRegIDReservedForRealNum {
		panic(fmt.Sprintf("BUG: virtual register id %d collides with physical registers", id))
	}
	return VReg(id).SetRegType(typ)
}

// RealReg returns the RealReg of this VReg.
func (v VReg) RealReg() RealReg {
	return RealReg(v >> 32)
}

// IsRealReg returns true if this VReg is backed by a physical register.
func (v VReg) IsRealReg() bool {
	return v.RealReg() != RealRegInvalid
}

// SetRealReg sets the RealReg of this VReg and returns the updated VReg.
func (v VReg) SetRealReg(r RealReg) VReg {
	return VReg(r)<<32 | (v & 0xff_00_ffffffff)
}

// RegType returns the RegType of this VReg.
func (v VReg) RegType() RegType {
	return RegType(v >> 40)
}

// SetRegType sets the RegType of this VReg and returns the updated VReg.
func (v VReg) SetRegType(t RegType) VReg {
	return VReg(t)<<40 | (v & 0x00_ff_ffffffff)
}

// ID returns the VRegID of this VReg.
func (v VReg) ID() VRegID {
	return VRegID(v & 0xffffffff)
}

// Valid returns true if this VReg is Valid.
func (v VReg) Valid() bool {
	return v.ID() != vRegIDInvalid && v.RegType() != RegTypeInvalid
}

// String implements fmt.Stringer. Physical registers print through their name table,
// see RealRegName.
func (v VReg) String() string {
	if v.IsRealReg() {
		return fmt.Sprintf("r%d", v.ID())
	}
	return fmt.Sprintf("v%d?", v.ID())
}

// RealReg is a physical register number. Numbering is owned by the ISA package.
type RealReg uint8

// RealRegInvalid is the zero value of RealReg.
const RealRegInvalid RealReg = 0

// RegType is the register file a VReg lives in.
type RegType byte

const (
	RegTypeInvalid RegType = iota
	// RegTypeScalar is the general purpose file, shared by integers and floats.
	RegTypeScalar
	RegTypeVector
	RegTypeMask
	NumRegType
)

// String implements fmt.Stringer.
func (r RegType) String() string {
	switch r {
	case RegTypeScalar:
		return "scalar"
	case RegTypeVector:
		return "vector"
	case RegTypeMask:
		return "mask"
	default:
		return "invalid"
	}
}
