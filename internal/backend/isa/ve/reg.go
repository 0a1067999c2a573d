package ve

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/regs"
)

// Physical registers. SX are the scalar registers, V the vector registers, VM the mask
// registers and Q the even/odd scalar pairs holding f128 values.
const (
	sx0 = regs.RealRegInvalid + 1 + iota
	sx1
	sx2
	sx3
	sx4
	sx5
	sx6
	sx7
	sx8
	sx9
	sx10
	sx11
	sx12
	sx13
	sx14
	sx15
	sx16
	sx17
	sx18
)

const (
	numSX = 64
	numV  = 64
	numVM = 16
	numQ  = 32

	firstV  = sx0 + numSX
	firstVM = firstV + numV
	firstQ  = firstVM + numVM
	ucc     = firstQ + numQ
	vl      = ucc + 1
)

// Registers with fixed roles.
const (
	stackPointer  = sx11
	framePointer  = sx9
	stackLimit    = sx8
	linkRegister  = sx10
	threadPointer = sx14
	outerRegister = sx12
	infoRegister  = sx17
	gotRegister   = sx15
	pltRegister   = sx16
	// calleeRegister holds the callee address of every call.
	calleeRegister = sx12
)

func sxReg(i int) regs.RealReg { return sx0 + regs.RealReg(i) }
func vReg(i int) regs.RealReg  { return firstV + regs.RealReg(i) }
func vmReg(i int) regs.RealReg { return firstVM + regs.RealReg(i) }
func qReg(i int) regs.RealReg  { return firstQ + regs.RealReg(i) }

func regType(r regs.RealReg) regs.RegType {
	switch {
	case r >= firstV && r < firstVM:
		return regs.RegTypeVector
	case r >= firstVM && r < firstQ:
		return regs.RegTypeMask
	default:
		return regs.RegTypeScalar
	}
}

func physReg(r regs.RealReg) regs.VReg {
	return regs.FromRealReg(r, regType(r))
}

// regName returns the assembly name of a physical register.
func regName(r regs.RealReg) string {
	switch {
	case r == regs.RealRegInvalid:
		return "invalid"
	case r < firstV:
		return fmt.Sprintf("%%s%d", r-sx0)
	case r < firstVM:
		return fmt.Sprintf("%%v%d", r-firstV)
	case r < firstQ:
		return fmt.Sprintf("%%vm%d", r-firstVM)
	case r < ucc:
		return fmt.Sprintf("%%q%d", r-firstQ)
	case r == ucc:
		return "%usrcc"
	case r == vl:
		return "%vl"
	default:
		return fmt.Sprintf("%%r%d?", r)
	}
}

var namedRegisters = map[string]regs.RealReg{
	"sp":    stackPointer,
	"fp":    framePointer,
	"sl":    stackLimit,
	"lr":    linkRegister,
	"tp":    threadPointer,
	"outer": outerRegister,
	"info":  infoRegister,
	"got":   gotRegister,
	"plt":   pltRegister,
	"usrcc": ucc,
}

// RegisterByName implements backend.Machine.RegisterByName.
func (m *machine) RegisterByName(name string) (regs.RealReg, error) {
	if r, ok := namedRegisters[name]; ok {
		return r, nil
	}
	return regs.RealRegInvalid, fmt.Errorf("invalid register name %q", name)
}

// registerInfo is the builtin backend.RegisterInfo of VE.
type registerInfo struct{}

// NewRegisterInfo returns the register information of VE.
func NewRegisterInfo() backend.RegisterInfo {
	return registerInfo{}
}

var (
	// %s18-%s33 are callee saved, plus the frame, link, stack, GOT and PLT registers.
	cPreserved = func() regs.RegSet {
		rs := regs.NewRegSet(framePointer, linkRegister, stackPointer, gotRegister, pltRegister)
		for i := 18; i <= 33; i++ {
			rs = rs.Add(sxReg(i))
		}
		return rs
	}()
	// Everything but the result registers %s0 and %s1 survives a preserve_all call.
	preserveAllPreserved = func() regs.RegSet {
		var rs regs.RegSet
		for i := 2; i < numSX; i++ {
			rs = rs.Add(sxReg(i))
		}
		for i := 0; i < numV; i++ {
			rs = rs.Add(vReg(i))
		}
		for i := 0; i < numVM; i++ {
			rs = rs.Add(vmReg(i))
		}
		return rs.Add(vl)
	}()
)

// CallPreservedRegs implements backend.RegisterInfo.CallPreservedRegs.
func (registerInfo) CallPreservedRegs(cc backend.CallConv) regs.RegSet {
	if cc == backend.CallConvPreserveAll {
		return preserveAllPreserved
	}
	return cPreserved
}

// SpecialReg implements backend.RegisterInfo.SpecialReg.
func (registerInfo) SpecialReg(kind backend.SpecialRegKind) regs.RealReg {
	switch kind {
	case backend.SpecialRegStackPointer:
		return stackPointer
	case backend.SpecialRegFramePointer:
		return framePointer
	case backend.SpecialRegStackLimit:
		return stackLimit
	case backend.SpecialRegLinkRegister:
		return linkRegister
	case backend.SpecialRegThreadPointer:
		return threadPointer
	case backend.SpecialRegOuter:
		return outerRegister
	case backend.SpecialRegInfo:
		return infoRegister
	case backend.SpecialRegGOT:
		return gotRegister
	case backend.SpecialRegPLT:
		return pltRegister
	case backend.SpecialRegUserCC:
		return ucc
	case backend.SpecialRegVectorLength:
		return vl
	default:
		panic(fmt.Sprintf("BUG: unknown special register %d", kind))
	}
}

// RealRegName implements backend.RegisterInfo.RealRegName.
func (registerInfo) RealRegName(r regs.RealReg) string {
	return regName(r)
}
