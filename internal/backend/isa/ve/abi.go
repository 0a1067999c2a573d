package ve

import (
	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/regs"
	"github.com/tetratelabs/velower/internal/dag"
)

const (
	// argsBaseOffset is the offset of the argument area from the stack pointer at the call.
	argsBaseOffset = 176
	// argsPreservedSize is the area reserved for the register arguments at the start of
	// the argument area, so that a callee can spill them next to the stack arguments.
	argsPreservedSize = 64
)

var (
	scalarTypes = []dag.Type{dag.TypeI32, dag.TypeI64, dag.TypeF32, dag.TypeF64}
	narrowTypes = []dag.Type{dag.TypeI1, dag.TypeI8, dag.TypeI16}
	vectorTypes = []dag.Type{
		dag.TypeV256I32, dag.TypeV256I64, dag.TypeV256F32, dag.TypeV256F64, dag.TypeV512I32, dag.TypeV512F32,
	}

	argRegs = []regs.RealReg{sx0, sx1, sx2, sx3, sx4, sx5, sx6, sx7}
	// Each quad register aliases an even/odd scalar pair.
	quadRegs    = []regs.RealReg{qReg(0), qReg(1), qReg(2), qReg(3)}
	quadShadows = [][]regs.RealReg{{sx0, sx1}, {sx2, sx3}, {sx4, sx5}, {sx6, sx7}}
	vecArgRegs  = []regs.RealReg{vReg(0), vReg(1), vReg(2), vReg(3), vReg(4), vReg(5), vReg(6), vReg(7)}
	// %vm0 is hard-wired to all ones and never carries a value.
	maskArgRegs = []regs.RealReg{vmReg(1), vmReg(2), vmReg(3), vmReg(4), vmReg(5), vmReg(6), vmReg(7)}
)

// ccVE is the C calling convention: the first eight scalars in %s0-%s7, then 8 byte stack slots.
var ccVE = &backend.CallingConv{
	Name:                "CC_VE",
	PreservedStackBytes: argsPreservedSize,
	Rules: []backend.CCRule{
		{Types: narrowTypes, PromoteTo: dag.TypeI32},
		{Types: []dag.Type{dag.TypeI32}, Regs: argRegs, Packable: true},
		{Types: []dag.Type{dag.TypeI64, dag.TypeF32, dag.TypeF64}, Regs: argRegs},
		{Types: []dag.Type{dag.TypeF128}, Regs: quadRegs, Shadows: quadShadows},
		{Types: vectorTypes, Regs: vecArgRegs},
		{Types: []dag.Type{dag.TypeV256I1}, Regs: maskArgRegs},
		{Types: []dag.Type{dag.TypeF128}, StackSize: 16, StackAlign: 16},
		{Types: scalarTypes, StackSize: 8, StackAlign: 8},
	},
}

// ccVE2 places every argument on the stack from the start of the argument area, so that
// the i-th argument is at 8*i and the register arguments land in the preserved area.
// Variadic calls store every argument with it in addition to ccVE, since the callee may
// read them from memory.
var ccVE2 = &backend.CallingConv{
	Name: "CC_VE2",
	Rules: []backend.CCRule{
		{Types: narrowTypes, PromoteTo: dag.TypeI32},
		{Types: []dag.Type{dag.TypeF128}, StackSize: 16, StackAlign: 16},
		{Types: scalarTypes, StackSize: 8, StackAlign: 8},
	},
}

// retCCVE returns values in registers only.
var retCCVE = &backend.CallingConv{
	Name: "RetCC_VE",
	Rules: []backend.CCRule{
		{Types: narrowTypes, PromoteTo: dag.TypeI32},
		{Types: []dag.Type{dag.TypeI32}, Regs: argRegs, Packable: true},
		{Types: []dag.Type{dag.TypeI64, dag.TypeF32, dag.TypeF64}, Regs: argRegs},
		{Types: []dag.Type{dag.TypeF128}, Regs: quadRegs, Shadows: quadShadows},
		{Types: vectorTypes, Regs: vecArgRegs},
		{Types: []dag.Type{dag.TypeV256I1}, Regs: maskArgRegs},
	},
}

func argDescs(args []backend.OutputArg) []backend.ValueDescriptor {
	ret := make([]backend.ValueDescriptor, len(args))
	for i := range args {
		ret[i] = args[i].Desc
	}
	return ret
}

// promote extends v to the location type of loc.
func (m *machine) promote(v dag.Value, loc *backend.LocationAssignment) dag.Value {
	var op dag.Opcode
	switch loc.Ext {
	case backend.ExtFull:
		return v
	case backend.ExtSExt:
		op = dag.OpcodeSignExtend
	case backend.ExtZExt:
		op = dag.OpcodeZeroExtend
	case backend.ExtAExt:
		op = dag.OpcodeAnyExtend
	}
	return m.unary(op, v, loc.LocType)
}

// demote undoes promote on a value read from loc.
func (m *machine) demote(v dag.Value, loc *backend.LocationAssignment) dag.Value {
	switch loc.Ext {
	case backend.ExtFull:
		return v
	case backend.ExtSExt:
		v = m.b.AllocateNode().AsAssert(dag.OpcodeAssertSext, v, loc.ValType).Insert(m.b).Return()
	case backend.ExtZExt:
		v = m.b.AllocateNode().AsAssert(dag.OpcodeAssertZext, v, loc.ValType).Insert(m.b).Return()
	}
	return m.unary(dag.OpcodeTruncate, v, loc.ValType)
}

// regTypeOf returns the register type a value of typ is held in.
func regTypeOf(typ dag.Type) regs.RegType {
	switch {
	case typ.IsMask():
		return regs.RegTypeMask
	case typ.IsVector():
		return regs.RegTypeVector
	default:
		return regs.RegTypeScalar
	}
}

// ClassifyArguments places the outgoing arguments of a call. The placements of a variadic
// call also carry the stack-only location each argument is copied to. The returned size is
// the aligned argument area.
func ClassifyArguments(descs []backend.ValueDescriptor, isVarArg bool) ([]backend.DualPlacement, int64, bool) {
	if isVarArg {
		placements, size, ok := backend.ClassifyDual(descs, ccVE, ccVE2)
		return placements, backend.AlignStackSize(size), ok
	}
	locs, size, ok := ccVE.Classify(descs)
	ret := make([]backend.DualPlacement, len(locs))
	for i := range locs {
		ret[i].Primary = locs[i]
	}
	return ret, backend.AlignStackSize(size), ok
}
