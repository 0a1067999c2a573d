package backend

import (
	"github.com/tetratelabs/velower/internal/backend/regs"
	"github.com/tetratelabs/velower/internal/dag"
)

type (
	// Machine is the target lowering consumed by the instruction selection framework.
	// One Machine is used for one function at a time, see StartFunction.
	Machine interface {
		// StartFunction sets the graph and frame of the function the following calls operate on.
		StartFunction(b dag.Builder, frame FrameLayout)

		// LowerOperation lowers n. It returns the node whose results replace the results of n,
		// which is n itself when the operation is legal as is. ok is false when the framework
		// must expand the operation generically.
		LowerOperation(n *dag.Node) (replacement *dag.Node, ok bool)

		// ReplaceNodeResults is called for operations whose result type is illegal.
		// A nil return lets the framework expand the results.
		ReplaceNodeResults(n *dag.Node) []dag.Value

		// LowerCall lowers a call site and returns the output chain and the result values.
		LowerCall(info *CallLoweringInfo) (dag.Chain, []dag.Value)

		// LowerFormalArguments materializes the incoming arguments of the function.
		LowerFormalArguments(ch dag.Chain, cc CallConv, isVarArg bool, ins []ValueDescriptor) (dag.Chain, []dag.Value)

		// LowerReturn emits the return of outs.
		LowerReturn(ch dag.Chain, cc CallConv, isVarArg bool, outs []OutputArg) dag.Chain

		// CanLowerReturn returns true if outs can be returned in registers.
		CanLowerReturn(cc CallConv, isVarArg bool, outs []ValueDescriptor) bool

		// LeadingFence returns the fence to insert before an atomic operation.
		LeadingFence(ordering dag.AtomicOrdering, hasStore bool) FenceKind

		// TrailingFence returns the fence to insert after an atomic operation.
		TrailingFence(ordering dag.AtomicOrdering) FenceKind

		// ShouldExpandAtomicRMW returns how the generic atomic pass expands a read-modify-write.
		ShouldExpandAtomicRMW(op AtomicRMWOp) AtomicExpansionKind

		// RegisterByName resolves a named register of a register variable.
		RegisterByName(name string) (regs.RealReg, error)

		// ConstraintType resolves an inline assembly constraint. Only the target specific
		// constraints are recognized, the rest are left to the framework.
		ConstraintType(constraint string) (ConstraintKind, bool)
	}

	// FrameLayout is the frame of the function being lowered, owned by the framework.
	FrameLayout interface {
		// CreateFixedObject creates a frame object at a fixed offset from the incoming frame
		// and returns its frame index.
		CreateFixedObject(size, offset int64, immutable bool) int

		// AddLiveIn marks a physical register live on entry and returns the virtual register
		// holding its value.
		AddLiveIn(reg regs.RealReg, typ regs.RegType) regs.VReg

		// SetHasCalls marks the function as making calls.
		SetHasCalls()

		// SetFrameAddressTaken marks that the frame pointer is observed.
		SetFrameAddressTaken()

		// SetReturnAddressTaken marks that the return address is observed.
		SetReturnAddressTaken()

		// SetVarArgsFrameOffset records where the variadic arguments start.
		SetVarArgsFrameOffset(offset int64)

		// VarArgsFrameOffset returns the value set by SetVarArgsFrameOffset.
		VarArgsFrameOffset() int64

		// GlobalBaseReg returns the virtual register holding the global offset table base,
		// creating it on first use.
		GlobalBaseReg() regs.VReg
	}

	// RegisterInfo exposes the physical registers of the target.
	RegisterInfo interface {
		// CallPreservedRegs returns the registers preserved across a call under cc.
		CallPreservedRegs(cc CallConv) regs.RegSet

		// SpecialReg returns the physical register of a named role.
		SpecialReg(kind SpecialRegKind) regs.RealReg

		// RealRegName returns the assembly name of r.
		RealRegName(r regs.RealReg) string
	}

	// SymbolResolver answers questions about the symbols of the module being compiled.
	SymbolResolver interface {
		// Function returns the declaration of a function symbol in the module.
		Function(name string) (FunctionDecl, bool)
	}

	// FunctionDecl is the part of a function declaration the lowering needs.
	FunctionDecl struct {
		Name string
		// FirstParamPointeeSize is the size of the type pointed to by the first parameter,
		// or zero when the function has no pointer first parameter.
		FirstParamPointeeSize int64
		// DSOLocal is true when the symbol binds within the module, so that position
		// independent code reaches it without the GOT.
		DSOLocal bool
	}

	// CallLoweringInfo is a call site handed to Machine.LowerCall.
	CallLoweringInfo struct {
		Chain    dag.Chain
		Callee   dag.Value
		CallConv CallConv
		IsVarArg bool
		// IsTailCall is cleared by the lowering since tail calls are never emitted.
		IsTailCall bool
		Args       []OutputArg
		Results    []ValueDescriptor
	}

	// OutputArg is an outgoing argument or a returned value.
	OutputArg struct {
		Value dag.Value
		Desc  ValueDescriptor
	}

	// CallFrame is the per call site plan: what is copied to which register and what is
	// stored where in the outgoing argument area.
	CallFrame struct {
		// StackBytes is the size of the outgoing argument area, a multiple of 16.
		StackBytes int64
		RegCopies  []RegCopy
		Stores     []StackStore
		// SRetSize is the struct-return size probed for the callee.
		SRetSize int64
	}

	// RegCopy copies Value to Reg before the call.
	RegCopy struct {
		Reg   regs.RealReg
		Value dag.Value
	}

	// StackStore stores Value at Offset of the outgoing argument area.
	StackStore struct {
		Offset int64
		Value  dag.Value
	}

	// CallConv identifies a calling convention.
	CallConv byte

	// SpecialRegKind names a register with a fixed role.
	SpecialRegKind byte

	// FenceKind is the hardware fence to emit. The values match the fencem immediates.
	FenceKind byte

	// AtomicRMWOp is the operation of an atomic read-modify-write.
	AtomicRMWOp byte

	// AtomicExpansionKind is how an atomic operation is expanded before selection.
	AtomicExpansionKind byte

	// ConstraintKind is the class of an inline assembly constraint.
	ConstraintKind byte
)

const (
	// CallConvC is the default C calling convention.
	CallConvC CallConv = iota
	// CallConvFast is treated like CallConvC.
	CallConvFast
	// CallConvPreserveAll preserves every register but the ones used for results.
	CallConvPreserveAll
)

const (
	SpecialRegInvalid SpecialRegKind = iota
	SpecialRegStackPointer
	SpecialRegFramePointer
	SpecialRegStackLimit
	SpecialRegLinkRegister
	SpecialRegThreadPointer
	SpecialRegOuter
	SpecialRegInfo
	SpecialRegGOT
	SpecialRegPLT
	SpecialRegUserCC
	SpecialRegVectorLength
)

const (
	FenceNone FenceKind = iota
	// FenceStore orders stores.
	FenceStore
	// FenceLoad orders loads.
	FenceLoad
	// FenceLoadStore orders loads and stores.
	FenceLoadStore
)

// String implements fmt.Stringer.
func (f FenceKind) String() string {
	switch f {
	case FenceNone:
		return "none"
	case FenceStore:
		return "store"
	case FenceLoad:
		return "load"
	case FenceLoadStore:
		return "loadstore"
	default:
		panic("BUG")
	}
}

const (
	AtomicRMWXchg AtomicRMWOp = iota
	AtomicRMWAdd
	AtomicRMWSub
	AtomicRMWAnd
	AtomicRMWNand
	AtomicRMWOr
	AtomicRMWXor
	AtomicRMWMax
	AtomicRMWMin
	AtomicRMWUMax
	AtomicRMWUMin
)

const (
	// AtomicExpansionNone leaves the operation to instruction selection.
	AtomicExpansionNone AtomicExpansionKind = iota
	// AtomicExpansionCmpXChg expands the operation into a compare-exchange loop.
	AtomicExpansionCmpXChg
)

const (
	ConstraintUnknown ConstraintKind = iota
	ConstraintRegClass
	ConstraintMemory
	ConstraintOther
)
