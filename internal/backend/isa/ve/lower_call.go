package ve

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/regs"
	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/loweringapi"
)

// fp128Helpers are the soft-float routines returning f128 through memory.
var fp128Helpers = map[string]struct{}{
	"_Q_add": {}, "_Q_sub": {}, "_Q_mul": {}, "_Q_div": {}, "_Q_sqrt": {}, "_Q_neg": {},
	"_Q_itoq": {}, "_Q_stoq": {}, "_Q_dtoq": {}, "_Q_utoq": {}, "_Q_lltoq": {}, "_Q_ulltoq": {},
}

func isFP128ABICall(sym string) bool {
	_, ok := fp128Helpers[sym]
	return ok
}

// LowerCall implements backend.Machine.LowerCall.
func (m *machine) LowerCall(info *backend.CallLoweringInfo) (dag.Chain, []dag.Value) {
	// Tail calls are not supported.
	info.IsTailCall = false

	frame := m.planCall(info)
	frame.SRetSize = m.SRetArgSize(info.Callee)
	if loweringapi.ABILoggingEnabled {
		fmt.Printf("[lower call] %s", spew.Sdump(frame))
	}

	ch := m.b.AllocateNode().AsCallseqStart(info.Chain, frame.StackBytes).Insert(m.b).ChainOut()
	m.frame.SetHasCalls()

	if len(frame.Stores) > 0 {
		spNode := m.b.AllocateNode().AsCopyFromReg(ch, physReg(stackPointer), dag.TypeI64, dag.Glue{}).Insert(m.b)
		sp, spCh := spNode.Return(), spNode.ChainOut()
		stores := make([]dag.Chain, len(frame.Stores))
		for i := range frame.Stores {
			st := &frame.Stores[i]
			stores[i] = m.store(spCh, st.Value, m.addOffset(sp, st.Offset+m.opts.StackArgumentBase))
		}
		ch = m.tokenFactor(stores...).ChainOut()
	}

	// The register copies are glued together and to the call so that nothing
	// clobbers the physical registers in between.
	callee := m.calleeAddress(info.Callee)
	var gl dag.Glue
	operands := make([]regs.VReg, 0, len(frame.RegCopies)+1)
	copyTo := func(r regs.RealReg, v dag.Value) {
		reg := physReg(r)
		n := m.b.AllocateNode().AsCopyToReg(ch, reg, v, gl).Insert(m.b)
		ch, gl = n.ChainOut(), n.GlueOut()
		operands = append(operands, reg)
	}
	copyTo(calleeRegister, callee)
	for _, c := range frame.RegCopies {
		copyTo(c.Reg, c.Value)
	}

	call := m.b.AllocateNode().AsCall(ch, operands, m.regInfo.CallPreservedRegs(info.CallConv), gl)
	call.SetSRetSize(frame.SRetSize)
	call.Insert(m.b)

	end := m.b.AllocateNode().AsCallseqEnd(call.ChainOut(), frame.StackBytes, call.GlueOut()).Insert(m.b)
	return m.copyResults(end.ChainOut(), end.GlueOut(), info.Results)
}

// planCall classifies the outgoing arguments of info.
func (m *machine) planCall(info *backend.CallLoweringInfo) *backend.CallFrame {
	descs := argDescs(info.Args)
	frame := &backend.CallFrame{}

	checkUnpacked := func(loc *backend.LocationAssignment) {
		if loc.Half != backend.HalfNone {
			panic(fmt.Sprintf("BUG: packed outgoing argument is not supported: %s", loc))
		}
	}

	if !info.IsVarArg {
		locs, size, ok := ccVE.Classify(descs)
		if !ok {
			panic("BUG: outgoing argument without a location")
		}
		for i := range locs {
			loc := &locs[i]
			checkUnpacked(loc)
			v := m.promote(info.Args[i].Value, loc)
			if loc.Kind == backend.LocationKindReg {
				frame.RegCopies = append(frame.RegCopies, backend.RegCopy{Reg: loc.Reg, Value: v})
			} else {
				frame.Stores = append(frame.Stores, backend.StackStore{Offset: loc.Offset, Value: v})
			}
		}
		frame.StackBytes = backend.AlignStackSize(size)
		return frame
	}

	// The callee of a variadic call may read any argument from memory, so register
	// arguments are also stored at their stack-only location.
	placements, size, ok := backend.ClassifyDual(descs, ccVE, ccVE2)
	if !ok {
		panic("BUG: outgoing argument without a location")
	}
	for i := range placements {
		p := &placements[i]
		checkUnpacked(&p.Primary)
		v := m.promote(info.Args[i].Value, &p.Primary)
		if p.Primary.Kind == backend.LocationKindReg {
			frame.RegCopies = append(frame.RegCopies, backend.RegCopy{Reg: p.Primary.Reg, Value: v})
			frame.Stores = append(frame.Stores, backend.StackStore{Offset: p.Memory.Offset, Value: v})
		} else {
			frame.Stores = append(frame.Stores, backend.StackStore{Offset: p.Primary.Offset, Value: v})
		}
	}
	frame.StackBytes = backend.AlignStackSize(size)
	return frame
}

// calleeAddress materializes the address of a direct callee. Other callees are returned as is.
func (m *machine) calleeAddress(callee dag.Value) dag.Value {
	var sym string
	var local bool
	switch callee.Opcode() {
	case dag.OpcodeGlobalAddress:
		var flags dag.GlobalFlags
		sym, _, flags = callee.Node().GlobalAddressData()
		local = m.isDSOLocal(sym, flags)
	case dag.OpcodeExternalSymbol:
		sym = callee.Node().Sym()
		local = m.isDSOLocal(sym, 0)
	default:
		return callee
	}

	if !m.opts.PositionIndependent {
		return m.hiLo(sym, 0, dag.SymbolVariantHi32, dag.SymbolVariantLo32)
	}
	if !local {
		// The PLT stub expects the GOT base in its register.
		m.frame.GlobalBaseReg()
	}
	return m.b.AllocateNode().AsGetFunPLT(sym).Insert(m.b).Return()
}

// isDSOLocal reports whether sym binds within the module being compiled.
func (m *machine) isDSOLocal(sym string, flags dag.GlobalFlags) bool {
	if flags&dag.GlobalDSOLocal != 0 {
		return true
	}
	if m.symbols != nil {
		if decl, ok := m.symbols.Function(sym); ok {
			return decl.DSOLocal
		}
	}
	return false
}

// SRetArgSize returns the size of the struct returned through memory by callee, or 0 when
// the callee is unknown. Unknown callees are not guessed.
func (m *machine) SRetArgSize(callee dag.Value) int64 {
	var sym string
	switch callee.Opcode() {
	case dag.OpcodeGlobalAddress:
		sym, _, _ = callee.Node().GlobalAddressData()
	case dag.OpcodeExternalSymbol:
		sym = callee.Node().Sym()
	default:
		return 0
	}
	if m.symbols != nil {
		if decl, ok := m.symbols.Function(sym); ok {
			return decl.FirstParamPointeeSize
		}
	}
	if callee.Opcode() == dag.OpcodeExternalSymbol && isFP128ABICall(sym) {
		return 16
	}
	return 0
}

// copyResults reads the call results from their return registers.
func (m *machine) copyResults(ch dag.Chain, gl dag.Glue, results []backend.ValueDescriptor) (dag.Chain, []dag.Value) {
	locs, _, ok := retCCVE.Classify(results)
	if !ok {
		panic("BUG: call result is not returned in a register")
	}
	ret := make([]dag.Value, len(locs))
	for i := range locs {
		loc := &locs[i]
		typ := loc.LocType
		if loc.Half != backend.HalfNone {
			typ = dag.TypeI64
		}

		reg := physReg(loc.Reg)
		var v dag.Value
		// Both halves of a packed pair come from one register, read it once.
		if prev := ch.Node(); prev.Opcode() == dag.OpcodeCopyFromReg && prev.Reg() == reg {
			v = prev.Return()
		} else {
			n := m.b.AllocateNode().AsCopyFromReg(ch, reg, typ, gl).Insert(m.b)
			ch, gl = n.ChainOut(), n.GlueOut()
			v = n.Return()
		}
		ret[i] = m.demote(m.unpackHalf(v, loc), loc)
	}
	return ch, ret
}

// unpackHalf extracts the 32-bit half of v selected by loc.
func (m *machine) unpackHalf(v dag.Value, loc *backend.LocationAssignment) dag.Value {
	switch loc.Half {
	case backend.HalfHigh:
		v = m.binary(dag.OpcodeSrl, v, m.constant(dag.TypeI64, 32))
	case backend.HalfLow:
	default:
		return v
	}
	return m.unary(dag.OpcodeTruncate, v, loc.LocType)
}
