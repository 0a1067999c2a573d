package ve

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/loweringapi"
)

// LowerOperation implements backend.Machine.LowerOperation.
func (m *machine) LowerOperation(n *dag.Node) (ret *dag.Node, ok bool) {
	if loweringapi.PrintLoweredGraph {
		defer func() {
			fmt.Printf("[lowered %s] ok=%v\n%s\n", n.Opcode(), ok, m.b.Format())
		}()
	}

	switch n.Opcode() {
	case dag.OpcodeGlobalAddress, dag.OpcodeConstantPool, dag.OpcodeBlockAddress:
		return m.lowerAddress(n), true
	case dag.OpcodeGlobalTLSAddress:
		return m.lowerGlobalTLSAddress(n), true
	case dag.OpcodeVAStart:
		return m.lowerVAStart(n), true
	case dag.OpcodeVAArg:
		return m.lowerVAArg(n), true
	case dag.OpcodeDynamicStackAlloc:
		return m.lowerDynamicStackAlloc(n), true
	case dag.OpcodeFrameAddr:
		return m.lowerFrameAddr(n), true
	case dag.OpcodeReturnAddr:
		return m.lowerReturnAddr(n), true
	case dag.OpcodeLoad:
		return m.lowerLoad(n), true
	case dag.OpcodeStore:
		return m.lowerStore(n), true
	case dag.OpcodeAtomicFence:
		return m.lowerAtomicFence(n), true
	case dag.OpcodeBuildVector:
		return m.lowerBuildVector(n), true
	case dag.OpcodeVecBroadcast:
		return m.lowerBroadcast(n), true
	case dag.OpcodeVectorShuffle:
		return m.lowerVectorShuffle(n)
	case dag.OpcodeMaskedGather:
		return m.lowerMaskedGather(n), true
	case dag.OpcodeMaskedScatter:
		return m.lowerMaskedScatter(n), true
	case dag.OpcodeMaskedLoad:
		return m.lowerMaskedLoad(n)
	case dag.OpcodeVecReduceOr, dag.OpcodeVecReduceAdd:
		return m.lowerVecReduce(n)
	case dag.OpcodeInsertVectorElt:
		return m.lowerElementAccess(n, n.Type())
	case dag.OpcodeExtractVectorElt:
		return m.lowerElementAccess(n, n.Operand(0).Type())
	case dag.OpcodeBitcast:
		if x := n.Operand(0); n.Type() == dag.TypeV256I64 && x.Type() == dag.TypeV256F64 {
			return x.Node(), true
		}
		return n, true
	case dag.OpcodeSetcc:
		return m.lowerSetcc(n), true
	case dag.OpcodeTruncate:
		return n, true
	case dag.OpcodeUMulO, dag.OpcodeSMulO:
		return m.lowerMulOverflow(n), true
	case dag.OpcodeIntrinsicWOChain, dag.OpcodeIntrinsicWChain, dag.OpcodeIntrinsicVoid:
		return m.lowerIntrinsic(n), true
	default:
		panic(fmt.Sprintf("BUG: should not custom lower %s", n.Opcode()))
	}
}

// lowerElementAccess keeps the element access of unpacked vectors. Packed vectors hold two
// 32-bit elements per lane and are left to the generic expansion.
func (m *machine) lowerElementAccess(n *dag.Node, vec dag.Type) (*dag.Node, bool) {
	if vec.Lanes() == m.opts.VectorLanes {
		switch vec.Elem() {
		case dag.TypeI32, dag.TypeF32, dag.TypeI64, dag.TypeF64:
			return n, true
		}
	}
	return nil, false
}

// lowerSetcc retypes a vector comparison to produce a mask.
func (m *machine) lowerSetcc(n *dag.Node) *dag.Node {
	typ := n.Type()
	if !typ.IsVector() || typ.IsMask() {
		return n
	}
	return m.b.AllocateNode().AsSetcc(n.Operand(0), n.Operand(1), n.Cond(), dag.VectorOf(dag.TypeI1, typ.Lanes())).Insert(m.b)
}

// mulOverflowLibcall computes the 128-bit product of two sign-extended 64-bit integers.
const mulOverflowLibcall = "__multi3"

// lowerMulOverflow multiplies 64-bit integers through mulOverflowLibcall. The product
// overflows when its high half is not the extension of its low half.
func (m *machine) lowerMulOverflow(n *dag.Node) *dag.Node {
	x, y := n.Operand(0), n.Operand(1)
	if x.Type() != dag.TypeI64 {
		return n
	}

	shift := m.constant(dag.TypeI64, 63)
	i64 := backend.ValueDescriptor{Type: dag.TypeI64}
	// Each operand is passed as its low half followed by its high half.
	args := []backend.OutputArg{
		{Value: x, Desc: i64},
		{Value: m.binary(dag.OpcodeSra, x, shift), Desc: i64},
		{Value: y, Desc: i64},
		{Value: m.binary(dag.OpcodeSra, y, shift), Desc: i64},
	}
	callee := m.b.AllocateNode().AsSymbolAddress(dag.OpcodeExternalSymbol, mulOverflowLibcall).Insert(m.b).Return()
	ch, results := m.LowerCall(&backend.CallLoweringInfo{
		Chain:    m.b.EntryChain(),
		Callee:   callee,
		CallConv: backend.CallConvC,
		Args:     args,
		Results:  []backend.ValueDescriptor{i64, i64},
	})

	lo, hi := results[0], results[1]
	ext := m.constant(dag.TypeI64, 0)
	if n.Opcode() == dag.OpcodeSMulO {
		ext = m.binary(dag.OpcodeSra, lo, shift)
	}
	overflow := m.lowerSetcc(m.b.AllocateNode().AsSetcc(hi, ext, dag.CondNE, dag.TypeI32).Insert(m.b))
	return m.b.AllocateNode().AsMergeValuePair(lo, overflow.Return(), ch).Insert(m.b)
}

// ReplaceNodeResults implements backend.Machine.ReplaceNodeResults.
func (m *machine) ReplaceNodeResults(n *dag.Node) []dag.Value {
	switch n.Opcode() {
	case dag.OpcodeBuildVector, dag.OpcodeInsertVectorElt, dag.OpcodeExtractVectorElt, dag.OpcodeVectorShuffle,
		dag.OpcodeMaskedScatter, dag.OpcodeMaskedGather, dag.OpcodeMaskedLoad:
		// Vector operations of illegal types are expanded.
		return nil
	default:
		panic(fmt.Sprintf("BUG: cannot legalize the result of %s", n.Opcode()))
	}
}

// ConstraintType implements backend.Machine.ConstraintType.
func (m *machine) ConstraintType(constraint string) (backend.ConstraintKind, bool) {
	if len(constraint) == 1 {
		switch constraint[0] {
		case 'r', 'f', 'e':
			return backend.ConstraintRegClass, true
		case 'I':
			// Signed 13-bit immediate.
			return backend.ConstraintOther, true
		}
	}
	return backend.ConstraintUnknown, false
}
