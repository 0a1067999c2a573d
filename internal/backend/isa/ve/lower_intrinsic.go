package ve

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/loweringapi"
)

// IntrinsicKind is how an intrinsic is rewritten into a vector instruction.
type IntrinsicKind byte

const (
	IntrinsicKindInvalid IntrinsicKind = iota
	// IntrinsicKindAddVL appends the vector length to the operands.
	IntrinsicKindAddVL
	// IntrinsicKindConvMaskVL is IntrinsicKindAddVL with the v4i64 and v8i64 operands bitcast to masks.
	IntrinsicKindConvMaskVL
	// IntrinsicKindRetMaskVL is IntrinsicKindConvMaskVL producing a mask, which is bitcast back
	// to the type of the intrinsic.
	IntrinsicKindRetMaskVL
	// IntrinsicKindLoadVL writes its only operand to the vector length register.
	IntrinsicKindLoadVL
)

// String implements fmt.Stringer.
func (k IntrinsicKind) String() string {
	switch k {
	case IntrinsicKindAddVL:
		return "add_vl"
	case IntrinsicKindConvMaskVL:
		return "convm_vl"
	case IntrinsicKindRetMaskVL:
		return "retm_vl"
	case IntrinsicKindLoadVL:
		return "lvl"
	default:
		return "invalid"
	}
}

type (
	// Intrinsic describes the lowering of one intrinsic.
	Intrinsic struct {
		Name string
		Kind IntrinsicKind
		// Inst is the vector instruction the intrinsic becomes. Unused by IntrinsicKindLoadVL.
		Inst uint64
	}

	// IntrinsicTable looks up intrinsics by number.
	IntrinsicTable interface {
		Intrinsic(id uint64) (Intrinsic, bool)
	}

	// IntrinsicMap implements IntrinsicTable.
	IntrinsicMap map[uint64]Intrinsic
)

// Intrinsic implements IntrinsicTable.Intrinsic.
func (t IntrinsicMap) Intrinsic(id uint64) (Intrinsic, bool) {
	i, ok := t[id]
	return i, ok
}

// lowerIntrinsic rewrites the intrinsics found in the table into vector instructions reading
// the vector length register. Other intrinsics are left as is.
func (m *machine) lowerIntrinsic(n *dag.Node) *dag.Node {
	if m.opts.Intrinsics == nil {
		return n
	}
	in, ok := m.opts.Intrinsics.Intrinsic(n.IntrinsicID())
	if !ok {
		return n
	}
	if loweringapi.VectorLoweringLoggingEnabled {
		fmt.Printf("[lower intrinsic] %s: %s\n", in.Name, in.Kind)
	}

	chained := n.Opcode() != dag.OpcodeIntrinsicWOChain
	if in.Kind == IntrinsicKindLoadVL {
		if !chained || n.NumOperands() != 1 {
			panic(fmt.Sprintf("BUG: %s must be a chained intrinsic with one operand", in.Name))
		}
		return m.b.AllocateNode().AsCopyToReg(n.InChain(), physReg(vl), n.Operand(0), dag.Glue{}).Insert(m.b)
	}

	ops := make([]dag.Value, 0, n.NumOperands()+1)
	for _, op := range n.Operands() {
		if in.Kind != IntrinsicKindAddVL {
			op = m.bitcastToMask(op)
		}
		ops = append(ops, op)
	}

	// A pure intrinsic reads the vector length at the function entry, others where they are.
	ch := m.b.EntryChain()
	if chained {
		ch = n.InChain()
	}
	vlNode := m.b.AllocateNode().AsCopyFromReg(ch, physReg(vl), dag.TypeI32, dag.Glue{}).Insert(m.b)
	ops = append(ops, vlNode.Return())
	var instCh dag.Chain
	if chained {
		instCh = vlNode.ChainOut()
	}

	typ := n.Type()
	if in.Kind == IntrinsicKindRetMaskVL {
		typ = maskTypeOf(typ)
	}
	inst := m.b.AllocateNode().AsVecInst(instCh, in.Inst, ops, typ).Insert(m.b)
	if in.Kind != IntrinsicKindRetMaskVL {
		return inst
	}
	if chained {
		panic(fmt.Sprintf("BUG: %s returning a mask must be pure", in.Name))
	}
	return m.b.AllocateNode().AsUnary(dag.OpcodeBitcast, inst.Return(), n.Type()).Insert(m.b)
}

// bitcastToMask reinterprets the v4i64 and v8i64 bit images of masks as v256i1 and v512i1.
func (m *machine) bitcastToMask(x dag.Value) dag.Value {
	typ := x.Type()
	if !isMaskImage(typ) {
		return x
	}
	return m.unary(dag.OpcodeBitcast, x, maskTypeOf(typ))
}

func isMaskImage(typ dag.Type) bool {
	return typ.IsVector() && typ.Elem() == dag.TypeI64 && (typ.Lanes() == 4 || typ.Lanes() == 8)
}

// maskTypeOf returns the mask type with one lane per bit of typ.
func maskTypeOf(typ dag.Type) dag.Type {
	return dag.VectorOf(dag.TypeI1, typ.Bits())
}
