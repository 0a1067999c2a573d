package ve

import (
	"github.com/tetratelabs/velower/internal/dag"
)

// lowerLoad splits a f128 load into two f64 loads. A load from a frame object stays as is
// since the frame index is only resolved after the frame is laid out.
func (m *machine) lowerLoad(n *dag.Node) *dag.Node {
	addr := n.Operand(0)
	if n.Type() != dag.TypeF128 || addr.Opcode() == dag.OpcodeFrameIndex {
		return n
	}
	lo := m.load(n.InChain(), addr, dag.TypeF64)
	hi := m.load(n.InChain(), m.addOffset(addr, 8), dag.TypeF64)
	pair := m.b.AllocateNode().AsBuildPair(lo.Return(), hi.Return(), dag.TypeF128).Insert(m.b).Return()
	return m.mergeValues(pair, m.tokenFactor(lo.ChainOut(), hi.ChainOut()).ChainOut())
}

// lowerStore splits a f128 store into two 64-bit stores. Stores of other types are legal.
func (m *machine) lowerStore(n *dag.Node) *dag.Node {
	x, addr := n.Operand(0), n.Operand(1)
	if x.Type() != dag.TypeF128 || addr.Opcode() == dag.OpcodeFrameIndex {
		return n
	}
	lo := m.b.AllocateNode().AsExtractHalf(x, false, dag.TypeI64).Insert(m.b).Return()
	hi := m.b.AllocateNode().AsExtractHalf(x, true, dag.TypeI64).Insert(m.b).Return()
	loCh := m.store(n.InChain(), lo, addr)
	hiCh := m.store(n.InChain(), hi, m.addOffset(addr, 8))
	return m.tokenFactor(loCh, hiCh)
}

// lowerMaskedLoad lowers a masked load whose mask is a constant prefix of set lanes into a
// dense load under a shortened vector length. Any other mask is not handled.
func (m *machine) lowerMaskedLoad(n *dag.Node) (*dag.Node, bool) {
	addr, mask, passthru := n.Operand(0), n.Operand(1), n.Operand(2)
	if mask.Opcode() != dag.OpcodeBuildVector {
		return nil, false
	}

	lanes := mask.Node().Operands()
	prefix := len(lanes)
	for i, l := range lanes {
		c, ok := l.ConstantInt()
		if !ok {
			return nil, false
		}
		if c != 0 {
			if prefix != len(lanes) {
				// A set lane after a cleared one.
				return nil, false
			}
			continue
		}
		if prefix == len(lanes) {
			prefix = i
		}
		if !passthruLaneUndef(passthru, i) {
			return nil, false
		}
	}

	ch := m.b.AllocateNode().AsSetVL(n.InChain(), m.constant(dag.TypeI32, int64(prefix))).Insert(m.b).ChainOut()
	ld := m.load(ch, addr, n.Type())
	ch = m.b.AllocateNode().AsSetVL(ld.ChainOut(), m.constant(dag.TypeI32, int64(len(lanes)))).Insert(m.b).ChainOut()
	return m.mergeValues(ld.Return(), ch), true
}

func passthruLaneUndef(passthru dag.Value, i int) bool {
	switch passthru.Opcode() {
	case dag.OpcodeUndef:
		return true
	case dag.OpcodeBuildVector:
		return passthru.Node().Operand(i).IsUndef()
	}
	return false
}
