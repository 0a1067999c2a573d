package ve

import (
	"github.com/tetratelabs/velower/internal/dag"
)

// gatherScatterAddresses computes base + index*scale lane-wise. A zero base with a unit
// scale is the common case of an index vector holding full addresses.
func (m *machine) gatherScatterAddresses(base, index, scale dag.Value) dag.Value {
	if b, ok := base.ConstantInt(); ok && b == 0 {
		if s, ok := scale.ConstantInt(); ok && s == 1 {
			return index
		}
	}
	typ := index.Type()
	scaled := m.binary(dag.OpcodeMul, index, m.broadcast(scale, typ))
	return m.binary(dag.OpcodeAdd, m.broadcast(base, typ), scaled)
}

// lowerMaskedGather lowers OpcodeMaskedGather. The inactive lanes take the pass-through
// value unless it is undefined or no lane is inactive.
func (m *machine) lowerMaskedGather(n *dag.Node) *dag.Node {
	passthru, mask := n.Operand(0), n.Operand(1)
	addrs := m.gatherScatterAddresses(n.Operand(2), n.Operand(3), n.Operand(4))
	gather := m.b.AllocateNode().AsVecGather(n.InChain(), addrs, mask, n.Type()).Insert(m.b)
	if passthru.IsUndef() || isAllTrueMask(mask) {
		return gather
	}
	blend := m.b.AllocateNode().AsSelect(mask, gather.Return(), passthru).Insert(m.b).Return()
	return m.mergeValues(blend, gather.ChainOut())
}

// lowerMaskedScatter lowers OpcodeMaskedScatter.
func (m *machine) lowerMaskedScatter(n *dag.Node) *dag.Node {
	x, mask := n.Operand(0), n.Operand(1)
	addrs := m.gatherScatterAddresses(n.Operand(2), n.Operand(3), n.Operand(4))
	return m.b.AllocateNode().AsVecScatter(n.InChain(), x, addrs, mask).Insert(m.b)
}

// isAllTrueMask returns true if every lane of the mask v is known to be set.
func isAllTrueMask(v dag.Value) bool {
	switch v.Opcode() {
	case dag.OpcodeVecMaskAll:
		return true
	case dag.OpcodeConstant:
		c, _ := v.ConstantInt()
		return c != 0
	case dag.OpcodeVecBroadcast:
		c, ok := v.Node().Operand(0).ConstantInt()
		return ok && c != 0
	case dag.OpcodeBuildVector:
		for _, l := range v.Node().Operands() {
			if c, ok := l.ConstantInt(); !ok || c == 0 {
				return false
			}
		}
		return true
	}
	return false
}
