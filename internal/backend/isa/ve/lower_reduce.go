package ve

import (
	"github.com/tetratelabs/velower/internal/dag"
)

// lowerVecReduce lowers the reductions of masks to a population count of the set lanes.
// An add reduction is only handled when it counts the lanes of a comparison, possibly
// behind extensions or truncations.
func (m *machine) lowerVecReduce(n *dag.Node) (*dag.Node, bool) {
	x := n.Operand(0)
	switch n.Opcode() {
	case dag.OpcodeVecReduceOr:
		if !x.Type().IsMask() {
			return nil, false
		}
		cnt := m.b.AllocateNode().AsVecPopcount(x).Insert(m.b).Return()
		return m.b.AllocateNode().AsSetcc(cnt, m.constant(dag.TypeI64, 0), dag.CondNE, n.Type()).Insert(m.b), true
	case dag.OpcodeVecReduceAdd:
		x = peekThroughCasts(x)
		if x.Opcode() != dag.OpcodeSetcc || !x.Type().IsMask() {
			return nil, false
		}
		cnt := m.b.AllocateNode().AsVecPopcount(x).Insert(m.b)
		if n.Type().Bits() < dag.TypeI64.Bits() {
			return m.b.AllocateNode().AsUnary(dag.OpcodeTruncate, cnt.Return(), n.Type()).Insert(m.b), true
		}
		return cnt, true
	default:
		panic("BUG: not a reduction: " + n.Opcode().String())
	}
}

func peekThroughCasts(v dag.Value) dag.Value {
	for {
		switch v.Opcode() {
		case dag.OpcodeZeroExtend, dag.OpcodeSignExtend, dag.OpcodeTruncate:
			v = v.Node().Operand(0)
		default:
			return v
		}
	}
}
