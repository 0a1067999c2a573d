package ve

import (
	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/regs"
	"github.com/tetratelabs/velower/internal/dag"
)

// CanLowerReturn implements backend.Machine.CanLowerReturn.
func (m *machine) CanLowerReturn(_ backend.CallConv, _ bool, outs []backend.ValueDescriptor) bool {
	_, _, ok := retCCVE.Classify(outs)
	return ok
}

// LowerReturn implements backend.Machine.LowerReturn.
func (m *machine) LowerReturn(ch dag.Chain, _ backend.CallConv, _ bool, outs []backend.OutputArg) dag.Chain {
	locs, _, ok := retCCVE.Classify(argDescs(outs))
	if !ok {
		panic("BUG: can only return in registers")
	}

	var gl dag.Glue
	var operands []regs.VReg
	for i := 0; i < len(locs); i++ {
		loc := &locs[i]
		v := m.promote(outs[i].Value, loc)
		if loc.Half == backend.HalfHigh {
			// The pair is combined into one 64-bit register: first value in bits 63..32,
			// second zero-extended into bits 31..0.
			hi := m.unary(dag.OpcodeAnyExtend, v, dag.TypeI64)
			hi = m.binary(dag.OpcodeShl, hi, m.constant(dag.TypeI64, 32))
			i++
			next := &locs[i]
			lo := m.unary(dag.OpcodeZeroExtend, m.promote(outs[i].Value, next), dag.TypeI64)
			v = m.binary(dag.OpcodeOr, hi, lo)
		}

		reg := physReg(loc.Reg)
		n := m.b.AllocateNode().AsCopyToReg(ch, reg, v, gl).Insert(m.b)
		ch, gl = n.ChainOut(), n.GlueOut()
		operands = append(operands, reg)
	}
	return m.b.AllocateNode().AsRetFlag(ch, operands, gl).Insert(m.b).ChainOut()
}
