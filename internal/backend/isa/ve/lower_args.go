package ve

import (
	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/dag"
)

// LowerFormalArguments implements backend.Machine.LowerFormalArguments.
func (m *machine) LowerFormalArguments(ch dag.Chain, _ backend.CallConv, isVarArg bool, ins []backend.ValueDescriptor) (dag.Chain, []dag.Value) {
	locs, _, ok := ccVE.Classify(ins)
	if !ok {
		panic("BUG: formal argument without a location")
	}

	ret := make([]dag.Value, len(locs))
	var packed dag.Value
	for i := range locs {
		loc := &locs[i]
		if loc.Kind == backend.LocationKindReg {
			var v dag.Value
			if loc.Half == backend.HalfLow {
				// The second half of a pair shares the register of the first.
				v = packed
			} else {
				typ := loc.LocType
				if loc.Half == backend.HalfHigh {
					typ = dag.TypeI64
				}
				vreg := m.frame.AddLiveIn(loc.Reg, regTypeOf(typ))
				v = m.b.AllocateNode().AsCopyFromReg(ch, vreg, typ, dag.Glue{}).Insert(m.b).Return()
				packed = v
			}
			ret[i] = m.demote(m.unpackHalf(v, loc), loc)
			continue
		}

		// Narrow extended values are read from the tail of their slot.
		fi := m.frame.CreateFixedObject(loc.ValType.Size(), loc.LoadOffset()+m.opts.StackArgumentBase, true)
		addr := m.b.AllocateNode().AsFrameIndex(fi).Insert(m.b).Return()
		ret[i] = m.load(ch, addr, loc.ValType).Return()
	}

	if isVarArg {
		// Every argument occupies 8 bytes of the argument area, and the variadic ones follow.
		m.frame.SetVarArgsFrameOffset(int64(len(locs))*8 + m.opts.StackArgumentBase)
	}
	return ch, ret
}
