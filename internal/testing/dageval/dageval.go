// Package dageval evaluates the pure part of an operation graph lane by lane. It is used by
// tests to check that a lowered expression computes the same lanes as the operation it replaced.
package dageval

import (
	"fmt"
	"math/bits"

	"github.com/tetratelabs/velower/internal/dag"
)

// Evaluator evaluates values. Leaves which are not constants must be bound with Bind.
// Undefined lanes evaluate to zero.
type Evaluator struct {
	bindings map[dag.Value][]uint64
	memo     map[dag.Value][]uint64
}

// New returns a new Evaluator.
func New() *Evaluator {
	return &Evaluator{bindings: map[dag.Value][]uint64{}, memo: map[dag.Value][]uint64{}}
}

// Bind fixes the lanes of v. A scalar has one lane.
func (e *Evaluator) Bind(v dag.Value, lanes []uint64) {
	e.bindings[v] = lanes
}

// Eval returns the lanes of v truncated to the element width. A scalar has one lane.
func (e *Evaluator) Eval(v dag.Value) ([]uint64, error) {
	if l, ok := e.bindings[v]; ok {
		return l, nil
	}
	if l, ok := e.memo[v]; ok {
		return l, nil
	}
	l, err := e.eval(v)
	if err != nil {
		return nil, err
	}
	typ := v.Type()
	for i := range l {
		l[i] = truncate(l[i], typ)
	}
	e.memo[v] = l
	return l, nil
}

func (e *Evaluator) operands(n *dag.Node) ([][]uint64, error) {
	ret := make([][]uint64, n.NumOperands())
	for i, op := range n.Operands() {
		l, err := e.Eval(op)
		if err != nil {
			return nil, err
		}
		ret[i] = l
	}
	return ret, nil
}

func (e *Evaluator) eval(v dag.Value) ([]uint64, error) {
	n := v.Node()
	typ := v.Type()
	lanes := typ.Lanes()
	if lanes == 0 {
		lanes = 1
	}
	ops, err := e.operands(n)
	if err != nil {
		return nil, err
	}

	ret := make([]uint64, lanes)
	switch n.Opcode() {
	case dag.OpcodeConstant, dag.OpcodeConstantFP:
		for i := range ret {
			ret[i] = n.Imm()
		}
	case dag.OpcodeUndef:
	case dag.OpcodeAdd, dag.OpcodeSub, dag.OpcodeMul, dag.OpcodeAnd, dag.OpcodeOr, dag.OpcodeXor,
		dag.OpcodeShl, dag.OpcodeSrl, dag.OpcodeSra:
		x, y := ops[0], ops[1]
		for i := range ret {
			ret[i] = binary(n.Opcode(), x[i], y[i], typ)
		}
	case dag.OpcodeSignExtend:
		from := n.Operand(0).Type()
		for i := range ret {
			ret[i] = uint64(signed(ops[0][i], from))
		}
	case dag.OpcodeZeroExtend, dag.OpcodeAnyExtend, dag.OpcodeTruncate, dag.OpcodeBitcast,
		dag.OpcodeAssertSext, dag.OpcodeAssertZext, dag.OpcodeMergeValues:
		copy(ret, ops[v.ResultIndex()])
	case dag.OpcodeSetcc:
		x, y := ops[0], ops[1]
		from := n.Operand(0).Type()
		for i := range ret {
			if compare(n.Cond(), x[i], y[i], from) {
				ret[i] = 1
			}
		}
	case dag.OpcodeSelect:
		c, x, y := ops[0], ops[1], ops[2]
		for i := range ret {
			ret[i] = y[i]
			if c[i%len(c)] != 0 {
				ret[i] = x[i]
			}
		}
	case dag.OpcodeBuildVector:
		for i := range ret {
			ret[i] = ops[i][0]
		}
	case dag.OpcodeInsertVectorElt:
		copy(ret, ops[0])
		ret[ops[2][0]] = ops[1][0]
	case dag.OpcodeExtractVectorElt:
		ret[0] = ops[0][ops[1][0]]
	case dag.OpcodeVectorShuffle:
		a, b := ops[0], ops[1]
		for i, s := range n.ShuffleMask() {
			switch {
			case s < 0:
			case s < len(a):
				ret[i] = a[s]
			default:
				ret[i] = b[s-len(a)]
			}
		}
	case dag.OpcodeVecBroadcast:
		for i := range ret {
			ret[i] = ops[0][0]
		}
	case dag.OpcodeVecSeq:
		for i := range ret {
			ret[i] = uint64(i)
		}
	case dag.OpcodeVecRotate:
		amount := int(n.Imm())
		for i := range ret {
			ret[i] = ops[0][((i-amount)%lanes+lanes)%lanes]
		}
	case dag.OpcodeVecMerge:
		a, b, m := ops[0], ops[1], ops[2]
		for i := range ret {
			ret[i] = a[i]
			if m[i] != 0 {
				ret[i] = b[i]
			}
		}
	case dag.OpcodeVecMaskAll:
		for i := range ret {
			ret[i] = 1
		}
	case dag.OpcodeVecNegateMask:
		for i := range ret {
			ret[i] = ops[0][i] ^ 1
		}
	case dag.OpcodeMaskInsertWord:
		copy(ret, ops[0])
		word, idx := n.MaskInsertWordData()
		for j := 0; j < 64; j++ {
			ret[idx*64+j] = (word >> uint(63-j)) & 1
		}
	case dag.OpcodeVecPopcount:
		var cnt uint64
		for _, l := range ops[0] {
			cnt += l & 1
		}
		ret[0] = cnt
	default:
		return nil, fmt.Errorf("cannot evaluate %s", n.Format())
	}
	return ret, nil
}

func truncate(x uint64, typ dag.Type) uint64 {
	if b := typ.ElemBits(); b < 64 {
		return x & (1<<uint(b) - 1)
	}
	return x
}

func signed(x uint64, typ dag.Type) int64 {
	b := uint(typ.ElemBits())
	if b >= 64 {
		return int64(x)
	}
	return int64(x<<(64-b)) >> (64 - b)
}

func binary(op dag.Opcode, x, y uint64, typ dag.Type) uint64 {
	switch op {
	case dag.OpcodeAdd:
		return x + y
	case dag.OpcodeSub:
		return x - y
	case dag.OpcodeMul:
		return x * y
	case dag.OpcodeAnd:
		return x & y
	case dag.OpcodeOr:
		return x | y
	case dag.OpcodeXor:
		return x ^ y
	case dag.OpcodeShl:
		return x << (y % 64)
	case dag.OpcodeSrl:
		return x >> (y % 64)
	default:
		return uint64(signed(x, typ) >> (y % 64))
	}
}

func compare(c dag.CondCode, x, y uint64, typ dag.Type) bool {
	sx, sy := signed(x, typ), signed(y, typ)
	switch c {
	case dag.CondEQ:
		return x == y
	case dag.CondNE:
		return x != y
	case dag.CondSLT:
		return sx < sy
	case dag.CondSLE:
		return sx <= sy
	case dag.CondSGT:
		return sx > sy
	case dag.CondSGE:
		return sx >= sy
	case dag.CondULT:
		return x < y
	case dag.CondULE:
		return x <= y
	case dag.CondUGT:
		return x > y
	case dag.CondUGE:
		return x >= y
	default:
		panic("BUG: invalid condition")
	}
}

// PopCount returns the number of set lanes of a mask evaluated by Eval.
func PopCount(mask []uint64) int {
	var ret int
	for _, l := range mask {
		ret += bits.OnesCount64(l & 1)
	}
	return ret
}
