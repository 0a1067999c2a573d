package ve

import (
	"fmt"
	"math/bits"

	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/loweringapi"
)

// VectorPatternKind is the shape of the lanes of a BuildVector.
type VectorPatternKind byte

const (
	// VectorPatternFallback builds the vector lane by lane.
	VectorPatternFallback VectorPatternKind = iota
	// VectorPatternBroadcast has every defined lane equal to VectorPattern.Splat.
	VectorPatternBroadcast
	// VectorPatternSequence has lane i equal to Base + i*Stride.
	VectorPatternSequence
	// VectorPatternBlockStride has lane i equal to i / BlockLen: 0,0,..,1,1,..
	VectorPatternBlockStride
	// VectorPatternBlockModulo has lane i equal to i % BlockLen: 0,1,..,0,1,..
	VectorPatternBlockModulo
)

// String implements fmt.Stringer.
func (k VectorPatternKind) String() string {
	switch k {
	case VectorPatternFallback:
		return "fallback"
	case VectorPatternBroadcast:
		return "broadcast"
	case VectorPatternSequence:
		return "sequence"
	case VectorPatternBlockStride:
		return "block_stride"
	case VectorPatternBlockModulo:
		return "block_modulo"
	default:
		panic("BUG")
	}
}

// VectorPattern is the classification of the lanes of a BuildVector. Only the fields of Kind are set.
type VectorPattern struct {
	Kind     VectorPatternKind
	Splat    dag.Value
	Stride   int64
	Base     int64
	BlockLen int
}

// String implements fmt.Stringer.
func (p VectorPattern) String() string {
	switch p.Kind {
	case VectorPatternBroadcast:
		return fmt.Sprintf("broadcast(%s)", p.Splat)
	case VectorPatternSequence:
		return fmt.Sprintf("sequence(base=%d, stride=%d)", p.Base, p.Stride)
	case VectorPatternBlockStride, VectorPatternBlockModulo:
		return fmt.Sprintf("%s(%d)", p.Kind, p.BlockLen)
	default:
		return p.Kind.String()
	}
}

// ClassifyBuildVector classifies lanes in one left to right scan. Exactly one hypothesis
// is live at a time: a Sequence can turn into one of the block families at its first
// mismatch, and any later mismatch gives up.
func ClassifyBuildVector(typ dag.Type, lanes []dag.Value) VectorPattern {
	firstDef := -1
	for i, l := range lanes {
		if !l.IsUndef() {
			firstDef = i
			break
		}
	}
	if firstDef < 0 {
		return VectorPattern{Kind: VectorPatternBroadcast, Splat: lanes[0]}
	}

	splat := lanes[firstDef]
	isSplat := true
	for _, l := range lanes[firstDef+1:] {
		if !l.IsUndef() && !dag.SameValue(l, splat) {
			isSplat = false
			break
		}
	}
	if isSplat {
		return VectorPattern{Kind: VectorPatternBroadcast, Splat: splat}
	}

	if typ.IsMask() || !typ.IsInt() {
		return VectorPattern{Kind: VectorPatternFallback}
	}

	ret := VectorPattern{Kind: VectorPatternSequence}
	fallback := VectorPattern{Kind: VectorPatternFallback}
	haveStride := false
	var first, last int64
	for i, l := range lanes {
		blockStart := ret.BlockLen > 0 && i%ret.BlockLen == 0
		if ret.Kind == VectorPatternBlockStride {
			ret.Stride = 0
			if blockStart {
				ret.Stride = 1
			}
		}

		if l.IsUndef() {
			if ret.Kind == VectorPatternBlockModulo && blockStart {
				last = 0
			} else {
				last += ret.Stride
			}
			continue
		}

		v, ok := l.ConstantInt()
		if !ok {
			return fallback
		}

		switch {
		case i == firstDef:
			first = v
		case !haveStride:
			gap := int64(i - firstDef)
			if (v-last)%gap != 0 {
				return fallback
			}
			ret.Stride, haveStride = (v-last)/gap, true
		case ret.Kind == VectorPatternBlockModulo && blockStart:
			if v != 0 {
				return fallback
			}
		case v-last == ret.Stride:
		case ret.Kind != VectorPatternSequence:
			return fallback
		case v-last == 1 && ret.Stride == 0 && last == 0:
			ret.Kind, ret.BlockLen = VectorPatternBlockStride, i
		case v == 0 && ret.Stride == 1 && last+1 == int64(i):
			ret.Kind, ret.BlockLen = VectorPatternBlockModulo, i
		default:
			return fallback
		}
		last = v
	}

	switch ret.Kind {
	case VectorPatternSequence:
		ret.Base = first - int64(firstDef)*ret.Stride
	case VectorPatternBlockStride, VectorPatternBlockModulo:
		if bits.OnesCount(uint(ret.BlockLen)) != 1 {
			return fallback
		}
		ret.Stride = 0
	}
	return ret
}

// lowerBuildVector lowers OpcodeBuildVector according to ClassifyBuildVector.
func (m *machine) lowerBuildVector(n *dag.Node) *dag.Node {
	typ := n.Type()
	p := ClassifyBuildVector(typ, n.Operands())
	if loweringapi.VectorLoweringLoggingEnabled {
		fmt.Printf("[build vector] %s: %s\n", typ, p)
	}

	switch p.Kind {
	case VectorPatternBroadcast:
		return m.lowerBroadcast(m.b.AllocateNode().AsVecBroadcast(p.Splat, typ).Insert(m.b))
	case VectorPatternSequence:
		v := m.b.AllocateNode().AsVecSeq(typ).Insert(m.b).Return()
		if p.Stride != 1 {
			v = m.binary(dag.OpcodeMul, v, m.broadcastConst(typ, p.Stride))
		}
		if p.Base != 0 {
			v = m.binary(dag.OpcodeAdd, v, m.broadcastConst(typ, p.Base))
		}
		return v.Node()
	case VectorPatternBlockStride:
		seq := m.b.AllocateNode().AsVecSeq(typ).Insert(m.b).Return()
		shift := int64(bits.TrailingZeros(uint(p.BlockLen)))
		return m.b.AllocateNode().AsBinary(dag.OpcodeSrl, seq, m.broadcastConst(typ, shift)).Insert(m.b)
	case VectorPatternBlockModulo:
		seq := m.b.AllocateNode().AsVecSeq(typ).Insert(m.b).Return()
		return m.b.AllocateNode().AsBinary(dag.OpcodeAnd, seq, m.broadcastConst(typ, int64(p.BlockLen-1))).Insert(m.b)
	}

	lanes := n.Operands()
	v := m.lowerBroadcast(m.b.AllocateNode().AsVecBroadcast(lanes[0], typ).Insert(m.b)).Return()
	for i, l := range lanes {
		idx := m.constant(dag.TypeI64, int64(i))
		v = m.b.AllocateNode().AsInsertVectorElt(v, l, idx).Insert(m.b).Return()
	}
	return v.Node()
}

// lowerBroadcast materializes a broadcast to a mask vector, which has no broadcast
// instruction. Other broadcasts are returned as is.
func (m *machine) lowerBroadcast(n *dag.Node) *dag.Node {
	typ := n.Type()
	if !typ.IsMask() {
		return n
	}

	x := n.Operand(0)
	if c, ok := x.ConstantInt(); ok {
		all := m.b.AllocateNode().AsVecMaskAll(typ).Insert(m.b)
		if c != 0 {
			return all
		}
		return m.b.AllocateNode().AsVecNegateMask(all.Return()).Insert(m.b)
	}

	// A variable bit is compared against zero lane-wise.
	if x.Type() != dag.TypeI64 {
		x = m.unary(dag.OpcodeSignExtend, x, dag.TypeI64)
	}
	data := m.broadcast(x, dag.VectorOf(dag.TypeI64, typ.Lanes()))
	zero := m.broadcastConst(dag.VectorOf(dag.TypeI64, typ.Lanes()), 0)
	return m.b.AllocateNode().AsSetcc(data, zero, dag.CondNE, typ).Insert(m.b)
}
