package ve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/testing/dageval"
)

// undefLane marks an undefined lane in the tables below.
const undefLane = int64(-1 << 62)

func buildLanes(b dag.Builder, elem dag.Type, vs []int64) []dag.Value {
	ret := make([]dag.Value, len(vs))
	for i, v := range vs {
		if v == undefLane {
			ret[i] = b.Undef(elem)
		} else {
			ret[i] = b.Constant(elem, v)
		}
	}
	return ret
}

func TestClassifyBuildVector(t *testing.T) {
	const u = undefLane
	typ := dag.VectorOf(dag.TypeI64, 8)
	for _, tc := range []struct {
		lanes []int64
		exp   VectorPattern
	}{
		{lanes: []int64{7, 7, 7, 7, 7, 7, 7, 7}, exp: VectorPattern{Kind: VectorPatternBroadcast}},
		{lanes: []int64{u, u, 7, u, 7, 7, u, u}, exp: VectorPattern{Kind: VectorPatternBroadcast}},
		{lanes: []int64{u, u, u, u, u, u, u, u}, exp: VectorPattern{Kind: VectorPatternBroadcast}},
		{lanes: []int64{0, 1, 2, 3, 4, 5, 6, 7}, exp: VectorPattern{Kind: VectorPatternSequence, Stride: 1}},
		{lanes: []int64{3, 5, 7, 9, 11, 13, 15, 17}, exp: VectorPattern{Kind: VectorPatternSequence, Base: 3, Stride: 2}},
		{lanes: []int64{9, 8, 7, 6, 5, 4, 3, 2}, exp: VectorPattern{Kind: VectorPatternSequence, Base: 9, Stride: -1}},
		{lanes: []int64{u, u, 4, 6, 8, u, 12, 14}, exp: VectorPattern{Kind: VectorPatternSequence, Stride: 2}},
		{lanes: []int64{u, 1, u, 7, 10, 13, 16, 19}, exp: VectorPattern{Kind: VectorPatternSequence, Base: -2, Stride: 3}},
		{lanes: []int64{0, 0, 1, 1, 2, 2, 3, 3}, exp: VectorPattern{Kind: VectorPatternBlockStride, BlockLen: 2}},
		{lanes: []int64{0, 0, 0, 0, 1, 1, 1, 1}, exp: VectorPattern{Kind: VectorPatternBlockStride, BlockLen: 4}},
		{lanes: []int64{0, 0, 1, u, 2, 2, 3, 3}, exp: VectorPattern{Kind: VectorPatternBlockStride, BlockLen: 2}},
		{lanes: []int64{0, 1, 0, 1, 0, 1, 0, 1}, exp: VectorPattern{Kind: VectorPatternBlockModulo, BlockLen: 2}},
		{lanes: []int64{0, 1, 2, 3, 0, 1, 2, 3}, exp: VectorPattern{Kind: VectorPatternBlockModulo, BlockLen: 4}},
		{lanes: []int64{0, 1, 0, 1, u, 1, 0, 1}, exp: VectorPattern{Kind: VectorPatternBlockModulo, BlockLen: 2}},
		// Blocks of three lanes are not a power of two.
		{lanes: []int64{0, 0, 0, 1, 1, 1, 2, 2}, exp: VectorPattern{Kind: VectorPatternFallback}},
		{lanes: []int64{3, 3, 3, 3, 0, 0, 0, 0}, exp: VectorPattern{Kind: VectorPatternFallback}},
		{lanes: []int64{0, 2, 0, 2, 0, 2, 0, 2}, exp: VectorPattern{Kind: VectorPatternFallback}},
		{lanes: []int64{0, 1, 3, 4, 5, 6, 7, 8}, exp: VectorPattern{Kind: VectorPatternFallback}},
		{lanes: []int64{0, 0, 1, 1, 1, 2, 3, 3}, exp: VectorPattern{Kind: VectorPatternFallback}},
		{lanes: []int64{0, 1, 2, 0, 1, 2, 0, 1}, exp: VectorPattern{Kind: VectorPatternFallback}},
		// The stride does not divide the gap exactly.
		{lanes: []int64{u, 0, u, 3, u, u, u, u}, exp: VectorPattern{Kind: VectorPatternFallback}},
	} {
		b := dag.NewBuilder()
		lanes := buildLanes(b, dag.TypeI64, tc.lanes)
		actual := ClassifyBuildVector(typ, lanes)
		if tc.exp.Kind == VectorPatternBroadcast {
			require.Equal(t, VectorPatternBroadcast, actual.Kind, "%v", tc.lanes)
			continue
		}
		require.Equal(t, tc.exp, actual, "%v", tc.lanes)
	}
}

func TestClassifyBuildVector_splatValue(t *testing.T) {
	b := dag.NewBuilder()
	x := b.AllocateNode().AsCopyFromReg(b.EntryChain(), physReg(sx0), dag.TypeI64, dag.Glue{}).Insert(b).Return()
	lanes := []dag.Value{b.Undef(dag.TypeI64), x, b.Undef(dag.TypeI64), x}
	actual := ClassifyBuildVector(dag.VectorOf(dag.TypeI64, 4), lanes)
	require.Equal(t, VectorPatternBroadcast, actual.Kind)
	require.Equal(t, x, actual.Splat)

	// Equal constants are the same value.
	lanes = constantLanes(b, dag.TypeI64, 5, 5, 5, 5)
	actual = ClassifyBuildVector(dag.VectorOf(dag.TypeI64, 4), lanes)
	require.Equal(t, VectorPatternBroadcast, actual.Kind)
	require.Equal(t, lanes[0], actual.Splat)
}

func TestClassifyBuildVector_fallback(t *testing.T) {
	b := dag.NewBuilder()

	// A non-constant lane.
	lanes := constantLanes(b, dag.TypeI64, 0, 1, 2, 3)
	lanes[2] = b.Undef(dag.TypeI32)
	lanes[2] = b.AllocateNode().AsUnary(dag.OpcodeZeroExtend, lanes[2], dag.TypeI64).Insert(b).Return()
	require.Equal(t, VectorPatternFallback, ClassifyBuildVector(dag.VectorOf(dag.TypeI64, 4), lanes).Kind)

	// Masks and floating point vectors are never sequences.
	lanes = constantLanes(b, dag.TypeI1, 0, 1, 0, 1)
	require.Equal(t, VectorPatternFallback, ClassifyBuildVector(dag.VectorOf(dag.TypeI1, 4), lanes).Kind)
	fp := make([]dag.Value, 4)
	for i := range fp {
		fp[i] = b.AllocateNode().AsConstantFP(dag.TypeF64, uint64(i)).Insert(b).Return()
	}
	require.Equal(t, VectorPatternFallback, ClassifyBuildVector(dag.VectorOf(dag.TypeF64, 4), fp).Kind)
}

func TestVectorPattern_String(t *testing.T) {
	require.Equal(t, "sequence(base=1, stride=2)", VectorPattern{Kind: VectorPatternSequence, Base: 1, Stride: 2}.String())
	require.Equal(t, "block_stride(4)", VectorPattern{Kind: VectorPatternBlockStride, BlockLen: 4}.String())
	require.Equal(t, "block_modulo(8)", VectorPattern{Kind: VectorPatternBlockModulo, BlockLen: 8}.String())
	require.Equal(t, "fallback", VectorPattern{}.String())
}

func TestMachine_lowerBuildVector(t *testing.T) {
	for _, tc := range []struct {
		name string
		elem dag.Type
		lane func(i int) int64
		exp  []dag.Opcode
	}{
		{
			name: "splat", elem: dag.TypeI64,
			lane: func(int) int64 { return 42 },
			exp:  []dag.Opcode{dag.OpcodeVecBroadcast},
		},
		{
			name: "iota", elem: dag.TypeI64,
			lane: func(i int) int64 { return int64(i) },
			exp:  []dag.Opcode{dag.OpcodeVecSeq},
		},
		{
			name: "affine", elem: dag.TypeI32,
			lane: func(i int) int64 { return int64(5 + 3*i) },
			exp:  []dag.Opcode{dag.OpcodeAdd, dag.OpcodeMul, dag.OpcodeVecSeq},
		},
		{
			name: "offset", elem: dag.TypeI64,
			lane: func(i int) int64 { return int64(i - 10) },
			exp:  []dag.Opcode{dag.OpcodeAdd, dag.OpcodeVecSeq},
		},
		{
			name: "block stride", elem: dag.TypeI64,
			lane: func(i int) int64 { return int64(i / 16) },
			exp:  []dag.Opcode{dag.OpcodeSrl, dag.OpcodeVecSeq},
		},
		{
			name: "block modulo", elem: dag.TypeI32,
			lane: func(i int) int64 { return int64(i % 8) },
			exp:  []dag.Opcode{dag.OpcodeAnd, dag.OpcodeVecSeq},
		},
		{
			name: "fallback", elem: dag.TypeI64,
			lane: func(i int) int64 { return int64(i * i) },
			exp:  []dag.Opcode{dag.OpcodeInsertVectorElt},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b, m, _ := newSetup()
			typ := dag.VectorOf(tc.elem, DefaultVectorLanes)
			vs := make([]int64, DefaultVectorLanes)
			for i := range vs {
				vs[i] = tc.lane(i)
			}
			n := b.AllocateNode().AsBuildVector(typ, constantLanes(b, tc.elem, vs...)).Insert(b)

			actual, ok := m.LowerOperation(n)
			require.True(t, ok)
			require.Equal(t, typ, actual.Type())
			v := actual
			for i, op := range tc.exp {
				require.Equal(t, op, v.Opcode(), v.Format())
				if i+1 < len(tc.exp) {
					v = v.Operand(0).Node()
				}
			}

			lanes, err := dageval.New().Eval(actual.Return())
			require.NoError(t, err)
			for i, l := range lanes {
				exp := uint64(vs[i])
				if tc.elem == dag.TypeI32 {
					exp = uint64(uint32(vs[i]))
				}
				require.Equal(t, exp, l, "lane %d", i)
			}
		})
	}
}

func TestMachine_lowerBuildVector_mask(t *testing.T) {
	t.Run("all set", func(t *testing.T) {
		b, m, _ := newSetup()
		n := b.AllocateNode().AsBuildVector(dag.TypeV256I1, prefixLanes(b, DefaultVectorLanes)).Insert(b)
		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecMaskAll, actual.Opcode())
	})

	t.Run("all clear", func(t *testing.T) {
		b, m, _ := newSetup()
		n := b.AllocateNode().AsBuildVector(dag.TypeV256I1, prefixLanes(b, 0)).Insert(b)
		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecNegateMask, actual.Opcode())
		require.Equal(t, dag.OpcodeVecMaskAll, actual.Operand(0).Opcode())

		lanes, err := dageval.New().Eval(actual.Return())
		require.NoError(t, err)
		require.Zero(t, dageval.PopCount(lanes))
	})

	t.Run("variable", func(t *testing.T) {
		b, m, _ := newSetup()
		x := b.AllocateNode().AsCopyFromReg(b.EntryChain(), physReg(sx0), dag.TypeI1, dag.Glue{}).Insert(b).Return()
		lanes := make([]dag.Value, DefaultVectorLanes)
		for i := range lanes {
			lanes[i] = x
		}
		n := b.AllocateNode().AsBuildVector(dag.TypeV256I1, lanes).Insert(b)
		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeSetcc, actual.Opcode())
		require.Equal(t, dag.CondNE, actual.Cond())
		require.Equal(t, dag.TypeV256I1, actual.Type())
		data := actual.Operand(0).Node()
		require.Equal(t, dag.OpcodeVecBroadcast, data.Opcode())
		require.Equal(t, dag.TypeV256I64, data.Type())
		require.Equal(t, dag.OpcodeSignExtend, data.Operand(0).Opcode())

		for _, bit := range []uint64{0, 1} {
			e := dageval.New()
			e.Bind(x, []uint64{bit})
			mask, err := e.Eval(actual.Return())
			require.NoError(t, err)
			require.Equal(t, int(bit)*DefaultVectorLanes, dageval.PopCount(mask))
		}
	})
}

func prefixLanes(b dag.Builder, prefix int) []dag.Value {
	vs := make([]int64, DefaultVectorLanes)
	for i := 0; i < prefix; i++ {
		vs[i] = 1
	}
	return constantLanes(b, dag.TypeI1, vs...)
}
