package ve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/testing/dageval"
)

func TestMachine_gatherScatterAddresses(t *testing.T) {
	t.Run("full addresses", func(t *testing.T) {
		b, m, _ := newSetup()
		index := b.Undef(dag.TypeV256I64)
		actual := m.gatherScatterAddresses(b.Constant(dag.TypeI64, 0), index, b.Constant(dag.TypeI64, 1))
		require.Equal(t, index, actual)
	})

	for _, tc := range []struct {
		name        string
		base, scale int64
	}{
		{name: "scaled", base: 0, scale: 8},
		{name: "based", base: 0x1000, scale: 1},
		{name: "both", base: 0x2000, scale: 4},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b, m, _ := newSetup()
			index := b.Undef(dag.TypeV256I64)
			actual := m.gatherScatterAddresses(b.Constant(dag.TypeI64, tc.base), index, b.Constant(dag.TypeI64, tc.scale))
			require.Equal(t, dag.OpcodeAdd, actual.Opcode())

			e := dageval.New()
			e.Bind(index, iotaLanes(0))
			addrs, err := e.Eval(actual)
			require.NoError(t, err)
			for i, a := range addrs {
				require.Equal(t, uint64(tc.base+int64(i)*tc.scale), a)
			}
		})
	}
}

func TestMachine_lowerMaskedGather(t *testing.T) {
	newGather := func(b dag.Builder, passthru, mask dag.Value) *dag.Node {
		return b.AllocateNode().AsMaskedGather(b.EntryChain(), passthru, mask,
			b.Constant(dag.TypeI64, 0), b.Undef(dag.TypeV256I64), b.Constant(dag.TypeI64, 1)).Insert(b)
	}

	t.Run("undefined passthru", func(t *testing.T) {
		b, m, _ := newSetup()
		mask := b.Undef(dag.TypeV256I1)
		actual, ok := m.LowerOperation(newGather(b, b.Undef(dag.TypeV256F64), mask))
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecGather, actual.Opcode())
		require.Equal(t, dag.TypeV256F64, actual.Type())
		require.Equal(t, mask, actual.Operand(1))
		require.Equal(t, b.EntryChain(), actual.InChain())
	})

	t.Run("all true mask", func(t *testing.T) {
		b, m, _ := newSetup()
		mask := b.AllocateNode().AsVecMaskAll(dag.TypeV256I1).Insert(b).Return()
		actual, ok := m.LowerOperation(newGather(b, b.Constant(dag.TypeV256F64, 0), mask))
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecGather, actual.Opcode())
	})

	t.Run("blend", func(t *testing.T) {
		b, m, _ := newSetup()
		mask, passthru := b.Undef(dag.TypeV256I1), b.Constant(dag.TypeV256F64, 0)
		actual, ok := m.LowerOperation(newGather(b, passthru, mask))
		require.True(t, ok)
		require.Equal(t, dag.OpcodeMergeValues, actual.Opcode())
		sel := actual.Operand(0).Node()
		require.Equal(t, dag.OpcodeSelect, sel.Opcode())
		require.Equal(t, mask, sel.Operand(0))
		gather := sel.Operand(1).Node()
		require.Equal(t, dag.OpcodeVecGather, gather.Opcode())
		require.Equal(t, passthru, sel.Operand(2))
		require.Equal(t, gather.ChainOut(), actual.InChain())
	})
}

func TestMachine_lowerMaskedScatter(t *testing.T) {
	b, m, _ := newSetup()
	x, mask, index := b.Undef(dag.TypeV256I64), b.Undef(dag.TypeV256I1), b.Undef(dag.TypeV256I64)
	n := b.AllocateNode().AsMaskedScatter(b.EntryChain(), x, mask, b.Constant(dag.TypeI64, 16), index, b.Constant(dag.TypeI64, 8)).Insert(b)

	actual, ok := m.LowerOperation(n)
	require.True(t, ok)
	require.Equal(t, dag.OpcodeVecScatter, actual.Opcode())
	require.Equal(t, x, actual.Operand(0))
	require.Equal(t, dag.OpcodeAdd, actual.Operand(1).Opcode())
	require.Equal(t, mask, actual.Operand(2))
	require.Equal(t, b.EntryChain(), actual.InChain())
}

func TestIsAllTrueMask(t *testing.T) {
	b := dag.NewBuilder()
	bc := func(c int64) dag.Value {
		return b.AllocateNode().AsVecBroadcast(b.Constant(dag.TypeI1, c), dag.TypeV256I1).Insert(b).Return()
	}
	require.True(t, isAllTrueMask(b.AllocateNode().AsVecMaskAll(dag.TypeV256I1).Insert(b).Return()))
	require.True(t, isAllTrueMask(b.Constant(dag.TypeV256I1, 1)))
	require.False(t, isAllTrueMask(b.Constant(dag.TypeV256I1, 0)))
	require.True(t, isAllTrueMask(bc(1)))
	require.False(t, isAllTrueMask(bc(0)))
	require.True(t, isAllTrueMask(b.AllocateNode().AsBuildVector(dag.TypeV256I1, prefixLanes(b, DefaultVectorLanes)).Insert(b).Return()))
	require.False(t, isAllTrueMask(b.AllocateNode().AsBuildVector(dag.TypeV256I1, prefixLanes(b, 10)).Insert(b).Return()))
	require.False(t, isAllTrueMask(b.Undef(dag.TypeV256I1)))
}
