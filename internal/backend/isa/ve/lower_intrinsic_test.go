package ve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/velower/internal/dag"
)

const (
	testIntrinsicBroadcast = iota + 1
	testIntrinsicBroadcastMasked
	testIntrinsicNegateMask
	testIntrinsicLoadVL
	testIntrinsicUnknown
)

var testIntrinsics = IntrinsicMap{
	testIntrinsicBroadcast:       {Name: "vbrd_vs_i64", Kind: IntrinsicKindAddVL, Inst: 100},
	testIntrinsicBroadcastMasked: {Name: "vbrd_vsmv_i64", Kind: IntrinsicKindConvMaskVL, Inst: 101},
	testIntrinsicNegateMask:      {Name: "negm_mm", Kind: IntrinsicKindRetMaskVL, Inst: 102},
	testIntrinsicLoadVL:          {Name: "lvl", Kind: IntrinsicKindLoadVL},
}

func requireVLRead(t *testing.T, v dag.Value, ch dag.Chain) {
	require.Equal(t, dag.OpcodeCopyFromReg, v.Opcode())
	require.Equal(t, physReg(vl), v.Node().Reg())
	require.Equal(t, dag.TypeI32, v.Type())
	require.Equal(t, ch, v.Node().InChain())
}

func TestMachine_lowerIntrinsic(t *testing.T) {
	v4i64, v8i64 := dag.VectorOf(dag.TypeI64, 4), dag.VectorOf(dag.TypeI64, 8)

	t.Run("add vl", func(t *testing.T) {
		b, m, _ := newSetupWithOptions(Options{Intrinsics: testIntrinsics})
		x := b.Undef(dag.TypeI64)
		n := b.AllocateNode().AsIntrinsic(dag.OpcodeIntrinsicWOChain, dag.Chain{}, testIntrinsicBroadcast,
			[]dag.Value{x}, dag.TypeV256I64).Insert(b)

		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecInst, actual.Opcode())
		require.Equal(t, uint64(100), actual.Imm())
		require.Equal(t, dag.TypeV256I64, actual.Type())
		require.False(t, actual.InChain().Valid())
		require.False(t, actual.HasChainOut())
		require.Equal(t, 2, actual.NumOperands())
		require.Equal(t, x, actual.Operand(0))
		// Pure intrinsics read the vector length at the entry.
		requireVLRead(t, actual.Operand(1), b.EntryChain())
	})

	t.Run("convert masks of a chained intrinsic", func(t *testing.T) {
		b, m, _ := newSetupWithOptions(Options{Intrinsics: testIntrinsics})
		ch := b.AllocateNode().AsMemBarrier(b.EntryChain()).Insert(b).ChainOut()
		x, mask, base := b.Undef(dag.TypeI64), b.Undef(v4i64), b.Undef(dag.TypeV256I64)
		n := b.AllocateNode().AsIntrinsic(dag.OpcodeIntrinsicWChain, ch, testIntrinsicBroadcastMasked,
			[]dag.Value{x, mask, base}, dag.TypeV256I64).Insert(b)

		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecInst, actual.Opcode())
		require.Equal(t, uint64(101), actual.Imm())
		require.Equal(t, 4, actual.NumOperands())
		require.Equal(t, x, actual.Operand(0))
		bitcast := actual.Operand(1)
		require.Equal(t, dag.OpcodeBitcast, bitcast.Opcode())
		require.Equal(t, dag.TypeV256I1, bitcast.Type())
		require.Equal(t, mask, bitcast.Node().Operand(0))
		require.Equal(t, base, actual.Operand(2))

		vlRead := actual.Operand(3)
		requireVLRead(t, vlRead, ch)
		require.Equal(t, vlRead.Node().ChainOut(), actual.InChain())
	})

	t.Run("add vl keeps mask images", func(t *testing.T) {
		b, m, _ := newSetupWithOptions(Options{Intrinsics: testIntrinsics})
		mask := b.Undef(v4i64)
		n := b.AllocateNode().AsIntrinsic(dag.OpcodeIntrinsicVoid, b.EntryChain(), testIntrinsicBroadcast,
			[]dag.Value{mask}, dag.Type(0)).Insert(b)

		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecInst, actual.Opcode())
		require.Equal(t, mask, actual.Operand(0))
		require.False(t, actual.Type().Valid())
		vlRead := actual.Operand(1)
		requireVLRead(t, vlRead, b.EntryChain())
		require.Equal(t, vlRead.Node().ChainOut(), actual.InChain())
	})

	t.Run("return mask", func(t *testing.T) {
		for _, typ := range []dag.Type{v4i64, v8i64} {
			b, m, _ := newSetupWithOptions(Options{Intrinsics: testIntrinsics})
			mask := b.Undef(typ)
			n := b.AllocateNode().AsIntrinsic(dag.OpcodeIntrinsicWOChain, dag.Chain{}, testIntrinsicNegateMask,
				[]dag.Value{mask}, typ).Insert(b)

			actual, ok := m.LowerOperation(n)
			require.True(t, ok)
			require.Equal(t, dag.OpcodeBitcast, actual.Opcode())
			require.Equal(t, typ, actual.Type())

			inst := actual.Operand(0).Node()
			require.Equal(t, dag.OpcodeVecInst, inst.Opcode())
			require.Equal(t, dag.VectorOf(dag.TypeI1, typ.Bits()), inst.Type())
			require.Equal(t, dag.VectorOf(dag.TypeI1, typ.Bits()), inst.Operand(0).Type())
			require.Equal(t, mask, inst.Operand(0).Node().Operand(0))
			requireVLRead(t, inst.Operand(1), b.EntryChain())
		}
	})

	t.Run("load vl", func(t *testing.T) {
		b, m, _ := newSetupWithOptions(Options{Intrinsics: testIntrinsics})
		x := b.Undef(dag.TypeI32)
		n := b.AllocateNode().AsIntrinsic(dag.OpcodeIntrinsicVoid, b.EntryChain(), testIntrinsicLoadVL,
			[]dag.Value{x}, dag.Type(0)).Insert(b)

		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeCopyToReg, actual.Opcode())
		require.Equal(t, physReg(vl), actual.Reg())
		require.Equal(t, x, actual.Operand(0))
		require.Equal(t, b.EntryChain(), actual.InChain())
	})

	t.Run("not custom lowered", func(t *testing.T) {
		for _, opts := range []Options{{}, {Intrinsics: testIntrinsics}} {
			b, m, _ := newSetupWithOptions(opts)
			n := b.AllocateNode().AsIntrinsic(dag.OpcodeIntrinsicWOChain, dag.Chain{}, testIntrinsicUnknown,
				[]dag.Value{b.Undef(dag.TypeI64)}, dag.TypeI64).Insert(b)
			actual, ok := m.LowerOperation(n)
			require.True(t, ok)
			require.Equal(t, n, actual)
		}
	})

	t.Run("load vl must be chained", func(t *testing.T) {
		b, m, _ := newSetupWithOptions(Options{Intrinsics: testIntrinsics})
		n := b.AllocateNode().AsIntrinsic(dag.OpcodeIntrinsicWOChain, dag.Chain{}, testIntrinsicLoadVL,
			[]dag.Value{b.Undef(dag.TypeI32)}, dag.TypeI32).Insert(b)
		require.PanicsWithValue(t, "BUG: lvl must be a chained intrinsic with one operand", func() {
			m.LowerOperation(n)
		})
	})
}

func TestIntrinsicKind_String(t *testing.T) {
	for _, tc := range []struct {
		kind IntrinsicKind
		exp  string
	}{
		{kind: IntrinsicKindInvalid, exp: "invalid"},
		{kind: IntrinsicKindAddVL, exp: "add_vl"},
		{kind: IntrinsicKindConvMaskVL, exp: "convm_vl"},
		{kind: IntrinsicKindRetMaskVL, exp: "retm_vl"},
		{kind: IntrinsicKindLoadVL, exp: "lvl"},
	} {
		require.Equal(t, tc.exp, tc.kind.String())
	}
}
