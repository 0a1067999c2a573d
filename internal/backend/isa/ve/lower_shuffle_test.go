package ve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/testing/dageval"
)

func TestDecomposeShuffle(t *testing.T) {
	const n = 8
	for _, tc := range []struct {
		name string
		mask []int
		exp  ShufflePlan
		ok   bool
	}{
		{
			name: "identity",
			mask: []int{0, 1, 2, 3, 4, 5, 6, 7},
			exp:  ShufflePlan{First: shuffleSourceA, Boundary: n},
			ok:   true,
		},
		{
			name: "undefined",
			mask: []int{-1, -1, -1, -1, -1, -1, -1, -1},
			exp:  ShufflePlan{Splat: true},
			ok:   true,
		},
		{
			name: "splat",
			mask: []int{3, 3, -1, 3, 3, 3, 3, 3},
			exp:  ShufflePlan{Splat: true, SplatLane: 3},
			ok:   true,
		},
		{
			name: "splat second",
			mask: []int{10, 10, 10, 10, 10, 10, 10, 10},
			exp:  ShufflePlan{Splat: true, SplatSource: shuffleSourceB, SplatLane: 2},
			ok:   true,
		},
		{
			name: "rotation",
			mask: []int{3, 4, 5, 6, 7, 0, 1, 2},
			exp:  ShufflePlan{First: shuffleSourceA, Rotate: [2]int{5, 0}, Boundary: n},
			ok:   true,
		},
		{
			name: "second only",
			mask: []int{15, 8, 9, 10, 11, 12, 13, 14},
			exp:  ShufflePlan{First: shuffleSourceB, Rotate: [2]int{0, 1}, Boundary: n},
			ok:   true,
		},
		{
			name: "blend",
			mask: []int{0, 1, 2, 11, 12, 13, 14, 15},
			exp:  ShufflePlan{First: shuffleSourceA, Boundary: 3},
			ok:   true,
		},
		{
			name: "blend second first",
			mask: []int{8, 9, 2, 3, 4, 5, 6, 7},
			exp:  ShufflePlan{First: shuffleSourceB, Boundary: 2},
			ok:   true,
		},
		{
			name: "concatenation shift",
			mask: []int{5, 6, 7, 8, 9, 10, 11, 12},
			exp:  ShufflePlan{First: shuffleSourceA, Rotate: [2]int{3, 3}, Boundary: 3},
			ok:   true,
		},
		{
			name: "undefined lanes",
			mask: []int{-1, 1, -1, 11, -1, -1, -1, -1},
			exp:  ShufflePlan{First: shuffleSourceA, Boundary: 3},
			ok:   true,
		},
		{name: "back to the first source", mask: []int{0, 9, 2, 3, 4, 5, 6, 7}},
		{name: "inconsistent rotation", mask: []int{1, 0, 2, 3, 4, 5, 6, 7}},
		{name: "out of range", mask: []int{16, 1, 2, 3, 4, 5, 6, 7}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			actual, ok := DecomposeShuffle(tc.mask, n)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.exp, actual)
			}
		})
	}
}

func TestShufflePlan_String(t *testing.T) {
	require.Equal(t, "splat(B[2])", ShufflePlan{Splat: true, SplatSource: shuffleSourceB, SplatLane: 2}.String())
	require.Equal(t, "A rot 3, B rot 1, boundary 5", ShufflePlan{Rotate: [2]int{3, 1}, Boundary: 5}.String())
}

func TestMachine_lowerVectorShuffle(t *testing.T) {
	const n = DefaultVectorLanes
	seq := func(f func(i int) int) []int {
		ret := make([]int, n)
		for i := range ret {
			ret[i] = f(i)
		}
		return ret
	}

	for _, tc := range []struct {
		name string
		mask []int
		exp  dag.Opcode
	}{
		{
			name: "identity",
			mask: seq(func(i int) int { return i }),
			exp:  dag.OpcodeUndef,
		},
		{
			name: "rotation",
			mask: seq(func(i int) int { return (i + 5) % n }),
			exp:  dag.OpcodeVecRotate,
		},
		{
			name: "blend in a word",
			mask: seq(func(i int) int {
				if i < 100 {
					return i
				}
				return n + i
			}),
			exp: dag.OpcodeVecMerge,
		},
		{
			name: "blend at a word boundary",
			mask: seq(func(i int) int {
				if i < 64 {
					return i
				}
				return n + i
			}),
			exp: dag.OpcodeVecMerge,
		},
		{
			name: "second source first",
			mask: seq(func(i int) int {
				if i < 130 {
					return n + (i+7)%n
				}
				return (i + 200) % n
			}),
			exp: dag.OpcodeVecMerge,
		},
		{
			name: "concatenation shift",
			mask: seq(func(i int) int { return i + 200 }),
			exp:  dag.OpcodeVecMerge,
		},
		{
			name: "splat",
			mask: seq(func(int) int { return 7 }),
			exp:  dag.OpcodeVecBroadcast,
		},
		{
			name: "splat second",
			mask: seq(func(i int) int {
				if i%3 == 0 {
					return -1
				}
				return n + 3
			}),
			exp: dag.OpcodeVecBroadcast,
		},
		{
			name: "with undefined lanes",
			mask: seq(func(i int) int {
				switch {
				case i%5 == 0:
					return -1
				case i < 40:
					return i + 1
				default:
					return n + i - 40
				}
			}),
			exp: dag.OpcodeVecMerge,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b, m, _ := newSetup()
			a, bb := b.Undef(dag.TypeV256I64), b.Undef(dag.TypeV256I64)
			node := b.AllocateNode().AsVectorShuffle(a, bb, tc.mask).Insert(b)

			actual, ok := m.LowerOperation(node)
			require.True(t, ok)
			require.Equal(t, tc.exp, actual.Opcode(), actual.Format())

			e := dageval.New()
			e.Bind(a, iotaLanes(0))
			e.Bind(bb, iotaLanes(1000))
			lanes, err := e.Eval(actual.Return())
			require.NoError(t, err)
			for i, s := range tc.mask {
				switch {
				case s < 0:
				case s < DefaultVectorLanes:
					require.Equal(t, uint64(s), lanes[i], "lane %d", i)
				default:
					require.Equal(t, uint64(1000+s-DefaultVectorLanes), lanes[i], "lane %d", i)
				}
			}
		})
	}
}

// iotaLanes returns base, base+1, ... for every native lane.
func iotaLanes(base uint64) []uint64 {
	ret := make([]uint64, DefaultVectorLanes)
	for i := range ret {
		ret[i] = base + uint64(i)
	}
	return ret
}

func TestMachine_lowerVectorShuffle_rejects(t *testing.T) {
	t.Run("not native", func(t *testing.T) {
		b, m, _ := newSetup()
		mask := make([]int, 512)
		for i := range mask {
			mask[i] = i
		}
		n := b.AllocateNode().AsVectorShuffle(b.Undef(dag.TypeV512I32), b.Undef(dag.TypeV512I32), mask).Insert(b)
		_, ok := m.LowerOperation(n)
		require.False(t, ok)
	})

	t.Run("irregular", func(t *testing.T) {
		b, m, _ := newSetup()
		mask := make([]int, DefaultVectorLanes)
		for i := range mask {
			mask[i] = (i * 7) % DefaultVectorLanes
		}
		n := b.AllocateNode().AsVectorShuffle(b.Undef(dag.TypeV256F64), b.Undef(dag.TypeV256F64), mask).Insert(b)
		_, ok := m.LowerOperation(n)
		require.False(t, ok)
	})

	t.Run("wider lanes option", func(t *testing.T) {
		b, m, _ := newSetupWithOptions(Options{VectorLanes: 512})
		mask := make([]int, 512)
		for i := range mask {
			mask[i] = (i + 1) % 512
		}
		n := b.AllocateNode().AsVectorShuffle(b.Undef(dag.TypeV512I32), b.Undef(dag.TypeV512I32), mask).Insert(b)
		actual, ok := m.LowerOperation(n)
		require.True(t, ok)
		require.Equal(t, dag.OpcodeVecRotate, actual.Opcode())
		require.Equal(t, uint64(511), actual.Imm())
	})
}

func TestMachine_mergeMask(t *testing.T) {
	for _, tc := range []struct {
		boundary int
		invert   bool
	}{
		{boundary: 0}, {boundary: 1}, {boundary: 63}, {boundary: 64}, {boundary: 100},
		{boundary: 255}, {boundary: 100, invert: true}, {boundary: 192, invert: true},
	} {
		_, m, _ := newSetup()
		mask, err := dageval.New().Eval(m.mergeMask(tc.boundary, DefaultVectorLanes, tc.invert))
		require.NoError(t, err)
		for i, l := range mask {
			exp := i >= tc.boundary
			if tc.invert {
				exp = !exp
			}
			require.Equal(t, exp, l == 1, "boundary %d lane %d", tc.boundary, i)
		}
	}
}
