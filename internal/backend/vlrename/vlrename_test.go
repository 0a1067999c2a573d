package vlrename

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func def(l int64) *Inst { return &Inst{Kind: InstKindDef, Len: l} }

func use() *Inst { return &Inst{Kind: InstKindUse} }

// newFunction returns a function whose block i jumps to succs[i] and holds insts[i].
func newFunction(succs [][]BlockID, insts [][]*Inst) *Function {
	fn := &Function{}
	for i := range succs {
		fn.Blocks = append(fn.Blocks, &Block{ID: BlockID(i), Succs: succs[i], Insts: insts[i]})
	}
	return fn
}

func TestRename_straightLine(t *testing.T) {
	u0, u1, u2 := use(), use(), use()
	fn := newFunction([][]BlockID{{1}, nil}, [][]*Inst{{u0, def(100), u1}, {def(256), u2}})
	r := Rename(fn)
	require.Equal(t, VersionEntry, u0.Version)
	require.Equal(t, Version(1), u1.Version)
	require.Equal(t, Version(2), u2.Version)
	require.Empty(t, r.Phis)
	require.Equal(t, []Version{VersionEntry, 1}, r.In)
	require.Equal(t, []Version{1, 2}, r.Out)
	require.Equal(t, 3, r.NumVersions)
}

func TestRename_diamond(t *testing.T) {
	for _, tc := range []struct {
		name    string
		insts   [][]*Inst
		expUse  Version
		expPhis map[BlockID]*Phi
	}{
		{
			name:    "definition on one side",
			insts:   [][]*Inst{nil, {def(64)}, nil, nil},
			expUse:  2,
			expPhis: map[BlockID]*Phi{3: {Result: 2, Args: []Version{1, VersionEntry}}},
		},
		{
			name:    "definitions on both sides",
			insts:   [][]*Inst{nil, {def(64)}, {def(128)}, nil},
			expUse:  3,
			expPhis: map[BlockID]*Phi{3: {Result: 3, Args: []Version{1, 2}}},
		},
		{
			name:    "definition before the split",
			insts:   [][]*Inst{{def(32)}, nil, nil, nil},
			expUse:  1,
			expPhis: map[BlockID]*Phi{},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			u := use()
			tc.insts[3] = append(tc.insts[3], u)
			fn := newFunction([][]BlockID{{1, 2}, {3}, {3}, nil}, tc.insts)
			r := Rename(fn)
			require.Equal(t, tc.expUse, u.Version)
			require.Equal(t, tc.expPhis, r.Phis)
			require.Equal(t, []BlockID{1, 2}, r.Preds[3])
		})
	}
}

func TestRename_loop(t *testing.T) {
	t.Run("definition in the loop", func(t *testing.T) {
		head, exit := use(), use()
		fn := newFunction([][]BlockID{{1}, {1, 2}, nil}, [][]*Inst{nil, {head, def(16)}, {exit}})
		r := Rename(fn)
		require.Equal(t, map[BlockID]*Phi{1: {Result: 2, Args: []Version{VersionEntry, 1}}}, r.Phis)
		require.Equal(t, Version(2), head.Version)
		require.Equal(t, Version(1), exit.Version)
	})

	t.Run("invariant in the loop", func(t *testing.T) {
		head := use()
		fn := newFunction([][]BlockID{{1}, {1, 2}, nil}, [][]*Inst{{def(16)}, {head}, nil})
		r := Rename(fn)
		require.Empty(t, r.Phis)
		require.Equal(t, Version(1), head.Version)
	})

	t.Run("nested", func(t *testing.T) {
		// 0 -> 1 (outer) -> 2 (inner) <-> 3, 2 -> 4 -> 1, 1 -> 5.
		inner, outer, exit := use(), use(), use()
		fn := newFunction(
			[][]BlockID{{1}, {2, 5}, {3, 4}, {2}, {1}, nil},
			[][]*Inst{nil, {outer}, {inner}, {def(8)}, nil, {exit}},
		)
		r := Rename(fn)
		require.Len(t, r.Phis, 2)
		require.Equal(t, r.Phis[1].Result, outer.Version)
		require.Equal(t, r.Phis[2].Result, inner.Version)
		require.Equal(t, r.Phis[1].Result, exit.Version)
		require.Equal(t, []Version{VersionEntry, inner.Version}, r.Phis[1].Args)
		require.Equal(t, []Version{outer.Version, 1}, r.Phis[2].Args)
	})
}

func TestRename_unreachable(t *testing.T) {
	u := use()
	u.Version = 42
	fn := newFunction([][]BlockID{nil, {0}}, [][]*Inst{nil, {u}})
	r := Rename(fn)
	require.Equal(t, Version(42), u.Version)
	require.Equal(t, VersionUndefined, r.In[1])
	require.Empty(t, r.Preds[0])
}

func TestRename_panics(t *testing.T) {
	require.Panics(t, func() {
		Rename(newFunction([][]BlockID{{1}, {0}}, [][]*Inst{nil, nil}))
	})
	require.Panics(t, func() {
		Rename(&Function{Blocks: []*Block{{ID: 1}}})
	})
}

// TestRename_random checks on random graphs that the version of every use is the one its
// block receives from all of its predecessors, unless a phi merges them.
func TestRename_random(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	for iter := 0; iter < 200; iter++ {
		n := 2 + rnd.Intn(12)
		succs := make([][]BlockID, n)
		insts := make([][]*Inst, n)
		for i := 0; i < n; i++ {
			// Entry never has predecessors.
			for j := rnd.Intn(3); j > 0; j-- {
				succs[i] = append(succs[i], BlockID(1+rnd.Intn(n-1)))
			}
			for j := rnd.Intn(4); j > 0; j-- {
				if rnd.Intn(3) == 0 {
					insts[i] = append(insts[i], def(int64(rnd.Intn(256))))
				} else {
					insts[i] = append(insts[i], use())
				}
			}
		}
		fn := newFunction(succs, insts)
		r := Rename(fn)

		for _, id := range reversePostOrder(fn) {
			if phi, ok := r.Phis[id]; ok {
				require.Equal(t, phi.Result, r.In[id])
				distinct := map[Version]struct{}{}
				for i, arg := range phi.Args {
					require.Equal(t, r.Out[r.Preds[id][i]], arg)
					if arg != phi.Result {
						distinct[arg] = struct{}{}
					}
				}
				require.Greater(t, len(distinct), 1, "trivial phi at %d", id)
			} else if id != 0 {
				for _, pred := range r.Preds[id] {
					require.Equal(t, r.In[id], r.Out[pred], "block %d from %d", id, pred)
				}
			}

			cur := r.In[id]
			for _, inst := range fn.Blocks[id].Insts {
				if inst.Kind == InstKindDef {
					cur = inst.Version
				} else {
					require.Equal(t, cur, inst.Version)
				}
			}
			require.Equal(t, cur, r.Out[id])
		}
	}
}

func TestVersion_String(t *testing.T) {
	require.Equal(t, "vl3", Version(3).String())
	require.Equal(t, "vl?", VersionUndefined.String())
	require.Equal(t, "use", InstKindUse.String())
}
