package ve

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/loweringapi"
)

// Shuffle sources.
const (
	shuffleSourceA = 0
	shuffleSourceB = 1
)

// ShufflePlan is the decomposition of a two source shuffle into one rotation per source
// and a merge of the rotated sources at a single boundary.
type ShufflePlan struct {
	// Splat is set when every defined lane reads SplatLane of SplatSource.
	Splat       bool
	SplatSource int
	SplatLane   int

	// First is the source of the lanes before Boundary, the other source provides the rest.
	First int
	// Rotate is the rotation amount of each source: result[i] = source[(i-Rotate) mod N].
	Rotate [2]int
	// Boundary is the first lane taken from the other source, or N when every lane comes from First.
	Boundary int
}

// String implements fmt.Stringer.
func (p ShufflePlan) String() string {
	src := func(s int) string { return string(rune('A' + s)) }
	if p.Splat {
		return fmt.Sprintf("splat(%s[%d])", src(p.SplatSource), p.SplatLane)
	}
	return fmt.Sprintf("%s rot %d, %s rot %d, boundary %d", src(p.First), p.Rotate[p.First], src(1-p.First), p.Rotate[1-p.First], p.Boundary)
}

// DecomposeShuffle decomposes a shuffle mask over two sources of n lanes each. Entries in
// [0, n) read the first source, entries in [n, 2n) read the second one and negative entries
// are undefined. ok is false if the mask is not a splat and cannot be expressed as two
// rotations merged at one boundary.
func DecomposeShuffle(mask []int, n int) (plan ShufflePlan, ok bool) {
	splat, isSplat := -1, true
	for _, e := range mask {
		if e >= 2*n {
			return plan, false
		}
		if e < 0 {
			continue
		}
		if splat < 0 {
			splat = e
		} else if e != splat {
			isSplat = false
		}
	}
	if isSplat {
		if splat < 0 {
			splat = 0
		}
		return ShufflePlan{Splat: true, SplatSource: splat / n, SplatLane: splat % n}, true
	}

	plan.First = -1
	plan.Boundary = n
	rot := [2]int{-1, -1}
	for i, e := range mask {
		if e < 0 {
			continue
		}
		src, lane := e/n, e%n
		switch {
		case plan.First < 0:
			plan.First = src
		case src != plan.First && plan.Boundary == n:
			plan.Boundary = i
		case src == plan.First && plan.Boundary != n:
			// Back to the first source after the switch.
			return ShufflePlan{}, false
		}

		r := ((i-lane)%n + n) % n
		if rot[src] < 0 {
			rot[src] = r
		} else if rot[src] != r {
			return ShufflePlan{}, false
		}
	}
	for s, r := range rot {
		if r > 0 {
			plan.Rotate[s] = r
		}
	}
	return plan, true
}

// lowerVectorShuffle lowers OpcodeVectorShuffle of native vectors. ok is false for any other
// lane count or for masks DecomposeShuffle rejects.
func (m *machine) lowerVectorShuffle(n *dag.Node) (*dag.Node, bool) {
	a, b := n.Operand(0), n.Operand(1)
	typ := n.Type()
	lanes := m.opts.VectorLanes
	if a.Type().Lanes() != lanes || b.Type().Lanes() != lanes || typ.Lanes() != lanes || len(n.ShuffleMask()) != lanes {
		return nil, false
	}

	plan, ok := DecomposeShuffle(n.ShuffleMask(), lanes)
	if loweringapi.VectorLoweringLoggingEnabled {
		fmt.Printf("[shuffle] %v: %s (ok=%v)\n", n.ShuffleMask(), plan, ok)
	}
	if !ok {
		return nil, false
	}

	srcs := [2]dag.Value{a, b}
	if plan.Splat {
		idx := m.constant(dag.TypeI64, int64(plan.SplatLane))
		elem := m.b.AllocateNode().AsExtractVectorElt(srcs[plan.SplatSource], idx, typ.Elem()).Insert(m.b).Return()
		return m.lowerBroadcast(m.b.AllocateNode().AsVecBroadcast(elem, typ).Insert(m.b)), true
	}

	for s := range srcs {
		if plan.Rotate[s] != 0 {
			srcs[s] = m.b.AllocateNode().AsVecRotate(srcs[s], plan.Rotate[s]).Insert(m.b).Return()
		}
	}
	if plan.Boundary == lanes {
		return srcs[plan.First].Node(), true
	}

	sel := m.mergeMask(plan.Boundary, lanes, plan.First == shuffleSourceB)
	return m.b.AllocateNode().AsVecMerge(srcs[shuffleSourceA], srcs[shuffleSourceB], sel).Insert(m.b), true
}

// mergeMask builds the mask of lanes >= boundary, or of lanes < boundary when invert is set,
// one 64-lane word at a time.
func (m *machine) mergeMask(boundary, lanes int, invert bool) dag.Value {
	v := m.b.Undef(dag.VectorOf(dag.TypeI1, lanes))
	for w := 0; w < lanes/64; w++ {
		var word uint64
		switch bw := boundary / 64; {
		case w < bw:
			word = 0
		case w > bw:
			word = ^uint64(0)
		default:
			// Lane j of the word is bit 63-j.
			word = ^uint64(0) >> uint(boundary%64)
		}
		if invert {
			word = ^word
		}
		v = m.b.AllocateNode().AsMaskInsertWord(v, word, w).Insert(m.b).Return()
	}
	return v
}
