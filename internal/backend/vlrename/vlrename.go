// Package vlrename rewrites the vector length register %vl of a function into single
// assignment form. Every SetVL defines a new version, and the blocks where different
// versions meet get a phi. Later passes can then tell whether two vector instructions run
// with the same vector length by comparing versions.
package vlrename

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/oleiade/lane"

	"github.com/tetratelabs/velower/internal/loweringapi"
)

type (
	// BlockID is the index of a Block in Function.Blocks.
	BlockID int

	// Version identifies one definition of %vl.
	Version int

	// InstKind is the relation of an instruction to %vl.
	InstKind byte

	// Inst is an instruction that defines or reads %vl.
	Inst struct {
		Kind InstKind
		// Len is the vector length set by an InstKindDef.
		Len int64
		// Version is the definition of an InstKindDef, or the definition read by an InstKindUse.
		// It is assigned by Rename.
		Version Version
	}

	// Block is a basic block.
	Block struct {
		ID    BlockID
		Succs []BlockID
		Insts []*Inst
	}

	// Function is a control flow graph whose entry is Blocks[0].
	Function struct {
		Blocks []*Block
	}

	// Phi merges the versions reaching a block, one per predecessor in Result.Preds order.
	Phi struct {
		Result Version
		Args   []Version
	}

	// Result is the outcome of Rename.
	Result struct {
		// Preds are the reachable predecessors of each block.
		Preds [][]BlockID
		// In and Out are the versions live at the start and the end of each block.
		In, Out []Version
		// Phis are the phis by the block they are placed at.
		Phis map[BlockID]*Phi
		// NumVersions is one past the largest version.
		NumVersions int
	}
)

const (
	// InstKindDef sets %vl.
	InstKindDef InstKind = iota
	// InstKindUse is a vector instruction reading %vl.
	InstKindUse
)

const (
	// VersionUndefined is the version of blocks unreachable from the entry.
	VersionUndefined Version = -1
	// VersionEntry is the value of %vl at the function entry.
	VersionEntry Version = 0
)

// String implements fmt.Stringer.
func (k InstKind) String() string {
	switch k {
	case InstKindDef:
		return "def"
	case InstKindUse:
		return "use"
	default:
		panic(int(k))
	}
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if v == VersionUndefined {
		return "vl?"
	}
	return fmt.Sprintf("vl%d", int(v))
}

// Rename assigns a Version to every instruction of fn. Unreachable blocks are left untouched.
func Rename(fn *Function) *Result {
	n := len(fn.Blocks)
	if n == 0 {
		return &Result{Phis: map[BlockID]*Phi{}, NumVersions: 1}
	}
	for i, blk := range fn.Blocks {
		if blk.ID != BlockID(i) {
			panic(fmt.Sprintf("BUG: block %d stored at %d", blk.ID, i))
		}
	}

	rpo := reversePostOrder(fn)
	reachable := make([]bool, n)
	for _, id := range rpo {
		reachable[id] = true
	}

	r := &Result{
		Preds: make([][]BlockID, n),
		In:    make([]Version, n),
		Out:   make([]Version, n),
		Phis:  map[BlockID]*Phi{},
	}
	for _, blk := range fn.Blocks {
		if !reachable[blk.ID] {
			continue
		}
		for _, succ := range blk.Succs {
			r.Preds[succ] = append(r.Preds[succ], blk.ID)
		}
	}
	if len(r.Preds[0]) > 0 {
		panic("BUG: the entry block has predecessors")
	}

	// Definitions are numbered in block order, phis after them.
	next := VersionEntry + 1
	last := make([]Version, n)
	for i := range last {
		last[i], r.In[i], r.Out[i] = VersionUndefined, VersionUndefined, VersionUndefined
	}
	for _, blk := range fn.Blocks {
		if !reachable[blk.ID] {
			continue
		}
		for _, inst := range blk.Insts {
			if inst.Kind == InstKindDef {
				inst.Version = next
				last[blk.ID] = next
				next++
			}
		}
	}

	q := lane.NewQueue()
	queued := make([]bool, n)
	for _, id := range rpo {
		q.Enqueue(id)
		queued[id] = true
	}
	for !q.Empty() {
		id := q.Dequeue().(BlockID)
		queued[id] = false

		in := r.meet(id, &next)
		r.In[id] = in
		out := in
		if last[id] != VersionUndefined {
			out = last[id]
		}
		if out == r.Out[id] {
			continue
		}
		r.Out[id] = out
		for _, succ := range fn.Blocks[id].Succs {
			if !queued[succ] {
				q.Enqueue(succ)
				queued[succ] = true
			}
		}
	}

	for id, phi := range r.Phis {
		phi.Args = make([]Version, len(r.Preds[id]))
		for i, pred := range r.Preds[id] {
			phi.Args[i] = r.Out[pred]
		}
	}
	r.removeTrivialPhis()
	r.NumVersions = int(next)

	for _, id := range rpo {
		cur := r.In[id]
		for _, inst := range fn.Blocks[id].Insts {
			switch inst.Kind {
			case InstKindDef:
				cur = inst.Version
			case InstKindUse:
				inst.Version = cur
			}
		}
	}

	if loweringapi.VLRenameLoggingEnabled {
		fmt.Printf("[vlrename] %d blocks, %d versions\n%s", n, r.NumVersions, spew.Sdump(r.Phis))
	}
	return r
}

// meet returns the version reaching the start of the block id, placing a phi when the
// predecessors disagree.
func (r *Result) meet(id BlockID, next *Version) Version {
	if id == 0 {
		return VersionEntry
	}
	if phi, ok := r.Phis[id]; ok {
		return phi.Result
	}
	ret := VersionUndefined
	for _, pred := range r.Preds[id] {
		v := r.Out[pred]
		switch {
		case v == VersionUndefined || v == ret:
		case ret == VersionUndefined:
			ret = v
		default:
			phi := &Phi{Result: *next}
			*next++
			r.Phis[id] = phi
			return phi.Result
		}
	}
	return ret
}

// removeTrivialPhis removes the phis whose arguments other than the phi itself are all the
// same version. They appear when a block sees a definition before the phi that replaces it.
func (r *Result) removeTrivialPhis() {
	for changed := true; changed; {
		changed = false
		for id, phi := range r.Phis {
			same := VersionUndefined
			trivial := true
			for _, arg := range phi.Args {
				if arg == phi.Result || arg == same {
					continue
				}
				if same != VersionUndefined {
					trivial = false
					break
				}
				same = arg
			}
			if !trivial {
				continue
			}
			delete(r.Phis, id)
			r.replace(phi.Result, same)
			changed = true
		}
	}
}

func (r *Result) replace(from, to Version) {
	for i := range r.In {
		if r.In[i] == from {
			r.In[i] = to
		}
		if r.Out[i] == from {
			r.Out[i] = to
		}
	}
	for _, phi := range r.Phis {
		for i, arg := range phi.Args {
			if arg == from {
				phi.Args[i] = to
			}
		}
	}
}

// reversePostOrder returns the blocks reachable from the entry in reverse post order.
func reversePostOrder(fn *Function) []BlockID {
	type frame struct {
		id   BlockID
		next int
	}
	if len(fn.Blocks) == 0 {
		return nil
	}

	visited := make([]bool, len(fn.Blocks))
	var post []BlockID
	s := lane.NewStack()
	s.Push(&frame{id: 0})
	visited[0] = true
	for !s.Empty() {
		f := s.Head().(*frame)
		if succs := fn.Blocks[f.id].Succs; f.next < len(succs) {
			succ := succs[f.next]
			f.next++
			if !visited[succ] {
				visited[succ] = true
				s.Push(&frame{id: succ})
			}
			continue
		}
		s.Pop()
		post = append(post, f.id)
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
