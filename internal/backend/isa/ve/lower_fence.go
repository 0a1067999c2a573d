package ve

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/dag"
)

// FenceFor returns the hardware fence of an atomic fence. VE is release consistent, so only fences
// ordering other threads need a hardware fence.
func FenceFor(ordering dag.AtomicOrdering, scope dag.SyncScope) backend.FenceKind {
	if scope != dag.SyncScopeSystem {
		return backend.FenceNone
	}
	switch ordering {
	case dag.AtomicOrderingAcquire:
		return backend.FenceLoad
	case dag.AtomicOrderingRelease:
		return backend.FenceStore
	case dag.AtomicOrderingAcquireRelease, dag.AtomicOrderingSequentiallyConsistent:
		return backend.FenceLoadStore
	default:
		return backend.FenceNone
	}
}

// lowerAtomicFence lowers OpcodeAtomicFence to a fencem, or to a compiler barrier when
// no hardware fence is needed.
func (m *machine) lowerAtomicFence(n *dag.Node) *dag.Node {
	kind := FenceFor(n.AtomicFenceData())
	if kind == backend.FenceNone {
		return m.b.AllocateNode().AsMemBarrier(n.InChain()).Insert(m.b)
	}
	return m.b.AllocateNode().AsFence(n.InChain(), uint64(kind)).Insert(m.b)
}

// LeadingFence implements backend.Machine.LeadingFence.
func (m *machine) LeadingFence(ordering dag.AtomicOrdering, hasStore bool) backend.FenceKind {
	switch ordering {
	case dag.AtomicOrderingMonotonic, dag.AtomicOrderingAcquire:
		return backend.FenceNone
	case dag.AtomicOrderingRelease, dag.AtomicOrderingAcquireRelease:
		return backend.FenceStore
	case dag.AtomicOrderingSequentiallyConsistent:
		if !hasStore {
			return backend.FenceNone
		}
		return backend.FenceLoadStore
	default:
		panic(fmt.Sprintf("BUG: invalid leading fence ordering %s", ordering))
	}
}

// TrailingFence implements backend.Machine.TrailingFence.
func (m *machine) TrailingFence(ordering dag.AtomicOrdering) backend.FenceKind {
	switch ordering {
	case dag.AtomicOrderingMonotonic, dag.AtomicOrderingRelease:
		return backend.FenceNone
	case dag.AtomicOrderingAcquire, dag.AtomicOrderingAcquireRelease:
		return backend.FenceLoad
	case dag.AtomicOrderingSequentiallyConsistent:
		return backend.FenceLoadStore
	default:
		panic(fmt.Sprintf("BUG: invalid trailing fence ordering %s", ordering))
	}
}

// ShouldExpandAtomicRMW implements backend.Machine.ShouldExpandAtomicRMW.
// Only exchange has an instruction (ts1am), the rest loops on compare-exchange.
func (m *machine) ShouldExpandAtomicRMW(op backend.AtomicRMWOp) backend.AtomicExpansionKind {
	if op == backend.AtomicRMWXchg {
		return backend.AtomicExpansionNone
	}
	return backend.AtomicExpansionCmpXChg
}
