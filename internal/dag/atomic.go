package dag

// AtomicOrdering is the memory ordering of an atomic operation or fence.
type AtomicOrdering byte

const (
	AtomicOrderingNotAtomic AtomicOrdering = iota
	AtomicOrderingUnordered
	AtomicOrderingMonotonic
	AtomicOrderingAcquire
	AtomicOrderingRelease
	AtomicOrderingAcquireRelease
	AtomicOrderingSequentiallyConsistent
)

// String implements fmt.Stringer.
func (o AtomicOrdering) String() string {
	switch o {
	case AtomicOrderingNotAtomic:
		return "not_atomic"
	case AtomicOrderingUnordered:
		return "unordered"
	case AtomicOrderingMonotonic:
		return "monotonic"
	case AtomicOrderingAcquire:
		return "acquire"
	case AtomicOrderingRelease:
		return "release"
	case AtomicOrderingAcquireRelease:
		return "acq_rel"
	case AtomicOrderingSequentiallyConsistent:
		return "seq_cst"
	default:
		return "invalid"
	}
}

// SyncScope is the set of threads an atomic operation synchronizes with.
type SyncScope byte

const (
	// SyncScopeSystem synchronizes with every thread and device.
	SyncScopeSystem SyncScope = iota
	// SyncScopeSingleThread only orders against signal handlers of the same thread.
	SyncScopeSingleThread
)

// String implements fmt.Stringer.
func (s SyncScope) String() string {
	if s == SyncScopeSingleThread {
		return "singlethread"
	}
	return "system"
}
