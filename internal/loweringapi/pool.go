package loweringapi

const poolPageSize = 128

// Pool hands out *T from fixed-size pages so that pointers stay valid until Reset.
// One Pool backs all the nodes of the operation graph of one function, and the pages are
// kept across functions.
type Pool[T any] struct {
	pages   []*[poolPageSize]T
	index   int
	resetFn func(*T)
}

// NewPool returns a new Pool. resetFn prepares a recycled item for its next use, and may
// keep the capacity of the slices it holds. Items are zeroed when resetFn is nil.
func NewPool[T any](resetFn func(*T)) Pool[T] {
	ret := Pool[T]{resetFn: resetFn}
	ret.Reset()
	return ret
}

// Allocate returns an item ready to be initialized.
func (p *Pool[T]) Allocate() *T {
	if p.index == poolPageSize {
		if len(p.pages) == cap(p.pages) {
			p.pages = append(p.pages, new([poolPageSize]T))
		} else {
			i := len(p.pages)
			p.pages = p.pages[:i+1]
			if p.pages[i] == nil {
				p.pages[i] = new([poolPageSize]T)
			}
		}
		p.index = 0
	}
	ret := &p.pages[len(p.pages)-1][p.index]
	p.index++
	if p.resetFn != nil {
		p.resetFn(ret)
	} else {
		var zero T
		*ret = zero
	}
	return ret
}

// Reset makes every page available again. Items handed out before are recycled lazily by
// Allocate, so they must not be used after Reset.
func (p *Pool[T]) Reset() {
	p.pages = p.pages[:0]
	p.index = poolPageSize
}
