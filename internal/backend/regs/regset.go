package regs

import (
	"strings"
)

// NewRegSet returns a new RegSet with the given registers.
func NewRegSet(rs ...RealReg) RegSet {
	var ret RegSet
	for _, r := range rs {
		ret = ret.Add(r)
	}
	return ret
}

// RegSet is a set of physical registers. RealReg is a byte, so four words cover all of them.
type RegSet [4]uint64

// Has returns true if r is in the set.
func (rs RegSet) Has(r RealReg) bool {
	return rs[r/64]&(1<<uint(r%64)) != 0
}

// Add returns the set with r added.
func (rs RegSet) Add(r RealReg) RegSet {
	rs[r/64] |= 1 << uint(r%64)
	return rs
}

// Union returns the union of rs and other.
func (rs RegSet) Union(other RegSet) RegSet {
	for i := range rs {
		rs[i] |= other[i]
	}
	return rs
}

// Range calls f for each register in ascending order.
func (rs RegSet) Range(f func(r RealReg)) {
	for i := 0; i < 256; i++ {
		if rs[i/64]&(1<<uint(i%64)) != 0 {
			f(RealReg(i))
		}
	}
}

// Format returns the names of the registers in the set, in ascending order.
func (rs RegSet) Format(name func(RealReg) string) string {
	var ret []string
	rs.Range(func(r RealReg) {
		ret = append(ret, name(r))
	})
	return strings.Join(ret, ", ")
}
