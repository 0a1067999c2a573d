package backend

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/tetratelabs/velower/internal/backend/regs"
	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/loweringapi"
)

type (
	// ValueDescriptor describes one argument or return value to be classified.
	ValueDescriptor struct {
		// Type is the type of the value as seen by the caller.
		Type dag.Type
		// Ext is the extension the value attributes request. Only ExtFull, ExtSExt and ExtZExt
		// are meaningful here; classification turns ExtFull into ExtAExt when it promotes.
		Ext ExtHint
		// Packed marks the first of two adjacent 32-bit values sharing one 64-bit register.
		Packed bool
	}

	// ExtHint is how a value narrower than its location is extended.
	ExtHint byte

	// LocationAssignment is the classified location of a ValueDescriptor.
	LocationAssignment struct {
		// Index is the index of the descriptor.
		Index int
		// Kind is the kind of the location.
		Kind LocationKind
		// Reg is valid if Kind == LocationKindReg.
		Reg regs.RealReg
		// Offset is valid if Kind == LocationKindStack.
		// This is the offset from the beginning of the argument area.
		Offset int64
		// SlotSize is the size of the stack slot if Kind == LocationKindStack.
		SlotSize int64
		// ValType is the type of the value before promotion.
		ValType dag.Type
		// LocType is the type of the value in its location.
		LocType dag.Type
		// Ext is ExtFull unless LocType is wider than ValType.
		Ext ExtHint
		// Half is set when two packed values share Reg.
		Half Half
	}

	// LocationKind is the kind of a LocationAssignment.
	LocationKind byte

	// Half selects the 32-bit half of a 64-bit register holding a packed pair.
	Half byte
)

const (
	ExtFull ExtHint = iota
	ExtSExt
	ExtZExt
	ExtAExt
)

const (
	LocationKindInvalid LocationKind = iota
	// LocationKindReg represents a value passed in a register.
	LocationKindReg
	// LocationKindStack represents a value passed in the stack.
	LocationKindStack
)

const (
	HalfNone Half = iota
	// HalfHigh is the first value of a packed pair, held in bits 63..32.
	HalfHigh
	// HalfLow is the second value of a packed pair, held in bits 31..0.
	HalfLow
)

// String implements fmt.Stringer.
func (e ExtHint) String() string {
	switch e {
	case ExtFull:
		return "full"
	case ExtSExt:
		return "sext"
	case ExtZExt:
		return "zext"
	case ExtAExt:
		return "aext"
	default:
		panic("BUG")
	}
}

// String implements fmt.Stringer.
func (k LocationKind) String() string {
	switch k {
	case LocationKindReg:
		return "reg"
	case LocationKindStack:
		return "stack"
	default:
		return "invalid"
	}
}

// String implements fmt.Stringer.
func (l *LocationAssignment) String() string {
	switch l.Kind {
	case LocationKindReg:
		return fmt.Sprintf("args[%d]: reg(r%d) %s->%s %s", l.Index, l.Reg, l.ValType, l.LocType, l.Ext)
	case LocationKindStack:
		return fmt.Sprintf("args[%d]: stack(%d) %s->%s %s", l.Index, l.Offset, l.ValType, l.LocType, l.Ext)
	default:
		return fmt.Sprintf("args[%d]: invalid", l.Index)
	}
}

// IsExtInLoc returns true if the value was promoted to a wider location type.
func (l *LocationAssignment) IsExtInLoc() bool {
	return l.Ext != ExtFull
}

// LoadOffset returns the offset to read a stack-passed value from. Slots store promoted
// values with their least significant bytes at the end, so narrow extended values are read
// from the tail of the slot.
func (l *LocationAssignment) LoadOffset() int64 {
	if l.Kind != LocationKindStack {
		panic("BUG: LoadOffset on a register location")
	}
	if sz := l.ValType.Size(); l.IsExtInLoc() && sz < l.SlotSize {
		return l.Offset + l.SlotSize - sz
	}
	return l.Offset
}

type (
	// CallingConv is a calling convention as data: an ordered rule list consulted by Classify.
	CallingConv struct {
		Name string
		// PreservedStackBytes is allocated at the start of the argument area before any value.
		PreservedStackBytes int64
		Rules               []CCRule
	}

	// CCRule applies to the values whose current type is listed in Types. A rule either
	// promotes the type and lets the following rules see the promoted type, or assigns
	// the first free register of Regs, or falls back to a stack slot when StackSize > 0.
	CCRule struct {
		Types     []dag.Type
		PromoteTo dag.Type
		Regs      []regs.RealReg
		// Shadows are marked allocated together with Regs[i].
		Shadows    [][]regs.RealReg
		StackSize  int64
		StackAlign int64
		// Packable allows two adjacent Packed integers of at most 32 bits to share one register.
		Packable bool
	}
)

func (r *CCRule) matches(t dag.Type) bool {
	for _, rt := range r.Types {
		if rt == t {
			return true
		}
	}
	return false
}

type ccState struct {
	allocated regs.RegSet
	offset    int64
}

func (s *ccState) isFree(r *CCRule, i int) bool {
	if s.allocated.Has(r.Regs[i]) {
		return false
	}
	if i < len(r.Shadows) {
		for _, sh := range r.Shadows[i] {
			if s.allocated.Has(sh) {
				return false
			}
		}
	}
	return true
}

func (s *ccState) allocate(r *CCRule, i int) regs.RealReg {
	s.allocated = s.allocated.Add(r.Regs[i])
	if i < len(r.Shadows) {
		for _, sh := range r.Shadows[i] {
			s.allocated = s.allocated.Add(sh)
		}
	}
	return r.Regs[i]
}

func (s *ccState) allocateStack(size, align int64) int64 {
	s.offset = (s.offset + align - 1) &^ (align - 1)
	ret := s.offset
	s.offset += size
	return ret
}

// Classify assigns a location to each descriptor left to right and returns the assignments
// with the number of argument area bytes used, including the preserved region.
// ok is false if some value has no location under this convention.
func (cc *CallingConv) Classify(descs []ValueDescriptor) (locs []LocationAssignment, stackSize int64, ok bool) {
	s := ccState{offset: cc.PreservedStackBytes}
	locs = make([]LocationAssignment, len(descs))
	ok = true
	for i := 0; i < len(descs); i++ {
		d := &descs[i]
		loc := &locs[i]
		if !cc.classifyOne(&s, i, d, loc) {
			ok = false
			continue
		}
		if !d.Packed || loc.Kind != LocationKindReg || i+1 >= len(descs) {
			continue
		}
		rule := cc.ruleFor(loc.LocType)
		next := &descs[i+1]
		if rule == nil || !rule.Packable || !isPackableHalf(loc.LocType) || !isPackableHalf(next.Type) {
			continue
		}
		loc.Half = HalfHigh
		locs[i+1] = LocationAssignment{
			Index: i + 1, Kind: LocationKindReg, Reg: loc.Reg,
			ValType: next.Type, LocType: loc.LocType, Ext: extFor(next, loc.LocType), Half: HalfLow,
		}
		i++
	}
	if loweringapi.ABILoggingEnabled {
		logClassification(cc, locs, s.offset)
	}
	return locs, s.offset, ok
}

// isPackableHalf reports whether a value of t fits one 32-bit integer half of a register.
func isPackableHalf(t dag.Type) bool {
	return !t.IsVector() && t.IsInt() && t.Bits() <= 32
}

func (cc *CallingConv) ruleFor(t dag.Type) *CCRule {
	for i := range cc.Rules {
		if r := &cc.Rules[i]; r.matches(t) && len(r.Regs) > 0 {
			return r
		}
	}
	return nil
}

func extFor(d *ValueDescriptor, locType dag.Type) ExtHint {
	if locType == d.Type {
		return ExtFull
	}
	if d.Ext == ExtSExt || d.Ext == ExtZExt {
		return d.Ext
	}
	return ExtAExt
}

func logClassification(cc *CallingConv, locs []LocationAssignment, size int64) {
	fmt.Printf("[%s] classified %d values, %d bytes of argument area\n%s", cc.Name, len(locs), size, spew.Sdump(locs))
}

func (cc *CallingConv) classifyOne(s *ccState, i int, d *ValueDescriptor, loc *LocationAssignment) bool {
	typ := d.Type
	*loc = LocationAssignment{Index: i, ValType: d.Type}
	for ri := range cc.Rules {
		r := &cc.Rules[ri]
		if !r.matches(typ) {
			continue
		}
		if r.PromoteTo.Valid() {
			typ = r.PromoteTo
			continue
		}
		for j := range r.Regs {
			if s.isFree(r, j) {
				loc.Kind, loc.Reg = LocationKindReg, s.allocate(r, j)
				loc.LocType, loc.Ext = typ, extFor(d, typ)
				return true
			}
		}
		if r.StackSize > 0 {
			loc.Kind = LocationKindStack
			loc.Offset = s.allocateStack(r.StackSize, r.StackAlign)
			loc.SlotSize = r.StackSize
			loc.LocType, loc.Ext = typ, extFor(d, typ)
			return true
		}
	}
	return false
}

// DualPlacement is the pair of locations of one argument of a variadic call: the register
// convention's location and the stack-only convention's location.
type DualPlacement struct {
	Primary, Memory LocationAssignment
}

// ClassifyDual classifies descs with both conventions independently and zips the results.
// The returned stack size covers both and is not yet rounded.
func ClassifyDual(descs []ValueDescriptor, primary, memory *CallingConv) ([]DualPlacement, int64, bool) {
	p, pSize, pOK := primary.Classify(descs)
	m, mSize, mOK := memory.Classify(descs)
	ret := make([]DualPlacement, len(descs))
	for i := range descs {
		ret[i] = DualPlacement{Primary: p[i], Memory: m[i]}
	}
	if mSize > pSize {
		pSize = mSize
	}
	return ret, pSize, pOK && mOK
}

// AlignStackSize rounds a stack size up to the 16 byte alignment of the stack pointer.
func AlignStackSize(size int64) int64 {
	return (size + 15) &^ 15
}
