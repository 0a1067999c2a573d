package dag

import "fmt"

// NodeID is the index of a Node in the insertion order of its Builder.
type NodeID uint32

// Value is a data result of a Node. The zero Value is invalid.
type Value struct {
	n   *Node
	idx uint8
}

// ValueInvalid is the invalid Value.
var ValueInvalid = Value{}

// Valid returns true if this value refers to a node.
func (v Value) Valid() bool {
	return v.n != nil
}

// Node returns the node producing this value.
func (v Value) Node() *Node {
	return v.n
}

// ResultIndex returns which value result of Node this is.
func (v Value) ResultIndex() int {
	return int(v.idx)
}

// Type returns the Type of this value.
func (v Value) Type() Type {
	if v.idx == 1 {
		return v.n.typ2
	}
	return v.n.typ
}

// Opcode returns the opcode of the producing node.
func (v Value) Opcode() Opcode {
	if v.n == nil {
		return OpcodeInvalid
	}
	return v.n.opcode
}

// IsUndef returns true if the value is an OpcodeUndef.
func (v Value) IsUndef() bool {
	return v.Opcode() == OpcodeUndef
}

// ConstantInt returns the value of an integer constant.
func (v Value) ConstantInt() (int64, bool) {
	if v.Opcode() != OpcodeConstant {
		return 0, false
	}
	return int64(v.n.u1), true
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if !v.Valid() {
		return "invalid"
	}
	if v.idx != 0 {
		return fmt.Sprintf("n%d.%d", v.n.id, v.idx)
	}
	return fmt.Sprintf("n%d", v.n.id)
}

// SameValue returns true if a and b are known to hold the same bits:
// they are the same result, or constants of the same type and value.
func SameValue(a, b Value) bool {
	if a == b {
		return true
	}
	if !a.Valid() || !b.Valid() || a.Type() != b.Type() {
		return false
	}
	switch a.Opcode() {
	case OpcodeConstant, OpcodeConstantFP:
		return a.Opcode() == b.Opcode() && a.n.u1 == b.n.u1
	}
	return false
}

// Chain is the sequencing token produced by a side-effecting Node.
// It is a distinct type so that ordering edges cannot be confused with data.
type Chain struct {
	n *Node
}

// Valid returns true if this chain refers to a node.
func (c Chain) Valid() bool {
	return c.n != nil
}

// Node returns the node producing this chain.
func (c Chain) Node() *Node {
	return c.n
}

// String implements fmt.Stringer.
func (c Chain) String() string {
	if !c.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("n%d.ch", c.n.id)
}

// Glue ties a node to the node consuming it so that nothing is scheduled in between.
// Physical register copies before a call are glued to the call.
type Glue struct {
	n *Node
}

// Valid returns true if this glue refers to a node.
func (g Glue) Valid() bool {
	return g.n != nil
}

// Node returns the node producing this glue.
func (g Glue) Node() *Node {
	return g.n
}

// String implements fmt.Stringer.
func (g Glue) String() string {
	if !g.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("n%d.gl", g.n.id)
}
