package dag

import (
	"fmt"
	"strings"

	"github.com/oleiade/lane"

	"github.com/tetratelabs/velower/internal/loweringapi"
)

// Builder owns the operation graph of one function.
type Builder interface {
	// AllocateNode returns a new Node which is not yet part of the graph.
	AllocateNode() *Node

	// InsertNode adds the initialized node to the graph and assigns its NodeID.
	InsertNode(n *Node)

	// EntryChain returns the chain the function body starts from.
	EntryChain() Chain

	// Root returns the chain that keeps the side effects of the function alive.
	Root() Chain

	// SetRoot sets the root chain.
	SetRoot(ch Chain)

	// Constant inserts an integer constant of the given type.
	Constant(typ Type, v int64) Value

	// Undef inserts a value of the given type whose bits are unspecified.
	Undef(typ Type) Value

	// Nodes returns the inserted nodes in insertion order.
	Nodes() []*Node

	// Reachable returns the nodes reachable from the root in insertion order.
	Reachable() []*Node

	// Format returns the debug string of the nodes reachable from the root.
	Format() string

	// Reset clears the graph so that the Builder can be reused for another function.
	Reset()
}

// NewBuilder returns a new Builder.
func NewBuilder() Builder {
	b := &builder{pool: loweringapi.NewPool[Node](resetNode)}
	b.Reset()
	return b
}

type builder struct {
	pool  loweringapi.Pool[Node]
	nodes []*Node
	entry Chain
	root  Chain
}

// AllocateNode implements Builder.AllocateNode.
func (b *builder) AllocateNode() *Node {
	return b.pool.Allocate()
}

// InsertNode implements Builder.InsertNode.
func (b *builder) InsertNode(n *Node) {
	if n.inserted {
		panic(fmt.Sprintf("BUG: %s inserted twice", n.opcode))
	}
	if loweringapi.GraphValidationEnabled {
		validate(n)
	}
	n.id = NodeID(len(b.nodes))
	n.inserted = true
	b.nodes = append(b.nodes, n)
}

// EntryChain implements Builder.EntryChain.
func (b *builder) EntryChain() Chain {
	return b.entry
}

// Root implements Builder.Root.
func (b *builder) Root() Chain {
	return b.root
}

// SetRoot implements Builder.SetRoot.
func (b *builder) SetRoot(ch Chain) {
	b.root = ch
}

// Constant implements Builder.Constant.
func (b *builder) Constant(typ Type, v int64) Value {
	return b.AllocateNode().AsConstant(typ, v).Insert(b).Return()
}

// Undef implements Builder.Undef.
func (b *builder) Undef(typ Type) Value {
	return b.AllocateNode().AsUndef(typ).Insert(b).Return()
}

// Nodes implements Builder.Nodes.
func (b *builder) Nodes() []*Node {
	return b.nodes
}

// Reset implements Builder.Reset.
func (b *builder) Reset() {
	b.pool.Reset()
	b.nodes = b.nodes[:0]
	b.entry = b.AllocateNode().AsEntryToken().Insert(b).ChainOut()
	b.root = b.entry
}

// Reachable implements Builder.Reachable.
func (b *builder) Reachable() []*Node {
	seen := make([]bool, len(b.nodes))
	q := lane.NewQueue()
	visit := func(n *Node) {
		if n != nil && n.inserted && !seen[n.id] {
			seen[n.id] = true
			q.Enqueue(n)
		}
	}
	visit(b.root.n)
	for !q.Empty() {
		n := q.Dequeue().(*Node)
		visit(n.chain.n)
		visit(n.glue.n)
		for _, ch := range n.chains {
			visit(ch.n)
		}
		for _, v := range n.ops {
			visit(v.n)
		}
	}

	var ret []*Node
	for _, n := range b.nodes {
		if seen[n.id] {
			ret = append(ret, n)
		}
	}
	return ret
}

// Format implements Builder.Format.
func (b *builder) Format() string {
	var lines []string
	for _, n := range b.Reachable() {
		lines = append(lines, n.Format())
	}
	return strings.Join(lines, "\n")
}

// Format returns a debug string of this node.
func (n *Node) Format() string {
	var results []string
	for i := 0; i < int(n.nvals); i++ {
		results = append(results, Value{n: n, idx: uint8(i)}.Type().String())
	}
	if n.chainOut {
		results = append(results, "ch")
	}
	if n.glueOut {
		results = append(results, "gl")
	}

	var args []string
	if n.chain.Valid() {
		args = append(args, n.chain.String())
	}
	for _, ch := range n.chains {
		args = append(args, ch.String())
	}
	if n.reg.Valid() {
		args = append(args, n.reg.String())
	}
	for _, v := range n.ops {
		args = append(args, v.String())
	}
	for _, r := range n.regs {
		args = append(args, r.String())
	}
	switch n.opcode {
	case OpcodeConstant:
		args = append(args, fmt.Sprintf("%d", int64(n.u1)))
	case OpcodeConstantFP:
		args = append(args, fmt.Sprintf("%#x", n.u1))
	case OpcodeAssertSext, OpcodeAssertZext:
		args = append(args, Type(n.u1).String())
	case OpcodeSetcc:
		args = append(args, CondCode(n.u1).String())
	case OpcodeVectorShuffle:
		args = append(args, fmt.Sprint(n.mask))
	case OpcodeAtomicFence:
		args = append(args, AtomicOrdering(n.u1).String(), SyncScope(n.u2).String())
	case OpcodeGlobalAddress:
		args = append(args, fmt.Sprintf("@%s%+d", n.sym, int64(n.u1)))
	case OpcodeExternalSymbol, OpcodeConstantPool, OpcodeBlockAddress, OpcodeGlobalTLSAddress,
		OpcodeGetFunPLT, OpcodeGetTLSAddr:
		args = append(args, "@"+n.sym)
	case OpcodeHi, OpcodeLo:
		args = append(args, fmt.Sprintf("@%s%+d", n.sym, int64(n.u2)), SymbolVariant(n.u1).String())
	case OpcodeFrameIndex:
		args = append(args, fmt.Sprintf("fi%d", n.u1))
	case OpcodeCallseqStart, OpcodeCallseqEnd, OpcodeFence, OpcodeVecRotate, OpcodeFrameAddr,
		OpcodeReturnAddr, OpcodeExtractHalf, OpcodeDynamicStackAlloc, OpcodeIntrinsicWOChain,
		OpcodeIntrinsicWChain, OpcodeIntrinsicVoid, OpcodeVecInst:
		args = append(args, fmt.Sprintf("%d", n.u1))
	case OpcodeMaskInsertWord:
		args = append(args, fmt.Sprintf("%#x", n.u1), fmt.Sprintf("%d", n.u2))
	}
	if n.glue.Valid() {
		args = append(args, n.glue.String())
	}

	ret := fmt.Sprintf("n%d:%s = %s", n.id, strings.Join(results, ","), n.opcode)
	if len(args) > 0 {
		ret += " " + strings.Join(args, ", ")
	}
	return ret
}

func validate(n *Node) {
	if n.opcode == OpcodeInvalid || n.opcode >= opcodeEnd {
		panic("BUG: inserting an uninitialized node")
	}
	if n.opcode.hasSideEffect() && !n.chain.Valid() {
		panic(fmt.Sprintf("BUG: %s requires an input chain", n.opcode))
	}
	for i, v := range n.ops {
		if !v.Valid() {
			panic(fmt.Sprintf("BUG: operand %d of %s is invalid", i, n.opcode))
		}
	}
	switch n.opcode {
	case OpcodeAdd, OpcodeSub, OpcodeMul, OpcodeAnd, OpcodeOr, OpcodeXor, OpcodeShl, OpcodeSrl, OpcodeSra:
		if x, y := n.ops[0].Type(), n.ops[1].Type(); x.Lanes() != y.Lanes() {
			panic(fmt.Sprintf("BUG: %s lane mismatch: %s vs %s", n.opcode, x, y))
		}
	case OpcodeVecMerge:
		if a, b := n.ops[0].Type(), n.ops[1].Type(); a != b || n.ops[2].Type().Lanes() != a.Lanes() {
			panic(fmt.Sprintf("BUG: VecMerge type mismatch: %s, %s, %s", a, b, n.ops[2].Type()))
		}
	}
}
