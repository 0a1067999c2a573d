package ve

import (
	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/dag"
)

// growStackSymbol extends the stack of the caller by its argument, preserving every register.
const growStackSymbol = "__llvm_grow_stack"

// returnAddressFrameIndex is the frame object holding the return address of the function.
const returnAddressFrameIndex = 1

// lowerVAStart stores the address of the first variadic argument to the va_list.
func (m *machine) lowerVAStart(n *dag.Node) *dag.Node {
	m.frame.SetFrameAddressTaken()
	fp := m.b.AllocateNode().AsCopyFromReg(n.InChain(), physReg(framePointer), dag.TypeI64, dag.Glue{}).Insert(m.b)
	addr := m.addOffset(fp.Return(), m.frame.VarArgsFrameOffset())
	return m.b.AllocateNode().AsStore(fp.ChainOut(), addr, n.Operand(0)).Insert(m.b)
}

// lowerVAArg loads the next variadic argument and advances the va_list past it.
func (m *machine) lowerVAArg(n *dag.Node) *dag.Node {
	typ := n.Type()
	ptr := n.Operand(0)
	list := m.load(n.InChain(), ptr, dag.TypeI64)
	cur := list.Return()

	step := int64(8)
	if typ == dag.TypeF128 {
		// f128 arguments are 16 byte aligned in the argument area.
		step = 16
		cur = m.binary(dag.OpcodeAdd, cur, m.constant(dag.TypeI64, step-1))
		cur = m.binary(dag.OpcodeAnd, cur, m.constant(dag.TypeI64, -step))
	}
	next := m.binary(dag.OpcodeAdd, cur, m.constant(dag.TypeI64, step))
	ch := m.store(list.ChainOut(), next, ptr)
	return m.load(ch, cur, typ)
}

// lowerDynamicStackAlloc grows the stack through the runtime and returns the new stack top.
func (m *machine) lowerDynamicStackAlloc(n *dag.Node) *dag.Node {
	callee := m.b.AllocateNode().AsSymbolAddress(dag.OpcodeExternalSymbol, growStackSymbol).Insert(m.b).Return()
	size := n.Operand(0)
	ch, _ := m.LowerCall(&backend.CallLoweringInfo{
		Chain:    m.b.EntryChain(),
		Callee:   callee,
		CallConv: backend.CallConvPreserveAll,
		Args:     []backend.OutputArg{{Value: size, Desc: backend.ValueDescriptor{Type: size.Type()}}},
	})
	top := m.b.AllocateNode().AsGetStackTop(ch).Insert(m.b)
	return m.mergeValues(top.Return(), top.ChainOut())
}

// lowerFrameAddr reads the frame pointer and walks depth frames up the saved frame pointers.
func (m *machine) lowerFrameAddr(n *dag.Node) *dag.Node {
	m.frame.SetFrameAddressTaken()
	return m.frameAddress(int(n.Imm()))
}

func (m *machine) frameAddress(depth int) *dag.Node {
	entry := m.b.EntryChain()
	addr := m.b.AllocateNode().AsCopyFromReg(entry, physReg(framePointer), dag.TypeI64, dag.Glue{}).Insert(m.b)
	for ; depth > 0; depth-- {
		addr = m.load(entry, addr.Return(), dag.TypeI64)
	}
	return addr
}

// lowerReturnAddr loads the return address saved depth frames up, which is next to the
// saved frame pointer.
func (m *machine) lowerReturnAddr(n *dag.Node) *dag.Node {
	m.frame.SetReturnAddressTaken()
	entry := m.b.EntryChain()
	if depth := int(n.Imm()); depth > 0 {
		m.frame.SetFrameAddressTaken()
		fp := m.frameAddress(depth).Return()
		return m.load(entry, m.addOffset(fp, 8), dag.TypeI64)
	}
	fi := m.b.AllocateNode().AsFrameIndex(returnAddressFrameIndex).Insert(m.b).Return()
	return m.load(entry, fi, dag.TypeI64)
}
