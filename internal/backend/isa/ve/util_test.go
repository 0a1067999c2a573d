package ve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/regs"
	"github.com/tetratelabs/velower/internal/dag"
)

func newSetup() (dag.Builder, *machine, *mockFrame) {
	return newSetupWithOptions(Options{})
}

func newSetupWithOptions(opts Options) (dag.Builder, *machine, *mockFrame) {
	m := NewBackend(opts).(*machine)
	b := dag.NewBuilder()
	f := &mockFrame{}
	m.StartFunction(b, f)
	return b, m, f
}

// mockFrame implements backend.FrameLayout for testing.
type mockFrame struct {
	fixedObjects       []mockFixedObject
	liveIns            []regs.RealReg
	hasCalls           bool
	frameAddressTaken  bool
	returnAddressTaken bool
	varArgsOffset      int64
	globalBaseRegUsed  int
	nextVReg           regs.VRegID
}

type mockFixedObject struct {
	size, offset int64
	immutable    bool
}

// CreateFixedObject implements backend.FrameLayout.CreateFixedObject.
func (f *mockFrame) CreateFixedObject(size, offset int64, immutable bool) int {
	f.fixedObjects = append(f.fixedObjects, mockFixedObject{size: size, offset: offset, immutable: immutable})
	return -len(f.fixedObjects)
}

// AddLiveIn implements backend.FrameLayout.AddLiveIn.
func (f *mockFrame) AddLiveIn(reg regs.RealReg, typ regs.RegType) regs.VReg {
	f.liveIns = append(f.liveIns, reg)
	f.nextVReg++
	return regs.NewVirtual(1000+f.nextVReg, typ)
}

// SetHasCalls implements backend.FrameLayout.SetHasCalls.
func (f *mockFrame) SetHasCalls() { f.hasCalls = true }

// SetFrameAddressTaken implements backend.FrameLayout.SetFrameAddressTaken.
func (f *mockFrame) SetFrameAddressTaken() { f.frameAddressTaken = true }

// SetReturnAddressTaken implements backend.FrameLayout.SetReturnAddressTaken.
func (f *mockFrame) SetReturnAddressTaken() { f.returnAddressTaken = true }

// SetVarArgsFrameOffset implements backend.FrameLayout.SetVarArgsFrameOffset.
func (f *mockFrame) SetVarArgsFrameOffset(offset int64) { f.varArgsOffset = offset }

// VarArgsFrameOffset implements backend.FrameLayout.VarArgsFrameOffset.
func (f *mockFrame) VarArgsFrameOffset() int64 { return f.varArgsOffset }

// GlobalBaseReg implements backend.FrameLayout.GlobalBaseReg.
func (f *mockFrame) GlobalBaseReg() regs.VReg {
	f.globalBaseRegUsed++
	return regs.FromRealReg(gotRegister, regs.RegTypeScalar)
}

// mapResolver implements backend.SymbolResolver for testing.
type mapResolver map[string]int64

// Function implements backend.SymbolResolver.Function.
func (r mapResolver) Function(name string) (backend.FunctionDecl, bool) {
	size, ok := r[name]
	return backend.FunctionDecl{Name: name, FirstParamPointeeSize: size}, ok
}

// declResolver implements backend.SymbolResolver for testing with full declarations.
type declResolver map[string]backend.FunctionDecl

// Function implements backend.SymbolResolver.Function.
func (r declResolver) Function(name string) (backend.FunctionDecl, bool) {
	decl, ok := r[name]
	return decl, ok
}

// countOpcodes returns the number of nodes of each opcode reachable from roots.
func countOpcodes(roots ...*dag.Node) map[dag.Opcode]int {
	ret := map[dag.Opcode]int{}
	seen := map[*dag.Node]bool{}
	var visit func(n *dag.Node)
	visit = func(n *dag.Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		ret[n.Opcode()]++
		for _, op := range n.Operands() {
			visit(op.Node())
		}
		visit(n.InChain().Node())
		for _, ch := range n.InChains() {
			visit(ch.Node())
		}
		visit(n.InGlue().Node())
	}
	for _, r := range roots {
		visit(r)
	}
	return ret
}

func constantLanes(b dag.Builder, typ dag.Type, vs ...int64) []dag.Value {
	ret := make([]dag.Value, len(vs))
	for i, v := range vs {
		ret[i] = b.Constant(typ, v)
	}
	return ret
}

func requireConstant(t *testing.T, exp int64, v dag.Value) {
	c, ok := v.ConstantInt()
	require.True(t, ok, "%s is not a constant", v.Node().Format())
	require.Equal(t, exp, c)
}
