package ve

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/dag"
)

const (
	// DefaultVectorLanes is the number of lanes of a native vector register.
	DefaultVectorLanes = 256
	// DefaultStackArgumentBase is the offset of the argument area of the VE C ABI.
	DefaultStackArgumentBase int64 = argsBaseOffset
)

type (
	// Options configures the VE lowering.
	Options struct {
		// PositionIndependent selects GOT/PLT relative addressing of symbols.
		PositionIndependent bool
		// VectorLanes is the native lane count. Only shuffles of exactly this many lanes are lowered.
		VectorLanes int
		// StackArgumentBase is the offset of the argument area from the stack pointer. Zero selects
		// DefaultStackArgumentBase.
		StackArgumentBase int64
		// Symbols answers questions about the functions of the module. May be nil.
		Symbols backend.SymbolResolver
		// Intrinsics lists the intrinsics rewritten into vector instructions. May be nil.
		Intrinsics IntrinsicTable
		// RegisterInfo defaults to NewRegisterInfo.
		RegisterInfo backend.RegisterInfo
	}

	// machine implements backend.Machine.
	machine struct {
		opts    Options
		regInfo backend.RegisterInfo
		symbols backend.SymbolResolver

		// b is the graph of the currently-lowered function.
		b dag.Builder
		// frame is the frame of the currently-lowered function.
		frame backend.FrameLayout
	}
)

// NewBackend returns a new backend.Machine for VE.
func NewBackend(opts Options) backend.Machine {
	if opts.VectorLanes == 0 {
		opts.VectorLanes = DefaultVectorLanes
	}
	if opts.StackArgumentBase == 0 {
		opts.StackArgumentBase = DefaultStackArgumentBase
	}
	if opts.VectorLanes%64 != 0 {
		panic(fmt.Sprintf("BUG: vector lanes must be a multiple of 64 but got %d", opts.VectorLanes))
	}
	m := &machine{opts: opts, regInfo: opts.RegisterInfo, symbols: opts.Symbols}
	if m.regInfo == nil {
		m.regInfo = NewRegisterInfo()
	}
	return m
}

// StartFunction implements backend.Machine.StartFunction.
func (m *machine) StartFunction(b dag.Builder, frame backend.FrameLayout) {
	m.b = b
	m.frame = frame
}

func (m *machine) unary(op dag.Opcode, x dag.Value, typ dag.Type) dag.Value {
	return m.b.AllocateNode().AsUnary(op, x, typ).Insert(m.b).Return()
}

func (m *machine) binary(op dag.Opcode, x, y dag.Value) dag.Value {
	return m.b.AllocateNode().AsBinary(op, x, y).Insert(m.b).Return()
}

func (m *machine) constant(typ dag.Type, v int64) dag.Value {
	return m.b.Constant(typ, v)
}

// broadcast replicates the scalar x to every lane of typ.
func (m *machine) broadcast(x dag.Value, typ dag.Type) dag.Value {
	return m.b.AllocateNode().AsVecBroadcast(x, typ).Insert(m.b).Return()
}

// broadcastConst replicates the integer v to every lane of typ.
func (m *machine) broadcastConst(typ dag.Type, v int64) dag.Value {
	return m.broadcast(m.constant(typ.Elem(), v), typ)
}

func (m *machine) load(ch dag.Chain, addr dag.Value, typ dag.Type) *dag.Node {
	return m.b.AllocateNode().AsLoad(ch, addr, typ).Insert(m.b)
}

func (m *machine) store(ch dag.Chain, x, addr dag.Value) dag.Chain {
	return m.b.AllocateNode().AsStore(ch, x, addr).Insert(m.b).ChainOut()
}

func (m *machine) tokenFactor(chains ...dag.Chain) *dag.Node {
	return m.b.AllocateNode().AsTokenFactor(chains...).Insert(m.b)
}

func (m *machine) mergeValues(x dag.Value, ch dag.Chain) *dag.Node {
	return m.b.AllocateNode().AsMergeValues(x, ch).Insert(m.b)
}

// addOffset returns base+off, or base itself when off is zero.
func (m *machine) addOffset(base dag.Value, off int64) dag.Value {
	if off == 0 {
		return base
	}
	return m.binary(dag.OpcodeAdd, base, m.constant(dag.TypeI64, off))
}
