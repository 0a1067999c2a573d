package ve

import (
	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/dag"
)

// tlsCallFrameSize is the argument area reserved around the TLS resolver call.
const tlsCallFrameSize = 64

// hiLo builds the two instruction address of sym: lea of the low half, then lea.sl adding the high half.
func (m *machine) hiLo(sym string, offset int64, hi, lo dag.SymbolVariant) dag.Value {
	h := m.b.AllocateNode().AsHiLo(dag.OpcodeHi, sym, offset, hi).Insert(m.b).Return()
	l := m.b.AllocateNode().AsHiLo(dag.OpcodeLo, sym, offset, lo).Insert(m.b).Return()
	return m.binary(dag.OpcodeAdd, h, l)
}

// lowerAddress lowers OpcodeGlobalAddress, OpcodeConstantPool and OpcodeBlockAddress.
func (m *machine) lowerAddress(n *dag.Node) *dag.Node {
	var sym string
	var offset int64
	var local bool
	switch n.Opcode() {
	case dag.OpcodeGlobalAddress:
		var flags dag.GlobalFlags
		sym, offset, flags = n.GlobalAddressData()
		local = m.isDSOLocal(sym, flags)
	case dag.OpcodeConstantPool:
		sym, local = n.Sym(), true
	default:
		sym = n.Sym()
	}

	if !m.opts.PositionIndependent {
		return m.hiLo(sym, offset, dag.SymbolVariantHi32, dag.SymbolVariantLo32).Node()
	}

	// Every access goes through the GOT register which is set up by a call.
	m.frame.SetHasCalls()
	m.frame.GlobalBaseReg()
	base := m.b.AllocateNode().AsGlobalBaseReg().Insert(m.b).Return()
	if local {
		off := m.hiLo(sym, offset, dag.SymbolVariantGOTOffHi32, dag.SymbolVariantGOTOffLo32)
		return m.b.AllocateNode().AsBinary(dag.OpcodeAdd, base, off).Insert(m.b)
	}
	entry := m.hiLo(sym, offset, dag.SymbolVariantGOTHi32, dag.SymbolVariantGOTLo32)
	entry = m.binary(dag.OpcodeAdd, base, entry)
	return m.load(m.b.EntryChain(), entry, dag.TypeI64)
}

// lowerGlobalTLSAddress lowers OpcodeGlobalTLSAddress with the general dynamic model:
// the address is returned in %s0 by a call to the TLS resolver.
func (m *machine) lowerGlobalTLSAddress(n *dag.Node) *dag.Node {
	ch := m.b.AllocateNode().AsCallseqStart(m.b.EntryChain(), tlsCallFrameSize).Insert(m.b).ChainOut()
	tls := m.b.AllocateNode().AsGetTLSAddr(ch, n.Sym(), m.regInfo.CallPreservedRegs(backend.CallConvC), dag.Glue{}).Insert(m.b)
	end := m.b.AllocateNode().AsCallseqEnd(tls.ChainOut(), tlsCallFrameSize, tls.GlueOut()).Insert(m.b)
	ret := m.b.AllocateNode().AsCopyFromReg(end.ChainOut(), physReg(sx0), dag.TypeI64, end.GlueOut()).Insert(m.b)

	m.frame.SetHasCalls()
	if m.opts.PositionIndependent {
		m.frame.GlobalBaseReg()
	}
	return ret
}
