package dag

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/backend/regs"
)

// Node is one operation of the graph. Since Go doesn't have union type, we use this flattened
// type for all nodes, and therefore each field has different meaning depending on Opcode.
type Node struct {
	id       NodeID
	opcode   Opcode
	u1, u2   uint64
	typ      Type
	typ2     Type
	nvals    uint8
	chainOut bool
	glueOut  bool
	inserted bool
	chain    Chain
	glue     Glue
	ops      []Value
	chains   []Chain
	reg      regs.VReg
	regs     []regs.VReg
	regMask  regs.RegSet
	sym      string
	mask     []int
}

// ID returns the id assigned by Builder.InsertNode.
func (n *Node) ID() NodeID {
	return n.id
}

// Opcode returns the opcode of this node.
func (n *Node) Opcode() Opcode {
	return n.opcode
}

// Type returns the type of the first value result.
func (n *Node) Type() Type {
	return n.typ
}

// Return returns the first value result.
func (n *Node) Return() Value {
	if n.nvals == 0 {
		panic(fmt.Sprintf("BUG: %s has no value result", n.opcode))
	}
	return Value{n: n}
}

// Result returns the i-th value result.
func (n *Node) Result(i int) Value {
	if i >= int(n.nvals) {
		panic(fmt.Sprintf("BUG: %s has %d value results", n.opcode, n.nvals))
	}
	return Value{n: n, idx: uint8(i)}
}

// NumResults returns the number of value results.
func (n *Node) NumResults() int {
	return int(n.nvals)
}

// ChainOut returns the chain produced by this node.
func (n *Node) ChainOut() Chain {
	if !n.chainOut {
		panic(fmt.Sprintf("BUG: %s produces no chain", n.opcode))
	}
	return Chain{n: n}
}

// HasChainOut returns true if this node produces a chain.
func (n *Node) HasChainOut() bool {
	return n.chainOut
}

// GlueOut returns the glue produced by this node.
func (n *Node) GlueOut() Glue {
	if !n.glueOut {
		panic(fmt.Sprintf("BUG: %s produces no glue", n.opcode))
	}
	return Glue{n: n}
}

// InChain returns the input chain, which is invalid for pure nodes.
func (n *Node) InChain() Chain {
	return n.chain
}

// InChains returns the joined chains of OpcodeTokenFactor.
func (n *Node) InChains() []Chain {
	return n.chains
}

// InGlue returns the input glue if any.
func (n *Node) InGlue() Glue {
	return n.glue
}

// Operands returns the value operands.
func (n *Node) Operands() []Value {
	return n.ops
}

// Operand returns the i-th value operand.
func (n *Node) Operand(i int) Value {
	return n.ops[i]
}

// NumOperands returns the number of value operands.
func (n *Node) NumOperands() int {
	return len(n.ops)
}

// Reg returns the register of OpcodeCopyToReg and OpcodeCopyFromReg.
func (n *Node) Reg() regs.VReg {
	return n.reg
}

// Regs returns the register operands of OpcodeCall and OpcodeRetFlag.
func (n *Node) Regs() []regs.VReg {
	return n.regs
}

// RegMask returns the registers preserved across OpcodeCall and OpcodeGetTLSAddr.
func (n *Node) RegMask() regs.RegSet {
	return n.regMask
}

// Sym returns the symbol of address nodes.
func (n *Node) Sym() string {
	return n.sym
}

// ShuffleMask returns the mask of OpcodeVectorShuffle.
func (n *Node) ShuffleMask() []int {
	return n.mask
}

// Imm returns the first immediate of the node. Its meaning depends on the opcode.
func (n *Node) Imm() uint64 {
	return n.u1
}

// Imm2 returns the second immediate of the node. Its meaning depends on the opcode.
func (n *Node) Imm2() uint64 {
	return n.u2
}

// Insert inserts this node into b and returns it.
func (n *Node) Insert(b Builder) *Node {
	b.InsertNode(n)
	return n
}

// resetNode clears a recycled node but keeps the capacity of its slices.
func resetNode(n *Node) {
	*n = Node{ops: n.ops[:0], chains: n.chains[:0], regs: n.regs[:0], mask: n.mask[:0]}
}

func (n *Node) init(op Opcode, typ Type, nvals uint8) {
	n.opcode = op
	n.typ = typ
	n.nvals = nvals
}

// AsEntryToken initializes this node as OpcodeEntryToken.
func (n *Node) AsEntryToken() *Node {
	n.init(OpcodeEntryToken, typeInvalid, 0)
	n.chainOut = true
	return n
}

// AsTokenFactor initializes this node as OpcodeTokenFactor.
func (n *Node) AsTokenFactor(chains ...Chain) *Node {
	n.init(OpcodeTokenFactor, typeInvalid, 0)
	n.chains = append(n.chains[:0], chains...)
	n.chainOut = true
	return n
}

// AsConstant initializes this node as OpcodeConstant. Vector constants are splats.
func (n *Node) AsConstant(typ Type, v int64) *Node {
	n.init(OpcodeConstant, typ, 1)
	n.u1 = uint64(v)
	return n
}

// AsConstantFP initializes this node as OpcodeConstantFP holding the raw bits.
func (n *Node) AsConstantFP(typ Type, bits uint64) *Node {
	n.init(OpcodeConstantFP, typ, 1)
	n.u1 = bits
	return n
}

// AsUndef initializes this node as OpcodeUndef.
func (n *Node) AsUndef(typ Type) *Node {
	n.init(OpcodeUndef, typ, 1)
	return n
}

// AsCopyToReg initializes this node as OpcodeCopyToReg. gl may be invalid.
func (n *Node) AsCopyToReg(ch Chain, reg regs.VReg, x Value, gl Glue) *Node {
	n.init(OpcodeCopyToReg, typeInvalid, 0)
	n.chain = ch
	n.reg = reg
	n.ops = append(n.ops[:0], x)
	n.glue = gl
	n.chainOut, n.glueOut = true, true
	return n
}

// AsCopyFromReg initializes this node as OpcodeCopyFromReg. gl may be invalid.
func (n *Node) AsCopyFromReg(ch Chain, reg regs.VReg, typ Type, gl Glue) *Node {
	n.init(OpcodeCopyFromReg, typ, 1)
	n.chain = ch
	n.reg = reg
	n.glue = gl
	n.chainOut, n.glueOut = true, true
	return n
}

// AsLoad initializes this node as OpcodeLoad.
func (n *Node) AsLoad(ch Chain, addr Value, typ Type) *Node {
	n.init(OpcodeLoad, typ, 1)
	n.chain = ch
	n.ops = append(n.ops[:0], addr)
	n.chainOut = true
	return n
}

// AsStore initializes this node as OpcodeStore.
func (n *Node) AsStore(ch Chain, x, addr Value) *Node {
	n.init(OpcodeStore, typeInvalid, 0)
	n.chain = ch
	n.ops = append(n.ops[:0], x, addr)
	n.chainOut = true
	return n
}

// AsBinary initializes this node as one of the binary arithmetic opcodes.
func (n *Node) AsBinary(op Opcode, x, y Value) *Node {
	switch op {
	case OpcodeAdd, OpcodeSub, OpcodeMul, OpcodeAnd, OpcodeOr, OpcodeXor, OpcodeShl, OpcodeSrl, OpcodeSra:
	default:
		panic(fmt.Sprintf("BUG: %s is not a binary opcode", op))
	}
	n.init(op, x.Type(), 1)
	n.ops = append(n.ops[:0], x, y)
	return n
}

// AsUnary initializes this node as one of the conversion opcodes producing typ.
func (n *Node) AsUnary(op Opcode, x Value, typ Type) *Node {
	switch op {
	case OpcodeSignExtend, OpcodeZeroExtend, OpcodeAnyExtend, OpcodeTruncate, OpcodeBitcast:
	default:
		panic(fmt.Sprintf("BUG: %s is not a conversion opcode", op))
	}
	n.init(op, typ, 1)
	n.ops = append(n.ops[:0], x)
	return n
}

// AsAssert initializes this node as OpcodeAssertSext or OpcodeAssertZext.
func (n *Node) AsAssert(op Opcode, x Value, from Type) *Node {
	if op != OpcodeAssertSext && op != OpcodeAssertZext {
		panic(fmt.Sprintf("BUG: %s is not an assertion", op))
	}
	n.init(op, x.Type(), 1)
	n.ops = append(n.ops[:0], x)
	n.u1 = uint64(from)
	return n
}

// AssertedType returns the narrow type of OpcodeAssertSext and OpcodeAssertZext.
func (n *Node) AssertedType() Type {
	return Type(n.u1)
}

// AsSetcc initializes this node as OpcodeSetcc producing typ.
func (n *Node) AsSetcc(x, y Value, cond CondCode, typ Type) *Node {
	n.init(OpcodeSetcc, typ, 1)
	n.ops = append(n.ops[:0], x, y)
	n.u1 = uint64(cond)
	return n
}

// Cond returns the condition of OpcodeSetcc.
func (n *Node) Cond() CondCode {
	return CondCode(n.u1)
}

// AsSelect initializes this node as OpcodeSelect.
func (n *Node) AsSelect(c, x, y Value) *Node {
	n.init(OpcodeSelect, x.Type(), 1)
	n.ops = append(n.ops[:0], c, x, y)
	return n
}

// AsBuildVector initializes this node as OpcodeBuildVector.
func (n *Node) AsBuildVector(typ Type, lanes []Value) *Node {
	if len(lanes) != typ.Lanes() {
		panic(fmt.Sprintf("BUG: %d values for %s", len(lanes), typ))
	}
	n.init(OpcodeBuildVector, typ, 1)
	n.ops = append(n.ops[:0], lanes...)
	return n
}

// AsInsertVectorElt initializes this node as OpcodeInsertVectorElt.
func (n *Node) AsInsertVectorElt(vec, x, idx Value) *Node {
	n.init(OpcodeInsertVectorElt, vec.Type(), 1)
	n.ops = append(n.ops[:0], vec, x, idx)
	return n
}

// AsExtractVectorElt initializes this node as OpcodeExtractVectorElt producing typ.
func (n *Node) AsExtractVectorElt(vec, idx Value, typ Type) *Node {
	n.init(OpcodeExtractVectorElt, typ, 1)
	n.ops = append(n.ops[:0], vec, idx)
	return n
}

// AsVectorShuffle initializes this node as OpcodeVectorShuffle.
func (n *Node) AsVectorShuffle(a, b Value, mask []int) *Node {
	n.init(OpcodeVectorShuffle, a.Type(), 1)
	n.ops = append(n.ops[:0], a, b)
	n.mask = append(n.mask[:0], mask...)
	return n
}

// AsMaskedGather initializes this node as OpcodeMaskedGather.
func (n *Node) AsMaskedGather(ch Chain, passthru, mask, base, index, scale Value) *Node {
	n.init(OpcodeMaskedGather, passthru.Type(), 1)
	n.chain = ch
	n.ops = append(n.ops[:0], passthru, mask, base, index, scale)
	n.chainOut = true
	return n
}

// AsMaskedScatter initializes this node as OpcodeMaskedScatter.
func (n *Node) AsMaskedScatter(ch Chain, x, mask, base, index, scale Value) *Node {
	n.init(OpcodeMaskedScatter, typeInvalid, 0)
	n.chain = ch
	n.ops = append(n.ops[:0], x, mask, base, index, scale)
	n.chainOut = true
	return n
}

// AsMaskedLoad initializes this node as OpcodeMaskedLoad.
func (n *Node) AsMaskedLoad(ch Chain, addr, mask, passthru Value) *Node {
	n.init(OpcodeMaskedLoad, passthru.Type(), 1)
	n.chain = ch
	n.ops = append(n.ops[:0], addr, mask, passthru)
	n.chainOut = true
	return n
}

// AsVecReduce initializes this node as OpcodeVecReduceOr or OpcodeVecReduceAdd producing typ.
func (n *Node) AsVecReduce(op Opcode, x Value, typ Type) *Node {
	if op != OpcodeVecReduceOr && op != OpcodeVecReduceAdd {
		panic(fmt.Sprintf("BUG: %s is not a reduction", op))
	}
	n.init(op, typ, 1)
	n.ops = append(n.ops[:0], x)
	return n
}

// AsAtomicFence initializes this node as OpcodeAtomicFence.
func (n *Node) AsAtomicFence(ch Chain, ordering AtomicOrdering, scope SyncScope) *Node {
	n.init(OpcodeAtomicFence, typeInvalid, 0)
	n.chain = ch
	n.u1 = uint64(ordering)
	n.u2 = uint64(scope)
	n.chainOut = true
	return n
}

// AtomicFenceData returns the ordering and scope of OpcodeAtomicFence.
func (n *Node) AtomicFenceData() (AtomicOrdering, SyncScope) {
	return AtomicOrdering(n.u1), SyncScope(n.u2)
}

// GlobalFlags describe a GlobalAddress symbol.
type GlobalFlags uint64

const (
	// GlobalFunction is set when the symbol is a function.
	GlobalFunction GlobalFlags = 1 << iota
	// GlobalDSOLocal is set when the symbol resolves within the linked object.
	GlobalDSOLocal
)

// AsGlobalAddress initializes this node as OpcodeGlobalAddress.
func (n *Node) AsGlobalAddress(sym string, offset int64, flags GlobalFlags) *Node {
	n.init(OpcodeGlobalAddress, TypeI64, 1)
	n.sym = sym
	n.u1 = uint64(offset)
	n.u2 = uint64(flags)
	return n
}

// GlobalAddressData returns the symbol, offset and flags of OpcodeGlobalAddress.
func (n *Node) GlobalAddressData() (sym string, offset int64, flags GlobalFlags) {
	return n.sym, int64(n.u1), GlobalFlags(n.u2)
}

// AsSymbolAddress initializes this node as one of OpcodeExternalSymbol, OpcodeConstantPool,
// OpcodeBlockAddress or OpcodeGlobalTLSAddress.
func (n *Node) AsSymbolAddress(op Opcode, sym string) *Node {
	switch op {
	case OpcodeExternalSymbol, OpcodeConstantPool, OpcodeBlockAddress, OpcodeGlobalTLSAddress:
	default:
		panic(fmt.Sprintf("BUG: %s is not a symbol address", op))
	}
	n.init(op, TypeI64, 1)
	n.sym = sym
	return n
}

// AsFrameIndex initializes this node as OpcodeFrameIndex.
func (n *Node) AsFrameIndex(fi int) *Node {
	n.init(OpcodeFrameIndex, TypeI64, 1)
	n.u1 = uint64(fi)
	return n
}

// FrameIndex returns the frame object of OpcodeFrameIndex.
func (n *Node) FrameIndex() int {
	return int(n.u1)
}

// AsCallseqStart initializes this node as OpcodeCallseqStart.
func (n *Node) AsCallseqStart(ch Chain, bytes int64) *Node {
	n.init(OpcodeCallseqStart, typeInvalid, 0)
	n.chain = ch
	n.u1 = uint64(bytes)
	n.chainOut = true
	return n
}

// AsCallseqEnd initializes this node as OpcodeCallseqEnd. gl may be invalid.
func (n *Node) AsCallseqEnd(ch Chain, bytes int64, gl Glue) *Node {
	n.init(OpcodeCallseqEnd, typeInvalid, 0)
	n.chain = ch
	n.u1 = uint64(bytes)
	n.glue = gl
	n.chainOut, n.glueOut = true, true
	return n
}

// AsVAStart initializes this node as OpcodeVAStart.
func (n *Node) AsVAStart(ch Chain, ptr Value) *Node {
	n.init(OpcodeVAStart, typeInvalid, 0)
	n.chain = ch
	n.ops = append(n.ops[:0], ptr)
	n.chainOut = true
	return n
}

// AsVAArg initializes this node as OpcodeVAArg.
func (n *Node) AsVAArg(ch Chain, ptr Value, typ Type) *Node {
	n.init(OpcodeVAArg, typ, 1)
	n.chain = ch
	n.ops = append(n.ops[:0], ptr)
	n.chainOut = true
	return n
}

// AsDynamicStackAlloc initializes this node as OpcodeDynamicStackAlloc.
func (n *Node) AsDynamicStackAlloc(ch Chain, size Value, align int64) *Node {
	n.init(OpcodeDynamicStackAlloc, TypeI64, 1)
	n.chain = ch
	n.ops = append(n.ops[:0], size)
	n.u1 = uint64(align)
	n.chainOut = true
	return n
}

// AsFrameAddr initializes this node as OpcodeFrameAddr or OpcodeReturnAddr.
func (n *Node) AsFrameAddr(op Opcode, depth int) *Node {
	if op != OpcodeFrameAddr && op != OpcodeReturnAddr {
		panic(fmt.Sprintf("BUG: %s is not a frame address", op))
	}
	n.init(op, TypeI64, 1)
	n.u1 = uint64(depth)
	return n
}

// AsMergeValues initializes this node as OpcodeMergeValues.
func (n *Node) AsMergeValues(x Value, ch Chain) *Node {
	n.init(OpcodeMergeValues, x.Type(), 1)
	n.ops = append(n.ops[:0], x)
	n.chain = ch
	n.chainOut = true
	return n
}

// AsMergeValuePair initializes this node as OpcodeMergeValues forwarding two values.
func (n *Node) AsMergeValuePair(x, y Value, ch Chain) *Node {
	n.init(OpcodeMergeValues, x.Type(), 2)
	n.typ2 = y.Type()
	n.ops = append(n.ops[:0], x, y)
	n.chain = ch
	n.chainOut = true
	return n
}

// AsMulOverflow initializes this node as OpcodeUMulO or OpcodeSMulO.
func (n *Node) AsMulOverflow(op Opcode, x, y Value) *Node {
	if op != OpcodeUMulO && op != OpcodeSMulO {
		panic(fmt.Sprintf("BUG: %s is not an overflow multiplication", op))
	}
	n.init(op, x.Type(), 2)
	n.typ2 = TypeI32
	n.ops = append(n.ops[:0], x, y)
	return n
}

// AsIntrinsic initializes this node as one of OpcodeIntrinsicWOChain, OpcodeIntrinsicWChain
// or OpcodeIntrinsicVoid. ch is ignored by OpcodeIntrinsicWOChain and typ by OpcodeIntrinsicVoid.
func (n *Node) AsIntrinsic(op Opcode, ch Chain, id uint64, ops []Value, typ Type) *Node {
	switch op {
	case OpcodeIntrinsicWOChain:
		n.init(op, typ, 1)
	case OpcodeIntrinsicWChain:
		n.init(op, typ, 1)
		n.chain, n.chainOut = ch, true
	case OpcodeIntrinsicVoid:
		n.init(op, typeInvalid, 0)
		n.chain, n.chainOut = ch, true
	default:
		panic(fmt.Sprintf("BUG: %s is not an intrinsic", op))
	}
	n.u1 = id
	n.ops = append(n.ops[:0], ops...)
	return n
}

// IntrinsicID returns the intrinsic number of the intrinsic opcodes.
func (n *Node) IntrinsicID() uint64 {
	return n.u1
}

// AsVecInst initializes this node as OpcodeVecInst. The node is chained when ch is valid,
// and has no value result when typ is invalid.
func (n *Node) AsVecInst(ch Chain, inst uint64, ops []Value, typ Type) *Node {
	var nvals uint8
	if typ.Valid() {
		nvals = 1
	}
	n.init(OpcodeVecInst, typ, nvals)
	if ch.Valid() {
		n.chain, n.chainOut = ch, true
	}
	n.u1 = inst
	n.ops = append(n.ops[:0], ops...)
	return n
}

// AsBuildPair initializes this node as OpcodeBuildPair.
func (n *Node) AsBuildPair(lo, hi Value, typ Type) *Node {
	n.init(OpcodeBuildPair, typ, 1)
	n.ops = append(n.ops[:0], lo, hi)
	return n
}

// AsExtractHalf initializes this node as OpcodeExtractHalf.
func (n *Node) AsExtractHalf(x Value, high bool, typ Type) *Node {
	n.init(OpcodeExtractHalf, typ, 1)
	n.ops = append(n.ops[:0], x)
	if high {
		n.u1 = 1
	}
	return n
}

// SymbolVariant is the relocation applied to a symbol by OpcodeHi and OpcodeLo.
type SymbolVariant byte

const (
	SymbolVariantNone SymbolVariant = iota
	SymbolVariantHi32
	SymbolVariantLo32
	SymbolVariantGOTHi32
	SymbolVariantGOTLo32
	SymbolVariantGOTOffHi32
	SymbolVariantGOTOffLo32
	SymbolVariantPLTHi32
	SymbolVariantPLTLo32
	SymbolVariantTLSGDHi32
	SymbolVariantTLSGDLo32
)

// String implements fmt.Stringer.
func (s SymbolVariant) String() string {
	switch s {
	case SymbolVariantHi32:
		return "hi"
	case SymbolVariantLo32:
		return "lo"
	case SymbolVariantGOTHi32:
		return "got_hi"
	case SymbolVariantGOTLo32:
		return "got_lo"
	case SymbolVariantGOTOffHi32:
		return "gotoff_hi"
	case SymbolVariantGOTOffLo32:
		return "gotoff_lo"
	case SymbolVariantPLTHi32:
		return "plt_hi"
	case SymbolVariantPLTLo32:
		return "plt_lo"
	case SymbolVariantTLSGDHi32:
		return "tls_gd_hi"
	case SymbolVariantTLSGDLo32:
		return "tls_gd_lo"
	default:
		return "none"
	}
}

// AsHiLo initializes this node as OpcodeHi or OpcodeLo.
func (n *Node) AsHiLo(op Opcode, sym string, offset int64, variant SymbolVariant) *Node {
	if op != OpcodeHi && op != OpcodeLo {
		panic(fmt.Sprintf("BUG: %s is not Hi/Lo", op))
	}
	n.init(op, TypeI64, 1)
	n.sym = sym
	n.u1 = uint64(variant)
	n.u2 = uint64(offset)
	return n
}

// HiLoData returns the symbol, offset and relocation of OpcodeHi and OpcodeLo.
func (n *Node) HiLoData() (sym string, offset int64, variant SymbolVariant) {
	return n.sym, int64(n.u2), SymbolVariant(n.u1)
}

// AsGlobalBaseReg initializes this node as OpcodeGlobalBaseReg.
func (n *Node) AsGlobalBaseReg() *Node {
	n.init(OpcodeGlobalBaseReg, TypeI64, 1)
	return n
}

// AsGetFunPLT initializes this node as OpcodeGetFunPLT.
func (n *Node) AsGetFunPLT(sym string) *Node {
	n.init(OpcodeGetFunPLT, TypeI64, 1)
	n.sym = sym
	return n
}

// AsGetTLSAddr initializes this node as OpcodeGetTLSAddr.
func (n *Node) AsGetTLSAddr(ch Chain, sym string, preserved regs.RegSet, gl Glue) *Node {
	n.init(OpcodeGetTLSAddr, typeInvalid, 0)
	n.chain = ch
	n.sym = sym
	n.regMask = preserved
	n.glue = gl
	n.chainOut, n.glueOut = true, true
	return n
}

// AsGetStackTop initializes this node as OpcodeGetStackTop.
func (n *Node) AsGetStackTop(ch Chain) *Node {
	n.init(OpcodeGetStackTop, TypeI64, 1)
	n.chain = ch
	n.chainOut = true
	return n
}

// AsCall initializes this node as OpcodeCall. The first register holds the callee.
func (n *Node) AsCall(ch Chain, operands []regs.VReg, preserved regs.RegSet, gl Glue) *Node {
	n.init(OpcodeCall, typeInvalid, 0)
	n.chain = ch
	n.regs = append(n.regs[:0], operands...)
	n.regMask = preserved
	n.glue = gl
	n.chainOut, n.glueOut = true, true
	return n
}

// SetSRetSize records the struct-return size probed for the callee.
func (n *Node) SetSRetSize(size int64) {
	n.u1 = uint64(size)
}

// SRetSize returns the struct-return size recorded on OpcodeCall.
func (n *Node) SRetSize() int64 {
	return int64(n.u1)
}

// AsRetFlag initializes this node as OpcodeRetFlag.
func (n *Node) AsRetFlag(ch Chain, operands []regs.VReg, gl Glue) *Node {
	n.init(OpcodeRetFlag, typeInvalid, 0)
	n.chain = ch
	n.regs = append(n.regs[:0], operands...)
	n.glue = gl
	n.chainOut = true
	return n
}

// AsMemBarrier initializes this node as OpcodeMemBarrier.
func (n *Node) AsMemBarrier(ch Chain) *Node {
	n.init(OpcodeMemBarrier, typeInvalid, 0)
	n.chain = ch
	n.chainOut = true
	return n
}

// AsFence initializes this node as OpcodeFence with a target specific kind.
func (n *Node) AsFence(ch Chain, kind uint64) *Node {
	n.init(OpcodeFence, typeInvalid, 0)
	n.chain = ch
	n.u1 = kind
	n.chainOut = true
	return n
}

// AsVecBroadcast initializes this node as OpcodeVecBroadcast.
func (n *Node) AsVecBroadcast(x Value, typ Type) *Node {
	n.init(OpcodeVecBroadcast, typ, 1)
	n.ops = append(n.ops[:0], x)
	return n
}

// AsVecSeq initializes this node as OpcodeVecSeq.
func (n *Node) AsVecSeq(typ Type) *Node {
	n.init(OpcodeVecSeq, typ, 1)
	return n
}

// AsVecRotate initializes this node as OpcodeVecRotate.
func (n *Node) AsVecRotate(x Value, amount int) *Node {
	n.init(OpcodeVecRotate, x.Type(), 1)
	n.ops = append(n.ops[:0], x)
	n.u1 = uint64(amount)
	return n
}

// AsVecPopcount initializes this node as OpcodeVecPopcount.
func (n *Node) AsVecPopcount(m Value) *Node {
	n.init(OpcodeVecPopcount, TypeI64, 1)
	n.ops = append(n.ops[:0], m)
	return n
}

// AsVecGather initializes this node as OpcodeVecGather.
func (n *Node) AsVecGather(ch Chain, addrs, mask Value, typ Type) *Node {
	n.init(OpcodeVecGather, typ, 1)
	n.chain = ch
	n.ops = append(n.ops[:0], addrs, mask)
	n.chainOut = true
	return n
}

// AsVecScatter initializes this node as OpcodeVecScatter.
func (n *Node) AsVecScatter(ch Chain, x, addrs, mask Value) *Node {
	n.init(OpcodeVecScatter, typeInvalid, 0)
	n.chain = ch
	n.ops = append(n.ops[:0], x, addrs, mask)
	n.chainOut = true
	return n
}

// AsVecMerge initializes this node as OpcodeVecMerge.
func (n *Node) AsVecMerge(a, b, mask Value) *Node {
	n.init(OpcodeVecMerge, a.Type(), 1)
	n.ops = append(n.ops[:0], a, b, mask)
	return n
}

// AsVecMaskAll initializes this node as OpcodeVecMaskAll.
func (n *Node) AsVecMaskAll(typ Type) *Node {
	n.init(OpcodeVecMaskAll, typ, 1)
	return n
}

// AsVecNegateMask initializes this node as OpcodeVecNegateMask.
func (n *Node) AsVecNegateMask(m Value) *Node {
	n.init(OpcodeVecNegateMask, m.Type(), 1)
	n.ops = append(n.ops[:0], m)
	return n
}

// AsMaskInsertWord initializes this node as OpcodeMaskInsertWord.
func (n *Node) AsMaskInsertWord(m Value, word uint64, idx int) *Node {
	n.init(OpcodeMaskInsertWord, m.Type(), 1)
	n.ops = append(n.ops[:0], m)
	n.u1 = word
	n.u2 = uint64(idx)
	return n
}

// MaskInsertWordData returns the word and its index of OpcodeMaskInsertWord.
func (n *Node) MaskInsertWordData() (word uint64, idx int) {
	return n.u1, int(n.u2)
}

// AsSetVL initializes this node as OpcodeSetVL.
func (n *Node) AsSetVL(ch Chain, vl Value) *Node {
	n.init(OpcodeSetVL, typeInvalid, 0)
	n.chain = ch
	n.ops = append(n.ops[:0], vl)
	n.chainOut = true
	return n
}

// hasSideEffect returns true if the opcode must be ordered by a chain.
func (o Opcode) hasSideEffect() bool {
	switch o {
	case OpcodeCopyToReg, OpcodeCopyFromReg, OpcodeLoad, OpcodeStore, OpcodeMaskedGather,
		OpcodeMaskedScatter, OpcodeMaskedLoad, OpcodeAtomicFence, OpcodeCallseqStart, OpcodeCallseqEnd,
		OpcodeVAStart, OpcodeVAArg, OpcodeDynamicStackAlloc, OpcodeMergeValues, OpcodeGetTLSAddr,
		OpcodeGetStackTop, OpcodeCall, OpcodeRetFlag, OpcodeMemBarrier, OpcodeFence, OpcodeVecGather,
		OpcodeVecScatter, OpcodeSetVL, OpcodeIntrinsicWChain, OpcodeIntrinsicVoid:
		return true
	}
	return false
}
