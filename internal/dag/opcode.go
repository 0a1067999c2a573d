package dag

import "fmt"

// Opcode is the kind of a Node.
type Opcode uint32

const (
	OpcodeInvalid Opcode = iota

	// OpcodeEntryToken is the chain every function body starts from: `ch = EntryToken`.
	OpcodeEntryToken

	// OpcodeTokenFactor joins independent chains into one: `ch = TokenFactor ch0, ch1, ...`.
	OpcodeTokenFactor

	// OpcodeConstant is an integer constant (scalar or splatted vector): `v = Constant imm`.
	OpcodeConstant

	// OpcodeConstantFP is a floating point constant holding the raw bits: `v = ConstantFP bits`.
	OpcodeConstantFP

	// OpcodeUndef is a value whose bits are unspecified: `v = Undef`.
	OpcodeUndef

	// OpcodeCopyToReg writes x to a register: `ch, gl = CopyToReg ch, reg, x [, gl]`.
	OpcodeCopyToReg

	// OpcodeCopyFromReg reads a register: `v, ch, gl = CopyFromReg ch, reg [, gl]`.
	OpcodeCopyFromReg

	// OpcodeLoad loads a Type value from addr: `v, ch = Load ch, addr`.
	OpcodeLoad

	// OpcodeStore stores x to addr: `ch = Store ch, x, addr`.
	OpcodeStore

	// OpcodeAdd performs an integer addition: `v = Add x, y`.
	OpcodeAdd

	// OpcodeSub performs an integer subtraction: `v = Sub x, y`.
	OpcodeSub

	// OpcodeMul performs an integer multiplication: `v = Mul x, y`.
	OpcodeMul

	// OpcodeAnd performs a bitwise and: `v = And x, y`.
	OpcodeAnd

	// OpcodeOr performs a bitwise or: `v = Or x, y`.
	OpcodeOr

	// OpcodeXor performs a bitwise xor: `v = Xor x, y`.
	OpcodeXor

	// OpcodeShl shifts x left by y: `v = Shl x, y`.
	OpcodeShl

	// OpcodeSrl logically shifts x right by y: `v = Srl x, y`.
	OpcodeSrl

	// OpcodeSra arithmetically shifts x right by y: `v = Sra x, y`.
	OpcodeSra

	// OpcodeSignExtend sign-extends x to the node type: `v = SignExtend x`.
	OpcodeSignExtend

	// OpcodeZeroExtend zero-extends x to the node type: `v = ZeroExtend x`.
	OpcodeZeroExtend

	// OpcodeAnyExtend extends x to the node type leaving the upper bits unspecified: `v = AnyExtend x`.
	OpcodeAnyExtend

	// OpcodeTruncate truncates x to the node type: `v = Truncate x`.
	OpcodeTruncate

	// OpcodeAssertSext records that x is sign-extended from a narrower type: `v = AssertSext x, typ`.
	OpcodeAssertSext

	// OpcodeAssertZext records that x is zero-extended from a narrower type: `v = AssertZext x, typ`.
	OpcodeAssertZext

	// OpcodeBitcast reinterprets the bits of x as the node type: `v = Bitcast x`.
	OpcodeBitcast

	// OpcodeSetcc compares x and y lane-wise: `v = Setcc x, y, cond`.
	OpcodeSetcc

	// OpcodeSelect chooses x where c is true and y elsewhere, lane-wise for vectors: `v = Select c, x, y`.
	OpcodeSelect

	// OpcodeBuildVector builds a vector from one value per lane: `v = BuildVector x0, x1, ...`.
	OpcodeBuildVector

	// OpcodeInsertVectorElt replaces one lane: `v = InsertVectorElt vec, x, idx`.
	OpcodeInsertVectorElt

	// OpcodeExtractVectorElt reads one lane: `v = ExtractVectorElt vec, idx`.
	OpcodeExtractVectorElt

	// OpcodeVectorShuffle permutes the lanes of two vectors: `v = VectorShuffle a, b, mask`.
	// Mask entries in [0, N) read a, entries in [N, 2N) read b and negative entries are don't care.
	OpcodeVectorShuffle

	// OpcodeMaskedGather loads base+index*scale in active lanes: `v, ch = MaskedGather ch, passthru, mask, base, index, scale`.
	OpcodeMaskedGather

	// OpcodeMaskedScatter stores x to base+index*scale in active lanes: `ch = MaskedScatter ch, x, mask, base, index, scale`.
	OpcodeMaskedScatter

	// OpcodeMaskedLoad loads a vector from addr in active lanes: `v, ch = MaskedLoad ch, addr, mask, passthru`.
	OpcodeMaskedLoad

	// OpcodeVecReduceOr ors all lanes together: `v = VecReduceOr x`.
	OpcodeVecReduceOr

	// OpcodeVecReduceAdd sums all lanes: `v = VecReduceAdd x`.
	OpcodeVecReduceAdd

	// OpcodeAtomicFence is a memory fence: `ch = AtomicFence ch, ordering, scope`.
	OpcodeAtomicFence

	// OpcodeGlobalAddress is the address of a global symbol: `v = GlobalAddress @sym+offset`.
	OpcodeGlobalAddress

	// OpcodeExternalSymbol is the address of an external symbol: `v = ExternalSymbol @sym`.
	OpcodeExternalSymbol

	// OpcodeConstantPool is the address of a constant pool entry: `v = ConstantPool @sym`.
	OpcodeConstantPool

	// OpcodeBlockAddress is the address of a basic block: `v = BlockAddress @sym`.
	OpcodeBlockAddress

	// OpcodeGlobalTLSAddress is the address of a thread-local symbol: `v = GlobalTLSAddress @sym`.
	OpcodeGlobalTLSAddress

	// OpcodeFrameIndex is the address of a frame object: `v = FrameIndex fi`.
	OpcodeFrameIndex

	// OpcodeCallseqStart opens a call sequence reserving bytes of outgoing area: `ch = CallseqStart ch, bytes`.
	OpcodeCallseqStart

	// OpcodeCallseqEnd closes a call sequence: `ch, gl = CallseqEnd ch, bytes [, gl]`.
	OpcodeCallseqEnd

	// OpcodeVAStart initializes the va_list at ptr: `ch = VAStart ch, ptr`.
	OpcodeVAStart

	// OpcodeVAArg reads the next variadic argument through the va_list at ptr: `v, ch = VAArg ch, ptr`.
	OpcodeVAArg

	// OpcodeDynamicStackAlloc allocates size bytes on the stack: `v, ch = DynamicStackAlloc ch, size, align`.
	OpcodeDynamicStackAlloc

	// OpcodeFrameAddr is the frame address depth frames up: `v = FrameAddr depth`.
	OpcodeFrameAddr

	// OpcodeReturnAddr is the return address depth frames up: `v = ReturnAddr depth`.
	OpcodeReturnAddr

	// OpcodeMergeValues forwards a value together with a chain: `v, ch = MergeValues x, ch`.
	OpcodeMergeValues

	// OpcodeUMulO multiplies unsigned integers and reports the overflow as an i32: `v, o = UMulO x, y`.
	OpcodeUMulO

	// OpcodeSMulO multiplies signed integers and reports the overflow as an i32: `v, o = SMulO x, y`.
	OpcodeSMulO

	// OpcodeIntrinsicWOChain calls a pure intrinsic: `v = IntrinsicWOChain id, ops...`.
	OpcodeIntrinsicWOChain

	// OpcodeIntrinsicWChain calls an intrinsic with side effects: `v, ch = IntrinsicWChain ch, id, ops...`.
	OpcodeIntrinsicWChain

	// OpcodeIntrinsicVoid calls an intrinsic without result: `ch = IntrinsicVoid ch, id, ops...`.
	OpcodeIntrinsicVoid

	// OpcodeBuildPair builds a register pair value from its halves: `v = BuildPair lo, hi`.
	OpcodeBuildPair

	// OpcodeExtractHalf reads the low (0) or high (1) half of a pair: `v = ExtractHalf x, idx`.
	OpcodeExtractHalf

	// Target specific opcodes follow.

	// OpcodeHi is the upper 32 bits of a symbol address under a relocation kind: `v = Hi @sym, reloc`.
	OpcodeHi

	// OpcodeLo is the lower 32 bits of a symbol address under a relocation kind: `v = Lo @sym, reloc`.
	OpcodeLo

	// OpcodeGlobalBaseReg is the global offset table base register: `v = GlobalBaseReg`.
	OpcodeGlobalBaseReg

	// OpcodeGetFunPLT is the PLT entry address of a function: `v = GetFunPLT @sym`.
	OpcodeGetFunPLT

	// OpcodeGetTLSAddr calls the TLS resolver for a symbol: `ch, gl = GetTLSAddr ch, @sym, regmask [, gl]`.
	OpcodeGetTLSAddr

	// OpcodeGetStackTop reads the lowest usable stack address: `v, ch = GetStackTop ch`.
	OpcodeGetStackTop

	// OpcodeCall performs a call through the callee register: `ch, gl = Call ch, regs..., regmask [, gl]`.
	OpcodeCall

	// OpcodeRetFlag returns from the function: `ch = RetFlag ch, regs... [, gl]`.
	OpcodeRetFlag

	// OpcodeMemBarrier is a compiler-only barrier: `ch = MemBarrier ch`.
	OpcodeMemBarrier

	// OpcodeFence is a hardware fence: `ch = Fence ch, kind`.
	OpcodeFence

	// OpcodeVecBroadcast copies a scalar into every lane: `v = VecBroadcast x`.
	OpcodeVecBroadcast

	// OpcodeVecSeq is the lane index sequence 0, 1, ..., N-1: `v = VecSeq`.
	OpcodeVecSeq

	// OpcodeVecRotate rotates the lanes of x so that result[i] = x[(i-amount) mod N]: `v = VecRotate x, amount`.
	OpcodeVecRotate

	// OpcodeVecPopcount counts the true lanes of a mask: `v = VecPopcount m`.
	OpcodeVecPopcount

	// OpcodeVecGather loads one element per active lane from a vector of addresses: `v, ch = VecGather ch, addrs, mask`.
	OpcodeVecGather

	// OpcodeVecScatter stores one element per active lane to a vector of addresses: `ch = VecScatter ch, x, addrs, mask`.
	OpcodeVecScatter

	// OpcodeVecMerge takes lanes of b where mask is set and lanes of a elsewhere: `v = VecMerge a, b, mask`.
	OpcodeVecMerge

	// OpcodeVecMaskAll is the mask with every lane set: `v = VecMaskAll`.
	OpcodeVecMaskAll

	// OpcodeVecNegateMask flips every lane of a mask: `v = VecNegateMask m`.
	OpcodeVecNegateMask

	// OpcodeMaskInsertWord replaces the 64-lane word idx of a mask: `v = MaskInsertWord m, word, idx`.
	// Lane 64*idx+j is bit 63-j of the word.
	OpcodeMaskInsertWord

	// OpcodeSetVL sets the vector length register: `ch = SetVL ch, n`.
	OpcodeSetVL

	// OpcodeVecInst is a vector instruction whose last operand is the vector length:
	// `v [, ch] = VecInst [ch,] inst, ops..., vl`.
	OpcodeVecInst

	opcodeEnd
)

// IsTarget returns true if the opcode is only produced by the lowering.
func (o Opcode) IsTarget() bool {
	return o >= OpcodeHi && o < opcodeEnd
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	switch o {
	case OpcodeInvalid:
		return "invalid"
	case OpcodeEntryToken:
		return "EntryToken"
	case OpcodeTokenFactor:
		return "TokenFactor"
	case OpcodeConstant:
		return "Constant"
	case OpcodeConstantFP:
		return "ConstantFP"
	case OpcodeUndef:
		return "Undef"
	case OpcodeCopyToReg:
		return "CopyToReg"
	case OpcodeCopyFromReg:
		return "CopyFromReg"
	case OpcodeLoad:
		return "Load"
	case OpcodeStore:
		return "Store"
	case OpcodeAdd:
		return "Add"
	case OpcodeSub:
		return "Sub"
	case OpcodeMul:
		return "Mul"
	case OpcodeAnd:
		return "And"
	case OpcodeOr:
		return "Or"
	case OpcodeXor:
		return "Xor"
	case OpcodeShl:
		return "Shl"
	case OpcodeSrl:
		return "Srl"
	case OpcodeSra:
		return "Sra"
	case OpcodeSignExtend:
		return "SignExtend"
	case OpcodeZeroExtend:
		return "ZeroExtend"
	case OpcodeAnyExtend:
		return "AnyExtend"
	case OpcodeTruncate:
		return "Truncate"
	case OpcodeAssertSext:
		return "AssertSext"
	case OpcodeAssertZext:
		return "AssertZext"
	case OpcodeBitcast:
		return "Bitcast"
	case OpcodeSetcc:
		return "Setcc"
	case OpcodeSelect:
		return "Select"
	case OpcodeBuildVector:
		return "BuildVector"
	case OpcodeInsertVectorElt:
		return "InsertVectorElt"
	case OpcodeExtractVectorElt:
		return "ExtractVectorElt"
	case OpcodeVectorShuffle:
		return "VectorShuffle"
	case OpcodeMaskedGather:
		return "MaskedGather"
	case OpcodeMaskedScatter:
		return "MaskedScatter"
	case OpcodeMaskedLoad:
		return "MaskedLoad"
	case OpcodeVecReduceOr:
		return "VecReduceOr"
	case OpcodeVecReduceAdd:
		return "VecReduceAdd"
	case OpcodeAtomicFence:
		return "AtomicFence"
	case OpcodeGlobalAddress:
		return "GlobalAddress"
	case OpcodeExternalSymbol:
		return "ExternalSymbol"
	case OpcodeConstantPool:
		return "ConstantPool"
	case OpcodeBlockAddress:
		return "BlockAddress"
	case OpcodeGlobalTLSAddress:
		return "GlobalTLSAddress"
	case OpcodeFrameIndex:
		return "FrameIndex"
	case OpcodeCallseqStart:
		return "CallseqStart"
	case OpcodeCallseqEnd:
		return "CallseqEnd"
	case OpcodeVAStart:
		return "VAStart"
	case OpcodeVAArg:
		return "VAArg"
	case OpcodeDynamicStackAlloc:
		return "DynamicStackAlloc"
	case OpcodeFrameAddr:
		return "FrameAddr"
	case OpcodeReturnAddr:
		return "ReturnAddr"
	case OpcodeMergeValues:
		return "MergeValues"
	case OpcodeUMulO:
		return "UMulO"
	case OpcodeSMulO:
		return "SMulO"
	case OpcodeIntrinsicWOChain:
		return "IntrinsicWOChain"
	case OpcodeIntrinsicWChain:
		return "IntrinsicWChain"
	case OpcodeIntrinsicVoid:
		return "IntrinsicVoid"
	case OpcodeBuildPair:
		return "BuildPair"
	case OpcodeExtractHalf:
		return "ExtractHalf"
	case OpcodeHi:
		return "Hi"
	case OpcodeLo:
		return "Lo"
	case OpcodeGlobalBaseReg:
		return "GlobalBaseReg"
	case OpcodeGetFunPLT:
		return "GetFunPLT"
	case OpcodeGetTLSAddr:
		return "GetTLSAddr"
	case OpcodeGetStackTop:
		return "GetStackTop"
	case OpcodeCall:
		return "Call"
	case OpcodeRetFlag:
		return "RetFlag"
	case OpcodeMemBarrier:
		return "MemBarrier"
	case OpcodeFence:
		return "Fence"
	case OpcodeVecBroadcast:
		return "VecBroadcast"
	case OpcodeVecSeq:
		return "VecSeq"
	case OpcodeVecRotate:
		return "VecRotate"
	case OpcodeVecPopcount:
		return "VecPopcount"
	case OpcodeVecGather:
		return "VecGather"
	case OpcodeVecScatter:
		return "VecScatter"
	case OpcodeVecMerge:
		return "VecMerge"
	case OpcodeVecMaskAll:
		return "VecMaskAll"
	case OpcodeVecNegateMask:
		return "VecNegateMask"
	case OpcodeMaskInsertWord:
		return "MaskInsertWord"
	case OpcodeSetVL:
		return "SetVL"
	case OpcodeVecInst:
		return "VecInst"
	}
	panic("TODO: " + fmt.Sprintf("opcode %d", uint32(o)))
}

// CondCode is the comparison performed by OpcodeSetcc.
type CondCode byte

const (
	CondInvalid CondCode = iota
	CondEQ
	CondNE
	CondSLT
	CondSLE
	CondSGT
	CondSGE
	CondULT
	CondULE
	CondUGT
	CondUGE
)

// String implements fmt.Stringer.
func (c CondCode) String() string {
	switch c {
	case CondEQ:
		return "eq"
	case CondNE:
		return "ne"
	case CondSLT:
		return "slt"
	case CondSLE:
		return "sle"
	case CondSGT:
		return "sgt"
	case CondSGE:
		return "sge"
	case CondULT:
		return "ult"
	case CondULE:
		return "ule"
	case CondUGT:
		return "ugt"
	case CondUGE:
		return "uge"
	default:
		return "invalid"
	}
}
