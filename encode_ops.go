// Completion: 100% - Per-opcode byte emission, one switch case per ISAOp kind
package main

import "fmt"

// emitPrologue emits `push rbp; mov rbp, rsp; sub rsp, frame_size` and the
// callee-saved register pushes the allocator determined were used (spec
// §4.4/§4.5).
func (enc *Encoder) emitPrologue(cf *CompiledFunc) {
	enc.u8(0x55 | 0) // push rbp (no REX needed, encoding 5 fits in one byte)
	enc.bytes(0x48, 0x89, 0xE5) // mov rbp, rsp
	if cf.FrameSize > 0 {
		enc.encodeArithImm(OpSub, RegOp(RSP, Width64), int32(cf.FrameSize))
	}
	for _, r := range cf.CalleeSaved {
		enc.pushReg(r)
	}
}

func (enc *Encoder) emitEpilogue(cf *CompiledFunc) {
	for i := len(cf.CalleeSaved) - 1; i >= 0; i-- {
		enc.popReg(cf.CalleeSaved[i])
	}
	enc.bytes(0x48, 0x89, 0xEC) // mov rsp, rbp
	enc.u8(0x5D)                // pop rbp
	enc.u8(0xC3)                // ret
}

func (enc *Encoder) pushReg(r Reg) {
	if r.NeedsRex {
		enc.u8(rexBase | rexB)
	}
	enc.u8(0x50 | (r.Encoding & 7))
}

func (enc *Encoder) popReg(r Reg) {
	if r.NeedsRex {
		enc.u8(rexBase | rexB)
	}
	enc.u8(0x58 | (r.Encoding & 7))
}

func (enc *Encoder) encodeOne(op *ISAOp) error {
	switch op.Op {
	case OpLabel:
		enc.labelAt[op.Dst.Label] = len(enc.buf)
		return nil
	case OpNop:
		enc.u8(0x90)
		return nil
	case OpMov:
		return enc.encodeMov(op)
	case OpMovzx:
		return enc.encodeMovx(op, false)
	case OpMovsx:
		return enc.encodeMovx(op, true)
	case OpLea:
		return enc.encodeLea(op)
	case OpPush:
		enc.pushReg(op.Dst.Reg)
		return nil
	case OpPop:
		enc.popReg(op.Dst.Reg)
		return nil
	case OpAdd:
		return enc.encodeArith(0x00, 0, op)
	case OpOr:
		return enc.encodeArith(0x08, 1, op)
	case OpAnd:
		return enc.encodeArith(0x20, 4, op)
	case OpSub:
		return enc.encodeArith(0x28, 5, op)
	case OpXor:
		return enc.encodeArith(0x30, 6, op)
	case OpCmp:
		return enc.encodeArith(0x38, 7, op)
	case OpTest:
		return enc.encodeTest(op)
	case OpNot:
		return enc.encodeUnaryGroup3(op, 2)
	case OpNeg:
		return enc.encodeUnaryGroup3(op, 3)
	case OpMul:
		return enc.encodeUnaryGroup3(op, 4)
	case OpIMul:
		return enc.encodeIMul(op)
	case OpDiv:
		return enc.encodeUnaryGroup3(op, 6)
	case OpIDiv:
		return enc.encodeUnaryGroup3(op, 7)
	case OpInc:
		return enc.encodeIncDec(op, 0)
	case OpDec:
		return enc.encodeIncDec(op, 1)
	case OpShl:
		return enc.encodeShiftImm(op, 4)
	case OpShr:
		return enc.encodeShiftImm(op, 5)
	case OpSar:
		return enc.encodeShiftImm(op, 7)
	case OpShlCl:
		return enc.encodeShiftCl(op, 4)
	case OpShrCl:
		return enc.encodeShiftCl(op, 5)
	case OpSarCl:
		return enc.encodeShiftCl(op, 7)
	case OpJmp:
		return enc.encodeJump(op, 0xE9, -1)
	case OpJcc:
		return enc.encodeJump(op, 0x80, condCC(op.Cond))
	case OpCall:
		return enc.encodeCall(op)
	case OpRet:
		enc.u8(0xC3)
		return nil
	case OpLeave:
		enc.u8(0xC9)
		return nil
	case OpSyscall:
		enc.bytes(0x0F, 0x05)
		return nil
	case OpInt:
		enc.bytes(0xCD, byte(op.Dst.Imm))
		return nil
	case OpMovsd:
		return enc.encodeSSE(0x10, op)
	case OpAddsd:
		return enc.encodeSSEArith(0x58, op)
	case OpSubsd:
		return enc.encodeSSEArith(0x5C, op)
	case OpMulsd:
		return enc.encodeSSEArith(0x59, op)
	case OpDivsd:
		return enc.encodeSSEArith(0x5E, op)
	case OpCvtSi2Sd:
		return enc.encodeCvtSi2Sd(op)
	case OpCvtSd2Si:
		return enc.encodeCvtSd2Si(op)
	case OpRawBytes:
		enc.bytes(op.Raw...)
		return nil
	default:
		return &EncodeError{Op: op.Op, Reason: "unhandled ISAOp kind"}
	}
}

// ---- mov family ----

func (enc *Encoder) encodeMov(op *ISAOp) error {
	dst, src := op.Dst, op.Src
	w := dst.Width
	if src.Kind == OperandImm {
		if dst.Kind == OperandReg {
			if w == Width64 {
				if dst.Reg.NeedsRex {
					enc.u8(rexBase | rexW | rexB)
				} else {
					enc.u8(rexBase | rexW)
				}
				enc.u8(0xB8 | (dst.Reg.Encoding & 7))
				enc.imm64(src.Imm)
				return nil
			}
			enc.maybeRex(w == Width64, Reg{}, Reg{}, dst.Reg)
			opc := byte(0xB8)
			if w == Width8 {
				opc = 0xB0 // B0 base for 8-bit mov-imm
			}
			enc.u8(opc | (dst.Reg.Encoding & 7))
			enc.immFor(w, src.Imm)
			return nil
		}
		// mov r/m, imm32 (sign-extended to 64 when w==8)
		enc.maybeRex(w == Width64, Reg{}, dst.Index, dst.Base)
		if w == Width8 {
			enc.u8(0xC6)
		} else {
			enc.u8(0xC7)
		}
		if err := enc.encodeRM(0, dst); err != nil {
			return err
		}
		enc.immFor(clampImmWidth(w), src.Imm)
		return nil
	}
	if dst.Kind == OperandReg && src.Kind == OperandRipRel {
		return &EncodeError{Op: OpMov, Reason: "use Lea to load an address, Mov only moves values"}
	}
	if dst.Kind == OperandReg {
		// mov reg, r/m
		enc.maybeRex(w == Width64, dst.Reg, src.Index, src.Base)
		opc := byte(0x8B)
		if w == Width8 {
			opc = 0x8A
		}
		enc.u8(opc)
		return enc.encodeRM(dst.Reg.Encoding, src)
	}
	// mov r/m, reg
	enc.maybeRex(w == Width64, src.Reg, dst.Index, dst.Base)
	opc := byte(0x89)
	if w == Width8 {
		opc = 0x88
	}
	enc.u8(opc)
	return enc.encodeRM(src.Reg.Encoding, dst)
}

// maybeRex emits a REX prefix whenever one of these conditions requires
// it: 64-bit operation, an R8-R15/extended index or base, or (reserved
// for callers that need it) an 8-bit register requiring uniform byte
// access (spl/bpl/sil/dil). Word-size register encodings need no 0x66
// override handling here since Width16 ops are rare in this surface.
func (enc *Encoder) maybeRex(w64 bool, reg, index, base Reg) {
	if w64 || reg.NeedsRex || index.NeedsRex || base.NeedsRex {
		enc.u8(rexPrefix(w64, reg, index, base))
	}
}

func (enc *Encoder) immFor(w Width, v int64) {
	switch w {
	case Width8:
		enc.u8(byte(v))
	case Width16:
		enc.buf = append(enc.buf, byte(v), byte(v>>8))
	case Width32:
		enc.imm32(int32(v))
	case Width64:
		enc.imm64(v)
	}
}

func (enc *Encoder) encodeMovx(op *ISAOp, signed bool) error {
	dst, src := op.Dst, op.Src
	enc.maybeRex(dst.Width == Width64, dst.Reg, src.Index, src.Base)
	enc.u8(0x0F)
	base := byte(0xB6)
	if signed {
		base = 0xBE
	}
	if src.Width == Width16 {
		base++
	}
	enc.u8(base)
	return enc.encodeRM(dst.Reg.Encoding, src)
}

func (enc *Encoder) encodeLea(op *ISAOp) error {
	dst, src := op.Dst, op.Src
	enc.maybeRex(true, dst.Reg, src.Index, src.Base)
	enc.u8(0x8D)
	return enc.encodeRM(dst.Reg.Encoding, src)
}

// ---- arithmetic group (add/or/and/sub/xor/cmp share an opcode layout) ----

func (enc *Encoder) encodeArith(baseOpc byte, extField byte, op *ISAOp) error {
	dst, src := op.Dst, op.Src
	w := dst.Width
	if src.Kind == OperandImm {
		return enc.encodeArithImmExt(extField, dst, src)
	}
	if dst.Kind == OperandReg {
		enc.maybeRex(w == Width64, dst.Reg, src.Index, src.Base)
		opc := baseOpc + 3
		if w == Width8 {
			opc = baseOpc + 2
		}
		enc.u8(opc)
		return enc.encodeRM(dst.Reg.Encoding, src)
	}
	enc.maybeRex(w == Width64, src.Reg, dst.Index, dst.Base)
	opc := baseOpc + 1
	if w == Width8 {
		opc = baseOpc
	}
	enc.u8(opc)
	return enc.encodeRM(src.Reg.Encoding, dst)
}

func (enc *Encoder) encodeArithImmExt(extField byte, dst, src Operand) error {
	w := dst.Width
	enc.maybeRex(w == Width64, Reg{}, dst.Index, dst.Base)
	if w == Width8 {
		enc.u8(0x80)
	} else {
		enc.u8(0x81)
	}
	if err := enc.encodeRM(extField, dst); err != nil {
		return err
	}
	enc.immFor(clampImmWidth(w), src.Imm)
	return nil
}

// encodeArithImm is the prologue/epilogue helper's direct entry point for
// `sub rsp, frame_size` without routing through an ISAOp.
func (enc *Encoder) encodeArithImm(kind OpKind, dst Operand, imm int32) {
	ext := byte(5) // sub
	if kind == OpAdd {
		ext = 0
	}
	enc.maybeRex(true, Reg{}, Reg{}, dst.Reg)
	enc.u8(0x81)
	enc.u8(modrm(3, ext, dst.Reg.Encoding))
	enc.imm32(imm)
}

func (enc *Encoder) encodeTest(op *ISAOp) error {
	dst, src := op.Dst, op.Src
	w := dst.Width
	if src.Kind == OperandImm {
		enc.maybeRex(w == Width64, Reg{}, dst.Index, dst.Base)
		if w == Width8 {
			enc.u8(0xF6)
		} else {
			enc.u8(0xF7)
		}
		if err := enc.encodeRM(0, dst); err != nil {
			return err
		}
		enc.immFor(clampImmWidth(w), src.Imm)
		return nil
	}
	enc.maybeRex(w == Width64, src.Reg, dst.Index, dst.Base)
	if w == Width8 {
		enc.u8(0x84)
	} else {
		enc.u8(0x85)
	}
	return enc.encodeRM(src.Reg.Encoding, dst)
}

func (enc *Encoder) encodeUnaryGroup3(op *ISAOp, extField byte) error {
	dst := op.Dst
	w := dst.Width
	enc.maybeRex(w == Width64, Reg{}, dst.Index, dst.Base)
	if w == Width8 {
		enc.u8(0xF6)
	} else {
		enc.u8(0xF7)
	}
	return enc.encodeRM(extField, dst)
}

func (enc *Encoder) encodeIMul(op *ISAOp) error {
	dst, src := op.Dst, op.Src
	w := dst.Width
	if dst.Kind == OperandReg {
		enc.maybeRex(w == Width64, dst.Reg, src.Index, src.Base)
		enc.bytes(0x0F, 0xAF)
		return enc.encodeRM(dst.Reg.Encoding, src)
	}
	return enc.encodeUnaryGroup3(&ISAOp{Dst: dst}, 5)
}

func (enc *Encoder) encodeIncDec(op *ISAOp, extField byte) error {
	dst := op.Dst
	w := dst.Width
	enc.maybeRex(w == Width64, Reg{}, dst.Index, dst.Base)
	if w == Width8 {
		enc.u8(0xFE)
	} else {
		enc.u8(0xFF)
	}
	return enc.encodeRM(extField, dst)
}

func (enc *Encoder) encodeShiftImm(op *ISAOp, extField byte) error {
	dst, src := op.Dst, op.Src
	w := dst.Width
	enc.maybeRex(w == Width64, Reg{}, dst.Index, dst.Base)
	if src.Imm == 1 {
		if w == Width8 {
			enc.u8(0xD0)
		} else {
			enc.u8(0xD1)
		}
		return enc.encodeRM(extField, dst)
	}
	if w == Width8 {
		enc.u8(0xC0)
	} else {
		enc.u8(0xC1)
	}
	if err := enc.encodeRM(extField, dst); err != nil {
		return err
	}
	enc.u8(byte(src.Imm))
	return nil
}

func (enc *Encoder) encodeShiftCl(op *ISAOp, extField byte) error {
	dst := op.Dst
	w := dst.Width
	enc.maybeRex(w == Width64, Reg{}, dst.Index, dst.Base)
	if w == Width8 {
		enc.u8(0xD2)
	} else {
		enc.u8(0xD3)
	}
	return enc.encodeRM(extField, dst)
}

// ---- control flow ----

func condCC(c Cond) int {
	switch c {
	case CondEQ:
		return 0x4
	case CondNE:
		return 0x5
	case CondLT:
		return 0xC
	case CondGE:
		return 0xD
	case CondLE:
		return 0xE
	case CondGT:
		return 0xF
	case CondLTU:
		return 0x2
	case CondGEU:
		return 0x3
	case CondLEU:
		return 0x6
	case CondGTU:
		return 0x7
	default:
		return 0x4
	}
}

// encodeJump emits the long (rel32) form of Jmp/Jcc and records a fixup.
// Every jump is encoded as rel32; the "short" marker the optimizer's
// branch pass sets in ISAOp.Text is not consulted here.
func (enc *Encoder) encodeJump(op *ISAOp, jmpOpc byte, ccBase int) error {
	if ccBase < 0 {
		enc.u8(jmpOpc)
	} else {
		enc.bytes(0x0F, byte(0x80+ccBase))
	}
	off := len(enc.buf)
	enc.imm32(0)
	enc.fixups = append(enc.fixups, fixup{streamOffset: off, width: 4, targetLabel: op.Dst.Label, nextInsnOff: len(enc.buf)})
	return nil
}

func (enc *Encoder) encodeCall(op *ISAOp) error {
	enc.u8(0xE8)
	off := len(enc.buf)
	enc.imm32(0)
	enc.callFixes = append(enc.callFixes, fixup{streamOffset: off, targetName: op.Dst.Text, nextInsnOff: len(enc.buf)})
	return nil
}

// ---- SSE scalar-double family ----

func (enc *Encoder) encodeSSE(opc byte, op *ISAOp) error {
	dst, src := op.Dst, op.Src
	enc.u8(0xF2)
	if dst.Reg.NeedsRex || src.Base.NeedsRex || src.Index.NeedsRex {
		enc.u8(rexPrefix(false, dst.Reg, src.Index, src.Base))
	}
	enc.bytes(0x0F, opc)
	if src.Kind == OperandReg {
		return enc.encodeRM(dst.Reg.Encoding, src)
	}
	return enc.encodeRM(dst.Reg.Encoding, src)
}

func (enc *Encoder) encodeSSEArith(opc byte, op *ISAOp) error {
	return enc.encodeSSE(opc, op)
}

func (enc *Encoder) encodeCvtSi2Sd(op *ISAOp) error {
	dst, src := op.Dst, op.Src
	enc.u8(0xF2)
	w64 := src.Width == Width64
	if w64 || dst.Reg.NeedsRex || src.Reg.NeedsRex {
		enc.u8(rexPrefix(w64, dst.Reg, Reg{}, src.Reg))
	}
	enc.bytes(0x0F, 0x2A)
	return enc.encodeRM(dst.Reg.Encoding, src)
}

func (enc *Encoder) encodeCvtSd2Si(op *ISAOp) error {
	dst, src := op.Dst, op.Src
	enc.u8(0xF2)
	w64 := dst.Width == Width64
	if w64 || dst.Reg.NeedsRex || src.Reg.NeedsRex {
		enc.u8(rexPrefix(w64, dst.Reg, Reg{}, src.Reg))
	}
	enc.bytes(0x0F, 0x2D)
	return enc.encodeRM(dst.Reg.Encoding, src)
}

var _ = fmt.Sprintf // keep fmt import if future error paths need it
