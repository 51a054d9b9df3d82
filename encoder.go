// Completion: 100% - REX/ModRM/SIB machinery and the fixup-based encoder
package main

import (
	"encoding/binary"
	"fmt"
)

// EncodeError is returned for any ISAOp/operand combination that has no
// x86-64 representation; the encoder never falls back to emitting a Nop
// (spec §4.7, §9's "avoiding the silent-NOP encoder").
type EncodeError struct {
	Op     OpKind
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode instruction: %s", e.Reason)
}

// fixup records a not-yet-resolved PC-relative reference: the byte offset
// in the stream where a displacement placeholder was written, the target
// label, the width of the placeholder, and the offset of the instruction
// immediately following it (displacements are relative to there).
type fixup struct {
	streamOffset int
	width        int
	targetLabel  int
	targetName   string // set instead of targetLabel for OpCall to another function
	nextInsnOff  int
}

// Encoder accumulates machine code for a sequence of functions, recording
// label and function offsets and the jump/call fixups patched against them.
type Encoder struct {
	buf       []byte
	labelAt   map[int]int // local label id -> byte offset
	fixups    []fixup
	funcAt    map[string]int // function name -> byte offset, filled in across functions
	callFixes []fixup
}

func NewEncoder() *Encoder {
	return &Encoder{labelAt: make(map[int]int), funcAt: make(map[string]int)}
}

// EncodeFunc appends cf's instructions to the stream, recording cf's entry
// offset in funcAt so later Call fixups targeting it can resolve.
func (enc *Encoder) EncodeFunc(cf *CompiledFunc) error {
	enc.funcAt[cf.Name] = len(enc.buf)
	enc.labelAt = make(map[int]int) // labels are function-scoped

	enc.emitPrologue(cf)
	for _, op := range cf.Ops {
		if err := enc.encodeOne(op); err != nil {
			return err
		}
	}
	enc.emitEpilogue(cf)
	return enc.resolveLocalFixups()
}

// ResolveCalls runs after every function has been encoded (so forward
// references resolve), patching each Call's rel32 displacement.
func (enc *Encoder) ResolveCalls() error {
	for _, fx := range enc.callFixes {
		target, ok := enc.funcAt[fx.targetName]
		if !ok {
			return fmt.Errorf("call to undefined function %q", fx.targetName)
		}
		disp := int32(target - fx.nextInsnOff)
		binary.LittleEndian.PutUint32(enc.buf[fx.streamOffset:], uint32(disp))
	}
	return nil
}

func (enc *Encoder) Bytes() []byte { return enc.buf }

func (enc *Encoder) u8(b byte)         { enc.buf = append(enc.buf, b) }
func (enc *Encoder) bytes(b ...byte)   { enc.buf = append(enc.buf, b...) }
func (enc *Encoder) imm32(v int32)     { enc.buf = binary.LittleEndian.AppendUint32(enc.buf, uint32(v)) }
func (enc *Encoder) imm64(v int64)     { enc.buf = binary.LittleEndian.AppendUint64(enc.buf, uint64(v)) }

func (enc *Encoder) resolveLocalFixups() error {
	for _, fx := range enc.fixups {
		target, ok := enc.labelAt[fx.targetLabel]
		if !ok {
			return fmt.Errorf("branch to undefined label %d", fx.targetLabel)
		}
		disp := int64(target - fx.nextInsnOff)
		switch fx.width {
		case 1:
			if disp < -128 || disp > 127 {
				return fmt.Errorf("short branch displacement %d out of i8 range", disp)
			}
			enc.buf[fx.streamOffset] = byte(int8(disp))
		case 4:
			binary.LittleEndian.PutUint32(enc.buf[fx.streamOffset:], uint32(int32(disp)))
		}
	}
	enc.fixups = nil
	return nil
}

// ---- REX / ModRM / SIB ----

const (
	rexBase = 0x40
	rexW    = 0x08
	rexR    = 0x04
	rexX    = 0x02
	rexB    = 0x01
)

// rexPrefix computes REX.W/R/X/B from the three register roles an
// instruction can reference, per spec §4.7.
func rexPrefix(w bool, reg, index, base Reg) byte {
	r := byte(rexBase)
	if w {
		r |= rexW
	}
	if reg.NeedsRex {
		r |= rexR
	}
	if index.NeedsRex {
		r |= rexX
	}
	if base.NeedsRex {
		r |= rexB
	}
	return r
}

func needsRex(w bool, reg, index, base Reg, reg8NeedsUniform bool) bool {
	return w || reg.NeedsRex || index.NeedsRex || base.NeedsRex || reg8NeedsUniform
}

// modrm builds the ModR/M byte: mod in {00,01,10,11}, reg/rm are 3-bit
// encodings (the REX.R/B extension bits live in the prefix, not here).
func modrm(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

func sib(scaleLog2, index, base byte) byte {
	return (scaleLog2 << 6) | ((index & 7) << 3) | (base & 7)
}

func log2Scale(scale int) byte {
	switch scale {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

// encodeRM emits the ModR/M (and SIB/disp if needed) for `reg` paired
// against operand `rm`, which must be OperandReg or OperandMem.
func (enc *Encoder) encodeRM(regField byte, rm Operand) error {
	switch rm.Kind {
	case OperandReg:
		enc.u8(modrm(3, regField, rm.Reg.Encoding))
		return nil
	case OperandMem:
		return enc.encodeMem(regField, rm)
	default:
		return &EncodeError{Reason: "ModR/M operand must be a register or memory reference"}
	}
}

func (enc *Encoder) encodeMem(regField byte, m Operand) error {
	hasIndex := m.Index.Name != ""
	baseIsSPlike := m.Base.Encoding == RSP.Encoding || m.Base.Encoding == R12.Encoding

	mod := byte(2)
	if m.Disp == 0 && m.Base.Encoding != RBP.Encoding {
		mod = 0
	} else if m.Disp >= -128 && m.Disp <= 127 {
		mod = 1
	}

	if hasIndex || baseIsSPlike {
		enc.u8(modrm(mod, regField, 4)) // rm=100 signals SIB follows
		enc.u8(sib(log2Scale(m.Scale), m.Index.Encoding, m.Base.Encoding))
	} else {
		enc.u8(modrm(mod, regField, m.Base.Encoding))
	}

	switch mod {
	case 1:
		enc.u8(byte(int8(m.Disp)))
	case 2:
		enc.imm32(m.Disp)
	case 0:
		if m.Base.Encoding == RBP.Encoding {
			enc.u8(0) // [rbp] with no displacement still needs disp8=0
		}
	}
	return nil
}

// is64 reports whether w implies REX.W must be set.
func is64(w Width) bool { return w == Width64 }

// clampImmWidth maps a Width to the immediate encoding width the instruction
// uses; most arithmetic ops sign-extend an Imm32 into 64-bit destinations
// rather than carrying a full Imm64 (spec §4.7: Imm64 is reserved for
// literal 64-bit moves into a register).
func clampImmWidth(w Width) Width {
	if w == Width64 {
		return Width32
	}
	return w
}
