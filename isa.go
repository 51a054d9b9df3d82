// Completion: 100% - Typed IR between the ISA compiler and the encoder
package main

// Width is the operand size in bytes used throughout lowering, encoding,
// and register allocation.
type Width int

const (
	Width8 Width = 1
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// OpKind enumerates every instruction family the encoder knows (spec
// §4.4/§4.7). RawBytes is the escape hatch for fixed byte sequences
// (e.g. int3) that don't need operand encoding.
type OpKind int

const (
	OpMov OpKind = iota
	OpMovzx
	OpMovsx
	OpLea
	OpPush
	OpPop
	OpAdd
	OpSub
	OpMul
	OpIMul
	OpDiv
	OpIDiv
	OpNeg
	OpInc
	OpDec
	OpAnd
	OpOr
	OpXor
	OpNot
	OpShl
	OpShr
	OpSar
	OpShlCl
	OpShrCl
	OpSarCl
	OpCmp
	OpTest
	OpJmp
	OpJcc
	OpCall
	OpRet
	OpLeave
	OpSyscall
	OpInt
	OpLabel
	OpNop
	OpMovsd
	OpAddsd
	OpSubsd
	OpMulsd
	OpDivsd
	OpCvtSi2Sd
	OpCvtSd2Si
	OpRawBytes
)

// Cond is the condition-code suffix for Jcc/Setcc, chosen from the
// comparison operator and the operand types' signedness (spec §4.4).
type Cond int

const (
	CondEQ Cond = iota
	CondNE
	CondLT
	CondLE
	CondGT
	CondGE
	CondLTU
	CondLEU
	CondGTU
	CondGEU
	CondAlways
)

// OperandKind discriminates the Operand union.
type OperandKind int

const (
	OperandReg OperandKind = iota
	OperandImm
	OperandMem
	OperandRipRel
	OperandLabelRef
)

// Operand is the tagged union spec.md §4 describes: `Reg | Imm | Mem |
// RipRel | Label`. Only the fields relevant to Kind are populated.
type Operand struct {
	Kind  OperandKind
	Reg   Reg
	Width Width
	Imm   int64

	// Mem: [Base + Index*Scale + Disp]. Index.Name == "" means no index.
	Base  Reg
	Index Reg
	Scale int
	Disp  int32

	// RipRel / LabelRef
	Label int
	Text  string // function name for a call target (OperandLabelRef used as a call)
}

func RegOp(r Reg, w Width) Operand    { return Operand{Kind: OperandReg, Reg: r, Width: w} }
func ImmOp(v int64, w Width) Operand  { return Operand{Kind: OperandImm, Imm: v, Width: w} }
func MemOp(base Reg, disp int32, w Width) Operand {
	return Operand{Kind: OperandMem, Base: base, Disp: disp, Width: w}
}
func MemIndexed(base, index Reg, scale int, disp int32, w Width) Operand {
	return Operand{Kind: OperandMem, Base: base, Index: index, Scale: scale, Disp: disp, Width: w}
}
func RipRelOp(label int, w Width) Operand { return Operand{Kind: OperandRipRel, Label: label, Width: w} }
func LabelOp(label int) Operand           { return Operand{Kind: OperandLabelRef, Label: label} }

// ISAOp is one instruction in the flat, per-function IR the optimizer
// rewrites in place and the encoder serializes (spec §4.4).
type ISAOp struct {
	Op   OpKind
	Dst  Operand
	Src  Operand
	Cond Cond
	Raw  []byte // only for OpRawBytes
	Text string // debug/disassembly label, e.g. the label name for OpLabel
}

// LabelAlloc allocates fresh, function-scoped label ids; the ISA compiler
// uses a simple counter rather than interned strings, so labels compare
// by identity. Each function gets its own LabelAlloc, so ids restart at 0
// per function and are unique only within it.
type LabelAlloc struct{ next int }

func (la *LabelAlloc) New() int {
	id := la.next
	la.next++
	return id
}

func condFromOp(op TokenKind, signed bool) Cond {
	switch op {
	case TokEq:
		return CondEQ
	case TokNe:
		return CondNE
	case TokLt:
		if signed {
			return CondLT
		}
		return CondLTU
	case TokLe:
		if signed {
			return CondLE
		}
		return CondLEU
	case TokGt:
		if signed {
			return CondGT
		}
		return CondGTU
	case TokGe:
		if signed {
			return CondGE
		}
		return CondGEU
	default:
		return CondAlways
	}
}

// negate returns the condition that holds exactly when c does not, used
// to lower `if cond { then } else { else }` into a single conditional jump
// to the else-label (spec §4.4).
func (c Cond) negate() Cond {
	switch c {
	case CondEQ:
		return CondNE
	case CondNE:
		return CondEQ
	case CondLT:
		return CondGE
	case CondLE:
		return CondGT
	case CondGT:
		return CondLE
	case CondGE:
		return CondLT
	case CondLTU:
		return CondGEU
	case CondLEU:
		return CondGTU
	case CondGTU:
		return CondLEU
	case CondGEU:
		return CondLTU
	default:
		return CondAlways
	}
}

func widthOf(t *Type) Width {
	switch t.SizeBytes() {
	case 1:
		return Width8
	case 2:
		return Width16
	case 4:
		return Width32
	default:
		return Width64
	}
}
