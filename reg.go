// Completion: 100% - x86-64 register table and allocation pools
package main

// Reg is an x86-64 general-purpose or XMM register, identified the way the
// encoder needs it: its 3-bit ModR/M encoding (0-7) and whether a REX
// prefix extension bit is needed to reach it (R8-R15).
type Reg struct {
	Name     string
	Encoding uint8
	NeedsRex bool
}

func (r Reg) String() string { return r.Name }

// Named general-purpose registers, 64-bit form. 8/16/32-bit views of the
// same physical register share Encoding; Operand carries the width.
var (
	RAX = Reg{"rax", 0, false}
	RCX = Reg{"rcx", 1, false}
	RDX = Reg{"rdx", 2, false}
	RBX = Reg{"rbx", 3, false}
	RSP = Reg{"rsp", 4, false}
	RBP = Reg{"rbp", 5, false}
	RSI = Reg{"rsi", 6, false}
	RDI = Reg{"rdi", 7, false}
	R8  = Reg{"r8", 0, true}
	R9  = Reg{"r9", 1, true}
	R10 = Reg{"r10", 2, true}
	R11 = Reg{"r11", 3, true}
	R12 = Reg{"r12", 4, true}
	R13 = Reg{"r13", 5, true}
	R14 = Reg{"r14", 6, true}
	R15 = Reg{"r15", 7, true}

	XMM0 = Reg{"xmm0", 0, false}
	XMM1 = Reg{"xmm1", 1, false}
	XMM2 = Reg{"xmm2", 2, false}
	XMM3 = Reg{"xmm3", 3, false}
	XMM4 = Reg{"xmm4", 4, false}
	XMM5 = Reg{"xmm5", 5, false}
	XMM6 = Reg{"xmm6", 6, false}
	XMM7 = Reg{"xmm7", 7, false}
)

// SysVArgRegs / MSArgRegs are the integer argument-passing registers for
// the two calling conventions the ISA compiler targets (spec §4.4).
var (
	SysVArgRegs = []Reg{RDI, RSI, RDX, RCX, R8, R9}
	MSArgRegs   = []Reg{RCX, RDX, R8, R9}
	FloatArgRegsSysV = []Reg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}
	FloatArgRegsMS   = []Reg{XMM0, XMM1, XMM2, XMM3}
)

// CalleeSaved lists the registers a function must preserve across a call,
// per both the System V and Microsoft x64 conventions (their intersection
// covers every register this compiler ever allocates into).
var CalleeSaved = []Reg{RBX, RBP, R12, R13, R14, R15}

// AllocatablePool is the register-allocator's working set (spec §4.5):
// general-purpose registers other than the stack and frame pointers, the
// accumulator, and r13-r15. It includes the argument registers and the
// callee-saved rbx and r12, which UsedCalleeSaved reports for saving in
// the prologue.
var AllocatablePool = []Reg{RBX, RCX, RDX, RSI, RDI, R8, R9, R10, R11, R12}

func (r Reg) isCalleeSaved() bool {
	for _, c := range CalleeSaved {
		if c.Encoding == r.Encoding && !isXMM(r) {
			return true
		}
	}
	return false
}

func isXMM(r Reg) bool {
	switch r.Name {
	case "xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7":
		return true
	default:
		return false
	}
}
