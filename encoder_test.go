package main

import "testing"

func TestEncodeMovRegImmRex(t *testing.T) {
	enc := NewEncoder()
	cf := &CompiledFunc{Name: "f", Ops: []*ISAOp{
		{Op: OpMov, Dst: RegOp(R10, Width64), Src: ImmOp(5, Width64)},
		{Op: OpRet},
	}}
	if err := enc.EncodeFunc(cf); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if err := enc.ResolveCalls(); err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if len(enc.Bytes()) == 0 {
		t.Fatal("expected nonempty byte stream")
	}
}

func TestEncodeRejectsUnrepresentable(t *testing.T) {
	enc := NewEncoder()
	cf := &CompiledFunc{Name: "f", Ops: []*ISAOp{
		{Op: OpKind(9999)},
	}}
	err := enc.EncodeFunc(cf)
	if err == nil {
		t.Fatal("expected an EncodeError for an unrecognized opcode, never a silent Nop")
	}
	if _, ok := err.(*EncodeError); !ok {
		t.Fatalf("expected *EncodeError, got %T", err)
	}
}

func TestEncodeCallFixupAcrossFunctions(t *testing.T) {
	enc := NewEncoder()
	callee := &CompiledFunc{Name: "callee", Ops: []*ISAOp{{Op: OpRet}}}
	caller := &CompiledFunc{Name: "caller", Ops: []*ISAOp{
		{Op: OpCall, Dst: Operand{Kind: OperandLabelRef, Text: "callee"}},
		{Op: OpRet},
	}}
	if err := enc.EncodeFunc(caller); err != nil {
		t.Fatalf("encode caller: %v", err)
	}
	if err := enc.EncodeFunc(callee); err != nil {
		t.Fatalf("encode callee: %v", err)
	}
	if err := enc.ResolveCalls(); err != nil {
		t.Fatalf("forward call to a later-defined function should resolve: %v", err)
	}
}

func TestEncodeUndefinedCallFails(t *testing.T) {
	enc := NewEncoder()
	cf := &CompiledFunc{Name: "caller", Ops: []*ISAOp{
		{Op: OpCall, Dst: Operand{Kind: OperandLabelRef, Text: "nosuchfunc"}},
		{Op: OpRet},
	}}
	if err := enc.EncodeFunc(cf); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if err := enc.ResolveCalls(); err == nil {
		t.Fatal("expected an error calling an undefined function")
	}
}

func TestEncodeMemOperandRBPZeroDisp(t *testing.T) {
	enc := NewEncoder()
	cf := &CompiledFunc{Name: "f", Ops: []*ISAOp{
		{Op: OpMov, Dst: RegOp(RAX, Width64), Src: MemOp(RBP, 0, Width64)},
		{Op: OpRet},
	}}
	if err := enc.EncodeFunc(cf); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	// [rbp] with a zero displacement must still carry an explicit disp8
	// byte, since mod=00/rm=101 is the RIP-relative escape, not [rbp].
	// The 4-byte prologue (push rbp; mov rbp, rsp) comes first, then
	// mov rax, [rbp+0] as REX.W 8B, ModR/M 0x45 (mod=01, rm=rbp), disp8 0.
	b := enc.Bytes()
	want := []byte{0x48, 0x8B, 0x45, 0x00}
	if len(b) < 8 || string(b[4:8]) != string(want) {
		t.Fatalf("expected the load encoded as % X with an explicit disp8=0 byte, got % X", want, b)
	}
}
