package main

import "testing"

func TestPeepholeRemovesSelfMove(t *testing.T) {
	ops := []*ISAOp{
		{Op: OpMov, Dst: RegOp(RAX, Width64), Src: RegOp(RAX, Width64)},
		{Op: OpRet},
	}
	out := peephole(ops)
	if len(out) != 1 {
		t.Fatalf("expected the self-move to be dropped, got %d ops", len(out))
	}
}

func TestPeepholeCancelsPushPop(t *testing.T) {
	ops := []*ISAOp{
		{Op: OpPush, Dst: RegOp(RBX, Width64)},
		{Op: OpPop, Dst: RegOp(RBX, Width64)},
		{Op: OpRet},
	}
	out := peephole(ops)
	if len(out) != 1 {
		t.Fatalf("expected push/pop of the same register to cancel, got %d ops", len(out))
	}
}

func TestPeepholeMovZeroBecomesXor(t *testing.T) {
	ops := []*ISAOp{
		{Op: OpMov, Dst: RegOp(RCX, Width64), Src: ImmOp(0, Width64)},
	}
	out := peephole(ops)
	if len(out) != 1 || out[0].Op != OpXor {
		t.Fatalf("expected mov reg,0 to become xor reg,reg, got %+v", out)
	}
}

func TestDeadCodeEliminationDropsPostJmp(t *testing.T) {
	ops := []*ISAOp{
		{Op: OpJmp, Dst: LabelOp(1)},
		{Op: OpMov, Dst: RegOp(RAX, Width64), Src: ImmOp(1, Width64)}, // unreachable
		{Op: OpLabel, Dst: LabelOp(1)},
		{Op: OpRet},
	}
	out := eliminateDeadOps(ops)
	for _, op := range out {
		if op.Op == OpMov {
			t.Fatal("expected the instruction after an unconditional jump to be eliminated")
		}
	}
}

func TestConstantFoldingCollapsesImmImm(t *testing.T) {
	ops := []*ISAOp{
		{Op: OpMov, Dst: RegOp(RAX, Width32), Src: ImmOp(2, Width32)},
		{Op: OpAdd, Dst: RegOp(RAX, Width32), Src: ImmOp(3, Width32)},
	}
	out := foldConstantOps(ops)
	if len(out) != 1 || out[0].Src.Imm != 5 {
		t.Fatalf("expected mov+add to fold into a single mov of 5, got %+v", out)
	}
}

func TestOptNoneSkipsAllPasses(t *testing.T) {
	cf := &CompiledFunc{Name: "f", Ops: []*ISAOp{
		{Op: OpMov, Dst: RegOp(RAX, Width64), Src: RegOp(RAX, Width64)},
	}}
	Optimize([]*CompiledFunc{cf}, NewStringPool(), OptNone)
	if len(cf.Ops) != 1 {
		t.Fatalf("expected OptNone to leave ops untouched, got %d ops", len(cf.Ops))
	}
}
