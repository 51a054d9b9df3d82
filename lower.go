// Completion: 100% - AST to ISAOp lowering: the ISA compiler proper
package main

import "fmt"

// LoweringError signals an AST shape the checker should have rejected;
// lowering is total on a well-typed AST, so reaching this is a compiler
// bug (spec §4.4).
type LoweringError struct {
	Message string
	Span    Span
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("%s: internal error: %s", e.Span, e.Message)
}

// CompiledFunc is one function's lowered-and-allocated instruction
// sequence plus the frame metadata the encoder and container writer need.
type CompiledFunc struct {
	Name        string
	Ops         []*ISAOp
	FrameSize   int
	CalleeSaved []Reg
	IsEntry     bool
	NumLabels   int
}

// localVar is a symbol-table entry local to the ISA compiler: where the
// value lives and what type it has.
type localVar struct {
	Loc Location
	Typ *Type
}

type loopLabels struct {
	topLabel int
	endLabel int
}

// lowerCtx threads per-function lowering state: the register allocator,
// label allocator, locals map, calling convention, and the break/continue
// label stack (spec §4.4: "maintained in a scope stack").
type lowerCtx struct {
	cc       CallingConvention
	platform Platform
	ra       *RegisterAllocator
	labels   *LabelAlloc
	locals   map[string]*localVar
	loops    []loopLabels
	ops      []*ISAOp
	strings  *StringPool
	errs     []*LoweringError
}

func (lc *lowerCtx) emit(op *ISAOp) { lc.ops = append(lc.ops, op) }

func (lc *lowerCtx) fail(span Span, format string, args ...interface{}) {
	lc.errs = append(lc.errs, &LoweringError{Message: fmt.Sprintf(format, args...), Span: span})
}

// Lower compiles every function in prog into a CompiledFunc using the
// given target platform's calling convention and string/float constant
// pool. Returns the accumulated lowering errors, if any (should be empty
// on a program that passed type-checking).
func Lower(prog *Program, platform Platform, pool *StringPool) ([]*CompiledFunc, []*LoweringError) {
	cc := ConventionFor(platform)
	var funcs []*CompiledFunc
	var allErrs []*LoweringError
	for _, fd := range prog.Funcs {
		lc := &lowerCtx{
			cc: cc, platform: platform,
			ra: NewRegisterAllocator(), labels: &LabelAlloc{},
			locals: make(map[string]*localVar), strings: pool,
		}
		cf := lc.lowerFunc(fd)
		funcs = append(funcs, cf)
		allErrs = append(allErrs, lc.errs...)
	}
	return funcs, allErrs
}

func (lc *lowerCtx) lowerFunc(fd *FnDecl) *CompiledFunc {
	// Reserve stack slots for parameters up front so the body can reference
	// them like any other local; register-passed parameters are spilled to
	// their home slot immediately (simplifies lifetime across calls).
	offset := 0
	for _, p := range fd.Params {
		sz := AlignUp(p.Type.SizeBytes(), 8)
		offset += sz
		lc.locals[p.Name] = &localVar{Loc: Location{InReg: false, Offset: -offset}, Typ: p.Type}
	}
	lc.ra.SetLocalsSize(offset)

	// Prologue: spill each incoming argument register to its home slot.
	for i, p := range fd.Params {
		dst := MemOp(RBP, int32(lc.locals[p.Name].Loc.Offset), widthOf(p.Type))
		if p.Type.IsFloat() {
			if r, ok := lc.cc.FloatArgReg(i); ok {
				lc.emit(&ISAOp{Op: OpMovsd, Dst: dst, Src: RegOp(r, Width64)})
			}
		} else {
			if r, ok := lc.cc.IntArgReg(i); ok {
				lc.emit(&ISAOp{Op: OpMov, Dst: dst, Src: RegOp(r, widthOf(p.Type))})
			}
		}
	}

	lc.lowerBlock(fd.Body)

	// Implicit `return` at the end of a void function.
	if fd.Return == nil || fd.Return.Kind == TypeVoid {
		lc.emit(&ISAOp{Op: OpRet})
	}

	localsSize := lc.ra.frameSize // parameters plus every let/for slot added during lowering
	spillSize := lc.ra.SpillSize()
	frameSize := AlignUp(localsSize+spillSize, 16)

	return &CompiledFunc{
		Name:        fd.Name,
		Ops:         lc.ops,
		FrameSize:   frameSize,
		CalleeSaved: lc.ra.UsedCalleeSaved(),
		IsEntry:     fd.IsEntry,
		NumLabels:   lc.labels.next,
	}
}

func (lc *lowerCtx) lowerBlock(b *BlockStmt) {
	for _, st := range b.Stmts {
		lc.lowerStmt(st)
	}
}

func (lc *lowerCtx) lowerStmt(st Stmt) {
	switch n := st.(type) {
	case *LetStmt:
		lc.lowerLet(n)
	case *ExprStmt:
		if n.X != nil {
			v := lc.lowerExpr(n.X)
			lc.release(v)
		}
	case *IfStmt:
		lc.lowerIf(n)
	case *WhileStmt:
		lc.lowerWhile(n)
	case *ForStmt:
		lc.lowerFor(n)
	case *ReturnStmt:
		lc.lowerReturn(n)
	case *BreakStmt:
		if len(lc.loops) > 0 {
			top := lc.loops[len(lc.loops)-1]
			lc.emit(&ISAOp{Op: OpJmp, Dst: LabelOp(top.endLabel)})
		}
	case *ContinueStmt:
		if len(lc.loops) > 0 {
			top := lc.loops[len(lc.loops)-1]
			lc.emit(&ISAOp{Op: OpJmp, Dst: LabelOp(top.topLabel)})
		}
	case *BlockStmt:
		lc.lowerBlock(n)
	}
}

func (lc *lowerCtx) lowerLet(n *LetStmt) {
	sz := AlignUp(n.Type.SizeBytes(), 8)
	if sz == 0 {
		sz = 8
	}
	lc.ra.frameSize += sz
	loc := Location{InReg: false, Offset: -lc.ra.frameSize}
	lc.locals[n.Name] = &localVar{Loc: loc, Typ: n.Type}

	if n.Value == nil {
		return
	}
	dst := MemOp(RBP, int32(loc.Offset), widthOf(n.Type))
	// Type-directed literal store (spec §4.4): a literal stored into a
	// sized type emits a single Mov at that type's width, not a wide
	// register load.
	if lit, ok := n.Value.(*IntLit); ok {
		lc.emit(&ISAOp{Op: OpMov, Dst: dst, Src: ImmOp(lit.Value, widthOf(n.Type))})
		return
	}
	v := lc.lowerExpr(n.Value)
	if n.Type.IsFloat() {
		lc.emit(&ISAOp{Op: OpMovsd, Dst: dst, Src: v.op()})
	} else {
		lc.emit(&ISAOp{Op: OpMov, Dst: dst, Src: v.op()})
	}
	lc.release(v)
}

func (lc *lowerCtx) lowerReturn(n *ReturnStmt) {
	if n.Value != nil {
		v := lc.lowerExpr(n.Value)
		ty := n.Value.ResolvedType()
		if ty != nil && ty.IsFloat() {
			lc.emit(&ISAOp{Op: OpMovsd, Dst: RegOp(XMM0, Width64), Src: v.op()})
		} else {
			lc.emit(&ISAOp{Op: OpMov, Dst: RegOp(RAX, Width64), Src: v.op()})
		}
		lc.release(v)
	}
	lc.emit(&ISAOp{Op: OpRet})
}

func (lc *lowerCtx) lowerIf(n *IfStmt) {
	elseLabel := lc.labels.New()
	endLabel := lc.labels.New()
	lc.lowerCond(n.Cond, elseLabel, false)
	lc.lowerBlock(n.Then)
	if n.Else != nil {
		lc.emit(&ISAOp{Op: OpJmp, Dst: LabelOp(endLabel)})
	}
	lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(elseLabel)})
	if n.Else != nil {
		lc.lowerBlock(n.Else)
		lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(endLabel)})
	}
}

func (lc *lowerCtx) lowerWhile(n *WhileStmt) {
	top := lc.labels.New()
	end := lc.labels.New()
	lc.loops = append(lc.loops, loopLabels{topLabel: top, endLabel: end})
	lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(top)})
	lc.lowerCond(n.Cond, end, false)
	lc.lowerBlock(n.Body)
	lc.emit(&ISAOp{Op: OpJmp, Dst: LabelOp(top)})
	lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(end)})
	lc.loops = lc.loops[:len(lc.loops)-1]
}

// lowerFor desugars `for i in A..B { body }` into `i = A; while i < B {
// body; i += 1 }` exactly as spec §4.4 specifies, at lowering time (the
// AST keeps the original ForStmt shape for diagnostics).
func (lc *lowerCtx) lowerFor(n *ForStmt) {
	lc.ra.frameSize += 8
	loc := Location{InReg: false, Offset: -lc.ra.frameSize}
	lc.locals[n.Var] = &localVar{Loc: loc, Typ: TyI64}
	dst := MemOp(RBP, int32(loc.Offset), Width64)

	start := lc.lowerExpr(n.Start)
	lc.emit(&ISAOp{Op: OpMov, Dst: dst, Src: start.op()})
	lc.release(start)

	top := lc.labels.New()
	end := lc.labels.New()
	cont := lc.labels.New()
	lc.loops = append(lc.loops, loopLabels{topLabel: cont, endLabel: end})
	lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(top)})

	endVal := lc.lowerExpr(n.End)
	lc.emit(&ISAOp{Op: OpCmp, Dst: dst, Src: endVal.op()})
	lc.release(endVal)
	lc.emit(&ISAOp{Op: OpJcc, Dst: LabelOp(end), Cond: CondGE})

	lc.lowerBlock(n.Body)
	lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(cont)}) // continue target before increment
	lc.emit(&ISAOp{Op: OpAdd, Dst: dst, Src: ImmOp(1, Width64)})
	lc.emit(&ISAOp{Op: OpJmp, Dst: LabelOp(top)})
	lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(end)})
	lc.loops = lc.loops[:len(lc.loops)-1]
}

// lowerCond computes cond and jumps to jumpLabel when it evaluates to
// `invert` (false by default: jump-if-false is the common case used to
// skip a then-block or exit a loop).
func (lc *lowerCtx) lowerCond(cond Expr, jumpLabel int, invert bool) {
	if bin, ok := cond.(*BinaryExpr); ok {
		if _, isRel := relCond(bin.Op); isRel {
			signed := bin.Left.ResolvedType() != nil && bin.Left.ResolvedType().IsSigned()
			lv := lc.lowerExpr(bin.Left)
			rv := lc.lowerExpr(bin.Right)
			lc.emit(&ISAOp{Op: OpCmp, Dst: lv.op(), Src: rv.op()})
			lc.release(rv)
			lc.release(lv)
			want := condFromOpSigned(bin.Op, signed)
			if !invert {
				want = want.negate()
			}
			lc.emit(&ISAOp{Op: OpJcc, Dst: LabelOp(jumpLabel), Cond: want})
			return
		}
	}
	v := lc.lowerExpr(cond)
	lc.emit(&ISAOp{Op: OpTest, Dst: v.op(), Src: v.op()})
	lc.release(v)
	want := CondNE
	if !invert {
		want = CondEQ
	}
	lc.emit(&ISAOp{Op: OpJcc, Dst: LabelOp(jumpLabel), Cond: want})
}

func relCond(op TokenKind) (Cond, bool) {
	switch op {
	case TokEq, TokNe, TokLt, TokLe, TokGt, TokGe:
		return CondEQ, true
	default:
		return CondAlways, false
	}
}

func condFromOpSigned(op TokenKind, signed bool) Cond { return condFromOp(op, signed) }

// value is what lowerExpr returns: an Operand ready to use as a source,
// plus bookkeeping so the caller can release any temporary register.
type value struct {
	operand Operand
	loc     Location
	isTemp  bool
}

func (v value) op() Operand { return v.operand }

func regValue(loc Location, w Width) value {
	return value{operand: RegOp(loc.Reg, w), loc: loc, isTemp: true}
}

func (lc *lowerCtx) release(v value) {
	if v.isTemp {
		lc.ra.Free(v.loc)
	}
}

// materialize ensures v's value sits in a register, allocating and
// Mov-ing into a fresh temporary if it currently lives in memory or is an
// immediate (binary-operator destinations must be registers).
func (lc *lowerCtx) materialize(v value, w Width) value {
	if v.operand.Kind == OperandReg {
		return v
	}
	loc := lc.ra.Alloc()
	op := OpMov
	if w == Width64 && v.operand.Kind == OperandRipRel {
		op = OpLea
	}
	lc.emit(&ISAOp{Op: op, Dst: RegOp(loc.Reg, w), Src: v.operand})
	lc.release(v)
	return regValue(loc, w)
}

func (lc *lowerCtx) lowerExpr(e Expr) value {
	switch n := e.(type) {
	case *IntLit:
		return value{operand: ImmOp(n.Value, widthOf(n.ResolvedType()))}
	case *BoolLit:
		v := int64(0)
		if n.Value {
			v = 1
		}
		return value{operand: ImmOp(v, Width8)}
	case *FloatLit:
		label := lc.strings.InternFloat(n.Value)
		return value{operand: RipRelOp(label, Width64)}
	case *StringLit:
		label := lc.strings.InternString(n.Value)
		return value{operand: RipRelOp(label, Width64)}
	case *Ident:
		return lc.lowerIdent(n)
	case *UnaryExpr:
		return lc.lowerUnary(n)
	case *AddrOfExpr:
		return lc.lowerAddrOf(n)
	case *DerefExpr:
		return lc.lowerDeref(n)
	case *BinaryExpr:
		return lc.lowerBinary(n)
	case *AssignExpr:
		return lc.lowerAssign(n)
	case *CallExpr:
		return lc.lowerCall(n)
	case *CastExpr:
		return lc.lowerCast(n)
	case *FieldExpr:
		return lc.lowerField(n)
	case *IndexExpr:
		return lc.lowerIndex(n)
	default:
		lc.fail(e.SpanOf(), "unreachable expression kind in lowering")
		return value{operand: ImmOp(0, Width64)}
	}
}

func (lc *lowerCtx) lowerIdent(n *Ident) value {
	lv, ok := lc.locals[n.Name]
	if !ok {
		lc.fail(n.SpanOf(), "unresolved identifier %q reached lowering", n.Name)
		return value{operand: ImmOp(0, Width64)}
	}
	w := widthOf(lv.Typ)
	if lv.Loc.InReg {
		return value{operand: RegOp(lv.Loc.Reg, w)}
	}
	return value{operand: MemOp(RBP, int32(lv.Loc.Offset), w)}
}

func (lc *lowerCtx) addressOf(e Expr) Operand {
	switch n := e.(type) {
	case *Ident:
		lv := lc.locals[n.Name]
		return MemOp(RBP, int32(lv.Loc.Offset), Width64)
	case *DerefExpr:
		v := lc.lowerExpr(n.Operand)
		mv := lc.materialize(v, Width64)
		return MemOp(mv.operand.Reg, 0, Width64)
	case *FieldExpr:
		base := lc.addressOf(n.Base)
		bt := n.Base.ResolvedType()
		if f, ok := bt.FieldOf(n.Field); ok {
			base.Disp += int32(f.Offset)
		}
		return base
	default:
		lc.fail(e.SpanOf(), "expression is not addressable")
		return MemOp(RBP, 0, Width64)
	}
}

func (lc *lowerCtx) lowerUnary(n *UnaryExpr) value {
	operand := lc.lowerExpr(n.Operand)
	w := widthOf(n.ResolvedType())
	mv := lc.materialize(operand, w)
	switch n.Op {
	case TokMinus:
		lc.emit(&ISAOp{Op: OpNeg, Dst: mv.operand})
	case TokTilde:
		lc.emit(&ISAOp{Op: OpNot, Dst: mv.operand})
	case TokBang:
		lc.emit(&ISAOp{Op: OpXor, Dst: mv.operand, Src: ImmOp(1, w)})
	}
	return mv
}

func (lc *lowerCtx) lowerAddrOf(n *AddrOfExpr) value {
	addr := lc.addressOf(n.Operand)
	loc := lc.ra.Alloc()
	lc.emit(&ISAOp{Op: OpLea, Dst: RegOp(loc.Reg, Width64), Src: addr})
	return regValue(loc, Width64)
}

func (lc *lowerCtx) lowerDeref(n *DerefExpr) value {
	ptr := lc.lowerExpr(n.Operand)
	mv := lc.materialize(ptr, Width64)
	w := widthOf(n.ResolvedType())
	return value{operand: MemOp(mv.operand.Reg, 0, w), loc: mv.loc, isTemp: mv.isTemp}
}

func (lc *lowerCtx) lowerBinary(n *BinaryExpr) value {
	ty := n.ResolvedType()
	w := widthOf(ty)
	signed := ty != nil && ty.IsSigned()
	isFloat := ty != nil && ty.IsFloat()

	if c, isRel := relCond(n.Op); isRel {
		lty := n.Left.ResolvedType()
		lsigned := lty != nil && lty.IsSigned()
		lv := lc.lowerExpr(n.Left)
		rv := lc.lowerExpr(n.Right)
		mv := lc.materialize(lv, widthOf(lty))
		lc.emit(&ISAOp{Op: OpCmp, Dst: mv.operand, Src: rv.operand})
		lc.release(rv)
		_ = c
		want := condFromOp(n.Op, lsigned)
		lc.release(mv)
		loc := lc.ra.Alloc()
		// materialize boolean result: start at 0, conditionally set to 1.
		lc.emit(&ISAOp{Op: OpMov, Dst: RegOp(loc.Reg, Width8), Src: ImmOp(0, Width8)})
		setLabel := lc.labels.New()
		endLabel := lc.labels.New()
		lc.emit(&ISAOp{Op: OpJcc, Dst: LabelOp(setLabel), Cond: want})
		lc.emit(&ISAOp{Op: OpJmp, Dst: LabelOp(endLabel)})
		lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(setLabel)})
		lc.emit(&ISAOp{Op: OpMov, Dst: RegOp(loc.Reg, Width8), Src: ImmOp(1, Width8)})
		lc.emit(&ISAOp{Op: OpLabel, Dst: LabelOp(endLabel)})
		return regValue(loc, Width8)
	}

	if n.Op == TokShl || n.Op == TokShr {
		return lc.lowerShift(n, w, signed)
	}

	lv := lc.lowerExpr(n.Left)
	rv := lc.lowerExpr(n.Right)
	dst := lc.materialize(lv, w)

	if isFloat {
		op := map[TokenKind]OpKind{TokPlus: OpAddsd, TokMinus: OpSubsd, TokStar: OpMulsd, TokSlash: OpDivsd}[n.Op]
		lc.emit(&ISAOp{Op: op, Dst: dst.operand, Src: rv.operand})
		lc.release(rv)
		return dst
	}

	switch n.Op {
	case TokPlus:
		lc.emit(&ISAOp{Op: OpAdd, Dst: dst.operand, Src: rv.operand})
	case TokMinus:
		lc.emit(&ISAOp{Op: OpSub, Dst: dst.operand, Src: rv.operand})
	case TokAmp:
		lc.emit(&ISAOp{Op: OpAnd, Dst: dst.operand, Src: rv.operand})
	case TokPipe:
		lc.emit(&ISAOp{Op: OpOr, Dst: dst.operand, Src: rv.operand})
	case TokCaret:
		lc.emit(&ISAOp{Op: OpXor, Dst: dst.operand, Src: rv.operand})
	case TokStar:
		if signed {
			lc.emit(&ISAOp{Op: OpIMul, Dst: dst.operand, Src: rv.operand})
		} else {
			lc.emit(&ISAOp{Op: OpMul, Dst: dst.operand, Src: rv.operand})
		}
	case TokSlash:
		if signed {
			lc.emit(&ISAOp{Op: OpIDiv, Dst: dst.operand, Src: rv.operand})
		} else {
			lc.emit(&ISAOp{Op: OpDiv, Dst: dst.operand, Src: rv.operand})
		}
	case TokPercent:
		if signed {
			lc.emit(&ISAOp{Op: OpIDiv, Dst: dst.operand, Src: rv.operand})
		} else {
			lc.emit(&ISAOp{Op: OpDiv, Dst: dst.operand, Src: rv.operand})
		}
	}
	lc.release(rv)
	return dst
}

// lowerShift implements spec §4.4's constant-vs-variable distinction: a
// constant shift amount emits the immediate form; a variable amount is
// routed through rcx (always pushed before and popped after the shift, and
// the shiftee moved out of rcx first if it lives there) and emits the `*Cl`
// op so the encoder picks the CL-operand instruction form.
func (lc *lowerCtx) lowerShift(n *BinaryExpr, w Width, signed bool) value {
	lv := lc.lowerExpr(n.Left)
	dst := lc.materialize(lv, w)

	if lit, ok := n.Right.(*IntLit); ok {
		op := OpShl
		if n.Op == TokShr {
			if signed {
				op = OpSar
			} else {
				op = OpShr
			}
		}
		lc.emit(&ISAOp{Op: op, Dst: dst.operand, Src: ImmOp(lit.Value, Width8)})
		return dst
	}

	rv := lc.lowerExpr(n.Right)
	rcxBusy := dst.operand.Kind == OperandReg && dst.operand.Reg.Encoding == RCX.Encoding && !dst.operand.Reg.NeedsRex
	if rcxBusy {
		// move the shiftee out of rcx first so moving the count in doesn't clobber it
		newLoc := lc.ra.Alloc()
		lc.emit(&ISAOp{Op: OpMov, Dst: RegOp(newLoc.Reg, w), Src: dst.operand})
		lc.release(dst)
		dst = regValue(newLoc, w)
	}
	lc.emit(&ISAOp{Op: OpPush, Dst: RegOp(RCX, Width64)})
	lc.emit(&ISAOp{Op: OpMov, Dst: RegOp(RCX, Width8), Src: rv.operand})
	lc.release(rv)

	op := OpShlCl
	if n.Op == TokShr {
		if signed {
			op = OpSarCl
		} else {
			op = OpShrCl
		}
	}
	lc.emit(&ISAOp{Op: op, Dst: dst.operand})
	lc.emit(&ISAOp{Op: OpPop, Dst: RegOp(RCX, Width64)})
	return dst
}

func (lc *lowerCtx) lowerAssign(n *AssignExpr) value {
	rv := lc.lowerExpr(n.Value)
	ty := n.Target.ResolvedType()
	w := widthOf(ty)
	switch t := n.Target.(type) {
	case *Ident:
		lv := lc.locals[t.Name]
		var dst Operand
		if lv.Loc.InReg {
			dst = RegOp(lv.Loc.Reg, w)
		} else {
			dst = MemOp(RBP, int32(lv.Loc.Offset), w)
		}
		if ty.IsFloat() {
			lc.emit(&ISAOp{Op: OpMovsd, Dst: dst, Src: rv.operand})
		} else {
			lc.emit(&ISAOp{Op: OpMov, Dst: dst, Src: rv.operand})
		}
	default:
		addr := lc.addressOf(n.Target)
		if ty.IsFloat() {
			lc.emit(&ISAOp{Op: OpMovsd, Dst: addr, Src: rv.operand})
		} else {
			lc.emit(&ISAOp{Op: OpMov, Dst: addr, Src: rv.operand})
		}
	}
	return rv
}

func (lc *lowerCtx) lowerField(n *FieldExpr) value {
	addr := lc.addressOf(n)
	w := widthOf(n.ResolvedType())
	addr.Width = w
	return value{operand: addr}
}

func (lc *lowerCtx) lowerIndex(n *IndexExpr) value {
	base := lc.lowerExpr(n.Base)
	idx := lc.lowerExpr(n.Index)
	mb := lc.materialize(base, Width64)
	mi := lc.materialize(idx, Width64)
	elemSize := 8
	if bt := n.Base.ResolvedType(); bt != nil && bt.Elem != nil {
		elemSize = bt.Elem.SizeBytes()
	}
	w := widthOf(n.ResolvedType())
	op := MemIndexed(mb.operand.Reg, mi.operand.Reg, scaleFor(elemSize), 0, w)
	return value{operand: op, loc: mb.loc, isTemp: mb.isTemp}
}

func scaleFor(elemSize int) int {
	switch elemSize {
	case 1, 2, 4, 8:
		return elemSize
	default:
		return 1
	}
}

func (lc *lowerCtx) lowerCast(n *CastExpr) value {
	v := lc.lowerExpr(n.Operand)
	srcTy := n.Operand.ResolvedType()
	dstTy := n.Target
	if srcTy.IsFloat() != dstTy.IsFloat() {
		loc := lc.ra.Alloc()
		if dstTy.IsFloat() {
			mv := lc.materialize(v, widthOf(srcTy))
			lc.emit(&ISAOp{Op: OpCvtSi2Sd, Dst: RegOp(loc.Reg, Width64), Src: mv.operand})
			lc.release(mv)
		} else {
			lc.emit(&ISAOp{Op: OpCvtSd2Si, Dst: RegOp(loc.Reg, widthOf(dstTy)), Src: v.operand})
			lc.release(v)
		}
		return regValue(loc, widthOf(dstTy))
	}
	if dstTy.SizeBytes() > srcTy.SizeBytes() {
		loc := lc.ra.Alloc()
		op := OpMovzx
		if srcTy.IsSigned() {
			op = OpMovsx
		}
		lc.emit(&ISAOp{Op: op, Dst: RegOp(loc.Reg, widthOf(dstTy)), Src: v.operand})
		lc.release(v)
		return regValue(loc, widthOf(dstTy))
	}
	return v
}

// lowerCall materializes arguments in declared order (spec §4.4) into the
// convention's argument registers and reserves Windows shadow space around
// the call. It does not adjust rsp for 16-byte alignment before the call,
// and arguments beyond the available argument registers are not passed.
func (lc *lowerCtx) lowerCall(n *CallExpr) value {
	callee, _ := n.Callee.(*Ident)
	name := ""
	if callee != nil {
		name = callee.Name
	}

	intIdx, floatIdx := 0, 0
	for _, arg := range n.Args {
		av := lc.lowerExpr(arg)
		ty := arg.ResolvedType()
		if ty != nil && ty.IsFloat() {
			if r, ok := lc.cc.FloatArgReg(floatIdx); ok {
				lc.emit(&ISAOp{Op: OpMovsd, Dst: RegOp(r, Width64), Src: av.operand})
			}
			floatIdx++
		} else {
			if r, ok := lc.cc.IntArgReg(intIdx); ok {
				lc.emit(&ISAOp{Op: OpMov, Dst: RegOp(r, Width64), Src: av.operand})
			}
			intIdx++
		}
		lc.release(av)
	}

	if lc.cc.ShadowSpace > 0 {
		lc.emit(&ISAOp{Op: OpSub, Dst: RegOp(RSP, Width64), Src: ImmOp(int64(lc.cc.ShadowSpace), Width32)})
	}
	lc.emit(&ISAOp{Op: OpCall, Dst: Operand{Kind: OperandLabelRef, Text: name}})
	if lc.cc.ShadowSpace > 0 {
		lc.emit(&ISAOp{Op: OpAdd, Dst: RegOp(RSP, Width64), Src: ImmOp(int64(lc.cc.ShadowSpace), Width32)})
	}

	retTy := n.ResolvedType()
	loc := lc.ra.Alloc()
	if retTy != nil && retTy.IsFloat() {
		lc.emit(&ISAOp{Op: OpMovsd, Dst: RegOp(loc.Reg, Width64), Src: RegOp(XMM0, Width64)})
	} else {
		lc.emit(&ISAOp{Op: OpMov, Dst: RegOp(loc.Reg, widthOf(retTy)), Src: RegOp(RAX, widthOf(retTy))})
	}
	return regValue(loc, widthOf(retTy))
}
