// Completion: 100% - AST node set for the hybrid procedural/OOP language
package main

// Node is implemented by every statement and expression so diagnostics can
// always cite a span (spec §3: "Every node carries a span").
type Node interface {
	SpanOf() Span
}

// Expr is any expression node. ResolvedType returns Type::Auto until the
// type checker runs; spec §3's invariant is that no expression keeps
// TypeAuto once type-checking completes.
type Expr interface {
	Node
	exprNode()
	ResolvedType() *Type
	SetResolvedType(*Type)
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
}

type exprBase struct {
	Span Span
	Ty   *Type
}

func (e *exprBase) SpanOf() Span          { return e.Span }
func (e *exprBase) exprNode()             {}
func (e *exprBase) ResolvedType() *Type   { return e.Ty }
func (e *exprBase) SetResolvedType(t *Type) { e.Ty = t }

type stmtBase struct {
	Span Span
}

func (s *stmtBase) SpanOf() Span { return s.Span }
func (s *stmtBase) stmtNode()    {}

// ---- Expressions ----

type IntLit struct {
	exprBase
	Value int64
	Radix int
}

type FloatLit struct {
	exprBase
	Value float64
}

type StringLit struct {
	exprBase
	Value string
}

type BoolLit struct {
	exprBase
	Value bool
}

type Ident struct {
	exprBase
	Name string
}

// BinaryExpr covers every binary operator the precedence table in spec
// §4.2 enumerates (assignment is represented separately by AssignExpr).
type BinaryExpr struct {
	exprBase
	Op    TokenKind
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	exprBase
	Op      TokenKind
	Operand Expr
}

// AddrOfExpr is `&x`; DerefExpr is `*p` (spec §4.3).
type AddrOfExpr struct {
	exprBase
	Operand Expr
}

type DerefExpr struct {
	exprBase
	Operand Expr
}

type AssignExpr struct {
	exprBase
	Target Expr
	Value  Expr
}

type CallExpr struct {
	exprBase
	Callee Expr
	Args   []Expr
}

type IndexExpr struct {
	exprBase
	Base  Expr
	Index Expr
}

type FieldExpr struct {
	exprBase
	Base  Expr
	Field string
}

// CastExpr is an explicit narrowing/reinterpreting cast (`expr as Type`).
type CastExpr struct {
	exprBase
	Operand Expr
	Target  *Type
}

// ---- Statements ----

type Param struct {
	Name string
	Type *Type
}

// FnDecl covers both the brace form (`fn foo() { ... }`) and the indented
// `def` form; Body is always normalized to a BlockStmt by the parser.
type FnDecl struct {
	stmtBase
	Name    string
	Params  []Param
	Return  *Type
	Body    *BlockStmt
	IsEntry bool // true for the function the container's entry point targets
}

type StructDecl struct {
	stmtBase
	Name   string
	Fields []Field
}

type LetStmt struct {
	stmtBase
	Name    string
	Type    *Type // may be TyAuto, resolved by the checker
	Value   Expr
}

type ExprStmt struct {
	stmtBase
	X Expr
}

type BlockStmt struct {
	stmtBase
	Stmts []Stmt
}

type IfStmt struct {
	stmtBase
	Cond Expr
	Then *BlockStmt
	Else *BlockStmt // nil, or another IfStmt wrapped in a BlockStmt for else-if
}

type WhileStmt struct {
	stmtBase
	Cond Expr
	Body *BlockStmt
}

// ForStmt is `for i in A..B { body }`, desugared during lowering into the
// while-loop form spec §4.4 describes, not at parse time (so the AST
// retains the source's own shape for diagnostics).
type ForStmt struct {
	stmtBase
	Var   string
	Start Expr
	End   Expr
	Body  *BlockStmt
}

type ReturnStmt struct {
	stmtBase
	Value Expr // nil for `return` with no value
}

type BreakStmt struct{ stmtBase }
type ContinueStmt struct{ stmtBase }

// ProgramAttributes holds the parsed `#![...]` directives from spec §4.2.
type ProgramAttributes struct {
	Mode       string // "raw", "tiny", or "" for the default container
	Base       int64  // #![base(N)], default 0
	Clean      string // "normal" (default), "aggressive", "none"
	Imports    []ImportAttr
	Exports    []string
	MemLayout  string
}

type ImportAttr struct {
	Path   string
	Symbol string
}

// Program is the root of the AST: the parsed attributes, every top-level
// declaration, and any parse errors recovered past (spec §4.2: "parsing
// always completes to EOF").
type Program struct {
	Attrs   ProgramAttributes
	Structs []*StructDecl
	Funcs   []*FnDecl
	Errors  []*ParseError
}
