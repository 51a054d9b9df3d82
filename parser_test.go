package main

import "testing"

func TestParseBraceFunction(t *testing.T) {
	toks := NewLexer([]byte("fn add(a: i32, b: i32) -> i32 { return a + b }"), "t.ad").Tokenize()
	prog := ParseProgram(toks, newStructTable())
	if len(prog.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %v", prog.Errors)
	}
	if len(prog.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Funcs))
	}
	fn := prog.Funcs[0]
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
}

func TestParseIndentedFunction(t *testing.T) {
	src := "def mul(a: i32, b: i32) -> i32:\n\treturn a * b\n"
	toks := NewLexer([]byte(src), "t.ad").Tokenize()
	prog := ParseProgram(toks, newStructTable())
	if len(prog.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %v", prog.Errors)
	}
	if len(prog.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Funcs))
	}
}

func TestParseMixedNesting(t *testing.T) {
	src := "def outer(n: i32) -> i32:\n\tif n > 0 {\n\t\treturn n\n\t} else {\n\t\treturn 0\n\t}\n"
	toks := NewLexer([]byte(src), "t.ad").Tokenize()
	prog := ParseProgram(toks, newStructTable())
	if len(prog.Errors) > 0 {
		t.Fatalf("unexpected parse errors parsing mixed brace/indent nesting: %v", prog.Errors)
	}
}

func TestParseAttributes(t *testing.T) {
	src := "#![mode(tiny)]\n#![base(0)]\nfn main() -> i32 { return 0 }"
	toks := NewLexer([]byte(src), "t.ad").Tokenize()
	prog := ParseProgram(toks, newStructTable())
	if len(prog.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %v", prog.Errors)
	}
	if prog.Attrs.Mode != "tiny" {
		t.Fatalf("expected mode attribute %q, got %q", "tiny", prog.Attrs.Mode)
	}
}

func TestParseRecoversFromError(t *testing.T) {
	src := "fn broken( -> i32 { return 1 }\nfn ok() -> i32 { return 2 }"
	toks := NewLexer([]byte(src), "t.ad").Tokenize()
	prog := ParseProgram(toks, newStructTable())
	if len(prog.Errors) == 0 {
		t.Fatal("expected a parse error from the malformed parameter list")
	}
}
