package main

import "testing"

func checkSource(t *testing.T, src string) []*TypeError {
	t.Helper()
	toks := NewLexer([]byte(src), "t.ad").Tokenize()
	structs := newStructTable()
	prog := ParseProgram(toks, structs)
	if len(prog.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %v", prog.Errors)
	}
	return NewChecker(structs).Check(prog)
}

func TestCheckAcceptsValidProgram(t *testing.T) {
	errs := checkSource(t, "fn add(a: i32, b: i32) -> i32 { return a + b }")
	if len(errs) != 0 {
		t.Fatalf("expected no type errors, got %v", errs)
	}
}

func TestCheckUndefinedSymbol(t *testing.T) {
	errs := checkSource(t, "fn f() -> i32 { return undefinedVar }")
	if len(errs) != 1 || errs[0].Kind != ErrUndefinedSymbol {
		t.Fatalf("expected exactly one undefined-symbol error, got %v", errs)
	}
}

func TestCheckArityMismatch(t *testing.T) {
	errs := checkSource(t, "fn add(a: i32, b: i32) -> i32 { return a + b }\nfn f() -> i32 { return add(1) }")
	if len(errs) == 0 {
		t.Fatal("expected an arity-mismatch error calling add with one argument")
	}
	found := false
	for _, e := range errs {
		if e.Kind == ErrWrongArity {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrWrongArity among %v", errs)
	}
}

func TestCheckWideningAllowsLiteralIntoWiderType(t *testing.T) {
	errs := checkSource(t, "fn f() -> i64 { let x: i64 = 5 return x }")
	if len(errs) != 0 {
		t.Fatalf("expected widening an i32-fitting literal into i64 to be allowed, got %v", errs)
	}
}

func TestCheckDuplicateSymbol(t *testing.T) {
	errs := checkSource(t, "fn dup() -> i32 { return 0 }\nfn dup() -> i32 { return 1 }")
	found := false
	for _, e := range errs {
		if e.Kind == ErrDuplicateSymbol {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrDuplicateSymbol for two functions named dup, got %v", errs)
	}
}
