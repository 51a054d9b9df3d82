package main

import "testing"

// compileToFuncs drives lex through encode for src, failing the test on
// any stage error, and returns the encoded byte stream plus the constant
// pool it was built against.
func compileToFuncs(t *testing.T, src string, platform Platform) ([]byte, *StringPool) {
	t.Helper()
	toks := NewLexer([]byte(src), "t.ad").Tokenize()
	structs := newStructTable()
	prog := ParseProgram(toks, structs)
	if len(prog.Errors) > 0 {
		t.Fatalf("parse errors: %v", prog.Errors)
	}
	if errs := NewChecker(structs).Check(prog); len(errs) > 0 {
		t.Fatalf("type errors: %v", errs)
	}
	pool := NewStringPool()
	funcs, lowErrs := Lower(prog, platform, pool)
	if len(lowErrs) > 0 {
		t.Fatalf("lowering errors: %v", lowErrs)
	}
	Optimize(funcs, pool, OptNormal)
	enc := NewEncoder()
	for _, cf := range funcs {
		if err := enc.EncodeFunc(cf); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	if err := enc.ResolveCalls(); err != nil {
		t.Fatalf("call resolution error: %v", err)
	}
	return enc.Bytes(), pool
}

func TestEndToEndHelloReturnValue(t *testing.T) {
	code, _ := compileToFuncs(t, `fn main() -> i32 { return 42 }`, Platform{Arch: ArchX86_64, OS: OSLinux})
	if len(code) == 0 {
		t.Fatal("expected nonempty encoded output")
	}
}

func TestEndToEndSizedArithmetic(t *testing.T) {
	src := `fn f() -> i64 {
	let a: i8 = 10
	let b: i64 = 1000000
	return b + a
}`
	code, _ := compileToFuncs(t, src, Platform{Arch: ArchX86_64, OS: OSLinux})
	if len(code) == 0 {
		t.Fatal("expected nonempty encoded output for mixed-width arithmetic")
	}
}

func TestEndToEndVariableShift(t *testing.T) {
	src := `fn shiftBy(x: i32, n: i32) -> i32 {
	return x << n
}`
	code, _ := compileToFuncs(t, src, Platform{Arch: ArchX86_64, OS: OSLinux})
	if len(code) == 0 {
		t.Fatal("expected nonempty encoded output for a variable-amount shift")
	}
}

func TestEndToEndRecursiveFactorial(t *testing.T) {
	src := `fn fact(n: i64) -> i64 {
	if n <= 1 {
		return 1
	}
	return n * fact(n - 1)
}`
	code, _ := compileToFuncs(t, src, Platform{Arch: ArchX86_64, OS: OSLinux})
	if len(code) == 0 {
		t.Fatal("expected nonempty encoded output for recursive call")
	}
}

func TestEndToEndELF64Container(t *testing.T) {
	src := `fn main() -> i32 { return 0 }`
	code, pool := compileToFuncs(t, src, Platform{Arch: ArchX86_64, OS: OSLinux})
	offsets, size := pool.Layout()
	rodata := make([]byte, size)
	for i := range offsets {
		copy(rodata[offsets[i]:], pool.Bytes(i))
	}
	img, err := WriteELF64(code, rodata, nil)
	if err != nil {
		t.Fatalf("ELF writer error: %v", err)
	}
	if img[0] != 0x7f || img[1] != 'E' || img[2] != 'L' || img[3] != 'F' {
		t.Fatalf("expected ELF magic, got %v", img[:4])
	}
}

func TestEndToEndBootSectorSignature(t *testing.T) {
	code, _ := compileToFuncs(t, `fn main() -> i32 { return 0 }`, Platform{Arch: ArchX86_64, OS: OSLinux, Mode: "raw"})
	img, err := WriteBootSector(code, nil)
	if err != nil {
		t.Fatalf("boot sector writer error: %v", err)
	}
	if len(img) != 512 {
		t.Fatalf("expected a 512-byte boot sector, got %d", len(img))
	}
	if img[510] != 0x55 || img[511] != 0xAA {
		t.Fatalf("expected 0x55AA signature at bytes 510-511, got %02x%02x", img[510], img[511])
	}
}
