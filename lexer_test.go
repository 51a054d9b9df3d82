package main

import "testing"

func tokenKinds(toks []Token) []TokenKind {
	kinds := make([]TokenKind, len(toks))
	for i, t := range toks {
		kinds[i] = t.Kind
	}
	return kinds
}

func TestLexerBasicTokens(t *testing.T) {
	src := "fn main() -> i32 {\n\treturn 42\n}\n"
	lex := NewLexer([]byte(src), "test.ad")
	toks := lex.Tokenize()
	if errs := lex.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if len(toks) == 0 {
		t.Fatal("expected at least one token")
	}
	if toks[len(toks)-1].Kind != TokEOF {
		t.Fatalf("expected stream to end with TokEOF, got %v", toks[len(toks)-1].Kind)
	}
}

func TestLexerIndentationBlock(t *testing.T) {
	src := "def f():\n\tx := 1\n\treturn x\n"
	lex := NewLexer([]byte(src), "test.ad")
	toks := lex.Tokenize()
	if errs := lex.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	foundIndent, foundDedent := false, false
	for _, k := range tokenKinds(toks) {
		if k == TokIndent {
			foundIndent = true
		}
		if k == TokDedent {
			foundDedent = true
		}
	}
	if !foundIndent || !foundDedent {
		t.Fatalf("expected matching INDENT/DEDENT tokens, got %v", tokenKinds(toks))
	}
}

func TestLexerStringEscapes(t *testing.T) {
	lex := NewLexer([]byte(`"a\nb"`), "test.ad")
	toks := lex.Tokenize()
	if errs := lex.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if len(toks) < 1 || toks[0].Kind != TokString {
		t.Fatalf("expected a string token, got %v", tokenKinds(toks))
	}
	if toks[0].Lexeme != "a\nb" {
		t.Fatalf("expected escape to decode to %q, got %q", "a\nb", toks[0].Lexeme)
	}
}

func TestLexerNumberRadix(t *testing.T) {
	lex := NewLexer([]byte("0xFF 0b101 10"), "test.ad")
	toks := lex.Tokenize()
	if errs := lex.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	var nums []Token
	for _, tok := range toks {
		if tok.Kind == TokInt {
			nums = append(nums, tok)
		}
	}
	if len(nums) != 3 {
		t.Fatalf("expected 3 integer literals, got %d", len(nums))
	}
	if nums[0].Radix != 16 || nums[1].Radix != 2 || nums[2].Radix != 10 {
		t.Fatalf("unexpected radixes: %+v", nums)
	}
}
