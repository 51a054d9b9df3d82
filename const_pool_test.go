package main

import "testing"

func TestStringPoolDedups(t *testing.T) {
	p := NewStringPool()
	id1 := p.InternString("hello")
	id2 := p.InternString("hello")
	if id1 != id2 {
		t.Fatalf("expected interning the same string twice to return the same id, got %d and %d", id1, id2)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 pooled entry, got %d", p.Len())
	}
}

func TestStringPoolPreservesInsertionOrder(t *testing.T) {
	p := NewStringPool()
	p.InternString("b")
	p.InternString("a")
	offsets, _ := p.Layout()
	if offsets[0] >= offsets[1] {
		t.Fatalf("expected the first-interned entry to come first in layout, got offsets %v", offsets)
	}
}

func TestStringPoolFloatAlignment(t *testing.T) {
	p := NewStringPool()
	p.InternString("x") // 2 bytes, forces the float below off an 8-byte boundary if unaligned
	p.InternFloat(3.14)
	offsets, total := p.Layout()
	if offsets[1]%8 != 0 {
		t.Fatalf("expected the float entry's offset to be 8-byte aligned, got %d", offsets[1])
	}
	if total < offsets[1]+8 {
		t.Fatalf("expected total layout size to cover the float entry, got %d", total)
	}
}
