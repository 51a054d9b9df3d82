// Completion: 100% - Deterministic, insertion-ordered rodata constant pool
package main

import (
	"encoding/binary"
	"math"
)

// constEntry is one `.rodata` entry: either a NUL-terminated string or an
// 8-byte IEEE754 double, keyed by its encoded bytes so identical literals
// collapse to one entry (spec §4.6's string-deduplication pass, extended
// here to float constants since both need a rip-relative home).
type constEntry struct {
	bytes []byte
}

// StringPool is the per-compilation-unit constant table. Entries are
// appended in first-use order and never reordered, keeping container
// output byte-identical across runs (spec §5: "forbids non-deterministic
// string interning").
type StringPool struct {
	entries []constEntry
	byKey   map[string]int
}

func NewStringPool() *StringPool {
	return &StringPool{byKey: make(map[string]int)}
}

// InternString returns the label id for s's NUL-terminated encoding,
// reusing an existing entry if s was already interned.
func (p *StringPool) InternString(s string) int {
	b := append([]byte(s), 0)
	return p.intern("s:"+s, b)
}

// InternFloat returns the label id for v's 8-byte little-endian encoding.
func (p *StringPool) InternFloat(v float64) int {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return p.intern("f:", append(b[:0:0], b...))
}

func (p *StringPool) intern(key string, b []byte) int {
	if id, ok := p.byKey[key+string(b)]; ok {
		return id
	}
	id := len(p.entries)
	p.entries = append(p.entries, constEntry{bytes: b})
	p.byKey[key+string(b)] = id
	return id
}

// Bytes returns label id's raw bytes.
func (p *StringPool) Bytes(id int) []byte { return p.entries[id].bytes }

// Len reports how many distinct constants are pooled.
func (p *StringPool) Len() int { return len(p.entries) }

// Layout computes each entry's byte offset from the start of the pool,
// in insertion order, with natural alignment so float constants land on
// an 8-byte boundary.
func (p *StringPool) Layout() ([]int, int) {
	offsets := make([]int, len(p.entries))
	off := 0
	for i, e := range p.entries {
		align := 1
		if len(e.bytes) == 8 {
			align = 8
		}
		off = AlignUp(off, align)
		offsets[i] = off
		off += len(e.bytes)
	}
	return offsets, off
}
