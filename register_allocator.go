// Completion: 100% - Bump allocator over caller-saved registers with spilling
package main

import "fmt"

// AllocErrorKind enumerates the register allocator's internal failure
// modes (spec §4.5/§4.3's error taxonomy: all of these are compiler bugs,
// not user errors, since lowering is total on a well-typed AST).
type AllocErrorKind int

const (
	AllocFrameOverflow AllocErrorKind = iota
	AllocPoolExhaustedUnexpectedly
)

type AllocError struct {
	Kind    AllocErrorKind
	Message string
}

func (e *AllocError) Error() string { return e.Message }

// Location is what alloc() hands back: either a live register or a stack
// spill slot, per spec §4.5's contract.
type Location struct {
	InReg  bool
	Reg    Reg
	Offset int // negative, relative to rbp, valid when !InReg
}

func (l Location) String() string {
	if l.InReg {
		return l.Reg.Name
	}
	return fmt.Sprintf("[rbp%+d]", l.Offset)
}

// RegisterAllocator is the spec's "simple bump allocator over a pool of
// caller-saved registers reserved for temporaries" (§4.5), replacing the
// original linear-scan design: no live-interval analysis, just a stack
// discipline matching the ISA compiler's left-then-right evaluation order.
type RegisterAllocator struct {
	pool      []Reg
	free      []bool // parallel to pool; true when available
	used      map[uint8]bool // encodings ever handed out, for callee-saved bookkeeping
	spillSize int
	frameSize int // locals_size, set by the ISA compiler before spilling begins
}

// NewRegisterAllocator creates an allocator whose pool is the spec's
// caller-saved temporary set (reg.go's AllocatablePool).
func NewRegisterAllocator() *RegisterAllocator {
	ra := &RegisterAllocator{
		pool: AllocatablePool,
		used: make(map[uint8]bool),
	}
	ra.free = make([]bool, len(ra.pool))
	for i := range ra.free {
		ra.free[i] = true
	}
	return ra
}

// Alloc returns a free register, or a fresh stack spill slot when the
// pool is exhausted (spec §4.5: "On pool exhaustion, temporaries spill to
// stack slots allocated from the current frame").
func (ra *RegisterAllocator) Alloc() Location {
	for i, r := range ra.pool {
		if ra.free[i] {
			ra.free[i] = false
			ra.used[r.Encoding|boolBit(r.NeedsRex)] = true
			return Location{InReg: true, Reg: r}
		}
	}
	ra.spillSize += 8
	offset := -(ra.frameSize + ra.spillSize)
	return Location{InReg: false, Offset: offset}
}

func boolBit(b bool) uint8 {
	if b {
		return 0x80
	}
	return 0
}

// Free returns a register to the pool, or is a no-op for a stack slot
// (spill slots are never reused within one function, keeping frame layout
// simple and deterministic per spec §5).
func (ra *RegisterAllocator) Free(loc Location) {
	if !loc.InReg {
		return
	}
	for i, r := range ra.pool {
		if r.Encoding == loc.Reg.Encoding && r.NeedsRex == loc.Reg.NeedsRex && r.Name == loc.Reg.Name {
			ra.free[i] = true
			return
		}
	}
}

// UsedCalleeSaved returns, in a fixed canonical order, the callee-saved
// registers this allocator ever handed out — the ISA compiler pushes these
// in the prologue and pops them (same order) in the epilogue (spec §4.5).
func (ra *RegisterAllocator) UsedCalleeSaved() []Reg {
	var out []Reg
	for _, r := range CalleeSaved {
		if ra.used[r.Encoding|boolBit(r.NeedsRex)] {
			out = append(out, r)
		}
	}
	return out
}

// SpillSize is the total bytes reserved for anonymous spill slots so far.
func (ra *RegisterAllocator) SpillSize() int { return ra.spillSize }

// SetLocalsSize records the size of named locals so spill slots are
// allocated below them in the frame (spec §4.5's stack-frame layout:
// "saved callee-saved registers, named locals, anonymous spill slots").
func (ra *RegisterAllocator) SetLocalsSize(n int) { ra.frameSize = n }
