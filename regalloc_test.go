package main

import "testing"

func TestRegisterAllocatorHandsOutDistinctRegisters(t *testing.T) {
	ra := NewRegisterAllocator()
	seen := make(map[string]bool)
	for i := 0; i < len(AllocatablePool); i++ {
		loc := ra.Alloc()
		if !loc.InReg {
			t.Fatalf("expected allocation %d to come from the register pool", i)
		}
		if seen[loc.Reg.Name] {
			t.Fatalf("register %s handed out twice before any Free", loc.Reg.Name)
		}
		seen[loc.Reg.Name] = true
	}
}

func TestRegisterAllocatorSpillsOnExhaustion(t *testing.T) {
	ra := NewRegisterAllocator()
	for range AllocatablePool {
		ra.Alloc()
	}
	spill := ra.Alloc()
	if spill.InReg {
		t.Fatal("expected the allocator to spill to a stack slot once the pool is exhausted")
	}
	if spill.Offset >= 0 {
		t.Fatalf("expected a negative rbp-relative offset, got %d", spill.Offset)
	}
}

func TestRegisterAllocatorFreeReusesSlot(t *testing.T) {
	ra := NewRegisterAllocator()
	first := ra.Alloc()
	ra.Free(first)
	second := ra.Alloc()
	if second.Reg.Name != first.Reg.Name {
		t.Fatalf("expected Free to return %s to the pool for immediate reuse, got %s", first.Reg.Name, second.Reg.Name)
	}
}

func TestRegisterAllocatorTracksCalleeSaved(t *testing.T) {
	ra := NewRegisterAllocator()
	var gotRBX bool
	for i := 0; i < len(AllocatablePool); i++ {
		loc := ra.Alloc()
		if loc.Reg.Name == "rbx" {
			gotRBX = true
		}
	}
	if !gotRBX {
		t.Skip("rbx wasn't allocated in this pool order; nothing to assert")
	}
	found := false
	for _, r := range ra.UsedCalleeSaved() {
		if r.Name == "rbx" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected rbx to appear in UsedCalleeSaved once allocated")
	}
}
