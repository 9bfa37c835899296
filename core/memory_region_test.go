package core

import "testing"

func TestNewMemoryRegionPanicsOnBadBounds(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when end <= base")
		}
	}()
	NewMemoryRegion("bad", 0x1000, 0x1000)
}

func TestNewMemoryRegionPanicsOnUnalignedBase(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for a base not aligned to 4 bytes")
		}
	}()
	NewMemoryRegion("bad", 0x1002, 0x2000)
}

func TestNewMemoryRegionDefaultsToRWX(t *testing.T) {
	r := NewMemoryRegion("ram", 0, 0x100)
	if r.Flags != FlagR|FlagW|FlagX {
		t.Fatalf("Flags = %b, want R|W|X", r.Flags)
	}
}

// read8(write8(addr,v)) == v for every in-bounds addr.
func TestByteRoundTrip(t *testing.T) {
	r := NewMemoryRegion("ram", 0, 0x100)
	if err := r.Write8(0x10, 0xAB); err != nil {
		t.Fatalf("Write8: %v", err)
	}
	v, err := r.Read8(0x10)
	if err != nil {
		t.Fatalf("Read8: %v", err)
	}
	if v != 0xAB {
		t.Fatalf("Read8 = 0x%x, want 0xAB", v)
	}
}

func TestHalfwordAndWordRoundTrip(t *testing.T) {
	r := NewMemoryRegion("ram", 0, 0x100)
	if err := r.Write16(4, 0xBEEF); err != nil {
		t.Fatalf("Write16: %v", err)
	}
	h, err := r.Read16(4)
	if err != nil || h != 0xBEEF {
		t.Fatalf("Read16 = (0x%x, %v), want (0xBEEF, nil)", h, err)
	}

	if err := r.Write32(8, 0xDEADBEEF); err != nil {
		t.Fatalf("Write32: %v", err)
	}
	w, err := r.Read32(8)
	if err != nil || w != 0xDEADBEEF {
		t.Fatalf("Read32 = (0x%x, %v), want (0xDEADBEEF, nil)", w, err)
	}
}

// A write that ends exactly at the region boundary succeeds; one byte
// further faults OutOfBounds.
func TestWriteAtBoundary(t *testing.T) {
	r := NewMemoryRegion("ram", 0, 0x10)
	if err := r.Write8(0x0F, 0x01); err != nil {
		t.Fatalf("Write8 at last valid offset should succeed: %v", err)
	}
	if err := r.Write8(0x10, 0x01); err == nil {
		t.Fatal("Write8 one past the end should fault")
	} else if _, ok := err.(*OutOfBounds); !ok {
		t.Fatalf("expected *OutOfBounds, got %T", err)
	}
}

func TestStraddlingAccessFaults(t *testing.T) {
	r := NewMemoryRegion("ram", 0, 0x10)
	if _, err := r.Read32(0x0E); err == nil {
		t.Fatal("a 4-byte read straddling the end should fault")
	} else if ob, ok := err.(*OutOfBounds); !ok {
		t.Fatalf("expected *OutOfBounds, got %T", err)
	} else if ob.Kind != AccessLoad {
		t.Errorf("Kind = %v, want AccessLoad", ob.Kind)
	}
}

func TestLoadBytesFaultsOnOverflow(t *testing.T) {
	r := NewMemoryRegion("ram", 0, 0x8)
	if err := r.LoadBytes(0, make([]byte, 8)); err != nil {
		t.Fatalf("LoadBytes exactly filling the region should succeed: %v", err)
	}
	if err := r.LoadBytes(1, make([]byte, 8)); err == nil {
		t.Fatal("LoadBytes overflowing the region should fault")
	}
}

func TestSize(t *testing.T) {
	r := NewMemoryRegion("ram", 0x1000, 0x2000)
	if got := r.Size(); got != 0x1000 {
		t.Fatalf("Size = 0x%x, want 0x1000", got)
	}
}
