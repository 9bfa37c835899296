package core

import "testing"

// gpr[0] == 0 at every observable point.
func TestX0AlwaysZero(t *testing.T) {
	r := NewRegisters(32)
	r.WriteGPR(0, 0xDEADBEEF)
	if got := r.ReadGPR(0); got != 0 {
		t.Fatalf("ReadGPR(0) = 0x%x, want 0", got)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	r := NewRegisters(32)
	for i := uint32(1); i < 32; i++ {
		r.WriteGPR(i, i*0x11111111)
	}
	for i := uint32(1); i < 32; i++ {
		if got := r.ReadGPR(i); got != i*0x11111111 {
			t.Errorf("ReadGPR(%d) = 0x%x, want 0x%x", i, got, i*0x11111111)
		}
	}
}

func TestOutOfRangeRegisterReadsZero(t *testing.T) {
	r := NewRegisters(16) // RV32E
	if r.InRange(16) {
		t.Fatal("register 16 should be out of range for a 16-register file")
	}
	if got := r.ReadGPR(16); got != 0 {
		t.Fatalf("ReadGPR(16) = 0x%x, want 0 for an out-of-range register", got)
	}
	r.WriteGPR(16, 0x1234) // must be a no-op, not a panic
}

func TestPCAdvanceWraps(t *testing.T) {
	r := NewRegisters(32)
	r.SetPC(0xFFFFFFFE)
	r.AdvancePC(4)
	if got := r.PC(); got != 2 {
		t.Fatalf("PC after wrap = 0x%x, want 0x2", got)
	}
}

func TestCSRReadWrite(t *testing.T) {
	r := NewRegisters(32)
	if !r.WriteCSR(CsrMtvec, 0x80001000) {
		t.Fatal("WriteCSR(mtvec) should succeed")
	}
	v, ok := r.ReadCSR(CsrMtvec)
	if !ok || v != 0x80001000 {
		t.Fatalf("ReadCSR(mtvec) = (0x%x, %v), want (0x80001000, true)", v, ok)
	}
	if _, ok := r.ReadCSR(0xFFF); ok {
		t.Fatal("ReadCSR of an unimplemented address should report ok=false")
	}
	if r.WriteCSR(0xFFF, 1) {
		t.Fatal("WriteCSR of an unimplemented address should report false")
	}
}

func TestMtvecBaseMasksModeBits(t *testing.T) {
	r := NewRegisters(32)
	r.WriteCSR(CsrMtvec, 0x80001003)
	if got := r.MtvecBase(); got != 0x80001000 {
		t.Fatalf("MtvecBase = 0x%x, want 0x80001000", got)
	}
}

func TestEnterTrapUpdatesCSRsAndPC(t *testing.T) {
	r := NewRegisters(32)
	r.WriteCSR(CsrMtvec, 0x80000100)
	r.WriteCSR(CsrMstatus, mstatusMIE)

	r.EnterTrap(0x80000004, McauseIllegalInstruction, 0)

	if v, _ := r.ReadCSR(CsrMepc); v != 0x80000004 {
		t.Errorf("mepc = 0x%x, want 0x80000004", v)
	}
	if v, _ := r.ReadCSR(CsrMcause); v != McauseIllegalInstruction {
		t.Errorf("mcause = %d, want %d", v, McauseIllegalInstruction)
	}
	if v, _ := r.ReadCSR(CsrMtval); v != 0 {
		t.Errorf("mtval = 0x%x, want 0", v)
	}
	if got := r.PC(); got != 0x80000100 {
		t.Errorf("pc = 0x%x, want 0x80000100", got)
	}
	mstatus, _ := r.ReadCSR(CsrMstatus)
	if mstatus&mstatusMIE != 0 {
		t.Error("MIE should be cleared on trap entry")
	}
	if mstatus&mstatusMPIE == 0 {
		t.Error("MPIE should carry the prior MIE value on trap entry")
	}
}

func TestApplyMretRestoresPCAndMIE(t *testing.T) {
	r := NewRegisters(32)
	r.WriteCSR(CsrMstatus, mstatusMIE)
	r.EnterTrap(0x80000004, McauseBreakpoint, 0)
	r.ApplyMret()

	if got := r.PC(); got != 0x80000004 {
		t.Fatalf("pc after mret = 0x%x, want 0x80000004", got)
	}
	mstatus, _ := r.ReadCSR(CsrMstatus)
	if mstatus&mstatusMIE == 0 {
		t.Error("MIE should be restored from MPIE on mret")
	}
}
