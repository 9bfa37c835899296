// registers.go - General-purpose register file, program counter and the CSR subset

/*
registers.go centralizes the architectural register state: the GPR bank,
the program counter, and the small subset of machine-mode CSRs this core
implements (mepc, mcause, mtval, mtvec, mstatus). It is the single place
that enforces the x0-hardwired-to-zero rule - WriteGPR is the only path
that ever mutates a GPR, so no opcode handler has to special-case register
zero itself.

Register count is configurable (32 for RV32I, 16 for RV32E); execute.go
(through State.checkRegRange) rejects references to a register outside
that range as an illegal instruction rather than let it read/write out of
bounds.
*/

package core

// Mcause values for the trap kinds this core raises. Numbering matches the
// standard RISC-V machine-cause encoding for these exception kinds.
const (
	McauseInstructionAddressMisaligned uint32 = 0
	McauseInstructionAccessFault       uint32 = 1
	McauseIllegalInstruction           uint32 = 2
	McauseBreakpoint                   uint32 = 3
	McauseLoadAddressMisaligned        uint32 = 4
	McauseLoadAccessFault              uint32 = 5
	McauseStoreAddressMisaligned       uint32 = 6
	McauseStoreAccessFault             uint32 = 7
	McauseEnvironmentCallFromMMode     uint32 = 11
)

// mstatus bit positions relevant to the trap-entry subset this core tracks.
const (
	mstatusMIE      = 1 << 3
	mstatusMPIE     = 1 << 7
	mstatusMPPShift = 11
	mstatusMPPMask  = 0x3 << mstatusMPPShift
)

// Registers holds one machine's full architectural register state: the GPR
// bank (x0..x31 or x0..x15 for RV32E), the program counter, and the CSR
// subset.
type Registers struct {
	gpr []uint32 // length is RegisterCount; gpr[0] is always 0
	pc  uint32

	mepc    uint32
	mcause  uint32
	mtval   uint32
	mtvec   uint32
	mstatus uint32
}

// NewRegisters allocates a register file with the given GPR count (16 or 32).
func NewRegisters(registerCount int) *Registers {
	return &Registers{gpr: make([]uint32, registerCount)}
}

// Count returns the configured number of general-purpose registers.
func (r *Registers) Count() int { return len(r.gpr) }

// ReadGPR returns the value of register i, or 0 for i==0 and for any i
// outside the configured register count (callers that must distinguish
// "out of range" from "reads zero" use InRange first).
func (r *Registers) ReadGPR(i uint32) uint32 {
	if i == 0 || int(i) >= len(r.gpr) {
		return 0
	}
	return r.gpr[i]
}

// WriteGPR writes value into register i. Writes to x0 are silently
// discarded; this is the only place a GPR is ever assigned, so every
// opcode handler inherits the x0-is-always-zero invariant for free.
func (r *Registers) WriteGPR(i uint32, value uint32) {
	if i == 0 || int(i) >= len(r.gpr) {
		return
	}
	r.gpr[i] = value
}

// InRange reports whether register number i is addressable under the
// current RV32E/RV32I register count.
func (r *Registers) InRange(i uint32) bool {
	return int(i) < len(r.gpr)
}

// PC returns the current program counter.
func (r *Registers) PC() uint32 { return r.pc }

// SetPC overwrites the program counter directly (jumps, traps, mret).
func (r *Registers) SetPC(v uint32) { r.pc = v }

// AdvancePC advances the program counter by delta with 32-bit wraparound.
func (r *Registers) AdvancePC(delta uint32) { r.pc += delta }

// CSR addresses for the subset this core implements.
const (
	CsrMstatus uint32 = 0x300
	CsrMtvec   uint32 = 0x305
	CsrMepc    uint32 = 0x341
	CsrMcause  uint32 = 0x342
	CsrMtval   uint32 = 0x343
)

// ReadCSR returns the value of the CSR at addr, and whether addr names a
// CSR this core implements.
func (r *Registers) ReadCSR(addr uint32) (uint32, bool) {
	switch addr {
	case CsrMstatus:
		return r.mstatus, true
	case CsrMtvec:
		return r.mtvec, true
	case CsrMepc:
		return r.mepc, true
	case CsrMcause:
		return r.mcause, true
	case CsrMtval:
		return r.mtval, true
	default:
		return 0, false
	}
}

// WriteCSR overwrites the CSR at addr, and reports whether addr names a
// CSR this core implements.
func (r *Registers) WriteCSR(addr uint32, value uint32) bool {
	switch addr {
	case CsrMstatus:
		r.mstatus = value
	case CsrMtvec:
		r.mtvec = value
	case CsrMepc:
		r.mepc = value
	case CsrMcause:
		r.mcause = value
	case CsrMtval:
		r.mtval = value
	default:
		return false
	}
	return true
}

// MtvecBase returns mtvec with the low two mode bits masked off.
func (r *Registers) MtvecBase() uint32 { return r.mtvec &^ 0x3 }

// EnterTrap performs the atomic trap-entry state update: it records the
// faulting pc and cause/tval, applies the MIE->MPIE mstatus transition,
// and redirects pc to the trap vector base. There is no distinct
// EnterTrap/ApplyMstatus split in the caller - this is the single commit
// point.
func (r *Registers) EnterTrap(faultPC uint32, cause uint32, tval uint32) {
	r.mepc = faultPC
	r.mcause = cause
	r.mtval = tval
	r.applyTrapEntryMstatus()
	r.pc = r.MtvecBase()
}

// applyTrapEntryMstatus copies MIE into MPIE, clears MIE, and records
// machine mode (the only privilege mode this core models) into MPP.
func (r *Registers) applyTrapEntryMstatus() {
	mie := r.mstatus & mstatusMIE
	r.mstatus &^= mstatusMPIE
	if mie != 0 {
		r.mstatus |= mstatusMPIE
	}
	r.mstatus &^= mstatusMIE
	r.mstatus = (r.mstatus &^ mstatusMPPMask) | (0x3 << mstatusMPPShift)
}

// ApplyMret restores pc from mepc and clears the trap-entry mstatus effect
// (MPIE -> MIE), used by the MRET handler.
func (r *Registers) ApplyMret() {
	r.pc = r.mepc
	mpie := r.mstatus & mstatusMPIE
	r.mstatus &^= mstatusMIE
	if mpie != 0 {
		r.mstatus |= mstatusMIE
	}
	r.mstatus |= mstatusMPIE
}
