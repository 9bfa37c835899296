// step.go - Single-step execution and the run-until-halt harness

/*
step.go implements the retirement loop: one retired instruction per Step()
call (fetch, decode, execute, count, notify tracer), and Run(), which
repeats Step() either a bounded number of times or until something
terminal happens, checking the shared cancellation flag between every
retirement - never mid-instruction.
*/

package core

import "sync/atomic"

// Step retires exactly one instruction: it fetches the word at the
// current pc, decodes it, executes it, and advances the instruction/cycle
// counters. It returns a non-nil error only for the two terminal fault
// kinds (ProgramExit, IoError); every architectural trap (misaligned or
// faulting fetch, illegal instruction, access fault) is applied directly
// to the register file and Step returns nil, since the trap entry itself
// is the retirement's visible effect.
func (s *State) Step() error {
	pc := s.Reg.PC()

	// A jump can land pc on a 2-byte boundary (bit 1 of imm_j/imm_b is a
	// live immediate bit); the fetch path requires 4-byte alignment.
	if pc&0x3 != 0 {
		s.Cycles++
		s.Instructions++
		s.trapMisalignedFetch(pc)
		return nil
	}

	word, err := s.fetch(pc)
	if err != nil {
		s.Cycles++
		s.Instructions++
		if terminal(err) {
			return err
		}
		s.trapAccessFault(AccessFetch, pc, pc)
		return nil
	}

	d := decode(word, s.isaM)
	if err := s.execute(d, pc); err != nil {
		s.Cycles++
		s.Instructions++
		return err
	}

	s.Cycles++
	s.Instructions++
	return nil
}

// Run repeats Step up to n times, or without bound when n == 0, stopping
// early on a terminal ProgramExit or on observing cancel set to true. The
// cancellation flag is polled once per retirement, never mid-instruction.
// A nil cancel pointer disables cancellation.
func (s *State) Run(n uint64, cancel *atomic.Bool) error {
	var i uint64
	for n == 0 || i < n {
		if cancel != nil && cancel.Load() {
			return Interrupted
		}
		if err := s.Step(); err != nil {
			return err
		}
		i++
	}
	return nil
}
