// difftest.go - Lockstep differential-test driver

/*
difftest.go drives two State instances in lockstep - the device-under-test
and a reference - stepping each once per round and comparing architectural
state after every step. The reference model is not a second,
independently-written CPU: it is the same interpreter built twice from the
same Options, differing only in ObserverKind.

DifftestRef names the reference a run can be checked against; today there
is exactly one, "remu", parsed case-insensitively.
*/

package core

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
)

// DifftestRef names a reference implementation --difftest can check a run
// against.
type DifftestRef int

const DifftestRemu DifftestRef = iota

// ParseDifftestRef parses a --difftest value, matching case-insensitively.
func ParseDifftestRef(s string) (DifftestRef, error) {
	if strings.EqualFold(s, "remu") {
		return DifftestRemu, nil
	}
	return 0, fmt.Errorf("unknown difftest ref %q, currently supported: remu", s)
}

// Divergence is the first point at which the DUT and reference disagree.
type Divergence struct {
	Step  uint64 // 1-based: the first lockstep round is step 1
	Field string
	DUT   uint32
	Ref   uint32
}

func (d *Divergence) Error() string {
	return fmt.Sprintf("divergence at step %d: field %s: dut=0x%08x ref=0x%08x", d.Step, d.Field, d.DUT, d.Ref)
}

// Report renders a verbose, human-readable diff of the two register files
// at the point of divergence, using go-spew so nested struct fields print
// without hand-rolled formatting.
func (d *Divergence) Report(dut, ref *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", d.Error())
	fmt.Fprintf(&b, "dut registers:\n%s", spew.Sdump(dut.Reg))
	fmt.Fprintf(&b, "ref registers:\n%s", spew.Sdump(ref.Reg))
	return b.String()
}

// DiffDriver steps a DUT and a reference State in lockstep.
type DiffDriver struct {
	DUT *State
	Ref *State
}

// NewDiffDriver pairs an already-constructed DUT and reference. Callers
// build both from identical Options except for ObserverKind.
func NewDiffDriver(dut, ref *State) *DiffDriver {
	return &DiffDriver{DUT: dut, Ref: ref}
}

// Run steps both machines up to maxSteps times (0 = unbounded), comparing
// state after every step. It returns (divergence, nil) on the first
// mismatch, (nil, *ProgramExit) if both sides halt in agreement, and
// (nil, nil) if maxSteps was reached with no divergence. The cancellation
// flag is polled between rounds, at the same whole-instruction granularity
// State.Run polls it; a nil cancel pointer disables cancellation.
func (dd *DiffDriver) Run(maxSteps uint64, cancel *atomic.Bool) (*Divergence, error) {
	var step uint64
	for maxSteps == 0 || step < maxSteps {
		if cancel != nil && cancel.Load() {
			return nil, Interrupted
		}
		step++
		dutErr := dd.DUT.Step()
		refErr := dd.Ref.Step()

		// A fatal error (IoError) on either side ends the run immediately;
		// it is not a divergence to report; it is a condition neither side
		// can recover from, same as a solo Step() caller sees it.
		if dutErr != nil && !isProgramExit(dutErr) {
			return nil, dutErr
		}
		if refErr != nil && !isProgramExit(refErr) {
			return nil, refErr
		}

		dutExit, dutHalted := dutErr.(*ProgramExit)
		refExit, refHalted := refErr.(*ProgramExit)

		switch {
		case dutHalted && refHalted:
			if dutExit.Code == refExit.Code {
				return nil, dutExit
			}
			return &Divergence{Step: step, Field: "exit_code", DUT: uint32(dutExit.Code), Ref: uint32(refExit.Code)}, nil
		case dutHalted && !refHalted:
			return &Divergence{Step: step, Field: "halt", DUT: uint32(dutExit.Code), Ref: 0}, nil
		case !dutHalted && refHalted:
			return &Divergence{Step: step, Field: "halt", DUT: 0, Ref: uint32(refExit.Code)}, nil
		}

		if div := compareState(dd.DUT, dd.Ref, step); div != nil {
			return div, nil
		}
	}
	return nil, nil
}

// isProgramExit reports whether err is a graceful ProgramExit, as opposed
// to a fatal error (IoError) that must abort the comparison outright.
func isProgramExit(err error) bool {
	_, ok := err.(*ProgramExit)
	return ok
}

// compareState compares pc, every GPR, and the CSR subset between dut and
// ref, returning the first field that disagrees, or nil if none do.
func compareState(dut, ref *State, step uint64) *Divergence {
	if dut.Reg.PC() != ref.Reg.PC() {
		return &Divergence{Step: step, Field: "pc", DUT: dut.Reg.PC(), Ref: ref.Reg.PC()}
	}

	n := dut.Reg.Count()
	if ref.Reg.Count() < n {
		n = ref.Reg.Count()
	}
	for i := 0; i < n; i++ {
		dv := dut.Reg.ReadGPR(uint32(i))
		rv := ref.Reg.ReadGPR(uint32(i))
		if dv != rv {
			return &Divergence{Step: step, Field: fmt.Sprintf("gpr[%d]", i), DUT: dv, Ref: rv}
		}
	}

	for _, csr := range []struct {
		name string
		addr uint32
	}{
		{"mepc", CsrMepc},
		{"mcause", CsrMcause},
		{"mtval", CsrMtval},
		{"mtvec", CsrMtvec},
		{"mstatus", CsrMstatus},
	} {
		dv, _ := dut.Reg.ReadCSR(csr.addr)
		rv, _ := ref.Reg.ReadCSR(csr.addr)
		if dv != rv {
			return &Divergence{Step: step, Field: csr.name, DUT: dv, Ref: rv}
		}
	}

	return nil
}
