// state.go - Machine state: register file + bus + tracer, wired from Options

/*
state.go is where a configured Options value becomes a runnable machine.
State owns exactly three things: one register file, one bus, and a tracer
handle. Construction builds the bus once (regions and devices are
immutable afterward - only their contents change) and resolves the
ISA/Observer policy fields into plain values state.go and execute.go
consult directly.
*/

package core

import "fmt"

// State is one machine instance: register file, bus, tracer, and the
// resolved policy/counters the step loop and executor consult.
type State struct {
	Reg *Registers
	Bus *Bus

	isaM     bool
	observer ObserverKind
	onFenceI func()
	tracer   Tracer

	Cycles       uint64
	Instructions uint64
}

// NewState builds a machine from opts: allocates the register file at the
// configured width, builds the bus from the region/device specs (resolving
// device names via NewDeviceByName), and sets pc to opts.InitPC.
func NewState(opts Options, uartOut interface{ Write([]byte) (int, error) }) (*State, error) {
	var deviceConfigs []DeviceConfig
	for _, d := range opts.Devices {
		dev, ok := NewDeviceByName(d.Name, uartOut)
		if !ok {
			return nil, fmt.Errorf("core: unknown device %q", d.Name)
		}
		deviceConfigs = append(deviceConfigs, DeviceConfig{Name: d.Name, Base: d.Base, Device: dev})
	}

	bus, err := NewBus(opts.Regions, deviceConfigs)
	if err != nil {
		return nil, err
	}

	reg := NewRegisters(opts.registerCount())
	reg.SetPC(opts.InitPC)

	onFenceI := opts.OnFenceI
	if onFenceI == nil {
		onFenceI = func() {}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = NopTracer{}
	}

	return &State{
		Reg:      reg,
		Bus:      bus,
		isaM:     opts.ISA.HasM(),
		observer: opts.Observer,
		onFenceI: onFenceI,
		tracer:   tracer,
	}, nil
}

// fetch reads the 4-byte instruction word at addr and always notifies the
// tracer - disassembly tracing is available regardless of observer policy.
func (s *State) fetch(addr uint32) (uint32, error) {
	word, err := s.Bus.Read(addr, 4)
	if err == nil {
		s.tracer.OnFetch(addr, word)
	}
	return word, err
}

// load reads width bytes at addr and, under the MMIO observer policy,
// notifies the tracer of the access.
func (s *State) load(addr, width uint32) (uint32, error) {
	v, err := s.Bus.Read(addr, width)
	if err == nil && s.observer == ObserverMMIO {
		s.tracer.OnLoad(addr, width, v)
	}
	return v, err
}

// store writes width bytes at addr and, under the MMIO observer policy,
// notifies the tracer of the access.
func (s *State) store(addr, width, value uint32) error {
	err := s.Bus.Write(addr, width, value)
	if err == nil && s.observer == ObserverMMIO {
		s.tracer.OnStore(addr, width, value)
	}
	return err
}

// trapIllegalInstruction enters the illegal-instruction trap at the given
// faulting pc. Used for the UNKNOWN decode, an out-of-range register
// reference under RV32E, and an unrecognized CSR address.
func (s *State) trapIllegalInstruction(faultPC uint32) {
	s.Reg.EnterTrap(faultPC, McauseIllegalInstruction, 0)
}

// trapMisalignedFetch enters the misaligned-instruction trap for a fetch
// from a pc that is not 4-byte aligned, with mtval carrying the pc itself.
func (s *State) trapMisalignedFetch(pc uint32) {
	s.Reg.EnterTrap(pc, McauseInstructionAddressMisaligned, pc)
}

// trapAccessFault enters the access-fault trap corresponding to kind at
// the given faulting pc, with mtval carrying the faulting address.
func (s *State) trapAccessFault(kind AccessKind, faultPC uint32, addr uint32) {
	cause := McauseLoadAccessFault
	switch kind {
	case AccessFetch:
		cause = McauseInstructionAccessFault
	case AccessStore:
		cause = McauseStoreAccessFault
	}
	s.Reg.EnterTrap(faultPC, cause, addr)
}

// checkRegRange reports whether every register field decoded uses a number
// valid under the active RV32E/RV32I width; out-of-range references raise
// IllegalInstruction rather than read/write out of bounds. For
// CSRRWI/CSRRSI/CSRRCI, Rs1 holds a 5-bit uimm rather than a register
// number (inst.go's Csr/Rs1 field doc), so it is excluded from this check -
// a uimm of 16..31 is a perfectly valid immediate even under RV32E's
// 16-register file, not an out-of-range register reference.
func (s *State) checkRegRange(d *DecodedInst) bool {
	rs1IsRegister := d.Kind != InstCsrrwi && d.Kind != InstCsrrsi && d.Kind != InstCsrrci
	return s.Reg.InRange(d.Rd) && (!rs1IsRegister || s.Reg.InRange(d.Rs1)) && s.Reg.InRange(d.Rs2)
}
