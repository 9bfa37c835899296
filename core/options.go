// options.go - Construction-time configuration and policy selection

/*
options.go holds Options, the single value NewState consumes to build a
machine: the initial PC, the memory regions and devices to wire onto the
bus, and the two policy switches - ISA and Observer - resolved once at
construction and never re-examined mid-run, rather than threaded through
every function signature.
*/

package core

// ISA selects the base instruction set plus optional extensions this
// machine executes.
type ISA int

const (
	ISARV32I ISA = iota
	ISARV32IM
)

// HasM reports whether this ISA selection includes the M (multiply/divide)
// extension.
func (i ISA) HasM() bool { return i == ISARV32IM }

// ObserverKind selects how much bus observation a machine is built with:
// the zero-overhead fast path, used as the device-under-test side of a
// differential test, or the MMIO-accurate path that notifies the tracer on
// every load/store, used as the reference side.
type ObserverKind int

const (
	ObserverFast ObserverKind = iota
	ObserverMMIO
)

// DeviceSpec names a device to construct and attach at a base address. The
// concrete Device implementation is resolved by Name via NewDeviceByName.
type DeviceSpec struct {
	Name string
	Base uint32
}

// Options configures a single machine instance. It is assembled by the CLI
// layer from parsed flags (or directly by tests) and consumed once by
// NewState; nothing in State re-reads it afterward.
type Options struct {
	InitPC uint32

	Regions []MemRegionSpec
	Devices []DeviceSpec

	ISA           ISA
	Observer      ObserverKind
	RegisterCount int // 32 for RV32I, 16 for RV32E; 0 defaults to 32

	// OnFenceI is invoked unconditionally when a FENCE.I instruction
	// retires; the default is a no-op. Tests may substitute a counting
	// stub.
	OnFenceI func()

	// Tracer receives per-step notifications (fetch disassembly) and bus
	// observation callbacks (load/store) when Observer == ObserverMMIO.
	// A nil Tracer is treated as NopTracer{}.
	Tracer Tracer
}

// DefaultInitPC is the reset vector every built-in image and CLI default
// boots from.
const DefaultInitPC uint32 = 0x8000_0000

// registerCount resolves the configured GPR count, defaulting to 32.
func (o Options) registerCount() int {
	if o.RegisterCount == 0 {
		return 32
	}
	return o.RegisterCount
}

// NewDeviceByName constructs one of this core's built-in devices by name.
// uart writes to out; the finisher device carries no state.
func NewDeviceByName(name string, out interface{ Write([]byte) (int, error) }) (Device, bool) {
	switch name {
	case "uart_simple", "uart16550":
		return NewUartSimple(out), true
	case "sifive_test_finisher":
		return NewSifiveTestFinisher(), true
	default:
		return nil, false
	}
}
