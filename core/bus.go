// bus.go - Address-routed dispatch to memory regions and devices

/*
bus.go is the MMU of this core: a flat, sorted list of endpoints - memory
regions and devices - each owning a disjoint address range, with
width-checked dispatch and typed faults. An address outside every endpoint
reports Unmapped, and a read that straddles the end of its region reports
OutOfBounds rather than silently wrapping or spilling into a neighbor.

Endpoint disjointness is checked once, at construction, by sorting
endpoints by base address and comparing each against its neighbor: it is a
configuration invariant, not something any guest instruction stream can
violate, so a violation is reported as a construction error rather than
deferred to first access.
*/

package core

import (
	"fmt"
	"sort"
)

// MemRegionSpec describes one RAM region to be created when the bus is built.
type MemRegionSpec struct {
	Name string
	Base uint32
	End  uint32 // exclusive
}

// DeviceConfig attaches an already-constructed Device at a base address.
type DeviceConfig struct {
	Name   string
	Base   uint32
	Device Device
}

// endpoint is either a memory region or a device, addressed by [base, end).
type endpoint struct {
	name   string
	base   uint32
	end    uint32
	region *MemoryRegion
	device Device
}

// Bus routes addressed accesses to exactly one of its endpoints.
type Bus struct {
	endpoints []endpoint
	regions   map[string]*MemoryRegion
}

// NewBus constructs a bus from a region spec list and a device config list.
// It allocates one MemoryRegion per spec, attaches each device at its
// configured base, sorts all endpoints by base address, and verifies they
// are pairwise disjoint. An overlap is not a guest-triggerable fault but a
// broken construction-time invariant, so it is reported as *Fatal rather
// than an ordinary error.
func NewBus(regions []MemRegionSpec, devices []DeviceConfig) (*Bus, error) {
	b := &Bus{regions: make(map[string]*MemoryRegion, len(regions))}

	for _, spec := range regions {
		r := NewMemoryRegion(spec.Name, spec.Base, spec.End)
		b.regions[spec.Name] = r
		b.endpoints = append(b.endpoints, endpoint{
			name:   spec.Name,
			base:   spec.Base,
			end:    spec.End,
			region: r,
		})
	}
	for _, dev := range devices {
		b.endpoints = append(b.endpoints, endpoint{
			name:   dev.Name,
			base:   dev.Base,
			end:    dev.Base + dev.Device.Size(),
			device: dev.Device,
		})
	}

	sort.Slice(b.endpoints, func(i, j int) bool { return b.endpoints[i].base < b.endpoints[j].base })

	for i := 1; i < len(b.endpoints); i++ {
		prev, cur := b.endpoints[i-1], b.endpoints[i]
		if cur.base < prev.end {
			return nil, &Fatal{Reason: fmt.Sprintf("overlapping bus endpoints %q [0x%08X,0x%08X) and %q [0x%08X,0x%08X)",
				prev.name, prev.base, prev.end, cur.name, cur.base, cur.end)}
		}
	}

	return b, nil
}

// route returns a pointer to the endpoint covering addr, or nil.
func (b *Bus) route(addr uint32) *endpoint {
	// Endpoints are few (single digits to low tens); a linear scan over a
	// sorted slice is simpler than a binary search and plenty fast enough
	// for an interpreter whose bottleneck is decode/execute, not routing.
	for i := range b.endpoints {
		e := &b.endpoints[i]
		if addr >= e.base && addr < e.end {
			return e
		}
	}
	return nil
}

// Region looks up a constructed memory region by its configured name, for
// callers (the loader) that need to blit bytes directly into RAM.
func (b *Bus) Region(name string) (*MemoryRegion, bool) {
	r, ok := b.regions[name]
	return r, ok
}

// Read reads a width-byte (1, 2 or 4) little-endian value at addr.
func (b *Bus) Read(addr uint32, width uint32) (uint32, error) {
	e := b.route(addr)
	if e == nil {
		return 0, &Unmapped{Addr: addr}
	}
	offset := addr - e.base
	if e.region != nil {
		return b.readRegion(e, offset, width)
	}
	return b.readDevice(e, offset, width)
}

func (b *Bus) readRegion(e *endpoint, offset, width uint32) (uint32, error) {
	switch width {
	case 1:
		v, err := e.region.Read8(offset)
		return uint32(v), err
	case 2:
		v, err := e.region.Read16(offset)
		return uint32(v), err
	case 4:
		return e.region.Read32(offset)
	default:
		panic("core: unsupported bus access width")
	}
}

func (b *Bus) readDevice(e *endpoint, offset, width uint32) (uint32, error) {
	switch width {
	case 1:
		v, err := e.device.Read8(offset)
		return uint32(v), err
	case 2:
		v, err := e.device.Read16(offset)
		return uint32(v), err
	case 4:
		return e.device.Read32(offset)
	default:
		panic("core: unsupported bus access width")
	}
}

// Write writes a width-byte (1, 2 or 4) little-endian value to addr.
func (b *Bus) Write(addr uint32, width uint32, value uint32) error {
	e := b.route(addr)
	if e == nil {
		return &Unmapped{Addr: addr}
	}
	offset := addr - e.base
	if e.region != nil {
		return b.writeRegion(e, offset, width, value)
	}
	return b.writeDevice(e, offset, width, value)
}

func (b *Bus) writeRegion(e *endpoint, offset, width, value uint32) error {
	switch width {
	case 1:
		return e.region.Write8(offset, uint8(value))
	case 2:
		return e.region.Write16(offset, uint16(value))
	case 4:
		return e.region.Write32(offset, value)
	default:
		panic("core: unsupported bus access width")
	}
}

func (b *Bus) writeDevice(e *endpoint, offset, width, value uint32) error {
	switch width {
	case 1:
		return e.device.Write8(offset, uint8(value))
	case 2:
		return e.device.Write16(offset, uint16(value))
	case 4:
		return e.device.Write32(offset, value)
	default:
		panic("core: unsupported bus access width")
	}
}

// MemMapEntry is one row of the bus's endpoint snapshot, used for display.
type MemMapEntry struct {
	Name string
	Base uint32
	End  uint32
}

// MemMap returns a snapshot of every endpoint's name and bounds, in
// ascending address order.
func (b *Bus) MemMap() []MemMapEntry {
	out := make([]MemMapEntry, len(b.endpoints))
	for i, e := range b.endpoints {
		out[i] = MemMapEntry{Name: e.name, Base: e.base, End: e.end}
	}
	return out
}
