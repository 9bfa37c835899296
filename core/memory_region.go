// memory_region.go - Contiguous byte-addressable RAM region

/*
memory_region.go implements the storage-backed half of a bus endpoint: a
contiguous `[base, end)` byte range with bounds-checked 8/16/32-bit
little-endian access. 16/32-bit accesses are byte-composite reads/writes
rather than requiring natural alignment; alignment is not enforced at the
region level.
*/

package core

import "encoding/binary"

// RegionFlags is the R/W/X permission bitset a region carries. The bus does
// not consult it on access; this core defines no permission faults.
type RegionFlags uint8

const (
	FlagR RegionFlags = 1 << iota
	FlagW
	FlagX
)

// MemoryRegion is a single contiguous range of guest-addressable RAM.
type MemoryRegion struct {
	Name  string
	Base  uint32
	End   uint32 // exclusive
	Flags RegionFlags
	bytes []byte
}

// NewMemoryRegion allocates a zeroed region covering [base, end), with all
// of R/W/X set. base must be 4-byte aligned and end must exceed base; both
// are construction-time invariants, not guest-reachable faults.
func NewMemoryRegion(name string, base, end uint32) *MemoryRegion {
	if end <= base {
		panic("core: memory region end must be greater than base: " + name)
	}
	if base&0x3 != 0 {
		panic("core: memory region base must be 4-byte aligned: " + name)
	}
	return &MemoryRegion{
		Name:  name,
		Base:  base,
		End:   end,
		Flags: FlagR | FlagW | FlagX,
		bytes: make([]byte, end-base),
	}
}

// Size returns the region's length in bytes.
func (m *MemoryRegion) Size() uint32 { return uint32(len(m.bytes)) }

func (m *MemoryRegion) checkBounds(kind AccessKind, offset, width uint32) error {
	if uint64(offset)+uint64(width) > uint64(len(m.bytes)) {
		return &OutOfBounds{
			Kind:   kind,
			Addr:   m.Base + offset,
			Size:   width,
			Region: m.Name,
			Base:   m.Base,
			End:    m.End,
		}
	}
	return nil
}

// Read8 reads one byte at the region-relative offset.
func (m *MemoryRegion) Read8(offset uint32) (uint8, error) {
	if err := m.checkBounds(AccessLoad, offset, 1); err != nil {
		return 0, err
	}
	return m.bytes[offset], nil
}

// Read16 reads a little-endian halfword at the region-relative offset.
func (m *MemoryRegion) Read16(offset uint32) (uint16, error) {
	if err := m.checkBounds(AccessLoad, offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.bytes[offset : offset+2]), nil
}

// Read32 reads a little-endian word at the region-relative offset.
func (m *MemoryRegion) Read32(offset uint32) (uint32, error) {
	if err := m.checkBounds(AccessLoad, offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.bytes[offset : offset+4]), nil
}

// Write8 writes one byte at the region-relative offset.
func (m *MemoryRegion) Write8(offset uint32, v uint8) error {
	if err := m.checkBounds(AccessStore, offset, 1); err != nil {
		return err
	}
	m.bytes[offset] = v
	return nil
}

// Write16 writes a little-endian halfword at the region-relative offset.
func (m *MemoryRegion) Write16(offset uint32, v uint16) error {
	if err := m.checkBounds(AccessStore, offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.bytes[offset:offset+2], v)
	return nil
}

// Write32 writes a little-endian word at the region-relative offset.
func (m *MemoryRegion) Write32(offset uint32, v uint32) error {
	if err := m.checkBounds(AccessStore, offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.bytes[offset:offset+4], v)
	return nil
}

// LoadBytes blits data into the region starting at offset, faulting
// OutOfBounds if it would overflow the region.
func (m *MemoryRegion) LoadBytes(offset uint32, data []byte) error {
	if err := m.checkBounds(AccessStore, offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.bytes[offset:], data)
	return nil
}
