// Package phys models the machine's physical memory: a byte-addressable
// space, the bootloader-reported memory map, and the frame allocator that
// hands out 4KiB frames from a usable window.
package phys

import (
	"github.com/osdevkit/memcore/internal/buf"
	"github.com/osdevkit/memcore/internal/membuf"
	"github.com/osdevkit/memcore/mem"
)

// FrameSize is the fixed physical frame granularity.
const FrameSize = 4096

// Memory is the simulated physical address space. Physical address P maps
// to data[P]; the boot-supplied physical-to-virtual offset is carried along
// for reporting since the hosted model accesses bytes directly.
type Memory struct {
	data   []byte
	offset uint64
}

// NewMemory maps size bytes of anonymous memory as the physical space and
// returns it with a release function.
func NewMemory(size int, physOffset uint64) (*Memory, func() error, error) {
	data, release, err := membuf.Alloc(size)
	if err != nil {
		return nil, nil, err
	}
	return &Memory{data: data, offset: physOffset}, release, nil
}

// FromBytes wraps an existing buffer as physical memory. Used by tests to
// run over small scratch spaces.
func FromBytes(data []byte, physOffset uint64) *Memory {
	return &Memory{data: data, offset: physOffset}
}

// Size returns the size of the physical space in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Offset returns the boot-supplied physical-to-virtual offset.
func (m *Memory) Offset() uint64 {
	return m.offset
}

// Slice returns the n bytes at physical address p, or false when the range
// escapes the space.
func (m *Memory) Slice(p, n uint64) ([]byte, bool) {
	return buf.Slice(m.data, int(p), int(n))
}

// ReadU64 reads the little-endian word at physical address p.
func (m *Memory) ReadU64(p uint64) uint64 {
	b, ok := m.Slice(p, 8)
	if !ok {
		return 0
	}
	return buf.U64LE(b)
}

// WriteU64 writes v as a little-endian word at physical address p.
func (m *Memory) WriteU64(p, v uint64) {
	b, ok := m.Slice(p, 8)
	if !ok {
		return
	}
	buf.PutU64LE(b, v)
}

// Zero clears n bytes at physical address p. Out-of-range requests are
// clipped to nothing.
func (m *Memory) Zero(p, n uint64) {
	b, ok := m.Slice(p, n)
	if !ok {
		return
	}
	clear(b)
}

// Region exposes [base, base+size) of the space as a heap arena.
func (m *Memory) Region(base, size uint64) (mem.Region, error) {
	b, ok := m.Slice(base, size)
	if !ok {
		return mem.Region{}, mem.ErrInvalidAddress
	}
	return mem.NewRegion(base, b)
}
