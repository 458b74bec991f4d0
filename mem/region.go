package mem

import "github.com/osdevkit/memcore/internal/buf"

// Validate checks that [start, start+size) is a usable memory range:
// non-null start, non-zero size, and a non-overflowing end. Allocators call
// this exactly once, at their init step.
func Validate(start, size uint64) error {
	if start == 0 {
		return ErrInvalidAddress
	}
	if size == 0 {
		return ErrInvalidSize
	}
	if start+size < start {
		return ErrOverflow
	}
	return nil
}

// Region is a [Base, Base+len(Data)) byte range exclusively owned by one
// allocator instance. Base is the address the first byte of Data answers to;
// all word-granular access into the region is bounds-checked and
// little-endian. Overlap between two regions is a caller-level invariant
// this package does not check.
type Region struct {
	Base uint64
	Data []byte
}

// NewRegion validates the range and binds it to the backing bytes.
func NewRegion(base uint64, data []byte) (Region, error) {
	if err := Validate(base, uint64(len(data))); err != nil {
		return Region{}, err
	}
	return Region{Base: base, Data: data}, nil
}

// End returns the exclusive end address of the region.
func (r Region) End() uint64 {
	return r.Base + uint64(len(r.Data))
}

// Contains reports whether [addr, addr+n) lies inside the region.
func (r Region) Contains(addr, n uint64) bool {
	return addr >= r.Base && addr+n >= addr && addr+n <= r.End()
}

// Bytes returns the n bytes at addr, or false when the range escapes the
// region.
func (r Region) Bytes(addr, n uint64) ([]byte, bool) {
	if addr < r.Base {
		return nil, false
	}
	return buf.Slice(r.Data, int(addr-r.Base), int(n))
}

// ReadU64 reads the little-endian word at addr. Out-of-range reads return 0;
// callers validate addresses before trusting the value.
func (r Region) ReadU64(addr uint64) uint64 {
	b, ok := r.Bytes(addr, 8)
	if !ok {
		return 0
	}
	return buf.U64LE(b)
}

// WriteU64 writes v as a little-endian word at addr. Out-of-range writes are
// dropped.
func (r Region) WriteU64(addr, v uint64) {
	b, ok := r.Bytes(addr, 8)
	if !ok {
		return
	}
	buf.PutU64LE(b, v)
}
