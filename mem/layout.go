// Package mem holds the leaf utilities every allocator builds on: layout
// requests, validated memory regions, alignment arithmetic and a spin lock.
package mem

// Layout describes an allocation request as a (size, alignment) pair.
// Align must be a power of two. A zero Size is rejected by every allocator
// in this module with ErrInvalidSize.
type Layout struct {
	Size  uint64
	Align uint64
}

// NewLayout returns a layout with the given size, rejecting alignments that
// are not powers of two.
func NewLayout(size, align uint64) (Layout, error) {
	if !IsPowerOfTwo(align) {
		return Layout{}, ErrInvalidSize
	}
	return Layout{Size: size, Align: align}, nil
}

// AlignUp rounds addr up to the next multiple of align.
// align must be a power of two.
func AlignUp(addr, align uint64) uint64 {
	return (addr + align - 1) &^ (align - 1)
}

// AlignDown rounds addr down to a multiple of align.
// align must be a power of two.
func AlignDown(addr, align uint64) uint64 {
	return addr &^ (align - 1)
}

// IsAligned reports whether addr is a multiple of align.
func IsAligned(addr, align uint64) bool {
	return addr&(align-1) == 0
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= v. v must be at most
// 1<<63; zero maps to 1.
func NextPowerOfTwo(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	n := uint64(1)
	for n < v {
		n <<= 1
	}
	return n
}
