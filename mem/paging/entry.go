// Package paging implements the four-level radix page table: entry
// encoding, the active-root control register, a per-page translation cache,
// and the mapper that walks and extends the tree inside physical memory.
package paging

// Flags are the page-table entry flag bits.
type Flags uint64

const (
	FlagPresent  Flags = 1 << 0
	FlagWritable Flags = 1 << 1
	FlagUser     Flags = 1 << 2
	FlagNoExec   Flags = 1 << 63
)

// entryAddrMask extracts the 52-bit frame address from an entry.
const entryAddrMask = 0x000F_FFFF_FFFF_F000

const (
	entriesPerTable = 512
	entrySize       = 8

	// TableSize is the byte size of one page-table level; one frame.
	TableSize = entriesPerTable * entrySize
)

// Entry is one 64-bit page-table entry: a frame address plus flag bits.
// For P4-P2 entries the frame holds the next level; for P1 entries it is
// the mapped frame.
type Entry uint64

// NewEntry builds an entry pointing at frame with the given flags.
func NewEntry(frame uint64, f Flags) Entry {
	return Entry(frame&entryAddrMask | uint64(f))
}

// Present reports whether the entry holds a live translation.
func (e Entry) Present() bool {
	return e&Entry(FlagPresent) != 0
}

// Frame returns the physical frame the entry points at.
func (e Entry) Frame() uint64 {
	return uint64(e) & entryAddrMask
}

// Flags returns the entry's flag bits.
func (e Entry) Flags() Flags {
	return Flags(uint64(e) &^ entryAddrMask)
}

// levelShifts are the bit positions of the four 9-bit level indices, from
// P4 down to P1.
var levelShifts = [4]uint{39, 30, 21, 12}

// levelIndex extracts the 9-bit table index at the given shift.
func levelIndex(virt uint64, shift uint) uint64 {
	return (virt >> shift) & 0x1FF
}
