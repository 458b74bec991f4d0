package heap

import "github.com/osdevkit/memcore/mem"

// Allocator is the common contract every heap strategy satisfies.
type Allocator interface {
	// Alloc returns the address of a block satisfying the layout, or an
	// error when the request cannot be served.
	Alloc(l mem.Layout) (uint64, error)

	// Free returns the block at addr, described by the same layout that
	// allocated it. Strategies without individual deallocation treat this
	// as a no-op.
	Free(addr uint64, l mem.Layout)
}

const (
	// freeNodeSize is the intrusive free-list header: size word + next word.
	freeNodeSize = 16

	// linkSize is the intrusive single-link header used by the
	// fixed-block, slab and buddy free lists.
	linkSize = 8
)

// readFreeNode decodes the intrusive (size, next) header at addr.
func readFreeNode(r mem.Region, addr uint64) (size, next uint64) {
	return r.ReadU64(addr), r.ReadU64(addr + 8)
}

// writeFreeNode encodes an intrusive (size, next) header at addr.
func writeFreeNode(r mem.Region, addr, size, next uint64) {
	r.WriteU64(addr, size)
	r.WriteU64(addr+8, next)
}
