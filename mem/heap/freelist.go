package heap

import "github.com/osdevkit/memcore/mem"

// freeListCore is the unlocked first-fit free list shared by FreeList and
// FixedBlock. The caller provides serialization; FixedBlock runs the core
// under its own bucket lock so a class miss never re-acquires.
//
// Free blocks carry an intrusive (size, next) header in their first 16
// bytes. A next value of 0 terminates the list; block addresses are never 0
// because region validation rejects a null base.
type freeListCore struct {
	region mem.Region
	head   uint64
}

func newFreeListCore(base uint64, data []byte) (*freeListCore, error) {
	r, err := mem.NewRegion(base, data)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < freeNodeSize {
		return nil, mem.ErrInvalidSize
	}
	c := &freeListCore{region: r, head: r.Base}
	writeFreeNode(r, r.Base, uint64(len(data)), 0)
	return c, nil
}

// requiredSize widens a request so the block can hold a free-node header
// when it comes back, mirroring what Free will recompute.
func requiredSize(l mem.Layout) uint64 {
	size := l.Size
	if size < freeNodeSize {
		size = freeNodeSize
	}
	return mem.AlignUp(size, l.Align)
}

// fitIn checks whether an aligned request of size bytes can be carved out
// of the free block at addr. A candidate is rejected when either leftover
// piece, the alignment gap at the front or the excess at the tail, would be
// a sliver too small to hold a free-node header: such a node's link words
// would overlap the block handed to the caller.
func (c *freeListCore) fitIn(addr, nodeSize, size, align uint64) (allocStart uint64, ok bool) {
	allocStart = mem.AlignUp(addr, align)
	allocEnd := allocStart + size
	if allocEnd < allocStart {
		return 0, false
	}
	nodeEnd := addr + nodeSize
	if allocEnd > nodeEnd {
		return 0, false
	}
	if gap := allocStart - addr; gap > 0 && gap < freeNodeSize {
		return 0, false
	}
	excess := nodeEnd - allocEnd
	if excess > 0 && excess < freeNodeSize {
		return 0, false
	}
	return allocStart, true
}

func (c *freeListCore) alloc(l mem.Layout) (uint64, error) {
	size := requiredSize(l)

	var prev uint64
	addr := c.head
	for addr != 0 {
		nodeSize, next := readFreeNode(c.region, addr)
		allocStart, ok := c.fitIn(addr, nodeSize, size, l.Align)
		if !ok {
			prev = addr
			addr = next
			continue
		}

		allocEnd := allocStart + size
		nodeEnd := addr + nodeSize
		switch {
		case allocStart == addr && allocEnd == nodeEnd:
			// Exact fit: unlink the node.
			c.setNext(prev, next)
		case allocStart == addr:
			// Front shrink: the header relocates to the block tail.
			writeFreeNode(c.region, allocEnd, nodeEnd-allocEnd, next)
			c.setNext(prev, allocEnd)
		case allocEnd == nodeEnd:
			// Back shrink: only the size field changes.
			c.region.WriteU64(addr, allocStart-addr)
		default:
			// Middle split: the block becomes two free nodes.
			writeFreeNode(c.region, allocEnd, nodeEnd-allocEnd, next)
			writeFreeNode(c.region, addr, allocStart-addr, allocEnd)
		}
		return allocStart, nil
	}
	return 0, mem.ErrOutOfMemory
}

// free pushes the block onto the list head. Adjacent free blocks are never
// coalesced; long allocate/free churn fragments the region.
func (c *freeListCore) free(addr uint64, l mem.Layout) {
	if addr == 0 {
		return
	}
	writeFreeNode(c.region, addr, requiredSize(l), c.head)
	c.head = addr
}

// setNext updates the link that points at a node: the list head when prev
// is 0, otherwise prev's next word.
func (c *freeListCore) setNext(prev, next uint64) {
	if prev == 0 {
		c.head = next
		return
	}
	c.region.WriteU64(prev+8, next)
}

// FreeList is the intrusive first-fit allocator: a singly linked list of
// free blocks with four carve strategies on allocation and an O(1) LIFO
// push on free.
type FreeList struct {
	lock mem.SpinLock
	core *freeListCore
}

// NewFreeList validates the region and threads it as one free block.
func NewFreeList(base uint64, data []byte) (*FreeList, error) {
	core, err := newFreeListCore(base, data)
	if err != nil {
		return nil, err
	}
	return &FreeList{core: core}, nil
}

// Alloc scans first-fit for a block satisfying the layout.
func (f *FreeList) Alloc(l mem.Layout) (uint64, error) {
	if l.Size == 0 {
		return 0, mem.ErrInvalidSize
	}
	var (
		addr uint64
		err  error
	)
	f.lock.With(func() {
		addr, err = f.core.alloc(l)
	})
	return addr, err
}

// Free pushes the block back onto the head of the list.
func (f *FreeList) Free(addr uint64, l mem.Layout) {
	f.lock.With(func() {
		f.core.free(addr, l)
	})
}

var _ Allocator = (*FreeList)(nil)
