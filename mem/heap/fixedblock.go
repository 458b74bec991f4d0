package heap

import "github.com/osdevkit/memcore/mem"

// blockSizes are the fixed size classes. A block's class is determined by
// the shape of the request that allocated it, never by where the bytes came
// from, which is what makes Free safe to recompute the class.
var blockSizes = [...]uint64{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// FixedBlock keeps one LIFO free list per size class and carves class-sized
// blocks from an embedded free-list core on a miss. Requests larger than
// the largest class bypass the buckets and go straight to the core. This is
// the allocator installed as the kernel-wide default.
//
// A single spin lock guards the buckets and the core as one critical
// section.
type FixedBlock struct {
	lock   mem.SpinLock
	region mem.Region
	heads  [len(blockSizes)]uint64
	core   *freeListCore
}

// NewFixedBlock validates the region and hands it to the fallback core.
func NewFixedBlock(base uint64, data []byte) (*FixedBlock, error) {
	core, err := newFreeListCore(base, data)
	if err != nil {
		return nil, err
	}
	return &FixedBlock{region: core.region, core: core}, nil
}

// classIndex returns the smallest class that fits max(size, align), or -1
// when the request exceeds the largest class.
func classIndex(l mem.Layout) int {
	required := l.Size
	if l.Align > required {
		required = l.Align
	}
	for i, s := range blockSizes {
		if s >= required {
			return i
		}
	}
	return -1
}

// Alloc pops from the request's class bucket, carving a new class-sized
// block from the core when the bucket is empty.
func (fb *FixedBlock) Alloc(l mem.Layout) (uint64, error) {
	if l.Size == 0 {
		return 0, mem.ErrInvalidSize
	}
	var (
		addr uint64
		err  error
	)
	idx := classIndex(l)
	fb.lock.With(func() {
		if idx < 0 {
			addr, err = fb.core.alloc(l)
			return
		}
		if head := fb.heads[idx]; head != 0 {
			fb.heads[idx] = fb.region.ReadU64(head)
			addr = head
			return
		}
		size := blockSizes[idx]
		addr, err = fb.core.alloc(mem.Layout{Size: size, Align: size})
	})
	return addr, err
}

// Free recomputes the class from the request shape and pushes the block
// onto that class's list. Oversized blocks go back to the core.
func (fb *FixedBlock) Free(addr uint64, l mem.Layout) {
	if addr == 0 {
		return
	}
	idx := classIndex(l)
	fb.lock.With(func() {
		if idx < 0 {
			fb.core.free(addr, l)
			return
		}
		fb.region.WriteU64(addr, fb.heads[idx])
		fb.heads[idx] = addr
	})
}

var _ Allocator = (*FixedBlock)(nil)
