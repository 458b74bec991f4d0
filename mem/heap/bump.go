package heap

import (
	"sync/atomic"

	"github.com/osdevkit/memcore/mem"
)

// Bump is a monotonic-cursor allocator. Allocation is a compare-and-swap
// retry loop on the cursor; Free is a no-op and memory is only reclaimed by
// an explicit Reset, which invalidates every prior allocation at once.
type Bump struct {
	region mem.Region
	next   atomic.Uint64
}

// NewBump validates the region and places the cursor at its start.
func NewBump(base uint64, data []byte) (*Bump, error) {
	r, err := mem.NewRegion(base, data)
	if err != nil {
		return nil, err
	}
	b := &Bump{region: r}
	b.next.Store(r.Base)
	return b, nil
}

// Alloc advances the cursor past an aligned block of l.Size bytes.
func (b *Bump) Alloc(l mem.Layout) (uint64, error) {
	if l.Size == 0 {
		return 0, mem.ErrInvalidSize
	}
	end := b.region.End()
	for {
		current := b.next.Load()
		aligned := mem.AlignUp(current, l.Align)
		newNext := aligned + l.Size
		if newNext < aligned {
			return 0, mem.ErrOverflow
		}
		if newNext > end {
			return 0, mem.ErrOutOfMemory
		}
		if b.next.CompareAndSwap(current, newNext) {
			return aligned, nil
		}
	}
}

// Free is a no-op; bump allocation has no individual deallocation.
func (b *Bump) Free(addr uint64, l mem.Layout) {}

// Reset rewinds the cursor to the region start. All prior allocations
// become invalid; the caller is responsible for no longer touching them.
func (b *Bump) Reset() {
	b.next.Store(b.region.Base)
}

// Used returns the number of bytes between region start and the cursor.
func (b *Bump) Used() uint64 {
	return b.next.Load() - b.region.Base
}

// Remaining returns the bytes left between the cursor and region end.
func (b *Bump) Remaining() uint64 {
	return b.region.End() - b.next.Load()
}

var _ Allocator = (*Bump)(nil)
