package heap

import (
	"math/bits"

	"github.com/osdevkit/memcore/mem"
)

const (
	// MaxOrder bounds the per-order free lists; the largest block is
	// 1 << (MaxOrder - 1) bytes.
	MaxOrder = 11

	// minBuddyOrder keeps every block large enough to carry the intrusive
	// link word while free.
	minBuddyOrder = 3
)

// Buddy is a power-of-two splitting allocator over ordered free lists.
// Allocation rounds the request up to its order and splits the smallest
// available larger block down, pushing the upper half of each split onto
// the next-lower order's list as its buddy.
//
// Free pushes the block back onto its order's list without merging it with
// its buddy, so a region degrades to its smallest split sizes over repeated
// allocate/free cycles. That deviation from the canonical buddy algorithm
// is deliberate, documented behavior with a regression test pinning it.
type Buddy struct {
	lock      mem.SpinLock
	region    mem.Region
	freeLists [MaxOrder]uint64
}

// NewBuddy validates the region and seeds it as one block of the order
// covering its size (clamped to MaxOrder-1).
func NewBuddy(base uint64, data []byte) (*Buddy, error) {
	r, err := mem.NewRegion(base, data)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < 1<<minBuddyOrder {
		return nil, mem.ErrInvalidSize
	}
	b := &Buddy{region: r}
	order := sizeToOrder(uint64(len(data)))
	r.WriteU64(base, 0)
	b.freeLists[order] = base
	return b, nil
}

// sizeToOrder returns the order whose block size covers v, clamped into
// [minBuddyOrder, MaxOrder-1].
func sizeToOrder(v uint64) int {
	p := mem.NextPowerOfTwo(v)
	order := bits.TrailingZeros64(p)
	if order < minBuddyOrder {
		order = minBuddyOrder
	}
	if order > MaxOrder-1 {
		order = MaxOrder - 1
	}
	return order
}

// orderFor rounds a layout up to its order: the next power of two covering
// max(size, align).
func orderFor(l mem.Layout) int {
	required := l.Size
	if l.Align > required {
		required = l.Align
	}
	return sizeToOrder(required)
}

// Alloc serves a block of the request's order, splitting larger blocks on
// demand.
func (b *Buddy) Alloc(l mem.Layout) (uint64, error) {
	if l.Size == 0 {
		return 0, mem.ErrInvalidSize
	}
	order := orderFor(l)

	var (
		addr uint64
		err  error
	)
	b.lock.With(func() {
		found := -1
		for o := order; o < MaxOrder; o++ {
			if b.freeLists[o] != 0 {
				found = o
				break
			}
		}
		if found < 0 {
			err = mem.ErrOutOfMemory
			return
		}

		block := b.pop(found)
		for o := found; o > order; o-- {
			// Halve the block; the upper half is the buddy.
			buddy := block + 1<<(o-1)
			b.push(o-1, buddy)
		}
		addr = block
	})
	return addr, err
}

// Free pushes the block back onto its order's list. Buddies are never
// merged.
func (b *Buddy) Free(addr uint64, l mem.Layout) {
	if addr == 0 {
		return
	}
	order := orderFor(l)
	b.lock.With(func() {
		b.push(order, addr)
	})
}

func (b *Buddy) pop(order int) uint64 {
	addr := b.freeLists[order]
	b.freeLists[order] = b.region.ReadU64(addr)
	return addr
}

func (b *Buddy) push(order int, addr uint64) {
	b.region.WriteU64(addr, b.freeLists[order])
	b.freeLists[order] = addr
}

var _ Allocator = (*Buddy)(nil)
