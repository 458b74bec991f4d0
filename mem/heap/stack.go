package heap

import (
	"sync/atomic"

	"github.com/osdevkit/memcore/mem"
)

// Stack is a LIFO bump allocator. Allocation is the same compare-and-swap
// cursor advance as Bump; Free rolls the cursor back only when the freed
// block is the most recent allocation. An out-of-order free is a silent
// no-op rather than a correctness hazard.
type Stack struct {
	region mem.Region
	top    atomic.Uint64
}

// NewStack validates the region and places the cursor at its start.
func NewStack(base uint64, data []byte) (*Stack, error) {
	r, err := mem.NewRegion(base, data)
	if err != nil {
		return nil, err
	}
	s := &Stack{region: r}
	s.top.Store(r.Base)
	return s, nil
}

// Alloc pushes an aligned block of l.Size bytes onto the stack.
func (s *Stack) Alloc(l mem.Layout) (uint64, error) {
	if l.Size == 0 {
		return 0, mem.ErrInvalidSize
	}
	end := s.region.End()
	for {
		current := s.top.Load()
		aligned := mem.AlignUp(current, l.Align)
		newTop := aligned + l.Size
		if newTop < aligned {
			return 0, mem.ErrOverflow
		}
		if newTop > end {
			return 0, mem.ErrOutOfMemory
		}
		if s.top.CompareAndSwap(current, newTop) {
			return aligned, nil
		}
	}
}

// Free pops the block only when it is on top of the stack: the cursor is
// swapped from addr+size back to addr. Any other free leaves the cursor
// untouched.
func (s *Stack) Free(addr uint64, l mem.Layout) {
	if addr == 0 {
		return
	}
	s.top.CompareAndSwap(addr+l.Size, addr)
}

// Reset unconditionally rewinds the cursor to the region start.
func (s *Stack) Reset() {
	s.top.Store(s.region.Base)
}

// Used returns the bytes between region start and the cursor.
func (s *Stack) Used() uint64 {
	return s.top.Load() - s.region.Base
}

var _ Allocator = (*Stack)(nil)
