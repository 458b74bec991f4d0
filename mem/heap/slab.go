package heap

import "github.com/osdevkit/memcore/mem"

// Slab is a fixed-shape object pool. Every block has the same (size, align)
// decided at construction; AddSlab threads the equal-size blocks of a
// registered span onto one free list, after which Alloc and Free are O(1)
// pops and pushes. There is no growth path: an empty list fails.
type Slab struct {
	lock     mem.SpinLock
	objSize  uint64
	objAlign uint64
	stride   uint64
	head     uint64
	spans    []mem.Region
}

// NewSlab fixes the object shape. The object size must hold the intrusive
// link word and the alignment must be a power of two. Blocks are threaded
// at the size rounded up to the alignment, so every block start stays a
// multiple of the alignment regardless of the raw size.
func NewSlab(objSize, objAlign uint64) (*Slab, error) {
	if objSize < linkSize {
		return nil, mem.ErrInvalidSize
	}
	if !mem.IsPowerOfTwo(objAlign) {
		return nil, mem.ErrInvalidSize
	}
	return &Slab{
		objSize:  objSize,
		objAlign: objAlign,
		stride:   mem.AlignUp(objSize, objAlign),
	}, nil
}

// AddSlab registers a span and threads its blocks onto the free list. The
// base must carry the slab's alignment; the span is validated once and
// owned by the slab from then on.
func (s *Slab) AddSlab(base uint64, data []byte) error {
	r, err := mem.NewRegion(base, data)
	if err != nil {
		return err
	}
	if !mem.IsAligned(base, s.objAlign) {
		return mem.ErrInvalidAddress
	}
	numBlocks := uint64(len(data)) / s.stride
	if numBlocks == 0 {
		return mem.ErrInvalidSize
	}
	s.lock.With(func() {
		s.spans = append(s.spans, r)
		for i := uint64(0); i < numBlocks; i++ {
			addr := base + i*s.stride
			s.writeLink(addr, s.head)
			s.head = addr
		}
	})
	return nil
}

// Alloc pops a block. Requests whose shape exceeds the slab's fixed shape
// fail with ErrInvalidSize; an exhausted pool fails with ErrOutOfMemory.
func (s *Slab) Alloc(l mem.Layout) (uint64, error) {
	if l.Size == 0 || l.Size > s.objSize || l.Align > s.objAlign {
		return 0, mem.ErrInvalidSize
	}
	var (
		addr uint64
		err  error
	)
	s.lock.With(func() {
		if s.head == 0 {
			err = mem.ErrOutOfMemory
			return
		}
		addr = s.head
		s.head = s.readLink(addr)
	})
	return addr, err
}

// Free pushes the block back onto the list head.
func (s *Slab) Free(addr uint64, l mem.Layout) {
	if addr == 0 {
		return
	}
	s.lock.With(func() {
		s.writeLink(addr, s.head)
		s.head = addr
	})
}

// span resolves the registered span containing addr. The list is short; a
// linear scan is fine.
func (s *Slab) span(addr uint64) (mem.Region, bool) {
	for _, r := range s.spans {
		if r.Contains(addr, linkSize) {
			return r, true
		}
	}
	return mem.Region{}, false
}

func (s *Slab) readLink(addr uint64) uint64 {
	r, ok := s.span(addr)
	if !ok {
		return 0
	}
	return r.ReadU64(addr)
}

func (s *Slab) writeLink(addr, next uint64) {
	r, ok := s.span(addr)
	if !ok {
		return
	}
	r.WriteU64(addr, next)
}

var _ Allocator = (*Slab)(nil)
