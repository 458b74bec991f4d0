package vm

import (
	"sync/atomic"

	"github.com/osdevkit/memcore/mem"
	"github.com/osdevkit/memcore/mem/paging"
	"github.com/osdevkit/memcore/mem/phys"
)

const (
	// mmapBase is where anonymous mappings start when the caller gives no
	// address hint; the cursor only ever moves up.
	mmapBase = 0x40_0000

	// HeapBase is the bottom of the designated brk heap window.
	HeapBase = 0x4444_4444_0000

	// DefaultHeapLimit is the exclusive upper bound of the brk window,
	// 64MiB above HeapBase.
	DefaultHeapLimit = HeapBase + 64<<20
)

// AddressSpace exposes the memory syscalls over one mapper and frame
// allocator. The mmap cursor and the program break are monotonic state;
// everything else lives in the page tables themselves.
type AddressSpace struct {
	memory *phys.Memory
	frames *phys.FrameAllocator
	mapper *paging.Mapper
	cr3    *paging.CR3

	mmapCursor atomic.Uint64
	brkLock    mem.SpinLock
	brk        uint64
	heapBase   uint64
	heapLimit  uint64

	nextPID atomic.Uint64
}

// NewAddressSpace wires the syscall surface to the physical space, the
// frame allocator, the mapper and the active-root register.
func NewAddressSpace(memory *phys.Memory, frames *phys.FrameAllocator, mapper *paging.Mapper, cr3 *paging.CR3) *AddressSpace {
	as := &AddressSpace{
		memory:    memory,
		frames:    frames,
		mapper:    mapper,
		cr3:       cr3,
		brk:       HeapBase,
		heapBase:  HeapBase,
		heapLimit: DefaultHeapLimit,
	}
	as.mmapCursor.Store(mmapBase)
	as.nextPID.Store(1)
	return as
}

// protFlags derives leaf page flags from the mmap protection bits:
// write-enable maps to writable, absence of execute-enable maps to
// no-execute.
func protFlags(prot int) paging.Flags {
	flags := paging.FlagPresent
	if prot&ProtWrite != 0 {
		flags |= paging.FlagWritable
	}
	if prot&ProtExec == 0 {
		flags |= paging.FlagNoExec
	}
	return flags
}

// Mmap maps length bytes of zeroed anonymous memory and returns the chosen
// virtual base. addr is a hint: non-zero values are truncated to their page
// and used as-is, zero picks the next slot from the mmap cursor. flags, fd
// and offset are accepted for call-shape compatibility and ignored.
//
// One frame is allocated and zeroed per page. A failure partway through
// aborts with ENOMEM and does not roll back pages mapped earlier in the
// same call.
func (as *AddressSpace) Mmap(addr, length uint64, prot int, _flags int, _fd int, _offset uint64) (uint64, error) {
	if length == 0 {
		return 0, EINVAL
	}

	pageCount := (length + phys.FrameSize - 1) / phys.FrameSize
	actual := pageCount * phys.FrameSize

	var virt uint64
	if addr != 0 {
		virt = mem.AlignDown(addr, phys.FrameSize)
	} else {
		virt = as.mmapCursor.Add(actual) - actual
	}

	flags := protFlags(prot)
	for i := uint64(0); i < pageCount; i++ {
		frame, err := as.frames.AllocZeroedFrame()
		if err != nil {
			return 0, ENOMEM
		}
		if err := as.mapper.Map(virt+i*phys.FrameSize, frame, flags); err != nil {
			return 0, ENOMEM
		}
	}
	return virt, nil
}

// Munmap unmaps every page covering [addr, addr+length). addr must be page
// aligned and length non-zero. Pages that were never mapped are skipped
// silently; unmapping is best-effort and never reclaims frames or
// intermediate tables.
func (as *AddressSpace) Munmap(addr, length uint64) error {
	if length == 0 || !mem.IsAligned(addr, phys.FrameSize) {
		return EINVAL
	}
	pageCount := (length + phys.FrameSize - 1) / phys.FrameSize
	for i := uint64(0); i < pageCount; i++ {
		as.mapper.Unmap(addr + i*phys.FrameSize)
	}
	return nil
}

// Brk reads or moves the program break. addr 0 returns the current break.
// A target outside the designated heap window is rejected and the break is
// left unchanged. Growing maps each newly covered page with
// user+writable+no-execute flags; shrinking only moves the cursor, mapped
// pages stay (reclamation is out of scope).
func (as *AddressSpace) Brk(addr uint64) uint64 {
	var result uint64
	as.brkLock.With(func() {
		if addr == 0 {
			result = as.brk
			return
		}
		if addr < as.heapBase || addr >= as.heapLimit {
			result = as.brk
			return
		}
		if addr > as.brk {
			flags := paging.FlagWritable | paging.FlagUser | paging.FlagNoExec
			for page := mem.AlignDown(as.brk, phys.FrameSize); page < addr; page += phys.FrameSize {
				if as.mapper.IsMapped(page) {
					continue
				}
				frame, err := as.frames.AllocZeroedFrame()
				if err != nil {
					result = as.brk
					return
				}
				if err := as.mapper.Map(page, frame, flags); err != nil {
					result = as.brk
					return
				}
			}
		}
		as.brk = addr
		result = as.brk
	})
	return result
}

// copyToVirt writes data through the page tables starting at virt.
func (as *AddressSpace) copyToVirt(virt uint64, data []byte) error {
	for len(data) > 0 {
		p, ok := as.mapper.Translate(virt)
		if !ok {
			return EINVAL
		}
		chunk := phys.FrameSize - (virt & (phys.FrameSize - 1))
		if chunk > uint64(len(data)) {
			chunk = uint64(len(data))
		}
		dst, ok := as.memory.Slice(p, chunk)
		if !ok {
			return EINVAL
		}
		copy(dst, data[:chunk])
		virt += chunk
		data = data[chunk:]
	}
	return nil
}

// WriteVirt stores data at a mapped virtual address, crossing page
// boundaries through their individual translations.
func (as *AddressSpace) WriteVirt(virt uint64, data []byte) error {
	return as.copyToVirt(virt, data)
}

// ReadVirt loads n bytes from a mapped virtual address.
func (as *AddressSpace) ReadVirt(virt, n uint64) ([]byte, error) {
	out := make([]byte, 0, n)
	for n > 0 {
		p, ok := as.mapper.Translate(virt)
		if !ok {
			return nil, EINVAL
		}
		chunk := phys.FrameSize - (virt & (phys.FrameSize - 1))
		if chunk > n {
			chunk = n
		}
		src, ok := as.memory.Slice(p, chunk)
		if !ok {
			return nil, EINVAL
		}
		out = append(out, src...)
		virt += chunk
		n -= chunk
	}
	return out, nil
}
