package vm

import (
	"github.com/osdevkit/memcore/mem/paging"
	"github.com/osdevkit/memcore/mem/phys"
)

const (
	// processCodeBase is where a freshly started process image is loaded.
	processCodeBase = 0x40_0000

	// processStackTop bounds the initial single-page stack from above.
	processStackTop = 0x80_0000

	// higherHalfStart is the first root-table slot belonging to the kernel
	// half of the address space. Process tables share everything above it.
	higherHalfStart = 256
)

// CreateProcessPageTable allocates a zeroed top-level table and copies the
// kernel half of the active root into it entry by entry. The copy is by
// value: later changes to the kernel half of either table are not seen by
// the other. The lower half starts fully absent.
func (as *AddressSpace) CreateProcessPageTable() (uint64, error) {
	root, err := as.frames.AllocZeroedFrame()
	if err != nil {
		return 0, ENOMEM
	}
	active := as.cr3.Load()
	for i := uint64(higherHalfStart); i < 512; i++ {
		as.memory.WriteU64(root+i*8, as.memory.ReadU64(active+i*8))
	}
	return root, nil
}

// PStart loads a code image into a fresh set of pages at the conventional
// process base, maps one stack page under the stack top, and returns the
// assigned pid. The code pages stay executable and writable; the stack page
// is user-accessible, writable and non-executable.
func (as *AddressSpace) PStart(code []byte) (uint64, error) {
	if len(code) == 0 {
		return 0, EINVAL
	}

	length := uint64(len(code))
	pageCount := (length + phys.FrameSize - 1) / phys.FrameSize
	codeFlags := paging.FlagPresent | paging.FlagWritable
	for i := uint64(0); i < pageCount; i++ {
		frame, err := as.frames.AllocZeroedFrame()
		if err != nil {
			return 0, ENOMEM
		}
		if err := as.mapper.Map(processCodeBase+i*phys.FrameSize, frame, codeFlags); err != nil {
			return 0, ENOMEM
		}
	}
	if err := as.copyToVirt(processCodeBase, code); err != nil {
		return 0, err
	}

	stackFlags := paging.FlagWritable | paging.FlagUser | paging.FlagNoExec
	stackFrame, err := as.frames.AllocZeroedFrame()
	if err != nil {
		return 0, ENOMEM
	}
	if err := as.mapper.Map(processStackTop-phys.FrameSize, stackFrame, stackFlags); err != nil {
		return 0, ENOMEM
	}

	return as.nextPID.Add(1) - 1, nil
}
