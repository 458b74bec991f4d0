package phys

import (
	"errors"
	"sync/atomic"

	"github.com/osdevkit/memcore/mem"
)

// lowWindowFloor is the lowest physical address considered for the frame
// window; everything under 1MiB stays with firmware and legacy regions.
const lowWindowFloor = 0x10_0000

// Fallback window relative to the kernel load address when no usable low
// region exists: a small span far enough past the image and its BSS.
const (
	fallbackWindowOffset = 0x80_0000 // 8MiB past the kernel
	fallbackWindowSize   = 0x20_0000 // 2MiB
)

// ErrNoUsableMemory indicates the boot map offered no frame window at all.
var ErrNoUsableMemory = errors.New("phys: no usable memory for frame window")

// FrameAllocator bump-allocates 4KiB frames from a usable physical window.
// Allocation is a compare-and-swap retry on the next-frame cursor; frames
// are handed out monotonically and never reclaimed.
type FrameAllocator struct {
	memory *Memory
	start  uint64
	end    uint64
	next   atomic.Uint64
}

// NewFrameAllocator selects the frame window from the boot map and places
// the cursor at its start. Selection prefers the largest usable region
// between 1MiB and the kernel load address (capped at the kernel start so
// the window never overlaps the image); when no such region exists it falls
// back to a small fixed window above the kernel. The window is clipped to
// the simulated space.
func NewFrameAllocator(memory *Memory, bi BootInfo) (*FrameAllocator, error) {
	var start, end uint64
	for _, r := range bi.Regions {
		if r.Kind != KindUsable {
			continue
		}
		if r.Start < lowWindowFloor || r.Start >= bi.KernelStart {
			continue
		}
		capped := min(r.End, bi.KernelStart)
		if capped > r.Start && capped-r.Start > end-start {
			start, end = r.Start, capped
		}
	}
	if start == 0 {
		start = bi.KernelStart + fallbackWindowOffset
		end = start + fallbackWindowSize
	}
	if end > memory.Size() {
		end = memory.Size()
	}
	start = mem.AlignUp(start, FrameSize)
	if start+FrameSize > end {
		return nil, ErrNoUsableMemory
	}

	fa := &FrameAllocator{memory: memory, start: start, end: end}
	fa.next.Store(start)
	return fa, nil
}

// AllocFrame reserves the next 4KiB-aligned frame. The contents are
// whatever the window held; callers that need a clean frame zero it.
func (fa *FrameAllocator) AllocFrame() (uint64, error) {
	for {
		current := fa.next.Load()
		frame := mem.AlignUp(current, FrameSize)
		newNext := frame + FrameSize
		if newNext > fa.end {
			return 0, mem.ErrOutOfMemory
		}
		if fa.next.CompareAndSwap(current, newNext) {
			return frame, nil
		}
	}
}

// AllocZeroedFrame reserves a frame and clears it.
func (fa *FrameAllocator) AllocZeroedFrame() (uint64, error) {
	frame, err := fa.AllocFrame()
	if err != nil {
		return 0, err
	}
	fa.memory.Zero(frame, FrameSize)
	return frame, nil
}

// Window returns the [start, end) physical window frames come from.
func (fa *FrameAllocator) Window() (uint64, uint64) {
	return fa.start, fa.end
}

// Allocated returns the number of frames handed out so far.
func (fa *FrameAllocator) Allocated() uint64 {
	return (fa.next.Load() - fa.start) / FrameSize
}

// Remaining returns the number of frames still available.
func (fa *FrameAllocator) Remaining() uint64 {
	return (fa.end - fa.next.Load()) / FrameSize
}
