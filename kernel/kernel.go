// Package kernel assembles the memory subsystems into one bootable unit:
// a simulated physical space, the frame allocator, the active page-table
// root with its mapper, a fixed-block general-purpose heap and the syscall
// surface. Everything underneath is constructor-injected; the process-wide
// default is a thin shim over one Kernel instance.
package kernel

import (
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/osdevkit/memcore/internal/membuf"
	"github.com/osdevkit/memcore/mem"
	"github.com/osdevkit/memcore/mem/heap"
	"github.com/osdevkit/memcore/mem/paging"
	"github.com/osdevkit/memcore/mem/phys"
	"github.com/osdevkit/memcore/mem/vm"
)

const (
	// DefaultMemorySize is the simulated physical space handed to a boot
	// that does not size it explicitly.
	DefaultMemorySize = 128 << 20

	// DefaultHeapSize backs the general-purpose heap.
	DefaultHeapSize = 256 << 20

	// heapBase is the virtual base the heap arena pretends to live at.
	// Higher-half so heap addresses never collide with user mappings.
	heapBase = 0xFFFF_8000_0000_0000
)

var ErrAlreadyBooted = errors.New("kernel: already booted")

// Config tunes a boot. Zero values pick the defaults above and a standard
// logger.
type Config struct {
	MemorySize int
	HeapSize   int
	Log        *logrus.Logger
}

// Kernel owns every memory subsystem built during a boot.
type Kernel struct {
	log    *logrus.Logger
	memory *phys.Memory
	info   phys.BootInfo
	frames *phys.FrameAllocator
	cr3    *paging.CR3
	mapper *paging.Mapper
	heap   *heap.FixedBlock
	space  *vm.AddressSpace

	releases []func() error
}

// Boot stands up a Kernel from a firmware-style memory map: physical space
// first, then the frame allocator, an active zeroed root table, the mapper,
// the fixed-block heap over its own backing buffer, and finally the syscall
// surface. The returned Kernel is independent of any other; promoting one
// to the process-wide default is a separate step.
func Boot(info phys.BootInfo, cfg Config) (*Kernel, error) {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.HeapSize == 0 {
		cfg.HeapSize = DefaultHeapSize
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	k := &Kernel{log: cfg.Log, info: info, cr3: &paging.CR3{}}

	memory, release, err := phys.NewMemory(cfg.MemorySize, info.PhysOffset)
	if err != nil {
		return nil, err
	}
	k.memory = memory
	k.releases = append(k.releases, release)

	info.LogMap(cfg.Log.WithField("stage", "boot"))

	k.frames, err = phys.NewFrameAllocator(memory, info)
	if err != nil {
		k.Close()
		return nil, err
	}

	root, err := k.frames.AllocZeroedFrame()
	if err != nil {
		k.Close()
		return nil, err
	}
	k.cr3.Store(root)
	k.mapper = paging.NewMapper(memory, k.frames, k.cr3)

	heapBuf, releaseHeap, err := membuf.Alloc(cfg.HeapSize)
	if err != nil {
		k.Close()
		return nil, err
	}
	k.releases = append(k.releases, releaseHeap)
	k.heap, err = heap.NewFixedBlock(heapBase, heapBuf)
	if err != nil {
		k.Close()
		return nil, err
	}

	k.space = vm.NewAddressSpace(memory, k.frames, k.mapper, k.cr3)

	winStart, winEnd := k.frames.Window()
	cfg.Log.WithFields(logrus.Fields{
		"usable":      info.TotalUsable(),
		"frameWindow": winEnd - winStart,
		"heap":        cfg.HeapSize,
		"root":        root,
	}).Info("memory subsystems up")
	return k, nil
}

// Close releases the backing buffers. Safe to call more than once.
func (k *Kernel) Close() error {
	var first error
	for _, release := range k.releases {
		if err := release(); err != nil && first == nil {
			first = err
		}
	}
	k.releases = nil
	return first
}

// Alloc carves from the general-purpose heap.
func (k *Kernel) Alloc(l mem.Layout) (uint64, error) {
	return k.heap.Alloc(l)
}

// Free returns a heap allocation.
func (k *Kernel) Free(addr uint64, l mem.Layout) {
	k.heap.Free(addr, l)
}

func (k *Kernel) Memory() *phys.Memory         { return k.memory }
func (k *Kernel) BootInfo() phys.BootInfo      { return k.info }
func (k *Kernel) Frames() *phys.FrameAllocator { return k.frames }
func (k *Kernel) Mapper() *paging.Mapper       { return k.mapper }
func (k *Kernel) Heap() *heap.FixedBlock       { return k.heap }
func (k *Kernel) Space() *vm.AddressSpace      { return k.space }
func (k *Kernel) Log() *logrus.Logger          { return k.log }

var defaultKernel atomic.Pointer[Kernel]

// SetDefault promotes k to the process-wide kernel. A second promotion
// fails fast rather than silently replacing live allocator state.
func SetDefault(k *Kernel) error {
	if !defaultKernel.CompareAndSwap(nil, k) {
		return ErrAlreadyBooted
	}
	return nil
}

// Default returns the process-wide kernel, or nil before SetDefault.
func Default() *Kernel {
	return defaultKernel.Load()
}
