package phys

import (
	"testing"

	"github.com/osdevkit/memcore/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKernelStart = 0x0100_0000 // 16MiB

func testMemory(t *testing.T, size int) *Memory {
	t.Helper()
	return FromBytes(make([]byte, size), 0)
}

func testBootInfo(regions ...MemoryRegion) BootInfo {
	return BootInfo{Regions: regions, KernelStart: testKernelStart}
}

func TestFrameAllocator_PrefersLowUsableRegion(t *testing.T) {
	m := testMemory(t, 32<<20)
	bi := testBootInfo(
		MemoryRegion{Start: 0, End: 0x9_F000, Kind: KindUsable}, // below 1MiB, skipped
		MemoryRegion{Start: 0x10_0000, End: 0x50_0000, Kind: KindUsable},
		MemoryRegion{Start: 0x50_0000, End: 0x60_0000, Kind: KindReserved},
		MemoryRegion{Start: 0x60_0000, End: 0x200_0000, Kind: KindUsable},
	)

	fa, err := NewFrameAllocator(m, bi)
	require.NoError(t, err)

	start, end := fa.Window()
	assert.Equal(t, uint64(0x60_0000), start, "largest usable window below the kernel wins")
	assert.Equal(t, uint64(testKernelStart), end, "window is capped at the kernel load address")
}

func TestFrameAllocator_FallbackAboveKernel(t *testing.T) {
	m := testMemory(t, 32<<20)
	bi := testBootInfo(
		MemoryRegion{Start: 0, End: 0x8_0000, Kind: KindUsable},
		MemoryRegion{Start: testKernelStart, End: 0x200_0000, Kind: KindUsable},
	)

	fa, err := NewFrameAllocator(m, bi)
	require.NoError(t, err)

	start, end := fa.Window()
	assert.Equal(t, uint64(testKernelStart+fallbackWindowOffset), start)
	assert.Equal(t, start+fallbackWindowSize, end)
}

func TestFrameAllocator_NoWindowFails(t *testing.T) {
	// Space too small to hold even the fallback window.
	m := testMemory(t, 1<<20)
	bi := testBootInfo(MemoryRegion{Start: 0, End: 0x8_0000, Kind: KindUsable})

	_, err := NewFrameAllocator(m, bi)
	assert.ErrorIs(t, err, ErrNoUsableMemory)
}

func TestFrameAllocator_FramesAreAlignedAndUnique(t *testing.T) {
	m := testMemory(t, 32<<20)
	fa, err := NewFrameAllocator(m, testBootInfo(
		MemoryRegion{Start: 0x10_0000, End: 0x10_9000, Kind: KindUsable},
	))
	require.NoError(t, err)

	seen := map[uint64]bool{}
	for {
		frame, err := fa.AllocFrame()
		if err != nil {
			assert.ErrorIs(t, err, mem.ErrOutOfMemory)
			break
		}
		assert.True(t, mem.IsAligned(frame, FrameSize), "frame %#x misaligned", frame)
		assert.False(t, seen[frame], "frame %#x handed out twice", frame)
		seen[frame] = true
	}

	// 0x10_0000..0x10_9000 holds exactly nine 4KiB frames.
	assert.Len(t, seen, 9)
	assert.Equal(t, uint64(9), fa.Allocated())
	assert.Equal(t, uint64(0), fa.Remaining())
}

func TestFrameAllocator_AllocZeroedFrame(t *testing.T) {
	m := testMemory(t, 32<<20)
	fa, err := NewFrameAllocator(m, testBootInfo(
		MemoryRegion{Start: 0x10_0000, End: 0x20_0000, Kind: KindUsable},
	))
	require.NoError(t, err)

	// Dirty the window first.
	b, ok := m.Slice(0x10_0000, FrameSize)
	require.True(t, ok)
	for i := range b {
		b[i] = 0xAA
	}

	frame, err := fa.AllocZeroedFrame()
	require.NoError(t, err)
	got, ok := m.Slice(frame, FrameSize)
	require.True(t, ok)
	for _, v := range got {
		if v != 0 {
			t.Fatalf("frame %#x not zeroed", frame)
		}
	}
}

func TestMemoryWordAccessAndRegion(t *testing.T) {
	m := testMemory(t, 1<<16)

	m.WriteU64(0x100, 0xCAFEBABE)
	assert.Equal(t, uint64(0xCAFEBABE), m.ReadU64(0x100))
	assert.Equal(t, uint64(0), m.ReadU64(m.Size()), "out-of-space read is zero")

	r, err := m.Region(0x1000, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2000), r.End())

	_, err = m.Region(m.Size(), 16)
	assert.ErrorIs(t, err, mem.ErrInvalidAddress)
}

func TestBootInfoTotals(t *testing.T) {
	bi := testBootInfo(
		MemoryRegion{Start: 0, End: 0x1000, Kind: KindUsable},
		MemoryRegion{Start: 0x1000, End: 0x3000, Kind: KindReserved},
		MemoryRegion{Start: 0x3000, End: 0x7000, Kind: KindUsable},
	)
	assert.Equal(t, uint64(0x5000), bi.TotalUsable())
	assert.Equal(t, "Usable", KindUsable.String())
	assert.Equal(t, "Bootloader", KindBootloader.String())
}
