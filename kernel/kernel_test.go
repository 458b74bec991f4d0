package kernel

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osdevkit/memcore/mem"
	"github.com/osdevkit/memcore/mem/phys"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testBootInfo() phys.BootInfo {
	return phys.BootInfo{
		Regions: []phys.MemoryRegion{
			{Start: 0, End: 0x10_0000, Kind: phys.KindReserved},
			{Start: 0x10_0000, End: 0x200_0000, Kind: phys.KindUsable},
		},
		KernelStart: 0x200_0000,
	}
}

func bootTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k, err := Boot(testBootInfo(), Config{
		MemorySize: 64 << 20,
		HeapSize:   4 << 20,
		Log:        quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Close() })
	return k
}

func TestBoot_WiresEverySubsystem(t *testing.T) {
	k := bootTestKernel(t)

	assert.NotNil(t, k.Memory())
	assert.NotNil(t, k.Frames())
	assert.NotNil(t, k.Mapper())
	assert.NotNil(t, k.Heap())
	assert.NotNil(t, k.Space())

	// The root table frame is the first thing carved from the window.
	assert.Equal(t, uint64(1), k.Frames().Allocated())
}

func TestBoot_HeapServesAllocations(t *testing.T) {
	k := bootTestKernel(t)

	l, err := mem.NewLayout(48, 8)
	require.NoError(t, err)

	a, err := k.Alloc(l)
	require.NoError(t, err)
	b, err := k.Alloc(l)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	k.Free(a, l)
	c, err := k.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, a, c, "freed block is reused first")
}

func TestBoot_SyscallsAgainstFreshKernel(t *testing.T) {
	k := bootTestKernel(t)

	virt, err := k.Space().Mmap(0, 2*phys.FrameSize, 0x3, 0, -1, 0)
	require.NoError(t, err)
	assert.True(t, k.Mapper().IsMapped(virt))

	require.NoError(t, k.Space().Munmap(virt, 2*phys.FrameSize))
	assert.False(t, k.Mapper().IsMapped(virt))
}

func TestBoot_FailsWithoutUsableMemory(t *testing.T) {
	_, err := Boot(phys.BootInfo{
		Regions:     []phys.MemoryRegion{{Start: 0, End: 0x10_0000, Kind: phys.KindReserved}},
		KernelStart: 0x200_0000,
	}, Config{MemorySize: 8 << 20, HeapSize: 1 << 20, Log: quietLogger()})
	assert.ErrorIs(t, err, phys.ErrNoUsableMemory)
}

func TestSetDefault_DoubleBootFailsFast(t *testing.T) {
	defaultKernel.Store(nil)
	t.Cleanup(func() { defaultKernel.Store(nil) })

	k := bootTestKernel(t)
	require.NoError(t, SetDefault(k))
	assert.Same(t, k, Default())

	other := bootTestKernel(t)
	assert.ErrorIs(t, SetDefault(other), ErrAlreadyBooted)
	assert.Same(t, k, Default())
}

func TestClose_Idempotent(t *testing.T) {
	k, err := Boot(testBootInfo(), Config{
		MemorySize: 16 << 20,
		HeapSize:   1 << 20,
		Log:        quietLogger(),
	})
	require.NoError(t, err)
	assert.NoError(t, k.Close())
	assert.NoError(t, k.Close())
}
