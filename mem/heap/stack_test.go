package heap

import (
	"testing"

	"github.com/osdevkit/memcore/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_LIFOFreeRestoresCursor(t *testing.T) {
	s, err := NewStack(testArena(t, 1024))
	require.NoError(t, err)

	l := mem.Layout{Size: 64, Align: 8}
	a, err := s.Alloc(l)
	require.NoError(t, err)
	b, err := s.Alloc(l)
	require.NoError(t, err)
	c, err := s.Alloc(l)
	require.NoError(t, err)

	// Freeing in exact reverse order rewinds all the way.
	s.Free(c, l)
	s.Free(b, l)
	s.Free(a, l)
	assert.Equal(t, uint64(0), s.Used(), "reverse-order frees restore the pre-allocation cursor")
}

func TestStack_OutOfOrderFreeIsNoOp(t *testing.T) {
	s, err := NewStack(testArena(t, 1024))
	require.NoError(t, err)

	l := mem.Layout{Size: 64, Align: 8}
	a, err := s.Alloc(l)
	require.NoError(t, err)
	_, err = s.Alloc(l)
	require.NoError(t, err)

	used := s.Used()
	s.Free(a, l) // not on top
	assert.Equal(t, used, s.Used(), "out-of-order free must not move the cursor")
}

func TestStack_ExhaustionFailsCleanly(t *testing.T) {
	s, err := NewStack(testArena(t, 128))
	require.NoError(t, err)

	_, err = s.Alloc(mem.Layout{Size: 100, Align: 8})
	require.NoError(t, err)

	_, err = s.Alloc(mem.Layout{Size: 64, Align: 8})
	assert.ErrorIs(t, err, mem.ErrOutOfMemory)
	assert.Equal(t, uint64(100), s.Used())
}

func TestStack_Alignment(t *testing.T) {
	s, err := NewStack(testArena(t, 8192))
	require.NoError(t, err)
	allocAligned(t, s)
}

func TestStack_ResetRewinds(t *testing.T) {
	s, err := NewStack(testArena(t, 256))
	require.NoError(t, err)

	_, err = s.Alloc(mem.Layout{Size: 200, Align: 8})
	require.NoError(t, err)

	s.Reset()
	assert.Equal(t, uint64(0), s.Used())

	addr, err := s.Alloc(mem.Layout{Size: 8, Align: 8})
	require.NoError(t, err)
	assert.Equal(t, testBase, addr)
}

func TestStack_ZeroSizeRejected(t *testing.T) {
	s, err := NewStack(testArena(t, 256))
	require.NoError(t, err)

	_, err = s.Alloc(mem.Layout{Size: 0, Align: 8})
	assert.ErrorIs(t, err, mem.ErrInvalidSize)
}
