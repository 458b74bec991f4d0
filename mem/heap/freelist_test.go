package heap

import (
	"testing"

	"github.com/osdevkit/memcore/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeList_RegionTooSmall(t *testing.T) {
	_, err := NewFreeList(testBase, make([]byte, freeNodeSize-1))
	assert.ErrorIs(t, err, mem.ErrInvalidSize)
}

func TestFreeList_AllocAndAlignment(t *testing.T) {
	f, err := NewFreeList(testArena(t, 8192))
	require.NoError(t, err)
	allocAligned(t, f)
}

func TestFreeList_NonOverlapping(t *testing.T) {
	f, err := NewFreeList(testArena(t, 4096))
	require.NoError(t, err)

	var spans []span
	for n := 0; n < 10; n++ {
		l := mem.Layout{Size: 48, Align: 8}
		addr, err := f.Alloc(l)
		require.NoError(t, err)
		spans = append(spans, span{addr, requiredSize(l)})
	}
	assertDisjoint(t, spans)
}

func TestFreeList_ExactFitRemovesNode(t *testing.T) {
	// Region sized so one request consumes it entirely.
	f, err := NewFreeList(testArena(t, 64))
	require.NoError(t, err)

	addr, err := f.Alloc(mem.Layout{Size: 64, Align: 8})
	require.NoError(t, err)
	assert.Equal(t, testBase, addr)

	_, err = f.Alloc(mem.Layout{Size: 16, Align: 8})
	assert.ErrorIs(t, err, mem.ErrOutOfMemory, "list must be empty after exact fit")
}

func TestFreeList_SliverRejected(t *testing.T) {
	// A 72-byte region cannot serve a 64-byte request: the 8-byte tail is
	// smaller than a free-node header, so the candidate block is rejected.
	f, err := NewFreeList(testArena(t, 72))
	require.NoError(t, err)

	_, err = f.Alloc(mem.Layout{Size: 64, Align: 8})
	assert.ErrorIs(t, err, mem.ErrOutOfMemory)

	// Consuming the whole region instead still works.
	addr, err := f.Alloc(mem.Layout{Size: 72, Align: 8})
	require.NoError(t, err)
	assert.Equal(t, testBase, addr)
}

func TestFreeList_FrontGapSliverRejected(t *testing.T) {
	// An aligned carve that would leave a nonzero front gap smaller than a
	// free-node header is rejected: such a node's next word would sit inside
	// the caller's block, where the caller's own writes could rewrite the
	// list and later allocations would overlap live ranges.
	base, data := testArena(t, 256)
	f, err := NewFreeList(base, data)
	require.NoError(t, err)

	a, err := f.Alloc(mem.Layout{Size: 24, Align: 8})
	require.NoError(t, err)
	assert.Equal(t, testBase, a)

	// The remaining node starts at base+24; a 16-aligned request would begin
	// at base+32, leaving an 8-byte front gap. Not servable from this node.
	_, err = f.Alloc(mem.Layout{Size: 16, Align: 16})
	assert.ErrorIs(t, err, mem.ErrOutOfMemory)

	// Filling the granted block with address-looking bytes must not change
	// what the allocator hands out afterwards.
	for i := range data[:24] {
		data[i] = 0xA5
	}
	l := mem.Layout{Size: 16, Align: 8}
	c, err := f.Alloc(l)
	require.NoError(t, err)
	assertDisjoint(t, []span{{a, 24}, {c, requiredSize(l)}})
}

func TestFreeList_FreeIsLIFO(t *testing.T) {
	f, err := NewFreeList(testArena(t, 1024))
	require.NoError(t, err)

	l := mem.Layout{Size: 64, Align: 8}
	a, err := f.Alloc(l)
	require.NoError(t, err)
	_, err = f.Alloc(l)
	require.NoError(t, err)

	// The freed block sits at the head of the list and is the first-fit
	// candidate for the next same-shape request.
	f.Free(a, l)
	again, err := f.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestFreeList_FrontShrinkKeepsRemainder(t *testing.T) {
	f, err := NewFreeList(testArena(t, 256))
	require.NoError(t, err)

	l := mem.Layout{Size: 64, Align: 8}
	first, err := f.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, testBase, first)

	second, err := f.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, testBase+64, second, "remainder header relocated to the new block start")
}

func TestFreeList_NoCoalescing(t *testing.T) {
	// Two adjacent 64-byte blocks freed back never merge, so a 128-byte
	// request that would fit the merged range fails. Documented
	// fragmentation baseline.
	f, err := NewFreeList(testArena(t, 128))
	require.NoError(t, err)

	l := mem.Layout{Size: 64, Align: 8}
	a, err := f.Alloc(l)
	require.NoError(t, err)
	b, err := f.Alloc(l)
	require.NoError(t, err)

	f.Free(a, l)
	f.Free(b, l)

	_, err = f.Alloc(mem.Layout{Size: 128, Align: 8})
	assert.ErrorIs(t, err, mem.ErrOutOfMemory)

	// The two original blocks are still individually servable.
	_, err = f.Alloc(l)
	assert.NoError(t, err)
	_, err = f.Alloc(l)
	assert.NoError(t, err)
}

func TestFreeList_ZeroSizeRejected(t *testing.T) {
	f, err := NewFreeList(testArena(t, 256))
	require.NoError(t, err)

	_, err = f.Alloc(mem.Layout{Size: 0, Align: 8})
	assert.ErrorIs(t, err, mem.ErrInvalidSize)
}
