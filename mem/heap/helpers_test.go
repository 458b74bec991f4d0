package heap

import (
	"testing"

	"github.com/osdevkit/memcore/mem"
	"github.com/stretchr/testify/assert"
)

// testBase is an arbitrary non-null base address for scratch arenas.
const testBase = uint64(0x10_0000)

func testArena(t *testing.T, size int) (uint64, []byte) {
	t.Helper()
	return testBase, make([]byte, size)
}

type span struct {
	addr, size uint64
}

// assertDisjoint fails when any two live ranges overlap.
func assertDisjoint(t *testing.T, spans []span) {
	t.Helper()
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			overlap := a.addr < b.addr+b.size && b.addr < a.addr+a.size
			assert.False(t, overlap,
				"ranges [%#x,%#x) and [%#x,%#x) overlap",
				a.addr, a.addr+a.size, b.addr, b.addr+b.size)
		}
	}
}

// allocAligned exercises the shared alignment property: for every power-of-
// two align, a successful result is a multiple of it.
func allocAligned(t *testing.T, a Allocator) {
	t.Helper()
	for _, align := range []uint64{1, 2, 4, 8, 16, 64, 256} {
		for _, size := range []uint64{1, 8, 24, 100} {
			addr, err := a.Alloc(mem.Layout{Size: size, Align: align})
			if err != nil {
				continue // exhaustion is fine here, alignment is the property
			}
			assert.True(t, mem.IsAligned(addr, align),
				"addr %#x not aligned to %d (size %d)", addr, align, size)
		}
	}
}
