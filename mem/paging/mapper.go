package paging

import (
	"errors"

	"github.com/osdevkit/memcore/mem"
	"github.com/osdevkit/memcore/mem/phys"
	"github.com/sirupsen/logrus"
)

// ErrWalk indicates a structurally broken page table: a present entry whose
// frame cannot be followed.
var ErrWalk = errors.New("paging: page table walk failed")

// Mapper installs virtual-to-physical translations by walking and extending
// the four-level tree rooted at the active CR3 value. Intermediate tables
// are allocated from the physical frame allocator on demand.
type Mapper struct {
	memory *phys.Memory
	frames *phys.FrameAllocator
	cr3    *CR3
	tlb    *TLB
}

// NewMapper wires the mapper to the physical space, the frame allocator and
// the active-root register.
func NewMapper(memory *phys.Memory, frames *phys.FrameAllocator, cr3 *CR3) *Mapper {
	return &Mapper{memory: memory, frames: frames, cr3: cr3, tlb: NewTLB()}
}

// TLB exposes the mapper's translation cache.
func (mp *Mapper) TLB() *TLB {
	return mp.tlb
}

func (mp *Mapper) entryAt(table uint64, idx uint64) Entry {
	return Entry(mp.memory.ReadU64(table + idx*entrySize))
}

func (mp *Mapper) setEntry(table uint64, idx uint64, e Entry) {
	mp.memory.WriteU64(table+idx*entrySize, uint64(e))
}

// followable reports whether a next-level table at frame lies inside the
// physical space.
func (mp *Mapper) followable(frame uint64) bool {
	return frame != 0 && frame+TableSize <= mp.memory.Size()
}

// Map installs a translation from the virtual page at virt to frame with
// the given leaf flags.
//
// The walk runs top-down from the active root. An absent intermediate entry
// gets a freshly allocated, zeroed table linked in with present+writable
// parent flags. A present intermediate that carries no-execute while the
// leaf needs execute permission has no-execute cleared in place: permission
// is OR'd upward through the tree. The leaf entry is unconditionally
// overwritten, so remapping an already-mapped page silently replaces the
// old translation. A successful install always ends with a per-page
// translation-cache invalidation.
func (mp *Mapper) Map(virt, frame uint64, flags Flags) error {
	if !mem.IsAligned(virt, phys.FrameSize) {
		return mem.ErrInvalidAddress
	}

	table := mp.cr3.Load()
	if !mp.followable(table) {
		return ErrWalk
	}

	for _, shift := range levelShifts[:3] {
		idx := levelIndex(virt, shift)
		e := mp.entryAt(table, idx)
		switch {
		case !e.Present():
			next, err := mp.frames.AllocZeroedFrame()
			if err != nil {
				return mem.ErrOutOfMemory
			}
			e = NewEntry(next, FlagPresent|FlagWritable)
			mp.setEntry(table, idx, e)
		case e.Flags()&FlagNoExec != 0 && flags&FlagNoExec == 0:
			// The leaf needs execute permission but this parent forbids
			// it; clear no-execute on the parent in place.
			e = NewEntry(e.Frame(), FlagPresent|FlagWritable)
			mp.setEntry(table, idx, e)
		}
		if !mp.followable(e.Frame()) {
			return ErrWalk
		}
		table = e.Frame()
	}

	mp.setEntry(table, levelIndex(virt, levelShifts[3]), NewEntry(frame, flags|FlagPresent))
	mp.tlb.Invalidate(virt)
	return nil
}

// walkLeaf follows the tree to the leaf entry covering virt. ok is false
// when any level on the way is absent or unfollowable.
func (mp *Mapper) walkLeaf(virt uint64) (table uint64, idx uint64, e Entry, ok bool) {
	table = mp.cr3.Load()
	if !mp.followable(table) {
		return 0, 0, 0, false
	}
	for _, shift := range levelShifts[:3] {
		ent := mp.entryAt(table, levelIndex(virt, shift))
		if !ent.Present() || !mp.followable(ent.Frame()) {
			return 0, 0, 0, false
		}
		table = ent.Frame()
	}
	idx = levelIndex(virt, levelShifts[3])
	return table, idx, mp.entryAt(table, idx), true
}

// IsMapped reports whether the page containing virt has a present leaf
// translation.
func (mp *Mapper) IsMapped(virt uint64) bool {
	_, _, e, ok := mp.walkLeaf(virt)
	return ok && e.Present()
}

// Translate resolves virt to its physical address, consulting and filling
// the translation cache.
func (mp *Mapper) Translate(virt uint64) (uint64, bool) {
	page := mem.AlignDown(virt, phys.FrameSize)
	offset := virt - page

	if frame, ok := mp.tlb.Lookup(page); ok {
		return frame + offset, true
	}
	_, _, e, ok := mp.walkLeaf(page)
	if !ok || !e.Present() {
		return 0, false
	}
	mp.tlb.Fill(page, e.Frame())
	return e.Frame() + offset, true
}

// Unmap clears the leaf entry for the page containing virt, best-effort: a
// page with no complete walk is left alone. Intermediate tables that become
// empty are not reclaimed.
func (mp *Mapper) Unmap(virt uint64) {
	page := mem.AlignDown(virt, phys.FrameSize)
	table, idx, e, ok := mp.walkLeaf(page)
	if !ok || !e.Present() {
		return
	}
	mp.setEntry(table, idx, 0)
	mp.tlb.Invalidate(page)
}

// DebugWalk logs every level of the walk for a virtual address. Used when
// chasing unexpected faults.
func (mp *Mapper) DebugWalk(virt uint64, log *logrus.Entry) {
	table := mp.cr3.Load()
	log.WithFields(logrus.Fields{"virt": virt, "root": table}).Debug("page walk")
	names := [4]string{"P4", "P3", "P2", "P1"}
	for i, shift := range levelShifts {
		idx := levelIndex(virt, shift)
		e := mp.entryAt(table, idx)
		log.WithFields(logrus.Fields{
			"level":   names[i],
			"index":   idx,
			"raw":     uint64(e),
			"present": e.Present(),
			"noExec":  e.Flags()&FlagNoExec != 0,
		}).Debug("page walk level")
		if !e.Present() || !mp.followable(e.Frame()) {
			return
		}
		table = e.Frame()
	}
}
