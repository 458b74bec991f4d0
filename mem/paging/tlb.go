package paging

import "github.com/osdevkit/memcore/mem"

// TLB is the translation cache: recently resolved page-to-frame
// translations, invalidated per page whenever a mapping changes. Every
// successful installation through the mapper ends with an invalidation of
// the affected page, which is what makes the new mapping immediately
// visible to the caller.
type TLB struct {
	lock          mem.SpinLock
	entries       map[uint64]uint64
	invalidations uint64
}

// NewTLB returns an empty translation cache.
func NewTLB() *TLB {
	return &TLB{entries: make(map[uint64]uint64)}
}

// Lookup returns the cached frame for a page.
func (t *TLB) Lookup(page uint64) (uint64, bool) {
	var (
		frame uint64
		ok    bool
	)
	t.lock.With(func() {
		frame, ok = t.entries[page]
	})
	return frame, ok
}

// Fill caches a resolved translation.
func (t *TLB) Fill(page, frame uint64) {
	t.lock.With(func() {
		t.entries[page] = frame
	})
}

// Invalidate drops any cached translation for the page.
func (t *TLB) Invalidate(page uint64) {
	t.lock.With(func() {
		delete(t.entries, page)
		t.invalidations++
	})
}

// Invalidations returns how many per-page invalidations have been issued.
func (t *TLB) Invalidations() uint64 {
	var n uint64
	t.lock.With(func() {
		n = t.invalidations
	})
	return n
}
