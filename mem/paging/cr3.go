package paging

import "sync/atomic"

// CR3 models the control register holding the physical address of the
// active root (P4) table. The mapper reads it at call time rather than
// caching it, so switching address spaces takes effect immediately.
type CR3 struct {
	root atomic.Uint64
}

// Load returns the active root table's physical address.
func (c *CR3) Load() uint64 {
	return c.root.Load()
}

// Store installs a new active root table.
func (c *CR3) Store(frame uint64) {
	c.root.Store(frame)
}
