// Package heap implements the kernel's heap allocation strategies over
// explicitly owned byte arenas.
//
// # Overview
//
// Every allocator in this package owns exactly one mem.Region (the slab
// allocator owns a set of registered spans) for the lifetime of the kernel
// and serves allocations out of it. Free-structure metadata is intrusive:
// free-list headers are little-endian words written into the first bytes of
// the free blocks themselves and overwritten by caller data once the block
// is reallocated.
//
// # Allocator contract
//
// All strategies implement the Allocator interface:
//
//   - Alloc(layout): returns an address that is a multiple of layout.Align,
//     or an error; live ranges handed out by one instance never overlap
//   - Free(addr, layout): returns the block; a freed block is not handed
//     out again until re-taken from the free structure
//
// Zero-size requests fail with mem.ErrInvalidSize in every strategy.
//
// # Strategies
//
// Bump: monotonic compare-and-swap cursor, no individual free, explicit
// Reset. FreeList: intrusive first-fit list with block splitting and no
// coalescing. FixedBlock: size-class buckets (8B to 2KB, doubling) over an
// embedded free-list core — the kernel-wide default. Stack: bump cursor
// with LIFO rollback on free. Slab: fixed-shape object pool fed by
// registered spans. Buddy: power-of-two splitting over per-order free
// lists, without merging buddies on free.
//
// # Thread safety
//
// Bump and Stack serialize through compare-and-swap retry loops; the
// list-structured allocators serialize through a single non-reentrant
// mem.SpinLock per instance. FixedBlock guards its buckets and its
// fallback core with the same lock, so a class miss never re-acquires.
package heap
