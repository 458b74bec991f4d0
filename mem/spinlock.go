package mem

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is non-reentrant busy-wait mutual exclusion around allocator
// state. A second acquisition from the same logical execution context (for
// example an interrupt handler landing on top of code that already holds it)
// spins forever, which is why interrupt-side data capture must stay off the
// lock-guarded heap entirely.
type SpinLock struct {
	locked atomic.Uint32
}

// Acquire spins until the lock is taken.
func (l *SpinLock) Acquire() {
	for !l.locked.CompareAndSwap(0, 1) {
		for l.locked.Load() != 0 {
			runtime.Gosched() // pause hint
		}
	}
}

// Release unlocks. Calling Release without holding the lock corrupts it.
func (l *SpinLock) Release() {
	l.locked.Store(0)
}

// With runs body under the lock, releasing on every exit path including
// panics.
func (l *SpinLock) With(body func()) {
	l.Acquire()
	defer l.Release()
	body()
}
