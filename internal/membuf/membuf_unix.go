//go:build unix

// Package membuf allocates large anonymous memory buffers for allocator
// backing stores. Buffers in the hundreds-of-megabytes range are mapped
// rather than heap-allocated so the pages stay untouched (and unbacked)
// until an allocator actually writes into them.
package membuf

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Alloc maps size bytes of zeroed anonymous memory and returns the buffer
// together with a release function. Releasing twice is a no-op.
func Alloc(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("membuf: invalid size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, fmt.Errorf("membuf: mmap %d bytes: %w", size, err)
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, release, nil
}
