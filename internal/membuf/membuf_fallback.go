//go:build !unix

package membuf

import "fmt"

// Alloc returns a zeroed buffer from the Go heap on platforms without
// anonymous mappings. The release function only drops the reference.
func Alloc(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("membuf: invalid size %d", size)
	}
	data := make([]byte, size)
	release := func() error {
		data = nil
		return nil
	}
	return data, release, nil
}
