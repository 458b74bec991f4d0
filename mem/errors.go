package mem

import "errors"

var (
	// ErrOutOfMemory indicates the allocator's region cannot satisfy the request.
	ErrOutOfMemory = errors.New("mem: out of memory")

	// ErrInvalidAddress indicates a null or otherwise unusable address.
	ErrInvalidAddress = errors.New("mem: invalid address")

	// ErrInvalidSize indicates a zero or otherwise unusable size.
	ErrInvalidSize = errors.New("mem: invalid size")

	// ErrOverflow indicates an address computation wrapped around.
	ErrOverflow = errors.New("mem: address overflow")

	// ErrUninitialized indicates use of an allocator before its init step.
	ErrUninitialized = errors.New("mem: allocator not initialized")
)
