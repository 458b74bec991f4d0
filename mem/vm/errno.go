// Package vm implements the address-space syscalls (mmap, munmap, brk) and
// the process bootstrap primitives, composed from the physical frame
// allocator and the page-table mapper.
package vm

// Errno is the syscall-facing error code. Allocator and mapper failures are
// folded into these at the syscall boundary; the dispatcher turns them into
// the return value user code sees.
type Errno int

const (
	EINVAL Errno = iota + 1 // invalid argument
	ENOMEM                  // no memory
	ENOSYS                  // not implemented
)

func (e Errno) Error() string {
	switch e {
	case EINVAL:
		return "invalid argument"
	case ENOMEM:
		return "no memory"
	case ENOSYS:
		return "not implemented"
	default:
		return "unknown error"
	}
}

// Protection bits accepted by Mmap.
const (
	ProtRead  = 0x1
	ProtWrite = 0x2
	ProtExec  = 0x4
)
