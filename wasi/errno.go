package wasi

import "fmt"

// Errno is a WASI error code as defined by the snapshot-01 ABI. Host
// functions return it to the guest as an i32.
type Errno uint32

// The subset of WASI error codes this module produces. Values follow the
// snapshot-01 numbering.
const (
	ESUCCESS     Errno = 0
	E2BIG        Errno = 1
	EACCES       Errno = 2
	EAGAIN       Errno = 6
	EBADF        Errno = 8
	EEXIST       Errno = 20
	EFAULT       Errno = 21
	EINTR        Errno = 27
	EINVAL       Errno = 28
	EIO          Errno = 29
	EISDIR       Errno = 31
	ENAMETOOLONG Errno = 37
	ENOENT       Errno = 44
	ENOMEM       Errno = 48
	ENOSPC       Errno = 51
	ENOSYS       Errno = 52
	ENOTDIR      Errno = 54
	ENOTSUP      Errno = 58
	EPERM        Errno = 63
	EPIPE        Errno = 64
)

func (e Errno) String() string {
	switch e {
	case ESUCCESS:
		return "ESUCCESS"
	case E2BIG:
		return "E2BIG"
	case EACCES:
		return "EACCES"
	case EAGAIN:
		return "EAGAIN"
	case EBADF:
		return "EBADF"
	case EEXIST:
		return "EEXIST"
	case EFAULT:
		return "EFAULT"
	case EINTR:
		return "EINTR"
	case EINVAL:
		return "EINVAL"
	case EIO:
		return "EIO"
	case EISDIR:
		return "EISDIR"
	case ENAMETOOLONG:
		return "ENAMETOOLONG"
	case ENOENT:
		return "ENOENT"
	case ENOMEM:
		return "ENOMEM"
	case ENOSPC:
		return "ENOSPC"
	case ENOSYS:
		return "ENOSYS"
	case ENOTDIR:
		return "ENOTDIR"
	case ENOTSUP:
		return "ENOTSUP"
	case EPERM:
		return "EPERM"
	case EPIPE:
		return "EPIPE"
	}
	return fmt.Sprintf("errno(%d)", uint32(e))
}
