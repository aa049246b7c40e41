// Package errno translates kernel errors into the small negative POSIX
// errno values the syscall ABI returns to user space (spec §7).
package errno

import "github.com/eric29200/nulix/errdefs"

// Errno is a POSIX error number, always returned negative to user space by
// the syscall-dispatch boundary (e.g. -ENOENT) and positive as a Go int
// constant here for readability.
type Errno int

// The subset of the POSIX taxonomy named in spec §7.
const (
	EPERM        Errno = 1
	ENOENT       Errno = 2
	EIO          Errno = 5
	ENXIO        Errno = 6
	EAGAIN       Errno = 11
	ENOMEM       Errno = 12
	EACCES       Errno = 13
	EEXIST       Errno = 17
	ENOTDIR      Errno = 20
	EISDIR       Errno = 21
	EINVAL       Errno = 22
	ENFILE       Errno = 23
	EMFILE       Errno = 24
	ENOSPC       Errno = 28
	EPIPE        Errno = 32
	ENAMETOOLONG Errno = 36
	ENOSYS       Errno = 38
	ENOTCONN     Errno = 107
	EADDRINUSE   Errno = 98
	EINTR        Errno = 4
	EBUSY        Errno = 16
	EBADF        Errno = 9
	ERESTARTSYS  Errno = 512
	ENOIOCTLCMD  Errno = 515
	ELOOP        Errno = 40
	EINPROGRESS  Errno = 115
)

func (e Errno) Error() string {
	if name, ok := names[e]; ok {
		return name
	}
	return "unknown errno"
}

var names = map[Errno]string{
	EPERM: "EPERM", ENOENT: "ENOENT", EIO: "EIO", ENXIO: "ENXIO",
	EAGAIN: "EAGAIN", ENOMEM: "ENOMEM", EACCES: "EACCES", EEXIST: "EEXIST",
	ENOTDIR: "ENOTDIR", EISDIR: "EISDIR", EINVAL: "EINVAL", ENFILE: "ENFILE",
	EMFILE: "EMFILE", ENOSPC: "ENOSPC", EPIPE: "EPIPE",
	ENAMETOOLONG: "ENAMETOOLONG", ENOSYS: "ENOSYS", ENOTCONN: "ENOTCONN",
	EADDRINUSE: "EADDRINUSE", EINTR: "EINTR", EBUSY: "EBUSY", EBADF: "EBADF",
	ERESTARTSYS: "ERESTARTSYS", ENOIOCTLCMD: "ENOIOCTLCMD", ELOOP: "ELOOP",
	EINPROGRESS: "EINPROGRESS",
}

// FromError classifies an arbitrary kernel error (an errdefs kind, a plain
// Errno, or an opaque error) into the errno the syscall-return path should
// place in the result register. Unclassified errors return EIO, a
// conservative default for unmapped failures.
func FromError(err error) Errno {
	if err == nil {
		return 0
	}
	var e Errno
	if ok := asErrno(err, &e); ok {
		return e
	}
	switch {
	case errdefs.IsNotFound(err):
		return ENOENT
	case errdefs.IsInvalidParameter(err):
		return EINVAL
	case errdefs.IsConflict(err):
		return EEXIST
	case errdefs.IsForbidden(err):
		return EACCES
	case errdefs.IsResourceExhausted(err):
		return ENOMEM
	case errdefs.IsUnavailable(err):
		return EAGAIN
	case errdefs.IsNotImplemented(err):
		return ENOSYS
	case errdefs.IsInterrupted(err):
		return EINTR
	case errdefs.IsIO(err):
		return EIO
	default:
		return EIO
	}
}

func asErrno(err error, out *Errno) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(Errno); ok {
			*out = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
