// Package errdefs defines the error kinds used across the kernel tree.
//
// Every subsystem returns one of these kinds (directly or wrapped) instead
// of an ad-hoc error so that the syscall-return boundary (see package
// errno) can translate any failure into a POSIX errno without needing to
// know which subsystem produced it.
package errdefs

// ErrNotFound signals that a lookup (inode, dentry, task, route, ...) found
// nothing matching the key.
type ErrNotFound interface {
	NotFound()
}

// ErrInvalidParameter signals a malformed argument.
type ErrInvalidParameter interface {
	InvalidParameter()
}

// ErrConflict signals the target exists and the operation required it not
// to (e.g. mkdir over an existing name).
type ErrConflict interface {
	Conflict()
}

// ErrPermission signals a permission/credential check failed.
type ErrPermission interface {
	Forbidden()
}

// ErrResourceExhausted signals a resource limit (frames, file descriptors,
// inodes, ports) was reached.
type ErrResourceExhausted interface {
	ResourceExhausted()
}

// ErrUnavailable signals the target is in a state that temporarily refuses
// the operation (EAGAIN/EBUSY territory).
type ErrUnavailable interface {
	Unavailable()
}

// ErrNotImplemented signals the operation is not supported (ENOSYS/
// ENOIOCTLCMD territory).
type ErrNotImplemented interface {
	NotImplemented()
}

// ErrInterrupted signals a blocking call was interrupted by signal delivery
// (EINTR/ERESTARTSYS territory).
type ErrInterrupted interface {
	Interrupted()
}

// ErrIO signals a hardware or media failure (EIO/ENXIO territory).
type ErrIO interface {
	IOFailure()
}

type causer interface {
	Cause() error
}

type wrapper interface {
	Unwrap() error
}

type joiner interface {
	Unwrap() []error
}

func isKind(err error) bool {
	switch err.(type) {
	case ErrNotFound, ErrInvalidParameter, ErrConflict, ErrPermission,
		ErrResourceExhausted, ErrUnavailable, ErrNotImplemented,
		ErrInterrupted, ErrIO:
		return true
	}
	return false
}

// getImplementer walks Unwrap/Cause/Join chains looking for the single
// errdefs kind reachable from err. A join with more than one matching kind
// is ambiguous and reports no match.
func getImplementer(err error) error {
	if err == nil {
		return nil
	}
	if isKind(err) {
		return err
	}
	switch e := err.(type) {
	case causer:
		return getImplementer(e.Cause())
	case wrapper:
		return getImplementer(e.Unwrap())
	case joiner:
		var found error
		count := 0
		for _, sub := range e.Unwrap() {
			impl := getImplementer(sub)
			if isKind(impl) {
				found = impl
				count++
			}
		}
		if count == 1 {
			return found
		}
		return err
	default:
		return err
	}
}
