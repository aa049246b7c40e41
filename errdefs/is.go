package errdefs

// IsNotFound reports whether err is or wraps an ErrNotFound, or joins
// errors of which exactly one carries an errdefs kind and that one is an
// ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := getImplementer(err).(ErrNotFound)
	return ok
}

// IsInvalidParameter reports whether err is an ErrInvalidParameter.
func IsInvalidParameter(err error) bool {
	_, ok := getImplementer(err).(ErrInvalidParameter)
	return ok
}

// IsConflict reports whether err is an ErrConflict.
func IsConflict(err error) bool {
	_, ok := getImplementer(err).(ErrConflict)
	return ok
}

// IsForbidden reports whether err is an ErrPermission.
func IsForbidden(err error) bool {
	_, ok := getImplementer(err).(ErrPermission)
	return ok
}

// IsResourceExhausted reports whether err is an ErrResourceExhausted.
func IsResourceExhausted(err error) bool {
	_, ok := getImplementer(err).(ErrResourceExhausted)
	return ok
}

// IsUnavailable reports whether err is an ErrUnavailable.
func IsUnavailable(err error) bool {
	_, ok := getImplementer(err).(ErrUnavailable)
	return ok
}

// IsNotImplemented reports whether err is an ErrNotImplemented.
func IsNotImplemented(err error) bool {
	_, ok := getImplementer(err).(ErrNotImplemented)
	return ok
}

// IsInterrupted reports whether err is an ErrInterrupted.
func IsInterrupted(err error) bool {
	_, ok := getImplementer(err).(ErrInterrupted)
	return ok
}

// IsIO reports whether err is an ErrIO.
func IsIO(err error) bool {
	_, ok := getImplementer(err).(ErrIO)
	return ok
}
