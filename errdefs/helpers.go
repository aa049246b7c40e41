package errdefs

// Each kind wraps an underlying cause so the original error is still
// reachable through errors.Is/errors.As while gaining a shape the is.go
// predicates can recognize.

type errNotFound struct{ error }

func (errNotFound) NotFound()    {}
func (e errNotFound) Cause() error { return e.error }
func (e errNotFound) Unwrap() error { return e.error }

// NotFound wraps err as an ErrNotFound.
func NotFound(err error) error {
	if err == nil {
		return nil
	}
	return errNotFound{err}
}

type errInvalidParameter struct{ error }

func (errInvalidParameter) InvalidParameter()  {}
func (e errInvalidParameter) Cause() error  { return e.error }
func (e errInvalidParameter) Unwrap() error { return e.error }

// InvalidParameter wraps err as an ErrInvalidParameter.
func InvalidParameter(err error) error {
	if err == nil {
		return nil
	}
	return errInvalidParameter{err}
}

type errConflict struct{ error }

func (errConflict) Conflict()      {}
func (e errConflict) Cause() error  { return e.error }
func (e errConflict) Unwrap() error { return e.error }

// Conflict wraps err as an ErrConflict.
func Conflict(err error) error {
	if err == nil {
		return nil
	}
	return errConflict{err}
}

type errForbidden struct{ error }

func (errForbidden) Forbidden()    {}
func (e errForbidden) Cause() error  { return e.error }
func (e errForbidden) Unwrap() error { return e.error }

// Forbidden wraps err as an ErrPermission.
func Forbidden(err error) error {
	if err == nil {
		return nil
	}
	return errForbidden{err}
}

type errResourceExhausted struct{ error }

func (errResourceExhausted) ResourceExhausted() {}
func (e errResourceExhausted) Cause() error  { return e.error }
func (e errResourceExhausted) Unwrap() error { return e.error }

// ResourceExhausted wraps err as an ErrResourceExhausted.
func ResourceExhausted(err error) error {
	if err == nil {
		return nil
	}
	return errResourceExhausted{err}
}

type errUnavailable struct{ error }

func (errUnavailable) Unavailable()  {}
func (e errUnavailable) Cause() error  { return e.error }
func (e errUnavailable) Unwrap() error { return e.error }

// Unavailable wraps err as an ErrUnavailable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return errUnavailable{err}
}

type errNotImplemented struct{ error }

func (errNotImplemented) NotImplemented() {}
func (e errNotImplemented) Cause() error   { return e.error }
func (e errNotImplemented) Unwrap() error  { return e.error }

// NotImplemented wraps err as an ErrNotImplemented.
func NotImplemented(err error) error {
	if err == nil {
		return nil
	}
	return errNotImplemented{err}
}

type errInterrupted struct{ error }

func (errInterrupted) Interrupted() {}
func (e errInterrupted) Cause() error  { return e.error }
func (e errInterrupted) Unwrap() error { return e.error }

// Interrupted wraps err as an ErrInterrupted.
func Interrupted(err error) error {
	if err == nil {
		return nil
	}
	return errInterrupted{err}
}

type errIO struct{ error }

func (errIO) IOFailure()     {}
func (e errIO) Cause() error  { return e.error }
func (e errIO) Unwrap() error { return e.error }

// IO wraps err as an ErrIO.
func IO(err error) error {
	if err == nil {
		return nil
	}
	return errIO{err}
}
