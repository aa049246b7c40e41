package isofs

import "errors"

var (
	errNotPrimary = errors.New("isofs: first volume descriptor is not the primary one")
	errBadMagic   = errors.New("isofs: missing CD001 standard identifier")
	errNoSuchEntry = errors.New("isofs: no such entry")
	errNotSymlink  = errors.New("isofs: not a symlink")
	errReadOnly    = errors.New("isofs: read-only filesystem")
)
