package tmpfs

import "errors"

var (
	errGone     = errors.New("tmpfs: no such entry")
	errExists   = errors.New("tmpfs: entry exists")
	errNotEmpty = errors.New("tmpfs: directory not empty")
)
