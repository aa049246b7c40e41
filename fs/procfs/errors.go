package procfs

import "errors"

var (
	errNoSuchProcess = errors.New("procfs: no such process")
	errNoSuchEntry   = errors.New("procfs: no such entry")
	errNotDir        = errors.New("procfs: not a directory")
	errIsDir         = errors.New("procfs: is a directory")
	errReadOnly      = errors.New("procfs: read-only filesystem")
)
