package devfs

import "errors"

var (
	errNoSuchDevice   = errors.New("devfs: no such device")
	errIsDevice       = errors.New("devfs: is a device node")
	errNoRegularFiles = errors.New("devfs: regular files not supported")
	errFlatOnly       = errors.New("devfs: directory is flat, no subdirectories")
)
