package blockdev

import "errors"

var (
	errNoDriver  = errors.New("blockdev: no driver registered for major")
	errQueueFull = errors.New("blockdev: request queue full")
)
