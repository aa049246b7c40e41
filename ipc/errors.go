package ipc

import "errors"

var (
	errTooManyIDs = errors.New("ipc: id table full")
	errNoEntry    = errors.New("ipc: no object registered for key")
	errExists     = errors.New("ipc: key already exists")
	errStaleID    = errors.New("ipc: id refers to a removed object")
	errTooBig     = errors.New("ipc: message larger than queue permits")
	errQueueFull  = errors.New("ipc: message queue at byte limit")
	errNoMessage  = errors.New("ipc: no message of the requested type")
	errPermission = errors.New("ipc: permission denied")
	errRange      = errors.New("ipc: semaphore adjustment out of range")
	errBadSemNum  = errors.New("ipc: semaphore number out of range")
	errBadMsgType = errors.New("ipc: message type must be >= 1")
	errWouldBlock = errors.New("ipc: operation would block")
	errAttached   = errors.New("ipc: segment still attached")
)
