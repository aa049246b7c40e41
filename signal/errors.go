package signal

import "errors"

var (
	errBadSignal       = errors.New("signal: signal number out of range")
	errCannotCatch     = errors.New("signal: signal cannot be caught, blocked, or ignored")
	errQueueFull       = errors.New("signal: realtime signal queue is full")
)
