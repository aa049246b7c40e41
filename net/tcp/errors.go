package tcp

import "errors"

var (
	errTooShort        = errors.New("tcp: segment too short")
	errBadChecksum     = errors.New("tcp: checksum mismatch")
	errWouldBlock      = errors.New("tcp: no data available")
	errNotConnected    = errors.New("tcp: connection not established")
	errConnectionReset = errors.New("tcp: connection reset by peer")
	errNoFreePort      = errors.New("tcp: no free ephemeral port")
	errPortInUse       = errors.New("tcp: port already bound")
	errBacklogFull     = errors.New("tcp: accept backlog full")
	errWrongState      = errors.New("tcp: operation invalid in current state")
)
