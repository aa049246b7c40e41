package udp

import "errors"

var (
	errTooShort     = errors.New("udp: datagram too short")
	errBadChecksum  = errors.New("udp: checksum mismatch")
	errWouldBlock   = errors.New("udp: no datagram queued")
	errNoFreePort   = errors.New("udp: no free ephemeral port")
	errPortInUse    = errors.New("udp: port already bound")
	errAlreadyBound = errors.New("udp: socket already bound")
)
