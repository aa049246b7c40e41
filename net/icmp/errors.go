package icmp

import "errors"

var (
	errTooShort    = errors.New("icmp: message too short")
	errBadChecksum = errors.New("icmp: checksum mismatch")
)
