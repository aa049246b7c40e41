package ip

import "errors"

var (
	errTooShort           = errors.New("ip: packet too short")
	errBadVersion         = errors.New("ip: not an IPv4 packet")
	errOptionsUnsupported = errors.New("ip: header options unsupported")
	errBadChecksum        = errors.New("ip: header checksum mismatch")
	errNoRoute            = errors.New("ip: no route to host")
	errARPPending         = errors.New("ip: hardware address not yet resolved")
)
