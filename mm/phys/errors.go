package phys

import "errors"

var (
	errUnknownZone = errors.New("phys: unknown zone")
	errOOM         = errors.New("phys: out of memory")
)
