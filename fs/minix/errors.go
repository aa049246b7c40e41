package minix

import "errors"

var (
	errBadMagic       = errors.New("minix: bad superblock magic")
	errNoSuchEntry    = errors.New("minix: no such entry")
	errReadOnlyGrowth = errors.New("minix: filesystem mounted read-only, no block allocator")
)
