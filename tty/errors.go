package tty

import "errors"

var (
	errWouldBlock = errors.New("tty: operation would block")
	errBadIoctl   = errors.New("tty: unsupported ioctl command")
	errNotAPty    = errors.New("tty: not a pty master")
	errNoSuchTty  = errors.New("tty: no such tty")
	errTableFull  = errors.New("tty: device table full")
)
