package devtbl

import "errors"

var (
	errNoSuchDevice = errors.New("devtbl: no such device")
	errNoRoute      = errors.New("devtbl: no route to host")
	errNotIPv4      = errors.New("devtbl: not an IPv4 address")
)
