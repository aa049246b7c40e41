package socket

import "errors"

var (
	errAlreadyBound    = errors.New("socket: already bound")
	errNotBound        = errors.New("socket: not bound")
	errNotListening    = errors.New("socket: not listening")
	errNotConnected    = errors.New("socket: not connected")
	errAlreadyConn     = errors.New("socket: already connected")
	errWouldBlock      = errors.New("socket: operation would block")
	errWrongFamily     = errors.New("socket: address family mismatch")
	errUnsupportedType = errors.New("socket: unsupported socket type")
	errPathInUse       = errors.New("socket: path already bound")
	errNoSuchPath      = errors.New("socket: no socket bound at path")
	errBacklogFull     = errors.New("socket: accept backlog full")
)
