// Package socket implements the family-neutral socket layer of spec
// §4.10: a prot_ops vtable (create/dup/release/poll/recvmsg/sendmsg/
// bind/listen/accept/connect/shutdown/get{peer,sock}name/get-
// setsockopt, optional socketpair) selected by address family, with
// AF_INET backed by net/udp and net/tcp and AF_UNIX backed by in-kernel
// packet queues.
package socket

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// Family is a socket address family.
type Family int

const (
	AFInet Family = iota
	AFUnix
)

// Type is a socket type.
type Type int

const (
	SockStream Type = iota
	SockDgram
)

// Shutdown directions, matching shutdown(2)'s how argument.
const (
	ShutRD = iota
	ShutWR
	ShutRDWR
)

// Addr is a family-neutral socket address: AF_INET uses IP/Port, AF_UNIX
// uses Path (empty for an anonymous/abstract endpoint).
type Addr struct {
	Family Family
	IP     net.IP
	Port   uint16
	Path   string
}

// anonymousName generates an abstract-namespace name for an unbound
// AF_UNIX endpoint (e.g. the client half of a connect, or a socketpair
// member), the same google/uuid idiom fs/tmpfs uses for anonymous
// backing names.
func anonymousName() string {
	return "@" + uuid.NewString()
}

// ProtOps is the per-family socket vtable spec §4.10 names. Poll reports
// current readability/writability rather than blocking; a not-yet-built
// syscall layer parks on whatever wait queue the concrete family exposes
// (net/tcp.Conn.Waiters, net/udp.Socket.Waiters, or this package's own
// unixQueue waiters) and retries, following this tree's one-shot
// blocking contract.
type ProtOps interface {
	Bind(addr Addr) error
	Listen(backlog int) error
	Accept() (ProtOps, Addr, error)
	Connect(addr Addr) error
	Shutdown(how int) error
	Sendmsg(to *Addr, data []byte) (int, error)
	Recvmsg(buf []byte) (n int, from Addr, err error)
	Getsockname() (Addr, error)
	Getpeername() (Addr, error)
	Getsockopt(level, name int) (int, error)
	Setsockopt(level, name, value int) error
	Poll() (readable, writable bool)
	Close() error
}

// Socket wraps a family's ProtOps implementation with the reference
// count dup(2)/close(2) need: the underlying endpoint is only actually
// released once every duplicate file-table entry has been closed.
type Socket struct {
	mu   sync.Mutex
	refs int
	ops  ProtOps
}

// New wraps an already-constructed ProtOps (built by NewInetSocket or
// NewUnixSocket) with an initial reference of one.
func New(ops ProtOps) *Socket {
	return &Socket{ops: ops, refs: 1}
}

// Ops exposes the underlying family implementation.
func (s *Socket) Ops() ProtOps { return s.ops }

// Dup increments the reference count, as dup(2)/fork(2) do for an open
// file description.
func (s *Socket) Dup() *Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs++
	return s
}

// Release drops one reference, closing the underlying endpoint once the
// count reaches zero.
func (s *Socket) Release() error {
	s.mu.Lock()
	s.refs--
	drop := s.refs <= 0
	s.mu.Unlock()
	if drop {
		return s.ops.Close()
	}
	return nil
}
