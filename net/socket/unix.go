package socket

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

// InodeBinder lets the kernel wiring layer back a path-named AF_UNIX
// socket with a real on-disk socket-type inode (spec §4.10: "for
// path-named sockets, binds to a socket-type inode on disk"). A unix
// socket built without one (e.g. in this package's own tests) still
// works over the abstract in-memory namespace; only the on-disk
// visibility is skipped.
type InodeBinder interface {
	BindSocketInode(path string) error
	UnbindSocketInode(path string) error
}

// unixSocket implements ProtOps for AF_UNIX, over in-kernel packet
// queues (unixQueue) rather than net/ip — spec §4.10 describes AF_UNIX
// as sharing the same prot_ops contract as AF_INET while never touching
// the network stack.
type unixSocket struct {
	mu sync.Mutex

	typ    Type
	sched  *sched.Scheduler
	binder InodeBinder

	name      string // this endpoint's own bound/anonymous name
	peerName  string
	path      string // on-disk path, if bound to one ("" for abstract)
	bound     bool
	connected bool
	closed    bool

	recv *unixQueue // this endpoint's inbox
	send *unixQueue // the connected peer's inbox (SOCK_STREAM only)

	listener *unixListener // set once Listen has been called
}

// NewUnixSocket creates an unbound AF_UNIX endpoint of the given type.
func NewUnixSocket(scheduler *sched.Scheduler, typ Type, binder InodeBinder) ProtOps {
	return &unixSocket{typ: typ, sched: scheduler, binder: binder, recv: newUnixQueue(scheduler)}
}

// Socketpair creates two already-connected AF_UNIX endpoints directly,
// bypassing the registry (spec §8 testable property 7).
func Socketpair(scheduler *sched.Scheduler, typ Type) (ProtOps, ProtOps) {
	qa := newUnixQueue(scheduler)
	qb := newUnixQueue(scheduler)
	nameA, nameB := anonymousName(), anonymousName()
	a := &unixSocket{typ: typ, sched: scheduler, name: nameA, peerName: nameB, recv: qa, send: qb, connected: true}
	b := &unixSocket{typ: typ, sched: scheduler, name: nameB, peerName: nameA, recv: qb, send: qa, connected: true}
	return a, b
}

func (s *unixSocket) Bind(addr Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr.Family != AFUnix {
		return errdefs.InvalidParameter(errWrongFamily)
	}
	if s.bound {
		return errdefs.Conflict(errAlreadyBound)
	}
	name := addr.Path
	if name == "" {
		name = anonymousName()
	}
	if s.typ == SockDgram {
		if err := registry.bindDgram(name, s); err != nil {
			return err
		}
	}
	// A SOCK_STREAM bind registers nothing in the registry: the name is
	// only recorded on the socket, and Listen registers the accept
	// backlog under it.
	if addr.Path != "" && s.binder != nil {
		if err := s.binder.BindSocketInode(addr.Path); err != nil {
			if s.typ == SockDgram {
				registry.unbindDgram(name)
			}
			return err
		}
	}
	s.name = name
	s.path = addr.Path
	s.bound = true
	return nil
}

func (s *unixSocket) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typ != SockStream {
		return errdefs.InvalidParameter(errUnsupportedType)
	}
	if !s.bound {
		return errdefs.Conflict(errNotBound)
	}
	l, err := registry.bindListener(s.name, backlog, s.sched)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

func (s *unixSocket) Accept() (ProtOps, Addr, error) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return nil, Addr{}, errdefs.Conflict(errNotListening)
	}
	child, err := l.accept()
	if err != nil {
		return nil, Addr{}, err
	}
	return child, Addr{Family: AFUnix, Path: child.peerName}, nil
}

func (s *unixSocket) Connect(addr Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr.Family != AFUnix {
		return errdefs.InvalidParameter(errWrongFamily)
	}
	if s.typ == SockDgram {
		s.peerName = addr.Path
		s.connected = true
		return nil
	}

	l, ok := registry.lookupListener(addr.Path)
	if !ok {
		return errdefs.NotFound(errNoSuchPath)
	}
	if s.name == "" {
		s.name = anonymousName()
	}
	qClientRecv := s.recv
	qServerRecv := newUnixQueue(s.sched)
	s.send = qServerRecv
	s.peerName = addr.Path
	s.connected = true

	child := &unixSocket{
		typ: SockStream, sched: s.sched, name: addr.Path, peerName: s.name,
		recv: qServerRecv, send: qClientRecv, connected: true,
	}
	return l.enqueue(child)
}

func (s *unixSocket) Shutdown(how int) error {
	return s.Close()
}

func (s *unixSocket) Sendmsg(to *Addr, data []byte) (int, error) {
	s.mu.Lock()
	typ := s.typ
	send := s.send
	peer := s.peerName
	name := s.name
	s.mu.Unlock()

	rec := unixRecord{data: append([]byte(nil), data...), from: name}

	if typ == SockStream {
		if send == nil {
			return 0, errdefs.Conflict(errNotConnected)
		}
		send.push(rec)
		return len(data), nil
	}

	dest := peer
	if to != nil {
		dest = to.Path
	}
	if dest == "" {
		return 0, errdefs.Conflict(errNotConnected)
	}
	target, ok := registry.lookupDgram(dest)
	if !ok {
		return 0, errdefs.NotFound(errNoSuchPath)
	}
	target.recv.push(rec)
	return len(data), nil
}

func (s *unixSocket) Recvmsg(buf []byte) (int, Addr, error) {
	s.mu.Lock()
	typ := s.typ
	recv := s.recv
	s.mu.Unlock()

	if typ == SockStream {
		n, from, err := recv.popStream(buf)
		return n, Addr{Family: AFUnix, Path: from}, err
	}
	rec, err := recv.popRecord()
	if err != nil {
		return 0, Addr{}, err
	}
	n := copy(buf, rec.data) // excess beyond len(buf) is discarded, matching real dgram recvfrom
	return n, Addr{Family: AFUnix, Path: rec.from}, nil
}

func (s *unixSocket) Getsockname() (Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Addr{Family: AFUnix, Path: s.name}, nil
}

func (s *unixSocket) Getpeername() (Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return Addr{}, errdefs.Conflict(errNotConnected)
	}
	return Addr{Family: AFUnix, Path: s.peerName}, nil
}

func (s *unixSocket) Getsockopt(level, name int) (int, error) { return 0, nil }
func (s *unixSocket) Setsockopt(level, name, value int) error { return nil }

func (s *unixSocket) Poll() (readable, writable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recv.mu.Lock()
	readable = len(s.recv.records) > 0
	s.recv.mu.Unlock()
	writable = s.typ == SockDgram || s.connected
	return
}

func (s *unixSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.listener != nil {
		registry.unbindListener(s.name)
	}
	if s.typ == SockDgram && s.bound {
		registry.unbindDgram(s.name)
	}
	if s.path != "" && s.binder != nil {
		s.binder.UnbindSocketInode(s.path)
	}
	return nil
}
