package socket

import (
	"net"
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/ip"
	"github.com/eric29200/nulix/net/tcp"
	"github.com/eric29200/nulix/net/udp"
	"github.com/eric29200/nulix/sched"
)

// InetContext bundles the per-stack objects an AF_INET socket is built
// against — one instance lives in the kernel wiring layer and is shared
// by every AF_INET socket() call.
type InetContext struct {
	Sched    *sched.Scheduler
	Stack    *ip.Stack
	UDPDemux *udp.Demuxer
	TCPDemux *tcp.Demuxer
	LocalIP  net.IP
}

// inetSocket implements ProtOps for AF_INET, delegating to net/udp.Socket
// or net/tcp.Conn depending on the socket type (spec §4.10).
type inetSocket struct {
	mu  sync.Mutex
	ctx InetContext
	typ Type

	udpSock *udp.Socket

	tcpConn   *tcp.Conn
	tcpPort   uint16
	tcpBound  bool
	connected bool
	peer      Addr
}

// NewInetSocket creates an AF_INET socket of the given type against ctx.
func NewInetSocket(ctx InetContext, typ Type) ProtOps {
	s := &inetSocket{ctx: ctx, typ: typ}
	if typ == SockDgram {
		s.udpSock = udp.NewSocket(ctx.Sched, ctx.Stack, ctx.LocalIP)
	}
	return s
}

func (s *inetSocket) Bind(addr Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr.Family != AFInet {
		return errdefs.InvalidParameter(errWrongFamily)
	}
	switch s.typ {
	case SockDgram:
		_, err := s.ctx.UDPDemux.Bind(s.udpSock, addr.Port)
		return err
	case SockStream:
		if s.tcpBound {
			return errdefs.Conflict(errAlreadyBound)
		}
		s.tcpPort = addr.Port
		s.tcpBound = true
		return nil
	}
	return errdefs.InvalidParameter(errUnsupportedType)
}

func (s *inetSocket) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typ != SockStream {
		return errdefs.InvalidParameter(errUnsupportedType)
	}
	conn, err := tcp.Listen(s.ctx.Sched, s.ctx.Stack, s.ctx.TCPDemux, s.ctx.LocalIP, s.tcpPort, backlog)
	if err != nil {
		return err
	}
	s.tcpConn = conn
	return nil
}

func (s *inetSocket) Accept() (ProtOps, Addr, error) {
	s.mu.Lock()
	conn := s.tcpConn
	ctx := s.ctx
	s.mu.Unlock()
	if conn == nil {
		return nil, Addr{}, errdefs.Conflict(errNotListening)
	}
	child, err := conn.Accept()
	if err != nil {
		return nil, Addr{}, err
	}
	childSock := &inetSocket{ctx: ctx, typ: SockStream, tcpConn: child, connected: true}
	return childSock, Addr{Family: AFInet}, nil
}

func (s *inetSocket) Connect(addr Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr.Family != AFInet {
		return errdefs.InvalidParameter(errWrongFamily)
	}
	switch s.typ {
	case SockDgram:
		s.peer = addr
		s.connected = true
		return nil
	case SockStream:
		conn, err := tcp.Dial(s.ctx.Sched, s.ctx.Stack, s.ctx.TCPDemux, s.ctx.LocalIP, addr.IP, addr.Port)
		if err != nil {
			return err
		}
		s.tcpConn = conn
		s.peer = addr
		s.connected = true
		return nil
	}
	return errdefs.InvalidParameter(errUnsupportedType)
}

func (s *inetSocket) Shutdown(how int) error {
	s.mu.Lock()
	conn := s.tcpConn
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *inetSocket) Sendmsg(to *Addr, data []byte) (int, error) {
	s.mu.Lock()
	typ := s.typ
	udpSock := s.udpSock
	tcpConn := s.tcpConn
	peer := s.peer
	s.mu.Unlock()

	if typ == SockDgram {
		dest := peer
		if to != nil {
			dest = *to
		}
		if dest.IP == nil {
			return 0, errdefs.Conflict(errNotConnected)
		}
		if err := udpSock.SendTo(dest.IP, dest.Port, data); err != nil {
			return 0, err
		}
		return len(data), nil
	}
	if tcpConn == nil {
		return 0, errdefs.Conflict(errNotConnected)
	}
	return tcpConn.Send(data)
}

func (s *inetSocket) Recvmsg(buf []byte) (int, Addr, error) {
	s.mu.Lock()
	typ := s.typ
	udpSock := s.udpSock
	tcpConn := s.tcpConn
	peer := s.peer
	s.mu.Unlock()

	if typ == SockDgram {
		n, from, fromPort, err := udpSock.RecvFrom(buf)
		if err != nil {
			return 0, Addr{}, err
		}
		return n, Addr{Family: AFInet, IP: from, Port: fromPort}, nil
	}
	if tcpConn == nil {
		return 0, Addr{}, errdefs.Conflict(errNotConnected)
	}
	n, err := tcpConn.Recv(buf)
	return n, peer, err
}

func (s *inetSocket) Getsockname() (Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typ == SockDgram {
		return Addr{Family: AFInet, IP: s.ctx.LocalIP, Port: s.udpSock.LocalPort()}, nil
	}
	return Addr{Family: AFInet, IP: s.ctx.LocalIP, Port: s.tcpPort}, nil
}

func (s *inetSocket) Getpeername() (Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return Addr{}, errdefs.Conflict(errNotConnected)
	}
	return s.peer, nil
}

func (s *inetSocket) Getsockopt(level, name int) (int, error) { return 0, nil }
func (s *inetSocket) Setsockopt(level, name, value int) error { return nil }

func (s *inetSocket) Poll() (readable, writable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typ == SockStream {
		writable = s.tcpConn != nil && s.tcpConn.State() == tcp.Established
		return false, writable // readability needs peeking Conn's queue, not exposed; callers use Recvmsg's errWouldBlock instead
	}
	return false, true
}

func (s *inetSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tcpConn != nil {
		return s.tcpConn.Close()
	}
	return nil
}
