package udp

import (
	"net"
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/ip"
	"github.com/eric29200/nulix/sched"
)

// Datagram is one received UDP payload plus its sender, queued for a
// socket's RecvFrom to pick up.
type Datagram struct {
	Src     net.IP
	SrcPort uint16
	Data    []byte
}

// sender is the minimal surface Socket needs from net/ip.Stack, kept local
// so this package's tests don't need a full Stack (same seam shape as
// icmp.sender).
type sender interface {
	Send(src, dst net.IP, proto uint8, ttl uint8, payload []byte) error
}

// Socket is one UDP endpoint: a bound local port, a receive queue fed by
// the Demuxer, and the stack it sends through.
type Socket struct {
	mu        sync.Mutex
	queue     []Datagram
	localIP   net.IP
	localPort uint16
	bound     bool

	waiters *sched.WaitQueue
	sched   *sched.Scheduler
	stack   sender
}

// NewSocket creates an unbound UDP socket that will send from localIP
// through stack, waking blocked readers via scheduler.
func NewSocket(scheduler *sched.Scheduler, stack sender, localIP net.IP) *Socket {
	return &Socket{sched: scheduler, stack: stack, localIP: localIP, waiters: sched.NewWaitQueue()}
}

// Waiters exposes the queue a blocked reader parks on, following this
// tree's one-shot blocking contract (see tty.TTY.ReadWaiters).
func (s *Socket) Waiters() *sched.WaitQueue { return s.waiters }

// LocalPort returns the bound local port, or 0 if unbound.
func (s *Socket) LocalPort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localPort
}

func (s *Socket) setBound(port uint16) {
	s.mu.Lock()
	s.bound = true
	s.localPort = port
	s.mu.Unlock()
}

// SendTo builds and transmits a UDP datagram to dst:dstPort.
func (s *Socket) SendTo(dst net.IP, dstPort uint16, data []byte) error {
	s.mu.Lock()
	srcPort := s.localPort
	s.mu.Unlock()
	segment := Marshal(s.localIP, dst, srcPort, dstPort, data)
	return s.stack.Send(s.localIP, dst, ip.ProtoUDP, 64, segment)
}

// RecvFrom pops the oldest queued datagram, if any. Following the tree's
// one-shot blocking contract, it never parks the caller itself: with
// nothing queued it reports errWouldBlock and the caller (a not-yet-built
// syscall layer) parks on Waiters() and retries.
func (s *Socket) RecvFrom(buf []byte) (n int, from net.IP, fromPort uint16, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, nil, 0, errdefs.Unavailable(errWouldBlock)
	}
	dg := s.queue[0]
	s.queue = s.queue[1:]
	n = copy(buf, dg.Data)
	return n, dg.Src, dg.SrcPort, nil
}

// deliver enqueues an incoming datagram and wakes any blocked reader,
// called by Demuxer.HandleIP.
func (s *Socket) deliver(dg Datagram) {
	s.mu.Lock()
	s.queue = append(s.queue, dg)
	s.mu.Unlock()
	if s.sched != nil {
		s.sched.WakeUp(s.waiters)
	}
}
