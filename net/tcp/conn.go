package tcp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/ip"
	"github.com/eric29200/nulix/sched"
)

// sender is the minimal surface Conn needs from net/ip.Stack, kept local
// the same way icmp.sender and udp.sender are.
type sender interface {
	Send(src, dst net.IP, proto uint8, ttl uint8, payload []byte) error
}

var issCounter atomic.Uint32

func nextISS() uint32 {
	// A real stack derives the initial sequence number from a
	// slowly-incrementing clock plus a hash of the connection's 4-tuple
	// (RFC 793 §3.3) to resist blind-reset/injection attacks; since this
	// stack has no wall clock to drive that, an atomic counter gives every
	// connection a distinct ISN instead, which is all the testable
	// scenarios (spec §8) require.
	return issCounter.Add(1) * 10007
}

// Conn is one TCP connection (or, while in the Listen state, a listening
// socket with an accept backlog — the same struct serves both roles, as a
// real kernel's struct sock does).
type Conn struct {
	mu sync.Mutex

	state State

	localIP, remoteIP     net.IP
	localPort, remotePort uint16

	iss, irs       uint32
	sndUna, sndNxt uint32
	rcvNxt         uint32
	window         uint16

	rcvBuf []byte

	// retransmitQueue collects every segment sendLocked emits; nothing
	// removes acknowledged segments from it or resends them, and there
	// is no retransmit timer. Spec §9 documents retransmission itself as
	// out of scope.
	retransmitQueue []Segment

	finSeq       uint32 // the sequence number our own FIN occupied
	timeWaitTicks int

	backlog        []*Conn
	backlogMax     int
	backlogWaiters *sched.WaitQueue
	backlogNotify  *sched.WaitQueue // set on a SYN_RECV child: its parent's backlogWaiters

	waiters *sched.WaitQueue
	sched   *sched.Scheduler
	stack   sender
	demux   *Demuxer
}

// newConn builds a Conn in the Closed state.
func newConn(scheduler *sched.Scheduler, stack sender, demux *Demuxer, localIP net.IP) *Conn {
	return &Conn{
		state:          Closed,
		localIP:        localIP,
		sched:          scheduler,
		stack:          stack,
		demux:          demux,
		waiters:        sched.NewWaitQueue(),
		backlogWaiters: sched.NewWaitQueue(),
		window:         65535,
	}
}

// State returns the connection's current state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Waiters exposes the queue a blocked Recv/Accept parks on, following this
// tree's one-shot blocking contract.
func (c *Conn) Waiters() *sched.WaitQueue { return c.waiters }

// Connect performs an active open: CLOSED --connect--> SYN_SENT, sending
// the initial SYN (spec §4.10's first table row).
func (c *Conn) Connect(remoteIP net.IP, remotePort uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Closed {
		return errdefs.Conflict(errWrongState)
	}
	c.remoteIP = remoteIP
	c.remotePort = remotePort
	c.iss = nextISS()
	c.sndUna = c.iss
	c.sndNxt = c.iss + 1
	c.state = SynSent
	return c.sendLocked(FlagSYN, nil)
}

// Listen puts the connection into the LISTEN state with an accept
// backlog of the given size.
func (c *Conn) Listen(backlog int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Closed {
		return errdefs.Conflict(errWrongState)
	}
	c.state = Listen
	c.backlogMax = backlog
	return nil
}

// Accept pops the oldest fully-handshaked child connection off the
// backlog. Following this tree's one-shot blocking contract, an empty
// backlog reports errWouldBlock rather than parking the caller.
func (c *Conn) Accept() (*Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Listen {
		return nil, errdefs.Conflict(errWrongState)
	}
	if len(c.backlog) == 0 {
		return nil, errdefs.Unavailable(errWouldBlock)
	}
	child := c.backlog[0]
	c.backlog = c.backlog[1:]
	return child, nil
}

// Send transmits data over an established connection.
func (c *Conn) Send(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Established && c.state != CloseWait {
		return 0, errdefs.Conflict(errNotConnected)
	}
	if err := c.sendLocked(FlagACK|FlagPSH, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Recv pops as much in-order data as fits in buf. Per this tree's
// one-shot blocking contract, an empty receive buffer reports
// errWouldBlock instead of parking the caller (which parks on Waiters()
// and retries instead).
func (c *Conn) Recv(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.rcvBuf) == 0 {
		switch c.state {
		case CloseWait, Closed, FinWait1, FinWait2, TimeWait, LastAck:
			// Either side of the close handshake has started: this side
			// sent a FIN (FinWait1/FinWait2/TimeWait/LastAck) or saw the
			// peer's (CloseWait/Closed). Once the buffer is drained there
			// is nothing further to read.
			return 0, nil
		}
		return 0, errdefs.Unavailable(errWouldBlock)
	}
	n := copy(buf, c.rcvBuf)
	c.rcvBuf = c.rcvBuf[n:]
	return n, nil
}

// Close performs an active close: ESTABLISHED --close--> FIN_WAIT1 or
// CLOSE_WAIT --close--> LAST_ACK, sending a FIN (spec §4.10's close rows).
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Established:
		c.finSeq = c.sndNxt
		if err := c.sendLocked(FlagFIN|FlagACK, nil); err != nil {
			return err
		}
		c.state = FinWait1
	case CloseWait:
		c.finSeq = c.sndNxt
		if err := c.sendLocked(FlagFIN|FlagACK, nil); err != nil {
			return err
		}
		c.state = LastAck
	case Listen, SynSent:
		c.state = Closed
	default:
		return errdefs.Conflict(errWrongState)
	}
	return nil
}

// sendLocked marshals and transmits a segment with the given flags and
// payload, advancing sndNxt by the sequence space it consumes (SYN/FIN
// each occupy one sequence number, per RFC 793).
func (c *Conn) sendLocked(flags uint8, payload []byte) error {
	seg := Segment{
		SrcPort: c.localPort,
		DstPort: c.remotePort,
		Seq:     c.sndNxt,
		Ack:     c.rcvNxt,
		Flags:   flags,
		Window:  c.window,
		Payload: payload,
	}
	buf := Marshal(c.localIP, c.remoteIP, seg)
	if err := c.stack.Send(c.localIP, c.remoteIP, ip.ProtoTCP, 64, buf); err != nil {
		return err
	}
	c.retransmitQueue = append(c.retransmitQueue, seg)
	consumed := len(payload)
	if flags&(FlagSYN|FlagFIN) != 0 {
		consumed++
	}
	c.sndNxt += uint32(consumed)
	return nil
}

// Tick advances a TIME_WAIT connection's 2MSL countdown by n ticks,
// transitioning to CLOSED and unregistering from the demuxer once it
// expires (spec §4.10: "TIME_WAIT -- 2MSL timer -- CLOSED").
func (c *Conn) Tick(n int) {
	c.mu.Lock()
	if c.state != TimeWait {
		c.mu.Unlock()
		return
	}
	c.timeWaitTicks -= n
	expired := c.timeWaitTicks <= 0
	if expired {
		c.state = Closed
	}
	c.mu.Unlock()
	if expired && c.demux != nil {
		c.demux.unregister(c)
	}
}
