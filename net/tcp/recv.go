package tcp

import (
	"net"

	"github.com/eric29200/nulix/sched"
)

// twoMSLTicks is the scheduler-tick countdown a connection spends in
// TIME_WAIT, following this tree's tick-based timeout model (sched.Scheduler
// has no wall clock) rather than a literal 2*MSL wall-clock duration.
const twoMSLTicks = 60

// handleSegment applies one incoming segment to the connection's state
// machine, implementing spec §4.10's transition table row by row. It is
// called by Demuxer.HandleIP once a segment has been routed to this Conn
// by 4-tuple (or, for a LISTEN socket, by local port alone).
func (c *Conn) handleSegment(srcIP net.IP, seg Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Listen:
		if seg.has(FlagSYN) {
			c.acceptSYNLocked(srcIP, seg)
		}

	case SynSent:
		if seg.has(FlagSYN) && seg.has(FlagACK) && seg.Ack == c.sndNxt {
			c.irs = seg.Seq
			c.rcvNxt = seg.Seq + 1
			c.sndUna = seg.Ack
			c.state = Established
			c.sendLocked(FlagACK, nil)
		}

	case SynRecv:
		if seg.has(FlagACK) && seg.Ack == c.sndNxt {
			c.sndUna = seg.Ack
			c.state = Established
			if c.sched != nil {
				c.sched.WakeUpAll(c.parentBacklogWaiters())
			}
		}

	case Established:
		c.handleEstablishedLocked(seg)

	case FinWait1:
		if seg.has(FlagACK) && seg.Ack == c.finSeq+1 {
			c.state = FinWait2
		}
		if seg.has(FlagFIN) {
			c.rcvNxt = seg.Seq + 1
			c.sendLocked(FlagACK, nil)
		}

	case FinWait2:
		if seg.has(FlagFIN) {
			c.rcvNxt = seg.Seq + 1
			c.sendLocked(FlagACK, nil)
			c.enterTimeWaitLocked()
		}

	case LastAck:
		if seg.has(FlagACK) && seg.Ack == c.finSeq+1 {
			c.state = Closed
		}

	case CloseWait, TimeWait, Closed:
		// No incoming segment causes a transition from these states
		// per the table; CLOSE_WAIT only leaves on a local close(),
		// TIME_WAIT only leaves on its 2MSL timer (see Tick).
	}
}

// handleEstablishedLocked processes a segment while ESTABLISHED: in-order
// data is acked and enqueued, a FIN moves to CLOSE_WAIT, and anything
// arriving out of order draws an immediate duplicate ack rather than
// being reassembled (reassembly is a non-goal).
func (c *Conn) handleEstablishedLocked(seg Segment) {
	if len(seg.Payload) > 0 {
		if seg.Seq != c.rcvNxt {
			c.sendLocked(FlagACK, nil) // duplicate ack, sequence mismatch
			return
		}
		c.rcvBuf = append(c.rcvBuf, seg.Payload...)
		c.rcvNxt += uint32(len(seg.Payload))
		c.sendLocked(FlagACK, nil)
		if c.sched != nil {
			c.sched.WakeUpAll(c.waiters)
		}
	}
	if seg.has(FlagFIN) {
		c.rcvNxt = seg.Seq + 1
		c.sendLocked(FlagACK, nil)
		c.state = CloseWait
		if c.sched != nil {
			c.sched.WakeUpAll(c.waiters)
		}
	}
}

// acceptSYNLocked handles an incoming SYN on a LISTEN socket: it
// allocates a child connection in SYN_RECV, replies SYN+ACK, and queues
// the child for Accept (spec §4.10: "LISTEN -- rcv SYN -- allocate child
// sock, send SYN+ACK -- SYN_RECV (child)").
func (c *Conn) acceptSYNLocked(srcIP net.IP, seg Segment) {
	if len(c.backlog) >= c.backlogMax {
		return // backlog full: drop the SYN, peer will retry
	}
	child := newConn(c.sched, c.stack, c.demux, c.localIP)
	child.localPort = c.localPort
	child.remoteIP = srcIP
	child.remotePort = seg.SrcPort
	child.iss = nextISS()
	child.irs = seg.Seq
	child.rcvNxt = seg.Seq + 1
	child.sndUna = child.iss
	child.sndNxt = child.iss + 1
	child.state = SynRecv
	child.backlogNotify = c.backlogWaiters
	child.sendLocked(FlagSYN|FlagACK, nil)

	c.backlog = append(c.backlog, child)
	if c.demux != nil {
		c.demux.registerChild(child)
	}
}

// parentBacklogWaiters returns the queue a SYN_RECV child wakes once it
// reaches ESTABLISHED, letting a blocked Accept notice the handshake
// completed.
func (c *Conn) parentBacklogWaiters() *sched.WaitQueue {
	if c.backlogNotify != nil {
		return c.backlogNotify
	}
	return c.backlogWaiters
}

// enterTimeWaitLocked starts the 2MSL countdown (spec §4.10: "FIN_WAIT2
// -- rcv FIN -- ack, 2MSL timer -- TIME_WAIT").
func (c *Conn) enterTimeWaitLocked() {
	c.state = TimeWait
	c.timeWaitTicks = twoMSLTicks
}
