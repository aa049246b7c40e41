package tcp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/eric29200/nulix/errdefs"
)

const (
	ephemeralLow  = 49152
	ephemeralHigh = 65535
)

// fourTuple identifies one TCP connection by its local and remote
// endpoints, the key a real stack hashes a segment by on receive.
type fourTuple struct {
	localIP, remoteIP     string
	localPort, remotePort uint16
}

func tupleOf(c *Conn) fourTuple {
	return fourTuple{c.localIP.String(), c.remoteIP.String(), c.localPort, c.remotePort}
}

// Demuxer implements net/ip.Handler for ProtoTCP: it routes each incoming
// segment to the established connection matching its 4-tuple, or, absent
// one, to whichever LISTEN socket owns the destination port (spec
// §4.10's SYN-handling row).
type Demuxer struct {
	mu            sync.Mutex
	active        map[fourTuple]*Conn
	listeners     map[uint16]*Conn
	nextEphemeral uint16
	segments      atomic.Uint64
}

// NewDemuxer creates an empty demuxer.
func NewDemuxer() *Demuxer {
	return &Demuxer{
		active:        make(map[fourTuple]*Conn),
		listeners:     make(map[uint16]*Conn),
		nextEphemeral: ephemeralLow,
	}
}

// HandleIP implements net/ip.Handler: it parses the segment and dispatches
// it to the connection or listener it belongs to.
func (d *Demuxer) HandleIP(src, dst net.IP, payload []byte) {
	d.segments.Add(1)
	seg, err := Parse(src, dst, payload)
	if err != nil {
		return
	}
	key := fourTuple{dst.String(), src.String(), seg.DstPort, seg.SrcPort}

	d.mu.Lock()
	conn, ok := d.active[key]
	if !ok {
		conn, ok = d.listeners[seg.DstPort]
	}
	d.mu.Unlock()
	if !ok {
		return // no matching socket: drop (RST generation is not implemented)
	}
	conn.handleSegment(src, seg)
}

// registerChild adds conn (either a freshly Dial'd connection or a
// SYN_RECV child spawned by acceptSYNLocked) to the active 4-tuple table.
func (d *Demuxer) registerChild(conn *Conn) {
	d.mu.Lock()
	d.active[tupleOf(conn)] = conn
	d.mu.Unlock()
}

// SegmentCount reports the number of segments HandleIP has processed,
// for callers (e.g. kernel metrics) that expose per-protocol packet
// counters.
func (d *Demuxer) SegmentCount() uint64 { return d.segments.Load() }

// unregister removes conn from the active table, called once it reaches
// CLOSED.
func (d *Demuxer) unregister(conn *Conn) {
	d.mu.Lock()
	delete(d.active, tupleOf(conn))
	d.mu.Unlock()
}

// bindListener reserves port for a LISTEN socket. port == 0 auto-assigns
// an ephemeral port.
func (d *Demuxer) bindListener(conn *Conn, port uint16) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if port == 0 {
		for i := 0; i < ephemeralHigh-ephemeralLow+1; i++ {
			candidate := d.nextEphemeral
			d.nextEphemeral++
			if d.nextEphemeral > ephemeralHigh {
				d.nextEphemeral = ephemeralLow
			}
			if _, taken := d.listeners[candidate]; !taken {
				d.listeners[candidate] = conn
				return candidate, nil
			}
		}
		return 0, errdefs.ResourceExhausted(errNoFreePort)
	}

	if _, taken := d.listeners[port]; taken {
		return 0, errdefs.Conflict(errPortInUse)
	}
	d.listeners[port] = conn
	return port, nil
}

// ephemeralLocalPort picks a free-ish local port for an active open,
// without tracking per-port uniqueness: distinct remote peers may share
// a local port, as real TCP permits.
func (d *Demuxer) ephemeralLocalPort() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	candidate := d.nextEphemeral
	d.nextEphemeral++
	if d.nextEphemeral > ephemeralHigh {
		d.nextEphemeral = ephemeralLow
	}
	return candidate
}
