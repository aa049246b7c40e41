package udp

import (
	"net"
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

const (
	ephemeralLow  = 49152
	ephemeralHigh = 65535
)

// Demuxer implements net/ip.Handler for ProtoUDP: it holds every bound
// socket by local port and delivers each incoming datagram to the one
// socket matching its destination port (spec §4.10: "demux on receive by
// (protocol=UDP, dst_port) across all UDP sockets").
type Demuxer struct {
	mu            sync.Mutex
	sockets       map[uint16]*Socket
	nextEphemeral uint16
}

// NewDemuxer creates an empty demuxer.
func NewDemuxer() *Demuxer {
	return &Demuxer{sockets: make(map[uint16]*Socket), nextEphemeral: ephemeralLow}
}

// Bind reserves port for sock. port == 0 auto-assigns the next free
// ephemeral port.
func (d *Demuxer) Bind(sock *Socket, port uint16) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if port == 0 {
		for i := 0; i < ephemeralHigh-ephemeralLow+1; i++ {
			candidate := d.nextEphemeral
			d.nextEphemeral++
			if d.nextEphemeral > ephemeralHigh {
				d.nextEphemeral = ephemeralLow
			}
			if _, taken := d.sockets[candidate]; !taken {
				d.sockets[candidate] = sock
				sock.setBound(candidate)
				return candidate, nil
			}
		}
		return 0, errdefs.ResourceExhausted(errNoFreePort)
	}

	if _, taken := d.sockets[port]; taken {
		return 0, errdefs.Conflict(errPortInUse)
	}
	d.sockets[port] = sock
	sock.setBound(port)
	return port, nil
}

// Unbind releases port, if bound.
func (d *Demuxer) Unbind(port uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sockets, port)
}

// HandleIP implements net/ip.Handler: it parses the UDP header and
// delivers the payload to whichever socket is bound to DstPort.
func (d *Demuxer) HandleIP(src, dst net.IP, payload []byte) {
	h, data, err := Parse(src, dst, payload)
	if err != nil {
		return
	}
	d.mu.Lock()
	sock, ok := d.sockets[h.DstPort]
	d.mu.Unlock()
	if !ok {
		return
	}
	sock.deliver(Datagram{Src: src, SrcPort: h.SrcPort, Data: append([]byte(nil), data...)})
}
