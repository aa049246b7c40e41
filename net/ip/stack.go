package ip

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/devtbl"
)

// Stack is the IP layer's kernel-wide state: the device table and route
// table it routes through, the ARP cache it resolves on-link destinations
// against, and the registered per-protocol handlers it dispatches incoming
// packets to.
type Stack struct {
	Devices *devtbl.Table
	Routes  *devtbl.RouteTable
	ARP     *devtbl.ARPCache

	mu          sync.RWMutex
	handlers    map[uint8]Handler
	rawFallback func(proto uint8, src, dst net.IP, payload []byte)

	idCounter atomic.Uint32
}

// NewStack creates a Stack bound to the given device/route tables and ARP
// cache (owned by the caller so other layers, e.g. an ARP responder, can
// share them).
func NewStack(devices *devtbl.Table, routes *devtbl.RouteTable, arp *devtbl.ARPCache) *Stack {
	return &Stack{Devices: devices, Routes: routes, ARP: arp, handlers: make(map[uint8]Handler)}
}

// RegisterProtocol binds proto's packets to h. icmp/udp/tcp each call this
// once during kernel wiring.
func (s *Stack) RegisterProtocol(proto uint8, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[proto] = h
}

// SetRawFallback installs the handler for protocol numbers with no
// registered transport — the raw-socket path the Open Questions ledger
// entry names (spec §9).
func (s *Stack) SetRawFallback(f func(proto uint8, src, dst net.IP, payload []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawFallback = f
}

// NextID returns the next IP identification field value for an outgoing
// packet.
func (s *Stack) NextID() uint16 {
	return uint16(s.idCounter.Add(1))
}

// Receive parses an incoming IPv4 packet and dispatches its payload to the
// handler registered for its protocol number, or the raw fallback if none
// is registered (spec §9's resolved Open Question).
func (s *Stack) Receive(packet []byte) error {
	h, payload, err := Parse(packet)
	if err != nil {
		return err
	}
	s.mu.RLock()
	handler, ok := s.handlers[h.Protocol]
	fallback := s.rawFallback
	s.mu.RUnlock()

	if ok {
		handler.HandleIP(h.Src, h.Dst, payload)
		return nil
	}
	if fallback != nil {
		fallback(h.Protocol, h.Src, h.Dst, payload)
	}
	return nil
}

// Send routes dst, resolves its next hop's hardware address, builds the
// IPv4 header, and transmits the completed packet through the chosen
// device. If the next hop isn't yet in the ARP cache, Send reports
// errARPPending without sending anything — mirroring the tree's one-shot
// blocking contract (see tty.Read/process.Manager.Wait): the caller (or a
// not-yet-built ARP request/retry loop) is responsible for resolving the
// address and retrying, this call never blocks waiting for a reply.
func (s *Stack) Send(src, dst net.IP, proto uint8, ttl uint8, payload []byte) error {
	route, ok := s.Routes.Lookup(dst)
	if !ok {
		return errdefs.Unavailable(errNoRoute)
	}
	dev, err := s.Devices.Lookup(route.Device)
	if err != nil {
		return err
	}
	nextHop := dst
	if route.Gateway != nil {
		nextHop = route.Gateway
	}
	if _, ok := s.ARP.Lookup(nextHop); !ok {
		return errdefs.Unavailable(errARPPending)
	}

	hdr := Header{TTL: ttl, Protocol: proto, ID: s.NextID(), Src: src, Dst: dst}
	packet := Marshal(hdr, payload)
	return dev.Transmit(packet)
}
