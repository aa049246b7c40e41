// Package skb implements the socket buffer spec §4.10 builds every network
// packet in: a single backing array with disjoint head/tail cursors so a
// packet can reserve headroom once, write its payload at the tail, then
// push link/network/transport headers at the head in reverse order without
// ever copying the payload.
package skb

import "github.com/eric29200/nulix/errdefs"

// SKB is one packet buffer. data[:headUsed] is unused headroom reserved by
// Reserve, data[headUsed:tailUsed] is the live packet (headers already
// pushed plus payload), data[tailUsed:] is unused tailroom.
type SKB struct {
	data     []byte
	headUsed int
	tailUsed int
	Device   string // inbound/outbound device name, set by the caller
	Protocol uint16 // link-layer ethertype, set on receive
}

// New allocates an SKB with cap bytes of backing storage, all of it
// initially headroom (nothing pushed or put yet).
func New(capacity int) *SKB {
	return &SKB{data: make([]byte, capacity), headUsed: capacity, tailUsed: capacity}
}

// FromBytes wraps an already-complete packet (e.g. one just read off a
// device) with no spare head/tailroom.
func FromBytes(b []byte) *SKB {
	return &SKB{data: b, headUsed: 0, tailUsed: len(b)}
}

// Reserve carves n bytes of headroom out of an otherwise-empty SKB, the
// "reserve a maximum header envelope at the head before writing payload at
// the tail" step spec §4.10 names for outgoing packets.
func (s *SKB) Reserve(n int) error {
	if n > len(s.data) {
		return errdefs.InvalidParameter(errShort)
	}
	s.headUsed = n
	s.tailUsed = n
	return nil
}

// Put appends n bytes at the tail (payload), returning the slice to fill
// in, and growing the backing array if tailroom is insufficient.
func (s *SKB) Put(n int) []byte {
	if s.tailUsed+n > len(s.data) {
		grown := make([]byte, s.tailUsed+n)
		copy(grown, s.data)
		s.data = grown
	}
	region := s.data[s.tailUsed : s.tailUsed+n]
	s.tailUsed += n
	return region
}

// Trim removes n bytes from the tail.
func (s *SKB) Trim(n int) {
	if n > s.tailUsed-s.headUsed {
		n = s.tailUsed - s.headUsed
	}
	s.tailUsed -= n
}

// Push prepends n bytes at the head, returning the slice to fill in —
// building a packet's headers in reverse order (transport, then network,
// then link) each calls Push once the layer below it is already in place.
func (s *SKB) Push(n int) ([]byte, error) {
	if n > s.headUsed {
		return nil, errdefs.InvalidParameter(errNoHeadroom)
	}
	s.headUsed -= n
	return s.data[s.headUsed : s.headUsed+n], nil
}

// Pull removes n bytes from the head (e.g. stripping a parsed header on
// receive) and returns them.
func (s *SKB) Pull(n int) ([]byte, error) {
	if n > s.tailUsed-s.headUsed {
		return nil, errdefs.InvalidParameter(errShort)
	}
	region := s.data[s.headUsed : s.headUsed+n]
	s.headUsed += n
	return region, nil
}

// Data returns the live packet bytes: everything pushed/put and not yet
// pulled/trimmed.
func (s *SKB) Data() []byte {
	return s.data[s.headUsed:s.tailUsed]
}

// Len is len(Data()).
func (s *SKB) Len() int {
	return s.tailUsed - s.headUsed
}

// Clone returns an independent copy of the live packet data (same
// head/tailroom accounting), used when a single incoming frame must be
// handed to more than one consumer (e.g. a broadcast).
func (s *SKB) Clone() *SKB {
	c := &SKB{
		data:     append([]byte(nil), s.data...),
		headUsed: s.headUsed,
		tailUsed: s.tailUsed,
		Device:   s.Device,
		Protocol: s.Protocol,
	}
	return c
}
