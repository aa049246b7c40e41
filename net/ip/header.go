// Package ip implements the IPv4 layer of spec §4.10: header build/parse
// with checksum, routing via a longest-prefix-match route table plus ARP
// for on-link resolution, and dispatch to the registered transport
// protocol. Fragmentation is explicitly a non-goal (spec §4.10).
package ip

import (
	"encoding/binary"
	"net"

	"github.com/eric29200/nulix/errdefs"
)

const (
	// HeaderLen is the fixed 20-byte header length this stack emits and
	// requires on receive (IHL=5, no options).
	HeaderLen = 20
	version4  = 4
	ihlWords  = 5
)

// Protocol numbers spec §4.10 names explicitly.
const (
	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
)

// Header is a parsed IPv4 header (options are not supported: IHL is always
// 5, matching HeaderLen).
type Header struct {
	TOS         uint8
	TotalLength uint16
	ID          uint16
	Flags       uint8
	FragOffset  uint16
	TTL         uint8
	Protocol    uint8
	Checksum    uint16
	Src         net.IP
	Dst         net.IP
}

// Marshal renders h plus payload into a complete IPv4 packet, computing
// the header checksum over the header alone (spec §4.10: "computes
// one's-complement checksum over the header (for outgoing)").
func Marshal(h Header, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	buf[0] = version4<<4 | ihlWords
	buf[1] = h.TOS
	binary.BigEndian.PutUint16(buf[2:4], uint16(HeaderLen+len(payload)))
	binary.BigEndian.PutUint16(buf[4:6], h.ID)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Flags)<<13|h.FragOffset)
	buf[8] = h.TTL
	buf[9] = h.Protocol
	// buf[10:12] checksum filled in below
	copy(buf[12:16], h.Src.To4())
	copy(buf[16:20], h.Dst.To4())
	binary.BigEndian.PutUint16(buf[10:12], Checksum(buf[:HeaderLen]))
	copy(buf[HeaderLen:], payload)
	return buf
}

// Parse decodes an IPv4 header from the front of buf and validates the
// header checksum (spec §4.10: "validates on incoming"), returning the
// header and the remaining payload.
func Parse(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderLen {
		return Header{}, nil, errdefs.InvalidParameter(errTooShort)
	}
	if buf[0]>>4 != version4 {
		return Header{}, nil, errdefs.InvalidParameter(errBadVersion)
	}
	ihl := int(buf[0]&0x0f) * 4
	if ihl != HeaderLen {
		return Header{}, nil, errdefs.NotImplemented(errOptionsUnsupported)
	}
	if Checksum(buf[:HeaderLen]) != 0 {
		return Header{}, nil, errdefs.InvalidParameter(errBadChecksum)
	}
	total := binary.BigEndian.Uint16(buf[2:4])
	if int(total) > len(buf) {
		return Header{}, nil, errdefs.InvalidParameter(errTooShort)
	}
	flagsFrag := binary.BigEndian.Uint16(buf[6:8])
	h := Header{
		TOS:         buf[1],
		TotalLength: total,
		ID:          binary.BigEndian.Uint16(buf[4:6]),
		Flags:       uint8(flagsFrag >> 13),
		FragOffset:  flagsFrag & 0x1fff,
		TTL:         buf[8],
		Protocol:    buf[9],
		Checksum:    binary.BigEndian.Uint16(buf[10:12]),
		Src:         net.IPv4(buf[12], buf[13], buf[14], buf[15]),
		Dst:         net.IPv4(buf[16], buf[17], buf[18], buf[19]),
	}
	return h, buf[HeaderLen:total], nil
}

// PseudoHeader renders the 12-byte pseudo-header UDP and TCP checksum over
// (spec §4.10: "pseudo-header (src, dst, 0, proto, len)").
func PseudoHeader(src, dst net.IP, proto uint8, length int) []byte {
	buf := make([]byte, 12)
	copy(buf[0:4], src.To4())
	copy(buf[4:8], dst.To4())
	buf[8] = 0
	buf[9] = proto
	binary.BigEndian.PutUint16(buf[10:12], uint16(length))
	return buf
}
