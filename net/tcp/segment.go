// Package tcp implements the TCP state machine of spec §4.10: the ten
// states {CLOSED, LISTEN, SYN_SENT, SYN_RECV, ESTABLISHED, FIN_WAIT1,
// FIN_WAIT2, CLOSE_WAIT, LAST_ACK, TIME_WAIT} and the transitions its
// table names, over an in-order-only receive queue (out-of-order
// reassembly is a non-goal: an unexpected sequence number draws an
// immediate duplicate ack).
package tcp

import (
	"encoding/binary"
	"net"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/ip"
)

const headerLen = 20 // no options

// Flag bits of the TCP header.
const (
	FlagFIN uint8 = 1 << 0
	FlagSYN uint8 = 1 << 1
	FlagRST uint8 = 1 << 2
	FlagPSH uint8 = 1 << 3
	FlagACK uint8 = 1 << 4
	FlagURG uint8 = 1 << 5
)

// Segment is a parsed TCP segment.
type Segment struct {
	SrcPort uint16
	DstPort uint16
	Seq     uint32
	Ack     uint32
	Flags   uint8
	Window  uint16
	Payload []byte
}

// Marshal renders seg into a complete TCP segment, computing the checksum
// over the pseudo-header plus segment (spec §4.10: "pseudo-header (src,
// dst, 0, proto, len) plus the TCP segment").
func Marshal(src, dst net.IP, seg Segment) []byte {
	length := headerLen + len(seg.Payload)
	buf := make([]byte, length)
	binary.BigEndian.PutUint16(buf[0:2], seg.SrcPort)
	binary.BigEndian.PutUint16(buf[2:4], seg.DstPort)
	binary.BigEndian.PutUint32(buf[4:8], seg.Seq)
	binary.BigEndian.PutUint32(buf[8:12], seg.Ack)
	buf[12] = 5 << 4 // data offset: 5 words, no options
	buf[13] = seg.Flags
	binary.BigEndian.PutUint16(buf[14:16], seg.Window)
	copy(buf[headerLen:], seg.Payload)

	pseudo := ip.PseudoHeader(src, dst, ip.ProtoTCP, length)
	binary.BigEndian.PutUint16(buf[16:18], ip.Checksum(append(pseudo, buf...)))
	return buf
}

// Parse decodes a TCP segment and validates its checksum.
func Parse(src, dst net.IP, buf []byte) (Segment, error) {
	if len(buf) < headerLen {
		return Segment{}, errdefs.InvalidParameter(errTooShort)
	}
	dataOffset := int(buf[12]>>4) * 4
	if dataOffset < headerLen || dataOffset > len(buf) {
		return Segment{}, errdefs.InvalidParameter(errTooShort)
	}
	pseudo := ip.PseudoHeader(src, dst, ip.ProtoTCP, len(buf))
	if ip.Checksum(append(pseudo, buf...)) != 0 {
		return Segment{}, errdefs.InvalidParameter(errBadChecksum)
	}
	return Segment{
		SrcPort: binary.BigEndian.Uint16(buf[0:2]),
		DstPort: binary.BigEndian.Uint16(buf[2:4]),
		Seq:     binary.BigEndian.Uint32(buf[4:8]),
		Ack:     binary.BigEndian.Uint32(buf[8:12]),
		Flags:   buf[13],
		Window:  binary.BigEndian.Uint16(buf[14:16]),
		Payload: append([]byte(nil), buf[dataOffset:]...),
	}, nil
}

func (s Segment) has(flag uint8) bool { return s.Flags&flag != 0 }
