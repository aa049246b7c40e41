// Package udp implements the UDP transport of spec §4.10: pseudo-header
// checksum on send, demux by (protocol=UDP, dst_port) on receive across
// every bound socket.
package udp

import (
	"encoding/binary"
	"net"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/ip"
)

const headerLen = 8

// Header is a parsed UDP header.
type Header struct {
	SrcPort uint16
	DstPort uint16
	Length  uint16
}

// Marshal renders a complete UDP datagram, computing the checksum over the
// pseudo-header plus the UDP segment (spec §4.10: "checksum (including
// pseudo-header) on send").
func Marshal(src, dst net.IP, srcPort, dstPort uint16, payload []byte) []byte {
	length := headerLen + len(payload)
	buf := make([]byte, length)
	binary.BigEndian.PutUint16(buf[0:2], srcPort)
	binary.BigEndian.PutUint16(buf[2:4], dstPort)
	binary.BigEndian.PutUint16(buf[4:6], uint16(length))
	copy(buf[headerLen:], payload)

	pseudo := ip.PseudoHeader(src, dst, ip.ProtoUDP, length)
	binary.BigEndian.PutUint16(buf[6:8], ip.Checksum(append(pseudo, buf...)))
	return buf
}

// Parse decodes a UDP header and validates its checksum against src/dst
// (the caller's already-parsed IP addresses, since UDP's checksum spans the
// IP pseudo-header).
func Parse(src, dst net.IP, buf []byte) (Header, []byte, error) {
	if len(buf) < headerLen {
		return Header{}, nil, errdefs.InvalidParameter(errTooShort)
	}
	length := binary.BigEndian.Uint16(buf[4:6])
	if int(length) > len(buf) {
		return Header{}, nil, errdefs.InvalidParameter(errTooShort)
	}
	segment := buf[:length]
	pseudo := ip.PseudoHeader(src, dst, ip.ProtoUDP, int(length))
	if ip.Checksum(append(pseudo, segment...)) != 0 {
		return Header{}, nil, errdefs.InvalidParameter(errBadChecksum)
	}
	h := Header{
		SrcPort: binary.BigEndian.Uint16(buf[0:2]),
		DstPort: binary.BigEndian.Uint16(buf[2:4]),
		Length:  length,
	}
	return h, segment[headerLen:], nil
}
