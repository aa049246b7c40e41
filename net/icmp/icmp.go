// Package icmp implements the ICMP echo request/reply spec §4.10's
// networking layer dispatches to, registered against net/ip's protocol
// table the same way UDP and TCP are.
package icmp

import (
	"encoding/binary"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/ip"
)

// ICMP message types this package understands. Anything else is dropped,
// the same "only what the testable scenarios need" scoping
// `net/ip`'s Open Questions entry documents for protocol coverage.
const (
	TypeEchoReply   = 0
	TypeEchoRequest = 8
)

const headerLen = 8 // type, code, checksum, id, seq

// Message is a parsed ICMP echo request/reply.
type Message struct {
	Type uint8
	Code uint8
	ID   uint16
	Seq  uint16
	Data []byte
}

// Marshal renders m into a complete ICMP message with its checksum
// computed over the whole message (ICMP has no pseudo-header, unlike UDP/
// TCP).
func Marshal(m Message) []byte {
	buf := make([]byte, headerLen+len(m.Data))
	buf[0] = m.Type
	buf[1] = m.Code
	binary.BigEndian.PutUint16(buf[4:6], m.ID)
	binary.BigEndian.PutUint16(buf[6:8], m.Seq)
	copy(buf[headerLen:], m.Data)
	binary.BigEndian.PutUint16(buf[2:4], ip.Checksum(buf))
	return buf
}

// Parse decodes an ICMP message and validates its checksum.
func Parse(buf []byte) (Message, error) {
	if len(buf) < headerLen {
		return Message{}, errdefs.InvalidParameter(errTooShort)
	}
	if ip.Checksum(buf) != 0 {
		return Message{}, errdefs.InvalidParameter(errBadChecksum)
	}
	return Message{
		Type: buf[0],
		Code: buf[1],
		ID:   binary.BigEndian.Uint16(buf[4:6]),
		Seq:  binary.BigEndian.Uint16(buf[6:8]),
		Data: append([]byte(nil), buf[headerLen:]...),
	}, nil
}
