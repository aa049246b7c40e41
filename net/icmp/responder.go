package icmp

import (
	"net"

	"github.com/eric29200/nulix/net/ip"
)

// sender is the minimal surface Responder needs from net/ip.Stack, kept as
// a local interface so this package's tests don't need a full Stack.
type sender interface {
	Send(src, dst net.IP, proto uint8, ttl uint8, payload []byte) error
}

// Responder answers ICMP echo requests with echo replies, registered as
// the net/ip.Stack handler for ProtoICMP during kernel wiring.
type Responder struct {
	stack   sender
	localIP net.IP
}

// NewResponder creates a Responder that replies from localIP through stack.
func NewResponder(stack sender, localIP net.IP) *Responder {
	return &Responder{stack: stack, localIP: localIP}
}

// HandleIP implements net/ip.Handler.
func (r *Responder) HandleIP(src, dst net.IP, payload []byte) {
	msg, err := Parse(payload)
	if err != nil || msg.Type != TypeEchoRequest {
		return
	}
	reply := Marshal(Message{Type: TypeEchoReply, Code: 0, ID: msg.ID, Seq: msg.Seq, Data: msg.Data})
	r.stack.Send(r.localIP, src, ip.ProtoICMP, 64, reply)
}
