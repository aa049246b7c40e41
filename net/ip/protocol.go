package ip

import "net"

// Handler is what a transport protocol (icmp, udp, tcp) registers to
// receive its demultiplexed packets — the kernel's inet_add_protocol
// equivalent (spec §4.10's dispatch-by-protocol-number step).
type Handler interface {
	HandleIP(src, dst net.IP, payload []byte)
}
