package kernel

import (
	"net"

	"github.com/eric29200/nulix/net/icmp"
	"github.com/eric29200/nulix/net/ip"
	"github.com/eric29200/nulix/net/tcp"
	"github.com/eric29200/nulix/net/udp"
)

// loopbackDevice is the one network interface this runtime brings up
// unconditionally: a device whose Transmit feeds straight back into its
// own stack's Receive, the same self-looping idea net/socket's tests use
// for a two-host wire collapsed onto one (see net/socket/socket_test.go's
// loopDevice) but turned into a single-ended loop instead of a pair. It
// gives AF_INET sockets somewhere to talk to without a real NIC driver,
// which this runtime has none of.
type loopbackDevice struct {
	name string
	addr net.IP
	mtu  int
	hw   net.HardwareAddr
	in   func(frame []byte) error
}

func (d *loopbackDevice) Name() string               { return d.name }
func (d *loopbackDevice) HWAddr() net.HardwareAddr    { return d.hw }
func (d *loopbackDevice) IPAddr() net.IP              { return d.addr }
func (d *loopbackDevice) MTU() int                    { return d.mtu }
func (d *loopbackDevice) Transmit(frame []byte) error { return d.in(frame) }

// wireNetwork brings up the IP stack, registers the loopback device named
// by cfg, installs the default route and ARP entry for it, and binds the
// ICMP echo responder plus UDP/TCP demuxers as net/ip.Stack protocol
// handlers — the "drivers" phase of Boot.
func (k *Kernel) wireNetwork() error {
	localIP := net.ParseIP(k.Config.Net.Address).To4()
	if localIP == nil {
		localIP = net.ParseIP("10.0.2.15").To4()
	}
	k.LocalIP = localIP

	k.IP = ip.NewStack(k.Devices, k.Routes, k.ARP)

	dev := &loopbackDevice{
		name: k.Config.Net.Interface,
		addr: localIP,
		mtu:  1500,
		hw:   net.HardwareAddr{0, 0, 0, 0, 0, 1},
		in:   k.IP.Receive,
	}
	k.Devices.Register(dev)
	k.Routes.Insert(localIP, net.CIDRMask(32, 32), nil, dev.name)
	if gw := net.ParseIP(k.Config.Net.Gateway).To4(); gw != nil {
		k.Routes.Insert(net.IPv4zero, net.CIDRMask(0, 32), gw, dev.name)
		k.ARP.Insert(gw, dev.hw)
	}
	k.ARP.Insert(localIP, dev.hw)

	k.ICMP = icmp.NewResponder(k.IP, localIP)
	k.IP.RegisterProtocol(ip.ProtoICMP, k.ICMP)

	k.UDP = udp.NewDemuxer()
	k.IP.RegisterProtocol(ip.ProtoUDP, k.UDP)

	k.TCP = tcp.NewDemuxer()
	k.IP.RegisterProtocol(ip.ProtoTCP, k.TCP)

	return nil
}
