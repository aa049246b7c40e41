package socket

import (
	"net"
	"testing"

	"github.com/eric29200/nulix/net/devtbl"
	"github.com/eric29200/nulix/net/ip"
	"github.com/eric29200/nulix/net/tcp"
	"github.com/eric29200/nulix/net/udp"
	"github.com/eric29200/nulix/sched"
)

// loopDevice forwards a transmitted frame straight into the peer
// stack's Receive, modeling a single wire between two hosts with no
// real hardware underneath (same idea as tcp_test.go's loopbackSender,
// one layer lower).
type loopDevice struct {
	name string
	peer *ip.Stack
}

func (d *loopDevice) Name() string { return d.name }
func (d *loopDevice) HWAddr() net.HardwareAddr { return net.HardwareAddr{0, 0, 0, 0, 0, 1} }
func (d *loopDevice) IPAddr() net.IP { return nil }
func (d *loopDevice) MTU() int { return 1500 }
func (d *loopDevice) Transmit(frame []byte) error { return d.peer.Receive(frame) }

func wireInet() (clientCtx, serverCtx InetContext) {
	clientIP := net.ParseIP("10.0.0.1")
	serverIP := net.ParseIP("10.0.0.2")

	clientStack := ip.NewStack(devtbl.New(), devtbl.NewRouteTable(), devtbl.NewARPCache())
	serverStack := ip.NewStack(devtbl.New(), devtbl.NewRouteTable(), devtbl.NewARPCache())

	clientStack.Devices.Register(&loopDevice{name: "eth0", peer: serverStack})
	serverStack.Devices.Register(&loopDevice{name: "eth0", peer: clientStack})

	clientStack.Routes.Insert(serverIP, net.CIDRMask(32, 32), nil, "eth0")
	serverStack.Routes.Insert(clientIP, net.CIDRMask(32, 32), nil, "eth0")
	clientStack.ARP.Insert(serverIP, net.HardwareAddr{0, 0, 0, 0, 0, 2})
	serverStack.ARP.Insert(clientIP, net.HardwareAddr{0, 0, 0, 0, 0, 1})

	clientUDP, serverUDP := udp.NewDemuxer(), udp.NewDemuxer()
	clientTCP, serverTCP := tcp.NewDemuxer(), tcp.NewDemuxer()
	clientStack.RegisterProtocol(ip.ProtoUDP, clientUDP)
	clientStack.RegisterProtocol(ip.ProtoTCP, clientTCP)
	serverStack.RegisterProtocol(ip.ProtoUDP, serverUDP)
	serverStack.RegisterProtocol(ip.ProtoTCP, serverTCP)

	clientCtx = InetContext{Sched: sched.New(), Stack: clientStack, UDPDemux: clientUDP, TCPDemux: clientTCP, LocalIP: clientIP}
	serverCtx = InetContext{Sched: sched.New(), Stack: serverStack, UDPDemux: serverUDP, TCPDemux: serverTCP, LocalIP: serverIP}
	return
}

func TestInetUDPSendRecvRoundTrip(t *testing.T) {
	clientCtx, serverCtx := wireInet()

	serverSock := NewInetSocket(serverCtx, SockDgram)
	if err := serverSock.Bind(Addr{Family: AFInet, Port: 9000}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	clientSock := NewInetSocket(clientCtx, SockDgram)
	if _, err := clientSock.Sendmsg(&Addr{Family: AFInet, IP: serverCtx.LocalIP, Port: 9000}, []byte("ping")); err != nil {
		t.Fatalf("Sendmsg: %v", err)
	}

	buf := make([]byte, 32)
	n, from, err := serverSock.Recvmsg(buf)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	if string(buf[:n]) != "ping" || !from.IP.Equal(clientCtx.LocalIP) {
		t.Fatalf("got %q from %v", buf[:n], from)
	}
}

func TestInetTCPConnectAcceptSendRecv(t *testing.T) {
	clientCtx, serverCtx := wireInet()

	listener := NewInetSocket(serverCtx, SockStream)
	if err := listener.Bind(Addr{Family: AFInet, Port: 7000}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := listener.Listen(1); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	client := NewInetSocket(clientCtx, SockStream)
	if err := client.Connect(Addr{Family: AFInet, IP: serverCtx.LocalIP, Port: 7000}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	serverConn, _, err := listener.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := client.Sendmsg(nil, []byte("hello")); err != nil {
		t.Fatalf("Sendmsg: %v", err)
	}
	buf := make([]byte, 32)
	n, _, err := serverConn.Recvmsg(buf)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("Recvmsg = %q", buf[:n])
	}
}

func TestUnixStreamBindListenConnectAccept(t *testing.T) {
	scheduler := sched.New()
	listener := NewUnixSocket(scheduler, SockStream, nil)
	if err := listener.Bind(Addr{Family: AFUnix, Path: "/tmp/test.sock"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := listener.Listen(1); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	client := NewUnixSocket(scheduler, SockStream, nil)
	if err := client.Connect(Addr{Family: AFUnix, Path: "/tmp/test.sock"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	server, _, err := listener.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := client.Sendmsg(nil, []byte("hi")); err != nil {
		t.Fatalf("Sendmsg: %v", err)
	}
	buf := make([]byte, 16)
	n, _, err := server.Recvmsg(buf)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	if string(buf[:n]) != "hi" {
		t.Fatalf("Recvmsg = %q", buf[:n])
	}
}

func TestUnixDgramBoundSendRecvByPath(t *testing.T) {
	s := sched.New()
	a := NewUnixSocket(s, SockDgram, nil)
	if err := a.Bind(Addr{Family: AFUnix, Path: "/tmp/a.sock"}); err != nil {
		t.Fatalf("Bind a: %v", err)
	}
	b := NewUnixSocket(s, SockDgram, nil)
	if err := b.Bind(Addr{Family: AFUnix, Path: "/tmp/b.sock"}); err != nil {
		t.Fatalf("Bind b: %v", err)
	}

	if _, err := b.Sendmsg(&Addr{Family: AFUnix, Path: "/tmp/a.sock"}, []byte("dgram")); err != nil {
		t.Fatalf("Sendmsg: %v", err)
	}
	buf := make([]byte, 16)
	n, from, err := a.Recvmsg(buf)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	if string(buf[:n]) != "dgram" || from.Path != "/tmp/b.sock" {
		t.Fatalf("got %q from %q", buf[:n], from.Path)
	}
}

func TestSocketpairDgramPreservesRecordBoundaries(t *testing.T) {
	s := sched.New()
	a, b := Socketpair(s, SockDgram)

	if _, err := a.Sendmsg(nil, []byte("one")); err != nil {
		t.Fatalf("Sendmsg one: %v", err)
	}
	if _, err := a.Sendmsg(nil, []byte("two")); err != nil {
		t.Fatalf("Sendmsg two: %v", err)
	}

	buf := make([]byte, 16)
	n, _, err := b.Recvmsg(buf)
	if err != nil {
		t.Fatalf("Recvmsg first: %v", err)
	}
	if string(buf[:n]) != "one" {
		t.Fatalf("first record = %q, want %q", buf[:n], "one")
	}
	n, _, err = b.Recvmsg(buf)
	if err != nil {
		t.Fatalf("Recvmsg second: %v", err)
	}
	if string(buf[:n]) != "two" {
		t.Fatalf("second record = %q, want %q (records must not coalesce)", buf[:n], "two")
	}
}

func TestSocketDupKeepsUnderlyingOpenUntilLastRelease(t *testing.T) {
	s := sched.New()
	ops := NewUnixSocket(s, SockDgram, nil)
	sock := New(ops)
	dup := sock.Dup()

	if err := sock.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	// The underlying endpoint must still be usable: one reference (dup)
	// remains.
	if _, err := dup.Ops().Getsockname(); err != nil {
		t.Fatalf("Getsockname after first release: %v", err)
	}
	if err := dup.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}
