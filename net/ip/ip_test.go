package ip

import (
	"net"
	"testing"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/net/devtbl"
)

func TestMarshalParseRoundTrip(t *testing.T) {
	src := net.ParseIP("10.0.0.1")
	dst := net.ParseIP("10.0.0.2")
	payload := []byte("hello")

	packet := Marshal(Header{TTL: 64, Protocol: ProtoUDP, ID: 7, Src: src, Dst: dst}, payload)

	h, rest, err := Parse(packet)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.Protocol != ProtoUDP || h.TTL != 64 || h.ID != 7 {
		t.Fatalf("header = %+v", h)
	}
	if !h.Src.Equal(src) || !h.Dst.Equal(dst) {
		t.Fatalf("src/dst = %v/%v", h.Src, h.Dst)
	}
	if string(rest) != "hello" {
		t.Fatalf("payload = %q", rest)
	}
}

func TestParseRejectsBadChecksum(t *testing.T) {
	packet := Marshal(Header{TTL: 1, Protocol: ProtoICMP, Src: net.ParseIP("1.1.1.1"), Dst: net.ParseIP("2.2.2.2")}, nil)
	packet[11] ^= 0xff // corrupt the checksum

	if _, _, err := Parse(packet); !errdefs.IsInvalidParameter(err) {
		t.Fatalf("expected checksum rejection, got %v", err)
	}
}

func TestParseRejectsTooShort(t *testing.T) {
	if _, _, err := Parse([]byte{1, 2, 3}); !errdefs.IsInvalidParameter(err) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

type recordingHandler struct {
	src, dst net.IP
	payload  []byte
}

func (h *recordingHandler) HandleIP(src, dst net.IP, payload []byte) {
	h.src, h.dst, h.payload = src, dst, payload
}

func TestStackReceiveDispatchesByProtocol(t *testing.T) {
	s := NewStack(devtbl.New(), devtbl.NewRouteTable(), devtbl.NewARPCache())
	var h recordingHandler
	s.RegisterProtocol(ProtoUDP, &h)

	packet := Marshal(Header{TTL: 64, Protocol: ProtoUDP, Src: net.ParseIP("10.0.0.1"), Dst: net.ParseIP("10.0.0.2")}, []byte("payload"))
	if err := s.Receive(packet); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(h.payload) != "payload" {
		t.Fatalf("handler payload = %q", h.payload)
	}
}

func TestStackReceiveFallsBackForUnregisteredProtocol(t *testing.T) {
	s := NewStack(devtbl.New(), devtbl.NewRouteTable(), devtbl.NewARPCache())
	var gotProto uint8
	s.SetRawFallback(func(proto uint8, src, dst net.IP, payload []byte) {
		gotProto = proto
	})

	packet := Marshal(Header{TTL: 64, Protocol: 47, Src: net.ParseIP("10.0.0.1"), Dst: net.ParseIP("10.0.0.2")}, nil)
	if err := s.Receive(packet); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if gotProto != 47 {
		t.Fatalf("fallback proto = %d, want 47", gotProto)
	}
}

type fakeDev struct {
	name string
	sent [][]byte
}

func (d *fakeDev) Name() string             { return d.name }
func (d *fakeDev) HWAddr() net.HardwareAddr { return net.HardwareAddr{1, 2, 3, 4, 5, 6} }
func (d *fakeDev) IPAddr() net.IP           { return net.ParseIP("10.0.0.1") }
func (d *fakeDev) MTU() int                 { return 1500 }
func (d *fakeDev) Transmit(frame []byte) error {
	d.sent = append(d.sent, frame)
	return nil
}

func TestStackSendWithoutRouteFails(t *testing.T) {
	s := NewStack(devtbl.New(), devtbl.NewRouteTable(), devtbl.NewARPCache())
	err := s.Send(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), ProtoUDP, 64, nil)
	if !errdefs.IsUnavailable(err) {
		t.Fatalf("expected unavailable (no route), got %v", err)
	}
}

func TestStackSendWithoutARPEntryFails(t *testing.T) {
	devices := devtbl.New()
	dev := &fakeDev{name: "eth0"}
	devices.Register(dev)
	routes := devtbl.NewRouteTable()
	_, netw, _ := net.ParseCIDR("10.0.0.0/24")
	routes.Insert(netw.IP, netw.Mask, nil, "eth0")

	s := NewStack(devices, routes, devtbl.NewARPCache())
	err := s.Send(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), ProtoUDP, 64, []byte("x"))
	if !errdefs.IsUnavailable(err) {
		t.Fatalf("expected unavailable (arp pending), got %v", err)
	}
}

func TestStackSendTransmitsOnceARPResolved(t *testing.T) {
	devices := devtbl.New()
	dev := &fakeDev{name: "eth0"}
	devices.Register(dev)
	routes := devtbl.NewRouteTable()
	_, netw, _ := net.ParseCIDR("10.0.0.0/24")
	routes.Insert(netw.IP, netw.Mask, nil, "eth0")
	arp := devtbl.NewARPCache()
	arp.Insert(net.ParseIP("10.0.0.2"), net.HardwareAddr{0xa, 0xb, 0xc, 0xd, 0xe, 0xf})

	s := NewStack(devices, routes, arp)
	if err := s.Send(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), ProtoUDP, 64, []byte("x")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(dev.sent) != 1 {
		t.Fatalf("expected 1 transmitted packet, got %d", len(dev.sent))
	}
}
