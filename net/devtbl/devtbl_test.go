package devtbl

import (
	"net"
	"testing"

	"github.com/eric29200/nulix/errdefs"
)

type fakeDevice struct {
	name string
	hw   net.HardwareAddr
	ip   net.IP
	sent [][]byte
}

func (d *fakeDevice) Name() string { return d.name }
func (d *fakeDevice) HWAddr() net.HardwareAddr { return d.hw }
func (d *fakeDevice) IPAddr() net.IP { return d.ip }
func (d *fakeDevice) MTU() int { return 1500 }
func (d *fakeDevice) Transmit(frame []byte) error {
	d.sent = append(d.sent, frame)
	return nil
}

func TestDeviceTableRegisterLookup(t *testing.T) {
	tbl := New()
	eth0 := &fakeDevice{name: "eth0", ip: net.ParseIP("10.0.0.1")}
	tbl.Register(eth0)

	got, err := tbl.Lookup("eth0")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != eth0 {
		t.Fatal("lookup returned a different device")
	}
}

func TestDeviceTableLookupMissing(t *testing.T) {
	tbl := New()
	if _, err := tbl.Lookup("eth1"); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestARPCacheInsertLookup(t *testing.T) {
	c := NewARPCache()
	ip := net.ParseIP("192.168.1.1")
	hw := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	c.Insert(ip, hw)

	got, ok := c.Lookup(ip)
	if !ok || got.String() != hw.String() {
		t.Fatalf("got %v, %v", got, ok)
	}
}

func TestARPCacheDelete(t *testing.T) {
	c := NewARPCache()
	ip := net.ParseIP("192.168.1.1")
	c.Insert(ip, net.HardwareAddr{1, 2, 3, 4, 5, 6})
	c.Delete(ip)
	if _, ok := c.Lookup(ip); ok {
		t.Fatal("expected entry to be gone")
	}
}

func TestRouteTableLongestPrefixMatch(t *testing.T) {
	r := NewRouteTable()
	_, defaultNet, _ := net.ParseCIDR("0.0.0.0/0")
	_, lanNet, _ := net.ParseCIDR("10.0.0.0/24")

	r.Insert(defaultNet.IP, defaultNet.Mask, net.ParseIP("10.0.0.254"), "eth0")
	r.Insert(lanNet.IP, lanNet.Mask, nil, "eth0")

	route, ok := r.Lookup(net.ParseIP("10.0.0.5"))
	if !ok {
		t.Fatal("expected a route match")
	}
	if route.Mask.String() != lanNet.Mask.String() {
		t.Fatalf("expected the more specific /24 route, got mask %v", route.Mask)
	}

	route, ok = r.Lookup(net.ParseIP("8.8.8.8"))
	if !ok {
		t.Fatal("expected the default route to match")
	}
	if route.Gateway.String() != "10.0.0.254" {
		t.Fatalf("expected default gateway, got %v", route.Gateway)
	}
}

func TestRouteTableNoMatch(t *testing.T) {
	r := NewRouteTable()
	_, lanNet, _ := net.ParseCIDR("10.0.0.0/24")
	r.Insert(lanNet.IP, lanNet.Mask, nil, "eth0")

	if _, ok := r.Lookup(net.ParseIP("8.8.8.8")); ok {
		t.Fatal("expected no route to match")
	}
}

func TestRouteTableRemove(t *testing.T) {
	r := NewRouteTable()
	_, lanNet, _ := net.ParseCIDR("10.0.0.0/24")
	r.Insert(lanNet.IP, lanNet.Mask, nil, "eth0")
	r.Remove(lanNet.IP, lanNet.Mask)

	if _, ok := r.Lookup(net.ParseIP("10.0.0.5")); ok {
		t.Fatal("expected route to be gone after Remove")
	}
}
