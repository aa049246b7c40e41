// Package devtbl implements the device table, ARP cache, and route table
// spec §4.10's routing layer sits on top of: "packets to on-link
// destinations resolve MAC via ARP cache" and "a small route table:
// longest-prefix match over (destination, netmask) -> (gateway, device)".
package devtbl

import (
	"net"
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// Device is a network interface: something that can transmit a raw
// link-layer frame and reports the addressing a higher layer needs to
// build one.
type Device interface {
	Name() string
	HWAddr() net.HardwareAddr
	IPAddr() net.IP
	MTU() int
	Transmit(frame []byte) error
}

// Table is the device registry: every interface the kernel knows about,
// looked up by name the way `net/ip` and `net/socket` need to when binding
// a socket or routing a packet.
type Table struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// New creates an empty device table.
func New() *Table {
	return &Table{devices: make(map[string]Device)}
}

// Register adds (or replaces) a device by name.
func (t *Table) Register(d Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.devices[d.Name()] = d
}

// Lookup returns the device registered under name.
func (t *Table) Lookup(name string) (Device, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.devices[name]
	if !ok {
		return nil, errdefs.NotFound(errNoSuchDevice)
	}
	return d, nil
}

// All returns every registered device, in no particular order.
func (t *Table) All() []Device {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Device, 0, len(t.devices))
	for _, d := range t.devices {
		out = append(out, d)
	}
	return out
}
