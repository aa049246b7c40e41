package devtbl

import (
	"net"
	"sync"
)

// ARPCache maps an on-link IPv4 address to the hardware address last
// learned for it. Entries never expire here: spec §4.10 names the cache
// itself as the testable surface, not its aging policy, and ARP timeout
// handling is exactly the kind of real-hardware timing concern spec §1's
// "out of scope: arch glue" already excludes.
type ARPCache struct {
	mu      sync.RWMutex
	entries map[string]net.HardwareAddr
}

// NewARPCache creates an empty cache.
func NewARPCache() *ARPCache {
	return &ARPCache{entries: make(map[string]net.HardwareAddr)}
}

// Insert records (or updates) the hardware address learned for ip, as
// happens on receiving an ARP reply or gratuitous ARP.
func (c *ARPCache) Insert(ip net.IP, hw net.HardwareAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ip.String()] = append(net.HardwareAddr(nil), hw...)
}

// Lookup returns the cached hardware address for ip, if any.
func (c *ARPCache) Lookup(ip net.IP) (net.HardwareAddr, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hw, ok := c.entries[ip.String()]
	return hw, ok
}

// Delete removes any entry for ip (e.g. on link-down).
func (c *ARPCache) Delete(ip net.IP) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ip.String())
}
