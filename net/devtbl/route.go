package devtbl

import (
	"net"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Route is one route table entry: the next hop and outbound device for
// whatever destination matched its prefix.
type Route struct {
	Dest    net.IP
	Mask    net.IPMask
	Gateway net.IP // nil for an on-link route
	Device  string
}

// RouteTable is the longest-prefix-match table spec §4.10 names:
// "(destination, netmask) -> (gateway, device)". Keys are stored as
// per-bit byte strings (one byte per address bit, MSB first) rather than
// raw address bytes, so that a shorter prefix is always a byte-wise
// prefix of a longer, more specific one — letting
// go-immutable-radix's LongestPrefix do the longest-prefix-match
// directly instead of needing a custom trie.
type RouteTable struct {
	mu   sync.Mutex
	tree *iradix.Tree[Route]
}

// NewRouteTable creates an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{tree: iradix.New[Route]()}
}

func bitKey(ip net.IP, bits int) []byte {
	v4 := ip.To4()
	key := make([]byte, bits)
	for i := 0; i < bits; i++ {
		byteIdx := i / 8
		bitIdx := 7 - uint(i%8)
		if v4[byteIdx]&(1<<bitIdx) != 0 {
			key[i] = 1
		}
	}
	return key
}

// Insert adds or replaces a route for dest/mask.
func (r *RouteTable) Insert(dest net.IP, mask net.IPMask, gw net.IP, device string) {
	ones, _ := mask.Size()
	key := bitKey(dest.Mask(mask), ones)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree, _, _ = r.tree.Insert(key, Route{Dest: dest, Mask: mask, Gateway: gw, Device: device})
}

// Lookup finds the longest-prefix-matching route for dst, if any.
func (r *RouteTable) Lookup(dst net.IP) (Route, bool) {
	key := bitKey(dst, 32)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, route, ok := r.tree.Root().LongestPrefix(key)
	return route, ok
}

// Remove deletes the route exactly matching dest/mask, if present.
func (r *RouteTable) Remove(dest net.IP, mask net.IPMask) {
	ones, _ := mask.Size()
	key := bitKey(dest.Mask(mask), ones)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree, _, _ = r.tree.Delete(key)
}
