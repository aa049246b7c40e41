// Package kalloc is a small-object slab allocator layered on top of
// mm/phys pages, used for fixed-size kernel structures (spec §4.1 KAlloc).
package kalloc

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/mm/phys"
)

// Cache is a slab cache for objects of one fixed size.
type Cache struct {
	mu        sync.Mutex
	alloc     *phys.Allocator
	objSize   int
	perPage   int
	slabs     []*slab
	name      string
}

type slab struct {
	frame phys.Frame
	free  []int // free object indices within the slab
}

// NewCache creates a cache for objSize-byte objects, name used only for
// diagnostics.
func NewCache(alloc *phys.Allocator, name string, objSize int) *Cache {
	if objSize <= 0 {
		objSize = 1
	}
	perPage := phys.PageSize / objSize
	if perPage < 1 {
		perPage = 1
	}
	return &Cache{alloc: alloc, objSize: objSize, perPage: perPage, name: name}
}

// Handle identifies one allocated object: its slab index and offset
// within the slab, stable for the object's lifetime.
type Handle struct {
	slabIdx int
	objIdx  int
}

// Alloc returns a zeroed object handle, growing the cache by one page
// (one more slab) if every existing slab is full.
func (c *Cache) Alloc() (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.slabs {
		if len(s.free) > 0 {
			idx := s.free[len(s.free)-1]
			s.free = s.free[:len(s.free)-1]
			return Handle{slabIdx: i, objIdx: idx}, nil
		}
	}

	f, err := c.alloc.Alloc(phys.ZoneNormal)
	if err != nil {
		return Handle{}, err
	}
	s := &slab{frame: f}
	for i := 1; i < c.perPage; i++ {
		s.free = append(s.free, i)
	}
	c.slabs = append(c.slabs, s)
	return Handle{slabIdx: len(c.slabs) - 1, objIdx: 0}, nil
}

// Free returns an object to its slab's free list. Freeing every object in
// a slab returns that slab's backing frame to the physical allocator.
func (c *Cache) Free(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.slabIdx < 0 || h.slabIdx >= len(c.slabs) {
		return errdefs.InvalidParameter(errBadHandle)
	}
	s := c.slabs[h.slabIdx]
	s.free = append(s.free, h.objIdx)
	if len(s.free) == c.perPage {
		c.alloc.Free(s.frame)
		s.frame = 0
		s.free = nil
	}
	return nil
}

// Stats reports slab and live-object counts, for /proc/meminfo-equivalent
// reporting.
func (c *Cache) Stats() (slabs, liveObjects int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.slabs {
		slabs++
		liveObjects += c.perPage - len(s.free)
	}
	return
}
