// Package pagecache maps (inode, offset) to resident pages for mmap and
// buffered read (spec §4 PageCache, glossary "Page cache").
package pagecache

import (
	"fmt"
	"sync"

	"github.com/eric29200/nulix/mm/phys"
)

// Page is one cached page of file data.
type Page struct {
	Owner  uint64 // inode identity, opaque to this package
	Offset int64  // page-aligned file offset
	Frame  phys.Frame
	Data   []byte

	mu    sync.Mutex
	dirty bool
	refs  int
	mapped bool
}

func (p *Page) Dirty() bool  { p.mu.Lock(); defer p.mu.Unlock(); return p.dirty }
func (p *Page) RefCount() int { p.mu.Lock(); defer p.mu.Unlock(); return p.refs }

// MarkDirty flags the page for write-back through the owning inode's FS.
func (p *Page) MarkDirty() { p.mu.Lock(); p.dirty = true; p.mu.Unlock() }

// SetMapped records whether the page is currently mapped into some
// address space (consulted by Reclaim, spec §4.1's "not currently
// mapped" reclaim precondition).
func (p *Page) SetMapped(m bool) { p.mu.Lock(); p.mapped = m; p.mu.Unlock() }

func key(owner uint64, offset int64) string { return fmt.Sprintf("%d:%d", owner, offset) }

// Cache is the hashed (inode, offset) -> page table.
type Cache struct {
	mu    sync.Mutex
	pages map[string]*Page
	alloc *phys.Allocator
}

// New creates an empty page cache backed by alloc for page frames.
func New(alloc *phys.Allocator) *Cache {
	return &Cache{pages: make(map[string]*Page), alloc: alloc}
}

// Fill is invoked on a cache miss to populate a page's bytes (e.g. a
// filesystem's ReadAt), returning the page-sized (or shorter, at EOF)
// content.
type Fill func(owner uint64, offset int64, buf []byte) (int, error)

// GetPage returns the cached page for (owner, offset), reading it via
// fill on a miss.
func (c *Cache) GetPage(owner uint64, offset int64, fill Fill) (*Page, error) {
	k := key(owner, offset)
	c.mu.Lock()
	if p, ok := c.pages[k]; ok {
		p.mu.Lock()
		p.refs++
		p.mu.Unlock()
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	f, err := c.alloc.Alloc(phys.ZoneNormal)
	if err != nil {
		return nil, err
	}
	data := make([]byte, phys.PageSize)
	if fill != nil {
		if _, err := fill(owner, offset, data); err != nil {
			c.alloc.Free(f)
			return nil, err
		}
	}
	p := &Page{Owner: owner, Offset: offset, Frame: f, Data: data, refs: 1}
	c.mu.Lock()
	c.pages[k] = p
	c.mu.Unlock()
	return p, nil
}

// Put drops a reference to a page.
func (c *Cache) Put(p *Page) {
	p.mu.Lock()
	if p.refs > 0 {
		p.refs--
	}
	p.mu.Unlock()
}

// InvalidateInode drops every cached page for owner (e.g. on truncate or
// final iput), freeing their frames.
func (c *Cache) InvalidateInode(owner uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.pages {
		if p.Owner == owner {
			c.alloc.Free(p.Frame)
			delete(c.pages, k)
		}
	}
}

// Reclaim implements mm/phys.Reclaimer: drop clean, unmapped pages whose
// reference count is exactly 1 (spec §4.1 reclaim); a page whose count
// Put has brought to 0 is not dropped. Returns the count of frames freed.
func (c *Cache) Reclaim() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	freed := 0
	for k, p := range c.pages {
		p.mu.Lock()
		reclaimable := p.refs == 1 && !p.dirty && !p.mapped
		p.mu.Unlock()
		if reclaimable {
			c.alloc.Free(p.Frame)
			delete(c.pages, k)
			freed++
		}
	}
	return freed
}
