// Package buffercache implements the hashed, size-classed buffer cache
// shared by every block-backed filesystem (spec §4.3): getblk/bread/
// brelse/bsync over (dev, block, size) triples.
package buffercache

import (
	"fmt"
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/moby/locker"
	"github.com/sirupsen/logrus"
)

// SizeClasses are the buffer sizes the cache partitions its LRU by.
var SizeClasses = []int{512, 1024, 2048, 4096}

// BlockReader performs the blocking device read backing Bread on a cache
// miss; implemented by fs/blockdev.
type BlockReader interface {
	ReadBlock(dev uint32, block uint64, size int) ([]byte, error)
	WriteBlock(dev uint32, block uint64, data []byte) error
}

// Buffer is a descriptor for one cached block (spec §3 Buffer head).
type Buffer struct {
	Dev, Block uint64
	Size       int
	Data       []byte

	mu        sync.Mutex
	upToDate  bool
	dirty     bool
	refs      int
}

func (b *Buffer) UpToDate() bool { b.mu.Lock(); defer b.mu.Unlock(); return b.upToDate }
func (b *Buffer) Dirty() bool    { b.mu.Lock(); defer b.mu.Unlock(); return b.dirty }
func (b *Buffer) RefCount() int  { b.mu.Lock(); defer b.mu.Unlock(); return b.refs }

func key(dev, block uint64, size int) string {
	return fmt.Sprintf("%d:%d:%d", dev, block, size)
}

// Cache is the hashed LRU of block buffers (spec §4.3).
type Cache struct {
	mu      sync.Mutex
	buffers map[string]*Buffer
	lru     []*Buffer // least-recently-released clean buffers, front = oldest
	locks   *locker.Locker
	reader  BlockReader
	log     *logrus.Entry
}

// New creates an empty buffer cache backed by reader for cache-miss reads
// and write-back.
func New(reader BlockReader) *Cache {
	return &Cache{
		buffers: make(map[string]*Buffer),
		locks:   locker.New(),
		reader:  reader,
		log:     logrus.WithField("subsys", "fs/buffercache"),
	}
}

func validSize(size int) bool {
	for _, s := range SizeClasses {
		if s == size {
			return true
		}
	}
	return false
}

// Getblk returns the buffer head for (dev, block, size), creating one if
// not cached (spec §4.3, invariant 1 in spec §8: identity is stable across
// calls between which no Brelse dropped the count to zero).
func (c *Cache) Getblk(dev, block uint64, size int) (*Buffer, error) {
	if !validSize(size) {
		return nil, errdefs.InvalidParameter(errBadSize)
	}
	k := key(dev, block, size)
	c.locks.Lock(k)
	defer c.locks.Unlock(k)

	c.mu.Lock()
	if b, ok := c.buffers[k]; ok {
		b.mu.Lock()
		b.refs++
		b.mu.Unlock()
		c.removeFromLRU(b)
		c.mu.Unlock()
		return b, nil
	}
	c.mu.Unlock()

	b := &Buffer{Dev: dev, Block: block, Size: size, Data: make([]byte, size), refs: 1}
	c.mu.Lock()
	c.buffers[k] = b
	c.mu.Unlock()
	return b, nil
}

// Bread additionally guarantees the buffer is up-to-date, issuing a
// blocking read through the driver on first access.
func (c *Cache) Bread(dev, block uint64, size int) (*Buffer, error) {
	b, err := c.Getblk(dev, block, size)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	upToDate := b.upToDate
	b.mu.Unlock()
	if upToDate {
		return b, nil
	}

	k := key(dev, block, size)
	c.locks.Lock(k)
	defer c.locks.Unlock(k)

	b.mu.Lock()
	if b.upToDate {
		b.mu.Unlock()
		return b, nil
	}
	b.mu.Unlock()

	data, err := c.reader.ReadBlock(uint32(dev), block, size)
	if err != nil {
		return nil, errdefs.IO(err)
	}
	b.mu.Lock()
	copy(b.Data, data)
	b.upToDate = true
	b.mu.Unlock()
	return b, nil
}

// MarkDirty flags a buffer for write-back; it will be flushed before its
// frame may be reclaimed (spec §4.3 invariant).
func (b *Buffer) MarkDirty() {
	b.mu.Lock()
	b.dirty = true
	b.mu.Unlock()
}

// Bwrite synchronously writes a buffer through the driver and clears its
// dirty flag.
func (c *Cache) Bwrite(b *Buffer) error {
	b.mu.Lock()
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	b.mu.Unlock()
	if err := c.reader.WriteBlock(uint32(b.Dev), b.Block, data); err != nil {
		return errdefs.IO(err)
	}
	b.mu.Lock()
	b.dirty = false
	b.upToDate = true
	b.mu.Unlock()
	return nil
}

// Brelse drops a reference to b. If the buffer is dirty and this was the
// last reference, it is written back immediately (bsync-on-last-release);
// otherwise the now-unreferenced clean buffer joins the free LRU for
// eventual eviction.
func (c *Cache) Brelse(b *Buffer) error {
	b.mu.Lock()
	b.refs--
	refs := b.refs
	dirty := b.dirty
	b.mu.Unlock()
	if refs > 0 {
		return nil
	}
	if dirty {
		if err := c.Bwrite(b); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.lru = append(c.lru, b)
	c.mu.Unlock()
	return nil
}

func (c *Cache) removeFromLRU(b *Buffer) {
	for i, x := range c.lru {
		if x == b {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			return
		}
	}
}

// BsyncDev blocks until every dirty buffer for dev has been written
// (spec §4.3 bsync_dev).
func (c *Cache) BsyncDev(dev uint64) error {
	c.mu.Lock()
	var dirty []*Buffer
	for _, b := range c.buffers {
		if b.Dev == dev && b.Dirty() {
			dirty = append(dirty, b)
		}
	}
	c.mu.Unlock()
	for _, b := range dirty {
		if err := c.Bwrite(b); err != nil {
			return err
		}
	}
	return nil
}

// Evict reclaims up to n clean, unreferenced buffers from the free LRU,
// returning the number actually freed (the buffercache side of the
// mm/phys reclaim hook, spec §4.1).
func (c *Cache) Evict(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	freed := 0
	for freed < n && len(c.lru) > 0 {
		b := c.lru[0]
		c.lru = c.lru[1:]
		if b.RefCount() != 0 || b.Dirty() {
			continue
		}
		delete(c.buffers, key(b.Dev, b.Block, b.Size))
		freed++
	}
	return freed
}
