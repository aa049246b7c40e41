package buffercache

import (
	"bytes"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

type memDevice struct {
	mu     sync.Mutex
	blocks map[uint64][]byte
}

func newMemDevice() *memDevice { return &memDevice{blocks: make(map[uint64][]byte)} }

func (d *memDevice) ReadBlock(dev uint32, block uint64, size int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.blocks[block]; ok {
		out := make([]byte, size)
		copy(out, b)
		return out, nil
	}
	return make([]byte, size), nil
}

func (d *memDevice) WriteBlock(dev uint32, block uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	d.blocks[block] = cp
	return nil
}

func TestGetblkIdentityStable(t *testing.T) {
	dev := newMemDevice()
	c := New(dev)
	b1, err := c.Getblk(1, 5, 1024)
	assert.NilError(t, err)
	b2, err := c.Getblk(1, 5, 1024)
	assert.NilError(t, err)
	assert.Assert(t, b1 == b2)
	assert.Equal(t, b1.RefCount(), 2)
}

func TestBwriteThenFreshReadMatches(t *testing.T) {
	dev := newMemDevice()
	c := New(dev)
	b, err := c.Getblk(1, 1, 512)
	assert.NilError(t, err)
	copy(b.Data, []byte("hello world"))
	b.MarkDirty()
	assert.NilError(t, c.Bwrite(b))

	c2 := New(dev)
	fresh, err := c2.Bread(1, 1, 512)
	assert.NilError(t, err)
	assert.Assert(t, bytes.HasPrefix(fresh.Data, []byte("hello world")))
}

func TestBrelseWritesBackDirtyOnLastRelease(t *testing.T) {
	dev := newMemDevice()
	c := New(dev)
	b, err := c.Getblk(2, 0, 512)
	assert.NilError(t, err)
	copy(b.Data, []byte("dirty"))
	b.MarkDirty()
	assert.NilError(t, c.Brelse(b))
	assert.Assert(t, !b.Dirty())

	dev.mu.Lock()
	stored := dev.blocks[0]
	dev.mu.Unlock()
	assert.Assert(t, bytes.HasPrefix(stored, []byte("dirty")))
}

func TestBsyncDevFlushesAllDirty(t *testing.T) {
	dev := newMemDevice()
	c := New(dev)
	for i := uint64(0); i < 3; i++ {
		b, err := c.Getblk(1, i, 512)
		assert.NilError(t, err)
		copy(b.Data, []byte("x"))
		b.MarkDirty()
	}
	assert.NilError(t, c.BsyncDev(1))
	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Equal(t, len(dev.blocks), 3)
}
