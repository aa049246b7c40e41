package kalloc

import (
	"testing"

	"github.com/eric29200/nulix/mm/phys"
	"gotest.tools/v3/assert"
)

func TestAllocFreeReusesSlab(t *testing.T) {
	a := phys.New(4, 0)
	c := NewCache(a, "task_struct", 256)

	h1, err := c.Alloc()
	assert.NilError(t, err)
	slabs, live := c.Stats()
	assert.Equal(t, slabs, 1)
	assert.Equal(t, live, 1)

	assert.NilError(t, c.Free(h1))
	_, live = c.Stats()
	assert.Equal(t, live, 0)
}

func TestCacheGrowsNewSlabWhenFull(t *testing.T) {
	a := phys.New(4, 0)
	c := NewCache(a, "small", 2048) // perPage = 2
	var handles []Handle
	for i := 0; i < 5; i++ {
		h, err := c.Alloc()
		assert.NilError(t, err)
		handles = append(handles, h)
	}
	slabs, live := c.Stats()
	assert.Assert(t, slabs >= 3)
	assert.Equal(t, live, 5)
}

func TestFreeingFullSlabReturnsFrame(t *testing.T) {
	a := phys.New(2, 0)
	before := a.FreeFrames(phys.ZoneNormal)
	c := NewCache(a, "x", 4096) // perPage = 1, one object per page
	h, err := c.Alloc()
	assert.NilError(t, err)
	assert.Equal(t, a.FreeFrames(phys.ZoneNormal), before-1)
	assert.NilError(t, c.Free(h))
	assert.Equal(t, a.FreeFrames(phys.ZoneNormal), before)
}
