// Package phys implements the physical page-frame allocator (spec §4.1):
// a bitmap over 4 KiB frames, split into zones, with a best-effort reclaim
// hook invoked once before an allocation is allowed to fail.
package phys

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/sirupsen/logrus"
)

// PageSize is the frame size on x86 (spec §4.2).
const PageSize = 4096

// Zone distinguishes kernel-direct-mapped memory from high memory that
// must be temporarily mapped before access.
type Zone int

const (
	ZoneNormal Zone = iota
	ZoneHigh
)

// Frame is a physical frame number (address = Frame * PageSize).
type Frame uint32

// Reclaimer trims reclaimable memory (typically the page cache) and
// reports how many frames it freed. Registered by the page-cache package
// at boot so PhysAlloc.Alloc can ask it when full.
type Reclaimer interface {
	Reclaim() int
}

type zoneState struct {
	bitmap []uint64 // one bit per frame, 1 == allocated
	base   Frame    // first frame number in this zone
	count  int      // number of frames in this zone
}

// Allocator is the bitmap/buddy-style physical frame allocator.
type Allocator struct {
	mu        sync.Mutex
	zones     map[Zone]*zoneState
	refcount  map[Frame]int
	reclaimer Reclaimer
	log       *logrus.Entry
}

// New builds an allocator covering normalFrames frames in ZoneNormal
// starting at frame 0, followed by highFrames frames in ZoneHigh.
func New(normalFrames, highFrames int) *Allocator {
	a := &Allocator{
		zones:    make(map[Zone]*zoneState),
		refcount: make(map[Frame]int),
		log:      logrus.WithField("subsys", "mm/phys"),
	}
	a.zones[ZoneNormal] = &zoneState{base: 0, count: normalFrames, bitmap: make([]uint64, (normalFrames+63)/64)}
	a.zones[ZoneHigh] = &zoneState{base: Frame(normalFrames), count: highFrames, bitmap: make([]uint64, (highFrames+63)/64)}
	return a
}

// SetReclaimer registers the page-cache trim hook used by Alloc when a
// zone is exhausted.
func (a *Allocator) SetReclaimer(r Reclaimer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reclaimer = r
}

func bit(bitmap []uint64, i int) bool {
	return bitmap[i/64]&(1<<uint(i%64)) != 0
}

func setBit(bitmap []uint64, i int, v bool) {
	if v {
		bitmap[i/64] |= 1 << uint(i%64)
	} else {
		bitmap[i/64] &^= 1 << uint(i%64)
	}
}

func (a *Allocator) scanFree(z *zoneState) (int, bool) {
	for i := 0; i < z.count; i++ {
		if !bit(z.bitmap, i) {
			return i, true
		}
	}
	return 0, false
}

// Alloc returns a free frame from zone, invoking the registered reclaimer
// once if the zone is initially full before reporting out-of-memory.
func (a *Allocator) Alloc(zone Zone) (Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocLocked(zone)
}

func (a *Allocator) allocLocked(zone Zone) (Frame, error) {
	z, ok := a.zones[zone]
	if !ok {
		return 0, errdefs.InvalidParameter(errUnknownZone)
	}
	if i, found := a.scanFree(z); found {
		setBit(z.bitmap, i, true)
		f := z.base + Frame(i)
		a.refcount[f] = 1
		return f, nil
	}
	if r := a.reclaimer; r != nil {
		// Reclaim returns frames through Free, which takes a.mu itself.
		a.mu.Unlock()
		freed := r.Reclaim()
		a.mu.Lock()
		if freed > 0 {
			a.log.WithField("freed", freed).Debug("reclaimed pages before retrying allocation")
			if i, found := a.scanFree(z); found {
				setBit(z.bitmap, i, true)
				f := z.base + Frame(i)
				a.refcount[f] = 1
				return f, nil
			}
		}
	}
	return 0, errdefs.ResourceExhausted(errOOM)
}

// AllocPages returns the first frame of a contiguous run of 2^order frames
// found by repeated scanning, per spec §4.1.
func (a *Allocator) AllocPages(zone Zone, order int) (Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	z, ok := a.zones[zone]
	if !ok {
		return 0, errdefs.InvalidParameter(errUnknownZone)
	}
	n := 1 << uint(order)
	for start := 0; start+n <= z.count; start++ {
		ok := true
		for j := 0; j < n; j++ {
			if bit(z.bitmap, start+j) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for j := 0; j < n; j++ {
			setBit(z.bitmap, start+j, true)
			a.refcount[z.base+Frame(start+j)] = 1
		}
		return z.base + Frame(start), nil
	}
	return 0, errdefs.ResourceExhausted(errOOM)
}

// Ref increments a frame's reference count (used when a page becomes
// shared, e.g. by a cloned page table entry).
func (a *Allocator) Ref(f Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refcount[f]++
}

// RefCount reports the current reference count of a frame (0 if free).
func (a *Allocator) RefCount(f Frame) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refcount[f]
}

// Free decrements a frame's reference count, returning it to its zone's
// free list at zero. Freeing a frame already at zero is a broken-invariant
// double-free and panics, per spec §7.
func (a *Allocator) Free(f Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rc, ok := a.refcount[f]
	if !ok || rc == 0 {
		a.log.WithField("frame", f).Error("double free of physical frame")
		panic("phys: double free")
	}
	rc--
	a.refcount[f] = rc
	if rc > 0 {
		return
	}
	delete(a.refcount, f)
	z := a.zoneOf(f)
	if z == nil {
		return
	}
	setBit(z.bitmap, int(f-z.base), false)
}

func (a *Allocator) zoneOf(f Frame) *zoneState {
	for _, z := range a.zones {
		if f >= z.base && f < z.base+Frame(z.count) {
			return z
		}
	}
	return nil
}

// FreeFrames reports the number of unallocated frames across a zone.
func (a *Allocator) FreeFrames(zone Zone) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	z, ok := a.zones[zone]
	if !ok {
		return 0
	}
	free := 0
	for i := 0; i < z.count; i++ {
		if !bit(z.bitmap, i) {
			free++
		}
	}
	return free
}

// TotalFrames reports the number of frames a zone covers, for callers
// (e.g. /proc/meminfo) that need free-versus-total rather than just free.
func (a *Allocator) TotalFrames(zone Zone) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	z, ok := a.zones[zone]
	if !ok {
		return 0
	}
	return z.count
}
