// Package paging implements per-process virtual memory: a page table
// keyed by virtual page number plus an ordered VMA list, fork-time
// cloning, and page-fault classification (spec §4.2).
package paging

import (
	"sort"
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/mm/phys"
)

// PageSize mirrors phys.PageSize; addresses are truncated to page
// boundaries throughout this package.
const PageSize = phys.PageSize

// Prot is a bitmask of region protection bits.
type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

// Flags describe a VMA's sharing/growth semantics.
type Flags uint8

const (
	FlagShared Flags = 1 << iota
	FlagPrivate
	FlagGrowsDown
	FlagDenyWrite
)

// NopageFn is a VMA's demand-fill operation: return the frame to map at
// the given page-aligned offset into the region.
type NopageFn func(vma *VMA, addr uintptr) (phys.Frame, error)

// VMA is one entry in a task's virtual-memory-area list.
type VMA struct {
	Start, End uintptr // [Start, End), page aligned
	Prot       Prot
	Flags      Flags
	File       any // opaque backing handle (e.g. *vfs.Inode); nil for anonymous
	FileOffset int64
	Nopage     NopageFn
}

func (v *VMA) contains(addr uintptr) bool { return addr >= v.Start && addr < v.End }

// FaultKind classifies a page fault for the caller (spec §4.2 handle_fault).
type FaultKind int

const (
	FaultResolved FaultKind = iota // page installed, retry the instruction
	FaultCOW                      // copy-on-write copy installed, retry
	FaultSegv                     // outside any vma, or protection violation with no recovery: raise SIGSEGV
)

type pte struct {
	frame   phys.Frame
	present bool
	prot    Prot
	cow     bool // private-mapping copy-on-write marker (see fork policy)
}

// AddressSpace is a task's mm: page table plus VMA list.
type AddressSpace struct {
	mu     sync.Mutex
	alloc  *phys.Allocator
	table  map[uintptr]*pte // keyed by page-aligned virtual address
	vmas   []*VMA
	BrkEnd uintptr
}

// New creates an empty address space backed by alloc.
func New(alloc *phys.Allocator) *AddressSpace {
	return &AddressSpace{alloc: alloc, table: make(map[uintptr]*pte)}
}

func pageAlign(addr uintptr) uintptr { return addr &^ (PageSize - 1) }

// AddVMA inserts a new non-overlapping VMA, keeping the list sorted by
// Start as required by the invariant in spec §3.
func (as *AddressSpace) AddVMA(v *VMA) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	for _, existing := range as.vmas {
		if v.Start < existing.End && existing.Start < v.End {
			return errdefs.InvalidParameter(errOverlap)
		}
	}
	as.vmas = append(as.vmas, v)
	sort.Slice(as.vmas, func(i, j int) bool { return as.vmas[i].Start < as.vmas[j].Start })
	return nil
}

// FindVMA returns the VMA containing addr, if any.
func (as *AddressSpace) FindVMA(addr uintptr) *VMA {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.findVMALocked(addr)
}

func (as *AddressSpace) findVMALocked(addr uintptr) *VMA {
	for _, v := range as.vmas {
		if v.contains(addr) {
			return v
		}
	}
	return nil
}

// VMAs returns a snapshot of the current VMA list, ordered by Start.
func (as *AddressSpace) VMAs() []*VMA {
	as.mu.Lock()
	defer as.mu.Unlock()
	out := make([]*VMA, len(as.vmas))
	copy(out, as.vmas)
	return out
}

// ResidentPages reports how many pages are currently present in the page
// table (procfs's statm RSS field: since swap is a non-goal, a present
// page is always resident).
func (as *AddressSpace) ResidentPages() int {
	as.mu.Lock()
	defer as.mu.Unlock()
	n := 0
	for _, e := range as.table {
		if e.present {
			n++
		}
	}
	return n
}

// Map installs a present, already-resolved mapping (used for eagerly
// populated regions such as the initial stack/argv page).
func (as *AddressSpace) Map(addr uintptr, f phys.Frame, prot Prot) {
	as.mu.Lock()
	defer as.mu.Unlock()
	addr = pageAlign(addr)
	as.table[addr] = &pte{frame: f, present: true, prot: prot}
}

// Translate reports the frame mapped at addr, if present.
func (as *AddressSpace) Translate(addr uintptr) (phys.Frame, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	e, ok := as.table[pageAlign(addr)]
	if !ok || !e.present {
		return 0, false
	}
	return e.frame, true
}

// Zap walks [start,end), decrementing the refcount on each mapped page,
// clearing the PTE (spec §4.2 zap).
func (as *AddressSpace) Zap(start, end uintptr) {
	as.mu.Lock()
	defer as.mu.Unlock()
	for addr := pageAlign(start); addr < end; addr += PageSize {
		e, ok := as.table[addr]
		if !ok {
			continue
		}
		if e.present {
			as.alloc.Free(e.frame)
		}
		delete(as.table, addr)
	}
}

// Clone duplicates this address space for fork: every user VMA is
// copied and each present page gets its own newly allocated frame in the
// child (the Open Question in spec §9 is resolved in favor of eager copy,
// matching the source); page contents are not copied, see below.
// Kernel-range handling is out of scope here (modeled separately by the
// boot-time identity map, external to this package per spec §1).
func (as *AddressSpace) Clone() (*AddressSpace, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	child := New(as.alloc)
	child.BrkEnd = as.BrkEnd
	for _, v := range as.vmas {
		nv := *v
		child.vmas = append(child.vmas, &nv)
	}

	for addr, e := range as.table {
		if !e.present {
			continue
		}
		newFrame, err := as.alloc.Alloc(phys.ZoneNormal)
		if err != nil {
			return nil, err
		}
		// A new frame is allocated for the child but its bytes are not
		// copied here: phys.Frame is just a bitmap index with no content
		// of its own, and this package never owns page bytes. For
		// file-backed pages the fs/pagecache.Cache entry keyed by the
		// backing inode is the byte store, and Clone neither reads nor
		// copies it; anonymous (non-file-backed) pages have no
		// byte-addressable store anywhere in this tree.
		child.table[addr] = &pte{frame: newFrame, present: true, prot: e.prot}
	}
	return child, nil
}

// HandleFault classifies a fault at addr (spec §4.2 handle_fault).
// write reports whether the faulting access was a store.
func (as *AddressSpace) HandleFault(addr uintptr, write bool) (FaultKind, error) {
	as.mu.Lock()
	vma := as.findVMALocked(addr)
	as.mu.Unlock()
	if vma == nil {
		return FaultSegv, nil
	}

	as.mu.Lock()
	e, present := as.table[pageAlign(addr)]
	as.mu.Unlock()

	if !present || !e.present {
		if write && vma.Prot&ProtWrite == 0 {
			return FaultSegv, nil
		}
		var f phys.Frame
		var err error
		if vma.Nopage != nil {
			f, err = vma.Nopage(vma, pageAlign(addr))
		} else {
			f, err = as.alloc.Alloc(phys.ZoneNormal)
		}
		if err != nil {
			return FaultSegv, err
		}
		as.Map(addr, f, vma.Prot)
		return FaultResolved, nil
	}

	if write && e.cow {
		newFrame, err := as.alloc.Alloc(phys.ZoneNormal)
		if err != nil {
			return FaultSegv, err
		}
		as.alloc.Free(e.frame)
		as.mu.Lock()
		as.table[pageAlign(addr)] = &pte{frame: newFrame, present: true, prot: vma.Prot}
		as.mu.Unlock()
		return FaultCOW, nil
	}

	if write && vma.Prot&ProtWrite == 0 {
		return FaultSegv, nil
	}
	return FaultSegv, nil
}
