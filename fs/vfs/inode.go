package vfs

import (
	"fmt"
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/moby/locker"
)

// Inode is the in-memory representation of a file-system object identity
// (spec §3 Inode). Generic fields live here; FS-private state lives in
// Private.
type Inode struct {
	SB   *SuperBlock
	Ino  uint64
	Ops  InodeOps

	mu      sync.Mutex
	attr    Attr
	refs    int
	dirty   bool
	private any
}

// Attr returns a copy of the inode's generic stat fields.
func (i *Inode) Attr() Attr {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.attr
}

// SetAttr replaces the inode's generic stat fields.
func (i *Inode) SetAttr(a Attr) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.attr = a
}

// MarkDirty flags the inode for write-back.
func (i *Inode) MarkDirty() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.dirty = true
}

// Dirty reports whether the inode has unwritten metadata changes.
func (i *Inode) Dirty() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dirty
}

// Private returns FS-private per-inode state (e.g. block pointer array).
func (i *Inode) Private() any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.private
}

// SetPrivate stores FS-private per-inode state.
func (i *Inode) SetPrivate(v any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.private = v
}

// RefCount reports the inode's live reference count.
func (i *Inode) RefCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.refs
}

func key(sb *SuperBlock, ino uint64) string {
	return fmt.Sprintf("%p/%d", sb, ino)
}

// InodeTable is the global hashed-by-(sb,ino) inode cache (spec §4.4).
type InodeTable struct {
	mu    sync.Mutex
	locks *locker.Locker
	table map[string]*Inode
}

// NewInodeTable creates an empty global inode cache.
func NewInodeTable() *InodeTable {
	return &InodeTable{table: make(map[string]*Inode), locks: locker.New()}
}

// Reader reads an inode's attr/private state from backing storage; the FS
// driver supplies this so InodeTable stays storage-agnostic.
type Reader func(sb *SuperBlock, ino uint64) (Attr, any, error)

// Iget returns the cached inode for (sb,ino), incrementing its refcount,
// or reads it via read if not cached. Concurrent Iget calls for the same
// key serialize on the per-key lock buffercache's Getblk/Bread already use
// (github.com/moby/locker), so each caller still performs its own
// increment — unlike singleflight, which dedupes the call entirely and
// would hand every waiter the same refcount bump, breaking the
// one-Iget-one-Put invariant (spec §8 testable property #3).
func (t *InodeTable) Iget(sb *SuperBlock, ino uint64, read Reader) (*Inode, error) {
	k := key(sb, ino)
	t.locks.Lock(k)
	defer t.locks.Unlock(k)

	t.mu.Lock()
	if existing, ok := t.table[k]; ok {
		existing.mu.Lock()
		existing.refs++
		existing.mu.Unlock()
		t.mu.Unlock()
		return existing, nil
	}
	t.mu.Unlock()

	attr, priv, err := read(sb, ino)
	if err != nil {
		return nil, errdefs.IO(err)
	}
	node := &Inode{SB: sb, Ino: ino, Ops: sb.Ops, attr: attr, private: priv, refs: 1}

	t.mu.Lock()
	t.table[k] = node
	t.mu.Unlock()
	return node, nil
}

// Iput drops a reference, invoking the FS's PutInode and evicting the
// inode from the table when the count reaches zero (spec §4.4).
func (t *InodeTable) Iput(i *Inode) error {
	i.mu.Lock()
	i.refs--
	refs := i.refs
	i.mu.Unlock()
	if refs > 0 {
		return nil
	}

	t.mu.Lock()
	delete(t.table, key(i.SB, i.Ino))
	t.mu.Unlock()

	if i.Ops != nil {
		return i.Ops.PutInode(i)
	}
	return nil
}

// Lookup returns the cached inode for (sb, ino) without incrementing its
// refcount or touching storage, for diagnostics/tests.
func (t *InodeTable) Lookup(sb *SuperBlock, ino uint64) (*Inode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.table[key(sb, ino)]
	return n, ok
}
