package vfs

import "sync"

// Dentry is a cached name->inode binding forming the path-resolution tree
// (spec §3 Dentry).
type Dentry struct {
	Name   string
	Inode  *Inode
	Parent *Dentry // weak back-pointer; dentry tree has no ownership cycle

	mu       sync.Mutex
	children map[string]*Dentry
	refs     int
	mounted  *SuperBlock // non-nil if a filesystem is mounted on this dentry
}

// NewDentry creates a dentry for name bound to inode, linked under parent.
func NewDentry(name string, inode *Inode, parent *Dentry) *Dentry {
	return &Dentry{Name: name, Inode: inode, Parent: parent, children: make(map[string]*Dentry)}
}

// Child returns the cached child dentry named name, if any.
func (d *Dentry) Child(name string) (*Dentry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.children[name]
	return c, ok
}

// AddChild inserts (or replaces) a cached child dentry.
func (d *Dentry) AddChild(c *Dentry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.children[c.Name] = c
}

// RemoveChild evicts a cached child dentry (e.g. after unlink).
func (d *Dentry) RemoveChild(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.children, name)
}

// Get increments the dentry's reference count.
func (d *Dentry) Get() {
	d.mu.Lock()
	d.refs++
	d.mu.Unlock()
}

// Put decrements the dentry's reference count.
func (d *Dentry) Put() {
	d.mu.Lock()
	if d.refs > 0 {
		d.refs--
	}
	d.mu.Unlock()
}

// RefCount reports the dentry's reference count.
func (d *Dentry) RefCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs
}

// Reclaimable reports whether this dentry may be dropped from the cache:
// no live references and no cached children (spec §3 Dentry invariant).
func (d *Dentry) Reclaimable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs == 0 && len(d.children) == 0
}

// Mount records that sb is mounted on this dentry (spec §4.4 mount
// points redirect lookups to the mounted root).
func (d *Dentry) Mount(sb *SuperBlock) {
	d.mu.Lock()
	d.mounted = sb
	d.mu.Unlock()
}

// Mounted returns the superblock mounted on this dentry, if any.
func (d *Dentry) Mounted() *SuperBlock {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

// Unmount clears any mount recorded on this dentry.
func (d *Dentry) Unmount() {
	d.mu.Lock()
	d.mounted = nil
	d.mu.Unlock()
}
