// Package tmpfs implements the in-memory filesystem named in spec §1/§2
// ("tmp"): a vfs.InodeOps backed entirely by Go maps/slices, no block
// device underneath.
package tmpfs

import (
	"sync"
	"time"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/vfs"
	"github.com/google/uuid"
)

type node struct {
	mu       sync.Mutex
	attr     vfs.Attr
	children map[string]uint64 // directories only
	data     []byte            // regular files only
	target   string            // symlinks only
}

// FS is one tmpfs instance (one per mount).
type FS struct {
	mu      sync.Mutex
	nodes   map[uint64]*node
	nextIno uint64
	sb      *vfs.SuperBlock
	table   *vfs.InodeTable
}

// New creates an empty tmpfs with an already-populated root directory
// (inode 1) and returns both the FS and the superblock namei should mount.
// table is the shared global inode cache: every *vfs.Inode this package
// hands out is obtained through it so distinct Lookup calls for the same
// ino return the same identity (spec §8 invariant 3).
func New(table *vfs.InodeTable) (*FS, *vfs.SuperBlock) {
	fs := &FS{nodes: make(map[uint64]*node), nextIno: 1, table: table}
	fs.nodes[1] = &node{
		attr:     vfs.Attr{Mode: vfs.ModeDir | 0o755, Nlink: 2, Mtime: time.Now()},
		children: make(map[string]uint64),
	}
	sb := &vfs.SuperBlock{FSType: "tmpfs", Ops: fs, RootIno: 1}
	fs.sb = sb
	return fs, sb
}

func (f *FS) alloc(mode vfs.Mode) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIno++
	ino := f.nextIno
	n := &node{attr: vfs.Attr{Mode: mode, Nlink: 1, Mtime: time.Now(), Ctime: time.Now()}}
	if mode.IsDir() {
		n.children = make(map[string]uint64)
		n.attr.Nlink = 2
	}
	f.nodes[ino] = n
	return ino
}

func (f *FS) node(ino uint64) *node {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[ino]
}

// Reader is the vfs.Reader tmpfs registers with the global inode table:
// tmpfs inodes never touch disk, so this simply reflects in-memory state.
func (f *FS) Reader(sb *vfs.SuperBlock, ino uint64) (vfs.Attr, any, error) {
	n := f.node(ino)
	if n == nil {
		return vfs.Attr{}, nil, errdefs.NotFound(errGone)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attr, ino, nil
}

func (f *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, error) {
	dn := f.node(dir.Ino)
	dn.mu.Lock()
	ino, ok := dn.children[name]
	dn.mu.Unlock()
	if !ok {
		return nil, errdefs.NotFound(errGone)
	}
	return f.inodeHandle(ino)
}

// inodeHandle routes every *vfs.Inode tmpfs hands out through the shared
// inode table, so two lookups of the same ino return the same identity
// until both sides iput it (spec §8 invariant 3) instead of each call
// minting a fresh struct.
func (f *FS) inodeHandle(ino uint64) (*vfs.Inode, error) {
	return f.table.Iget(f.sb, ino, f.Reader)
}

func (f *FS) create(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	dn := f.node(dir.Ino)
	dn.mu.Lock()
	if _, exists := dn.children[name]; exists {
		dn.mu.Unlock()
		return nil, errdefs.Conflict(errExists)
	}
	dn.mu.Unlock()

	ino := f.alloc(mode)
	dn.mu.Lock()
	dn.children[name] = ino
	dn.mu.Unlock()
	return f.inodeHandle(ino)
}

func (f *FS) Create(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return f.create(dir, name, (mode&vfs.ModePermMask)|vfs.ModeRegular)
}

func (f *FS) Mkdir(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return f.create(dir, name, (mode&vfs.ModePermMask)|vfs.ModeDir)
}

func (f *FS) Mknod(dir *vfs.Inode, name string, mode vfs.Mode, rdev vfs.DevT) (*vfs.Inode, error) {
	in, err := f.create(dir, name, mode)
	if err != nil {
		return nil, err
	}
	n := f.node(in.Ino)
	n.mu.Lock()
	n.attr.Rdev = rdev
	attr := n.attr
	n.mu.Unlock()
	in.SetAttr(attr)
	return in, nil
}

func (f *FS) Symlink(dir *vfs.Inode, name, target string) (*vfs.Inode, error) {
	in, err := f.create(dir, name, vfs.ModeSymlink|0o777)
	if err != nil {
		return nil, err
	}
	n := f.node(in.Ino)
	n.mu.Lock()
	n.target = target
	attr := n.attr
	n.mu.Unlock()
	in.SetAttr(attr)
	return in, nil
}

func (f *FS) Readlink(i *vfs.Inode) (string, error) {
	n := f.node(i.Ino)
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target, nil
}

func (f *FS) Unlink(dir *vfs.Inode, name string) error {
	dn := f.node(dir.Ino)
	dn.mu.Lock()
	ino, ok := dn.children[name]
	if !ok {
		dn.mu.Unlock()
		return errdefs.NotFound(errGone)
	}
	delete(dn.children, name)
	dn.mu.Unlock()

	n := f.node(ino)
	n.mu.Lock()
	n.attr.Nlink--
	n.mu.Unlock()
	return nil
}

func (f *FS) Rmdir(dir *vfs.Inode, name string) error {
	dn := f.node(dir.Ino)
	dn.mu.Lock()
	ino, ok := dn.children[name]
	dn.mu.Unlock()
	if !ok {
		return errdefs.NotFound(errGone)
	}
	target := f.node(ino)
	target.mu.Lock()
	empty := len(target.children) == 0
	target.mu.Unlock()
	if !empty {
		return errdefs.InvalidParameter(errNotEmpty)
	}
	return f.Unlink(dir, name)
}

func (f *FS) Rename(oldDir *vfs.Inode, oldName string, newDir *vfs.Inode, newName string) error {
	odn, ndn := f.node(oldDir.Ino), f.node(newDir.Ino)
	odn.mu.Lock()
	ino, ok := odn.children[oldName]
	if !ok {
		odn.mu.Unlock()
		return errdefs.NotFound(errGone)
	}
	delete(odn.children, oldName)
	odn.mu.Unlock()

	ndn.mu.Lock()
	ndn.children[newName] = ino
	ndn.mu.Unlock()
	return nil
}

func (f *FS) Link(dir *vfs.Inode, name string, target *vfs.Inode) error {
	dn := f.node(dir.Ino)
	dn.mu.Lock()
	if _, exists := dn.children[name]; exists {
		dn.mu.Unlock()
		return errdefs.Conflict(errExists)
	}
	dn.children[name] = target.Ino
	dn.mu.Unlock()

	tn := f.node(target.Ino)
	tn.mu.Lock()
	tn.attr.Nlink++
	tn.mu.Unlock()
	return nil
}

func (f *FS) Truncate(i *vfs.Inode, size int64) error {
	n := f.node(i.Ino)
	n.mu.Lock()
	if size < int64(len(n.data)) {
		n.data = n.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, n.data)
		n.data = grown
	}
	n.attr.Size = size
	attr := n.attr
	n.mu.Unlock()
	i.SetAttr(attr)
	return nil
}

func (f *FS) ReadAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	n := f.node(i.Ino)
	n.mu.Lock()
	defer n.mu.Unlock()
	if off >= int64(len(n.data)) {
		return 0, nil
	}
	return copy(buf, n.data[off:]), nil
}

func (f *FS) WriteAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	n := f.node(i.Ino)
	n.mu.Lock()
	end := off + int64(len(buf))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[off:], buf)
	if end > n.attr.Size {
		n.attr.Size = end
	}
	n.attr.Mtime = time.Now()
	attr := n.attr
	n.mu.Unlock()
	i.SetAttr(attr)
	return len(buf), nil
}

func (f *FS) Readdir(i *vfs.Inode) ([]vfs.DirEntry, error) {
	n := f.node(i.Ino)
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]vfs.DirEntry, 0, len(n.children))
	for name, ino := range n.children {
		child := f.node(ino)
		child.mu.Lock()
		out = append(out, vfs.DirEntry{Name: name, Ino: ino, Type: child.attr.Mode})
		child.mu.Unlock()
	}
	return out, nil
}

func (f *FS) PutInode(i *vfs.Inode) error {
	n := f.node(i.Ino)
	if n == nil {
		return nil
	}
	n.mu.Lock()
	nlink := n.attr.Nlink
	n.mu.Unlock()
	if nlink == 0 {
		f.mu.Lock()
		delete(f.nodes, i.Ino)
		f.mu.Unlock()
	}
	return nil
}

// AnonName returns a unique name for an anonymous tmpfs object (e.g. an
// abstract-namespace AF_UNIX socket backing file), using google/uuid as
// the id source instead of a hand-rolled counter.
func AnonName() string {
	return "tmp-" + uuid.NewString()
}
