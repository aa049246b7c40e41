// Package devfs exposes the registered block/char device tables under a
// single in-memory /dev tree (SPEC_FULL.md's devfs supplement), the way a
// real devfs/udev surfaces fs/blockdev and fs/chrdev's major:minor space
// as named nodes instead of requiring mknod(2) against a static image.
package devfs

import (
	"sort"
	"sync"
	"time"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/vfs"
)

// Node is one registered device entry.
type Node struct {
	Name string
	Mode vfs.Mode // ModeChr or ModeBlk
	Dev  vfs.DevT
}

// FS is a flat /dev directory backed by an explicit registration table
// rather than by scanning fs/blockdev/fs/chrdev's tables directly. Nodes
// are added by Register or Mknod and removed by Unlink; Readdir lists
// them sorted by name. Regular files, symlinks and subdirectories are
// not supported.
type FS struct {
	mu    sync.Mutex
	nodes map[string]Node
	sb    *vfs.SuperBlock
	table *vfs.InodeTable
}

const rootIno uint64 = 1

// New creates an empty devfs ready to be populated with Register.
func New(table *vfs.InodeTable) (*FS, *vfs.SuperBlock) {
	fs := &FS{nodes: make(map[string]Node), table: table}
	sb := &vfs.SuperBlock{FSType: "devfs", Ops: fs, RootIno: rootIno}
	fs.sb = sb
	return fs, sb
}

// Register adds (or replaces) a named device node.
func (f *FS) Register(name string, mode vfs.Mode, dev vfs.DevT) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[name] = Node{Name: name, Mode: mode, Dev: dev}
}

func ino(name string) uint64 {
	h := uint64(1469598103934665603) // FNV offset basis
	for _, c := range name {
		h ^= uint64(c)
		h *= 1099511628211
	}
	if h == rootIno {
		h++
	}
	return h
}

func (f *FS) Reader(sb *vfs.SuperBlock, i uint64) (vfs.Attr, any, error) {
	if i == rootIno {
		return vfs.Attr{Mode: vfs.ModeDir | 0o755, Nlink: 2, Mtime: time.Now()}, "", nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.nodes {
		if ino(n.Name) == i {
			return vfs.Attr{Mode: n.Mode | 0o666, Rdev: n.Dev, Nlink: 1, Mtime: time.Now()}, n.Name, nil
		}
	}
	return vfs.Attr{}, nil, errdefs.NotFound(errNoSuchDevice)
}

func (f *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, error) {
	f.mu.Lock()
	_, ok := f.nodes[name]
	f.mu.Unlock()
	if !ok {
		return nil, errdefs.NotFound(errNoSuchDevice)
	}
	return f.table.Iget(f.sb, ino(name), f.Reader)
}

func (f *FS) Readdir(i *vfs.Inode) ([]vfs.DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.nodes))
	for n := range f.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]vfs.DirEntry, 0, len(names))
	for _, n := range names {
		node := f.nodes[n]
		out = append(out, vfs.DirEntry{Name: n, Ino: ino(n), Type: node.Mode})
	}
	return out, nil
}

func (f *FS) Mknod(dir *vfs.Inode, name string, mode vfs.Mode, rdev vfs.DevT) (*vfs.Inode, error) {
	f.Register(name, mode&(vfs.ModeChr|vfs.ModeBlk), rdev)
	return f.table.Iget(f.sb, ino(name), f.Reader)
}

func (f *FS) Unlink(dir *vfs.Inode, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[name]; !ok {
		return errdefs.NotFound(errNoSuchDevice)
	}
	delete(f.nodes, name)
	return nil
}

func (f *FS) PutInode(i *vfs.Inode) error { return nil }

func (f *FS) ReadAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	return 0, errdefs.InvalidParameter(errIsDevice)
}
func (f *FS) WriteAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	return 0, errdefs.InvalidParameter(errIsDevice)
}
func (f *FS) Create(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errNoRegularFiles)
}
func (f *FS) Mkdir(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errFlatOnly)
}
func (f *FS) Rmdir(dir *vfs.Inode, name string) error { return errdefs.NotImplemented(errFlatOnly) }
func (f *FS) Symlink(dir *vfs.Inode, name, target string) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errNoRegularFiles)
}
func (f *FS) Readlink(i *vfs.Inode) (string, error) { return "", errdefs.InvalidParameter(errIsDevice) }
func (f *FS) Rename(oldDir *vfs.Inode, oldName string, newDir *vfs.Inode, newName string) error {
	return errdefs.NotImplemented(errFlatOnly)
}
func (f *FS) Link(dir *vfs.Inode, name string, target *vfs.Inode) error {
	return errdefs.NotImplemented(errFlatOnly)
}
func (f *FS) Truncate(i *vfs.Inode, size int64) error { return errdefs.InvalidParameter(errIsDevice) }
