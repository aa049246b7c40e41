package vfs

import (
	"testing"
	"time"

	"github.com/eric29200/nulix/errdefs"
	"gotest.tools/v3/assert"
)

// memOps is a minimal in-memory InodeOps used to exercise namei/mount/fd
// logic without depending on any concrete filesystem package.
type memOps struct {
	nextIno uint64
	nodes   map[uint64]*memNode
}

type memNode struct {
	mode     Mode
	children map[string]uint64
	data     []byte
	target   string
}

func newMemOps() *memOps {
	return &memOps{nextIno: 1, nodes: map[uint64]*memNode{
		1: {mode: ModeDir | 0o755, children: map[string]uint64{}},
	}}
}

func (m *memOps) alloc(mode Mode) uint64 {
	m.nextIno++
	m.nodes[m.nextIno] = &memNode{mode: mode, children: map[string]uint64{}}
	return m.nextIno
}

func (m *memOps) Lookup(dir *Inode, name string) (*Inode, error) {
	n := m.nodes[dir.Ino]
	ino, ok := n.children[name]
	if !ok {
		return nil, errdefs.NotFound(errNotFound)
	}
	return m.inode(ino), nil
}

func (m *memOps) inode(ino uint64) *Inode {
	n := m.nodes[ino]
	i := &Inode{Ino: ino, Ops: m}
	i.SetAttr(Attr{Mode: n.mode, Size: int64(len(n.data)), Mtime: time.Now()})
	return i
}

func (m *memOps) Create(dir *Inode, name string, mode Mode) (*Inode, error) {
	ino := m.alloc(mode | ModeRegular)
	m.nodes[dir.Ino].children[name] = ino
	return m.inode(ino), nil
}
func (m *memOps) Mkdir(dir *Inode, name string, mode Mode) (*Inode, error) {
	ino := m.alloc(mode | ModeDir)
	m.nodes[dir.Ino].children[name] = ino
	return m.inode(ino), nil
}
func (m *memOps) Unlink(dir *Inode, name string) error {
	delete(m.nodes[dir.Ino].children, name)
	return nil
}
func (m *memOps) Rmdir(dir *Inode, name string) error { return m.Unlink(dir, name) }
func (m *memOps) Symlink(dir *Inode, name, target string) (*Inode, error) {
	ino := m.alloc(ModeSymlink | 0o777)
	m.nodes[ino].target = target
	m.nodes[dir.Ino].children[name] = ino
	return m.inode(ino), nil
}
func (m *memOps) Readlink(inode *Inode) (string, error) { return m.nodes[inode.Ino].target, nil }
func (m *memOps) Mknod(dir *Inode, name string, mode Mode, rdev DevT) (*Inode, error) {
	return nil, errdefs.NotImplemented(errNotFound)
}
func (m *memOps) Rename(oldDir *Inode, oldName string, newDir *Inode, newName string) error {
	ino := m.nodes[oldDir.Ino].children[oldName]
	delete(m.nodes[oldDir.Ino].children, oldName)
	m.nodes[newDir.Ino].children[newName] = ino
	return nil
}
func (m *memOps) Link(dir *Inode, name string, target *Inode) error {
	m.nodes[dir.Ino].children[name] = target.Ino
	return nil
}
func (m *memOps) Truncate(inode *Inode, size int64) error { return nil }
func (m *memOps) ReadAt(inode *Inode, buf []byte, off int64) (int, error) {
	n := m.nodes[inode.Ino]
	if off >= int64(len(n.data)) {
		return 0, nil
	}
	return copy(buf, n.data[off:]), nil
}
func (m *memOps) WriteAt(inode *Inode, buf []byte, off int64) (int, error) {
	n := m.nodes[inode.Ino]
	end := off + int64(len(buf))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[off:], buf)
	return len(buf), nil
}
func (m *memOps) Readdir(inode *Inode) ([]DirEntry, error) {
	var out []DirEntry
	for name, ino := range m.nodes[inode.Ino].children {
		out = append(out, DirEntry{Name: name, Ino: ino, Type: m.nodes[ino].mode})
	}
	return out, nil
}
func (m *memOps) PutInode(inode *Inode) error { return nil }

func newTestFS(t *testing.T) (*FS, *memOps) {
	t.Helper()
	ops := newMemOps()
	sb := &SuperBlock{FSType: "mem", Ops: ops, RootIno: 1}
	fs := NewFS()
	rootInode, err := fs.Inodes.Iget(sb, 1, func(sb *SuperBlock, ino uint64) (Attr, any, error) {
		return Attr{Mode: ModeDir | 0o755}, nil, nil
	})
	assert.NilError(t, err)
	root := NewDentry("/", rootInode, nil)
	_, err = fs.Mounts.Mount(sb, nil, root)
	assert.NilError(t, err)
	fs.Root = root
	return fs, ops
}

func TestNameiCreateAndLookup(t *testing.T) {
	fs, ops := newTestFS(t)
	root := fs.Root

	child, err := ops.Create(root.Inode, "a", 0o644)
	assert.NilError(t, err)
	ops.nodes[1].children["a"] = child.Ino

	d, err := fs.Namei(root, "/a")
	assert.NilError(t, err)
	assert.Equal(t, d.Name, "a")
}

func TestNameiENOENT(t *testing.T) {
	fs, _ := newTestFS(t)
	_, err := fs.Namei(fs.Root, "/nope")
	assert.Assert(t, errdefs.IsNotFound(err))
}

func TestNameiSymlinkFollow(t *testing.T) {
	fs, ops := newTestFS(t)
	root := fs.Root
	target, _ := ops.Create(root.Inode, "real", 0o644)
	ops.nodes[1].children["real"] = target.Ino
	link, _ := ops.Symlink(root.Inode, "link", "/real")
	ops.nodes[1].children["link"] = link.Ino

	d, err := fs.Namei(root, "/link")
	assert.NilError(t, err)
	assert.Equal(t, d.Name, "real")
}

func TestMountCrossing(t *testing.T) {
	fs, ops := newTestFS(t)
	root := fs.Root
	mountDirIno := ops.alloc(ModeDir | 0o755)
	ops.nodes[1].children["mnt"] = mountDirIno
	mountDirInode := ops.inode(mountDirIno)
	mountDirDentry := NewDentry("mnt", mountDirInode, root)
	root.AddChild(mountDirDentry)

	otherOps := newMemOps()
	otherSB := &SuperBlock{FSType: "mem2", Ops: otherOps, RootIno: 1}
	otherRoot, err := fs.Inodes.Iget(otherSB, 1, func(sb *SuperBlock, ino uint64) (Attr, any, error) {
		return Attr{Mode: ModeDir | 0o755}, nil, nil
	})
	assert.NilError(t, err)
	otherRootDentry := NewDentry("mnt", otherRoot, root)
	_, err = fs.Mounts.Mount(otherSB, mountDirDentry, otherRootDentry)
	assert.NilError(t, err)

	f, err := otherOps.Create(otherRoot, "file-in-other-fs", 0o644)
	assert.NilError(t, err)
	otherOps.nodes[1].children["file-in-other-fs"] = f.Ino

	d, err := fs.Namei(root, "/mnt/file-in-other-fs")
	assert.NilError(t, err)
	assert.Equal(t, d.Name, "file-in-other-fs")
}

func TestFileTableDupAndCloseOnExec(t *testing.T) {
	ft := NewFileTable(16)
	i := &Inode{Ino: 1}
	f := NewFile(i, nil, OReadWrite)
	fd, err := ft.Install(f, true)
	assert.NilError(t, err)
	assert.Equal(t, fd, 0)

	fd2, err := ft.DupLowest(fd, 0)
	assert.NilError(t, err)
	assert.Equal(t, fd2, 1)
	assert.Assert(t, !ft.CloseOnExec(fd2))

	ft.DoExec()
	_, err = ft.FileAt(fd)
	assert.Assert(t, errdefs.IsInvalidParameter(err))
	_, err = ft.FileAt(fd2)
	assert.NilError(t, err)
}

func TestInodeTableSharedIdentity(t *testing.T) {
	fs, _ := newTestFS(t)
	sb := fs.Root.Inode.SB
	reads := 0
	read := func(sb *SuperBlock, ino uint64) (Attr, any, error) {
		reads++
		return Attr{Mode: ModeRegular | 0o644}, nil, nil
	}
	i1, err := fs.Inodes.Iget(sb, 42, read)
	assert.NilError(t, err)
	i2, err := fs.Inodes.Iget(sb, 42, read)
	assert.NilError(t, err)
	assert.Assert(t, i1 == i2)
	assert.Equal(t, reads, 1)
	assert.Equal(t, i1.RefCount(), 2)

	assert.NilError(t, fs.Inodes.Iput(i1))
	assert.NilError(t, fs.Inodes.Iput(i2))
	_, ok := fs.Inodes.Lookup(sb, 42)
	assert.Assert(t, !ok)
}
