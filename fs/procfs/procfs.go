// Package procfs implements the read-only, computed-on-read process/kernel
// information tree named in spec §1/§2 ("proc"): /proc/<pid>/{stat, status,
// cmdline, environ, io, statm} plus /proc/{cpuinfo, meminfo, uptime}. Nothing
// here is stored; every Reader call recomputes its leaf's content from the
// Source supplied at mount time, the way the real /proc has no backing
// store of its own.
package procfs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/vfs"
)

// ProcessInfo is the subset of task state procfs renders into text.
type ProcessInfo struct {
	Pid      int
	Ppid     int
	Comm     string
	State    string
	Cmdline  []string
	Environ  []string
	Utime    time.Duration
	Stime    time.Duration
	VSize    uint64
	RSS      uint64
	ReadOps  uint64
	WriteOps uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// MemInfo mirrors /proc/meminfo's headline fields.
type MemInfo struct {
	TotalPages uint64
	FreePages  uint64
	PageSize   uint64
}

// CPUInfo mirrors /proc/cpuinfo's headline fields.
type CPUInfo struct {
	Vendor    string
	ModelName string
	MHz       float64
}

// Source is the live kernel state procfs renders; the kernel package's
// adapter and process.ProcSource (over a process.Manager) implement it.
// Kept as an interface so this package has no
// compile-time dependency on the process package, matching spec §9's
// "model via appropriate abstractions" guidance for cross-module wiring.
type Source interface {
	Processes() []ProcessInfo
	Process(pid int) (ProcessInfo, bool)
	MemInfo() MemInfo
	CPUInfo() CPUInfo
	Uptime() time.Duration
}

// inode-number layout: 1 is root, 2-9 are the flat top-level files, pid
// directories and their leaves are carved out of the range above that.
const (
	inoRoot     uint64 = 1
	inoCPUInfo  uint64 = 2
	inoMemInfo  uint64 = 3
	inoUptime   uint64 = 4
	pidBase     uint64 = 1000
	pidStride   uint64 = 16
)

var pidLeaves = []string{"stat", "status", "cmdline", "environ", "io", "statm"}

func pidDirIno(pid int) uint64          { return pidBase + uint64(pid)*pidStride }
func pidLeafIno(pid, leaf int) uint64   { return pidDirIno(pid) + 1 + uint64(leaf) }

func pidOfDirIno(ino uint64) (int, bool) {
	if ino < pidBase {
		return 0, false
	}
	rel := ino - pidBase
	if rel%pidStride != 0 {
		return 0, false
	}
	return int(rel / pidStride), true
}

func pidOfLeafIno(ino uint64) (pid int, leaf int, ok bool) {
	if ino < pidBase {
		return 0, 0, false
	}
	rel := ino - pidBase
	pid = int(rel / pidStride)
	off := rel % pidStride
	if off == 0 || int(off-1) >= len(pidLeaves) {
		return 0, 0, false
	}
	return pid, int(off - 1), true
}

// FS is one procfs instance; it holds no state of its own beyond the
// Source and superblock, since every leaf is computed on read.
type FS struct {
	mu     sync.Mutex
	src    Source
	sb     *vfs.SuperBlock
	table  *vfs.InodeTable
}

// New mounts a procfs tree backed by src.
func New(table *vfs.InodeTable, src Source) (*FS, *vfs.SuperBlock) {
	fs := &FS{src: src, table: table}
	sb := &vfs.SuperBlock{FSType: "procfs", Ops: fs, RootIno: inoRoot}
	fs.sb = sb
	return fs, sb
}

// content is what Reader stashes as an inode's private payload: a
// pre-rendered byte slice for a leaf file, or a directory listing.
type content struct {
	dirMode bool
	dir     []vfs.DirEntry
	text    []byte
}

// Reader recomputes a node's attr/content from live Source state; it is
// registered as the FS's vfs.Reader with the global inode table.
func (f *FS) Reader(sb *vfs.SuperBlock, ino uint64) (vfs.Attr, any, error) {
	now := time.Now()
	switch ino {
	case inoRoot:
		entries := []vfs.DirEntry{
			{Name: "cpuinfo", Ino: inoCPUInfo, Type: vfs.ModeRegular},
			{Name: "meminfo", Ino: inoMemInfo, Type: vfs.ModeRegular},
			{Name: "uptime", Ino: inoUptime, Type: vfs.ModeRegular},
		}
		for _, p := range f.src.Processes() {
			entries = append(entries, vfs.DirEntry{Name: fmt.Sprintf("%d", p.Pid), Ino: pidDirIno(p.Pid), Type: vfs.ModeDir})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		return vfs.Attr{Mode: vfs.ModeDir | 0o555, Nlink: 2, Mtime: now}, content{dirMode: true, dir: entries}, nil
	case inoCPUInfo:
		return roFile(now, renderCPUInfo(f.src.CPUInfo()))
	case inoMemInfo:
		return roFile(now, renderMemInfo(f.src.MemInfo()))
	case inoUptime:
		return roFile(now, []byte(fmt.Sprintf("%.2f\n", f.src.Uptime().Seconds())))
	}

	if pid, ok := pidOfDirIno(ino); ok {
		if _, found := f.src.Process(pid); !found {
			return vfs.Attr{}, nil, errdefs.NotFound(errNoSuchProcess)
		}
		entries := make([]vfs.DirEntry, 0, len(pidLeaves))
		for i, name := range pidLeaves {
			entries = append(entries, vfs.DirEntry{Name: name, Ino: pidLeafIno(pid, i), Type: vfs.ModeRegular})
		}
		return vfs.Attr{Mode: vfs.ModeDir | 0o555, Nlink: 2, Mtime: now}, content{dirMode: true, dir: entries}, nil
	}

	if pid, leaf, ok := pidOfLeafIno(ino); ok {
		p, found := f.src.Process(pid)
		if !found {
			return vfs.Attr{}, nil, errdefs.NotFound(errNoSuchProcess)
		}
		return roFile(now, renderLeaf(pidLeaves[leaf], p))
	}

	return vfs.Attr{}, nil, errdefs.NotFound(errNoSuchEntry)
}

func roFile(mtime time.Time, data []byte) (vfs.Attr, any, error) {
	return vfs.Attr{Mode: vfs.ModeRegular | 0o444, Nlink: 1, Size: int64(len(data)), Mtime: mtime}, content{text: data}, nil
}

func renderCPUInfo(c CPUInfo) []byte {
	return []byte(fmt.Sprintf("vendor_id\t: %s\nmodel name\t: %s\ncpu MHz\t\t: %.3f\n", c.Vendor, c.ModelName, c.MHz))
}

func renderMemInfo(m MemInfo) []byte {
	total := m.TotalPages * m.PageSize / 1024
	free := m.FreePages * m.PageSize / 1024
	return []byte(fmt.Sprintf("MemTotal:\t%d kB\nMemFree:\t%d kB\n", total, free))
}

func renderLeaf(name string, p ProcessInfo) []byte {
	switch name {
	case "stat":
		return []byte(fmt.Sprintf("%d (%s) %s %d\n", p.Pid, p.Comm, p.State, p.Ppid))
	case "status":
		return []byte(fmt.Sprintf("Name:\t%s\nState:\t%s\nPid:\t%d\nPPid:\t%d\nVmSize:\t%d kB\nVmRSS:\t%d kB\n",
			p.Comm, p.State, p.Pid, p.Ppid, p.VSize/1024, p.RSS/1024))
	case "cmdline":
		return []byte(strings.Join(p.Cmdline, "\x00") + "\x00")
	case "environ":
		return []byte(strings.Join(p.Environ, "\x00") + "\x00")
	case "io":
		return []byte(fmt.Sprintf("rchar: %d\nwchar: %d\nsyscr: %d\nsyscw: %d\n",
			p.ReadBytes, p.WriteBytes, p.ReadOps, p.WriteOps))
	case "statm":
		return []byte(fmt.Sprintf("%d %d\n", p.VSize/4096, p.RSS/4096))
	}
	return nil
}

// --- vfs.InodeOps ---

func (f *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, error) {
	c, ok := dir.Private().(content)
	if !ok || !c.dirMode {
		attr, priv, err := f.Reader(f.sb, dir.Ino)
		if err != nil {
			return nil, err
		}
		dir.SetAttr(attr)
		dir.SetPrivate(priv)
		c = priv.(content)
	}
	for _, e := range c.dir {
		if e.Name == name {
			return f.table.Iget(f.sb, e.Ino, f.Reader)
		}
	}
	return nil, errdefs.NotFound(errNoSuchEntry)
}

func (f *FS) Readdir(i *vfs.Inode) ([]vfs.DirEntry, error) {
	attr, priv, err := f.Reader(f.sb, i.Ino)
	if err != nil {
		return nil, err
	}
	i.SetAttr(attr)
	i.SetPrivate(priv)
	c := priv.(content)
	if !c.dirMode {
		return nil, errdefs.InvalidParameter(errNotDir)
	}
	return c.dir, nil
}

func (f *FS) ReadAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	attr, priv, err := f.Reader(f.sb, i.Ino)
	if err != nil {
		return 0, err
	}
	i.SetAttr(attr)
	i.SetPrivate(priv)
	c := priv.(content)
	if c.dirMode {
		return 0, errdefs.InvalidParameter(errIsDir)
	}
	if off >= int64(len(c.text)) {
		return 0, nil
	}
	return copy(buf, c.text[off:]), nil
}

func (f *FS) WriteAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	return 0, errdefs.NotImplemented(errReadOnly)
}

func (f *FS) Create(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (f *FS) Mkdir(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (f *FS) Unlink(dir *vfs.Inode, name string) error { return errdefs.NotImplemented(errReadOnly) }
func (f *FS) Rmdir(dir *vfs.Inode, name string) error  { return errdefs.NotImplemented(errReadOnly) }
func (f *FS) Symlink(dir *vfs.Inode, name, target string) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (f *FS) Readlink(i *vfs.Inode) (string, error) { return "", errdefs.NotImplemented(errReadOnly) }
func (f *FS) Mknod(dir *vfs.Inode, name string, mode vfs.Mode, rdev vfs.DevT) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (f *FS) Rename(oldDir *vfs.Inode, oldName string, newDir *vfs.Inode, newName string) error {
	return errdefs.NotImplemented(errReadOnly)
}
func (f *FS) Link(dir *vfs.Inode, name string, target *vfs.Inode) error {
	return errdefs.NotImplemented(errReadOnly)
}
func (f *FS) Truncate(i *vfs.Inode, size int64) error { return errdefs.NotImplemented(errReadOnly) }
func (f *FS) PutInode(i *vfs.Inode) error              { return nil }
