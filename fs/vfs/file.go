package vfs

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// OpenFlag mirrors the open(2) flag bits the core cares about.
type OpenFlag uint32

const (
	OReadOnly OpenFlag = 0
	OWriteOnly OpenFlag = 1
	OReadWrite OpenFlag = 2
	OCreate    OpenFlag = 1 << 6
	OAppend    OpenFlag = 1 << 10
	OTruncate  OpenFlag = 1 << 9
	OCloseExec OpenFlag = 1 << 19
	ONonblock  OpenFlag = 1 << 11
)

// FileOps is the per-kind vtable selected from the inode's mode bits at
// open time (spec §4.4; regular/dir/chr/blk/fifo/sock/symlink each
// install their own).
type FileOps interface {
	Read(f *File, buf []byte) (int, error)
	Write(f *File, buf []byte) (int, error)
	Seek(f *File, off int64, whence int) (int64, error)
	Ioctl(f *File, cmd uintptr, arg uintptr) (uintptr, error)
	Close(f *File) error
}

// File is a refcounted open-file description (spec §3): inode, position,
// flags, ops, and an optional private pointer (e.g. the owning TTY).
type File struct {
	Inode   *Inode
	Ops     FileOps
	Flags   OpenFlag
	Private any

	mu   sync.Mutex
	pos  int64
	refs int
}

// NewFile creates a file description with one reference.
func NewFile(inode *Inode, ops FileOps, flags OpenFlag) *File {
	return &File{Inode: inode, Ops: ops, Flags: flags, refs: 1}
}

// Pos returns the current file offset.
func (f *File) Pos() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

// SetPos sets the current file offset (used by lseek and by Read/Write
// advancing it).
func (f *File) SetPos(p int64) {
	f.mu.Lock()
	f.pos = p
	f.mu.Unlock()
}

// Get increments the file description's reference count (e.g. on dup).
func (f *File) Get() {
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
}

// Put decrements the reference count, invoking Ops.Close at zero.
func (f *File) Put() error {
	f.mu.Lock()
	f.refs--
	refs := f.refs
	f.mu.Unlock()
	if refs > 0 {
		return nil
	}
	if f.Ops != nil {
		return f.Ops.Close(f)
	}
	return nil
}

// fdEntry pairs a file description with its close-on-exec flag.
type fdEntry struct {
	file    *File
	closeOnExec bool
}

// FileTable is a per-"files" struct: the small-integer fd table shareable
// by clone()d tasks (spec §3 Task, §4.6 fork/clone sharing).
type FileTable struct {
	mu    sync.Mutex
	refs  int
	table map[int]*fdEntry
	limit int
}

// NewFileTable creates an empty fd table with one reference and a
// resource limit on open descriptors (EMFILE territory).
func NewFileTable(limit int) *FileTable {
	return &FileTable{table: make(map[int]*fdEntry), refs: 1, limit: limit}
}

// Get increments the sharing refcount (clone with CLONE_FILES).
func (t *FileTable) Get() {
	t.mu.Lock()
	t.refs++
	t.mu.Unlock()
}

// Put decrements the sharing refcount, closing every descriptor at zero.
func (t *FileTable) Put() {
	t.mu.Lock()
	t.refs--
	refs := t.refs
	var files []*File
	if refs == 0 {
		for _, e := range t.table {
			files = append(files, e.file)
		}
		t.table = make(map[int]*fdEntry)
	}
	t.mu.Unlock()
	for _, f := range files {
		f.Put()
	}
}

// Install allocates the lowest unused fd for file, honoring closeOnExec.
func (t *FileTable) Install(file *File, closeOnExec bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for fd := 0; fd < t.limit; fd++ {
		if _, used := t.table[fd]; !used {
			t.table[fd] = &fdEntry{file: file, closeOnExec: closeOnExec}
			return fd, nil
		}
	}
	return -1, errdefs.ResourceExhausted(errTooManyOpenFiles)
}

// FileAt returns the file installed at fd.
func (t *FileTable) FileAt(fd int) (*File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.table[fd]
	if !ok {
		return nil, errdefs.InvalidParameter(errBadFD)
	}
	return e.file, nil
}

// Close drops fd, closing the underlying file if it was the last fd
// referencing it.
func (t *FileTable) Close(fd int) error {
	t.mu.Lock()
	e, ok := t.table[fd]
	if !ok {
		t.mu.Unlock()
		return errdefs.InvalidParameter(errBadFD)
	}
	delete(t.table, fd)
	t.mu.Unlock()
	return e.file.Put()
}

// Dup2 installs oldfd's file at newfd (closing whatever was there),
// per dup2(2)/dup3(2) semantics.
func (t *FileTable) Dup2(oldfd, newfd int) (int, error) {
	t.mu.Lock()
	old, ok := t.table[oldfd]
	if !ok {
		t.mu.Unlock()
		return -1, errdefs.InvalidParameter(errBadFD)
	}
	existing, hadExisting := t.table[newfd]
	old.file.Get()
	t.table[newfd] = &fdEntry{file: old.file}
	t.mu.Unlock()
	if hadExisting {
		existing.file.Put()
	}
	return newfd, nil
}

// DupLowest implements dup(2)/F_DUPFD: install oldfd's file at the lowest
// fd >= minFd.
func (t *FileTable) DupLowest(oldfd, minFd int) (int, error) {
	t.mu.Lock()
	old, ok := t.table[oldfd]
	if !ok {
		t.mu.Unlock()
		return -1, errdefs.InvalidParameter(errBadFD)
	}
	for fd := minFd; fd < t.limit; fd++ {
		if _, used := t.table[fd]; !used {
			old.file.Get()
			t.table[fd] = &fdEntry{file: old.file}
			t.mu.Unlock()
			return fd, nil
		}
	}
	t.mu.Unlock()
	return -1, errdefs.ResourceExhausted(errTooManyOpenFiles)
}

// SetCloseOnExec sets or clears the FD_CLOEXEC flag on fd.
func (t *FileTable) SetCloseOnExec(fd int, v bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.table[fd]
	if !ok {
		return errdefs.InvalidParameter(errBadFD)
	}
	e.closeOnExec = v
	return nil
}

// CloseOnExec reports the FD_CLOEXEC flag on fd.
func (t *FileTable) CloseOnExec(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.table[fd]
	return ok && e.closeOnExec
}

// DoExec closes every fd flagged close-on-exec, per spec §4.6 execve step 2.
func (t *FileTable) DoExec() {
	t.mu.Lock()
	var toClose []*File
	for fd, e := range t.table {
		if e.closeOnExec {
			toClose = append(toClose, e.file)
			delete(t.table, fd)
		}
	}
	t.mu.Unlock()
	for _, f := range toClose {
		f.Put()
	}
}

// Clone produces an independent copy of the fd table sharing the same
// File descriptions (used by fork without CLONE_FILES collapsing to a
// private copy): each installed File gets an extra reference.
func (t *FileTable) Clone() *FileTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	nt := NewFileTable(t.limit)
	for fd, e := range t.table {
		e.file.Get()
		nt.table[fd] = &fdEntry{file: e.file, closeOnExec: e.closeOnExec}
	}
	return nt
}
