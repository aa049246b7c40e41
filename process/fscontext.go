package process

import (
	"sync"

	"github.com/eric29200/nulix/fs/vfs"
)

// FsContext is the per-task "fs" resource (spec §3): the current working
// directory, root directory, and umask, independently shareable between
// clone()d siblings with a refcount exactly like vfs.FileTable.
type FsContext struct {
	mu    sync.Mutex
	refs  int
	Cwd   *vfs.Dentry
	Root  *vfs.Dentry
	Umask uint16
}

// NewFsContext creates an fs context with one reference.
func NewFsContext(root, cwd *vfs.Dentry) *FsContext {
	return &FsContext{refs: 1, Root: root, Cwd: cwd, Umask: 0o022}
}

// Get increments the sharing refcount (clone without CLONE_FS's private
// copy, i.e. CLONE_FS itself: see Clone below for the inverse case).
func (f *FsContext) Get() {
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
}

// Put decrements the sharing refcount; callers drop their dentry
// references once it reaches zero.
func (f *FsContext) Put() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs--
	return f.refs
}

// SetCwd changes the working directory, replacing the old dentry
// reference (the VFS layer's Get/Put on the dentries themselves is the
// caller's responsibility, same as every other dentry-holding call site).
func (f *FsContext) SetCwd(d *vfs.Dentry) {
	f.mu.Lock()
	f.Cwd = d
	f.mu.Unlock()
}

// Clone returns an independent copy (fork without CLONE_FS collapses to
// a private copy sharing the same Cwd/Root dentries, not the struct).
func (f *FsContext) Clone() *FsContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &FsContext{refs: 1, Cwd: f.Cwd, Root: f.Root, Umask: f.Umask}
}
