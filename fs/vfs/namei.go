package vfs

import (
	"strings"

	"github.com/eric29200/nulix/errdefs"
)

// FS ties the inode table, mount table, and root dentry together: the
// single context namei resolves paths against (spec §4.4).
type FS struct {
	Inodes *InodeTable
	Mounts *MountTable
	Root   *Dentry
}

// NewFS builds an empty VFS context. Callers mount a root filesystem with
// Mounts.Mount(sb, nil, rootDentry) and set Root to that dentry.
func NewFS() *FS {
	return &FS{Inodes: NewInodeTable(), Mounts: NewMountTable()}
}

// Namei resolves path to a dentry, starting at base (the caller's root or
// cwd dentry per spec §4.4). It follows symlinks up to MaxSymlinkDepth and
// crosses mount points.
func (fs *FS) Namei(base *Dentry, path string) (*Dentry, error) {
	return fs.namei(base, path, 0)
}

func (fs *FS) namei(base *Dentry, path string, depth int) (*Dentry, error) {
	if depth > MaxSymlinkDepth {
		return nil, errdefs.InvalidParameter(errLoop)
	}

	cur := base
	if strings.HasPrefix(path, "/") {
		cur = fs.rootMountRoot()
	}

	parts := strings.Split(path, "/")
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if len(part) > MaxNameLength {
			return nil, errdefs.InvalidParameter(errNameTooLong)
		}
		if part == ".." {
			if cur.Parent != nil {
				cur = cur.Parent
			}
			continue
		}

		cur = fs.crossMounts(cur)
		if !cur.Inode.Attr().Mode.IsDir() {
			return nil, errdefs.InvalidParameter(errNotDir)
		}

		next, err := fs.lookupChild(cur, part)
		if err != nil {
			return nil, err
		}

		if next.Inode.Attr().Mode.IsSymlink() {
			target, err := next.Inode.Ops.Readlink(next.Inode)
			if err != nil {
				return nil, err
			}
			resolved, err := fs.namei(cur, target, depth+1)
			if err != nil {
				return nil, err
			}
			next = resolved
		}
		cur = next
	}
	return fs.crossMounts(cur), nil
}

// crossMounts returns the effective dentry to continue lookups from: if d
// has a filesystem mounted on it, that filesystem's root dentry.
func (fs *FS) crossMounts(d *Dentry) *Dentry {
	sb := d.Mounted()
	if sb == nil {
		return d
	}
	for _, m := range fs.Mounts.List() {
		if m.SB == sb {
			return m.Root
		}
	}
	return d
}

func (fs *FS) rootMountRoot() *Dentry {
	return fs.crossMounts(fs.Root)
}

// lookupChild checks the dentry cache first, falling back to the parent
// inode's Lookup op on a miss (spec §4.4).
func (fs *FS) lookupChild(dir *Dentry, name string) (*Dentry, error) {
	if c, ok := dir.Child(name); ok {
		return c, nil
	}
	inode, err := dir.Inode.Ops.Lookup(dir.Inode, name)
	if err != nil {
		return nil, errdefs.NotFound(errNotFound)
	}
	child := NewDentry(name, inode, dir)
	dir.AddChild(child)
	return child, nil
}
