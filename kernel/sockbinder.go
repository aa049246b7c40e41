package kernel

import (
	"fmt"
	stdpath "path"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/vfs"
)

// BindSocketInode implements net/socket.InodeBinder: it creates a
// socket-type inode at path so bind() on a path-named AF_UNIX socket is
// visible to namei the way a real filesystem socket file is.
func (k *Kernel) BindSocketInode(path string) error {
	dir, base := stdpath.Split(path)
	parent, err := k.resolveDir(dir)
	if err != nil {
		return err
	}
	if _, ok := parent.Child(base); ok {
		return errdefs.Conflict(fmt.Errorf("kernel: %s already exists", path))
	}
	inode, err := parent.Inode.Ops.Mknod(parent.Inode, base, vfs.ModeSocket|0o755, 0)
	if err != nil {
		return err
	}
	parent.AddChild(vfs.NewDentry(base, inode, parent))
	return nil
}

// UnbindSocketInode implements net/socket.InodeBinder: it removes the
// inode BindSocketInode created, mirroring unlink() on a socket file once
// its listener goes away.
func (k *Kernel) UnbindSocketInode(path string) error {
	dir, base := stdpath.Split(path)
	parent, err := k.resolveDir(dir)
	if err != nil {
		return err
	}
	if err := parent.Inode.Ops.Unlink(parent.Inode, base); err != nil {
		return err
	}
	parent.RemoveChild(base)
	return nil
}

func (k *Kernel) resolveDir(dir string) (*vfs.Dentry, error) {
	if dir == "" {
		dir = "."
	}
	return k.Root.Namei(k.Root.Root, dir)
}
