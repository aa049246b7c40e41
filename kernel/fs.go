package kernel

import (
	"fmt"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/devfs"
	"github.com/eric29200/nulix/fs/ext2"
	"github.com/eric29200/nulix/fs/isofs"
	"github.com/eric29200/nulix/fs/minix"
	"github.com/eric29200/nulix/fs/procfs"
	"github.com/eric29200/nulix/fs/tmpfs"
	"github.com/eric29200/nulix/fs/vfs"
)

// mountRoot builds the root filesystem named by cfg.Root.FSType, mounts
// it with no mountpoint (the initial root mount, vfs.MountTable's nil-
// mountpoint case), and returns its root dentry. A devfs is always
// additionally mounted at /dev, and a procfs at /proc, since every real
// root needs both regardless of which on-disk format backs "/" itself.
func (k *Kernel) mountRoot() error {
	k.Root = vfs.NewFS()

	rootSB, rootIno, reader, err := k.buildRootSuperBlock()
	if err != nil {
		return err
	}
	rootInode, err := k.Inodes.Iget(rootSB, rootIno, reader)
	if err != nil {
		return fmt.Errorf("kernel: read root inode: %w", err)
	}
	rootDentry := vfs.NewDentry("/", rootInode, nil)
	if _, err := k.Root.Mounts.Mount(rootSB, nil, rootDentry); err != nil {
		return fmt.Errorf("kernel: mount root: %w", err)
	}
	k.Root.Root = rootDentry

	if err := k.mountAt(rootDentry, "dev", func() (*vfs.SuperBlock, uint64, vfs.Reader, error) {
		fs, sb := devfs.New(k.Inodes)
		return sb, sb.RootIno, fs.Reader, nil
	}); err != nil {
		return err
	}
	if err := k.mountAt(rootDentry, "proc", func() (*vfs.SuperBlock, uint64, vfs.Reader, error) {
		fs, sb := procfs.New(k.Inodes, k.procfsSource())
		return sb, sb.RootIno, fs.Reader, nil
	}); err != nil {
		return err
	}
	return nil
}

// buildRootSuperBlock constructs the concrete filesystem named by
// k.Config.Root.FSType and returns its superblock, root inode number, and
// inode reader, without mounting it — mountRoot does that once the root
// inode has been fetched.
func (k *Kernel) buildRootSuperBlock() (*vfs.SuperBlock, uint64, vfs.Reader, error) {
	switch k.Config.Root.FSType {
	case "", "tmpfs":
		fs, sb := tmpfs.New(k.Inodes)
		return sb, sb.RootIno, fs.Reader, nil
	case "minix":
		dev, err := k.rootDevID()
		if err != nil {
			return nil, 0, nil, err
		}
		fs, sb, err := minix.Mount(k.Inodes, k.Cache, dev)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("kernel: mount minix root: %w", err)
		}
		return sb, sb.RootIno, fs.Reader, nil
	case "ext2":
		dev, err := k.rootDevID()
		if err != nil {
			return nil, 0, nil, err
		}
		fs, sb, err := ext2.Mount(k.Inodes, k.Cache, dev)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("kernel: mount ext2 root: %w", err)
		}
		return sb, sb.RootIno, fs.Reader, nil
	case "isofs":
		dev, err := k.rootDevID()
		if err != nil {
			return nil, 0, nil, err
		}
		fs, sb, err := isofs.Mount(k.Inodes, k.Cache, dev)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("kernel: mount isofs root: %w", err)
		}
		return sb, sb.RootIno, fs.Reader, nil
	default:
		return nil, 0, nil, errdefs.InvalidParameter(fmt.Errorf("kernel: unknown root fstype %q", k.Config.Root.FSType))
	}
}

// rootDevID resolves cfg.Root.Device to the dev id block-backed
// filesystems key their buffer cache entries by. This runtime has no
// /dev namespace yet at boot time, so devices are identified by the
// major number they were registered under in blockdev.Table; Device is
// parsed as that major, minor 0.
func (k *Kernel) rootDevID() (uint64, error) {
	if k.Config.Root.Device == "" {
		return 0, errdefs.InvalidParameter(fmt.Errorf("kernel: root fstype %q requires a device", k.Config.Root.FSType))
	}
	var major uint32
	if _, err := fmt.Sscanf(k.Config.Root.Device, "%d", &major); err != nil {
		return 0, errdefs.InvalidParameter(fmt.Errorf("kernel: invalid root device %q: %w", k.Config.Root.Device, err))
	}
	return uint64(major) << 16, nil
}

// mountAt creates dir under parent (if missing) and mounts the filesystem
// build returns there.
func (k *Kernel) mountAt(parent *vfs.Dentry, dir string, build func() (*vfs.SuperBlock, uint64, vfs.Reader, error)) error {
	mountPoint, err := k.Root.Namei(parent, dir)
	if err != nil {
		mountPoint, err = k.createMountDir(parent, dir)
		if err != nil {
			return fmt.Errorf("kernel: create %s mountpoint: %w", dir, err)
		}
	}

	sb, ino, reader, err := build()
	if err != nil {
		return err
	}
	inode, err := k.Inodes.Iget(sb, ino, reader)
	if err != nil {
		return fmt.Errorf("kernel: read %s root inode: %w", dir, err)
	}
	fsRoot := vfs.NewDentry(dir, inode, mountPoint.Parent)
	if _, err := k.Root.Mounts.Mount(sb, mountPoint, fsRoot); err != nil {
		return fmt.Errorf("kernel: mount %s: %w", dir, err)
	}
	return nil
}

func (k *Kernel) createMountDir(parent *vfs.Dentry, name string) (*vfs.Dentry, error) {
	child, err := parent.Inode.Ops.Mknod(parent.Inode, name, vfs.ModeDir|0o755, 0)
	if err != nil {
		return nil, err
	}
	d := vfs.NewDentry(name, child, parent)
	parent.AddChild(d)
	return d, nil
}
