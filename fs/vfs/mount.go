package vfs

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// Mount records one active mount: the filesystem's superblock and the
// dentry it is mounted on (its mountpoint in the parent namespace).
type Mount struct {
	SB         *SuperBlock
	MountPoint *Dentry // nil for the root mount
	Root       *Dentry // the mounted FS's root dentry
}

// MountTable tracks every active mount, in mount order.
type MountTable struct {
	mu     sync.Mutex
	mounts []*Mount
	nextID uint64
}

// NewMountTable creates an empty mount table.
func NewMountTable() *MountTable {
	return &MountTable{}
}

// Mount attaches sb's root at mountPoint (nil for the initial root mount),
// redirecting future namei lookups that cross mountPoint into sb's tree.
func (mt *MountTable) Mount(sb *SuperBlock, mountPoint *Dentry, root *Dentry) (*Mount, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.nextID++
	sb.ID = mt.nextID
	m := &Mount{SB: sb, MountPoint: mountPoint, Root: root}
	mt.mounts = append(mt.mounts, m)
	if mountPoint != nil {
		mountPoint.Mount(sb)
	}
	return m, nil
}

// Unmount detaches the filesystem mounted at mountPoint. Returns
// errdefs.Unavailable (EBUSY) if the mounted root dentry still has
// references, matching the source's "can't unmount busy fs" behavior.
func (mt *MountTable) Unmount(mountPoint *Dentry) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for idx, m := range mt.mounts {
		if m.MountPoint == mountPoint {
			if !m.Root.Reclaimable() {
				return errdefs.Unavailable(errMountBusy)
			}
			mountPoint.Unmount()
			mt.mounts = append(mt.mounts[:idx], mt.mounts[idx+1:]...)
			return nil
		}
	}
	return errdefs.NotFound(errNotMounted)
}

// List returns a snapshot of active mounts, oldest first.
func (mt *MountTable) List() []*Mount {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	out := make([]*Mount, len(mt.mounts))
	copy(out, mt.mounts)
	return out
}
