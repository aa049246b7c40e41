package ipc

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// Limits mirroring SHMMNI/SHMMAX from the original kernel's ipc/shm.c.
const (
	shmMNI = 128      // max number of segments system-wide
	ShmMax = 32 << 20 // max bytes in a single segment
)

type shmSegment struct {
	mu      sync.Mutex
	perm    Perm
	data    []byte
	nattch  int
	destroy bool // SHM_DEST: free once the last attachment detaches
}

// ShmGet implements shmget.
func (n *Namespace) ShmGet(key int, size int, perm Perm, flags int) (int, error) {
	if key != IPCPrivate {
		if id, ok := n.shmIDs.lookupByKey(key); ok {
			if flags&FlagCreat != 0 && flags&FlagExcl != 0 {
				return 0, errdefs.Conflict(errExists)
			}
			return id, nil
		}
		if flags&FlagCreat == 0 {
			return 0, errdefs.NotFound(errNoEntry)
		}
	}
	if size < 1 || size > ShmMax {
		return 0, errdefs.InvalidParameter(errTooBig)
	}

	perm.Key = key
	seg := &shmSegment{perm: perm, data: make([]byte, size)}
	return n.shmIDs.add(key, seg)
}

func (n *Namespace) shmSegment(id int) (*shmSegment, error) {
	obj := n.shmIDs.get(id)
	if obj == nil {
		return nil, errdefs.NotFound(errStaleID)
	}
	return obj.(*shmSegment), nil
}

// ShmAt implements shmat. This tree has no user-mapping layer wired to
// IPC yet (that belongs to mm/paging, via the kernel wiring context not
// built here) so attaching hands back the segment's backing slice
// directly rather than a mapped virtual address — a documented
// simplification of the original's page-table remapping in sys_shmat.
func (n *Namespace) ShmAt(id int) ([]byte, error) {
	seg, err := n.shmSegment(id)
	if err != nil {
		return nil, err
	}
	seg.mu.Lock()
	defer seg.mu.Unlock()
	seg.nattch++
	return seg.data, nil
}

// ShmDt implements shmdt: detach one attachment of id. If the segment was
// already marked for destruction (ShmRemove called while attached) and
// this was the last attachment, the segment is freed now, same as
// shm_close's shm_destroy-on-last-detach path.
func (n *Namespace) ShmDt(id int) error {
	seg, err := n.shmSegment(id)
	if err != nil {
		return err
	}
	seg.mu.Lock()
	if seg.nattch > 0 {
		seg.nattch--
	}
	destroy := seg.destroy && seg.nattch == 0
	seg.mu.Unlock()

	if destroy {
		n.shmIDs.remove(id)
	}
	return nil
}

// ShmRemove implements the IPC_RMID command of shmctl: the key is
// deregistered immediately (no new shmget/shmat can find it) but the
// backing memory survives until the last attached caller calls ShmDt,
// mirroring shm_perm.mode |= SHM_DEST in the original.
func (n *Namespace) ShmRemove(id int) error {
	seg, err := n.shmSegment(id)
	if err != nil {
		return err
	}
	seg.mu.Lock()
	nattch := seg.nattch
	seg.destroy = true
	seg.mu.Unlock()

	if nattch == 0 {
		n.shmIDs.remove(id)
	} else {
		n.shmIDs.mu.Lock()
		for k, s := range n.shmIDs.keys {
			if s == slotOf(id) {
				delete(n.shmIDs.keys, k)
			}
		}
		n.shmIDs.mu.Unlock()
	}
	return nil
}

// ShmStat implements the IPC_STAT command of shmctl.
func (n *Namespace) ShmStat(id int) (Perm, int, int, error) {
	seg, err := n.shmSegment(id)
	if err != nil {
		return Perm{}, 0, 0, err
	}
	seg.mu.Lock()
	defer seg.mu.Unlock()
	return seg.perm, len(seg.data), seg.nattch, nil
}
