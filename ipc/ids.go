// Package ipc implements System V interprocess communication: message
// queues, semaphore sets, and shared-memory segments, reachable from the
// syscall surface as msgget/msgsnd/msgrcv/msgctl, semget/semop/semctl,
// and shmget/shmat/shmdt/shmctl (spec §6).
//
// Every object lives in a slot table keyed by a small integer id built
// from a slot index and a generation counter, the same scheme
// kernel/ipc/{msg,sem,shm}.c uses (ipc_buildid/ipc_checkid): removing an
// object bumps its slot's generation, so a caller still holding the old
// id gets a stale-id error instead of silently hitting whatever was
// reallocated into that slot.
package ipc

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// seqMultiplier scales the generation counter clear of the slot index
// when building an external id, mirroring ipc_buildid's id = seq*SEQ_MULTIPLIER + slot.
const seqMultiplier = 32768

// IPCPrivate is the key value requesting a fresh, unshared object
// regardless of what else is registered (IPC_PRIVATE).
const IPCPrivate = 0

// Get/Ctl flag bits (IPC_CREAT/IPC_EXCL/IPC_NOWAIT), numerically the same
// as the values the original kernel's headers used.
const (
	FlagCreat  = 0o1000
	FlagExcl   = 0o2000
	FlagNoWait = 0o4000
)

// Ctl commands shared across msgctl/semctl/shmctl.
const (
	CtlRmid = iota
	CtlStat
	CtlSet
)

// Perm is the ownership/permission record every IPC object carries
// (kern_ipc_perm), trimmed to what this tree's syscall layer can supply —
// no ACLs, just a creator uid/gid and a key for lookup-by-key. Namespace
// itself doesn't enforce Mode/UID/GID against a caller; the
// syscall-dispatch layer is expected to check Perm (returned by the Stat
// calls) against the calling task's credentials before invoking a
// mutating operation, same division of labor as ipcperms being called by
// each sys_* entry point rather than by the object itself.
type Perm struct {
	Key  int
	UID  int
	GID  int
	Mode int
}

type idTable struct {
	mu    sync.Mutex
	slots []any
	keys  map[int]int // key -> slot, for lookup by key (skips IPC_PRIVATE objects)
	seq   []int
	max   int
}

func newIDTable(max int) *idTable {
	return &idTable{max: max, keys: make(map[int]int)}
}

func buildID(slot, seq int) int { return seq*seqMultiplier + slot }
func slotOf(id int) int         { return id % seqMultiplier }
func seqOf(id int) int          { return id / seqMultiplier }

// add stores obj in the first free slot (or a new one) and returns its
// external id. If key is non-zero (not IPC_PRIVATE) the slot is also
// indexed for lookupByKey.
func (t *idTable) add(key int, obj any) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := -1
	for i, s := range t.slots {
		if s == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		if len(t.slots) >= t.max {
			return 0, errdefs.ResourceExhausted(errTooManyIDs)
		}
		t.slots = append(t.slots, nil)
		t.seq = append(t.seq, 0)
		slot = len(t.slots) - 1
	}
	t.slots[slot] = obj
	if key != IPCPrivate {
		t.keys[key] = slot
	}
	return buildID(slot, t.seq[slot]), nil
}

// get returns the object id refers to, or nil if id is stale or unknown.
func (t *idTable) get(id int) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot := slotOf(id)
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil || t.seq[slot] != seqOf(id) {
		return nil
	}
	return t.slots[slot]
}

// lookupByKey returns the id already registered under key, if any.
func (t *idTable) lookupByKey(key int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, ok := t.keys[key]
	if !ok || t.slots[slot] == nil {
		return 0, false
	}
	return buildID(slot, t.seq[slot]), true
}

// remove frees the slot id refers to and bumps its generation, so any
// surviving copy of id becomes stale (ipc_rmid).
func (t *idTable) remove(id int) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot := slotOf(id)
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil || t.seq[slot] != seqOf(id) {
		return nil
	}
	obj := t.slots[slot]
	t.slots[slot] = nil
	t.seq[slot]++
	for k, s := range t.keys {
		if s == slot {
			delete(t.keys, k)
		}
	}
	return obj
}
