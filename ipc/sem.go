package ipc

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

// Limits mirroring SEMMNI/SEMMNS/SEMOPM/SEMAEM from the original kernel's
// ipc/sem.c.
const (
	semMNI = 128   // max number of semaphore sets system-wide
	SemMNS = 8192  // max semaphores across all sets
	SemOPM = 32    // max operations per semop call
	semAEM = 16384 // max magnitude of an undo adjustment
)

// SemUndo marks a Sembuf operation for undo-on-process-exit (SEM_UNDO).
// The flag only enables the semAEM range check on the operation; no undo
// adjustment is recorded (process.Task carries no IPC bookkeeping), so
// nothing is reversed when a task exits.
const SemUndo = 0o1000

// Sembuf is one semaphore operation, passed in batches to SemOp.
type Sembuf struct {
	Num   int
	Op    int
	Flags int
}

type semaphore struct {
	val     int
	lastPID int
}

type semSet struct {
	mu      sync.Mutex
	perm    Perm
	sems    []semaphore
	waiters *sched.WaitQueue
}

// SemGet implements semget.
func (n *Namespace) SemGet(key int, nsems int, perm Perm, flags int) (int, error) {
	if key != IPCPrivate {
		if id, ok := n.semIDs.lookupByKey(key); ok {
			if flags&FlagCreat != 0 && flags&FlagExcl != 0 {
				return 0, errdefs.Conflict(errExists)
			}
			return id, nil
		}
		if flags&FlagCreat == 0 {
			return 0, errdefs.NotFound(errNoEntry)
		}
	}
	if nsems < 1 {
		return 0, errdefs.InvalidParameter(errBadSemNum)
	}

	perm.Key = key
	s := &semSet{perm: perm, sems: make([]semaphore, nsems), waiters: sched.NewWaitQueue()}
	return n.semIDs.add(key, s)
}

func (n *Namespace) semSet(id int) (*semSet, error) {
	obj := n.semIDs.get(id)
	if obj == nil {
		return nil, errdefs.NotFound(errStaleID)
	}
	return obj.(*semSet), nil
}

// tryApply attempts every op in ops against s in order, all-or-nothing:
// if any op would block or push a semaphore's value out of the undo
// range, every op already applied in this attempt is unwound before
// returning, the same shape as the original's try_atomic_semop.
func tryApply(s *semSet, ops []Sembuf, pid int) (blocked bool, err error) {
	applied := 0
	for _, op := range ops {
		cur := &s.sems[op.Num]
		res := cur.val + op.Op

		if (op.Op == 0 && cur.val != 0) || res < 0 {
			blocked = true
			break
		}
		if op.Flags&SemUndo != 0 && (res < -semAEM-1 || res > semAEM) {
			err = errdefs.InvalidParameter(errRange)
			break
		}

		cur.val = res
		applied++
	}

	if blocked || err != nil {
		for i := applied - 1; i >= 0; i-- {
			s.sems[ops[i].Num].val -= ops[i].Op
		}
		return blocked, err
	}

	for _, op := range ops {
		s.sems[op.Num].lastPID = pid
	}
	return false, nil
}

// SemOp implements semop: nsops operations are applied atomically
// (either all succeed or none do). If the batch would block — a
// decrement past zero, or a wait-for-zero against a nonzero value — a
// FlagNoWait op reports immediately; otherwise the caller gets
// errdefs.Unavailable and SemSetWaiters to park a retry on, the same
// one-shot contract used everywhere else instead of the original's
// sleep_on loop.
func (n *Namespace) SemOp(id int, ops []Sembuf, pid int) error {
	if len(ops) < 1 || len(ops) > SemOPM {
		return errdefs.InvalidParameter(errBadSemNum)
	}

	s, err := n.semSet(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if op.Num < 0 || op.Num >= len(s.sems) {
			return errdefs.InvalidParameter(errBadSemNum)
		}
	}

	blocked, applyErr := tryApply(s, ops, pid)
	if applyErr != nil {
		return applyErr
	}
	if blocked {
		for _, op := range ops {
			if op.Flags&FlagNoWait != 0 {
				return errdefs.Unavailable(errWouldBlock)
			}
		}
		return errdefs.Unavailable(errWouldBlock)
	}

	n.sched.WakeUp(s.waiters)
	return nil
}

// SemSetWaiters exposes the wait queue a blocked SemOp should park on.
func (n *Namespace) SemSetWaiters(id int) (*sched.WaitQueue, error) {
	s, err := n.semSet(id)
	if err != nil {
		return nil, err
	}
	return s.waiters, nil
}

// SemGetVal implements the GETVAL command of semctl.
func (n *Namespace) SemGetVal(id, num int) (int, error) {
	s, err := n.semSet(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if num < 0 || num >= len(s.sems) {
		return 0, errdefs.InvalidParameter(errBadSemNum)
	}
	return s.sems[num].val, nil
}

// SemSetVal implements the SETVAL command of semctl.
func (n *Namespace) SemSetVal(id, num, val int) error {
	s, err := n.semSet(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if num < 0 || num >= len(s.sems) {
		return errdefs.InvalidParameter(errBadSemNum)
	}
	if val < 0 || val > semAEM {
		return errdefs.InvalidParameter(errRange)
	}
	s.sems[num].val = val
	n.sched.WakeUp(s.waiters)
	return nil
}

// SemGetPID implements the GETPID command of semctl: the pid of the last
// task whose SemOp touched this semaphore.
func (n *Namespace) SemGetPID(id, num int) (int, error) {
	s, err := n.semSet(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if num < 0 || num >= len(s.sems) {
		return 0, errdefs.InvalidParameter(errBadSemNum)
	}
	return s.sems[num].lastPID, nil
}

// SemGetAll implements the GETALL command of semctl.
func (n *Namespace) SemGetAll(id int) ([]int, error) {
	s, err := n.semSet(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.sems))
	for i, sem := range s.sems {
		out[i] = sem.val
	}
	return out, nil
}

// SemSetAll implements the SETALL command of semctl.
func (n *Namespace) SemSetAll(id int, vals []int) error {
	s, err := n.semSet(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(vals) != len(s.sems) {
		return errdefs.InvalidParameter(errBadSemNum)
	}
	for i, v := range vals {
		s.sems[i].val = v
	}
	n.sched.WakeUp(s.waiters)
	return nil
}

// SemRemove implements the IPC_RMID command of semctl.
func (n *Namespace) SemRemove(id int) error {
	obj := n.semIDs.remove(id)
	if obj == nil {
		return errdefs.NotFound(errStaleID)
	}
	s := obj.(*semSet)
	n.sched.WakeUp(s.waiters)
	return nil
}

// SemStat implements the IPC_STAT command of semctl.
func (n *Namespace) SemStat(id int) (Perm, int, error) {
	s, err := n.semSet(id)
	if err != nil {
		return Perm{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm, len(s.sems), nil
}
