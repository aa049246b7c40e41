package process

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/vfs"
	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/signal"
)

// Manager owns the task table and the scheduler every task is enqueued
// on: a lock-protected map plus lifecycle operations over it.
type Manager struct {
	mu    sync.Mutex
	tasks map[int]*Task
	sched *sched.Scheduler
	next  int
	Init  *Task
}

// NewManager creates an empty task table bound to sched.
func NewManager(s *sched.Scheduler) *Manager {
	return &Manager{tasks: make(map[int]*Task), sched: s, next: 1}
}

func (m *Manager) allocPid() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	pid := m.next
	m.next++
	return pid
}

// NewInitTask creates pid 1: no parent, fresh files/fs/sig, no mm (Mm
// stays nil until Execve installs one), and registers it as the reparenting target for every orphaned subtree.
func (m *Manager) NewInitTask(root *vfs.Dentry, fdLimit int) *Task {
	pid := m.allocPid()
	t := &Task{
		Pid:           pid,
		Pgrp:          pid,
		Session:       pid,
		Files:         vfs.NewFileTable(fdLimit),
		Fs:            NewFsContext(root, root),
		Sig:           NewSigHandlers(),
		Pending:       signal.NewPending(),
		rlimits:       defaultRlimits(),
		WaitChildExit: sched.NewWaitQueue(),
		Comm:          "init",
	}
	t.ID = uint64(pid)
	t.Priority = 20
	t.Timeslice = 20

	m.mu.Lock()
	m.tasks[pid] = t
	m.Init = t
	m.mu.Unlock()

	m.sched.Enqueue(&t.Task)
	return t
}

// Lookup returns the task with the given pid.
func (m *Manager) Lookup(pid int) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[pid]
	if !ok {
		return nil, errdefs.NotFound(errNoSuchTask)
	}
	return t, nil
}

// All returns a snapshot of every live (including zombie, not yet reaped)
// task, used by procfs to enumerate /proc/<pid>.
func (m *Manager) All() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out
}

// Fork duplicates parent into a new child task (spec §4.6): mm is
// eager-copied via paging.AddressSpace.Clone unless CloneVM is set (in
// which case parent and child share the same address space, as a real
// vfork/CLONE_VM would); files/fs/sig are cloned or shared per flags.
// The caller is responsible for arranging that the child's first return
// to user space observes 0 where the parent observes the child's pid —
// this package only builds the two Task descriptors.
func (m *Manager) Fork(parent *Task, flags CloneFlags) (*Task, error) {
	pid := m.allocPid()

	child := &Task{
		Pid:           pid,
		Pgrp:          parent.Pgrp,
		Session:       parent.Session,
		Parent:        parent,
		Regs:          parent.Regs,
		Pending:       signal.NewPending(),
		rlimits:       parent.rlimits,
		WaitChildExit: sched.NewWaitQueue(),
		Comm:          parent.Comm,
		Tty:           parent.Tty,
	}
	child.ID = uint64(pid)
	child.Priority = parent.Priority
	child.Timeslice = parent.Priority

	if flags&CloneVM != 0 {
		child.Mm = parent.Mm
	} else if parent.Mm != nil {
		clone, err := parent.Mm.Clone()
		if err != nil {
			return nil, err
		}
		child.Mm = clone
	}

	if flags&CloneFiles != 0 {
		parent.Files.Get()
		child.Files = parent.Files
	} else {
		child.Files = parent.Files.Clone()
	}

	if flags&CloneFs != 0 {
		parent.Fs.Get()
		child.Fs = parent.Fs
	} else {
		child.Fs = parent.Fs.Clone()
	}

	if flags&CloneSighand != 0 {
		parent.Sig.Get()
		child.Sig = parent.Sig
	} else {
		child.Sig = parent.Sig.Clone()
	}

	m.mu.Lock()
	m.tasks[pid] = child
	m.mu.Unlock()

	parent.addChild(child)
	m.sched.Enqueue(&child.Task)
	return child, nil
}

// Exit transitions t to Zombie (spec §4.6): drops t's mm without freeing
// its frames (see below), releases files/fs/sig, reparents children to init, queues SIGCHLD to the parent, and wakes
// whoever is waiting in the parent's WaitChildExit queue. The zombie
// stays in the task table until Wait reaps it.
func (m *Manager) Exit(t *Task, status int) {
	m.sched.SetZombie(&t.Task)
	t.mu.Lock()
	t.ExitStatus = status
	t.mu.Unlock()

	if t.Mm != nil {
		// Mm has no refcount of its own in this model, so Exit cannot
		// tell a CLONE_VM sharer from a sole owner: it only drops t's
		// pointer and frees none of the address space's frames, shared
		// or private.
		t.Mm = nil
	}
	if t.Files != nil {
		t.Files.Put()
	}
	if t.Fs != nil {
		t.Fs.Put()
	}
	if t.Sig != nil {
		t.Sig.Put()
	}

	if m.Init != nil && t != m.Init {
		t.reparentChildrenTo(m.Init)
	}

	parent := t.Parent
	if parent != nil {
		_ = parent.Pending.Queue(signal.Info{Sig: signal.SIGCHLD, Pid: uint32(t.Pid), Data: int64(status)})
		m.sched.WakeUp(parent.WaitChildExit)
	}
}

// WaitOpts mirrors the waitpid(2) flag subset this kernel honors.
type WaitOpts struct {
	Pid    int // 0 = any child, >0 = that specific pid
	NoHang bool
}

// Wait implements waitpid/wait4 (spec §4.6): scans parent's children for
// a Zombie matching opts.Pid (or any, if 0). If none is ready and NoHang
// is set, returns errWouldBlock so the caller reports "no child ready"
// immediately, without blocking. If NoHang is not set, returns
// errShouldSleep: the caller is expected to put the task to sleep on
// parent.WaitChildExit and call Wait again once woken. The two are
// distinct errors so a caller can tell "stop polling" from "go to sleep
// and retry" apart.
func (m *Manager) Wait(parent *Task, opts WaitOpts) (*Task, error) {
	kids := parent.Children()
	if len(kids) == 0 {
		return nil, errdefs.NotFound(errNoChildren)
	}
	for _, c := range kids {
		if opts.Pid != 0 && c.Pid != opts.Pid {
			continue
		}
		if c.GetState() == sched.Zombie {
			parent.removeChild(c)
			m.mu.Lock()
			delete(m.tasks, c.Pid)
			m.mu.Unlock()
			return c, nil
		}
	}
	if opts.NoHang {
		return nil, errdefs.Unavailable(errWouldBlock)
	}
	return nil, errdefs.Unavailable(errShouldSleep)
}
