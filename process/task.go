// Package process implements the task descriptor and lifecycle
// operations of spec §3/§4.6: fork, execve, exit, and waitpid/wait4,
// built around sched.Task for scheduling and signal.Pending/signal.Table
// for signal state.
package process

import (
	"sync"
	"time"

	"github.com/eric29200/nulix/fs/vfs"
	"github.com/eric29200/nulix/mm/paging"
	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/signal"
)

// SigHandlers is the per-signal-handler-set resource shared by
// CLONE_SIGHAND siblings, wrapping signal.Table with a refcount the same
// way vfs.FileTable wraps the fd table.
type SigHandlers struct {
	mu    sync.Mutex
	refs  int
	Table *signal.Table
}

// NewSigHandlers creates a handler table with one reference.
func NewSigHandlers() *SigHandlers {
	return &SigHandlers{refs: 1, Table: signal.NewTable()}
}

// Get increments the sharing refcount.
func (s *SigHandlers) Get() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

// Put decrements the sharing refcount.
func (s *SigHandlers) Put() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	return s.refs
}

// Clone returns a private copy with its own signal.Table, pre-seeded from
// the current dispositions (fork without CLONE_SIGHAND).
func (s *SigHandlers) Clone() *SigHandlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	nt := signal.NewTable()
	for sig := signal.Signal(1); sig <= signal.MaxSignal; sig++ {
		_ = nt.SetAction(sig, s.Table.Action(sig))
	}
	return &SigHandlers{refs: 1, Table: nt}
}

// CloneFlags controls which resources fork/clone shares with the child
// rather than privatizing (spec §4.6 fork).
type CloneFlags uint32

const (
	CloneVM CloneFlags = 1 << iota
	CloneFiles
	CloneFs
	CloneSighand
)

// Registers is the saved general-purpose register frame restored on
// context switch back to user mode; fields are the subset the scheduler
// and signal-delivery trampoline touch directly.
type Registers struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP, ESP uint32
	EIP                uint32
	EFlags             uint32
}

// Task is the full process descriptor (spec §3): sched.Task supplies
// scheduling state, everything else here is process-lifecycle state.
type Task struct {
	sched.Task

	mu sync.Mutex

	Pid     int
	Pgrp    int
	Session int
	Parent  *Task
	children []*Task

	Regs           Registers
	KernelStackPtr uintptr

	Mm    *paging.AddressSpace // nil for kernel threads
	Files *vfs.FileTable
	Fs    *FsContext
	Sig   *SigHandlers

	Pending *signal.Pending
	Blocked signal.Set

	tracer *Tracer // non-nil once PTRACE_ATTACH has claimed this task

	rlimits [numRlimits]Rlimit

	Utime, Stime     time.Duration
	ReadOps, WriteOps     uint64
	ReadBytes, WriteBytes uint64

	Tty any // opaque *tty.TTY handle to the controlling terminal, if any

	WaitChildExit *sched.WaitQueue
	ExitStatus    int

	Comm    string
	Cmdline []string
	Environ []string
}

// Children returns a snapshot of t's child list.
func (t *Task) Children() []*Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Task, len(t.children))
	copy(out, t.children)
	return out
}

func (t *Task) addChild(c *Task) {
	t.mu.Lock()
	t.children = append(t.children, c)
	t.mu.Unlock()
}

func (t *Task) removeChild(c *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, ch := range t.children {
		if ch == c {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return
		}
	}
}

func (t *Task) reparentChildrenTo(init *Task) {
	t.mu.Lock()
	kids := t.children
	t.children = nil
	t.mu.Unlock()
	for _, c := range kids {
		c.mu.Lock()
		c.Parent = init
		c.mu.Unlock()
		init.addChild(c)
	}
}
