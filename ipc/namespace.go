package ipc

import "github.com/eric29200/nulix/sched"

// Namespace is one kernel's worth of System V IPC state: the three id
// tables (message queues, semaphore sets, shared-memory segments) a
// syscall-dispatch layer looks objects up in. One instance is created by
// the kernel wiring context and shared by every task's msgget/semget/
// shmget calls — there is exactly one IPC namespace per machine in this
// tree, the same as the original kernel's single static id tables.
type Namespace struct {
	sched *sched.Scheduler

	msgIDs *idTable
	semIDs *idTable
	shmIDs *idTable
}

// NewNamespace creates an empty IPC namespace, waking blocked callers
// through scheduler.
func NewNamespace(scheduler *sched.Scheduler) *Namespace {
	return &Namespace{
		sched:  scheduler,
		msgIDs: newIDTable(msgMNI),
		semIDs: newIDTable(semMNI),
		shmIDs: newIDTable(shmMNI),
	}
}
