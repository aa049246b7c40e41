// Package sched implements the run-queue/wait-queue scheduling primitives
// used by every blocking operation in the tree: a single run queue picked
// by remaining timeslice with round-robin tie-break, FIFO wait queues, and
// schedule_timeout-style timed sleeps (spec §4.5, §5).
//
// The kernel is non-preemptive (spec §5): nothing here preempts a task
// that is actually executing. Schedule only decides which Task the next
// "return to scheduler" point hands the CPU to.
package sched

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// State is a task's scheduling state.
type State int

const (
	Running State = iota
	Sleeping
	Stopped
	Zombie
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	case Zombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// Task is the scheduling-only slice of a task descriptor. package process
// embeds this by value and builds the rest of the spec §3 descriptor
// around it; the Scheduler only ever deals with *Task.
type Task struct {
	ID        uint64
	State     State
	Priority  int
	Timeslice int

	mu               sync.Mutex
	order            uint64
	onQueue          *WaitQueue
	timeoutRemaining int
	timedOut         bool
	hasTimeout       bool
}

// WaitQueue is a FIFO list of sleeping tasks (spec §5: "wait queues are
// FIFO insertion order").
type WaitQueue struct {
	mu    sync.Mutex
	items []*Task
}

// NewWaitQueue creates an empty wait queue.
func NewWaitQueue() *WaitQueue { return &WaitQueue{} }

func (q *WaitQueue) push(t *Task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
}

func (q *WaitQueue) popAll() []*Task {
	q.mu.Lock()
	out := q.items
	q.items = nil
	q.mu.Unlock()
	return out
}

func (q *WaitQueue) popFront() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t
}

func (q *WaitQueue) remove(t *Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, c := range q.items {
		if c == t {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Scheduler owns the single run queue shared by every task in the system
// (spec §5's "Run/wait queues... all tasks").
type Scheduler struct {
	mu       sync.Mutex
	runnable []*Task
	seq      uint64
	timers   map[*Task]struct{}
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{timers: make(map[*Task]struct{})}
}

// Enqueue puts t on the run queue in the Running state, at the back of
// insertion order.
func (s *Scheduler) Enqueue(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(t)
}

func (s *Scheduler) enqueueLocked(t *Task) {
	t.mu.Lock()
	t.State = Running
	t.order = s.seq
	s.seq++
	t.mu.Unlock()
	s.runnable = append(s.runnable, t)
}

// Dequeue removes t from the run queue without changing its State,
// leaving it to the caller to mark Sleeping/Stopped/Zombie.
func (s *Scheduler) Dequeue(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeRunnableLocked(t)
}

func (s *Scheduler) removeRunnableLocked(t *Task) bool {
	for i, c := range s.runnable {
		if c == t {
			s.runnable = append(s.runnable[:i], s.runnable[i+1:]...)
			return true
		}
	}
	return false
}

// RunQueueLen reports the number of tasks currently runnable, for
// callers (e.g. a /proc/loadavg-style metric) that need the queue depth
// without pulling a task off it.
func (s *Scheduler) RunQueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runnable)
}

// Schedule picks the Running task with the highest remaining timeslice,
// breaking ties by round-robin insertion order (spec §4.5). It does not
// remove the task from the run queue or touch its timeslice; callers call
// ExpireTimeslice once the picked task actually exhausts its slice.
func (s *Scheduler) Schedule() (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runnable) == 0 {
		return nil, errdefs.Unavailable(errNotRunnable)
	}
	best := s.runnable[0]
	for _, t := range s.runnable[1:] {
		if t.Timeslice > best.Timeslice || (t.Timeslice == best.Timeslice && t.order < best.order) {
			best = t
		}
	}
	return best, nil
}

// ExpireTimeslice applies the decay rule (new = old/2 + priority) and
// moves t to the back of the round-robin insertion order, as happens when
// a running task's slice reaches zero (spec §4.5).
func (s *Scheduler) ExpireTimeslice(t *Task) {
	t.mu.Lock()
	t.Timeslice = t.Timeslice/2 + t.Priority
	t.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeRunnableLocked(t) {
		s.enqueueLocked(t)
	}
}

// SleepOn removes t from the run queue, marks it Sleeping, and appends it
// to q in FIFO order.
func (s *Scheduler) SleepOn(q *WaitQueue, t *Task) {
	s.mu.Lock()
	s.removeRunnableLocked(t)
	s.mu.Unlock()

	t.mu.Lock()
	t.State = Sleeping
	t.onQueue = q
	t.mu.Unlock()

	q.push(t)
}

// WakeUp moves every task waiting on q back to Running, preserving their
// relative FIFO order at the back of the run queue ("wake_up_all releases
// all waiters at once", spec §5).
func (s *Scheduler) WakeUp(q *WaitQueue) {
	for _, t := range q.popAll() {
		s.wakeLocked(t)
	}
}

// WakeUpAll is an alias for WakeUp, named after the spec's wake_up_all.
func (s *Scheduler) WakeUpAll(q *WaitQueue) { s.WakeUp(q) }

// WakeUpOne wakes exactly the longest-waiting task on q, if any
// ("wake_up_one releases exactly one, the longest-waiting", spec §5).
func (s *Scheduler) WakeUpOne(q *WaitQueue) *Task {
	t := q.popFront()
	if t == nil {
		return nil
	}
	s.wakeLocked(t)
	return t
}

func (s *Scheduler) wakeLocked(t *Task) {
	t.mu.Lock()
	t.onQueue = nil
	t.hasTimeout = false
	t.mu.Unlock()

	s.mu.Lock()
	delete(s.timers, t)
	s.enqueueLocked(t)
	s.mu.Unlock()
}

// ScheduleTimeout puts t to sleep on q (or, if q is nil, a private queue)
// for up to ticks scheduler ticks. Call Tick to advance time and
// TimeoutResult after t is Running again to read back what happened.
func (s *Scheduler) ScheduleTimeout(q *WaitQueue, t *Task, ticks int) {
	if q == nil {
		q = NewWaitQueue()
	}
	t.mu.Lock()
	t.hasTimeout = true
	t.timeoutRemaining = ticks
	t.timedOut = false
	t.mu.Unlock()

	s.mu.Lock()
	s.timers[t] = struct{}{}
	s.mu.Unlock()

	s.SleepOn(q, t)
}

// Tick advances every pending timed sleep by n ticks, waking any task
// whose timeout has elapsed.
func (s *Scheduler) Tick(n int) {
	s.mu.Lock()
	pending := make([]*Task, 0, len(s.timers))
	for t := range s.timers {
		pending = append(pending, t)
	}
	s.mu.Unlock()

	var expired []*Task
	for _, t := range pending {
		t.mu.Lock()
		if t.hasTimeout {
			t.timeoutRemaining -= n
			if t.timeoutRemaining <= 0 {
				t.timeoutRemaining = 0
				t.timedOut = true
				expired = append(expired, t)
			}
		}
		t.mu.Unlock()
	}

	for _, t := range expired {
		t.mu.Lock()
		q := t.onQueue
		t.onQueue = nil
		t.hasTimeout = false
		t.mu.Unlock()
		if q != nil {
			q.remove(t)
		}
		s.mu.Lock()
		delete(s.timers, t)
		s.enqueueLocked(t)
		s.mu.Unlock()
	}
}

// TimeoutResult reports what ScheduleTimeout's sleep returned: remaining
// ticks (0 means it timed out, per spec §5's schedule_timeout contract).
func (t *Task) TimeoutResult() (remaining int, timedOut bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeoutRemaining, t.timedOut
}

// GetState reads t.State under the lock that every other state
// transition in this package also uses, so callers outside the package
// (process.Task embeds Task by value) never race a concurrent
// Enqueue/SleepOn/wake against a plain field read.
func (t *Task) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State
}

// SetZombie removes t from the run queue (it may already be off it) and
// marks it Zombie; used by exit(), which has no wait queue of its own to
// park on (spec §4.6: "Zombie stays in the task list until reaped").
func (s *Scheduler) SetZombie(t *Task) {
	s.mu.Lock()
	s.removeRunnableLocked(t)
	s.mu.Unlock()
	t.mu.Lock()
	t.State = Zombie
	t.mu.Unlock()
}

// SetStopped removes t from the run queue and marks it Stopped (job
// control: SIGSTOP/SIGTSTP).
func (s *Scheduler) SetStopped(t *Task) {
	s.mu.Lock()
	s.removeRunnableLocked(t)
	s.mu.Unlock()
	t.mu.Lock()
	t.State = Stopped
	t.mu.Unlock()
}
