package socket

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

// unixListener is a bound, listening SOCK_STREAM AF_UNIX endpoint: an
// accept backlog of already-connected child endpoints, the other half of
// each pair having already been handed back to the connecting caller.
type unixListener struct {
	mu             sync.Mutex
	name           string
	backlog        []*unixSocket
	backlogMax     int
	backlogWaiters *sched.WaitQueue
	sched          *sched.Scheduler
}

func (l *unixListener) enqueue(child *unixSocket) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.backlog) >= l.backlogMax {
		return errdefs.ResourceExhausted(errBacklogFull)
	}
	l.backlog = append(l.backlog, child)
	if l.sched != nil {
		l.sched.WakeUp(l.backlogWaiters)
	}
	return nil
}

func (l *unixListener) accept() (*unixSocket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.backlog) == 0 {
		return nil, errdefs.Unavailable(errWouldBlock)
	}
	child := l.backlog[0]
	l.backlog = l.backlog[1:]
	return child, nil
}

// unixRegistry is the kernel-wide AF_UNIX namespace: path- and abstract-
// named SOCK_STREAM listeners, plus bound SOCK_DGRAM endpoints, each
// keyed by the same name string a path or an anonymousName() produces.
type unixRegistry struct {
	mu        sync.Mutex
	listeners map[string]*unixListener
	dgrams    map[string]*unixSocket
}

func newUnixRegistry() *unixRegistry {
	return &unixRegistry{
		listeners: make(map[string]*unixListener),
		dgrams:    make(map[string]*unixSocket),
	}
}

var registry = newUnixRegistry()

func (r *unixRegistry) bindListener(name string, backlog int, scheduler *sched.Scheduler) (*unixListener, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.listeners[name]; taken {
		return nil, errdefs.Conflict(errPathInUse)
	}
	l := &unixListener{name: name, backlogMax: backlog, backlogWaiters: sched.NewWaitQueue(), sched: scheduler}
	r.listeners[name] = l
	return l, nil
}

func (r *unixRegistry) lookupListener(name string) (*unixListener, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listeners[name]
	return l, ok
}

func (r *unixRegistry) unbindListener(name string) {
	r.mu.Lock()
	delete(r.listeners, name)
	r.mu.Unlock()
}

func (r *unixRegistry) bindDgram(name string, s *unixSocket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.dgrams[name]; taken {
		return errdefs.Conflict(errPathInUse)
	}
	r.dgrams[name] = s
	return nil
}

func (r *unixRegistry) lookupDgram(name string) (*unixSocket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.dgrams[name]
	return s, ok
}

func (r *unixRegistry) unbindDgram(name string) {
	r.mu.Lock()
	delete(r.dgrams, name)
	r.mu.Unlock()
}
