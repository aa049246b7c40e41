package process

import (
	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/pagecache"
	"github.com/eric29200/nulix/fs/vfs"
	"github.com/eric29200/nulix/mm/paging"
	"github.com/eric29200/nulix/mm/phys"
	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/signal"
)

// Tracer holds the ptrace relationship a tracee carries while stopped:
// who attached, and whether the stop is the tracer's doing (as opposed to
// an ordinary job-control SIGSTOP) so Cont knows whether to resume it.
type Tracer struct {
	Pid     int  // tracer's pid
	Traced  bool // true once PTRACE_ATTACH has completed
	stopped bool
}

// Attach implements PTRACE_ATTACH: tracer must not be tracing an already-
// traced task, and a task cannot trace itself. The tracee is stopped and
// handed SIGSTOP so its next schedule point parks it, the same transition
// job-control SIGSTOP already drives (sched.SetStopped).
func Attach(s *sched.Scheduler, tracer, tracee *Task) error {
	if tracer == tracee {
		return errdefs.InvalidParameter(errSelfTrace)
	}
	tracee.mu.Lock()
	if tracee.tracer != nil {
		tracee.mu.Unlock()
		return errdefs.Forbidden(errAlreadyTraced)
	}
	tracee.tracer = &Tracer{Pid: tracer.Pid, Traced: true}
	tracee.mu.Unlock()

	_ = tracee.Pending.Queue(signal.Info{Sig: signal.SIGSTOP, Pid: uint32(tracer.Pid)})
	s.SetStopped(&tracee.Task)
	tracee.mu.Lock()
	tracee.tracer.stopped = true
	tracee.mu.Unlock()
	return nil
}

// Detach implements PTRACE_DETACH: clears the ptrace relationship and
// resumes the tracee if it was stopped on the tracer's account.
func Detach(s *sched.Scheduler, tracer, tracee *Task) error {
	tracee.mu.Lock()
	if tracee.tracer == nil || tracee.tracer.Pid != tracer.Pid {
		tracee.mu.Unlock()
		return errdefs.Forbidden(errNotTracer)
	}
	wasStopped := tracee.tracer.stopped
	tracee.tracer = nil
	tracee.mu.Unlock()

	if wasStopped {
		s.Enqueue(&tracee.Task)
	}
	return nil
}

// Cont implements PTRACE_CONT: resumes a tracee previously stopped for
// this tracer, optionally delivering sig on the way back to user mode
// instead of whatever signal caused the stop.
func Cont(s *sched.Scheduler, tracer, tracee *Task, sig signal.Signal) error {
	tracee.mu.Lock()
	if tracee.tracer == nil || tracee.tracer.Pid != tracer.Pid {
		tracee.mu.Unlock()
		return errdefs.Forbidden(errNotTracer)
	}
	if tracee.GetState() != sched.Stopped {
		tracee.mu.Unlock()
		return errdefs.InvalidParameter(errNotStopped)
	}
	tracee.tracer.stopped = false
	tracee.mu.Unlock()

	if sig != 0 {
		_ = tracee.Pending.Queue(signal.Info{Sig: sig, Pid: uint32(tracer.Pid)})
	}
	s.Enqueue(&tracee.Task)
	return nil
}

// PeekData implements PTRACE_PEEKDATA: reads len(buf) bytes from tracee's
// address space at addr. Only pages backed by a cache-resident file (the
// tracee's text/data segments, and any regular-file mmap) are reachable
// this way — anonymous pages carry no byte-addressable store outside the
// page they're mapped into, which this runtime does not expose by physical
// address, so a read landing entirely in an anonymous VMA reports
// errdefs.NotImplemented rather than silently returning zeroes.
func PeekData(cache *pagecache.Cache, tracee *Task, addr uintptr, buf []byte) (int, error) {
	if tracee.Mm == nil {
		return 0, errdefs.InvalidParameter(errNoMm)
	}
	vma := tracee.Mm.FindVMA(addr)
	if vma == nil {
		return 0, errdefs.InvalidParameter(errBadAddr)
	}
	if vma.File == nil {
		return 0, errdefs.NotImplemented(errAnonPeek)
	}
	inode, ok := vma.File.(*vfs.Inode)
	if !ok {
		return 0, errdefs.NotImplemented(errAnonPeek)
	}
	owner := inode.Ino

	n := 0
	for n < len(buf) {
		pageAddr := (addr + uintptr(n)) &^ (phys.PageSize - 1)
		off := int(addr+uintptr(n)) - int(pageAddr)
		pageOffset := vma.FileOffset + int64(pageAddr-vma.Start)

		page, err := cache.GetPage(owner, pageOffset, nil)
		if err != nil {
			return n, err
		}
		copied := copy(buf[n:], page.Data[off:])
		cache.Put(page)
		if copied == 0 {
			break
		}
		n += copied
	}
	return n, nil
}

// PokeData implements PTRACE_POKEDATA: writes data into tracee's address
// space at addr, subject to the same file-backed-only limitation as
// PeekData, and marks every touched page dirty for write-back.
func PokeData(cache *pagecache.Cache, tracee *Task, addr uintptr, data []byte) (int, error) {
	if tracee.Mm == nil {
		return 0, errdefs.InvalidParameter(errNoMm)
	}
	vma := tracee.Mm.FindVMA(addr)
	if vma == nil {
		return 0, errdefs.InvalidParameter(errBadAddr)
	}
	if vma.Prot&paging.ProtWrite == 0 {
		return 0, errdefs.Forbidden(errReadOnly)
	}
	if vma.File == nil {
		return 0, errdefs.NotImplemented(errAnonPeek)
	}
	inode, ok := vma.File.(*vfs.Inode)
	if !ok {
		return 0, errdefs.NotImplemented(errAnonPeek)
	}
	owner := inode.Ino

	n := 0
	for n < len(data) {
		pageAddr := (addr + uintptr(n)) &^ (phys.PageSize - 1)
		off := int(addr+uintptr(n)) - int(pageAddr)
		pageOffset := vma.FileOffset + int64(pageAddr-vma.Start)

		page, err := cache.GetPage(owner, pageOffset, nil)
		if err != nil {
			return n, err
		}
		copied := copy(page.Data[off:], data[n:])
		page.MarkDirty()
		cache.Put(page)
		if copied == 0 {
			break
		}
		n += copied
	}
	return n, nil
}
