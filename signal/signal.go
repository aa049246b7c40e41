// Package signal implements per-task pending/blocked signal sets, the
// sigaction table, and the delivery-order computation described in spec
// §4.7: compute `pending & ~blocked`, pick the lowest-numbered bit, apply
// that signal's disposition (ignore, default action, or a user handler
// with mask augmentation), honoring SIGKILL/SIGSTOP as always-deliverable
// and never catchable/blockable/ignorable.
package signal

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"golang.org/x/sys/unix"
)

// Signal is a 1-based signal number (spec §4.7: 64-bit pending/blocked
// sets, so signals 1..64 are representable).
type Signal int

const MaxSignal = 64

// RTMin is the first realtime signal number (spec §4.7: "RT signals
// (≥32)"); this package uses the spec's own simplified numbering rather
// than the host libc's SIGRTMIN, which reserves the first two.
const RTMin Signal = 32

// Standard signal numbers, taken from the Linux/x86 ABI the syscall
// surface (spec §6) targets.
const (
	SIGHUP    = Signal(unix.SIGHUP)
	SIGINT    = Signal(unix.SIGINT)
	SIGQUIT   = Signal(unix.SIGQUIT)
	SIGILL    = Signal(unix.SIGILL)
	SIGTRAP   = Signal(unix.SIGTRAP)
	SIGABRT   = Signal(unix.SIGABRT)
	SIGBUS    = Signal(unix.SIGBUS)
	SIGFPE    = Signal(unix.SIGFPE)
	SIGKILL   = Signal(unix.SIGKILL)
	SIGUSR1   = Signal(unix.SIGUSR1)
	SIGSEGV   = Signal(unix.SIGSEGV)
	SIGUSR2   = Signal(unix.SIGUSR2)
	SIGPIPE   = Signal(unix.SIGPIPE)
	SIGALRM   = Signal(unix.SIGALRM)
	SIGTERM   = Signal(unix.SIGTERM)
	SIGCHLD   = Signal(unix.SIGCHLD)
	SIGCONT   = Signal(unix.SIGCONT)
	SIGSTOP   = Signal(unix.SIGSTOP)
	SIGTSTP   = Signal(unix.SIGTSTP)
	SIGTTIN   = Signal(unix.SIGTTIN)
	SIGTTOU   = Signal(unix.SIGTTOU)
	SIGURG    = Signal(unix.SIGURG)
	SIGXCPU   = Signal(unix.SIGXCPU)
	SIGXFSZ   = Signal(unix.SIGXFSZ)
	SIGVTALRM = Signal(unix.SIGVTALRM)
	SIGPROF   = Signal(unix.SIGPROF)
	SIGWINCH  = Signal(unix.SIGWINCH)
	SIGIO     = Signal(unix.SIGIO)
	SIGSYS    = Signal(unix.SIGSYS)
)

// Set is a 64-bit signal mask, bit (n-1) standing for signal n.
type Set uint64

func bit(sig Signal) uint64 { return 1 << uint(sig-1) }

// Has reports whether sig is a member of the set.
func (s Set) Has(sig Signal) bool { return sig >= 1 && sig <= MaxSignal && s&Set(bit(sig)) != 0 }

// With returns s with sig added.
func (s Set) With(sig Signal) Set { return s | Set(bit(sig)) }

// Without returns s with sig removed.
func (s Set) Without(sig Signal) Set { return s &^ Set(bit(sig)) }

// Union returns s | other.
func (s Set) Union(other Set) Set { return s | other }

// AndNot returns every bit of s not present in other (s &^ other).
func (s Set) AndNot(other Set) Set { return s &^ other }

// Lowest returns the lowest-numbered signal set in s, or 0 if s is empty.
func (s Set) Lowest() Signal {
	if s == 0 {
		return 0
	}
	for sig := Signal(1); sig <= MaxSignal; sig++ {
		if s.Has(sig) {
			return sig
		}
	}
	return 0
}

// Uncatchable reports whether sig can never be caught, blocked, or
// ignored (SIGKILL, SIGSTOP — spec §4.7).
func Uncatchable(sig Signal) bool { return sig == SIGKILL || sig == SIGSTOP }

// Action is a signal's default disposition.
type Action int

const (
	ActTerm Action = iota
	ActCore
	ActIgnore
	ActStop
	ActCont
)

// DefaultAction returns the default action the kernel takes for sig when
// no handler is installed, per the standard POSIX disposition table.
func DefaultAction(sig Signal) Action {
	switch sig {
	case SIGCHLD, SIGURG, SIGWINCH, SIGIO:
		return ActIgnore
	case SIGCONT:
		return ActCont
	case SIGSTOP, SIGTSTP, SIGTTIN, SIGTTOU:
		return ActStop
	case SIGQUIT, SIGILL, SIGABRT, SIGFPE, SIGSEGV, SIGBUS, SIGSYS, SIGTRAP, SIGXCPU, SIGXFSZ:
		return ActCore
	default:
		return ActTerm
	}
}

// Disposition is the handler slot an entry of the sigaction table holds.
// SigDfl/SigIgn distinguish "run the default action" from "drop it" the
// way a real sigaction_t's sa_handler field does with special values.
type Disposition uintptr

const (
	SigDfl Disposition = 0
	SigIgn Disposition = 1
)

// Flags mirrors the sigaction(2) sa_flags bits this kernel honors.
type Flags uint32

const (
	SANoDefer   Flags = 1 << iota // don't add sig itself to the blocked mask while the handler runs
	SAResetHand                   // reset to SigDfl before invoking the handler
	SARestart                     // restart the interrupted syscall instead of returning EINTR
	SASiginfo                     // handler takes (int, *siginfo, *ucontext) instead of (int)
)

// Sigaction is one entry of the per-task 64-entry sigaction table (spec
// §4.7).
type Sigaction struct {
	Handler Disposition
	Mask    Set // additional signals blocked while the handler runs
	Flags   Flags
}

// Table is the 64-entry sigaction table (spec §4.7).
type Table struct {
	mu      sync.Mutex
	actions [MaxSignal + 1]Sigaction
}

// NewTable creates a table with every signal at SigDfl.
func NewTable() *Table { return &Table{} }

// Action returns sig's current disposition.
func (t *Table) Action(sig Signal) Sigaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actions[sig]
}

// SetAction installs act for sig. SIGKILL/SIGSTOP reject any change.
func (t *Table) SetAction(sig Signal, act Sigaction) error {
	if sig < 1 || sig > MaxSignal {
		return errdefs.InvalidParameter(errBadSignal)
	}
	if Uncatchable(sig) {
		return errdefs.InvalidParameter(errCannotCatch)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actions[sig] = act
	return nil
}

// ResetForExec zeroes every non-SIG_IGN handler, the way execve must
// (spec §4.6 step 2): SIG_IGN dispositions survive exec, installed
// handlers do not (the new image has no code for them to point at).
func (t *Table) ResetForExec() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.actions {
		if t.actions[i].Handler != SigIgn {
			t.actions[i] = Sigaction{}
		}
	}
}

// Info is one queued occurrence of a signal (spec §4.7's siginfo queue).
type Info struct {
	Sig  Signal
	Code int32
	Pid  uint32
	Uid  uint32
	Data int64 // e.g. exit status for SIGCHLD, faulting address for SIGSEGV
}

// RTQueueMax bounds the total number of realtime siginfos queued across
// all RT signal numbers at once (spec §4.7: "RT signals... queue up to a
// global max").
const RTQueueMax = 32

// Pending holds a task's pending-signal bitmask plus the siginfo queue
// backing it: non-RT signals coalesce to at most one queued instance,
// RT signals queue (FIFO, per-signal) up to the shared RTQueueMax.
type Pending struct {
	mu      sync.Mutex
	set     Set
	queued  map[Signal][]Info
	rtTotal int
}

// NewPending creates an empty pending set.
func NewPending() *Pending {
	return &Pending{queued: make(map[Signal][]Info)}
}

// Set returns the current pending bitmask.
func (p *Pending) Set() Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.set
}

// Queue enqueues one occurrence of info.Sig. A non-RT signal already
// pending is a no-op (it coalesces); an RT signal queues a fresh
// occurrence unless RTQueueMax has been reached.
func (p *Pending) Queue(info Info) error {
	if info.Sig < 1 || info.Sig > MaxSignal {
		return errdefs.InvalidParameter(errBadSignal)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if info.Sig < RTMin {
		if p.set.Has(info.Sig) {
			return nil
		}
		p.queued[info.Sig] = []Info{info}
		p.set = p.set.With(info.Sig)
		return nil
	}

	if p.rtTotal >= RTQueueMax {
		return errdefs.ResourceExhausted(errQueueFull)
	}
	p.queued[info.Sig] = append(p.queued[info.Sig], info)
	p.rtTotal++
	p.set = p.set.With(info.Sig)
	return nil
}

// Take pops the next queued occurrence of sig, clearing its pending bit
// once the queue for that signal is empty.
func (p *Pending) Take(sig Signal) (Info, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queued[sig]
	if len(q) == 0 {
		return Info{}, false
	}
	info := q[0]
	q = q[1:]
	if sig >= RTMin {
		p.rtTotal--
	}
	if len(q) == 0 {
		delete(p.queued, sig)
		p.set = p.set.Without(sig)
	} else {
		p.queued[sig] = q
	}
	return info, true
}

// Delivery is one signal ready to be acted on: either a default action
// or a rewritten user-handler frame.
type Delivery struct {
	Info       Info
	Action     Action   // valid when Handler == SigDfl
	Handler    Disposition
	HandlerSet Set // act.Mask, unioned with sig itself unless SANoDefer
	Flags      Flags
}

// Next computes the next signal delivery per spec §4.7's rule: pending &
// ~blocked, lowest-numbered bit wins. Signals whose disposition is
// SIG_IGN (explicit, or default-ignore with no handler installed) are
// consumed and skipped rather than delivered, so the loop may consume
// several queued signals before returning one that actually acts.
// Returns false once no deliverable signal remains.
func Next(pending *Pending, blocked Set, table *Table) (Delivery, bool) {
	// SIGKILL/SIGSTOP are never blocked, so strip them out of the blocked
	// mask before computing what's deliverable.
	effectiveBlocked := blocked.Without(SIGKILL).Without(SIGSTOP)
	for {
		deliverable := pending.Set().AndNot(effectiveBlocked)
		sig := deliverable.Lowest()
		if sig == 0 {
			return Delivery{}, false
		}
		info, ok := pending.Take(sig)
		if !ok {
			continue
		}

		act := table.Action(sig)
		if sig != SIGKILL && sig != SIGSTOP {
			if act.Handler == SigIgn {
				continue
			}
			if act.Handler == SigDfl && DefaultAction(sig) == ActIgnore {
				continue
			}
		}

		d := Delivery{Info: info, Handler: act.Handler, Flags: act.Flags}
		if act.Handler == SigDfl || Uncatchable(sig) {
			d.Action = DefaultAction(sig)
			return d, true
		}

		// User handler: the signals blocked while it runs are the
		// handler's own mask plus, unless SA_NODEFER, sig itself.
		d.HandlerSet = act.Mask
		if act.Flags&SANoDefer == 0 {
			d.HandlerSet = d.HandlerSet.With(sig)
		}
		return d, true
	}
}
