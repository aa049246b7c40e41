package process

import "github.com/eric29200/nulix/errdefs"

// Resource indexes the per-task resource-limit table (spec §6's
// prlimit64/getrusage surface).
type Resource int

const (
	RlimitCPU Resource = iota
	RlimitFsize
	RlimitData
	RlimitStack
	RlimitCore
	RlimitNofile
	RlimitAs
	RlimitNproc
	numRlimits
)

// Rlimit is one soft/hard limit pair (RLIM_INFINITY is represented as
// ^uint64(0), matching getrlimit(2)).
type Rlimit struct {
	Cur uint64
	Max uint64
}

const Infinity uint64 = ^uint64(0)

func defaultRlimits() [numRlimits]Rlimit {
	var r [numRlimits]Rlimit
	for i := range r {
		r[i] = Rlimit{Cur: Infinity, Max: Infinity}
	}
	r[RlimitNofile] = Rlimit{Cur: 1024, Max: 4096}
	r[RlimitNproc] = Rlimit{Cur: 256, Max: 256}
	r[RlimitStack] = Rlimit{Cur: 8 << 20, Max: Infinity}
	return r
}

// Rlimit returns the current limit for resource r.
func (t *Task) Rlimit(r Resource) (Rlimit, error) {
	if r < 0 || r >= numRlimits {
		return Rlimit{}, errdefs.InvalidParameter(errBadRlimit)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rlimits[r], nil
}

// SetRlimit installs a new limit for resource r. The soft limit may never
// exceed the hard limit (enforced by the caller's privilege check at the
// syscall boundary, not here).
func (t *Task) SetRlimit(r Resource, lim Rlimit) error {
	if r < 0 || r >= numRlimits {
		return errdefs.InvalidParameter(errBadRlimit)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rlimits[r] = lim
	return nil
}
