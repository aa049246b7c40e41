package kernel

import (
	"github.com/eric29200/nulix/signal"
)

// SignalForegroundGroup implements tty.PgrpSignaler: every live task whose
// Pgrp matches pgrp gets sig queued, the same fan-out
// process.Manager.Exit already does for SIGCHLD to a single parent
// (process/manager.go), generalized here to a whole process group.
func (k *Kernel) SignalForegroundGroup(pgrp int, sig signal.Signal) {
	for _, t := range k.Processes.All() {
		if t.Pgrp != pgrp {
			continue
		}
		_ = t.Pending.Queue(signal.Info{Sig: sig, Pid: pgrp})
	}
}
