package tty

import (
	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

// NewPty allocates a PTY pair: two TTYs with their link fields
// cross-referenced (spec §4.8). The master's Write bypasses the slave's
// line discipline entirely (see TTY.Write); the slave's output is driven
// straight into the master's cooked ring via the same enqueueCooked path,
// so the master's Read sees whatever the slave-side program wrote after
// its own output filter ran.
func NewPty(s *sched.Scheduler, name string, signaler PgrpSignaler) (master, slave *TTY) {
	master = New(s, name+"-ptmx", signaler)
	slave = New(s, name, signaler)

	master.link = slave
	master.isMaster = true
	slave.link = master

	slave.SetDrive(func(p []byte) { master.enqueueCooked(p) })

	return master, slave
}

// Slave returns t's pty slave, if t is a pty master (e.g. the /dev/ptmx
// end devfs hands back on open).
func (t *TTY) Slave() (*TTY, error) {
	if !t.isMaster || t.link == nil {
		return nil, errdefs.InvalidParameter(errNotAPty)
	}
	return t.link, nil
}
