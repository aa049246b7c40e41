package kernel

import (
	"github.com/eric29200/nulix/console"
	"github.com/eric29200/nulix/tty"
)

const (
	consoleCols = 80
	consoleRows = 25
	numVTs      = 6
)

// wireConsole brings up the virtual-terminal switcher and the tty layer
// on top of it: one *tty.TTY per virtual terminal, registered on the tty
// character-driver table at its vt index (so /dev/tty0.. resolve through
// devfs to the right TTY), with k itself as the PgrpSignaler since
// SignalForegroundGroup only needs the process table k already owns.
func (k *Kernel) wireConsole() error {
	backend := console.NewEGABackend(consoleCols, consoleRows)
	k.Console = console.NewSwitcher(backend, numVTs, consoleCols, consoleRows)
	k.TTYs = tty.NewDriver(k.Sched)

	for minor := uint16(0); minor < numVTs; minor++ {
		t := tty.New(k.Sched, "tty", k)
		k.TTYs.Register(minor, t)
	}
	return nil
}
