package tty

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
	"golang.org/x/sys/unix"
)

// Driver implements fs/chrdev.Driver over a minor-number -> *TTY table, so
// a TTY is reachable the same way any other character device is: through
// devfs's major:minor node.
type Driver struct {
	mu    sync.Mutex
	sched *sched.Scheduler
	ttys  map[uint16]*TTY
}

// NewDriver creates an empty tty character-driver table.
func NewDriver(s *sched.Scheduler) *Driver {
	return &Driver{sched: s, ttys: make(map[uint16]*TTY)}
}

// Register binds minor to an already-constructed TTY (console, serial
// line, or one half of a pty pair).
func (d *Driver) Register(minor uint16, t *TTY) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ttys[minor] = t
}

// AllocMinor picks the lowest unused minor number and registers t under
// it, the way opening /dev/ptmx hands back the next free pty index.
func (d *Driver) AllocMinor(t *TTY) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for m := uint16(0); m < 4096; m++ {
		if _, ok := d.ttys[m]; !ok {
			d.ttys[m] = t
			return m, nil
		}
	}
	return 0, errdefs.ResourceExhausted(errTableFull)
}

func (d *Driver) lookup(minor uint16) (*TTY, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.ttys[minor]
	if !ok {
		return nil, errdefs.NotFound(errNoSuchTty)
	}
	return t, nil
}

// Open returns the TTY itself as the chrdev handle; there is no
// per-open-file state beyond the shared TTY.
func (d *Driver) Open(minor uint16) (any, error) { return d.lookup(minor) }

// Release is a no-op: the TTY outlives any one file description.
func (d *Driver) Release(minor uint16, handle any) error { return nil }

func (d *Driver) Read(minor uint16, handle any, buf []byte) (int, error) {
	t, ok := handle.(*TTY)
	if !ok {
		return 0, errdefs.InvalidParameter(errNoSuchTty)
	}
	return t.Read(buf)
}

func (d *Driver) Write(minor uint16, handle any, buf []byte) (int, error) {
	t, ok := handle.(*TTY)
	if !ok {
		return 0, errdefs.InvalidParameter(errNoSuchTty)
	}
	return t.Write(buf)
}

// Poll reports readability (a line or, in raw mode, any byte available)
// and writability (the write ring has room).
func (d *Driver) Poll(minor uint16, handle any) (readable, writable bool) {
	t, ok := handle.(*TTY)
	if !ok {
		return false, false
	}
	t.mu.Lock()
	canon := t.termios.Lflag&ICANON != 0
	readable = (!canon && t.cooked.size() > 0) || (canon && t.lines > 0)
	t.mu.Unlock()
	return readable, t.write.free() > 0
}

// Ioctl handles the termios/winsize/job-control commands spec §4.8 names.
// TCGETS/TCSETS and TIOCG/SWINSZ carry a whole struct, which this tree has
// no copy_to_user/copy_from_user layer to marshal through a bare uintptr
// arg (no package here models user-memory access at all yet) — those stay
// available as the typed Termios/SetTermios/WinSize/SetWinSize methods for
// the eventual syscall-dispatch layer to call directly once it owns that
// marshaling. Only the commands whose argument IS a plain integer are
// handled here.
func (d *Driver) Ioctl(minor uint16, handle any, cmd, arg uintptr) (uintptr, error) {
	t, ok := handle.(*TTY)
	if !ok {
		return 0, errdefs.InvalidParameter(errNoSuchTty)
	}
	switch cmd {
	case unix.TIOCGPGRP:
		return uintptr(t.ForegroundGroup()), nil
	case unix.TIOCSPGRP:
		t.SetForegroundGroup(int(arg))
		return 0, nil
	case unix.TIOCSCTTY:
		t.SetSession(int(arg))
		return 0, nil
	default:
		return 0, errdefs.NotImplemented(errBadIoctl)
	}
}
