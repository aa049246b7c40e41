// Package tty implements the terminal line discipline of spec §4.8: per-TTY
// raw/cooked/write rings, the do_cook input pipeline, canonical and
// non-canonical read semantics, the output filter, and PTY pairs.
package tty

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/signal"
)

// WinSize mirrors struct winsize (TIOCGWINSZ/TIOCSWINSZ).
type WinSize struct {
	Rows, Cols, XPixel, YPixel uint16
}

// PgrpSignaler delivers sig to every task in a process group. Bound at
// kernel-wiring time to the process manager, the same way fs/procfs.Source
// keeps that package decoupled from package process — tty never imports
// process (process.Task.Tty already holds the reverse edge as an opaque
// handle, so an import the other way would cycle).
type PgrpSignaler interface {
	SignalForegroundGroup(pgrp int, sig signal.Signal)
}

// TTY is one terminal: three 4-KiB rings, termios-controlled line
// discipline, and the job-control state (foreground pgrp, session) the
// line discipline's signal generation step needs (spec §4.8).
type TTY struct {
	mu sync.Mutex

	Name string

	sched       *sched.Scheduler
	readWaiters *sched.WaitQueue

	raw    ring
	cooked ring
	write  ring

	termios Termios
	winsize WinSize

	lines int // completed canonical lines sitting in cooked, not yet read

	fgPgrp  int
	session int

	signaler PgrpSignaler
	// drive pushes bytes out to the physical device (serial UART, VGA
	// console, or the pty peer); nil drops the output on the floor.
	drive func([]byte)

	link     *TTY // pty peer; nil for a directly-driven tty
	isMaster bool
}

// New creates a TTY in default cooked mode, not yet attached to any
// session.
func New(s *sched.Scheduler, name string, signaler PgrpSignaler) *TTY {
	return &TTY{
		Name:        name,
		sched:       s,
		readWaiters: sched.NewWaitQueue(),
		termios:     DefaultTermios(),
		signaler:    signaler,
	}
}

// SetDrive installs the function that receives output-filtered bytes on
// their way to the physical device.
func (t *TTY) SetDrive(fn func([]byte)) {
	t.mu.Lock()
	t.drive = fn
	t.mu.Unlock()
}

// Termios returns a copy of the current mode.
func (t *TTY) Termios() Termios {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.termios
}

// SetTermios installs a new mode (TCSETS*).
func (t *TTY) SetTermios(tm Termios) {
	t.mu.Lock()
	t.termios = tm
	t.mu.Unlock()
}

// WinSize returns the current window size (TIOCGWINSZ).
func (t *TTY) WinSize() WinSize {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.winsize
}

// SetWinSize installs a new window size (TIOCSWINSZ).
func (t *TTY) SetWinSize(ws WinSize) {
	t.mu.Lock()
	t.winsize = ws
	t.mu.Unlock()
}

// ForegroundGroup returns the current foreground process group (TIOCGPGRP).
func (t *TTY) ForegroundGroup() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fgPgrp
}

// SetForegroundGroup sets the foreground process group (TIOCSPGRP).
func (t *TTY) SetForegroundGroup(pgrp int) {
	t.mu.Lock()
	t.fgPgrp = pgrp
	t.mu.Unlock()
}

// SetSession records the controlling session (TIOCSCTTY).
func (t *TTY) SetSession(sid int) {
	t.mu.Lock()
	t.session = sid
	t.mu.Unlock()
}

// PushInput is the IRQ bottom half: the driver hands it whatever bytes the
// hardware produced, they land in the raw ring, and do_cook runs
// immediately (spec §4.8 describes cooking as happening "under the
// IRQ-bottom-half", i.e. synchronously with the push rather than on a
// separate schedule).
func (t *TTY) PushInput(p []byte) int {
	n := t.raw.push(p)
	t.cook()
	return n
}

// cook drains the raw ring into the cooked ring, applying the pipeline in
// the order spec §4.8 lists: strip-high-bit, iuclc-upcase, CR/NL
// translation, signal generation, echo, enqueue.
func (t *TTY) cook() {
	t.mu.Lock()
	tm := t.termios
	t.mu.Unlock()

	var echoBuf []byte

	for {
		b := t.raw.popUpTo(1)
		if len(b) == 0 {
			break
		}
		c := b[0]

		// Strip high bit unless the driver runs 8-bit clean (this line
		// discipline always strips; spec names it unconditionally).
		c &= 0x7f

		if tm.Iflag&IUCLC != 0 && c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}

		switch c {
		case '\r':
			if tm.Iflag&IGNCR != 0 {
				continue
			}
			if tm.Iflag&ICRNL != 0 {
				c = '\n'
			}
		case '\n':
			if tm.Iflag&INLCR != 0 {
				c = '\r'
			}
		}

		if tm.Lflag&ISIG != 0 {
			if sig, matched := t.signalForChar(c, tm); matched {
				t.mu.Lock()
				pgrp := t.fgPgrp
				t.mu.Unlock()
				if t.signaler != nil && pgrp != 0 {
					t.signaler.SignalForegroundGroup(pgrp, sig)
				}
				continue
			}
		}

		if tm.Lflag&ECHO != 0 {
			for _, eb := range echoBytes(c, tm) {
				echoBuf = append(echoBuf, filterOutput(eb, tm)...)
			}
		}

		t.cooked.pushByte(c)
		if c == '\n' {
			t.mu.Lock()
			t.lines++
			t.mu.Unlock()
		}
	}

	if len(echoBuf) > 0 {
		t.writeOut(echoBuf)
	}

	t.sched.WakeUp(t.readWaiters)
}

func (t *TTY) signalForChar(c byte, tm Termios) (signal.Signal, bool) {
	switch c {
	case tm.Cc[VINTR]:
		return signal.SIGINT, true
	case tm.Cc[VQUIT]:
		return signal.SIGQUIT, true
	case tm.Cc[VSUSP]:
		return signal.SIGSTOP, true
	}
	return 0, false
}

// echoBytes renders c the way ECHO/ECHOCTL displays it: control
// characters (other than \n) as "^X" when ECHOCTL is set, everything else
// literally.
func echoBytes(c byte, tm Termios) []byte {
	if c < 0x20 && c != '\n' && c != '\t' && tm.Lflag&ECHOCTL != 0 {
		return []byte{'^', c + '@'}
	}
	return []byte{c}
}

// ReadWaiters exposes the wait queue a blocked reader parks on, the same
// way process.Task.WaitChildExit exposes waitpid's queue: Read itself
// never suspends the calling goroutine (this package has no notion of
// "the current task"), it only reports errWouldBlock; the syscall layer
// sleeps the task here and calls Read again once woken.
func (t *TTY) ReadWaiters() *sched.WaitQueue { return t.readWaiters }

// Read implements the read(2) path (spec §4.8): canonical mode requires a
// full line to be available and returns at most one line; non-canonical
// mode returns whatever is available. When nothing is ready it returns
// errWouldBlock without parking anything, per ReadWaiters' contract
// above.
func (t *TTY) Read(buf []byte) (int, error) {
	t.mu.Lock()
	canon := t.termios.Lflag&ICANON != 0
	ready := (!canon && t.cooked.size() > 0) || (canon && t.lines > 0)
	t.mu.Unlock()
	if !ready {
		return 0, errdefs.Unavailable(errWouldBlock)
	}

	if t.termios.Lflag&ICANON == 0 {
		n := copy(buf, t.cooked.popUpTo(len(buf)))
		return n, nil
	}

	// Canonical: pop exactly one line (through and including the \n, or
	// the whole ring if no \n fits within len(buf)).
	lineLen := 0
	for {
		c, ok := t.cooked.peek(lineLen)
		if !ok {
			break
		}
		lineLen++
		if c == '\n' {
			break
		}
	}
	if lineLen > len(buf) {
		lineLen = len(buf)
	}
	out := t.cooked.popUpTo(lineLen)
	n := copy(buf, out)
	if len(out) > 0 && out[len(out)-1] == '\n' {
		t.mu.Lock()
		t.lines--
		t.mu.Unlock()
	}
	return n, nil
}

// Write implements the write(2) path (spec §4.8): output filter, then the
// write ring, then the driver. On a pty master this instead injects
// straight into the slave's cooked ring, bypassing the slave's line
// discipline entirely, per spec §4.8's PTY description.
func (t *TTY) Write(buf []byte) (int, error) {
	if t.isMaster && t.link != nil {
		return t.link.enqueueCooked(buf), nil
	}

	t.mu.Lock()
	tm := t.termios
	t.mu.Unlock()

	out := make([]byte, 0, len(buf))
	for _, c := range buf {
		out = append(out, filterOutput(c, tm)...)
	}
	t.writeOut(out)
	return len(buf), nil
}

func filterOutput(c byte, tm Termios) []byte {
	if tm.Oflag&OPOST == 0 {
		return []byte{c}
	}
	if c == '\n' && tm.Oflag&ONLCR != 0 {
		return []byte{'\r', '\n'}
	}
	if c == '\r' {
		if tm.Oflag&OCRNL != 0 {
			return []byte{'\n'}
		}
		if tm.Oflag&ONOCR != 0 {
			return nil
		}
	}
	if tm.Oflag&OLCUC != 0 && c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return []byte{c}
}

// enqueueCooked pushes p directly into the cooked ring and wakes any
// blocked reader, without running it through the input line discipline —
// the PTY cross-reference delivery path (spec §4.8).
func (t *TTY) enqueueCooked(p []byte) int {
	n := t.cooked.push(p)
	for _, b := range p[:n] {
		if b == '\n' {
			t.mu.Lock()
			t.lines++
			t.mu.Unlock()
		}
	}
	t.sched.WakeUp(t.readWaiters)
	return n
}

func (t *TTY) writeOut(p []byte) {
	for len(p) > 0 {
		n := t.write.push(p)
		if n == 0 {
			break // write ring full; drop rather than block inside cook
		}
		p = p[n:]
	}
	flushed := t.write.popUpTo(ringSize)
	if len(flushed) == 0 {
		return
	}
	t.mu.Lock()
	drive := t.drive
	t.mu.Unlock()
	if drive != nil {
		drive(flushed)
	}
}
