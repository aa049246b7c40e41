package tty

import "golang.org/x/sys/unix"

// Termios mirrors struct termios: the line-discipline mode bits and
// control-character table (spec §4.8). Flag values are reused directly
// from golang.org/x/sys/unix rather than redeclared, so a Termios built
// here means exactly what the same bit means to any real terminal.
type Termios struct {
	Iflag uint32
	Oflag uint32
	Cflag uint32
	Lflag uint32
	Cc    [NCC]byte
}

// NCC is the number of control characters this line discipline reads out
// of Cc, matching the subset spec §4.8 actually interprets. Indices below
// are this package's own compact layout, not struct termios's VINTR..
// VEOL2 offsets — nothing here ever receives a raw c_cc array over the
// wire, so there is no reason to reserve slots for control characters
// (VLNEXT, VREPRINT, ...) this line discipline doesn't act on.
const NCC = 8

const (
	VINTR = iota
	VQUIT
	VERASE
	VKILL
	VEOF
	VEOL
	VSUSP
	VSTART
)

// Input flags (c_iflag).
const (
	IGNCR  = unix.IGNCR
	INLCR  = unix.INLCR
	ICRNL  = unix.ICRNL
	ISTRIP = unix.ISTRIP
	IUCLC  = unix.IUCLC
)

// Output flags (c_oflag).
const (
	OPOST = unix.OPOST
	ONLCR = unix.ONLCR
	OCRNL = unix.OCRNL
	ONOCR = unix.ONOCR
	OLCUC = unix.OLCUC
)

// Local flags (c_lflag).
const (
	ISIG    = unix.ISIG
	ICANON  = unix.ICANON
	ECHO    = unix.ECHO
	ECHOCTL = unix.ECHOCTL
)

// DefaultTermios is the mode a newly allocated TTY starts in: canonical,
// echoing, ICRNL on input, ONLCR on output, signals enabled — the usual
// "cooked" shell-facing defaults.
func DefaultTermios() Termios {
	t := Termios{
		Iflag: ICRNL,
		Oflag: OPOST | ONLCR,
		Lflag: ISIG | ICANON | ECHO | ECHOCTL,
	}
	t.Cc[VINTR] = 3   // ^C
	t.Cc[VQUIT] = 28  // ^\
	t.Cc[VERASE] = 127
	t.Cc[VKILL] = 21  // ^U
	t.Cc[VEOF] = 4    // ^D
	t.Cc[VSUSP] = 26  // ^Z
	return t
}
