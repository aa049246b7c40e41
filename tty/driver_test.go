package tty

import (
	"testing"

	"github.com/eric29200/nulix/sched"
	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
)

func TestDriverOpenReadWrite(t *testing.T) {
	d := NewDriver(sched.New())
	term := New(sched.New(), "tty0", nil)
	d.Register(0, term)

	h, err := d.Open(0)
	assert.NilError(t, err)

	n, err := d.Write(0, h, []byte("hi\n"))
	assert.NilError(t, err)
	assert.Equal(t, n, 3)

	_, err = d.Read(0, h, make([]byte, 16))
	assert.ErrorContains(t, err, "would block")

	term.PushInput([]byte("x\n"))
	buf := make([]byte, 16)
	rn, err := d.Read(0, h, buf)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:rn]), "x\n")
}

func TestDriverIoctlForegroundGroup(t *testing.T) {
	d := NewDriver(sched.New())
	term := New(sched.New(), "tty0", nil)
	d.Register(0, term)
	h, _ := d.Open(0)

	_, err := d.Ioctl(0, h, unix.TIOCSPGRP, 7)
	assert.NilError(t, err)

	pgrp, err := d.Ioctl(0, h, unix.TIOCGPGRP, 0)
	assert.NilError(t, err)
	assert.Equal(t, pgrp, uintptr(7))
}

func TestDriverAllocMinor(t *testing.T) {
	d := NewDriver(sched.New())
	d.Register(0, New(sched.New(), "tty0", nil))

	m, err := d.AllocMinor(New(sched.New(), "pts1", nil))
	assert.NilError(t, err)
	assert.Equal(t, m, uint16(1))
}

func TestDriverUnknownMinor(t *testing.T) {
	d := NewDriver(sched.New())
	_, err := d.Open(9)
	assert.ErrorContains(t, err, "no such tty")
}
