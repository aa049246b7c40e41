package tty

import (
	"testing"

	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/signal"
	"gotest.tools/v3/assert"
)

type recordingSignaler struct {
	pgrp int
	sig  signal.Signal
}

func (r *recordingSignaler) SignalForegroundGroup(pgrp int, sig signal.Signal) {
	r.pgrp = pgrp
	r.sig = sig
}

func TestCanonicalReadBlocksUntilNewline(t *testing.T) {
	tty := New(sched.New(), "tty0", nil)
	tty.PushInput([]byte("hi"))

	_, err := tty.Read(make([]byte, 16))
	assert.ErrorContains(t, err, "would block")

	tty.PushInput([]byte("\n"))
	buf := make([]byte, 16)
	n, err := tty.Read(buf)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "hi\n")
}

func TestNonCanonicalReadReturnsAvailable(t *testing.T) {
	tty := New(sched.New(), "tty0", nil)
	tm := tty.Termios()
	tm.Lflag &^= ICANON
	tty.SetTermios(tm)

	tty.PushInput([]byte("ab"))
	buf := make([]byte, 16)
	n, err := tty.Read(buf)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "ab")
}

func TestICRNLTranslatesCRToNL(t *testing.T) {
	tty := New(sched.New(), "tty0", nil)
	tty.PushInput([]byte("line\r"))
	buf := make([]byte, 16)
	n, err := tty.Read(buf)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "line\n")
}

func TestISIGSendsSIGINTAndDropsChar(t *testing.T) {
	sig := &recordingSignaler{}
	tty := New(sched.New(), "tty0", sig)
	tty.SetForegroundGroup(42)

	tty.PushInput([]byte{3}) // ^C = VINTR
	tty.PushInput([]byte("ok\n"))

	assert.Equal(t, sig.pgrp, 42)
	assert.Equal(t, sig.sig, signal.SIGINT)

	buf := make([]byte, 16)
	n, err := tty.Read(buf)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "ok\n")
}

func TestEchoWritesThroughDrive(t *testing.T) {
	tty := New(sched.New(), "tty0", nil)
	var out []byte
	tty.SetDrive(func(p []byte) { out = append(out, p...) })

	tty.PushInput([]byte("a\n"))
	assert.Equal(t, string(out), "a\r\n")
}

func TestOutputFilterONLCR(t *testing.T) {
	tty := New(sched.New(), "tty0", nil)
	var out []byte
	tty.SetDrive(func(p []byte) { out = append(out, p...) })

	_, err := tty.Write([]byte("hi\n"))
	assert.NilError(t, err)
	assert.Equal(t, string(out), "hi\r\n")
}

func TestNonCanonicalReadWithoutDataWouldBlock(t *testing.T) {
	tty := New(sched.New(), "tty0", nil)
	tm := tty.Termios()
	tm.Lflag &^= ICANON
	tty.SetTermios(tm)

	_, err := tty.Read(make([]byte, 4))
	assert.ErrorContains(t, err, "would block")
}
