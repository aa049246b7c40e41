package tty

import (
	"testing"

	"github.com/eric29200/nulix/sched"
	"gotest.tools/v3/assert"
)

func TestPtyMasterWriteBypassesSlaveLineDiscipline(t *testing.T) {
	master, slave := NewPty(sched.New(), "pts0", nil)

	// Lowercase 'A' would normally be left alone anyway; use a control
	// char that ISIG would otherwise intercept on a direct PushInput to
	// prove the slave's line discipline never runs for master writes.
	tm := slave.Termios()
	tm.Lflag |= ISIG
	slave.SetTermios(tm)

	n, err := master.Write([]byte{3, 'o', 'k', '\n'}) // 3 = ^C = VINTR
	assert.NilError(t, err)
	assert.Equal(t, n, 4)

	buf := make([]byte, 16)
	rn, err := slave.Read(buf)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:rn]), "\x03ok\n")
}

func TestPtySlaveOutputReachesMaster(t *testing.T) {
	master, slave := NewPty(sched.New(), "pts0", nil)

	_, err := slave.Write([]byte("hello\n"))
	assert.NilError(t, err)

	tm := master.Termios()
	tm.Lflag &^= ICANON
	master.SetTermios(tm)

	buf := make([]byte, 16)
	n, err := master.Read(buf)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "hello\r\n")
}

func TestSlaveIsNotAMaster(t *testing.T) {
	_, slave := NewPty(sched.New(), "pts0", nil)
	_, err := slave.Slave()
	assert.ErrorContains(t, err, "not a pty master")
}
