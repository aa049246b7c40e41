package process

import (
	"errors"
	"testing"

	"github.com/eric29200/nulix/fs/vfs"
	"github.com/eric29200/nulix/mm/phys"
	"github.com/eric29200/nulix/mm/paging"
	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/signal"
	"gotest.tools/v3/assert"
)

func newTestManager(t *testing.T) (*Manager, *vfs.Dentry) {
	root := vfs.NewDentry("/", &vfs.Inode{Ino: 1}, nil)
	m := NewManager(sched.New())
	m.NewInitTask(root, 64)
	return m, root
}

func TestNewInitTaskHasNoParent(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, m.Init.Pid, 1)
	assert.Assert(t, m.Init.Parent == nil)
}

func TestForkAssignsNewPidAndParent(t *testing.T) {
	m, _ := newTestManager(t)
	child, err := m.Fork(m.Init, CloneFiles|CloneFs|CloneSighand)
	assert.NilError(t, err)
	assert.Assert(t, child.Pid != m.Init.Pid)
	assert.Equal(t, child.Parent, m.Init)
	assert.Equal(t, len(m.Init.Children()), 1)
}

func TestForkWithoutCloneFilesPrivatizesFdTable(t *testing.T) {
	m, _ := newTestManager(t)
	child, err := m.Fork(m.Init, 0)
	assert.NilError(t, err)
	assert.Assert(t, child.Files != m.Init.Files)
	assert.Assert(t, child.Fs != m.Init.Fs)
	assert.Assert(t, child.Sig != m.Init.Sig)
}

func TestForkClonesMmEagerly(t *testing.T) {
	alloc := phys.New(64, 0)
	m, _ := newTestManager(t)
	m.Init.Mm = paging.New(alloc)
	assert.NilError(t, m.Init.Mm.AddVMA(&paging.VMA{Start: 0x1000, End: 0x2000, Prot: paging.ProtRead | paging.ProtWrite, Flags: paging.FlagPrivate}))
	_, err := m.Init.Mm.HandleFault(0x1000, false)
	assert.NilError(t, err)

	child, err := m.Fork(m.Init, 0)
	assert.NilError(t, err)
	assert.Assert(t, child.Mm != m.Init.Mm)
	assert.Equal(t, child.Mm.ResidentPages(), m.Init.Mm.ResidentPages())
}

func TestExitReparentsChildrenToInit(t *testing.T) {
	m, _ := newTestManager(t)
	parent, err := m.Fork(m.Init, CloneFiles|CloneFs|CloneSighand)
	assert.NilError(t, err)
	grandchild, err := m.Fork(parent, CloneFiles|CloneFs|CloneSighand)
	assert.NilError(t, err)

	m.Exit(parent, 0)
	assert.Equal(t, grandchild.Parent, m.Init)
	// the exited parent stays init's (zombie) child until reaped, plus the grandchild
	assert.Equal(t, len(m.Init.Children()), 2)
}

func TestExitQueuesSIGCHLDAndWakesParent(t *testing.T) {
	m, _ := newTestManager(t)
	child, err := m.Fork(m.Init, CloneFiles|CloneFs|CloneSighand)
	assert.NilError(t, err)

	m.Exit(child, 7)
	assert.Assert(t, m.Init.Pending.Set().Has(signal.SIGCHLD))
}

func TestWaitReapsZombieChild(t *testing.T) {
	m, _ := newTestManager(t)
	child, err := m.Fork(m.Init, CloneFiles|CloneFs|CloneSighand)
	assert.NilError(t, err)
	m.Exit(child, 42)

	reaped, err := m.Wait(m.Init, WaitOpts{})
	assert.NilError(t, err)
	assert.Equal(t, reaped.Pid, child.Pid)
	assert.Equal(t, reaped.ExitStatus, 42)
	assert.Equal(t, len(m.Init.Children()), 0)

	_, err = m.Lookup(child.Pid)
	assert.Assert(t, err != nil)
}

func TestWaitNoHangReturnsWouldBlock(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Fork(m.Init, CloneFiles|CloneFs|CloneSighand)
	assert.NilError(t, err)

	_, err = m.Wait(m.Init, WaitOpts{NoHang: true})
	assert.ErrorContains(t, err, "would block")
}

func TestWaitWithoutNoHangSignalsSleepDistinctFromNoHang(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Fork(m.Init, CloneFiles|CloneFs|CloneSighand)
	assert.NilError(t, err)

	_, err = m.Wait(m.Init, WaitOpts{})
	assert.ErrorContains(t, err, "sleep on WaitChildExit")
	if errors.Is(err, errWouldBlock) {
		t.Fatalf("non-NoHang Wait returned the NoHang sentinel error")
	}
}

func TestWaitNoChildrenIsAnError(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Wait(m.Init, WaitOpts{})
	assert.ErrorContains(t, err, "no child")
}

func TestRlimitDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	lim, err := m.Init.Rlimit(RlimitNofile)
	assert.NilError(t, err)
	assert.Equal(t, lim.Cur, uint64(1024))

	assert.NilError(t, m.Init.SetRlimit(RlimitNofile, Rlimit{Cur: 10, Max: 10}))
	lim, _ = m.Init.Rlimit(RlimitNofile)
	assert.Equal(t, lim.Cur, uint64(10))
}
