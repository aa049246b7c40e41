package kernel

import (
	"context"
	"testing"

	"github.com/eric29200/nulix/signal"
	"gotest.tools/v3/assert"
)

func bootTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k := New(DefaultConfig())
	assert.NilError(t, k.Boot(context.Background()))
	return k
}

func TestBootWiresEverySubsystem(t *testing.T) {
	k := bootTestKernel(t)

	assert.Assert(t, k.Phys != nil)
	assert.Assert(t, k.PageCache != nil)
	assert.Assert(t, k.Sched != nil)
	assert.Assert(t, k.Processes != nil)
	assert.Assert(t, k.Processes.Init != nil)
	assert.Equal(t, k.Processes.Init.Pid, 1)
	assert.Assert(t, k.Root != nil && k.Root.Root != nil)
	assert.Assert(t, k.IP != nil)
	assert.Assert(t, k.TTYs != nil)
	assert.Assert(t, k.Console != nil)
	assert.Assert(t, k.IPC != nil)
	assert.Assert(t, k.Events != nil)
}

func TestBootMountsDevAndProc(t *testing.T) {
	k := bootTestKernel(t)

	if _, err := k.Root.Namei(k.Root.Root, "/dev"); err != nil {
		t.Fatalf("Namei /dev: %v", err)
	}
	if _, err := k.Root.Namei(k.Root.Root, "/proc"); err != nil {
		t.Fatalf("Namei /proc: %v", err)
	}
}

func TestProcfsSourceSeesInitTask(t *testing.T) {
	k := bootTestKernel(t)

	info, ok := k.procfsSource().Process(k.Processes.Init.Pid)
	if !ok {
		t.Fatalf("Process(1) not found")
	}
	assert.Equal(t, info.Comm, "init")

	all := k.procfsSource().Processes()
	assert.Equal(t, len(all), 1)

	mem := k.procfsSource().MemInfo()
	assert.Assert(t, mem.TotalPages > 0)
}

func TestSignalForegroundGroupDeliversToMatchingPgrp(t *testing.T) {
	k := bootTestKernel(t)
	init := k.Processes.Init

	k.SignalForegroundGroup(init.Pgrp, signal.SIGUSR1)

	info, ok := init.Pending.Take(signal.SIGUSR1)
	if !ok {
		t.Fatalf("init task did not receive SIGUSR1")
	}
	assert.Equal(t, info.Sig, signal.SIGUSR1)
}

func TestBindSocketInodeCreatesAndRemovesNode(t *testing.T) {
	k := bootTestKernel(t)

	if err := k.BindSocketInode("/tmp.sock"); err != nil {
		t.Fatalf("BindSocketInode: %v", err)
	}
	d, err := k.Root.Namei(k.Root.Root, "/tmp.sock")
	if err != nil {
		t.Fatalf("Namei after bind: %v", err)
	}
	if !d.Inode.Attr().Mode.IsSocket() {
		t.Fatalf("bound inode is not socket-typed")
	}

	if err := k.UnbindSocketInode("/tmp.sock"); err != nil {
		t.Fatalf("UnbindSocketInode: %v", err)
	}
	if _, err := k.Root.Namei(k.Root.Root, "/tmp.sock"); err == nil {
		t.Fatalf("Namei after unbind: expected error, got none")
	}
}

func TestUnameAndSysinfo(t *testing.T) {
	k := bootTestKernel(t)

	u := k.Uname()
	assert.Equal(t, u.Sysname, "nulix")

	si := k.Sysinfo()
	assert.Assert(t, si.TotalRAM > 0)
	assert.Equal(t, si.Procs, uint16(1))
}

func TestRebootSetsShutdownRequested(t *testing.T) {
	k := bootTestKernel(t)

	if err := k.Reboot(RebootRestart); err != nil {
		t.Fatalf("Reboot: %v", err)
	}
	cmd, down := k.ShutdownRequested()
	assert.Assert(t, down)
	assert.Equal(t, cmd, RebootRestart)
}
