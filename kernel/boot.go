package kernel

import (
	"context"
	"time"

	"github.com/eric29200/nulix/events"
	"github.com/eric29200/nulix/fs/blockdev"
	"github.com/eric29200/nulix/fs/buffercache"
	"github.com/eric29200/nulix/fs/chrdev"
	"github.com/eric29200/nulix/fs/pagecache"
	"github.com/eric29200/nulix/fs/vfs"
	"github.com/eric29200/nulix/ipc"
	"github.com/eric29200/nulix/mm/phys"
	"github.com/eric29200/nulix/net/devtbl"
	"github.com/eric29200/nulix/net/socket"
	"github.com/eric29200/nulix/process"
	"github.com/eric29200/nulix/sched"
	"golang.org/x/sync/errgroup"
)

// Boot brings up every subsystem in the dependency order each one
// requires: memory before anything that allocates, the VFS before any
// filesystem mounts onto it, the scheduler before anything enqueues a
// task, device drivers before the network/console layers that sit on
// them, the root filesystem once devfs/procfs can be mounted under it,
// and the init task last so every resource it's handed already exists.
// Phases are strictly sequential; only the drivers phase runs its
// console/tty and network bring-ups concurrently via errgroup.
func (k *Kernel) Boot(ctx context.Context) error {
	k.bootTime = time.Now()
	k.log.Info("boot: starting")

	if err := k.bootMem(ctx); err != nil {
		return err
	}
	if err := k.bootVFS(ctx); err != nil {
		return err
	}
	k.bootScheduler()
	if err := k.bootDrivers(ctx); err != nil {
		return err
	}
	if err := k.mountRoot(); err != nil {
		return err
	}
	k.bootInit()

	k.Events.Log("boot", "kernel", "boot")
	k.log.Info("boot: complete")
	return nil
}

// bootMem sizes and constructs the physical frame allocator from
// k.Config.Mem.
func (k *Kernel) bootMem(ctx context.Context) error {
	normal, err := k.Config.Mem.normalFrames()
	if err != nil {
		return err
	}
	high, err := k.Config.Mem.highFrames()
	if err != nil {
		return err
	}
	if normal == 0 {
		normal = 8192 // 32 MiB of 4 KiB frames, DefaultConfig's floor
	}
	k.Phys = phys.New(normal, high)
	return nil
}

// bootVFS constructs the inode cache, block/char device tables, the
// buffer cache reading through the block device table, and the page
// cache — everything a concrete filesystem's Mount needs, independently
// of one another. The page cache is registered as k.Phys's reclaimer so
// an exhausted zone trims clean cached pages before Alloc reports
// out-of-memory.
func (k *Kernel) bootVFS(ctx context.Context) error {
	k.Inodes = vfs.NewInodeTable()
	k.BlockDevs = blockdev.NewTable()
	k.CharDevs = chrdev.NewTable()
	k.Cache = buffercache.New(k.BlockDevs)
	k.PageCache = pagecache.New(k.Phys)
	k.Phys.SetReclaimer(k.PageCache)
	return nil
}

// bootScheduler constructs the scheduler and the process table bound to
// it, plus the kernel-wide IPC namespace that shares the scheduler's
// wait-queue wakeups.
func (k *Kernel) bootScheduler() {
	k.Sched = sched.New()
	k.Processes = process.NewManager(k.Sched)
	k.IPC = ipc.NewNamespace(k.Sched)
	k.Events = events.New()
}

// bootDrivers brings up the console/tty layer and the network stack —
// the two subsystems that sit directly on the scheduler but not on the
// VFS — concurrently, since neither depends on the other.
func (k *Kernel) bootDrivers(ctx context.Context) error {
	k.Devices = devtbl.New()
	k.Routes = devtbl.NewRouteTable()
	k.ARP = devtbl.NewARPCache()

	g, _ := errgroup.WithContext(ctx)
	g.Go(k.wireConsole)
	g.Go(k.wireNetwork)
	if err := g.Wait(); err != nil {
		return err
	}

	k.Inet = socket.InetContext{
		Sched:    k.Sched,
		Stack:    k.IP,
		UDPDemux: k.UDP,
		TCPDemux: k.TCP,
		LocalIP:  k.LocalIP,
	}
	return nil
}

// bootInit constructs pid 1, rooted at the just-mounted filesystem, with
// the configured per-task fd limit, and registers it on the scheduler —
// the last boot phase, since every resource it holds must already exist.
func (k *Kernel) bootInit() {
	fdLimit := k.Config.Procs.FDLimit
	if fdLimit == 0 {
		fdLimit = 256
	}
	k.Processes.NewInitTask(k.Root.Root, fdLimit)
}
