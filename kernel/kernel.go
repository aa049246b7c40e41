package kernel

import (
	"net"
	"time"

	"github.com/eric29200/nulix/console"
	"github.com/eric29200/nulix/events"
	"github.com/eric29200/nulix/fs/blockdev"
	"github.com/eric29200/nulix/fs/buffercache"
	"github.com/eric29200/nulix/fs/chrdev"
	"github.com/eric29200/nulix/fs/pagecache"
	"github.com/eric29200/nulix/fs/vfs"
	"github.com/eric29200/nulix/ipc"
	"github.com/eric29200/nulix/mm/phys"
	"github.com/eric29200/nulix/net/devtbl"
	"github.com/eric29200/nulix/net/icmp"
	"github.com/eric29200/nulix/net/ip"
	"github.com/eric29200/nulix/net/socket"
	"github.com/eric29200/nulix/net/tcp"
	"github.com/eric29200/nulix/net/udp"
	"github.com/eric29200/nulix/process"
	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/tty"
	"github.com/sirupsen/logrus"
)

// Kernel bundles one instance of every subsystem this runtime wires
// together: a single struct holding a handle to each, so nothing outside
// this package reaches into a subsystem directly during boot — everything
// goes through Kernel, keeping the wiring order in one place (boot.go).
type Kernel struct {
	Config BootConfig

	Phys      *phys.Allocator
	Cache     *buffercache.Cache
	PageCache *pagecache.Cache
	Inodes    *vfs.InodeTable
	Root      *vfs.FS

	BlockDevs *blockdev.Table
	CharDevs  *chrdev.Table

	Sched     *sched.Scheduler
	Processes *process.Manager

	Devices *devtbl.Table
	Routes  *devtbl.RouteTable
	ARP     *devtbl.ARPCache
	IP      *ip.Stack
	ICMP    *icmp.Responder
	UDP     *udp.Demuxer
	TCP     *tcp.Demuxer
	LocalIP net.IP
	Inet    socket.InetContext

	TTYs    *tty.Driver
	Console *console.Switcher

	IPC    *ipc.Namespace
	Events *events.Bus

	bootTime          time.Time
	shutdownRequested RebootCmd
	shutdown          bool

	log *logrus.Entry
}

// ShutdownRequested reports whether Reboot has been called and, if so,
// which action was requested.
func (k *Kernel) ShutdownRequested() (RebootCmd, bool) {
	return k.shutdownRequested, k.shutdown
}

// New allocates an unwired Kernel for the given configuration. Boot does
// the actual subsystem construction and cross-wiring; New exists
// separately so cmd/kmain can hold a Kernel value before Boot succeeds
// (e.g. to report a config error against a known instance).
func New(cfg BootConfig) *Kernel {
	return &Kernel{
		Config: cfg,
		log:    logrus.WithField("subsys", "kernel"),
	}
}
