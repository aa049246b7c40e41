package kernel

import "time"

// Utsname mirrors struct utsname, the payload uname() returns. uname,
// sysinfo and reboot land on kernel.Kernel itself rather than any one
// subsystem, since none of sched/process/fs owns system identity.
type Utsname struct {
	Sysname, Nodename, Release, Version, Machine string
}

// Uname implements uname(2).
func (k *Kernel) Uname() Utsname {
	return Utsname{
		Sysname:  "nulix",
		Nodename: "nulix",
		Release:  "0.1.0",
		Version:  "#1",
		Machine:  "i686",
	}
}

// Sysinfo mirrors struct sysinfo, the payload sysinfo(2) returns.
type Sysinfo struct {
	Uptime   time.Duration
	TotalRAM uint64
	FreeRAM  uint64
	Procs    uint16
}

// Sysinfo implements sysinfo(2).
func (k *Kernel) Sysinfo() Sysinfo {
	mem := k.procfsSource().MemInfo()
	return Sysinfo{
		Uptime:   time.Since(k.bootTime),
		TotalRAM: mem.TotalPages * mem.PageSize,
		FreeRAM:  mem.FreePages * mem.PageSize,
		Procs:    uint16(len(k.Processes.All())),
	}
}

// RebootCmd selects reboot(2)'s action.
type RebootCmd int

const (
	RebootHalt RebootCmd = iota
	RebootPowerOff
	RebootRestart
)

// Reboot implements reboot(2): this runtime has no real hardware to
// power-cycle, so every command just records intent for cmd/kmain's main
// loop to act on (stop scheduling and exit the process).
func (k *Kernel) Reboot(cmd RebootCmd) error {
	k.log.WithField("cmd", cmd).Info("reboot requested")
	k.shutdownRequested = cmd
	k.shutdown = true
	return nil
}
