package process

import (
	"time"

	"github.com/eric29200/nulix/fs/procfs"
	"github.com/eric29200/nulix/mm/paging"
)

// ProcSource adapts a Manager to procfs.Source, the seam that lets
// /proc/<pid> render live task state without procfs importing process
// directly (procfs.Source is defined in terms of procfs.ProcessInfo, not
// *process.Task, to keep that dependency one-way).
type ProcSource struct {
	Manager *Manager
	BootAt  time.Time
	NowFn   func() time.Time
}

func (s *ProcSource) now() time.Time {
	if s.NowFn != nil {
		return s.NowFn()
	}
	return time.Now()
}

func toInfo(t *Task) procfs.ProcessInfo {
	ppid := 0
	if t.Parent != nil {
		ppid = t.Parent.Pid
	}
	var vsize uint64
	var rss uint64
	if t.Mm != nil {
		for _, v := range t.Mm.VMAs() {
			vsize += uint64(v.End - v.Start)
		}
		rss = uint64(t.Mm.ResidentPages()) * paging.PageSize
	}
	return procfs.ProcessInfo{
		Pid:        t.Pid,
		Ppid:       ppid,
		Comm:       t.Comm,
		State:      t.State.String(),
		Cmdline:    t.Cmdline,
		Environ:    t.Environ,
		Utime:      t.Utime,
		Stime:      t.Stime,
		VSize:      vsize,
		RSS:        rss,
		ReadOps:    t.ReadOps,
		WriteOps:   t.WriteOps,
		ReadBytes:  t.ReadBytes,
		WriteBytes: t.WriteBytes,
	}
}

// Processes implements procfs.Source.
func (s *ProcSource) Processes() []procfs.ProcessInfo {
	tasks := s.Manager.All()
	out := make([]procfs.ProcessInfo, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toInfo(t))
	}
	return out
}

// Process implements procfs.Source.
func (s *ProcSource) Process(pid int) (procfs.ProcessInfo, bool) {
	t, err := s.Manager.Lookup(pid)
	if err != nil {
		return procfs.ProcessInfo{}, false
	}
	return toInfo(t), true
}

// MemInfo implements procfs.Source using whatever allocator backs pid 1's
// mm, if any is attached; kernel threads with no mm report zeroes.
func (s *ProcSource) MemInfo() procfs.MemInfo {
	return procfs.MemInfo{PageSize: paging.PageSize}
}

// CPUInfo implements procfs.Source with a fixed, simulated single-CPU
// identity (spec §5's "parallel hardware contexts are out of scope").
func (s *ProcSource) CPUInfo() procfs.CPUInfo {
	return procfs.CPUInfo{Vendor: "GenuineIntel", ModelName: "nulix simulated x86", MHz: 1000}
}

// Uptime implements procfs.Source.
func (s *ProcSource) Uptime() time.Duration {
	return s.now().Sub(s.BootAt)
}
