package kernel

import (
	"github.com/eric29200/nulix/fs/procfs"
	"github.com/eric29200/nulix/mm/phys"
	"github.com/eric29200/nulix/process"
)

// procfsSource returns the fs/procfs.Source implementation bound to this
// Kernel's process table and physical allocator, kept as its own type
// (rather than Kernel implementing Source directly) so fs/procfs's
// interface stays decoupled from package kernel the same way it already
// stays decoupled from package process.
func (k *Kernel) procfsSource() procfs.Source {
	return kernelProcSource{k}
}

type kernelProcSource struct{ k *Kernel }

func (s kernelProcSource) Processes() []procfs.ProcessInfo {
	tasks := s.k.Processes.All()
	out := make([]procfs.ProcessInfo, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskInfo(t))
	}
	return out
}

func (s kernelProcSource) Process(pid int) (procfs.ProcessInfo, bool) {
	t, err := s.k.Processes.Lookup(pid)
	if err != nil {
		return procfs.ProcessInfo{}, false
	}
	return taskInfo(t), true
}

func taskInfo(t *process.Task) procfs.ProcessInfo {
	ppid := 0
	if t.Parent != nil {
		ppid = t.Parent.Pid
	}
	var vsize, rss uint64
	if t.Mm != nil {
		rss = uint64(t.Mm.ResidentPages()) * phys.PageSize
		for _, vma := range t.Mm.VMAs() {
			vsize += uint64(vma.End - vma.Start)
		}
	}
	return procfs.ProcessInfo{
		Pid:        t.Pid,
		Ppid:       ppid,
		Comm:       t.Comm,
		State:      t.GetState().String(),
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

func (s kernelProcSource) MemInfo() procfs.MemInfo {
	free := s.k.Phys.FreeFrames(phys.ZoneNormal) + s.k.Phys.FreeFrames(phys.ZoneHigh)
	total := s.k.Phys.TotalFrames(phys.ZoneNormal) + s.k.Phys.TotalFrames(phys.ZoneHigh)
	return procfs.MemInfo{
		TotalPages: uint64(total),
		FreePages:  uint64(free),
		PageSize:   phys.PageSize,
	}
}

func (s kernelProcSource) CPUInfo() procfs.CPUInfo {
	return procfs.CPUInfo{
		Vendor:    "GenuineIntel",
		ModelName: "nulix virtual CPU",
		MHz:       1000,
	}
}
