package process

import (
	"encoding/binary"
	"testing"

	"github.com/eric29200/nulix/fs/vfs"
	"github.com/eric29200/nulix/mm/phys"
	"github.com/eric29200/nulix/sched"
	"github.com/eric29200/nulix/signal"
	"gotest.tools/v3/assert"
)

const (
	elfEntry = 0x08048080
	elfVaddr = 0x08048000
)

// buildELF32 hand-assembles a minimal, valid static ELF32/EM_386
// executable: one PT_LOAD segment covering the whole file, no section
// headers, entry point inside the segment. debug/elf only needs the
// header and program header table to be well-formed.
func buildELF32(size int) []byte {
	buf := make([]byte, size)

	copy(buf[0:4], "\x7fELF")
	buf[4] = 1 // ELFCLASS32
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT

	le := binary.LittleEndian
	le.PutUint16(buf[16:18], 2)           // e_type = ET_EXEC
	le.PutUint16(buf[18:20], 3)           // e_machine = EM_386
	le.PutUint32(buf[20:24], 1)           // e_version
	le.PutUint32(buf[24:28], elfEntry)    // e_entry
	le.PutUint32(buf[28:32], 52)          // e_phoff
	le.PutUint32(buf[32:36], 0)           // e_shoff
	le.PutUint32(buf[36:40], 0)           // e_flags
	le.PutUint16(buf[40:42], 52)          // e_ehsize
	le.PutUint16(buf[42:44], 32)          // e_phentsize
	le.PutUint16(buf[44:46], 1)           // e_phnum
	le.PutUint16(buf[46:48], 0)           // e_shentsize
	le.PutUint16(buf[48:50], 0)           // e_shnum
	le.PutUint16(buf[50:52], 0)           // e_shstrndx

	ph := buf[52:84]
	le.PutUint32(ph[0:4], 1)           // p_type = PT_LOAD
	le.PutUint32(ph[4:8], 0)           // p_offset
	le.PutUint32(ph[8:12], elfVaddr)   // p_vaddr
	le.PutUint32(ph[12:16], elfVaddr)  // p_paddr
	le.PutUint32(ph[16:20], uint32(size)) // p_filesz
	le.PutUint32(ph[20:24], uint32(size)) // p_memsz
	le.PutUint32(ph[24:28], 5)          // p_flags = PF_X|PF_R
	le.PutUint32(ph[28:32], 0x1000)     // p_align

	return buf
}

func newExecTask(t *testing.T) (*Task, *phys.Allocator) {
	root := vfs.NewDentry("/", &vfs.Inode{Ino: 1}, nil)
	m := NewManager(sched.New())
	m.NewInitTask(root, 64)
	return m.Init, phys.New(256, 0)
}

func TestExecveLoadsELFAndSetsEntry(t *testing.T) {
	task, alloc := newExecTask(t)
	bin := buildELF32(4096)
	opener := func(path string) ([]byte, error) { return bin, nil }

	_, err := Execve(task, alloc, "/bin/hello", []string{"/bin/hello"}, nil, opener)
	assert.NilError(t, err)
	assert.Equal(t, task.Regs.EIP, uint32(elfEntry))
	assert.Equal(t, task.Comm, "hello")

	vmas := task.Mm.VMAs()
	assert.Assert(t, len(vmas) >= 2) // text segment + stack (+ heap)
}

func TestExecveRejectsDynamicallyLinked(t *testing.T) {
	task, alloc := newExecTask(t)
	bin := buildELF32(4096)
	// Append a PT_INTERP segment by rewriting e_phnum to 2 and adding a
	// second program header right after the first.
	binary.LittleEndian.PutUint16(bin[44:46], 2)
	ph2 := bin[84:116]
	le := binary.LittleEndian
	le.PutUint32(ph2[0:4], 3) // p_type = PT_INTERP
	opener := func(path string) ([]byte, error) { return bin, nil }

	_, err := Execve(task, alloc, "/bin/dyn", []string{"/bin/dyn"}, nil, opener)
	assert.ErrorContains(t, err, "dynamically linked")
}

func TestExecveResolvesShebangOneLevel(t *testing.T) {
	task, alloc := newExecTask(t)
	bin := buildELF32(4096)
	script := []byte("#!/bin/sh -e\necho hi\n")

	opener := func(path string) ([]byte, error) {
		if path == "/usr/bin/runme" {
			return script, nil
		}
		return bin, nil
	}

	_, err := Execve(task, alloc, "/usr/bin/runme", []string{"/usr/bin/runme"}, nil, opener)
	assert.NilError(t, err)
	assert.Equal(t, task.Comm, "sh")
	assert.Equal(t, task.Cmdline[0], "/bin/sh")
	assert.Equal(t, task.Cmdline[len(task.Cmdline)-1], "/usr/bin/runme")
}

func TestExecveResetsSignalHandlersButKeepsIgnore(t *testing.T) {
	task, alloc := newExecTask(t)
	bin := buildELF32(4096)
	opener := func(path string) ([]byte, error) { return bin, nil }

	assert.NilError(t, task.Sig.Table.SetAction(signal.SIGUSR1, signal.Sigaction{Handler: signal.Disposition(0x1000)}))
	assert.NilError(t, task.Sig.Table.SetAction(signal.SIGUSR2, signal.Sigaction{Handler: signal.SigIgn}))

	_, err := Execve(task, alloc, "/bin/hello", []string{"/bin/hello"}, nil, opener)
	assert.NilError(t, err)

	assert.Equal(t, task.Sig.Table.Action(signal.SIGUSR1).Handler, signal.SigDfl)
	assert.Equal(t, task.Sig.Table.Action(signal.SIGUSR2).Handler, signal.SigIgn)
}
