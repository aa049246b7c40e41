package process

import (
	"bytes"
	"debug/elf"
	"strings"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/mm/paging"
	"github.com/eric29200/nulix/mm/phys"
)

// Opener resolves a path to its full file contents, the seam execve uses
// instead of depending on the VFS package directly (avoids a process ->
// fs import cycle; the syscall layer supplies the real implementation
// backed by vfs.Inode.ReadAt).
type Opener func(path string) ([]byte, error)

// Auxv entry types (spec §4.6's required set). Execve populates
// AT_PAGESZ, AT_PHNUM, AT_ENTRY, AT_BASE and AT_FLAGS; AT_PHDR, AT_PHENT,
// AT_UID, AT_EUID, AT_GID and AT_EGID are defined but not populated.
const (
	AtNull  = 0
	AtPhdr  = 3
	AtPhent = 4
	AtPhnum = 5
	AtPagesz = 6
	AtBase  = 7
	AtFlags = 8
	AtEntry = 9
	AtUid   = 11
	AtEuid  = 12
	AtGid   = 13
	AtEgid  = 14
)

// InitStack is the structural record of what execve's final user-stack
// construction step produces (spec §4.6): argc/argv/envp plus the auxv
// table. This package does not model byte-addressable frame content (see
// mm/phys), so the actual stack bytes are the syscall layer's concern;
// this is the metadata that layer needs to write them.
type InitStack struct {
	Argv []string
	Envp []string
	Auxv map[int]uint32
}

const userStackTop uintptr = 0xBFFFF000
const userStackSize uintptr = 8 << 20 // 8 MiB, matching RlimitStack's default

// Execve replaces t's mm with a freshly built one per the loaded binary,
// following the "build new, swap, release old" rule (spec §5): on any
// failure t is left exactly as it was. `#!` scripts are resolved one
// level deep before falling through to the ELF loader (spec §4.6). alloc
// is the physical-frame allocator the new address space demand-faults
// pages from.
func Execve(t *Task, alloc *phys.Allocator, path string, argv, envp []string, open Opener) (InitStack, error) {
	data, err := open(path)
	if err != nil {
		return InitStack{}, err
	}

	if len(data) >= 2 && data[0] == '#' && data[1] == '!' {
		interp, interpArg, err := parseShebang(data)
		if err != nil {
			return InitStack{}, err
		}
		newArgv := []string{interp}
		if interpArg != "" {
			newArgv = append(newArgv, interpArg)
		}
		newArgv = append(newArgv, path)
		if len(argv) > 1 {
			newArgv = append(newArgv, argv[1:]...)
		}
		// One level only: an interpreter that is itself a script is rejected.
		binOnly := func(p string) ([]byte, error) {
			d, err := open(p)
			if err == nil && len(d) >= 2 && d[0] == '#' && d[1] == '!' {
				return nil, errdefs.InvalidParameter(errBadShebang)
			}
			return d, err
		}
		return Execve(t, alloc, interp, newArgv, envp, binOnly)
	}

	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return InitStack{}, errdefs.InvalidParameter(errBadELF)
	}
	if f.Class != elf.ELFCLASS32 {
		return InitStack{}, errdefs.NotImplemented(err64BitELF)
	}
	for _, p := range f.Progs {
		if p.Type == elf.PT_INTERP {
			return InitStack{}, errdefs.NotImplemented(errDynamicLinking)
		}
	}

	mm := paging.New(alloc)
	var highest uintptr
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		start := pageFloor(uintptr(p.Vaddr))
		end := pageCeil(uintptr(p.Vaddr) + uintptr(p.Memsz))
		if end > highest {
			highest = end
		}
		prot := paging.ProtRead
		if p.Flags&elf.PF_W != 0 {
			prot |= paging.ProtWrite
		}
		if p.Flags&elf.PF_X != 0 {
			prot |= paging.ProtExec
		}
		vma := &paging.VMA{
			Start: start, End: end, Prot: prot,
			Flags: paging.FlagPrivate,
		}
		if err := mm.AddVMA(vma); err != nil {
			return InitStack{}, err
		}
	}

	stack := &paging.VMA{
		Start:  userStackTop - userStackSize,
		End:    userStackTop,
		Prot:   paging.ProtRead | paging.ProtWrite,
		Flags:  paging.FlagPrivate | paging.FlagGrowsDown,
	}
	if err := mm.AddVMA(stack); err != nil {
		return InitStack{}, err
	}

	mm.BrkEnd = highest
	heap := &paging.VMA{
		Start: highest, End: highest + paging.PageSize,
		Prot: paging.ProtRead | paging.ProtWrite, Flags: paging.FlagPrivate,
	}
	if err := mm.AddVMA(heap); err != nil {
		return InitStack{}, err
	}

	t.mu.Lock()
	t.Mm = mm
	t.Regs = Registers{EIP: uint32(f.Entry), ESP: uint32(userStackTop)}
	t.Comm = baseName(path)
	t.Cmdline = append([]string(nil), argv...)
	t.Environ = append([]string(nil), envp...)
	t.mu.Unlock()

	t.Sig.Table.ResetForExec()
	t.Files.DoExec()

	return InitStack{Argv: argv, Envp: envp, Auxv: map[int]uint32{
		AtPagesz: phys.PageSize,
		AtPhnum:  uint32(len(f.Progs)),
		AtEntry:  uint32(f.Entry),
		AtBase:   0,
		AtFlags:  0,
	}}, nil
}

func pageFloor(a uintptr) uintptr { return a &^ (paging.PageSize - 1) }
func pageCeil(a uintptr) uintptr  { return (a + paging.PageSize - 1) &^ (paging.PageSize - 1) }

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func parseShebang(data []byte) (interp, arg string, err error) {
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		nl = len(data)
	}
	line := strings.TrimSpace(string(data[2:nl]))
	if line == "" {
		return "", "", errdefs.InvalidParameter(errBadShebang)
	}
	fields := strings.Fields(line)
	if len(fields) == 1 {
		return fields[0], "", nil
	}
	return fields[0], strings.Join(fields[1:], " "), nil
}
