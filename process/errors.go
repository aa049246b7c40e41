package process

import "errors"

var (
	errNoSuchTask     = errors.New("process: no such task")
	errNoChildren     = errors.New("process: no child to wait for")
	errWouldBlock     = errors.New("process: no exited child yet, would block")
	errShouldSleep    = errors.New("process: no exited child yet, sleep on WaitChildExit and retry")
	errBadRlimit      = errors.New("process: unknown resource limit")
	errBadELF         = errors.New("process: not a valid ELF32 executable")
	err64BitELF       = errors.New("process: 64-bit ELF not supported on this 32-bit target")
	errDynamicLinking = errors.New("process: dynamically linked executables (PT_INTERP) are not supported")
	errBadShebang     = errors.New("process: malformed #! interpreter line")

	errSelfTrace     = errors.New("process: a task cannot ptrace itself")
	errAlreadyTraced = errors.New("process: task is already being traced")
	errNotTracer     = errors.New("process: caller is not this task's tracer")
	errNotStopped    = errors.New("process: task is not ptrace-stopped")
	errNoMm          = errors.New("process: task has no address space")
	errBadAddr       = errors.New("process: address is outside any mapped region")
	errAnonPeek      = errors.New("process: ptrace peek/poke of anonymous memory is not supported")
	errReadOnly      = errors.New("process: target region is not writable")
)
