package machine

import (
	"encoding/binary"
)

// Runner is the privilege-transfer capability supplied by the host
// environment. Run transfers control to the process entry point at reduced
// privilege and returns only when the program exits or traps, yielding the
// raw machine word carried back by the transfer. There is no preemption
// and no re-entry; at most one process runs at a time.
type Runner interface {
	Run(proc *Process) (word uint64, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(proc *Process) (word uint64, err error)

func (run RunnerFunc) Run(proc *Process) (word uint64, err error) {
	return run(proc)
}

// StubRunner stands in for an attached core: it returns the loaded image's
// leading word as the run result. Useful for exercising disk images and the
// monitor without real user code.
type StubRunner struct{}

var _ Runner = (*StubRunner)(nil)

func (stub *StubRunner) Run(proc *Process) (word uint64, err error) {
	if proc.Size < 8 {
		err = ErrImageTruncated
		return
	}

	word = binary.LittleEndian.Uint64(proc.Window.Data)

	return
}
