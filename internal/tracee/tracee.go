// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracee implements spray's process-tracing state machine, which
// spawns, stops, resumes, single-steps, and reads/writes
// a traced child process via ptrace(2).
//
// All ptrace calls must originate from the same OS thread that attached to
// the tracee, so — following program/server/ptrace.go — every ptrace
// request is marshaled onto one goroutine that has locked itself to its OS
// thread for the lifetime of the session.
package tracee

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// StopReason is the reason the tracee most recently stopped, 's
// ChildState.reason.
type StopReason int

const (
	ReasonNone StopReason = iota
	ReasonBreakpoint
	ReasonSingleStep
	ReasonSignal
	ReasonSyscallStop
	ReasonOther
)

// State is the ChildState.
type State struct {
	Kind   Kind
	PC     uint64
	Reason StopReason
	Signal unix.Signal
	Code   int
}

// Kind discriminates the ChildState variants.
type Kind int

const (
	NotStarted Kind = iota
	Running
	Stopped
	Exited
	Signalled
)

// Sentinel errors for the kinds lists that originate in this
// package.
var (
	ErrNotStopped     = errors.New("NotStopped")
	ErrMemoryUnmapped = errors.New("MemoryUnmapped")
)

// SpawnError wraps a failure to launch the tracee.
type SpawnError struct{ Err error }

func (e *SpawnError) Error() string { return fmt.Sprintf("spawn: %v", e.Err) }
func (e *SpawnError) Unwrap() error { return e.Err }

// KernelError wraps a raw errno from a ptrace/wait call (
// KernelError(errno)).
type KernelError struct {
	Op  string
	Err error
}

func (e *KernelError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *KernelError) Unwrap() error { return e.Err }

// Tracee owns the traced child's PID and is the sole issuer of ptrace
// operations on it.
type Tracee struct {
	pid   int
	state State

	fc chan func() error
	ec chan error
}

// New creates a Tracee that has not yet launched anything.
func New() *Tracee {
	t := &Tracee{
		fc: make(chan func() error),
		ec: make(chan error),
	}
	go ptraceRun(t.fc, t.ec)
	return t
}

// ptraceRun executes every closure sent on fc from one locked OS thread,
// sending its error back on ec. Mirrors program/server/ptrace.go.
func ptraceRun(fc chan func() error, ec chan error) {
	runtime.LockOSThread()
	for f := range fc {
		ec <- f()
	}
}

func (t *Tracee) do(f func() error) error {
	t.fc <- f
	return <-t.ec
}

// Launch forks and execs path with argv (argv[0] conventionally equals
// path), requesting to be traced, and waits for the initial post-exec
// SIGTRAP. stdio is inherited from the debugger's own, per
// ("Tracee I/O inheritance").
func (t *Tracee) Launch(path string, argv []string) (State, error) {
	var proc *os.Process
	err := t.do(func() error {
		var err1 error
		proc, err1 = os.StartProcess(path, argv, &os.ProcAttr{
			Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
			Sys: &unix.SysProcAttr{
				Ptrace:    true,
				Pdeathsig: unix.SIGKILL,
			},
		})
		return err1
	})
	if err != nil {
		return State{}, &SpawnError{Err: err}
	}
	t.pid = proc.Pid

	st, err := t.wait()
	if err != nil {
		return State{}, &SpawnError{Err: err}
	}
	if st.Kind != Stopped {
		return st, &SpawnError{Err: fmt.Errorf("tracee did not stop after exec: %+v", st)}
	}
	t.state = st
	return st, nil
}

// wait blocks for the next state change of the tracee and classifies it.
func (t *Tracee) wait() (State, error) {
	var wstatus unix.WaitStatus
	err := t.do(func() error {
		_, err := unix.Wait4(t.pid, &wstatus, 0, nil)
		return err
	})
	if err != nil {
		return State{}, &KernelError{Op: "wait4", Err: err}
	}
	switch {
	case wstatus.Exited():
		t.state = State{Kind: Exited, Code: wstatus.ExitStatus()}
	case wstatus.Signaled():
		t.state = State{Kind: Signalled, Signal: wstatus.Signal()}
	case wstatus.Stopped():
		reason := ReasonOther
		sig := wstatus.StopSignal()
		switch sig {
		case unix.SIGTRAP:
			reason = ReasonSingleStep
		default:
			reason = ReasonSignal
		}
		regs, err := t.getRegs()
		if err != nil {
			return State{}, err
		}
		t.state = State{Kind: Stopped, PC: regs.Rip, Reason: reason, Signal: sig}
	default:
		return State{}, fmt.Errorf("unrecognized wait status %v", wstatus)
	}
	return t.state, nil
}

// State returns the last observed ChildState without re-synchronizing.
func (t *Tracee) State() State { return t.state }

func (t *Tracee) requireStopped() error {
	if t.state.Kind != Stopped {
		return ErrNotStopped
	}
	return nil
}

func (t *Tracee) getRegs() (unix.PtraceRegs, error) {
	var regs unix.PtraceRegs
	err := t.do(func() error { return unix.PtraceGetRegs(t.pid, &regs) })
	if err != nil {
		return regs, &KernelError{Op: "PTRACE_GETREGS", Err: err}
	}
	return regs, nil
}

// ReadRegisters implements read_registers.
func (t *Tracee) ReadRegisters() (RegisterFile, error) {
	if err := t.requireStopped(); err != nil {
		return RegisterFile{}, err
	}
	regs, err := t.getRegs()
	if err != nil {
		return RegisterFile{}, err
	}
	return fromPtrace(&regs), nil
}

// WriteRegisters implements write_registers.
func (t *Tracee) WriteRegisters(f RegisterFile) error {
	if err := t.requireStopped(); err != nil {
		return err
	}
	regs := f.toPtrace()
	err := t.do(func() error { return unix.PtraceSetRegs(t.pid, &regs) })
	if err != nil {
		return &KernelError{Op: "PTRACE_SETREGS", Err: err}
	}
	t.state.PC = f.Rip
	return nil
}

// ReadMemory implements read_memory: word-oriented PEEK reads,
// reported as a byte-accurate slice. PtracePeekData already merges partial
// words internally; an EIO (unmapped page) surfaces as ErrMemoryUnmapped.
func (t *Tracee) ReadMemory(addr uint64, length int) ([]byte, error) {
	if err := t.requireStopped(); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	var n int
	err := t.do(func() error {
		var err1 error
		n, err1 = unix.PtracePeekData(t.pid, uintptr(addr), buf)
		return err1
	})
	if err != nil {
		if errors.Is(err, unix.EIO) || errors.Is(err, unix.EFAULT) {
			return nil, ErrMemoryUnmapped
		}
		return nil, &KernelError{Op: "PTRACE_PEEKDATA", Err: err}
	}
	if n != length {
		return nil, ErrMemoryUnmapped
	}
	return buf, nil
}

// WriteMemory implements write_memory.
func (t *Tracee) WriteMemory(addr uint64, data []byte) error {
	if err := t.requireStopped(); err != nil {
		return err
	}
	var n int
	err := t.do(func() error {
		var err1 error
		n, err1 = unix.PtracePokeData(t.pid, uintptr(addr), data)
		return err1
	})
	if err != nil {
		if errors.Is(err, unix.EIO) || errors.Is(err, unix.EFAULT) {
			return ErrMemoryUnmapped
		}
		return &KernelError{Op: "PTRACE_POKEDATA", Err: err}
	}
	if n != len(data) {
		return ErrMemoryUnmapped
	}
	return nil
}

// Continue_ resumes the tracee and blocks until the next stop event.
func (t *Tracee) Continue_() (State, error) {
	if err := t.requireStopped(); err != nil {
		return State{}, err
	}
	err := t.do(func() error { return unix.PtraceCont(t.pid, 0) })
	if err != nil {
		return State{}, &KernelError{Op: "PTRACE_CONT", Err: err}
	}
	return t.wait()
}

// SingleStep resumes the tracee for exactly one instruction.
func (t *Tracee) SingleStep() (State, error) {
	if err := t.requireStopped(); err != nil {
		return State{}, err
	}
	err := t.do(func() error { return unix.PtraceSingleStep(t.pid) })
	if err != nil {
		return State{}, &KernelError{Op: "PTRACE_SINGLESTEP", Err: err}
	}
	return t.wait()
}

// Detach lets the tracee run free.
func (t *Tracee) Detach() error {
	err := t.do(func() error { return unix.PtraceDetach(t.pid) })
	if err != nil {
		return &KernelError{Op: "PTRACE_DETACH", Err: err}
	}
	return nil
}

// Kill terminates the tracee.
func (t *Tracee) Kill() error {
	err := t.do(func() error { return unix.Kill(t.pid, unix.SIGKILL) })
	if err != nil {
		return &KernelError{Op: "kill", Err: err}
	}
	return nil
}

// PID returns the traced process's PID, or 0 if none has been launched.
func (t *Tracee) PID() int { return t.pid }
