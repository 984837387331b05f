// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stepping implements spray's instruction-step, step-in, step-over,
// and step-out, all built from the same two tracee primitives server.go
// uses for Resume — PTRACE_SINGLESTEP and PTRACE_CONT — plus
// internal/breakpoint for the temporary breakpoints step-over and step-out
// need.
//
// program/program.go leaves a "// TODO: Step(). Where does the granularity
// happen" comment instead of an implementation, so the stepping algorithms
// here are built from scratch, expressed in the same resume/wait idiom
// server.go uses elsewhere.
package stepping

import (
	"errors"
	"fmt"

	"github.com/thass0/spray/internal/arch"
	"github.com/thass0/spray/internal/breakpoint"
	"github.com/thass0/spray/internal/debuginfo"
	"github.com/thass0/spray/internal/tracee"
)

// ErrNoLineToStepTo is returned by StepIn (and by StepOver when it falls
// back to StepIn) when the tracee runs to completion (or a fatal signal)
// before reaching another source line. StepOver otherwise reports an exit
// as the returned State with a nil error.
var ErrNoLineToStepTo = errors.New("failed to find another line to step to")

// maxStepInstructions bounds StepIn's single-step loop so code with no
// line information (e.g. a PLT stub or a library with no debug info)
// can't spin forever.
const maxStepInstructions = 2_000_000

// TraceeControl is the subset of *tracee.Tracee stepping needs.
type TraceeControl interface {
	State() tracee.State
	SingleStep() (tracee.State, error)
	Continue_() (tracee.State, error)
	ReadRegisters() (tracee.RegisterFile, error)
	WriteRegisters(tracee.RegisterFile) error
	ReadMemory(addr uint64, length int) ([]byte, error)
}

// Breakpoints is the subset of *breakpoint.Registry stepping needs.
type Breakpoints interface {
	Set(addr uint64) (*breakpoint.Breakpoint, error)
	Remove(addr uint64) error
	Disable(addr uint64) error
	Enable(addr uint64) error
	Hit(pc uint64) bool
	At(addr uint64) (*breakpoint.Breakpoint, bool)
}

// DebugInfo is the subset of *debuginfo.DebugInfo stepping needs.
type DebugInfo interface {
	PCToLine(pc uint64) (debuginfo.LineEntry, bool)
	FunctionContaining(pc uint64) (*debuginfo.Function, bool)
	LinesInRange(low, high uint64) []debuginfo.LineEntry
}

// Stepper executes the four stepping algorithms plus plain
// continue, threading a Tracee, a breakpoint Registry, and a DebugInfo
// together the way internal/session wires the whole program.
type Stepper struct {
	T    TraceeControl
	BP   Breakpoints
	Info DebugInfo
}

// New builds a Stepper.
func New(t TraceeControl, bp Breakpoints, info DebugInfo) *Stepper {
	return &Stepper{T: t, BP: bp, Info: info}
}

// stepInstruction executes exactly one machine instruction, transparently
// stepping over a breakpoint installed at the current PC (
// step_over_self): the trap byte is removed before the single-step and
// restored immediately after, so the debugger never intercepts its own
// breakpoint mid-step.
func (s *Stepper) stepInstruction() (tracee.State, error) {
	pc := s.T.State().PC
	if bp, ok := s.BP.At(pc); ok && bp.Enabled {
		if err := s.BP.Disable(pc); err != nil {
			return tracee.State{}, err
		}
		defer s.BP.Enable(pc)
	}
	return s.T.SingleStep()
}

// InstructionStep implements instruction_step.
func (s *Stepper) InstructionStep() (tracee.State, error) {
	return s.stepInstruction()
}

// continueAndFixup resumes full execution and, if it stops because of a
// registered breakpoint, rewinds %rip from the trap byte's successor back
// to the breakpoint's own address (: "after an INT3 traps,
// RIP points one past the trap byte"). A breakpoint at the current PC is
// first stepped over with stepInstruction so the resume does not trap on
// it again.
func (s *Stepper) continueAndFixup() (tracee.State, error) {
	if bp, ok := s.BP.At(s.T.State().PC); ok && bp.Enabled {
		st, err := s.stepInstruction()
		if err != nil || st.Kind != tracee.Stopped {
			return st, err
		}
	}
	st, err := s.T.Continue_()
	if err != nil {
		return st, err
	}
	return s.fixupBreakpointStop(st)
}

func (s *Stepper) fixupBreakpointStop(st tracee.State) (tracee.State, error) {
	if st.Kind != tracee.Stopped {
		return st, nil
	}
	if !s.BP.Hit(st.PC) {
		return st, nil
	}
	regs, err := s.T.ReadRegisters()
	if err != nil {
		return st, err
	}
	regs.Rip = st.PC - 1
	if err := s.T.WriteRegisters(regs); err != nil {
		return st, err
	}
	st.PC = regs.Rip
	st.Reason = tracee.ReasonBreakpoint
	return st, nil
}

// Continue implements continue (also used by the `c` command).
func (s *Stepper) Continue() (tracee.State, error) {
	return s.continueAndFixup()
}

// StepIn implements step_in: single-step until the source
// line changes, descending into any call along the way.
func (s *Stepper) StepIn() (tracee.State, error) {
	startLine, haveStart := s.Info.PCToLine(s.T.State().PC)

	for i := 0; i < maxStepInstructions; i++ {
		st, err := s.stepInstruction()
		if err != nil {
			return st, err
		}
		if st.Kind != tracee.Stopped {
			return st, ErrNoLineToStepTo
		}
		line, ok := s.Info.PCToLine(st.PC)
		if !ok || !line.IsStmt {
			continue
		}
		if !haveStart || line.File != startLine.File || line.Line != startLine.Line {
			return st, nil
		}
	}
	return tracee.State{}, ErrNoLineToStepTo
}

// StepOver implements step_over: like StepIn, but a call
// instruction is executed to completion rather than followed, by placing
// temporary breakpoints at every other statement PC in the current
// function and at its return address, then resuming full-speed until one
// of them (or the tracee itself) stops it.
func (s *Stepper) StepOver() (tracee.State, error) {
	pc := s.T.State().PC
	fn, ok := s.Info.FunctionContaining(pc)
	if !ok {
		// No function information to bound a step-over with; fall back to
		// single-instruction stepping, which is always safe.
		return s.StepIn()
	}

	startLine, haveLine := s.Info.PCToLine(pc)
	regs, err := s.T.ReadRegisters()
	if err != nil {
		return tracee.State{}, err
	}
	retAddr, haveRet := s.callerReturnAddress(regs.Rbp)

	var installed []uint64
	defer func() {
		for _, addr := range installed {
			s.BP.Remove(addr)
		}
	}()

	for _, line := range s.Info.LinesInRange(fn.LowPC, fn.HighPC) {
		if line.PC == pc {
			continue
		}
		if haveLine && line.File == startLine.File && line.Line == startLine.Line {
			continue
		}
		if _, exists := s.BP.At(line.PC); exists {
			continue
		}
		if _, err := s.BP.Set(line.PC); err == nil {
			installed = append(installed, line.PC)
		}
	}
	if haveRet {
		if _, exists := s.BP.At(retAddr); !exists {
			if _, err := s.BP.Set(retAddr); err == nil {
				installed = append(installed, retAddr)
			}
		}
	}

	return s.continueAndFixup()
}

// StepOut implements step_out: resume until the current
// function returns, using its caller's return address read from the stack
// via the frame-pointer convention. If no frame pointer is
// available, it falls back to a breakpoint just past the function's own
// range.
func (s *Stepper) StepOut() (tracee.State, error) {
	pc := s.T.State().PC
	fn, haveFn := s.Info.FunctionContaining(pc)

	regs, err := s.T.ReadRegisters()
	if err != nil {
		return tracee.State{}, err
	}

	target, haveTarget := s.callerReturnAddress(regs.Rbp)
	if !haveTarget && haveFn {
		target, haveTarget = fn.HighPC, true
	}
	if !haveTarget {
		return tracee.State{}, fmt.Errorf("cannot determine a step-out target from the current frame")
	}

	preexisting := false
	if _, exists := s.BP.At(target); exists {
		preexisting = true
	}
	if !preexisting {
		if _, err := s.BP.Set(target); err != nil {
			return tracee.State{}, err
		}
		defer s.BP.Remove(target)
	}

	return s.continueAndFixup()
}

// callerReturnAddress reads the return address saved at frameBase+8, the
// same frame-pointer convention internal/unwind walks.
func (s *Stepper) callerReturnAddress(frameBase uint64) (uint64, bool) {
	if frameBase == 0 {
		return 0, false
	}
	buf, err := s.T.ReadMemory(frameBase+arch.PointerSize, arch.PointerSize)
	if err != nil {
		return 0, false
	}
	return arch.ByteOrder.Uint64(buf), true
}
