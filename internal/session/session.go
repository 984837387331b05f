// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session is spray's composition root: it wires internal/tracee,
// internal/breakpoint, internal/debuginfo, internal/unwind,
// internal/evaluator, and internal/stepping together into the single
// object internal/command.Execute dispatches against, the way
// program/server/server.go's Server type wires its own equivalent pieces
// behind one RPC-facing struct.
package session

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thass0/spray/internal/arch"
	"github.com/thass0/spray/internal/breakpoint"
	"github.com/thass0/spray/internal/command"
	"github.com/thass0/spray/internal/debuginfo"
	"github.com/thass0/spray/internal/evaluator"
	"github.com/thass0/spray/internal/stepping"
	"github.com/thass0/spray/internal/tracee"
	"github.com/thass0/spray/internal/unwind"
)

// Session is the concrete internal/command.Session and
// internal/unwind.Symbolizer implementation.
type Session struct {
	Path string

	tr   *tracee.Tracee
	bp   *breakpoint.Registry
	info *debuginfo.DebugInfo
	eval *evaluator.Evaluator
	step *stepping.Stepper
}

// Launch spawns path with argv, attaches via ptrace, and loads its DWARF
// debug info, applying a PIE load bias if the executable is
// position-independent.
func Launch(path string, argv []string) (*Session, error) {
	info, err := debuginfo.Load(path)
	if err != nil {
		return nil, err
	}

	tr := tracee.New()
	if _, err := tr.Launch(path, argv); err != nil {
		return nil, err
	}

	if pie, err := debuginfo.IsPIE(path); err == nil && pie {
		if bias, err := loadBias(tr.PID(), path); err == nil {
			info.ApplyLoadBias(bias)
		}
	}

	bp := breakpoint.New(tr)
	eval := evaluator.New(tr, &registerAdapter{tr}, info)
	step := stepping.New(tr, bp, info)

	return &Session{Path: path, tr: tr, bp: bp, info: info, eval: eval, step: step}, nil
}

// loadBias reads /proc/<pid>/maps for the first mapping of path and
// returns its base address. A position-independent executable's own ELF
// program headers describe an image starting at virtual address 0, so the
// kernel's chosen mapping base is exactly the bias DWARF addresses need.
func loadBias(pid int, path string) (uint64, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, path) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		rangeField := fields[0]
		start := rangeField[:strings.IndexByte(rangeField, '-')]
		v, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			return 0, err
		}
		return v, nil
	}
	return 0, fmt.Errorf("session: no mapping of %s found", path)
}

// registerAdapter makes *tracee.Tracee satisfy evaluator.Registers,
// resynchronizing the full register file on every read and write since
// ptrace only offers whole-file GETREGS/SETREGS.
type registerAdapter struct{ t *tracee.Tracee }

func (r *registerAdapter) GetDWARF(n int) (uint64, error) {
	f, err := r.t.ReadRegisters()
	if err != nil {
		return 0, err
	}
	return f.GetDWARF(n)
}

func (r *registerAdapter) GetName(name string) (uint64, error) {
	f, err := r.t.ReadRegisters()
	if err != nil {
		return 0, err
	}
	return f.Get(name)
}

func (r *registerAdapter) SetName(name string, v uint64) error {
	f, err := r.t.ReadRegisters()
	if err != nil {
		return err
	}
	f, err = f.Set(name, v)
	if err != nil {
		return err
	}
	return r.t.WriteRegisters(f)
}

// PID returns the traced process's PID.
func (s *Session) PID() int { return s.tr.PID() }

// Detach lets the tracee run free and stops tracking it.
func (s *Session) Detach() error { return s.tr.Detach() }

// Kill terminates the tracee.
func (s *Session) Kill() error { return s.tr.Kill() }

// --- breakpoints ---

func (s *Session) SetBreakpointAtAddr(addr uint64) error {
	_, err := s.bp.Set(addr)
	return err
}

func (s *Session) SetBreakpointAtFunction(name string) (uint64, error) {
	fn, err := s.info.FunctionByName(name)
	if err != nil {
		return 0, err
	}
	if _, err := s.bp.Set(fn.LowPC); err != nil {
		return 0, err
	}
	return fn.LowPC, nil
}

func (s *Session) SetBreakpointAtFilePos(file string, line int) (uint64, error) {
	addr, err := s.info.LineToPC(file, line)
	if err != nil {
		return 0, err
	}
	if _, err := s.bp.Set(addr); err != nil {
		return 0, err
	}
	return addr, nil
}

func (s *Session) DeleteBreakpoint(addr uint64) error {
	return s.bp.Remove(addr)
}

// --- resumption ---

func (s *Session) Continue() (command.StopInfo, error)        { return s.resume(s.step.Continue) }
func (s *Session) StepIn() (command.StopInfo, error)          { return s.resume(s.step.StepIn) }
func (s *Session) StepOver() (command.StopInfo, error)        { return s.resume(s.step.StepOver) }
func (s *Session) StepOut() (command.StopInfo, error)         { return s.resume(s.step.StepOut) }
func (s *Session) StepInstruction() (command.StopInfo, error) { return s.resume(s.step.InstructionStep) }

func (s *Session) resume(fn func() (tracee.State, error)) (command.StopInfo, error) {
	st, err := fn()
	if err != nil {
		return command.StopInfo{}, err
	}
	return s.toStopInfo(st), nil
}

func (s *Session) toStopInfo(st tracee.State) command.StopInfo {
	info := command.StopInfo{
		PC:            st.PC,
		Exited:        st.Kind == tracee.Exited,
		ExitCode:      st.Code,
		HitBreakpoint: st.Reason == tracee.ReasonBreakpoint,
	}
	if loc, ok := s.info.SourceLocationAt(st.PC); ok {
		info.SourceFile = loc.File
		info.SourceLine = loc.Line
		info.HaveSourceLine = true
	}
	return info
}

// --- print/set ---

func (s *Session) currentSourceLocation() *debuginfo.SourceLocation {
	pc := s.tr.State().PC
	if loc, ok := s.info.SourceLocationAt(pc); ok {
		return &loc
	}
	return nil
}

func (s *Session) PrintRegister(name string, filter evaluator.Filter) (string, error) {
	v, err := s.eval.Regs.GetName(name)
	if err != nil {
		return "", err
	}
	buf := make([]byte, arch.IntSize)
	arch.ByteOrder.PutUint64(buf, v)
	if filter == evaluator.FilterDefault {
		filter = evaluator.FilterBytes
	}
	value := evaluator.Render(buf, filter)
	return evaluator.FormatLine(name, value, false, s.currentSourceLocation()), nil
}

func (s *Session) PrintAddress(addr uint64, filter evaluator.Filter) (string, error) {
	t := evaluator.Target{
		Location: debuginfo.LocationExpr{Kind: debuginfo.LocAddress, Addr: addr},
		Type:     s.info.UnknownTypeID(),
	}
	value, err := s.eval.Print(t, filter)
	if err != nil {
		return "", err
	}
	return evaluator.FormatLine("", value, false, s.currentSourceLocation()), nil
}

func (s *Session) PrintVariable(name string, filter evaluator.Filter) (string, error) {
	t, err := s.variableTarget(name)
	if err != nil {
		return "", err
	}
	value, err := s.eval.Print(t, filter)
	if err != nil {
		return "", err
	}
	return evaluator.FormatLine("", value, false, s.currentSourceLocation()), nil
}

func (s *Session) SetRegister(name, literal string, filter evaluator.Filter) (string, error) {
	data, err := evaluator.ParseLiteral(debuginfo.Type{}, arch.IntSize, literal)
	if err != nil {
		return "", err
	}
	if err := s.eval.Regs.SetName(name, arch.ByteOrder.Uint64(padTo8(data))); err != nil {
		return "", err
	}
	v, err := s.eval.Regs.GetName(name)
	if err != nil {
		return "", err
	}
	buf := make([]byte, arch.IntSize)
	arch.ByteOrder.PutUint64(buf, v)
	// command.execSet already resolved FilterDefault to the literal's own
	// radix before calling here, so filter is always concrete.
	value := evaluator.Render(buf, filter)
	return evaluator.FormatLine(name, value, true, s.currentSourceLocation()), nil
}

func padTo8(data []byte) []byte {
	if len(data) >= 8 {
		return data[:8]
	}
	buf := make([]byte, 8)
	copy(buf, data)
	return buf
}

func (s *Session) SetAddress(addr uint64, literal string, filter evaluator.Filter) (string, error) {
	t := evaluator.Target{
		Location: debuginfo.LocationExpr{Kind: debuginfo.LocAddress, Addr: addr},
		Type:     s.info.UnknownTypeID(),
	}
	value, err := s.eval.Set(t, literal, filter)
	if err != nil {
		return "", err
	}
	return evaluator.FormatLine("", value, true, s.currentSourceLocation()), nil
}

func (s *Session) SetVariable(name, literal string, filter evaluator.Filter) (string, error) {
	t, err := s.variableTarget(name)
	if err != nil {
		return "", err
	}
	value, err := s.eval.Set(t, literal, filter)
	if err != nil {
		return "", err
	}
	return evaluator.FormatLine("", value, true, s.currentSourceLocation()), nil
}

// variableTarget resolves name to an evaluator.Target at the tracee's
// current PC: the enclosing function's frame base, evaluated against the
// live register file, grounds any DW_OP_fbreg location the variable uses.
func (s *Session) variableTarget(name string) (evaluator.Target, error) {
	pc := s.tr.State().PC
	v, err := s.info.Variable(name, pc)
	if err != nil {
		return evaluator.Target{}, err
	}
	t := evaluator.Target{Location: v.Location, Type: v.Type}
	if fn, ok := s.info.FunctionContaining(pc); ok {
		if fb, err := s.eval.ResolveFrameBase(fn.FrameBase); err == nil {
			t.FrameBase = fb
			t.HaveFB = true
		}
	}
	return t, nil
}

// --- backtrace ---

func (s *Session) Backtrace() ([]unwind.Frame, bool, error) {
	regs, err := s.tr.ReadRegisters()
	if err != nil {
		return nil, false, err
	}
	frames, omitted := unwind.Backtrace(s.tr, s, regs.Rip, regs.Rbp)
	return frames, omitted, nil
}

// FunctionNameAt and SourceLocationAt implement unwind.Symbolizer.
func (s *Session) FunctionNameAt(pc uint64) (string, int, bool) {
	fn, ok := s.info.FunctionContaining(pc)
	if !ok {
		return "", 0, false
	}
	return fn.Name, fn.DeclLine, true
}

func (s *Session) SourceLocationAt(pc uint64) (string, int, bool) {
	loc, ok := s.info.SourceLocationAt(pc)
	if !ok {
		return "", 0, false
	}
	return loc.File, loc.Line, true
}

// --- symbol lookups ---

func (s *Session) HasFunction(name string) bool {
	_, err := s.info.FunctionByName(name)
	return err == nil
}

func (s *Session) FunctionAddress(name string) (uint64, bool) {
	fn, err := s.info.FunctionByName(name)
	if err != nil {
		return 0, false
	}
	return fn.LowPC, true
}

func (s *Session) HasVariable(name string) bool {
	_, err := s.info.Variable(name, s.tr.State().PC)
	return err == nil
}
