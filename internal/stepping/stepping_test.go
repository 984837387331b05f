// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stepping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thass0/spray/internal/breakpoint"
	"github.com/thass0/spray/internal/debuginfo"
	"github.com/thass0/spray/internal/tracee"
)

// fakeTracee models straight-line code of one-byte-long "instructions"
// starting at 0x1000; the tracee exits once PC reaches 0x1010.
type fakeTracee struct {
	pc      uint64
	exited  bool
	regs    tracee.RegisterFile
	mem     map[uint64][]byte
}

func (f *fakeTracee) State() tracee.State {
	if f.exited {
		return tracee.State{Kind: tracee.Exited}
	}
	return tracee.State{Kind: tracee.Stopped, PC: f.pc}
}

func (f *fakeTracee) SingleStep() (tracee.State, error) {
	f.pc++
	if f.pc >= 0x1010 {
		f.exited = true
	}
	return f.State(), nil
}

func (f *fakeTracee) Continue_() (tracee.State, error) {
	// Advance one fake "instruction" at a time; if the instruction about to
	// execute is a registered breakpoint, stop with PC one past it, the
	// same INT3 convention the real tracee reports.
	for {
		if _, ok := f.mem[trapKey(f.pc)]; ok {
			f.pc++
			return f.State(), nil
		}
		f.pc++
		if f.pc >= 0x1010 {
			f.exited = true
			return f.State(), nil
		}
	}
}

func trapKey(pc uint64) uint64 { return pc | (1 << 63) }

func (f *fakeTracee) ReadRegisters() (tracee.RegisterFile, error) { return f.regs, nil }
func (f *fakeTracee) WriteRegisters(r tracee.RegisterFile) error  { f.regs = r; f.pc = r.Rip; return nil }
func (f *fakeTracee) ReadMemory(addr uint64, length int) ([]byte, error) {
	buf, ok := f.mem[addr]
	if !ok {
		return make([]byte, length), nil
	}
	return buf, nil
}

type recordingBreakpoints struct {
	mem map[uint64][]byte
	set map[uint64]bool
}

func (b *recordingBreakpoints) Set(addr uint64) (*breakpoint.Breakpoint, error) {
	b.set[addr] = true
	b.mem[trapKey(addr)] = []byte{1}
	return &breakpoint.Breakpoint{Addr: addr, Enabled: true}, nil
}

func (b *recordingBreakpoints) Remove(addr uint64) error {
	delete(b.set, addr)
	delete(b.mem, trapKey(addr))
	return nil
}

func (b *recordingBreakpoints) Disable(addr uint64) error { return nil }
func (b *recordingBreakpoints) Enable(addr uint64) error  { return nil }

func (b *recordingBreakpoints) Hit(pc uint64) bool { return b.set[pc-1] }

func (b *recordingBreakpoints) At(addr uint64) (*breakpoint.Breakpoint, bool) {
	if b.set[addr] {
		return &breakpoint.Breakpoint{Addr: addr, Enabled: true}, true
	}
	return nil, false
}

type fakeDebugInfo struct {
	lines []debuginfo.LineEntry
	fn    *debuginfo.Function
}

func (d *fakeDebugInfo) PCToLine(pc uint64) (debuginfo.LineEntry, bool) {
	for _, l := range d.lines {
		if l.PC == pc {
			return l, true
		}
	}
	return debuginfo.LineEntry{}, false
}

func (d *fakeDebugInfo) FunctionContaining(pc uint64) (*debuginfo.Function, bool) {
	if d.fn != nil && pc >= d.fn.LowPC && pc < d.fn.HighPC {
		return d.fn, true
	}
	return nil, false
}

func (d *fakeDebugInfo) LinesInRange(low, high uint64) []debuginfo.LineEntry {
	var out []debuginfo.LineEntry
	for _, l := range d.lines {
		if l.PC >= low && l.PC < high {
			out = append(out, l)
		}
	}
	return out
}

func TestStepInAdvancesToNextLine(t *testing.T) {
	info := &fakeDebugInfo{lines: []debuginfo.LineEntry{
		{PC: 0x1000, Line: 10, IsStmt: true, File: "a.c"},
		{PC: 0x1001, Line: 11, IsStmt: true, File: "a.c"},
	}}
	tr := &fakeTracee{pc: 0x1000, mem: map[uint64][]byte{}}
	bp := &recordingBreakpoints{mem: tr.mem, set: map[uint64]bool{}}
	s := New(tr, bp, info)

	st, err := s.StepIn()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1001), st.PC)
}

func TestStepInReportsNoLineAtEndOfProgram(t *testing.T) {
	info := &fakeDebugInfo{lines: []debuginfo.LineEntry{
		{PC: 0x1000, Line: 10, IsStmt: true, File: "a.c"},
	}}
	tr := &fakeTracee{pc: 0x1000, mem: map[uint64][]byte{}}
	bp := &recordingBreakpoints{mem: tr.mem, set: map[uint64]bool{}}
	s := New(tr, bp, info)

	_, err := s.StepIn()
	assert.ErrorIs(t, err, ErrNoLineToStepTo)
}

func TestStepOverInstallsAndRemovesTemporaryBreakpoints(t *testing.T) {
	info := &fakeDebugInfo{
		lines: []debuginfo.LineEntry{
			{PC: 0x1000, Line: 10, IsStmt: true, File: "a.c"},
			{PC: 0x1005, Line: 11, IsStmt: true, File: "a.c"},
			{PC: 0x1009, Line: 12, IsStmt: true, File: "a.c"},
		},
		fn: &debuginfo.Function{Name: "f", LowPC: 0x1000, HighPC: 0x100f},
	}
	tr := &fakeTracee{pc: 0x1000, mem: map[uint64][]byte{}}
	bp := &recordingBreakpoints{mem: tr.mem, set: map[uint64]bool{}}
	s := New(tr, bp, info)

	st, err := s.StepOver()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1005), st.PC)
	assert.Empty(t, bp.set, "temporary breakpoints must be removed after landing")
}
