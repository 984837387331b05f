// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thass0/spray/internal/evaluator"
	"github.com/thass0/spray/internal/unwind"
)

func TestResolveLiteralAliasesAndPrefixes(t *testing.T) {
	n, err := Resolve("b")
	require.NoError(t, err)
	assert.Equal(t, Break, n)

	n, err = Resolve("t")
	require.NoError(t, err)
	assert.Equal(t, Set, n)

	n, err = Resolve("del")
	require.NoError(t, err)
	assert.Equal(t, Delete, n)

	n, err = Resolve("ste")
	require.NoError(t, err)
	assert.Equal(t, Step, n, "\"ste\" is a unique prefix of step now that stepi was renamed to inst")

	_, err = Resolve("xyz")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestParseOperandPrecedence(t *testing.T) {
	isFunc := func(s string) bool { return s == "add" }

	op := ParseOperand("%rax", isFunc)
	assert.Equal(t, OperandRegister, op.Kind)
	assert.Equal(t, "rax", op.Register)

	op = ParseOperand("add", isFunc)
	assert.Equal(t, OperandFuncName, op.Kind, "a function name must win over a coincidental hex reading")

	op = ParseOperand("0xadd", isFunc)
	assert.Equal(t, OperandHexAddr, op.Kind)
	assert.Equal(t, uint64(0xadd), op.Addr)

	op = ParseOperand("file2.c:1", isFunc)
	assert.Equal(t, OperandFilePos, op.Kind)
	assert.Equal(t, "file2.c", op.File)
	assert.Equal(t, 1, op.Line)

	op = ParseOperand("counter", isFunc)
	assert.Equal(t, OperandVarName, op.Kind)
}

type fakeSession struct {
	regValues  map[string]string
	regFilters map[string]evaluator.Filter
	hasVar     map[string]bool
	funcs      map[string]uint64
}

func (s *fakeSession) SetBreakpointAtAddr(addr uint64) error           { return nil }
func (s *fakeSession) SetBreakpointAtFunction(name string) (uint64, error) { return 0, nil }
func (s *fakeSession) SetBreakpointAtFilePos(file string, line int) (uint64, error) {
	return 0, nil
}
func (s *fakeSession) DeleteBreakpoint(addr uint64) error { return nil }

func (s *fakeSession) Continue() (StopInfo, error)         { return StopInfo{}, nil }
func (s *fakeSession) StepIn() (StopInfo, error)           { return StopInfo{}, nil }
func (s *fakeSession) StepOver() (StopInfo, error)         { return StopInfo{}, nil }
func (s *fakeSession) StepOut() (StopInfo, error)          { return StopInfo{}, nil }
func (s *fakeSession) StepInstruction() (StopInfo, error)  { return StopInfo{}, nil }

func (s *fakeSession) PrintRegister(name string, filter evaluator.Filter) (string, error) {
	return fmt.Sprintf("%8s %s", name, s.regValues[name]), nil
}
func (s *fakeSession) PrintAddress(addr uint64, filter evaluator.Filter) (string, error) {
	return fmt.Sprintf("         0x%x", addr), nil
}
func (s *fakeSession) PrintVariable(name string, filter evaluator.Filter) (string, error) {
	if !s.hasVar[name] {
		return "", fmt.Errorf("no such variable %q", name)
	}
	return fmt.Sprintf("         %s_value", name), nil
}

func (s *fakeSession) SetRegister(name, literal string, filter evaluator.Filter) (string, error) {
	s.regValues[name] = literal
	if s.regFilters != nil {
		s.regFilters[name] = filter
	}
	return fmt.Sprintf("%8s %s (read after write)", name, literal), nil
}
func (s *fakeSession) SetAddress(addr uint64, literal string, filter evaluator.Filter) (string, error) {
	return literal, nil
}
func (s *fakeSession) SetVariable(name, literal string, filter evaluator.Filter) (string, error) {
	return literal, nil
}

func (s *fakeSession) Backtrace() ([]unwind.Frame, bool, error) { return nil, false, nil }

func (s *fakeSession) HasFunction(name string) bool { _, ok := s.funcs[name]; return ok }
func (s *fakeSession) FunctionAddress(name string) (uint64, bool) {
	a, ok := s.funcs[name]
	return a, ok
}
func (s *fakeSession) HasVariable(name string) bool { return s.hasVar[name] }

func newFakeSession() *fakeSession {
	return &fakeSession{
		regValues:  map[string]string{},
		regFilters: map[string]evaluator.Filter{},
		hasVar:     map[string]bool{},
		funcs:      map[string]uint64{},
	}
}

func TestExecuteSetRegisterThenPrint(t *testing.T) {
	sess := newFakeSession()

	res, err := Execute(sess, "t %rax 123")
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "     rax 123 (read after write)", res.Lines[0])

	res, err = Execute(sess, "p %rax")
	require.NoError(t, err)
	assert.Equal(t, "     rax 123", res.Lines[0])
}

func TestExecuteSetMissingValue(t *testing.T) {
	sess := newFakeSession()
	res, err := Execute(sess, "t %rax")
	require.NoError(t, err)
	assert.Equal(t, []string{"ERR: Missing value to set the location to"}, res.Lines)
}

func TestExecuteSetTrailingCharacters(t *testing.T) {
	sess := newFakeSession()
	res, err := Execute(sess, "t %rax 0xc0ffee 0xbeef")
	require.NoError(t, err)
	assert.Equal(t, []string{"ERR: Trailing characters in command"}, res.Lines)
}

func TestExecuteUnknownCommand(t *testing.T) {
	sess := newFakeSession()
	res, err := Execute(sess, "stx %rax 0x31")
	require.NoError(t, err)
	assert.Equal(t, []string{"ERR: Unknown command"}, res.Lines)
}

func TestExecutePrintRegisterNameConflict(t *testing.T) {
	sess := newFakeSession()
	res, err := Execute(sess, "p rax")
	require.NoError(t, err)
	require.Len(t, res.Lines, 3)
	assert.Contains(t, res.Lines[0], "is also the name of a register")
	assert.Contains(t, res.Lines[2], "Failed to find a variable called rax")
}

func TestExecuteSetDefaultFilterMirrorsLiteralRadix(t *testing.T) {
	sess := newFakeSession()

	_, err := Execute(sess, "t %rax 0x800")
	require.NoError(t, err)
	assert.Equal(t, evaluator.FilterHex, sess.regFilters["rax"])

	_, err = Execute(sess, "t %rbx 123")
	require.NoError(t, err)
	assert.Equal(t, evaluator.FilterDec, sess.regFilters["rbx"])

	_, err = Execute(sess, "t %rcx 0x1f bits")
	require.NoError(t, err)
	assert.Equal(t, evaluator.FilterBits, sess.regFilters["rcx"], "an explicit filter suffix overrides the literal's own radix")
}

func TestExecuteQuit(t *testing.T) {
	sess := newFakeSession()
	_, err := Execute(sess, "q")
	assert.True(t, IsQuit(err))
}
