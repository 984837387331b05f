// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package replloop

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thass0/spray/internal/command"
	"github.com/thass0/spray/internal/evaluator"
	"github.com/thass0/spray/internal/highlight"
	"github.com/thass0/spray/internal/unwind"
)

type fakeSource struct {
	files map[string][]string
}

func (s *fakeSource) Lines(file string) ([]string, error) {
	ls, ok := s.files[file]
	if !ok {
		return nil, fmt.Errorf("no such file %q", file)
	}
	return ls, nil
}

type fakeSession struct {
	stop command.StopInfo
}

func (s *fakeSession) SetBreakpointAtAddr(addr uint64) error                       { return nil }
func (s *fakeSession) SetBreakpointAtFunction(name string) (uint64, error)         { return 0, nil }
func (s *fakeSession) SetBreakpointAtFilePos(file string, line int) (uint64, error) {
	return 0, nil
}
func (s *fakeSession) DeleteBreakpoint(addr uint64) error { return nil }

func (s *fakeSession) Continue() (command.StopInfo, error)        { return s.stop, nil }
func (s *fakeSession) StepIn() (command.StopInfo, error)          { return s.stop, nil }
func (s *fakeSession) StepOver() (command.StopInfo, error)        { return s.stop, nil }
func (s *fakeSession) StepOut() (command.StopInfo, error)         { return s.stop, nil }
func (s *fakeSession) StepInstruction() (command.StopInfo, error) { return s.stop, nil }

func (s *fakeSession) PrintRegister(name string, filter evaluator.Filter) (string, error) {
	return fmt.Sprintf("%8s %s", name, "00 00 00 00 00 40 11 4f"), nil
}
func (s *fakeSession) PrintAddress(addr uint64, filter evaluator.Filter) (string, error) {
	return "", nil
}
func (s *fakeSession) PrintVariable(name string, filter evaluator.Filter) (string, error) {
	return "", nil
}
func (s *fakeSession) SetRegister(name, literal string, filter evaluator.Filter) (string, error) {
	return "", nil
}
func (s *fakeSession) SetAddress(addr uint64, literal string, filter evaluator.Filter) (string, error) {
	return "", nil
}
func (s *fakeSession) SetVariable(name, literal string, filter evaluator.Filter) (string, error) {
	return "", nil
}
func (s *fakeSession) Backtrace() ([]unwind.Frame, bool, error) { return nil, false, nil }
func (s *fakeSession) HasFunction(name string) bool             { return false }
func (s *fakeSession) FunctionAddress(name string) (uint64, bool) {
	return 0, false
}
func (s *fakeSession) HasVariable(name string) bool { return false }

func TestSourceWindowMarksStopLineWithContext(t *testing.T) {
	highlight.SetEnabled(false)
	src := &fakeSource{files: map[string][]string{
		"weird_sum.c": {
			"int weird_sum(int a,",
			"              int b) {",
			"  int c = a + 1;",
			"  int d = b + 2;",
			"  int e = c + d;",
			"  return e;",
			"}",
		},
	}}
	lines := SourceWindow(src, "weird_sum.c", 3)
	require.Len(t, lines, 6)
	assert.Equal(t, "    1    int weird_sum(int a,", lines[0])
	assert.Equal(t, "    3 ->   int c = a + 1;", lines[2])
	assert.Equal(t, "    6      return e;", lines[5])
}

func TestSourceWindowUnreadableFileReturnsNil(t *testing.T) {
	src := &fakeSource{files: map[string][]string{}}
	assert.Nil(t, SourceWindow(src, "missing.c", 1))
}

func TestRunPipedRepeatsLastCommandOnEmptyLine(t *testing.T) {
	sess := &fakeSession{}
	src := &fakeSource{}
	var out strings.Builder

	in := strings.NewReader("p %rip\n\nq\n")
	err := RunPiped(sess, src, in, &out)
	require.NoError(t, err)

	got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, got, 2)
	assert.Equal(t, "     rip 00 00 00 00 00 40 11 4f", got[0])
	assert.Equal(t, got[0], got[1])
}

func TestRunPipedShowsBreakpointBannerAndSourceWindow(t *testing.T) {
	sess := &fakeSession{stop: command.StopInfo{
		PC:             0x40115d,
		HitBreakpoint:  true,
		SourceFile:     "weird_sum.c",
		SourceLine:     3,
		HaveSourceLine: true,
	}}
	src := &fakeSource{files: map[string][]string{
		"weird_sum.c": {
			"int weird_sum(int a,",
			"              int b) {",
			"  int c = a + 1;",
			"  int d = b + 2;",
			"  int e = c + d;",
			"  return e;",
			"}",
		},
	}}
	var out strings.Builder
	err := RunPiped(sess, src, strings.NewReader("c\nq\n"), &out)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Hit breakpoint at address 0x000000000040115d in weird_sum.c")
	assert.Contains(t, got, "    3 ->   int c = a + 1;")
}
