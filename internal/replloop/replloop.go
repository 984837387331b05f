// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package replloop implements spray's read-eval-print loop: read a line,
// hand it to internal/command, render what comes back, and show the
// surrounding source window whenever the child stops at a known location.
//
// Grounded on cmd/cpu/debug.go's read loop (empty input repeats the last
// command) with bufio.Reader replaced by github.com/chzyer/readline for
// history and line editing, which this module already pulled in as a
// dependency without ever wiring it up.
package replloop

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/thass0/spray/internal/command"
	"github.com/thass0/spray/internal/highlight"
)

// SourceReader supplies the lines of a source file for the source window.
// cmd/spray backs it with files read from disk; the repl never opens
// source files itself (the design scopes file I/O to an external
// collaborator).
type SourceReader interface {
	Lines(file string) ([]string, error)
}

// contextLines is how many lines of context the source window shows
// before and after the marked line.
const contextLines = 3

// Repl drives the interactive session against sess until the input stream
// ends or the user types quit.
type Repl struct {
	sess    command.Session
	src     SourceReader
	in      io.ReadCloser
	out     io.Writer
	rl      *readline.Instance
	lastCmd string
}

// New builds a Repl whose input, prompt, line editing and history all go
// through readline. Non-interactive input (piped, as in tests) is served by
// RunPiped instead, which reads with a plain bufio.Scanner and writes no
// prompt.
func New(sess command.Session, src SourceReader, out io.Writer) (*Repl, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "(spray) ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          out,
	})
	if err != nil {
		return nil, fmt.Errorf("start readline: %w", err)
	}
	return &Repl{sess: sess, src: src, out: out, rl: rl}, nil
}

// Close releases the readline instance's terminal state.
func (r *Repl) Close() error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}

// Run reads commands until EOF, an I/O error, or the quit command. A source
// window is shown only after a command resumes the tracee; none is shown
// before the first command.
func (r *Repl) Run() error {
	for {
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			line = r.lastCmd
		}
		if line == "" {
			continue
		}
		r.lastCmd = line

		res, err := command.Execute(r.sess, line)
		if command.IsQuit(err) {
			return nil
		}
		for _, l := range res.Lines {
			fmt.Fprintln(r.out, l)
		}
		if res.Resume != nil {
			r.showStop(*res.Resume)
		}
	}
}

// RunPiped is an alternative entry point for non-interactive input (tests,
// scripted sessions): it reads whitespace-delimited lines from in with a
// plain bufio.Scanner instead of readline, preserving the same
// repeat-on-empty-line and source-window behavior.
func RunPiped(sess command.Session, src SourceReader, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	lastCmd := ""
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			line = lastCmd
		}
		if line == "" {
			continue
		}
		lastCmd = line

		res, err := command.Execute(sess, line)
		if command.IsQuit(err) {
			return nil
		}
		for _, l := range res.Lines {
			fmt.Fprintln(out, l)
		}
		if res.Resume != nil {
			showStopTo(sess, src, out, *res.Resume)
		}
	}
	return sc.Err()
}

func (r *Repl) showStop(st command.StopInfo) {
	showStopTo(r.sess, r.src, r.out, st)
}

// showStopTo renders the breakpoint-hit banner (when the stop landed on a
// breakpoint,) and the source window around the stop PC.
func showStopTo(sess command.Session, src SourceReader, out io.Writer, st command.StopInfo) {
	if st.Exited {
		fmt.Fprintf(out, "Child exited with code %d\n", st.ExitCode)
		return
	}
	if st.HitBreakpoint {
		fmt.Fprintf(out, "Hit breakpoint at address 0x%016x in %s\n", st.PC, st.SourceFile)
	}
	if !st.HaveSourceLine {
		return
	}
	for _, l := range SourceWindow(src, st.SourceFile, st.SourceLine) {
		fmt.Fprintln(out, l)
	}
}

// SourceWindow renders contextLines of source before and after line,
// highlighting each and marking line with "->". Returns nil if the source
// file can't be read.
func SourceWindow(src SourceReader, file string, line int) []string {
	lines, err := src.Lines(file)
	if err != nil {
		return nil
	}
	lo := line - contextLines
	if lo < 1 {
		lo = 1
	}
	hi := line + contextLines
	if hi > len(lines) {
		hi = len(lines)
	}

	var out []string
	for n := lo; n <= hi; n++ {
		marker := "  "
		if n == line {
			marker = "->"
		}
		text := ""
		if n-1 < len(lines) {
			text = highlight.Line(lines[n-1])
		}
		out = append(out, fmt.Sprintf("%5d %s %s", n, marker, text))
	}
	return out
}
