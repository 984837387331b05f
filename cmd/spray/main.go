// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command spray is a source-level debugger for native ELF executables on
// Linux/x86-64: launch an executable under ptrace, set breakpoints by
// function name, file:line, or address, step through source lines, and
// inspect registers, memory, and typed variables from an interactive REPL.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thass0/spray/internal/highlight"
	"github.com/thass0/spray/internal/replloop"
	"github.com/thass0/spray/internal/session"
)

const usageLine = "usage: spray [--no-color] [--] <executable> [argv...]"

func main() {
	cmd := &cobra.Command{
		Use:                "spray [--no-color] [--] <executable> [argv...]",
		Short:              "A source-level debugger for native ELF executables",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE:               run,
	}
	cmd.SetUsageFunc(func(*cobra.Command) error {
		fmt.Fprintln(os.Stderr, usageLine)
		return nil
	})
	cmd.SetHelpFunc(func(*cobra.Command, []string) {
		fmt.Fprintln(os.Stderr, usageLine)
	})

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, usageLine)
		os.Exit(2)
	}
}

// parseArgs splits spray's own flags from the executable and its argv. Only
// a leading run of flags is recognized; everything from the executable name
// on is passed through untouched, since the child's own flags must never be
// interpreted by spray.
func parseArgs(args []string) (noColor bool, exe string, argv []string, err error) {
	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		switch a {
		case "--no-color", "-c":
			noColor = true
			continue
		}
		if strings.HasPrefix(a, "-") {
			return false, "", nil, fmt.Errorf("unknown flag %q", a)
		}
		break
	}

	rest := args[i:]
	if len(rest) == 0 {
		return false, "", nil, fmt.Errorf("missing executable")
	}
	return noColor, rest[0], rest[1:], nil
}

func run(_ *cobra.Command, args []string) error {
	noColor, exe, argv, err := parseArgs(args)
	if err != nil {
		return err
	}

	highlight.SetEnabled(!noColor)

	sess, err := session.Launch(exe, append([]string{exe}, argv...))
	if err != nil {
		return fmt.Errorf("launching %s: %w", exe, err)
	}
	defer sess.Kill()

	repl, err := replloop.New(sess, newFileSourceReader(), os.Stdout)
	if err != nil {
		return err
	}
	defer repl.Close()

	return repl.Run()
}
