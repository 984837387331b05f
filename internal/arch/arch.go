// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch contains the x86-64-specific definitions spray needs: the
// breakpoint trap byte, register widths, and the DWARF register-number
// mapping used to decode Register(n) location expressions.
package arch

import "encoding/binary"

// BreakpointSize is the size, in bytes, of the x86-64 software breakpoint
// instruction (INT3).
const BreakpointSize = 1

// BreakpointInstr is the byte written to install a breakpoint.
const BreakpointInstr byte = 0xCC

// PointerSize and IntSize are the x86-64 ABI sizes spray's evaluator needs
// when no DWARF byte size is available.
const (
	PointerSize = 8
	IntSize     = 8
)

// ByteOrder is the byte order of all multi-byte values in the tracee's
// address space.
var ByteOrder = binary.LittleEndian

// Register identifies one of the 27 user registers the kernel exposes via
// PTRACE_GETREGS/PTRACE_SETREGS (user_regs_struct), addressable from
// command operands as "%name" and from DWARF location expressions as a
// DWARF register number.
type Register int

// DWARF register numbers for x86-64 (System V ABI, table 3.36 of the
// x86-64 psABI). Only the registers spray's location-expression subset can
// reference are named; others resolve to Unknown.
const (
	RAX Register = 0
	RDX Register = 1
	RCX Register = 2
	RBX Register = 3
	RSI Register = 4
	RDI Register = 5
	RBP Register = 6
	RSP Register = 7
	R8  Register = 8
	R9  Register = 9
	R10 Register = 10
	R11 Register = 11
	R12 Register = 12
	R13 Register = 13
	R14 Register = 14
	R15 Register = 15
	RIP Register = 16
)

// registerNames lists every field of the kernel's user_regs_struct, in the
// order names them, independent of DWARF numbering: this is the
// set %-prefixed command operands and the register dump walk over.
var registerNames = []string{
	"rax", "rbx", "rcx", "rdx", "rdi", "rsi", "rbp", "rsp",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"rip", "eflags", "cs", "ss", "ds", "es", "fs", "gs",
	"orig_rax", "fs_base", "gs_base",
}

// RegisterNames returns the stable, ordered list of the 27 user registers.
func RegisterNames() []string {
	out := make([]string, len(registerNames))
	copy(out, registerNames)
	return out
}

// IsRegisterName reports whether name (without a leading '%') names one of
// the 27 user registers.
func IsRegisterName(name string) bool {
	for _, n := range registerNames {
		if n == name {
			return true
		}
	}
	return false
}

// DWARFRegisterName maps a DWARF register number to its user_regs_struct
// field name, or "" if spray doesn't track that register.
func DWARFRegisterName(n Register) string {
	switch n {
	case RAX:
		return "rax"
	case RDX:
		return "rdx"
	case RCX:
		return "rcx"
	case RBX:
		return "rbx"
	case RSI:
		return "rsi"
	case RDI:
		return "rdi"
	case RBP:
		return "rbp"
	case RSP:
		return "rsp"
	case R8:
		return "r8"
	case R9:
		return "r9"
	case R10:
		return "r10"
	case R11:
		return "r11"
	case R12:
		return "r12"
	case R13:
		return "r13"
	case R14:
		return "r14"
	case R15:
		return "r15"
	case RIP:
		return "rip"
	}
	return ""
}
