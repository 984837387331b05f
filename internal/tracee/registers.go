// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracee

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// RegisterFile is the x86-64 user_regs_struct, the RegisterFile.
// It mirrors unix.PtraceRegs field for field so GetRegisters/SetRegisters
// can copy it directly; spray never stores a *unix.PtraceRegs outside this
// package so callers don't take on a golang.org/x/sys/unix dependency.
type RegisterFile struct {
	Rax      uint64
	Rbx      uint64
	Rcx      uint64
	Rdx      uint64
	Rdi      uint64
	Rsi      uint64
	Rbp      uint64
	Rsp      uint64
	R8       uint64
	R9       uint64
	R10      uint64
	R11      uint64
	R12      uint64
	R13      uint64
	R14      uint64
	R15      uint64
	Rip      uint64
	Eflags   uint64
	Cs       uint64
	Ss       uint64
	Ds       uint64
	Es       uint64
	Fs       uint64
	Gs       uint64
	OrigRax  uint64
	FsBase   uint64
	GsBase   uint64
}

func fromPtrace(r *unix.PtraceRegs) RegisterFile {
	return RegisterFile{
		Rax: r.Rax, Rbx: r.Rbx, Rcx: r.Rcx, Rdx: r.Rdx,
		Rdi: r.Rdi, Rsi: r.Rsi, Rbp: r.Rbp, Rsp: r.Rsp,
		R8: r.R8, R9: r.R9, R10: r.R10, R11: r.R11,
		R12: r.R12, R13: r.R13, R14: r.R14, R15: r.R15,
		Rip: r.Rip, Eflags: r.Eflags,
		Cs: r.Cs, Ss: r.Ss, Ds: r.Ds, Es: r.Es, Fs: r.Fs, Gs: r.Gs,
		OrigRax: r.Orig_rax, FsBase: r.Fs_base, GsBase: r.Gs_base,
	}
}

func (f RegisterFile) toPtrace() unix.PtraceRegs {
	return unix.PtraceRegs{
		Rax: f.Rax, Rbx: f.Rbx, Rcx: f.Rcx, Rdx: f.Rdx,
		Rdi: f.Rdi, Rsi: f.Rsi, Rbp: f.Rbp, Rsp: f.Rsp,
		R8: f.R8, R9: f.R9, R10: f.R10, R11: f.R11,
		R12: f.R12, R13: f.R13, R14: f.R14, R15: f.R15,
		Rip: f.Rip, Eflags: f.Eflags,
		Cs: f.Cs, Ss: f.Ss, Ds: f.Ds, Es: f.Es, Fs: f.Fs, Gs: f.Gs,
		Orig_rax: f.OrigRax, Fs_base: f.FsBase, Gs_base: f.GsBase,
	}
}

// Get returns the value of the named register ("rax", "rip", ...).
func (f RegisterFile) Get(name string) (uint64, error) {
	switch name {
	case "rax":
		return f.Rax, nil
	case "rbx":
		return f.Rbx, nil
	case "rcx":
		return f.Rcx, nil
	case "rdx":
		return f.Rdx, nil
	case "rdi":
		return f.Rdi, nil
	case "rsi":
		return f.Rsi, nil
	case "rbp":
		return f.Rbp, nil
	case "rsp":
		return f.Rsp, nil
	case "r8":
		return f.R8, nil
	case "r9":
		return f.R9, nil
	case "r10":
		return f.R10, nil
	case "r11":
		return f.R11, nil
	case "r12":
		return f.R12, nil
	case "r13":
		return f.R13, nil
	case "r14":
		return f.R14, nil
	case "r15":
		return f.R15, nil
	case "rip":
		return f.Rip, nil
	case "eflags":
		return f.Eflags, nil
	case "cs":
		return f.Cs, nil
	case "ss":
		return f.Ss, nil
	case "ds":
		return f.Ds, nil
	case "es":
		return f.Es, nil
	case "fs":
		return f.Fs, nil
	case "gs":
		return f.Gs, nil
	case "orig_rax":
		return f.OrigRax, nil
	case "fs_base":
		return f.FsBase, nil
	case "gs_base":
		return f.GsBase, nil
	}
	return 0, fmt.Errorf("unknown register %q", name)
}

// Set writes the value of the named register and returns the updated file.
func (f RegisterFile) Set(name string, v uint64) (RegisterFile, error) {
	switch name {
	case "rax":
		f.Rax = v
	case "rbx":
		f.Rbx = v
	case "rcx":
		f.Rcx = v
	case "rdx":
		f.Rdx = v
	case "rdi":
		f.Rdi = v
	case "rsi":
		f.Rsi = v
	case "rbp":
		f.Rbp = v
	case "rsp":
		f.Rsp = v
	case "r8":
		f.R8 = v
	case "r9":
		f.R9 = v
	case "r10":
		f.R10 = v
	case "r11":
		f.R11 = v
	case "r12":
		f.R12 = v
	case "r13":
		f.R13 = v
	case "r14":
		f.R14 = v
	case "r15":
		f.R15 = v
	case "rip":
		f.Rip = v
	case "eflags":
		f.Eflags = v
	case "cs":
		f.Cs = v
	case "ss":
		f.Ss = v
	case "ds":
		f.Ds = v
	case "es":
		f.Es = v
	case "fs":
		f.Fs = v
	case "gs":
		f.Gs = v
	case "orig_rax":
		f.OrigRax = v
	case "fs_base":
		f.FsBase = v
	case "gs_base":
		f.GsBase = v
	default:
		return f, fmt.Errorf("unknown register %q", name)
	}
	return f, nil
}

// GetDWARF returns the value of the register with the given DWARF register
// number, as used by Register(n) location expressions.
func (f RegisterFile) GetDWARF(n int) (uint64, error) {
	switch n {
	case 0:
		return f.Rax, nil
	case 1:
		return f.Rdx, nil
	case 2:
		return f.Rcx, nil
	case 3:
		return f.Rbx, nil
	case 4:
		return f.Rsi, nil
	case 5:
		return f.Rdi, nil
	case 6:
		return f.Rbp, nil
	case 7:
		return f.Rsp, nil
	case 8:
		return f.R8, nil
	case 9:
		return f.R9, nil
	case 10:
		return f.R10, nil
	case 11:
		return f.R11, nil
	case 12:
		return f.R12, nil
	case 13:
		return f.R13, nil
	case 14:
		return f.R14, nil
	case 15:
		return f.R15, nil
	case 16:
		return f.Rip, nil
	}
	return 0, fmt.Errorf("unsupported DWARF register number %d", n)
}
