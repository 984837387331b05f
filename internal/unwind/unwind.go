// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unwind implements spray's frame-pointer-based stack
// unwinding and symbolization.
//
// Grounded on program/server/server.go's Frames method, which walks %rbp
// chains the same way: the return address lives at *(rbp+8), the caller's
// frame pointer at *rbp, and a sanity loop guard stops runaway chains.
package unwind

import "github.com/thass0/spray/internal/arch"

// Frame is the Frame.
type Frame struct {
	PC         uint64
	FrameBase  uint64 // the frame's %rbp value
	Function   string // "" if unsymbolized
	DeclLine   int
	SourceFile string
	SourceLine int
}

// Memory is the subset of *tracee.Tracee unwinding needs.
type Memory interface {
	ReadMemory(addr uint64, length int) ([]byte, error)
}

// Symbolizer resolves a PC to the enclosing function and source line, the
// way internal/debuginfo.DebugInfo does; kept as an interface so unwind can
// be tested without real DWARF data.
type Symbolizer interface {
	FunctionNameAt(pc uint64) (name string, declLine int, ok bool)
	SourceLocationAt(pc uint64) (file string, line int, ok bool)
}

// MaxFrames bounds the walk so a corrupted or frame-pointer-omitted chain
// can't loop forever.
const MaxFrames = 1024

// Backtrace implements backtrace: starting from pc/frameBase
// (the tracee's current %rip/%rbp), it walks the saved-frame-pointer chain
// until a frame pointer of 0 (or an unreadable one) is reached.
//
// framePointerOmitted reports whether any frame in the chain looked
// implausible (frame pointer not in a sane range relative to its caller),
// the heuristic the design uses to detect -fomit-frame-pointer builds and
// print the accompanying warning.
func Backtrace(mem Memory, sym Symbolizer, pc, frameBase uint64) (frames []Frame, framePointerOmitted bool) {
	fp := frameBase
	cur := pc
	seen := make(map[uint64]bool)

	for i := 0; i < MaxFrames; i++ {
		frame := Frame{PC: cur, FrameBase: fp}
		if name, declLine, ok := sym.FunctionNameAt(cur); ok {
			frame.Function = name
			frame.DeclLine = declLine
		}
		if file, line, ok := sym.SourceLocationAt(cur); ok {
			frame.SourceFile = file
			frame.SourceLine = line
		}
		frames = append(frames, frame)

		if fp == 0 {
			break
		}
		if seen[fp] {
			// A cycle in the frame-pointer chain is only possible with a
			// corrupted or absent frame pointer.
			framePointerOmitted = true
			break
		}
		seen[fp] = true

		retAddrBuf, err := mem.ReadMemory(fp+arch.PointerSize, arch.PointerSize)
		if err != nil {
			break
		}
		savedFPBuf, err := mem.ReadMemory(fp, arch.PointerSize)
		if err != nil {
			break
		}
		retAddr := arch.ByteOrder.Uint64(retAddrBuf)
		savedFP := arch.ByteOrder.Uint64(savedFPBuf)

		if retAddr == 0 {
			break
		}
		// A legitimate caller frame sits at a strictly higher address (the
		// stack grows down); anything else means the chain isn't real
		// frame-pointer-linked data, the signature of a frame-pointer-
		// omitting build.
		if savedFP != 0 && savedFP <= fp {
			framePointerOmitted = true
			break
		}

		cur = retAddr
		fp = savedFP
	}
	return frames, framePointerOmitted
}
