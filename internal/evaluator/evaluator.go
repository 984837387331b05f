// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package evaluator implements spray's value layer: resolving a
// LocationExpr to an address or register, reading/writing the typed value
// that lives there, and rendering it for `print`/`set` the way
// program/server/print.go's Printer renders a live *dwarf.Type value —
// generalized here from Go runtime values to the C type system
// describes (Base/Typedef/Qualified/Pointer/Struct/Union/Array).
package evaluator

import (
	"fmt"

	"github.com/thass0/spray/internal/arch"
	"github.com/thass0/spray/internal/debuginfo"
)

// Memory is the byte-level read/write surface the evaluator needs.
type Memory interface {
	ReadMemory(addr uint64, length int) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error
}

// Registers is the register read/write surface the evaluator needs.
type Registers interface {
	GetDWARF(n int) (uint64, error)
	GetName(name string) (uint64, error)
	SetName(name string, v uint64) error
}

// TypeResolver is the subset of *debuginfo.DebugInfo the evaluator needs to
// make sense of a Variable's Type field.
type TypeResolver interface {
	ResolveType(id debuginfo.TypeID) debuginfo.Type
	CanonicalType(id debuginfo.TypeID) (debuginfo.TypeID, debuginfo.Type)
}

// Evaluator resolves locations and reads/writes typed values.
type Evaluator struct {
	Mem  Memory
	Regs Registers
	Info TypeResolver
}

// New builds an Evaluator over the given tracee and debug info surfaces.
func New(mem Memory, regs Registers, info TypeResolver) *Evaluator {
	return &Evaluator{Mem: mem, Regs: regs, Info: info}
}

// ResolvedLocation is where a LocationExpr ultimately lives: either a
// register (Name set) or a memory address (IsMemory set).
type ResolvedLocation struct {
	IsMemory bool
	Addr     uint64
	RegName  string
}

// ResolveFrameBase evaluates a function's DW_AT_frame_base expression
// against the current register file, producing the address subsequent
// DW_OP_fbreg(+offset) variable locations are relative to.
func (e *Evaluator) ResolveFrameBase(fb debuginfo.LocationExpr) (uint64, error) {
	switch fb.Kind {
	case debuginfo.LocAddress:
		return fb.Addr, nil
	case debuginfo.LocRegister:
		return e.Regs.GetDWARF(fb.Reg)
	case debuginfo.LocRegisterOffset:
		v, err := e.Regs.GetDWARF(fb.Reg)
		if err != nil {
			return 0, err
		}
		return uint64(int64(v) + fb.Offset), nil
	default:
		return 0, fmt.Errorf("unsupported frame base expression")
	}
}

// ResolveLocation turns loc into a concrete register or memory address,
// given the function's already-evaluated frame base.
func (e *Evaluator) ResolveLocation(loc debuginfo.LocationExpr, frameBase uint64, frameBaseKnown bool) (ResolvedLocation, error) {
	switch loc.Kind {
	case debuginfo.LocAddress:
		return ResolvedLocation{IsMemory: true, Addr: loc.Addr}, nil
	case debuginfo.LocRegister:
		name := arch.DWARFRegisterName(arch.Register(loc.Reg))
		if name == "" {
			return ResolvedLocation{}, fmt.Errorf("<unsupported location>")
		}
		return ResolvedLocation{RegName: name}, nil
	case debuginfo.LocFrameBaseOffset:
		if !frameBaseKnown {
			return ResolvedLocation{}, fmt.Errorf("<unsupported location>")
		}
		return ResolvedLocation{IsMemory: true, Addr: uint64(int64(frameBase) + loc.Offset)}, nil
	default:
		return ResolvedLocation{}, fmt.Errorf("<unsupported location>")
	}
}

// ReadBytes reads the raw bytes backing a resolved location.
func (e *Evaluator) ReadBytes(loc ResolvedLocation, size int) ([]byte, error) {
	if loc.IsMemory {
		return e.Mem.ReadMemory(loc.Addr, size)
	}
	v, err := e.Regs.GetName(loc.RegName)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, arch.IntSize)
	arch.ByteOrder.PutUint64(buf, v)
	if size > len(buf) {
		size = len(buf)
	}
	return buf[:size], nil
}

// WriteBytes writes raw bytes to a resolved location. Writing a register
// always replaces the full 8-byte register value; data shorter than 8
// bytes is zero-extended the way an assignment to a narrower C variable
// would leave the upper bytes of its backing register undefined in
// practice, but spray pads with zero for determinism.
func (e *Evaluator) WriteBytes(loc ResolvedLocation, data []byte) error {
	if loc.IsMemory {
		return e.Mem.WriteMemory(loc.Addr, data)
	}
	buf := make([]byte, arch.IntSize)
	copy(buf, data)
	v := arch.ByteOrder.Uint64(buf)
	return e.Regs.SetName(loc.RegName, v)
}
