// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package breakpoint implements spray's address-keyed breakpoint registry,
// built on top of internal/tracee's byte-level memory I/O the way
// program/server/server.go's breakpoint map does.
package breakpoint

import (
	"fmt"

	"github.com/thass0/spray/internal/arch"
)

// MemoryIO is the subset of *tracee.Tracee the registry needs. Breakpoints
// never touches registers or resume state directly — only byte I/O — so it
// depends on this narrow interface rather than the whole Tracee, letting
// tests substitute a fake.
type MemoryIO interface {
	ReadMemory(addr uint64, length int) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error
}

// Breakpoint is the Breakpoint record.
type Breakpoint struct {
	Addr         uint64
	OriginalByte byte
	Enabled      bool
}

// Registry is the at-most-one-per-address breakpoint map.
type Registry struct {
	mem MemoryIO
	m   map[uint64]*Breakpoint
}

// New returns an empty registry that patches bytes through mem.
func New(mem MemoryIO) *Registry {
	return &Registry{mem: mem, m: make(map[uint64]*Breakpoint)}
}

// Set installs a breakpoint at addr. Idempotent: setting an address that
// already has one is a no-op, per
func (r *Registry) Set(addr uint64) (*Breakpoint, error) {
	if bp, ok := r.m[addr]; ok {
		return bp, nil
	}
	orig, err := r.mem.ReadMemory(addr, arch.BreakpointSize)
	if err != nil {
		return nil, fmt.Errorf("break: reading original byte at %#x: %w", addr, err)
	}
	if err := r.mem.WriteMemory(addr, []byte{arch.BreakpointInstr}); err != nil {
		return nil, fmt.Errorf("break: writing trap byte at %#x: %w", addr, err)
	}
	bp := &Breakpoint{Addr: addr, OriginalByte: orig[0], Enabled: true}
	r.m[addr] = bp
	return bp, nil
}

// Remove restores the original byte (if enabled) and deletes the entry.
func (r *Registry) Remove(addr uint64) error {
	bp, ok := r.m[addr]
	if !ok {
		return nil
	}
	if bp.Enabled {
		if err := r.mem.WriteMemory(addr, []byte{bp.OriginalByte}); err != nil {
			return fmt.Errorf("delete: restoring byte at %#x: %w", addr, err)
		}
	}
	delete(r.m, addr)
	return nil
}

// Disable temporarily restores the original byte without forgetting the
// breakpoint, so a later Enable re-arms it. Used while single-stepping over
// the instruction hosting a breakpoint.
func (r *Registry) Disable(addr uint64) error {
	bp, ok := r.m[addr]
	if !ok || !bp.Enabled {
		return nil
	}
	if err := r.mem.WriteMemory(addr, []byte{bp.OriginalByte}); err != nil {
		return fmt.Errorf("disabling breakpoint at %#x: %w", addr, err)
	}
	bp.Enabled = false
	return nil
}

// Enable is the inverse of Disable.
func (r *Registry) Enable(addr uint64) error {
	bp, ok := r.m[addr]
	if !ok || bp.Enabled {
		return nil
	}
	if err := r.mem.WriteMemory(addr, []byte{arch.BreakpointInstr}); err != nil {
		return fmt.Errorf("enabling breakpoint at %#x: %w", addr, err)
	}
	bp.Enabled = true
	return nil
}

// At returns the breakpoint registered at addr, if any.
func (r *Registry) At(addr uint64) (*Breakpoint, bool) {
	bp, ok := r.m[addr]
	return bp, ok
}

// Hit reports whether an enabled breakpoint sits at pc-1: after an INT3
// traps, RIP points just past the trap byte, so the effective breakpoint
// address is one less.
func (r *Registry) Hit(pc uint64) bool {
	bp, ok := r.m[pc-1]
	return ok && bp.Enabled
}

// All returns every registered breakpoint, in no particular order.
func (r *Registry) All() []*Breakpoint {
	out := make([]*Breakpoint, 0, len(r.m))
	for _, bp := range r.m {
		out = append(out, bp)
	}
	return out
}
