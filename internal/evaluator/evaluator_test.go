// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thass0/spray/internal/debuginfo"
)

type fakeMemory struct {
	data map[uint64][]byte
}

func (m *fakeMemory) ReadMemory(addr uint64, length int) ([]byte, error) {
	buf, ok := m.data[addr]
	if !ok {
		buf = make([]byte, length)
	}
	if len(buf) < length {
		out := make([]byte, length)
		copy(out, buf)
		return out, nil
	}
	return buf[:length], nil
}

func (m *fakeMemory) WriteMemory(addr uint64, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[addr] = buf
	return nil
}

type fakeRegisters struct {
	values map[string]uint64
}

func (r *fakeRegisters) GetDWARF(n int) (uint64, error) {
	if n == 6 {
		return r.values["rbp"], nil
	}
	return 0, nil
}

func (r *fakeRegisters) GetName(name string) (uint64, error) { return r.values[name], nil }

func (r *fakeRegisters) SetName(name string, v uint64) error {
	r.values[name] = v
	return nil
}

type fakeTypes struct {
	types []debuginfo.Type
}

func (f *fakeTypes) ResolveType(id debuginfo.TypeID) debuginfo.Type {
	if int(id) < 0 || int(id) >= len(f.types) {
		return debuginfo.Type{}
	}
	return f.types[id]
}

func (f *fakeTypes) CanonicalType(id debuginfo.TypeID) (debuginfo.TypeID, debuginfo.Type) {
	return id, f.ResolveType(id)
}

func TestSetThenPrintRoundTrips(t *testing.T) {
	mem := &fakeMemory{data: map[uint64][]byte{}}
	regs := &fakeRegisters{values: map[string]uint64{"rbp": 0x7ffc}}
	types := &fakeTypes{types: []debuginfo.Type{
		{Kind: debuginfo.KindBase, Encoding: debuginfo.EncSigned, ByteSize: 8},
	}}
	ev := New(mem, regs, types)

	target := Target{
		Location: debuginfo.LocationExpr{Kind: debuginfo.LocFrameBaseOffset, Offset: -8},
		Type:     0,
	}
	fb, err := ev.ResolveFrameBase(debuginfo.LocationExpr{Kind: debuginfo.LocRegisterOffset, Reg: 6, Offset: 0})
	require.NoError(t, err)
	target.FrameBase = fb
	target.HaveFB = true

	out, err := ev.Set(target, "42", FilterDefault)
	require.NoError(t, err)
	assert.Equal(t, "42", out)

	out, err = ev.Print(target, FilterDefault)
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}

func TestPrintUntypedRegisterDefaultsToBytes(t *testing.T) {
	mem := &fakeMemory{data: map[uint64][]byte{}}
	regs := &fakeRegisters{values: map[string]uint64{"rip": 0x40114f}}
	types := &fakeTypes{}
	ev := New(mem, regs, types)

	target := Target{
		Tag:      "rip",
		Location: debuginfo.LocationExpr{Kind: debuginfo.LocRegister, Reg: 16},
		Type:     -1,
	}
	out, err := ev.Print(target, FilterDefault)
	require.NoError(t, err)
	assert.Equal(t, "00 00 00 00 00 40 11 4f", out)
}

func TestFilterOverridesType(t *testing.T) {
	mem := &fakeMemory{data: map[uint64][]byte{0x1000: {0xef, 0xbe, 0xad, 0xde, 0, 0, 0, 0}}}
	regs := &fakeRegisters{values: map[string]uint64{}}
	types := &fakeTypes{types: []debuginfo.Type{
		{Kind: debuginfo.KindBase, Encoding: debuginfo.EncUnsigned, ByteSize: 4},
	}}
	ev := New(mem, regs, types)

	target := Target{Location: debuginfo.LocationExpr{Kind: debuginfo.LocAddress, Addr: 0x1000}, Type: 0}
	out, err := ev.Print(target, FilterDec)
	require.NoError(t, err)
	assert.Equal(t, "-559038737", out)
}

func TestFormatLineWithSetAndLocation(t *testing.T) {
	loc := &debuginfo.SourceLocation{File: "tests/assets/simple.c", Line: 12}
	line := FormatLine("rax", "123", true, loc)
	assert.Equal(t, "     rax 123 (read after write) (tests/assets/simple.c:12)", line)

	line = FormatLine("", "0x1000", false, nil)
	assert.Equal(t, "         0x1000", line)
}
