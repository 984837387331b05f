// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debuginfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDebugInfo() *DebugInfo {
	d := &DebugInfo{unknownType: -1}

	d.lines = []LineEntry{
		{PC: 0x1000, File: "a.c", Line: 10, IsStmt: true},
		{PC: 0x1004, File: "a.c", Line: 11, IsStmt: true},
		{PC: 0x1008, File: "a.c", Line: 11, IsStmt: false},
		{PC: 0x100c, File: "a.c", Line: 12, IsStmt: true},
		{PC: 0x1010, File: "a.c", Line: 0, EndSequence: true},
	}

	inner := &Scope{
		LowPC:  0x1006,
		HighPC: 0x100c,
		Variables: []Variable{
			{Name: "x", Location: LocationExpr{Kind: LocFrameBaseOffset, Offset: -8}},
		},
	}
	outer := &Scope{
		LowPC: 0x1000,
		HighPC: 0x1010,
		Variables: []Variable{
			{Name: "x", Location: LocationExpr{Kind: LocFrameBaseOffset, Offset: -24}},
			{Name: "y", Location: LocationExpr{Kind: LocRegister, Reg: 0}},
		},
		Children: []*Scope{inner},
	}
	d.funcs = []*Function{
		{Name: "add", LowPC: 0x1000, HighPC: 0x1010, Scope: outer},
	}
	return d
}

func TestPCToLine(t *testing.T) {
	d := sampleDebugInfo()

	e, ok := d.PCToLine(0x1005)
	require.True(t, ok)
	assert.Equal(t, 11, e.Line)

	_, ok = d.PCToLine(0x1010)
	assert.False(t, ok, "end-of-sequence marker has no code")

	_, ok = d.PCToLine(0x2000)
	assert.False(t, ok, "address outside every sequence")
}

func TestLineToPCFallsThroughToNextStatement(t *testing.T) {
	d := sampleDebugInfo()

	pc, err := d.LineToPC("a.c", 11)
	require.NoError(t, err)
	assert.Equal(t, Address(0x1004), pc, "line 11 has an is_stmt entry directly")

	// No line 9 exists; line_to_pc should fall through to the first
	// is_stmt line at or after it.
	pc, err = d.LineToPC("a.c", 9)
	require.NoError(t, err)
	assert.Equal(t, Address(0x1000), pc)
}

func TestLineToPCNoMapping(t *testing.T) {
	d := sampleDebugInfo()
	_, err := d.LineToPC("a.c", 999)
	assert.Error(t, err)
}

func TestFunctionContaining(t *testing.T) {
	d := sampleDebugInfo()

	fn, ok := d.FunctionContaining(0x1004)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)

	_, ok = d.FunctionContaining(0x2000)
	assert.False(t, ok)
}

func TestFunctionByName(t *testing.T) {
	d := sampleDebugInfo()

	fn, err := d.FunctionByName("add")
	require.NoError(t, err)
	assert.Equal(t, Address(0x1000), fn.LowPC)

	_, err = d.FunctionByName("missing")
	assert.Error(t, err)
}

func TestVariableInnermostScopeWins(t *testing.T) {
	d := sampleDebugInfo()

	// Inside the inner lexical block: x resolves to the block-local shadow.
	v, err := d.Variable("x", 0x1007)
	require.NoError(t, err)
	assert.Equal(t, int64(-8), v.Location.Offset)

	// Outside the inner block but still in the function: x resolves to the
	// function-level declaration.
	v, err = d.Variable("x", 0x1001)
	require.NoError(t, err)
	assert.Equal(t, int64(-24), v.Location.Offset)

	_, err = d.Variable("z", 0x1001)
	assert.Error(t, err)
}

func TestCanonicalTypeFollowsTypedefAndQualifiers(t *testing.T) {
	d := &DebugInfo{unknownType: -1}
	base := TypeID(len(d.types))
	d.types = append(d.types, Type{Kind: KindBase, Name: "int", ByteSize: 4, Encoding: EncSigned})
	qual := TypeID(len(d.types))
	d.types = append(d.types, Type{Kind: KindQualified, CV: "const", Underlying: base})
	alias := TypeID(len(d.types))
	d.types = append(d.types, Type{Kind: KindTypedef, Name: "myint", Aliased: qual})

	id, ct := d.CanonicalType(alias)
	assert.Equal(t, base, id)
	assert.Equal(t, KindBase, ct.Kind)
	assert.Equal(t, EncSigned, ct.Encoding)
}
