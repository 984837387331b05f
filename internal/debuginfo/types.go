// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debuginfo implements the DWARF-derived model that translates
// between PC, source file+line, function names,
// lexical scopes, variable locations, and base/typedef/qualified type
// descriptions.
//
// Grounded on program/server/server.go's loadExecutable (debug/elf +
// debug/dwarf) and program/server/print.go's per-DWARF-kind type switch,
// rebuilt here with the standard library's debug/dwarf.Data.Type, which the
// teacher's vendored code.google.com/p/ogle/debug/dwarf fork predates.
package debuginfo

// Address is an absolute program-counter or memory address in the tracee's
// virtual address space,
type Address = uint64

// SourceLocation is the SourceLocation.
type SourceLocation struct {
	File   string
	Line   int
	Column int // 0 if unknown
}

// LineEntry is the LineEntry, one row of a compilation unit's
// .debug_line table.
type LineEntry struct {
	PC          Address
	File        string
	Line        int
	IsStmt      bool
	EndSequence bool
	PrologueEnd bool
}

// Function is the Function.
type Function struct {
	Name      string
	LowPC     Address
	HighPC    Address // half-open: [LowPC, HighPC)
	DeclFile  string
	DeclLine  int
	FrameBase LocationExpr
	Scope     *Scope
}

// Contains reports whether pc falls in the function's half-open range.
func (f *Function) Contains(pc Address) bool {
	return f != nil && pc >= f.LowPC && pc < f.HighPC
}

// Scope is a node of the lexical-block tree rooted at a function.
type Scope struct {
	LowPC     Address
	HighPC    Address
	Variables []Variable
	Children  []*Scope
}

// Contains reports whether pc falls within the scope's range.
func (s *Scope) Contains(pc Address) bool {
	return s != nil && pc >= s.LowPC && pc < s.HighPC
}

// Variable is the Variable.
type Variable struct {
	Name     string
	Type     TypeID
	Location LocationExpr
}

// TypeID indexes into a DebugInfo's type arena. Cross-references between
// types are always TypeIDs, never owning Go pointers, so cyclic C types
// (a struct with a pointer to itself) are representable.
type TypeID int

// TypeKind discriminates the tagged-variant Type.
type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindBase
	KindTypedef
	KindQualified
	KindPointer
	KindStruct
	KindUnion
	KindArray
)

// Encoding is a Base type's DWARF encoding classification.
type Encoding int

const (
	EncUnknown Encoding = iota
	EncSigned
	EncUnsigned
	EncSignedChar
	EncUnsignedChar
	EncBool
	EncFloat
	EncAddress
)

// Member is one field of a Struct/Union type.
type Member struct {
	Name       string
	Type       TypeID
	ByteOffset int64
}

// Type is the tagged-variant Type, realized as a single struct
// with only the fields relevant to Kind populated — Go has no tagged union,
// and a discriminated struct keeps the arena a flat, append-only slice.
type Type struct {
	Kind     TypeKind
	Name     string
	ByteSize int64

	Encoding Encoding // Base

	Aliased TypeID // Typedef

	CV         string // Qualified: "const", "volatile", ...
	Underlying TypeID // Qualified

	Pointee TypeID // Pointer

	Members []Member // Struct/Union

	Element TypeID // Array
	Count   int64  // Array; -1 if unknown
}

// LocKind discriminates the LocationExpr tagged variant.
type LocKind int

const (
	LocUnknown LocKind = iota
	LocRegister
	LocFrameBaseOffset
	LocAddress
	LocComposite
	// LocRegisterOffset is register value + a constant byte offset
	// (DW_OP_bregN). Its usual use is a function's DW_AT_frame_base (the
	// common -fno-omit-frame-pointer encoding is DW_OP_breg6 0, "the value
	// of %rbp"). decodeLocation also yields it for a Variable's own
	// Location; evaluator.ResolveLocation does not resolve it there and
	// reports an unsupported location.
	LocRegisterOffset
)

// LocationExpr is the LocationExpr: the small DWARF
// location-expression subset spray understands (Open Question (i)).
type LocationExpr struct {
	Kind   LocKind
	Reg    int     // LocRegister: DWARF register number
	Offset int64   // LocFrameBaseOffset: offset added to the frame base
	Addr   Address // LocAddress: absolute address

	Pieces []LocationExpr // LocComposite
}
