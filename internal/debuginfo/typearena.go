// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debuginfo

import "debug/dwarf"

// typeIDFor returns the arena index for dt, building and caching it on
// first use. The cache is keyed by dt's DWARF offset (stable per compile
// unit), and a placeholder KindUnknown entry is recorded before recursing
// into dt's constituent types, so a struct containing a pointer to itself
// resolves to a TypeID cycle instead of infinite recursion — the arena
// models cross-references as indices, which is exactly what makes that
// representable.
func (d *DebugInfo) typeIDFor(dt dwarf.Type) TypeID {
	if dt == nil {
		return d.unknownTypeID()
	}
	off := dt.Common().Offset
	if id, ok := d.typeIndex[off]; ok {
		return id
	}
	id := TypeID(len(d.types))
	d.types = append(d.types, Type{Kind: KindUnknown, Name: dt.String()})
	d.typeIndex[off] = id
	d.types[id] = d.convertType(dt)
	return id
}

// UnknownTypeID returns the TypeID to use for a location with no declared
// type (a bare register or a raw memory address), guaranteed to resolve
// to Kind KindUnknown so DefaultDisplay always falls back to bytes.
func (d *DebugInfo) UnknownTypeID() TypeID { return d.unknownTypeID() }

func (d *DebugInfo) unknownTypeID() TypeID {
	if d.unknownType != -1 {
		return d.unknownType
	}
	id := TypeID(len(d.types))
	d.types = append(d.types, Type{Kind: KindUnknown, Name: "void"})
	d.unknownType = id
	return id
}

func (d *DebugInfo) convertType(dt dwarf.Type) Type {
	common := dt.Common()
	switch v := dt.(type) {
	case *dwarf.CharType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncSignedChar}
	case *dwarf.UcharType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncUnsignedChar}
	case *dwarf.BoolType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncBool}
	case *dwarf.IntType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncSigned}
	case *dwarf.UintType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncUnsigned}
	case *dwarf.FloatType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncFloat}
	case *dwarf.ComplexType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncFloat}
	case *dwarf.AddrType:
		return Type{Kind: KindBase, Name: common.Name, ByteSize: common.ByteSize, Encoding: EncAddress}
	case *dwarf.EnumType:
		return Type{Kind: KindBase, Name: v.EnumName, ByteSize: common.ByteSize, Encoding: EncSigned}
	case *dwarf.PtrType:
		return Type{Kind: KindPointer, Name: common.Name, ByteSize: 8, Pointee: d.typeIDFor(v.Type)}
	case *dwarf.TypedefType:
		return Type{Kind: KindTypedef, Name: common.Name, Aliased: d.typeIDFor(v.Type)}
	case *dwarf.QualType:
		return Type{Kind: KindQualified, Name: common.Name, CV: v.Qual, Underlying: d.typeIDFor(v.Type), ByteSize: common.ByteSize}
	case *dwarf.StructType:
		kind := KindStruct
		if v.Kind == "union" {
			kind = KindUnion
		}
		members := make([]Member, len(v.Field))
		for i, f := range v.Field {
			members[i] = Member{Name: f.Name, Type: d.typeIDFor(f.Type), ByteOffset: f.ByteOffset}
		}
		return Type{Kind: kind, Name: v.StructName, ByteSize: common.ByteSize, Members: members}
	case *dwarf.ArrayType:
		return Type{Kind: KindArray, Name: common.Name, ByteSize: common.ByteSize, Element: d.typeIDFor(v.Type), Count: v.Count}
	default:
		return Type{Kind: KindUnknown, Name: dt.String(), ByteSize: common.ByteSize}
	}
}

// ResolveType returns the arena entry for id.
func (d *DebugInfo) ResolveType(id TypeID) Type {
	if int(id) < 0 || int(id) >= len(d.types) {
		return Type{Kind: KindUnknown}
	}
	return d.types[id]
}

// CanonicalType follows Typedef and Qualified links until it reaches a
// Base, Pointer, Struct, Union, Array, or Unknown type — the "canonical
// type" the GLOSSARY defines for display-filter and literal-parsing
// purposes.
func (d *DebugInfo) CanonicalType(id TypeID) (TypeID, Type) {
	t := d.ResolveType(id)
	for {
		switch t.Kind {
		case KindTypedef:
			id = t.Aliased
		case KindQualified:
			id = t.Underlying
		default:
			return id, t
		}
		t = d.ResolveType(id)
	}
}
