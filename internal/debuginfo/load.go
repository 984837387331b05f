// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debuginfo

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"io"
	"sort"
)

// DebugInfo is every line, function, scope, and type an executable's DWARF
// data describes, indexed for fast lookup.
//
// Grounded on program/server/server.go's loadExecutable, narrowed to ELF
// only — this module targets Linux/x86-64 executables exclusively, so the
// Mach-O branch (code.google.com/p/ogle/debug/macho) has nothing to serve
// and is dropped (see DESIGN.md).
type DebugInfo struct {
	lines []LineEntry  // all compile units, merged, sorted by PC ascending
	funcs []*Function  // sorted by LowPC ascending

	types       []Type
	typeIndex   map[dwarf.Offset]TypeID
	unknownType TypeID

	bias uint64
}

// Load reads path's ELF and DWARF sections and builds the line, function,
// scope, and type model. The returned addresses are as recorded in the
// object file; call ApplyLoadBias once the tracee's actual load address is
// known (non-zero only for position-independent executables).
func Load(path string) (*DebugInfo, error) {
	ef, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("debuginfo: opening %s: %w", path, err)
	}
	defer ef.Close()

	dd, err := ef.DWARF()
	if err != nil {
		return nil, fmt.Errorf("debuginfo: reading DWARF from %s: %w", path, err)
	}

	d := &DebugInfo{
		typeIndex:   make(map[dwarf.Offset]TypeID),
		unknownType: -1,
	}

	r := dd.Reader()
	for {
		cu, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("debuginfo: reading compile unit: %w", err)
		}
		if cu == nil {
			break
		}
		if cu.Tag != dwarf.TagCompileUnit {
			if cu.Children {
				r.SkipChildren()
			}
			continue
		}
		if err := d.loadCompileUnit(dd, r, cu); err != nil {
			return nil, fmt.Errorf("debuginfo: compile unit %s: %w", attrString(cu, dwarf.AttrName), err)
		}
	}

	sort.Slice(d.lines, func(i, j int) bool { return d.lines[i].PC < d.lines[j].PC })
	sort.Slice(d.funcs, func(i, j int) bool { return d.funcs[i].LowPC < d.funcs[j].LowPC })

	return d, nil
}

// IsPIE reports whether path is a position-independent executable
// (ET_DYN), the only case where internal/session has a non-zero load bias
// to resolve before calling ApplyLoadBias.
func IsPIE(path string) (bool, error) {
	ef, err := elf.Open(path)
	if err != nil {
		return false, fmt.Errorf("debuginfo: opening %s: %w", path, err)
	}
	defer ef.Close()
	return ef.Type == elf.ET_DYN, nil
}

// ApplyLoadBias adds bias to every address the DWARF data recorded. The
// load-time bias is resolved once at startup and added to every
// DWARF-supplied address — called once, by internal/session, right after
// the tracee's image is mapped. A statically linked, non-PIE executable
// has bias 0 and this is a no-op.
func (d *DebugInfo) ApplyLoadBias(bias uint64) {
	if bias == 0 {
		return
	}
	d.bias += bias
	for i := range d.lines {
		d.lines[i].PC += bias
	}
	for _, f := range d.funcs {
		f.LowPC += bias
		f.HighPC += bias
		rebaseScope(f.Scope, bias)
		if f.FrameBase.Kind == LocAddress {
			f.FrameBase.Addr += bias
		}
	}
}

func rebaseScope(s *Scope, bias uint64) {
	if s == nil {
		return
	}
	s.LowPC += bias
	s.HighPC += bias
	for i := range s.Variables {
		if s.Variables[i].Location.Kind == LocAddress {
			s.Variables[i].Location.Addr += bias
		}
	}
	for _, c := range s.Children {
		rebaseScope(c, bias)
	}
}

func (d *DebugInfo) loadCompileUnit(dd *dwarf.Data, r *dwarf.Reader, cu *dwarf.Entry) error {
	if lr, err := dd.LineReader(cu); err == nil && lr != nil {
		var entry dwarf.LineEntry
		for {
			err := lr.Next(&entry)
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("reading line table: %w", err)
			}
			name := ""
			if entry.File != nil {
				name = entry.File.Name
			}
			d.lines = append(d.lines, LineEntry{
				PC:          entry.Address,
				File:        name,
				Line:        entry.Line,
				IsStmt:      entry.IsStmt,
				EndSequence: entry.EndSequence,
				PrologueEnd: entry.PrologueEnd,
			})
		}
	}

	if !cu.Children {
		return nil
	}
	for {
		entry, err := r.Next()
		if err != nil {
			return err
		}
		if entry == nil || entry.Tag == 0 {
			break
		}
		if entry.Tag == dwarf.TagSubprogram {
			fn, err := d.loadFunction(dd, r, entry)
			if err != nil {
				return err
			}
			if fn != nil {
				d.funcs = append(d.funcs, fn)
			}
			continue
		}
		if entry.Children {
			r.SkipChildren()
		}
	}
	return nil
}

func (d *DebugInfo) loadFunction(dd *dwarf.Data, r *dwarf.Reader, entry *dwarf.Entry) (*Function, error) {
	name := attrString(entry, dwarf.AttrName)
	low, _ := entry.Val(dwarf.AttrLowpc).(uint64)
	high := highPC(entry, low)
	declLine := int(attrInt(entry, dwarf.AttrDeclLine))

	frameBase := LocationExpr{Kind: LocUnknown}
	if raw, ok := entry.Val(dwarf.AttrFrameBase).([]byte); ok {
		frameBase = decodeLocation(raw)
	}

	fn := &Function{
		Name:      name,
		LowPC:     low,
		HighPC:    high,
		DeclLine:  declLine,
		FrameBase: frameBase,
	}

	if entry.Children {
		scope, err := d.buildScope(dd, r)
		if err != nil {
			return nil, err
		}
		scope.LowPC, scope.HighPC = low, high
		fn.Scope = scope
	} else {
		fn.Scope = &Scope{LowPC: low, HighPC: high}
	}

	// Functions with no name or no range are declarations, not definitions
	// (e.g. extern prototypes); the Function model only describes
	// definitions with code.
	if name == "" || high <= low {
		return nil, nil
	}
	return fn, nil
}

func (d *DebugInfo) buildScope(dd *dwarf.Data, r *dwarf.Reader) (*Scope, error) {
	scope := &Scope{}
	for {
		entry, err := r.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil || entry.Tag == 0 {
			break
		}
		switch entry.Tag {
		case dwarf.TagFormalParameter, dwarf.TagVariable:
			v, err := d.loadVariable(dd, entry)
			if err != nil {
				return nil, err
			}
			if v.Name != "" {
				scope.Variables = append(scope.Variables, v)
			}
			if entry.Children {
				r.SkipChildren()
			}
		case dwarf.TagLexicalBlock:
			low, _ := entry.Val(dwarf.AttrLowpc).(uint64)
			high := highPC(entry, low)
			child := &Scope{LowPC: low, HighPC: high}
			if entry.Children {
				nested, err := d.buildScope(dd, r)
				if err != nil {
					return nil, err
				}
				child.Variables = nested.Variables
				child.Children = nested.Children
			}
			scope.Children = append(scope.Children, child)
		default:
			if entry.Children {
				r.SkipChildren()
			}
		}
	}
	return scope, nil
}

func (d *DebugInfo) loadVariable(dd *dwarf.Data, entry *dwarf.Entry) (Variable, error) {
	name := attrString(entry, dwarf.AttrName)
	var typeID TypeID
	if off, ok := entry.Val(dwarf.AttrType).(dwarf.Offset); ok {
		dt, err := dd.Type(off)
		if err != nil {
			typeID = d.unknownTypeID()
		} else {
			typeID = d.typeIDFor(dt)
		}
	} else {
		typeID = d.unknownTypeID()
	}
	loc := LocationExpr{Kind: LocUnknown}
	if raw, ok := entry.Val(dwarf.AttrLocation).([]byte); ok {
		loc = decodeLocation(raw)
	}
	return Variable{Name: name, Type: typeID, Location: loc}, nil
}

func attrString(entry *dwarf.Entry, attr dwarf.Attr) string {
	s, _ := entry.Val(attr).(string)
	return s
}

func attrInt(entry *dwarf.Entry, attr dwarf.Attr) int64 {
	switch v := entry.Val(attr).(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	}
	return 0
}

// highPC normalizes DW_AT_high_pc, which DWARF4+ encodes as an offset from
// low_pc (class constant) rather than an absolute address (class address,
// as in DWARF2/3).
func highPC(entry *dwarf.Entry, low uint64) uint64 {
	for _, f := range entry.Field {
		if f.Attr != dwarf.AttrHighpc {
			continue
		}
		switch v := f.Val.(type) {
		case uint64:
			if f.Class == dwarf.ClassAddress {
				return v
			}
			return low + v
		case int64:
			return low + uint64(v)
		}
	}
	return low
}
