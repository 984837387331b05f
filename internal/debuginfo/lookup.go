// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debuginfo

import "sort"

// PCToLine implements pc_to_line: the line-table row covering
// pc, or false if pc falls outside every known sequence (e.g. PLT stubs,
// library code with no debug info).
func (d *DebugInfo) PCToLine(pc Address) (LineEntry, bool) {
	i := sort.Search(len(d.lines), func(i int) bool { return d.lines[i].PC > pc }) - 1
	if i < 0 {
		return LineEntry{}, false
	}
	e := d.lines[i]
	if e.EndSequence {
		return LineEntry{}, false
	}
	return e, true
}

// SourceLocationAt is a convenience wrapper returning the simplified
// SourceLocation surfaces at the REPL layer.
func (d *DebugInfo) SourceLocationAt(pc Address) (SourceLocation, bool) {
	e, ok := d.PCToLine(pc)
	if !ok {
		return SourceLocation{}, false
	}
	return SourceLocation{File: e.File, Line: e.Line}, true
}

// LineToPC implements line_to_pc. If the exact line has no
// is_stmt entry, it falls through to the nearest following is_stmt line in
// the same file (the usual case: a comment-only or declaration-only source
// line generates no code). Among PCs that map to the same resolved line,
// the lowest address wins (Open Question (ii)).
func (d *DebugInfo) LineToPC(file string, line int) (Address, error) {
	best := -1
	bestLine := 0
	for i, e := range d.lines {
		if e.File != file || e.EndSequence || !e.IsStmt {
			continue
		}
		if e.Line < line {
			continue
		}
		if best == -1 || e.Line < bestLine || (e.Line == bestLine && e.PC < d.lines[best].PC) {
			best = i
			bestLine = e.Line
		}
	}
	if best == -1 {
		return 0, &NoLineMappingError{Detail: file}
	}
	return d.lines[best].PC, nil
}

// FunctionContaining implements function_containing.
func (d *DebugInfo) FunctionContaining(pc Address) (*Function, bool) {
	i := sort.Search(len(d.funcs), func(i int) bool { return d.funcs[i].LowPC > pc }) - 1
	if i < 0 {
		return nil, false
	}
	f := d.funcs[i]
	if !f.Contains(pc) {
		return nil, false
	}
	return f, true
}

// FunctionByName implements function_by_name.
func (d *DebugInfo) FunctionByName(name string) (*Function, error) {
	var found *Function
	for _, f := range d.funcs {
		if f.Name != name {
			continue
		}
		if found != nil {
			return nil, &AmbiguousSymbolError{Name: name}
		}
		found = f
	}
	if found == nil {
		return nil, &NoSuchSymbolError{Name: name}
	}
	return found, nil
}

// LinesInRange returns every is_stmt line-table row with PC in [low, high),
// sorted by address, the set of candidate statement addresses step_over
// places its temporary breakpoints at.
func (d *DebugInfo) LinesInRange(low, high Address) []LineEntry {
	i := sort.Search(len(d.lines), func(i int) bool { return d.lines[i].PC >= low })
	var out []LineEntry
	for ; i < len(d.lines) && d.lines[i].PC < high; i++ {
		if d.lines[i].IsStmt && !d.lines[i].EndSequence {
			out = append(out, d.lines[i])
		}
	}
	return out
}

// Functions returns every known function, sorted by address, for
// backtrace symbolization and tab-completion-style lookups.
func (d *DebugInfo) Functions() []*Function { return d.funcs }

// Variable implements variable: the innermost scope
// containing pc that declares name wins, so a block-local shadows an
// outer or function-level variable of the same name.
func (d *DebugInfo) Variable(name string, pc Address) (*Variable, error) {
	fn, ok := d.FunctionContaining(pc)
	if !ok {
		return nil, &NoSuchVariableError{Name: name}
	}
	if v := findVariable(fn.Scope, name, pc); v != nil {
		return v, nil
	}
	return nil, &NoSuchVariableError{Name: name}
}

// findVariable walks from scope down into the innermost child containing
// pc first, then checks scope's own variables — so a match in a nested
// block shadows one in an enclosing block or the function itself.
func findVariable(scope *Scope, name string, pc Address) *Variable {
	if scope == nil {
		return nil
	}
	for _, c := range scope.Children {
		if c.Contains(pc) {
			if v := findVariable(c, name, pc); v != nil {
				return v
			}
		}
	}
	for i := range scope.Variables {
		if scope.Variables[i].Name == name {
			return &scope.Variables[i]
		}
	}
	return nil
}
