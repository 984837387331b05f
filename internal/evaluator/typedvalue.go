// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"fmt"

	"github.com/thass0/spray/internal/debuginfo"
)

// Target is something print/set can act on: a bare register, a raw
// address, or a typed source variable. internal/command builds one of
// these from its operand grammar before calling into the evaluator.
type Target struct {
	// Tag is the left column of the print-line format: the register name
	// for a bare register, empty otherwise.
	Tag string

	Location  debuginfo.LocationExpr
	FrameBase uint64
	HaveFB    bool

	// Type is KindUnknown for a bare register/address (always FilterBytes
	// by default); otherwise the variable's declared type.
	Type debuginfo.TypeID
}

// Print implements print/eval: resolve the location, read its
// bytes, and render them per an explicit filter or the type's default.
func (e *Evaluator) Print(t Target, filter Filter) (string, error) {
	resolved, err := e.ResolveLocation(t.Location, t.FrameBase, t.HaveFB)
	if err != nil {
		return "", err
	}
	_, canon := e.Info.CanonicalType(t.Type)
	size := int(canon.ByteSize)
	if size <= 0 {
		size = 8
	}
	data, err := e.ReadBytes(resolved, size)
	if err != nil {
		return "", err
	}
	return e.render(data, canon, filter), nil
}

// Set implements set: parse literal per the canonical type,
// write it, and return the post-write value the same way Print would —
// "read after write" semantics, so the echoed value reflects any
// truncation from the target's size.
func (e *Evaluator) Set(t Target, literal string, filter Filter) (string, error) {
	resolved, err := e.ResolveLocation(t.Location, t.FrameBase, t.HaveFB)
	if err != nil {
		return "", err
	}
	_, canon := e.Info.CanonicalType(t.Type)
	size := int(canon.ByteSize)
	if size <= 0 {
		size = 8
	}
	data, err := ParseLiteral(canon, size, literal)
	if err != nil {
		return "", err
	}
	if err := e.WriteBytes(resolved, data); err != nil {
		return "", err
	}
	readBack, err := e.ReadBytes(resolved, size)
	if err != nil {
		return "", err
	}
	return e.render(readBack, canon, filter), nil
}

func (e *Evaluator) render(data []byte, canon debuginfo.Type, filter Filter) string {
	if filter != FilterDefault {
		return Render(data, filter)
	}
	if canon.Kind == debuginfo.KindUnknown {
		return Render(data, FilterBytes)
	}
	return DefaultDisplay(data, canon)
}

// FormatLine assembles the final echoed line: "%8s %s", the (optional)
// "(read after write)" marker, and the "(file:line)" location suffix, in
// that exact order and spacing.
func FormatLine(tag, value string, wasSet bool, loc *debuginfo.SourceLocation) string {
	line := fmt.Sprintf("%8s %s", tag, value)
	if wasSet {
		line += " (read after write)"
	}
	if loc != nil {
		line += fmt.Sprintf(" (%s:%d)", loc.File, loc.Line)
	}
	return line
}
