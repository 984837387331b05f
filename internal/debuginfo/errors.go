// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debuginfo

import "fmt"

// NoSuchSymbolError is the NoSuchSymbol(name), raised by
// FunctionByName when no function has that name.
type NoSuchSymbolError struct{ Name string }

func (e *NoSuchSymbolError) Error() string { return fmt.Sprintf("no such symbol %q", e.Name) }

// AmbiguousSymbolError is the AmbiguousSymbol(name), raised when a
// name resolves to more than one function (doesn't expect this
// for a single C translation unit, but static functions sharing a name
// across files make it possible).
type AmbiguousSymbolError struct{ Name string }

func (e *AmbiguousSymbolError) Error() string { return fmt.Sprintf("ambiguous symbol %q", e.Name) }

// NoSuchVariableError is the NoSuchVariable(name).
type NoSuchVariableError struct{ Name string }

func (e *NoSuchVariableError) Error() string { return fmt.Sprintf("no such variable %q", e.Name) }

// NoLineMappingError is the NoLineMapping, raised by LineToPC when a
// file has no is_stmt line at or after the requested one (including a
// file no line table names). PCToLine reports a miss as a bool instead.
type NoLineMappingError struct{ Detail string }

func (e *NoLineMappingError) Error() string { return "no line mapping: " + e.Detail }
