// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package highlight is spray's external syntax-colorizer: it decorates a
// line of C source with ANSI color for the REPL's source window. the design
// treats this as an external service the core debugger calls into, not a
// module whose correctness the debugger depends on.
//
// Grounded on pkg/utils/syntax_highlight.go's regex-based tokenizer and
// priority order (strings, chars, comments, preprocessor, numbers, calls,
// identifiers, operators), built on the same github.com/fatih/color this
// pack already uses for terminal color.
package highlight

import (
	"regexp"
	"sort"

	"github.com/fatih/color"
)

// token is a matched span of source text tagged with the color it should
// render in.
type token struct {
	start, end int
	paint      func(string) string
}

var (
	commentColor    = color.New(color.FgCyan).SprintFunc()
	stringColor     = color.New(color.FgRed).SprintFunc()
	charColor       = color.New(color.FgRed).SprintFunc()
	keywordColor    = color.New(color.FgGreen).SprintFunc()
	typeColor       = color.New(color.FgGreen).SprintFunc()
	structColor     = color.New(color.FgMagenta).SprintFunc()
	numberColor     = color.New(color.FgBlue).SprintFunc()
	operatorColor   = color.New(color.FgYellow).SprintFunc()
	preprocessColor = color.New(color.FgYellow).SprintFunc()
)

var (
	reBlockComment = regexp.MustCompile(`/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`//[^\n]*`)
	reString       = regexp.MustCompile(`"(\\.|[^"\\])*"`)
	reChar         = regexp.MustCompile(`'(\\.|[^'\\])'`)
	rePreprocessor = regexp.MustCompile(`(?m)^\s*#\s*\w+`)
	reNumber       = regexp.MustCompile(`\b(0[xX][0-9a-fA-F]+|\d+\.\d+[fF]?|\d+[uUlL]*)\b`)
	reIdentifier   = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
	reOperator     = regexp.MustCompile(`[-+*/%=<>!&|^~]+`)
)

var keywords = map[string]bool{
	"auto": true, "break": true, "case": true, "const": true, "continue": true,
	"default": true, "do": true, "else": true, "enum": true, "extern": true,
	"for": true, "goto": true, "if": true, "inline": true, "register": true,
	"restrict": true, "return": true, "sizeof": true, "static": true,
	"switch": true, "typedef": true, "union": true, "volatile": true, "while": true,
}

var types = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true, "_Bool": true,
}

// Enabled reports whether color output is currently on. It mirrors
// fatih/color's own global switch so `--no-color` can
// disable every colorizer in the program with one call.
func Enabled() bool { return !color.NoColor }

// SetEnabled turns ANSI coloring on or off process-wide.
func SetEnabled(enabled bool) { color.NoColor = !enabled }

// Line colorizes a single line of C source. If coloring is disabled, it
// returns line unchanged.
func Line(line string) string {
	if !Enabled() {
		return line
	}
	var toks []token

	add := func(loc []int, paint func(string) string) {
		if loc == nil {
			return
		}
		toks = append(toks, token{start: loc[0], end: loc[1], paint: paint})
	}

	for _, loc := range reBlockComment.FindAllStringIndex(line, -1) {
		add(loc, commentColor)
	}
	for _, loc := range reLineComment.FindAllStringIndex(line, -1) {
		add(loc, commentColor)
	}
	for _, loc := range reString.FindAllStringIndex(line, -1) {
		add(loc, stringColor)
	}
	for _, loc := range reChar.FindAllStringIndex(line, -1) {
		add(loc, charColor)
	}
	for _, loc := range rePreprocessor.FindAllStringIndex(line, -1) {
		add(loc, preprocessColor)
	}
	for _, loc := range reNumber.FindAllStringIndex(line, -1) {
		add(loc, numberColor)
	}
	for _, loc := range reIdentifier.FindAllStringIndex(line, -1) {
		word := line[loc[0]:loc[1]]
		switch {
		case word == "struct":
			add(loc, structColor)
		case keywords[word]:
			add(loc, keywordColor)
		case types[word]:
			add(loc, typeColor)
		}
	}
	for _, loc := range reOperator.FindAllStringIndex(line, -1) {
		add(loc, operatorColor)
	}

	return render(line, toks)
}

// render scans tokens left to right and keeps each one that does not
// overlap a token already kept: the token starting first wins, the longer
// one when two start together, and the earlier-added one only when two
// cover exactly the same span. The rest of the line is left untouched.
func render(line string, toks []token) string {
	sort.SliceStable(toks, func(i, j int) bool {
		if toks[i].start != toks[j].start {
			return toks[i].start < toks[j].start
		}
		return toks[i].end > toks[j].end
	})

	var kept []token
	for _, tk := range toks {
		if overlapsAny(tk, kept) {
			continue
		}
		kept = append(kept, tk)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })

	var out []byte
	pos := 0
	for _, tk := range kept {
		if tk.start < pos {
			continue
		}
		out = append(out, line[pos:tk.start]...)
		out = append(out, tk.paint(line[tk.start:tk.end])...)
		pos = tk.end
	}
	out = append(out, line[pos:]...)
	return string(out)
}

func overlapsAny(tk token, kept []token) bool {
	for _, k := range kept {
		if tk.start < k.end && k.start < tk.end {
			return true
		}
	}
	return false
}
