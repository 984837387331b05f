// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/thass0/spray/internal/arch"
	"github.com/thass0/spray/internal/debuginfo"
)

// ParseLiteral converts a `set` command's value operand into the raw bytes
// to write, sized and encoded according to t's canonical type: set parses
// the literal according to the location's canonical type. size is the
// number of bytes to produce when t carries no explicit size (e.g. an
// untyped register, always 8 bytes on x86-64).
func ParseLiteral(t debuginfo.Type, size int, literal string) ([]byte, error) {
	if size <= 0 {
		size = arch.IntSize
	}
	if t.ByteSize > 0 {
		size = int(t.ByteSize)
	}

	switch t.Kind {
	case debuginfo.KindBase:
		switch t.Encoding {
		case debuginfo.EncFloat:
			return parseFloatLiteral(literal, size)
		case debuginfo.EncSignedChar, debuginfo.EncUnsignedChar:
			if v, ok := parseCharLiteral(literal); ok {
				return intBytes(uint64(v), size), nil
			}
		case debuginfo.EncBool:
			switch literal {
			case "true":
				return intBytes(1, size), nil
			case "false":
				return intBytes(0, size), nil
			}
		}
	case debuginfo.KindPointer:
		v, err := strconv.ParseUint(trimHexPrefix(literal), hexBase(literal), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value to set the location to")
		}
		return intBytes(v, size), nil
	}

	// Default: decimal or 0x-hex integer literal, the fallback
	// for any Base/Unknown numeric location.
	v, err := strconv.ParseUint(trimHexPrefix(literal), hexBase(literal), 64)
	if err != nil {
		sv, serr := strconv.ParseInt(literal, 10, 64)
		if serr != nil {
			return nil, fmt.Errorf("invalid value to set the location to")
		}
		v = uint64(sv)
	}
	return intBytes(v, size), nil
}

func hexBase(literal string) int {
	if strings.HasPrefix(literal, "0x") || strings.HasPrefix(literal, "0X") {
		return 16
	}
	return 10
}

func trimHexPrefix(literal string) string {
	if strings.HasPrefix(literal, "0x") || strings.HasPrefix(literal, "0X") {
		return literal[2:]
	}
	return literal
}

func intBytes(v uint64, size int) []byte {
	buf := make([]byte, 8)
	arch.ByteOrder.PutUint64(buf, v)
	if size > len(buf) {
		size = len(buf)
	}
	return buf[:size]
}

func parseFloatLiteral(literal string, size int) ([]byte, error) {
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid value to set the location to")
	}
	buf := make([]byte, size)
	switch size {
	case 4:
		arch.ByteOrder.PutUint32(buf, math.Float32bits(float32(f)))
	default:
		b8 := make([]byte, 8)
		arch.ByteOrder.PutUint64(b8, math.Float64bits(f))
		copy(buf, b8)
	}
	return buf, nil
}

func parseCharLiteral(literal string) (byte, bool) {
	if len(literal) == 3 && literal[0] == '\'' && literal[2] == '\'' {
		return literal[1], true
	}
	if v, err := strconv.ParseUint(trimHexPrefix(literal), hexBase(literal), 8); err == nil {
		return byte(v), true
	}
	return 0, false
}
