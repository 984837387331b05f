// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"fmt"
	"math"
	"strings"

	"github.com/thass0/spray/internal/arch"
	"github.com/thass0/spray/internal/debuginfo"
)

// Filter asks for bytes to be rendered a specific way regardless of the
// underlying type.
type Filter int

const (
	// FilterDefault means "use the canonical type's own default display",
	// or bytes if there is no type (an untyped register or raw address).
	FilterDefault Filter = iota
	FilterHex
	FilterBits
	FilterAddr
	FilterDec
	FilterBytes
)

// ParseFilter maps a filter keyword to its Filter, operand
// grammar.
func ParseFilter(s string) (Filter, bool) {
	switch s {
	case "hex":
		return FilterHex, true
	case "bits":
		return FilterBits, true
	case "addr":
		return FilterAddr, true
	case "dec":
		return FilterDec, true
	case "bytes":
		return FilterBytes, true
	}
	return FilterDefault, false
}

// Render formats raw bytes per filter, independent of type.
func Render(data []byte, filter Filter) string {
	switch filter {
	case FilterHex:
		return "0x" + hexDigits(data)
	case FilterBits:
		return bitsString(data)
	case FilterAddr:
		return "0x" + fmt.Sprintf("%016x", arch.ByteOrder.Uint64(padTo(data, 8)))
	case FilterDec:
		return fmt.Sprintf("%d", signExtend(data))
	case FilterBytes:
		fallthrough
	default:
		return bytesString(data)
	}
}

// bytesString renders each byte as two lowercase hex digits separated by
// single spaces, most significant byte first — the register-dump format
// pins down from the original project's own tests
// (e.g. "00 00 00 00 00 40 11 4f").
func bytesString(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[len(data)-1-i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}

// hexDigits renders data (little-endian) as minimal hex: no leading zero
// bytes, and the most significant remaining nibble unpadded, matching
// the "hex = 0x + minimal hex" (distinct from the fixed
// 16-digit zero-padded form the `addr` filter uses).
func hexDigits(data []byte) string {
	hi := len(data) - 1
	for hi > 0 && data[hi] == 0 {
		hi--
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%x", data[hi])
	for i := hi - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02x", data[i])
	}
	return sb.String()
}

func bitsString(data []byte) string {
	var sb strings.Builder
	for i := len(data) - 1; i >= 0; i-- {
		for b := 7; b >= 0; b-- {
			if data[i]&(1<<uint(b)) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

func padTo(data []byte, n int) []byte {
	if len(data) >= n {
		return data[:n]
	}
	buf := make([]byte, n)
	copy(buf, data)
	return buf
}

func hostUint(data []byte) uint64 {
	buf := padTo(data, 8)
	return arch.ByteOrder.Uint64(buf)
}

// DefaultDisplay renders data according to t's canonical kind, the
// per-type default table of : signed integers print in
// decimal, unsigned integers and pointers in hex, and printable
// single-byte character types print as a quoted char. A bare register or
// address with no DWARF type always defaults to FilterBytes
//, which callers select by passing a KindUnknown Type.
func DefaultDisplay(data []byte, t debuginfo.Type) string {
	switch t.Kind {
	case debuginfo.KindBase:
		switch t.Encoding {
		case debuginfo.EncSigned:
			return fmt.Sprintf("%d", signExtend(data))
		case debuginfo.EncUnsigned, debuginfo.EncAddress:
			return "0x" + hexDigits(data)
		case debuginfo.EncBool:
			if hostUint(data) != 0 {
				return "true"
			}
			return "false"
		case debuginfo.EncFloat:
			return formatFloat(data)
		case debuginfo.EncSignedChar:
			return formatChar(data)
		case debuginfo.EncUnsignedChar:
			if len(data) > 0 && data[0] >= 0x20 && data[0] < 0x7f {
				return formatChar(data)
			}
			return fmt.Sprintf("%d", hostUint(data))
		}
		return bytesString(data)
	case debuginfo.KindPointer:
		return "0x" + fmt.Sprintf("%016x", hostUint(data))
	default:
		return bytesString(data)
	}
}

func signExtend(data []byte) int64 {
	switch len(data) {
	case 1:
		return int64(int8(data[0]))
	case 2:
		return int64(int16(arch.ByteOrder.Uint16(data)))
	case 4:
		return int64(int32(arch.ByteOrder.Uint32(data)))
	default:
		return int64(arch.ByteOrder.Uint64(padTo(data, 8)))
	}
}

func formatFloat(data []byte) string {
	switch len(data) {
	case 4:
		bits := arch.ByteOrder.Uint32(data)
		return fmt.Sprintf("%g", math.Float32frombits(bits))
	case 8:
		bits := arch.ByteOrder.Uint64(padTo(data, 8))
		return fmt.Sprintf("%g", math.Float64frombits(bits))
	}
	return bytesString(data)
}

func formatChar(data []byte) string {
	if len(data) == 0 {
		return "''"
	}
	c := data[0]
	if c >= 0x20 && c < 0x7f {
		return fmt.Sprintf("'%c'", c)
	}
	return fmt.Sprintf("'\\x%02x'", c)
}
