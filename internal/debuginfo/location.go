// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debuginfo

import "github.com/thass0/spray/internal/arch"

// DWARF location-expression opcodes spray recognizes (DWARF v4 §7.7.1).
// debug/dwarf exposes no exported opcode constants, so these are named
// locally, the way program/server/dwarf.go's evalLocation does.
const (
	opAddr    = 0x03 // DW_OP_addr: a single 8-byte operand
	opReg0    = 0x50 // DW_OP_reg0..reg31: register number encoded in the opcode
	opReg31   = 0x6f
	opBreg0   = 0x70 // DW_OP_breg0..breg31: register + SLEB128 offset (frame_base only)
	opBreg31  = 0x8f
	opFbreg   = 0x91 // DW_OP_fbreg: SLEB128 offset from the frame base
	opRegx    = 0x90 // DW_OP_regx: ULEB128 register number, not modeled (Unknown)
)

// decodeLocation parses a raw DWARF exprloc into spray's restricted
// LocationExpr. DW_OP_addr, DW_OP_regN and DW_OP_fbreg are decoded, plus
// DW_OP_bregN (as LocRegisterOffset, the usual frame-base form); anything
// else yields LocUnknown, per Open Question (i): the subset is
// intentionally narrow.
func decodeLocation(data []byte) LocationExpr {
	if len(data) == 0 {
		return LocationExpr{Kind: LocUnknown}
	}
	op := data[0]
	rest := data[1:]
	switch {
	case op == opAddr:
		if len(rest) < arch.PointerSize {
			return LocationExpr{Kind: LocUnknown}
		}
		addr := arch.ByteOrder.Uint64(rest[:arch.PointerSize])
		return LocationExpr{Kind: LocAddress, Addr: addr}
	case op >= opReg0 && op <= opReg31:
		return LocationExpr{Kind: LocRegister, Reg: int(op - opReg0)}
	case op == opFbreg:
		off, _, ok := decodeSLEB128(rest)
		if !ok {
			return LocationExpr{Kind: LocUnknown}
		}
		return LocationExpr{Kind: LocFrameBaseOffset, Offset: off}
	case op >= opBreg0 && op <= opBreg31:
		off, _, ok := decodeSLEB128(rest)
		if !ok {
			return LocationExpr{Kind: LocUnknown}
		}
		return LocationExpr{Kind: LocRegisterOffset, Reg: int(op - opBreg0), Offset: off}
	default:
		return LocationExpr{Kind: LocUnknown}
	}
}

func decodeSLEB128(data []byte) (value int64, n int, ok bool) {
	var result int64
	var shift uint
	var b byte
	for {
		if n >= len(data) {
			return 0, 0, false
		}
		b = data[n]
		n++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, n, true
}

func decodeULEB128(data []byte) (value uint64, n int, ok bool) {
	var result uint64
	var shift uint
	for {
		if n >= len(data) {
			return 0, 0, false
		}
		b := data[n]
		n++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, n, true
}
