// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"encoding/binary"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
)

const (
	prefixLock = 0xf0
	prefixGS   = 0x65
	prefixData = 0x66
)

// Segment and lock prefixes are emitted before the instruction they apply
// to.

func GS(text *code.Buf)   { text.PutByte(prefixGS) }
func LOCK(text *code.Buf) { text.PutByte(prefixLock) }

func addrDisp(currentAddr, insnSize, targetAddr int32) int32 {
	siteAddr := currentAddr + insnSize
	return targetAddr - siteAddr
}

type output struct {
	buf    [20]byte
	offset uint8
}

func (o *output) len() int { return int(o.offset) }

func (o *output) copy(text *code.Buf) {
	if debugEnabled {
		debugPrintInsn(o.buf[:o.offset])
	}
	copy(text.Extend(o.len()), o.buf[:o.offset])
}

func (o *output) byte(b byte) {
	o.buf[o.offset] = b
	o.offset++
}

func (o *output) byteIf(b byte, condition bool) {
	o.buf[o.offset] = b
	o.offset += bit(condition)
}

// word appends the two bytes of a big-endian word.
func (o *output) word(w uint16) {
	binary.BigEndian.PutUint16(o.buf[o.offset:], w)
	o.offset += 2
}

func (o *output) rex(wrxb rexWRXB) {
	o.buf[o.offset] = Rex | byte(wrxb)
	o.offset++
}

func (o *output) rexIf(wrxb rexWRXB) {
	o.buf[o.offset] = Rex | byte(wrxb)
	o.offset += bit(wrxb != 0)
}

func (o *output) mod(mod Mod, ro ModRO, rm ModRM) {
	o.buf[o.offset] = byte(mod) | byte(ro) | byte(rm)
	o.offset++
}

func (o *output) sib(s Scale, i sibIndex, b sibBase) {
	o.buf[o.offset] = byte(s) | byte(i) | byte(b)
	o.offset++
}

func (o *output) int8(val int8) {
	o.buf[o.offset] = uint8(val)
	o.offset++
}

func (o *output) int16(val int16) {
	binary.LittleEndian.PutUint16(o.buf[o.offset:], uint16(val))
	o.offset += 2
}

func (o *output) int32(val int32) {
	binary.LittleEndian.PutUint32(o.buf[o.offset:], uint32(val))
	o.offset += 4
}

func (o *output) int64(val int64) {
	binary.LittleEndian.PutUint64(o.buf[o.offset:], uint64(val))
	o.offset += 8
}

func (o *output) int(val int32, size uint8) {
	// Little-endian byte order works for any size
	binary.LittleEndian.PutUint32(o.buf[o.offset:], uint32(val))
	o.offset += size
}

// Fixed byte sequence

type Fixed string

func (op Fixed) Simple(text *code.Buf) {
	copy(text.Extend(len(op)), op)
}

// NP

type NP byte

func (op NP) Type(text *code.Buf, s Size) {
	var o output
	o.rexIf(sizeRexW(s))
	o.byte(byte(op))
	o.copy(text)
}

func (op NP) Simple(text *code.Buf) {
	text.PutByte(byte(op))
}

// O

type O byte

func (op O) Reg(text *code.Buf, r reg.R) {
	var o output
	o.rexIf(regRexB(r))
	o.byte(byte(op) + byte(r)&7)
	o.copy(text)
}

// M

type M uint16 // opcode byte and ModRO byte

func (op M) Reg(text *code.Buf, s Size, r reg.R) {
	var o output
	o.rexIf(sizeRexW(s) | regRexB(r))
	o.byte(byte(op >> 8))
	o.mod(ModReg, ModRO(op), regRM(r))
	o.copy(text)
}

func (op M) Mem(text *code.Buf, s Size, m Mem) {
	var o output
	o.rexIf(sizeRexW(s) | m.rex())
	o.byte(byte(op >> 8))
	o.mem(ModRO(op), m)
	o.copy(text)
}

// M instructions which require rex byte with register operand

type Mex2 uint16 // two opcode bytes

func (op Mex2) OneSizeReg(text *code.Buf, r reg.R) {
	var o output
	o.rex(regRexB(r))
	o.word(uint16(op))
	o.mod(ModReg, 0, regRM(r))
	o.copy(text)
}

// M with x87 operand size encoded in the opcode

type Mx87 uint16 // opcode byte and ModRO byte

func (op Mx87) Mem(text *code.Buf, m Mem) {
	var o output
	o.rexIf(m.rex())
	o.byte(byte(op >> 8))
	o.mem(ModRO(op), m)
	o.copy(text)
}

// RM (MR)

type RM byte    // opcode byte
type RM2 uint16 // two opcode bytes

func (op RM) RegReg(text *code.Buf, s Size, r, r2 reg.R) {
	var o output
	o.rexIf(sizeRexW(s) | regRexR(r) | regRexB(r2))
	o.byte(byte(op))
	o.mod(ModReg, regRO(r), regRM(r2))
	o.copy(text)
}

func (op RM) RegMem(text *code.Buf, s Size, r reg.R, m Mem) {
	var o output
	o.rexIf(sizeRexW(s) | regRexR(r) | m.rex())
	o.byte(byte(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

func (op RM2) RegReg(text *code.Buf, s Size, r, r2 reg.R) {
	var o output
	o.rexIf(sizeRexW(s) | regRexR(r) | regRexB(r2))
	o.word(uint16(op))
	o.mod(ModReg, regRO(r), regRM(r2))
	o.copy(text)
}

func (op RM2) RegMem(text *code.Buf, s Size, r reg.R, m Mem) {
	var o output
	o.rexIf(sizeRexW(s) | regRexR(r) | m.rex())
	o.word(uint16(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

// RM with two opcode bytes which require rex byte with 8-bit register operand

type RMex2 uint16

func (op RMex2) RegReg(text *code.Buf, s Size, r, r2 reg.R) {
	var o output
	o.rex(sizeRexW(s) | regRexR(r) | regRexB(r2))
	o.word(uint16(op))
	o.mod(ModReg, regRO(r), regRM(r2))
	o.copy(text)
}

func (op RMex2) RegMem(text *code.Buf, s Size, r reg.R, m Mem) {
	var o output
	o.rexIf(sizeRexW(s) | regRexR(r) | m.rex())
	o.word(uint16(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

// RM instructions with 8-bit operand size

type RMdata8 byte // opcode byte

func (op RMdata8) RegMem(text *code.Buf, r reg.R, m Mem) {
	var o output
	o.rex(regRexR(r) | m.rex())
	o.byte(byte(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

// RM instructions with 16-bit operand size

type RMdata16 byte // opcode byte

func (op RMdata16) RegMem(text *code.Buf, r reg.R, m Mem) {
	var o output
	o.byte(prefixData)
	o.rexIf(regRexR(r) | m.rex())
	o.byte(byte(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

// RM (MR) with prefix and two opcode bytes (first byte hardcoded)

type RMprefix uint16 // fixed-length prefix and second opcode byte
type RMscalar byte   // second opcode byte; size-dependent fixed-length prefix
type RMpacked byte   // second opcode byte; size-dependent variable-length prefix

func (op RMprefix) RegReg(text *code.Buf, s Size, r, r2 reg.R) {
	var o output
	o.byte(byte(op >> 8))
	o.rexIf(sizeRexW(s) | regRexR(r) | regRexB(r2))
	o.byte(0x0f)
	o.byte(byte(op))
	o.mod(ModReg, regRO(r), regRM(r2))
	o.copy(text)
}

func (op RMprefix) RegMem(text *code.Buf, s Size, r reg.R, m Mem) {
	var o output
	o.byte(byte(op >> 8))
	o.rexIf(sizeRexW(s) | regRexR(r) | m.rex())
	o.byte(0x0f)
	o.byte(byte(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

func (op RMscalar) RegReg(text *code.Buf, s Size, r, r2 reg.R) {
	var o output
	o.byte(scalarPrefix(s))
	o.rexIf(regRexR(r) | regRexB(r2))
	o.byte(0x0f)
	o.byte(byte(op))
	o.mod(ModReg, regRO(r), regRM(r2))
	o.copy(text)
}

func (op RMscalar) RegMem(text *code.Buf, s Size, r reg.R, m Mem) {
	var o output
	o.byte(scalarPrefix(s))
	o.rexIf(regRexR(r) | m.rex())
	o.byte(0x0f)
	o.byte(byte(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

// TypeRegReg is for conversions: the prefix is selected by floatSize and
// RexW by intSize.
func (op RMscalar) TypeRegReg(text *code.Buf, floatSize, intSize Size, r, r2 reg.R) {
	var o output
	o.byte(scalarPrefix(floatSize))
	o.rexIf(sizeRexW(intSize) | regRexR(r) | regRexB(r2))
	o.byte(0x0f)
	o.byte(byte(op))
	o.mod(ModReg, regRO(r), regRM(r2))
	o.copy(text)
}

func (op RMscalar) TypeRegMem(text *code.Buf, floatSize, intSize Size, r reg.R, m Mem) {
	var o output
	o.byte(scalarPrefix(floatSize))
	o.rexIf(sizeRexW(intSize) | regRexR(r) | m.rex())
	o.byte(0x0f)
	o.byte(byte(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

func (op RMpacked) RegReg(text *code.Buf, s Size, r, r2 reg.R) {
	var o output
	o.byteIf(prefixData, s&8 == 8)
	o.rexIf(regRexR(r) | regRexB(r2))
	o.byte(0x0f)
	o.byte(byte(op))
	o.mod(ModReg, regRO(r), regRM(r2))
	o.copy(text)
}

func (op RMpacked) RegMem(text *code.Buf, s Size, r reg.R, m Mem) {
	var o output
	o.byteIf(prefixData, s&8 == 8)
	o.rexIf(regRexR(r) | m.rex())
	o.byte(0x0f)
	o.byte(byte(op))
	o.mem(regRO(r), m)
	o.copy(text)
}

// RMI

type RMI uint16 // opcode bytes for 32-bit and 8-bit immediate

func (ops RMI) RegRegImm(text *code.Buf, s Size, r, r2 reg.R, val int32) {
	var op, valSize = immOpcodeSize(uint16(ops), val)
	var o output
	o.rexIf(sizeRexW(s) | regRexR(r) | regRexB(r2))
	o.byte(op)
	o.mod(ModReg, regRO(r), regRM(r2))
	o.int(val, valSize)
	o.copy(text)
}

func (ops RMI) RegMemImm(text *code.Buf, s Size, r reg.R, m Mem, val int32) {
	var op, valSize = immOpcodeSize(uint16(ops), val)
	var o output
	o.rexIf(sizeRexW(s) | regRexR(r) | m.rex())
	o.byte(op)
	o.mem(regRO(r), m)
	o.int(val, valSize)
	o.copy(text)
}

// OI

type OI byte

// RegImm32 loads a zero-extended 32-bit value.
func (op OI) RegImm32(text *code.Buf, r reg.R, val int32) {
	var o output
	o.rexIf(regRexB(r))
	o.byte(byte(op) + byte(r)&7)
	o.int32(val)
	o.copy(text)
}

func (op OI) RegImm64(text *code.Buf, r reg.R, val int64) {
	var o output
	o.rex(RexW | regRexB(r))
	o.byte(byte(op) + byte(r)&7)
	o.int64(val)
	o.copy(text)
}

// MI instructions with varying immediate size

type MI uint32 // opcode bytes for 32-bit value and 8-bit value; and common ModRO byte

func (ops MI) RegImm(text *code.Buf, s Size, r reg.R, val int32) {
	var op, valSize = immOpcodeSize(uint16(ops>>8), val)
	var o output
	o.rexIf(sizeRexW(s) | regRexB(r))
	o.byte(op)
	o.mod(ModReg, ModRO(ops), regRM(r))
	o.int(val, valSize)
	o.copy(text)
}

func (ops MI) MemImm(text *code.Buf, s Size, m Mem, val int32) {
	var op, valSize = immOpcodeSize(uint16(ops>>8), val)
	var o output
	o.rexIf(sizeRexW(s) | m.rex())
	o.byte(op)
	o.mem(ModRO(ops), m)
	o.int(val, valSize)
	o.copy(text)
}

// RegImm8 is for instructions without 32-bit immediate variant (shifts).
func (op MI) RegImm8(text *code.Buf, s Size, r reg.R, val int8) {
	var o output
	o.rexIf(sizeRexW(s) | regRexB(r))
	o.byte(byte(op >> 8))
	o.mod(ModReg, ModRO(op), regRM(r))
	o.int8(val)
	o.copy(text)
}

// MI instructions with 16-bit operand size and varying immediate size

type MIw uint32 // opcode bytes for 16-bit value and 8-bit value; and common ModRO byte

func (ops MIw) MemImm(text *code.Buf, m Mem, val int16) {
	var o output
	o.byte(prefixData)
	o.rexIf(m.rex())
	if uint16(val+128) <= 255 {
		o.byte(byte(ops >> 8))
		o.mem(ModRO(ops), m)
		o.int8(int8(val))
	} else {
		o.byte(byte(ops >> 16))
		o.mem(ModRO(ops), m)
		o.int16(val)
	}
	o.copy(text)
}

// MI instructions with 32-bit immediate only

type MId uint16 // opcode byte and ModRO byte

func (op MId) RegImm(text *code.Buf, s Size, r reg.R, val int32) {
	var o output
	o.rexIf(sizeRexW(s) | regRexB(r))
	o.byte(byte(op >> 8))
	o.mod(ModReg, ModRO(op), regRM(r))
	o.int32(val)
	o.copy(text)
}

func (op MId) MemImm(text *code.Buf, s Size, m Mem, val int32) {
	var o output
	o.rexIf(sizeRexW(s) | m.rex())
	o.byte(byte(op >> 8))
	o.mem(ModRO(op), m)
	o.int32(val)
	o.copy(text)
}

// MI instructions with 8-bit operand size

type MI8 uint16 // opcode byte and ModRO byte

func (op MI8) MemImm(text *code.Buf, m Mem, val int8) {
	var o output
	o.rexIf(m.rex())
	o.byte(byte(op >> 8))
	o.mem(ModRO(op), m)
	o.int8(val)
	o.copy(text)
}

// MI instructions with 16-bit operand size and immediate

type MI16 uint16 // opcode byte and ModRO byte

func (op MI16) MemImm(text *code.Buf, m Mem, val int16) {
	var o output
	o.byte(prefixData)
	o.rexIf(m.rex())
	o.byte(byte(op >> 8))
	o.mem(ModRO(op), m)
	o.int16(val)
	o.copy(text)
}

// D

type Db byte    // opcode byte
type Dd byte    // opcode byte
type D2d uint16 // two opcode bytes
type D12 uint32 // combination

// Addr encodes a branch to a known address, using the short form if
// possible.
func (ops D12) Addr(text *code.Buf, addr int32) {
	const (
		insnSize8  = 2
		insnSize32 = 6
	)

	var o output

	disp8 := addrDisp(text.Addr, insnSize8, addr)
	if uint32(disp8+128) <= 255 {
		o.byte(uint8(ops))
		o.int8(int8(disp8))
	} else {
		o.word(uint16(ops >> 16))
		o.int32(addrDisp(text.Addr, insnSize32, addr))
	}
	o.copy(text)
}

// Stub encodes a branch with placeholder displacement.  The displacement
// ends at text.Addr after the call.
func (ops D12) Stub(text *code.Buf, near bool) {
	var o output
	if near {
		o.byte(uint8(ops))
		o.int8(0)
	} else {
		o.word(uint16(ops >> 16))
		o.int32(0)
	}
	o.copy(text)
}

func (op Dd) Addr32(text *code.Buf, addr int32) {
	const insnSize = 5

	var o output
	o.byte(byte(op))
	o.int32(addrDisp(text.Addr, insnSize, addr))
	o.copy(text)
}

func (op Dd) Stub32(text *code.Buf) {
	var o output
	o.byte(byte(op))
	o.int32(0)
	o.copy(text)
}

func (op Db) Stub8(text *code.Buf) {
	var o output
	o.byte(byte(op))
	o.int8(0)
	o.copy(text)
}

// JMP with both encodings

type J struct {
	Short Db
	Near  Dd
}

func (op J) Addr(text *code.Buf, addr int32) {
	const insnSize8 = 2

	if disp8 := addrDisp(text.Addr, insnSize8, addr); uint32(disp8+128) <= 255 {
		var o output
		o.byte(byte(op.Short))
		o.int8(int8(disp8))
		o.copy(text)
	} else {
		op.Near.Addr32(text, addr)
	}
}

func (op J) Stub(text *code.Buf, near bool) {
	if near {
		op.Short.Stub8(text)
	} else {
		op.Near.Stub32(text)
	}
}
