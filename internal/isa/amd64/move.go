// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"math"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/moves"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// move between any two locations.  The location kinds select the width.
func (c *CodeGen) move(dst, src loc.Location) {
	if src.Equals(dst) {
		return
	}

	text := &c.Text

	switch {
	case dst.IsRegister():
		d := dst.Reg()
		switch {
		case src.IsRegister():
			in.MOV.RegReg(text, in.S64, d, src.Reg())
		case src.IsFpuRegister():
			in.MOVxmr.RegReg(text, in.S64, src.FpuReg(), d)
		case src.IsStackSlot():
			in.MOV.RegMem(text, in.S32, d, in.Stack(src.StackIndex()))
		case src.IsDoubleStackSlot():
			in.MOV.RegMem(text, in.S64, d, in.Stack(src.StackIndex()))
		case src.IsConstant():
			if k := src.Constant(); k.Type.Is64Bit() {
				c.load64(d, k.Int64())
			} else {
				c.load32(d, k.Int32())
			}
		default:
			pan.Fatalf("move from %s to %s", src, dst)
		}

	case dst.IsFpuRegister():
		d := dst.FpuReg()
		switch {
		case src.IsRegister():
			in.MOVx.RegReg(text, in.S64, d, src.Reg())
		case src.IsFpuRegister():
			in.MOVAPx.RegReg(text, in.S32, d, src.FpuReg())
		case src.IsConstant():
			if k := src.Constant(); k.Type.Is64Bit() {
				c.loadFloat64Bits(d, k.Int64())
			} else {
				c.loadFloat32Bits(d, k.Int32())
			}
		case src.IsStackSlot():
			in.MOVSx.RegMem(text, in.S32, d, in.Stack(src.StackIndex()))
		case src.IsDoubleStackSlot():
			in.MOVSx.RegMem(text, in.S64, d, in.Stack(src.StackIndex()))
		case src.IsSIMDStackSlot():
			in.MOVUPx.RegMem(text, in.S32, d, in.Stack(src.StackIndex()))
		default:
			pan.Fatalf("move from %s to %s", src, dst)
		}

	case dst.IsStackSlot():
		m := in.Stack(dst.StackIndex())
		switch {
		case src.IsRegister():
			in.MOVmr.RegMem(text, in.S32, src.Reg(), m)
		case src.IsFpuRegister():
			in.MOVSxmr.RegMem(text, in.S32, src.FpuReg(), m)
		case src.IsConstant():
			in.MOVi.MemImm(text, in.S32, m, src.Constant().Int32())
		case src.IsStackSlot():
			in.MOV.RegMem(text, in.S32, reg.TMP, in.Stack(src.StackIndex()))
			in.MOVmr.RegMem(text, in.S32, reg.TMP, m)
		default:
			pan.Fatalf("move from %s to %s", src, dst)
		}

	case dst.IsDoubleStackSlot():
		m := in.Stack(dst.StackIndex())
		switch {
		case src.IsRegister():
			in.MOVmr.RegMem(text, in.S64, src.Reg(), m)
		case src.IsFpuRegister():
			in.MOVSxmr.RegMem(text, in.S64, src.FpuReg(), m)
		case src.IsConstant():
			c.store64ToStack(dst.StackIndex(), src.Constant().Int64())
		case src.IsDoubleStackSlot():
			in.MOV.RegMem(text, in.S64, reg.TMP, in.Stack(src.StackIndex()))
			in.MOVmr.RegMem(text, in.S64, reg.TMP, m)
		default:
			pan.Fatalf("move from %s to %s", src, dst)
		}

	case dst.IsSIMDStackSlot():
		switch {
		case src.IsFpuRegister():
			in.MOVUPxmr.RegMem(text, in.S32, src.FpuReg(), in.Stack(dst.StackIndex()))
		case src.IsSIMDStackSlot():
			for n := int32(0); n < 2; n++ {
				in.MOV.RegMem(text, in.S64, reg.TMP, in.Stack(src.StackIndex()+n*wordSize))
				in.MOVmr.RegMem(text, in.S64, reg.TMP, in.Stack(dst.StackIndex()+n*wordSize))
			}
		default:
			pan.Fatalf("move from %s to %s", src, dst)
		}

	default:
		pan.Fatalf("move from %s to %s", src, dst)
	}
}

// moveConstant into a register.
func (c *CodeGen) moveConstant(dst loc.Location, value int32) {
	c.load64(dst.Reg(), int64(value))
}

func (c *CodeGen) load32(r reg.R, value int32) {
	if value == 0 {
		in.XOR.RegReg(&c.Text, in.S32, r, r)
	} else {
		in.MOVo.RegImm32(&c.Text, r, value)
	}
}

func (c *CodeGen) load64(r reg.R, value int64) {
	switch {
	case value == 0:
		in.XOR.RegReg(&c.Text, in.S32, r, r)
	case uint64(value) <= math.MaxUint32:
		in.MOVo.RegImm32(&c.Text, r, int32(value))
	case value == int64(int32(value)):
		in.MOVi.RegImm(&c.Text, in.S64, r, int32(value))
	default:
		in.MOVo.RegImm64(&c.Text, r, value)
	}
}

func (c *CodeGen) loadFloat32Bits(r reg.R, bits int32) {
	if bits == 0 {
		in.XORPx.RegReg(&c.Text, in.S32, r, r)
		return
	}
	in.MOVSx.RegMem(&c.Text, in.S32, r, in.RIP(0))
	c.literal(c.pool.Int32(bits))
}

func (c *CodeGen) loadFloat64Bits(r reg.R, bits int64) {
	if bits == 0 {
		in.XORPx.RegReg(&c.Text, in.S64, r, r)
		return
	}
	in.MOVSx.RegMem(&c.Text, in.S64, r, in.RIP(0))
	c.literal(c.pool.Int64(bits))
}

func (c *CodeGen) loadFloat32(r reg.R, x float32) {
	c.loadFloat32Bits(r, int32(math.Float32bits(x)))
}

func (c *CodeGen) loadFloat64(r reg.R, x float64) {
	c.loadFloat64Bits(r, int64(math.Float64bits(x)))
}

func (c *CodeGen) store64ToStack(offset int32, value int64) {
	if value == int64(int32(value)) {
		in.MOVi.MemImm(&c.Text, in.S64, in.Stack(offset), int32(value))
	} else {
		c.load64(reg.TMP, value)
		in.MOVmr.RegMem(&c.Text, in.S64, reg.TMP, in.Stack(offset))
	}
}

// store64ToMemory splits values which cannot be sign-extended from 32 bits.
// The null check, if any, is recorded after the first access.
func (c *CodeGen) store64ToMemory(m in.Mem, value int64, i *graph.Instruction) {
	if value == int64(int32(value)) {
		in.MOVi.MemImm(&c.Text, in.S64, m, int32(value))
		c.maybeRecordImplicitNullCheck(i)
	} else {
		in.MOVi.MemImm(&c.Text, in.S32, m, int32(value))
		c.maybeRecordImplicitNullCheck(i)
		in.MOVi.MemImm(&c.Text, in.S32, m.Offset(4), int32(value>>32))
	}
}

func (c *CodeGen) compare32(r reg.R, value int32) {
	if value == 0 {
		in.TEST.RegReg(&c.Text, in.S32, r, r)
	} else {
		in.CMPi.RegImm(&c.Text, in.S32, r, value)
	}
}

func (c *CodeGen) compare64(r reg.R, value int64) {
	switch {
	case value == 0:
		in.TEST.RegReg(&c.Text, in.S64, r, r)
	case value == int64(int32(value)):
		in.CMPi.RegImm(&c.Text, in.S64, r, int32(value))
	default:
		in.CMP.RegMem(&c.Text, in.S64, r, in.RIP(0))
		c.literal(c.pool.Int64(value))
	}
}

// compareWith a register, stack slot or constant operand.
func (c *CodeGen) compareWith(s in.Size, lhs reg.R, rhs loc.Location) {
	switch {
	case rhs.IsRegister():
		in.CMP.RegReg(&c.Text, s, lhs, rhs.Reg())
	case rhs.IsConstant():
		if s == in.S64 {
			c.compare64(lhs, rhs.Constant().Int64())
		} else {
			c.compare32(lhs, rhs.Constant().Int32())
		}
	default:
		in.CMP.RegMem(&c.Text, s, lhs, in.Stack(rhs.StackIndex()))
	}
}

// parallelMove emits simultaneous moves.
func (c *CodeGen) parallelMove(ms ...moves.Move) {
	c.resolver.Resolve(ms, (*mover)(c))
}

// mover implements the parallel move primitives.
type mover CodeGen

func (m *mover) EmitMove(_ *moves.Resolver, x moves.Move) {
	(*CodeGen)(m).move(x.Dest, x.Source)
}

func (m *mover) EmitSwap(r *moves.Resolver, x moves.Move) {
	c := (*CodeGen)(m)
	src, dst := x.Source, x.Dest

	switch {
	case src.IsRegister() && dst.IsRegister():
		c.exchangeRegs(src.Reg(), dst.Reg())
	case src.IsRegister() && dst.IsStackSlot():
		c.exchangeMem(in.S32, src.Reg(), dst.StackIndex())
	case src.IsStackSlot() && dst.IsRegister():
		c.exchangeMem(in.S32, dst.Reg(), src.StackIndex())
	case src.IsStackSlot() && dst.IsStackSlot():
		c.exchangeMemory(r, in.S32, dst.StackIndex(), src.StackIndex(), 1)
	case src.IsRegister() && dst.IsDoubleStackSlot():
		c.exchangeMem(in.S64, src.Reg(), dst.StackIndex())
	case src.IsDoubleStackSlot() && dst.IsRegister():
		c.exchangeMem(in.S64, dst.Reg(), src.StackIndex())
	case src.IsDoubleStackSlot() && dst.IsDoubleStackSlot():
		c.exchangeMemory(r, in.S64, dst.StackIndex(), src.StackIndex(), 1)
	case src.IsFpuRegister() && dst.IsFpuRegister():
		c.exchangeFpuRegs(src.FpuReg(), dst.FpuReg())
	case src.IsFpuRegister() && dst.IsStackSlot():
		c.exchangeFpuMem(in.S32, src.FpuReg(), dst.StackIndex())
	case src.IsStackSlot() && dst.IsFpuRegister():
		c.exchangeFpuMem(in.S32, dst.FpuReg(), src.StackIndex())
	case src.IsFpuRegister() && dst.IsDoubleStackSlot():
		c.exchangeFpuMem(in.S64, src.FpuReg(), dst.StackIndex())
	case src.IsDoubleStackSlot() && dst.IsFpuRegister():
		c.exchangeFpuMem(in.S64, dst.FpuReg(), src.StackIndex())
	case src.IsSIMDStackSlot() && dst.IsSIMDStackSlot():
		c.exchangeMemory(r, in.S64, dst.StackIndex(), src.StackIndex(), 2)
	case src.IsFpuRegister() && dst.IsSIMDStackSlot():
		c.exchange128(r, src.FpuReg(), dst.StackIndex())
	case src.IsSIMDStackSlot() && dst.IsFpuRegister():
		c.exchange128(r, dst.FpuReg(), src.StackIndex())
	default:
		pan.Fatalf("swap of %s and %s", src, dst)
	}
}

func (c *CodeGen) exchangeRegs(r1, r2 reg.R) {
	text := &c.Text
	in.MOV.RegReg(text, in.S64, reg.TMP, r1)
	in.MOV.RegReg(text, in.S64, r1, r2)
	in.MOV.RegReg(text, in.S64, r2, reg.TMP)
}

func (c *CodeGen) exchangeMem(s in.Size, r reg.R, offset int32) {
	text := &c.Text
	in.MOV.RegMem(text, s, reg.TMP, in.Stack(offset))
	in.MOVmr.RegMem(text, s, r, in.Stack(offset))
	in.MOV.RegReg(text, in.S64, r, reg.TMP)
}

func (c *CodeGen) exchangeFpuRegs(r1, r2 reg.R) {
	text := &c.Text
	in.MOVxmr.RegReg(text, in.S64, r1, reg.TMP)
	in.MOVAPx.RegReg(text, in.S32, r1, r2)
	in.MOVx.RegReg(text, in.S64, r2, reg.TMP)
}

func (c *CodeGen) exchangeFpuMem(s in.Size, r reg.R, offset int32) {
	text := &c.Text
	in.MOV.RegMem(text, s, reg.TMP, in.Stack(offset))
	in.MOVSxmr.RegMem(text, s, r, in.Stack(offset))
	in.MOVx.RegReg(text, s, r, reg.TMP)
}

// exchangeMemory swaps blocks of stack words through TMP and a scratch
// register, which is pushed if none is free.
func (c *CodeGen) exchangeMemory(r *moves.Resolver, s in.Size, mem1, mem2 int32, words int) {
	text := &c.Text

	scratch, spilled := r.AllocateScratch(reg.TMP, reg.RAX)
	var offset int32
	if spilled {
		in.PUSHo.Reg(text, scratch)
		offset = wordSize
	}

	for n := 0; n < words; n++ {
		in.MOV.RegMem(text, s, reg.TMP, in.Stack(mem1+offset))
		in.MOV.RegMem(text, s, scratch, in.Stack(mem2+offset))
		in.MOVmr.RegMem(text, s, reg.TMP, in.Stack(mem2+offset))
		in.MOVmr.RegMem(text, s, scratch, in.Stack(mem1+offset))
		offset += wordSize
	}

	if spilled {
		in.POPo.Reg(text, scratch)
	}
}

// exchange128 swaps an xmm register with a SIMD stack slot through a
// temporary stack area.
func (c *CodeGen) exchange128(r *moves.Resolver, x reg.R, offset int32) {
	const extra = 2 * wordSize

	text := &c.Text
	in.SUBi.RegImm(text, in.S64, reg.RSP, extra)
	in.MOVUPxmr.RegMem(text, in.S32, x, in.Stack(0))
	c.exchangeMemory(r, in.S64, 0, offset+extra, 2)
	in.MOVUPx.RegMem(text, in.S32, x, in.Stack(0))
	in.ADDi.RegImm(text, in.S64, reg.RSP, extra)
}

// moveLocation of a typed value.  Pairs are not split on this target.
func (c *CodeGen) moveLocation(dst, src loc.Location, _ datatype.Type) {
	c.move(dst, src)
}

// moveFromReturnRegister after a call.
func (c *CodeGen) moveFromReturnRegister(dst loc.Location, t datatype.Type) {
	if t == datatype.Void || dst.IsInvalid() {
		return
	}
	if t.IsFloat() {
		c.move(dst, loc.FpuReg(reg.XMM0))
	} else {
		c.move(dst, loc.Reg(reg.RAX))
	}
}

// movesOf a ParallelMove instruction.
func movesOf(i *graph.Instruction) []moves.Move {
	list := i.MovesAux()
	ms := make([]moves.Move, len(list))
	for n, m := range list {
		ms[n] = moves.Move{Source: m.Source, Dest: m.Dest, Type: m.Type}
	}
	return ms
}
