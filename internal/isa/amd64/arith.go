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
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

const (
	maxIntShiftDistance  = 0x1f
	maxLongShiftDistance = 0x3f
)

// Build

func (b *builder) buildFloatBinary(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(2, loc.NoCall)
	s.SetInAt(0, loc.RequiresFpuReg())
	s.SetInAt(1, anyOf(i.Inputs[1]))
	s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	return s
}

func (b *builder) buildAdd(i *graph.Instruction) *loc.Summary {
	switch i.Type {
	case datatype.Int32:
		s := loc.NewSummary(2, loc.NoCall)
		s.SetInAt(0, loc.RequiresReg())
		s.SetInAt(1, regOrConst(i.Inputs[1]))
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
		return s

	case datatype.Int64:
		s := loc.NewSummary(2, loc.NoCall)
		s.SetInAt(0, loc.RequiresReg())
		s.SetInAt(1, regOrInt32Const(i.Inputs[1]))
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
		return s

	case datatype.Float32, datatype.Float64:
		return b.buildFloatBinary(i)
	}

	pan.Fatalf("unexpected add type %s", i.Type)
	return nil
}

func (b *builder) buildSub(i *graph.Instruction) *loc.Summary {
	switch i.Type {
	case datatype.Int32:
		s := loc.NewSummary(2, loc.NoCall)
		s.SetInAt(0, loc.RequiresReg())
		s.SetInAt(1, anyOf(i.Inputs[1]))
		s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
		return s

	case datatype.Int64:
		s := loc.NewSummary(2, loc.NoCall)
		s.SetInAt(0, loc.RequiresReg())
		s.SetInAt(1, regOrInt32Const(i.Inputs[1]))
		s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
		return s

	case datatype.Float32, datatype.Float64:
		return b.buildFloatBinary(i)
	}

	pan.Fatalf("unexpected sub type %s", i.Type)
	return nil
}

func (b *builder) buildMul(i *graph.Instruction) *loc.Summary {
	switch i.Type {
	case datatype.Int32, datatype.Int64:
		s := loc.NewSummary(2, loc.NoCall)
		s.SetInAt(0, loc.RequiresReg())
		s.SetInAt(1, anyOf(i.Inputs[1]))
		if x := i.Inputs[1]; x.IsConstant() && x.Const().FitsInt32() {
			// Three-operand multiply.
			s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
		} else {
			s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
		}
		return s

	case datatype.Float32, datatype.Float64:
		return b.buildFloatBinary(i)
	}

	pan.Fatalf("unexpected mul type %s", i.Type)
	return nil
}

func (b *builder) buildNeg(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.NoCall)
	if i.Type.IsFloat() {
		s.SetInAt(0, loc.RequiresFpuReg())
		s.AddTemp(loc.RequiresFpuReg())
	} else {
		s.SetInAt(0, loc.RequiresReg())
	}
	s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	return s
}

func (b *builder) buildNot(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.NoCall)
	s.SetInAt(0, loc.RequiresReg())
	s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	return s
}

func (b *builder) buildBitwise(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(2, loc.NoCall)
	s.SetInAt(0, loc.RequiresReg())
	s.SetInAt(1, anyOf(i.Inputs[1]))
	s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	return s
}

// buildShift also covers rotation.  A variable distance goes in cl.
func (b *builder) buildShift(i *graph.Instruction) *loc.Summary {
	if i.Type != datatype.Int32 && i.Type != datatype.Int64 {
		pan.Fatalf("unexpected %s type %s", i.Op, i.Type)
	}
	s := loc.NewSummary(2, loc.NoCall)
	s.SetInAt(0, loc.RequiresReg())
	s.SetInAt(1, regOrConstAt(loc.Reg(reg.RCX), i.Inputs[1]))
	s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	return s
}

// Emission

// floatOperand applies a scalar SSE instruction with a register, literal or
// stack operand.
func (c *CodeGen) floatOperand(op in.RMscalar, t datatype.Type, dst reg.R, src loc.Location) {
	size := floatSize(t)

	switch {
	case src.IsFpuRegister():
		op.RegReg(&c.Text, size, dst, src.FpuReg())
	case src.IsConstant():
		op.RegMem(&c.Text, size, dst, in.RIP(0))
		if t == datatype.Float64 {
			c.literal(c.pool.Int64(src.Constant().Int64()))
		} else {
			c.literal(c.pool.Int32(src.Constant().Int32()))
		}
	default:
		op.RegMem(&c.Text, size, dst, in.Stack(src.StackIndex()))
	}
}

func (c *CodeGen) genAdd(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	first, second, out := s.InAt(0), s.InAt(1), s.Out()

	if i.Type.IsFloat() {
		c.floatOperand(in.ADDSx, i.Type, first.FpuReg(), second)
		return
	}

	size := intSize(i.Type)
	o := out.Reg()

	switch {
	case second.IsRegister():
		switch {
		case o == first.Reg():
			in.ADD.RegReg(text, size, o, second.Reg())
		case o == second.Reg():
			in.ADD.RegReg(text, size, o, first.Reg())
		default:
			in.LEA.RegMem(text, size, o, in.AddrIndex(first.Reg(), second.Reg(), in.Scale0, 0))
		}

	case second.IsConstant():
		value := second.Constant().Int32()
		if o == first.Reg() {
			in.ADDi.RegImm(text, size, o, value)
		} else {
			in.LEA.RegMem(text, size, o, in.Addr(first.Reg(), value))
		}

	default:
		in.ADD.RegMem(text, size, first.Reg(), in.Stack(second.StackIndex()))
	}
}

func (c *CodeGen) genSub(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	first, second := s.InAt(0), s.InAt(1)

	if i.Type.IsFloat() {
		c.floatOperand(in.SUBSx, i.Type, first.FpuReg(), second)
		return
	}

	size := intSize(i.Type)

	switch {
	case second.IsRegister():
		in.SUB.RegReg(text, size, first.Reg(), second.Reg())
	case second.IsConstant():
		in.SUBi.RegImm(text, size, first.Reg(), second.Constant().Int32())
	default:
		in.SUB.RegMem(text, size, first.Reg(), in.Stack(second.StackIndex()))
	}
}

func (c *CodeGen) genMul(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	first, second, out := s.InAt(0), s.InAt(1), s.Out()

	if i.Type.IsFloat() {
		c.floatOperand(in.MULSx, i.Type, first.FpuReg(), second)
		return
	}

	size := intSize(i.Type)

	// The constant may have been allocated to a register.
	if x := i.Inputs[1]; x.IsConstant() {
		k := x.Const()
		if k.FitsInt32() {
			in.IMULi.RegRegImm(text, size, out.Reg(), first.Reg(), k.Int32())
		} else {
			in.IMUL.RegMem(text, size, first.Reg(), in.RIP(0))
			c.literal(c.pool.Int64(k.Int64()))
		}
		return
	}

	if second.IsRegister() {
		in.IMUL.RegReg(text, size, first.Reg(), second.Reg())
	} else {
		in.IMUL.RegMem(text, size, first.Reg(), in.Stack(second.StackIndex()))
	}
}

func (c *CodeGen) genNeg(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	out := s.Out()

	switch i.Type {
	case datatype.Float32:
		mask := s.Temp(0).FpuReg()
		c.loadFloat32Bits(mask, math.MinInt32)
		in.XORPx.RegReg(text, in.S32, out.FpuReg(), mask)

	case datatype.Float64:
		mask := s.Temp(0).FpuReg()
		c.loadFloat64Bits(mask, math.MinInt64)
		in.XORPx.RegReg(text, in.S64, out.FpuReg(), mask)

	default:
		in.NEG.Reg(text, intSize(i.Type), out.Reg())
	}
}

func (c *CodeGen) genNot(i *graph.Instruction) {
	in.NOT.Reg(&c.Text, intSize(i.Type), i.Locations.Out().Reg())
}

func (c *CodeGen) genBooleanNot(i *graph.Instruction) {
	in.XORi.RegImm(&c.Text, in.S32, i.Locations.Out().Reg(), 1)
}

func bitwiseInsn(op graph.Op) in.ALInsn {
	switch op {
	case graph.OpAnd:
		return in.InsnAnd
	case graph.OpOr:
		return in.InsnOr
	case graph.OpXor:
		return in.InsnXor
	}
	pan.Fatalf("%s is not a bitwise operation", op)
	return 0
}

func (c *CodeGen) genBitwise(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	first, second := s.InAt(0).Reg(), s.InAt(1)
	insn := bitwiseInsn(i.Op)
	size := intSize(i.Type)

	switch {
	case second.IsRegister():
		insn.Opcode().RegReg(text, size, first, second.Reg())

	case second.IsConstant():
		if k := second.Constant(); size == in.S32 || k.FitsInt32() {
			insn.OpcodeI().RegImm(text, size, first, k.Int32())
		} else {
			insn.Opcode().RegMem(text, size, first, in.RIP(0))
			c.literal(c.pool.Int64(k.Int64()))
		}

	default:
		insn.Opcode().RegMem(text, size, first, in.Stack(second.StackIndex()))
	}
}

func shiftDistance(t datatype.Type, l loc.Location) int8 {
	if t == datatype.Int64 {
		return int8(l.Constant().Int32() & maxLongShiftDistance)
	}
	return int8(l.Constant().Int32() & maxIntShiftDistance)
}

func (c *CodeGen) genShift(i *graph.Instruction) {
	var insn in.ShiftInsn
	switch i.Op {
	case graph.OpShl:
		insn = in.InsnShl
	case graph.OpShr:
		insn = in.InsnShrS
	default:
		insn = in.InsnShrU
	}

	s := i.Locations
	first, second := s.InAt(0).Reg(), s.InAt(1)
	size := intSize(i.Type)

	if second.IsRegister() {
		insn.Opcode().Reg(&c.Text, size, first)
	} else {
		insn.OpcodeI().RegImm8(&c.Text, size, first, shiftDistance(i.Type, second))
	}
}

func (c *CodeGen) genRor(i *graph.Instruction) {
	s := i.Locations
	first, second := s.InAt(0).Reg(), s.InAt(1)
	size := intSize(i.Type)

	if second.IsRegister() {
		in.ROR.Reg(&c.Text, size, first)
	} else {
		in.RORi.RegImm8(&c.Text, size, first, shiftDistance(i.Type, second))
	}
}
