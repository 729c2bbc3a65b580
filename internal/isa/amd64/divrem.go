// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"math/bits"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// x87 status word bit which is set while partial remainder reduction is
// incomplete.
const c2ConditionMask = 0x400

// Build

func (b *builder) buildDivRem(i *graph.Instruction) *loc.Summary {
	div := i.Op == graph.OpDiv

	switch i.Type {
	case datatype.Int32, datatype.Int64:
		s := loc.NewSummary(2, loc.NoCall)
		s.SetInAt(0, loc.Reg(reg.RAX))
		s.SetInAt(1, regOrConst(i.Inputs[1]))
		if div {
			s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
			s.AddTemp(loc.Reg(reg.RDX))
		} else {
			s.SetOut(loc.Reg(reg.RDX), loc.OutputOverlap)
		}
		// The numerator is saved while rax and rdx are clobbered.
		if i.Inputs[1].IsConstant() {
			s.AddTemp(loc.RequiresReg())
		}
		return s

	case datatype.Float32, datatype.Float64:
		if div {
			return b.buildFloatBinary(i)
		}
		s := loc.NewSummary(2, loc.NoCall)
		s.SetInAt(0, anyOf(i.Inputs[0]))
		s.SetInAt(1, anyOf(i.Inputs[1]))
		s.SetOut(loc.RequiresFpuReg(), loc.OutputOverlap)
		s.AddTemp(loc.Reg(reg.RAX))
		return s
	}

	pan.Fatalf("unexpected %s type %s", i.Op, i.Type)
	return nil
}

func (b *builder) buildDivZeroCheck(i *graph.Instruction) *loc.Summary {
	s := b.throwingSummary(i, 1)
	s.SetInAt(0, anyOf(i.Inputs[0]))
	return s
}

// Emission

func (c *CodeGen) genDivRem(i *graph.Instruction) {
	switch i.Type {
	case datatype.Int32, datatype.Int64:
		c.genDivRemIntegral(i)

	case datatype.Float32, datatype.Float64:
		s := i.Locations
		if i.Op == graph.OpDiv {
			c.floatOperand(in.DIVSx, i.Type, s.InAt(0).FpuReg(), s.InAt(1))
		} else {
			c.genRemFP(i)
		}

	default:
		pan.Fatalf("unexpected %s type %s", i.Op, i.Type)
	}
}

func (c *CodeGen) genDivRemIntegral(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	second := s.InAt(1)
	size := intSize(i.Type)
	div := i.Op == graph.OpDiv

	if second.IsConstant() {
		imm := second.Constant().Int64()
		if i.Type == datatype.Int32 {
			imm = int64(second.Constant().Int32())
		}

		switch {
		case imm == 0:
			// The preceding DivZeroCheck always throws.
		case imm == 1 || imm == -1:
			c.genDivRemOneOrMinusOne(i, imm)
		case div && isPowerOfTwo(absOrMin(imm)):
			c.genDivByPowerOfTwo(i, imm)
		default:
			c.genDivRemWithAnyConstant(i, imm)
		}
		return
	}

	// Division of the minimum value by -1 faults.
	p := &divRemMinusOnePath{reg: s.Out().Reg(), t: i.Type, div: div}
	b := c.addSlowPath(p, i)

	divisor := second.Reg()
	in.CMPi.RegImm(text, size, divisor, -1)
	c.jcc(in.CCE, &b.entry)
	in.CDQ.Type(text, size)
	in.IDIV.Reg(text, size, divisor)
	c.bind(&b.exit)
}

func (c *CodeGen) genDivRemOneOrMinusOne(i *graph.Instruction, imm int64) {
	text := &c.Text
	s := i.Locations
	num, out := s.InAt(0).Reg(), s.Out().Reg()
	size := intSize(i.Type)

	if i.Op == graph.OpRem {
		in.XOR.RegReg(text, in.S32, out, out)
		return
	}

	in.MOV.RegReg(text, size, out, num)
	if imm == -1 {
		in.NEG.Reg(text, size, out)
	}
}

func (c *CodeGen) genDivByPowerOfTwo(i *graph.Instruction, imm int64) {
	text := &c.Text
	s := i.Locations
	num, out, tmp := s.InAt(0).Reg(), s.Out().Reg(), s.Temp(0).Reg()
	size := intSize(i.Type)
	abs := absOrMin(imm)
	shift := int8(bits.TrailingZeros64(uint64(imm)))

	// Negative numerators are biased so that the shift rounds toward zero.
	if i.Type == datatype.Int32 || abs-1 == int64(int32(abs-1)) {
		in.LEA.RegMem(text, size, tmp, in.Addr(num, int32(abs-1)))
	} else {
		c.load64(tmp, abs-1)
		in.ADD.RegReg(text, size, tmp, num)
	}
	in.TEST.RegReg(text, size, num, num)
	in.CCGE.CmovccOpcode().RegReg(text, size, tmp, num)
	in.SARi.RegImm8(text, size, tmp, shift)
	if imm < 0 {
		in.NEG.Reg(text, size, tmp)
	}
	in.MOV.RegReg(text, size, out, tmp)
}

// genDivRemWithAnyConstant multiplies by the reciprocal.  The high half of
// the product ends up in rdx.
func (c *CodeGen) genDivRemWithAnyConstant(i *graph.Instruction, imm int64) {
	text := &c.Text
	s := i.Locations
	div := i.Op == graph.OpDiv
	long := i.Type == datatype.Int64
	size := intSize(i.Type)

	eax := s.InAt(0).Reg()
	var num, edx reg.R
	if div {
		edx = s.Temp(0).Reg()
		num = s.Temp(1).Reg()
	} else {
		edx = s.Out().Reg()
		num = s.Temp(0).Reg()
	}

	magic, shift := divMagic(imm, long)

	in.MOV.RegReg(text, size, num, eax)
	if long {
		c.load64(eax, magic)
	} else {
		in.MOVo.RegImm32(text, eax, int32(magic))
	}
	in.IMUL1.Reg(text, size, num)

	if imm > 0 && magic < 0 {
		in.ADD.RegReg(text, size, edx, num)
	} else if imm < 0 && magic > 0 {
		in.SUB.RegReg(text, size, edx, num)
	}

	if shift != 0 {
		in.SARi.RegImm8(text, size, edx, int8(shift))
	}

	// Round toward zero by adding the sign bit.
	in.MOV.RegReg(text, size, eax, edx)
	if long {
		in.SHRi.RegImm8(text, size, edx, 63)
	} else {
		in.SHRi.RegImm8(text, size, edx, 31)
	}
	in.ADD.RegReg(text, size, edx, eax)

	if div {
		in.MOV.RegReg(text, size, eax, edx)
		return
	}

	in.MOV.RegReg(text, size, eax, num)
	if imm == int64(int32(imm)) {
		in.IMULi.RegRegImm(text, size, edx, edx, int32(imm))
	} else {
		in.IMUL.RegMem(text, size, edx, in.RIP(0))
		c.literal(c.pool.Int64(imm))
	}
	in.SUB.RegReg(text, size, eax, edx)
	in.MOV.RegReg(text, size, edx, eax)
}

// genRemFP uses the x87 partial remainder, which matches the truncating
// semantics of fmod.
func (c *CodeGen) genRemFP(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	isFloat := i.Type == datatype.Float32
	elemSize := i.Type.Size()
	size := floatSize(i.Type)

	in.SUBi.RegImm(text, in.S64, reg.RSP, 2*elemSize)

	// Operands are pushed in reverse order.
	c.pushOntoFPStack(s.InAt(1), elemSize, 2*elemSize, isFloat)
	c.pushOntoFPStack(s.InAt(0), 0, 2*elemSize, isFloat)

	var retry link.L
	c.bind(&retry)
	in.FPREM.Simple(text)
	in.FSTSW.Simple(text)
	in.ANDi.RegImm(text, in.S32, reg.RAX, c2ConditionMask)
	c.jccNear(in.CCNE, &retry)

	if isFloat {
		in.FSTS.Mem(text, in.Stack(0))
	} else {
		in.FSTL.Mem(text, in.Stack(0))
	}
	in.FUCOMPP.Simple(text)

	in.MOVSx.RegMem(text, size, s.Out().FpuReg(), in.Stack(0))
	in.ADDi.RegImm(text, in.S64, reg.RSP, 2*elemSize)
}

func (c *CodeGen) pushOntoFPStack(src loc.Location, tempOffset, adjustment int32, isFloat bool) {
	text := &c.Text

	switch {
	case src.IsStackSlot():
		in.FLDS.Mem(text, in.Stack(src.StackIndex()+adjustment))
	case src.IsDoubleStackSlot():
		in.FLDL.Mem(text, in.Stack(src.StackIndex()+adjustment))
	case isFloat:
		c.move(loc.Stack(tempOffset), src)
		in.FLDS.Mem(text, in.Stack(tempOffset))
	default:
		c.move(loc.DoubleStack(tempOffset), src)
		in.FLDL.Mem(text, in.Stack(tempOffset))
	}
}

func (c *CodeGen) genDivZeroCheck(i *graph.Instruction) {
	text := &c.Text
	value := i.Locations.InAt(0)
	size := intSize(i.Inputs[0].Type)

	b := c.addSlowPath(new(divZeroCheckPath), i)

	switch {
	case value.IsRegister():
		in.TEST.RegReg(text, size, value.Reg(), value.Reg())
		c.jcc(in.CCE, &b.entry)
	case value.IsStack():
		in.CMPi.MemImm(text, size, in.Stack(value.StackIndex()), 0)
		c.jcc(in.CCE, &b.entry)
	case value.IsConstant():
		if value.Constant().IsZeroBitPattern() {
			c.jmp(&b.entry)
		}
	default:
		pan.Fatalf("unexpected divisor location %s", value)
	}
}
