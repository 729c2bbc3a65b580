// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"math/bits"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// buildBitScan covers BitCount and the leading and trailing zero counts.
func (b *builder) buildBitScan(i *graph.Instruction) *loc.Summary {
	if t := i.Inputs[0].Type; t != datatype.Int32 && t != datatype.Int64 {
		pan.Fatalf("unexpected %s input type %s", i.Op, t)
	}
	if i.Op == graph.OpBitCount && !b.opt.Features.POPCNT {
		pan.Fatalf("%s requires popcnt", i.Op)
	}

	s := loc.NewSummary(1, loc.NoCall)
	s.SetInAt(0, anyOf(i.Inputs[0]))
	s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
	s.SetIntrinsified(true)
	return s
}

// bitScanOperand applies a bit scan instruction to a register or stack
// operand.
func (c *CodeGen) bitScanOperand(op in.RM2, size in.Size, out loc.Location, src loc.Location) {
	if src.IsRegister() {
		op.RegReg(&c.Text, size, out.Reg(), src.Reg())
	} else {
		op.RegMem(&c.Text, size, out.Reg(), in.Stack(src.StackIndex()))
	}
}

func (c *CodeGen) countOperand(op in.RMprefix, size in.Size, out loc.Location, src loc.Location) {
	if src.IsRegister() {
		op.RegReg(&c.Text, size, out.Reg(), src.Reg())
	} else {
		op.RegMem(&c.Text, size, out.Reg(), in.Stack(src.StackIndex()))
	}
}

// constantOperand returns the unsigned value of a constant input.
func constantOperand(i *graph.Instruction) (value uint64, long bool) {
	x := i.Inputs[0]
	long = x.Type == datatype.Int64
	k := x.Const()
	if long {
		return uint64(k.Int64()), true
	}
	return uint64(uint32(k.Int32())), false
}

func (c *CodeGen) genBitCount(i *graph.Instruction) {
	s := i.Locations
	src, out := s.InAt(0), s.Out()

	if i.Inputs[0].IsConstant() {
		value, _ := constantOperand(i)
		c.load32(out.Reg(), int32(bits.OnesCount64(value)))
		return
	}

	c.countOperand(in.POPCNT, intSize(i.Inputs[0].Type), out, src)
}

func (c *CodeGen) genLeadingZeros(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	src, out := s.InAt(0), s.Out()
	size := intSize(i.Inputs[0].Type)
	width := int32(32)
	if size == in.S64 {
		width = 64
	}

	if i.Inputs[0].IsConstant() {
		value, long := constantOperand(i)
		n := bits.LeadingZeros64(value)
		if !long {
			n -= 32
		}
		c.load32(out.Reg(), int32(n))
		return
	}

	if c.opt.Features.LZCNT {
		c.countOperand(in.LZCNT, size, out, src)
		return
	}

	// bsr leaves the output undefined for zero.
	c.bitScanOperand(in.BSR, size, out, src)

	var zero, done link.L
	c.jccNear(in.CCE, &zero)
	in.XORi.RegImm(text, in.S32, out.Reg(), width-1)
	c.jmpNear(&done)
	c.bind(&zero)
	in.MOVo.RegImm32(text, out.Reg(), width)
	c.bind(&done)
}

func (c *CodeGen) genTrailingZeros(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	src, out := s.InAt(0), s.Out()
	size := intSize(i.Inputs[0].Type)
	width := int32(32)
	if size == in.S64 {
		width = 64
	}

	if i.Inputs[0].IsConstant() {
		value, long := constantOperand(i)
		n := bits.TrailingZeros64(value)
		if !long && value == 0 {
			n = 32
		}
		c.load32(out.Reg(), int32(n))
		return
	}

	if c.opt.Features.TZCNT {
		c.countOperand(in.TZCNT, size, out, src)
		return
	}

	c.bitScanOperand(in.BSF, size, out, src)

	var done link.L
	c.jccNear(in.CCNE, &done)
	in.MOVo.RegImm32(text, out.Reg(), width)
	c.bind(&done)
}
