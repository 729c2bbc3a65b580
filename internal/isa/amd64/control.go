// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/callconv"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/condition"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// Switches with more entries use a jump table.
const packedSwitchJumpTableThreshold = 5

func condOf(x *graph.Instruction) condition.C {
	return condition.C(x.CompareAux().Cond)
}

func isFPCondition(x *graph.Instruction) bool {
	return x.Op == graph.OpCondition && x.Inputs[0].Type.IsFloat()
}

func trueIfNaN(x *graph.Instruction) bool {
	aux := x.CompareAux()
	switch aux.Cond {
	case graph.CondNE:
		return true
	case graph.CondEQ:
		return false
	}
	return (aux.Cond == graph.CondGT || aux.Cond == graph.CondGE) && aux.Bias == graph.GtBias
}

func falseIfNaN(x *graph.Instruction) bool {
	aux := x.CompareAux()
	switch aux.Cond {
	case graph.CondEQ:
		return true
	case graph.CondNE:
		return false
	}
	return (aux.Cond == graph.CondLT || aux.Cond == graph.CondLE) && aux.Bias == graph.GtBias
}

// eflagsSetFrom if the materialized condition was emitted right before the
// branch.
func eflagsSetFrom(cond, branch *graph.Instruction) bool {
	return cond.Op == graph.OpCondition && cond.Next() == branch && !cond.Inputs[0].Type.IsFloat()
}

// Build

func (b *builder) buildIf(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.NoCall)
	if x := i.Inputs[0]; isBooleanValue(x) || isMaterialized(x) {
		s.SetInAt(0, anyOf(x))
	}
	return s
}

func selectCanUseCMOV(i *graph.Instruction) bool {
	return !i.Type.IsFloat() && !isFPCondition(i.Inputs[2])
}

func (b *builder) buildSelect(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(3, loc.NoCall)
	if i.Type.IsFloat() {
		s.SetInAt(0, loc.RequiresFpuReg())
		s.SetInAt(1, anyOf(i.Inputs[1]))
	} else {
		s.SetInAt(0, loc.RequiresReg())
		if selectCanUseCMOV(i) && i.Inputs[1].IsConstant() {
			s.SetInAt(1, loc.RequiresReg())
		} else {
			s.SetInAt(1, anyOf(i.Inputs[1]))
		}
	}
	if x := i.Inputs[2]; isBooleanValue(x) || isMaterialized(x) {
		s.SetInAt(2, loc.RequiresReg())
	}
	s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	return s
}

func (b *builder) buildReturn(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.NoCall)
	s.SetInAt(0, callconv.ReturnLocation(i.Inputs[0].Type))
	return s
}

func (b *builder) buildPackedSwitch(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.NoCall)
	s.SetInAt(0, loc.RequiresReg())
	s.AddTemp(loc.RequiresReg())
	s.AddTemp(loc.RequiresReg())
	return s
}

func (b *builder) buildDeoptimize(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.CallOnSlowPath)
	s.SetCustomSlowPathCallerSaves(reg.Of(reg.Core, callconv.RuntimeParamRegs[0]))
	if x := i.Inputs[0]; isBooleanValue(x) || isMaterialized(x) {
		s.SetInAt(0, anyOf(x))
	}
	return s
}

func (b *builder) buildSuspendCheck(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(0, loc.CallOnSlowPath)
	// The runtime routine saves everything.
	s.SetCustomSlowPathCallerSaves(reg.Set(0))
	return s
}

func (b *builder) buildCondition(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(2, loc.NoCall)
	if i.Inputs[0].Type.IsFloat() {
		s.SetInAt(0, loc.RequiresFpuReg())
	} else {
		s.SetInAt(0, loc.RequiresReg())
	}
	s.SetInAt(1, anyOf(i.Inputs[1]))
	if !i.EmittedAtUseSite {
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
	}
	return s
}

func (b *builder) buildCompare(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(2, loc.NoCall)
	s.SetInAt(1, anyOf(i.Inputs[1]))
	if i.Inputs[0].Type.IsFloat() {
		s.SetInAt(0, loc.RequiresFpuReg())
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
	} else {
		s.SetInAt(0, loc.RequiresReg())
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
	}
	return s
}

// Emission

func (c *CodeGen) genGoto(i *graph.Instruction, successor *graph.Block) {
	if isExitBlock(successor) {
		return
	}

	b := i.Block

	if b.BackEdge {
		if check := successor.SuspendCheck(); successor.LoopHeader && check != nil {
			if c.opt.CountHotness {
				in.MOV.RegMem(&c.Text, in.S64, reg.TMP, in.Stack(currentMethodStackOffset))
				in.ADDi16.MemImm(&c.Text, in.Addr(reg.TMP, c.lay.Method.HotnessCount), 1)
			}
			c.genSuspendCheck(check, successor)
			return
		}
	}

	if b.ID == 0 {
		if prev := i.Previous(); prev != nil && prev.Op == graph.OpSuspendCheck {
			c.genSuspendCheck(prev, nil)
		}
	}

	if !c.goesToNextBlock(successor) {
		c.jmp(c.labelOf(successor))
	}
}

func (c *CodeGen) genTryBoundary(i *graph.Instruction) {
	if successor := i.Block.Successors[0]; !isExitBlock(successor) {
		c.genGoto(i, successor)
	}
}

func (c *CodeGen) genSuspendCheckInsn(i *graph.Instruction) {
	if i.Block.LoopHeader {
		// Emitted by the back edges.
		return
	}
	if i.Block.ID == 0 {
		if next := i.Next(); next != nil && next.Op == graph.OpGoto {
			return
		}
	}
	c.genSuspendCheck(i, nil)
}

// genSuspendCheck polls the thread flags.  Without a successor the slow path
// returns after the check; otherwise the check branches to the successor.
func (c *CodeGen) genSuspendCheck(i *graph.Instruction, successor *graph.Block) {
	p := c.suspendPaths[i]
	if p == nil {
		p = &suspendCheckPath{successor: successor}
		c.addSlowPath(p, i)
		c.suspendPaths[i] = p
	}

	in.GS(&c.Text)
	in.CMPi16.MemImm(&c.Text, in.Abs(c.lay.Thread.Flags), 0)

	if successor == nil {
		c.jcc(in.CCNE, &p.entry)
		c.bind(&p.ret)
	} else {
		c.jcc(in.CCE, c.labelOf(successor))
		c.jmp(&p.entry)
	}
}

func (c *CodeGen) branchTarget(b *graph.Block) *link.L {
	if c.goesToNextBlock(b) {
		return nil
	}
	return c.labelOf(b)
}

func (c *CodeGen) genIf(i *graph.Instruction) {
	trueL := c.branchTarget(i.Block.Successors[0])
	falseL := c.branchTarget(i.Block.Successors[1])
	c.genTestAndBranch(i, 0, trueL, falseL)
}

func (c *CodeGen) genDeoptimize(i *graph.Instruction) {
	p := c.addSlowPath(new(deoptimizePath), i)
	c.genTestAndBranch(i, 0, &p.entry, nil)
}

func (c *CodeGen) genShouldDeoptimizeFlag(i *graph.Instruction) {
	in.MOV.RegMem(&c.Text, in.S32, i.Locations.Out().Reg(), in.Stack(c.frame.deoptFlagOffset))
}

// genTestAndBranch on the condition input.  A nil target means fallthrough.
func (c *CodeGen) genTestAndBranch(i *graph.Instruction, index int, trueL, falseL *link.L) {
	if trueL == nil && falseL == nil {
		return
	}

	cond := i.Inputs[index]

	if cond.Op == graph.OpIntConstant {
		if cond.Const().Int32() != 0 {
			if trueL != nil {
				c.jmp(trueL)
			}
		} else {
			if falseL != nil {
				c.jmp(falseL)
			}
		}
		return
	}

	if cond.Op != graph.OpCondition || !cond.EmittedAtUseSite {
		if eflagsSetFrom(cond, i) {
			if trueL == nil {
				c.jcc(condOf(cond).Opposite().IntegerCC(), falseL)
			} else {
				c.jcc(condOf(cond).IntegerCC(), trueL)
			}
		} else {
			lhs := i.Locations.InAt(index)
			if lhs.IsRegister() {
				in.TEST.RegReg(&c.Text, in.S32, lhs.Reg(), lhs.Reg())
			} else {
				in.CMPi.MemImm(&c.Text, in.S32, in.Stack(lhs.StackIndex()), 0)
			}
			if trueL == nil {
				c.jcc(in.CCE, falseL)
			} else {
				c.jcc(in.CCNE, trueL)
			}
		}
	} else {
		t := cond.Inputs[0].Type
		if t == datatype.Int64 || t.IsFloat() {
			c.genCompareTestAndBranch(cond, trueL, falseL)
			return
		}

		s := cond.Locations
		c.compareWith(in.S32, s.InAt(0).Reg(), s.InAt(1))
		if trueL == nil {
			c.jcc(condOf(cond).Opposite().IntegerCC(), falseL)
		} else {
			c.jcc(condOf(cond).IntegerCC(), trueL)
		}
	}

	if trueL != nil && falseL != nil {
		c.jmp(falseL)
	}
}

func (c *CodeGen) genCompareTestAndBranch(cond *graph.Instruction, trueIn, falseIn *link.L) {
	var next link.L

	trueL := trueIn
	if trueL == nil {
		trueL = &next
	}
	falseL := falseIn
	if falseL == nil {
		falseL = &next
	}

	c.genCompareTest(cond)

	if cond.Inputs[0].Type.IsFloat() {
		c.genFPJumps(cond, trueL, falseL)
	} else {
		c.jcc(condOf(cond).IntegerCC(), trueL)
	}

	if falseL != &next {
		c.jmp(falseL)
	}
	if len(next.Sites) > 0 {
		c.bind(&next)
	}
}

// genCompareTest sets the flags from the inputs of a condition.
func (c *CodeGen) genCompareTest(cond *graph.Instruction) {
	s := cond.Locations
	lhs, rhs := s.InAt(0), s.InAt(1)

	switch t := cond.Inputs[0].Type; {
	case t == datatype.Int64:
		c.compareWith(in.S64, lhs.Reg(), rhs)
	case t.IsFloat():
		c.ucomis(t, lhs.FpuReg(), rhs)
	default:
		c.compareWith(in.S32, lhs.Reg(), rhs)
	}
}

func (c *CodeGen) ucomis(t datatype.Type, lhs reg.R, rhs loc.Location) {
	size := floatSize(t)

	switch {
	case rhs.IsConstant():
		in.UCOMISx.RegMem(&c.Text, size, lhs, in.RIP(0))
		if t == datatype.Float64 {
			c.literal(c.pool.Int64(rhs.Constant().Int64()))
		} else {
			c.literal(c.pool.Int32(rhs.Constant().Int32()))
		}
	case rhs.IsStack():
		in.UCOMISx.RegMem(&c.Text, size, lhs, in.Stack(rhs.StackIndex()))
	default:
		in.UCOMISx.RegReg(&c.Text, size, lhs, rhs.FpuReg())
	}
}

func (c *CodeGen) genFPJumps(cond *graph.Instruction, trueL, falseL *link.L) {
	if trueIfNaN(cond) {
		c.jcc(in.CCP, trueL)
	} else if falseIfNaN(cond) {
		c.jcc(in.CCP, falseL)
	}
	c.jcc(condOf(cond).FpCC(), trueL)
}

func (c *CodeGen) genCondition(i *graph.Instruction) {
	if i.EmittedAtUseSite {
		return
	}

	text := &c.Text
	s := i.Locations
	out := s.Out().Reg()

	switch t := i.Inputs[0].Type; {
	case t.IsFloat():
		var trueL, falseL, done link.L

		c.ucomis(t, s.InAt(0).FpuReg(), s.InAt(1))
		c.genFPJumps(i, &trueL, &falseL)

		c.bind(&falseL)
		in.XOR.RegReg(text, in.S32, out, out)
		c.jmpNear(&done)

		c.bind(&trueL)
		in.MOVo.RegImm32(text, out, 1)
		c.bind(&done)

	default:
		size := in.S32
		if t == datatype.Int64 {
			size = in.S64
		}
		// setcc writes only the low byte.
		in.XOR.RegReg(text, in.S32, out, out)
		c.compareWith(size, s.InAt(0).Reg(), s.InAt(1))
		condOf(i).IntegerCC().SetccOpcode().OneSizeReg(text, out)
	}
}

// genCompare produces -1, 0 or 1.
func (c *CodeGen) genCompare(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	out := s.Out().Reg()

	var less, greater, done link.L
	lessCC := in.CCL

	switch t := i.Inputs[0].Type; {
	case t == datatype.Int64:
		c.compareWith(in.S64, s.InAt(0).Reg(), s.InAt(1))
	case t.IsFloat():
		c.ucomis(t, s.InAt(0).FpuReg(), s.InAt(1))
		if i.CompareAux().Bias == graph.GtBias {
			c.jccNear(in.CCP, &greater)
		} else {
			c.jccNear(in.CCP, &less)
		}
		lessCC = in.CCB
	default:
		c.compareWith(in.S32, s.InAt(0).Reg(), s.InAt(1))
	}

	in.MOVo.RegImm32(text, out, 0)
	c.jccNear(in.CCE, &done)
	c.jccNear(lessCC, &less)

	c.bind(&greater)
	in.MOVo.RegImm32(text, out, 1)
	c.jmpNear(&done)

	c.bind(&less)
	in.MOVo.RegImm32(text, out, -1)

	c.bind(&done)
}

func (c *CodeGen) genSelect(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations

	if !selectCanUseCMOV(i) {
		var skip link.L
		c.genTestAndBranch(i, 2, nil, &skip)
		c.move(s.Out(), s.InAt(1))
		c.bind(&skip)
		return
	}

	out := s.Out().Reg()
	cond := i.Inputs[2]
	cc := in.CCNE

	switch {
	case cond.Op == graph.OpCondition && cond.EmittedAtUseSite:
		c.genCompareTest(cond)
		cc = condOf(cond).IntegerCC()

	case cond.Op == graph.OpCondition && eflagsSetFrom(cond, i):
		cc = condOf(cond).IntegerCC()

	default:
		r := s.InAt(2).Reg()
		in.TEST.RegReg(text, in.S32, r, r)
	}

	size := in.S32
	if i.Type.Is64Bit() {
		size = in.S64
	}

	if v := s.InAt(1); v.IsRegister() {
		cc.CmovccOpcode().RegReg(text, size, out, v.Reg())
	} else {
		cc.CmovccOpcode().RegMem(text, size, out, in.Stack(v.StackIndex()))
	}
}

func (c *CodeGen) genPackedSwitch(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	aux := i.SwitchAux()
	lower := aux.StartValue
	num := aux.NumEntries
	value := s.InAt(0).Reg()
	temp := s.Temp(0).Reg()
	base := s.Temp(1).Reg()

	successors := i.Block.Successors
	defaultBlock := successors[len(successors)-1]

	if num == 0 {
		if !c.goesToNextBlock(defaultBlock) {
			c.jmp(c.labelOf(defaultBlock))
		}
		return
	}

	if num <= packedSwitchJumpTableThreshold {
		var first in.CC
		var index uint32

		if lower != 0 {
			first = in.CCL
			in.CMPi.RegImm(text, in.S32, value, lower)
			c.jcc(first, c.labelOf(defaultBlock))
			c.jcc(in.CCE, c.labelOf(successors[0]))
			index = 1
		} else {
			first = in.CCB
		}

		for ; index+1 < num; index += 2 {
			in.CMPi.RegImm(text, in.S32, value, lower+int32(index)+1)
			c.jcc(first, c.labelOf(successors[index]))
			c.jcc(in.CCE, c.labelOf(successors[index+1]))
		}

		if index != num {
			in.CMPi.RegImm(text, in.S32, value, lower+int32(index))
			c.jcc(in.CCE, c.labelOf(successors[index]))
		}

		if !c.goesToNextBlock(defaultBlock) {
			c.jmp(c.labelOf(defaultBlock))
		}
		return
	}

	if lower != 0 {
		in.LEA.RegMem(text, in.S32, temp, in.Addr(value, -lower))
		value = temp
	}

	in.CMPi.RegImm(text, in.S32, value, int32(num-1))
	c.jcc(in.CCA, c.labelOf(defaultBlock))

	targets := make([]*link.L, num)
	for n := range targets {
		targets[n] = c.labelOf(successors[n])
	}

	in.LEA.RegMem(text, in.S64, base, in.RIP(0))
	c.literal(c.pool.Table(targets))
	in.MOVSXD.RegMem(text, in.S64, temp, in.AddrIndex(base, value, in.ScaleOf(4), 0))
	in.ADD.RegReg(text, in.S64, temp, base)
	in.JMPm.Reg(text, in.OneSize, temp)
}

func floatSize(t datatype.Type) in.Size {
	if t == datatype.Float64 {
		return in.S64
	}
	return in.S32
}

func intSize(t datatype.Type) in.Size {
	if t.Is64Bit() {
		return in.S64
	}
	return in.S32
}
