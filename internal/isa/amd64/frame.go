// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"math/bits"

	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/callconv"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

const (
	wordSize = 8

	// fakeReturnRegister bit of the core spill mask stands for the return
	// address pushed by the call.
	fakeReturnRegister = 16

	stackAlignment = 16

	// Stack pages below the stack pointer which the runtime guarantees to
	// be accessible or guarded.
	stackOverflowReservedBytes = 8 * 1024

	// Leaf methods with smaller frames skip the stack overflow check.
	largeFrameSize = 2 * 1024

	// Frame offset of the current method.
	currentMethodStackOffset = 0

	shouldDeoptimizeFlagSize = 4
)

type frame struct {
	size int32

	coreSpillMask uint32
	fpSpillMask   uint32

	firstSlowPathSlot int32
	deoptFlagOffset   int32
	fpSpillStart      int32

	empty                 bool
	leaf                  bool
	requiresCurrentMethod bool

	allocated reg.Set
}

func (f *frame) coreSpillSize() int32 { return int32(bits.OnesCount32(f.coreSpillMask)) * wordSize }
func (f *frame) fpSpillSize() int32   { return int32(bits.OnesCount32(f.fpSpillMask)) * wordSize }
func (f *frame) entrySpillSize() int32 {
	return f.coreSpillSize() + f.fpSpillSize()
}

func roundUp(x, n int32) int32 {
	return (x + n - 1) &^ (n - 1)
}

// isEntrySuspendCheck does not make the method a non-leaf: it is omitted
// from leaf methods.
func isEntrySuspendCheck(i *graph.Instruction) bool {
	return i.Op == graph.OpSuspendCheck && i.Block.ID == 0
}

func needsCurrentMethod(i *graph.Instruction) bool {
	switch i.Op {
	case graph.OpCurrentMethod, graph.OpDeoptimize:
		return true
	case graph.OpSuspendCheck:
		return !isEntrySuspendCheck(i)
	}
	return i.CanThrow()
}

func (c *CodeGen) slowPathSpills(s *loc.Summary, cat reg.Category) reg.Set {
	live := s.LiveRegisters()
	var saves reg.Set
	if s.HasCustomSlowPathCallingConvention() {
		saves = live.Intersection(s.CustomSlowPathCallerSaves())
	} else {
		saves = live.Difference(callconv.CalleeSaves())
	}
	if cat == reg.Core {
		return reg.FromMasks(saves.Mask(reg.Core), 0)
	}
	return reg.FromMasks(0, saves.Mask(reg.Fp))
}

func (f *frame) markAllocated(l loc.Location) {
	if l.IsAnyRegister() {
		f.allocated = f.allocated.With(l.Category(), l.AnyReg())
	}
}

// computeFrame lays out the frame from the allocated locations.
func (c *CodeGen) computeFrame() {
	f := &c.frame
	f.leaf = true

	var outSlots int32
	var maxSafepointSpill int32

	for _, i := range c.g.Instructions() {
		s := i.Locations
		if s == nil {
			continue
		}

		for n := 0; n < s.InputCount(); n++ {
			f.markAllocated(s.InAt(n))
		}
		f.markAllocated(s.Out())
		for n := 0; n < s.TempCount(); n++ {
			f.markAllocated(s.Temp(n))
		}
		if i.Op == graph.OpParallelMove {
			for _, m := range i.MovesAux() {
				f.markAllocated(m.Source)
				f.markAllocated(m.Dest)
			}
		}

		if !isEntrySuspendCheck(i) {
			if s.CanCall() {
				f.leaf = false
				f.requiresCurrentMethod = true
			} else if s.Intrinsified() && i.Op == graph.OpInvokeStaticOrDirect {
				if inv := i.InvokeAux(); !inv.HasCurrentMethodInput() {
					f.leaf = false
					f.requiresCurrentMethod = true
				}
			}
		}
		if needsCurrentMethod(i) {
			f.requiresCurrentMethod = true
		}

		if i.Op.IsInvoke() {
			var v callconv.Visitor
			for n := 0; n < i.NumArguments(); n++ {
				v.Next(i.Inputs[n].Type)
			}
			if v.StackIndex() > outSlots {
				outSlots = v.StackIndex()
			}
		}

		if s.OnlyCallsOnSlowPath() {
			size := int32(c.slowPathSpills(s, reg.Core).Count(reg.Core)+c.slowPathSpills(s, reg.Fp).Count(reg.Fp)) * wordSize
			if size > maxSafepointSpill {
				maxSafepointSpill = size
			}
		}
	}

	f.coreSpillMask = f.allocated.Mask(reg.Core)&reg.Of(reg.Core, callconv.CoreCalleeSaves...).Mask(reg.Core) | 1<<fakeReturnRegister
	f.fpSpillMask = f.allocated.Mask(reg.Fp) & reg.Of(reg.Fp, callconv.FpCalleeSaves...).Mask(reg.Fp)

	// Two slots for the method pointer.
	outSlots += wordSize / callconv.VRegSize
	spillSlots := c.g.SpillSlots

	allocatedCalleeSaves := bits.OnesCount32(f.coreSpillMask) - 1 + bits.OnesCount32(f.fpSpillMask)

	if spillSlots == 0 && allocatedCalleeSaves == 0 && f.leaf && !f.requiresCurrentMethod {
		f.empty = true
		f.size = wordSize
	} else {
		f.firstSlowPathSlot = roundUp((outSlots+spillSlots)*callconv.VRegSize, wordSize)

		deopt := int32(0)
		if c.g.Method.ShouldDeoptimizeFlag {
			deopt = shouldDeoptimizeFlagSize
		}

		f.size = roundUp(f.firstSlowPathSlot+maxSafepointSpill+deopt+f.entrySpillSize(), stackAlignment)
	}

	f.fpSpillStart = f.size - f.entrySpillSize()
	f.deoptFlagOffset = f.size - f.entrySpillSize() - shouldDeoptimizeFlagSize
}

// rebaseIncomingArguments adds the frame size to stack arguments, which the
// build phase placed relative to the caller's outgoing area.
func (c *CodeGen) rebaseIncomingArguments() {
	size := c.frame.size

	params := make(map[*graph.Instruction]loc.Location)
	for _, i := range c.g.Entry().Instructions {
		if i.Op != graph.OpParameterValue || i.Locations == nil {
			continue
		}
		if out := i.Locations.Out(); out.IsStack() {
			params[i] = out
			i.Locations.UpdateOut(out.Shifted(size))
		}
	}

	for _, i := range c.g.Instructions() {
		s := i.Locations
		if s == nil {
			continue
		}
		for n, x := range i.Inputs {
			if old, found := params[x]; found && n < s.InputCount() && s.InAt(n).Equals(old) {
				s.SetInAt(n, old.Shifted(size))
			}
		}
		if i.Op == graph.OpParallelMove {
			ms := i.MovesAux()
			for n := range ms {
				if ms[n].Incoming {
					ms[n].Source = ms[n].Source.Shifted(size)
					ms[n].Incoming = false
				}
			}
		}
	}
}

func (c *CodeGen) genFrameEntry() {
	f := &c.frame
	text := &c.Text

	c.bind(&c.frameEntry)

	if c.opt.CountHotness {
		in.ADDi16.MemImm(text, in.Addr(callconv.MethodReg, c.lay.Method.HotnessCount), 1)
	}

	if !(f.leaf && f.size < largeFrameSize) {
		in.TEST.RegMem(text, in.S64, reg.RAX, in.Stack(-stackOverflowReservedBytes))
		c.recordPcInfo(nil, 0)
	}

	if f.empty {
		return
	}

	for i := len(callconv.CoreCalleeSaves) - 1; i >= 0; i-- {
		r := callconv.CoreCalleeSaves[i]
		if f.coreSpillMask&(1<<r) != 0 {
			in.PUSHo.Reg(text, r)
		}
	}

	in.SUBi.RegImm(text, in.S64, reg.RSP, f.size-f.coreSpillSize())

	offset := f.fpSpillStart
	for _, r := range callconv.FpCalleeSaves {
		if f.fpSpillMask&(1<<r) != 0 {
			in.MOVSxmr.RegMem(text, in.S64, r, in.Stack(offset))
			offset += wordSize
		}
	}

	if f.requiresCurrentMethod {
		in.MOVmr.RegMem(text, in.S64, callconv.MethodReg, in.Stack(currentMethodStackOffset))
	}

	if c.g.Method.ShouldDeoptimizeFlag {
		in.MOVi.MemImm(text, in.S32, in.Stack(f.deoptFlagOffset), 0)
	}
}

func (c *CodeGen) genFrameExit() {
	f := &c.frame
	text := &c.Text

	if !f.empty {
		offset := f.fpSpillStart
		for _, r := range callconv.FpCalleeSaves {
			if f.fpSpillMask&(1<<r) != 0 {
				in.MOVSx.RegMem(text, in.S64, r, in.Stack(offset))
				offset += wordSize
			}
		}

		in.ADDi.RegImm(text, in.S64, reg.RSP, f.size-f.coreSpillSize())

		for _, r := range callconv.CoreCalleeSaves {
			if f.coreSpillMask&(1<<r) != 0 {
				in.POPo.Reg(text, r)
			}
		}
	}

	in.RET.Simple(text)
}
