// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// targetInBootImage is true if the class operand of a type check is a boot
// image class, which is never moved by the collector.
func targetInBootImage(i *graph.Instruction) bool {
	cls := i.Inputs[1]
	return cls.Op == graph.OpLoadClass && cls.LoadClassAux().InBootImage
}

func (o *Options) typeCheckNeedsReadBarrier(i *graph.Instruction) bool {
	return o.emitReadBarrier() && !targetInBootImage(i)
}

// typeCheckNeedsTemp is true for the kinds which walk a class chain with a
// slow read barrier.
func (o *Options) typeCheckNeedsTemp(k graph.TypeCheckKind) bool {
	if !o.emitReadBarrier() || o.bakerReadBarrier() {
		return false
	}
	return k == graph.CheckAbstractClass || k == graph.CheckClassHierarchy || k == graph.CheckArrayObject
}

// checkCastIsFatal is true if the slow path of a CheckCast always throws.
// Without read barriers on the class loads, a mismatch might be a false
// negative which the runtime re-checks.
func (o *Options) checkCastIsFatal(i *graph.Instruction) bool {
	switch i.TypeCheckAux().Kind {
	case graph.CheckArray, graph.CheckUnresolved:
		return false
	}
	return !o.typeCheckNeedsReadBarrier(i)
}

func (b *builder) buildInstanceOf(i *graph.Instruction) *loc.Summary {
	k := i.TypeCheckAux().Kind
	kind := loc.NoCall
	bakerSlowPath := false

	switch k {
	case graph.CheckArray, graph.CheckUnresolved, graph.CheckInterface:
		kind = loc.CallOnSlowPath
	default:
		if b.opt.typeCheckNeedsReadBarrier(i) {
			kind = loc.CallOnSlowPath
			bakerSlowPath = b.opt.bakerReadBarrier()
		}
	}

	s := loc.NewSummary(2, kind)
	if bakerSlowPath {
		s.SetCustomSlowPathCallerSaves(reg.Set(0))
	}
	s.SetInAt(0, loc.RequiresReg())
	s.SetInAt(1, loc.AnyLocation())
	s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
	if b.opt.typeCheckNeedsTemp(k) {
		s.AddTemp(loc.RequiresReg())
	}
	return s
}

// compareClass compares a class register with the class operand.
func (c *CodeGen) compareClass(r reg.R, cls loc.Location) {
	if cls.IsRegister() {
		in.CMP.RegReg(&c.Text, in.S32, r, cls.Reg())
	} else {
		in.CMP.RegMem(&c.Text, in.S32, r, in.Stack(cls.StackIndex()))
	}
}

// comparePrimitiveNot tests if a component class is a reference type.
func (c *CodeGen) comparePrimitiveNot(class reg.R) {
	in.CMPi16.MemImm(&c.Text, in.Addr(class, c.lay.Class.PrimitiveType), layout.PrimNot)
}

func (c *CodeGen) genInstanceOf(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	a := i.TypeCheckAux()
	objLoc, cls, outLoc := s.InAt(0), s.InAt(1), s.Out()
	obj, out := objLoc.Reg(), outLoc.Reg()
	readBarrier := c.opt.typeCheckNeedsReadBarrier(i)

	var temp loc.Location
	if c.opt.typeCheckNeedsTemp(a.Kind) {
		temp = s.Temp(0)
	}

	var (
		done, zero link.L
		slow       *slowPathBase
	)

	if a.MustDoNullCheck {
		in.TEST.RegReg(text, in.S32, obj, obj)
		c.jccNear(in.CCE, &zero)
	}
	zeroLinked := a.MustDoNullCheck

	switch a.Kind {
	case graph.CheckExact:
		c.genReferenceLoadTwoRegisters(i, outLoc, objLoc, c.lay.Object.Class, readBarrier)
		c.compareClass(out, cls)
		if zeroLinked {
			c.jccNear(in.CCNE, &zero)
			in.MOVo.RegImm32(text, out, 1)
			c.jmpNear(&done)
		} else {
			in.CCE.SetccOpcode().OneSizeReg(text, out)
			in.ANDi.RegImm(text, in.S32, out, 1)
		}

	case graph.CheckAbstractClass:
		c.genReferenceLoadTwoRegisters(i, outLoc, objLoc, c.lay.Object.Class, readBarrier)
		// The object's class is never abstract, so start from the super class.
		var loop link.L
		c.bind(&loop)
		c.genReferenceLoadOneRegister(i, outLoc, c.lay.Class.SuperClass, temp, readBarrier)
		in.TEST.RegReg(text, in.S32, out, out)
		c.jccNear(in.CCE, &done)
		c.compareClass(out, cls)
		c.jccNear(in.CCNE, &loop)
		in.MOVo.RegImm32(text, out, 1)
		if zeroLinked {
			c.jmpNear(&done)
		}

	case graph.CheckClassHierarchy:
		c.genReferenceLoadTwoRegisters(i, outLoc, objLoc, c.lay.Object.Class, readBarrier)
		var loop, success link.L
		c.bind(&loop)
		c.compareClass(out, cls)
		c.jccNear(in.CCE, &success)
		c.genReferenceLoadOneRegister(i, outLoc, c.lay.Class.SuperClass, temp, readBarrier)
		in.TEST.RegReg(text, in.S32, out, out)
		c.jccNear(in.CCNE, &loop)
		c.jmpNear(&done)
		c.bind(&success)
		in.MOVo.RegImm32(text, out, 1)
		if zeroLinked {
			c.jmpNear(&done)
		}

	case graph.CheckArrayObject:
		c.genReferenceLoadTwoRegisters(i, outLoc, objLoc, c.lay.Object.Class, readBarrier)
		var exact link.L
		c.compareClass(out, cls)
		c.jccNear(in.CCE, &exact)
		c.genReferenceLoadOneRegister(i, outLoc, c.lay.Class.ComponentType, temp, readBarrier)
		in.TEST.RegReg(text, in.S32, out, out)
		c.jccNear(in.CCE, &done)
		c.comparePrimitiveNot(out)
		c.jccNear(in.CCNE, &zero)
		zeroLinked = true
		c.bind(&exact)
		in.MOVo.RegImm32(text, out, 1)
		c.jmpNear(&done)

	case graph.CheckArray:
		// The exact check is only a fast path; a mismatch goes to the runtime.
		c.genReferenceLoadTwoRegisters(i, outLoc, objLoc, c.lay.Object.Class, false)
		c.compareClass(out, cls)
		slow = c.addSlowPath(&typeCheckPath{fatal: false}, i)
		c.jcc(in.CCNE, &slow.entry)
		in.MOVo.RegImm32(text, out, 1)
		if zeroLinked {
			c.jmpNear(&done)
		}

	case graph.CheckUnresolved, graph.CheckInterface:
		slow = c.addSlowPath(&typeCheckPath{fatal: false}, i)
		c.jmp(&slow.entry)
		if zeroLinked {
			c.jmpNear(&done)
		}
	}

	if zeroLinked {
		c.bind(&zero)
		in.XOR.RegReg(text, in.S32, out, out)
	}
	c.bind(&done)
	if slow != nil {
		c.bind(&slow.exit)
	}
}

func (b *builder) buildCheckCast(i *graph.Instruction) *loc.Summary {
	k := i.TypeCheckAux().Kind

	kind := loc.CallOnSlowPath
	if b.opt.checkCastIsFatal(i) && !i.CanThrowIntoCatchBlock() {
		// The slow path calls, but never returns.
		kind = loc.NoCall
	}

	s := loc.NewSummary(2, kind)
	s.SetInAt(0, loc.RequiresReg())
	if k == graph.CheckInterface {
		s.SetInAt(1, loc.RequiresReg())
	} else {
		s.SetInAt(1, loc.AnyLocation())
	}
	s.AddTemp(loc.RequiresReg())
	if k == graph.CheckInterface || b.opt.typeCheckNeedsTemp(k) {
		s.AddTemp(loc.RequiresReg())
	}
	return s
}

func (c *CodeGen) genCheckCast(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	a := i.TypeCheckAux()
	objLoc, cls, tempLoc := s.InAt(0), s.InAt(1), s.Temp(0)
	obj, temp := objLoc.Reg(), tempLoc.Reg()

	var temp2 loc.Location
	if a.Kind == graph.CheckInterface || c.opt.typeCheckNeedsTemp(a.Kind) {
		temp2 = s.Temp(1)
	}

	slow := c.addSlowPath(&typeCheckPath{fatal: c.opt.checkCastIsFatal(i)}, i)

	// Class loads never use read barriers here.  A stale class yields a
	// false negative which the runtime resolves.
	var done link.L

	if a.MustDoNullCheck {
		in.TEST.RegReg(text, in.S32, obj, obj)
		c.jccNear(in.CCE, &done)
	}

	switch a.Kind {
	case graph.CheckExact, graph.CheckArray:
		c.genReferenceLoadTwoRegisters(i, tempLoc, objLoc, c.lay.Object.Class, false)
		c.compareClass(temp, cls)
		c.jcc(in.CCNE, &slow.entry)

	case graph.CheckAbstractClass:
		c.genReferenceLoadTwoRegisters(i, tempLoc, objLoc, c.lay.Object.Class, false)
		var loop link.L
		c.bind(&loop)
		c.genReferenceLoadOneRegister(i, tempLoc, c.lay.Class.SuperClass, temp2, false)
		in.TEST.RegReg(text, in.S32, temp, temp)
		c.jcc(in.CCE, &slow.entry)
		c.compareClass(temp, cls)
		c.jccNear(in.CCNE, &loop)

	case graph.CheckClassHierarchy:
		c.genReferenceLoadTwoRegisters(i, tempLoc, objLoc, c.lay.Object.Class, false)
		var loop link.L
		c.bind(&loop)
		c.compareClass(temp, cls)
		c.jccNear(in.CCE, &done)
		c.genReferenceLoadOneRegister(i, tempLoc, c.lay.Class.SuperClass, temp2, false)
		in.TEST.RegReg(text, in.S32, temp, temp)
		c.jccNear(in.CCNE, &loop)
		c.jmp(&slow.entry)

	case graph.CheckArrayObject:
		c.genReferenceLoadTwoRegisters(i, tempLoc, objLoc, c.lay.Object.Class, false)
		c.compareClass(temp, cls)
		c.jccNear(in.CCE, &done)
		c.genReferenceLoadOneRegister(i, tempLoc, c.lay.Class.ComponentType, temp2, false)
		in.TEST.RegReg(text, in.S32, temp, temp)
		c.jcc(in.CCE, &slow.entry)
		c.comparePrimitiveNot(temp)
		c.jcc(in.CCNE, &slow.entry)

	case graph.CheckUnresolved:
		c.jmp(&slow.entry)

	case graph.CheckInterface:
		// Walk the interface table backwards; each entry is an interface
		// and its method array.
		count := temp2.Reg()
		c.genReferenceLoadTwoRegisters(i, tempLoc, objLoc, c.lay.Object.Class, false)
		c.genReferenceLoadTwoRegisters(i, tempLoc, tempLoc, c.lay.Class.IfTable, false)
		in.MOV.RegMem(text, in.S32, count, in.Addr(temp, c.lay.Array.Length))
		c.maybePoisonHeapReference(cls.Reg())

		var loop link.L
		c.bind(&loop)
		in.SUBi.RegImm(text, in.S32, count, 2)
		c.jcc(in.CCS, &slow.entry)
		in.CMP.RegMem(text, in.S32, cls.Reg(), arrayAddress(temp, temp2, 2, c.lay.ArrayDataOffset(datatype.Reference)))
		c.jccNear(in.CCNE, &loop)
		c.maybeUnpoisonHeapReference(cls.Reg())
	}

	c.bind(&done)
	c.bind(&slow.exit)
}
