// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/callconv"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

// placeholderDisp is the displacement of patched instructions.  It is large
// enough to force a 32-bit encoding.
const placeholderDisp = 256

// Parameters

func (b *builder) buildParameterValue(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(0, loc.NoCall)
	// Stack arguments are rebased when the frame size is known.
	s.SetOut(b.params.Next(i.Type), loc.OutputOverlap)
	return s
}

// Classes

func loadClassNeedsEnvironment(a graph.LoadClass) bool {
	return a.NeedsAccessCheck || a.ClinitCheck || a.Kind == graph.ClassRuntimeCall || a.Kind == graph.ClassBssEntry
}

func (o *Options) classNeedsReadBarrier(a graph.LoadClass) bool {
	return o.emitReadBarrier() && !a.InBootImage
}

func (b *builder) buildLoadClass(i *graph.Instruction) *loc.Summary {
	a := i.LoadClassAux()

	if a.Kind == graph.ClassRuntimeCall {
		s := loc.NewSummary(len(i.Inputs), loc.CallOnMainOnly)
		s.AddTemp(loc.Reg(reg.RAX)) // type index
		s.SetOut(loc.Reg(reg.RAX), loc.OutputOverlap)
		return s
	}
	if a.NeedsAccessCheck {
		pan.Fatalf("access check of class %d requires a runtime call", a.TypeIndex)
	}

	readBarrier := b.opt.classNeedsReadBarrier(a)
	env := loadClassNeedsEnvironment(a)

	kind := loc.NoCall
	if env || readBarrier {
		kind = loc.CallOnSlowPath
	}
	s := loc.NewSummary(len(i.Inputs), kind)
	if b.opt.bakerReadBarrier() && readBarrier && !env {
		s.SetCustomSlowPathCallerSaves(reg.Set(0))
	}

	if a.Kind == graph.ClassReferrers {
		s.SetInAt(0, loc.RequiresReg())
	}
	s.SetOut(loc.RequiresReg(), loc.OutputOverlap)

	// The resolution stub preserves everything but the result register.
	if a.Kind == graph.ClassBssEntry && b.opt.ReadBarrier != SlowReadBarrier {
		s.SetCustomSlowPathCallerSaves(reg.Of(reg.Core, reg.RAX))
	}
	return s
}

func (c *CodeGen) genLoadClass(i *graph.Instruction) {
	text := &c.Text
	a := i.LoadClassAux()
	s := i.Locations

	if a.Kind == graph.ClassRuntimeCall {
		c.moveConstant(s.Temp(0), int32(a.TypeIndex))
		switch {
		case a.NeedsAccessCheck:
			c.invokeRuntime(layout.InitializeTypeAndVerifyAccess, i)
		case a.ClinitCheck:
			c.invokeRuntime(layout.InitializeStaticStorage, i)
		default:
			c.invokeRuntime(layout.InitializeType, i)
		}
		return
	}

	out := s.Out()
	readBarrier := c.opt.classNeedsReadBarrier(a)
	nullCheck := false

	switch a.Kind {
	case graph.ClassReferrers:
		method := s.InAt(0).Reg()
		c.genGcRootLoad(i, out, in.Addr(method, c.lay.Method.DeclaringClass), nil, readBarrier)

	case graph.ClassBootImageLinkTimePCRelative:
		in.LEA.RegMem(text, in.S32, out.Reg(), in.RIP(placeholderDisp))
		c.recordPatch(object.PatchBootImageType, a.DexFile, a.TypeIndex)

	case graph.ClassBootImageAddress:
		if a.Address == 0 {
			pan.Fatalf("boot image class %d has no address", a.TypeIndex)
		}
		// Zero-extended.
		in.MOVo.RegImm32(text, out.Reg(), int32(a.Address))

	case graph.ClassBootImageClassTable:
		in.MOV.RegMem(text, in.S32, out.Reg(), in.RIP(placeholderDisp))
		c.recordPatch(object.PatchBootImageType, a.DexFile, a.TypeIndex)
		if a.MaskedHash != 0 {
			in.SUBi.RegImm(text, in.S32, out.Reg(), a.MaskedHash)
		}

	case graph.ClassBssEntry:
		c.genGcRootLoad(i, out, in.RIP(placeholderDisp), func() {
			c.recordPatch(object.PatchBssType, a.DexFile, a.TypeIndex)
		}, readBarrier)
		nullCheck = true

	case graph.ClassJitTableAddress:
		c.genGcRootLoad(i, out, in.Abs(placeholderDisp), func() {
			c.recordJitRoot(a.RootIndex, true)
		}, readBarrier)

	default:
		pan.Fatalf("unexpected class load kind %d", a.Kind)
	}

	if nullCheck || a.ClinitCheck {
		p := &loadClassPath{cls: i, doClinit: a.ClinitCheck}
		b := c.addSlowPath(p, i)
		if nullCheck {
			in.TEST.RegReg(text, in.S32, out.Reg(), out.Reg())
			c.jcc(in.CCE, &b.entry)
		}
		if a.ClinitCheck {
			c.genClassInitializationCheck(b, out.Reg())
		} else {
			c.bind(&b.exit)
		}
	}
}

// genClassInitializationCheck compares the status byte, which holds the
// class status above the subtype check bits.
func (c *CodeGen) genClassInitializationCheck(b *slowPathBase, class reg.R) {
	in.CMP8i.MemImm(&c.Text, in.Addr(class, c.lay.Class.StatusByteOffset()), int8(layout.StatusInitializedByte()))
	c.jcc(in.CCB, &b.entry)
	c.bind(&b.exit)
}

func (b *builder) buildClinitCheck(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.CallOnSlowPath)
	s.SetInAt(0, loc.RequiresReg())
	if b.hasUses(i) {
		s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	}
	return s
}

func (c *CodeGen) genClinitCheck(i *graph.Instruction) {
	b := c.addSlowPath(&loadClassPath{cls: i.Inputs[0], doClinit: true}, i)
	c.genClassInitializationCheck(b, i.Locations.InAt(0).Reg())
}

// Strings

func (b *builder) buildLoadString(i *graph.Instruction) *loc.Summary {
	a := i.LoadStringAux()

	kind := loc.NoCall
	switch a.Kind {
	case graph.StringBssEntry:
		kind = loc.CallOnSlowPath
	case graph.StringRuntimeCall:
		kind = loc.CallOnMainOnly
	case graph.StringJitTableAddress:
		if b.opt.emitReadBarrier() {
			kind = loc.CallOnSlowPath
		}
	}
	s := loc.NewSummary(0, kind)

	if a.Kind == graph.StringRuntimeCall {
		s.SetOut(loc.Reg(reg.RAX), loc.OutputOverlap)
		return s
	}

	s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
	if a.Kind == graph.StringBssEntry && b.opt.ReadBarrier != SlowReadBarrier {
		s.SetCustomSlowPathCallerSaves(reg.Of(reg.Core, reg.RAX))
	}
	return s
}

func (c *CodeGen) genLoadString(i *graph.Instruction) {
	text := &c.Text
	a := i.LoadStringAux()
	s := i.Locations
	out := s.Out()

	switch a.Kind {
	case graph.StringBootImageLinkTimePCRelative:
		in.LEA.RegMem(text, in.S32, out.Reg(), in.RIP(placeholderDisp))
		c.recordPatch(object.PatchBootImageString, a.DexFile, a.StringIndex)

	case graph.StringBootImageAddress:
		if a.Address == 0 {
			pan.Fatalf("boot image string %d has no address", a.StringIndex)
		}
		in.MOVo.RegImm32(text, out.Reg(), int32(a.Address))

	case graph.StringBootImageInternTable:
		in.MOV.RegMem(text, in.S32, out.Reg(), in.RIP(placeholderDisp))
		c.recordPatch(object.PatchBootImageString, a.DexFile, a.StringIndex)

	case graph.StringBssEntry:
		c.genGcRootLoad(i, out, in.RIP(placeholderDisp), func() {
			c.recordPatch(object.PatchBssString, a.DexFile, a.StringIndex)
		}, c.opt.emitReadBarrier())

		b := c.addSlowPath(new(loadStringPath), i)
		in.TEST.RegReg(text, in.S32, out.Reg(), out.Reg())
		c.jcc(in.CCE, &b.entry)
		c.bind(&b.exit)

	case graph.StringJitTableAddress:
		c.genGcRootLoad(i, out, in.Abs(placeholderDisp), func() {
			c.recordJitRoot(a.RootIndex, false)
		}, c.opt.emitReadBarrier())

	case graph.StringRuntimeCall:
		in.MOVo.RegImm32(text, reg.RAX, int32(a.StringIndex))
		c.invokeRuntime(layout.ResolveString, i)

	default:
		pan.Fatalf("unexpected string load kind %d", a.Kind)
	}
}

// Class tables

func (c *CodeGen) genClassTableGet(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	a := i.TableAux()
	class := s.InAt(0).Reg()
	out := s.Out().Reg()

	if a.Kind == graph.TableVTable {
		in.MOV.RegMem(text, in.S64, out, in.Addr(class, c.lay.VTableEntryOffset(a.Index)))
		return
	}

	in.MOV.RegMem(text, in.S64, out, in.Addr(class, c.lay.Class.ImtPtr))
	in.MOV.RegMem(text, in.S64, out, in.Addr(out, c.lay.ImtEntryOffset(a.Index)))
}

// Exceptions

func (c *CodeGen) genLoadException(i *graph.Instruction) {
	in.GS(&c.Text)
	in.MOV.RegMem(&c.Text, in.S32, i.Locations.Out().Reg(), in.Abs(c.lay.Thread.Exception))
}

func (c *CodeGen) genClearException() {
	in.GS(&c.Text)
	in.MOVi.MemImm(&c.Text, in.S32, in.Abs(c.lay.Thread.Exception), 0)
}

func (b *builder) buildThrow(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.CallOnMainOnly)
	s.SetInAt(0, callconv.RuntimeArg(0))
	return s
}

func (c *CodeGen) genThrow(i *graph.Instruction) {
	c.invokeRuntime(layout.DeliverException, i)
}
