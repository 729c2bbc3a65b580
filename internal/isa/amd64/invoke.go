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

// buildInvoke assigns the managed calling convention to the arguments.  The
// callee method is passed in MethodReg.
func (b *builder) buildInvoke(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(len(i.Inputs), loc.CallOnMainOnly)

	var v callconv.Visitor
	for n := 0; n < i.NumArguments(); n++ {
		s.SetInAt(n, v.Next(i.Inputs[n].Type))
	}
	s.SetOut(callconv.ReturnLocation(i.Type), loc.OutputOverlap)

	method := loc.Reg(callconv.MethodReg)

	if i.Op == graph.OpInvokeStaticOrDirect {
		a := i.InvokeAux()
		special := len(i.Inputs) - 1

		switch a.MethodLoad {
		case graph.MethodRecursive:
			s.SetInAt(special, method)
		case graph.MethodRuntimeCall:
			s.AddTemp(method)
			s.SetInAt(special, loc.RequiresReg())
		default:
			s.AddTemp(method)
		}
	} else {
		s.AddTemp(method)
	}

	if i.Op == graph.OpInvokeInterface {
		s.AddTemp(loc.Reg(reg.RAX)) // hidden argument
	}
	return s
}

// callMethod calls the quick code of the method in a register.
func (c *CodeGen) callMethod(method reg.R) {
	in.CALLm.Mem(&c.Text, in.OneSize, in.Addr(method, c.lay.Method.EntryPointFromQuickCompiledCode))
}

func (c *CodeGen) genInvokeStaticOrDirect(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	a := i.InvokeAux()

	var temp reg.R
	if s.TempCount() > 0 {
		temp = s.Temp(0).Reg()
	}
	callee := temp

	switch a.MethodLoad {
	case graph.MethodStringInit:
		in.GS(text)
		in.MOV.RegMem(text, in.S64, temp, in.Abs(c.lay.StringInitOffset(int(a.StringInit))))

	case graph.MethodRecursive:
		callee = s.InAt(len(i.Inputs) - 1).Reg()

	case graph.MethodBootImageLinkTimePCRelative:
		in.LEA.RegMem(text, in.S32, temp, in.RIP(placeholderDisp))
		c.recordPatch(object.PatchBootImageMethod, a.DexFile, a.MethodIndex)

	case graph.MethodDirectAddress:
		c.load64(temp, int64(a.Address))

	case graph.MethodBssEntry:
		in.MOV.RegMem(text, in.S64, temp, in.RIP(placeholderDisp))
		c.recordPatch(object.PatchBssMethod, a.DexFile, a.MethodIndex)

	case graph.MethodRuntimeCall:
		c.moveConstant(s.Temp(0), int32(a.MethodIndex))
		c.invokeRuntime(trampolineEntrypoint(a.Type), i)
		return

	default:
		pan.Fatalf("unexpected method load kind %d", a.MethodLoad)
	}

	switch a.CodePtr {
	case graph.CallSelf:
		if !c.frameEntry.Bound {
			pan.Fatalf("self call before frame entry")
		}
		in.CALLcd.Addr32(text, c.frameEntry.Addr)
	default:
		c.callMethod(callee)
	}
	c.recordPcInfo(i, i.DexPC)
}

// loadReceiverClass loads the class of the receiver into temp and records
// the implicit null check.
func (c *CodeGen) loadReceiverClass(i *graph.Instruction, receiver loc.Location, temp reg.R) {
	text := &c.Text
	if receiver.IsStackSlot() {
		in.MOV.RegMem(text, in.S32, temp, in.Stack(receiver.StackIndex()))
		in.MOV.RegMem(text, in.S32, temp, in.Addr(temp, c.lay.Object.Class))
	} else {
		in.MOV.RegMem(text, in.S32, temp, in.Addr(receiver.Reg(), c.lay.Object.Class))
	}
	c.maybeRecordImplicitNullCheck(i)
	// The class is an intermediate reference which is not marked.
	c.maybeUnpoisonHeapReference(temp)
}

func (c *CodeGen) genInvokeVirtual(i *graph.Instruction) {
	temp := i.Locations.Temp(0).Reg()

	// The receiver is always in the first argument register.
	c.loadReceiverClass(i, loc.Reg(callconv.ParamRegs[0]), temp)
	in.MOV.RegMem(&c.Text, in.S64, temp, in.Addr(temp, c.lay.VTableEntryOffset(i.InvokeAux().VTableIndex)))
	c.callMethod(temp)
	c.recordPcInfo(i, i.DexPC)
}

func (c *CodeGen) genInvokeInterface(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	a := i.InvokeAux()
	temp, hidden := s.Temp(0).Reg(), s.Temp(1).Reg()

	// Nothing clobbers the hidden argument before the call.
	c.load64(hidden, int64(a.MethodIndex))

	c.loadReceiverClass(i, s.InAt(0), temp)
	in.MOV.RegMem(text, in.S64, temp, in.Addr(temp, c.lay.Class.ImtPtr))
	in.MOV.RegMem(text, in.S64, temp, in.Addr(temp, c.lay.ImtEntryOffset(a.ImtIndex)))
	c.callMethod(temp)
	c.recordPcInfo(i, i.DexPC)
}

func trampolineEntrypoint(t graph.InvokeType) layout.Entrypoint {
	switch t {
	case graph.InvokeStatic:
		return layout.InvokeStaticTrampolineWithAccessCheck
	case graph.InvokeDirect:
		return layout.InvokeDirectTrampolineWithAccessCheck
	case graph.InvokeVirtual:
		return layout.InvokeVirtualTrampolineWithAccessCheck
	case graph.InvokeSuper:
		return layout.InvokeSuperTrampolineWithAccessCheck
	case graph.InvokeInterface:
		return layout.InvokeInterfaceTrampolineWithAccessCheck
	}
	pan.Fatalf("unexpected invoke type %d", t)
	return 0
}

// genInvokeUnresolved passes the method index in place of the callee
// method.
func (c *CodeGen) genInvokeUnresolved(i *graph.Instruction) {
	a := i.InvokeAux()
	c.moveConstant(i.Locations.Temp(0), int32(a.MethodIndex))
	c.invokeRuntime(trampolineEntrypoint(a.Type), i)
}

func (c *CodeGen) genInvokePolymorphic(i *graph.Instruction) {
	c.moveConstant(i.Locations.Temp(0), int32(i.Type))
	c.invokeRuntime(layout.InvokePolymorphic, i)
}
