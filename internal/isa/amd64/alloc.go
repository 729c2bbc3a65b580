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
)

func (b *builder) buildNewInstance(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(len(i.Inputs), loc.CallOnMainOnly)
	if i.NewInstanceAux().StringAlloc {
		s.AddTemp(loc.Reg(callconv.MethodReg))
	} else {
		s.SetInAt(0, callconv.RuntimeArg(0))
	}
	s.SetOut(loc.Reg(reg.RAX), loc.OutputOverlap)
	return s
}

func allocObjectEntrypoint(k graph.AllocKind) layout.Entrypoint {
	switch k {
	case graph.AllocResolved:
		return layout.AllocObjectResolved
	case graph.AllocInitialized:
		return layout.AllocObjectInitialized
	case graph.AllocWithChecks:
		return layout.AllocObjectWithChecks
	}
	pan.Fatalf("unexpected allocation kind %d", k)
	return 0
}

func (c *CodeGen) genNewInstance(i *graph.Instruction) {
	a := i.NewInstanceAux()
	if !a.StringAlloc {
		c.invokeRuntime(allocObjectEntrypoint(a.Alloc), i)
		return
	}

	// Empty strings are created by the factory method, which is called as
	// managed code.
	text := &c.Text
	temp := i.Locations.Temp(0).Reg()
	in.GS(text)
	in.MOV.RegMem(text, in.S64, temp, in.Abs(c.lay.EntrypointOffset(layout.NewEmptyString)))
	in.CALLm.Mem(text, in.OneSize, in.Addr(temp, c.lay.Method.EntryPointFromQuickCompiledCode))
	c.recordPcInfo(i, i.DexPC)
}

func (b *builder) buildNewArray(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(2, loc.CallOnMainOnly)
	s.SetInAt(0, callconv.RuntimeArg(0))
	s.SetInAt(1, callconv.RuntimeArg(1))
	s.SetOut(loc.Reg(reg.RAX), loc.OutputOverlap)
	return s
}

func (c *CodeGen) genNewArray(i *graph.Instruction) {
	shift := int(i.NewArrayAux().ComponentSizeShift)
	if shift > 3 {
		pan.Fatalf("invalid component size shift %d", shift)
	}
	c.invokeRuntime(layout.AllocArrayEntrypoint(shift), i)
}

func (b *builder) buildMonitor(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.CallOnMainOnly)
	s.SetInAt(0, callconv.RuntimeArg(0))
	return s
}

func (c *CodeGen) genMonitor(i *graph.Instruction) {
	if i.MonitorAux().Enter {
		c.invokeRuntime(layout.LockObject, i)
	} else {
		c.invokeRuntime(layout.UnlockObject, i)
	}
}
