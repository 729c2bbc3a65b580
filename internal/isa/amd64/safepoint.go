// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
	"github.com/tmthrgd/go-bitset"
)

// recordPcInfo at the current text address.  The instruction is nil for the
// stack overflow check of the frame entry.
func (c *CodeGen) recordPcInfo(i *graph.Instruction, dexPC uint32) {
	m := object.StackMap{
		NativePC: uint32(c.Text.Addr),
		DexPC:    dexPC,
	}

	if i != nil && i.Locations != nil {
		s := i.Locations
		m.RegisterMask = s.RegisterMask()
		if s.OnlyCallsOnSlowPath() {
			// Spilled caller-saves are clobbered by the callee; the stack
			// bits set while saving them describe their new home.
			m.RegisterMask &^= c.slowPathSpills(s, reg.Core).Mask(reg.Core)
		}
		if mask := s.StackMask(); len(mask) > 0 {
			m.StackMask = append(bitset.Bitset(nil), mask...)
		}
	}

	c.stackMaps = append(c.stackMaps, m)
}

// maybeRecordImplicitNullCheck after the first memory access through an
// object whose null check was folded into the instruction.
func (c *CodeGen) maybeRecordImplicitNullCheck(i *graph.Instruction) {
	if i == nil || len(i.Inputs) == 0 {
		return
	}
	if check := i.Inputs[0]; check.Op == graph.OpNullCheck && check.EmittedAtUseSite {
		c.recordPcInfo(check, check.DexPC)
	}
}

// invokeRuntime calls an entrypoint through the thread-local table.
func (c *CodeGen) invokeRuntime(e layout.Entrypoint, i *graph.Instruction) {
	c.invokeRuntimeWithoutRecordingPcInfo(e)
	if e.RequiresStackMap() {
		var dexPC uint32
		if i != nil {
			dexPC = i.DexPC
		}
		c.recordPcInfo(i, dexPC)
	}
}

func (c *CodeGen) invokeRuntimeWithoutRecordingPcInfo(e layout.Entrypoint) {
	in.GS(&c.Text)
	in.CALLm.Mem(&c.Text, in.OneSize, in.Abs(c.lay.EntrypointOffset(e)))
}

// saveLiveRegisters into the slow path spill area.  Stack bits are set for
// saved registers which hold references.
func (c *CodeGen) saveLiveRegisters(s *loc.Summary) {
	offset := c.frame.firstSlowPathSlot

	for _, r := range c.slowPathSpills(s, reg.Core).Regs(reg.Core) {
		if s.RegisterMask()&(1<<r) != 0 {
			s.SetStackBit(uint(offset / 4))
		}
		in.MOVmr.RegMem(&c.Text, in.S64, r, in.Stack(offset))
		offset += wordSize
	}

	for _, r := range c.slowPathSpills(s, reg.Fp).Regs(reg.Fp) {
		in.MOVSxmr.RegMem(&c.Text, in.S64, r, in.Stack(offset))
		offset += wordSize
	}
}

func (c *CodeGen) restoreLiveRegisters(s *loc.Summary) {
	offset := c.frame.firstSlowPathSlot

	for _, r := range c.slowPathSpills(s, reg.Core).Regs(reg.Core) {
		in.MOV.RegMem(&c.Text, in.S64, r, in.Stack(offset))
		offset += wordSize
	}

	for _, r := range c.slowPathSpills(s, reg.Fp).Regs(reg.Fp) {
		in.MOVSx.RegMem(&c.Text, in.S64, r, in.Stack(offset))
		offset += wordSize
	}
}
