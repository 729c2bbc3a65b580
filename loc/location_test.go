// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loc

import (
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
)

func TestKinds(t *testing.T) {
	for _, c := range []struct {
		l    Location
		kind Kind
	}{
		{NoLocation(), Invalid},
		{Reg(reg.RAX), Register},
		{FpuReg(reg.XMM3), FpuRegister},
		{ConstantOf(Int32(5)), Constant},
		{Stack(8), StackSlot},
		{DoubleStack(16), DoubleStackSlot},
		{SIMDStack(32), SIMDStackSlot},
		{RequiresReg(), Unallocated},
	} {
		if c.l.Kind() != c.kind {
			t.Errorf("%s: kind %d", c.l, c.l.Kind())
		}
	}
}

func TestEquals(t *testing.T) {
	if !Reg(reg.RCX).Equals(Reg(reg.RCX)) {
		t.Error("equal registers")
	}
	if Reg(reg.RCX).Equals(FpuReg(reg.XMM1)) {
		t.Error("rcx equals xmm1")
	}
	if Stack(8).Equals(DoubleStack(8)) {
		t.Error("stack slot equals double stack slot")
	}
	if !ConstantOf(Int64(-1)).Equals(ConstantOf(Int64(-1))) {
		t.Error("equal constants")
	}
	if ConstantOf(Int32(0)).Equals(ConstantOf(Null())) {
		t.Error("zero equals null")
	}
}

func TestOverlapsWith(t *testing.T) {
	for _, c := range []struct {
		a, b    Location
		overlap bool
	}{
		{Stack(8), Stack(8), true},
		{Stack(8), Stack(12), false},
		{DoubleStack(8), Stack(12), true},
		{Stack(4), DoubleStack(8), false},
		{SIMDStack(0), DoubleStack(8), true},
		{Reg(reg.RAX), Stack(0), false},
	} {
		if c.a.OverlapsWith(c.b) != c.overlap || c.b.OverlapsWith(c.a) != c.overlap {
			t.Errorf("%s overlaps %s: expected %v", c.a, c.b, c.overlap)
		}
	}
}

func TestAccessorMismatch(t *testing.T) {
	for _, f := range []func(){
		func() { Stack(4).Reg() },
		func() { Reg(reg.RAX).FpuReg() },
		func() { Reg(reg.RAX).StackIndex() },
		func() { Stack(4).HighStackIndex() },
		func() { FpuReg(reg.XMM0).Constant() },
		func() { Reg(reg.RAX).Policy() },
	} {
		err := func() (err error) {
			defer func() { err = pan.Error(recover()) }()
			f()
			return
		}()
		if err == nil {
			t.Error("mismatched accessor did not fail")
		}
	}
}

func TestParse(t *testing.T) {
	for _, l := range []Location{
		NoLocation(),
		Reg(reg.R13),
		FpuReg(reg.XMM15),
		Stack(0),
		DoubleStack(24),
		SIMDStack(48),
		ConstantOf(Int32(-7)),
		ConstantOf(Int64(1 << 40)),
		ConstantOf(Float32(1.5)),
		ConstantOf(Float64(-0.25)),
		ConstantOf(Null()),
		AnyLocation(),
		RequiresFpuReg(),
		SameAsFirst(),
	} {
		parsed, err := Parse(l.String())
		if err != nil {
			t.Errorf("%s: %v", l, err)
			continue
		}
		if !parsed.Equals(l) {
			t.Errorf("%s parsed as %s", l, parsed)
		}
	}

	for _, s := range []string{"rax+1", "stack:-4", "dstack:x", "const:int32:x", "const:string:1", "xmm16"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("%q was accepted", s)
		}
	}
}

func TestSummaryStackMask(t *testing.T) {
	s := NewSummary(2, CallOnSlowPath)
	s.SetStackBit(3)
	s.SetStackBit(70)
	s.SetRegisterBit(reg.RBX)

	if !s.StackMask().IsSet(3) || !s.StackMask().IsSet(70) || s.StackMask().IsSet(4) {
		t.Errorf("stack mask: %s", s.StackMask())
	}
	if s.StackMask().Count() != 2 {
		t.Errorf("stack mask count: %d", s.StackMask().Count())
	}
	if s.RegisterMask() != 1<<reg.RBX {
		t.Errorf("register mask: %#x", s.RegisterMask())
	}
	if !s.CanCall() || s.WillCall() || !s.OnlyCallsOnSlowPath() {
		t.Error("call kind predicates")
	}
}
