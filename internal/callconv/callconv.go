// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package callconv maps arguments and results of managed methods, runtime
// entrypoints and field access helpers to registers and stack slots.
package callconv

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

const (
	// MethodReg holds the callee method of a managed call.
	MethodReg = reg.RDI

	// HiddenArgReg holds the interface method of an interface call.
	HiddenArgReg = reg.RAX

	ReturnReg   = reg.RAX
	FpReturnReg = reg.XMM0

	// VRegSize is the stack size of a 32-bit argument.
	VRegSize = 4
)

// Managed calling convention.
var (
	ParamRegs   = []reg.R{reg.RSI, reg.RDX, reg.RCX, reg.R8, reg.R9}
	FpParamRegs = []reg.R{reg.XMM0, reg.XMM1, reg.XMM2, reg.XMM3, reg.XMM4, reg.XMM5, reg.XMM6, reg.XMM7}
)

// Runtime calling convention.
var (
	RuntimeParamRegs   = []reg.R{reg.RDI, reg.RSI, reg.RDX, reg.RCX}
	RuntimeFpParamRegs = []reg.R{reg.XMM0, reg.XMM1}
)

// Callee-saved registers.
var (
	CoreCalleeSaves = []reg.R{reg.RBX, reg.RBP, reg.R12, reg.R13, reg.R14, reg.R15}
	FpCalleeSaves   = []reg.R{reg.XMM12, reg.XMM13, reg.XMM14, reg.XMM15}
)

// CalleeSaves as a set.
func CalleeSaves() reg.Set {
	return reg.Of(reg.Core, CoreCalleeSaves...).Union(reg.Of(reg.Fp, FpCalleeSaves...))
}

// CallerSaves are the allocatable registers clobbered by calls.
func CallerSaves() (s reg.Set) {
	for r := reg.R(0); r < reg.NumCore; r++ {
		if r != reg.RSP && r != reg.TMP {
			s = s.With(reg.Core, r)
		}
	}
	for r := reg.R(0); r < reg.NumFp; r++ {
		s = s.With(reg.Fp, r)
	}
	return s.Difference(CalleeSaves())
}

// IsCoreCalleeSave register.
func IsCoreCalleeSave(r reg.R) bool {
	for _, x := range CoreCalleeSaves {
		if x == r {
			return true
		}
	}
	return false
}

// StackOffsetOf an argument slot in the caller's outgoing area.  The first
// slot is reserved for the callee method.
func StackOffsetOf(index int32) int32 {
	return index*VRegSize + 8
}

// ReturnLocation of a managed call or a runtime call.
func ReturnLocation(t datatype.Type) loc.Location {
	switch {
	case t == datatype.Void:
		return loc.NoLocation()
	case t.IsFloat():
		return loc.FpuReg(FpReturnReg)
	default:
		return loc.Reg(ReturnReg)
	}
}

// Visitor assigns locations to successive managed arguments.
type Visitor struct {
	gpIndex    int
	floatIndex int
	stackIndex int32
}

func (v *Visitor) Next(t datatype.Type) loc.Location {
	switch t {
	case datatype.Float32:
		index := v.floatIndex
		v.floatIndex++
		v.stackIndex++
		if index < len(FpParamRegs) {
			return loc.FpuReg(FpParamRegs[index])
		}
		return loc.Stack(StackOffsetOf(v.stackIndex - 1))

	case datatype.Float64:
		index := v.floatIndex
		v.floatIndex++
		v.stackIndex += 2
		if index < len(FpParamRegs) {
			return loc.FpuReg(FpParamRegs[index])
		}
		return loc.DoubleStack(StackOffsetOf(v.stackIndex - 2))

	case datatype.Int64:
		index := v.gpIndex
		v.stackIndex += 2
		if index < len(ParamRegs) {
			v.gpIndex++
			return loc.Reg(ParamRegs[index])
		}
		v.gpIndex += 2
		return loc.DoubleStack(StackOffsetOf(v.stackIndex - 2))

	case datatype.Void:
		return loc.NoLocation()

	default:
		index := v.gpIndex
		v.gpIndex++
		v.stackIndex++
		if index < len(ParamRegs) {
			return loc.Reg(ParamRegs[index])
		}
		return loc.Stack(StackOffsetOf(v.stackIndex - 1))
	}
}

// StackIndex is the number of 32-bit argument slots used so far.
func (v *Visitor) StackIndex() int32 { return v.stackIndex }

// RuntimeArg location of a runtime call argument.
func RuntimeArg(i int) loc.Location {
	return loc.Reg(RuntimeParamRegs[i])
}

// RuntimeFpArg location of a floating-point runtime call argument.
func RuntimeFpArg(i int) loc.Location {
	return loc.FpuReg(RuntimeFpParamRegs[i])
}

// Field access helper calling convention.

func FieldObjectLocation() loc.Location { return loc.Reg(reg.RSI) }
func FieldIndexLocation() loc.Location  { return loc.Reg(reg.RDI) }

func FieldReturnLocation(t datatype.Type) loc.Location {
	if t.IsFloat() {
		return loc.FpuReg(reg.XMM0)
	}
	return loc.Reg(reg.RAX)
}

// FieldSetValueLocation follows the object argument of an instance field,
// or replaces it for a static field.
func FieldSetValueLocation(t datatype.Type, instance bool) loc.Location {
	if t.IsFloat() {
		return loc.FpuReg(reg.XMM0)
	}
	if instance {
		return loc.Reg(reg.RDX)
	}
	return loc.Reg(reg.RSI)
}
