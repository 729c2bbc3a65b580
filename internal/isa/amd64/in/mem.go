// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"fmt"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
)

type memKind uint8

const (
	memBase memKind = iota
	memBaseIndex
	memRIP
	memAbs
)

// Mem is a memory operand.
type Mem struct {
	Base  reg.R
	Index reg.R
	Scale Scale
	Disp  int32
	kind  memKind
}

// Addr is [base + disp].
func Addr(base reg.R, disp int32) Mem {
	return Mem{Base: base, Disp: disp, kind: memBase}
}

// AddrIndex is [base + index*scale + disp].  Index must not be rsp.
func AddrIndex(base, index reg.R, s Scale, disp int32) Mem {
	if index == reg.RSP {
		panic("rsp cannot be used as index register")
	}
	return Mem{Base: base, Index: index, Scale: s, Disp: disp, kind: memBaseIndex}
}

// Stack is [rsp + disp].
func Stack(disp int32) Mem {
	return Addr(reg.RSP, disp)
}

// RIP is [rip + disp].  The displacement is relative to the end of the
// instruction, and is typically a placeholder which gets patched.
func RIP(disp int32) Mem {
	return Mem{Disp: disp, kind: memRIP}
}

// Abs is an absolute 32-bit address.  It is used with the GS segment prefix
// to access thread-local state.
func Abs(addr int32) Mem {
	return Mem{Disp: addr, kind: memAbs}
}

// Offset returns the same operand with displacement adjusted.
func (m Mem) Offset(delta int32) Mem {
	m.Disp += delta
	return m
}

func (m Mem) IsRIP() bool { return m.kind == memRIP }

func (m Mem) rex() rexWRXB {
	switch m.kind {
	case memBase:
		return regRexB(m.Base)

	case memBaseIndex:
		return regRexX(m.Index) | regRexB(m.Base)

	default:
		return 0
	}
}

func (m Mem) String() string {
	switch m.kind {
	case memBase:
		return fmt.Sprintf("[%s%+d]", reg.CoreName(m.Base), m.Disp)

	case memBaseIndex:
		return fmt.Sprintf("[%s+%s*%d%+d]", reg.CoreName(m.Base), reg.CoreName(m.Index), 1<<(m.Scale>>6), m.Disp)

	case memRIP:
		return fmt.Sprintf("[rip%+d]", m.Disp)

	default:
		return fmt.Sprintf("[%#x]", m.Disp)
	}
}

// mem appends ModRM, optional SIB and displacement.
func (o *output) mem(ro ModRO, m Mem) {
	switch m.kind {
	case memRIP:
		o.mod(ModMem, ro, ModRMDisp32)
		o.int32(m.Disp)

	case memAbs:
		o.mod(ModMem, ro, ModRMSIB)
		o.sib(Scale0, noIndex, noBase)
		o.int32(m.Disp)

	case memBase:
		mod, size := baseDispModSize(m.Base, m.Disp)
		if m.Base&7 == reg.RSP {
			o.mod(mod, ro, ModRMSIB)
			o.sib(Scale0, noIndex, regBase(m.Base))
		} else {
			o.mod(mod, ro, regRM(m.Base))
		}
		o.int(m.Disp, size)

	case memBaseIndex:
		mod, size := baseDispModSize(m.Base, m.Disp)
		o.mod(mod, ro, ModRMSIB)
		o.sib(m.Scale, regIndex(m.Index), regBase(m.Base))
		o.int(m.Disp, size)
	}
}

// baseDispModSize is like dispModSize, but rbp and r13 bases cannot be
// encoded without displacement.
func baseDispModSize(base reg.R, disp int32) (Mod, uint8) {
	mod, size := dispModSize(disp)
	if mod == ModMem && base&7 == reg.RBP {
		mod, size = ModMemDisp8, 1
	}
	return mod, size
}
