// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reg numbers x86-64 registers as the hardware does.  The same R
// value names a general-purpose or an XMM register depending on Category.
package reg

import (
	"math/bits"
	"strings"
)

type R byte

type Category uint8

const (
	Core = Category(0)
	Fp   = Category(1)
)

const (
	RAX = R(iota)
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

const (
	XMM0 = R(iota)
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
)

const (
	NumCore = 16
	NumFp   = 16

	// TMP is never allocated; instruction sequences may clobber it.
	TMP = R11
)

var coreNames = [NumCore]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}

func CoreName(r R) string {
	if int(r) < len(coreNames) {
		return coreNames[r]
	}
	return "<invalid register>"
}

func FpName(r R) string {
	if r < NumFp {
		return "xmm" + itoa(int(r))
	}
	return "<invalid register>"
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return "1" + string(rune('0'+i-10))
}

// ParseCore returns the register named by s, or false.
func ParseCore(s string) (R, bool) {
	for i, name := range coreNames {
		if name == s {
			return R(i), true
		}
	}
	return 0, false
}

// ParseFp returns the XMM register named by s, or false.
func ParseFp(s string) (R, bool) {
	for i := R(0); i < NumFp; i++ {
		if FpName(i) == s {
			return i, true
		}
	}
	return 0, false
}

// Set of core and floating-point registers.  Categories are interleaved: bit
// 2*r is core register r, bit 2*r+1 is XMM register r.
type Set uint64

func index(cat Category, r R) uint8 { return uint8(r<<1) + uint8(cat) }

func Of(cat Category, rs ...R) (s Set) {
	for _, r := range rs {
		s = s.With(cat, r)
	}
	return
}

func (s Set) With(cat Category, r R) Set    { return s | Set(1)<<index(cat, r) }
func (s Set) Without(cat Category, r R) Set { return s &^ (Set(1) << index(cat, r)) }
func (s Set) Contains(cat Category, r R) bool {
	return s&(Set(1)<<index(cat, r)) != 0
}

func (s Set) Union(other Set) Set        { return s | other }
func (s Set) Intersection(other Set) Set { return s & other }
func (s Set) Difference(other Set) Set   { return s &^ other }

func (s Set) Count(cat Category) int {
	return bits.OnesCount64(uint64(s.Mask(cat)))
}

// Mask returns the registers of a category as a plain bit mask indexed by
// register number.
func (s Set) Mask(cat Category) (mask uint32) {
	for r := R(0); r < NumCore; r++ {
		if s.Contains(cat, r) {
			mask |= 1 << r
		}
	}
	return
}

// FromMasks is the inverse of Mask.
func FromMasks(core, fp uint32) (s Set) {
	for r := R(0); r < NumCore; r++ {
		if core&(1<<r) != 0 {
			s = s.With(Core, r)
		}
		if fp&(1<<r) != 0 {
			s = s.With(Fp, r)
		}
	}
	return
}

// Regs lists the registers of a category in ascending order.
func (s Set) Regs(cat Category) (rs []R) {
	for r := R(0); r < NumCore; r++ {
		if s.Contains(cat, r) {
			rs = append(rs, r)
		}
	}
	return
}

func (s Set) String() string {
	var names []string
	for _, r := range s.Regs(Core) {
		names = append(names, CoreName(r))
	}
	for _, r := range s.Regs(Fp) {
		names = append(names, FpName(r))
	}
	return "{" + strings.Join(names, " ") + "}"
}
