// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loc describes where values live: registers, stack slots and
// constants, or the allocation policy of a value not yet placed.
package loc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
)

type Kind uint8

const (
	Invalid = Kind(iota)
	Register
	FpuRegister
	Constant
	StackSlot
	DoubleStackSlot
	SIMDStackSlot
	Unallocated
)

// Policy of an unallocated location.
type Policy uint8

const (
	Any = Policy(iota)
	RequiresRegister
	RequiresFpuRegister
	SameAsFirstInput
)

// Const is the value of a constant location.  Float bits are stored as
// their IEEE representation; Int32 is sign-extended.
type Const struct {
	Type datatype.Type
	Bits int64
}

func Int32(x int32) Const     { return Const{datatype.Int32, int64(x)} }
func Int64(x int64) Const     { return Const{datatype.Int64, x} }
func Float32(x float32) Const { return Const{datatype.Float32, int64(math.Float32bits(x))} }
func Float64(x float64) Const { return Const{datatype.Float64, int64(math.Float64bits(x))} }
func Null() Const             { return Const{datatype.Reference, 0} }

func (c Const) Int32() int32     { return int32(c.Bits) }
func (c Const) Int64() int64     { return c.Bits }
func (c Const) Float32() float32 { return math.Float32frombits(uint32(c.Bits)) }
func (c Const) Float64() float64 { return math.Float64frombits(uint64(c.Bits)) }
func (c Const) IsNull() bool     { return c.Type == datatype.Reference }

// IsZeroBitPattern is true for integer zero, null and +0.0.
func (c Const) IsZeroBitPattern() bool { return c.Bits == 0 }

// FitsInt32 reports whether the value can be encoded as a sign-extended
// 32-bit immediate.
func (c Const) FitsInt32() bool { return c.Bits == int64(int32(c.Bits)) }

func (c Const) String() string {
	switch c.Type {
	case datatype.Reference:
		return "null"
	case datatype.Float32:
		return "float32:" + strconv.FormatFloat(float64(c.Float32()), 'g', -1, 32)
	case datatype.Float64:
		return "float64:" + strconv.FormatFloat(c.Float64(), 'g', -1, 64)
	default:
		return c.Type.String() + ":" + strconv.FormatInt(c.Bits, 10)
	}
}

// Location is a value type.  The zero value is invalid.
type Location struct {
	kind   Kind
	policy Policy
	reg    reg.R
	offset int32
	value  Const
}

func NoLocation() Location { return Location{} }

func Reg(r reg.R) Location    { return Location{kind: Register, reg: r} }
func FpuReg(r reg.R) Location { return Location{kind: FpuRegister, reg: r} }

// RegOf category.
func RegOf(cat reg.Category, r reg.R) Location {
	if cat == reg.Fp {
		return FpuReg(r)
	}
	return Reg(r)
}

// Stack slot offsets are relative to the stack pointer.
func Stack(offset int32) Location       { return Location{kind: StackSlot, offset: offset} }
func DoubleStack(offset int32) Location { return Location{kind: DoubleStackSlot, offset: offset} }
func SIMDStack(offset int32) Location   { return Location{kind: SIMDStackSlot, offset: offset} }

// StackFor type: a double stack slot for 64-bit types.
func StackFor(t datatype.Type, offset int32) Location {
	if t.Is64Bit() {
		return DoubleStack(offset)
	}
	return Stack(offset)
}

func ConstantOf(c Const) Location { return Location{kind: Constant, value: c} }

func UnallocatedOf(p Policy) Location { return Location{kind: Unallocated, policy: p} }
func AnyLocation() Location           { return UnallocatedOf(Any) }
func RequiresReg() Location           { return UnallocatedOf(RequiresRegister) }
func RequiresFpuReg() Location        { return UnallocatedOf(RequiresFpuRegister) }
func SameAsFirst() Location           { return UnallocatedOf(SameAsFirstInput) }

func (l Location) Kind() Kind { return l.kind }

func (l Location) IsValid() bool           { return l.kind != Invalid }
func (l Location) IsInvalid() bool         { return l.kind == Invalid }
func (l Location) IsRegister() bool        { return l.kind == Register }
func (l Location) IsFpuRegister() bool     { return l.kind == FpuRegister }
func (l Location) IsConstant() bool        { return l.kind == Constant }
func (l Location) IsStackSlot() bool       { return l.kind == StackSlot }
func (l Location) IsDoubleStackSlot() bool { return l.kind == DoubleStackSlot }
func (l Location) IsSIMDStackSlot() bool   { return l.kind == SIMDStackSlot }
func (l Location) IsUnallocated() bool     { return l.kind == Unallocated }

// IsAnyRegister is a core or an XMM register.
func (l Location) IsAnyRegister() bool { return l.kind == Register || l.kind == FpuRegister }

// IsStack slot of any width.
func (l Location) IsStack() bool {
	return l.kind == StackSlot || l.kind == DoubleStackSlot || l.kind == SIMDStackSlot
}

func (l Location) mismatch(what string) {
	pan.Fatalf("%s accessed on location %s", what, l)
}

// Reg of a core register location.
func (l Location) Reg() reg.R {
	if l.kind != Register {
		l.mismatch("core register")
	}
	return l.reg
}

// FpuReg of an XMM register location.
func (l Location) FpuReg() reg.R {
	if l.kind != FpuRegister {
		l.mismatch("fpu register")
	}
	return l.reg
}

// AnyReg of a core or XMM register location.
func (l Location) AnyReg() reg.R {
	if !l.IsAnyRegister() {
		l.mismatch("register")
	}
	return l.reg
}

// Category of a register location.
func (l Location) Category() reg.Category {
	if l.kind == FpuRegister {
		return reg.Fp
	}
	if l.kind != Register {
		l.mismatch("register category")
	}
	return reg.Core
}

// StackIndex is the offset of a stack slot of any width.
func (l Location) StackIndex() int32 {
	if !l.IsStack() {
		l.mismatch("stack index")
	}
	return l.offset
}

// HighStackIndex is the offset of the upper half of a double stack slot.
func (l Location) HighStackIndex() int32 {
	if l.kind != DoubleStackSlot {
		l.mismatch("high stack index")
	}
	return l.offset + 4
}

func (l Location) Constant() Const {
	if l.kind != Constant {
		l.mismatch("constant")
	}
	return l.value
}

func (l Location) Policy() Policy {
	if l.kind != Unallocated {
		l.mismatch("policy")
	}
	return l.policy
}

// StackSize in bytes of a stack slot kind.
func (l Location) StackSize() int32 {
	switch l.kind {
	case StackSlot:
		return 4
	case DoubleStackSlot:
		return 8
	case SIMDStackSlot:
		return 16
	}
	l.mismatch("stack size")
	return 0
}

// Equals compares kind and payload.
func (l Location) Equals(o Location) bool {
	if l.kind != o.kind {
		return false
	}

	switch l.kind {
	case Invalid:
		return true
	case Register, FpuRegister:
		return l.reg == o.reg
	case Constant:
		return l.value == o.value
	case StackSlot, DoubleStackSlot, SIMDStackSlot:
		return l.offset == o.offset
	case Unallocated:
		return l.policy == o.policy
	}
	return false
}

// OverlapsWith is true if the locations are equal, or if they are stack
// slots with overlapping byte ranges.
func (l Location) OverlapsWith(o Location) bool {
	if l.Equals(o) {
		return true
	}
	if l.IsStack() && o.IsStack() {
		return l.offset < o.offset+o.StackSize() && o.offset < l.offset+l.StackSize()
	}
	return false
}

// Shifted returns a stack location with offset adjusted; other kinds are
// returned unchanged.
func (l Location) Shifted(delta int32) Location {
	if l.IsStack() {
		l.offset += delta
	}
	return l
}

func (l Location) String() string {
	switch l.kind {
	case Invalid:
		return "-"
	case Register:
		return reg.CoreName(l.reg)
	case FpuRegister:
		return reg.FpName(l.reg)
	case Constant:
		return "const:" + l.value.String()
	case StackSlot:
		return fmt.Sprintf("stack:%d", l.offset)
	case DoubleStackSlot:
		return fmt.Sprintf("dstack:%d", l.offset)
	case SIMDStackSlot:
		return fmt.Sprintf("simd:%d", l.offset)
	case Unallocated:
		return policyNames[l.policy]
	}
	return "<invalid location>"
}

var policyNames = [...]string{
	Any:                 "any",
	RequiresRegister:    "reg",
	RequiresFpuRegister: "fpureg",
	SameAsFirstInput:    "same",
}

// Parse the textual form produced by String.
func Parse(s string) (Location, error) {
	if s == "-" || s == "" {
		return Location{}, nil
	}

	for i, name := range policyNames {
		if s == name {
			return UnallocatedOf(Policy(i)), nil
		}
	}

	if r, ok := reg.ParseCore(s); ok {
		return Reg(r), nil
	}
	if r, ok := reg.ParseFp(s); ok {
		return FpuReg(r), nil
	}

	prefix, rest, found := strings.Cut(s, ":")
	if !found {
		return Location{}, errors.Inputf("invalid location: %q", s)
	}

	switch prefix {
	case "stack", "dstack", "simd":
		offset, err := strconv.ParseInt(rest, 10, 32)
		if err != nil || offset < 0 {
			return Location{}, errors.Inputf("invalid stack offset: %q", s)
		}
		switch prefix {
		case "stack":
			return Stack(int32(offset)), nil
		case "dstack":
			return DoubleStack(int32(offset)), nil
		default:
			return SIMDStack(int32(offset)), nil
		}

	case "const":
		c, err := ParseConst(rest)
		if err != nil {
			return Location{}, err
		}
		return ConstantOf(c), nil
	}

	return Location{}, errors.Inputf("invalid location: %q", s)
}

// ParseConst parses the textual form produced by Const.String.
func ParseConst(s string) (Const, error) {
	if s == "null" {
		return Null(), nil
	}

	typeName, value, found := strings.Cut(s, ":")
	if !found {
		return Const{}, errors.Inputf("invalid constant: %q", s)
	}

	t, ok := datatype.Parse(typeName)
	if !ok {
		return Const{}, errors.Inputf("invalid constant type: %q", s)
	}

	switch t {
	case datatype.Float32:
		x, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return Const{}, errors.Inputf("invalid constant: %q", s)
		}
		return Float32(float32(x)), nil

	case datatype.Float64:
		x, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Const{}, errors.Inputf("invalid constant: %q", s)
		}
		return Float64(x), nil

	case datatype.Int64:
		x, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Const{}, errors.Inputf("invalid constant: %q", s)
		}
		return Int64(x), nil

	case datatype.Bool, datatype.Uint8, datatype.Int8, datatype.Uint16, datatype.Int16, datatype.Int32:
		x, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return Const{}, errors.Inputf("invalid constant: %q", s)
		}
		return Int32(int32(x)), nil
	}

	return Const{}, errors.Inputf("invalid constant type: %q", s)
}
