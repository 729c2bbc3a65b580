// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package datatype enumerates the value types of the instruction graph.
package datatype

// Type of a value.  Sub-word types exist only in memory and in conversions;
// in registers they are widened to Int32.
type Type uint8

const (
	Void = Type(iota)
	Bool
	Uint8
	Int8
	Uint16
	Int16
	Int32
	Int64
	Float32
	Float64
	Reference
)

const numTypes = 11

var sizes = [numTypes]uint8{
	Void:      0,
	Bool:      1,
	Uint8:     1,
	Int8:      1,
	Uint16:    2,
	Int16:     2,
	Int32:     4,
	Int64:     8,
	Float32:   4,
	Float64:   8,
	Reference: 4, // compressed heap reference
}

// Size in bytes of the memory representation.
func (t Type) Size() int32 { return int32(sizes[t]) }

func (t Type) IsFloat() bool { return t == Float32 || t == Float64 }

func (t Type) IsInt() bool { return t >= Bool && t <= Int64 }

func (t Type) Is64Bit() bool { return t == Int64 || t == Float64 }

// RegSize is the operand size when the value is held in a register.
// References are 32-bit.
func (t Type) RegSize() int32 {
	if t.Is64Bit() {
		return 8
	}
	return 4
}

var names = [numTypes]string{
	Void:      "void",
	Bool:      "bool",
	Uint8:     "uint8",
	Int8:      "int8",
	Uint16:    "uint16",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	Float32:   "float32",
	Float64:   "float64",
	Reference: "reference",
}

func (t Type) String() string {
	if int(t) < len(names) {
		return names[t]
	}
	return "<invalid type>"
}

// Parse type name.
func Parse(s string) (Type, bool) {
	for i, name := range names {
		if name == s {
			return Type(i), true
		}
	}
	return 0, false
}
