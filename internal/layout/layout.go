// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout describes the memory layout of runtime data structures as
// seen by compiled code: object headers, arrays, strings, classes, methods
// and the thread-local state addressed through the GS segment.
package layout

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
)

const (
	PointerSize   = 8
	ReferenceSize = 4
)

type Object struct {
	Class   int32
	Monitor int32
}

type Array struct {
	Length int32
}

// DataOffset of the first element.  Elements are aligned to their size.
func (a Array) DataOffset(elemSize int32) int32 {
	end := a.Length + 4
	return (end + elemSize - 1) &^ (elemSize - 1)
}

type String struct {
	Count int32 // length << 1 | uncompressed flag, when compression is enabled
	Value int32
}

// Flag values of the low bit of String.Count.
const (
	StringCompressed   = 0
	StringUncompressed = 1
)

type Class struct {
	ComponentType  int32
	IfTable        int32
	SuperClass     int32
	AccessFlags    int32
	Status         int32
	PrimitiveType  int32
	ImtPtr         int32
	EmbeddedVTable int32
}

// Class status is stored above the subtype check bits.
const (
	StatusLSB         = 28
	StatusInitialized = 14
)

// StatusByteOffset and StatusInitializedByte test for initialized status
// with a single byte compare.
func (c Class) StatusByteOffset() int32 { return c.Status + StatusLSB/8 }
func StatusInitializedByte() int32      { return StatusInitialized << (StatusLSB % 8) }

// PrimitiveType values: the low bits of Class.PrimitiveType.
const (
	PrimNot   = 0
	PrimShift = 16 // component size shift is stored above the type
)

type Method struct {
	DeclaringClass                  int32
	AccessFlags                     int32
	DexMethodIndex                  int32
	HotnessCount                    int32 // uint16
	Data                            int32
	EntryPointFromQuickCompiledCode int32
}

type Thread struct {
	Flags       int32 // uint16 suspend/checkpoint request flags
	IsGcMarking int32
	CardTable   int32
	Exception   int32
	EntryPoints int32 // quick entrypoint table
}

// LockWord bit fields.
const (
	ReadBarrierStateShift = 28
	ReadBarrierGrayState  = 1
)

// GrayByte returns the monitor byte offset and bit mask of the read barrier
// gray state.
func (o Object) GrayByte() (offset int32, mask int8) {
	return o.Monitor + ReadBarrierStateShift/8, int8(ReadBarrierGrayState << (ReadBarrierStateShift % 8))
}

// Card table.
const (
	CardShift = 10
	CardDirty = 0x70 // low byte of the biased card table base
)

// Schema is a versioned set of layouts.
type Schema struct {
	Version int

	Object Object
	Array  Array
	String String
	Class  Class
	Method Method
	Thread Thread

	ImtSize int32 // entries in an interface method table
}

// Default layout of the runtime.
var Default = Schema{
	Version: 1,

	Object: Object{Class: 0, Monitor: 4},
	Array:  Array{Length: 8},
	String: String{Count: 8, Value: 16},
	Class: Class{
		ComponentType:  12,
		IfTable:        24,
		SuperClass:     32,
		AccessFlags:    40,
		Status:         112,
		PrimitiveType:  108,
		ImtPtr:         120,
		EmbeddedVTable: 128,
	},
	Method: Method{
		DeclaringClass:                  0,
		AccessFlags:                     4,
		DexMethodIndex:                  12,
		HotnessCount:                    18,
		Data:                            24,
		EntryPointFromQuickCompiledCode: 32,
	},
	Thread: Thread{
		Flags:       0,
		IsGcMarking: 52,
		CardTable:   136,
		Exception:   144,
		EntryPoints: 1024,
	},

	ImtSize: 43,
}

// ArrayDataOffset for an element type.
func (s *Schema) ArrayDataOffset(t datatype.Type) int32 {
	if t == datatype.Void {
		pan.Fatalf("array of void")
	}
	return s.Array.DataOffset(t.Size())
}

// VTableEntryOffset within a class object.
func (s *Schema) VTableEntryOffset(index uint32) int32 {
	return s.Class.EmbeddedVTable + int32(index)*PointerSize
}

// ImtEntryOffset within an interface method table.
func (s *Schema) ImtEntryOffset(index uint32) int32 {
	return int32(index%uint32(s.ImtSize)) * PointerSize
}

// EntrypointOffset in thread-local storage.
func (s *Schema) EntrypointOffset(e Entrypoint) int32 {
	if e >= numEntrypoints {
		pan.Fatalf("invalid entrypoint %d", e)
	}
	return s.Thread.EntryPoints + int32(e)*PointerSize
}

// MarkEntrypointOffset of the per-register read barrier marking routine.
// The entry is null when the collector is not marking.
func (s *Schema) MarkEntrypointOffset(r reg.R) int32 {
	return s.EntrypointOffset(ReadBarrierMarkReg00 + Entrypoint(r))
}

// StringInitOffset of a string factory method pointer.
func (s *Schema) StringInitOffset(index int) int32 {
	e := NewEmptyString + Entrypoint(index)
	if e > NewStringFromStringBuilder {
		pan.Fatalf("invalid string init entrypoint %d", index)
	}
	return s.EntrypointOffset(e)
}
