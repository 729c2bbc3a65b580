// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/condition"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// Cond of a Condition instruction.
type Cond uint8

const (
	CondEQ = Cond(condition.Eq)
	CondNE = Cond(condition.Ne)
	CondLT = Cond(condition.Lt)
	CondLE = Cond(condition.Le)
	CondGT = Cond(condition.Gt)
	CondGE = Cond(condition.Ge)
	CondB  = Cond(condition.B)
	CondBE = Cond(condition.BE)
	CondA  = Cond(condition.A)
	CondAE = Cond(condition.AE)
)

func (c Cond) String() string { return condition.C(c).String() }

// ParseCond name.
func ParseCond(s string) (Cond, bool) {
	c, ok := condition.Parse(s)
	return Cond(c), ok
}

// Bias of a floating-point comparison decides the result when an operand is
// NaN.
type Bias uint8

const (
	NoBias Bias = iota
	GtBias      // NaN compares greater
	LtBias      // NaN compares less
)

// Constant bit pattern.  The instruction type selects its interpretation.
type Constant struct {
	Bits int64 `msgpack:"bits"`
}

type Compare struct {
	Cond Cond `msgpack:"cond"`
	Bias Bias `msgpack:"bias"`
}

type Switch struct {
	StartValue int32  `msgpack:"start"`
	NumEntries uint32 `msgpack:"entries"`
}

type DeoptKind uint8

const (
	DeoptBCE DeoptKind = iota
	DeoptCHA
	DeoptInline
	DeoptDebugging
	DeoptFull
)

type Deopt struct {
	Kind DeoptKind `msgpack:"kind"`
}

type Field struct {
	Offset         uint32        `msgpack:"offset"`
	Type           datatype.Type `msgpack:"type"`
	Volatile       bool          `msgpack:"volatile,omitempty"`
	Index          uint32        `msgpack:"index,omitempty"` // dex field index for unresolved access
	ValueCanBeNull bool          `msgpack:"nullable,omitempty"`
}

// Array access details.  StringCharAt applies to ArrayGet, ArrayLength and
// BoundsCheck of String.charAt and String.length.
type Array struct {
	StringCharAt   bool `msgpack:"charat,omitempty"`
	NeedsTypeCheck bool `msgpack:"typecheck,omitempty"`
	ValueCanBeNull bool `msgpack:"nullable,omitempty"`

	// StaticTypeIsObjectArray allows a type check shortcut for stores into
	// Object[].
	StaticTypeIsObjectArray bool `msgpack:"objectarray,omitempty"`
}

type AllocKind uint8

const (
	AllocResolved AllocKind = iota
	AllocInitialized
	AllocWithChecks
)

type NewInstance struct {
	Alloc       AllocKind `msgpack:"alloc"`
	StringAlloc bool      `msgpack:"string,omitempty"`
}

type NewArray struct {
	ComponentSizeShift uint8 `msgpack:"shift"`
}

type LoadClassKind uint8

const (
	ClassReferrers LoadClassKind = iota
	ClassBootImageLinkTimePCRelative
	ClassBootImageAddress
	ClassBootImageClassTable
	ClassBssEntry
	ClassJitTableAddress
	ClassRuntimeCall
)

type LoadClass struct {
	Kind             LoadClassKind `msgpack:"kind"`
	TypeIndex        uint32        `msgpack:"type"`
	DexFile          uint32        `msgpack:"dex,omitempty"`
	Address          uint32        `msgpack:"address,omitempty"`
	RootIndex        uint32        `msgpack:"root,omitempty"`
	NeedsAccessCheck bool          `msgpack:"access,omitempty"`
	ClinitCheck      bool          `msgpack:"clinit,omitempty"`
	InBootImage      bool          `msgpack:"boot,omitempty"`

	// MaskedHash is subtracted from the class table entry of
	// ClassBootImageClassTable.
	MaskedHash int32 `msgpack:"hash,omitempty"`
}

type LoadStringKind uint8

const (
	StringBootImageLinkTimePCRelative LoadStringKind = iota
	StringBootImageAddress
	StringBootImageInternTable
	StringBssEntry
	StringJitTableAddress
	StringRuntimeCall
)

type LoadString struct {
	Kind        LoadStringKind `msgpack:"kind"`
	StringIndex uint32         `msgpack:"string"`
	DexFile     uint32         `msgpack:"dex,omitempty"`
	Address     uint32         `msgpack:"address,omitempty"`
	RootIndex   uint32         `msgpack:"root,omitempty"`
}

type TypeCheckKind uint8

const (
	CheckExact TypeCheckKind = iota
	CheckAbstractClass
	CheckClassHierarchy
	CheckArrayObject
	CheckArray
	CheckUnresolved
	CheckInterface
)

type TypeCheck struct {
	Kind            TypeCheckKind `msgpack:"kind"`
	MustDoNullCheck bool          `msgpack:"nullcheck,omitempty"`
}

type Monitor struct {
	Enter bool `msgpack:"enter"`
}

type InvokeType uint8

const (
	InvokeStatic InvokeType = iota
	InvokeDirect
	InvokeVirtual
	InvokeSuper
	InvokeInterface
	InvokePolymorphic
)

type MethodLoadKind uint8

const (
	MethodStringInit MethodLoadKind = iota
	MethodRecursive
	MethodBootImageLinkTimePCRelative
	MethodDirectAddress
	MethodBssEntry
	MethodRuntimeCall
)

type CodePtrLocation uint8

const (
	CallArtMethod CodePtrLocation = iota
	CallSelf
)

type Invoke struct {
	Type        InvokeType      `msgpack:"type"`
	MethodIndex uint32          `msgpack:"method"`
	DexFile     uint32          `msgpack:"dex,omitempty"`
	MethodLoad  MethodLoadKind  `msgpack:"load,omitempty"`
	CodePtr     CodePtrLocation `msgpack:"codeptr,omitempty"`
	Address     uint64          `msgpack:"address,omitempty"`
	VTableIndex uint32          `msgpack:"vtable,omitempty"`
	ImtIndex    uint32          `msgpack:"imt,omitempty"`

	// StringInit selects the string factory of a MethodStringInit call.
	StringInit uint8 `msgpack:"stringinit,omitempty"`
}

// HasCurrentMethodInput is true if the last input of InvokeStaticOrDirect is
// the current method.
func (inv *Invoke) HasCurrentMethodInput() bool {
	return inv.MethodLoad == MethodRecursive || inv.MethodLoad == MethodRuntimeCall
}

type TableKind uint8

const (
	TableVTable TableKind = iota
	TableIMT
)

type ClassTableGet struct {
	Kind  TableKind `msgpack:"kind"`
	Index uint32    `msgpack:"index"`
}

type BarrierKind uint8

const (
	BarrierAnyStore BarrierKind = iota
	BarrierLoadAny
	BarrierStoreStore
	BarrierAnyAny
)

type Barrier struct {
	Kind BarrierKind `msgpack:"kind"`
}

// Move of a ParallelMove instruction.  An Incoming source is a stack
// argument addressed relative to the caller's outgoing area; its offset is
// rebased when the frame size is known.
type Move struct {
	Source   loc.Location
	Dest     loc.Location
	Type     datatype.Type
	Incoming bool
}

type Moves []Move
