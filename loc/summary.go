// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loc

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/tmthrgd/go-bitset"
)

// CallKind governs which registers the allocator treats as clobbered by an
// instruction.
type CallKind uint8

const (
	NoCall = CallKind(iota)
	CallOnSlowPath
	CallOnMainOnly
	CallOnMainAndSlowPath
)

var callKindNames = [...]string{
	NoCall:                "nocall",
	CallOnSlowPath:        "slowpath",
	CallOnMainOnly:        "main",
	CallOnMainAndSlowPath: "mainandslowpath",
}

func (k CallKind) String() string {
	if int(k) < len(callKindNames) {
		return callKindNames[k]
	}
	return "<invalid call kind>"
}

// ParseCallKind name.
func ParseCallKind(s string) (CallKind, bool) {
	for i, name := range callKindNames {
		if name == s {
			return CallKind(i), true
		}
	}
	return 0, false
}

// Overlap of the output with the inputs.
type Overlap bool

const (
	OutputOverlap   = Overlap(true)
	NoOutputOverlap = Overlap(false)
)

// Summary of the locations of an instruction's operands.  It is created
// during the build phase; the register allocator replaces the policies with
// concrete locations, and fills in the live registers.
type Summary struct {
	inputs      []Location
	temps       []Location
	out         Location
	outOverlaps Overlap
	callKind    CallKind

	intrinsified     bool
	customCallerSave bool
	callerSaves      reg.Set

	liveRegs     reg.Set
	stackMask    bitset.Bitset
	registerMask uint32
}

func NewSummary(numInputs int, kind CallKind) *Summary {
	return &Summary{
		inputs:      make([]Location, numInputs),
		outOverlaps: OutputOverlap,
		callKind:    kind,
	}
}

func (s *Summary) SetInAt(i int, l Location) { s.inputs[i] = l }
func (s *Summary) InAt(i int) Location       { return s.inputs[i] }
func (s *Summary) InputCount() int           { return len(s.inputs) }

func (s *Summary) SetOut(l Location, overlaps Overlap) {
	s.out = l
	s.outOverlaps = overlaps
}

// UpdateOut replaces an allocated output without changing overlap.
func (s *Summary) UpdateOut(l Location) { s.out = l }

func (s *Summary) Out() Location                    { return s.out }
func (s *Summary) OutputCanOverlapWithInputs() bool { return bool(s.outOverlaps) }

func (s *Summary) AddTemp(l Location)          { s.temps = append(s.temps, l) }
func (s *Summary) SetTempAt(i int, l Location) { s.temps[i] = l }
func (s *Summary) Temp(i int) Location         { return s.temps[i] }
func (s *Summary) TempCount() int              { return len(s.temps) }

func (s *Summary) CallKind() CallKind { return s.callKind }

func (s *Summary) CanCall() bool { return s.callKind != NoCall }
func (s *Summary) WillCall() bool {
	return s.callKind == CallOnMainOnly || s.callKind == CallOnMainAndSlowPath
}
func (s *Summary) CallsOnSlowPath() bool {
	return s.callKind == CallOnSlowPath || s.callKind == CallOnMainAndSlowPath
}
func (s *Summary) OnlyCallsOnSlowPath() bool { return s.callKind == CallOnSlowPath }

// NeedsSafepoint if the instruction may suspend the thread.
func (s *Summary) NeedsSafepoint() bool { return s.CanCall() }

func (s *Summary) SetIntrinsified(b bool) { s.intrinsified = b }
func (s *Summary) Intrinsified() bool     { return s.intrinsified }

// SetCustomSlowPathCallerSaves declares the registers a slow path of this
// instruction clobbers, when it uses a custom calling convention such as the
// read barrier mark entrypoints.
func (s *Summary) SetCustomSlowPathCallerSaves(set reg.Set) {
	s.customCallerSave = true
	s.callerSaves = set
}

func (s *Summary) HasCustomSlowPathCallingConvention() bool { return s.customCallerSave }
func (s *Summary) CustomSlowPathCallerSaves() reg.Set       { return s.callerSaves }

// Live registers at the instruction, to be preserved by its slow paths.
func (s *Summary) LiveRegisters() reg.Set       { return s.liveRegs }
func (s *Summary) SetLiveRegisters(set reg.Set) { s.liveRegs = set }
func (s *Summary) AddLiveRegister(cat reg.Category, r reg.R) {
	s.liveRegs = s.liveRegs.With(cat, r)
}

// SetStackBit marks a stack slot (in 4-byte units) holding an object
// reference at the safepoint.
func (s *Summary) SetStackBit(index uint) {
	if index >= s.stackMask.Len() {
		grown := bitset.New(index + 1)
		copy(grown, s.stackMask)
		s.stackMask = grown
	}
	s.stackMask.Set(index)
}

func (s *Summary) StackMask() bitset.Bitset { return s.stackMask }

// SetRegisterBit marks a core register holding an object reference at the
// safepoint.
func (s *Summary) SetRegisterBit(r reg.R) { s.registerMask |= 1 << r }
func (s *Summary) RegisterMask() uint32   { return s.registerMask }
