// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// Allocate applies the register allocator's decisions to the summaries
// created by Build.  A decision must satisfy the policy it replaces, and
// fixed locations must be kept.  Errors are raised through the pan zone.
func Allocate(g *graph.Graph) {
	for _, i := range g.Instructions() {
		if s := i.Locations; s != nil {
			allocate(i, s, i.Allocation)
		}
	}
}

func allocationError(i *graph.Instruction, format string, args ...any) {
	pan.Panic(errors.Inputf("%s %d: "+format, append([]any{i.Op, i.ID}, args...)...))
}

func allocate(i *graph.Instruction, s *loc.Summary, a *graph.Allocation) {
	if a == nil {
		a = new(graph.Allocation)
	}

	for n := 0; n < s.InputCount(); n++ {
		var got loc.Location
		if n < len(a.In) {
			got = a.In[n]
		}
		s.SetInAt(n, resolve(i, "input", n, s.InAt(n), got, s))
	}

	if want := s.Out(); want.IsValid() {
		s.UpdateOut(resolve(i, "output", 0, want, a.Out, s))
	}

	for n := 0; n < s.TempCount(); n++ {
		var got loc.Location
		if n < len(a.Temps) {
			got = a.Temps[n]
		}
		s.SetTempAt(n, resolve(i, "temp", n, s.Temp(n), got, s))
	}

	if len(a.Live) > 0 || len(a.RefRegs) > 0 || len(a.RefSlots) > 0 {
		if !s.CanCall() {
			allocationError(i, "safepoint information for an instruction which cannot call")
		}
	}

	for _, l := range a.Live {
		if !l.IsAnyRegister() {
			allocationError(i, "live location %s is not a register", l)
		}
		s.AddLiveRegister(l.Category(), l.AnyReg())
	}

	for _, l := range a.RefRegs {
		if !l.IsRegister() {
			allocationError(i, "reference location %s is not a core register", l)
		}
		s.SetRegisterBit(l.Reg())
	}

	for _, offset := range a.RefSlots {
		if offset < 0 || offset%4 != 0 {
			allocationError(i, "invalid reference slot offset %d", offset)
		}
		s.SetStackBit(uint(offset / 4))
	}
}

// resolve a location against the built requirement.
func resolve(i *graph.Instruction, what string, n int, want, got loc.Location, s *loc.Summary) loc.Location {
	if want.IsInvalid() {
		if got.IsValid() {
			allocationError(i, "%s %d is unused but allocated to %s", what, n, got)
		}
		return want
	}

	if !want.IsUnallocated() {
		if got.IsValid() && !got.Equals(want) {
			allocationError(i, "%s %d is fixed to %s but allocated to %s", what, n, want, got)
		}
		return want
	}

	if got.IsInvalid() || got.IsUnallocated() {
		allocationError(i, "%s %d is not allocated", what, n)
	}

	ok := false
	switch want.Policy() {
	case loc.Any:
		ok = true
	case loc.RequiresRegister:
		ok = got.IsRegister() && usableCore(got.Reg())
	case loc.RequiresFpuRegister:
		ok = got.IsFpuRegister()
	case loc.SameAsFirstInput:
		ok = s.InputCount() > 0 && got.Equals(s.InAt(0))
	}
	if !ok {
		allocationError(i, "%s %d allocated to %s does not satisfy %s", what, n, got, want)
	}
	return got
}

// usableCore excludes the stack pointer and the scratch register.
func usableCore(r reg.R) bool {
	return r != reg.RSP && r != reg.TMP
}
