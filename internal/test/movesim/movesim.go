// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package movesim executes parallel moves on a simulated machine state.
package movesim

import (
	"encoding/binary"
	"fmt"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/moves"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

const StackSize = 256

// Machine state.  Registers are 64-bit; 32-bit writes zero-extend.
type Machine struct {
	Core  [reg.NumCore]uint64
	Fp    [reg.NumFp]uint64
	Stack [StackSize]byte

	Trace []string
	Swaps int

	saved []uint64
}

// Fill every location with a distinct pattern.
func (m *Machine) Fill(seed uint64) {
	x := seed | 1
	next := func() uint64 {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		return x
	}
	for i := range m.Core {
		m.Core[i] = next()
	}
	for i := range m.Fp {
		m.Fp[i] = next()
	}
	for i := 0; i < StackSize; i += 8 {
		binary.LittleEndian.PutUint64(m.Stack[i:], next())
	}
}

func width(t datatype.Type) int32 {
	if t.Is64Bit() {
		return 8
	}
	return 4
}

func mask(v uint64, size int32) uint64 {
	if size == 4 {
		return v & 0xffffffff
	}
	return v
}

// Read value of a location.
func (m *Machine) Read(l loc.Location, t datatype.Type) uint64 {
	size := width(t)

	switch l.Kind() {
	case loc.Register:
		return mask(m.Core[l.Reg()], size)
	case loc.FpuRegister:
		return mask(m.Fp[l.FpuReg()], size)
	case loc.StackSlot, loc.DoubleStackSlot:
		off := l.StackIndex()
		if size == 4 {
			return uint64(binary.LittleEndian.Uint32(m.Stack[off:]))
		}
		return binary.LittleEndian.Uint64(m.Stack[off:])
	case loc.Constant:
		return mask(uint64(l.Constant().Bits), size)
	}
	panic(fmt.Sprintf("read from %s", l))
}

// Write value to a location.
func (m *Machine) Write(l loc.Location, t datatype.Type, v uint64) {
	size := width(t)

	switch l.Kind() {
	case loc.Register:
		m.Core[l.Reg()] = mask(v, size)
	case loc.FpuRegister:
		m.Fp[l.FpuReg()] = mask(v, size)
	case loc.StackSlot, loc.DoubleStackSlot:
		off := l.StackIndex()
		if size == 4 {
			binary.LittleEndian.PutUint32(m.Stack[off:], uint32(v))
		} else {
			binary.LittleEndian.PutUint64(m.Stack[off:], v)
		}
	default:
		panic(fmt.Sprintf("write to %s", l))
	}
}

// EmitMove implements moves.Emitter.  Memory-to-memory moves go through a
// scratch register, which is clobbered.
func (m *Machine) EmitMove(r *moves.Resolver, mv moves.Move) {
	m.Trace = append(m.Trace, "move "+mv.String())

	if mv.Source.IsStack() && mv.Dest.IsStack() {
		scratch, spilled := r.AllocateScratch(reg.TMP, reg.RAX)
		if spilled {
			m.spill(scratch)
		}
		v := m.Read(mv.Source, mv.Type)
		m.Core[scratch] = 0xdeadbeefdeadbeef
		m.Write(mv.Dest, mv.Type, v)
		if spilled {
			m.restore(scratch)
		}
		return
	}

	m.Write(mv.Dest, mv.Type, m.Read(mv.Source, mv.Type))
}

// EmitSwap implements moves.Emitter.  Register pairs are swapped entirely,
// like xchg; other combinations are swapped at the width of the move.
func (m *Machine) EmitSwap(r *moves.Resolver, mv moves.Move) {
	m.Trace = append(m.Trace, "swap "+mv.String())
	m.Swaps++

	t := mv.Type
	if mv.Source.IsAnyRegister() && mv.Dest.IsAnyRegister() {
		t = datatype.Int64
	}

	if mv.Source.IsStack() && mv.Dest.IsStack() {
		scratch, spilled := r.AllocateScratch(reg.TMP, reg.RAX)
		if spilled {
			m.spill(scratch)
		}
		m.Core[scratch] = 0xdeadbeefdeadbeef
		m.swap(mv.Source, mv.Dest, t)
		if spilled {
			m.restore(scratch)
		}
		return
	}

	m.swap(mv.Source, mv.Dest, t)
}

func (m *Machine) swap(a, b loc.Location, t datatype.Type) {
	x := m.Read(a, t)
	y := m.Read(b, t)
	m.Write(a, t, y)
	m.Write(b, t, x)
}

// spill and restore model push and pop.  The stack slots are addressed
// relative to the original stack pointer.
func (m *Machine) spill(r reg.R) {
	m.saved = append(m.saved, m.Core[r])
}

func (m *Machine) restore(r reg.R) {
	m.Core[r] = m.saved[len(m.saved)-1]
	m.saved = m.saved[:len(m.saved)-1]
}

// Expect computes the destination values of simultaneous moves.
func Expect(m *Machine, ms []moves.Move) []uint64 {
	vals := make([]uint64, len(ms))
	for i, mv := range ms {
		vals[i] = m.Read(mv.Source, mv.Type)
	}
	return vals
}

// Check the destination values after the moves have been executed.
func Check(m *Machine, ms []moves.Move, expect []uint64) error {
	for i, mv := range ms {
		if got := m.Read(mv.Dest, mv.Type); got != expect[i] {
			return fmt.Errorf("%s: got %#x, expected %#x", mv, got, expect[i])
		}
	}
	return nil
}
