// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moves_test

import (
	"math/rand"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/moves"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/test/movesim"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

func run(t *testing.T, ms []moves.Move) *movesim.Machine {
	t.Helper()

	m := new(movesim.Machine)
	m.Fill(uint64(len(ms))*0x9e3779b97f4a7c15 + 1)
	expect := movesim.Expect(m, ms)

	var r moves.Resolver
	r.Resolve(ms, m)

	if err := movesim.Check(m, ms, expect); err != nil {
		t.Errorf("%v\ntrace: %q", err, m.Trace)
	}
	return m
}

func mv(source, dest loc.Location, t datatype.Type) moves.Move {
	return moves.Move{Source: source, Dest: dest, Type: t}
}

func TestChain(t *testing.T) {
	m := run(t, []moves.Move{
		mv(loc.Reg(reg.RAX), loc.Reg(reg.RCX), datatype.Int64),
		mv(loc.Reg(reg.RCX), loc.Reg(reg.RDX), datatype.Int64),
		mv(loc.Reg(reg.RDX), loc.Stack(8), datatype.Int32),
	})
	if m.Swaps != 0 {
		t.Errorf("chain needed %d swaps", m.Swaps)
	}
}

func TestCycle(t *testing.T) {
	m := run(t, []moves.Move{
		mv(loc.Reg(reg.RAX), loc.Reg(reg.RCX), datatype.Int64),
		mv(loc.Reg(reg.RCX), loc.Reg(reg.RDX), datatype.Int64),
		mv(loc.Reg(reg.RDX), loc.Reg(reg.RAX), datatype.Int64),
	})
	if m.Swaps != 2 {
		t.Errorf("3-cycle used %d swaps", m.Swaps)
	}
}

func TestSwapStack(t *testing.T) {
	run(t, []moves.Move{
		mv(loc.DoubleStack(8), loc.DoubleStack(24), datatype.Float64),
		mv(loc.DoubleStack(24), loc.DoubleStack(8), datatype.Float64),
	})
}

func TestRedundant(t *testing.T) {
	m := run(t, []moves.Move{
		mv(loc.Reg(reg.RBX), loc.Reg(reg.RBX), datatype.Int32),
		mv(loc.FpuReg(reg.XMM1), loc.FpuReg(reg.XMM1), datatype.Float64),
	})
	if len(m.Trace) != 0 {
		t.Errorf("redundant moves were emitted: %q", m.Trace)
	}
}

func TestConstantsLast(t *testing.T) {
	m := run(t, []moves.Move{
		mv(loc.ConstantOf(loc.Int32(7)), loc.Reg(reg.RAX), datatype.Int32),
		mv(loc.Reg(reg.RAX), loc.Reg(reg.RCX), datatype.Int32),
	})
	if len(m.Trace) != 2 || m.Trace[1] != "move "+mv(loc.ConstantOf(loc.Int32(7)), loc.Reg(reg.RAX), datatype.Int32).String() {
		t.Errorf("trace: %q", m.Trace)
	}
}

// A 32-bit move blocked by a pending 64-bit move must let the 64-bit move
// perform the swap, or the upper half of the 64-bit value would be lost.
func TestMixedWidthCycle(t *testing.T) {
	run(t, []moves.Move{
		mv(loc.Reg(reg.RCX), loc.Reg(reg.RAX), datatype.Int64),
		mv(loc.Reg(reg.RAX), loc.Stack(0), datatype.Int32),
		mv(loc.Stack(0), loc.Reg(reg.RCX), datatype.Int32),
	})
}

func TestScratchSpill(t *testing.T) {
	// All core registers are read, so the stack-to-stack move must spill.
	var ms []moves.Move
	for i, r := range []reg.R{reg.RAX, reg.RCX, reg.RDX, reg.RBX, reg.RBP, reg.RSI, reg.RDI, reg.R8, reg.R9, reg.R10, reg.R12, reg.R13, reg.R14, reg.R15} {
		ms = append(ms, mv(loc.Reg(r), loc.FpuReg(reg.R(i)), datatype.Int64))
	}
	ms = append(ms, mv(loc.Stack(0), loc.Stack(16), datatype.Int32))
	run(t, ms)
}

func TestRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		data := make([]byte, 3*(1+rng.Intn(24)))
		rng.Read(data)
		run(t, movesim.Generate(data))
		if t.Failed() {
			break
		}
	}
}
