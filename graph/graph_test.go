// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"bytes"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

func TestOpNames(t *testing.T) {
	for op := OpInvalid + 1; op < numOps; op++ {
		if opNames[op] == "" {
			t.Errorf("op %d has no name", op)
			continue
		}
		if x, ok := ParseOp(op.String()); !ok || x != op {
			t.Errorf("%s does not parse", op)
		}
	}
}

func TestCondNames(t *testing.T) {
	for _, c := range []Cond{CondEQ, CondNE, CondLT, CondLE, CondGT, CondGE, CondB, CondBE, CondA, CondAE} {
		if x, ok := ParseCond(c.String()); !ok || x != c {
			t.Errorf("%s does not parse", c)
		}
	}
}

func buildSwitch() *Graph {
	g := New(Method{Name: "switch", MethodIndex: 7, Static: true})
	entry := g.NewBlock()
	cases := []*Block{g.NewBlock(), g.NewBlock(), g.NewBlock()}
	def := g.NewBlock()

	p := entry.Add(OpParameterValue, datatype.Int32)
	sw := entry.AddAux(OpPackedSwitch, datatype.Void, Switch{StartValue: 10, NumEntries: 3}, p)
	for _, b := range cases {
		entry.AddSuccessor(b)
		b.Add(OpReturn, datatype.Void, b.IntConstant(int32(b.ID)))
	}
	entry.AddSuccessor(def)
	def.Add(OpReturnVoid, datatype.Void)

	p.Allocation = &Allocation{Out: loc.Reg(reg.RSI)}
	sw.Allocation = &Allocation{In: []loc.Location{loc.Reg(reg.RSI)}}
	return g
}

func TestListing(t *testing.T) {
	g := buildSwitch()
	g.SpillSlots = 2

	b := g.Blocks[1]
	pm := b.AddAux(OpParallelMove, datatype.Void, Moves{
		{Source: loc.Reg(reg.RAX), Dest: loc.Stack(8), Type: datatype.Int32},
		{Source: loc.ConstantOf(loc.Float64(1.5)), Dest: loc.FpuReg(reg.XMM3), Type: datatype.Float64},
	})
	ret := b.Instructions[1]
	b.Instructions = []*Instruction{b.Instructions[0], pm, ret}

	l, err := NewListing(g)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	l2, err := DecodeListing(&buf)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := l2.Graph()
	if err != nil {
		t.Fatal(err)
	}

	if g2.Method != g.Method || g2.SpillSlots != 2 || len(g2.Blocks) != len(g.Blocks) {
		t.Fatalf("graph header mismatch: %+v", g2.Method)
	}
	if n := len(g2.Entry().Successors); n != 4 {
		t.Errorf("entry successors: %d", n)
	}

	sw := g2.Entry().Last()
	if sw.Op != OpPackedSwitch || sw.SwitchAux().StartValue != 10 || sw.InputAt(0) != g2.Entry().Instructions[0] {
		t.Errorf("switch: %+v", sw)
	}
	if a := sw.Allocation; a == nil || !a.In[0].Equals(loc.Reg(reg.RSI)) {
		t.Errorf("switch allocation: %+v", a)
	}

	moves := g2.Blocks[1].Instructions[1].MovesAux()
	if len(moves) != 2 || !moves[1].Source.Equals(loc.ConstantOf(loc.Float64(1.5))) || !moves[0].Dest.Equals(loc.Stack(8)) {
		t.Errorf("moves: %v", moves)
	}

	c := g2.Blocks[2].Instructions[0]
	if !c.IsIntConstantValue(2) || c.Const() != loc.Int32(2) {
		t.Errorf("constant: %v", c.Const())
	}
}

func TestListingUndefinedInput(t *testing.T) {
	l := &Listing{
		Blocks: []ListedBlock{{
			Instructions: []ListedInstruction{{ID: 1, Op: "Return", Inputs: []int{5}}},
		}},
	}
	if _, err := l.Graph(); err == nil {
		t.Error("undefined input accepted")
	}
}

func TestNextPrevious(t *testing.T) {
	g := buildSwitch()
	entry := g.Entry()
	p, sw := entry.Instructions[0], entry.Instructions[1]

	if p.Next() != sw || sw.Previous() != p || sw.Next() != nil || p.Previous() != nil {
		t.Error("neighbors")
	}
	if g.Blocks[4].IsSingleJump() {
		t.Error("return block is not a jump")
	}
}

func TestNumArguments(t *testing.T) {
	g := New(Method{})
	b := g.NewBlock()
	m := b.Add(OpCurrentMethod, datatype.Reference)
	x := b.IntConstant(1)
	inv := b.AddAux(OpInvokeStaticOrDirect, datatype.Void, Invoke{MethodLoad: MethodRecursive}, x, m)
	if n := inv.NumArguments(); n != 1 {
		t.Errorf("arguments: %d", n)
	}
}
