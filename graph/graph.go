// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package graph is the instruction graph consumed by the code generator.
//
// A graph is built by a front end or decoded from a Listing.  The code
// generator decorates each instruction with a location summary, an external
// register allocator assigns concrete locations, and the code generator
// emits machine code.  Blocks are kept in their emission order.
package graph

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// Method being compiled.
type Method struct {
	Name        string `msgpack:"name"`
	DexFile     uint32 `msgpack:"dex"`
	MethodIndex uint32 `msgpack:"index"`
	Static      bool   `msgpack:"static,omitempty"`
	Debuggable  bool   `msgpack:"debuggable,omitempty"`

	// ShouldDeoptimizeFlag reserves a frame slot polled by
	// ShouldDeoptimizeFlag instructions.
	ShouldDeoptimizeFlag bool `msgpack:"deoptflag,omitempty"`
}

type Graph struct {
	Method Method
	Blocks []*Block

	// SpillSlots is the number of 32-bit stack slots used by the register
	// allocator.
	SpillSlots int32

	nextID int
}

func New(m Method) *Graph {
	return &Graph{Method: m}
}

// Entry block is the first block.
func (g *Graph) Entry() *Block {
	if len(g.Blocks) == 0 {
		return nil
	}
	return g.Blocks[0]
}

func (g *Graph) NewBlock() *Block {
	b := &Block{ID: len(g.Blocks), Graph: g}
	g.Blocks = append(g.Blocks, b)
	return b
}

// Instructions in emission order.
func (g *Graph) Instructions() (list []*Instruction) {
	for _, b := range g.Blocks {
		list = append(list, b.Instructions...)
	}
	return
}

type Block struct {
	ID           int
	Graph        *Graph
	Instructions []*Instruction
	Successors   []*Block
	Predecessors []*Block

	// LoopHeader block holds the suspend check of its loop, which is emitted
	// by the back edges.
	LoopHeader bool

	// BackEdge block jumps to the header of its loop.
	BackEdge bool

	// Try block is covered by an exception handler of the method.
	Try bool
}

func (b *Block) AddSuccessor(s *Block) {
	b.Successors = append(b.Successors, s)
	s.Predecessors = append(s.Predecessors, b)
}

// Add appends an instruction to the block.
func (b *Block) Add(op Op, t datatype.Type, inputs ...*Instruction) *Instruction {
	g := b.Graph
	i := &Instruction{
		ID:     g.nextID,
		Op:     op,
		Type:   t,
		Inputs: inputs,
		Block:  b,
	}
	g.nextID++
	b.Instructions = append(b.Instructions, i)
	return i
}

// AddAux appends an instruction with a payload.
func (b *Block) AddAux(op Op, t datatype.Type, aux any, inputs ...*Instruction) *Instruction {
	i := b.Add(op, t, inputs...)
	i.Aux = aux
	return i
}

func (b *Block) IntConstant(x int32) *Instruction {
	return b.AddAux(OpIntConstant, datatype.Int32, Constant{int64(x)})
}

func (b *Block) LongConstant(x int64) *Instruction {
	return b.AddAux(OpLongConstant, datatype.Int64, Constant{x})
}

func (b *Block) FloatConstant(x float32) *Instruction {
	return b.AddAux(OpFloatConstant, datatype.Float32, Constant{loc.Float32(x).Bits})
}

func (b *Block) DoubleConstant(x float64) *Instruction {
	return b.AddAux(OpDoubleConstant, datatype.Float64, Constant{loc.Float64(x).Bits})
}

func (b *Block) NullConstant() *Instruction {
	return b.Add(OpNullConstant, datatype.Reference)
}

// Last instruction of the block.
func (b *Block) Last() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// IsSingleJump block contains only a Goto which is not a back edge.  Such
// blocks are not emitted; their predecessors branch to the successor
// directly.
func (b *Block) IsSingleJump() bool {
	return len(b.Instructions) == 1 && b.Instructions[0].Op == OpGoto && !b.BackEdge && b.ID != 0
}

// SuspendCheck of a loop header.
func (b *Block) SuspendCheck() *Instruction {
	for _, i := range b.Instructions {
		if i.Op == OpSuspendCheck {
			return i
		}
	}
	return nil
}

type Instruction struct {
	ID     int
	Op     Op
	Type   datatype.Type
	Inputs []*Instruction
	Block  *Block
	DexPC  uint32
	Aux    any

	// Locations are decorated by the build phase.
	Locations *loc.Summary

	// Allocation is the register allocator's decision, applied to Locations
	// before emission.
	Allocation *Allocation

	// EmittedAtUseSite instructions generate no code of their own.
	EmittedAtUseSite bool
}

// Allocation of an instruction's locations.
type Allocation struct {
	In    []loc.Location
	Out   loc.Location
	Temps []loc.Location

	// Live registers at a safepoint, saved by slow paths.
	Live []loc.Location

	// References held in registers and stack slots at a safepoint.
	RefRegs  []loc.Location
	RefSlots []int32
}

// Next instruction in the same block, or nil.
func (i *Instruction) Next() *Instruction {
	list := i.Block.Instructions
	for n, x := range list {
		if x == i && n+1 < len(list) {
			return list[n+1]
		}
	}
	return nil
}

// Previous instruction in the same block, or nil.
func (i *Instruction) Previous() *Instruction {
	list := i.Block.Instructions
	for n, x := range list {
		if x == i && n > 0 {
			return list[n-1]
		}
	}
	return nil
}

// InputAt index.
func (i *Instruction) InputAt(n int) *Instruction { return i.Inputs[n] }

// Const value of a constant instruction.
func (i *Instruction) Const() loc.Const {
	switch i.Op {
	case OpIntConstant:
		return loc.Int32(int32(i.Aux.(Constant).Bits))
	case OpLongConstant:
		return loc.Int64(i.Aux.(Constant).Bits)
	case OpFloatConstant:
		return loc.Const{Type: datatype.Float32, Bits: i.Aux.(Constant).Bits}
	case OpDoubleConstant:
		return loc.Const{Type: datatype.Float64, Bits: i.Aux.(Constant).Bits}
	case OpNullConstant:
		return loc.Null()
	}
	pan.Fatalf("%s is not a constant", i.Op)
	return loc.Const{}
}

// IsConstant instruction.
func (i *Instruction) IsConstant() bool { return i.Op.IsConstant() }

func (i *Instruction) IsNullConstant() bool { return i.Op == OpNullConstant }

// IsIntConstantValue checks for an int or long constant with the value.
func (i *Instruction) IsIntConstantValue(x int64) bool {
	return (i.Op == OpIntConstant || i.Op == OpLongConstant) && i.Aux.(Constant).Bits == x
}

func aux[T any](i *Instruction) T {
	switch x := i.Aux.(type) {
	case T:
		return x
	case *T:
		return *x
	}
	var zero T
	pan.Fatalf("%s instruction %d has no %T payload", i.Op, i.ID, zero)
	return zero
}

func (i *Instruction) CompareAux() Compare         { return aux[Compare](i) }
func (i *Instruction) SwitchAux() Switch           { return aux[Switch](i) }
func (i *Instruction) DeoptAux() Deopt             { return aux[Deopt](i) }
func (i *Instruction) FieldAux() Field             { return aux[Field](i) }
func (i *Instruction) NewInstanceAux() NewInstance { return aux[NewInstance](i) }
func (i *Instruction) NewArrayAux() NewArray       { return aux[NewArray](i) }
func (i *Instruction) LoadClassAux() LoadClass     { return aux[LoadClass](i) }
func (i *Instruction) LoadStringAux() LoadString   { return aux[LoadString](i) }
func (i *Instruction) TypeCheckAux() TypeCheck     { return aux[TypeCheck](i) }
func (i *Instruction) MonitorAux() Monitor         { return aux[Monitor](i) }
func (i *Instruction) InvokeAux() Invoke           { return aux[Invoke](i) }
func (i *Instruction) TableAux() ClassTableGet     { return aux[ClassTableGet](i) }
func (i *Instruction) BarrierAux() Barrier         { return aux[Barrier](i) }
func (i *Instruction) MovesAux() Moves             { return aux[Moves](i) }

// ArrayAux is optional; the zero value describes a plain array.
func (i *Instruction) ArrayAux() Array {
	if i.Aux == nil {
		return Array{}
	}
	return aux[Array](i)
}

// NumArguments of an invoke, excluding a trailing current method input.
func (i *Instruction) NumArguments() int {
	n := len(i.Inputs)
	if i.Op == OpInvokeStaticOrDirect {
		inv := i.InvokeAux()
		if inv.HasCurrentMethodInput() {
			n--
		}
	}
	return n
}

// CanThrowIntoCatchBlock if the exception may be caught within the method.
func (i *Instruction) CanThrowIntoCatchBlock() bool {
	return i.Block.Try && i.CanThrow()
}

// CanThrow into the runtime's exception delivery.
func (i *Instruction) CanThrow() bool {
	switch i.Op {
	case OpDivZeroCheck, OpNullCheck, OpBoundsCheck, OpClinitCheck, OpCheckCast, OpThrow, OpNewInstance, OpNewArray, OpMonitorOperation, OpLoadClass, OpLoadString:
		return true
	}
	return i.Op.IsInvoke()
}
