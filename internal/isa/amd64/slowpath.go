// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/callconv"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/debug"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/moves"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// slowPath is out-of-line code emitted after the main body.  Fatal paths
// never return to the exit label.
type slowPath interface {
	base() *slowPathBase
	kind() string
}

type slowPathBase struct {
	entry link.L
	exit  link.L
	insn  *graph.Instruction
}

func (p *slowPathBase) base() *slowPathBase { return p }

type nullCheckPath struct{ slowPathBase }

type divZeroCheckPath struct{ slowPathBase }

// divRemMinusOnePath produces -x for division and 0 for remainder.
type divRemMinusOnePath struct {
	slowPathBase
	reg reg.R
	t   datatype.Type
	div bool
}

// suspendCheckPath returns to its return label, or jumps to the successor
// of a back edge.
type suspendCheckPath struct {
	slowPathBase
	successor *graph.Block
	ret       link.L
}

type boundsCheckPath struct{ slowPathBase }

// loadClassPath resolves cls.  The instruction is either cls or a
// ClinitCheck of it.
type loadClassPath struct {
	slowPathBase
	cls      *graph.Instruction
	doClinit bool
}

type loadStringPath struct{ slowPathBase }

type typeCheckPath struct {
	slowPathBase
	fatal bool
}

type deoptimizePath struct{ slowPathBase }

type arraySetPath struct{ slowPathBase }

type readBarrierMarkPath struct {
	slowPathBase
	ref      reg.R
	unpoison bool
}

type readBarrierMarkAndUpdateFieldPath struct {
	slowPathBase
	ref      reg.R
	obj      reg.R
	field    in.Mem
	unpoison bool
	temp1    reg.R
	temp2    reg.R
}

type readBarrierForHeapReferencePath struct {
	slowPathBase
	out    loc.Location
	ref    loc.Location
	obj    loc.Location
	offset int32
	index  loc.Location
}

type readBarrierForRootPath struct {
	slowPathBase
	out  loc.Location
	root loc.Location
}

func (*nullCheckPath) kind() string                     { return "NullCheck" }
func (*divZeroCheckPath) kind() string                  { return "DivZeroCheck" }
func (*divRemMinusOnePath) kind() string                { return "DivRemMinusOne" }
func (*suspendCheckPath) kind() string                  { return "SuspendCheck" }
func (*boundsCheckPath) kind() string                   { return "BoundsCheck" }
func (*loadClassPath) kind() string                     { return "LoadClass" }
func (*loadStringPath) kind() string                    { return "LoadString" }
func (*typeCheckPath) kind() string                     { return "TypeCheck" }
func (*deoptimizePath) kind() string                    { return "Deoptimization" }
func (*arraySetPath) kind() string                      { return "ArraySet" }
func (*readBarrierMarkPath) kind() string               { return "ReadBarrierMark" }
func (*readBarrierMarkAndUpdateFieldPath) kind() string { return "ReadBarrierMarkAndUpdateField" }
func (*readBarrierForHeapReferencePath) kind() string   { return "ReadBarrierForHeapReference" }
func (*readBarrierForRootPath) kind() string            { return "ReadBarrierForRoot" }

// addSlowPath registers p for emission and returns its base.
func (c *CodeGen) addSlowPath(p slowPath, i *graph.Instruction) *slowPathBase {
	b := p.base()
	b.insn = i
	c.slowPaths = append(c.slowPaths, p)
	return b
}

// genSlowPaths in the order they were added.  Emission must not add new
// slow paths.
func (c *CodeGen) genSlowPaths() {
	for n := 0; n < len(c.slowPaths); n++ {
		p := c.slowPaths[n]

		if debug.Enabled {
			debug.Printf("%s slow path of instruction %d at %#x", p.kind(), p.base().insn.ID, c.Text.Addr)
		}

		c.emitSlowPath(p)
		c.slowStats.Add(p.kind())
	}
}

func (c *CodeGen) emitSlowPath(p slowPath) {
	text := &c.Text
	b := p.base()
	i := b.insn
	s := i.Locations

	c.bind(&b.entry)

	switch p := p.(type) {
	case *nullCheckPath:
		if i.CanThrowIntoCatchBlock() {
			c.saveLiveRegisters(s)
		}
		c.invokeRuntime(layout.ThrowNullPointer, i)

	case *divZeroCheckPath:
		c.invokeRuntime(layout.ThrowDivZero, i)

	case *divRemMinusOnePath:
		size := in.S32
		if p.t == datatype.Int64 {
			size = in.S64
		}
		if p.div {
			in.NEG.Reg(text, size, p.reg)
		} else {
			in.XOR.RegReg(text, in.S32, p.reg, p.reg)
		}
		c.jmp(&b.exit)

	case *suspendCheckPath:
		c.saveLiveRegisters(s)
		c.invokeRuntime(layout.TestSuspend, i)
		c.restoreLiveRegisters(s)
		if p.successor == nil {
			c.jmp(&p.ret)
		} else {
			c.jmp(c.labelOf(p.successor))
		}

	case *boundsCheckPath:
		c.emitBoundsCheckPath(i)

	case *loadClassPath:
		c.saveLiveRegisters(s)
		in.MOVo.RegImm32(text, reg.RAX, int32(p.cls.LoadClassAux().TypeIndex))
		e := layout.InitializeType
		if p.doClinit {
			e = layout.InitializeStaticStorage
		}
		c.invokeRuntime(e, i)
		if out := s.Out(); out.IsValid() {
			c.move(out, loc.Reg(reg.RAX))
		}
		c.restoreLiveRegisters(s)
		c.jmp(&b.exit)

	case *loadStringPath:
		c.saveLiveRegisters(s)
		in.MOVo.RegImm32(text, reg.RAX, int32(i.LoadStringAux().StringIndex))
		c.invokeRuntime(layout.ResolveString, i)
		c.move(s.Out(), loc.Reg(reg.RAX))
		c.restoreLiveRegisters(s)
		c.jmp(&b.exit)

	case *typeCheckPath:
		if c.opt.HeapPoisoning && i.Op == graph.OpCheckCast && i.TypeCheckAux().Kind == graph.CheckInterface {
			c.unpoisonHeapReference(s.InAt(1).Reg())
		}
		if !p.fatal || i.CanThrowIntoCatchBlock() {
			c.saveLiveRegisters(s)
		}
		c.parallelMove(
			moves.Move{Source: s.InAt(0), Dest: callconv.RuntimeArg(0), Type: datatype.Reference},
			moves.Move{Source: s.InAt(1), Dest: callconv.RuntimeArg(1), Type: datatype.Reference},
		)
		if i.Op == graph.OpInstanceOf {
			c.invokeRuntime(layout.InstanceofNonTrivial, i)
		} else {
			c.invokeRuntime(layout.CheckInstanceOf, i)
		}
		if !p.fatal {
			if i.Op == graph.OpInstanceOf {
				c.move(s.Out(), loc.Reg(reg.RAX))
			}
			c.restoreLiveRegisters(s)
			c.jmp(&b.exit)
		}

	case *deoptimizePath:
		c.saveLiveRegisters(s)
		c.load32(callconv.RuntimeParamRegs[0], int32(i.DeoptAux().Kind))
		c.invokeRuntime(layout.Deoptimize, i)

	case *arraySetPath:
		c.saveLiveRegisters(s)
		c.parallelMove(
			moves.Move{Source: s.InAt(0), Dest: callconv.RuntimeArg(0), Type: datatype.Reference},
			moves.Move{Source: s.InAt(1), Dest: callconv.RuntimeArg(1), Type: datatype.Int32},
			moves.Move{Source: s.InAt(2), Dest: callconv.RuntimeArg(2), Type: datatype.Reference},
		)
		c.invokeRuntime(layout.AputObject, i)
		c.restoreLiveRegisters(s)
		c.jmp(&b.exit)

	case *readBarrierMarkPath:
		if p.unpoison {
			c.maybeUnpoisonHeapReference(p.ref)
		}
		c.callMarkEntrypoint(p.ref)
		c.jmp(&b.exit)

	case *readBarrierMarkAndUpdateFieldPath:
		c.emitMarkAndUpdateFieldPath(p)

	case *readBarrierForHeapReferencePath:
		c.emitReadBarrierForHeapReferencePath(p)

	case *readBarrierForRootPath:
		c.saveLiveRegisters(s)
		c.move(callconv.RuntimeArg(0), p.root)
		c.invokeRuntime(layout.ReadBarrierForRootSlow, i)
		c.move(p.out, loc.Reg(reg.RAX))
		c.restoreLiveRegisters(s)
		c.jmp(&b.exit)

	default:
		pan.Fatalf("unknown slow path %T", p)
	}
}

func (c *CodeGen) emitBoundsCheckPath(i *graph.Instruction) {
	s := i.Locations

	if i.CanThrowIntoCatchBlock() {
		c.saveLiveRegisters(s)
	}

	length := s.InAt(1)
	if x := i.Inputs[1]; x.Op == graph.OpArrayLength && x.EmittedAtUseSite {
		array := x.Locations.InAt(0).Reg()
		length = callconv.RuntimeArg(1)
		if length.Equals(s.InAt(0)) {
			length = callconv.RuntimeArg(2)
		}
		in.MOV.RegMem(&c.Text, in.S32, length.Reg(), in.Addr(array, c.arrayLengthOffset(x)))
		if c.opt.StringCompression && x.ArrayAux().StringCharAt {
			in.SHRi.RegImm8(&c.Text, in.S32, length.Reg(), 1)
		}
	}

	c.parallelMove(
		moves.Move{Source: s.InAt(0), Dest: callconv.RuntimeArg(0), Type: datatype.Int32},
		moves.Move{Source: length, Dest: callconv.RuntimeArg(1), Type: datatype.Int32},
	)

	if i.ArrayAux().StringCharAt {
		c.invokeRuntime(layout.ThrowStringBounds, i)
	} else {
		c.invokeRuntime(layout.ThrowArrayBounds, i)
	}
}

// emitMarkAndUpdateFieldPath marks the reference and installs the marked
// reference in the field if it still holds the old one.
func (c *CodeGen) emitMarkAndUpdateFieldPath(p *readBarrierMarkAndUpdateFieldPath) {
	text := &c.Text
	b := p.base()

	if p.unpoison {
		c.maybeUnpoisonHeapReference(p.ref)
	}

	in.MOV.RegReg(text, in.S32, p.temp1, p.ref)
	c.callMarkEntrypoint(p.ref)

	var done link.L
	in.CMP.RegReg(text, in.S32, p.temp1, p.ref)
	c.jccNear(in.CCE, &done)

	// Compare-and-set uses RAX as the expected value.
	in.MOV.RegReg(text, in.S64, p.temp2, reg.RAX)
	in.MOV.RegReg(text, in.S32, reg.RAX, p.temp1)

	value := p.ref
	baseIsValue := p.obj == p.ref
	if c.opt.HeapPoisoning {
		if baseIsValue {
			value = p.temp1
			in.MOV.RegReg(text, in.S32, value, p.obj)
		}
		c.poisonHeapReference(reg.RAX)
		c.poisonHeapReference(value)
	}

	in.LOCK(text)
	in.CMPXCHG.RegMem(text, in.S32, value, p.field)

	if c.opt.HeapPoisoning && !baseIsValue {
		c.unpoisonHeapReference(value)
	}

	in.MOV.RegReg(text, in.S64, reg.RAX, p.temp2)

	c.bind(&done)
	c.jmp(&b.exit)
}

func (c *CodeGen) emitReadBarrierForHeapReferencePath(p *readBarrierForHeapReferencePath) {
	text := &c.Text
	b := p.base()
	i := b.insn
	s := i.Locations

	c.saveLiveRegisters(s)

	index := p.index
	if index.IsValid() && i.Op == graph.OpArrayGet {
		r := index.Reg()
		if callconv.IsCoreCalleeSave(r) {
			// The saved value is still needed by the main path.
			free := c.freeCallerSave(p.ref.Reg(), p.obj.Reg())
			in.MOV.RegReg(text, in.S32, free, r)
			r = free
			index = loc.Reg(r)
		}
		in.SHLi.RegImm8(text, in.S32, r, 2)
		in.ADDi.RegImm(text, in.S32, r, p.offset)
	}

	ms := []moves.Move{
		{Source: p.ref, Dest: callconv.RuntimeArg(0), Type: datatype.Reference},
		{Source: p.obj, Dest: callconv.RuntimeArg(1), Type: datatype.Reference},
	}
	if index.IsValid() {
		ms = append(ms, moves.Move{Source: index, Dest: callconv.RuntimeArg(2), Type: datatype.Int32})
		c.parallelMove(ms...)
	} else {
		c.parallelMove(ms...)
		in.MOVo.RegImm32(text, callconv.RuntimeParamRegs[2], p.offset)
	}

	c.invokeRuntime(layout.ReadBarrierSlow, i)
	c.move(p.out, loc.Reg(reg.RAX))
	c.restoreLiveRegisters(s)
	c.jmp(&b.exit)
}

func (c *CodeGen) freeCallerSave(ref, obj reg.R) reg.R {
	for r := reg.R(0); r < reg.NumCore; r++ {
		if r != ref && r != obj && r != reg.RSP && r != reg.TMP && !callconv.IsCoreCalleeSave(r) {
			return r
		}
	}
	pan.Fatalf("no free caller-save register")
	return 0
}

// callMarkEntrypoint of the register.  Mark entrypoints preserve all other
// registers and need no stack map.
func (c *CodeGen) callMarkEntrypoint(r reg.R) {
	in.GS(&c.Text)
	in.CALLm.Mem(&c.Text, in.OneSize, in.Abs(c.lay.MarkEntrypointOffset(r)))
}

// Heap reference poisoning negates the compressed reference.

func (c *CodeGen) poisonHeapReference(r reg.R) {
	in.NEG.Reg(&c.Text, in.S32, r)
}

func (c *CodeGen) unpoisonHeapReference(r reg.R) {
	in.NEG.Reg(&c.Text, in.S32, r)
}

func (c *CodeGen) maybePoisonHeapReference(r reg.R) {
	if c.opt.HeapPoisoning {
		c.poisonHeapReference(r)
	}
}

func (c *CodeGen) maybeUnpoisonHeapReference(r reg.R) {
	if c.opt.HeapPoisoning {
		c.unpoisonHeapReference(r)
	}
}
