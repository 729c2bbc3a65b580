// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/callconv"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

func storeNeedsWriteBarrier(t datatype.Type, value *graph.Instruction) bool {
	return t == datatype.Reference && !value.IsNullConstant()
}

// fpuOrInt32Const accepts constants which can be stored with a single
// 32-bit immediate.
func fpuOrInt32Const(x *graph.Instruction) loc.Location {
	if x.IsConstant() {
		if k := x.Const(); k.Type != datatype.Float64 || k.FitsInt32() {
			return loc.ConstantOf(k)
		}
	}
	return loc.RequiresFpuReg()
}

// Barriers.  Only store-load reordering is visible on x86-64.

func (c *CodeGen) genMemoryBarrier(kind graph.BarrierKind) {
	if kind == graph.BarrierAnyAny {
		c.memoryFence()
	}
}

func (c *CodeGen) memoryFence() {
	if c.opt.ForceMFence {
		in.MFENCE.Simple(&c.Text)
		return
	}
	in.LOCK(&c.Text)
	in.ADDi.MemImm(&c.Text, in.S32, in.Stack(0), 0)
}

// Plain loads and stores

func (c *CodeGen) loadValue(t datatype.Type, out loc.Location, m in.Mem) {
	text := &c.Text

	switch t {
	case datatype.Bool, datatype.Uint8:
		in.MOVZX8.RegMem(text, in.S32, out.Reg(), m)
	case datatype.Int8:
		in.MOVSX8.RegMem(text, in.S32, out.Reg(), m)
	case datatype.Uint16:
		in.MOVZX16.RegMem(text, in.S32, out.Reg(), m)
	case datatype.Int16:
		in.MOVSX16.RegMem(text, in.S32, out.Reg(), m)
	case datatype.Int32, datatype.Reference:
		in.MOV.RegMem(text, in.S32, out.Reg(), m)
	case datatype.Int64:
		in.MOV.RegMem(text, in.S64, out.Reg(), m)
	case datatype.Float32, datatype.Float64:
		in.MOVSx.RegMem(text, floatSize(t), out.FpuReg(), m)
	default:
		pan.Fatalf("unexpected load type %s", t)
	}
}

// storeValue of a non-reference type.  It reports whether the implicit null
// check of i has already been recorded.
func (c *CodeGen) storeValue(t datatype.Type, m in.Mem, value loc.Location, i *graph.Instruction) (recorded bool) {
	text := &c.Text

	switch t {
	case datatype.Bool, datatype.Uint8, datatype.Int8:
		if value.IsConstant() {
			in.MOV8i.MemImm(text, m, int8(value.Constant().Int32()))
		} else {
			in.MOV8mr.RegMem(text, value.Reg(), m)
		}

	case datatype.Uint16, datatype.Int16:
		if value.IsConstant() {
			in.MOV16i.MemImm(text, m, int16(value.Constant().Int32()))
		} else {
			in.MOV16mr.RegMem(text, value.Reg(), m)
		}

	case datatype.Int32:
		if value.IsConstant() {
			in.MOVi.MemImm(text, in.S32, m, value.Constant().Int32())
		} else {
			in.MOVmr.RegMem(text, in.S32, value.Reg(), m)
		}

	case datatype.Int64:
		if value.IsConstant() {
			c.store64ToMemory(m, value.Constant().Int64(), i)
			return true
		}
		in.MOVmr.RegMem(text, in.S64, value.Reg(), m)

	case datatype.Float32:
		if value.IsConstant() {
			in.MOVi.MemImm(text, in.S32, m, int32(value.Constant().Bits))
		} else {
			in.MOVSxmr.RegMem(text, in.S32, value.FpuReg(), m)
		}

	case datatype.Float64:
		if value.IsConstant() {
			c.store64ToMemory(m, value.Constant().Bits, i)
			return true
		}
		in.MOVSxmr.RegMem(text, in.S64, value.FpuReg(), m)

	default:
		pan.Fatalf("unexpected store type %s", t)
	}
	return false
}

// storeReference which is either a register or the null constant.  A
// poisoned copy is made in temp.
func (c *CodeGen) storeReference(m in.Mem, value loc.Location, temp reg.R) {
	text := &c.Text

	if value.IsConstant() {
		in.MOVi.MemImm(text, in.S32, m, 0)
		return
	}
	if c.opt.HeapPoisoning {
		in.MOV.RegReg(text, in.S32, temp, value.Reg())
		c.poisonHeapReference(temp)
		in.MOVmr.RegMem(text, in.S32, temp, m)
		return
	}
	in.MOVmr.RegMem(text, in.S32, value.Reg(), m)
}

// markGCCard of the object after a reference store.  The card table base
// is biased so that its low byte is the dirty value.
func (c *CodeGen) markGCCard(temp, card, object, value reg.R, valueCanBeNull bool) {
	text := &c.Text

	var isNull link.L
	if valueCanBeNull {
		in.TEST.RegReg(text, in.S32, value, value)
		c.jccNear(in.CCE, &isNull)
	}

	in.GS(text)
	in.MOV.RegMem(text, in.S64, card, in.Abs(c.lay.Thread.CardTable))
	in.MOV.RegReg(text, in.S64, temp, object)
	in.SHRi.RegImm8(text, in.S64, temp, layout.CardShift)
	in.MOV8mr.RegMem(text, card, in.AddrIndex(temp, card, in.Scale0, 0))

	if valueCanBeNull {
		c.bind(&isNull)
	}
}

// Fields

func (b *builder) buildFieldGet(i *graph.Instruction) *loc.Summary {
	t := i.FieldAux().Type
	withReadBarrier := b.opt.emitReadBarrier() && t == datatype.Reference

	kind := loc.NoCall
	if withReadBarrier {
		kind = loc.CallOnSlowPath
	}
	s := loc.NewSummary(1, kind)
	if withReadBarrier && b.opt.bakerReadBarrier() {
		s.SetCustomSlowPathCallerSaves(reg.Set(0))
	}

	s.SetInAt(0, loc.RequiresReg())
	switch {
	case t.IsFloat():
		s.SetOut(loc.RequiresFpuReg(), loc.NoOutputOverlap)
	case withReadBarrier:
		// The object is still needed by the read barrier.
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
	default:
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
	}
	return s
}

func (c *CodeGen) genFieldGet(i *graph.Instruction) {
	s := i.Locations
	f := i.FieldAux()
	base := s.InAt(0)
	out := s.Out()
	m := in.Addr(base.Reg(), int32(f.Offset))

	if f.Type != datatype.Reference {
		c.loadValue(f.Type, out, m)
		c.maybeRecordImplicitNullCheck(i)
		return
	}

	if c.opt.bakerReadBarrier() {
		c.genReferenceLoadWithBakerReadBarrier(i, out.Reg(), base.Reg(), m, true, nil)
		return
	}

	in.MOV.RegMem(&c.Text, in.S32, out.Reg(), m)
	c.maybeRecordImplicitNullCheck(i)
	c.maybeGenReadBarrierSlow(i, out, out, base, int32(f.Offset), loc.NoLocation())
}

func (b *builder) buildFieldSet(i *graph.Instruction) *loc.Summary {
	f := i.FieldAux()
	value := i.Inputs[1]

	s := loc.NewSummary(2, loc.NoCall)
	s.SetInAt(0, loc.RequiresReg())

	// Volatile 64-bit stores must not be split.
	switch {
	case f.Type.IsFloat() && f.Volatile:
		s.SetInAt(1, fpuOrInt32Const(value))
	case f.Type.IsFloat():
		s.SetInAt(1, fpuOrConst(value))
	case f.Volatile:
		s.SetInAt(1, regOrInt32Const(value))
	default:
		s.SetInAt(1, regOrConst(value))
	}

	switch {
	case storeNeedsWriteBarrier(f.Type, value):
		// The first temporary also holds the poisoned reference.
		s.AddTemp(loc.RequiresReg())
		s.AddTemp(loc.RequiresReg())
	case b.opt.HeapPoisoning && f.Type == datatype.Reference:
		s.AddTemp(loc.RequiresReg())
	}
	return s
}

func (c *CodeGen) genFieldSet(i *graph.Instruction) {
	s := i.Locations
	f := i.FieldAux()
	base := s.InAt(0).Reg()
	value := s.InAt(1)
	m := in.Addr(base, int32(f.Offset))

	if f.Volatile {
		c.genMemoryBarrier(graph.BarrierAnyStore)
	}

	recorded := false
	if f.Type == datatype.Reference {
		var temp reg.R
		if s.TempCount() > 0 {
			temp = s.Temp(0).Reg()
		}
		c.storeReference(m, value, temp)
	} else {
		recorded = c.storeValue(f.Type, m, value, i)
	}
	if !recorded {
		c.maybeRecordImplicitNullCheck(i)
	}

	if storeNeedsWriteBarrier(f.Type, i.Inputs[1]) {
		c.markGCCard(s.Temp(0).Reg(), s.Temp(1).Reg(), base, value.Reg(), f.ValueCanBeNull)
	}

	if f.Volatile {
		c.genMemoryBarrier(graph.BarrierAnyAny)
	}
}

// Unresolved fields are accessed through runtime helpers.

func isUnresolvedStatic(op graph.Op) bool {
	return op == graph.OpUnresolvedStaticFieldGet || op == graph.OpUnresolvedStaticFieldSet
}

func isUnresolvedGet(op graph.Op) bool {
	return op == graph.OpUnresolvedInstanceFieldGet || op == graph.OpUnresolvedStaticFieldGet
}

func (b *builder) buildUnresolvedField(i *graph.Instruction) *loc.Summary {
	t := i.FieldAux().Type
	static := isUnresolvedStatic(i.Op)

	s := loc.NewSummary(len(i.Inputs), loc.CallOnMainOnly)
	s.AddTemp(callconv.FieldIndexLocation())

	if isUnresolvedGet(i.Op) {
		if !static {
			s.SetInAt(0, callconv.FieldObjectLocation())
		}
		s.SetOut(callconv.FieldReturnLocation(t), loc.OutputOverlap)
		return s
	}

	n := 0
	if !static {
		s.SetInAt(0, callconv.FieldObjectLocation())
		n = 1
	}
	s.SetInAt(n, callconv.FieldSetValueLocation(t, !static))
	return s
}

var unresolvedGetters = [2]map[datatype.Type]layout.Entrypoint{
	{
		datatype.Bool:      layout.GetBooleanInstance,
		datatype.Int8:      layout.GetByteInstance,
		datatype.Uint8:     layout.GetBooleanInstance,
		datatype.Int16:     layout.GetShortInstance,
		datatype.Uint16:    layout.GetCharInstance,
		datatype.Int32:     layout.Get32Instance,
		datatype.Float32:   layout.Get32Instance,
		datatype.Int64:     layout.Get64Instance,
		datatype.Float64:   layout.Get64Instance,
		datatype.Reference: layout.GetObjInstance,
	},
	{
		datatype.Bool:      layout.GetBooleanStatic,
		datatype.Int8:      layout.GetByteStatic,
		datatype.Uint8:     layout.GetBooleanStatic,
		datatype.Int16:     layout.GetShortStatic,
		datatype.Uint16:    layout.GetCharStatic,
		datatype.Int32:     layout.Get32Static,
		datatype.Float32:   layout.Get32Static,
		datatype.Int64:     layout.Get64Static,
		datatype.Float64:   layout.Get64Static,
		datatype.Reference: layout.GetObjStatic,
	},
}

var unresolvedSetters = [2]map[datatype.Type]layout.Entrypoint{
	{
		datatype.Bool:      layout.Set8Instance,
		datatype.Int8:      layout.Set8Instance,
		datatype.Uint8:     layout.Set8Instance,
		datatype.Int16:     layout.Set16Instance,
		datatype.Uint16:    layout.Set16Instance,
		datatype.Int32:     layout.Set32Instance,
		datatype.Float32:   layout.Set32Instance,
		datatype.Int64:     layout.Set64Instance,
		datatype.Float64:   layout.Set64Instance,
		datatype.Reference: layout.SetObjInstance,
	},
	{
		datatype.Bool:      layout.Set8Static,
		datatype.Int8:      layout.Set8Static,
		datatype.Uint8:     layout.Set8Static,
		datatype.Int16:     layout.Set16Static,
		datatype.Uint16:    layout.Set16Static,
		datatype.Int32:     layout.Set32Static,
		datatype.Float32:   layout.Set32Static,
		datatype.Int64:     layout.Set64Static,
		datatype.Float64:   layout.Set64Static,
		datatype.Reference: layout.SetObjStatic,
	},
}

func unresolvedFieldEntrypoint(i *graph.Instruction) layout.Entrypoint {
	t := i.FieldAux().Type
	table := unresolvedSetters
	if isUnresolvedGet(i.Op) {
		table = unresolvedGetters
	}
	static := 0
	if isUnresolvedStatic(i.Op) {
		static = 1
	}
	e, found := table[static][t]
	if !found {
		pan.Fatalf("unexpected %s type %s", i.Op, t)
	}
	return e
}

func (c *CodeGen) genUnresolvedField(i *graph.Instruction) {
	f := i.FieldAux()
	c.load32(callconv.FieldIndexLocation().Reg(), int32(f.Index))
	c.invokeRuntime(unresolvedFieldEntrypoint(i), i)
}

// Null checks

func (b *builder) buildNullCheck(i *graph.Instruction) *loc.Summary {
	s := b.throwingSummary(i, 1)
	if b.opt.ImplicitNullChecks {
		s.SetInAt(0, loc.RequiresReg())
	} else {
		s.SetInAt(0, anyOf(i.Inputs[0]))
	}
	if b.hasUses(i) {
		s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	}
	return s
}

func (c *CodeGen) genNullCheck(i *graph.Instruction) {
	if c.opt.ImplicitNullChecks {
		if i.EmittedAtUseSite {
			return
		}
		// The fault handler maps the faulting address to this stack map.
		in.TEST.RegMem(&c.Text, in.S32, reg.RAX, in.Addr(i.Locations.InAt(0).Reg(), 0))
		c.recordPcInfo(i, i.DexPC)
		return
	}

	c.genExplicitNullCheck(i)
}

func (c *CodeGen) genExplicitNullCheck(i *graph.Instruction) {
	text := &c.Text
	obj := i.Locations.InAt(0)

	b := c.addSlowPath(new(nullCheckPath), i)

	switch {
	case obj.IsRegister():
		in.TEST.RegReg(text, in.S32, obj.Reg(), obj.Reg())
		c.jcc(in.CCE, &b.entry)
	case obj.IsStackSlot():
		in.CMPi.MemImm(text, in.S32, in.Stack(obj.StackIndex()), 0)
		c.jcc(in.CCE, &b.entry)
	case obj.IsConstant() && obj.Constant().IsNull():
		c.jmp(&b.entry)
	default:
		pan.Fatalf("unexpected null check location %s", obj)
	}
}

// Arrays

func (c *CodeGen) arrayLengthOffset(length *graph.Instruction) int32 {
	if length.ArrayAux().StringCharAt {
		return c.lay.String.Count
	}
	return c.lay.Array.Length
}

// arrayAddress of an element.  A constant index is folded into the
// displacement.
func arrayAddress(obj reg.R, index loc.Location, scale int32, dataOffset int32) in.Mem {
	if index.IsConstant() {
		return in.Addr(obj, index.Constant().Int32()*scale+dataOffset)
	}
	return in.AddrIndex(obj, index.Reg(), in.ScaleOf(int(scale)), dataOffset)
}

func (b *builder) buildArrayGet(i *graph.Instruction) *loc.Summary {
	withReadBarrier := b.opt.emitReadBarrier() && i.Type == datatype.Reference

	kind := loc.NoCall
	if withReadBarrier {
		kind = loc.CallOnSlowPath
	}
	s := loc.NewSummary(2, kind)
	if withReadBarrier && b.opt.bakerReadBarrier() {
		s.SetCustomSlowPathCallerSaves(reg.Set(0))
	}

	s.SetInAt(0, loc.RequiresReg())
	s.SetInAt(1, regOrConst(i.Inputs[1]))
	switch {
	case i.Type.IsFloat():
		s.SetOut(loc.RequiresFpuReg(), loc.NoOutputOverlap)
	case withReadBarrier:
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
	default:
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
	}
	return s
}

func (c *CodeGen) genArrayGet(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	objLoc := s.InAt(0)
	obj := objLoc.Reg()
	index := s.InAt(1)
	out := s.Out()
	t := i.Type
	size := t.Size()

	dataOffset := c.lay.ArrayDataOffset(t)
	charAt := i.ArrayAux().StringCharAt
	if charAt {
		dataOffset = c.lay.String.Value
	}

	switch {
	case t == datatype.Uint16 && charAt && c.opt.StringCompression:
		// Compressed strings store one byte per character.
		var notCompressed, done link.L
		in.TEST8i.MemImm(text, in.Addr(obj, c.lay.String.Count), 1)
		c.maybeRecordImplicitNullCheck(i)
		c.jccNear(in.CCNE, &notCompressed)
		in.MOVZX8.RegMem(text, in.S32, out.Reg(), arrayAddress(obj, index, 1, dataOffset))
		c.jmpNear(&done)
		c.bind(&notCompressed)
		in.MOVZX16.RegMem(text, in.S32, out.Reg(), arrayAddress(obj, index, 2, dataOffset))
		c.bind(&done)

	case t == datatype.Reference && c.opt.bakerReadBarrier():
		m := arrayAddress(obj, index, layout.ReferenceSize, dataOffset)
		c.genReferenceLoadWithBakerReadBarrier(i, out.Reg(), obj, m, true, nil)

	case t == datatype.Reference:
		in.MOV.RegMem(text, in.S32, out.Reg(), arrayAddress(obj, index, layout.ReferenceSize, dataOffset))
		c.maybeRecordImplicitNullCheck(i)
		if index.IsConstant() {
			offset := index.Constant().Int32()<<2 + dataOffset
			c.maybeGenReadBarrierSlow(i, out, out, objLoc, offset, loc.NoLocation())
		} else {
			c.maybeGenReadBarrierSlow(i, out, out, objLoc, dataOffset, index)
		}

	default:
		c.loadValue(t, out, arrayAddress(obj, index, size, dataOffset))
		c.maybeRecordImplicitNullCheck(i)
	}
}

func (b *builder) buildArraySet(i *graph.Instruction) *loc.Summary {
	t := i.Type
	a := i.ArrayAux()
	value := i.Inputs[2]

	kind := loc.NoCall
	if a.NeedsTypeCheck {
		kind = loc.CallOnSlowPath
	}
	s := loc.NewSummary(3, kind)

	s.SetInAt(0, loc.RequiresReg())
	s.SetInAt(1, regOrConst(i.Inputs[1]))
	if t.IsFloat() {
		s.SetInAt(2, fpuOrConst(value))
	} else {
		s.SetInAt(2, regOrConst(value))
	}

	if storeNeedsWriteBarrier(t, value) {
		// The first temporary also holds the poisoned reference.
		s.AddTemp(loc.RequiresReg())
		s.AddTemp(loc.RequiresReg())
	}
	return s
}

func (c *CodeGen) genArraySet(i *graph.Instruction) {
	s := i.Locations
	obj := s.InAt(0).Reg()
	index := s.InAt(1)
	value := s.InAt(2)
	t := i.Type
	dataOffset := c.lay.ArrayDataOffset(t)
	m := arrayAddress(obj, index, t.Size(), dataOffset)

	if t == datatype.Reference {
		c.genArraySetReference(i, m)
		return
	}

	if !c.storeValue(t, m, value, i) {
		c.maybeRecordImplicitNullCheck(i)
	}
}

func (c *CodeGen) genArraySetReference(i *graph.Instruction, m in.Mem) {
	text := &c.Text
	s := i.Locations
	a := i.ArrayAux()
	array := s.InAt(0).Reg()
	value := s.InAt(2)

	if !value.IsRegister() {
		// Null needs neither a type check nor a write barrier.
		in.MOVi.MemImm(text, in.S32, m, 0)
		c.maybeRecordImplicitNullCheck(i)
		return
	}

	temp := s.Temp(0).Reg()
	card := s.Temp(1).Reg()
	val := value.Reg()

	var done link.L
	var path *slowPathBase

	if a.NeedsTypeCheck {
		path = c.addSlowPath(new(arraySetPath), i)

		if a.ValueCanBeNull {
			var notNull link.L
			in.TEST.RegReg(text, in.S32, val, val)
			c.jccNear(in.CCNE, &notNull)
			in.MOVi.MemImm(text, in.S32, m, 0)
			c.maybeRecordImplicitNullCheck(i)
			c.jmp(&done)
			c.bind(&notNull)
		}

		// Read barriers are not needed: comparing the component type with
		// the value's class may yield a false negative, which is handled by
		// the runtime.
		in.MOV.RegMem(text, in.S32, temp, in.Addr(array, c.lay.Object.Class))
		c.maybeRecordImplicitNullCheck(i)
		c.maybeUnpoisonHeapReference(temp)
		in.MOV.RegMem(text, in.S32, temp, in.Addr(temp, c.lay.Class.ComponentType))

		// Poisoned references are compared as such.
		in.CMP.RegMem(text, in.S32, temp, in.Addr(val, c.lay.Object.Class))

		if a.StaticTypeIsObjectArray {
			var doPut link.L
			c.jccNear(in.CCE, &doPut)
			// The component type is Object if its super class is null.
			c.maybeUnpoisonHeapReference(temp)
			in.CMPi.MemImm(text, in.S32, in.Addr(temp, c.lay.Class.SuperClass), 0)
			c.jcc(in.CCNE, &path.entry)
			c.bind(&doPut)
		} else {
			c.jcc(in.CCNE, &path.entry)
		}
	}

	c.storeReference(m, value, temp)

	if !a.NeedsTypeCheck {
		c.maybeRecordImplicitNullCheck(i)
	}

	c.markGCCard(temp, card, array, val, a.ValueCanBeNull)

	c.bind(&done)
	if path != nil {
		c.bind(&path.exit)
	}
}

func (b *builder) buildArrayLength(i *graph.Instruction) *loc.Summary {
	s := loc.NewSummary(1, loc.NoCall)
	s.SetInAt(0, loc.RequiresReg())
	if !i.EmittedAtUseSite {
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
	}
	return s
}

func (c *CodeGen) genArrayLength(i *graph.Instruction) {
	if i.EmittedAtUseSite {
		return
	}

	s := i.Locations
	out := s.Out().Reg()

	in.MOV.RegMem(&c.Text, in.S32, out, in.Addr(s.InAt(0).Reg(), c.arrayLengthOffset(i)))
	c.maybeRecordImplicitNullCheck(i)

	// The compression flag is the low bit of the count.
	if c.opt.StringCompression && i.ArrayAux().StringCharAt {
		in.SHRi.RegImm8(&c.Text, in.S32, out, 1)
	}
}

func (b *builder) buildBoundsCheck(i *graph.Instruction) *loc.Summary {
	s := b.throwingSummary(i, 2)
	s.SetCustomSlowPathCallerSaves(reg.Of(reg.Core, callconv.RuntimeParamRegs[0], callconv.RuntimeParamRegs[1]))

	s.SetInAt(0, regOrConst(i.Inputs[0]))
	if length := i.Inputs[1]; !length.EmittedAtUseSite {
		s.SetInAt(1, regOrConst(length))
	}
	if b.hasUses(i) {
		s.SetOut(loc.SameAsFirst(), loc.OutputOverlap)
	}
	return s
}

func (c *CodeGen) genBoundsCheck(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	index := s.InAt(0)
	length := s.InAt(1)
	lengthInsn := i.Inputs[1]

	switch {
	case length.IsConstant():
		n := length.Constant().Int32()
		if index.IsConstant() {
			if x := index.Constant().Int32(); uint32(x) >= uint32(n) {
				b := c.addSlowPath(new(boundsCheckPath), i)
				c.jmp(&b.entry)
			}
			return
		}
		// The unsigned comparison also catches negative indexes.
		in.CMPi.RegImm(text, in.S32, index.Reg(), n)
		b := c.addSlowPath(new(boundsCheckPath), i)
		c.jcc(in.CCAE, &b.entry)
		return

	case lengthInsn.Op == graph.OpArrayLength && lengthInsn.EmittedAtUseSite:
		array := lengthInsn.Locations.InAt(0).Reg()
		m := in.Addr(array, c.arrayLengthOffset(lengthInsn))

		if c.opt.StringCompression && lengthInsn.ArrayAux().StringCharAt {
			in.MOV.RegMem(text, in.S32, reg.TMP, m)
			c.maybeRecordImplicitNullCheck(lengthInsn)
			in.SHRi.RegImm8(text, in.S32, reg.TMP, 1)
			c.compareWith(in.S32, reg.TMP, index)
		} else {
			if index.IsConstant() {
				in.CMPi.MemImm(text, in.S32, m, index.Constant().Int32())
			} else {
				in.CMPmr.RegMem(text, in.S32, index.Reg(), m)
			}
			c.maybeRecordImplicitNullCheck(lengthInsn)
		}

	default:
		c.compareWith(in.S32, length.Reg(), index)
	}

	b := c.addSlowPath(new(boundsCheckPath), i)
	c.jcc(in.CCBE, &b.entry)
}

// Reference loads

// genReferenceLoadWithBakerReadBarrier loads a reference from src, which is
// within obj.  The gray bit is tested before the load so that a reference
// read from a gray object is marked.  If update is set, the field is also
// updated with the marked reference.
func (c *CodeGen) genReferenceLoadWithBakerReadBarrier(i *graph.Instruction, ref, obj reg.R, src in.Mem, needsNullCheck bool, update *readBarrierMarkAndUpdateFieldPath) {
	text := &c.Text

	offset, mask := c.lay.Object.GrayByte()
	in.TEST8i.MemImm(text, in.Addr(obj, offset), mask)
	if needsNullCheck {
		c.maybeRecordImplicitNullCheck(i)
	}

	// The load leaves the flags alone.
	in.MOV.RegMem(text, in.S32, ref, src)

	var p slowPath
	if update != nil {
		update.ref = ref
		update.obj = obj
		update.field = src
		update.unpoison = true
		p = update
	} else {
		p = &readBarrierMarkPath{ref: ref, unpoison: true}
	}
	b := c.addSlowPath(p, i)
	c.jcc(in.CCNE, &b.entry)

	// Unpoisoning clobbers the flags.
	c.maybeUnpoisonHeapReference(ref)
	c.bind(&b.exit)
}

// genReferenceLoadOneRegister replaces the reference in out with the one it
// points to at offset.  The original value is kept in temp when a slow read
// barrier needs it.
func (c *CodeGen) genReferenceLoadOneRegister(i *graph.Instruction, out loc.Location, offset int32, temp loc.Location, withReadBarrier bool) {
	text := &c.Text
	r := out.Reg()

	switch {
	case withReadBarrier && c.opt.bakerReadBarrier():
		c.genReferenceLoadWithBakerReadBarrier(i, r, r, in.Addr(r, offset), false, nil)

	case withReadBarrier && c.opt.emitReadBarrier():
		in.MOV.RegReg(text, in.S32, temp.Reg(), r)
		in.MOV.RegMem(text, in.S32, r, in.Addr(r, offset))
		c.genReadBarrierSlow(i, out, out, temp, offset, loc.NoLocation())

	default:
		in.MOV.RegMem(text, in.S32, r, in.Addr(r, offset))
		c.maybeUnpoisonHeapReference(r)
	}
}

// genReferenceLoadTwoRegisters loads the reference at offset within obj.
func (c *CodeGen) genReferenceLoadTwoRegisters(i *graph.Instruction, out, obj loc.Location, offset int32, withReadBarrier bool) {
	text := &c.Text
	r := out.Reg()

	switch {
	case withReadBarrier && c.opt.bakerReadBarrier():
		c.genReferenceLoadWithBakerReadBarrier(i, r, obj.Reg(), in.Addr(obj.Reg(), offset), false, nil)

	case withReadBarrier && c.opt.emitReadBarrier():
		in.MOV.RegMem(text, in.S32, r, in.Addr(obj.Reg(), offset))
		c.genReadBarrierSlow(i, out, out, obj, offset, loc.NoLocation())

	default:
		in.MOV.RegMem(text, in.S32, r, in.Addr(obj.Reg(), offset))
		c.maybeUnpoisonHeapReference(r)
	}
}

// genGcRootLoad loads a root reference, which is never poisoned.  The fixup
// function records a patch of the displacement of the instruction which
// addresses m; it may be nil.
func (c *CodeGen) genGcRootLoad(i *graph.Instruction, root loc.Location, m in.Mem, fixup func(), withReadBarrier bool) {
	text := &c.Text
	r := root.Reg()

	switch {
	case withReadBarrier && c.opt.bakerReadBarrier():
		in.MOV.RegMem(text, in.S32, r, m)
		if fixup != nil {
			fixup()
		}

		// The per-register entrypoint is null while the collector is not
		// marking.
		b := c.addSlowPath(&readBarrierMarkPath{ref: r}, i)
		in.GS(text)
		in.CMPi.MemImm(text, in.S32, in.Abs(c.lay.MarkEntrypointOffset(r)), 0)
		c.jcc(in.CCNE, &b.entry)
		c.bind(&b.exit)

	case withReadBarrier && c.opt.emitReadBarrier():
		in.LEA.RegMem(text, in.S64, r, m)
		if fixup != nil {
			fixup()
		}
		c.genReadBarrierForRootSlow(i, root, root)

	default:
		in.MOV.RegMem(text, in.S32, r, m)
		if fixup != nil {
			fixup()
		}
	}
}

func (c *CodeGen) genReadBarrierSlow(i *graph.Instruction, out, ref, obj loc.Location, offset int32, index loc.Location) {
	b := c.addSlowPath(&readBarrierForHeapReferencePath{
		out:    out,
		ref:    ref,
		obj:    obj,
		offset: offset,
		index:  index,
	}, i)
	c.jmp(&b.entry)
	c.bind(&b.exit)
}

// maybeGenReadBarrierSlow after a plain reference load.  Without read
// barriers the reference is only unpoisoned.
func (c *CodeGen) maybeGenReadBarrierSlow(i *graph.Instruction, out, ref, obj loc.Location, offset int32, index loc.Location) {
	if c.opt.ReadBarrier == SlowReadBarrier {
		c.genReadBarrierSlow(i, out, ref, obj, offset, index)
		return
	}
	c.maybeUnpoisonHeapReference(out.Reg())
}

func (c *CodeGen) genReadBarrierForRootSlow(i *graph.Instruction, out, root loc.Location) {
	b := c.addSlowPath(&readBarrierForRootPath{out: out, root: root}, i)
	c.jmp(&b.entry)
	c.bind(&b.exit)
}

// Compare-and-swap of a reference field

func (b *builder) buildUnsafeCASObject(i *graph.Instruction) *loc.Summary {
	if b.opt.ReadBarrier == SlowReadBarrier {
		pan.Fatalf("%s is not supported with slow read barriers", i.Op)
	}

	kind := loc.NoCall
	if b.opt.bakerReadBarrier() {
		kind = loc.CallOnSlowPath
	}
	s := loc.NewSummary(4, kind)
	s.SetInAt(0, loc.RequiresReg())
	s.SetInAt(1, loc.RequiresReg())
	s.SetInAt(2, loc.Reg(reg.RAX)) // expected value of cmpxchg
	s.SetInAt(3, loc.RequiresReg())
	s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
	s.AddTemp(loc.RequiresReg())
	s.AddTemp(loc.RequiresReg())
	s.SetIntrinsified(true)
	return s
}

func (c *CodeGen) genUnsafeCASObject(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	base := s.InAt(0).Reg()
	offset := s.InAt(1).Reg()
	expected := s.InAt(2).Reg()
	value := s.InAt(3).Reg()
	out := s.Out().Reg()
	temp1 := s.Temp(0).Reg()
	temp2 := s.Temp(1).Reg()

	// The card is marked as if the store succeeds.
	c.markGCCard(temp1, temp2, base, value, true)

	field := in.AddrIndex(base, offset, in.Scale0, 0)

	if c.opt.bakerReadBarrier() {
		// The field must hold a to-space reference, or the comparison may
		// fail spuriously.  The output register is scratch here.
		c.genReferenceLoadWithBakerReadBarrier(i, out, base, field, false, &readBarrierMarkAndUpdateFieldPath{
			temp1: temp1,
			temp2: temp2,
		})
	}

	valueReg := value
	baseIsValue := base == value
	if c.opt.HeapPoisoning {
		if baseIsValue {
			valueReg = temp1
			in.MOV.RegReg(text, in.S32, valueReg, base)
		}
		if valueReg == expected || base == expected {
			pan.Fatalf("%s operand allocated to rax", i.Op)
		}
		c.poisonHeapReference(expected)
		c.poisonHeapReference(valueReg)
	}

	in.LOCK(text)
	in.CMPXCHG.RegMem(text, in.S32, valueReg, field)

	in.CCE.SetccOpcode().OneSizeReg(text, out)
	in.MOVZX8.RegReg(text, in.S32, out, out)

	if c.opt.HeapPoisoning {
		if !baseIsValue {
			c.unpoisonHeapReference(valueReg)
		}
		c.unpoisonHeapReference(expected)
	}
}
