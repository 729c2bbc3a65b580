// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/buffer"
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/test/native"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

func encode(f func(*code.Buf)) []byte {
	text := code.Buf{Buffer: buffer.NewDynamic(nil)}
	f(&text)
	return text.Bytes()
}

func join(chunks ...[]byte) []byte {
	return bytes.Join(chunks, nil)
}

func moveTo(b *graph.Block, dest reg.R, t datatype.Type, source loc.Location) {
	b.AddAux(graph.OpParallelMove, datatype.Void, graph.Moves{{Source: source, Dest: loc.Reg(dest), Type: t}})
}

// runtimeCall of an entrypoint through the thread register.
func runtimeCall(e layout.Entrypoint) []byte {
	return encode(func(b *code.Buf) {
		in.GS(b)
		in.CALLm.Mem(b, in.OneSize, in.Abs(layout.Default.EntrypointOffset(e)))
	})
}

// nearBranchTarget of the jcc rel32 instruction at offset.
func nearBranchTarget(text []byte, offset int) int {
	rel := int32(binary.LittleEndian.Uint32(text[offset+2:]))
	return offset + 6 + int(rel)
}

func TestAddEmission(t *testing.T) {
	const imm = 5

	for _, test := range []struct {
		name     string
		out      reg.R
		constant bool
		insn     func(*code.Buf)
	}{
		{"in place", reg.RSI, false, func(b *code.Buf) { in.ADD.RegReg(b, in.S32, reg.RSI, reg.RDX) }},
		{"commuted", reg.RDX, false, func(b *code.Buf) { in.ADD.RegReg(b, in.S32, reg.RDX, reg.RSI) }},
		{"three operand", reg.RAX, false, func(b *code.Buf) {
			in.LEA.RegMem(b, in.S32, reg.RAX, in.AddrIndex(reg.RSI, reg.RDX, in.Scale0, 0))
		}},
		{"in place immediate", reg.RSI, true, func(b *code.Buf) { in.ADDi.RegImm(b, in.S32, reg.RSI, imm) }},
		{"three operand immediate", reg.RAX, true, func(b *code.Buf) { in.LEA.RegMem(b, in.S32, reg.RAX, in.Addr(reg.RSI, imm)) }},
	} {
		g := graph.New(graph.Method{Name: "add", Static: true})
		b := g.NewBlock()
		x := b.Add(graph.OpParameterValue, datatype.Int32)
		y := b.Add(graph.OpParameterValue, datatype.Int32)
		second := y
		if test.constant {
			second = b.IntConstant(imm)
		}
		add := b.Add(graph.OpAdd, datatype.Int32, x, second)
		if test.out != reg.RAX {
			moveTo(b, reg.RAX, datatype.Int32, loc.Reg(test.out))
		}
		b.Add(graph.OpReturn, datatype.Void, add)

		build(t, g, Options{})
		add.Allocation = &graph.Allocation{In: []loc.Location{loc.Reg(reg.RSI), loc.Reg(reg.RDX)}, Out: loc.Reg(test.out)}
		if test.constant {
			add.Allocation.In = add.Allocation.In[:1]
		}
		m := generate(t, g, Options{})

		if insn := encode(test.insn); !bytes.HasPrefix(m.Code, insn) {
			t.Errorf("%s: % x does not start with % x", test.name, m.Code, insn)
		}
		if m.Code[len(m.Code)-1] != 0xc3 {
			t.Errorf("%s: % x does not end with ret", test.name, m.Code)
		}
		if m.FrameSize != wordSize {
			t.Errorf("%s: frame size %d", test.name, m.FrameSize)
		}

		f := load(t, m.Code)
		if f == nil {
			continue
		}
		for _, args := range [][2]int32{{5, 7}, {-3, 1}, {0x7fffffff, 1}} {
			want := args[0] + args[1]
			if test.constant {
				want = args[0] + imm
			}
			if got := int32(f.Call(uint64(uint32(args[0])), uint64(uint32(args[1])))); got != want {
				t.Errorf("%s: %d + %d = %d; want %d", test.name, args[0], args[1], got, want)
			}
		}
		f.Close()
	}
}

func TestPackedSwitchEmission(t *testing.T) {
	for _, test := range []struct {
		lower int32
		num   uint32
		table bool
	}{
		{0, 3, false},
		{-10, 5, false},
		{100, 4, false},
		{0, 6, true},
		{-3, 7, true},
		{1000, 12, true},
	} {
		g := graph.New(graph.Method{Name: "switch", Static: true})
		entry := g.NewBlock()
		value := entry.Add(graph.OpParameterValue, datatype.Int32)
		sw := entry.AddAux(graph.OpPackedSwitch, datatype.Void, graph.Switch{StartValue: test.lower, NumEntries: test.num}, value)

		// Each case returns its index; the default block returns -1.
		for n := int32(0); n <= int32(test.num); n++ {
			result := n
			if n == int32(test.num) {
				result = -1
			}
			b := g.NewBlock()
			entry.AddSuccessor(b)
			k := b.IntConstant(result)
			moveTo(b, reg.RAX, datatype.Int32, loc.ConstantOf(k.Const()))
			b.Add(graph.OpReturn, datatype.Void, k)
		}

		build(t, g, Options{})
		sw.Allocation = &graph.Allocation{
			In:    []loc.Location{loc.Reg(reg.RSI)},
			Temps: []loc.Location{loc.Reg(reg.RDX), loc.Reg(reg.RCX)},
		}
		m := generate(t, g, Options{})

		jump := encode(func(b *code.Buf) { in.JMPm.Reg(b, in.OneSize, reg.RDX) })
		if got := bytes.Contains(m.Code, jump); got != test.table {
			t.Errorf("lower %d, %d entries: jump table %v", test.lower, test.num, got)
		}

		f := load(t, m.Code)
		if f == nil {
			continue
		}
		for _, v := range []int32{test.lower - 1, test.lower, test.lower + 1, test.lower + int32(test.num) - 1, test.lower + int32(test.num), -0x80000000, 0x7fffffff} {
			want := v - test.lower
			if v < test.lower || int64(v) >= int64(test.lower)+int64(test.num) {
				want = -1
			}
			if got := int32(f.Call(uint64(uint32(v)))); got != want {
				t.Errorf("lower %d, %d entries: value %d went to %d; want %d", test.lower, test.num, v, got, want)
			}
		}
		f.Close()
	}
}

// divRemMethod computes x op y, or x op constant if divisor is not nil.
// Allocation follows the fixed registers of the summary: the dividend
// moves to rax and a register divisor to rcx.
func divRemMethod(t *testing.T, op graph.Op, typ datatype.Type, divisor *int64) []byte {
	t.Helper()

	g := graph.New(graph.Method{Name: "divrem", Static: true})
	b := g.NewBlock()
	x := b.Add(graph.OpParameterValue, typ)

	var y *graph.Instruction
	if divisor == nil {
		y = b.Add(graph.OpParameterValue, typ)
		b.AddAux(graph.OpParallelMove, datatype.Void, graph.Moves{
			{Source: loc.Reg(reg.RSI), Dest: loc.Reg(reg.RAX), Type: typ},
			{Source: loc.Reg(reg.RDX), Dest: loc.Reg(reg.RCX), Type: typ},
		})
	} else {
		if typ == datatype.Int64 {
			y = b.LongConstant(*divisor)
		} else {
			y = b.IntConstant(int32(*divisor))
		}
		moveTo(b, reg.RAX, typ, loc.Reg(reg.RSI))
	}

	insn := b.Add(op, typ, x, y)
	if op == graph.OpRem {
		moveTo(b, reg.RAX, typ, loc.Reg(reg.RDX))
	}
	b.Add(graph.OpReturn, datatype.Void, insn)

	build(t, g, Options{})

	a := &graph.Allocation{In: []loc.Location{loc.Reg(reg.RAX), loc.Reg(reg.RCX)}}
	switch {
	case divisor != nil && op == graph.OpDiv:
		a.In = a.In[:1]
		a.Out = loc.Reg(reg.RAX)
		a.Temps = []loc.Location{loc.Reg(reg.RDX), loc.Reg(reg.RCX)}
	case divisor != nil:
		a.In = a.In[:1]
		a.Temps = []loc.Location{loc.Reg(reg.RCX)}
	case op == graph.OpDiv:
		a.Out = loc.Reg(reg.RAX)
	}
	insn.Allocation = a

	m := generate(t, g, Options{})

	idiv := encode(func(b *code.Buf) { in.IDIV.Reg(b, intSize(typ), reg.RCX) })
	if got, want := bytes.Contains(m.Code, idiv), divisor == nil; got != want {
		if divisor != nil {
			t.Errorf("%s %s by %d: idiv emitted", op, typ, *divisor)
		} else {
			t.Errorf("%s %s: no idiv", op, typ)
		}
	}
	if divisor == nil && m.SlowPaths.ByKind["DivRemMinusOne"] != 1 {
		t.Errorf("%s %s: slow paths %+v", op, typ, m.SlowPaths)
	}
	return m.Code
}

func TestDivRemInt32(t *testing.T) {
	numerators := []int32{0, 1, -1, 7, -7, 100, -100, 12345, -12345, 0x7fffffff, -0x80000000, -0x7fffffff}
	divisors := []int64{1, -1, 2, -2, 8, -8, 1 << 30, -0x80000000, 3, 7, -3, -7, 10, 641, 0x7fffffff}

	for _, op := range []graph.Op{graph.OpDiv, graph.OpRem} {
		check := func(f *native.Code, x, y int32) {
			var want int32
			switch {
			case y == -1 && op == graph.OpDiv:
				want = -x
			case y == -1:
				want = 0
			case op == graph.OpDiv:
				want = x / y
			default:
				want = x % y
			}
			if got := int32(f.Call(uint64(uint32(x)), uint64(uint32(y)))); got != want {
				t.Errorf("%d %s %d = %d; want %d", x, op, y, got, want)
			}
		}

		for _, d := range divisors {
			d := d
			text := divRemMethod(t, op, datatype.Int32, &d)
			if f := load(t, text); f != nil {
				for _, x := range numerators {
					check(f, x, int32(d))
				}
				f.Close()
			}
		}

		text := divRemMethod(t, op, datatype.Int32, nil)
		if f := load(t, text); f != nil {
			for _, x := range numerators {
				for _, d := range divisors {
					check(f, x, int32(d))
				}
			}
			f.Close()
		}
	}
}

func TestDivRemInt64(t *testing.T) {
	const (
		minInt64 = -0x8000000000000000
		maxInt64 = 0x7fffffffffffffff
	)

	numerators := []int64{0, 1, -1, 7, -7, 1 << 40, -(1 << 40), maxInt64, minInt64, minInt64 + 1}
	divisors := []int64{1, -1, 2, -2, 16, -16, 1 << 40, 3, 7, -3, -7, 1000, 1000000007}

	for _, op := range []graph.Op{graph.OpDiv, graph.OpRem} {
		check := func(f *native.Code, x, y int64) {
			var want int64
			switch {
			case y == -1 && op == graph.OpDiv:
				want = -x
			case y == -1:
				want = 0
			case op == graph.OpDiv:
				want = x / y
			default:
				want = x % y
			}
			if got := int64(f.Call(uint64(x), uint64(y))); got != want {
				t.Errorf("%d %s %d = %d; want %d", x, op, y, got, want)
			}
		}

		for _, d := range divisors {
			if d != int64(int32(d)) {
				continue // not encodable as an immediate operand
			}
			d := d
			text := divRemMethod(t, op, datatype.Int64, &d)
			if f := load(t, text); f != nil {
				for _, x := range numerators {
					check(f, x, d)
				}
				f.Close()
			}
		}

		text := divRemMethod(t, op, datatype.Int64, nil)
		if f := load(t, text); f != nil {
			for _, x := range numerators {
				for _, d := range divisors {
					check(f, x, d)
				}
			}
			f.Close()
		}
	}
}

func TestInstanceOfExact(t *testing.T) {
	for _, nullCheck := range []bool{true, false} {
		g := graph.New(graph.Method{Name: "instanceof", Static: true})
		b := g.NewBlock()
		obj := b.Add(graph.OpParameterValue, datatype.Reference)
		cls := b.Add(graph.OpParameterValue, datatype.Reference)
		check := b.AddAux(graph.OpInstanceOf, datatype.Bool, graph.TypeCheck{Kind: graph.CheckExact, MustDoNullCheck: nullCheck}, obj, cls)
		b.Add(graph.OpReturn, datatype.Void, check)

		build(t, g, Options{})
		if k := check.Locations.CallKind(); k != loc.NoCall {
			t.Errorf("call kind: %s", k)
		}
		check.Allocation = &graph.Allocation{
			In:  []loc.Location{loc.Reg(reg.RSI), loc.Reg(reg.RDX)},
			Out: loc.Reg(reg.RAX),
		}
		m := generate(t, g, Options{})

		test := encode(func(b *code.Buf) { in.TEST.RegReg(b, in.S32, reg.RSI, reg.RSI) })
		if got := bytes.HasPrefix(m.Code, test); got != nullCheck {
			t.Errorf("null check %v: % x", nullCheck, m.Code)
		}
		if m.SlowPaths.Total != 0 {
			t.Errorf("slow paths: %+v", m.SlowPaths)
		}

		f := load(t, m.Code)
		if f == nil {
			continue
		}

		heap := allocLow(t)
		if heap == nil {
			f.Close()
			continue
		}

		// Objects start with their class reference.
		const (
			classA   = 0x100
			classB   = 0x200
			instance = 0x300
		)
		binary.LittleEndian.PutUint32(heap[instance+layout.Default.Object.Class:], classA)
		base := addressOf(heap)

		if nullCheck {
			if got := f.Call(0, base+classA); got != 0 {
				t.Errorf("null instanceof: %d", got)
			}
		}
		if got := f.Call(base+instance, base+classA); got != 1 {
			t.Errorf("exact class: %d", got)
		}
		if got := f.Call(base+instance, base+classB); got != 0 {
			t.Errorf("other class: %d", got)
		}

		native.Free(heap)
		f.Close()
	}
}

func TestBoundsCheckConstantLength(t *testing.T) {
	const length = 10

	for _, test := range []struct {
		name      string
		index     int32
		register  bool
		slowPaths int
	}{
		{"constant in range", 3, false, 0},
		{"constant last", length - 1, false, 0},
		{"constant at length", length, false, 1},
		{"constant negative", -1, false, 1},
		{"register", 0, true, 1},
	} {
		g := graph.New(graph.Method{Name: "bounds", Static: true})
		b := g.NewBlock()
		p := b.Add(graph.OpParameterValue, datatype.Int32)
		index := p
		if !test.register {
			index = b.IntConstant(test.index)
		}
		check := b.AddAux(graph.OpBoundsCheck, datatype.Int32, graph.Array{}, index, b.IntConstant(length))
		moveTo(b, reg.RAX, datatype.Int32, loc.Reg(reg.RSI))
		b.Add(graph.OpReturn, datatype.Void, p)

		build(t, g, Options{})
		if test.register {
			check.Allocation = &graph.Allocation{In: []loc.Location{loc.Reg(reg.RSI)}}
		}
		m := generate(t, g, Options{})

		if m.SlowPaths.Total != test.slowPaths || m.SlowPaths.ByKind["BoundsCheck"] != test.slowPaths {
			t.Errorf("%s: slow paths %+v", test.name, m.SlowPaths)
		}
		if test.slowPaths == 0 && bytes.Contains(m.Code, runtimeCall(layout.ThrowArrayBounds)) {
			t.Errorf("%s: throw is emitted", test.name)
		}
		if !test.register {
			continue
		}

		// The unsigned comparison branches to the throw only when the
		// index is out of range.
		cmp := join(encode(func(b *code.Buf) { in.CMPi.RegImm(b, in.S32, reg.RSI, length) }), []byte{0x0f, 0x80 | byte(in.CCAE)})
		at := bytes.Index(m.Code, cmp)
		if at < 0 {
			t.Fatalf("%s: no compare in % x", test.name, m.Code)
		}
		target := nearBranchTarget(m.Code, at+len(cmp)-2)
		if !bytes.Contains(m.Code[target:], runtimeCall(layout.ThrowArrayBounds)) {
			t.Errorf("%s: branch target %#x does not throw", test.name, target)
		}

		f := load(t, m.Code)
		if f == nil {
			continue
		}
		for _, x := range []uint64{0, 1, length - 1} {
			if got := f.Call(x); got&0xffffffff != x {
				t.Errorf("%s: index %d returned %d", test.name, x, got)
			}
		}
		f.Close()
	}
}

func TestBoundsCheckStringCharAt(t *testing.T) {
	for _, compression := range []bool{false, true} {
		g := graph.New(graph.Method{Name: "charAt", Static: true})
		b := g.NewBlock()
		str := b.Add(graph.OpParameterValue, datatype.Reference)
		index := b.Add(graph.OpParameterValue, datatype.Int32)
		length := b.AddAux(graph.OpArrayLength, datatype.Int32, graph.Array{StringCharAt: true}, str)
		check := b.AddAux(graph.OpBoundsCheck, datatype.Int32, graph.Array{StringCharAt: true}, index, length)
		b.Add(graph.OpReturnVoid, datatype.Void)

		opt := Options{StringCompression: compression}
		build(t, g, opt)
		if !length.EmittedAtUseSite {
			t.Fatal("length is not folded into the bounds check")
		}
		length.Allocation = &graph.Allocation{In: []loc.Location{loc.Reg(reg.RSI)}}
		check.Allocation = &graph.Allocation{In: []loc.Location{loc.Reg(reg.RDX)}}
		m := generate(t, g, opt)

		count := in.Addr(reg.RSI, layout.Default.String.Count)
		var compare []byte
		if compression {
			// The count field holds the length shifted left by the
			// compression flag.
			compare = encode(func(b *code.Buf) {
				in.MOV.RegMem(b, in.S32, reg.TMP, count)
				in.SHRi.RegImm8(b, in.S32, reg.TMP, 1)
				in.CMP.RegReg(b, in.S32, reg.TMP, reg.RDX)
			})
		} else {
			compare = encode(func(b *code.Buf) { in.CMPmr.RegMem(b, in.S32, reg.RDX, count) })
		}
		compare = join(compare, []byte{0x0f, 0x80 | byte(in.CCBE)})

		at := bytes.Index(m.Code, compare)
		if at < 0 {
			t.Fatalf("compression %v: no compare in % x", compression, m.Code)
		}
		target := nearBranchTarget(m.Code, at+len(compare)-2)
		if !bytes.Contains(m.Code[target:], runtimeCall(layout.ThrowStringBounds)) {
			t.Errorf("compression %v: branch target %#x does not throw", compression, target)
		}
	}
}

func TestCardMarking(t *testing.T) {
	const card = reg.R8

	cardLoad := encode(func(b *code.Buf) {
		in.GS(b)
		in.MOV.RegMem(b, in.S64, card, in.Abs(layout.Default.Thread.CardTable))
	})
	nullTest := join(encode(func(b *code.Buf) { in.TEST.RegReg(b, in.S32, reg.RDX, reg.RDX) }), []byte{0x70 | byte(in.CCE)})

	for _, test := range []struct {
		name     string
		null     bool
		nullable bool
		marks    int
	}{
		{"nullable", false, true, 1},
		{"non-null", false, false, 1},
		{"null constant", true, true, 0},
	} {
		g := graph.New(graph.Method{Name: "store", Static: true})
		b := g.NewBlock()
		obj := b.Add(graph.OpParameterValue, datatype.Reference)
		value := b.Add(graph.OpParameterValue, datatype.Reference)
		if test.null {
			value = b.NullConstant()
		}
		store := b.AddAux(graph.OpInstanceFieldSet, datatype.Void, graph.Field{
			Offset:         8,
			Type:           datatype.Reference,
			ValueCanBeNull: test.nullable,
		}, obj, value)
		b.Add(graph.OpReturnVoid, datatype.Void)

		build(t, g, Options{})
		if test.null {
			if n := store.Locations.TempCount(); n != 0 {
				t.Errorf("%s: %d temps", test.name, n)
			}
			store.Allocation = &graph.Allocation{In: []loc.Location{loc.Reg(reg.RSI)}}
		} else {
			store.Allocation = &graph.Allocation{
				In:    []loc.Location{loc.Reg(reg.RSI), loc.Reg(reg.RDX)},
				Temps: []loc.Location{loc.Reg(reg.RCX), loc.Reg(card)},
			}
		}
		m := generate(t, g, Options{})

		if n := bytes.Count(m.Code, cardLoad); n != test.marks {
			t.Errorf("%s: card marked %d times in % x", test.name, n, m.Code)
		}
		if got, want := bytes.Contains(m.Code, nullTest), test.nullable && !test.null; got != want {
			t.Errorf("%s: null test %v", test.name, got)
		}
	}
}

func TestStackMapsAtRuntimeCalls(t *testing.T) {
	g := graph.New(graph.Method{Name: "roots", Static: true})
	b := g.NewBlock()
	obj := b.Add(graph.OpParameterValue, datatype.Reference)
	s := b.AddAux(graph.OpLoadString, datatype.Reference, graph.LoadString{Kind: graph.StringBssEntry, StringIndex: 7})
	get := b.AddAux(graph.OpInstanceFieldGet, datatype.Reference, graph.Field{Offset: 8, Type: datatype.Reference}, obj)
	b.Add(graph.OpReturnVoid, datatype.Void)

	opt := Options{ReadBarrier: BakerReadBarrier}
	build(t, g, opt)
	s.Allocation = &graph.Allocation{Out: loc.Reg(reg.RAX)}
	get.Allocation = &graph.Allocation{In: []loc.Location{loc.Reg(reg.RSI)}, Out: loc.Reg(reg.RDX)}
	m := generate(t, g, opt)

	maps := make(map[int]int)
	for _, sm := range m.StackMaps {
		maps[int(sm.NativePC)]++
	}

	// The stack overflow check of the frame entry is a safepoint.
	stackCheck := encode(func(b *code.Buf) {
		in.TEST.RegMem(b, in.S64, reg.RAX, in.Stack(-stackOverflowReservedBytes))
	})
	if at := bytes.Index(m.Code, stackCheck); at >= 0 {
		if maps[at+len(stackCheck)] != 1 {
			t.Error("no stack map at the stack overflow check")
		}
		delete(maps, at+len(stackCheck))
	}

	callPrefix := []byte{0x65, 0xff, 0x14, 0x25}
	var marks, resolves int

	for at := 0; ; {
		n := bytes.Index(m.Code[at:], callPrefix)
		if n < 0 {
			break
		}
		at += n
		offset := int32(binary.LittleEndian.Uint32(m.Code[at+len(callPrefix):]))
		e := layout.Entrypoint((offset - layout.Default.Thread.EntryPoints) / layout.PointerSize)
		end := at + len(callPrefix) + 4

		switch {
		case e.IsMarkEntrypoint():
			marks++
		case e == layout.ResolveString:
			resolves++
		}

		if got, want := maps[end], e.RequiresStackMap(); (got == 1) != want || got > 1 {
			t.Errorf("%s call at %#x: %d stack maps", e, at, got)
		}
		delete(maps, end)
		at = end
	}

	if marks != 2 || resolves != 1 {
		t.Errorf("%d mark calls, %d resolve calls", marks, resolves)
	}
	if len(maps) != 0 {
		t.Errorf("stack maps without a call: %v", maps)
	}
}
