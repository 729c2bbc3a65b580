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
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

func generate(t *testing.T, g *graph.Graph, opt Options) (m *object.CompiledMethod) {
	t.Helper()

	err := func() (err error) {
		defer func() { err = pan.Error(recover()) }()

		Allocate(g)
		c := New(g, opt, buffer.NewDynamic(nil))
		c.Generate()
		m = c.Result()
		return
	}()
	if err != nil {
		t.Fatal(err)
	}
	return
}

func build(t *testing.T, g *graph.Graph, opt Options) {
	t.Helper()

	err := func() (err error) {
		defer func() { err = pan.Error(recover()) }()
		Build(g, opt)
		return
	}()
	if err != nil {
		t.Fatal(err)
	}
}

func TestEmptyFrame(t *testing.T) {
	g := graph.New(graph.Method{Name: "empty", Static: true})
	g.NewBlock().Add(graph.OpReturnVoid, datatype.Void)

	build(t, g, Options{})
	m := generate(t, g, Options{})

	if !bytes.Equal(m.Code, []byte{0xc3}) {
		t.Errorf("code: %x", m.Code)
	}
	if m.FrameSize != wordSize {
		t.Errorf("frame size: %d", m.FrameSize)
	}
	if m.CoreSpillMask != 1<<fakeReturnRegister || m.FpSpillMask != 0 {
		t.Errorf("spill masks: %#x %#x", m.CoreSpillMask, m.FpSpillMask)
	}
	if len(m.StackMaps) != 0 {
		t.Errorf("stack maps: %v", m.StackMaps)
	}
}

func TestLoadStringBssEntry(t *testing.T) {
	g := graph.New(graph.Method{Name: "string", Static: true})
	b := g.NewBlock()
	s := b.AddAux(graph.OpLoadString, datatype.Reference, graph.LoadString{
		Kind:        graph.StringBssEntry,
		StringIndex: 42,
		DexFile:     3,
	})
	ret := b.Add(graph.OpReturn, datatype.Void, s)

	build(t, g, Options{})

	if k := s.Locations.CallKind(); k != loc.CallOnSlowPath {
		t.Errorf("call kind: %s", k)
	}
	if !s.Locations.HasCustomSlowPathCallingConvention() {
		t.Error("no custom caller saves")
	}
	if !ret.Locations.InAt(0).Equals(loc.Reg(reg.RAX)) {
		t.Errorf("return input: %s", ret.Locations.InAt(0))
	}

	s.Allocation = &graph.Allocation{Out: loc.Reg(reg.RAX)}
	m := generate(t, g, Options{})

	if len(m.Patches) != 1 {
		t.Fatalf("patches: %v", m.Patches)
	}
	p := m.Patches[0]
	if p.Kind != object.PatchBssString || p.TargetIndex != 42 || p.DexFile != 3 {
		t.Errorf("patch: %+v", p)
	}
	if x := binary.LittleEndian.Uint32(m.Code[p.CodeOffset:]); x != placeholderDisp {
		t.Errorf("placeholder: %#x", x)
	}

	if m.SlowPaths.Total != 1 || m.SlowPaths.ByKind["LoadString"] != 1 {
		t.Errorf("slow paths: %+v", m.SlowPaths)
	}
	if m.FrameSize%stackAlignment != 0 || m.FrameSize <= wordSize {
		t.Errorf("frame size: %d", m.FrameSize)
	}
	if len(m.StackMaps) == 0 {
		t.Error("no stack maps")
	}
	for n := 1; n < len(m.StackMaps); n++ {
		if m.StackMaps[n-1].NativePC > m.StackMaps[n].NativePC {
			t.Error("stack maps are not sorted")
		}
	}
}

func TestBuildInvoke(t *testing.T) {
	g := graph.New(graph.Method{Name: "invoke"})
	b := g.NewBlock()
	x := b.Add(graph.OpParameterValue, datatype.Int32)
	y := b.Add(graph.OpParameterValue, datatype.Int64)
	z := b.Add(graph.OpParameterValue, datatype.Float32)
	r := b.Add(graph.OpParameterValue, datatype.Reference)
	direct := b.AddAux(graph.OpInvokeStaticOrDirect, datatype.Int32, graph.Invoke{
		Type:       graph.InvokeStatic,
		MethodLoad: graph.MethodBssEntry,
	}, x, y, z, r)
	iface := b.AddAux(graph.OpInvokeInterface, datatype.Float64, graph.Invoke{
		Type: graph.InvokeInterface,
	}, r, x)
	b.Add(graph.OpReturnVoid, datatype.Void)

	build(t, g, Options{})

	s := direct.Locations
	for n, want := range []loc.Location{loc.Reg(reg.RSI), loc.Reg(reg.RDX), loc.FpuReg(reg.XMM0), loc.Reg(reg.RCX)} {
		if got := s.InAt(n); !got.Equals(want) {
			t.Errorf("argument %d: %s", n, got)
		}
	}
	if !s.Temp(0).Equals(loc.Reg(reg.RDI)) || !s.Out().Equals(loc.Reg(reg.RAX)) {
		t.Errorf("method %s, result %s", s.Temp(0), s.Out())
	}
	if s.CallKind() != loc.CallOnMainOnly {
		t.Errorf("call kind: %s", s.CallKind())
	}

	s = iface.Locations
	if s.TempCount() != 2 || !s.Temp(1).Equals(loc.Reg(reg.RAX)) {
		t.Errorf("hidden argument: %d temps", s.TempCount())
	}
	if !s.Out().Equals(loc.FpuReg(reg.XMM0)) {
		t.Errorf("result: %s", s.Out())
	}

	// Parameters arrive in the same registers.
	if !x.Locations.Out().Equals(loc.Reg(reg.RSI)) || !r.Locations.Out().Equals(loc.Reg(reg.RCX)) {
		t.Errorf("parameters: %s %s", x.Locations.Out(), r.Locations.Out())
	}
}

func TestCheckCastCallKind(t *testing.T) {
	for _, test := range []struct {
		kind    graph.TypeCheckKind
		barrier ReadBarrierKind
		boot    bool
		want    loc.CallKind
		temps   int
	}{
		{graph.CheckExact, NoReadBarrier, false, loc.NoCall, 1},
		{graph.CheckExact, BakerReadBarrier, false, loc.CallOnSlowPath, 1},
		{graph.CheckExact, BakerReadBarrier, true, loc.NoCall, 1},
		{graph.CheckArray, NoReadBarrier, true, loc.CallOnSlowPath, 1},
		{graph.CheckUnresolved, NoReadBarrier, true, loc.CallOnSlowPath, 1},
		{graph.CheckInterface, NoReadBarrier, true, loc.NoCall, 2},
		{graph.CheckClassHierarchy, SlowReadBarrier, true, loc.NoCall, 2},
	} {
		g := graph.New(graph.Method{Name: "cast"})
		b := g.NewBlock()
		obj := b.Add(graph.OpParameterValue, datatype.Reference)
		cls := b.AddAux(graph.OpLoadClass, datatype.Reference, graph.LoadClass{
			Kind:        graph.ClassBootImageAddress,
			Address:     0x7000,
			InBootImage: test.boot,
		})
		cast := b.AddAux(graph.OpCheckCast, datatype.Void, graph.TypeCheck{Kind: test.kind}, obj, cls)
		b.Add(graph.OpReturnVoid, datatype.Void)

		opt := Options{ReadBarrier: test.barrier}
		build(t, g, opt)

		s := cast.Locations
		if s.CallKind() != test.want || s.TempCount() != test.temps {
			t.Errorf("%d %s boot=%v: %s with %d temps", test.kind, test.barrier, test.boot, s.CallKind(), s.TempCount())
		}
	}
}

func TestAllocateRejects(t *testing.T) {
	for _, test := range []struct {
		name  string
		alloc *graph.Allocation
	}{
		{"missing", nil},
		{"stack for register", &graph.Allocation{
			In:  []loc.Location{loc.Stack(8), loc.Reg(reg.RDX)},
			Out: loc.Reg(reg.RAX),
		}},
		{"scratch register", &graph.Allocation{
			In:  []loc.Location{loc.Reg(reg.TMP), loc.Reg(reg.RDX)},
			Out: loc.Reg(reg.RAX),
		}},
		{"fpu for core", &graph.Allocation{
			In:  []loc.Location{loc.Reg(reg.RSI), loc.Reg(reg.RDX)},
			Out: loc.FpuReg(reg.XMM1),
		}},
		{"safepoint without call", &graph.Allocation{
			In:   []loc.Location{loc.Reg(reg.RSI), loc.Reg(reg.RDX)},
			Out:  loc.Reg(reg.RAX),
			Live: []loc.Location{loc.Reg(reg.RBX)},
		}},
	} {
		g := graph.New(graph.Method{Name: "add"})
		b := g.NewBlock()
		x := b.Add(graph.OpParameterValue, datatype.Int32)
		y := b.Add(graph.OpParameterValue, datatype.Int32)
		add := b.Add(graph.OpAdd, datatype.Int32, x, y)
		b.Add(graph.OpReturn, datatype.Void, add)

		build(t, g, Options{})
		add.Allocation = test.alloc

		err := func() (err error) {
			defer func() { err = pan.Error(recover()) }()
			Allocate(g)
			return
		}()
		if err == nil {
			t.Errorf("%s: accepted", test.name)
		}
	}
}

func TestAllocateParameters(t *testing.T) {
	g := graph.New(graph.Method{Name: "fixed"})
	b := g.NewBlock()
	x := b.Add(graph.OpParameterValue, datatype.Int32)
	b.Add(graph.OpReturn, datatype.Void, x)

	build(t, g, Options{})

	x.Allocation = &graph.Allocation{Out: loc.Reg(reg.RDX)}
	err := func() (err error) {
		defer func() { err = pan.Error(recover()) }()
		Allocate(g)
		return
	}()
	if err == nil {
		t.Error("moved parameter accepted")
	}

	x.Allocation = &graph.Allocation{Out: loc.Reg(reg.RSI)}
	Allocate(g)
	if !x.Locations.Out().Equals(loc.Reg(reg.RSI)) {
		t.Errorf("parameter: %s", x.Locations.Out())
	}
}
