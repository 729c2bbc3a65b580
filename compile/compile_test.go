// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compile

import (
	"bytes"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/compile/event"
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

func stringGraph() (*graph.Graph, *graph.Instruction) {
	g := graph.New(graph.Method{Name: "str", Static: true})
	b := g.NewBlock()
	s := b.AddAux(graph.OpLoadString, datatype.Reference, graph.LoadString{
		Kind:        graph.StringBssEntry,
		StringIndex: 9,
	})
	b.Add(graph.OpReturn, datatype.Void, s)
	return g, s
}

func TestPhases(t *testing.T) {
	var events []event.Event
	config := &Config{
		EventHandler: func(e event.Event) { events = append(events, e) },
	}

	g, s := stringGraph()
	if err := BuildLocations(config, g); err != nil {
		t.Fatal(err)
	}
	if !s.Locations.OnlyCallsOnSlowPath() {
		t.Error("bss string load does not call on slow path")
	}

	s.Allocation = &graph.Allocation{Out: loc.Reg(reg.RAX)}
	m, err := Emit(config, g)
	if err != nil {
		t.Fatal(err)
	}

	if len(events) != 3 || events[0] != event.Built || events[1] != event.Allocated || events[2] != event.Emitted {
		t.Errorf("events: %v", events)
	}
	if m.Name != "str" || len(m.Patches) != 1 || m.Patches[0].Kind != object.PatchBssString {
		t.Errorf("method: %s %v", m.Name, m.Patches)
	}
	// Stack overflow check and the slow path call.
	if len(m.Code) == 0 || len(m.StackMaps) != 2 {
		t.Errorf("code %d bytes, %d stack maps", len(m.Code), len(m.StackMaps))
	}
}

func TestCompileListing(t *testing.T) {
	g, s := stringGraph()
	s.Allocation = &graph.Allocation{Out: loc.Reg(reg.RDX)}

	l, err := graph.NewListing(g)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	l, err = graph.DecodeListing(&buf)
	if err != nil {
		t.Fatal(err)
	}

	m1, err := Compile(nil, l)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := Compile(&Config{}, l)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m1.Code, m2.Code) {
		t.Error("compilation is not deterministic")
	}
}

func TestInputErrors(t *testing.T) {
	g, s := stringGraph()
	s.Allocation = &graph.Allocation{Out: loc.FpuReg(reg.XMM0)}

	l, err := graph.NewListing(g)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Compile(nil, l)
	if err == nil || !errors.IsInput(err) {
		t.Errorf("fpu allocation for reference: %v", err)
	}

	l.Blocks[0].Instructions[0].Op = "NoSuchOp"
	_, err = Compile(nil, l)
	if err == nil || !errors.IsInput(err) {
		t.Errorf("unknown operation: %v", err)
	}
}

func TestParseReadBarrierKind(t *testing.T) {
	for s, k := range map[string]ReadBarrierKind{"none": NoReadBarrier, "baker": BakerReadBarrier, "slow": SlowReadBarrier} {
		if x, ok := ParseReadBarrierKind(s); !ok || x != k || x.String() != s {
			t.Errorf("%s: %v %v", s, x, ok)
		}
	}
	if _, ok := ParseReadBarrierKind("fast"); ok {
		t.Error("fast")
	}
}
