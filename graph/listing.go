// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"io"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
	"github.com/vmihailenco/msgpack/v5"
)

// Listing is the serialized form of an allocated graph.  Inputs refer to
// instruction ids, and locations use the textual form of loc.Parse.
type Listing struct {
	Method     Method        `msgpack:"method"`
	SpillSlots int32         `msgpack:"spills,omitempty"`
	Blocks     []ListedBlock `msgpack:"blocks"`
}

type ListedBlock struct {
	Successors   []int               `msgpack:"succ,omitempty"`
	LoopHeader   bool                `msgpack:"loop,omitempty"`
	BackEdge     bool                `msgpack:"backedge,omitempty"`
	Try          bool                `msgpack:"try,omitempty"`
	Instructions []ListedInstruction `msgpack:"insns"`
}

type ListedInstruction struct {
	ID     int                `msgpack:"id"`
	Op     string             `msgpack:"op"`
	Type   string             `msgpack:"type,omitempty"`
	Inputs []int              `msgpack:"in,omitempty"`
	DexPC  uint32             `msgpack:"pc,omitempty"`
	Aux    msgpack.RawMessage `msgpack:"aux,omitempty"`
	AtUse  bool               `msgpack:"atuse,omitempty"`
	Locs   *ListedLocations   `msgpack:"locs,omitempty"`
}

type ListedLocations struct {
	In       []string `msgpack:"in,omitempty"`
	Out      string   `msgpack:"out,omitempty"`
	Temps    []string `msgpack:"temps,omitempty"`
	Live     []string `msgpack:"live,omitempty"`
	RefRegs  []string `msgpack:"refregs,omitempty"`
	RefSlots []int32  `msgpack:"refslots,omitempty"`
}

type listedMove struct {
	Source   string `msgpack:"src"`
	Dest     string `msgpack:"dst"`
	Type     string `msgpack:"type"`
	Incoming bool   `msgpack:"incoming,omitempty"`
}

// DecodeListing reads one msgpack-encoded listing.
func DecodeListing(r io.Reader) (*Listing, error) {
	l := new(Listing)
	if err := msgpack.NewDecoder(r).Decode(l); err != nil {
		return nil, errors.WrapInput(err, "listing decoding failed")
	}
	return l, nil
}

func (l *Listing) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(l)
}

func newAux(op Op) any {
	switch op {
	case OpIntConstant, OpLongConstant, OpFloatConstant, OpDoubleConstant:
		return new(Constant)
	case OpCompare, OpCondition:
		return new(Compare)
	case OpPackedSwitch:
		return new(Switch)
	case OpDeoptimize:
		return new(Deopt)
	case OpInstanceFieldGet, OpInstanceFieldSet, OpStaticFieldGet, OpStaticFieldSet,
		OpUnresolvedInstanceFieldGet, OpUnresolvedInstanceFieldSet, OpUnresolvedStaticFieldGet, OpUnresolvedStaticFieldSet:
		return new(Field)
	case OpArrayGet, OpArraySet, OpArrayLength, OpBoundsCheck:
		return new(Array)
	case OpNewInstance:
		return new(NewInstance)
	case OpNewArray:
		return new(NewArray)
	case OpLoadClass:
		return new(LoadClass)
	case OpLoadString:
		return new(LoadString)
	case OpInstanceOf, OpCheckCast:
		return new(TypeCheck)
	case OpMonitorOperation:
		return new(Monitor)
	case OpInvokeStaticOrDirect, OpInvokeVirtual, OpInvokeInterface, OpInvokeUnresolved, OpInvokePolymorphic:
		return new(Invoke)
	case OpClassTableGet:
		return new(ClassTableGet)
	case OpMemoryBarrier:
		return new(Barrier)
	}
	return nil
}

func decodeAux(op Op, raw msgpack.RawMessage) (any, error) {
	if op == OpParallelMove {
		var list []listedMove
		if err := msgpack.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		moves := make(Moves, len(list))
		for i, x := range list {
			src, err := loc.Parse(x.Source)
			if err != nil {
				return nil, err
			}
			dst, err := loc.Parse(x.Dest)
			if err != nil {
				return nil, err
			}
			t, ok := datatype.Parse(x.Type)
			if !ok {
				return nil, errors.Inputf("unknown move type: %q", x.Type)
			}
			moves[i] = Move{src, dst, t, x.Incoming}
		}
		return moves, nil
	}

	p := newAux(op)
	if p == nil {
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, errors.Inputf("%s instruction has no payload", op)
	}
	if err := msgpack.Unmarshal(raw, p); err != nil {
		return nil, err
	}

	switch x := p.(type) {
	case *Constant:
		return *x, nil
	case *Compare:
		return *x, nil
	case *Switch:
		return *x, nil
	case *Deopt:
		return *x, nil
	case *Field:
		return *x, nil
	case *Array:
		return *x, nil
	case *NewInstance:
		return *x, nil
	case *NewArray:
		return *x, nil
	case *LoadClass:
		return *x, nil
	case *LoadString:
		return *x, nil
	case *TypeCheck:
		return *x, nil
	case *Monitor:
		return *x, nil
	case *Invoke:
		return *x, nil
	case *ClassTableGet:
		return *x, nil
	case *Barrier:
		return *x, nil
	}
	return p, nil
}

func encodeAux(i *Instruction) (msgpack.RawMessage, error) {
	switch x := i.Aux.(type) {
	case nil:
		return nil, nil

	case Moves:
		list := make([]listedMove, len(x))
		for n, m := range x {
			list[n] = listedMove{m.Source.String(), m.Dest.String(), m.Type.String(), m.Incoming}
		}
		return msgpack.Marshal(list)

	default:
		return msgpack.Marshal(x)
	}
}

func parseLocations(ss []string) ([]loc.Location, error) {
	var list []loc.Location
	for _, s := range ss {
		l, err := loc.Parse(s)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, nil
}

func locationStrings(list []loc.Location) (ss []string) {
	for _, l := range list {
		ss = append(ss, l.String())
	}
	return
}

func (ll *ListedLocations) allocation() (a *Allocation, err error) {
	a = new(Allocation)
	if a.In, err = parseLocations(ll.In); err != nil {
		return
	}
	if ll.Out != "" {
		if a.Out, err = loc.Parse(ll.Out); err != nil {
			return
		}
	}
	if a.Temps, err = parseLocations(ll.Temps); err != nil {
		return
	}
	if a.Live, err = parseLocations(ll.Live); err != nil {
		return
	}
	if a.RefRegs, err = parseLocations(ll.RefRegs); err != nil {
		return
	}
	a.RefSlots = ll.RefSlots
	return
}

// Graph rebuilds the instruction graph.  Allocations are attached to the
// instructions but not applied.
func (l *Listing) Graph() (*Graph, error) {
	g := New(l.Method)
	g.SpillSlots = l.SpillSlots

	byID := make(map[int]*Instruction)
	maxID := -1

	for range l.Blocks {
		g.NewBlock()
	}

	for bi, lb := range l.Blocks {
		b := g.Blocks[bi]
		b.LoopHeader = lb.LoopHeader
		b.BackEdge = lb.BackEdge
		b.Try = lb.Try

		for _, s := range lb.Successors {
			if s < 0 || s >= len(g.Blocks) {
				return nil, errors.Inputf("block %d: successor %d out of range", bi, s)
			}
			b.AddSuccessor(g.Blocks[s])
		}

		for _, li := range lb.Instructions {
			op, ok := ParseOp(li.Op)
			if !ok {
				return nil, errors.Inputf("instruction %d: unknown operation %q", li.ID, li.Op)
			}

			t := datatype.Void
			if li.Type != "" {
				if t, ok = datatype.Parse(li.Type); !ok {
					return nil, errors.Inputf("instruction %d: unknown type %q", li.ID, li.Type)
				}
			}

			if _, dup := byID[li.ID]; dup {
				return nil, errors.Inputf("instruction %d: duplicate id", li.ID)
			}

			aux, err := decodeAux(op, li.Aux)
			if err != nil {
				return nil, errors.WrapInput(err, "instruction payload")
			}

			i := &Instruction{
				ID:    li.ID,
				Op:    op,
				Type:  t,
				Block: b,
				DexPC: li.DexPC,
				Aux:   aux,

				EmittedAtUseSite: li.AtUse,
			}
			if li.Locs != nil {
				if i.Allocation, err = li.Locs.allocation(); err != nil {
					return nil, err
				}
			}

			b.Instructions = append(b.Instructions, i)
			byID[li.ID] = i
			if li.ID > maxID {
				maxID = li.ID
			}
		}
	}

	for bi, lb := range l.Blocks {
		for n, li := range lb.Instructions {
			i := g.Blocks[bi].Instructions[n]
			for _, id := range li.Inputs {
				x, found := byID[id]
				if !found {
					return nil, errors.Inputf("instruction %d: undefined input %d", li.ID, id)
				}
				i.Inputs = append(i.Inputs, x)
			}
		}
	}

	g.nextID = maxID + 1
	return g, nil
}

// NewListing serializes a graph with its allocations.
func NewListing(g *Graph) (*Listing, error) {
	l := &Listing{
		Method:     g.Method,
		SpillSlots: g.SpillSlots,
		Blocks:     make([]ListedBlock, len(g.Blocks)),
	}

	for bi, b := range g.Blocks {
		lb := &l.Blocks[bi]
		lb.LoopHeader = b.LoopHeader
		lb.BackEdge = b.BackEdge
		lb.Try = b.Try
		for _, s := range b.Successors {
			lb.Successors = append(lb.Successors, s.ID)
		}

		for _, i := range b.Instructions {
			raw, err := encodeAux(i)
			if err != nil {
				return nil, err
			}

			li := ListedInstruction{
				ID:    i.ID,
				Op:    i.Op.String(),
				DexPC: i.DexPC,
				Aux:   raw,
				AtUse: i.EmittedAtUseSite,
			}
			if i.Type != datatype.Void {
				li.Type = i.Type.String()
			}
			for _, x := range i.Inputs {
				li.Inputs = append(li.Inputs, x.ID)
			}
			if a := i.Allocation; a != nil {
				li.Locs = &ListedLocations{
					In:       locationStrings(a.In),
					Temps:    locationStrings(a.Temps),
					Live:     locationStrings(a.Live),
					RefRegs:  locationStrings(a.RefRegs),
					RefSlots: a.RefSlots,
				}
				if a.Out.IsValid() {
					li.Locs.Out = a.Out.String()
				}
			}

			lb.Instructions = append(lb.Instructions, li)
		}
	}

	return l, nil
}
