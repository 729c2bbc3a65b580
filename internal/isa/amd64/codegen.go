// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amd64 lowers an allocated instruction graph to x86-64 machine code.
//
// Code generation has two phases.  Build decorates every instruction with a
// location summary which an external register allocator resolves.  A
// CodeGen then emits the frame, the blocks in order and the out-of-line
// slow paths, and appends the constant area.
package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/debug"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/rodata"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/moves"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

// ReadBarrierKind of reference loads.
type ReadBarrierKind uint8

const (
	NoReadBarrier ReadBarrierKind = iota

	// BakerReadBarrier tests the gray bit of the holder object inline and
	// calls the per-register mark entrypoint.
	BakerReadBarrier

	// SlowReadBarrier calls the generic runtime routine after every
	// reference load.
	SlowReadBarrier
)

var readBarrierNames = [...]string{
	NoReadBarrier:    "none",
	BakerReadBarrier: "baker",
	SlowReadBarrier:  "slow",
}

func (k ReadBarrierKind) String() string {
	if int(k) < len(readBarrierNames) {
		return readBarrierNames[k]
	}
	return "<invalid read barrier>"
}

// ParseReadBarrierKind name.
func ParseReadBarrierKind(s string) (ReadBarrierKind, bool) {
	for i, name := range readBarrierNames {
		if name == s {
			return ReadBarrierKind(i), true
		}
	}
	return 0, false
}

// Options are fixed for a compilation unit.
type Options struct {
	ReadBarrier        ReadBarrierKind
	HeapPoisoning      bool
	ImplicitNullChecks bool
	CountHotness       bool
	StringCompression  bool
	JIT                bool
	ForceMFence        bool
	Features           Features

	// Layout defaults to layout.Default.
	Layout *layout.Schema
}

func (o *Options) schema() *layout.Schema {
	if o.Layout != nil {
		return o.Layout
	}
	return &layout.Default
}

func (o *Options) emitReadBarrier() bool  { return o.ReadBarrier != NoReadBarrier }
func (o *Options) bakerReadBarrier() bool { return o.ReadBarrier == BakerReadBarrier }

// CodeGen emits one method.  It is not safe for concurrent use; methods are
// compiled concurrently with separate instances.
type CodeGen struct {
	Text code.Buf

	opt Options
	lay *layout.Schema
	g   *graph.Graph

	pool        rodata.Pool
	blockIndex  map[*graph.Block]int
	blockLabels []link.L
	frameEntry  link.L
	current     int // index of the block being emitted

	frame frame

	slowPaths    []slowPath
	suspendPaths map[*graph.Instruction]*suspendCheckPath
	resolver     moves.Resolver

	stackMaps []object.StackMap
	patches   []object.Patch
	jitRoots  []object.JitRoot
	slowStats object.SlowPathStats
}

// New code generator for a graph whose locations have been built and
// allocated.
func New(g *graph.Graph, opt Options, text code.Buffer) *CodeGen {
	c := &CodeGen{
		Text:         code.Buf{Buffer: text},
		opt:          opt,
		lay:          opt.schema(),
		g:            g,
		blockIndex:   make(map[*graph.Block]int, len(g.Blocks)),
		blockLabels:  make([]link.L, len(g.Blocks)),
		suspendPaths: make(map[*graph.Instruction]*suspendCheckPath),
	}
	for i, b := range g.Blocks {
		c.blockIndex[b] = i
	}
	return c
}

// Generate the method.  Errors are raised through the pan zone.
func (c *CodeGen) Generate() {
	if len(c.g.Blocks) == 0 {
		pan.Fatalf("graph of %s has no blocks", c.g.Method.Name)
	}

	c.computeFrame()
	c.rebaseIncomingArguments()
	c.genFrameEntry()

	for n, b := range c.g.Blocks {
		c.current = n
		if b.IsSingleJump() {
			continue
		}

		c.blockLabels[n].Bind(&c.Text)

		if debug.Enabled {
			debug.Printf("block %d at %#x", b.ID, c.Text.Addr)
			debug.Depth++
		}

		for _, i := range b.Instructions {
			if debug.Enabled {
				debug.Printf("%s %d at %#x", i.Op, i.ID, c.Text.Addr)
			}
			c.emitInstruction(i)
		}

		if debug.Enabled {
			debug.Depth--
		}
	}

	c.genSlowPaths()
	c.finalize()
}

// finalize appends the constant area.  Jump table entries are relative to
// the table start, so all block labels must be bound.
func (c *CodeGen) finalize() {
	c.pool.Finalize(&c.Text)
	object.SortStackMaps(c.stackMaps)
}

// Result of Generate.
func (c *CodeGen) Result() *object.CompiledMethod {
	return &object.CompiledMethod{
		Name:          c.g.Method.Name,
		Code:          c.Text.Bytes(),
		FrameSize:     uint32(c.frame.size),
		CoreSpillMask: c.frame.coreSpillMask,
		FpSpillMask:   c.frame.fpSpillMask,
		Patches:       c.patches,
		JitRoots:      c.jitRoots,
		StackMaps:     c.stackMaps,
		SlowPaths:     c.slowStats,
	}
}

// FrameSize is valid after Generate.
func (c *CodeGen) FrameSize() int32 { return c.frame.size }

// Block order

func firstNonEmptyBlock(b *graph.Block) *graph.Block {
	for b.IsSingleJump() {
		b = b.Successors[0]
	}
	return b
}

func (c *CodeGen) labelOf(b *graph.Block) *link.L {
	return &c.blockLabels[c.blockIndex[firstNonEmptyBlock(b)]]
}

func (c *CodeGen) nextBlockToEmit() *graph.Block {
	for _, b := range c.g.Blocks[c.current+1:] {
		if !b.IsSingleJump() {
			return b
		}
	}
	return nil
}

// goesToNextBlock if the successor is emitted right after the current block.
func (c *CodeGen) goesToNextBlock(successor *graph.Block) bool {
	return c.nextBlockToEmit() == firstNonEmptyBlock(successor)
}

func isExitBlock(b *graph.Block) bool {
	return len(b.Instructions) > 0 && b.Instructions[0].Op == graph.OpExit
}

// Branches

// jmp to a label, using rel8 if it is bound and in range.
func (c *CodeGen) jmp(l *link.L) {
	if l.Bound {
		in.JMP.Addr(&c.Text, l.Addr)
	} else {
		in.JMPcd.Stub32(&c.Text)
		l.AddSite(c.Text.Addr, false)
	}
}

// jmpNear to a label which is bound within rel8 range.
func (c *CodeGen) jmpNear(l *link.L) {
	if l.Bound {
		in.JMP.Addr(&c.Text, l.Addr)
	} else {
		in.JMPcb.Stub8(&c.Text)
		l.AddSite(c.Text.Addr, true)
	}
}

func (c *CodeGen) jcc(cc in.CC, l *link.L) {
	if l.Bound {
		cc.JccOpcodeC().Addr(&c.Text, l.Addr)
	} else {
		cc.JccOpcodeC().Stub(&c.Text, false)
		l.AddSite(c.Text.Addr, false)
	}
}

func (c *CodeGen) jccNear(cc in.CC, l *link.L) {
	if l.Bound {
		cc.JccOpcodeC().Addr(&c.Text, l.Addr)
	} else {
		cc.JccOpcodeC().Stub(&c.Text, true)
		l.AddSite(c.Text.Addr, true)
	}
}

func (c *CodeGen) bind(l *link.L) {
	l.Bind(&c.Text)
}

// Patch bookkeeping.  The patched field is the 4 bytes preceding the
// current text address.

func (c *CodeGen) recordPatch(kind object.PatchKind, dexFile, index uint32) {
	c.patches = append(c.patches, object.Patch{
		Kind:        kind,
		CodeOffset:  uint32(c.Text.Addr - 4),
		DexFile:     dexFile,
		TargetIndex: index,
	})
}

func (c *CodeGen) recordJitRoot(index uint32, class bool) {
	c.jitRoots = append(c.jitRoots, object.JitRoot{
		CodeOffset: uint32(c.Text.Addr - 4),
		RootIndex:  index,
		Class:      class,
	})
}

// literal fixup for the RIP-relative instruction which was just emitted.
func (c *CodeGen) literal(ref rodata.Ref) {
	c.pool.Fixup(ref, c.Text.Addr)
}
