// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package compile implements the x86-64 backend of a managed runtime's method
compiler.

# Phases

A method arrives as an instruction graph.  Compilation has three phases:

 1. BuildLocations decorates every instruction with a location summary:
    input, output and temporary requirements, and a call kind.
 2. An external register allocator resolves the requirements.  Its
    decisions are attached to the instructions as graph.Allocation
    values, and applied and verified by Emit.
 3. Emit generates the frame, the blocks, the out-of-line slow paths and
    the constant area.

Compile runs all phases for a graph decoded from a listing, which carries the
allocation.

# Frame

Stack regions from high to low address:

 1. Return address and core callee-save pushes.
 2. Floating-point callee-save area.
 3. Should-deoptimize flag (4 bytes, when present).
 4. Slow path register save area.
 5. Register allocator spill slots.
 6. Outgoing arguments.
 7. Current method (8 bytes at the stack pointer).

The frame size is a multiple of 16 bytes.  A leaf method which spills
nothing has an 8-byte frame.

# Output

Code offsets of linker patches, JIT roots and stack maps are relative to the
start of the method's code.  Boot image and bss references are placeholders
until the linker patches them.
*/
package compile

import (
	"github.com/Gyoonus/deoptfuscator-sub021/buffer"
	"github.com/Gyoonus/deoptfuscator-sub021/compile/event"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

const defaultTextBufferSize = 4096

type CodeBuffer = code.Buffer

// Options are fixed for a compilation unit.
type Options = amd64.Options

// Features of the target processor.
type Features = amd64.Features

type ReadBarrierKind = amd64.ReadBarrierKind

const (
	NoReadBarrier    = amd64.NoReadBarrier
	BakerReadBarrier = amd64.BakerReadBarrier
	SlowReadBarrier  = amd64.SlowReadBarrier
)

// ParseReadBarrierKind name: "none", "baker" or "slow".
func ParseReadBarrierKind(s string) (ReadBarrierKind, bool) {
	return amd64.ParseReadBarrierKind(s)
}

// DetectFeatures of the host processor.  Builds with the nocpudetect tag
// return the baseline.
func DetectFeatures() Features {
	return amd64.Detect()
}

// Config for a single compiler invocation.
type Config struct {
	Options

	// Text buffer receives the machine code.  A dynamic buffer is allocated
	// by default.
	Text CodeBuffer

	EventHandler func(event.Event)
}

func (config *Config) event(e event.Event) {
	if config.EventHandler != nil {
		config.EventHandler(e)
	}
}

func (config *Config) text() CodeBuffer {
	if config.Text == nil {
		config.Text = buffer.NewDynamic(make([]byte, 0, defaultTextBufferSize))
	}
	return config.Text
}

// BuildLocations creates the location summary of every instruction.
// Instructions which are folded into their users are flagged as emitted at
// use site.
func BuildLocations(config *Config, g *graph.Graph) (err error) {
	if internal.DontPanic() {
		defer func() { err = pan.Error(recover()) }()
	}

	if config == nil {
		config = new(Config)
	}

	amd64.Build(g, config.Options)
	config.event(event.Built)
	return
}

// Emit machine code for a graph whose locations have been built.  The
// allocation attached to each instruction is applied first.
func Emit(config *Config, g *graph.Graph) (m *object.CompiledMethod, err error) {
	if internal.DontPanic() {
		defer func() { err = pan.Error(recover()) }()
	}

	if config == nil {
		config = new(Config)
	}

	m = emit(config, g)
	return
}

func emit(config *Config, g *graph.Graph) *object.CompiledMethod {
	amd64.Allocate(g)
	config.event(event.Allocated)

	c := amd64.New(g, config.Options, config.text())
	c.Generate()
	config.event(event.Emitted)

	return c.Result()
}

// Compile a listed method: rebuild the graph, build its locations, apply
// the listed allocation and emit.
func Compile(config *Config, l *graph.Listing) (m *object.CompiledMethod, err error) {
	if internal.DontPanic() {
		defer func() { err = pan.Error(recover()) }()
	}

	if config == nil {
		config = new(Config)
	}

	g := pan.Must(l.Graph())

	amd64.Build(g, config.Options)
	config.event(event.Built)

	m = emit(config, g)
	return
}
