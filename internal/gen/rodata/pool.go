// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rodata implements the constant area which is appended to the
// machine code of a method.  Instructions address it RIP-relatively.
package rodata

import (
	"encoding/binary"
	"math"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/debug"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/pkg/errors"
)

const (
	alignment = 4
	alignFill = 0x90 // nop
)

// Ref to a literal or a jump table.
type Ref struct {
	table  bool
	index  int
	offset int32 // within the constant area; literals only
}

type literalKey struct {
	bits uint64
	size uint8
}

// Table of signed 32-bit offsets from the start of the table to the target
// labels.
type Table struct {
	Targets []*link.L
	offset  int32
}

type fixup struct {
	ref Ref
	end int32
}

// Pool accumulates literals, jump tables and the instructions referring to
// them.  The zero value is ready for use.
type Pool struct {
	data     []byte
	literals map[literalKey]int32
	tables   []*Table
	fixups   []fixup

	start     int32
	finalized bool
}

func (p *Pool) add(bits uint64, size uint8) Ref {
	key := literalKey{bits, size}

	if offset, found := p.literals[key]; found {
		return Ref{offset: offset}
	}

	offset := int32(len(p.data))
	switch size {
	case 4:
		p.data = binary.LittleEndian.AppendUint32(p.data, uint32(bits))
	case 8:
		p.data = binary.LittleEndian.AppendUint64(p.data, bits)
	}

	if p.literals == nil {
		p.literals = make(map[literalKey]int32)
	}
	p.literals[key] = offset

	return Ref{offset: offset}
}

// Int32 literal.  Identical bit patterns share storage.
func (p *Pool) Int32(x int32) Ref { return p.add(uint64(uint32(x)), 4) }

func (p *Pool) Int64(x int64) Ref { return p.add(uint64(x), 8) }

func (p *Pool) Float32(x float32) Ref { return p.add(uint64(math.Float32bits(x)), 4) }

func (p *Pool) Float64(x float64) Ref { return p.add(math.Float64bits(x), 8) }

// Table is placed after the literals when the pool is finalized.
func (p *Pool) Table(targets []*link.L) Ref {
	p.tables = append(p.tables, &Table{Targets: targets})
	return Ref{table: true, index: len(p.tables) - 1}
}

// Fixup registers a RIP-relative displacement which ends at the given
// address.  The instruction must end with the displacement.
func (p *Pool) Fixup(ref Ref, end int32) {
	p.fixups = append(p.fixups, fixup{ref, end})
}

// Empty reports whether there is anything to append.
func (p *Pool) Empty() bool {
	return len(p.data) == 0 && len(p.tables) == 0
}

// Start of the constant area in the text.  Valid after Finalize.
func (p *Pool) Start() int32 {
	return p.start
}

// Size of the constant area.
func (p *Pool) Size() int32 {
	return int32(len(p.data))
}

// Addr of a literal or table in the text.  Valid after Finalize.
func (p *Pool) Addr(ref Ref) int32 {
	if !p.finalized {
		pan.Panic(errors.New("constant area address requested before finalization"))
	}
	if ref.table {
		return p.start + p.tables[ref.index].offset
	}
	return p.start + ref.offset
}

// Finalize aligns the text, appends the jump tables and literals, and
// resolves the fixups.  Target labels of the jump tables must be bound.
func (p *Pool) Finalize(text *code.Buf) {
	if p.finalized {
		pan.Panic(errors.New("constant area finalized twice"))
	}
	p.finalized = true

	if p.Empty() {
		p.start = text.Addr
		return
	}

	text.Align(alignment, alignFill)
	p.start = text.Addr

	for _, t := range p.tables {
		t.offset = int32(len(p.data))
		tableAddr := p.start + t.offset
		for _, l := range t.Targets {
			p.data = binary.LittleEndian.AppendUint32(p.data, uint32(l.FinalAddr()-tableAddr))
		}
	}

	copy(text.Extend(len(p.data)), p.data)

	for _, f := range p.fixups {
		text.PutInt32At(f.end, p.Addr(f.ref)-f.end)
	}

	if debug.Enabled {
		debug.Printf("constant area at %#x: %d bytes, %d tables, %d fixups", p.start, len(p.data), len(p.tables), len(p.fixups))
	}
}
