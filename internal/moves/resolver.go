// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package moves serializes parallel moves.  Cycles are broken by swapping
// locations in place.
package moves

import (
	"fmt"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/debug"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// Move of a value.  All moves of a parallel move happen simultaneously.
type Move struct {
	Source loc.Location
	Dest   loc.Location
	Type   datatype.Type
}

func (m Move) String() string {
	return fmt.Sprintf("%s -> %s (%s)", m.Source, m.Dest, m.Type)
}

type operands struct {
	Move
	pending bool
}

func (op *operands) eliminated() bool { return op.Source.IsInvalid() }

func (op *operands) eliminate() {
	op.Source = loc.NoLocation()
	op.Dest = loc.NoLocation()
}

func (op *operands) redundant() bool {
	return op.eliminated() || op.Dest.IsInvalid() || op.Source.Equals(op.Dest)
}

// blocks if the move reads the location.
func (op *operands) blocks(l loc.Location) bool {
	return !op.eliminated() && op.Source.OverlapsWith(l)
}

func (op *operands) is64Bit() bool { return op.Type.Is64Bit() }

// Emitter implements the machine-specific moves.  The resolver is passed so
// that the implementation can allocate scratch registers.
type Emitter interface {
	EmitMove(r *Resolver, m Move)
	EmitSwap(r *Resolver, m Move)
}

// Resolver can be reused; it keeps no state between Resolve calls.
type Resolver struct {
	moves []*operands
}

// Resolve emits the moves.  Destinations must be distinct.
func (r *Resolver) Resolve(moves []Move, e Emitter) {
	r.moves = r.moves[:0]
	for _, m := range moves {
		op := &operands{Move: m}
		if !op.redundant() {
			r.moves = append(r.moves, op)
		}
	}
	defer func() { r.moves = r.moves[:0] }()

	if debug.Enabled {
		debug.Printf("parallel move: %v", moves)
	}

	// Stack-to-stack moves need scratch registers, which are more likely
	// to be available before the other moves.
	for i, op := range r.moves {
		if op.eliminated() || op.Source.IsConstant() {
			continue
		}
		if isStack32or64(op.Source) && isStack32or64(op.Dest) {
			r.perform(i, e)
		}
	}

	for i, op := range r.moves {
		if !op.eliminated() && !op.Source.IsConstant() {
			r.perform(i, e)
		}
	}

	for _, op := range r.moves {
		if !op.eliminated() {
			e.EmitMove(r, op.Move)
			op.eliminate()
		}
	}
}

func isStack32or64(l loc.Location) bool {
	return l.IsStackSlot() || l.IsDoubleStackSlot()
}

// perform the move at index, and the moves blocking it.  If a cycle is found
// but the swap must be done by another move in the chain, that move is
// returned.
func (r *Resolver) perform(index int, e Emitter) *operands {
	move := r.moves[index]

	if move.redundant() {
		move.eliminate()
		return nil
	}

	// Clearing the destination while pending prevents the move from
	// blocking itself.
	dest := move.Dest
	move.Dest = loc.NoLocation()
	move.pending = true

	var requiredSwap *operands

	for i := 0; i < len(r.moves); i++ {
		other := r.moves[i]
		if other.blocks(dest) && !other.pending {
			requiredSwap = r.perform(i, e)

			if requiredSwap == move {
				break
			} else if requiredSwap == r.moves[i] {
				// The other move was swapped and eliminated; moves
				// before it may be unblocked now.
				requiredSwap = nil
				i = -1
			} else if requiredSwap != nil {
				move.Dest = dest
				move.pending = false
				return requiredSwap
			}
		}
	}

	move.Dest = dest
	move.pending = false

	// A swap may have moved the source to the destination.
	if move.Source.Equals(dest) {
		move.eliminate()
		return nil
	}

	doSwap := false
	if requiredSwap != nil {
		doSwap = true
	} else {
		for _, other := range r.moves {
			if other.blocks(dest) {
				// A pending 64-bit move covers the whole value; swapping
				// only 32 bits would lose half of it.
				if !move.is64Bit() && other.is64Bit() {
					return other
				}
				doSwap = true
				break
			}
		}
	}

	if !doSwap {
		e.EmitMove(r, move.Move)
		move.eliminate()
		return nil
	}

	e.EmitSwap(r, move.Move)

	source := move.Source
	swapDest := move.Dest
	move.eliminate()

	for _, other := range r.moves {
		if other.blocks(source) {
			updateSource(other, source, swapDest)
		} else if other.blocks(swapDest) {
			updateSource(other, swapDest, source)
		}
	}

	return requiredSwap
}

// updateSource after the value at updated has been moved to newSource.
// Reads of the low half of a double stack slot follow it.
func updateSource(op *operands, updated, newSource loc.Location) {
	if updated.IsDoubleStackSlot() && op.Source.IsStackSlot() && op.Source.StackIndex() == updated.StackIndex() && newSource.IsDoubleStackSlot() {
		op.Source = loc.Stack(newSource.StackIndex())
		return
	}
	if updated.IsDoubleStackSlot() && op.Source.IsStackSlot() && op.Source.StackIndex() == updated.HighStackIndex() && newSource.IsDoubleStackSlot() {
		op.Source = loc.Stack(newSource.HighStackIndex())
		return
	}
	op.Source = newSource
}

// IsScratchLocation is true if the location is not read by any remaining
// move, but is written by one.
func (r *Resolver) IsScratchLocation(l loc.Location) bool {
	for _, op := range r.moves {
		if op.blocks(l) {
			return false
		}
	}
	for _, op := range r.moves {
		if op.Dest.Equals(l) {
			return true
		}
	}
	return false
}

// AllocateScratch finds a core register which is free to be clobbered.  If
// none is found, ifScratch is returned and must be spilled by the caller.
func (r *Resolver) AllocateScratch(blocked, ifScratch reg.R) (scratch reg.R, spilled bool) {
	if blocked == ifScratch {
		pan.Fatalf("scratch fallback register %s is blocked", reg.CoreName(ifScratch))
	}

	for x := reg.R(0); x < reg.NumCore; x++ {
		if x != blocked && r.IsScratchLocation(loc.Reg(x)) {
			return x, false
		}
	}

	return ifScratch, true
}
