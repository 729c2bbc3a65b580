// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/callconv"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/layout"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// Field offsets below this fault on a null object.
const implicitNullCheckLimit = 4096

type builder struct {
	opt    Options
	lay    *layout.Schema
	uses   map[*graph.Instruction]int
	params callconv.Visitor
}

// Build decorates every instruction with a location summary.  Errors are
// raised through the pan zone.
func Build(g *graph.Graph, opt Options) {
	MarkEmittedAtUseSite(g, opt)

	b := &builder{
		opt:  opt,
		lay:  opt.schema(),
		uses: countUses(g),
	}

	for _, i := range g.Instructions() {
		i.Locations = b.build(i)
	}
}

func countUses(g *graph.Graph) map[*graph.Instruction]int {
	uses := make(map[*graph.Instruction]int)
	for _, i := range g.Instructions() {
		for _, x := range i.Inputs {
			uses[x]++
		}
	}
	return uses
}

func (b *builder) hasUses(i *graph.Instruction) bool {
	return b.uses[i] > 0
}

// MarkEmittedAtUseSite flags conditions which are folded into their branch,
// null checks which are folded into the following memory access, and array
// lengths which are compared in memory by their bounds check.  Flags set by
// the front end are kept.
func MarkEmittedAtUseSite(g *graph.Graph, opt Options) {
	uses := countUses(g)

	for _, i := range g.Instructions() {
		switch i.Op {
		case graph.OpCondition:
			if uses[i] == 1 && canEmitConditionAt(i, i.Next()) {
				i.EmittedAtUseSite = true
			}

		case graph.OpNullCheck:
			if opt.ImplicitNullChecks && canDoImplicitNullCheckOn(nextDisregardingMoves(i), i) {
				i.EmittedAtUseSite = true
			}

		case graph.OpBoundsCheck:
			length := i.Inputs[1]
			if length.Op != graph.OpArrayLength || uses[length] != 1 {
				break
			}
			array := length.Inputs[0]
			if array.IsConstant() || (array.Op == graph.OpNullCheck && array.Inputs[0].IsConstant()) {
				break
			}
			if nextDisregardingMoves(length) != i {
				break
			}
			length.EmittedAtUseSite = true
		}
	}
}

func canEmitConditionAt(cond, user *graph.Instruction) bool {
	if user == nil {
		return false
	}
	switch user.Op {
	case graph.OpIf, graph.OpDeoptimize:
		return user.Inputs[0] == cond
	case graph.OpSelect:
		return user.Inputs[2] == cond
	}
	return false
}

func canDoImplicitNullCheckOn(user, check *graph.Instruction) bool {
	if user == nil || len(user.Inputs) == 0 || user.Inputs[0] != check {
		return false
	}
	switch user.Op {
	case graph.OpInstanceFieldGet, graph.OpInstanceFieldSet:
		return user.FieldAux().Offset < implicitNullCheckLimit
	case graph.OpArrayGet, graph.OpArrayLength, graph.OpInvokeVirtual, graph.OpInvokeInterface:
		return true
	}
	return false
}

func nextDisregardingMoves(i *graph.Instruction) *graph.Instruction {
	for x := i.Next(); x != nil; x = x.Next() {
		if x.Op != graph.OpParallelMove {
			return x
		}
	}
	return nil
}

func previousDisregardingMoves(i *graph.Instruction) *graph.Instruction {
	for x := i.Previous(); x != nil; x = x.Previous() {
		if x.Op != graph.OpParallelMove {
			return x
		}
	}
	return nil
}

func (b *builder) build(i *graph.Instruction) *loc.Summary {
	switch i.Op {
	case graph.OpIntConstant, graph.OpLongConstant, graph.OpFloatConstant, graph.OpDoubleConstant, graph.OpNullConstant:
		s := loc.NewSummary(0, loc.NoCall)
		s.SetOut(loc.ConstantOf(i.Const()), loc.OutputOverlap)
		return s

	case graph.OpParameterValue:
		return b.buildParameterValue(i)

	case graph.OpCurrentMethod:
		s := loc.NewSummary(0, loc.NoCall)
		s.SetOut(loc.Reg(callconv.MethodReg), loc.OutputOverlap)
		return s

	case graph.OpGoto, graph.OpTryBoundary, graph.OpExit, graph.OpReturnVoid, graph.OpMemoryBarrier, graph.OpConstructorFence:
		return nil

	case graph.OpParallelMove:
		return loc.NewSummary(0, loc.NoCall)

	case graph.OpIf:
		return b.buildIf(i)
	case graph.OpSelect:
		return b.buildSelect(i)
	case graph.OpReturn:
		return b.buildReturn(i)
	case graph.OpPackedSwitch:
		return b.buildPackedSwitch(i)
	case graph.OpDeoptimize:
		return b.buildDeoptimize(i)
	case graph.OpShouldDeoptimizeFlag:
		s := loc.NewSummary(0, loc.NoCall)
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
		return s
	case graph.OpSuspendCheck:
		return b.buildSuspendCheck(i)

	case graph.OpAdd:
		return b.buildAdd(i)
	case graph.OpSub:
		return b.buildSub(i)
	case graph.OpMul:
		return b.buildMul(i)
	case graph.OpDiv, graph.OpRem:
		return b.buildDivRem(i)
	case graph.OpNeg:
		return b.buildNeg(i)
	case graph.OpNot, graph.OpBooleanNot:
		return b.buildNot(i)
	case graph.OpAnd, graph.OpOr, graph.OpXor:
		return b.buildBitwise(i)
	case graph.OpShl, graph.OpShr, graph.OpUShr, graph.OpRor:
		return b.buildShift(i)

	case graph.OpTypeConversion:
		return b.buildTypeConversion(i)
	case graph.OpCompare:
		return b.buildCompare(i)
	case graph.OpCondition:
		return b.buildCondition(i)
	case graph.OpBitCount, graph.OpLeadingZeros, graph.OpTrailingZeros:
		return b.buildBitScan(i)

	case graph.OpDivZeroCheck:
		return b.buildDivZeroCheck(i)
	case graph.OpNullCheck:
		return b.buildNullCheck(i)
	case graph.OpBoundsCheck:
		return b.buildBoundsCheck(i)
	case graph.OpClinitCheck:
		return b.buildClinitCheck(i)

	case graph.OpInstanceFieldGet, graph.OpStaticFieldGet:
		return b.buildFieldGet(i)
	case graph.OpInstanceFieldSet, graph.OpStaticFieldSet:
		return b.buildFieldSet(i)
	case graph.OpUnresolvedInstanceFieldGet, graph.OpUnresolvedInstanceFieldSet,
		graph.OpUnresolvedStaticFieldGet, graph.OpUnresolvedStaticFieldSet:
		return b.buildUnresolvedField(i)

	case graph.OpArrayGet:
		return b.buildArrayGet(i)
	case graph.OpArraySet:
		return b.buildArraySet(i)
	case graph.OpArrayLength:
		return b.buildArrayLength(i)

	case graph.OpNewInstance:
		return b.buildNewInstance(i)
	case graph.OpNewArray:
		return b.buildNewArray(i)
	case graph.OpLoadClass:
		return b.buildLoadClass(i)
	case graph.OpLoadString:
		return b.buildLoadString(i)

	case graph.OpInstanceOf:
		return b.buildInstanceOf(i)
	case graph.OpCheckCast:
		return b.buildCheckCast(i)

	case graph.OpMonitorOperation:
		return b.buildMonitor(i)
	case graph.OpLoadException:
		s := loc.NewSummary(0, loc.NoCall)
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
		return s
	case graph.OpClearException:
		return loc.NewSummary(0, loc.NoCall)
	case graph.OpThrow:
		return b.buildThrow(i)

	case graph.OpInvokeStaticOrDirect, graph.OpInvokeVirtual, graph.OpInvokeInterface,
		graph.OpInvokeUnresolved, graph.OpInvokePolymorphic:
		return b.buildInvoke(i)
	case graph.OpClassTableGet:
		s := loc.NewSummary(1, loc.NoCall)
		s.SetInAt(0, loc.RequiresReg())
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
		return s

	case graph.OpUnsafeCASObject:
		return b.buildUnsafeCASObject(i)
	}

	pan.Fatalf("unsupported operation %s", i.Op)
	return nil
}

// Location helpers

func anyOf(x *graph.Instruction) loc.Location {
	if x.IsConstant() {
		return loc.ConstantOf(x.Const())
	}
	return loc.AnyLocation()
}

func regOrConst(x *graph.Instruction) loc.Location {
	if x.IsConstant() {
		return loc.ConstantOf(x.Const())
	}
	return loc.RequiresReg()
}

// regOrInt32Const accepts constants which fit in a sign-extended
// immediate.
func regOrInt32Const(x *graph.Instruction) loc.Location {
	if x.IsConstant() {
		if k := x.Const(); k.Type != datatype.Int64 || k.FitsInt32() {
			return loc.ConstantOf(k)
		}
	}
	return loc.RequiresReg()
}

func fpuOrConst(x *graph.Instruction) loc.Location {
	if x.IsConstant() {
		return loc.ConstantOf(x.Const())
	}
	return loc.RequiresFpuReg()
}

func regOrConstAt(r loc.Location, x *graph.Instruction) loc.Location {
	if x.IsConstant() {
		return loc.ConstantOf(x.Const())
	}
	return r
}

// isBooleanValue is a condition input which is not produced by a folded
// Condition.
func isBooleanValue(x *graph.Instruction) bool {
	return x.Op != graph.OpCondition
}

func isMaterialized(x *graph.Instruction) bool {
	return x.Op == graph.OpCondition && !x.EmittedAtUseSite
}

// throwingSummary of a check which only calls the runtime to throw.  A
// throw into a catch block of the method needs live values saved.
func (b *builder) throwingSummary(i *graph.Instruction, numInputs int) *loc.Summary {
	kind := loc.NoCall
	if i.CanThrowIntoCatchBlock() {
		kind = loc.CallOnSlowPath
	}
	s := loc.NewSummary(numInputs, kind)
	if i.CanThrowIntoCatchBlock() && b.opt.ImplicitNullChecks {
		s.SetCustomSlowPathCallerSaves(reg.Set(0))
	}
	return s
}
