// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
)

func (c *CodeGen) emitInstruction(i *graph.Instruction) {
	switch i.Op {
	case graph.OpIntConstant, graph.OpLongConstant, graph.OpFloatConstant, graph.OpDoubleConstant, graph.OpNullConstant:
		// Materialized by moves or folded into users.

	case graph.OpParameterValue, graph.OpCurrentMethod:
		// Already in place.

	case graph.OpGoto:
		c.genGoto(i, i.Block.Successors[0])
	case graph.OpTryBoundary:
		c.genTryBoundary(i)
	case graph.OpIf:
		c.genIf(i)
	case graph.OpSelect:
		c.genSelect(i)
	case graph.OpExit:
	case graph.OpReturn, graph.OpReturnVoid:
		c.genFrameExit()
	case graph.OpPackedSwitch:
		c.genPackedSwitch(i)
	case graph.OpDeoptimize:
		c.genDeoptimize(i)
	case graph.OpShouldDeoptimizeFlag:
		c.genShouldDeoptimizeFlag(i)
	case graph.OpSuspendCheck:
		c.genSuspendCheckInsn(i)

	case graph.OpAdd:
		c.genAdd(i)
	case graph.OpSub:
		c.genSub(i)
	case graph.OpMul:
		c.genMul(i)
	case graph.OpDiv, graph.OpRem:
		c.genDivRem(i)
	case graph.OpNeg:
		c.genNeg(i)
	case graph.OpNot:
		c.genNot(i)
	case graph.OpBooleanNot:
		c.genBooleanNot(i)
	case graph.OpAnd, graph.OpOr, graph.OpXor:
		c.genBitwise(i)
	case graph.OpShl, graph.OpShr, graph.OpUShr:
		c.genShift(i)
	case graph.OpRor:
		c.genRor(i)

	case graph.OpTypeConversion:
		c.genTypeConversion(i)
	case graph.OpCompare:
		c.genCompare(i)
	case graph.OpCondition:
		c.genCondition(i)
	case graph.OpBitCount:
		c.genBitCount(i)
	case graph.OpLeadingZeros:
		c.genLeadingZeros(i)
	case graph.OpTrailingZeros:
		c.genTrailingZeros(i)

	case graph.OpDivZeroCheck:
		c.genDivZeroCheck(i)
	case graph.OpNullCheck:
		c.genNullCheck(i)
	case graph.OpBoundsCheck:
		c.genBoundsCheck(i)
	case graph.OpClinitCheck:
		c.genClinitCheck(i)

	case graph.OpInstanceFieldGet, graph.OpStaticFieldGet:
		c.genFieldGet(i)
	case graph.OpInstanceFieldSet, graph.OpStaticFieldSet:
		c.genFieldSet(i)
	case graph.OpUnresolvedInstanceFieldGet, graph.OpUnresolvedInstanceFieldSet,
		graph.OpUnresolvedStaticFieldGet, graph.OpUnresolvedStaticFieldSet:
		c.genUnresolvedField(i)

	case graph.OpArrayGet:
		c.genArrayGet(i)
	case graph.OpArraySet:
		c.genArraySet(i)
	case graph.OpArrayLength:
		c.genArrayLength(i)

	case graph.OpNewInstance:
		c.genNewInstance(i)
	case graph.OpNewArray:
		c.genNewArray(i)
	case graph.OpLoadClass:
		c.genLoadClass(i)
	case graph.OpLoadString:
		c.genLoadString(i)

	case graph.OpInstanceOf:
		c.genInstanceOf(i)
	case graph.OpCheckCast:
		c.genCheckCast(i)

	case graph.OpMonitorOperation:
		c.genMonitor(i)
	case graph.OpLoadException:
		c.genLoadException(i)
	case graph.OpClearException:
		c.genClearException()
	case graph.OpThrow:
		c.genThrow(i)

	case graph.OpInvokeStaticOrDirect:
		c.genInvokeStaticOrDirect(i)
	case graph.OpInvokeVirtual:
		c.genInvokeVirtual(i)
	case graph.OpInvokeInterface:
		c.genInvokeInterface(i)
	case graph.OpInvokeUnresolved:
		c.genInvokeUnresolved(i)
	case graph.OpInvokePolymorphic:
		c.genInvokePolymorphic(i)
	case graph.OpClassTableGet:
		c.genClassTableGet(i)

	case graph.OpMemoryBarrier:
		c.genMemoryBarrier(i.BarrierAux().Kind)
	case graph.OpConstructorFence:
		c.genMemoryBarrier(graph.BarrierStoreStore)
	case graph.OpParallelMove:
		c.parallelMove(movesOf(i)...)
	case graph.OpUnsafeCASObject:
		c.genUnsafeCASObject(i)

	default:
		pan.Fatalf("unsupported operation %s", i.Op)
	}
}
