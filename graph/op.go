// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

// Op is the operation of an instruction.  The comment of each operation
// lists its inputs in order.
type Op uint8

const (
	OpInvalid Op = iota

	OpIntConstant    // Aux: Constant
	OpLongConstant   // Aux: Constant
	OpFloatConstant  // Aux: Constant
	OpDoubleConstant // Aux: Constant
	OpNullConstant

	OpParameterValue
	OpCurrentMethod

	OpGoto
	OpTryBoundary
	OpIf     // condition; successors: true, false
	OpSelect // false value, true value, condition
	OpExit
	OpReturn // value
	OpReturnVoid
	OpPackedSwitch // value; Aux: Switch; successors: cases..., default
	OpDeoptimize   // condition; Aux: Deopt
	OpShouldDeoptimizeFlag

	OpAdd // a, b
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg // a
	OpNot
	OpBooleanNot
	OpAnd // a, b
	OpOr
	OpXor
	OpShl // value, distance
	OpShr
	OpUShr
	OpRor

	OpTypeConversion // value
	OpCompare        // a, b; Aux: Compare
	OpCondition      // a, b; Aux: Compare

	OpBitCount      // value
	OpLeadingZeros  // value
	OpTrailingZeros // value

	OpDivZeroCheck // value
	OpNullCheck    // object
	OpBoundsCheck  // index, length; Aux: Array
	OpSuspendCheck
	OpClinitCheck // class

	OpInstanceFieldGet // object; Aux: Field
	OpInstanceFieldSet // object, value; Aux: Field
	OpStaticFieldGet   // class; Aux: Field
	OpStaticFieldSet   // class, value; Aux: Field

	OpUnresolvedInstanceFieldGet // object; Aux: Field
	OpUnresolvedInstanceFieldSet // object, value; Aux: Field
	OpUnresolvedStaticFieldGet   // Aux: Field
	OpUnresolvedStaticFieldSet   // value; Aux: Field

	OpArrayGet    // array, index; Aux: Array
	OpArraySet    // array, index, value; Aux: Array; Type: component
	OpArrayLength // array; Aux: Array

	OpNewInstance // class; Aux: NewInstance
	OpNewArray    // class, length; Aux: NewArray

	OpLoadClass  // current method; Aux: LoadClass
	OpLoadString // Aux: LoadString

	OpInstanceOf // object, class; Aux: TypeCheck
	OpCheckCast  // object, class; Aux: TypeCheck

	OpMonitorOperation // object; Aux: Monitor
	OpLoadException
	OpClearException
	OpThrow // exception

	OpInvokeStaticOrDirect // arguments..., [current method]; Aux: Invoke
	OpInvokeVirtual        // receiver, arguments...; Aux: Invoke
	OpInvokeInterface      // receiver, arguments...; Aux: Invoke
	OpInvokeUnresolved     // arguments...; Aux: Invoke
	OpInvokePolymorphic    // receiver, arguments...; Aux: Invoke

	OpClassTableGet    // class; Aux: ClassTableGet
	OpMemoryBarrier    // Aux: Barrier
	OpConstructorFence // objects...
	OpParallelMove     // Aux: Moves
	OpUnsafeCASObject  // object, offset, expected, value

	numOps
)

var opNames = [numOps]string{
	OpInvalid:                    "Invalid",
	OpIntConstant:                "IntConstant",
	OpLongConstant:               "LongConstant",
	OpFloatConstant:              "FloatConstant",
	OpDoubleConstant:             "DoubleConstant",
	OpNullConstant:               "NullConstant",
	OpParameterValue:             "ParameterValue",
	OpCurrentMethod:              "CurrentMethod",
	OpGoto:                       "Goto",
	OpTryBoundary:                "TryBoundary",
	OpIf:                         "If",
	OpSelect:                     "Select",
	OpExit:                       "Exit",
	OpReturn:                     "Return",
	OpReturnVoid:                 "ReturnVoid",
	OpPackedSwitch:               "PackedSwitch",
	OpDeoptimize:                 "Deoptimize",
	OpShouldDeoptimizeFlag:       "ShouldDeoptimizeFlag",
	OpAdd:                        "Add",
	OpSub:                        "Sub",
	OpMul:                        "Mul",
	OpDiv:                        "Div",
	OpRem:                        "Rem",
	OpNeg:                        "Neg",
	OpNot:                        "Not",
	OpBooleanNot:                 "BooleanNot",
	OpAnd:                        "And",
	OpOr:                         "Or",
	OpXor:                        "Xor",
	OpShl:                        "Shl",
	OpShr:                        "Shr",
	OpUShr:                       "UShr",
	OpRor:                        "Ror",
	OpTypeConversion:             "TypeConversion",
	OpCompare:                    "Compare",
	OpCondition:                  "Condition",
	OpBitCount:                   "BitCount",
	OpLeadingZeros:               "NumberOfLeadingZeros",
	OpTrailingZeros:              "NumberOfTrailingZeros",
	OpDivZeroCheck:               "DivZeroCheck",
	OpNullCheck:                  "NullCheck",
	OpBoundsCheck:                "BoundsCheck",
	OpSuspendCheck:               "SuspendCheck",
	OpClinitCheck:                "ClinitCheck",
	OpInstanceFieldGet:           "InstanceFieldGet",
	OpInstanceFieldSet:           "InstanceFieldSet",
	OpStaticFieldGet:             "StaticFieldGet",
	OpStaticFieldSet:             "StaticFieldSet",
	OpUnresolvedInstanceFieldGet: "UnresolvedInstanceFieldGet",
	OpUnresolvedInstanceFieldSet: "UnresolvedInstanceFieldSet",
	OpUnresolvedStaticFieldGet:   "UnresolvedStaticFieldGet",
	OpUnresolvedStaticFieldSet:   "UnresolvedStaticFieldSet",
	OpArrayGet:                   "ArrayGet",
	OpArraySet:                   "ArraySet",
	OpArrayLength:                "ArrayLength",
	OpNewInstance:                "NewInstance",
	OpNewArray:                   "NewArray",
	OpLoadClass:                  "LoadClass",
	OpLoadString:                 "LoadString",
	OpInstanceOf:                 "InstanceOf",
	OpCheckCast:                  "CheckCast",
	OpMonitorOperation:           "MonitorOperation",
	OpLoadException:              "LoadException",
	OpClearException:             "ClearException",
	OpThrow:                      "Throw",
	OpInvokeStaticOrDirect:       "InvokeStaticOrDirect",
	OpInvokeVirtual:              "InvokeVirtual",
	OpInvokeInterface:            "InvokeInterface",
	OpInvokeUnresolved:           "InvokeUnresolved",
	OpInvokePolymorphic:          "InvokePolymorphic",
	OpClassTableGet:              "ClassTableGet",
	OpMemoryBarrier:              "MemoryBarrier",
	OpConstructorFence:           "ConstructorFence",
	OpParallelMove:               "ParallelMove",
	OpUnsafeCASObject:            "UnsafeCASObject",
}

func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return "Invalid"
}

// ParseOp name.
func ParseOp(s string) (Op, bool) {
	for op := OpInvalid + 1; op < numOps; op++ {
		if opNames[op] == s {
			return op, true
		}
	}
	return OpInvalid, false
}

// IsConstant operation.
func (op Op) IsConstant() bool {
	return op >= OpIntConstant && op <= OpNullConstant
}

// IsInvoke operation.
func (op Op) IsInvoke() bool {
	return op >= OpInvokeStaticOrDirect && op <= OpInvokePolymorphic
}

// IsControlFlow operation ends a block.
func (op Op) IsControlFlow() bool {
	switch op {
	case OpGoto, OpTryBoundary, OpIf, OpExit, OpReturn, OpReturnVoid, OpPackedSwitch, OpThrow:
		return true
	}
	return false
}

// IsBinary arithmetic or logic operation.
func (op Op) IsBinary() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpAnd, OpOr, OpXor, OpShl, OpShr, OpUShr, OpRor:
		return true
	}
	return false
}
