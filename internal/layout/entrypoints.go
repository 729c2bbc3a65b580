// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

// Entrypoint of the runtime, called through the thread-local entrypoint
// table.
type Entrypoint uint16

const (
	AllocObjectResolved = Entrypoint(iota)
	AllocObjectInitialized
	AllocObjectWithChecks
	AllocArrayResolved
	AllocArrayResolved8
	AllocArrayResolved16
	AllocArrayResolved32
	AllocArrayResolved64
	AllocStringFromBytes
	InstanceofNonTrivial
	CheckInstanceOf
	InitializeStaticStorage
	InitializeType
	InitializeTypeAndVerifyAccess
	ResolveString
	Set8Instance
	Set8Static
	Set16Instance
	Set16Static
	Set32Instance
	Set32Static
	Set64Instance
	Set64Static
	SetObjInstance
	SetObjStatic
	GetByteInstance
	GetBooleanInstance
	GetShortInstance
	GetCharInstance
	Get32Instance
	Get64Instance
	GetObjInstance
	GetByteStatic
	GetBooleanStatic
	GetShortStatic
	GetCharStatic
	Get32Static
	Get64Static
	GetObjStatic
	AputObject
	LockObject
	UnlockObject
	TestSuspend
	DeliverException
	ThrowArrayBounds
	ThrowDivZero
	ThrowNullPointer
	ThrowStackOverflow
	ThrowStringBounds
	Deoptimize
	InvokeDirectTrampolineWithAccessCheck
	InvokeInterfaceTrampolineWithAccessCheck
	InvokeStaticTrampolineWithAccessCheck
	InvokeSuperTrampolineWithAccessCheck
	InvokeVirtualTrampolineWithAccessCheck
	InvokePolymorphic
	NewEmptyString
	NewStringFromBytes_B
	NewStringFromBytes_BI
	NewStringFromBytes_BII
	NewStringFromBytes_BIII
	NewStringFromBytes_BIIString
	NewStringFromBytes_BString
	NewStringFromBytes_BIICharset
	NewStringFromBytes_BCharset
	NewStringFromChars_C
	NewStringFromChars_CII
	NewStringFromChars_IIC
	NewStringFromCodePoints
	NewStringFromString
	NewStringFromStringBuffer
	NewStringFromStringBuilder
	ReadBarrierMarkReg00
	ReadBarrierMarkReg01
	ReadBarrierMarkReg02
	ReadBarrierMarkReg03
	ReadBarrierMarkReg04
	ReadBarrierMarkReg05
	ReadBarrierMarkReg06
	ReadBarrierMarkReg07
	ReadBarrierMarkReg08
	ReadBarrierMarkReg09
	ReadBarrierMarkReg10
	ReadBarrierMarkReg11
	ReadBarrierMarkReg12
	ReadBarrierMarkReg13
	ReadBarrierMarkReg14
	ReadBarrierMarkReg15
	ReadBarrierSlow
	ReadBarrierForRootSlow

	numEntrypoints
)

var entrypointNames = [numEntrypoints]string{
	AllocObjectResolved:                      "pAllocObjectResolved",
	AllocObjectInitialized:                   "pAllocObjectInitialized",
	AllocObjectWithChecks:                    "pAllocObjectWithChecks",
	AllocArrayResolved:                       "pAllocArrayResolved",
	AllocArrayResolved8:                      "pAllocArrayResolved8",
	AllocArrayResolved16:                     "pAllocArrayResolved16",
	AllocArrayResolved32:                     "pAllocArrayResolved32",
	AllocArrayResolved64:                     "pAllocArrayResolved64",
	AllocStringFromBytes:                     "pAllocStringFromBytes",
	InstanceofNonTrivial:                     "pInstanceofNonTrivial",
	CheckInstanceOf:                          "pCheckInstanceOf",
	InitializeStaticStorage:                  "pInitializeStaticStorage",
	InitializeType:                           "pInitializeType",
	InitializeTypeAndVerifyAccess:            "pInitializeTypeAndVerifyAccess",
	ResolveString:                            "pResolveString",
	Set8Instance:                             "pSet8Instance",
	Set8Static:                               "pSet8Static",
	Set16Instance:                            "pSet16Instance",
	Set16Static:                              "pSet16Static",
	Set32Instance:                            "pSet32Instance",
	Set32Static:                              "pSet32Static",
	Set64Instance:                            "pSet64Instance",
	Set64Static:                              "pSet64Static",
	SetObjInstance:                           "pSetObjInstance",
	SetObjStatic:                             "pSetObjStatic",
	GetByteInstance:                          "pGetByteInstance",
	GetBooleanInstance:                       "pGetBooleanInstance",
	GetShortInstance:                         "pGetShortInstance",
	GetCharInstance:                          "pGetCharInstance",
	Get32Instance:                            "pGet32Instance",
	Get64Instance:                            "pGet64Instance",
	GetObjInstance:                           "pGetObjInstance",
	GetByteStatic:                            "pGetByteStatic",
	GetBooleanStatic:                         "pGetBooleanStatic",
	GetShortStatic:                           "pGetShortStatic",
	GetCharStatic:                            "pGetCharStatic",
	Get32Static:                              "pGet32Static",
	Get64Static:                              "pGet64Static",
	GetObjStatic:                             "pGetObjStatic",
	AputObject:                               "pAputObject",
	LockObject:                               "pLockObject",
	UnlockObject:                             "pUnlockObject",
	TestSuspend:                              "pTestSuspend",
	DeliverException:                         "pDeliverException",
	ThrowArrayBounds:                         "pThrowArrayBounds",
	ThrowDivZero:                             "pThrowDivZero",
	ThrowNullPointer:                         "pThrowNullPointer",
	ThrowStackOverflow:                       "pThrowStackOverflow",
	ThrowStringBounds:                        "pThrowStringBounds",
	Deoptimize:                               "pDeoptimize",
	InvokeDirectTrampolineWithAccessCheck:    "pInvokeDirectTrampolineWithAccessCheck",
	InvokeInterfaceTrampolineWithAccessCheck: "pInvokeInterfaceTrampolineWithAccessCheck",
	InvokeStaticTrampolineWithAccessCheck:    "pInvokeStaticTrampolineWithAccessCheck",
	InvokeSuperTrampolineWithAccessCheck:     "pInvokeSuperTrampolineWithAccessCheck",
	InvokeVirtualTrampolineWithAccessCheck:   "pInvokeVirtualTrampolineWithAccessCheck",
	InvokePolymorphic:                        "pInvokePolymorphic",
	NewEmptyString:                           "pNewEmptyString",
	NewStringFromBytes_B:                     "pNewStringFromBytes_B",
	NewStringFromBytes_BI:                    "pNewStringFromBytes_BI",
	NewStringFromBytes_BII:                   "pNewStringFromBytes_BII",
	NewStringFromBytes_BIII:                  "pNewStringFromBytes_BIII",
	NewStringFromBytes_BIIString:             "pNewStringFromBytes_BIIString",
	NewStringFromBytes_BString:               "pNewStringFromBytes_BString",
	NewStringFromBytes_BIICharset:            "pNewStringFromBytes_BIICharset",
	NewStringFromBytes_BCharset:              "pNewStringFromBytes_BCharset",
	NewStringFromChars_C:                     "pNewStringFromChars_C",
	NewStringFromChars_CII:                   "pNewStringFromChars_CII",
	NewStringFromChars_IIC:                   "pNewStringFromChars_IIC",
	NewStringFromCodePoints:                  "pNewStringFromCodePoints",
	NewStringFromString:                      "pNewStringFromString",
	NewStringFromStringBuffer:                "pNewStringFromStringBuffer",
	NewStringFromStringBuilder:               "pNewStringFromStringBuilder",
	ReadBarrierMarkReg00:                     "pReadBarrierMarkReg00",
	ReadBarrierMarkReg01:                     "pReadBarrierMarkReg01",
	ReadBarrierMarkReg02:                     "pReadBarrierMarkReg02",
	ReadBarrierMarkReg03:                     "pReadBarrierMarkReg03",
	ReadBarrierMarkReg04:                     "pReadBarrierMarkReg04",
	ReadBarrierMarkReg05:                     "pReadBarrierMarkReg05",
	ReadBarrierMarkReg06:                     "pReadBarrierMarkReg06",
	ReadBarrierMarkReg07:                     "pReadBarrierMarkReg07",
	ReadBarrierMarkReg08:                     "pReadBarrierMarkReg08",
	ReadBarrierMarkReg09:                     "pReadBarrierMarkReg09",
	ReadBarrierMarkReg10:                     "pReadBarrierMarkReg10",
	ReadBarrierMarkReg11:                     "pReadBarrierMarkReg11",
	ReadBarrierMarkReg12:                     "pReadBarrierMarkReg12",
	ReadBarrierMarkReg13:                     "pReadBarrierMarkReg13",
	ReadBarrierMarkReg14:                     "pReadBarrierMarkReg14",
	ReadBarrierMarkReg15:                     "pReadBarrierMarkReg15",
	ReadBarrierSlow:                          "pReadBarrierSlow",
	ReadBarrierForRootSlow:                   "pReadBarrierForRootSlow",
}

func (e Entrypoint) String() string {
	if e < numEntrypoints {
		return entrypointNames[e]
	}
	return "<invalid entrypoint>"
}

// RequiresStackMap is false for leaf routines which neither throw nor
// suspend the thread.
func (e Entrypoint) RequiresStackMap() bool {
	switch {
	case e >= ReadBarrierMarkReg00 && e <= ReadBarrierMarkReg15:
		return false
	case e == ReadBarrierSlow || e == ReadBarrierForRootSlow:
		return false
	}
	return true
}

// IsMarkEntrypoint of a register.
func (e Entrypoint) IsMarkEntrypoint() bool {
	return e >= ReadBarrierMarkReg00 && e <= ReadBarrierMarkReg15
}

// AllocArrayEntrypoint for a component size shift (0 to 3).
func AllocArrayEntrypoint(shift int) Entrypoint {
	return AllocArrayResolved8 + Entrypoint(shift&3)
}

// ParseEntrypoint name, with or without the "p" prefix.
func ParseEntrypoint(s string) (Entrypoint, bool) {
	for i, name := range entrypointNames {
		if name == s || name[1:] == s {
			return Entrypoint(i), true
		}
	}
	return 0, false
}
