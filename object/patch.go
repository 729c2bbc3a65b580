// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

type PatchKind uint8

const (
	PatchBootImageMethod PatchKind = iota
	PatchBootImageType
	PatchBootImageString
	PatchBssMethod
	PatchBssType
	PatchBssString
)

var patchKindNames = [...]string{
	PatchBootImageMethod: "boot-image-method",
	PatchBootImageType:   "boot-image-type",
	PatchBootImageString: "boot-image-string",
	PatchBssMethod:       "bss-method",
	PatchBssType:         "bss-type",
	PatchBssString:       "bss-string",
}

func (k PatchKind) String() string {
	if int(k) < len(patchKindNames) {
		return patchKindNames[k]
	}
	return "unknown"
}

// Patch of a 32-bit pc-relative displacement.  CodeOffset is the start of
// the displacement field; the displacement is relative to the end of it.
type Patch struct {
	Kind        PatchKind `msgpack:"kind"`
	CodeOffset  uint32    `msgpack:"offset"`
	DexFile     uint32    `msgpack:"dex"`
	TargetIndex uint32    `msgpack:"index"`
}

// JitRoot patch.  The 32-bit field at CodeOffset gets the address of the
// root's entry in the method's root table.
type JitRoot struct {
	CodeOffset uint32 `msgpack:"offset"`
	RootIndex  uint32 `msgpack:"index"`
	Class      bool   `msgpack:"class,omitempty"`
}

// JitRootSize is the size of a root table entry.
const JitRootSize = 4

// EmitJitRoots writes root table addresses into code.
func EmitJitRoots(code []byte, roots []JitRoot, rootsAddr uint64) error {
	for _, r := range roots {
		addr := rootsAddr + uint64(r.RootIndex)*JitRootSize
		if addr > 0xffffffff {
			return errors.Errorf("jit root %d address %#x exceeds 32 bits", r.RootIndex, addr)
		}
		if int(r.CodeOffset)+4 > len(code) {
			return errors.Errorf("jit root %d patch offset %d out of range", r.RootIndex, r.CodeOffset)
		}
		binary.LittleEndian.PutUint32(code[r.CodeOffset:], uint32(addr))
	}
	return nil
}
