// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
)

func TestArrayDataOffset(t *testing.T) {
	for _, c := range []struct {
		t      datatype.Type
		offset int32
	}{
		{datatype.Int8, 12},
		{datatype.Uint16, 12},
		{datatype.Int32, 12},
		{datatype.Reference, 12},
		{datatype.Int64, 16},
		{datatype.Float64, 16},
	} {
		if x := Default.ArrayDataOffset(c.t); x != c.offset {
			t.Errorf("%s: %d", c.t, x)
		}
	}
}

func TestGrayByte(t *testing.T) {
	offset, mask := Default.Object.GrayByte()
	if offset != 7 || mask != 0x10 {
		t.Errorf("gray byte: %d %#x", offset, mask)
	}
}

func TestStatusByte(t *testing.T) {
	if x := Default.Class.StatusByteOffset(); x != Default.Class.Status+3 {
		t.Errorf("status byte offset: %d", x)
	}
	if x := StatusInitializedByte(); x != 0xe0 {
		t.Errorf("initialized status byte: %#x", x)
	}
}

func TestEntrypoints(t *testing.T) {
	if Default.MarkEntrypointOffset(reg.R11) != Default.EntrypointOffset(ReadBarrierMarkReg11) {
		t.Error("mark entrypoint of r11")
	}
	if ReadBarrierMarkReg03.RequiresStackMap() {
		t.Error("mark entrypoint requires stack map")
	}
	if !TestSuspend.RequiresStackMap() {
		t.Error("suspend check does not require stack map")
	}
	if e, ok := ParseEntrypoint("pThrowDivZero"); !ok || e != ThrowDivZero {
		t.Errorf("parse: %v", e)
	}
	if AllocArrayEntrypoint(3) != AllocArrayResolved64 {
		t.Error("array allocation entrypoint")
	}
	for e := Entrypoint(0); e < numEntrypoints; e++ {
		if entrypointNames[e] == "" {
			t.Errorf("entrypoint %d has no name", e)
		}
	}
}
