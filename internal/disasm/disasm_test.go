// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo

package disasm

import (
	"strings"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

func TestFprint(t *testing.T) {
	m := &object.CompiledMethod{
		Name: "test",
		Code: []byte{
			0x8b, 0x05, 0x00, 0x01, 0x00, 0x00, // mov 0x100(%rip), %eax
			0x85, 0xc0, // test %eax, %eax
			0x74, 0x01, // je +1
			0xc3,                   // ret
			0xc3,                   // ret
			0x00, 0x00, 0x80, 0x3f, // 1.0f
		},
		Patches:   []object.Patch{{Kind: object.PatchBssString, CodeOffset: 2, DexFile: 1, TargetIndex: 7}},
		StackMaps: []object.StackMap{{NativePC: 6, DexPC: 3}},
	}

	var b strings.Builder
	if err := Fprint(&b, m); err != nil {
		t.Fatal(err)
	}
	s := b.String()
	t.Logf("\n%s", s)

	for _, x := range []string{"test:", ".L0", "patch bss-string dex=1 index=7", "safepoint dex_pc=3", "ret"} {
		if !strings.Contains(s, x) {
			t.Errorf("missing %q", x)
		}
	}
}
