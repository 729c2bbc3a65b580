// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/tmthrgd/go-bitset"
)

func TestFindStackMap(t *testing.T) {
	maps := []StackMap{{NativePC: 30}, {NativePC: 10, DexPC: 1}, {NativePC: 20, DexPC: 2}}
	SortStackMaps(maps)

	if i, found := FindStackMap(maps, 20); !found || maps[i].DexPC != 2 {
		t.Errorf("pc 20: %d %v", i, found)
	}
	if _, found := FindStackMap(maps, 25); found {
		t.Error("pc 25 found")
	}
}

func TestEmitJitRoots(t *testing.T) {
	code := make([]byte, 16)
	roots := []JitRoot{{CodeOffset: 4, RootIndex: 3}}

	if err := EmitJitRoots(code, roots, 0x1000); err != nil {
		t.Fatal(err)
	}
	if x := binary.LittleEndian.Uint32(code[4:]); x != 0x100c {
		t.Errorf("root address %#x", x)
	}

	if err := EmitJitRoots(code, roots, 0xfffffffc); err == nil {
		t.Error("overflow accepted")
	}
}

func TestBundle(t *testing.T) {
	mask := bitset.New(16)
	mask.Set(3)

	b := &Bundle{Methods: []CompiledMethod{{
		Name:      "f",
		Code:      []byte{0xc3},
		FrameSize: 8,
		StackMaps: []StackMap{{NativePC: 1, StackMask: mask}},
	}}}
	b.Methods[0].SlowPaths.Add("NullCheck")

	var buf bytes.Buffer
	if err := b.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	b2, err := DecodeBundle(&buf)
	if err != nil {
		t.Fatal(err)
	}

	m := b2.Methods[0]
	if b2.Version != BundleVersion || m.Name != "f" || m.SlowPaths.ByKind["NullCheck"] != 1 || !m.StackMaps[0].HasStackBit(3) || m.StackMaps[0].HasStackBit(4) {
		t.Errorf("%+v", b2)
	}
}
