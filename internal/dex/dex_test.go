// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dex

import (
	"testing"
)

func testImage() []byte {
	b := Builder{Classes: []Class{
		{
			Descriptor: "LFoo;",
			Fields: []Field{
				{Name: "count", Type: "I", Flags: AccPrivate},
				{Name: "NAME", Type: "Ljava/lang/String;", Flags: AccPublic | AccStatic | AccFinal},
			},
			Methods: []Method{
				{Name: "<init>", Return: "V", Flags: AccPublic | AccConstructor},
				{Name: "get", Params: []string{"I", "[J"}, Return: "Ljava/lang/Object;", Flags: AccPublic, Virtual: true},
				{Name: "hash", Params: []string{"J"}, Return: "I", Flags: AccPrivate | AccStatic | AccNative},
			},
		},
		{Descriptor: "LEmpty;"},
		{
			Descriptor: "LBar;",
			Methods: []Method{
				{Name: "get", Params: []string{"I", "[J"}, Return: "Ljava/lang/Object;", Flags: AccProtected, Virtual: true},
			},
		},
	}}
	return b.Bytes()
}

func TestMembers(t *testing.T) {
	f, err := Parse(testImage())
	if err != nil {
		t.Fatal(err)
	}

	members, err := f.Members()
	if err != nil {
		t.Fatal(err)
	}

	expect := []struct {
		sig   string
		flags uint32
	}{
		{"LFoo;->NAME:Ljava/lang/String;", AccPublic | AccStatic | AccFinal},
		{"LFoo;->count:I", AccPrivate},
		{"LFoo;-><init>()V", AccPublic | AccConstructor},
		{"LFoo;->hash(J)I", AccPrivate | AccStatic | AccNative},
		{"LFoo;->get(I[J)Ljava/lang/Object;", AccPublic},
		{"LBar;->get(I[J)Ljava/lang/Object;", AccProtected},
	}

	if len(members) != len(expect) {
		t.Fatalf("%d members", len(members))
	}
	for i, x := range expect {
		m := members[i]
		if s := m.Signature(); s != x.sig || m.Flags != x.flags {
			t.Errorf("member %d: %s %#x", i, s, m.Flags)
		}
	}
}

func TestSetAccessFlags(t *testing.T) {
	image := testImage()
	f, err := Parse(image)
	if err != nil {
		t.Fatal(err)
	}
	members, err := f.Members()
	if err != nil {
		t.Fatal(err)
	}

	m := &members[1] // count
	if err := f.SetAccessFlags(m, AccPrivate|0x20); err != nil {
		t.Fatal(err)
	}
	if err := f.SetAccessFlags(m, 0x80); err == nil {
		t.Error("size change accepted")
	}

	if _, err := Parse(image); err == nil {
		t.Error("stale checksum accepted")
	}
	f.UpdateChecksum()

	f, err = Parse(image)
	if err != nil {
		t.Fatal(err)
	}
	members, err = f.Members()
	if err != nil {
		t.Fatal(err)
	}
	if members[1].Flags != AccPrivate|0x20 || members[0].Flags != AccPublic|AccStatic|AccFinal {
		t.Errorf("flags: %#x %#x", members[1].Flags, members[0].Flags)
	}
}

func TestParseErrors(t *testing.T) {
	good := testImage()

	for _, test := range []struct {
		name   string
		modify func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:headerSize-1] }},
		{"compact", func(b []byte) []byte { copy(b, "cdex001\x00"); return b }},
		{"magic", func(b []byte) []byte { b[0] = 'x'; return b }},
		{"version", func(b []byte) []byte { copy(b[4:], "099"); return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-4] }},
		{"checksum", func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }},
	} {
		image := append([]byte(nil), good...)
		if _, err := Parse(test.modify(image)); err == nil {
			t.Errorf("%s: accepted", test.name)
		}
	}
}

func TestULEB128(t *testing.T) {
	for _, x := range []uint32{0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 0xffffffff} {
		b := appendULEB128(nil, x)
		if len(b) != uleb128Size(x) {
			t.Errorf("%#x: size %d", x, len(b))
		}
		if y, n := readULEB128(b, 0); y != x || n != len(b) {
			t.Errorf("%#x: read %#x %d", x, y, n)
		}
	}

	b := make([]byte, 3)
	putULEB128(b, 5)
	if y, n := readULEB128(b, 0); y != 5 || n != 3 {
		t.Errorf("padded: %#x %d", y, n)
	}
}
