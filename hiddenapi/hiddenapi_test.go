// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hiddenapi

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/dex"
)

func TestFlags(t *testing.T) {
	for _, test := range []struct {
		flags   uint32
		list    List
		encoded uint32
	}{
		{dex.AccPublic, Whitelist, dex.AccPublic},
		{dex.AccPublic, LightGreylist, 0x6},
		{dex.AccPrivate, DarkGreylist, dex.AccPrivate | accHiddenBit},
		{dex.AccProtected | dex.AccStatic, Blacklist, 0x3 | dex.AccStatic | accHiddenBit},
		{0, LightGreylist, 0x7},
		{dex.AccPublic | dex.AccNative, Blacklist, 0x6 | dex.AccNative | accHiddenBitNative},
		{dex.AccPublic | dex.AccNative, DarkGreylist, dex.AccPublic | dex.AccNative | accHiddenBitNative},
	} {
		encoded, err := EncodeFlags(test.flags, test.list)
		if err != nil {
			t.Fatal(err)
		}
		if encoded != test.encoded {
			t.Errorf("%#x %s: encoded %#x", test.flags, test.list, encoded)
		}
		if l := DecodeFlags(encoded); l != test.list {
			t.Errorf("%#x %s: decoded %s", test.flags, test.list, l)
		}
		if flags := RemoveFlags(encoded); flags != test.flags {
			t.Errorf("%#x %s: removed %#x", test.flags, test.list, flags)
		}
	}

	if _, err := EncodeFlags(0x6, Whitelist); err == nil || !errors.IsInput(err) {
		t.Errorf("encoded flags: %v", err)
	}
}

func TestClassify(t *testing.T) {
	lists := &Lists{
		LightGreylist: Signatures{"a": {}, "b": {}, "c": {}},
		DarkGreylist:  Signatures{"b": {}, "c": {}},
		Blacklist:     Signatures{"c": {}},
	}

	for sig, l := range map[string]List{"a": LightGreylist, "b": DarkGreylist, "c": Blacklist, "d": Whitelist} {
		if x := lists.Classify(sig); x != l {
			t.Errorf("%s: %s", sig, x)
		}
	}

	if (&Lists{}).Classify("a") != Whitelist {
		t.Error("empty lists")
	}
}

func TestReadSignatures(t *testing.T) {
	set, err := ReadSignatures(strings.NewReader("LFoo;->a:I\nLFoo;->b()V\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 2 || !set.Contains("LFoo;->b()V") || set.Contains("LFoo;->c()V") {
		t.Errorf("%v", set)
	}
}

func testImage() []byte {
	b := dex.Builder{Classes: []dex.Class{{
		Descriptor: "LFoo;",
		Fields: []dex.Field{
			{Name: "a", Type: "I", Flags: dex.AccPrivate},
			{Name: "b", Type: "J", Flags: dex.AccPublic | dex.AccStatic},
		},
		Methods: []dex.Method{
			{Name: "c", Return: "V", Flags: dex.AccPublic | dex.AccNative},
			{Name: "d", Params: []string{"Z"}, Return: "I", Flags: dex.AccProtected, Virtual: true},
		},
	}}}
	return b.Bytes()
}

func testLists() *Lists {
	return &Lists{
		LightGreylist: Signatures{"LFoo;->a:I": {}},
		DarkGreylist:  Signatures{"LFoo;->c()V": {}, "LFoo;->d(Z)I": {}},
		Blacklist:     Signatures{"LFoo;->d(Z)I": {}},
	}
}

func TestProcess(t *testing.T) {
	image := testImage()

	var hidden []string
	stats, err := Process(image, testLists(), func(sig string) {
		hidden = append(hidden, sig)
	})
	if err != nil {
		t.Fatal(err)
	}

	if stats != (Stats{1, 1, 1, 1}) || stats.Hidden() != 3 {
		t.Errorf("stats: %v", stats)
	}
	if strings.Join(hidden, " ") != "LFoo;->a:I LFoo;->c()V LFoo;->d(Z)I" {
		t.Errorf("hidden: %v", hidden)
	}

	f, err := dex.Parse(image)
	if err != nil {
		t.Fatal(err)
	}
	members, err := f.Members()
	if err != nil {
		t.Fatal(err)
	}

	expect := map[string]List{
		"LFoo;->a:I":   LightGreylist,
		"LFoo;->b:J":   Whitelist,
		"LFoo;->c()V":  DarkGreylist,
		"LFoo;->d(Z)I": Blacklist,
	}
	for _, m := range members {
		if l := DecodeFlags(m.Flags); l != expect[m.Signature()] {
			t.Errorf("%s: %s", m.Signature(), l)
		}
	}

	// Already encoded.
	if _, err := Process(image, testLists(), nil); err == nil {
		t.Error("reprocessing succeeded")
	}
}

func TestProcessFilesFailsClosed(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.dex")
	bad := filepath.Join(dir, "bad.dex")

	image := testImage()
	if err := os.WriteFile(good, image, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("dex\n035\x00"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ProcessFiles([]string{good, bad}, testLists(), nil); err == nil {
		t.Fatal("bad file accepted")
	}
	data, err := os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, image) {
		t.Error("good file was modified")
	}

	stats, err := ProcessFiles([]string{good}, testLists(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Hidden() != 3 {
		t.Errorf("stats: %v", stats)
	}
	data, err = os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(data, image) {
		t.Error("file was not modified")
	}
	if _, err := dex.Parse(data); err != nil {
		t.Error(err)
	}
}
