// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reg

import (
	"testing"
)

func TestSetCategories(t *testing.T) {
	s := Of(Core, RAX, R11).With(Fp, XMM11)

	if !s.Contains(Core, R11) || !s.Contains(Fp, XMM11) {
		t.Fatal(s)
	}
	if s.Contains(Fp, 0) || s.Contains(Core, RCX) {
		t.Fatal(s)
	}
	if n := s.Count(Core); n != 2 {
		t.Errorf("core count %d", n)
	}
	if m := s.Mask(Core); m != 1<<RAX|1<<R11 {
		t.Errorf("core mask %#x", m)
	}
	if m := s.Mask(Fp); m != 1<<XMM11 {
		t.Errorf("fp mask %#x", m)
	}
	if FromMasks(s.Mask(Core), s.Mask(Fp)) != s {
		t.Error("FromMasks")
	}
	if str := s.String(); str != "{rax r11 xmm11}" {
		t.Error(str)
	}
}

func TestParse(t *testing.T) {
	for i := R(0); i < NumCore; i++ {
		if r, ok := ParseCore(CoreName(i)); !ok || r != i {
			t.Errorf("core %d", i)
		}
		if r, ok := ParseFp(FpName(i)); !ok || r != i {
			t.Errorf("fp %d", i)
		}
	}
	if _, ok := ParseCore("xmm0"); ok {
		t.Error("xmm0 parsed as core register")
	}
}
