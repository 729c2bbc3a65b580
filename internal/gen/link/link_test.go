// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/buffer"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
)

func TestBindForward(t *testing.T) {
	text := code.Buf{Buffer: buffer.NewDynamic(nil)}

	var l L

	text.PutByte(0xeb) // jmp rel8
	text.PutByte(0)
	l.AddSite(text.Addr, true)

	text.PutByte(0xe9) // jmp rel32
	text.PutUint32(0)
	l.AddSite(text.Addr, false)

	text.Extend(10)
	l.Bind(&text)

	if !l.Bound || l.Addr != 17 {
		t.Fatalf("label: %+v", l)
	}

	b := text.Bytes()
	if int8(b[1]) != 15 {
		t.Errorf("near displacement: %d", int8(b[1]))
	}
	if x := text.Int32At(7); x != 10 {
		t.Errorf("far displacement: %d", x)
	}
}

func TestBindNearOutOfRange(t *testing.T) {
	text := code.Buf{Buffer: buffer.NewDynamic(nil)}

	var l L

	text.PutByte(0xeb)
	text.PutByte(0)
	l.AddSite(text.Addr, true)
	text.Extend(200)

	err := func() (err error) {
		defer func() { err = pan.Error(recover()) }()
		l.Bind(&text)
		return
	}()
	if err == nil {
		t.Fatal("out-of-range near branch was not rejected")
	}
}

func TestFinalAddrUnbound(t *testing.T) {
	var l L

	err := func() (err error) {
		defer func() { err = pan.Error(recover()) }()
		l.FinalAddr()
		return
	}()
	if err == nil {
		t.Fatal("unbound label address was returned")
	}
}
