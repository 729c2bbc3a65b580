// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/test/native"
)

// load generated code for execution.  The result is nil if the host
// cannot run it.
func load(t *testing.T, text []byte) *native.Code {
	t.Helper()

	f, err := native.Load(text)
	if err != nil {
		if !errors.Is(err, native.ErrUnsupported) {
			t.Fatal(err)
		}
		return nil
	}
	return f
}

// allocLow maps memory which compressed references can address.
func allocLow(t *testing.T) []byte {
	t.Helper()

	b, err := native.Alloc32(4096)
	if err != nil {
		if !errors.Is(err, native.ErrUnsupported) {
			t.Error(err)
		}
		return nil
	}
	return b
}

func addressOf(b []byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(&b[0])))
}
