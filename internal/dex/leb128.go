// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dex

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
)

const maxULEB128Len = 5

// readULEB128 returns the value and its encoded length.
func readULEB128(data []byte, offset int) (x uint32, n int) {
	var shift uint
	for {
		if offset+n >= len(data) {
			pan.Panic(errors.Inputf("uleb128 at offset %#x runs past end of file", offset))
		}
		if n == maxULEB128Len {
			pan.Panic(errors.Inputf("uleb128 at offset %#x is too long", offset))
		}
		b := data[offset+n]
		n++
		x |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return
		}
		shift += 7
	}
}

// uleb128Size of the shortest encoding.
func uleb128Size(x uint32) (n int) {
	for {
		n++
		x >>= 7
		if x == 0 {
			return
		}
	}
}

func appendULEB128(b []byte, x uint32) []byte {
	for x >= 0x80 {
		b = append(b, byte(x)|0x80)
		x >>= 7
	}
	return append(b, byte(x))
}

// putULEB128 fills dst exactly, padding with continuation bytes if the
// value is shorter.  The value must fit.
func putULEB128(dst []byte, x uint32) {
	for i := range dst {
		b := byte(x & 0x7f)
		x >>= 7
		if i < len(dst)-1 {
			b |= 0x80
		}
		dst[i] = b
	}
	if x != 0 {
		pan.Fatalf("uleb128 value does not fit in %d bytes", len(dst))
	}
}
