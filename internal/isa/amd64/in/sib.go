// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
)

type (
	Scale    byte
	sibIndex byte
	sibBase  byte
)

const (
	Scale0 = Scale(0 << 6) // *1
	Scale1 = Scale(1 << 6) // *2
	Scale2 = Scale(2 << 6) // *4
	Scale3 = Scale(3 << 6) // *8

	noIndex = sibIndex(4 << 3)
	noBase  = sibBase(5) // with ModMem: disp32 without base
)

// ScaleOf element size in bytes (1, 2, 4 or 8).
func ScaleOf(size int) Scale {
	switch size {
	case 1:
		return Scale0
	case 2:
		return Scale1
	case 4:
		return Scale2
	case 8:
		return Scale3
	}
	panic("invalid scale")
}

func regIndex(r reg.R) sibIndex { return sibIndex((r & 7) << 3) }
func regBase(r reg.R) sibBase   { return sibBase(r & 7) }
