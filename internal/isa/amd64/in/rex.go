// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
)

type rexWRXB byte

const (
	Rex  = byte(64)
	RexW = rexWRXB(8) // 64-bit operand size
	RexR = rexWRXB(4) // extension of the ModR/M reg field
	RexX = rexWRXB(2) // extension of the SIB index field
	RexB = rexWRXB(1) // extension of the ModR/M r/m field, SIB base field, or Opcode reg field
)

// Size of a general-purpose operand, or of a scalar SSE operand.
type Size uint8

const (
	OneSize = Size(0) // for instructions which don't use RexW
	S32     = Size(4)
	S64     = Size(8)
)

func sizeRexW(s Size) rexWRXB { return rexWRXB(s & 8) } // RexW == 8

func regRexR(r reg.R) rexWRXB { return rexWRXB(r>>3) << 2 } // 8..15 => 4
func regRexX(r reg.R) rexWRXB { return rexWRXB(r>>3) << 1 } // 8..15 => 2
func regRexB(r reg.R) rexWRXB { return rexWRXB(r>>3) << 0 } // 8..15 => 1

func scalarPrefix(s Size) byte { return byte(s)>>2 | 0xf2 } // 0xf3 or 0xf2
