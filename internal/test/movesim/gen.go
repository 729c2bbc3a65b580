// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package movesim

import (
	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/moves"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

// Stack slots are 8 bytes apart; even slots hold 32-bit values and odd slots
// 64-bit values, so that distinct slots never overlap partially.
const numSlots = 16

var allocatable = []reg.R{reg.RAX, reg.RCX, reg.RDX, reg.RBX, reg.RBP, reg.RSI, reg.RDI, reg.R8, reg.R9, reg.R10, reg.R12, reg.R13, reg.R14, reg.R15}

var types = []datatype.Type{datatype.Int32, datatype.Int64, datatype.Float32, datatype.Float64}

func location(t datatype.Type, b byte) loc.Location {
	switch b % 3 {
	case 0:
		if t.IsFloat() {
			return loc.FpuReg(reg.R(b>>2) % reg.NumFp)
		}
		return loc.Reg(allocatable[int(b>>2)%len(allocatable)])

	case 1:
		if t.IsFloat() {
			return loc.Reg(allocatable[int(b>>2)%len(allocatable)])
		}
		return loc.FpuReg(reg.R(b>>2) % reg.NumFp)

	default:
		slot := int32(b>>2) % (numSlots / 2) * 2
		if t.Is64Bit() {
			return loc.DoubleStack((slot + 1) * 8)
		}
		return loc.Stack(slot * 8)
	}
}

// Generate a valid parallel move from arbitrary bytes.  Destinations are
// distinct, and a location read by several moves is read at one type.
func Generate(data []byte) (ms []moves.Move) {
	sourceTypes := make(map[loc.Location]datatype.Type)
	dests := make(map[loc.Location]bool)

	for ; len(data) >= 3; data = data[3:] {
		t := types[data[0]%byte(len(types))]

		var source loc.Location
		if data[0]&0x80 != 0 {
			switch t {
			case datatype.Int32:
				source = loc.ConstantOf(loc.Int32(int32(data[1]) - 128))
			case datatype.Int64:
				source = loc.ConstantOf(loc.Int64(int64(data[1]) << 40))
			case datatype.Float32:
				source = loc.ConstantOf(loc.Float32(float32(data[1]) / 4))
			default:
				source = loc.ConstantOf(loc.Float64(float64(data[1]) / 8))
			}
		} else {
			source = location(t, data[1])
			if prev, found := sourceTypes[source]; found && prev != t {
				continue
			}
		}

		dest := location(t, data[2])
		if dests[dest] {
			continue
		}

		if !source.IsConstant() {
			sourceTypes[source] = t
		}
		dests[dest] = true
		ms = append(ms, moves.Move{Source: source, Dest: dest, Type: t})
	}
	return
}
