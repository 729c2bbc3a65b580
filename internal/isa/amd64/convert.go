// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"math"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/link"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/Gyoonus/deoptfuscator-sub021/loc"
)

func (b *builder) buildTypeConversion(i *graph.Instruction) *loc.Summary {
	result, input := i.Type, i.Inputs[0].Type
	s := loc.NewSummary(1, loc.NoCall)

	switch {
	case result == datatype.Uint8 || result == datatype.Int8 || result == datatype.Uint16 || result == datatype.Int16:
		if !input.IsInt() {
			break
		}
		s.SetInAt(0, anyOf(i.Inputs[0]))
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
		return s

	case result == datatype.Int32 && input == datatype.Int64:
		s.SetInAt(0, anyOf(i.Inputs[0]))
		s.SetOut(loc.RequiresReg(), loc.NoOutputOverlap)
		return s

	case (result == datatype.Int32 || result == datatype.Int64) && input.IsFloat():
		s.SetInAt(0, loc.RequiresFpuReg())
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
		return s

	case result == datatype.Int64 && input.IsInt():
		s.SetInAt(0, loc.RequiresReg())
		s.SetOut(loc.RequiresReg(), loc.OutputOverlap)
		return s

	case result.IsFloat() && (input.IsInt() || input.IsFloat()) && result != input:
		s.SetInAt(0, anyOf(i.Inputs[0]))
		if input.IsFloat() {
			s.SetOut(loc.RequiresFpuReg(), loc.NoOutputOverlap)
		} else {
			s.SetOut(loc.RequiresFpuReg(), loc.OutputOverlap)
		}
		return s
	}

	pan.Fatalf("unexpected type conversion from %s to %s", input, result)
	return nil
}

// narrow sign- or zero-extends the low part of an integer.
func (c *CodeGen) narrow(op in.RMex2, out reg.R, src loc.Location) {
	if src.IsRegister() {
		op.RegReg(&c.Text, in.S32, out, src.Reg())
	} else {
		op.RegMem(&c.Text, in.S32, out, in.Stack(src.StackIndex()))
	}
}

func (c *CodeGen) narrow16(op in.RM2, out reg.R, src loc.Location) {
	if src.IsRegister() {
		op.RegReg(&c.Text, in.S32, out, src.Reg())
	} else {
		op.RegMem(&c.Text, in.S32, out, in.Stack(src.StackIndex()))
	}
}

func (c *CodeGen) genTypeConversion(i *graph.Instruction) {
	text := &c.Text
	s := i.Locations
	src, out := s.InAt(0), s.Out()
	result, input := i.Type, i.Inputs[0].Type

	switch result {
	case datatype.Uint8:
		if src.IsConstant() {
			c.load32(out.Reg(), int32(uint8(src.Constant().Int64())))
		} else {
			c.narrow(in.MOVZX8, out.Reg(), src)
		}

	case datatype.Int8:
		if src.IsConstant() {
			c.load32(out.Reg(), int32(int8(src.Constant().Int64())))
		} else {
			c.narrow(in.MOVSX8, out.Reg(), src)
		}

	case datatype.Uint16:
		if src.IsConstant() {
			c.load32(out.Reg(), int32(uint16(src.Constant().Int64())))
		} else {
			c.narrow16(in.MOVZX16, out.Reg(), src)
		}

	case datatype.Int16:
		if src.IsConstant() {
			c.load32(out.Reg(), int32(int16(src.Constant().Int64())))
		} else {
			c.narrow16(in.MOVSX16, out.Reg(), src)
		}

	case datatype.Int32:
		switch input {
		case datatype.Int64:
			switch {
			case src.IsRegister():
				in.MOV.RegReg(text, in.S32, out.Reg(), src.Reg())
			case src.IsDoubleStackSlot():
				in.MOV.RegMem(text, in.S32, out.Reg(), in.Stack(src.StackIndex()))
			default:
				c.load32(out.Reg(), int32(src.Constant().Int64()))
			}
		case datatype.Float32, datatype.Float64:
			c.truncateToInt(input, in.S32, out.Reg(), src.FpuReg())
		}

	case datatype.Int64:
		if input.IsFloat() {
			c.truncateToInt(input, in.S64, out.Reg(), src.FpuReg())
		} else {
			in.MOVSXD.RegReg(text, in.S64, out.Reg(), src.Reg())
		}

	case datatype.Float32, datatype.Float64:
		c.convertToFloat(result, input, out.FpuReg(), src)

	default:
		pan.Fatalf("unexpected type conversion from %s to %s", input, result)
	}
}

// truncateToInt saturates at the maximum value and converts NaN to zero.
// Values below the minimum produce the minimum, which is what the hardware
// conversion returns for every invalid input.
func (c *CodeGen) truncateToInt(input datatype.Type, size in.Size, out, src reg.R) {
	text := &c.Text
	fsize := floatSize(input)

	var done, nan link.L

	if size == in.S64 {
		c.load64(out, math.MaxInt64)
	} else {
		in.MOVo.RegImm32(text, out, math.MaxInt32)
	}

	in.COMISx.RegMem(text, fsize, src, in.RIP(0))
	limit := float64(math.MaxInt32)
	if size == in.S64 {
		limit = float64(math.MaxInt64)
	}
	if input == datatype.Float32 {
		c.literal(c.pool.Float32(float32(limit)))
	} else {
		c.literal(c.pool.Float64(limit))
	}
	c.jccNear(in.CCAE, &done)
	c.jccNear(in.CCP, &nan)

	in.CVTTSx2SI.TypeRegReg(text, fsize, size, out, src)
	c.jmpNear(&done)

	c.bind(&nan)
	in.XOR.RegReg(text, in.S32, out, out)
	c.bind(&done)
}

func (c *CodeGen) convertToFloat(result, input datatype.Type, out reg.R, src loc.Location) {
	text := &c.Text
	fsize := floatSize(result)

	if src.IsConstant() {
		k := src.Constant()
		var x32 float32
		var x64 float64
		switch input {
		case datatype.Int64:
			x32, x64 = float32(k.Int64()), float64(k.Int64())
		case datatype.Float32:
			x32, x64 = k.Float32(), float64(k.Float32())
		case datatype.Float64:
			x32, x64 = float32(k.Float64()), k.Float64()
		default:
			x32, x64 = float32(k.Int32()), float64(k.Int32())
		}
		if result == datatype.Float32 {
			c.loadFloat32(out, x32)
		} else {
			c.loadFloat64(out, x64)
		}
		return
	}

	if input.IsFloat() {
		if src.IsFpuRegister() {
			in.CVTS2Sx.RegReg(text, floatSize(input), out, src.FpuReg())
		} else {
			in.CVTS2Sx.RegMem(text, floatSize(input), out, in.Stack(src.StackIndex()))
		}
		return
	}

	isize := in.S32
	if input == datatype.Int64 {
		isize = in.S64
	}
	if src.IsRegister() {
		in.CVTSI2Sx.TypeRegReg(text, fsize, isize, out, src.Reg())
	} else {
		in.CVTSI2Sx.TypeRegMem(text, fsize, isize, out, in.Stack(src.StackIndex()))
	}
}
