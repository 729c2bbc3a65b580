// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"bytes"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/buffer"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
)

func encodeBytes(f func(*code.Buf)) []byte {
	text := code.Buf{Buffer: buffer.NewDynamic(nil)}
	f(&text)
	return text.Bytes()
}

func TestEncodeBytes(t *testing.T) {
	for _, test := range []struct {
		name   string
		encode func(*code.Buf)
		code   []byte
	}{
		{"add eax, ecx", func(b *code.Buf) { ADD.RegReg(b, S32, reg.RAX, reg.RCX) }, []byte{0x03, 0xc1}},
		{"add r8, rdx", func(b *code.Buf) { ADD.RegReg(b, S64, reg.R8, reg.RDX) }, []byte{0x4c, 0x03, 0xc2}},
		{"mov rax, [rsp+8]", func(b *code.Buf) { MOV.RegMem(b, S64, reg.RAX, Stack(8)) }, []byte{0x48, 0x8b, 0x44, 0x24, 0x08}},
		{"mov ecx, [rbp]", func(b *code.Buf) { MOV.RegMem(b, S32, reg.RCX, Addr(reg.RBP, 0)) }, []byte{0x8b, 0x4d, 0x00}},
		{"mov ecx, [r13]", func(b *code.Buf) { MOV.RegMem(b, S32, reg.RCX, Addr(reg.R13, 0)) }, []byte{0x41, 0x8b, 0x4d, 0x00}},
		{"mov edx, [r12+0x100]", func(b *code.Buf) { MOV.RegMem(b, S32, reg.RDX, Addr(reg.R12, 0x100)) }, []byte{0x41, 0x8b, 0x94, 0x24, 0x00, 0x01, 0x00, 0x00}},
		{"lea eax, [rsi+rdx]", func(b *code.Buf) { LEA.RegMem(b, S32, reg.RAX, AddrIndex(reg.RSI, reg.RDX, Scale0, 0)) }, []byte{0x8d, 0x04, 0x16}},
		{"lea rax, [rdi+r9*8-8]", func(b *code.Buf) { LEA.RegMem(b, S64, reg.RAX, AddrIndex(reg.RDI, reg.R9, Scale3, -8)) }, []byte{0x4a, 0x8d, 0x44, 0xcf, 0xf8}},
		{"mov eax, [rip+0x10]", func(b *code.Buf) { MOV.RegMem(b, S32, reg.RAX, RIP(0x10)) }, []byte{0x8b, 0x05, 0x10, 0x00, 0x00, 0x00}},
		{"mov rax, gs:[0x88]", func(b *code.Buf) { GS(b); MOV.RegMem(b, S64, reg.RAX, Abs(0x88)) }, []byte{0x65, 0x48, 0x8b, 0x04, 0x25, 0x88, 0x00, 0x00, 0x00}},
		{"add eax, 1", func(b *code.Buf) { ADDi.RegImm(b, S32, reg.RAX, 1) }, []byte{0x83, 0xc0, 0x01}},
		{"add rcx, 0x1000", func(b *code.Buf) { ADDi.RegImm(b, S64, reg.RCX, 0x1000) }, []byte{0x48, 0x81, 0xc1, 0x00, 0x10, 0x00, 0x00}},
		{"cmp esi, -1", func(b *code.Buf) { CMPi.RegImm(b, S32, reg.RSI, -1) }, []byte{0x83, 0xfe, 0xff}},
		{"shr r11d, 1", func(b *code.Buf) { SHRi.RegImm8(b, S32, reg.R11, 1) }, []byte{0x41, 0xc1, 0xeb, 0x01}},
		{"idiv rcx", func(b *code.Buf) { IDIV.Reg(b, S64, reg.RCX) }, []byte{0x48, 0xf7, 0xf9}},
		{"cqo", func(b *code.Buf) { CDQ.Type(b, S64) }, []byte{0x48, 0x99}},
		{"mov edx, 5", func(b *code.Buf) { MOVo.RegImm32(b, reg.RDX, 5) }, []byte{0xba, 0x05, 0x00, 0x00, 0x00}},
		{"movabs r10", func(b *code.Buf) { MOVo.RegImm64(b, reg.R10, 0x1122334455667788) }, []byte{0x49, 0xba, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}},
		{"mov dword [rax+4], 7", func(b *code.Buf) { MOVi.MemImm(b, S32, Addr(reg.RAX, 4), 7) }, []byte{0xc7, 0x40, 0x04, 0x07, 0x00, 0x00, 0x00}},
		{"push r12", func(b *code.Buf) { PUSHo.Reg(b, reg.R12) }, []byte{0x41, 0x54}},
		{"pop rbx", func(b *code.Buf) { POPo.Reg(b, reg.RBX) }, []byte{0x5b}},
		{"movsd xmm1, xmm8", func(b *code.Buf) { MOVSx.RegReg(b, S64, reg.XMM1, reg.XMM8) }, []byte{0xf2, 0x41, 0x0f, 0x10, 0xc8}},
		{"ucomiss xmm0, xmm1", func(b *code.Buf) { UCOMISx.RegReg(b, S32, reg.XMM0, reg.XMM1) }, []byte{0x0f, 0x2e, 0xc1}},
		{"ucomisd xmm0, xmm1", func(b *code.Buf) { UCOMISx.RegReg(b, S64, reg.XMM0, reg.XMM1) }, []byte{0x66, 0x0f, 0x2e, 0xc1}},
		{"cvttsd2si rax, xmm0", func(b *code.Buf) { CVTTSx2SI.TypeRegReg(b, S64, S64, reg.RAX, reg.XMM0) }, []byte{0xf2, 0x48, 0x0f, 0x2c, 0xc0}},
		{"movzx eax, sil", func(b *code.Buf) { MOVZX8.RegReg(b, S32, reg.RAX, reg.RSI) }, []byte{0x40, 0x0f, 0xb6, 0xc6}},
		{"popcnt eax, edx", func(b *code.Buf) { POPCNT.RegReg(b, S32, reg.RAX, reg.RDX) }, []byte{0xf3, 0x0f, 0xb8, 0xc2}},
		{"mov [rcx], al", func(b *code.Buf) { MOV8mr.RegMem(b, reg.RAX, Addr(reg.RCX, 0)) }, []byte{0x40, 0x88, 0x01}},
		{"mov [rdi+2], dx", func(b *code.Buf) { MOV16mr.RegMem(b, reg.RDX, Addr(reg.RDI, 2)) }, []byte{0x66, 0x89, 0x57, 0x02}},
		{"add word [rdi+0x12], 1", func(b *code.Buf) { ADDi16.MemImm(b, Addr(reg.RDI, 0x12), 1) }, []byte{0x66, 0x83, 0x47, 0x12, 0x01}},
		{"test byte [rdi+7], 0x20", func(b *code.Buf) { TEST8i.MemImm(b, Addr(reg.RDI, 7), 0x20) }, []byte{0xf6, 0x47, 0x07, 0x20}},
		{"fld qword [rsp]", func(b *code.Buf) { FLDL.Mem(b, Stack(0)) }, []byte{0xdd, 0x04, 0x24}},
		{"sete al", func(b *code.Buf) { CCE.SetccOpcode().OneSizeReg(b, reg.RAX) }, []byte{0x40, 0x0f, 0x94, 0xc0}},
		{"cmovl eax, ecx", func(b *code.Buf) { CCL.CmovccOpcode().RegReg(b, S32, reg.RAX, reg.RCX) }, []byte{0x0f, 0x4c, 0xc1}},
		{"jmp self", func(b *code.Buf) { JMP.Addr(b, 0) }, []byte{0xeb, 0xfe}},
		{"je self", func(b *code.Buf) { CCE.JccOpcodeC().Addr(b, 0) }, []byte{0x74, 0xfe}},
		{"jne stub", func(b *code.Buf) { CCNE.JccOpcodeC().Stub(b, false) }, []byte{0x0f, 0x85, 0x00, 0x00, 0x00, 0x00}},
	} {
		if text := encodeBytes(test.encode); !bytes.Equal(text, test.code) {
			t.Errorf("%s: % x, expected % x", test.name, text, test.code)
		}
	}
}

func TestEncodeFarBranch(t *testing.T) {
	const padding = 0x100

	text := encodeBytes(func(b *code.Buf) {
		for i := 0; i < padding; i++ {
			NOP.Simple(b)
		}
		CCE.JccOpcodeC().Addr(b, 0)
		JMP.Addr(b, 0)
	})

	// je: 0 - (0x100 + 6), jmp: 0 - (0x106 + 5)
	expect := []byte{0x0f, 0x84, 0xfa, 0xfe, 0xff, 0xff, 0xe9, 0xf5, 0xfe, 0xff, 0xff}
	if tail := text[padding:]; !bytes.Equal(tail, expect) {
		t.Errorf("% x, expected % x", tail, expect)
	}
}
