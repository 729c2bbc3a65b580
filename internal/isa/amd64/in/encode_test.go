// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo

package in

import (
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/buffer"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/reg"
	"github.com/bnagy/gapstone"
)

var testEngine gapstone.Engine

func init() {
	engine, err := gapstone.New(gapstone.CS_ARCH_X86, gapstone.CS_MODE_64)
	if err != nil {
		panic(err)
	}
	testEngine = engine
}

func testEncode(t *testing.T, expectMnemonic, expectOpStr string, encodeInsn func(*code.Buf)) {
	t.Helper()

	text := code.Buf{
		Buffer: buffer.NewStatic(make([]byte, 32)),
	}

	encodeInsn(&text)

	insns, err := testEngine.Disasm(text.Bytes(), 0, 0)
	if err != nil {
		t.Errorf("expect %s %s: %v", expectMnemonic, expectOpStr, err)
		return
	}
	if len(insns) != 1 {
		t.Errorf("expect %s %s: decoded %d instructions from % x", expectMnemonic, expectOpStr, len(insns), text.Bytes())
		return
	}

	insn := insns[0]
	if insn.Mnemonic != expectMnemonic || insn.OpStr != expectOpStr {
		t.Errorf("expect %s %s: got %s %s (% x)", expectMnemonic, expectOpStr, insn.Mnemonic, insn.OpStr, text.Bytes())
	}
}

func TestInsnNP(t *testing.T) {
	testEncode(t, "cdq", "", func(text *code.Buf) { CDQ.Type(text, S32) })
	testEncode(t, "cqo", "", func(text *code.Buf) { CDQ.Type(text, S64) })
	testEncode(t, "ret", "", func(text *code.Buf) { RET.Simple(text) })
	testEncode(t, "nop", "", func(text *code.Buf) { NOP.Simple(text) })
	testEncode(t, "mfence", "", func(text *code.Buf) { MFENCE.Simple(text) })
	testEncode(t, "fprem", "", func(text *code.Buf) { FPREM.Simple(text) })
	testEncode(t, "fucompp", "", func(text *code.Buf) { FUCOMPP.Simple(text) })
}

func TestInsnO(t *testing.T) {
	testEncode(t, "push", "rbx", func(text *code.Buf) { PUSHo.Reg(text, reg.RBX) })
	testEncode(t, "push", "r12", func(text *code.Buf) { PUSHo.Reg(text, reg.R12) })
	testEncode(t, "pop", "r15", func(text *code.Buf) { POPo.Reg(text, reg.R15) })
}

func TestInsnRM(t *testing.T) {
	for _, c := range []struct {
		mn    string
		op    RM
		s     Size
		r, r2 reg.R
		ops   string
	}{
		{"add", ADD, S32, reg.RAX, reg.RCX, "eax, ecx"},
		{"sub", SUB, S64, reg.R8, reg.RDX, "r8, rdx"},
		{"xor", XOR, S32, reg.R11, reg.R11, "r11d, r11d"},
		{"mov", MOV, S64, reg.RDI, reg.R13, "rdi, r13"},
		{"cmp", CMP, S32, reg.RSI, reg.R9, "esi, r9d"},
	} {
		c := c
		testEncode(t, c.mn, c.ops, func(text *code.Buf) { c.op.RegReg(text, c.s, c.r, c.r2) })
	}
}

func TestInsnRMMem(t *testing.T) {
	for _, c := range []struct {
		s   Size
		r   reg.R
		m   Mem
		ops string
	}{
		{S64, reg.RAX, Stack(8), "rax, qword ptr [rsp + 8]"},
		{S64, reg.RDX, Addr(reg.R12, 0), "rdx, qword ptr [r12]"},
		{S32, reg.RCX, Addr(reg.RBP, 0), "ecx, dword ptr [rbp]"},
		{S32, reg.RCX, Addr(reg.R13, 0), "ecx, dword ptr [r13]"},
		{S64, reg.R8, Addr(reg.R13, 0x100), "r8, qword ptr [r13 + 0x100]"},
		{S32, reg.RAX, AddrIndex(reg.RCX, reg.RDX, Scale2, 12), "eax, dword ptr [rcx + rdx*4 + 0xc]"},
		{S64, reg.R10, AddrIndex(reg.R14, reg.R9, Scale3, 0), "r10, qword ptr [r14 + r9*8]"},
	} {
		c := c
		testEncode(t, "mov", c.ops, func(text *code.Buf) { MOV.RegMem(text, c.s, c.r, c.m) })
	}
}

func TestInsnMemStore(t *testing.T) {
	testEncode(t, "mov", "qword ptr [rsp], rdi", func(text *code.Buf) { MOVmr.RegMem(text, S64, reg.RDI, Stack(0)) })
	testEncode(t, "mov", "byte ptr [rax + 4], sil", func(text *code.Buf) { MOV8mr.RegMem(text, reg.RSI, Addr(reg.RAX, 4)) })
	testEncode(t, "mov", "word ptr [rax + 4], cx", func(text *code.Buf) { MOV16mr.RegMem(text, reg.RCX, Addr(reg.RAX, 4)) })
}

func TestInsnRIP(t *testing.T) {
	testEncode(t, "lea", "rax, [rip + 0x10]", func(text *code.Buf) { LEA.RegMem(text, S64, reg.RAX, RIP(0x10)) })
	testEncode(t, "movsd", "xmm1, qword ptr [rip]", func(text *code.Buf) { MOVSx.RegMem(text, S64, reg.XMM1, RIP(0)) })
}

func TestInsnGS(t *testing.T) {
	testEncode(t, "mov", "rax, qword ptr gs:[0x100]", func(text *code.Buf) {
		GS(text)
		MOV.RegMem(text, S64, reg.RAX, Abs(0x100))
	})
}

func TestInsnMI(t *testing.T) {
	testEncode(t, "add", "rsp, 0x10", func(text *code.Buf) { ADDi.RegImm(text, S64, reg.RSP, 16) })
	testEncode(t, "sub", "rsp, 0x1000", func(text *code.Buf) { SUBi.RegImm(text, S64, reg.RSP, 0x1000) })
	testEncode(t, "cmp", "ecx, 1", func(text *code.Buf) { CMPi.RegImm(text, S32, reg.RCX, 1) })
	testEncode(t, "shl", "rdx, 3", func(text *code.Buf) { SHLi.RegImm8(text, S64, reg.RDX, 3) })
	testEncode(t, "sar", "eax, 0x1f", func(text *code.Buf) { SARi.RegImm8(text, S32, reg.RAX, 31) })
	testEncode(t, "ror", "r9d, 7", func(text *code.Buf) { RORi.RegImm8(text, S32, reg.R9, 7) })
	testEncode(t, "ror", "rbx, cl", func(text *code.Buf) { ROR.Reg(text, S64, reg.RBX) })
	testEncode(t, "mov", "dword ptr [rsp + 8], 0x7b", func(text *code.Buf) { MOVi.MemImm(text, S32, Stack(8), 123) })
	testEncode(t, "test", "byte ptr [rdi + 7], 0x10", func(text *code.Buf) { TEST8i.MemImm(text, Addr(reg.RDI, 7), 0x10) })
	testEncode(t, "cmp", "word ptr gs:[0x30], 0", func(text *code.Buf) {
		GS(text)
		CMPi16.MemImm(text, Abs(0x30), 0)
	})
	testEncode(t, "add", "word ptr [rdi + 0x12], 1", func(text *code.Buf) {
		ADDi16.MemImm(text, Addr(reg.RDI, 0x12), 1)
	})
}

func TestInsnOI(t *testing.T) {
	testEncode(t, "mov", "r9d, 0x2a", func(text *code.Buf) { MOVo.RegImm32(text, reg.R9, 42) })
	testEncode(t, "movabs", "rax, 0x123456789", func(text *code.Buf) { MOVo.RegImm64(text, reg.RAX, 0x123456789) })
}

func TestInsnM(t *testing.T) {
	testEncode(t, "neg", "rcx", func(text *code.Buf) { NEG.Reg(text, S64, reg.RCX) })
	testEncode(t, "idiv", "r8d", func(text *code.Buf) { IDIV.Reg(text, S32, reg.R8) })
	testEncode(t, "not", "eax", func(text *code.Buf) { NOT.Reg(text, S32, reg.RAX) })
	testEncode(t, "call", "qword ptr [rdi + 0x20]", func(text *code.Buf) { CALLm.Mem(text, OneSize, Addr(reg.RDI, 0x20)) })
	testEncode(t, "jmp", "r11", func(text *code.Buf) { JMPm.Reg(text, OneSize, reg.R11) })
}

func TestInsnSetcc(t *testing.T) {
	testEncode(t, "sete", "al", func(text *code.Buf) { CCE.SetccOpcode().OneSizeReg(text, reg.RAX) })
	testEncode(t, "setl", "sil", func(text *code.Buf) { CCL.SetccOpcode().OneSizeReg(text, reg.RSI) })
	testEncode(t, "cmovg", "eax, ecx", func(text *code.Buf) { CCG.CmovccOpcode().RegReg(text, S32, reg.RAX, reg.RCX) })
}

func TestInsnMovx(t *testing.T) {
	testEncode(t, "movzx", "eax, sil", func(text *code.Buf) { MOVZX8.RegReg(text, S32, reg.RAX, reg.RSI) })
	testEncode(t, "movsx", "ecx, word ptr [rdx + 0xc]", func(text *code.Buf) { MOVSX16.RegMem(text, S32, reg.RCX, Addr(reg.RDX, 12)) })
	testEncode(t, "movsxd", "rax, ecx", func(text *code.Buf) { MOVSXD.RegReg(text, S64, reg.RAX, reg.RCX) })
}

func TestInsnSSE(t *testing.T) {
	testEncode(t, "addss", "xmm0, xmm1", func(text *code.Buf) { ADDSx.RegReg(text, S32, reg.XMM0, reg.XMM1) })
	testEncode(t, "divsd", "xmm8, xmm2", func(text *code.Buf) { DIVSx.RegReg(text, S64, reg.XMM8, reg.XMM2) })
	testEncode(t, "movaps", "xmm3, xmm12", func(text *code.Buf) { MOVAPx.RegReg(text, S32, reg.XMM3, reg.XMM12) })
	testEncode(t, "movups", "xmm1, xmmword ptr [rsp + 0x20]", func(text *code.Buf) { MOVUPx.RegMem(text, S32, reg.XMM1, Stack(0x20)) })
	testEncode(t, "movups", "xmmword ptr [rsp + 0x20], xmm9", func(text *code.Buf) { MOVUPxmr.RegMem(text, S32, reg.XMM9, Stack(0x20)) })
	testEncode(t, "ucomisd", "xmm0, xmm1", func(text *code.Buf) { UCOMISx.RegReg(text, S64, reg.XMM0, reg.XMM1) })
	testEncode(t, "movq", "xmm0, rax", func(text *code.Buf) { MOVx.RegReg(text, S64, reg.XMM0, reg.RAX) })
	testEncode(t, "movd", "ecx, xmm5", func(text *code.Buf) { MOVxmr.RegReg(text, S32, reg.XMM5, reg.RCX) })
	testEncode(t, "movss", "dword ptr [rsp + 4], xmm2", func(text *code.Buf) { MOVSxmr.RegMem(text, S32, reg.XMM2, Stack(4)) })
	testEncode(t, "cvtsi2sd", "xmm0, rdx", func(text *code.Buf) { CVTSI2Sx.TypeRegReg(text, S64, S64, reg.XMM0, reg.RDX) })
	testEncode(t, "cvttss2si", "eax, xmm1", func(text *code.Buf) { CVTTSx2SI.TypeRegReg(text, S32, S32, reg.RAX, reg.XMM1) })
}

func TestInsnJump(t *testing.T) {
	testEncode(t, "jmp", "0x10", func(text *code.Buf) { JMP.Addr(text, 0x10) })
	testEncode(t, "je", "0x200", func(text *code.Buf) { CCE.JccOpcodeC().Addr(text, 0x200) })
	testEncode(t, "call", "0x1000", func(text *code.Buf) { CALLcd.Addr32(text, 0x1000) })
}

func TestInsnLockCmpxchg(t *testing.T) {
	testEncode(t, "lock cmpxchg", "dword ptr [rsi + rdx], ecx", func(text *code.Buf) {
		LOCK(text)
		CMPXCHG.RegMem(text, S32, reg.RCX, AddrIndex(reg.RSI, reg.RDX, Scale0, 0))
	})
}
