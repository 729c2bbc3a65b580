// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

const (
	// Opcode bits of some instructions are located at this offset in the ModRM
	// byte (ModRO part) or a standalone opcode byte.
	opcodeBase = 3
)

const (
	// GP opcodes
	ADD     = RM(0x03)
	OR      = RM(0x0b)
	AND     = RM(0x23)
	SUB     = RM(0x2b)
	XOR     = RM(0x33)
	CMPmr   = RM(0x39) // compares memory against register
	CMP     = RM(0x3b)
	PUSHo   = O(0x50)
	POPo    = O(0x58)
	MOVSXD  = RM(0x63) // S64 only
	IMULi   = RMI(0x69<<8 | 0x6b)
	ADDi    = MI(0x81<<16 | 0x83<<8 | 0<<opcodeBase)
	ADDi16  = MIw(0x81<<16 | 0x83<<8 | 0<<opcodeBase)
	ORi     = MI(0x81<<16 | 0x83<<8 | 1<<opcodeBase)
	ANDi    = MI(0x81<<16 | 0x83<<8 | 4<<opcodeBase)
	SUBi    = MI(0x81<<16 | 0x83<<8 | 5<<opcodeBase)
	XORi    = MI(0x81<<16 | 0x83<<8 | 6<<opcodeBase)
	CMPi    = MI(0x81<<16 | 0x83<<8 | 7<<opcodeBase)
	CMPi16  = MIw(0x81<<16 | 0x83<<8 | 7<<opcodeBase)
	CMP8i   = MI8(0x80<<8 | 7<<opcodeBase)
	TEST    = RM(0x85) // MR opcode
	XCHG    = RM(0x87)
	MOV8mr  = RMdata8(0x88)
	MOVmr   = RM(0x89)
	MOV16mr = RMdata16(0x89)
	MOV     = RM(0x8b)
	LEA     = RM(0x8d)
	CDQ     = NP(0x99) // CQO with S64
	MOVo    = OI(0xb8)
	RORi    = MI(0xc1<<8 | 1<<opcodeBase)
	SHLi    = MI(0xc1<<8 | 4<<opcodeBase)
	SHRi    = MI(0xc1<<8 | 5<<opcodeBase)
	SARi    = MI(0xc1<<8 | 7<<opcodeBase)
	MOV8i   = MI8(0xc6<<8 | 0<<opcodeBase)
	MOV16i  = MI16(0xc7<<8 | 0<<opcodeBase)
	MOVi    = MId(0xc7<<8 | 0<<opcodeBase) // sign-extended with S64
	ROR     = M(0xd3<<8 | 1<<opcodeBase)
	SHL     = M(0xd3<<8 | 4<<opcodeBase)
	SHR     = M(0xd3<<8 | 5<<opcodeBase)
	SAR     = M(0xd3<<8 | 7<<opcodeBase)
	CALLcd  = Dd(0xe8)
	TEST8i  = MI8(0xf6<<8 | 0<<opcodeBase)
	TESTi   = MId(0xf7<<8 | 0<<opcodeBase)
	NOT     = M(0xf7<<8 | 2<<opcodeBase)
	NEG     = M(0xf7<<8 | 3<<opcodeBase)
	IMUL1   = M(0xf7<<8 | 5<<opcodeBase) // rdx:rax = rax * r/m
	IDIV    = M(0xf7<<8 | 7<<opcodeBase)
	CALLm   = M(0xff<<8 | 2<<opcodeBase)
	JMPm    = M(0xff<<8 | 4<<opcodeBase)
	PUSH    = M(0xff<<8 | 6<<opcodeBase)

	IMUL      = RM2(0x0f<<8 | 0xaf)
	CMPXCHG   = RM2(0x0f<<8 | 0xb1) // MR opcode
	MOVZX8    = RMex2(0x0f<<8 | 0xb6)
	MOVZX16   = RM2(0x0f<<8 | 0xb7)
	BSF       = RM2(0x0f<<8 | 0xbc)
	BSR       = RM2(0x0f<<8 | 0xbd)
	MOVSX8    = RMex2(0x0f<<8 | 0xbe)
	MOVSX16   = RM2(0x0f<<8 | 0xbf)
	POPCNT    = RMprefix(0xf3<<8 | 0xb8)
	TZCNT     = RMprefix(0xf3<<8 | 0xbc)
	LZCNT     = RMprefix(0xf3<<8 | 0xbd)
	JMPcb     = Db(0xeb)
	JMPcd     = Dd(0xe9)
	MFENCE    = Fixed("\x0f\xae\xf0")
	NOP       = Fixed("\x90")
	RET       = Fixed("\xc3")
	FPREM     = Fixed("\xd9\xf8")
	FUCOMPP   = Fixed("\xda\xe9")
	FSTSW     = Fixed("\x9b\xdf\xe0") // to ax
	FLDS      = Mx87(0xd9<<8 | 0<<opcodeBase)
	FSTS      = Mx87(0xd9<<8 | 2<<opcodeBase)
	FLDL      = Mx87(0xdd<<8 | 0<<opcodeBase)
	FSTL      = Mx87(0xdd<<8 | 2<<opcodeBase)
	CVTSI2Sx  = RMscalar(0x2a)           // CVTSI2SS or CVTSI2SD
	CVTTSx2SI = RMscalar(0x2c)           // CVTTSS2SI or CVTTSD2SI
	MOVx      = RMprefix(0x66<<8 | 0x6e) // MOVD or MOVQ
	MOVxmr    = RMprefix(0x66<<8 | 0x7e) // register parameters reversed

	// SSE opcodes
	MOVUPx   = RMpacked(0x10) // MOVUPS or MOVUPD
	MOVUPxmr = RMpacked(0x11)
	MOVSx    = RMscalar(0x10) // MOVSS or MOVSD
	MOVSxmr  = RMscalar(0x11) // RegReg is redundant
	MOVAPx   = RMpacked(0x28) // MOVAPS or MOVAPD
	UCOMISx  = RMpacked(0x2e) // UCOMISS or UCOMISD
	COMISx   = RMpacked(0x2f) // COMISS or COMISD
	ANDPx    = RMpacked(0x54) // ANDPS or ANDPD
	XORPx    = RMpacked(0x57) // XORPS or XORPD
	ADDSx    = RMscalar(0x58) // ADDSS or ADDSD
	MULSx    = RMscalar(0x59) // MULSS or MULSD
	CVTS2Sx  = RMscalar(0x5a) // CVTSD2SS or CVTSS2SD; prefix selects source
	SUBSx    = RMscalar(0x5c) // SUBSS or SUBSD
	DIVSx    = RMscalar(0x5e) // DIVSS or DIVSD
)

var JMP = J{Short: 0xeb, Near: 0xe9}

func immOpcodeSize(ops uint16, val int32) (op byte, size uint8) {
	if uint32(val+128) <= 255 {
		return byte(ops), 1
	}
	return byte(ops >> 8), 4
}

// Arithmetic logic instructions

type ALInsn byte

func (op ALInsn) Opcode() RM  { return RM(op | 0x3) }
func (ro ALInsn) OpcodeI() MI { return 0x81<<16 | 0x83<<8 | MI(ro) }

const (
	InsnAdd = ALInsn(0 << opcodeBase)
	InsnOr  = ALInsn(1 << opcodeBase)
	InsnAnd = ALInsn(4 << opcodeBase)
	InsnSub = ALInsn(5 << opcodeBase)
	InsnXor = ALInsn(6 << opcodeBase)
)

// Shift instructions

type ShiftInsn byte

const (
	InsnShl  = ShiftInsn(4 << opcodeBase)
	InsnShrU = ShiftInsn(5 << opcodeBase)
	InsnShrS = ShiftInsn(7 << opcodeBase)
)

func (ro ShiftInsn) Opcode() M   { return 0xd3<<8 | M(ro) }
func (ro ShiftInsn) OpcodeI() MI { return 0xc1<<8 | MI(ro) }

// Condition codes

type CC byte

const (
	CCO  = CC(0x0)
	CCNO = CC(0x1)
	CCB  = CC(0x2) // below, carry
	CCAE = CC(0x3) // above or equal, no carry
	CCE  = CC(0x4)
	CCNE = CC(0x5)
	CCBE = CC(0x6)
	CCA  = CC(0x7)
	CCS  = CC(0x8)
	CCNS = CC(0x9)
	CCP  = CC(0xa) // parity, unordered
	CCNP = CC(0xb)
	CCL  = CC(0xc)
	CCGE = CC(0xd)
	CCLE = CC(0xe)
	CCG  = CC(0xf)
)

// Invert condition; the low bit of the nibble selects negation.
func (cc CC) Invert() CC { return cc ^ 1 }

func (nib CC) SetccOpcode() Mex2 { return 0x0f<<8 | Mex2(0x90|nib) }
func (nib CC) CmovccOpcode() RM2 { return 0x0f<<8 | RM2(0x40|nib) }
func (nib CC) JccOpcodeCd() D2d  { return 0x0f<<8 | D2d(0x80|nib) }
func (nib CC) JccOpcodeCb() Db   { return Db(0x70 | nib) }
func (cc CC) JccOpcodeC() D12    { return D12(cc.JccOpcodeCd())<<16 | D12(cc.JccOpcodeCb()) }

var ccNames = [16]string{"o", "no", "b", "ae", "e", "ne", "be", "a", "s", "ns", "p", "np", "l", "ge", "le", "g"}

func (cc CC) String() string { return ccNames[cc&15] }
