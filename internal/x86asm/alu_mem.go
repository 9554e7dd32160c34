package x86asm

import "github.com/ryoon/pearpc/internal/x86reg"

// ALURegMem emits `op dst, [mem]` (register <- memory).
func (a Asm) ALURegMem(op ALUOp, dst x86reg.Reg, m Mem) {
	switch op {
	case Mov:
		a.movRegMem(dst, m)
	case Test:
		a.Buf.Emit1(0x85)
		a.putMem(byte(dst), m)
	case Xchg:
		a.Buf.Emit1(0x87)
		a.putMem(byte(dst), m)
	default:
		a.Buf.Emit1(0x03 + byte(op)<<3)
		a.putMem(byte(dst), m)
	}
}

// ALUMemReg emits `op [mem], src` (memory <- register).
func (a Asm) ALUMemReg(op ALUOp, m Mem, src x86reg.Reg) {
	switch op {
	case Mov:
		a.movMemReg(m, src)
	case Test:
		a.Buf.Emit1(0x85)
		a.putMem(byte(src), m)
	case Xchg:
		a.Buf.Emit1(0x87)
		a.putMem(byte(src), m)
	default:
		a.Buf.Emit1(0x01 + byte(op)<<3)
		a.putMem(byte(src), m)
	}
}

// movRegMem emits MOV dst, [mem]; prefers the EAX-only `A1 disp32`
// short form when m is an absolute address.
func (a Asm) movRegMem(dst x86reg.Reg, m Mem) {
	if dst == x86reg.EAX && m.Base == x86reg.None {
		a.Buf.Emit1(0xa1)
		a.Buf.EmitInt32(m.Disp)
		return
	}
	a.Buf.Emit1(0x8b)
	a.putMem(byte(dst), m)
}

// movMemReg emits MOV [mem], src; prefers the EAX-only `A3 disp32`
// short form when m is an absolute address.
func (a Asm) movMemReg(m Mem, src x86reg.Reg) {
	if src == x86reg.EAX && m.Base == x86reg.None {
		a.Buf.Emit1(0xa3)
		a.Buf.EmitInt32(m.Disp)
		return
	}
	a.Buf.Emit1(0x89)
	a.putMem(byte(src), m)
}

// ALUMemImm emits `op [mem], imm`, preferring the signed-8-bit `83 /r
// ib` form when imm fits.
func (a Asm) ALUMemImm(op ALUOp, m Mem, imm int32) {
	switch op {
	case Mov:
		a.Buf.Emit1(0xc7)
		a.putMem(0, m)
		a.Buf.EmitInt32(imm)
	case Xchg:
		panic("x86asm: XCHG does not take an immediate operand")
	case Test:
		a.testMemImm(m, imm)
	default:
		if fitsInt8(imm) {
			a.Buf.Emit1(0x83)
			a.putMem(byte(op), m)
			a.Buf.Emit1(byte(int8(imm)))
		} else {
			a.Buf.Emit1(0x81)
			a.putMem(byte(op), m)
			a.Buf.EmitInt32(imm)
		}
	}
}

func (a Asm) testMemImm(m Mem, imm int32) {
	a.Buf.Emit1(0xf7)
	a.putMem(0, m)
	a.Buf.EmitInt32(imm)
}

// byteReduce finds the single byte (0-3) in which a 32-bit mask's
// nonzero bits are confined, or -1 if the mask spans more than one
// byte (or is zero). Used by TESTAbsImm/ANDAbsImm/ORAbsImm to reduce a
// 32-bit absolute-address immediate op to an 8-bit one touching a
// single byte of memory, exactly as the reference's asmTESTDMemImm /
// asmANDDMemImm / asmORDMemImm do for flag/carry-tracker bit twiddling.
func byteReduce(mask uint32) int {
	if mask == 0 {
		return -1
	}
	for i := 0; i < 4; i++ {
		if mask&^(uint32(0xff)<<(uint(i)*8)) == 0 {
			return i
		}
	}
	return -1
}

// TESTAbsImm emits TEST [disp32], imm, reduced to a byte-sized
// TEST [disp32+n], imm8 when imm's nonzero bits fit in one byte.
func (a Asm) TESTAbsImm(disp32 int32, imm uint32) {
	if n := byteReduce(imm); n >= 0 {
		a.Buf.Emit1(0xf6)
		a.putMem(0, Abs(disp32+int32(n)))
		a.Buf.Emit1(byte(imm >> (uint(n) * 8)))
		return
	}
	a.testMemImm(Abs(disp32), int32(imm))
}

// ANDAbsImm emits AND [disp32], imm, reduced to AND [disp32+n], imm8
// when the bits being cleared (the bits NOT in mask, restricted to a
// single byte) allow it: equivalent in effect to AND with the full
// mask but touching only the affected byte.
func (a Asm) ANDAbsImm(disp32 int32, mask uint32) {
	if n := byteReduce(^mask); n >= 0 {
		a.Buf.Emit1(0x80)
		a.putMem(byte(And), Abs(disp32+int32(n)))
		a.Buf.Emit1(byte(mask >> (uint(n) * 8)))
		return
	}
	a.ALUMemImm(And, Abs(disp32), int32(mask))
}

// ORAbsImm emits OR [disp32], imm, reduced to OR [disp32+n], imm8 when
// the bits being set are confined to a single byte.
func (a Asm) ORAbsImm(disp32 int32, mask uint32) {
	if n := byteReduce(mask); n >= 0 {
		a.Buf.Emit1(0x80)
		a.putMem(byte(Or), Abs(disp32+int32(n)))
		a.Buf.Emit1(byte(mask >> (uint(n) * 8)))
		return
	}
	a.ALUMemImm(Or, Abs(disp32), int32(mask))
}
