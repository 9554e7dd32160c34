package x86asm

import "github.com/ryoon/pearpc/internal/x86reg"

// NOTReg emits NOT reg (F7 /2).
func (a Asm) NOTReg(reg x86reg.Reg) {
	a.Buf.Emit1(0xf7)
	a.Buf.Emit1(0xd0 + byte(reg))
}

// NEGReg emits NEG reg (F7 /3).
func (a Asm) NEGReg(reg x86reg.Reg) {
	a.Buf.Emit1(0xf7)
	a.Buf.Emit1(0xd8 + byte(reg))
}

// INCReg emits the one-byte INC reg form (40+r).
func (a Asm) INCReg(reg x86reg.Reg) {
	a.Buf.Emit1(0x40 + byte(reg))
}

// DECReg emits the one-byte DEC reg form (48+r).
func (a Asm) DECReg(reg x86reg.Reg) {
	a.Buf.Emit1(0x48 + byte(reg))
}

// LEA emits LEA dst, [mem].
func (a Asm) LEA(dst x86reg.Reg, m Mem) {
	a.Buf.Emit1(0x8d)
	a.putMem(byte(dst), m)
}

// IMULRegReg emits the two-operand IMUL dst, src (0F AF /r).
func (a Asm) IMULRegReg(dst, src x86reg.Reg) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0xaf)
	a.modrmRegReg(dst, src)
}

// IMULRegRegImm emits the three-operand IMUL dst, src, imm, preferring
// the signed-8-bit `6B /r ib` form when imm fits.
func (a Asm) IMULRegRegImm(dst, src x86reg.Reg, imm int32) {
	if fitsInt8(imm) {
		a.Buf.Emit1(0x6b)
		a.modrmRegReg(dst, src)
		a.Buf.Emit1(byte(int8(imm)))
		return
	}
	a.Buf.Emit1(0x69)
	a.modrmRegReg(dst, src)
	a.Buf.EmitInt32(imm)
}
