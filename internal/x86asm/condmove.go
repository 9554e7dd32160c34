package x86asm

import "github.com/ryoon/pearpc/internal/x86reg"

// CMOVccRegReg emits CMOVcc dst, src (0F 40+cc /r): dst <- src iff
// cond holds, flags unaffected.
func (a Asm) CMOVccRegReg(cond Cond, dst, src x86reg.Reg) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0x40 + byte(cond))
	a.modrmRegReg(dst, src)
}

// SETccReg8 emits SETcc reg8 (0F 90+cc /0): reg8 <- 1 iff cond holds,
// else 0.
func (a Asm) SETccReg8(cond Cond, reg x86reg.Reg8) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0x90 + byte(cond))
	a.Buf.Emit1(0xc0 + byte(reg))
}
