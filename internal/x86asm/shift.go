package x86asm

import "github.com/ryoon/pearpc/internal/x86reg"

// ShiftOp identifies one of the seven shift/rotate instructions, with
// numeric values matching the x86 ModR/M opcode-extension field for
// the D0/D1/D2/D3/C0/C1 shift group (ROL=0, ROR=1, RCL=2, RCR=3,
// SHL=SAL=4, SHR=5, SAR=7 -- slot 6 is unused/aliases SHL on real
// hardware, never emitted here).
type ShiftOp uint8

const (
	ROL ShiftOp = 0
	ROR ShiftOp = 1
	RCL ShiftOp = 2
	RCR ShiftOp = 3
	SHL ShiftOp = 4
	SAL ShiftOp = 4
	SHR ShiftOp = 5
	SAR ShiftOp = 7
)

// ShiftRegImm emits `op reg, count`. A count of 1 uses the dedicated
// one-bit `D1 /r` form (no immediate byte); any other count uses
// `C1 /r ib`.
func (a Asm) ShiftRegImm(op ShiftOp, reg x86reg.Reg, count uint8) {
	if count == 1 {
		a.Buf.Emit1(0xd1)
		a.Buf.Emit1(0xc0 | byte(op)<<3 | reg3(reg))
		return
	}
	a.Buf.Emit1(0xc1)
	a.Buf.Emit1(0xc0 | byte(op)<<3 | reg3(reg))
	a.Buf.Emit1(count)
}

// ShiftRegCL emits `op reg, cl` (D3 /r): shift count taken from CL.
func (a Asm) ShiftRegCL(op ShiftOp, reg x86reg.Reg) {
	a.Buf.Emit1(0xd3)
	a.Buf.Emit1(0xc0 | byte(op)<<3 | reg3(reg))
}

// BitOp identifies one of the four bit-test group instructions, with
// values matching the 0F BA /r opcode-extension field.
type BitOp uint8

const (
	BT  BitOp = 4
	BTS BitOp = 5
	BTR BitOp = 6
	BTC BitOp = 7
)

// BitMemImm emits `op [mem], bit` (0F BA /r ib), testing/setting a
// single bit of a memory operand addressed by a constant bit index --
// used by the flag/carry tracker to read XER[CA] (BT) directly in
// gCPU memory (spec.md §9).
func (a Asm) BitMemImm(op BitOp, m Mem, bit uint8) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0xba)
	a.putMem(byte(op), m)
	a.Buf.Emit1(bit)
}

// BitRegImm emits `op reg, bit` (0F BA /r ib).
func (a Asm) BitRegImm(op BitOp, reg x86reg.Reg, bit uint8) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0xba)
	a.Buf.Emit1(0xc0 | byte(op)<<3 | reg3(reg))
	a.Buf.Emit1(bit)
}

// BSFRegReg emits BSF dst, src (0F BC /r): index of least significant
// set bit.
func (a Asm) BSFRegReg(dst, src x86reg.Reg) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0xbc)
	a.modrmRegReg(dst, src)
}

// BSRRegReg emits BSR dst, src (0F BD /r): index of most significant
// set bit.
func (a Asm) BSRRegReg(dst, src x86reg.Reg) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0xbd)
	a.modrmRegReg(dst, src)
}

// BSWAP emits BSWAP reg (0F C8+r): reverses the byte order of reg.
func (a Asm) BSWAP(reg x86reg.Reg) {
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0xc8 + byte(reg))
}
