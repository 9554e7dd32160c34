package x86asm

import "github.com/ryoon/pearpc/internal/x86reg"

// Mem describes a memory operand: [base + index*scale + disp], or an
// absolute [disp] when base is x86reg.None. Index/Scale are only used
// through MemSIB; plain Mem never has an index register.
type Mem struct {
	Base x86reg.Reg
	Disp int32
}

// Abs builds the absolute-addressing operand [disp].
func Abs(disp int32) Mem { return Mem{Base: x86reg.None, Disp: disp} }

// AtReg builds the [base+disp] operand.
func AtReg(base x86reg.Reg, disp int32) Mem { return Mem{Base: base, Disp: disp} }

func fitsDisp8(d int32) bool { return d >= -0x80 && d <= 0x7f }

// putMem appends the ModR/M (and, for ESP-based operands, SIB) byte
// plus displacement for m, with ro placed in the ModR/M reg
// field. This mirrors x86_mem from the reference header: EBP as a base
// always needs an explicit displacement (mod=01 disp8=0, never mod=00,
// since mod=00/rm=101 means "absolute disp32" on IA-32); ESP as a base
// always needs a SIB byte (rm=100 is the SIB escape); REG_NO signals
// an absolute [disp32] operand.
func (a Asm) putMem(ro byte, m Mem) {
	if m.Base == x86reg.None {
		a.Buf.Emit1(0x00 | ro<<3 | 0x05)
		a.Buf.EmitInt32(m.Disp)
		return
	}
	if m.Base == x86reg.ESP {
		a.putMemSIB(ro, MemSIB{Base: x86reg.ESP, Index: x86reg.None, Disp: m.Disp})
		return
	}
	switch {
	case m.Disp == 0 && m.Base != x86reg.EBP:
		a.Buf.Emit1(0x00 | ro<<3 | reg3(m.Base))
	case fitsDisp8(m.Disp):
		a.Buf.Emit1(0x40 | ro<<3 | reg3(m.Base))
		a.Buf.Emit1(byte(int8(m.Disp)))
	default:
		a.Buf.Emit1(0x80 | ro<<3 | reg3(m.Base))
		a.Buf.EmitInt32(m.Disp)
	}
}

// MemSIB describes [base + index*scale + disp] with an explicit index
// register. Index may be x86reg.None for "no index" (encoded as
// index=100, scale ignored, matching the reference's REG_NO handling);
// Base may be x86reg.None for an index-only absolute-base operand.
type MemSIB struct {
	Base  x86reg.Reg
	Index x86reg.Reg
	Scale uint8 // 1, 2, 4, or 8
	Disp  int32
}

func scaleBits(scale uint8) byte {
	switch scale {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		panic("x86asm: invalid SIB scale, must be 1/2/4/8")
	}
}

// putMemSIB appends the ModR/M+SIB(+disp) bytes for m, with ro in the
// ModR/M reg field. Ported from x86_mem_sib in the reference header.
func (a Asm) putMemSIB(ro byte, m MemSIB) {
	sibIndex := byte(0x20) // index=100 (none), scale bits zero
	if m.Index != x86reg.None {
		sibIndex = scaleBits(m.Scale)<<6 | reg3(m.Index)<<3
	}

	if m.Base == x86reg.None {
		a.Buf.Emit1(0x00 | ro<<3 | 0x04)
		a.Buf.Emit1(sibIndex | 0x05)
		a.Buf.EmitInt32(m.Disp)
		return
	}

	switch {
	case m.Disp == 0 && m.Base != x86reg.EBP:
		a.Buf.Emit1(0x00 | ro<<3 | 0x04)
		a.Buf.Emit1(sibIndex | reg3(m.Base))
	case fitsDisp8(m.Disp):
		a.Buf.Emit1(0x40 | ro<<3 | 0x04)
		a.Buf.Emit1(sibIndex | reg3(m.Base))
		a.Buf.Emit1(byte(int8(m.Disp)))
	default:
		a.Buf.Emit1(0x80 | ro<<3 | 0x04)
		a.Buf.Emit1(sibIndex | reg3(m.Base))
		a.Buf.EmitInt32(m.Disp)
	}
}

// LEASIB emits LEA dst, [base + index*scale + disp]: the scaled-index
// addressing form, used for computing an array-element address (e.g.
// a guest GPR slot addressed by register number) without a separate
// multiply.
func (a Asm) LEASIB(dst x86reg.Reg, m MemSIB) {
	a.Buf.Emit1(0x8d)
	a.putMemSIB(byte(dst), m)
}

// ALURegMemSIB emits `op dst, [mem]` with a scaled-index memory
// operand (register <- memory).
func (a Asm) ALURegMemSIB(op ALUOp, dst x86reg.Reg, m MemSIB) {
	switch op {
	case Mov:
		a.Buf.Emit1(0x8b)
	case Test:
		a.Buf.Emit1(0x85)
	case Xchg:
		a.Buf.Emit1(0x87)
	default:
		a.Buf.Emit1(0x03 + byte(op)<<3)
	}
	a.putMemSIB(byte(dst), m)
}
