// Package x86asm is the pure-function IA-32 byte emitter (spec.md §4.4,
// the "Encoder" component). It never consults register-allocator
// state; every function here appends bytes for exactly the
// instruction named, choosing among the encodings spec.md enumerates
// whichever is shortest.
package x86asm

import (
	"github.com/ryoon/pearpc/internal/codebuf"
	"github.com/ryoon/pearpc/internal/x86reg"
)

// ALUOp identifies one of the eleven instructions in the "ALU family"
// (spec.md §4.4). The numeric values of the group-encodable ops
// (Add..Cmp) match the x86 opcode-extension field used by the
// 0x80/0x81/0x83 immediate-group and the 0x00-0x3B two-operand forms;
// Mov, Test, and Xchg are handled with their own opcodes and carry
// values past the 3-bit group field on purpose, to trap misuse if
// ever shifted into it.
type ALUOp uint8

const (
	Add ALUOp = 0
	Or  ALUOp = 1
	Adc ALUOp = 2
	Sbb ALUOp = 3
	And ALUOp = 4
	Sub ALUOp = 5
	Xor ALUOp = 6
	Cmp ALUOp = 7

	Mov  ALUOp = 8
	Test ALUOp = 9
	Xchg ALUOp = 10
)

// Asm emits IA-32 machine code into a codebuf.Buffer. It carries no
// state of its own beyond the buffer reference: the same Asm value
// can be reused for any number of instructions.
type Asm struct {
	Buf *codebuf.Buffer
}

func New(buf *codebuf.Buffer) Asm { return Asm{Buf: buf} }

func reg3(r x86reg.Reg) byte { return byte(r) & 7 }

// modrmRegReg appends a single ModR/M byte for a register-register
// operand pair: reg field = ro, r/m field = rm.
func (a Asm) modrmRegReg(ro, rm x86reg.Reg) {
	a.Buf.Emit1(0xc0 | reg3(ro)<<3 | reg3(rm))
}

// ALURegReg emits `op dst, src` (Reg<->Reg form), choosing the
// shortest legal encoding: MOV/TEST/XCHG use their own opcodes (XCHG
// additionally prefers the single-byte `90+r` form when either
// operand is EAX, per spec.md §4.4); the rest use the `0x01+op*8 /r`
// Ev,Gv opcode, with dst in the ModR/M r/m field and src in the reg
// field.
func (a Asm) ALURegReg(op ALUOp, dst, src x86reg.Reg) {
	switch op {
	case Mov:
		a.Buf.Emit1(0x8b)
		a.modrmRegReg(dst, src)
	case Test:
		a.Buf.Emit1(0x85)
		a.modrmRegReg(dst, src) // symmetric
	case Xchg:
		switch {
		case dst == x86reg.EAX:
			a.Buf.Emit1(0x90 + byte(src))
		case src == x86reg.EAX:
			a.Buf.Emit1(0x90 + byte(dst))
		default:
			a.Buf.Emit1(0x87)
			a.modrmRegReg(dst, src)
		}
	default:
		a.Buf.Emit1(0x01 + byte(op)<<3)
		a.modrmRegReg(src, dst)
	}
}

// XCHGRaw emits the general two-byte ModR/M form of XCHG
// unconditionally, with regField placed in the ModR/M reg field and
// rmField in the r/m field. Unlike ALURegReg(Xchg, ...), it never
// substitutes the single-byte `90+r` short form.
//
// The register allocator's specific-register satisfaction path
// (spec.md §4.2.3) uses this directly: its documented scenario (S2)
// pins the general-form bytes even though one operand is EAX, so the
// bookkeeping swap must not apply the encoder-level short-form
// optimization that ALURegReg offers to ordinary translator code.
func (a Asm) XCHGRaw(regField, rmField x86reg.Reg) {
	a.Buf.Emit1(0x87)
	a.modrmRegReg(regField, rmField)
}

// ALURegImm emits `op reg, imm` (Reg<->Imm form).
//
//   - MOV reg, 0 is rewritten to XOR reg, reg (spec.md §4.4): smaller,
//     and it sets flags, so the caller must have already clobbered the
//     flag tracker.
//   - MOV with a nonzero immediate uses the flags-preserving `B8+r id`
//     form (asmMOVRegImm_NoFlags in the reference).
//   - TEST uses the byte/ax-class reductions implemented in TESTRegImm.
//   - Everything else prefers the signed-8-bit `83 /r ib` form when
//     imm fits, the EAX short form `05+op*8 id` when reg is EAX,
//     else the general `81 /r id` form.
func (a Asm) ALURegImm(op ALUOp, reg x86reg.Reg, imm int32) {
	switch op {
	case Mov:
		if imm == 0 {
			a.ALURegReg(Xor, reg, reg)
		} else {
			a.Buf.Emit1(0xb8 + byte(reg))
			a.Buf.EmitInt32(imm)
		}
	case Xchg:
		panic("x86asm: XCHG does not take an immediate operand")
	case Test:
		a.TESTRegImm(reg, imm)
	default:
		a.aluRegImmGeneral(op, reg, imm)
	}
}

func fitsInt8(v int32) bool { return v >= -0x80 && v <= 0x7f }

func (a Asm) aluRegImmGeneral(op ALUOp, reg x86reg.Reg, imm int32) {
	if fitsInt8(imm) {
		a.Buf.Emit1(0x83)
		a.Buf.Emit1(0xc0 | byte(op)<<3 | reg3(reg))
		a.Buf.Emit1(byte(int8(imm)))
		return
	}
	if reg == x86reg.EAX {
		a.Buf.Emit1(0x05 + byte(op)<<3)
		a.Buf.EmitInt32(imm)
		return
	}
	a.Buf.Emit1(0x81)
	a.Buf.Emit1(0xc0 | byte(op)<<3 | reg3(reg))
	a.Buf.EmitInt32(imm)
}

// TESTRegImm emits `TEST reg, imm`, reducing to a byte-sized form when
// possible (spec.md §4.4): `TEST r8, imm8` when reg is byte-addressable
// and imm fits a byte (with the `A8 ib` EAX short form when reg is
// EAX), `TEST ah-class, imm8` when only byte 1 of imm is nonzero, and
// the full 32-bit `A9 id` / `F7 /0 id` form otherwise.
func (a Asm) TESTRegImm(reg x86reg.Reg, imm int32) {
	u := uint32(imm)
	if reg.ByteAddressable() {
		if u <= 0xff {
			if reg == x86reg.EAX {
				a.Buf.Emit1(0xa8)
				a.Buf.Emit1(byte(u))
			} else {
				a.Buf.Emit1(0xf6)
				a.Buf.Emit1(0xc0 + byte(reg))
				a.Buf.Emit1(byte(u))
			}
			return
		}
		if u&0xffff00ff == 0 {
			a.Buf.Emit1(0xf6)
			a.Buf.Emit1(0xc4 + byte(reg))
			a.Buf.Emit1(byte(u >> 8))
			return
		}
	}
	if reg == x86reg.EAX {
		a.Buf.Emit1(0xa9)
		a.Buf.EmitInt32(imm)
		return
	}
	a.Buf.Emit1(0xf7)
	a.Buf.Emit1(0xc0 + byte(reg))
	a.Buf.EmitInt32(imm)
}

// ALURegReg8 emits the byte-operand form `op reg1, reg2`.
func (a Asm) ALURegReg8(op ALUOp, reg1, reg2 x86reg.Reg8) {
	rr := func(opcode byte) {
		a.Buf.Emit1(opcode)
		a.Buf.Emit1(0xc0 | byte(reg1)<<3 | byte(reg2))
	}
	switch op {
	case Mov:
		rr(0x8a)
	case Test:
		rr(0x84)
	case Xchg:
		rr(0x86)
	default:
		rr(0x02 + byte(op)<<3)
	}
}
