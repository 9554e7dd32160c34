package x86asm

import "github.com/ryoon/pearpc/internal/codebuf"

// JMP emits an unconditional jump to the absolute address to, picking
// the short `EB ib` form when the displacement fits a signed byte and
// the near `E9 id` form otherwise. Emission restarts from scratch if
// EmitAssure reports a page rollover (spec.md §4.4, §9): rollover
// moves the cursor, which changes the displacement, so a short-form
// jump computed against the old cursor could become invalid, and an
// already-written near-form jump must be recomputed too.
func (a Asm) JMP(to int32) {
	for {
		here := a.Buf.Addr()
		if disp := to - (here + 2); fitsDisp8(disp) {
			if !a.Buf.EmitAssure(2) {
				continue
			}
			a.Buf.Emit1(0xeb)
			a.Buf.Emit1(byte(int8(disp)))
			return
		}
		disp := to - (here + 5)
		if !a.Buf.EmitAssure(5) {
			continue
		}
		a.Buf.Emit1(0xe9)
		a.Buf.EmitInt32(disp)
		return
	}
}

// Jcc emits a conditional jump to the absolute address to, with the
// same short/near selection and rollover-retry discipline as JMP.
func (a Asm) Jcc(cond Cond, to int32) {
	for {
		here := a.Buf.Addr()
		if disp := to - (here + 2); fitsDisp8(disp) {
			if !a.Buf.EmitAssure(2) {
				continue
			}
			a.Buf.Emit1(0x70 + byte(cond))
			a.Buf.Emit1(byte(int8(disp)))
			return
		}
		disp := to - (here + 6)
		if !a.Buf.EmitAssure(6) {
			continue
		}
		a.Buf.Emit1(0x0f)
		a.Buf.Emit1(0x80 + byte(cond))
		a.Buf.EmitInt32(disp)
		return
	}
}

// JMPFixup emits an unconditional jump whose target is not yet known.
// It always uses the near `E9 id` form with a zeroed displacement and
// returns a Fixup recording the displacement field's position, to be
// patched later with ResolveFixup once the target address is known.
func (a Asm) JMPFixup() codebuf.Fixup {
	for !a.Buf.EmitAssure(5) {
	}
	a.Buf.Emit1(0xe9)
	at := codebuf.Fixup(a.Buf.Addr())
	a.Buf.EmitInt32(0)
	return at
}

// JccFixup emits a conditional jump whose target is not yet known,
// always in the near `0F 8x id` form, returning a Fixup as JMPFixup
// does.
func (a Asm) JccFixup(cond Cond) codebuf.Fixup {
	for !a.Buf.EmitAssure(6) {
	}
	a.Buf.Emit1(0x0f)
	a.Buf.Emit1(0x80 + byte(cond))
	at := codebuf.Fixup(a.Buf.Addr())
	a.Buf.EmitInt32(0)
	return at
}

// ResolveFixup patches the displacement field recorded by JMPFixup or
// JccFixup once the jump target is known.
func (a Asm) ResolveFixup(at codebuf.Fixup, to int32) {
	a.Buf.ResolveFixup(at, to)
}

// CALL emits a near CALL to the absolute address to (always the
// 5-byte `E8 id` form; IA-32 has no useful short call).
func (a Asm) CALL(to int32) {
	for !a.Buf.EmitAssure(5) {
	}
	here := a.Buf.Addr()
	disp := to - (here + 5)
	a.Buf.Emit1(0xe8)
	a.Buf.EmitInt32(disp)
}
