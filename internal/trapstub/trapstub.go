// Package trapstub provides minimal, hand-assembled stand-ins for the
// two external helpers the flag/carry tracker calls --
// ppc_flush_flags_asm and ppc_flush_carry_and_flags_asm. Folding an
// x86 EFLAGS snapshot into a PPC condition-register field is
// explicitly out of scope here (spec.md §1); these stubs exist only so
// that integration tests and the demo CLI have a real, callable
// address to CALL into and RET from.
package trapstub

import "github.com/ryoon/pearpc/internal/codebuf"

// Emit appends a single-byte RET (0xC3) at the current cursor and
// returns its address, suitable as a CALL target that immediately
// returns without touching any register or memory.
func Emit(buf *codebuf.Buffer) int32 {
	addr := buf.Addr()
	buf.Emit1(0xc3)
	return addr
}
