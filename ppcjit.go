// Package ppcjit wires the register allocator, the flag/carry
// tracker, and the x86 code emitter together into the single explicit
// translation context a guest-instruction translator drives (spec.md
// §3, §9). It holds no package-level mutable state: every piece of
// JIT state lives in a Context value, so multiple translations (e.g.
// across goroutines translating independent code-cache entries) never
// interfere with each other.
package ppcjit

import (
	"github.com/ryoon/pearpc/internal/codebuf"
	"github.com/ryoon/pearpc/internal/flagtracker"
	"github.com/ryoon/pearpc/internal/regalloc"
	"github.com/ryoon/pearpc/internal/x86asm"
)

// Config supplies the absolute gCPU addresses a Context needs: the
// XER word and the two external condition-register/carry fold
// helpers. These are collaborator-owned values (spec.md §6) coming
// from the guest CPU image layout and code-cache helper table, both
// explicitly out of scope here; see internal/trapstub for the
// stand-ins used by this module's own tests and demo.
type Config struct {
	XERAddr                int32
	FlushFlagsAddr         int32
	FlushCarryAndFlagsAddr int32
}

// Context is the explicit, non-global JIT translation context spec.md
// §9's Design Notes calls for: one value per in-flight translation
// unit, bundling a register allocator and a flag/carry tracker over a
// shared code buffer.
type Context struct {
	Buf   *codebuf.Buffer
	Asm   x86asm.Asm
	Regs  *regalloc.Allocator
	Flags *flagtracker.Tracker
}

// New builds a Context emitting into buf.
func New(buf *codebuf.Buffer, cfg Config) *Context {
	asm := x86asm.New(buf)
	return &Context{
		Buf:   buf,
		Asm:   asm,
		Regs:  regalloc.New(asm),
		Flags: flagtracker.New(asm, cfg.XERAddr, cfg.FlushFlagsAddr, cfg.FlushCarryAndFlagsAddr),
	}
}

// FlushAll writes back every dirty GPR mapping and folds any dirty
// CR-field/carry materialization into gCPU memory, leaving all
// mappings in place. The flag/carry fold always runs first, matching
// jitcFlushAll's ordering in the reference: GPR stores can be safely
// reordered with respect to each other, but a pending EFLAGS-derived
// fold must happen before anything else touches the flags.
func (c *Context) FlushAll() {
	c.Flags.ClobberCarryAndFlags()
	c.Regs.FlushAll()
}

// ClobberAll writes back and then discards every GPR mapping and the
// flag/carry materialization, for use when control leaves the current
// translation unit entirely (e.g. before an indirect branch or a
// helper call whose effects are opaque to the allocator).
func (c *Context) ClobberAll() {
	c.Flags.ClobberCarryAndFlags()
	c.Regs.ClobberAll()
}

// InvalidateAll discards every GPR mapping and flag/carry
// materialization without emitting any code, for use only when gCPU
// memory itself is being discarded or replaced wholesale (e.g.
// unwinding from a guest exception), so a write-back would be
// actively wrong.
func (c *Context) InvalidateAll() {
	c.Flags.InvalidateAll()
	c.Regs.InvalidateAll()
}
