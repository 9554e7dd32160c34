// Package regalloc implements the register allocator policy layer
// described in spec.md §4.2: it turns a request (AllocRegister,
// MapClientRegisterDirty, GetClientRegister, GetClientRegisterDirty)
// into a concrete host register, evicting and emitting code as
// needed, and leaves internal/regfile's Table as the single source of
// truth for what is currently mapped where.
package regalloc

import (
	"github.com/sirupsen/logrus"

	"github.com/ryoon/pearpc/internal/ppc"
	"github.com/ryoon/pearpc/internal/regfile"
	"github.com/ryoon/pearpc/internal/x86asm"
	"github.com/ryoon/pearpc/internal/x86reg"
)

// Allocator binds a register-file Table to the assembler it emits
// spill/fill/swap code into.
type Allocator struct {
	Regs *regfile.Table
	Asm  x86asm.Asm
	Log  logrus.FieldLogger
}

// New builds an Allocator over a freshly created register file.
func New(asm x86asm.Asm) *Allocator {
	return &Allocator{Regs: regfile.New(), Asm: asm, Log: logrus.StandardLogger()}
}

func guestAddr(g ppc.Register) x86asm.Mem { return x86asm.Abs(int32(g)) }

// store emits the write-back for a Dirty host register and marks it
// clean, without touching its mapping otherwise.
func (a *Allocator) store(r x86reg.Reg) {
	g := a.Regs.ClientOf(r)
	a.Asm.ALUMemReg(x86asm.Mov, guestAddr(g), r)
	a.Regs.MarkClean(r)
}

// evict frees r unconditionally: storing its value first if Dirty,
// then discarding the mapping. Mirrors jitcFlushSingleRegister +
// jitcDiscardRegister composed, the sequence the reference always
// uses before reassigning a register to a new purpose.
func (a *Allocator) evict(r x86reg.Reg) {
	if a.Regs.State(r) == regfile.Dirty {
		a.store(r)
	}
	a.Regs.Discard(r)
}

// pickVictim walks the LRU list from least- to most-recently-used and
// returns the first register satisfying byteOnly, evicting it if
// necessary. Unused registers are returned without eviction (they are
// trivially their own "victim"). Mirrors jitcAllocRegister's walk,
// which only considers registers r with r <= EBX when byteOnly holds.
func (a *Allocator) pickVictim(byteOnly bool) x86reg.Reg {
	for _, r := range a.Regs.LRUOrder() {
		if byteOnly && !r.ByteAddressable() {
			continue
		}
		if a.Regs.State(r) != regfile.Unused {
			a.evict(r)
		}
		return r
	}
	panic("regalloc: no eligible register in LRU order (table corrupt)")
}

// checkOptions rejects the one combination the reference never
// implements: a byte-addressable request pinned to a specific
// register at the same time. spec.md §4.2 leaves this an Open
// Question; we resolve it the way the reference resolves every
// "can't happen" case -- abort loudly rather than silently picking one
// constraint over the other.
func (a *Allocator) checkOptions(opts Options) {
	if opts.RequiresByte() && opts.IsSpecific() {
		a.Log.WithField("options", opts).Fatal("regalloc: NativeReg8 combined with NativeReg is not supported")
	}
}

// AllocRegister returns a register whose prior contents the caller
// does not care about (spec.md §4.2.1): a scratch register for a
// constant load, an intermediate computation, and so on. If eviction
// is required, the evicted value is written back but the returned
// register is left Unused -- callers that want it tracked as a guest
// mapping must call MapClientRegisterDirty or GetClientRegister(Dirty)
// instead.
func (a *Allocator) AllocRegister(opts Options) x86reg.Reg {
	a.checkOptions(opts)
	switch {
	case opts.IsSpecific():
		r := opts.Reg()
		if a.Regs.State(r) != regfile.Unused {
			a.evict(r)
		}
		return r
	default:
		return a.pickVictim(opts.RequiresByte())
	}
}

// MapClientRegisterDirty maps g onto a host register without loading
// g's current value (spec.md §4.2.2): used when g is about to be
// overwritten wholesale, so reading its old value first would be
// wasted work. If a specific register is requested and it already
// mirrors a different guest register h that is itself currently
// mapped to another register m, the mapping is exchanged via XCHG or
// MOV exactly as jitcMapClientRegisterDirty does, so that g ends up in
// the requested register without an extra load.
func (a *Allocator) MapClientRegisterDirty(g ppc.Register, opts Options) x86reg.Reg {
	a.checkOptions(opts)
	if r := a.Regs.HostOf(g); r != x86reg.None {
		// Already mapped; if a specific register was requested and it
		// isn't this one, move the mapping there first.
		if opts.IsSpecific() && opts.Reg() != r {
			r = a.moveMapping(g, r, opts.Reg())
		}
		a.Regs.Dirty(r)
		a.Regs.Touch(r)
		return r
	}

	if !opts.IsSpecific() {
		r := a.pickVictim(opts.RequiresByte())
		a.Regs.Map(r, g, regfile.Dirty)
		return r
	}

	want := opts.Reg()
	if a.Regs.State(want) == regfile.Unused {
		a.Regs.Map(want, g, regfile.Dirty)
		return want
	}

	// want is occupied by some other guest register h. Relocate h out
	// of the way by moving it into a scratch register with a MOV, as
	// jitcMapClientRegisterDirty's specific-register branch does,
	// rather than spilling h to memory and reloading later.
	h := a.Regs.ClientOf(want)
	hState := a.Regs.State(want)
	tmp := a.pickVictim(false)
	if tmp != want {
		a.relocate(tmp, want)
		a.Regs.Unmap(want)
		a.Regs.Map(tmp, h, hState)
	}
	// If tmp == want, want was itself the LRU victim: pickVictim already
	// evicted it (storing h if dirty), so there is nothing left to
	// relocate and want is already Unused.
	a.Regs.Map(want, g, regfile.Dirty)
	return want
}

// moveMapping relocates the guest register g (currently in from) into
// to, preserving from's value by swapping it with whatever to was
// previously mapped to exchange mapping occupants are preserved in
// each other's old slot and the state (Mapped/Dirty) travels with the
// value.
func (a *Allocator) moveMapping(g ppc.Register, from, to x86reg.Reg) x86reg.Reg {
	fromState := a.Regs.State(from)
	if a.Regs.State(to) == regfile.Unused {
		a.Asm.ALURegReg(x86asm.Mov, to, from)
		a.Regs.Unmap(from)
		a.Regs.Map(to, g, fromState)
		return to
	}
	h := a.Regs.ClientOf(to)
	hState := a.Regs.State(to)
	a.swapOrMove(from, to)
	a.Regs.Unmap(from)
	a.Regs.Unmap(to)
	a.Regs.Map(to, g, fromState)
	a.Regs.Map(from, h, hState)
	return to
}

// swapOrMove exchanges the contents of a and b with the raw
// (non-short-form) XCHG encoding: used when both registers hold a
// live guest mapping that must survive the operation (spec.md §4.2.3;
// see x86asm.XCHGRaw's doc comment on why the raw form, not the EAX
// short-form optimization, is used for allocator bookkeeping).
func (a *Allocator) swapOrMove(a1, b x86reg.Reg) {
	a.Asm.XCHGRaw(a1, b)
}

// relocate moves src's value into dst with a plain MOV: used when
// src's own old slot is about to be overwritten by something else
// anyway, so there is nothing left in it that needs preserving.
func (a *Allocator) relocate(dst, src x86reg.Reg) {
	a.Asm.ALURegReg(x86asm.Mov, dst, src)
}

// GetClientRegister returns a host register holding g's current
// value, loading it from gCPU memory if it is not already mapped
// (spec.md §4.2.3). A newly loaded mapping is Mapped; an existing
// mapping keeps its state (Mapped or Dirty).
func (a *Allocator) GetClientRegister(g ppc.Register, opts Options) x86reg.Reg {
	a.checkOptions(opts)
	return a.getClientRegister(g, opts, regfile.Mapped)
}

// GetClientRegisterDirty is GetClientRegister immediately followed by
// marking the result Dirty (spec.md §4.2.4): the common "read-modify"
// pattern, folded into one call so the caller can't forget the Dirty
// half.
func (a *Allocator) GetClientRegisterDirty(g ppc.Register, opts Options) x86reg.Reg {
	a.checkOptions(opts)
	return a.getClientRegister(g, opts, regfile.Dirty)
}

func (a *Allocator) getClientRegister(g ppc.Register, opts Options, finalState regfile.State) x86reg.Reg {
	if r := a.Regs.HostOf(g); r != x86reg.None {
		switch {
		case opts.IsSpecific() && opts.Reg() != r:
			r = a.moveMapping(g, r, opts.Reg())
		case opts.RequiresByte() && !r.ByteAddressable():
			// g is mapped to a register with no byte sub-register
			// (ESI/EDI/EBP); relocate it into a byte-addressable one
			// (spec.md §4.2.5), matching the reference's
			// client_reg_maps_to > EBX handling.
			r = a.moveMapping(g, r, a.pickVictim(true))
		}
		if finalState == regfile.Dirty {
			a.Regs.Dirty(r)
		}
		a.Regs.Touch(r)
		return r
	}

	if !opts.IsSpecific() {
		r := a.pickVictim(opts.RequiresByte())
		a.Asm.ALURegMem(x86asm.Mov, r, guestAddr(g))
		a.Regs.Map(r, g, finalState)
		return r
	}

	want := opts.Reg()
	if a.Regs.State(want) == regfile.Unused {
		a.Asm.ALURegMem(x86asm.Mov, want, guestAddr(g))
		a.Regs.Map(want, g, finalState)
		return want
	}

	// want is occupied by some other guest register h; spill h (if
	// dirty) and discard its mapping, then load g straight into want.
	// Matches jitcAllocFixedRegister+jitcLoadRegister in the reference:
	// no scratch register is involved, so this never evicts a third,
	// unrelated register just to host a relocation.
	a.evict(want)
	a.Asm.ALURegMem(x86asm.Mov, want, guestAddr(g))
	a.Regs.Map(want, g, finalState)
	return want
}

// FlushRegister writes r back to gCPU memory if Dirty and marks it
// clean, leaving it mapped (spec.md §4.2.6). A no-op if r is Unused or
// already clean.
func (a *Allocator) FlushRegister(r x86reg.Reg) {
	if a.Regs.State(r) == regfile.Dirty {
		a.store(r)
	}
}

// FlushClientRegister flushes the host register currently mirroring
// g, if any.
func (a *Allocator) FlushClientRegister(g ppc.Register) {
	if r := a.Regs.HostOf(g); r != x86reg.None {
		a.FlushRegister(r)
	}
}

// ClobberRegister writes r back if Dirty and then discards its
// mapping entirely, for use when r's host register is about to be
// overwritten by something outside the allocator's knowledge (e.g. a
// helper call that clobbers EAX).
func (a *Allocator) ClobberRegister(r x86reg.Reg) {
	if a.Regs.State(r) != regfile.Unused {
		a.evict(r)
	}
}

// ClobberClientRegister clobbers the host register mirroring g, if
// any.
func (a *Allocator) ClobberClientRegister(g ppc.Register) {
	if r := a.Regs.HostOf(g); r != x86reg.None {
		a.ClobberRegister(r)
	}
}

// FlushAll writes back every Dirty register, leaving all mappings in
// place (spec.md §4.2.6), typically emitted at a basic block exit that
// falls through to already-translated code expecting gCPU memory to
// be current.
func (a *Allocator) FlushAll() {
	for _, r := range x86reg.Allocatable {
		a.FlushRegister(r)
	}
}

// ClobberAll flushes and discards every mapped register (spec.md
// §4.2.6), used when control leaves the block entirely (e.g. an
// indirect branch) and no mapping can be assumed live on the other
// side.
func (a *Allocator) ClobberAll() {
	for _, r := range x86reg.Allocatable {
		a.ClobberRegister(r)
	}
}

// InvalidateAll discards every mapping without emitting any code
// (spec.md §4.2.6): used only when gCPU memory itself is about to be
// discarded or replaced wholesale (e.g. unwinding from an exception),
// so writing back stale values would be actively wrong.
func (a *Allocator) InvalidateAll() {
	a.Regs.InvalidateAll()
}
