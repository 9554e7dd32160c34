// Package flagtracker mirrors PPC condition-register fields and the
// XER carry bit in host EFLAGS/CF, materializing at most one CR field
// and the carry bit at a time and folding them back into gCPU memory
// lazily (spec.md §9). Folding the real bit patterns (EFLAGS -> a PPC
// CR field's 4-bit encoding) is the job of the external helpers
// ppc_flush_flags_asm / ppc_flush_carry_and_flags_asm -- out of scope
// here per spec.md §1 -- so this package only ever calls them; see
// internal/trapstub for the stand-ins used in tests.
package flagtracker

import (
	"github.com/ryoon/pearpc/internal/ppc"
	"github.com/ryoon/pearpc/internal/x86asm"
)

// FlagsState tracks whether EFLAGS currently holds a valid, unflushed
// materialization of some PPC CR field.
type FlagsState uint8

const (
	FlagsUnknown FlagsState = iota
	FlagsDirty
)

// CarryState tracks host CF's relationship to PPC XER[CA].
type CarryState uint8

const (
	// CarryUnknown: CF does not reliably mirror XER[CA]; it must be
	// re-derived with a BT before it can be trusted.
	CarryUnknown CarryState = iota
	// CarryValid: CF mirrors XER[CA] and gCPU memory agrees (a clean
	// cached read, nothing to write back).
	CarryValid
	// CarryDirty: CF mirrors XER[CA] but gCPU memory is stale and must
	// be folded before CF can be clobbered.
	CarryDirty
)

// Tracker holds the flag/carry materialization state for one
// translation context, plus the absolute addresses it needs to read
// and write gCPU's XER word and to call the two flush helpers.
type Tracker struct {
	Asm x86asm.Asm

	// XERAddr is the absolute address of gCPU's 32-bit XER word.
	XERAddr int32
	// FlushFlagsAddr and FlushCarryAndFlagsAddr are the absolute
	// addresses of ppc_flush_flags_asm and
	// ppc_flush_carry_and_flags_asm respectively.
	FlushFlagsAddr         int32
	FlushCarryAndFlagsAddr int32

	flagsState FlagsState
	flagsField ppc.CRField
	carryState CarryState
}

// New builds a Tracker. xerAddr, flushFlagsAddr and
// flushCarryAndFlagsAddr are collaborator-supplied addresses (spec.md
// §6); both start clean (Unknown).
func New(asm x86asm.Asm, xerAddr, flushFlagsAddr, flushCarryAndFlagsAddr int32) *Tracker {
	return &Tracker{
		Asm:                    asm,
		XERAddr:                xerAddr,
		FlushFlagsAddr:         flushFlagsAddr,
		FlushCarryAndFlagsAddr: flushCarryAndFlagsAddr,
	}
}

// MapFlagsDirty records that the caller is about to emit an
// instruction whose EFLAGS result represents cr. If a different CR
// field is already dirty, it is folded back to memory first so its
// value is not lost (spec.md §9's "clobber before clobbering"
// invariant).
func (t *Tracker) MapFlagsDirty(cr ppc.CRField) {
	if t.flagsState == FlagsDirty && t.flagsField != cr {
		t.ClobberFlags()
	}
	t.flagsState = FlagsDirty
	t.flagsField = cr
}

// MapCarryDirty records that the caller is about to emit an
// instruction whose CF result represents XER[CA]. Any previously
// dirty carry is folded back first.
func (t *Tracker) MapCarryDirty() {
	if t.carryState == CarryDirty {
		t.ClobberCarry()
	}
	t.carryState = CarryDirty
}

// GetClientCarry ensures CF mirrors XER[CA], loading it from memory
// with a BT if it is not already valid. Because BT clobbers the other
// arithmetic flags, any dirty CR field materialization is flushed
// first.
func (t *Tracker) GetClientCarry() {
	if t.carryState != CarryUnknown {
		return
	}
	t.ClobberFlags()
	t.Asm.BitMemImm(x86asm.BT, x86asm.Abs(t.XERAddr), ppc.CarryBitIndex)
	t.carryState = CarryValid
}

// ClobberFlags folds a dirty CR-field materialization back into gCPU
// memory, then marks EFLAGS as holding nothing trustworthy. A no-op if
// nothing is dirty. When carry is simultaneously dirty, it delegates
// to ClobberCarryAndFlags instead of calling ppc_flush_flags_asm alone
// -- otherwise the carry fold would be silently dropped (CF is about
// to be clobbered right along with the rest of EFLAGS).
func (t *Tracker) ClobberFlags() {
	if t.flagsState != FlagsDirty {
		return
	}
	if t.carryState == CarryDirty {
		t.ClobberCarryAndFlags()
		return
	}
	t.Asm.CALL(t.FlushFlagsAddr)
	t.flagsState = FlagsUnknown
}

// ClobberCarry folds a dirty carry bit back into XER[CA]. When a CR
// field is simultaneously dirty, it delegates to
// ClobberCarryAndFlags so only one call is emitted. Otherwise it folds
// CF into the XER byte inline with a branch rather than a call,
// exactly as jitcClobberCarry does: `JNC skip; OR [xer_byte], mask;
// JMP done; skip: AND [xer_byte], ~mask; done:`.
func (t *Tracker) ClobberCarry() {
	if t.carryState != CarryDirty {
		return
	}
	if t.flagsState == FlagsDirty {
		t.ClobberCarryAndFlags()
		return
	}

	toClear := t.Asm.JccFixup(x86asm.NC)
	t.Asm.ORAbsImm(t.XERAddr+ppc.CarryByteOffset, uint32(ppc.CarryByteMask))
	done := t.Asm.JMPFixup()
	t.Asm.ResolveFixup(toClear, t.Asm.Buf.Addr())
	t.Asm.ANDAbsImm(t.XERAddr+ppc.CarryByteOffset, ^uint32(ppc.CarryByteMask))
	t.Asm.ResolveFixup(done, t.Asm.Buf.Addr())

	// The AND/OR/Jcc sequence above clobbers CF itself, so it no
	// longer mirrors XER[CA] even though memory now agrees with what
	// it mirrored a moment ago.
	t.carryState = CarryUnknown
}

// ClobberCarryAndFlags folds a dirty CR field and a dirty carry bit
// back to memory. When both are dirty it emits a single call to
// ppc_flush_carry_and_flags_asm (spec.md scenario S6: exactly one
// `E8 <rel32>` CALL); when only one is dirty it falls back to
// ClobberFlags or ClobberCarry. A no-op if neither is dirty.
func (t *Tracker) ClobberCarryAndFlags() {
	if t.flagsState == FlagsDirty && t.carryState == CarryDirty {
		t.Asm.CALL(t.FlushCarryAndFlagsAddr)
		t.flagsState = FlagsUnknown
		t.carryState = CarryUnknown
		return
	}
	t.ClobberFlags()
	t.ClobberCarry()
}

// InvalidateAll resets both the flags and carry trackers to Unknown
// without emitting any code, for use when gCPU memory itself is being
// discarded wholesale (spec.md §4.2.6) and any pending fold would
// write back data that no longer matters.
func (t *Tracker) InvalidateAll() {
	t.flagsState = FlagsUnknown
	t.carryState = CarryUnknown
}

// FlushCarryAndFlagsDirty unconditionally calls
// ppc_flush_carry_and_flags_asm regardless of dirty state. It mirrors
// the reference's debug-only consistency check (asmCALL is emitted
// even when jitcAssembler believes nothing is dirty, to catch a
// tracker bug that thinks memory is current when it isn't) and is
// intended for use in tests, not translation hot paths.
func (t *Tracker) FlushCarryAndFlagsDirty() {
	t.Asm.CALL(t.FlushCarryAndFlagsAddr)
	t.flagsState = FlagsUnknown
	t.carryState = CarryUnknown
}
