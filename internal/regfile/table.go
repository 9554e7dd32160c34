// Package regfile holds the host register file state table: which of
// the eight IA-32 integer registers currently stand in for a guest PPC
// register, whether that mapping is dirty (needs a writeback before
// it can be discarded), and an LRU order used to pick eviction
// victims. It has no opinion about encoding or policy -- that's
// internal/x86asm and internal/regalloc -- only the bookkeeping
// primitives spec.md §4.1 and §9 name (jitcMapRegister,
// jitcUnmapRegister, jitcTouchRegister, ... in the reference).
package regfile

import (
	"github.com/ryoon/pearpc/internal/ppc"
	"github.com/ryoon/pearpc/internal/x86reg"
)

// State is the three-valued status of a host register slot.
type State uint8

const (
	// Unused: the register holds no guest value and may be handed out
	// by AllocRegister without a writeback.
	Unused State = iota
	// Mapped: the register mirrors a guest register's value and the
	// mirror is in sync with gCPU memory; it can be discarded for free
	// but must not be reused without first unmapping.
	Mapped
	// Dirty: the register mirrors a guest register whose in-register
	// value is newer than gCPU memory; eviction requires a store.
	Dirty
)

// Table is the register file state for all seven allocatable host
// registers (ESP is never tracked here).
type Table struct {
	nativeRegState [8]State
	nativeReg      [8]ppc.Register // guest register mapped into this host register, or ppc.None
	clientReg      map[ppc.Register]x86reg.Reg

	// lruPrev/lruNext form a doubly linked list over x86reg.Allocatable,
	// ordered least-recently-used (head) to most-recently-used (tail).
	// Indexed by x86reg.Reg; entries for ESP are unused.
	lruPrev, lruNext [8]x86reg.Reg
	lruHead, lruTail x86reg.Reg
}

// New returns a table with every allocatable register Unused, ordered
// arbitrarily (ascending) on the LRU list.
func New() *Table {
	t := &Table{clientReg: make(map[ppc.Register]x86reg.Reg)}
	prev := x86reg.None
	for i, r := range x86reg.Allocatable {
		t.nativeReg[r] = ppc.None
		t.lruPrev[r] = prev
		if i > 0 {
			t.lruNext[prev] = r
		} else {
			t.lruHead = r
		}
		prev = r
	}
	t.lruNext[prev] = x86reg.None
	t.lruTail = prev
	return t
}

// State reports the current state of r.
func (t *Table) State(r x86reg.Reg) State { return t.nativeRegState[r] }

// ClientOf reports which guest register r currently mirrors, or
// ppc.None if r is Unused.
func (t *Table) ClientOf(r x86reg.Reg) ppc.Register { return t.nativeReg[r] }

// HostOf reports which host register currently mirrors g, or
// x86reg.None if g is not mapped.
func (t *Table) HostOf(g ppc.Register) x86reg.Reg {
	if r, ok := t.clientReg[g]; ok {
		return r
	}
	return x86reg.None
}

// Map installs r as the mirror of g, in the given state (Mapped or
// Dirty), and moves r to the most-recently-used end of the LRU list.
// r must currently be Unused.
func (t *Table) Map(r x86reg.Reg, g ppc.Register, state State) {
	if t.nativeRegState[r] != Unused {
		panic("regfile: Map called on a register that is not Unused: " + r.String())
	}
	if state == Unused {
		panic("regfile: Map requires Mapped or Dirty, not Unused")
	}
	t.nativeRegState[r] = state
	t.nativeReg[r] = g
	t.clientReg[g] = r
	t.touchLocked(r)
}

// Unmap clears r's mapping unconditionally, without emitting a store.
// Callers are responsible for having already written back a Dirty
// register if its value must survive (spec.md §4.1's "Unmap" does not
// itself flush -- evict in internal/regalloc composes the store with
// Discard, which unmaps).
func (t *Table) Unmap(r x86reg.Reg) {
	g := t.nativeReg[r]
	if g != ppc.None {
		delete(t.clientReg, g)
	}
	t.nativeReg[r] = ppc.None
	t.nativeRegState[r] = Unused
}

// Dirty marks r (which must already be Mapped or Dirty) as Dirty.
func (t *Table) Dirty(r x86reg.Reg) {
	if t.nativeRegState[r] == Unused {
		panic("regfile: Dirty called on an Unused register: " + r.String())
	}
	t.nativeRegState[r] = Dirty
}

// MarkClean downgrades r from Dirty to Mapped, used once the
// allocator has written r's value back to gCPU memory. A no-op if r
// is already Mapped or Unused.
func (t *Table) MarkClean(r x86reg.Reg) {
	if t.nativeRegState[r] == Dirty {
		t.nativeRegState[r] = Mapped
	}
}

// Touch moves r to the most-recently-used end of the LRU list. Unlike
// Map, it does not alter State or the guest mapping.
//
// The reference implementation's jitcDiscardRegister has a FIXME
// noting it should move its register to the front of the LRU list but
// doesn't; Discard below reproduces that exact (non-)behavior rather
// than "fixing" it, since spec.md §9 carries the reference's observed
// behavior forward as the contract, not the comment's aspiration.
func (t *Table) Touch(r x86reg.Reg) {
	t.touchLocked(r)
}

func (t *Table) touchLocked(r x86reg.Reg) {
	if t.lruTail == r {
		return
	}
	t.unlink(r)
	t.appendTail(r)
}

// Discard clears r's mapping the way jitcDiscardRegister does: same
// effect as Unmap, but -- per the reference's FIXME -- it does NOT
// touch r's LRU position first, so a just-discarded register is not
// necessarily preferred for reuse; whatever slot it occupied in the
// LRU order when it was mapped is where it stays.
func (t *Table) Discard(r x86reg.Reg) {
	t.Unmap(r)
}

func (t *Table) unlink(r x86reg.Reg) {
	p, n := t.lruPrev[r], t.lruNext[r]
	if p != x86reg.None {
		t.lruNext[p] = n
	} else {
		t.lruHead = n
	}
	if n != x86reg.None {
		t.lruPrev[n] = p
	} else {
		t.lruTail = p
	}
}

func (t *Table) appendTail(r x86reg.Reg) {
	t.lruPrev[r] = t.lruTail
	t.lruNext[r] = x86reg.None
	if t.lruTail != x86reg.None {
		t.lruNext[t.lruTail] = r
	} else {
		t.lruHead = r
	}
	t.lruTail = r
}

// LRUOrder returns the allocatable registers from least- to
// most-recently-used. Used by the allocator's victim-selection walk
// and by tests asserting LRU well-formedness (invariant I2).
func (t *Table) LRUOrder() []x86reg.Reg {
	out := make([]x86reg.Reg, 0, len(x86reg.Allocatable))
	for r := t.lruHead; r != x86reg.None; r = t.lruNext[r] {
		out = append(out, r)
	}
	return out
}

// InvalidateAll resets every register to Unused without emitting any
// code, and clears the reverse map -- jitcInvalidateAll in the
// reference is a memset, used only when gCPU state is being discarded
// wholesale (e.g. an exception unwind), never mid-translation.
func (t *Table) InvalidateAll() {
	for _, r := range x86reg.Allocatable {
		t.nativeReg[r] = ppc.None
		t.nativeRegState[r] = Unused
	}
	for g := range t.clientReg {
		delete(t.clientReg, g)
	}
}
