package regalloc_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryoon/pearpc/internal/codebuf"
	"github.com/ryoon/pearpc/internal/ppc"
	"github.com/ryoon/pearpc/internal/regalloc"
	"github.com/ryoon/pearpc/internal/regfile"
	"github.com/ryoon/pearpc/internal/x86asm"
	"github.com/ryoon/pearpc/internal/x86reg"
)

// fatalPanics builds a logger whose Fatal calls panic instead of
// os.Exit, so tests can assert on the combined-request abort path
// without killing the test binary.
func fatalPanics() *logrus.Logger {
	l := logrus.New()
	l.ExitFunc = func(code int) { panic("regalloc: fatal") }
	return l
}

const (
	r3 = ppc.Register(0x1000)
	r4 = ppc.Register(0x1004)
)

func newAllocator() (*regalloc.Allocator, *codebuf.Buffer) {
	buf := codebuf.New()
	asm := x86asm.New(buf)
	return regalloc.New(asm), buf
}

// S2: specific-register swap. With EAX<->r3 and ECX<->r4 already
// mapped, requesting r3 pinned to ECX emits the general two-byte XCHG
// form exchanging EAX and ECX.
func TestScenarioS2SpecificRegisterSwap(t *testing.T) {
	a, buf := newAllocator()
	a.Regs.Map(x86reg.EAX, r3, regfile.Mapped)
	a.Regs.Map(x86reg.ECX, r4, regfile.Mapped)

	got := a.GetClientRegister(r3, regalloc.WithReg(x86reg.ECX))

	assert.Equal(t, x86reg.ECX, got)
	assert.Equal(t, []byte{0x87, 0xc1}, buf.Bytes())
	assert.Equal(t, x86reg.ECX, a.Regs.HostOf(r3))
	assert.Equal(t, x86reg.EAX, a.Regs.HostOf(r4))
}

// R1: calling GetClientRegister twice in a row for the same guest
// register with no intervening clobber is idempotent -- the second
// call emits no additional code and returns the same register.
func TestRoundTripGetClientRegisterIdempotent(t *testing.T) {
	a, buf := newAllocator()
	r1 := a.GetClientRegister(r3, regalloc.Any)
	afterFirst := append([]byte(nil), buf.Bytes()...)
	r2 := a.GetClientRegister(r3, regalloc.Any)

	assert.Equal(t, r1, r2)
	assert.Equal(t, afterFirst, buf.Bytes())
}

// R2: mapping a register dirty and then flushing it emits exactly one
// store; flushing again (still clean) emits nothing more.
func TestRoundTripSingleStoreOnMapThenFlush(t *testing.T) {
	a, buf := newAllocator()
	r := a.MapClientRegisterDirty(r3, regalloc.Any)
	require.Equal(t, regfile.Dirty, a.Regs.State(r))

	a.FlushRegister(r)
	afterFirstFlush := append([]byte(nil), buf.Bytes()...)
	assert.Equal(t, regfile.Mapped, a.Regs.State(r))

	a.FlushRegister(r)
	assert.Equal(t, afterFirstFlush, buf.Bytes())
}

// AllocRegister on a full register file evicts the least-recently-used
// register, writing it back first if dirty.
func TestAllocRegisterEvictsLRUAndWritesBackIfDirty(t *testing.T) {
	a, buf := newAllocator()
	for i, r := range x86reg.Allocatable {
		a.Regs.Map(r, ppc.Register(i*4), regfile.Dirty)
	}
	// Touch everything but EAX so it is the LRU victim.
	for _, r := range x86reg.Allocatable {
		if r != x86reg.EAX {
			a.Regs.Touch(r)
		}
	}
	got := a.AllocRegister(regalloc.Any)
	assert.Equal(t, x86reg.EAX, got)
	assert.Equal(t, regfile.Unused, a.Regs.State(x86reg.EAX))
	// EAX held guest offset 0 dirty: MOV [0], EAX (A3 short form).
	assert.Equal(t, []byte{0xa3, 0x00, 0x00, 0x00, 0x00}, buf.Bytes())
}

// ClobberAll discards every mapping, flushing dirty ones first.
func TestClobberAllDiscardsEverything(t *testing.T) {
	a, buf := newAllocator()
	a.Regs.Map(x86reg.EAX, r3, regfile.Dirty)
	a.Regs.Map(x86reg.ECX, r4, regfile.Mapped)

	a.ClobberAll()

	assert.NotEmpty(t, buf.Bytes(), "dirty register must be flushed before being discarded")
	for _, r := range x86reg.Allocatable {
		assert.Equal(t, regfile.Unused, a.Regs.State(r))
	}
}

// Requesting a specific register that is itself the LRU victim (every
// allocatable register is live, and the caller pins the least-recently-
// used one) must not panic: the occupant is spilled and discarded
// directly, and the new guest register is loaded into it.
func TestGetClientRegisterSpecificRegisterIsLRUVictim(t *testing.T) {
	a, _ := newAllocator()
	for i, r := range x86reg.Allocatable {
		a.Regs.Map(r, ppc.Register(i*4), regfile.Dirty)
	}
	// x86reg.Allocatable is mapped in ascending LRU order (least- to
	// most-recently-used), so EAX is the LRU head/victim.
	h := a.Regs.ClientOf(x86reg.EAX)

	got := a.GetClientRegister(ppc.Register(0x9000), regalloc.WithReg(x86reg.EAX))

	assert.Equal(t, x86reg.EAX, got)
	assert.Equal(t, ppc.Register(0x9000), a.Regs.ClientOf(x86reg.EAX))
	assert.NotEqual(t, x86reg.EAX, a.Regs.HostOf(h), "the evicted occupant must not still claim EAX")
}

// Same LRU-victim-equals-want case through MapClientRegisterDirty.
func TestMapClientRegisterDirtySpecificRegisterIsLRUVictim(t *testing.T) {
	a, _ := newAllocator()
	for i, r := range x86reg.Allocatable {
		a.Regs.Map(r, ppc.Register(i*4), regfile.Dirty)
	}

	got := a.MapClientRegisterDirty(ppc.Register(0x9000), regalloc.WithReg(x86reg.EAX))

	assert.Equal(t, x86reg.EAX, got)
	assert.Equal(t, ppc.Register(0x9000), a.Regs.ClientOf(x86reg.EAX))
	assert.Equal(t, regfile.Dirty, a.Regs.State(x86reg.EAX))
}

// When a specific register is occupied by an unrelated guest register,
// GetClientRegister must spill and discard the occupant directly rather
// than relocating it through a scratch register -- which could otherwise
// evict a third, unrelated register just to host the relocation.
func TestGetClientRegisterSpecificOccupiedDoesNotEvictThirdRegister(t *testing.T) {
	a, buf := newAllocator()
	a.Regs.Map(x86reg.EAX, r3, regfile.Dirty)
	a.Regs.Map(x86reg.ECX, r4, regfile.Mapped)

	got := a.GetClientRegister(ppc.Register(0x9000), regalloc.WithReg(x86reg.EAX))

	assert.Equal(t, x86reg.EAX, got)
	assert.Equal(t, ppc.Register(0x9000), a.Regs.ClientOf(x86reg.EAX))
	// ECX must be untouched: no scratch relocation should have evicted it.
	assert.Equal(t, r4, a.Regs.ClientOf(x86reg.ECX))
	assert.Equal(t, regfile.Mapped, a.Regs.State(x86reg.ECX))
	// r3 (EAX's prior dirty occupant) must have been stored before EAX
	// was reused, and must no longer be mapped anywhere.
	assert.NotEmpty(t, buf.Bytes(), "r3's dirty value must have been stored back")
	assert.Equal(t, x86reg.None, a.Regs.HostOf(r3))
}

// A byte-addressable request against a guest register already mapped to
// a non-byte-addressable host register (ESI/EDI/EBP) must relocate it
// into a byte-addressable one rather than handing back the non-byte
// register as-is.
func TestGetClientRegisterByteRequestRelocatesNonByteMapping(t *testing.T) {
	a, _ := newAllocator()
	a.Regs.Map(x86reg.ESI, r3, regfile.Mapped)

	got := a.GetClientRegister(r3, regalloc.ByteAddressable)

	assert.True(t, got.ByteAddressable(), "result must be byte-addressable, got %s", got)
	assert.Equal(t, r3, a.Regs.ClientOf(got))
	assert.NotEqual(t, x86reg.ESI, got)
}

// The combined byte-addressable + specific-register request is
// refused loudly rather than silently favoring one constraint.
func TestByteAndSpecificRegisterCombinationPanics(t *testing.T) {
	a, _ := newAllocator()
	a.Log = fatalPanics()
	assert.Panics(t, func() {
		a.AllocRegister(regalloc.NativeReg8 | regalloc.WithReg(x86reg.EAX))
	})
}
