package flagtracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryoon/pearpc/internal/codebuf"
	"github.com/ryoon/pearpc/internal/flagtracker"
	"github.com/ryoon/pearpc/internal/ppc"
	"github.com/ryoon/pearpc/internal/x86asm"
)

const (
	xerAddr       = int32(0x2000)
	flushFlags    = int32(0x9000)
	flushCarryAll = int32(0x9010)
)

func newTracker() (*flagtracker.Tracker, *codebuf.Buffer) {
	buf := codebuf.New()
	asm := x86asm.New(buf)
	return flagtracker.New(asm, xerAddr, flushFlags, flushCarryAll), buf
}

// S6: clobbering both a dirty CR field and a dirty carry bit emits a
// single 5-byte CALL to the combined flush helper.
func TestScenarioS6ClobberCarryAndFlags(t *testing.T) {
	tr, buf := newTracker()
	tr.MapFlagsDirty(ppc.CR0)
	tr.MapCarryDirty()

	tr.ClobberCarryAndFlags()

	assert.Len(t, buf.Bytes(), 5)
	assert.Equal(t, byte(0xe8), buf.Bytes()[0])
}

// ClobberCarryAndFlags is a no-op when nothing is dirty.
func TestClobberCarryAndFlagsNoOpWhenClean(t *testing.T) {
	tr, buf := newTracker()
	tr.ClobberCarryAndFlags()
	assert.Empty(t, buf.Bytes())
}

// ClobberCarry alone (flags clean) emits the inline
// Jcc/OR/JMP/AND fold instead of a call.
func TestClobberCarryAloneUsesInlineFold(t *testing.T) {
	tr, buf := newTracker()
	tr.MapCarryDirty()

	tr.ClobberCarry()

	assert.NotEmpty(t, buf.Bytes())
	assert.Equal(t, []byte{0x0f, 0x83}, buf.Bytes()[:2], "JNC near form (0F 80+NC) must open the fold")
}

// When both carry and flags are dirty, ClobberCarry defers to the
// combined single-call path rather than emitting its own inline fold.
func TestClobberCarryDefersToCombinedWhenFlagsAlsoDirty(t *testing.T) {
	tr, buf := newTracker()
	tr.MapFlagsDirty(ppc.CR1)
	tr.MapCarryDirty()

	tr.ClobberCarry()

	assert.Equal(t, []byte{0xe8}, buf.Bytes()[:1])
	assert.Len(t, buf.Bytes(), 5)
}

// GetClientCarry is idempotent: once CF mirrors XER[CA], a second call
// emits nothing further.
func TestGetClientCarryIdempotent(t *testing.T) {
	tr, buf := newTracker()
	tr.GetClientCarry()
	after := append([]byte(nil), buf.Bytes()...)
	tr.GetClientCarry()
	assert.Equal(t, after, buf.Bytes())
}

// MapFlagsDirty for a different CR field than the one currently
// materialized flushes the old one first.
func TestMapFlagsDirtySwitchingFieldsFlushesFirst(t *testing.T) {
	tr, buf := newTracker()
	tr.MapFlagsDirty(ppc.CR0)
	tr.MapFlagsDirty(ppc.CR1)
	assert.NotEmpty(t, buf.Bytes(), "switching CR fields must flush the stale one")
}

// callDisplacement decodes the rel32 operand of a 5-byte E8 CALL
// starting at buf's beginning, for asserting which of two call targets
// a CALL actually encodes.
func callDisplacement(t *testing.T, buf *codebuf.Buffer) int32 {
	t.Helper()
	b := buf.Bytes()
	require.Len(t, b, 5)
	require.Equal(t, byte(0xe8), b[0])
	return int32(b[1]) | int32(b[2])<<8 | int32(b[3])<<16 | int32(b[4])<<24
}

// When both flags and carry are dirty, ClobberFlags must defer to the
// combined flush rather than calling FlushFlagsAddr alone -- otherwise
// the pending carry fold is silently dropped (CF is about to be
// clobbered right along with the rest of EFLAGS).
func TestClobberFlagsDefersToCombinedWhenCarryAlsoDirty(t *testing.T) {
	tr, buf := newTracker()
	tr.MapFlagsDirty(ppc.CR0)
	tr.MapCarryDirty()

	tr.ClobberFlags()

	assert.Equal(t, flushCarryAll-5, callDisplacement(t, buf), "must call the combined helper, not FlushFlagsAddr alone")
}

// ClobberFlags alone (carry clean) still calls FlushFlagsAddr directly.
func TestClobberFlagsAloneCallsFlushFlagsWhenCarryClean(t *testing.T) {
	tr, buf := newTracker()
	tr.MapFlagsDirty(ppc.CR0)

	tr.ClobberFlags()

	assert.Equal(t, flushFlags-5, callDisplacement(t, buf))
}
