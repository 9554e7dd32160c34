package ppcjit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ppcjit "github.com/ryoon/pearpc"
	"github.com/ryoon/pearpc/internal/codebuf"
	"github.com/ryoon/pearpc/internal/ppc"
	"github.com/ryoon/pearpc/internal/regalloc"
	"github.com/ryoon/pearpc/internal/regfile"
	"github.com/ryoon/pearpc/internal/x86reg"
)

func newContext() (*ppcjit.Context, *codebuf.Buffer) {
	buf := codebuf.New()
	ctx := ppcjit.New(buf, ppcjit.Config{
		XERAddr:                0x2000,
		FlushFlagsAddr:         0x9000,
		FlushCarryAndFlagsAddr: 0x9010,
	})
	return ctx, buf
}

// FlushAll folds a dirty CR field before flushing GPRs, and leaves
// every mapping in place afterward.
func TestContextFlushAllOrdersFlagsBeforeRegisters(t *testing.T) {
	ctx, buf := newContext()
	ctx.Flags.MapFlagsDirty(ppc.CR0)
	r := ctx.Regs.MapClientRegisterDirty(ppc.Register(0x1000), regalloc.Any)

	ctx.FlushAll()

	assert.NotEmpty(t, buf.Bytes())
	assert.Equal(t, byte(0xe8), buf.Bytes()[0], "the flag-fold CALL must come before the GPR store")
	assert.Equal(t, regfile.Mapped, ctx.Regs.Regs.State(r))
}

// ClobberAll discards every GPR mapping and resets the flag tracker.
func TestContextClobberAllDiscardsEverything(t *testing.T) {
	ctx, _ := newContext()
	ctx.Flags.MapCarryDirty()
	ctx.Regs.MapClientRegisterDirty(ppc.Register(0x1000), regalloc.WithReg(x86reg.EAX))

	ctx.ClobberAll()

	assert.Equal(t, regfile.Unused, ctx.Regs.Regs.State(x86reg.EAX))
}

// InvalidateAll never emits code, even with dirty state pending.
func TestContextInvalidateAllEmitsNothing(t *testing.T) {
	ctx, buf := newContext()
	ctx.Flags.MapFlagsDirty(ppc.CR2)
	ctx.Regs.MapClientRegisterDirty(ppc.Register(0x1000), regalloc.Any)

	ctx.InvalidateAll()

	assert.Empty(t, buf.Bytes())
}
