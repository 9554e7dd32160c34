package trapstub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ppcjit "github.com/ryoon/pearpc"
	"github.com/ryoon/pearpc/internal/codebuf"
	"github.com/ryoon/pearpc/internal/ppc"
	"github.com/ryoon/pearpc/internal/regalloc"
	"github.com/ryoon/pearpc/internal/trapstub"
)

// Integration: a Context wired to real RET-stub trap targets can
// clobber dirty flag/carry state and the resulting CALL lands on a
// valid single-instruction stub.
func TestClobberCarryAndFlagsCallsRealStub(t *testing.T) {
	buf := codebuf.New()
	flushFlags := trapstub.Emit(buf)
	flushCarryAndFlags := trapstub.Emit(buf)
	afterStubs := buf.Addr()

	ctx := ppcjit.New(buf, ppcjit.Config{
		XERAddr:                0x2000,
		FlushFlagsAddr:         flushFlags,
		FlushCarryAndFlagsAddr: flushCarryAndFlags,
	})
	ctx.Flags.MapFlagsDirty(ppc.CR0)
	ctx.Regs.MapClientRegisterDirty(ppc.Register(0x1000), regalloc.Any)

	ctx.FlushAll()

	emitted := buf.Bytes()[afterStubs:]
	assert.Equal(t, byte(0xe8), emitted[0], "FlushAll must open with the flag-fold CALL")
}
