// Package codebuf implements the code-buffer collaborator contract
// described in spec.md §6: an append-only byte stream with a cursor,
// an "assure contiguous space" primitive used by the jump emitters to
// survive page rollover, and relocation fixups.
//
// This is the concrete stand-in for the code-cache collaborator that
// spec.md treats as external; it has no opinion about executability
// or page lifetimes (see internal/codecache for that).
package codebuf

import "encoding/binary"

// Buffer is an append-only byte stream representing the block
// currently being translated.
type Buffer struct {
	bytes []byte

	// pageRemaining simulates per-page capacity so that EmitAssure can
	// signal rollover without a real code-cache collaborator wired in.
	// A zero value means "unbounded" (the default, used by all the
	// allocator/encoder/flag-tracker unit tests).
	pageRemaining int
	pageSize      int
}

// New returns an unbounded buffer: EmitAssure always succeeds.
func New() *Buffer {
	return &Buffer{}
}

// NewPaged returns a buffer that simulates a code-cache page of the
// given size; EmitAssure reports rollover (false) once fewer than n
// bytes remain on the current page, exactly as jitcEmitAssure does
// when the reference implementation's current page is exhausted.
func NewPaged(pageSize int) *Buffer {
	return &Buffer{pageSize: pageSize, pageRemaining: pageSize}
}

// Addr returns the current cursor position (asmHERE).
func (b *Buffer) Addr() int32 {
	return int32(len(b.bytes))
}

// Bytes returns the buffer contents emitted so far. The slice is
// owned by the buffer and must not be retained across further Emit
// calls.
func (b *Buffer) Bytes() []byte {
	return b.bytes
}

// Emit1 appends a single byte (jitcEmit1).
func (b *Buffer) Emit1(v byte) {
	b.bytes = append(b.bytes, v)
	b.consume(1)
}

// Emit appends raw bytes (jitcEmit).
func (b *Buffer) Emit(bs ...byte) {
	b.bytes = append(b.bytes, bs...)
	b.consume(len(bs))
}

// EmitInt32 appends a little-endian 32-bit value.
func (b *Buffer) EmitInt32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.Emit(tmp[:]...)
}

func (b *Buffer) consume(n int) {
	if b.pageSize > 0 {
		b.pageRemaining -= n
	}
}

// EmitAssure ensures that n contiguous bytes are reservable on the
// current page. It returns false if a rollover occurred, in which
// case the caller must restart emission of the current instruction
// from scratch so that any relative displacement is recomputed
// against the post-rollover cursor (spec.md §4.4, §9).
func (b *Buffer) EmitAssure(n int) bool {
	if b.pageSize == 0 {
		return true
	}
	if b.pageRemaining >= n {
		return true
	}
	b.pageRemaining = b.pageSize
	return false
}

// Fixup is a recorded cursor position holding a placeholder 32-bit
// relative displacement, to be patched once its target is known.
type Fixup int32

// ResolveFixup writes to-(at+4) as a 32-bit signed displacement at the
// recorded position.
func (b *Buffer) ResolveFixup(at Fixup, to int32) {
	disp := to - (int32(at) + 4)
	binary.LittleEndian.PutUint32(b.bytes[at:at+4], uint32(disp))
}

// Truncate discards bytes back to addr, used when an instruction must
// be re-emitted after EmitAssure reports rollover.
func (b *Buffer) Truncate(addr int32) {
	b.bytes = b.bytes[:addr]
}
