// Package ppc names the guest-side identifiers the allocator and flag
// tracker translate against: PPC general-purpose registers (addressed
// by byte offset into the opaque gCPU image), condition-register
// fields, and the XER carry bit.
package ppc

// Register identifies a guest register by its byte offset inside the
// gCPU image. The actual layout of gCPU is a collaborator concern
// (spec.md §6); this package only carries the offset.
type Register int32

// None is the sentinel denoting "no guest register" (PPC_REG_NO).
const None = Register(-1)

// CRField identifies one of the eight 4-bit fields of the PPC
// condition register.
type CRField uint8

const (
	CR0 = CRField(iota)
	CR1
	CR2
	CR3
	CR4
	CR5
	CR6
	CR7
)

// XEROffset is a placeholder byte offset of the XER special register
// inside gCPU; real collaborators may use a different layout. The demo
// and tests in this module pass their own XER address instead.
const XEROffset = Register(0)

// CarryBitIndex is the bit position of XER[CA] within the 32-bit XER
// word, in PPC bit numbering (bit 29 of a little-endian 32-bit word).
const CarryBitIndex = 29

// CarryByteOffset is the offset, in bytes, of the byte within XER that
// contains bit 29, and CarryByteBit is bit 29's position within that
// byte. Bit 29 of a 32-bit little-endian word lives in byte 3 (bits
// 24-31), at bit 5 (29-24).
const (
	CarryByteOffset = 3
	CarryByteBit    = CarryBitIndex - CarryByteOffset*8 // = 5
	CarryByteMask   = byte(1) << CarryByteBit
)
