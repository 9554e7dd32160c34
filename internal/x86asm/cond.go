package x86asm

// Cond is one of the sixteen x86 condition codes tested by Jcc,
// SETcc and CMOVcc. Numeric values match the low nibble of the
// corresponding 0F 8x/0F 9x/0F 4x opcodes. Several mnemonics are
// aliases of the same code (e.g. B, C and NAE all denote "below");
// they are kept as distinct names because callers reach for whichever
// reads best at the call site, matching the reference header's
// X86FlagTest enum.
type Cond uint8

const (
	O   Cond = 0x0
	NO  Cond = 0x1
	B   Cond = 0x2
	C   Cond = 0x2
	NAE Cond = 0x2
	NB  Cond = 0x3
	NC  Cond = 0x3
	AE  Cond = 0x3
	E   Cond = 0x4
	Z   Cond = 0x4
	NE  Cond = 0x5
	NZ  Cond = 0x5
	BE  Cond = 0x6
	NA  Cond = 0x6
	A   Cond = 0x7
	NBE Cond = 0x7
	S   Cond = 0x8
	NS  Cond = 0x9
	P   Cond = 0xa
	PE  Cond = 0xa
	PO  Cond = 0xb
	NP  Cond = 0xb
	L   Cond = 0xc
	NGE Cond = 0xc
	GE  Cond = 0xd
	NL  Cond = 0xd
	LE  Cond = 0xe
	NG  Cond = 0xe
	G   Cond = 0xf
	NLE Cond = 0xf
)

// Invert returns the condition that is true exactly when c is false.
// x86 condition codes are paired so that inversion is XOR 1 on the low
// bit.
func (c Cond) Invert() Cond { return c ^ 1 }
