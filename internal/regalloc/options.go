package regalloc

import "github.com/ryoon/pearpc/internal/x86reg"

// Options is the request bitmask every allocator entry point takes
// (spec.md §4.2): by default the allocator picks any free-enough
// register, but a caller can narrow the request to a specific
// register (NativeReg, with the register packed in the low bits) or
// to "any byte-addressable register" (NativeReg8).
type Options uint32

const (
	regMask = 0x0f

	// NativeReg8 requires the returned register to be byte-addressable
	// (EAX..EBX). It does not pin a specific register.
	NativeReg8 Options = 1 << 8
	// NativeReg requires a specific register, packed in the low 4 bits
	// via WithReg.
	NativeReg Options = 2 << 8
)

// Any is the zero-value request: let the allocator's LRU policy
// choose.
const Any Options = 0

// WithReg builds a request for exactly r.
func WithReg(r x86reg.Reg) Options {
	return NativeReg | Options(r)&regMask
}

// ByteAddressable builds a request for any byte-addressable register.
const ByteAddressable = NativeReg8

// Reg returns the specific register packed into opts. Only valid when
// opts.IsSpecific() is true.
func (o Options) Reg() x86reg.Reg {
	return x86reg.Reg(o & regMask)
}

// IsSpecific reports whether opts pins a specific register.
func (o Options) IsSpecific() bool { return o&NativeReg != 0 }

// RequiresByte reports whether opts requires a byte-addressable
// register.
func (o Options) RequiresByte() bool { return o&NativeReg8 != 0 }
