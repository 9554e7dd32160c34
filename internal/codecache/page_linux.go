//go:build linux

// Package codecache backs a codebuf.Buffer with real executable
// memory, using golang.org/x/sys/unix directly the way the rest of
// this corpus reaches for raw syscalls instead of hand-rolling them.
// It is a supplemental concern: none of internal/x86asm,
// internal/regfile, internal/regalloc or internal/flagtracker import
// it -- they only ever touch a codebuf.Buffer -- so unit tests for
// those packages never need a real page. No test or command in this
// module imports it either.
package codecache

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ryoon/pearpc/internal/codebuf"
)

// Page is one anonymous mmap'd region acting as a single code-cache
// page: writable until Install, executable (and no longer writable)
// after.
type Page struct {
	mem       []byte
	installed bool
}

// NewPage allocates a size-byte anonymous, read-write page.
func NewPage(size int) (*Page, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("codecache: mmap %d bytes: %w", size, err)
	}
	return &Page{mem: mem}, nil
}

// Close unmaps the page. It must not be called while any entry point
// returned by Install may still be executing.
func (p *Page) Close() error {
	return unix.Munmap(p.mem)
}

// Size returns the page's capacity in bytes.
func (p *Page) Size() int { return len(p.mem) }

// Base returns the page's base address. Valid before or after
// Install.
func (p *Page) Base() uintptr {
	if len(p.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p.mem[0]))
}

// Install copies buf's emitted bytes into the page and switches its
// protection from read-write to read-execute, finalizing it: a real
// code-cache page is never appended to after this point, matching how
// the reference treats a filled page as immutable once handed to the
// dispatcher. It returns the page's base address, against which any
// CALL/JMP absolute targets baked into buf must have been computed.
func (p *Page) Install(buf *codebuf.Buffer) (base uintptr, err error) {
	if p.installed {
		return 0, fmt.Errorf("codecache: page already installed")
	}
	bs := buf.Bytes()
	if len(bs) > len(p.mem) {
		return 0, fmt.Errorf("codecache: %d bytes do not fit in a %d-byte page", len(bs), len(p.mem))
	}
	copy(p.mem, bs)
	if err := unix.Mprotect(p.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("codecache: mprotect: %w", err)
	}
	p.installed = true
	return p.Base(), nil
}
