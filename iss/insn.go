package iss

import "github.com/sarchlab/riscvsim/insts"

// Handler executes one decoded instruction and returns the next
// instruction to execute.
type Handler func(c *Core, i *DecodedInsn) *DecodedInsn

// insnState tracks the decode lifecycle of a cache entry.
type insnState uint8

const (
	insnUndecoded insnState = iota
	insnDecoded
	insnBreakpoint
)

// DecodedInsn is one entry of the decoded-instruction cache. It is
// created with the undecoded sentinel handler and mutated exactly once to
// the decoded state; a breakpoint may afterwards swap the handler for a
// trap while remembering the original.
type DecodedInsn struct {
	// Addr is the guest address, immutable after page initialisation.
	Addr uint32

	// Opcode is the raw instruction word, valid once fetched is set.
	Opcode  uint32
	fetched bool

	// Size is the encoding size in bytes, 2 or 4. It is 4 until decode.
	Size uint32

	state   insnState
	handler Handler
	// saved is the decoded handler while a breakpoint trap is installed.
	saved Handler

	// Next is the speculative link to the sequential successor. It is
	// valid only within the generation it was resolved in; after a cache
	// flush the link dangles and must not be followed without re-lookup.
	Next *DecodedInsn

	// gen is the cache generation the entry belongs to.
	gen uint64

	// Operand descriptors, filled at decode.
	Op     insts.Op
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Imm    int32
	Csr    uint16
	Target uint32 // statically known branch target
}

// Handler returns the entry's current execute handler.
func (i *DecodedInsn) Handler() Handler { return i.handler }

// Decoded reports whether the entry holds a concrete handler.
func (i *DecodedInsn) Decoded() bool { return i.state != insnUndecoded }

// Instruction cache page geometry. A page covers 2^insnPageBits bytes of
// guest addresses with one entry per 2-byte slot, so that compressed
// instructions get their own entry.
const (
	insnPageBits = 10
	insnPageSize = 1 << (insnPageBits - 1)
	insnPageMask = (1 << insnPageBits) - 1
)

// insnPage is a fixed array of entries covering one aligned address range.
type insnPage struct {
	insns [insnPageSize]DecodedInsn
}

// InsnCache is the lazily populated mapping from physical address to
// decoded instruction, grouped into pages. The cache exclusively owns its
// pages; Next links and handler pointers are weak references that a flush
// invalidates wholesale.
type InsnCache struct {
	core *Core

	pages map[uint32]*insnPage

	// currentPage is a shortcut for lookups within the page of the last
	// hit. VFlush clears only this.
	currentPage     *insnPage
	currentPageBase uint32

	// generation increments on every flush so that holders of cached
	// entry pointers can detect staleness.
	generation uint64
}

func newInsnCache(core *Core) *InsnCache {
	return &InsnCache{
		core:  core,
		pages: map[uint32]*insnPage{},
	}
}

// Generation returns the current cache generation.
func (c *InsnCache) Generation() uint64 { return c.generation }

// pageGet returns the page covering paddr, creating and initialising it
// on first miss.
func (c *InsnCache) pageGet(paddr uint32) *insnPage {
	index := paddr >> insnPageBits
	page := c.pages[index]
	if page != nil {
		return page
	}

	page = &insnPage{}
	c.pages[index] = page

	addr := index << insnPageBits
	for i := range page.insns {
		insn := &page.insns[i]
		insn.Addr = addr
		insn.Size = 4
		insn.state = insnUndecoded
		insn.handler = undecodedHandler
		insn.gen = c.generation
		addr += 2
	}

	return page
}

// Get translates vaddr and returns the cache entry addressed by it,
// creating the covering page if needed. With no MMU configured the
// translation is the identity; a translation fault raises an
// instruction-access exception and returns the vectored instruction
// instead.
func (c *InsnCache) Get(vaddr uint32) *DecodedInsn {
	paddr := vaddr
	if c.core.mmu != nil {
		var ok bool
		paddr, ok = c.core.mmu(vaddr)
		if !ok {
			return c.core.Irq.ExceptRaise(ExceptFault)
		}
	}

	base := paddr &^ insnPageMask
	if c.currentPage == nil || base != c.currentPageBase {
		c.currentPage = c.pageGet(paddr)
		c.currentPageBase = base
	}

	return &c.currentPage.insns[(paddr&insnPageMask)>>1]
}

// Flush drops all pages, invalidates the prefetcher's current pointer,
// re-resolves the interrupt vector pointers, re-enables software
// breakpoints and bumps the generation counter.
func (c *InsnCache) Flush() {
	c.core.Prefetcher.Flush()

	c.pages = map[uint32]*insnPage{}
	c.generation++

	c.VFlush()

	c.core.Dbg.enableAllBreakpoints()
	c.core.Irq.cacheFlush()

	// Every cached pointer is stale now; the loop's own is re-resolved
	// here so the next cycle executes a live entry.
	if c.core.currentInsn != nil {
		c.core.currentInsn = c.Get(c.core.currentInsn.Addr)
		c.core.Prefetcher.Fetch(c.core.currentInsn)
	}
}

// VFlush clears only the current-page shortcut and keeps decoded entries
// alive. Flush calls it; Get replaces the shortcut on its own when a
// lookup leaves the current page.
func (c *InsnCache) VFlush() {
	c.currentPage = nil
	c.currentPageBase = 0
}
