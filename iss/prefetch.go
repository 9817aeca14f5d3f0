package iss

import (
	"encoding/binary"

	"github.com/sarchlab/riscvsim/insts"
)

// prefetchLineSize is the instruction buffer width in bytes. Keeping a
// small line amortises fetch cost across sequentially decoded
// instructions.
const prefetchLineSize = 16

// Prefetcher holds the single-line instruction buffer and materialises
// raw opcode words into decoded-cache entries. A fetch that the memory
// answers asynchronously stalls the execution loop until the response
// arrives.
type Prefetcher struct {
	core *Core

	data  [prefetchLineSize]byte
	addr  uint32
	valid bool

	// pendingInsn is the instruction whose line fetch is in flight.
	pendingInsn *DecodedInsn
	req         IOReq

	// loHalf latches the low half of a word that straddles two lines,
	// surviving the buffer refill that fetches the high half.
	loHalf  uint16
	loValid bool
}

// Flush invalidates the buffer.
func (p *Prefetcher) Flush() {
	p.valid = false
	p.pendingInsn = nil
}

// covers reports whether the buffer holds [addr, addr+n).
func (p *Prefetcher) covers(addr uint32, n uint32) bool {
	return p.valid && addr >= p.addr && addr+n <= p.addr+prefetchLineSize
}

// Fetch ensures the raw bytes of i are materialised into the entry. When
// a cache flush invalidated the entry since it was resolved, the current
// instruction pointer is re-looked-up first.
func (p *Prefetcher) Fetch(i *DecodedInsn) {
	if i == nil {
		return
	}

	if i.gen != p.core.InsnCache.generation {
		i = p.core.InsnCache.Get(i.Addr)
		p.core.currentInsn = i
	}

	if i.fetched {
		return
	}

	if p.pendingInsn == i {
		return // line fetch already in flight
	}

	p.loValid = false
	p.fetchResume(i)
}

// fetchResume advances the materialisation of i as far as the buffer
// allows, issuing at most one line fetch per pass. It re-runs when an
// asynchronous fetch response lands.
func (p *Prefetcher) fetchResume(i *DecodedInsn) {
	if !p.loValid {
		if !p.covers(i.Addr, 2) {
			p.fetchLine(i, i.Addr)
			return
		}
		p.loHalf = binary.LittleEndian.Uint16(p.data[i.Addr-p.addr:])
		p.loValid = true
	}

	if insts.Size(uint32(p.loHalf)) == 2 {
		i.Opcode = uint32(p.loHalf)
		i.fetched = true
		p.loValid = false
		return
	}

	if !p.covers(i.Addr+2, 2) {
		p.fetchLine(i, i.Addr+2)
		return
	}

	hi := binary.LittleEndian.Uint16(p.data[i.Addr+2-p.addr:])
	i.Opcode = uint32(p.loHalf) | uint32(hi)<<16
	i.fetched = true
	p.loValid = false
}

// fetchLine issues a line-granularity read covering addr through the
// fetch master port.
func (p *Prefetcher) fetchLine(i *DecodedInsn, addr uint32) {
	base := addr &^ (prefetchLineSize - 1)

	p.req = IOReq{
		Addr:     base,
		Data:     p.data[:],
		Complete: p.core.FetchResponse,
	}

	switch p.core.fetch.Req(&p.req) {
	case IOOK:
		p.addr = base
		p.valid = true
		p.core.Timing.EventAccount(PcerImiss, 1)
		p.fetchResume(i)
	case IOPending:
		p.pendingInsn = i
		p.core.stalledInc()
	default:
		p.core.trace.Msg(traceWarning,
			"instruction fetch fault (addr: 0x%x)", addr)
		p.core.haltCause = HaltCauseInvalid
		vector := p.core.Irq.ExceptRaise(ExceptFault)
		p.core.currentInsn = vector
		p.Fetch(vector)
	}
}

// fetchResponse completes a pending line fetch and resumes the loop once
// the instruction word is whole.
func (p *Prefetcher) fetchResponse(req *IOReq) {
	p.addr = req.Addr
	p.valid = true

	i := p.pendingInsn
	p.pendingInsn = nil
	if i == nil {
		return
	}

	p.fetchResume(i)

	// Release the stall held for this response. If the word straddles
	// two lines and the follow-up fetch also went asynchronous,
	// fetchLine has armed a stall of its own and the loop stays off.
	p.core.stalledDec()
}
