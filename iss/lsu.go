package iss

import "encoding/binary"

// alignMask strips a data address down to its natural word boundary.
const alignMask = ^uint32(3)

// Lsu issues data memory transactions for the load/store handlers. An
// aligned request is a single transaction; a request crossing a word
// boundary is split into two aligned halves with the second one played
// from an internal continuation event.
type Lsu struct {
	core *Core

	buf [8]byte
	req IOReq

	// Pending-access writeback state, consumed by stallCallback.
	pendingRd     uint8
	pendingSize   int
	pendingSigned bool
	pendingLoad   bool

	// Second half of a misaligned split.
	misAddr    uint32
	misOff     int
	misSize    int
	misIsWrite bool

	// abandoned marks an in-flight request whose instruction was aborted
	// by an interrupt; its completion must not resume the loop.
	abandoned bool
}

// dataReq issues one aligned transaction through the data master port.
// Issuing a fresh request supersedes an abandoned one.
func (l *Lsu) dataReq(addr uint32, data []byte, isWrite bool) IOStatus {
	l.abandoned = false
	l.req = IOReq{
		Addr:     addr,
		Data:     data,
		IsWrite:  isWrite,
		Complete: l.core.DataResponse,
	}
	return l.core.data.Req(&l.req)
}

// Load performs a load of size bytes into register i.Rd, returning the
// next instruction, or the exception vector on a fault.
func (l *Lsu) Load(i *DecodedInsn, addr uint32, size int, signExtend bool) *DecodedInsn {
	l.core.Timing.EventAccount(PcerLd, 1)

	l.pendingRd = i.Rd
	l.pendingSize = size
	l.pendingSigned = signExtend
	l.pendingLoad = true

	if addr&^alignMask != 0 && addr&alignMask != (addr+uint32(size)-1)&alignMask {
		return l.misaligned(i, addr, size, false)
	}

	switch l.dataReq(addr, l.buf[:size], false) {
	case IOOK:
		l.writeback()
		l.core.Timing.StallLoadAccount(l.req.Latency)
		return i.Next
	case IOPending:
		l.core.stalledInc()
		return i.Next
	default:
		return l.fault(addr)
	}
}

// Store performs a store of the low size bytes of register i.Rs2.
func (l *Lsu) Store(i *DecodedInsn, addr uint32, size int) *DecodedInsn {
	l.core.Timing.EventAccount(PcerSt, 1)

	binary.LittleEndian.PutUint32(l.buf[:4], l.core.Regfile.Get(i.Rs2))
	l.pendingLoad = false
	l.pendingSize = size

	if addr&^alignMask != 0 && addr&alignMask != (addr+uint32(size)-1)&alignMask {
		return l.misaligned(i, addr, size, true)
	}

	switch l.dataReq(addr, l.buf[:size], true) {
	case IOOK:
		l.core.Timing.StallInsnDependencyAccount(l.req.Latency)
		return i.Next
	case IOPending:
		l.core.stalledInc()
		return i.Next
	default:
		return l.fault(addr)
	}
}

// LoadElw performs the PULP interruptible load word. While it is pending,
// an enabled incoming interrupt aborts it and the instruction replays
// after the handler returns.
func (l *Lsu) LoadElw(i *DecodedInsn, addr uint32) *DecodedInsn {
	l.core.Timing.EventAccount(PcerLd, 1)

	l.pendingRd = i.Rd
	l.pendingSize = 4
	l.pendingSigned = false
	l.pendingLoad = true

	switch l.dataReq(addr, l.buf[:4], false) {
	case IOOK:
		l.writeback()
		l.core.Timing.StallLoadAccount(l.req.Latency)
		l.core.elwInterrupted = false
		return i.Next
	case IOPending:
		l.core.elwStalled = true
		l.core.elwInsn = i
		l.core.stalledInc()
		return i.Next
	default:
		return l.fault(addr)
	}
}

// abandonPending marks the in-flight request as abandoned so that its
// eventual completion is discarded. Used when an interrupt aborts a
// pending elw.
func (l *Lsu) abandonPending() {
	l.abandoned = true
}

// misaligned splits the access at the word boundary, performs the first
// half now and arms the continuation for the second half. The outer
// operation always stalls; the loop resumes only when both halves
// completed. A fault on the first half is reported immediately and the
// second half is never issued.
func (l *Lsu) misaligned(i *DecodedInsn, addr uint32, size int, isWrite bool) *DecodedInsn {
	addr1 := (addr + uint32(size) - 1) & alignMask
	size0 := int(addr1 - addr)

	l.core.trace.Msg(traceDebug,
		"misaligned data request (addr: 0x%x, size: %d, is_write: %v)",
		addr, size, isWrite)

	l.core.misalignedAccess = true
	l.misAddr = addr1
	l.misOff = size0
	l.misSize = size - size0
	l.misIsWrite = isWrite

	switch l.dataReq(addr, l.buf[:size0], isWrite) {
	case IOOK:
		// The first half completed synchronously: run the second half
		// from the continuation event after the modelled gap.
		l.core.misalignedAccess = false
		l.core.stalledInc()
		l.core.scheduleMisaligned(l.req.Latency + 1)
		return i.Next
	case IOPending:
		// DataResponse sees misalignedAccess and arms the continuation.
		l.core.stalledInc()
		return i.Next
	default:
		l.core.misalignedAccess = false
		return l.fault(addr)
	}
}

// misalignedStep performs the second half of a split access. It runs from
// the misaligned continuation event while the loop is stalled.
func (l *Lsu) misalignedStep() {
	end := l.misOff + l.misSize

	switch l.dataReq(l.misAddr, l.buf[l.misOff:end], l.misIsWrite) {
	case IOOK:
		l.core.wakeupLatency = l.req.Latency
		l.stallCallback()
		l.core.stalledDec()
	case IOPending:
		// DataResponse finishes the instruction when it lands.
	default:
		l.core.trace.Msg(traceWarning,
			"misaligned second-half fault (addr: 0x%x)", l.misAddr)
		l.core.currentInsn = l.fault(l.misAddr)
		l.core.Prefetcher.Fetch(l.core.currentInsn)
		l.core.stalledDec()
	}
}

// stallCallback finishes the instruction whose access just completed.
func (l *Lsu) stallCallback() {
	if l.core.elwStalled {
		l.core.elwStalled = false
	}
	if l.pendingLoad {
		l.writeback()
	}
}

// writeback moves the loaded bytes into the destination register with the
// requested extension.
func (l *Lsu) writeback() {
	var v uint32
	switch l.pendingSize {
	case 1:
		v = uint32(l.buf[0])
		if l.pendingSigned {
			v = uint32(int32(int8(v)))
		}
	case 2:
		v = uint32(binary.LittleEndian.Uint16(l.buf[:2]))
		if l.pendingSigned {
			v = uint32(int32(int16(v)))
		}
	default:
		v = binary.LittleEndian.Uint32(l.buf[:4])
	}
	l.core.Regfile.Set(l.pendingRd, v)
}

// fault raises the load/store access-fault exception.
func (l *Lsu) fault(addr uint32) *DecodedInsn {
	l.core.trace.Msg(traceWarning, "data access fault (addr: 0x%x)", addr)
	l.core.haltCause = HaltCauseInvalid
	return l.core.Irq.ExceptRaise(ExceptFault)
}
